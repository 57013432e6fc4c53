package enums

import "fmt"

// SecurityType describes how the customer's device is locked.
type SecurityType string

const (
	SecurityTypeNone     SecurityType = "none"
	SecurityTypePassword SecurityType = "password"
	SecurityTypePattern  SecurityType = "pattern"
)

var validSecurityTypes = []SecurityType{
	SecurityTypeNone,
	SecurityTypePassword,
	SecurityTypePattern,
}

// IsValid checks whether the value matches the canonical enum.
func (v SecurityType) IsValid() bool {
	for _, candidate := range validSecurityTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseSecurityType converts raw strings into SecurityType.
func ParseSecurityType(value string) (SecurityType, error) {
	for _, candidate := range validSecurityTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid security type %q", value)
}
