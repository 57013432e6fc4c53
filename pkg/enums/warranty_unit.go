package enums

import "fmt"

// WarrantyUnit is the unit of a product warranty duration.
type WarrantyUnit string

const (
	WarrantyUnitDays   WarrantyUnit = "days"
	WarrantyUnitMonths WarrantyUnit = "months"
	WarrantyUnitYears  WarrantyUnit = "years"
)

var validWarrantyUnits = []WarrantyUnit{
	WarrantyUnitDays,
	WarrantyUnitMonths,
	WarrantyUnitYears,
}

// IsValid checks whether the value matches the canonical enum.
func (v WarrantyUnit) IsValid() bool {
	for _, candidate := range validWarrantyUnits {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseWarrantyUnit converts raw strings into WarrantyUnit.
func ParseWarrantyUnit(value string) (WarrantyUnit, error) {
	for _, candidate := range validWarrantyUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid warranty unit %q", value)
}
