package enums

import "fmt"

// CustomerStatus tracks a repair job through the shop.
type CustomerStatus string

const (
	CustomerStatusPending   CustomerStatus = "Pending"
	CustomerStatusRepaired  CustomerStatus = "Repaired"
	CustomerStatusDelivered CustomerStatus = "Delivered"
	CustomerStatusCancelled CustomerStatus = "Cancelled"
)

var validCustomerStatuses = []CustomerStatus{
	CustomerStatusPending,
	CustomerStatusRepaired,
	CustomerStatusDelivered,
	CustomerStatusCancelled,
}

// IsValid checks whether the value matches the canonical enum.
func (v CustomerStatus) IsValid() bool {
	for _, candidate := range validCustomerStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseCustomerStatus converts raw strings into CustomerStatus.
func ParseCustomerStatus(value string) (CustomerStatus, error) {
	for _, candidate := range validCustomerStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid customer status %q", value)
}
