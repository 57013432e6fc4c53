package enums

import "fmt"

// TransactionType classifies a till entry.
type TransactionType string

const (
	TransactionTypeSale     TransactionType = "sale"
	TransactionTypePurchase TransactionType = "purchase"
	TransactionTypeService  TransactionType = "service"
	TransactionTypeExpense  TransactionType = "expense"
)

var validTransactionTypes = []TransactionType{
	TransactionTypeSale,
	TransactionTypePurchase,
	TransactionTypeService,
	TransactionTypeExpense,
}

// IsValid checks whether the value matches the canonical enum.
func (v TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseTransactionType converts raw strings into TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}
