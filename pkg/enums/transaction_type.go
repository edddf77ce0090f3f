package enums

import "fmt"

// TransactionType labels a wallet ledger entry.
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

var validTransactionTypes = []TransactionType{
	TransactionTypeCredit,
	TransactionTypeDebit,
}

// String implements fmt.Stringer.
func (t TransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TransactionType.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransactionType converts raw input into a TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}

// TransactionStatus reports whether a wallet ledger entry applied.
type TransactionStatus string

const (
	TransactionStatusSuccessful TransactionStatus = "successful"
	TransactionStatusReversed   TransactionStatus = "reversed"
)

var validTransactionStatuses = []TransactionStatus{
	TransactionStatusSuccessful,
	TransactionStatusReversed,
}

// IsValid reports whether the value is a known TransactionStatus.
func (t TransactionStatus) IsValid() bool {
	for _, candidate := range validTransactionStatuses {
		if candidate == t {
			return true
		}
	}
	return false
}
