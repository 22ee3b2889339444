package enums

// TransactionType is the deal a listing offers.
type TransactionType string

const (
	TransactionTypeSale  TransactionType = "sale"
	TransactionTypeBuy   TransactionType = "buy"
	TransactionTypeRent  TransactionType = "rent"
	TransactionTypeLease TransactionType = "lease"
)

var transactionTypes = []TransactionType{TransactionTypeSale, TransactionTypeBuy, TransactionTypeRent, TransactionTypeLease}

func (v TransactionType) IsValid() bool { return valid(transactionTypes, v) }

func ParseTransactionType(raw string) (TransactionType, error) {
	return parse("transaction type", transactionTypes, raw)
}
