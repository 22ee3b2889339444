package enums

// TokenTransactionType is the direction of a token trade.
type TokenTransactionType string

const (
	TokenTransactionTypePurchase TokenTransactionType = "purchase"
	TokenTransactionTypeSell     TokenTransactionType = "sell"
)

func (v TokenTransactionType) IsValid() bool {
	return v == TokenTransactionTypePurchase || v == TokenTransactionTypeSell
}

// Sign is +1 for purchases, -1 for sales and 0 otherwise.
func (v TokenTransactionType) Sign() int64 {
	switch v {
	case TokenTransactionTypePurchase:
		return 1
	case TokenTransactionTypeSell:
		return -1
	}
	return 0
}
