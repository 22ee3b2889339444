package listings

import "github.com/shopspring/decimal"

// DefaultTokenPriceDivisor is the won value of one token when pricing a listing.
const DefaultTokenPriceDivisor int64 = 500000

// DeriveTokenPrice converts a won price into a token price: price/divisor
// rounded half away from zero, never below one token.
func DeriveTokenPrice(price, divisor int64) int64 {
	if divisor <= 0 {
		divisor = DefaultTokenPriceDivisor
	}
	tokens := decimal.NewFromInt(price).Div(decimal.NewFromInt(divisor)).Round(0).IntPart()
	if tokens < 1 {
		return 1
	}
	return tokens
}
