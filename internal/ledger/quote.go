package ledger

import (
	"github.com/angelmondragon/geonmarket-backend/pkg/config"
	"github.com/shopspring/decimal"
)

// Quote is the current token price with its recent movement.
type Quote struct {
	Symbol        string  `json:"symbol"`
	UnitPrice     int64   `json:"unitPrice"`
	History       []int64 `json:"history"`
	Change        int64   `json:"change"`
	ChangePercent string  `json:"changePercent"`
}

// NewQuote derives the change against the previous history point. The
// configured unit price is the latest point when the history does not end on it.
func NewQuote(market config.TokenMarketConfig) Quote {
	history := append([]int64(nil), market.PriceHistory...)
	if n := len(history); n == 0 || history[n-1] != market.UnitPrice {
		history = append(history, market.UnitPrice)
	}

	q := Quote{
		Symbol:        market.Symbol,
		UnitPrice:     market.UnitPrice,
		History:       history,
		ChangePercent: "0.00",
	}
	if len(history) < 2 {
		return q
	}

	last := decimal.NewFromInt(history[len(history)-1])
	prev := decimal.NewFromInt(history[len(history)-2])
	change := last.Sub(prev)
	q.Change = change.IntPart()
	if !prev.IsZero() {
		q.ChangePercent = change.Div(prev).Mul(decimal.NewFromInt(100)).StringFixed(2)
	}
	return q
}
