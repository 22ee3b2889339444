package cart

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/geonmarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/geonmarket-backend/pkg/errors"
	"github.com/google/uuid"
)

// OrderPrefix starts every cart checkout order id.
const OrderPrefix = "cart"

// Item is one cart line. A nil Quantity counts as one.
type Item struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Price    int64  `json:"price"`
	Quantity *int64 `json:"quantity,omitempty"`
}

// Qty returns the effective quantity.
func (i Item) Qty() int64 {
	if i.Quantity == nil {
		return 1
	}
	return *i.Quantity
}

// CheckoutPayload is the order handed to the payment gateway.
type CheckoutPayload struct {
	OrderID   string             `json:"orderId"`
	OrderName string             `json:"orderName"`
	Amount    int64              `json:"amount"`
	Items     []models.OrderItem `json:"items"`
}

// Normalize returns a copy of items with every quantity set.
func Normalize(items []Item) []Item {
	out := make([]Item, len(items))
	for i, item := range items {
		qty := item.Qty()
		item.Quantity = &qty
		out[i] = item
	}
	return out
}

// Total sums price times quantity.
func Total(items []Item) int64 {
	var total int64
	for _, item := range items {
		total += item.Price * item.Qty()
	}
	return total
}

// BuildCheckoutPayload assembles a payload with a fresh order id. Carts that
// total zero or less are rejected.
func BuildCheckoutPayload(items []Item, prefix string, now time.Time) (*CheckoutPayload, error) {
	normalized := Normalize(items)
	amount := Total(normalized)
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "결제할 상품이 없습니다.").
			WithDetails(map[string]any{"amount": amount, "items": len(items)})
	}
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		prefix = OrderPrefix
	}

	lines := make([]models.OrderItem, 0, len(normalized))
	for _, item := range normalized {
		lines = append(lines, models.OrderItem{
			ID:       item.ID,
			Title:    item.Title,
			Price:    item.Price,
			Quantity: item.Qty(),
		})
	}
	return &CheckoutPayload{
		OrderID:   fmt.Sprintf("%s-%d-%s", prefix, now.UnixNano(), shortID()),
		OrderName: fmt.Sprintf("장바구니 결제 (%d건)", len(normalized)),
		Amount:    amount,
		Items:     lines,
	}, nil
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
