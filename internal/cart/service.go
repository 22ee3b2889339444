package cart

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/angelmondragon/geonmarket-backend/internal/ledger"
	"github.com/angelmondragon/geonmarket-backend/internal/localstore"
	"github.com/angelmondragon/geonmarket-backend/pkg/db/models"
	"github.com/angelmondragon/geonmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/geonmarket-backend/pkg/errors"
	"github.com/angelmondragon/geonmarket-backend/pkg/tosspayments"
	"github.com/google/uuid"
)

// PendingOrder is staged before the gateway redirect and consumed on return.
type PendingOrder struct {
	OrderID       string              `json:"orderId"`
	OrderName     string              `json:"orderName"`
	Amount        int64               `json:"amount"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	ListingID     *uuid.UUID          `json:"listingId,omitempty"`
	Items         []models.OrderItem  `json:"items"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// CheckoutResult carries the staged order and the gateway redirect parameters.
type CheckoutResult struct {
	Order   PendingOrder                 `json:"order"`
	Payment *tosspayments.PaymentRequest `json:"payment"`
}

// Service manages the device cart and checkout staging.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) ([]Item, error)
	Add(ctx context.Context, userID uuid.UUID, item Item) ([]Item, error)
	Remove(ctx context.Context, userID uuid.UUID, itemID string) ([]Item, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	Checkout(ctx context.Context, userID uuid.UUID, customerName string) (*CheckoutResult, error)
	BuyNow(ctx context.Context, userID uuid.UUID, listing *models.Listing, customerName string) (*CheckoutResult, error)
	PendingOrder(ctx context.Context, userID uuid.UUID) (*PendingOrder, error)
	DiscardPendingOrder(ctx context.Context, userID uuid.UUID) error
	ConsumePendingOrder(ctx context.Context, userID uuid.UUID) (*PendingOrder, error)
}

type service struct {
	store     localstore.Store
	redirects tosspayments.Redirects
	now       func() time.Time
}

func NewService(store localstore.Store, redirects tosspayments.Redirects, now func() time.Time) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("local store required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{store: store, redirects: redirects, now: now}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	items, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Normalize(items), nil
}

// Add puts item in the cart, adding to the quantity of an existing line with the same id.
func (s *service) Add(ctx context.Context, userID uuid.UUID, item Item) ([]Item, error) {
	item.ID = strings.TrimSpace(item.ID)
	if item.ID == "" || item.Price < 0 || item.Qty() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cart item")
	}
	items, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	items = Normalize(items)

	if idx := slices.IndexFunc(items, func(existing Item) bool { return existing.ID == item.ID }); idx >= 0 {
		qty := items[idx].Qty() + item.Qty()
		items[idx].Quantity = &qty
	} else {
		qty := item.Qty()
		item.Quantity = &qty
		items = append(items, item)
	}
	if err := s.save(ctx, userID, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *service) Remove(ctx context.Context, userID uuid.UUID, itemID string) ([]Item, error) {
	items, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	items = slices.DeleteFunc(Normalize(items), func(item Item) bool { return item.ID == itemID })
	if err := s.save(ctx, userID, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.Delete(ctx, userID.String(), localstore.KeyCartItems); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// Checkout stages the whole cart as the pending order. Empty or zero-value
// carts are rejected before any gateway parameters are produced.
func (s *service) Checkout(ctx context.Context, userID uuid.UUID, customerName string) (*CheckoutResult, error) {
	items, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	payload, err := BuildCheckoutPayload(items, OrderPrefix, s.now())
	if err != nil {
		return nil, err
	}
	return s.stage(ctx, userID, PendingOrder{
		OrderID:   payload.OrderID,
		OrderName: payload.OrderName,
		Amount:    payload.Amount,
		Items:     payload.Items,
	}, customerName)
}

// BuyNow stages a single-listing purchase at the listing price.
func (s *service) BuyNow(ctx context.Context, userID uuid.UUID, listing *models.Listing, customerName string) (*CheckoutResult, error) {
	if listing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "매물을 찾을 수 없습니다.")
	}
	if listing.Status == enums.ListingStatusSold {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "이미 판매완료된 매물입니다.")
	}
	if listing.Price <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "결제 금액이 올바르지 않습니다.")
	}
	id := listing.ID
	return s.stage(ctx, userID, PendingOrder{
		OrderID:   ledger.ListingOrderID(listing.ID, s.now()),
		OrderName: listing.Title,
		Amount:    listing.Price,
		ListingID: &id,
		Items: []models.OrderItem{{
			ID:       listing.ID.String(),
			Title:    listing.Title,
			Price:    listing.Price,
			Quantity: 1,
		}},
	}, customerName)
}

// PendingOrder returns the staged order without removing it, or nil when
// nothing is staged.
func (s *service) PendingOrder(ctx context.Context, userID uuid.UUID) (*PendingOrder, error) {
	var pending PendingOrder
	found, err := s.store.Get(ctx, userID.String(), localstore.KeyPendingOrder, &pending)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending order")
	}
	if !found {
		return nil, nil
	}
	return &pending, nil
}

func (s *service) DiscardPendingOrder(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.Delete(ctx, userID.String(), localstore.KeyPendingOrder); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "discard pending order")
	}
	return nil
}

// ConsumePendingOrder returns the staged order and removes it. It returns nil
// when nothing is staged.
func (s *service) ConsumePendingOrder(ctx context.Context, userID uuid.UUID) (*PendingOrder, error) {
	pending, err := s.PendingOrder(ctx, userID)
	if err != nil || pending == nil {
		return pending, err
	}
	if err := s.DiscardPendingOrder(ctx, userID); err != nil {
		return nil, err
	}
	return pending, nil
}

func (s *service) stage(ctx context.Context, userID uuid.UUID, order PendingOrder, customerName string) (*CheckoutResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "로그인이 필요합니다")
	}
	order.PaymentMethod = enums.PaymentMethodToss
	order.CreatedAt = s.now().UTC()

	request, err := tosspayments.BuildPaymentRequest(s.redirects, order.Amount, order.OrderName, order.OrderID, customerName)
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, userID.String(), localstore.KeyPendingOrder, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stage pending order")
	}
	return &CheckoutResult{Order: order, Payment: request}, nil
}

func (s *service) load(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "로그인이 필요합니다")
	}
	var items []Item
	if _, err := s.store.Get(ctx, userID.String(), localstore.KeyCartItems, &items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return items, nil
}

func (s *service) save(ctx context.Context, userID uuid.UUID, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	if err := s.store.Put(ctx, userID.String(), localstore.KeyCartItems, items); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return nil
}
