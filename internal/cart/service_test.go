package cart

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/geonmarket-backend/internal/localstore"
	"github.com/angelmondragon/geonmarket-backend/pkg/db/models"
	"github.com/angelmondragon/geonmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/geonmarket-backend/pkg/errors"
	"github.com/angelmondragon/geonmarket-backend/pkg/tosspayments"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (Service, *localstore.Memory) {
	t.Helper()
	store := localstore.NewMemory()
	svc, err := NewService(store, tosspayments.Redirects{
		ClientKey:  "test_ck",
		SuccessURL: "http://localhost:5173/my-page",
		FailURL:    "http://localhost:5173/my-page",
	}, func() time.Time { return fixedNow })
	require.NoError(t, err)
	return svc, store
}

func TestAddMergesQuantities(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.Add(ctx, user, Item{ID: "a", Title: "철근", Price: 1000})
	require.NoError(t, err)
	items, err := svc.Add(ctx, user, Item{ID: "a", Title: "철근", Price: 1000, Quantity: qty(2)})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(3), items[0].Qty())

	items, err = svc.Remove(ctx, user, "a")
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = svc.Add(ctx, user, Item{ID: " "})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestCheckoutStagesPendingOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.Add(ctx, user, Item{ID: "a", Title: "철근", Price: 1000, Quantity: qty(2)})
	require.NoError(t, err)
	_, err = svc.Add(ctx, user, Item{ID: "b", Title: "합판", Price: 500})
	require.NoError(t, err)

	result, err := svc.Checkout(ctx, user, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), result.Payment.Amount)
	assert.Equal(t, "구매자", result.Payment.CustomerName)

	success, err := url.Parse(result.Payment.SuccessURL)
	require.NoError(t, err)
	assert.Equal(t, "success", success.Query().Get("payment"))
	assert.Equal(t, result.Order.OrderID, success.Query().Get("orderId"))

	peeked, err := svc.PendingOrder(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, peeked)
	assert.Equal(t, result.Order.OrderID, peeked.OrderID)

	pending, err := svc.ConsumePendingOrder(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, result.Order.OrderID, pending.OrderID)
	assert.Equal(t, enums.PaymentMethodToss, pending.PaymentMethod)
	require.Len(t, pending.Items, 2)

	again, err := svc.ConsumePendingOrder(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestDiscardPendingOrderAfterPeek(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.Add(ctx, user, Item{ID: "a", Title: "철근", Price: 1000})
	require.NoError(t, err)
	_, err = svc.Checkout(ctx, user, "")
	require.NoError(t, err)

	for range 2 {
		pending, err := svc.PendingOrder(ctx, user)
		require.NoError(t, err)
		require.NotNil(t, pending, "peeking must leave the order staged")
	}

	require.NoError(t, svc.DiscardPendingOrder(ctx, user))
	pending, err := svc.PendingOrder(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, pending)
	require.NoError(t, svc.DiscardPendingOrder(ctx, user))
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.Checkout(ctx, user, "홍길동")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	var staged PendingOrder
	found, err := store.Get(ctx, user.String(), localstore.KeyPendingOrder, &staged)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBuyNowUsesListingOrderID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	listing := &models.Listing{ID: uuid.New(), Title: "H빔 철골", Price: 1_500_000, Status: enums.ListingStatusAvailable}

	result, err := svc.BuyNow(ctx, uuid.New(), listing, "홍길동")
	require.NoError(t, err)
	assert.Equal(t, "listing-"+listing.ID.String()+"-1772620200000", result.Order.OrderID)
	require.NotNil(t, result.Order.ListingID)
	assert.Equal(t, listing.ID, *result.Order.ListingID)
	assert.True(t, strings.Contains(result.Payment.SuccessURL, "amount=1500000"))

	listing.Status = enums.ListingStatusSold
	_, err = svc.BuyNow(ctx, uuid.New(), listing, "")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
}
