package payments

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/geonmarket-backend/api/middleware"
	"github.com/angelmondragon/geonmarket-backend/api/responses"
	"github.com/angelmondragon/geonmarket-backend/api/validators"
	"github.com/angelmondragon/geonmarket-backend/internal/cart"
	"github.com/angelmondragon/geonmarket-backend/internal/ledger"
	pkgerrors "github.com/angelmondragon/geonmarket-backend/pkg/errors"
	"github.com/angelmondragon/geonmarket-backend/pkg/logger"
)

const (
	paymentSuccess = "success"
	paymentFail    = "fail"
)

type pendingOrders interface {
	PendingOrder(ctx context.Context, userID uuid.UUID) (*cart.PendingOrder, error)
	DiscardPendingOrder(ctx context.Context, userID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type reconciler interface {
	ReconcilePaymentReturn(ctx context.Context, input ledger.ReconcileInput) (*ledger.ReconciliationResult, error)
}

// ReturnRequest mirrors the query the gateway appends to the success or fail URL.
type ReturnRequest struct {
	Payment   string `json:"payment"`
	OrderID   string `json:"orderId"`
	Amount    string `json:"amount"`
	OrderName string `json:"orderName"`
}

// ReturnResult reports the outcome of a gateway return.
type ReturnResult struct {
	Status         string                       `json:"status"`
	Reconciliation *ledger.ReconciliationResult `json:"reconciliation,omitempty"`
}

// Return records the order and payment for a successful gateway return. The
// staged pending order, when it matches the returned order id, supplies the
// items and listing; otherwise the query values are used. The staged order is
// discarded only once the ledger has recorded the matching return, so a failed
// attempt can be retried with the same items. Repeated returns for the same order id
// are reported without new writes.
func Return(orders pendingOrders, svc reconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		req, err := readReturn(w, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		switch req.Payment {
		case paymentFail:
			responses.WriteSuccess(w, ReturnResult{Status: paymentFail})
			return
		case paymentSuccess:
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment must be success or fail"))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, req.OrderID)
		}

		pending, err := orders.PendingOrder(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if pending != nil && pending.OrderID != req.OrderID {
			if logg != nil {
				logg.Warn(logg.WithFields(ctx, map[string]any{"pending_order_id": pending.OrderID}), "pending order does not match return")
			}
			pending = nil
		}

		input := ledger.ReconcileInput{
			UserID:          userID,
			ExternalOrderID: req.OrderID,
			OrderName:       req.OrderName,
		}
		if amount, err := strconv.ParseInt(strings.TrimSpace(req.Amount), 10, 64); err == nil {
			input.Amount = amount
		}
		if pending != nil {
			if pending.OrderName != "" {
				input.OrderName = pending.OrderName
			}
			if pending.Amount > 0 {
				input.Amount = pending.Amount
			}
			input.ListingID = pending.ListingID
			input.Items = pending.Items
			input.PaymentMethod = pending.PaymentMethod
		}

		result, err := svc.ReconcilePaymentReturn(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if pending != nil {
			if err := orders.DiscardPendingOrder(ctx, userID); err != nil && logg != nil {
				logg.Warn(ctx, "discard pending order failed")
			}
		}
		if pending != nil && pending.ListingID == nil && result.OrderCreated {
			if err := orders.Clear(ctx, userID); err != nil && logg != nil {
				logg.Warn(ctx, "clear cart after checkout failed")
			}
		}
		responses.WriteSuccess(w, ReturnResult{Status: paymentSuccess, Reconciliation: result})
	}
}

func readReturn(w http.ResponseWriter, r *http.Request) (ReturnRequest, error) {
	q := r.URL.Query()
	req := ReturnRequest{
		Payment:   q.Get("payment"),
		OrderID:   q.Get("orderId"),
		Amount:    q.Get("amount"),
		OrderName: q.Get("orderName"),
	}
	if req.Payment == "" {
		if err := validators.DecodeOptionalJSONBody(w, r, &req); err != nil {
			return ReturnRequest{}, err
		}
	}
	req.Payment = strings.ToLower(strings.TrimSpace(req.Payment))
	req.OrderID = strings.TrimSpace(req.OrderID)
	return req, nil
}
