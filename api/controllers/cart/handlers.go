package cart

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/geonmarket-backend/api/middleware"
	"github.com/angelmondragon/geonmarket-backend/api/responses"
	"github.com/angelmondragon/geonmarket-backend/api/validators"
	cartsvc "github.com/angelmondragon/geonmarket-backend/internal/cart"
	"github.com/angelmondragon/geonmarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/geonmarket-backend/pkg/errors"
	"github.com/angelmondragon/geonmarket-backend/pkg/logger"
)

type listingFinder interface {
	Find(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

// AddItemRequest adds a listing to the cart. Title and price come from the
// catalog, never from the client.
type AddItemRequest struct {
	ListingID uuid.UUID `json:"listingId" validate:"required"`
	Quantity  *int64    `json:"quantity,omitempty" validate:"omitempty,min=1"`
}

type CheckoutRequest struct {
	CustomerName string `json:"customerName"`
}

// CartView is the cart with its computed total.
type CartView struct {
	Items []cartsvc.Item `json:"items"`
	Total int64          `json:"total"`
}

func newCartView(items []cartsvc.Item) CartView {
	if items == nil {
		items = []cartsvc.Item{}
	}
	return CartView{Items: items, Total: cartsvc.Total(items)}
}

func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(items))
	}
}

// CartAdd puts a listing in the cart, merging quantities for repeated adds.
func CartAdd(svc cartsvc.Service, listings listingFinder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body AddItemRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := listings.Find(r.Context(), body.ListingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.Add(r.Context(), userID, cartsvc.Item{
			ID:       listing.ID.String(),
			Title:    listing.Title,
			Price:    listing.Price,
			Quantity: body.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(items))
	}
}

func CartRemove(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID := strings.TrimSpace(chi.URLParam(r, "id"))
		if itemID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item id required"))
			return
		}
		items, err := svc.Remove(r.Context(), userID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(items))
	}
}

func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Clear(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(nil))
	}
}

// CartCheckout stages the cart as the pending order and returns the gateway
// parameters. An empty cart is rejected before anything is staged.
func CartCheckout(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body CheckoutRequest
		if err := validators.DecodeOptionalJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), userID, body.CustomerName)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
