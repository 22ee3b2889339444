package listings

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/geonmarket-backend/api/middleware"
	"github.com/angelmondragon/geonmarket-backend/api/responses"
	"github.com/angelmondragon/geonmarket-backend/api/validators"
	"github.com/angelmondragon/geonmarket-backend/internal/cart"
	"github.com/angelmondragon/geonmarket-backend/internal/ledger"
	listingsvc "github.com/angelmondragon/geonmarket-backend/internal/listings"
	"github.com/angelmondragon/geonmarket-backend/internal/ranking"
	"github.com/angelmondragon/geonmarket-backend/pkg/logger"
)

const (
	defaultPopularLimit = 8
	maxPopularLimit     = 50
)

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type buyNowRequest struct {
	CustomerName string `json:"customerName"`
}

type purchaseRequest struct {
	Amount int64 `json:"amount" validate:"min=0"`
}

// ListingSearch returns the catalog narrowed by category, type and query.
func ListingSearch(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		criteria := listingsvc.Criteria{
			Category:        q.Get("category"),
			TransactionType: q.Get("type"),
			Query:           q.Get("q"),
		}
		rows, err := svc.Search(r.Context(), criteria)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// ListingPopular returns the most liked listings.
func ListingPopular(svc ranking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", defaultPopularLimit, 1, maxPopularLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ranked, err := svc.Popular(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ranked)
	}
}

func ListingGet(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := listingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func ListingCreate(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body listingsvc.CreateInput
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.Create(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, listing)
	}
}

func ListingUpdate(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, id, err := actorAndListing(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body listingsvc.UpdateInput
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.Update(r.Context(), userID, id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

func ListingUpdateStatus(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, id, err := actorAndListing(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body statusRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.UpdateStatus(r.Context(), userID, id, strings.TrimSpace(body.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

func ListingDelete(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, id, err := actorAndListing(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), userID, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// ListingToggleLike flips the caller's like on a listing.
func ListingToggleLike(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, id, err := actorAndListing(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ToggleLike(r.Context(), userID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListingBuyNow stages a single-listing order and returns the gateway parameters.
func ListingBuyNow(svc listingsvc.Service, carts cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, id, err := actorAndListing(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body buyNowRequest
		if err := validators.DecodeOptionalJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.Find(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := carts.BuyNow(r.Context(), userID, listing, body.CustomerName)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListingPurchase records a settled listing payment outside the gateway
// redirect flow. A zero amount charges the listing price.
func ListingPurchase(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, id, err := actorAndListing(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body purchaseRequest
		if err := validators.DecodeOptionalJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RecordListingPayment(r.Context(), userID, id, body.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func listingID(r *http.Request) (uuid.UUID, error) {
	return validators.ParseUUIDParam(r, "id", "listing")
}

func actorAndListing(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := listingID(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userID, id, nil
}
