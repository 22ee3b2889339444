package listings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/geonmarket-backend/api/middleware"
	"github.com/angelmondragon/geonmarket-backend/internal/cart"
	"github.com/angelmondragon/geonmarket-backend/internal/ledger"
	listingsvc "github.com/angelmondragon/geonmarket-backend/internal/listings"
	"github.com/angelmondragon/geonmarket-backend/internal/ranking"
	"github.com/angelmondragon/geonmarket-backend/pkg/db/models"
	"github.com/angelmondragon/geonmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/geonmarket-backend/pkg/errors"
	"github.com/angelmondragon/geonmarket-backend/pkg/tosspayments"
)

type stubListingService struct {
	listingsvc.Service
	rows     []models.Listing
	criteria listingsvc.Criteria
}

func (s *stubListingService) Search(ctx context.Context, criteria listingsvc.Criteria) ([]models.Listing, error) {
	s.criteria = criteria
	return s.rows, nil
}

func (s *stubListingService) Find(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	for i := range s.rows {
		if s.rows[i].ID == id {
			return &s.rows[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "매물을 찾을 수 없습니다.")
}

type stubRanking struct {
	limit int
}

func (s *stubRanking) Popular(ctx context.Context, limit int) ([]ranking.Ranked, error) {
	s.limit = limit
	return []ranking.Ranked{}, nil
}

func (s *stubRanking) Counts(ctx context.Context, ids []string) (map[string]ranking.Counts, error) {
	return map[string]ranking.Counts{}, nil
}

type stubCarts struct {
	cart.Service
	listing *models.Listing
	name    string
}

func (s *stubCarts) BuyNow(ctx context.Context, userID uuid.UUID, listing *models.Listing, customerName string) (*cart.CheckoutResult, error) {
	s.listing = listing
	s.name = customerName
	return &cart.CheckoutResult{
		Order:   cart.PendingOrder{OrderID: "listing-1", Amount: listing.Price},
		Payment: &tosspayments.PaymentRequest{Amount: listing.Price, OrderID: "listing-1"},
	}, nil
}

type stubLedger struct {
	ledger.Service
	userID    uuid.UUID
	listingID uuid.UUID
	amount    int64
}

func (s *stubLedger) RecordListingPayment(ctx context.Context, userID, listingID uuid.UUID, amount int64) (*ledger.ReconciliationResult, error) {
	s.userID, s.listingID, s.amount = userID, listingID, amount
	return &ledger.ReconciliationResult{ExternalOrderID: "listing-1", OrderCreated: true, PaymentCreated: true}, nil
}

func withListing(r *http.Request, userID uuid.UUID, id uuid.UUID) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id.String())
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	if userID != uuid.Nil {
		ctx = middleware.WithUserID(ctx, userID.String())
	}
	return r.WithContext(ctx)
}

func TestListingSearchPassesCriteria(t *testing.T) {
	svc := &stubListingService{rows: []models.Listing{{ID: uuid.New(), Title: "H빔"}}}
	resp := httptest.NewRecorder()
	ListingSearch(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/listings?category=steel&type=sale&q=%EB%B9%94", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	want := listingsvc.Criteria{Category: "steel", TransactionType: "sale", Query: "빔"}
	if svc.criteria != want {
		t.Fatalf("expected %+v got %+v", want, svc.criteria)
	}
	var envelope struct {
		Data []models.Listing `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil || len(envelope.Data) != 1 {
		t.Fatalf("unexpected body %s (%v)", resp.Body.String(), err)
	}
}

func TestListingPopularLimit(t *testing.T) {
	cases := []struct {
		name   string
		query  string
		status int
		limit  int
	}{
		{name: "default", query: "", status: http.StatusOK, limit: defaultPopularLimit},
		{name: "explicit", query: "?limit=3", status: http.StatusOK, limit: 3},
		{name: "too large", query: "?limit=500", status: http.StatusBadRequest},
		{name: "not a number", query: "?limit=abc", status: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubRanking{}
			resp := httptest.NewRecorder()
			ListingPopular(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/listings/popular"+tc.query, nil))
			if resp.Code != tc.status {
				t.Fatalf("expected %d got %d", tc.status, resp.Code)
			}
			if tc.status == http.StatusOK && svc.limit != tc.limit {
				t.Fatalf("expected limit %d got %d", tc.limit, svc.limit)
			}
		})
	}
}

func TestListingBuyNowStagesCatalogListing(t *testing.T) {
	listing := models.Listing{ID: uuid.New(), Title: "레미콘", Price: 90000, Status: enums.ListingStatusAvailable}
	svc := &stubListingService{rows: []models.Listing{listing}}
	carts := &stubCarts{}

	req := withListing(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"customerName":"이시공"}`)), uuid.New(), listing.ID)
	resp := httptest.NewRecorder()
	ListingBuyNow(svc, carts, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if carts.listing == nil || carts.listing.ID != listing.ID || carts.name != "이시공" {
		t.Fatalf("expected catalog listing forwarded, got %+v %q", carts.listing, carts.name)
	}
}

func TestListingBuyNowUnknownListing(t *testing.T) {
	svc := &stubListingService{}
	carts := &stubCarts{}
	req := withListing(httptest.NewRequest(http.MethodPost, "/", nil), uuid.New(), uuid.New())
	resp := httptest.NewRecorder()
	ListingBuyNow(svc, carts, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	if carts.listing != nil {
		t.Fatalf("nothing should be staged")
	}
}

func TestListingPurchaseRecordsPayment(t *testing.T) {
	ledgerSvc := &stubLedger{}
	userID := uuid.New()
	listingID := uuid.New()
	req := withListing(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":15000}`)), userID, listingID)
	resp := httptest.NewRecorder()
	ListingPurchase(ledgerSvc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if ledgerSvc.userID != userID || ledgerSvc.listingID != listingID || ledgerSvc.amount != 15000 {
		t.Fatalf("unexpected forward %+v", ledgerSvc)
	}
}

func TestListingPurchaseRequiresLogin(t *testing.T) {
	ledgerSvc := &stubLedger{}
	req := withListing(httptest.NewRequest(http.MethodPost, "/", nil), uuid.Nil, uuid.New())
	resp := httptest.NewRecorder()
	ListingPurchase(ledgerSvc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestListingGetRejectsBadID(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "not-a-uuid")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	resp := httptest.NewRecorder()
	ListingGet(&stubListingService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
