package tokens

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/geonmarket-backend/api/middleware"
	"github.com/angelmondragon/geonmarket-backend/internal/ledger"
	"github.com/angelmondragon/geonmarket-backend/internal/localstore"
	pkgerrors "github.com/angelmondragon/geonmarket-backend/pkg/errors"
)

type stubLedger struct {
	ledger.Service
	buy       *ledger.BuyTokensInput
	sell      *ledger.SellTokensInput
	sellErr   error
	histLimit int
}

func (s *stubLedger) BuyTokens(ctx context.Context, input ledger.BuyTokensInput) (*ledger.BalanceResult, error) {
	s.buy = &input
	return &ledger.BalanceResult{NewTokens: input.Quantity, Quantity: input.Quantity, UnitPrice: 1250}, nil
}

func (s *stubLedger) SellTokens(ctx context.Context, input ledger.SellTokensInput) (*ledger.BalanceResult, error) {
	s.sell = &input
	if s.sellErr != nil {
		return nil, s.sellErr
	}
	return &ledger.BalanceResult{Quantity: input.Quantity}, nil
}

func (s *stubLedger) Histories(ctx context.Context, userID uuid.UUID, limit int) (*ledger.History, error) {
	s.histLimit = limit
	return &ledger.History{}, nil
}

func (s *stubLedger) Quote() ledger.Quote {
	return ledger.Quote{Symbol: "GMT", UnitPrice: 1250}
}

func authed(r *http.Request, userID uuid.UUID) *http.Request {
	return r.WithContext(middleware.WithUserID(r.Context(), userID.String()))
}

func TestTokenBuyForwardsTrade(t *testing.T) {
	svc := &stubLedger{}
	userID := uuid.New()
	accountID := uuid.New()
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/tokens/buy",
		strings.NewReader(`{"quantity":3,"unitPrice":1250,"accountId":"`+accountID.String()+`"}`)), userID)
	resp := httptest.NewRecorder()
	TokenBuy(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.buy == nil || svc.buy.UserID != userID || svc.buy.Quantity != 3 || svc.buy.UnitPrice != 1250 {
		t.Fatalf("unexpected input %+v", svc.buy)
	}
	if svc.buy.AccountID == nil || *svc.buy.AccountID != accountID {
		t.Fatalf("expected account id forwarded")
	}
}

func TestTokenBuyRejectsZeroQuantity(t *testing.T) {
	svc := &stubLedger{}
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/tokens/buy", strings.NewReader(`{"quantity":0}`)), uuid.New())
	resp := httptest.NewRecorder()
	TokenBuy(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.buy != nil {
		t.Fatalf("service must not be called")
	}
}

func TestTokenTradesRejectOversizedQuantity(t *testing.T) {
	svc := &stubLedger{}
	for _, path := range []string{"/api/v1/tokens/buy", "/api/v1/tokens/sell"} {
		req := authed(httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"quantity":7378697629483821}`)), uuid.New())
		resp := httptest.NewRecorder()
		if strings.HasSuffix(path, "buy") {
			TokenBuy(svc, nil).ServeHTTP(resp, req)
		} else {
			TokenSell(svc, nil).ServeHTTP(resp, req)
		}
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", path, resp.Code)
		}
	}
	if svc.buy != nil || svc.sell != nil {
		t.Fatalf("service must not be called")
	}
}

func TestTokenBuyRequiresLogin(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tokens/buy", strings.NewReader(`{"quantity":1}`))
	resp := httptest.NewRecorder()
	TokenBuy(&stubLedger{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestTokenSellRejectsAccount(t *testing.T) {
	svc := &stubLedger{}
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/tokens/sell",
		strings.NewReader(`{"quantity":1,"accountId":"`+uuid.NewString()+`"}`)), uuid.New())
	resp := httptest.NewRecorder()
	TokenSell(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.sell != nil {
		t.Fatalf("service must not be called")
	}
}

func TestTokenSellInsufficientTokens(t *testing.T) {
	svc := &stubLedger{sellErr: pkgerrors.New(pkgerrors.CodeInsufficientBalance, "보유 토큰이 부족합니다.")}
	req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/tokens/sell", strings.NewReader(`{"quantity":5}`)), uuid.New())
	resp := httptest.NewRecorder()
	TokenSell(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Message != "보유 토큰이 부족합니다." {
		t.Fatalf("expected domain message, got %q", body.Error.Message)
	}
}

func TestTokenQuote(t *testing.T) {
	resp := httptest.NewRecorder()
	TokenQuote(&stubLedger{}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/tokens/quote", nil))
	var body struct {
		Data ledger.Quote `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.UnitPrice != 1250 {
		t.Fatalf("unexpected quote %+v", body.Data)
	}
}

func TestLedgerHistoryLimit(t *testing.T) {
	svc := &stubLedger{}
	userID := uuid.New()

	resp := httptest.NewRecorder()
	LedgerHistory(svc, nil).ServeHTTP(resp, authed(httptest.NewRequest(http.MethodGet, "/api/v1/ledger/history", nil), userID))
	if resp.Code != http.StatusOK || svc.histLimit != ledger.DefaultHistoryLimit {
		t.Fatalf("expected default limit, got code=%d limit=%d", resp.Code, svc.histLimit)
	}

	resp = httptest.NewRecorder()
	LedgerHistory(svc, nil).ServeHTTP(resp, authed(httptest.NewRequest(http.MethodGet, "/api/v1/ledger/history?limit=5", nil), userID))
	if svc.histLimit != 5 {
		t.Fatalf("expected limit 5, got %d", svc.histLimit)
	}

	resp = httptest.NewRecorder()
	LedgerHistory(svc, nil).ServeHTTP(resp, authed(httptest.NewRequest(http.MethodGet, "/api/v1/ledger/history?limit=100000", nil), userID))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized limit, got %d", resp.Code)
	}
}

func TestTokenTradeHistoryEmpty(t *testing.T) {
	resp := httptest.NewRecorder()
	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/tokens/history", nil), uuid.New())
	TokenTradeHistory(localstore.NewMemory(), nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"data":[]`) {
		t.Fatalf("expected empty list, got %s", resp.Body.String())
	}
}
