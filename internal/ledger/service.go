package ledger

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/angelmondragon/geonmarket-backend/pkg/config"
	"github.com/angelmondragon/geonmarket-backend/pkg/db"
	"github.com/angelmondragon/geonmarket-backend/pkg/db/models"
	"github.com/angelmondragon/geonmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/geonmarket-backend/pkg/errors"
	"github.com/angelmondragon/geonmarket-backend/pkg/logger"
	"github.com/angelmondragon/geonmarket-backend/pkg/metrics"
	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"
)

// MaxTradeQuantity caps a single token buy or sell.
const MaxTradeQuantity int64 = 1_000_000

const (
	DefaultHistoryLimit = 50
	defaultOrderName    = "결제"

	opBuy       = "buy"
	opSell      = "sell"
	opReconcile = "reconcile"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type accountResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID, accountID *uuid.UUID) (*models.UserAccount, error)
}

// TradeRecorder keeps the per-device trade log shown next to the order book.
type TradeRecorder interface {
	RecordTrade(ctx context.Context, userID uuid.UUID, trade Trade) error
}

// Service moves tokens and cash and reconciles gateway returns.
type Service interface {
	BuyTokens(ctx context.Context, input BuyTokensInput) (*BalanceResult, error)
	SellTokens(ctx context.Context, input SellTokensInput) (*BalanceResult, error)
	ReconcilePaymentReturn(ctx context.Context, input ReconcileInput) (*ReconciliationResult, error)
	RecordListingPayment(ctx context.Context, userID, listingID uuid.UUID, amount int64) (*ReconciliationResult, error)
	Histories(ctx context.Context, userID uuid.UUID, limit int) (*History, error)
	VerifyTokenCache(ctx context.Context, userID uuid.UUID) (*CacheCheck, error)
	Quote() Quote
}

// BuyTokensInput buys Quantity tokens at UnitPrice. A zero UnitPrice uses the
// current market price; a different non-zero price is rejected as stale.
type BuyTokensInput struct {
	UserID    uuid.UUID
	Quantity  int64
	UnitPrice int64
	AccountID *uuid.UUID
}

type SellTokensInput struct {
	UserID    uuid.UUID
	Quantity  int64
	UnitPrice int64
}

type BalanceResult struct {
	NewTokens  int64 `json:"tokens"`
	NewBalance int64 `json:"balance"`
	Quantity   int64 `json:"quantity"`
	UnitPrice  int64 `json:"unitPrice"`
	Amount     int64 `json:"amount"`
}

// ReconcileInput describes a successful gateway return.
type ReconcileInput struct {
	UserID          uuid.UUID
	ExternalOrderID string
	OrderName       string
	Amount          int64
	ListingID       *uuid.UUID
	Items           []models.OrderItem
	PaymentMethod   enums.PaymentMethod
}

type ReconciliationResult struct {
	Order           *models.Order   `json:"order"`
	Payment         *models.Payment `json:"payment"`
	ExternalOrderID string          `json:"orderId"`
	OrderCreated    bool            `json:"orderCreated"`
	PaymentCreated  bool            `json:"paymentCreated"`
}

// Duplicate reports whether the return had already been reconciled.
func (r *ReconciliationResult) Duplicate() bool {
	return r != nil && !r.OrderCreated && !r.PaymentCreated
}

type History struct {
	Orders            []models.Order            `json:"orders"`
	Payments          []models.Payment          `json:"payments"`
	TokenTransactions []models.TokenTransaction `json:"tokenTransactions"`
}

// CacheCheck compares the cached token count with a replay of the token log.
type CacheCheck struct {
	CachedTokens   int64 `json:"cachedTokens"`
	ReplayedTokens int64 `json:"replayedTokens"`
	Consistent     bool  `json:"consistent"`
}

// Trade is one entry of the device trade log.
type Trade struct {
	ID     int64  `json:"id"`
	Type   string `json:"type"`
	Amount int64  `json:"amount"`
	Price  int64  `json:"price"`
	Date   string `json:"date"`
}

type ServiceParams struct {
	Tx       txRunner
	Repo     Repository
	Accounts accountResolver
	Trades   TradeRecorder
	Market   config.TokenMarketConfig
	Metrics  *metrics.LedgerMetrics
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	tx       txRunner
	repo     Repository
	accounts accountResolver
	trades   TradeRecorder
	market   config.TokenMarketConfig
	metrics  *metrics.LedgerMetrics
	logg     *logger.Logger
	now      func() time.Time
	printer  *message.Printer
}

// NewService wires the ledger service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("account resolver required")
	}
	if params.Market.UnitPrice <= 0 {
		return nil, fmt.Errorf("token unit price must be positive")
	}
	if params.Market.Symbol == "" {
		params.Market.Symbol = "GMT"
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:       params.Tx,
		repo:     params.Repo,
		accounts: params.Accounts,
		trades:   params.Trades,
		market:   params.Market,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      now,
		printer:  message.NewPrinter(language.Korean),
	}, nil
}

func (s *service) BuyTokens(ctx context.Context, input BuyTokensInput) (result *BalanceResult, err error) {
	start := s.now()
	defer func() { s.observe(opBuy, start, err) }()

	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	price, err := s.tradePrice(input.UnitPrice)
	if err != nil {
		return nil, err
	}
	cost, err := tradeValue(input.Quantity, price)
	if err != nil {
		return nil, err
	}
	if _, err := s.accounts.Resolve(ctx, input.UserID, input.AccountID); err != nil {
		return nil, err
	}

	description := s.describe(input.Quantity, "구매")

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		payment := &models.Payment{
			UserID:        input.UserID,
			Amount:        cost,
			PaymentMethod: enums.PaymentMethodBankTransfer,
			Status:        enums.PaymentStatusCompleted,
			Description:   description,
		}
		if err := repo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePayment, err, "payment could not be recorded")
		}
		if err := repo.AppendTokenTransaction(ctx, &models.TokenTransaction{
			UserID:          input.UserID,
			Amount:          input.Quantity,
			TransactionType: enums.TokenTransactionTypePurchase,
			Description:     description,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append token transaction")
		}
		ok, err := repo.CreditTokens(ctx, input.UserID, input.Quantity, cost)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "credit tokens")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}

		profile, err := repo.FindProfile(ctx, input.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload profile")
		}
		result = &BalanceResult{
			NewTokens:  profile.Tokens,
			NewBalance: profile.Balance,
			Quantity:   input.Quantity,
			UnitPrice:  price,
			Amount:     cost,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordTrade(ctx, input.UserID, "매수", input.Quantity, price)
	return result, nil
}

func (s *service) SellTokens(ctx context.Context, input SellTokensInput) (result *BalanceResult, err error) {
	start := s.now()
	defer func() { s.observe(opSell, start, err) }()

	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	price, err := s.tradePrice(input.UnitPrice)
	if err != nil {
		return nil, err
	}

	proceeds, err := tradeValue(input.Quantity, price)
	if err != nil {
		return nil, err
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ok, err := repo.DebitTokens(ctx, input.UserID, input.Quantity, proceeds)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "debit tokens")
		}
		if !ok {
			profile, err := repo.FindProfile(ctx, input.UserID)
			if err != nil {
				if db.IsNotFound(err) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load profile")
			}
			return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "보유 토큰이 부족합니다.").
				WithDetails(map[string]int64{"available": profile.Tokens, "requested": input.Quantity})
		}

		if err := repo.AppendTokenTransaction(ctx, &models.TokenTransaction{
			UserID:          input.UserID,
			Amount:          input.Quantity,
			TransactionType: enums.TokenTransactionTypeSell,
			Description:     s.describe(input.Quantity, "판매"),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append token transaction")
		}

		profile, err := repo.FindProfile(ctx, input.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload profile")
		}
		result = &BalanceResult{
			NewTokens:  profile.Tokens,
			NewBalance: profile.Balance,
			Quantity:   input.Quantity,
			UnitPrice:  price,
			Amount:     proceeds,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordTrade(ctx, input.UserID, "매도", input.Quantity, price)
	return result, nil
}

func (s *service) ReconcilePaymentReturn(ctx context.Context, input ReconcileInput) (*ReconciliationResult, error) {
	start := s.now()
	orderID := strings.TrimSpace(input.ExternalOrderID)
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id required")
	}
	if orderID == "" || input.Amount <= 0 {
		s.metrics.IncReconciliation(metrics.OutcomeInvalid)
		return nil, pkgerrors.New(pkgerrors.CodeReconciliation, "orderId and a positive amount are required").
			WithDetails(map[string]any{"orderId": orderID, "amount": input.Amount})
	}

	orderName := strings.TrimSpace(input.OrderName)
	if orderName == "" {
		orderName = defaultOrderName
	}
	method := input.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodToss
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	result := &ReconciliationResult{ExternalOrderID: orderID}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order := &models.Order{
			OrderID:       orderID,
			UserID:        input.UserID,
			Amount:        input.Amount,
			OrderName:     orderName,
			PaymentMethod: method,
			Status:        enums.OrderStatusCompleted,
			ListingID:     input.ListingID,
			Items:         input.Items,
		}
		created, err := repo.CreateOrderIfAbsent(ctx, order)
		if err != nil {
			return err
		}
		if !created && order.UserID != input.UserID {
			return errForeignOrder(orderID)
		}
		result.Order, result.OrderCreated = order, created

		txnID := orderID
		payment := &models.Payment{
			UserID:        input.UserID,
			Amount:        input.Amount,
			PaymentMethod: method,
			Status:        enums.PaymentStatusCompleted,
			TransactionID: &txnID,
			Description:   orderName,
		}
		created, err = repo.CreatePaymentIfAbsent(ctx, payment)
		if err != nil {
			return err
		}
		if !created && payment.UserID != input.UserID {
			return errForeignOrder(orderID)
		}
		result.Payment, result.PaymentCreated = payment, created

		if result.OrderCreated && input.ListingID != nil {
			if err := repo.MarkListingSold(ctx, *input.ListingID); err != nil {
				return err
			}
		}
		return nil
	})

	switch {
	case err == nil:
	case db.IsUniqueViolation(err, ""):
		// A concurrent return for the same order won the insert.
		return s.loadReconciled(ctx, input.UserID, orderID, start)
	case pkgerrors.Is(err, pkgerrors.CodeConflict):
		s.metrics.IncReconciliation(metrics.OutcomeInvalid)
		s.metrics.ObserveOperation(opReconcile, metrics.OutcomeRejected, s.now().Sub(start))
		if s.logg != nil {
			s.logg.Warn(s.logg.WithOrderID(ctx, orderID), "payment return names another user's order")
		}
		return nil, err
	default:
		s.metrics.IncReconciliation(metrics.OutcomeError)
		s.metrics.ObserveOperation(opReconcile, metrics.OutcomeError, s.now().Sub(start))
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reconcile payment return")
	}

	outcome := metrics.OutcomeCreated
	if result.Duplicate() {
		outcome = metrics.OutcomeDuplicate
		if s.logg != nil {
			s.logg.Info(s.logg.WithOrderID(ctx, orderID), "payment return already reconciled")
		}
	}
	s.metrics.IncReconciliation(outcome)
	s.metrics.ObserveOperation(opReconcile, metrics.OutcomeSuccess, s.now().Sub(start))
	return result, nil
}

// loadReconciled reports the rows stored by a concurrent return for the same
// order id. Rows owned by another user are never returned.
func (s *service) loadReconciled(ctx context.Context, userID uuid.UUID, orderID string, start time.Time) (*ReconciliationResult, error) {
	order, err := s.repo.FindOrderByExternalID(ctx, orderID)
	if err != nil {
		s.metrics.IncReconciliation(metrics.OutcomeError)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load reconciled order")
	}
	payment, err := s.repo.FindPaymentByTransactionID(ctx, orderID)
	if err != nil {
		s.metrics.IncReconciliation(metrics.OutcomeError)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load reconciled payment")
	}
	if order.UserID != userID || payment.UserID != userID {
		s.metrics.IncReconciliation(metrics.OutcomeInvalid)
		return nil, errForeignOrder(orderID)
	}
	s.metrics.IncReconciliation(metrics.OutcomeDuplicate)
	s.metrics.ObserveOperation(opReconcile, metrics.OutcomeSuccess, s.now().Sub(start))
	return &ReconciliationResult{Order: order, Payment: payment, ExternalOrderID: orderID}, nil
}

func errForeignOrder(orderID string) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "order id is already used").
		WithDetails(map[string]any{"orderId": orderID})
}

func (s *service) RecordListingPayment(ctx context.Context, userID, listingID uuid.UUID, amount int64) (*ReconciliationResult, error) {
	if listingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	listing, err := s.repo.FindListing(ctx, listingID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
	}
	if amount <= 0 {
		amount = listing.Price
	}

	id := listing.ID
	return s.ReconcilePaymentReturn(ctx, ReconcileInput{
		UserID:          userID,
		ExternalOrderID: ListingOrderID(listing.ID, s.now()),
		OrderName:       listing.Title,
		Amount:          amount,
		ListingID:       &id,
		Items: []models.OrderItem{{
			ID:       listing.ID.String(),
			Title:    listing.Title,
			Price:    amount,
			Quantity: 1,
		}},
		PaymentMethod: enums.PaymentMethodToss,
	})
}

// ListingOrderID is the external order id for a single-listing purchase.
func ListingOrderID(listingID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("listing-%s-%d", listingID, now.UnixMilli())
}

func (s *service) Histories(ctx context.Context, userID uuid.UUID, limit int) (*History, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id required")
	}
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}

	orders, err := s.repo.ListOrders(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	payments, err := s.repo.ListPayments(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payments")
	}
	txns, err := s.repo.ListTokenTransactions(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list token transactions")
	}
	return &History{Orders: orders, Payments: payments, TokenTransactions: txns}, nil
}

func (s *service) VerifyTokenCache(ctx context.Context, userID uuid.UUID) (*CacheCheck, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id required")
	}
	profile, err := s.repo.FindProfile(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load profile")
	}
	replayed, err := s.repo.SumTokenTransactions(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replay token transactions")
	}

	check := &CacheCheck{
		CachedTokens:   profile.Tokens,
		ReplayedTokens: replayed,
		Consistent:     profile.Tokens == replayed,
	}
	if !check.Consistent && s.logg != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"user_id":  userID.String(),
			"cached":   check.CachedTokens,
			"replayed": check.ReplayedTokens,
		}), "token cache diverged from ledger")
	}
	return check, nil
}

func (s *service) Quote() Quote {
	return NewQuote(s.market)
}

func (s *service) tradePrice(requested int64) (int64, error) {
	if requested == 0 || requested == s.market.UnitPrice {
		return s.market.UnitPrice, nil
	}
	if requested < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be positive")
	}
	return 0, pkgerrors.New(pkgerrors.CodeConflict, "token price changed").
		WithDetails(map[string]int64{"unitPrice": s.market.UnitPrice})
}

// tradeValue prices quantity tokens in won, rejecting trades above
// MaxTradeQuantity or whose value would not fit in an int64.
func tradeValue(quantity, price int64) (int64, error) {
	if quantity > MaxTradeQuantity || (price > 0 && quantity > math.MaxInt64/price) {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity is too large").
			WithDetails(map[string]int64{"max": MaxTradeQuantity})
	}
	return quantity * price, nil
}

func (s *service) describe(quantity int64, verb string) string {
	return s.printer.Sprintf("%d %s %s", quantity, s.market.Symbol, verb)
}

func (s *service) recordTrade(ctx context.Context, userID uuid.UUID, kind string, quantity, price int64) {
	if s.trades == nil {
		return
	}
	now := s.now()
	trade := Trade{
		ID:     now.UnixMilli(),
		Type:   kind,
		Amount: quantity,
		Price:  price,
		Date:   now.Format("2006. 1. 2. 15:04:05"),
	}
	if err := s.trades.RecordTrade(ctx, userID, trade); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "user_id", userID.String()), "trade history not saved: "+err.Error())
	}
}

func (s *service) observe(op string, start time.Time, err error) {
	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case pkgerrors.Is(err, pkgerrors.CodeInsufficientBalance), pkgerrors.Is(err, pkgerrors.CodeValidation), pkgerrors.Is(err, pkgerrors.CodeConflict):
		outcome = metrics.OutcomeRejected
	default:
		outcome = metrics.OutcomeError
	}
	s.metrics.ObserveOperation(op, outcome, s.now().Sub(start))
}
