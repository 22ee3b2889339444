package ledger

import (
	"context"

	"github.com/angelmondragon/geonmarket-backend/internal/repo"
	"github.com/angelmondragon/geonmarket-backend/pkg/db/models"
	"github.com/angelmondragon/geonmarket-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists ledger rows and applies balance deltas to profiles.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreatePayment(ctx context.Context, payment *models.Payment) error
	CreatePaymentIfAbsent(ctx context.Context, payment *models.Payment) (bool, error)
	CreateOrderIfAbsent(ctx context.Context, order *models.Order) (bool, error)
	FindOrderByExternalID(ctx context.Context, orderID string) (*models.Order, error)
	FindPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	AppendTokenTransaction(ctx context.Context, txn *models.TokenTransaction) error
	CreditTokens(ctx context.Context, userID uuid.UUID, tokens, cost int64) (bool, error)
	DebitTokens(ctx context.Context, userID uuid.UUID, tokens, proceeds int64) (bool, error)
	FindProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	FindListing(ctx context.Context, listingID uuid.UUID) (*models.Listing, error)
	MarkListingSold(ctx context.Context, listingID uuid.UUID) error
	ListOrders(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error)
	ListPayments(ctx context.Context, userID uuid.UUID, limit int) ([]models.Payment, error)
	ListTokenTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.TokenTransaction, error)
	SumTokenTransactions(ctx context.Context, userID uuid.UUID) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.DB(ctx).Create(payment).Error
}

// CreatePaymentIfAbsent inserts the payment unless one with the same
// transaction id exists, in which case payment is replaced by the stored row.
func (r *repository) CreatePaymentIfAbsent(ctx context.Context, payment *models.Payment) (bool, error) {
	res := r.DB(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "transaction_id"}}, DoNothing: true}).
		Create(payment)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	if payment.TransactionID == nil {
		return false, gorm.ErrRecordNotFound
	}
	existing, err := r.FindPaymentByTransactionID(ctx, *payment.TransactionID)
	if err != nil {
		return false, err
	}
	*payment = *existing
	return false, nil
}

// CreateOrderIfAbsent inserts the order unless its external order id is
// already recorded, in which case order is replaced by the stored row.
func (r *repository) CreateOrderIfAbsent(ctx context.Context, order *models.Order) (bool, error) {
	res := r.DB(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "order_id"}}, DoNothing: true}).
		Create(order)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	existing, err := r.FindOrderByExternalID(ctx, order.OrderID)
	if err != nil {
		return false, err
	}
	*order = *existing
	return false, nil
}

func (r *repository) FindOrderByExternalID(ctx context.Context, orderID string) (*models.Order, error) {
	return repo.First[models.Order](ctx, r.Base, "order_id", orderID)
}

func (r *repository) FindPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	return repo.First[models.Payment](ctx, r.Base, "transaction_id", transactionID)
}

func (r *repository) AppendTokenTransaction(ctx context.Context, txn *models.TokenTransaction) error {
	return r.DB(ctx).Create(txn).Error
}

// CreditTokens adds tokens and deducts cost from the cash balance, flooring it at zero.
func (r *repository) CreditTokens(ctx context.Context, userID uuid.UUID, tokens, cost int64) (bool, error) {
	res := r.DB(ctx).Model(&models.Profile{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"tokens":  gorm.Expr("tokens + ?", tokens),
			"balance": gorm.Expr("CASE WHEN balance > ? THEN balance - ? ELSE 0 END", cost, cost),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DebitTokens removes tokens and credits proceeds only when the stored token
// count covers the debit. It reports false when the guard rejected the update.
func (r *repository) DebitTokens(ctx context.Context, userID uuid.UUID, tokens, proceeds int64) (bool, error) {
	res := r.DB(ctx).Model(&models.Profile{}).
		Where("id = ? AND tokens >= ?", userID, tokens).
		Updates(map[string]any{
			"tokens":  gorm.Expr("tokens - ?", tokens),
			"balance": gorm.Expr("balance + ?", proceeds),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return repo.First[models.Profile](ctx, r.Base, "id", userID)
}

func (r *repository) FindListing(ctx context.Context, listingID uuid.UUID) (*models.Listing, error) {
	return repo.First[models.Listing](ctx, r.Base, "id", listingID)
}

func (r *repository) MarkListingSold(ctx context.Context, listingID uuid.UUID) error {
	return r.DB(ctx).Model(&models.Listing{}).
		Where("id = ? AND status <> ?", listingID, enums.ListingStatusSold).
		Update("status", enums.ListingStatusSold).Error
}

func (r *repository) ListOrders(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error) {
	return repo.Recent[models.Order](ctx, r.Base, userID, "created_at", limit)
}

func (r *repository) ListPayments(ctx context.Context, userID uuid.UUID, limit int) ([]models.Payment, error) {
	return repo.Recent[models.Payment](ctx, r.Base, userID, "payment_date", limit)
}

func (r *repository) ListTokenTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.TokenTransaction, error) {
	return repo.Recent[models.TokenTransaction](ctx, r.Base, userID, "created_at", limit)
}

// SumTokenTransactions replays the token log into a signed total.
func (r *repository) SumTokenTransactions(ctx context.Context, userID uuid.UUID) (int64, error) {
	var total int64
	err := r.DB(ctx).Model(&models.TokenTransaction{}).
		Select("COALESCE(SUM(CASE WHEN transaction_type = ? THEN amount ELSE -amount END), 0)", enums.TokenTransactionTypePurchase).
		Where("user_id = ?", userID).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
