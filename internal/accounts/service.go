package accounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/geonmarket-backend/pkg/db"
	"github.com/angelmondragon/geonmarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/geonmarket-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages the bank accounts used to pay for tokens.
type Service interface {
	Add(ctx context.Context, userID uuid.UUID, input AddAccountInput) (*models.UserAccount, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.UserAccount, error)
	Resolve(ctx context.Context, userID uuid.UUID, accountID *uuid.UUID) (*models.UserAccount, error)
}

type AddAccountInput struct {
	BankName      string `json:"bankName" validate:"notblank"`
	AccountNumber string `json:"accountNumber" validate:"required"`
	AccountHolder string `json:"accountHolder" validate:"notblank"`
}

type service struct {
	tx   txRunner
	repo Repository
}

func NewService(tx txRunner, repo Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	return &service{tx: tx, repo: repo}, nil
}

func (s *service) Add(ctx context.Context, userID uuid.UUID, input AddAccountInput) (*models.UserAccount, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id required")
	}
	account := &models.UserAccount{
		UserID:        userID,
		BankName:      strings.TrimSpace(input.BankName),
		AccountNumber: strings.TrimSpace(input.AccountNumber),
		AccountHolder: strings.TrimSpace(input.AccountHolder),
	}
	if account.BankName == "" || account.AccountNumber == "" || account.AccountHolder == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "모든 필드를 입력해주세요.")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.CountByUser(ctx, userID)
		if err != nil {
			return err
		}
		account.IsDefault = existing == 0
		return repo.Create(ctx, account)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "default account already set")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create account")
	}
	return account, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.UserAccount, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id required")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list accounts")
	}
	return rows, nil
}

// Resolve picks the account a payment is drawn from: the explicit account when
// given, else the default, else the newest.
func (s *service) Resolve(ctx context.Context, userID uuid.UUID, accountID *uuid.UUID) (*models.UserAccount, error) {
	if accountID != nil && *accountID != uuid.Nil {
		account, err := s.repo.FindByIDAndUser(ctx, *accountID, userID)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "결제 계좌를 선택해주세요.")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load account")
		}
		return account, nil
	}

	rows, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "결제 계좌를 선택해주세요.")
	}
	return &rows[0], nil
}
