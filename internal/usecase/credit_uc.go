package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"digital-checkout/internal/domain"
	"digital-checkout/internal/domain/model"
	"digital-checkout/internal/domain/ports/repository"
	"digital-checkout/internal/infra/metrics"
)

// Compile-time check
var _ CreditUseCase = (*creditUC)(nil)

const (
	defaultHistoryLimit  = 50
	expirationSweepBatch = 500
)

// CreditUseCase is the credit ledger. Every write runs in its own transaction
// holding the user's ledger lock, so the balance read and the append are one unit.
type CreditUseCase interface {
	GetBalance(ctx context.Context, userID string) (int64, error)
	AddCredits(ctx context.Context, userID string, amount int64, typ model.CreditTransactionType, referenceID *string, expiresAt *time.Time) (*model.CreditTransaction, error)
	DeductCredits(ctx context.Context, userID string, amount int64, typ model.CreditTransactionType, referenceID *string) (*model.CreditTransaction, error)
	GetExpiringCredits(ctx context.Context, userID string, daysAhead int) ([]model.ExpiringCredit, error)
	ProcessExpirations(ctx context.Context) ([]*model.CreditTransaction, error)
	GetTransactionHistory(ctx context.Context, userID string, limit int) ([]*model.CreditTransaction, error)
	// PurchaseCredits records credits bought through an external payment.
	// expiresInDays <= 0 uses the configured default; with no default the
	// credits never expire.
	PurchaseCredits(ctx context.Context, userID string, amount int64, paymentTransactionID string, expiresInDays int) (*model.CreditTransaction, error)
	// NetByReference is the signed sum of the user's ledger rows linked to referenceID.
	NetByReference(ctx context.Context, userID, referenceID string) (int64, error)
}

type creditUC struct {
	repo       repository.CreditTransactionRepository
	tm         repository.TransactionManager
	expiryDays int
	log        *zerolog.Logger
}

func NewCreditUseCase(repo repository.CreditTransactionRepository, tm repository.TransactionManager, purchaseExpiryDays int, logger *zerolog.Logger) *creditUC {
	if purchaseExpiryDays < 0 {
		purchaseExpiryDays = 0
	}
	l := logger.With().Str("component", "credits").Logger()
	return &creditUC{repo: repo, tm: tm, expiryDays: purchaseExpiryDays, log: &l}
}

func (u *creditUC) GetBalance(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, domain.ErrInvalidArgument
	}
	return u.repo.LatestBalance(ctx, repository.NoTX, userID)
}

func (u *creditUC) AddCredits(ctx context.Context, userID string, amount int64, typ model.CreditTransactionType, referenceID *string, expiresAt *time.Time) (*model.CreditTransaction, error) {
	if userID == "" || amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	row, err := u.append(ctx, userID, amount, typ, referenceID, expiresAt)
	metrics.IncLedgerOp("add", resultLabel(err))
	if err != nil {
		return nil, fmt.Errorf("add credits: %w", err)
	}
	return row, nil
}

func (u *creditUC) DeductCredits(ctx context.Context, userID string, amount int64, typ model.CreditTransactionType, referenceID *string) (*model.CreditTransaction, error) {
	if userID == "" || amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	row, err := u.append(ctx, userID, -amount, typ, referenceID, nil)
	metrics.IncLedgerOp("deduct", resultLabel(err))
	if err != nil {
		return nil, fmt.Errorf("deduct credits: %w", err)
	}
	return row, nil
}

// append reads the latest balance and writes the next row under the user's ledger lock.
// A negative resulting balance fails with *domain.InsufficientCreditsError inside the lock.
func (u *creditUC) append(ctx context.Context, userID string, amount int64, typ model.CreditTransactionType, ref *string, expiresAt *time.Time) (*model.CreditTransaction, error) {
	var out *model.CreditTransaction
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.repo.LockUser(ctx, tx, userID); err != nil {
			return err
		}
		bal, err := u.repo.LatestBalance(ctx, tx, userID)
		if err != nil {
			return err
		}
		row, err := model.NewCreditTransaction(userID, bal, amount, typ, ref, expiresAt)
		if err != nil {
			return err
		}
		if err := u.repo.Insert(ctx, tx, row); err != nil {
			return err
		}
		out = row
		return nil
	})
	return out, err
}

func (u *creditUC) GetExpiringCredits(ctx context.Context, userID string, daysAhead int) ([]model.ExpiringCredit, error) {
	if userID == "" || daysAhead < 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	rows, err := u.repo.ListExpiring(ctx, repository.NoTX, userID, now, now.AddDate(0, 0, daysAhead))
	if err != nil {
		return nil, err
	}
	out := make([]model.ExpiringCredit, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.ExpiringCredit{Amount: r.Amount, ExpiresAt: *r.ExpiresAt})
	}
	return out, nil
}

// ProcessExpirations offsets every expired grant exactly once. The offset row
// references the grant and is what marks it consumed; it is clamped to the
// balance at sweep time so a spent grant never drives the balance negative.
func (u *creditUC) ProcessExpirations(ctx context.Context) ([]*model.CreditTransaction, error) {
	now := time.Now().UTC()
	expired, err := u.repo.ListExpiredUnprocessed(ctx, repository.NoTX, now, expirationSweepBatch)
	if err != nil {
		return nil, fmt.Errorf("list expired credits: %w", err)
	}

	var created []*model.CreditTransaction
	for _, grant := range expired {
		row, err := u.expireOne(ctx, grant)
		if err != nil {
			u.log.Error().Err(err).Str("transaction_id", grant.ID).Str("user_id", grant.UserID).Msg("expire credits failed")
			continue
		}
		if row != nil {
			created = append(created, row)
			metrics.AddCreditsExpired(-row.Amount)
		}
	}
	if len(created) > 0 {
		u.log.Info().Int("count", len(created)).Msg("credit expirations processed")
	}
	return created, nil
}

func (u *creditUC) expireOne(ctx context.Context, grant *model.CreditTransaction) (*model.CreditTransaction, error) {
	var out *model.CreditTransaction
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.repo.LockUser(ctx, tx, grant.UserID); err != nil {
			return err
		}
		// another sweep may have won the race while we waited for the lock
		done, err := u.repo.ExpirationExists(ctx, tx, grant.ID)
		if err != nil || done {
			return err
		}
		bal, err := u.repo.LatestBalance(ctx, tx, grant.UserID)
		if err != nil {
			return err
		}
		amount := grant.Amount
		if amount > bal {
			amount = bal
		}
		if amount < 0 {
			amount = 0
		}
		ref := grant.ID
		row, err := model.NewCreditTransaction(grant.UserID, bal, -amount, model.CreditTypeExpiration, &ref, nil)
		if err != nil {
			return err
		}
		if err := u.repo.Insert(ctx, tx, row); err != nil {
			return err
		}
		out = row
		return nil
	})
	return out, err
}

func (u *creditUC) GetTransactionHistory(ctx context.Context, userID string, limit int) ([]*model.CreditTransaction, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if limit <= 0 || limit > 500 {
		limit = defaultHistoryLimit
	}
	return u.repo.ListByUser(ctx, repository.NoTX, userID, limit)
}

func (u *creditUC) PurchaseCredits(ctx context.Context, userID string, amount int64, paymentTransactionID string, expiresInDays int) (*model.CreditTransaction, error) {
	if paymentTransactionID == "" {
		return nil, fmt.Errorf("%w: payment transaction id is required", domain.ErrInvalidArgument)
	}
	if expiresInDays <= 0 {
		expiresInDays = u.expiryDays
	}
	var exp *time.Time
	if expiresInDays > 0 {
		t := time.Now().UTC().AddDate(0, 0, expiresInDays)
		exp = &t
	}
	ref := paymentTransactionID
	return u.AddCredits(ctx, userID, amount, model.CreditTypePurchase, &ref, exp)
}

func (u *creditUC) NetByReference(ctx context.Context, userID, referenceID string) (int64, error) {
	if userID == "" || referenceID == "" {
		return 0, domain.ErrInvalidArgument
	}
	return u.repo.SumByReference(ctx, repository.NoTX, userID, referenceID)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInsufficientCredits):
		return "insufficient"
	default:
		return "error"
	}
}
