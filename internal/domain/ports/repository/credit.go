package repository

import (
	"context"
	"time"

	"digital-checkout/internal/domain/model"
)

// CreditTransactionRepository is the append-only credit ledger store.
type CreditTransactionRepository interface {
	// LockUser serializes ledger writes for userID until tx ends. Requires a tx.
	LockUser(ctx context.Context, tx Tx, userID string) error
	// LatestBalance returns BalanceAfter of the newest row, 0 when the user has none.
	LatestBalance(ctx context.Context, tx Tx, userID string) (int64, error)
	Insert(ctx context.Context, tx Tx, t *model.CreditTransaction) error
	ListByUser(ctx context.Context, tx Tx, userID string, limit int) ([]*model.CreditTransaction, error)
	// ListExpiring returns positive rows with expires_at in [from, to], ascending by expiry.
	ListExpiring(ctx context.Context, tx Tx, userID string, from, to time.Time) ([]*model.CreditTransaction, error)
	// ListExpiredUnprocessed returns positive rows expired at now that no expiration row references.
	ListExpiredUnprocessed(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.CreditTransaction, error)
	ExpirationExists(ctx context.Context, tx Tx, originalID string) (bool, error)
	// SumByReference is the signed sum of the user's rows referencing referenceID.
	SumByReference(ctx context.Context, tx Tx, userID, referenceID string) (int64, error)
}
