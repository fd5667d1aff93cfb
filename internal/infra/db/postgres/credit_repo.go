package postgres

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"digital-checkout/internal/domain"
	"digital-checkout/internal/domain/model"
	"digital-checkout/internal/domain/ports/repository"
)

var _ repository.CreditTransactionRepository = (*PostgresCreditRepo)(nil)

type PostgresCreditRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresCreditRepo(pool *pgxpool.Pool) *PostgresCreditRepo {
	return &PostgresCreditRepo{pool: pool}
}

const creditColumns = `id, user_id, amount, balance_after, transaction_type, reference_id, expires_at, created_at`

func scanCredit(row pgx.Row) (*model.CreditTransaction, error) {
	var t model.CreditTransaction
	var typ string
	if err := row.Scan(&t.ID, &t.UserID, &t.Amount, &t.BalanceAfter, &typ, &t.ReferenceID, &t.ExpiresAt, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Type = model.CreditTransactionType(typ)
	return &t, nil
}

func collectCredits(rows pgx.Rows) ([]*model.CreditTransaction, error) {
	defer rows.Close()
	var out []*model.CreditTransaction
	for rows.Next() {
		t, err := scanCredit(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// advisoryKey folds a user id into the bigint keyspace of pg_advisory_xact_lock.
func advisoryKey(userID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("credits:" + userID))
	return int64(h.Sum64())
}

func (r *PostgresCreditRepo) LockUser(ctx context.Context, tx repository.Tx, userID string) error {
	if _, ok := tx.(pgx.Tx); !ok {
		return domain.ErrInvalidExecContext
	}
	if _, err := execSQL(ctx, r.pool, tx, `SELECT pg_advisory_xact_lock($1)`, advisoryKey(userID)); err != nil {
		return fmt.Errorf("lock ledger: %w", err)
	}
	return nil
}

func (r *PostgresCreditRepo) LatestBalance(ctx context.Context, tx repository.Tx, userID string) (int64, error) {
	const sql = `
SELECT balance_after
  FROM credit_transactions
 WHERE user_id = $1
 ORDER BY seq DESC
 LIMIT 1;
`
	row, err := pickRow(ctx, r.pool, tx, sql, userID)
	if err != nil {
		return 0, err
	}
	var bal int64
	if err := row.Scan(&bal); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("latest balance: %w", err)
	}
	return bal, nil
}

func (r *PostgresCreditRepo) Insert(ctx context.Context, tx repository.Tx, t *model.CreditTransaction) error {
	const sql = `
INSERT INTO credit_transactions (id, user_id, amount, balance_after, transaction_type, reference_id, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	_, err := execSQL(ctx, r.pool, tx, sql,
		t.ID, t.UserID, t.Amount, t.BalanceAfter, string(t.Type), t.ReferenceID, t.ExpiresAt, t.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert credit transaction: %w", err)
	}
	return nil
}

func (r *PostgresCreditRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.CreditTransaction, error) {
	sql := `SELECT ` + creditColumns + ` FROM credit_transactions WHERE user_id = $1 ORDER BY seq DESC LIMIT $2`
	rows, err := queryRows(ctx, r.pool, tx, sql, userID, limitOrAll(limit))
	if err != nil {
		return nil, fmt.Errorf("list credit transactions: %w", err)
	}
	return collectCredits(rows)
}

func (r *PostgresCreditRepo) ListExpiring(ctx context.Context, tx repository.Tx, userID string, from, to time.Time) ([]*model.CreditTransaction, error) {
	sql := `SELECT ` + creditColumns + `
  FROM credit_transactions
 WHERE user_id = $1 AND amount > 0 AND expires_at BETWEEN $2 AND $3
 ORDER BY expires_at ASC, seq ASC`
	rows, err := queryRows(ctx, r.pool, tx, sql, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list expiring credits: %w", err)
	}
	return collectCredits(rows)
}

func (r *PostgresCreditRepo) ListExpiredUnprocessed(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.CreditTransaction, error) {
	sql := `SELECT ` + creditColumns + `
  FROM credit_transactions c
 WHERE c.amount > 0 AND c.expires_at <= $1
   AND NOT EXISTS (
       SELECT 1 FROM credit_transactions e
        WHERE e.transaction_type = 'expiration' AND e.reference_id = c.id)
 ORDER BY c.expires_at ASC
 LIMIT $2`
	rows, err := queryRows(ctx, r.pool, tx, sql, now, limitOrAll(limit))
	if err != nil {
		return nil, fmt.Errorf("list expired credits: %w", err)
	}
	return collectCredits(rows)
}

func (r *PostgresCreditRepo) ExpirationExists(ctx context.Context, tx repository.Tx, originalID string) (bool, error) {
	const sql = `SELECT EXISTS (SELECT 1 FROM credit_transactions WHERE transaction_type = 'expiration' AND reference_id = $1)`
	row, err := pickRow(ctx, r.pool, tx, sql, originalID)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, fmt.Errorf("expiration exists: %w", err)
	}
	return ok, nil
}

func (r *PostgresCreditRepo) SumByReference(ctx context.Context, tx repository.Tx, userID, referenceID string) (int64, error) {
	const sql = `SELECT COALESCE(SUM(amount), 0) FROM credit_transactions WHERE user_id = $1 AND reference_id = $2`
	row, err := pickRow(ctx, r.pool, tx, sql, userID, referenceID)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum by reference: %w", err)
	}
	return sum, nil
}

// limitOrAll maps a non-positive limit to NULL, which LIMIT treats as no limit.
func limitOrAll(limit int) interface{} {
	if limit <= 0 {
		return nil
	}
	return limit
}
