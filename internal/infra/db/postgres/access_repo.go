package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"digital-checkout/internal/domain"
	"digital-checkout/internal/domain/model"
	"digital-checkout/internal/domain/ports/repository"
)

var _ repository.ProductAccessRepository = (*PostgresAccessRepo)(nil)

type PostgresAccessRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAccessRepo(pool *pgxpool.Pool) *PostgresAccessRepo {
	return &PostgresAccessRepo{pool: pool}
}

const accessColumns = `id, user_id, product_id, order_id, access_type, granted_at, expires_at, download_count`

func scanAccess(row pgx.Row) (*model.ProductAccess, error) {
	var a model.ProductAccess
	if err := row.Scan(&a.ID, &a.UserID, &a.ProductID, &a.OrderID, &a.AccessType, &a.GrantedAt, &a.ExpiresAt, &a.DownloadCount); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PostgresAccessRepo) Grant(ctx context.Context, tx repository.Tx, a *model.ProductAccess) (bool, error) {
	const sql = `
INSERT INTO product_access (id, user_id, product_id, order_id, access_type, granted_at, expires_at, download_count)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (user_id, product_id) DO NOTHING;
`
	ct, err := execSQL(ctx, r.pool, tx, sql,
		a.ID, a.UserID, a.ProductID, a.OrderID, a.AccessType, a.GrantedAt, a.ExpiresAt, a.DownloadCount,
	)
	if err != nil {
		return false, fmt.Errorf("grant access: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *PostgresAccessRepo) Find(ctx context.Context, tx repository.Tx, userID, productID string) (*model.ProductAccess, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+accessColumns+` FROM product_access WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return nil, err
	}
	a, err := scanAccess(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find access: %w", err)
	}
	return a, nil
}

func (r *PostgresAccessRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.ProductAccess, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+accessColumns+` FROM product_access WHERE user_id = $1 ORDER BY granted_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list access: %w", err)
	}
	defer rows.Close()
	var out []*model.ProductAccess
	for rows.Next() {
		a, err := scanAccess(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresAccessRepo) IncrementDownloads(ctx context.Context, tx repository.Tx, userID, productID string) error {
	ct, err := execSQL(ctx, r.pool, tx,
		`UPDATE product_access SET download_count = download_count + 1 WHERE user_id = $1 AND product_id = $2`,
		userID, productID)
	if err != nil {
		return fmt.Errorf("increment downloads: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresAccessRepo) RevokeByOrder(ctx context.Context, tx repository.Tx, userID, orderID string) (int, error) {
	ct, err := execSQL(ctx, r.pool, tx, `DELETE FROM product_access WHERE user_id = $1 AND order_id = $2`, userID, orderID)
	if err != nil {
		return 0, fmt.Errorf("revoke access: %w", err)
	}
	return int(ct.RowsAffected()), nil
}

func (r *PostgresAccessRepo) Reassign(ctx context.Context, tx repository.Tx, userID, productID, fromOrderID, toOrderID string) (bool, error) {
	ct, err := execSQL(ctx, r.pool, tx,
		`UPDATE product_access SET order_id = $4 WHERE user_id = $1 AND product_id = $2 AND order_id = $3`,
		userID, productID, fromOrderID, toOrderID)
	if err != nil {
		return false, fmt.Errorf("reassign access: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}
