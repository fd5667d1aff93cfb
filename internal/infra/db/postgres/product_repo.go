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

// Ensure interface compliance
var _ repository.ProductRepository = (*PostgresProductRepo)(nil)

type PostgresProductRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresProductRepo(pool *pgxpool.Pool) *PostgresProductRepo {
	return &PostgresProductRepo{pool: pool}
}

const productColumns = `id, title, description, category, cash_price, credit_price, download_url, popularity, active, created_at, updated_at`

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Category, &p.CashPrice, &p.CreditPrice,
		&p.DownloadURL, &p.Popularity, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresProductRepo) Save(ctx context.Context, tx repository.Tx, p *model.Product) error {
	if p.ID == "" {
		return domain.ErrInvalidArgument
	}
	const sql = `
INSERT INTO products (id, title, description, category, cash_price, credit_price, download_url, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()), now())
ON CONFLICT (id) DO UPDATE
  SET title        = EXCLUDED.title,
      description  = EXCLUDED.description,
      category     = EXCLUDED.category,
      cash_price   = EXCLUDED.cash_price,
      credit_price = EXCLUDED.credit_price,
      download_url = EXCLUDED.download_url,
      active       = EXCLUDED.active,
      updated_at   = now();
`
	var created interface{}
	if !p.CreatedAt.IsZero() {
		created = p.CreatedAt
	}
	if _, err := execSQL(ctx, r.pool, tx, sql,
		p.ID, p.Title, p.Description, p.Category, p.CashPrice, p.CreditPrice, p.DownloadURL, p.Active, created,
	); err != nil {
		return fmt.Errorf("save product: %w", err)
	}
	return nil
}

func (r *PostgresProductRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	return p, nil
}

func (r *PostgresProductRepo) List(ctx context.Context, tx repository.Tx, limit int) ([]*model.Product, error) {
	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT `+productColumns+` FROM products ORDER BY popularity DESC, id ASC LIMIT $1`, limitOrAll(limit))
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	var out []*model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresProductRepo) IncrementPopularity(ctx context.Context, tx repository.Tx, id string) error {
	ct, err := execSQL(ctx, r.pool, tx, `UPDATE products SET popularity = popularity + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment popularity: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
