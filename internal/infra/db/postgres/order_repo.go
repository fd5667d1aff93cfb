package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"digital-checkout/internal/domain"
	"digital-checkout/internal/domain/model"
	"digital-checkout/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*PostgresOrderRepo)(nil)

type PostgresOrderRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresOrderRepo(pool *pgxpool.Pool) *PostgresOrderRepo {
	return &PostgresOrderRepo{pool: pool}
}

const orderColumns = `id, user_id, status, cash_total, credits_total, payment_transaction_id, refund_transaction_id, completed_at, created_at, updated_at`

// Create writes the order header and its items. Without a caller tx it opens
// its own so the order never exists without its items.
func (r *PostgresOrderRepo) Create(ctx context.Context, tx repository.Tx, o *model.Order) error {
	if tx == nil {
		return NewTxManager(r.pool).WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			return r.create(ctx, tx, o)
		})
	}
	return r.create(ctx, tx, o)
}

func (r *PostgresOrderRepo) create(ctx context.Context, tx repository.Tx, o *model.Order) error {
	const headerSQL = `
INSERT INTO orders (id, user_id, status, cash_total, credits_total, payment_transaction_id, refund_transaction_id, completed_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
`
	_, err := execSQL(ctx, r.pool, tx, headerSQL,
		o.ID, o.UserID, string(o.Status), o.CashTotal, o.CreditsTotal, o.PaymentTransactionID, o.RefundTransactionID, o.CompletedAt, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert order: %w", err)
	}

	const itemSQL = `
INSERT INTO order_items (id, order_id, position, product_id, product_snapshot, payment_method, price, credit_price)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	for i, it := range o.Items {
		snap, err := json.Marshal(it.ProductSnapshot)
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}
		if _, err := execSQL(ctx, r.pool, tx, itemSQL,
			it.ID, o.ID, i, it.ProductID, snap, string(it.PaymentMethod), it.Price, it.CreditPrice,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	var status string
	if err := row.Scan(&o.ID, &o.UserID, &status, &o.CashTotal, &o.CreditsTotal, &o.PaymentTransactionID, &o.RefundTransactionID, &o.CompletedAt, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = model.OrderStatus(status)
	return &o, nil
}

func (r *PostgresOrderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	if err := r.loadItems(ctx, tx, []*model.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *PostgresOrderRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.OrderStatus, paymentTxID *string, completedAt *time.Time) error {
	const sql = `
UPDATE orders
   SET status                 = $2,
       payment_transaction_id = COALESCE($3, payment_transaction_id),
       completed_at           = COALESCE($4, completed_at),
       updated_at             = now()
 WHERE id = $1;
`
	ct, err := execSQL(ctx, r.pool, tx, sql, id, string(status), paymentTxID, completedAt)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresOrderRepo) SetRefundTransaction(ctx context.Context, tx repository.Tx, id, refundID string) error {
	ct, err := execSQL(ctx, r.pool, tx,
		`UPDATE orders SET refund_transaction_id = $2, updated_at = now() WHERE id = $1`, id, refundID)
	if err != nil {
		return fmt.Errorf("set refund transaction: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresOrderRepo) LatestCompletedWithProduct(ctx context.Context, tx repository.Tx, userID, productID string) (string, error) {
	const sql = `
SELECT o.id
  FROM orders o
  JOIN order_items i ON i.order_id = o.id
 WHERE o.user_id = $1 AND i.product_id = $2 AND o.status = 'completed'
 ORDER BY o.completed_at DESC NULLS LAST, o.created_at DESC
 LIMIT 1;
`
	row, err := pickRow(ctx, r.pool, tx, sql, userID, productID)
	if err != nil {
		return "", err
	}
	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("latest completed order: %w", err)
	}
	return id, nil
}

func (r *PostgresOrderRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.Order, error) {
	sql := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	return r.list(ctx, tx, sql, userID, limitOrAll(limit))
}

func (r *PostgresOrderRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Order, error) {
	sql := `SELECT ` + orderColumns + ` FROM orders WHERE status = 'pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2`
	return r.list(ctx, tx, sql, cutoff, limitOrAll(limit))
}

func (r *PostgresOrderRepo) list(ctx context.Context, tx repository.Tx, sql string, args ...interface{}) ([]*model.Order, error) {
	rows, err := queryRows(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	var out []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		out = append(out, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, tx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresOrderRepo) loadItems(ctx context.Context, tx repository.Tx, orders []*model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	byID := make(map[string]*model.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
		o.Items = []model.OrderItem{}
	}
	const sql = `
SELECT id, order_id, product_id, product_snapshot, payment_method, price, credit_price
  FROM order_items
 WHERE order_id = ANY($1)
 ORDER BY order_id, position;
`
	rows, err := queryRows(ctx, r.pool, tx, sql, ids)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it model.OrderItem
		var snap []byte
		var method string
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &snap, &method, &it.Price, &it.CreditPrice); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		if err := json.Unmarshal(snap, &it.ProductSnapshot); err != nil {
			return fmt.Errorf("decode snapshot: %w", err)
		}
		it.PaymentMethod = model.PaymentMethod(method)
		if o := byID[it.OrderID]; o != nil {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}
