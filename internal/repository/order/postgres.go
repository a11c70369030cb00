package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"wexcommerce/internal/domain"
	"wexcommerce/internal/repository/notification"
	"wexcommerce/internal/repository/product"
	"wexcommerce/internal/repository/user"
)

const orderSelect = `
SELECT o.id::text, o.user_id::text, o.delivery_type_id::text, o.payment_type_id::text, pt.name,
       o.total_cents, o.status, o.session_id, o.payment_intent_id, o.customer_id, o.paypal_order_id,
       o.cart_id::text, o.expire_at, o.created_at, o.updated_at,
       u.email, u.full_name, u.phone, u.address, u.type
FROM orders o
JOIN payment_types pt ON pt.id = o.payment_type_id
JOIN users u ON u.id = o.user_id
`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, in CreateInput) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	o := in.Order
	if in.Guest != nil {
		guest, err := user.Insert(ctx, tx, *in.Guest)
		if err != nil {
			return nil, fmt.Errorf("create guest: %w", err)
		}
		o.UserID = guest.ID
	}

	var id string
	err = tx.QueryRow(ctx, `
INSERT INTO orders (user_id, delivery_type_id, payment_type_id, total_cents, status, cart_id, expire_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id::text
`, o.UserID, o.DeliveryTypeID, o.PaymentTypeID, o.TotalCents, string(o.Status), o.CartID, o.ExpireAt).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
INSERT INTO order_items (order_id, product_id, product_name, price_cents, quantity, expire_at)
VALUES ($1, $2, $3, $4, $5, $6)
`, id, it.ProductID, it.ProductName, it.PriceCents, it.Quantity, o.ExpireAt); err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
		if in.StrictStock {
			ok, err := product.DecrementStock(ctx, tx, it.ProductID, it.Quantity, true)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, &domain.InvalidCartError{ProductID: it.ProductID, Reason: "is out of stock"}
			}
		}
	}

	if in.Notification != "" {
		if err := notification.Insert(ctx, tx, domain.Notification{UserID: o.UserID, OrderID: &id, Message: in.Notification}); err != nil {
			return nil, fmt.Errorf("insert notification: %w", err)
		}
	}
	if in.ClearCart && o.CartID != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, *o.CartID); err != nil {
			return nil, fmt.Errorf("clear cart: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Printf("order repo: created id=%s status=%s total_cents=%d", id, o.Status, o.TotalCents)
	return r.GetByID(ctx, id)
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.fetchOne(ctx, orderSelect+`WHERE o.id = $1`, id)
}

func (r *postgresRepo) GetByPaymentRef(ctx context.Context, kind RefKind, ref string) (*domain.Order, error) {
	var column string
	switch kind {
	case RefSession:
		column = "session_id"
	case RefPaymentIntent:
		column = "payment_intent_id"
	case RefPayPalOrder:
		column = "paypal_order_id"
	default:
		return nil, fmt.Errorf("unknown payment ref kind %d", kind)
	}
	return r.fetchOne(ctx, orderSelect+`WHERE o.`+column+` = $1`, ref)
}

func (r *postgresRepo) SetPaymentRefs(ctx context.Context, id string, refs PaymentRefs) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE orders SET
    session_id = COALESCE($2, session_id),
    payment_intent_id = COALESCE($3, payment_intent_id),
    customer_id = COALESCE($4, customer_id),
    paypal_order_id = COALESCE($5, paypal_order_id),
    updated_at = now()
WHERE id = $1
`, id, refs.SessionID, refs.PaymentIntentID, refs.CustomerID, refs.PayPalOrderID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns one page of orders. Orders still waiting for gateway confirmation
// are not listed.
func (r *postgresRepo) List(ctx context.Context, f domain.OrderFilter, page, size int) (*domain.OrderPage, error) {
	statuses := make([]string, 0, len(f.Statuses))
	for _, s := range f.Statuses {
		statuses = append(statuses, string(s))
	}
	q := strings.Replace(orderSelect, "SELECT ", "SELECT count(*) OVER (), ", 1) + `
WHERE o.expire_at IS NULL
  AND ($1 = '' OR o.user_id = NULLIF($1, '')::uuid)
  AND (COALESCE(cardinality($2::text[]), 0) = 0 OR o.payment_type_id::text = ANY($2::text[]))
  AND (COALESCE(cardinality($3::text[]), 0) = 0 OR o.delivery_type_id::text = ANY($3::text[]))
  AND (COALESCE(cardinality($4::text[]), 0) = 0 OR o.status = ANY($4::text[]))
  AND ($5::timestamptz IS NULL OR o.created_at >= $5::timestamptz)
  AND ($6::timestamptz IS NULL OR o.created_at <= $6::timestamptz)
  AND ($7 = '' OR o.id::text ILIKE $7 || '%' OR u.full_name ILIKE '%' || $7 || '%' OR u.email ILIKE '%' || $7 || '%')
ORDER BY o.created_at DESC
LIMIT $8 OFFSET $9
`
	rows, err := r.pool.Query(ctx, q,
		f.UserID,
		nonNil(f.PaymentTypes),
		nonNil(f.DeliveryTypes),
		statuses,
		f.From,
		f.To,
		strings.TrimSpace(f.Keyword),
		size,
		(page-1)*size,
	)
	if err != nil {
		r.logger.Printf("order repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()

	res := &domain.OrderPage{Orders: []domain.Order{}}
	var ids []string
	for rows.Next() {
		var total int
		o, err := scanOrder(rows, &total)
		if err != nil {
			return nil, err
		}
		res.TotalRecords = total
		res.Orders = append(res.Orders, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return res, nil
	}

	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range res.Orders {
		res.Orders[i].Items = items[res.Orders[i].ID]
	}
	return res, nil
}

// Transition moves an order from one status to another if it is still in the
// expected status, applying stock, expiry, cart and notification effects in the
// same transaction.
func (r *postgresRepo) Transition(ctx context.Context, in TransitionInput) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var (
		userID string
		cartID *string
	)
	err = tx.QueryRow(ctx, `
UPDATE orders
SET status = $3,
    updated_at = now(),
    expire_at = CASE WHEN $4 THEN NULL ELSE expire_at END
WHERE id = $1 AND status = $2
RETURNING user_id::text, cart_id::text
`, in.OrderID, string(in.From), string(in.To), in.ClearExpiry).Scan(&userID, &cartID)
	if errors.Is(err, pgx.ErrNoRows) {
		var current string
		if err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, in.OrderID).Scan(&current); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrNotFound
			}
			return nil, err
		}
		return nil, &domain.InvalidTransitionError{From: domain.OrderStatus(current), To: in.To}
	}
	if err != nil {
		return nil, err
	}

	if in.ClearExpiry {
		if _, err := tx.Exec(ctx, `UPDATE order_items SET expire_at = NULL WHERE order_id = $1`, in.OrderID); err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx, `UPDATE users SET expire_at = NULL WHERE id = $1`, userID); err != nil {
			return nil, err
		}
	}

	if in.Stock != StockNone {
		items, err := r.itemsFor(ctx, []string{in.OrderID})
		if err != nil {
			return nil, err
		}
		for _, it := range items[in.OrderID] {
			switch in.Stock {
			case StockDecrement:
				enough, err := product.DecrementStock(ctx, tx, it.ProductID, it.Quantity, false)
				if err != nil {
					return nil, err
				}
				if !enough {
					r.logger.Printf("order repo: oversold order_id=%s product_id=%s quantity=%d", in.OrderID, it.ProductID, it.Quantity)
				}
			case StockRestore:
				if err := product.RestoreStock(ctx, tx, it.ProductID, it.Quantity); err != nil {
					return nil, err
				}
			}
		}
	}

	if in.ClearCart && cartID != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, *cartID); err != nil {
			return nil, err
		}
	}
	if in.Notification != "" {
		orderID := in.OrderID
		if err := notification.Insert(ctx, tx, domain.Notification{UserID: userID, OrderID: &orderID, Message: in.Notification}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Printf("order repo: transition id=%s from=%s to=%s", in.OrderID, in.From, in.To)
	return r.GetByID(ctx, in.OrderID)
}

// Delete removes an order with its items, and its user when that user was a
// temporary guest with no other orders.
func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var userID string
	if err := tx.QueryRow(ctx, `DELETE FROM orders WHERE id = $1 RETURNING user_id::text`, id).Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	if _, err := tx.Exec(ctx, `
DELETE FROM users
WHERE id = $1 AND expire_at IS NOT NULL
  AND NOT EXISTS (SELECT 1 FROM orders WHERE user_id = $1)
`, userID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DeleteExpired removes pending orders whose payment window has passed.
func (r *postgresRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `
DELETE FROM orders
WHERE status = 'pending' AND expire_at IS NOT NULL AND expire_at < $1
`, now)
	if err != nil {
		r.logger.Printf("order repo: delete expired error=%v", err)
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *postgresRepo) fetchOne(ctx context.Context, q string, args ...any) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, q, args...), nil)
	if err != nil {
		return nil, err
	}
	items, err := r.itemsFor(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (r *postgresRepo) itemsFor(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id::text, order_id::text, product_id::text, product_name, price_cents, quantity, expire_at
FROM order_items
WHERE order_id = ANY($1::text[]::uuid[])
ORDER BY product_name
`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.PriceCents, &it.Quantity, &it.ExpireAt); err != nil {
			return nil, err
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row, total *int) (*domain.Order, error) {
	var (
		o        domain.Order
		u        domain.User
		method   string
		status   string
		userType string
	)
	dest := []any{
		&o.ID, &o.UserID, &o.DeliveryTypeID, &o.PaymentTypeID, &method,
		&o.TotalCents, &status, &o.SessionID, &o.PaymentIntentID, &o.CustomerID, &o.PayPalOrderID,
		&o.CartID, &o.ExpireAt, &o.CreatedAt, &o.UpdatedAt,
		&u.Email, &u.FullName, &u.Phone, &u.Address, &userType,
	}
	if total != nil {
		dest = append([]any{total}, dest...)
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	o.PaymentMethod = domain.PaymentMethod(method)
	o.Status = domain.OrderStatus(status)
	u.ID = o.UserID
	u.Type = domain.UserType(userType)
	o.User = &u
	return &o, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
