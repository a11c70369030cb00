package cart

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"wexcommerce/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

// Create starts an anonymous cart; its id is the only handle to it.
func (r *postgresRepo) Create(ctx context.Context) (*domain.Cart, error) {
	const q = `
INSERT INTO carts DEFAULT VALUES
RETURNING id::text, user_id::text, created_at, updated_at
`
	var cart domain.Cart
	if err := r.pool.QueryRow(ctx, q).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt); err != nil {
		return nil, err
	}
	return &cart, nil
}

// EnsureForUser returns the user's cart id, creating the cart on first use.
func (r *postgresRepo) EnsureForUser(ctx context.Context, userID string) (string, error) {
	const q = `
INSERT INTO carts (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
RETURNING id::text
`
	var id string
	if err := r.pool.QueryRow(ctx, q, userID).Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return id, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Cart, error) {
	return r.fetchCart(ctx, `
SELECT id::text, user_id::text, created_at, updated_at
FROM carts
WHERE id = $1
`, id)
}

func (r *postgresRepo) GetByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	return r.fetchCart(ctx, `
SELECT id::text, user_id::text, created_at, updated_at
FROM carts
WHERE user_id = $1
`, userID)
}

// AddItem appends the product or increments the quantity of the existing item.
func (r *postgresRepo) AddItem(ctx context.Context, cartID, productID string, quantity int) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
INSERT INTO cart_items (cart_id, product_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (cart_id, product_id) DO UPDATE
SET quantity = cart_items.quantity + EXCLUDED.quantity
`, cartID, productID, quantity); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.ErrNotFound
		}
		return err
	}
	if err := touchCart(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) UpdateItemQuantity(ctx context.Context, itemID string, quantity int) (string, error) {
	const q = `
UPDATE cart_items
SET quantity = $2
WHERE id = $1
RETURNING cart_id::text
`
	var cartID string
	if err := r.pool.QueryRow(ctx, q, itemID, quantity).Scan(&cartID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return cartID, nil
}

func (r *postgresRepo) DeleteItem(ctx context.Context, itemID string) (string, error) {
	const q = `
DELETE FROM cart_items
WHERE id = $1
RETURNING cart_id::text
`
	var cartID string
	if err := r.pool.QueryRow(ctx, q, itemID).Scan(&cartID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return cartID, nil
}

func (r *postgresRepo) Count(ctx context.Context, cartID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM cart_items WHERE cart_id = $1`, cartID).Scan(&count)
	return count, err
}

func (r *postgresRepo) Delete(ctx context.Context, cartID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Merge folds an anonymous cart into the user's cart and returns the resulting cart id.
// Items are unioned by product with quantities summed, and the anonymous cart is
// deleted. If the user has no cart the anonymous cart is reassigned instead. Merging
// a cart that is gone or already owned by the user returns the user's cart unchanged.
func (r *postgresRepo) Merge(ctx context.Context, anonymousCartID, userID string) (string, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	var owner *string
	err = tx.QueryRow(ctx, `SELECT user_id::text FROM carts WHERE id = $1 FOR UPDATE`, anonymousCartID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		var existing string
		if err := tx.QueryRow(ctx, `SELECT id::text FROM carts WHERE user_id = $1`, userID).Scan(&existing); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return "", domain.ErrNotFound
			}
			return "", err
		}
		return existing, tx.Commit(ctx)
	}
	if err != nil {
		return "", err
	}
	if owner != nil {
		if *owner == userID {
			return anonymousCartID, tx.Commit(ctx)
		}
		return "", domain.ErrNotFound
	}

	var target string
	err = tx.QueryRow(ctx, `SELECT id::text FROM carts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&target)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, err := tx.Exec(ctx, `UPDATE carts SET user_id = $1, updated_at = now() WHERE id = $2`, userID, anonymousCartID); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return "", domain.ErrAlreadyExists
			}
			return "", err
		}
		return anonymousCartID, tx.Commit(ctx)
	}
	if err != nil {
		return "", err
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO cart_items (cart_id, product_id, quantity)
SELECT $1, product_id, quantity
FROM cart_items
WHERE cart_id = $2
ON CONFLICT (cart_id, product_id) DO UPDATE
SET quantity = cart_items.quantity + EXCLUDED.quantity
`, target, anonymousCartID); err != nil {
		return "", err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, anonymousCartID); err != nil {
		return "", err
	}
	if err := touchCart(ctx, tx, target); err != nil {
		return "", err
	}
	return target, tx.Commit(ctx)
}

func (r *postgresRepo) fetchCart(ctx context.Context, cartQuery string, args ...interface{}) (*domain.Cart, error) {
	var cart domain.Cart
	err := r.pool.QueryRow(ctx, cartQuery, args...).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	const itemsQuery = `
SELECT ci.id::text, ci.cart_id::text, ci.product_id::text, ci.quantity,
       p.name, p.price_cents, p.quantity, p.sold_out, p.hidden, p.images
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.cart_id = $1
ORDER BY ci.created_at ASC
`
	rows, err := r.pool.Query(ctx, itemsQuery, cart.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.CartItem
		var p domain.Product
		if err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.Quantity,
			&p.Name,
			&p.PriceCents,
			&p.Quantity,
			&p.SoldOut,
			&p.Hidden,
			&p.Images,
		); err != nil {
			return nil, err
		}
		p.ID = item.ProductID
		item.Product = &p
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &cart, nil
}

func touchCart(ctx context.Context, tx pgx.Tx, cartID string) error {
	_, err := tx.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, cartID)
	return err
}
