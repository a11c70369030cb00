package product

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"wexcommerce/internal/domain"
)

const productColumns = `id::text, name, COALESCE(description, ''), category_ids::text[], price_cents, quantity, sold_out, hidden, featured, images, created_at`

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

func (r *postgresRepo) List(ctx context.Context, f ListFilter) ([]domain.Product, error) {
	q := `
SELECT ` + productColumns + `
FROM products
WHERE ($1 OR NOT hidden)
  AND ($2 = '' OR NULLIF($2, '')::uuid = ANY(category_ids))
  AND ($3 = '' OR name ILIKE '%' || $3 || '%')
  AND (NOT $4 OR featured)
ORDER BY featured DESC, created_at DESC
`
	rows, err := r.pool.Query(ctx, q, f.IncludeHidden, f.CategoryID, strings.TrimSpace(f.Keyword), f.FeaturedOnly)
	if err != nil {
		r.logger.Printf("product repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("product repo: list rows error=%v", err)
		return nil, err
	}
	r.logger.Printf("product repo: list count=%d", len(result))
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	const q = `
SELECT ` + productColumns + `
FROM products
WHERE id = $1
`
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Printf("product repo: get id=%s not found", id)
			return nil, err
		}
		r.logger.Printf("product repo: get id=%s error=%v", id, err)
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	const q = `
SELECT ` + productColumns + `
FROM products
WHERE id = ANY($1::text[]::uuid[])
`
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		r.logger.Printf("product repo: get many count=%d error=%v", len(ids), err)
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]domain.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result[p.ID] = *p
	}
	return result, rows.Err()
}

// Upsert inserts a product, or replaces it when the id already exists.
func (r *postgresRepo) Upsert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (id, name, description, category_ids, price_cents, quantity, sold_out, hidden, featured, images)
VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, NULLIF($3, ''), $4::text[]::uuid[], $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    category_ids = EXCLUDED.category_ids,
    price_cents = EXCLUDED.price_cents,
    quantity = EXCLUDED.quantity,
    sold_out = EXCLUDED.sold_out,
    hidden = EXCLUDED.hidden,
    featured = EXCLUDED.featured,
    images = EXCLUDED.images
RETURNING ` + productColumns
	res, err := scanProduct(r.pool.QueryRow(ctx, q, productArgs(product)...))
	if err != nil {
		r.logger.Printf("product repo: upsert name=%s error=%v", product.Name, err)
		return nil, err
	}
	r.logger.Printf("product repo: upserted id=%s name=%s", res.ID, res.Name)
	return res, nil
}

func (r *postgresRepo) Update(ctx context.Context, product domain.Product) (*domain.Product, error) {
	const q = `
UPDATE products SET
    name = $2,
    description = NULLIF($3, ''),
    category_ids = $4::text[]::uuid[],
    price_cents = $5,
    quantity = $6,
    sold_out = $7,
    hidden = $8,
    featured = $9,
    images = $10
WHERE id = $1
RETURNING ` + productColumns
	res, err := scanProduct(r.pool.QueryRow(ctx, q, productArgs(product)...))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Printf("product repo: update id=%s error=%v", product.ID, err)
		}
		return nil, err
	}
	return res, nil
}

func productArgs(p domain.Product) []any {
	categories := p.CategoryIDs
	if categories == nil {
		categories = []string{}
	}
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return []any{p.ID, p.Name, p.Description, categories, p.PriceCents, p.Quantity, p.SoldOut, p.Hidden, p.Featured, images}
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CategoryIDs, &p.PriceCents, &p.Quantity, &p.SoldOut, &p.Hidden, &p.Featured, &p.Images, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// DecrementStock takes quantity out of stock inside tx and marks the product sold
// out when it reaches zero. In strict mode the update only applies when enough
// stock is left and ok reports whether it did. Otherwise stock is clamped at zero
// and ok reports whether there was enough.
func DecrementStock(ctx context.Context, tx pgx.Tx, productID string, quantity int, strict bool) (bool, error) {
	if strict {
		cmd, err := tx.Exec(ctx, `
UPDATE products
SET quantity = quantity - $1,
    sold_out = sold_out OR quantity = $1
WHERE id = $2 AND quantity >= $1
`, quantity, productID)
		if err != nil {
			return false, fmt.Errorf("decrement stock product_id=%s: %w", productID, err)
		}
		return cmd.RowsAffected() == 1, nil
	}

	var enough bool
	err := tx.QueryRow(ctx, `
WITH prev AS (
    SELECT quantity FROM products WHERE id = $2 FOR UPDATE
)
UPDATE products p
SET quantity = GREATEST(p.quantity - $1, 0),
    sold_out = p.sold_out OR p.quantity <= $1
FROM prev
WHERE p.id = $2
RETURNING prev.quantity >= $1
`, quantity, productID).Scan(&enough)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domain.ErrNotFound
		}
		return false, fmt.Errorf("decrement stock product_id=%s: %w", productID, err)
	}
	return enough, nil
}

// RestoreStock puts quantity back, clearing a sold-out flag that was set by stock
// running out.
func RestoreStock(ctx context.Context, tx pgx.Tx, productID string, quantity int) error {
	_, err := tx.Exec(ctx, `
UPDATE products
SET quantity = quantity + $1,
    sold_out = sold_out AND quantity > 0
WHERE id = $2
`, quantity, productID)
	if err != nil {
		return fmt.Errorf("restore stock product_id=%s: %w", productID, err)
	}
	return nil
}
