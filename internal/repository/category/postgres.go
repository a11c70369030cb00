package category

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"wexcommerce/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Category, error) {
	const q = `
SELECT id::text, name, slug, parent_id::text, created_at
FROM categories
ORDER BY name ASC
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.ParentID, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Upsert inserts a category keyed by slug, updating name and parent on conflict.
func (r *postgresRepo) Upsert(ctx context.Context, c domain.Category) (*domain.Category, error) {
	const q = `
INSERT INTO categories (name, slug, parent_id)
VALUES ($1, $2, $3::uuid)
ON CONFLICT (slug) DO UPDATE
SET name = EXCLUDED.name,
    parent_id = COALESCE(EXCLUDED.parent_id, categories.parent_id)
RETURNING id::text, name, slug, parent_id::text, created_at
`
	var out domain.Category
	err := r.pool.QueryRow(ctx, q, c.Name, c.Slug, c.ParentID).Scan(&out.ID, &out.Name, &out.Slug, &out.ParentID, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
