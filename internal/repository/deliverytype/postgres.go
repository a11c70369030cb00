package deliverytype

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"wexcommerce/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.DeliveryType, error) {
	rows, err := r.pool.Query(ctx, `SELECT id::text, name, enabled, price_cents FROM delivery_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DeliveryType
	for rows.Next() {
		var d domain.DeliveryType
		if err := rows.Scan(&d.ID, &d.Name, &d.Enabled, &d.PriceCents); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.DeliveryType, error) {
	var d domain.DeliveryType
	err := r.pool.QueryRow(ctx, `SELECT id::text, name, enabled, price_cents FROM delivery_types WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.Enabled, &d.PriceCents)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *postgresRepo) Update(ctx context.Context, d domain.DeliveryType) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE delivery_types SET enabled = $2, price_cents = $3 WHERE id = $1`, d.ID, d.Enabled, d.PriceCents)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
