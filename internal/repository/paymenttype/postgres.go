package paymenttype

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

func (r *postgresRepo) List(ctx context.Context) ([]domain.PaymentType, error) {
	rows, err := r.pool.Query(ctx, `SELECT id::text, name, enabled FROM payment_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PaymentType
	for rows.Next() {
		var p domain.PaymentType
		if err := rows.Scan(&p.ID, &p.Name, &p.Enabled); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.PaymentType, error) {
	var p domain.PaymentType
	err := r.pool.QueryRow(ctx, `SELECT id::text, name, enabled FROM payment_types WHERE id = $1`, id).Scan(&p.ID, &p.Name, &p.Enabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) Update(ctx context.Context, p domain.PaymentType) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE payment_types SET enabled = $2 WHERE id = $1`, p.ID, p.Enabled)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
