package setting

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

// Get returns the settings row, or defaults when it was never written.
func (r *postgresRepo) Get(ctx context.Context) (*domain.Setting, error) {
	const q = `
SELECT currency, contact_email, bank_name, account_holder, iban, swift
FROM settings
WHERE id = 1
`
	var s domain.Setting
	err := r.pool.QueryRow(ctx, q).Scan(&s.Currency, &s.ContactEmail, &s.BankName, &s.AccountHolder, &s.IBAN, &s.SWIFT)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.Setting{Currency: "USD"}, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *postgresRepo) Update(ctx context.Context, s domain.Setting) error {
	const q = `
INSERT INTO settings (id, currency, contact_email, bank_name, account_holder, iban, swift)
VALUES (1, $1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
    currency = EXCLUDED.currency,
    contact_email = EXCLUDED.contact_email,
    bank_name = EXCLUDED.bank_name,
    account_holder = EXCLUDED.account_holder,
    iban = EXCLUDED.iban,
    swift = EXCLUDED.swift
`
	_, err := r.pool.Exec(ctx, q, s.Currency, s.ContactEmail, s.BankName, s.AccountHolder, s.IBAN, s.SWIFT)
	return err
}
