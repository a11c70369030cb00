package user

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"wexcommerce/internal/domain"
)

const userColumns = `id::text, email, full_name, phone, address, type, password_hash, expire_at, created_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, u domain.User) (*domain.User, error) {
	created, err := Insert(ctx, r.pool, u)
	if err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		r.logger.Printf("user repo: create email=%s error=%v", u.Email, err)
	}
	return created, err
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users
WHERE lower(email) = lower($1)
LIMIT 1
`
	return scanUser(r.pool.QueryRow(ctx, q, strings.TrimSpace(email)))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1
`
	return scanUser(r.pool.QueryRow(ctx, q, id))
}

// DeleteExpired removes temporary users whose checkout never completed.
func (r *postgresRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const q = `
DELETE FROM users u
WHERE u.expire_at IS NOT NULL
  AND u.expire_at < $1
  AND NOT EXISTS (SELECT 1 FROM orders o WHERE o.user_id = u.id AND o.expire_at IS NULL)
`
	cmd, err := r.pool.Exec(ctx, q, now)
	if err != nil {
		r.logger.Printf("user repo: delete expired error=%v", err)
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// Querier is satisfied by both the pool and a transaction.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Insert creates a user with the given querier so callers can enlist it in their transaction.
func Insert(ctx context.Context, q Querier, u domain.User) (*domain.User, error) {
	const stmt = `
INSERT INTO users (email, full_name, phone, address, type, password_hash, expire_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + userColumns
	userType := u.Type
	if userType == "" {
		userType = domain.UserTypeUser
	}
	return scanUser(q.QueryRow(ctx, stmt,
		strings.ToLower(strings.TrimSpace(u.Email)),
		u.FullName,
		u.Phone,
		u.Address,
		string(userType),
		u.PasswordHash,
		u.ExpireAt,
	))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var userType string
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&u.Phone,
		&u.Address,
		&userType,
		&u.PasswordHash,
		&u.ExpireAt,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	u.Type = domain.UserType(userType)
	return &u, nil
}
