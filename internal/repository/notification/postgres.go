package notification

import (
	"context"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"wexcommerce/internal/domain"
)

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

func (r *postgresRepo) List(ctx context.Context, userID string, page, size int) ([]domain.Notification, int, error) {
	const q = `
SELECT id::text, user_id::text, order_id::text, message, is_read, created_at, count(*) OVER ()
FROM notifications
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`
	rows, err := r.pool.Query(ctx, q, userID, size, (page-1)*size)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		result []domain.Notification
		total  int
	)
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.OrderID, &n.Message, &n.IsRead, &n.CreatedAt, &total); err != nil {
			return nil, 0, err
		}
		result = append(result, n)
	}
	return result, total, rows.Err()
}

func (r *postgresRepo) Counter(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
SELECT COALESCE((SELECT count FROM notification_counters WHERE user_id = $1), 0)
`, userID).Scan(&count)
	return count, err
}

// SetRead flips the read flag and moves the counter by the number of rows that
// actually changed, so repeated calls are harmless.
func (r *postgresRepo) SetRead(ctx context.Context, userID string, ids []string, read bool) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
UPDATE notifications
SET is_read = $3
WHERE user_id = $1 AND id = ANY($2::text[]::uuid[]) AND is_read <> $3
`, userID, ids, read)
	if err != nil {
		return 0, err
	}
	changed := cmd.RowsAffected()
	delta := changed
	if read {
		delta = -changed
	}
	if err := bumpCounter(ctx, tx, userID, delta); err != nil {
		return 0, err
	}
	return changed, tx.Commit(ctx)
}

func (r *postgresRepo) Delete(ctx context.Context, userID string, ids []string) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var deleted, unread int64
	err = tx.QueryRow(ctx, `
WITH gone AS (
    DELETE FROM notifications
    WHERE user_id = $1 AND id = ANY($2::text[]::uuid[])
    RETURNING is_read
)
SELECT count(*), count(*) FILTER (WHERE NOT is_read) FROM gone
`, userID, ids).Scan(&deleted, &unread)
	if err != nil {
		return 0, err
	}
	if err := bumpCounter(ctx, tx, userID, -unread); err != nil {
		return 0, err
	}
	return deleted, tx.Commit(ctx)
}

// ReconcileCounters rewrites every counter from the unread notifications and
// returns how many counters were corrected.
func (r *postgresRepo) ReconcileCounters(ctx context.Context) (int64, error) {
	const q = `
WITH actual AS (
    SELECT u.id AS user_id, count(n.id) FILTER (WHERE NOT n.is_read) AS unread
    FROM users u
    LEFT JOIN notifications n ON n.user_id = u.id
    GROUP BY u.id
)
INSERT INTO notification_counters (user_id, count)
SELECT a.user_id, a.unread
FROM actual a
LEFT JOIN notification_counters c ON c.user_id = a.user_id
WHERE c.count IS DISTINCT FROM a.unread AND (c.user_id IS NOT NULL OR a.unread > 0)
ON CONFLICT (user_id) DO UPDATE SET count = EXCLUDED.count
`
	cmd, err := r.pool.Exec(ctx, q)
	if err != nil {
		r.logger.Printf("notification repo: reconcile error=%v", err)
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// Insert stores a notification and increments the user's unread counter inside tx.
func Insert(ctx context.Context, tx pgx.Tx, n domain.Notification) error {
	if _, err := tx.Exec(ctx, `
INSERT INTO notifications (user_id, order_id, message)
VALUES ($1, $2, $3)
`, n.UserID, n.OrderID, n.Message); err != nil {
		return err
	}
	return bumpCounter(ctx, tx, n.UserID, 1)
}

func bumpCounter(ctx context.Context, tx pgx.Tx, userID string, delta int64) error {
	if delta == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
INSERT INTO notification_counters (user_id, count)
VALUES ($1, GREATEST($2, 0))
ON CONFLICT (user_id) DO UPDATE
SET count = GREATEST(notification_counters.count + $2, 0)
`, userID, delta)
	return err
}
