package seed

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// Admin is the back-office account created by Apply. An empty password skips it.
type Admin struct {
	Email    string
	Password string
}

type productSeed struct {
	ID          string
	Name        string
	Description string
	PriceCents  int64
	Quantity    int
	Featured    bool
}

var deliveryTypes = []struct {
	Name       string
	PriceCents int64
}{
	{"Shipping", 1500},
	{"Withdrawal", 0},
}

var paymentTypes = []string{"Stripe", "PayPal", "CashOnDelivery", "WireTransfer"}

var products = []productSeed{
	{
		ID:          "6b1f3c5e-8d2a-4e7b-9c10-5a1e2f3d4c01",
		Name:        "Demo T-Shirt",
		Description: "Soft cotton tee for demo purposes",
		PriceCents:  1999,
		Quantity:    25,
		Featured:    true,
	},
	{
		ID:          "6b1f3c5e-8d2a-4e7b-9c10-5a1e2f3d4c02",
		Name:        "Demo Mug",
		Description: "Ceramic mug with demo logo",
		PriceCents:  1299,
		Quantity:    40,
	},
}

// Apply inserts lookup rows, the settings row, an admin account and demo
// products. It is idempotent via ON CONFLICT and never overwrites values an
// admin may have edited.
func Apply(ctx context.Context, pool *pgxpool.Pool, admin Admin, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	for _, d := range deliveryTypes {
		const q = `INSERT INTO delivery_types (name, price_cents) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`
		if _, err := pool.Exec(ctx, q, d.Name, d.PriceCents); err != nil {
			return fmt.Errorf("seed delivery type %s: %w", d.Name, err)
		}
	}
	for _, name := range paymentTypes {
		const q = `INSERT INTO payment_types (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`
		if _, err := pool.Exec(ctx, q, name); err != nil {
			return fmt.Errorf("seed payment type %s: %w", name, err)
		}
	}
	if _, err := pool.Exec(ctx, `INSERT INTO settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING`); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}

	if admin.Password != "" {
		created, err := ensureAdmin(ctx, pool, admin)
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		if created {
			logger.Printf("seed: created admin email=%s", admin.Email)
		}
	} else {
		logger.Printf("seed: ADMIN_PASSWORD not set, skipping admin account")
	}

	for _, p := range products {
		if err := insertProduct(ctx, pool, p); err != nil {
			return fmt.Errorf("seed product %s: %w", p.Name, err)
		}
	}
	return nil
}

func ensureAdmin(ctx context.Context, pool *pgxpool.Pool, admin Admin) (bool, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}
	const q = `
INSERT INTO users (email, full_name, type, password_hash)
VALUES ($1, 'Administrator', 'admin', $2)
ON CONFLICT ((lower(email))) DO NOTHING
`
	tag, err := pool.Exec(ctx, q, strings.ToLower(admin.Email), string(hash))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func insertProduct(ctx context.Context, pool *pgxpool.Pool, p productSeed) error {
	const q = `
INSERT INTO products (id, name, description, price_cents, quantity, sold_out, featured)
VALUES ($1::uuid, $2, $3, $4, $5, $5 = 0, $6)
ON CONFLICT (id) DO NOTHING
`
	_, err := pool.Exec(ctx, q, p.ID, p.Name, p.Description, p.PriceCents, p.Quantity, p.Featured)
	return err
}
