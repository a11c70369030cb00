package main

import (
	"context"
	"log"
	"os"

	"wexcommerce/internal/config"
	"wexcommerce/internal/db"
	"wexcommerce/internal/seed"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	admin := seed.Admin{Email: cfg.AdminEmail, Password: cfg.AdminPassword}
	if err := seed.Apply(ctx, pool, admin, logger); err != nil {
		logger.Fatalf("seed apply: %v", err)
	}

	logger.Println("seed applied")
}
