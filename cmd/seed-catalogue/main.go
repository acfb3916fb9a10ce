// Command seed-catalogue connects with the server's DB_* settings, applies the
// schema and loads a small sample catalogue.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"leaf-kart/internal/config"
	"leaf-kart/internal/database"

	"github.com/shopspring/decimal"
)

var sampleProducts = []struct {
	id, name, price, category string
}{
	{"SKU-SPINACH", "Baby Spinach 200g", "3.49", "Greens"},
	{"SKU-KALE", "Curly Kale", "2.99", "Greens"},
	{"SKU-BASIL", "Sweet Basil Pot", "2.25", "Herbs"},
	{"SKU-MINT", "Garden Mint", "1.95", "Herbs"},
	{"SKU-APPLES", "Braeburn Apples 1kg", "4.10", "Fruit"},
	{"SKU-DATES", "Medjool Dates 500g", "6.75", "Fruit"},
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := config.NewLogger(cfg.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	var dbName string
	if err := pool.QueryRow(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	fmt.Printf("Connected to database: %s\n", dbName)

	if err := database.Migrate(ctx, pool, logger); err != nil {
		return err
	}

	query := `
		INSERT INTO products (id, name, price, category, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price, category = EXCLUDED.category
	`
	for _, p := range sampleProducts {
		price, err := decimal.NewFromString(p.price)
		if err != nil {
			return fmt.Errorf("bad price for %s: %w", p.id, err)
		}
		if _, err := pool.Exec(ctx, query, p.id, p.name, price, p.category); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", p.id, err)
		}
		fmt.Printf("  - %s %s (%s)\n", p.id, p.name, price.StringFixed(2))
	}

	fmt.Printf("Seeded %d products\n", len(sampleProducts))
	return nil
}
