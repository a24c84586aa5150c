package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"coffee-eshop-go/internal/catalog"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price NUMERIC(12, 2) NOT NULL CHECK (price >= 0),
		category_id BIGINT NOT NULL REFERENCES categories(id),
		is_available BOOLEAN NOT NULL DEFAULT true,
		stock_quantity INTEGER NOT NULL CHECK (stock_quantity >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category_id ON products(category_id)`,

	`CREATE TABLE IF NOT EXISTS clients (
		id BIGINT PRIMARY KEY,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'User'
	)`,

	`CREATE TABLE IF NOT EXISTS basket_items (
		id BIGSERIAL PRIMARY KEY,
		client_id BIGINT NOT NULL REFERENCES clients(id),
		product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		added_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		UNIQUE (client_id, product_id)
	)`,

	`CREATE TABLE IF NOT EXISTS orders (
		id BIGSERIAL PRIMARY KEY,
		client_id BIGINT NOT NULL REFERENCES clients(id),
		ordered_at TIMESTAMP WITH TIME ZONE NOT NULL,
		total NUMERIC(14, 2) NOT NULL,
		idempotency_key TEXT
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_idempotency ON orders(client_id, idempotency_key) WHERE idempotency_key IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_orders_client_id ON orders(client_id)`,

	`CREATE TABLE IF NOT EXISTS order_items (
		id BIGSERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL,
		product_name TEXT NOT NULL,
		price NUMERIC(12, 2) NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id)`,

	`CREATE TABLE IF NOT EXISTS checkout_attempts (
		id TEXT PRIMARY KEY,
		client_id BIGINT NOT NULL,
		status TEXT NOT NULL,
		order_id BIGINT,
		reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS outbox (
		id BIGSERIAL PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE,
		topic TEXT NOT NULL,
		key TEXT NOT NULL,
		payload JSONB NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		sent_at TIMESTAMP WITH TIME ZONE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(id) WHERE sent_at IS NULL`,

	`CREATE TABLE IF NOT EXISTS inbox (
		event_id TEXT PRIMARY KEY,
		received_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id BIGSERIAL PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE,
		order_id BIGINT NOT NULL,
		client_id BIGINT NOT NULL,
		recipient TEXT NOT NULL,
		subject TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	)`,
}

func (db *DB) Migrate(ctx context.Context) error {
	for _, m := range migrations {
		if _, err := db.pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}

// Seed inserts the catalog rows that are not there yet. Existing rows,
// stock included, are left as they are.
func (db *DB) Seed(ctx context.Context, seed catalog.Seed) error {
	batch := &pgx.Batch{}
	for _, c := range seed.Categories {
		batch.Queue(`INSERT INTO categories(id, name, description) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO NOTHING`, c.ID, c.Name, c.Description)
	}
	for _, p := range seed.Products {
		batch.Queue(`INSERT INTO products(id, name, description, price, category_id, is_available, stock_quantity)
			VALUES ($1, $2, $3, $4::numeric, $5, $6, $7) ON CONFLICT (id) DO NOTHING`,
			p.ID, p.Name, p.Description, p.Price.String(), p.CategoryID, p.Available, p.Stock)
	}
	for _, c := range seed.DomainClients() {
		batch.Queue(`INSERT INTO clients(id, first_name, last_name, email, phone, role)
			VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
			int64(c.ID), c.FirstName, c.LastName, c.Email, c.Phone, string(c.Role))
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := db.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}
	return nil
}
