package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storelab/redis-postgres-demo/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id SERIAL PRIMARY KEY,
	username VARCHAR(100) NOT NULL UNIQUE,
	email VARCHAR(255) NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS products (
	id SERIAL PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	price NUMERIC(10,2) NOT NULL,
	stock INT NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS page_visits (
	id SERIAL PRIMARY KEY,
	url VARCHAR(255) NOT NULL UNIQUE,
	visit_count INT NOT NULL DEFAULT 0,
	last_visit TIMESTAMP NOT NULL DEFAULT NOW()
);`

// PostgresDAO issues the same logical operations as RedisDAO against
// PostgreSQL through a pgx connection pool.
type PostgresDAO struct {
	pool *pgxpool.Pool
}

// NewPostgresDAO connects a pool to the given DSN, verifies
// connectivity and bootstraps the schema.
func NewPostgresDAO(ctx context.Context, dsn string) (*PostgresDAO, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &PostgresDAO{pool: pool}, nil
}

// SaveUser inserts a user, or updates it when it already carries an ID.
// Returns the user's ID.
func (d *PostgresDAO) SaveUser(ctx context.Context, user *models.User) (int64, error) {
	if err := user.Validate(); err != nil {
		return 0, err
	}

	if user.ID == 0 {
		err := d.pool.QueryRow(ctx,
			`INSERT INTO users (username, email, created_at) VALUES ($1, $2, $3) RETURNING id`,
			user.Username, user.Email, user.CreatedAt,
		).Scan(&user.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to insert user: %w", err)
		}
		return user.ID, nil
	}

	tag, err := d.pool.Exec(ctx,
		`UPDATE users SET username = $1, email = $2 WHERE id = $3`,
		user.Username, user.Email, user.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrNotFound
	}
	return user.ID, nil
}

// GetUserByID returns the user row with the given ID, or ErrNotFound.
func (d *PostgresDAO) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := d.pool.QueryRow(ctx,
		`SELECT id, username, email, created_at FROM users WHERE id = $1`, id,
	).Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return &user, nil
}

// GetUserByUsername returns the user row with the given username.
func (d *PostgresDAO) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := d.pool.QueryRow(ctx,
		`SELECT id, username, email, created_at FROM users WHERE username = $1`, username,
	).Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", username, err)
	}
	return &user, nil
}

// SaveProduct inserts a product, or updates it when it already carries
// an ID. Returns the product's ID.
func (d *PostgresDAO) SaveProduct(ctx context.Context, product *models.Product) (int64, error) {
	if err := product.Validate(); err != nil {
		return 0, err
	}

	if product.ID == 0 {
		err := d.pool.QueryRow(ctx,
			`INSERT INTO products (name, price, stock, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
			product.Name, product.Price, product.Stock, product.CreatedAt,
		).Scan(&product.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to insert product: %w", err)
		}
		return product.ID, nil
	}

	tag, err := d.pool.Exec(ctx,
		`UPDATE products SET name = $1, price = $2, stock = $3 WHERE id = $4`,
		product.Name, product.Price, product.Stock, product.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrNotFound
	}
	return product.ID, nil
}

// GetProductByID returns the product row with the given ID.
func (d *PostgresDAO) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := d.pool.QueryRow(ctx,
		`SELECT id, name, price, stock, created_at FROM products WHERE id = $1`, id,
	).Scan(&product.ID, &product.Name, &product.Price, &product.Stock, &product.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return &product, nil
}

// UpdateProductStock overwrites a product's stock.
func (d *PostgresDAO) UpdateProductStock(ctx context.Context, id int64, stock int) error {
	tag, err := d.pool.Exec(ctx, `UPDATE products SET stock = $1 WHERE id = $2`, stock, id)
	if err != nil {
		return fmt.Errorf("failed to update product stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementProductStock decrements stock inside a transaction, locking
// the row so concurrent decrements serialize. Returns
// ErrInsufficientStock when the decrement would go negative.
func (d *PostgresDAO) DecrementProductStock(ctx context.Context, id int64, amount int) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var stock int
	err = tx.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1 FOR UPDATE`, id).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read stock for product %d: %w", id, err)
	}

	if stock < amount {
		return ErrInsufficientStock
	}

	if _, err := tx.Exec(ctx, `UPDATE products SET stock = $1 WHERE id = $2`, stock-amount, id); err != nil {
		return fmt.Errorf("failed to decrement stock for product %d: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit stock decrement: %w", err)
	}
	return nil
}

// IncrementPageVisit bumps the visit counter for a URL, inserting the
// row on first visit. Returns the new count.
func (d *PostgresDAO) IncrementPageVisit(ctx context.Context, url string) (int64, error) {
	var count int64
	err := d.pool.QueryRow(ctx, `
		INSERT INTO page_visits (url, visit_count, last_visit) VALUES ($1, 1, NOW())
		ON CONFLICT (url) DO UPDATE SET visit_count = page_visits.visit_count + 1, last_visit = NOW()
		RETURNING visit_count`, url,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to increment visits for %s: %w", url, err)
	}
	return count, nil
}

// PageVisits returns all URL visit counters.
func (d *PostgresDAO) PageVisits(ctx context.Context) (map[string]int64, error) {
	rows, err := d.pool.Query(ctx, `SELECT url, visit_count FROM page_visits`)
	if err != nil {
		return nil, fmt.Errorf("failed to get page visits: %w", err)
	}
	defer rows.Close()

	visits := make(map[string]int64)
	for rows.Next() {
		var url string
		var count int64
		if err := rows.Scan(&url, &count); err != nil {
			return nil, fmt.Errorf("failed to scan page visit row: %w", err)
		}
		visits[url] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read page visits: %w", err)
	}
	return visits, nil
}

// HealthCheck verifies PostgreSQL connectivity
func (d *PostgresDAO) HealthCheck(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Close releases the connection pool
func (d *PostgresDAO) Close() {
	d.pool.Close()
}
