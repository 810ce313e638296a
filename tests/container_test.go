package paging_test

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Container represents a running PostgreSQL testcontainer.
// It provides a fully configured PostgreSQL instance with tables and test data.
type Container struct {
	Container *postgres.PostgresContainer
	DB        *sql.DB
	ConnStr   string
}

// SetupPostgres starts a PostgreSQL container with initialized tables.
func SetupPostgres(ctx context.Context) (*Container, error) {
	// Start PostgreSQL container
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start PostgreSQL container: %w", err)
	}

	// Get connection string
	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	// Connect to database
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Create tables
	if err := createTables(ctx, db); err != nil {
		db.Close()
		pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &Container{
		Container: pgContainer,
		DB:        db,
		ConnStr:   connStr,
	}, nil
}

// Terminate stops and removes the PostgreSQL container.
func (c *Container) Terminate(ctx context.Context) error {
	if c.DB != nil {
		c.DB.Close()
	}
	if c.Container != nil {
		return c.Container.Terminate(ctx)
	}
	return nil
}

// createTables creates the products table the end-to-end keyset-pagination
// suite runs against, seeded with the five-row dataset the scenarios in
// S1-S6 are defined over.
func createTables(ctx context.Context, db *sql.DB) error {
	schema := `
		CREATE TABLE products (
			id       INTEGER PRIMARY KEY,
			name     VARCHAR(255) NOT NULL,
			category VARCHAR(255) NOT NULL,
			price    INTEGER NOT NULL,
			likes    INTEGER NOT NULL
		);

		CREATE INDEX idx_products_id ON products(id);
		CREATE INDEX idx_products_category_price_id ON products(category, price DESC, id);
		CREATE INDEX idx_products_likes_id ON products(likes DESC, id);

		INSERT INTO products (id, name, category, price, likes) VALUES
			(1, 'Laptop',   'electronics', 100000, 50),
			(2, 'Phone',    'electronics',  80000, 100),
			(3, 'Book',     'books',        20000, 30),
			(4, 'Tablet',   'electronics',  60000, 70),
			(5, 'Magazine', 'books',         5000, 10);
	`

	_, err := db.ExecContext(ctx, schema)
	return err
}
