package testhelpers

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

//go:embed schema.sql
var Schema string

// TestDB holds the database connection for testing
type TestDB struct {
	Pool    *pgxpool.Pool
	Cleanup func()
}

// SetupTestDB connects to TEST_DATABASE_URL when set and otherwise starts a
// throwaway PostgreSQL container. The schema is applied either way.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	dsn := os.Getenv("TEST_DATABASE_URL")
	terminate := func() {}
	if dsn == "" {
		var err error
		dsn, terminate, err = startPostgres(ctx)
		if err != nil {
			t.Skipf("postgres container unavailable: %v", err)
		}
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		terminate()
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		terminate()
		t.Fatalf("Failed to apply schema: %v", err)
	}

	db := &TestDB{
		Pool: pool,
		Cleanup: func() {
			pool.Close()
			terminate()
		},
	}
	t.Cleanup(db.Cleanup)
	return db
}

func startPostgres(ctx context.Context) (string, func(), error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "storefront_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", nil, err
	}
	terminate := func() { _ = container.Terminate(context.Background()) }

	host, err := container.Host(ctx)
	if err != nil {
		terminate()
		return "", nil, err
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		terminate()
		return "", nil, err
	}

	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/storefront_test?sslmode=disable", host, port.Port())
	return dsn, terminate, nil
}

// ResetTables empties every table and restarts the id sequences.
func ResetTables(t *testing.T, db *TestDB) {
	t.Helper()
	_, err := db.Pool.Exec(context.Background(),
		`TRUNCATE reviews, order_items, orders, products, categories, users RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("Failed to reset tables: %v", err)
	}
}

// SetupTestUser creates a user and returns it.
func SetupTestUser(t *testing.T, db *TestDB, name, email string) *models.User {
	t.Helper()
	user := &models.User{Name: name, Email: email}
	if err := repositories.NewUserRepo(db.Pool).Create(context.Background(), user); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

// SetupTestProduct creates a product with the given price and stock.
func SetupTestProduct(t *testing.T, db *TestDB, name, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{Name: name, Price: decimal.RequireFromString(price), Stock: stock}
	if err := repositories.NewProductRepo(db.Pool).Create(context.Background(), product); err != nil {
		t.Fatalf("Failed to create test product: %v", err)
	}
	return product
}

// ProductStock reads the current stock of a product.
func ProductStock(t *testing.T, db *TestDB, productID int64) int {
	t.Helper()
	product, err := repositories.NewProductRepo(db.Pool).GetByID(context.Background(), productID)
	if err != nil {
		t.Fatalf("Failed to read product %d: %v", productID, err)
	}
	return product.Stock
}
