package repository

import (
	"context"
	"testing"
	"time"

	"leaf-kart/internal/database"
	"leaf-kart/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a PostgreSQL testcontainer, applies the schema and
// returns a connection pool.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, database.Migrate(ctx, pool, zerolog.Nop()))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// seedProducts inserts test products into the database.
func seedProducts(t *testing.T, pool *pgxpool.Pool, products []model.Product) {
	t.Helper()
	ctx := context.Background()

	query := `
		INSERT INTO products (id, name, price, category, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	for _, p := range products {
		_, err := pool.Exec(ctx, query, p.ID, p.Name, p.Price, p.Category, p.CreatedAt)
		require.NoError(t, err)
	}
}

func product(id, name, price, category string) model.Product {
	return model.Product{
		ID:        id,
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Category:  category,
		CreatedAt: time.Now(),
	}
}

func TestProductRepository_GetAll(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())

	seedProducts(t, pool, []model.Product{
		product("SKU-1", "Spinach", "2.50", "Greens"),
		product("SKU-2", "Apples", "3.10", "Fruit"),
		product("SKU-3", "Kale", "4.00", "Greens"),
		product("SKU-4", "Dates", "6.75", "Fruit"),
		product("SKU-5", "Basil", "1.20", "Herbs"),
	})

	tests := []struct {
		name     string
		limit    int
		offset   int
		expected int
	}{
		{name: "all products", limit: 10, offset: 0, expected: 5},
		{name: "first page", limit: 2, offset: 0, expected: 2},
		{name: "second page", limit: 2, offset: 2, expected: 2},
		{name: "last page", limit: 2, offset: 4, expected: 1},
		{name: "offset beyond results", limit: 10, offset: 10, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, err := repo.GetAll(context.Background(), tt.limit, tt.offset)

			require.NoError(t, err)
			assert.Len(t, products, tt.expected)

			for i := 1; i < len(products); i++ {
				assert.LessOrEqual(t, products[i-1].Name, products[i].Name)
			}
		})
	}
}

func TestProductRepository_GetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	seedProducts(t, pool, []model.Product{product("SKU-1", "Spinach", "2.50", "Greens")})

	t.Run("existing product keeps exact price", func(t *testing.T) {
		p, err := repo.GetByID(context.Background(), "SKU-1")

		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "Spinach", p.Name)
		assert.True(t, p.Price.Equal(decimal.RequireFromString("2.50")))
		assert.Equal(t, "Greens", p.Category)
	})

	t.Run("missing product", func(t *testing.T) {
		p, err := repo.GetByID(context.Background(), "SKU-404")

		require.NoError(t, err)
		assert.Nil(t, p)
	})
}

func TestProductRepository_GetByIDs(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	seedProducts(t, pool, []model.Product{
		product("SKU-1", "Spinach", "2.50", "Greens"),
		product("SKU-2", "Apples", "3.10", "Fruit"),
		product("SKU-3", "Kale", "4.00", "Greens"),
	})

	tests := []struct {
		name     string
		ids      []string
		expected int
	}{
		{name: "all", ids: []string{"SKU-1", "SKU-2", "SKU-3"}, expected: 3},
		{name: "subset", ids: []string{"SKU-1", "SKU-3"}, expected: 2},
		{name: "some missing", ids: []string{"SKU-1", "SKU-999"}, expected: 1},
		{name: "none exist", ids: []string{"SKU-998", "SKU-999"}, expected: 0},
		{name: "empty list", ids: []string{}, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, err := repo.GetByIDs(context.Background(), tt.ids)

			require.NoError(t, err)
			assert.Len(t, products, tt.expected)
		})
	}
}

func TestProductRepository_ValidateProductsExist(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	seedProducts(t, pool, []model.Product{
		product("SKU-1", "Spinach", "2.50", "Greens"),
		product("SKU-2", "Apples", "3.10", "Fruit"),
	})

	tests := []struct {
		name      string
		ids       []string
		expectErr bool
	}{
		{name: "all exist", ids: []string{"SKU-1", "SKU-2"}},
		{name: "duplicates collapse", ids: []string{"SKU-1", "SKU-1"}},
		{name: "some missing", ids: []string{"SKU-1", "SKU-999"}, expectErr: true},
		{name: "empty list", ids: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.ValidateProductsExist(context.Background(), tt.ids)

			if tt.expectErr {
				assert.ErrorIs(t, err, model.ErrProductNotFound)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProductRepository_ErrorPaths(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProductRepository(pool, zerolog.Nop())
	pool.Close()

	ctx := context.Background()

	products, err := repo.GetAll(ctx, 10, 0)
	require.Error(t, err)
	assert.Nil(t, products)

	p, err := repo.GetByID(ctx, "SKU-1")
	require.Error(t, err)
	assert.Nil(t, p)

	products, err = repo.GetByIDs(ctx, []string{"SKU-1"})
	require.Error(t, err)
	assert.Nil(t, products)

	assert.Error(t, repo.ValidateProductsExist(ctx, []string{"SKU-1"}))
}
