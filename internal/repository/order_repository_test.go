package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"leaf-kart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupOrderTestDB returns a migrated database with a small catalogue.
func setupOrderTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	pool, cleanup := setupTestDB(t)
	seedProducts(t, pool, []model.Product{
		product("SKU-1", "Spinach", "10.00", "Greens"),
		product("SKU-2", "Basil", "5.00", "Herbs"),
	})
	return pool, cleanup
}

func newTestOrder(code string, method model.PaymentMethod, status model.OrderStatus) *model.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	id := uuid.New()
	items := []model.OrderItem{
		{ID: uuid.New(), OrderID: id, Position: 0, ProductID: "SKU-1", ProductName: "Spinach", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
		{ID: uuid.New(), OrderID: id, Position: 1, ProductID: "SKU-2", ProductName: "Basil", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
	}
	return &model.Order{
		ID:            id,
		PickupCode:    code,
		CustomerID:    "member-1",
		Items:         items,
		Total:         model.ComputeTotal(items),
		PaymentMethod: method,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// insertOrder writes an order, its items and its initial log row in one transaction.
func insertOrder(t *testing.T, repo OrderRepository, order *model.Order) {
	t.Helper()
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	require.NoError(t, repo.CreateOrder(ctx, tx, order))
	require.NoError(t, repo.CreateOrderItems(ctx, tx, order.Items))
	require.NoError(t, repo.InsertStatusChange(ctx, tx, &model.StatusChange{
		OrderID:   order.ID,
		ToStatus:  order.Status,
		ChangedBy: order.CustomerID,
		ChangedAt: order.CreatedAt,
	}))
	require.NoError(t, tx.Commit(ctx))
}

func TestOrderRepository_CreateAndGet(t *testing.T) {
	pool, cleanup := setupOrderTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())
	order := newTestOrder("C123456", model.PaymentMethodCash, model.StatusPending)
	insertOrder(t, repo, order)

	ctx := context.Background()

	t.Run("by id", func(t *testing.T) {
		got, err := repo.GetByID(ctx, order.ID)
		require.NoError(t, err)
		require.NotNil(t, got)

		assert.Equal(t, "C123456", got.PickupCode)
		assert.Equal(t, model.StatusPending, got.Status)
		assert.Equal(t, model.PaymentMethodCash, got.PaymentMethod)
		assert.True(t, got.Total.Equal(decimal.RequireFromString("25.00")))
		require.Len(t, got.Items, 2)
		assert.Equal(t, "SKU-1", got.Items[0].ProductID)
		assert.Equal(t, "SKU-2", got.Items[1].ProductID)
		assert.True(t, got.TotalMatchesItems())
		assert.False(t, got.CashReceived.Valid)
		assert.Nil(t, got.ProcessedAt)
	})

	t.Run("by pickup code", func(t *testing.T) {
		got, err := repo.GetByPickupCode(ctx, "C123456")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, order.ID, got.ID)
	})

	t.Run("unknown code", func(t *testing.T) {
		got, err := repo.GetByPickupCode(ctx, "C000000")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("unknown id", func(t *testing.T) {
		got, err := repo.GetByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestOrderRepository_CreateOrder_CodeCollision(t *testing.T) {
	pool, cleanup := setupOrderTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())
	insertOrder(t, repo, newTestOrder("P654321", model.PaymentMethodInAppCard, model.StatusPending))

	ctx := context.Background()
	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	err = repo.CreateOrder(ctx, tx, newTestOrder("P654321", model.PaymentMethodInAppCard, model.StatusPending))
	assert.ErrorIs(t, err, model.ErrPickupCodeTaken)
}

func TestOrderRepository_GetByPaymentSession(t *testing.T) {
	pool, cleanup := setupOrderTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())
	order := newTestOrder("P111111", model.PaymentMethodInAppCard, model.StatusPending)
	session := "cs_test_1"
	order.PaymentSessionID = &session
	insertOrder(t, repo, order)

	got, err := repo.GetByPaymentSession(context.Background(), session)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, order.ID, got.ID)
	require.NotNil(t, got.PaymentSessionID)
	assert.Equal(t, session, *got.PaymentSessionID)
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	pool, cleanup := setupOrderTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())
	order := newTestOrder("C222222", model.PaymentMethodCash, model.StatusAwaitingPickup)
	insertOrder(t, repo, order)

	ctx := context.Background()
	note := "paid with a fifty"

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	applied, err := repo.UpdateStatus(ctx, tx, &model.StatusUpdate{
		OrderID:        order.ID,
		From:           model.StatusAwaitingPickup,
		To:             model.StatusCashPaidInStore,
		ChangedBy:      "staff-7",
		At:             time.Now().UTC(),
		Notes:          &note,
		CashReceived:   decimal.NewNullDecimal(decimal.RequireFromString("50.00")),
		AmountMismatch: true,
	})
	require.NoError(t, err)
	require.True(t, applied)
	require.NoError(t, tx.Commit(ctx))

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCashPaidInStore, got.Status)
	require.NotNil(t, got.ProcessedBy)
	assert.Equal(t, "staff-7", *got.ProcessedBy)
	assert.NotNil(t, got.ProcessedAt)
	require.True(t, got.CashReceived.Valid)
	assert.True(t, got.CashReceived.Decimal.Equal(decimal.RequireFromString("50.00")))
	assert.True(t, got.AmountMismatch)
	require.NotNil(t, got.Notes)
	assert.Equal(t, note, *got.Notes)

	t.Run("stale expected status is not applied", func(t *testing.T) {
		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback(ctx) }()

		applied, err := repo.UpdateStatus(ctx, tx, &model.StatusUpdate{
			OrderID:   order.ID,
			From:      model.StatusAwaitingPickup,
			To:        model.StatusCancelled,
			ChangedBy: "staff-8",
			At:        time.Now().UTC(),
		})
		require.NoError(t, err)
		assert.False(t, applied)
	})
}

func TestOrderRepository_UpdateStatus_PaidStampsPaidAt(t *testing.T) {
	pool, cleanup := setupOrderTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())
	order := newTestOrder("P333333", model.PaymentMethodInAppCard, model.StatusPending)
	insertOrder(t, repo, order)

	ctx := context.Background()
	txID := "pi_123"

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	applied, err := repo.UpdateStatus(ctx, tx, &model.StatusUpdate{
		OrderID:       order.ID,
		From:          model.StatusPending,
		To:            model.StatusPaidInApp,
		ChangedBy:     "gateway",
		At:            time.Now().UTC(),
		TransactionID: &txID,
	})
	require.NoError(t, err)
	require.True(t, applied)
	require.NoError(t, tx.Commit(ctx))

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaidInApp, got.Status)
	assert.NotNil(t, got.PaidAt)
	assert.Nil(t, got.ProcessedAt)
	require.NotNil(t, got.PaymentTransactionID)
	assert.Equal(t, txID, *got.PaymentTransactionID)
}

func TestOrderRepository_UpdateStatus_ConcurrentSingleWinner(t *testing.T) {
	pool, cleanup := setupOrderTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())
	order := newTestOrder("P444444", model.PaymentMethodInAppCard, model.StatusAwaitingPickup)
	insertOrder(t, repo, order)

	ctx := context.Background()
	const workers = 4

	var wg sync.WaitGroup
	results := make(chan bool, workers)
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			tx, err := repo.BeginTx(ctx)
			if err != nil {
				errs <- err
				return
			}
			defer func() { _ = tx.Rollback(ctx) }()

			applied, err := repo.UpdateStatus(ctx, tx, &model.StatusUpdate{
				OrderID:   order.ID,
				From:      model.StatusAwaitingPickup,
				To:        model.StatusPickedUp,
				ChangedBy: "staff",
				At:        time.Now().UTC(),
			})
			if err != nil {
				errs <- err
				return
			}
			if err := tx.Commit(ctx); err != nil {
				errs <- err
				return
			}
			results <- applied
		}()
	}

	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	winners := 0
	for applied := range results {
		if applied {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestOrderRepository_History(t *testing.T) {
	pool, cleanup := setupOrderTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())
	order := newTestOrder("C555555", model.PaymentMethodCash, model.StatusPending)
	insertOrder(t, repo, order)

	ctx := context.Background()
	from := model.StatusPending

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.InsertStatusChange(ctx, tx, &model.StatusChange{
		OrderID:    order.ID,
		FromStatus: &from,
		ToStatus:   model.StatusAwaitingPickup,
		ChangedBy:  "staff-1",
		ChangedAt:  time.Now().UTC().Add(time.Second),
	}))
	require.NoError(t, tx.Commit(ctx))

	history, err := repo.GetHistory(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Nil(t, history[0].FromStatus)
	assert.Equal(t, model.StatusPending, history[0].ToStatus)
	require.NotNil(t, history[1].FromStatus)
	assert.Equal(t, model.StatusPending, *history[1].FromStatus)
	assert.Equal(t, model.StatusAwaitingPickup, history[1].ToStatus)
	assert.Equal(t, "staff-1", history[1].ChangedBy)
}

func TestOrderRepository_List(t *testing.T) {
	pool, cleanup := setupOrderTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())
	insertOrder(t, repo, newTestOrder("C100001", model.PaymentMethodCash, model.StatusPending))
	insertOrder(t, repo, newTestOrder("C100002", model.PaymentMethodCash, model.StatusAwaitingPickup))
	other := newTestOrder("P100003", model.PaymentMethodInAppCard, model.StatusPending)
	other.CustomerID = "member-2"
	insertOrder(t, repo, other)

	ctx := context.Background()

	all, err := repo.List(ctx, model.OrderFilter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	for _, o := range all {
		assert.Len(t, o.Items, 2)
	}

	pending := model.StatusPending
	filtered, err := repo.List(ctx, model.OrderFilter{Status: &pending, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, filtered, 2)

	mine, err := repo.ListByCustomer(ctx, "member-2", 10, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "P100003", mine[0].PickupCode)

	none, err := repo.ListByCustomer(ctx, "member-404", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestOrderRepository_TransactionRollback(t *testing.T) {
	pool, cleanup := setupOrderTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())
	ctx := context.Background()
	order := newTestOrder("C666666", model.PaymentMethodCash, model.StatusPending)

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.CreateOrder(ctx, tx, order))
	require.NoError(t, tx.Rollback(ctx))

	got, err := repo.GetByPickupCode(ctx, "C666666")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOrderRepository_ErrorPaths(t *testing.T) {
	pool, cleanup := setupOrderTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool, zerolog.Nop())
	pool.Close()

	ctx := context.Background()

	_, err := repo.BeginTx(ctx)
	assert.Error(t, err)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.Error(t, err)

	_, err = repo.List(ctx, model.OrderFilter{Limit: 5})
	assert.Error(t, err)

	_, err = repo.GetHistory(ctx, uuid.New())
	assert.Error(t, err)
}
