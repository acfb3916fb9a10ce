package cart

import (
	"testing"

	"leaf-kart/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	flower = model.Product{ID: "P001", Name: "Flower", Price: decimal.NewFromInt(10)}
	edible = model.Product{ID: "P002", Name: "Edible", Price: decimal.NewFromInt(5)}
)

func TestCart_AddAndTotal(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(flower, 2))
	require.NoError(t, c.Add(edible, 1))

	assert.True(t, decimal.NewFromInt(25).Equal(c.Total()))
	assert.Len(t, c.Lines(), 2)
}

func TestCart_AddMergesLines(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(flower, 1))
	require.NoError(t, c.Add(flower, 2))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestCart_AddRejectsNonPositive(t *testing.T) {
	c := New()

	assert.Equal(t, model.ErrInvalidQuantity, c.Add(flower, 0))
	assert.Equal(t, model.ErrInvalidQuantity, c.Add(flower, -3))
	assert.True(t, c.IsEmpty())
}

func TestCart_Update(t *testing.T) {
	tests := []struct {
		name          string
		quantity      int
		expectedLines int
	}{
		{"set quantity", 4, 2},
		{"zero removes line", 0, 1},
		{"negative removes line", -1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			require.NoError(t, c.Add(flower, 2))
			require.NoError(t, c.Add(edible, 1))

			c.Update(flower, tt.quantity)

			assert.Len(t, c.Lines(), tt.expectedLines)
		})
	}
}

func TestCart_UpdateAddsMissingLine(t *testing.T) {
	c := New()
	c.Update(edible, 3)

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestCart_Remove(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(flower, 2))
	require.NoError(t, c.Add(edible, 1))

	c.Remove("P001")
	c.Remove("missing")

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "P002", lines[0].Product.ID)
}

func TestCart_OrderItemsSnapshotPrices(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(flower, 2))
	require.NoError(t, c.Add(edible, 1))

	items := c.OrderItems()
	require.Len(t, items, 2)
	assert.Equal(t, 0, items[0].Position)
	assert.Equal(t, "Flower", items[0].ProductName)
	assert.True(t, decimal.NewFromInt(10).Equal(items[0].UnitPrice))

	// A later price change on the cart does not touch the snapshot.
	c.Update(model.Product{ID: "P001", Name: "Flower", Price: decimal.NewFromInt(99)}, 2)
	assert.True(t, decimal.NewFromInt(10).Equal(items[0].UnitPrice))
	assert.True(t, decimal.NewFromInt(25).Equal(model.ComputeTotal(items)))
}

func TestCart_View(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(flower, 2))

	view := c.View()
	require.Len(t, view.Lines, 1)
	assert.True(t, decimal.NewFromInt(20).Equal(view.Lines[0].Subtotal))
	assert.True(t, decimal.NewFromInt(20).Equal(view.Total))
}
