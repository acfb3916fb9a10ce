// Package cart holds the member's in-progress selection before checkout.
package cart

import (
	"leaf-kart/internal/model"

	"github.com/shopspring/decimal"
)

// Line is one product in the cart.
type Line struct {
	Product  model.Product
	Quantity int
}

// Subtotal returns price × quantity for the line.
func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is an ordered list of lines keyed by product id.
type Cart struct {
	lines []Line
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Add adds quantity of product, merging with an existing line. A
// non-positive quantity is rejected.
func (c *Cart) Add(product model.Product, quantity int) error {
	if quantity <= 0 {
		return model.ErrInvalidQuantity
	}
	if i := c.index(product.ID); i >= 0 {
		c.lines[i].Quantity += quantity
		c.lines[i].Product = product
		return nil
	}
	c.lines = append(c.lines, Line{Product: product, Quantity: quantity})
	return nil
}

// Update sets the quantity for product. Zero or negative removes the line.
func (c *Cart) Update(product model.Product, quantity int) {
	if quantity <= 0 {
		c.Remove(product.ID)
		return
	}
	if i := c.index(product.ID); i >= 0 {
		c.lines[i].Quantity = quantity
		c.lines[i].Product = product
		return
	}
	c.lines = append(c.lines, Line{Product: product, Quantity: quantity})
}

// Remove drops the line for productID if present.
func (c *Cart) Remove(productID string) {
	if i := c.index(productID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Subtotal returns the sum of line subtotals.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Total is the amount charged at checkout. There are no taxes or fees on top
// of the subtotal.
func (c *Cart) Total() decimal.Decimal {
	return c.Subtotal()
}

// OrderItems snapshots the cart into order items at current prices.
func (c *Cart) OrderItems() []model.OrderItem {
	items := make([]model.OrderItem, len(c.lines))
	for i, l := range c.lines {
		items[i] = model.OrderItem{
			Position:    i,
			ProductID:   l.Product.ID,
			ProductName: l.Product.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.Product.Price,
		}
	}
	return items
}

// View renders the cart for API responses.
func (c *Cart) View() model.CartView {
	view := model.CartView{
		Lines: make([]model.CartLine, len(c.lines)),
		Total: c.Total(),
	}
	for i, l := range c.lines {
		view.Lines[i] = model.CartLine{
			ProductID:   l.Product.ID,
			ProductName: l.Product.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.Product.Price,
			Subtotal:    l.Subtotal(),
		}
	}
	return view
}

func (c *Cart) index(productID string) int {
	for i, l := range c.lines {
		if l.Product.ID == productID {
			return i
		}
	}
	return -1
}
