package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"leaf-kart/internal/events"
	"leaf-kart/internal/model"
	"leaf-kart/internal/payment"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory order, cart and product store. Writes apply
// immediately under the lock and are undone if the transaction rolls back,
// which mirrors row locking closely enough for compare-and-set tests.
type memStore struct {
	mu       sync.Mutex
	products map[string]model.Product
	orders   map[uuid.UUID]*model.Order
	history  []model.StatusChange
	carts    map[string][]model.CartItem

	collisions int   // CreateOrder reports a code collision this many times
	createErr  error // CreateOrder fails with this error when set
	commitErr  error
}

func newMemStore(products ...model.Product) *memStore {
	s := &memStore{
		products: map[string]model.Product{},
		orders:   map[uuid.UUID]*model.Order{},
		carts:    map[string][]model.CartItem{},
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

type memTx struct {
	pgx.Tx
	store  *memStore
	undo   []func()
	closed bool
}

func (tx *memTx) Commit(context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true
	if err := tx.store.commitErr; err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (tx *memTx) Rollback(context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true
	tx.rollback()
	return nil
}

func (tx *memTx) rollback() {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
}

func cloneOrder(o *model.Order) *model.Order {
	c := *o
	c.Items = append([]model.OrderItem(nil), o.Items...)
	return &c
}

// ProductRepository

func (s *memStore) GetAll(_ context.Context, limit, offset int) ([]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Product{}
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if offset >= len(out) {
		return []model.Product{}, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (s *memStore) GetByIDs(_ context.Context, ids []string) ([]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Product{}
	seen := map[string]bool{}
	for _, id := range ids {
		if p, ok := s.products[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) ValidateProductsExist(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if _, ok := s.products[id]; !ok {
			return model.ErrProductNotFound
		}
	}
	return nil
}

// productRepo exposes the product half of memStore, whose GetByID is taken
// by the order repository.
type productRepo struct{ *memStore }

func (r productRepo) GetByID(_ context.Context, id string) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.products[id]; ok {
		return &p, nil
	}
	return nil, nil
}

// OrderRepository

func (s *memStore) BeginTx(context.Context) (pgx.Tx, error) {
	return &memTx{store: s}, nil
}

func (s *memStore) CreateOrder(_ context.Context, tx pgx.Tx, order *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return s.createErr
	}
	if s.collisions > 0 {
		s.collisions--
		return fmt.Errorf("failed to create order: %w", model.ErrPickupCodeTaken)
	}
	for _, o := range s.orders {
		if o.PickupCode == order.PickupCode {
			return fmt.Errorf("failed to create order: %w", model.ErrPickupCodeTaken)
		}
	}

	s.orders[order.ID] = cloneOrder(order)
	s.orders[order.ID].Items = nil
	id := order.ID
	tx.(*memTx).undo = append(tx.(*memTx).undo, func() { delete(s.orders, id) })
	return nil
}

func (s *memStore) CreateOrderItems(_ context.Context, tx pgx.Tx, items []model.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		o, ok := s.orders[item.OrderID]
		if !ok {
			return fmt.Errorf("order %s missing", item.OrderID)
		}
		o.Items = append(o.Items, item)
	}
	return nil
}

func (s *memStore) InsertStatusChange(_ context.Context, tx pgx.Tx, change *model.StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	change.ID = int64(len(s.history) + 1)
	s.history = append(s.history, *change)
	n := len(s.history)
	tx.(*memTx).undo = append(tx.(*memTx).undo, func() { s.history = s.history[:n-1] })
	return nil
}

func (s *memStore) UpdateStatus(_ context.Context, tx pgx.Tx, u *model.StatusUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[u.OrderID]
	if !ok || o.Status != u.From {
		return false, nil
	}

	before := cloneOrder(o)
	tx.(*memTx).undo = append(tx.(*memTx).undo, func() { s.orders[u.OrderID] = before })

	o.Status = u.To
	o.UpdatedAt = u.At
	if u.To.IsTerminal() {
		at, by := u.At, u.ChangedBy
		o.ProcessedAt, o.ProcessedBy = &at, &by
	}
	if u.To == model.StatusPaidInApp {
		at := u.At
		o.PaidAt = &at
	}
	if u.Notes != nil {
		o.Notes = u.Notes
	}
	if u.CashReceived.Valid {
		o.CashReceived = u.CashReceived
	}
	o.AmountMismatch = o.AmountMismatch || u.AmountMismatch
	if u.TransactionID != nil {
		o.PaymentTransactionID = u.TransactionID
	}
	return true, nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok {
		return cloneOrder(o), nil
	}
	return nil, nil
}

func (s *memStore) GetByPickupCode(_ context.Context, code string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.PickupCode == code {
			return cloneOrder(o), nil
		}
	}
	return nil, nil
}

func (s *memStore) GetByPaymentSession(_ context.Context, sessionID string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.PaymentSessionID != nil && *o.PaymentSessionID == sessionID {
			return cloneOrder(o), nil
		}
	}
	return nil, nil
}

func (s *memStore) ListByCustomer(_ context.Context, customerID string, limit, offset int) ([]model.Order, error) {
	all, _ := s.List(context.Background(), model.OrderFilter{Limit: 1 << 20})
	out := []model.Order{}
	for _, o := range all {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return page(out, limit, offset), nil
}

func (s *memStore) List(_ context.Context, f model.OrderFilter) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Order{}
	for _, o := range s.orders {
		if f.Status == nil || o.Status == *f.Status {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), nil
}

func page(orders []model.Order, limit, offset int) []model.Order {
	if offset >= len(orders) {
		return []model.Order{}
	}
	end := offset + limit
	if end > len(orders) {
		end = len(orders)
	}
	return orders[offset:end]
}

func (s *memStore) GetHistory(_ context.Context, orderID uuid.UUID) ([]model.StatusChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.StatusChange{}
	for _, c := range s.history {
		if c.OrderID == orderID {
			out = append(out, c)
		}
	}
	return out, nil
}

// CartRepository

func (s *memStore) GetItems(_ context.Context, customerID string) ([]model.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.CartItem{}, s.carts[customerID]...), nil
}

func (s *memStore) UpsertItem(_ context.Context, item *model.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.carts[item.CustomerID]
	for i := range lines {
		if lines[i].ProductID == item.ProductID {
			lines[i].Quantity = item.Quantity
			return nil
		}
	}
	s.carts[item.CustomerID] = append(lines, *item)
	return nil
}

func (s *memStore) RemoveItem(_ context.Context, customerID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.carts[customerID]
	for i := range lines {
		if lines[i].ProductID == productID {
			s.carts[customerID] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *memStore) Clear(_ context.Context, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, customerID)
	return nil
}

func (s *memStore) ClearTx(_ context.Context, tx pgx.Tx, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.carts[customerID]
	delete(s.carts, customerID)
	tx.(*memTx).undo = append(tx.(*memTx).undo, func() {
		if before != nil {
			s.carts[customerID] = before
		}
	})
	return nil
}

// historyFor returns the status log for one order.
func (s *memStore) historyFor(id uuid.UUID) []model.StatusChange {
	h, _ := s.GetHistory(context.Background(), id)
	return h
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Event + ":" + string(e.Status)
	}
	return out
}

// fakeGateway serves scripted session statuses.
type fakeGateway struct {
	mu        sync.Mutex
	createErr error
	statuses  []*payment.SessionStatus
	polls     int
	created   []payment.SessionRequest
	expired   []string
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created = append(g.created, req)
	id := fmt.Sprintf("cs_test_%d", len(g.created))
	return &payment.Session{ID: id, URL: "https://pay.example/" + id}, nil
}

func (g *fakeGateway) GetSessionStatus(_ context.Context, id string) (*payment.SessionStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.polls
	g.polls++
	if i >= len(g.statuses) {
		i = len(g.statuses) - 1
	}
	st := *g.statuses[i]
	st.ID = id
	return &st, nil
}

func (g *fakeGateway) ExpireCheckoutSession(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expired = append(g.expired, id)
	return nil
}

func (g *fakeGateway) expiredIDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.expired...)
}

func (g *fakeGateway) pollCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.polls
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
