package orders

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/joao-fontenele/storefront-api/internal/domain"
)

// memStore mirrors the Postgres repository's semantics closely enough to drive the
// service: conditional status updates, SET NULL on product delete and all-or-nothing
// transactions.
type memStore struct {
	txMu sync.Mutex

	mu           sync.Mutex
	users        map[string]domain.User
	products     map[int64]domain.Product
	orders       map[int64]domain.Order
	nextOrderID  int64
	nextDetailID int64

	failInsertDetail error
}

var _ Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]domain.User{},
		products: map[int64]domain.Product{},
		orders:   map[int64]domain.Order{},
	}
}

func (m *memStore) addUser(u domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *memStore) addProduct(p domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

// deleteProduct behaves like ON DELETE SET NULL on order_details.product_id.
func (m *memStore) deleteProduct(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
	for oid, o := range m.orders {
		for i := range o.Details {
			if o.Details[i].ProductID != nil && *o.Details[i].ProductID == id {
				o.Details[i].ProductID = nil
			}
		}
		m.orders[oid] = o
	}
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *memStore) rawOrder(id int64) (domain.Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	return o, ok
}

func (m *memStore) WithTx(ctx context.Context, fn func(q Queries) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	orders := cloneOrders(m.orders)
	nextOrderID, nextDetailID := m.nextOrderID, m.nextDetailID
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.orders = orders
		m.nextOrderID, m.nextDetailID = nextOrderID, nextDetailID
		m.mu.Unlock()
		return err
	}

	return nil
}

func (m *memStore) GetUser(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return &u, nil
}

func (m *memStore) ProductsByID(_ context.Context, ids []int64) (map[int64]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[int64]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *memStore) InsertOrder(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextOrderID++
	order.ID = m.nextOrderID

	for i := range order.Details {
		if m.failInsertDetail != nil && i > 0 {
			// the order row already exists; the transaction must undo it
			m.orders[order.ID] = stripped(*order)
			return m.failInsertDetail
		}
		m.nextDetailID++
		order.Details[i].ID = m.nextDetailID
		order.Details[i].OrderID = order.ID
	}

	m.orders[order.ID] = stripped(*order)
	return nil
}

func (m *memStore) GetOrder(_ context.Context, id int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}
	hydrated := m.hydrate(o)
	return &hydrated, nil
}

func (m *memStore) ListOrders(_ context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []domain.Order{}
	for _, o := range m.orders {
		if filter.CustomerID != "" && o.CustomerID != filter.CustomerID {
			continue
		}
		if filter.ShipperID != "" && o.ShipperID != filter.ShipperID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, m.hydrate(o))
	}

	slices.SortFunc(out, func(a, b domain.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})

	return out, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id int64, from, to domain.OrderStatus, shipperID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}
	if o.Status != from {
		return fmt.Errorf("order %d is no longer %s: %w", id, from, domain.ErrConflict)
	}

	o.Status = to
	if shipperID != "" {
		o.ShipperID = shipperID
	}
	o.UpdatedAt = at
	m.orders[id] = o

	return nil
}

func (m *memStore) DeleteOrder(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[id]; !ok {
		return fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}
	delete(m.orders, id)
	return nil
}

// hydrate joins users and products the way the SQL read path does. Caller holds mu.
func (m *memStore) hydrate(o domain.Order) domain.Order {
	o = cloneOrder(o)

	if c, ok := m.users[o.CustomerID]; ok {
		o.Customer = &c
	}
	if o.ShipperID != "" {
		if s, ok := m.users[o.ShipperID]; ok {
			o.Shipper = &s
		}
	}

	for i := range o.Details {
		o.Details[i].ProductName = ""
		if pid := o.Details[i].ProductID; pid != nil {
			if p, ok := m.products[*pid]; ok {
				o.Details[i].ProductName = p.Name
			}
		}
	}

	return o
}

func stripped(o domain.Order) domain.Order {
	o = cloneOrder(o)
	o.Customer = nil
	o.Shipper = nil
	return o
}

func cloneOrder(o domain.Order) domain.Order {
	details := make([]domain.OrderDetail, len(o.Details))
	for i, d := range o.Details {
		if d.ProductID != nil {
			pid := *d.ProductID
			d.ProductID = &pid
		}
		details[i] = d
	}
	o.Details = details
	return o
}

func cloneOrders(in map[int64]domain.Order) map[int64]domain.Order {
	out := maps.Clone(in)
	for id, o := range out {
		out[id] = cloneOrder(o)
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OrderEvent
	err    error
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, event domain.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []domain.OrderEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.OrderEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

var errDetailWrite = errors.New("detail write failed")
