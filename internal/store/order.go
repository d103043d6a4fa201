package store

import (
	"sync"

	"github.com/raulikeda/EventBacktesting/internal/domain"
)

// OrderStore is a thread-safe in-memory store for every order allocated in
// a run, with a primary index by order id and a secondary index by owner.
// The engine writes, the report surface reads.
type OrderStore struct {
	mu          sync.RWMutex
	orders      map[int64]*domain.Order
	ownerOrders map[string][]*domain.Order // owner → orders (append-only)
}

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders:      make(map[int64]*domain.Order),
		ownerOrders: make(map[string][]*domain.Order),
	}
}

// Create adds an order to the store and appends it to the owner's
// secondary index.
func (s *OrderStore) Create(o *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[o.ID] = o
	s.ownerOrders[o.Owner] = append(s.ownerOrders[o.Owner], o)
}

// Get retrieves an order by ID. It returns
// domain.ErrOrderNotFound if the order does not exist.
func (s *OrderStore) Get(id int64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

// ListByOwner returns the owner's orders in submission order. Returns an
// empty slice when the owner has no orders.
func (s *OrderStore) ListByOwner(owner string) []*domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.ownerOrders[owner]
	out := make([]*domain.Order, len(all))
	copy(out, all)
	return out
}

// Count returns the number of orders allocated so far.
func (s *OrderStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}
