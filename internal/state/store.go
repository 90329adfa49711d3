// Package state holds the in-memory entity store: the authoritative view of
// the four collections for the current session.
package state

import (
	"slices"
	"sync"

	"github.com/roach88/brutalist/internal/domain"
)

// Observer is called with a copy of the full snapshot after every applied
// mutation. Observers never see revisions out of order; a notification that
// lost the race to a newer one is dropped. Observers run synchronously on the
// mutating goroutine and must not register or cancel observers themselves.
type Observer func(rev int64, snap domain.Snapshot)

// Replacement names the collections to swap out wholesale. Nil fields keep
// the current value.
type Replacement struct {
	Orders    *[]domain.Order
	Products  *[]domain.Product
	Materials *[]domain.Material
	Settings  *domain.Settings
}

// Full builds a Replacement covering every collection of snap.
func Full(snap domain.Snapshot) Replacement {
	return Replacement{
		Orders:    &snap.Orders,
		Products:  &snap.Products,
		Materials: &snap.Materials,
		Settings:  &snap.Settings,
	}
}

// Empty reports whether r would change nothing.
func (r Replacement) Empty() bool {
	return r.Orders == nil && r.Products == nil && r.Materials == nil && r.Settings == nil
}

// Store is safe for concurrent use. Reads return deep copies.
type Store struct {
	mu    sync.RWMutex
	snap  domain.Snapshot
	clock *Clock

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int
	notified  int64
}

// New creates a store holding a copy of initial at revision 0.
func New(initial domain.Snapshot) *Store {
	return &Store{
		snap:      initial.Clone(),
		clock:     NewClock(),
		observers: make(map[int]Observer),
	}
}

// Observe registers fn and returns a function that removes it.
func (s *Store) Observe(fn Observer) (cancel func()) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.observers, id)
	}
}

// Close drops every observer. The store stays readable.
func (s *Store) Close() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	clear(s.observers)
}

// Revision returns the revision of the current state.
func (s *Store) Revision() int64 {
	return s.clock.Current()
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// Orders returns a copy of the orders.
func (s *Store) Orders() []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneOrders(s.snap.Orders)
}

// Products returns a copy of the product catalog.
func (s *Store) Products() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneProducts(s.snap.Products)
}

// Materials returns a copy of the materials.
func (s *Store) Materials() []domain.Material {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.snap.Materials)
}

// Settings returns the current settings.
func (s *Store) Settings() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Settings
}

// Order looks up an order by id.
func (s *Store) Order(id string) (domain.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.snap.Orders, id, orderID); i >= 0 {
		return s.snap.Orders[i].Clone(), true
	}
	return domain.Order{}, false
}

// Product looks up a product by id.
func (s *Store) Product(id string) (domain.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.snap.Products, id, productID); i >= 0 {
		return s.snap.Products[i].Clone(), true
	}
	return domain.Product{}, false
}

// Material looks up a material by id.
func (s *Store) Material(id string) (domain.Material, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.snap.Materials, id, materialID); i >= 0 {
		return s.snap.Materials[i], true
	}
	return domain.Material{}, false
}

// PrependOrder puts o at the head of the order list.
func (s *Store) PrependOrder(o domain.Order) {
	s.mutate(func(snap *domain.Snapshot) bool {
		snap.Orders = append([]domain.Order{o.Clone()}, snap.Orders...)
		return true
	})
}

// UpdateOrder applies fn to the order with the given id in place.
func (s *Store) UpdateOrder(id string, fn func(*domain.Order)) (domain.Order, bool) {
	var out domain.Order
	ok := s.mutate(func(snap *domain.Snapshot) bool {
		i := indexOf(snap.Orders, id, orderID)
		if i < 0 {
			return false
		}
		fn(&snap.Orders[i])
		out = snap.Orders[i].Clone()
		return true
	})
	return out, ok
}

// RemoveOrder deletes the order with the given id and returns it.
func (s *Store) RemoveOrder(id string) (domain.Order, bool) {
	var out domain.Order
	ok := s.mutate(func(snap *domain.Snapshot) bool {
		i := indexOf(snap.Orders, id, orderID)
		if i < 0 {
			return false
		}
		out = snap.Orders[i]
		snap.Orders = slices.Delete(snap.Orders, i, i+1)
		return true
	})
	return out, ok
}

// AppendProduct adds p at the end of the product list.
func (s *Store) AppendProduct(p domain.Product) {
	s.mutate(func(snap *domain.Snapshot) bool {
		snap.Products = append(snap.Products, p.Clone())
		return true
	})
}

// PutProduct replaces the product whose id matches p.ID.
func (s *Store) PutProduct(p domain.Product) bool {
	return s.mutate(func(snap *domain.Snapshot) bool {
		i := indexOf(snap.Products, p.ID, productID)
		if i < 0 {
			return false
		}
		snap.Products[i] = p.Clone()
		return true
	})
}

// SetProductStock overwrites one product's stock count.
func (s *Store) SetProductStock(id string, stock int) (domain.Product, bool) {
	var out domain.Product
	ok := s.mutate(func(snap *domain.Snapshot) bool {
		i := indexOf(snap.Products, id, productID)
		if i < 0 {
			return false
		}
		snap.Products[i].Stock = stock
		out = snap.Products[i].Clone()
		return true
	})
	return out, ok
}

// RemoveProduct deletes the product with the given id.
func (s *Store) RemoveProduct(id string) (domain.Product, bool) {
	var out domain.Product
	ok := s.mutate(func(snap *domain.Snapshot) bool {
		i := indexOf(snap.Products, id, productID)
		if i < 0 {
			return false
		}
		out = snap.Products[i]
		snap.Products = slices.Delete(snap.Products, i, i+1)
		return true
	})
	return out, ok
}

// AppendMaterial adds m at the end of the material list.
func (s *Store) AppendMaterial(m domain.Material) {
	s.mutate(func(snap *domain.Snapshot) bool {
		snap.Materials = append(snap.Materials, m)
		return true
	})
}

// PutMaterial replaces the material whose id matches m.ID.
func (s *Store) PutMaterial(m domain.Material) bool {
	return s.mutate(func(snap *domain.Snapshot) bool {
		i := indexOf(snap.Materials, m.ID, materialID)
		if i < 0 {
			return false
		}
		snap.Materials[i] = m
		return true
	})
}

// RemoveMaterial deletes the material with the given id.
func (s *Store) RemoveMaterial(id string) (domain.Material, bool) {
	var out domain.Material
	ok := s.mutate(func(snap *domain.Snapshot) bool {
		i := indexOf(snap.Materials, id, materialID)
		if i < 0 {
			return false
		}
		out = snap.Materials[i]
		snap.Materials = slices.Delete(snap.Materials, i, i+1)
		return true
	})
	return out, ok
}

// SetSettings overwrites the settings record.
func (s *Store) SetSettings(settings domain.Settings) {
	s.mutate(func(snap *domain.Snapshot) bool {
		snap.Settings = settings
		return true
	})
}

// Replace swaps out every collection r names in a single revision.
func (s *Store) Replace(r Replacement) {
	if r.Empty() {
		return
	}
	s.mutate(func(snap *domain.Snapshot) bool {
		if r.Orders != nil {
			snap.Orders = domain.CloneOrders(*r.Orders)
		}
		if r.Products != nil {
			snap.Products = domain.CloneProducts(*r.Products)
		}
		if r.Materials != nil {
			snap.Materials = slices.Clone(*r.Materials)
		}
		if r.Settings != nil {
			snap.Settings = *r.Settings
		}
		return true
	})
}

// mutate runs fn under the write lock. When fn reports a change the revision
// advances and observers are notified outside the lock.
func (s *Store) mutate(fn func(*domain.Snapshot) bool) bool {
	s.mu.Lock()
	if !fn(&s.snap) {
		s.mu.Unlock()
		return false
	}
	rev := s.clock.Next()
	snap := s.snap.Clone()
	s.mu.Unlock()

	s.notify(rev, snap)
	return true
}

func (s *Store) notify(rev int64, snap domain.Snapshot) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	if rev <= s.notified {
		return
	}
	s.notified = rev
	for _, fn := range s.observers {
		fn(rev, snap)
	}
}

func orderID(o domain.Order) string       { return o.ID }
func productID(p domain.Product) string   { return p.ID }
func materialID(m domain.Material) string { return m.ID }

func indexOf[T any](items []T, id string, key func(T) string) int {
	return slices.IndexFunc(items, func(item T) bool { return key(item) == id })
}
