package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/brutalist/internal/domain"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	return New(domain.Seed(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
}

func TestStore_ReadsAreCopies(t *testing.T) {
	s := seeded(t)

	orders := s.Orders()
	orders[0].Items[0].Quantity = 42
	products := s.Products()
	products[0].Stock = 0

	o, ok := s.Order(orders[0].ID)
	require.True(t, ok)
	assert.Equal(t, 10, o.Items[0].Quantity)
	p, _ := s.Product(products[0].ID)
	assert.Equal(t, 15, p.Stock)
}

func TestStore_PrependOrder(t *testing.T) {
	s := New(domain.Snapshot{})
	s.PrependOrder(domain.Order{ID: "a"})
	s.PrependOrder(domain.Order{ID: "b"})

	orders := s.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, "b", orders[0].ID)
	assert.Equal(t, "a", orders[1].ID)
	assert.Equal(t, int64(2), s.Revision())
}

func TestStore_MissingIDIsNoop(t *testing.T) {
	s := seeded(t)
	before := s.Snapshot()

	_, ok := s.RemoveOrder("nope")
	assert.False(t, ok)
	assert.False(t, s.PutProduct(domain.Product{ID: "nope"}))
	_, ok = s.SetProductStock("nope", 3)
	assert.False(t, ok)
	_, ok = s.UpdateOrder("nope", func(o *domain.Order) { o.Status = domain.StatusCompleted })
	assert.False(t, ok)

	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, int64(0), s.Revision(), "no-op mutations do not advance the revision")
}

func TestStore_ProductLifecycle(t *testing.T) {
	s := New(domain.Snapshot{})
	s.AppendProduct(domain.Product{ID: "p1", Name: "Mesa", Stock: 4})
	s.AppendProduct(domain.Product{ID: "p2", Name: "Banco", Stock: 1})

	p, ok := s.SetProductStock("p1", 2)
	require.True(t, ok)
	assert.Equal(t, 2, p.Stock)

	require.True(t, s.PutProduct(domain.Product{ID: "p2", Name: "Banco Longo", Stock: 1}))
	got, _ := s.Product("p2")
	assert.Equal(t, "Banco Longo", got.Name)

	removed, ok := s.RemoveProduct("p1")
	require.True(t, ok)
	assert.Equal(t, "Mesa", removed.Name)
	assert.Len(t, s.Products(), 1)
}

func TestStore_MaterialLifecycle(t *testing.T) {
	s := New(domain.Snapshot{})
	s.AppendMaterial(domain.Material{ID: "m1", Name: "Cola", Stock: 3})
	require.True(t, s.PutMaterial(domain.Material{ID: "m1", Name: "Cola", Stock: 9}))

	m, ok := s.Material("m1")
	require.True(t, ok)
	assert.Equal(t, float64(9), m.Stock)

	_, ok = s.RemoveMaterial("m1")
	assert.True(t, ok)
	assert.Empty(t, s.Materials())
}

func TestStore_ReplacePartial(t *testing.T) {
	s := seeded(t)
	before := s.Snapshot()

	orders := []domain.Order{{ID: "only"}}
	s.Replace(Replacement{Orders: &orders})

	after := s.Snapshot()
	require.Len(t, after.Orders, 1)
	assert.Equal(t, before.Products, after.Products)
	assert.Equal(t, before.Materials, after.Materials)
	assert.Equal(t, before.Settings, after.Settings)
	assert.Equal(t, int64(1), s.Revision())

	s.Replace(Replacement{})
	assert.Equal(t, int64(1), s.Revision(), "empty replacement is a no-op")
}

func TestStore_ReplaceFull(t *testing.T) {
	s := New(domain.Snapshot{})
	snap := domain.Seed(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	s.Replace(Full(snap))
	assert.Equal(t, snap, s.Snapshot())
}

func TestStore_ObserverSeesEveryChange(t *testing.T) {
	s := New(domain.Snapshot{})

	var revs []int64
	var last domain.Snapshot
	cancel := s.Observe(func(rev int64, snap domain.Snapshot) {
		revs = append(revs, rev)
		last = snap
	})

	s.PrependOrder(domain.Order{ID: "a"})
	s.SetSettings(domain.DefaultSettings())
	s.RemoveOrder("missing")

	assert.Equal(t, []int64{1, 2}, revs)
	assert.Equal(t, domain.DefaultSettings(), last.Settings)
	require.Len(t, last.Orders, 1)

	cancel()
	s.RemoveOrder("a")
	assert.Len(t, revs, 2, "cancelled observer is not called")
}

func TestStore_ObserverRevisionsIncrease(t *testing.T) {
	s := New(domain.Snapshot{})

	var mu sync.Mutex
	var revs []int64
	s.Observe(func(rev int64, _ domain.Snapshot) {
		mu.Lock()
		revs = append(revs, rev)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AppendMaterial(domain.Material{ID: "m"})
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(revs); i++ {
		assert.Greater(t, revs[i], revs[i-1])
	}
	assert.Equal(t, int64(50), revs[len(revs)-1], "the newest revision is always delivered")
}

func TestStore_Close(t *testing.T) {
	s := New(domain.Snapshot{})
	calls := 0
	s.Observe(func(int64, domain.Snapshot) { calls++ })
	s.Close()
	s.PrependOrder(domain.Order{ID: "a"})
	assert.Zero(t, calls)
	assert.Len(t, s.Orders(), 1)
}
