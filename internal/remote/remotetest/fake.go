// Package remotetest provides an in-memory remote.Service with call
// recording and failure injection.
package remotetest

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/roach88/brutalist/internal/remote"
)

// Any matches every table in Fail.
const Any = "*"

// Call records one operation issued against the fake.
type Call struct {
	Op      string
	Table   string
	Owner   string
	ID      string
	Columns []string
}

// Service is an in-memory remote.Service. The zero value is not usable; use New.
type Service struct {
	mu       sync.Mutex
	now      func() time.Time
	calls    []Call
	failures map[string]error

	orders    *table[remote.OrderRow]
	products  *table[remote.ProductRow]
	materials *table[remote.MaterialRow]
	settings  *settingsTable
}

var _ remote.Service = (*Service)(nil)

// New creates an empty fake whose clock advances one millisecond per call so
// insertion order is reflected in created_at.
func New() *Service {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var tick int64
	s := &Service{failures: make(map[string]error)}
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}
	s.orders = newTable(s, remote.TableOrders,
		func(r remote.OrderRow) string { return r.ID },
		func(r remote.OrderRow) time.Time { return r.CreatedAt },
		func(r remote.OrderRow, owner string, now time.Time) remote.OrderRow {
			r.UserID = owner
			if r.CreatedAt.IsZero() {
				r.CreatedAt = now
			}
			return r
		},
		mergeOrder)
	s.products = newTable(s, remote.TableProducts,
		func(r remote.ProductRow) string { return r.ID },
		func(r remote.ProductRow) time.Time { return r.CreatedAt },
		func(r remote.ProductRow, owner string, now time.Time) remote.ProductRow {
			r.UserID = owner
			if r.CreatedAt.IsZero() {
				r.CreatedAt = now
			}
			return r
		},
		mergeProduct)
	s.materials = newTable(s, remote.TableMaterials,
		func(r remote.MaterialRow) string { return r.ID },
		func(r remote.MaterialRow) time.Time { return r.CreatedAt },
		func(r remote.MaterialRow, owner string, now time.Time) remote.MaterialRow {
			r.UserID = owner
			if r.CreatedAt.IsZero() {
				r.CreatedAt = now
			}
			return r
		},
		mergeMaterial)
	s.settings = &settingsTable{svc: s, rows: make(map[string]remote.SettingsRow)}
	return s
}

func (s *Service) Orders() remote.Table[remote.OrderRow]       { return s.orders }
func (s *Service) Products() remote.Table[remote.ProductRow]   { return s.products }
func (s *Service) Materials() remote.Table[remote.MaterialRow] { return s.materials }
func (s *Service) Settings() remote.SettingsTable              { return s.settings }

// Fail makes every subsequent op on table return err until Heal. Use Any for
// the table to fail all tables.
func (s *Service) Fail(op, table string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op+":"+table] = err
}

// FailID is like Fail but only for the row with the given id.
func (s *Service) FailID(op, table, id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op+":"+table+":"+id] = err
}

// Heal clears all injected failures.
func (s *Service) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.failures)
}

// Calls returns every call issued so far, including failed ones.
func (s *Service) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// Writes returns the recorded insert, update, delete and upsert calls.
func (s *Service) Writes() []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Op != "select" && c.Op != "fetch" {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls forgets the call log.
func (s *Service) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// record logs the call and returns the injected failure, if any. Callers hold s.mu.
func (s *Service) record(c Call) error {
	s.calls = append(s.calls, c)
	if err, ok := s.failures[c.Op+":"+c.Table+":"+c.ID]; ok && c.ID != "" {
		return &remote.ServiceError{Op: c.Op, Table: c.Table, Err: err}
	}
	if err, ok := s.failures[c.Op+":"+c.Table]; ok {
		return &remote.ServiceError{Op: c.Op, Table: c.Table, Err: err}
	}
	if err, ok := s.failures[c.Op+":"+Any]; ok {
		return &remote.ServiceError{Op: c.Op, Table: c.Table, Err: err}
	}
	return nil
}

type table[R any] struct {
	svc     *Service
	name    string
	rows    map[string][]R
	id      func(R) string
	created func(R) time.Time
	stamp   func(R, string, time.Time) R
	merge   func(dst, src R, columns []string) (R, error)
}

func newTable[R any](svc *Service, name string, id func(R) string, created func(R) time.Time,
	stamp func(R, string, time.Time) R, merge func(dst, src R, columns []string) (R, error)) *table[R] {
	return &table[R]{svc: svc, name: name, rows: make(map[string][]R), id: id, created: created, stamp: stamp, merge: merge}
}

func (t *table[R]) SelectAll(_ context.Context, owner string) ([]R, error) {
	t.svc.mu.Lock()
	defer t.svc.mu.Unlock()
	if err := t.svc.record(Call{Op: "select", Table: t.name, Owner: owner}); err != nil {
		return nil, err
	}
	out := slices.Clone(t.rows[owner])
	if out == nil {
		out = []R{}
	}
	slices.SortStableFunc(out, func(a, b R) int {
		if c := t.created(b).Compare(t.created(a)); c != 0 {
			return c
		}
		return cmp.Compare(t.id(a), t.id(b))
	})
	return out, nil
}

func (t *table[R]) Insert(_ context.Context, owner string, row R) (R, error) {
	t.svc.mu.Lock()
	defer t.svc.mu.Unlock()
	var zero R
	if err := t.svc.record(Call{Op: "insert", Table: t.name, Owner: owner, ID: t.id(row)}); err != nil {
		return zero, err
	}
	if t.index(owner, t.id(row)) >= 0 {
		return zero, &remote.ServiceError{Op: "insert", Table: t.name, Err: fmt.Errorf("duplicate id %s", t.id(row))}
	}
	row = t.stamp(row, owner, t.svc.now())
	t.rows[owner] = append(t.rows[owner], row)
	return row, nil
}

func (t *table[R]) Update(_ context.Context, owner, id string, row R, columns ...string) (R, error) {
	t.svc.mu.Lock()
	defer t.svc.mu.Unlock()
	var zero R
	if err := t.svc.record(Call{Op: "update", Table: t.name, Owner: owner, ID: id, Columns: slices.Clone(columns)}); err != nil {
		return zero, err
	}
	i := t.index(owner, id)
	if i < 0 {
		return zero, &remote.ServiceError{Op: "update", Table: t.name, Err: fmt.Errorf("id %s: %w", id, remote.ErrNoRows)}
	}
	merged, err := t.merge(t.rows[owner][i], row, columns)
	if err != nil {
		return zero, &remote.ServiceError{Op: "update", Table: t.name, Err: err}
	}
	t.rows[owner][i] = merged
	return merged, nil
}

func (t *table[R]) Delete(_ context.Context, owner, id string) error {
	t.svc.mu.Lock()
	defer t.svc.mu.Unlock()
	if err := t.svc.record(Call{Op: "delete", Table: t.name, Owner: owner, ID: id}); err != nil {
		return err
	}
	if i := t.index(owner, id); i >= 0 {
		t.rows[owner] = slices.Delete(t.rows[owner], i, i+1)
	}
	return nil
}

func (t *table[R]) index(owner, id string) int {
	return slices.IndexFunc(t.rows[owner], func(r R) bool { return t.id(r) == id })
}

type settingsTable struct {
	svc  *Service
	rows map[string]remote.SettingsRow
}

func (t *settingsTable) Fetch(_ context.Context, owner string) (remote.SettingsRow, error) {
	t.svc.mu.Lock()
	defer t.svc.mu.Unlock()
	if err := t.svc.record(Call{Op: "fetch", Table: remote.TableSettings, Owner: owner}); err != nil {
		return remote.SettingsRow{}, err
	}
	row, ok := t.rows[owner]
	if !ok {
		return remote.SettingsRow{}, &remote.ServiceError{Op: "fetch", Table: remote.TableSettings, Err: remote.ErrNoRows}
	}
	return row, nil
}

func (t *settingsTable) Upsert(_ context.Context, owner string, row remote.SettingsRow) error {
	t.svc.mu.Lock()
	defer t.svc.mu.Unlock()
	if err := t.svc.record(Call{Op: "upsert", Table: remote.TableSettings, Owner: owner}); err != nil {
		return err
	}
	row.UserID = owner
	row.UpdatedAt = t.svc.now()
	t.rows[owner] = row
	return nil
}
