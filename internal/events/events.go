// Package events publishes a change event after each applied intent.
// Delivery is best effort: a publish failure never undoes a change.
package events

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Type identifies what changed.
type Type string

const (
	OrderCreated       Type = "order.created"
	OrderDeleted       Type = "order.deleted"
	OrderStatusChanged Type = "order.status_changed"
	ProductCreated     Type = "product.created"
	ProductUpdated     Type = "product.updated"
	ProductDeleted     Type = "product.deleted"
	StockAdjusted      Type = "stock.adjusted"
	MaterialCreated    Type = "material.created"
	MaterialUpdated    Type = "material.updated"
	MaterialDeleted    Type = "material.deleted"
	SettingsUpdated    Type = "settings.updated"
)

// Event is one applied change. Owner is empty in local-only mode.
type Event struct {
	Type     Type      `json:"type"`
	EntityID string    `json:"entityId,omitempty"`
	Owner    string    `json:"owner,omitempty"`
	At       time.Time `json:"at"`
	Payload  any       `json:"payload,omitempty"`
}

// Publisher delivers events somewhere outside the process.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	err    error
}

// FailWith makes subsequent publishes return err. Events are still recorded.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Types returns the type of each recorded event, in order.
func (r *Recorder) Types() []Type {
	var out []Type
	for _, e := range r.Events() {
		out = append(out, e.Type)
	}
	return out
}
