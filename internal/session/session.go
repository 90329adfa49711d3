// Package session tracks the authenticated identity and broadcasts every
// authentication transition to subscribers.
package session

import (
	"context"
	"sync"
)

// Identity is the authenticated user. ID scopes every remote row.
type Identity struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Event names the kind of authentication transition.
type Event string

const (
	SignedIn       Event = "SIGNED_IN"
	SignedOut      Event = "SIGNED_OUT"
	TokenRefreshed Event = "TOKEN_REFRESHED"
)

// Change is delivered on every transition. Identity is nil after sign-out.
type Change struct {
	Event    Event
	Identity *Identity
}

// Provider is the engine's view of the session source.
type Provider interface {
	// Current returns the active identity or nil when signed out.
	Current(ctx context.Context) (*Identity, error)
	// Subscribe registers for transitions. The caller must Cancel.
	Subscribe() *Subscription
}

// Subscription is a registered listener. C is closed by Cancel.
type Subscription struct {
	C      <-chan Change
	cancel func()
	once   sync.Once
}

// Cancel unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// Hub is an in-process Provider. Each subscriber has a one-slot buffer; when a
// subscriber falls behind only the newest undelivered change is kept.
type Hub struct {
	mu      sync.Mutex
	current *Identity
	subs    map[uint64]chan Change
	next    uint64
}

var _ Provider = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan Change)}
}

func (h *Hub) Current(context.Context) (*Identity, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return clone(h.current), nil
}

func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan Change, 1)
	h.subs[id] = ch
	return &Subscription{
		C: ch,
		cancel: func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		},
	}
}

// SignIn makes id the active identity and notifies subscribers.
func (h *Hub) SignIn(id Identity) {
	h.transition(SignedIn, &id)
}

// SignOut clears the active identity and notifies subscribers.
func (h *Hub) SignOut() {
	h.transition(SignedOut, nil)
}

// Refresh notifies subscribers that the credentials were renewed for the
// same identity. It does nothing when signed out.
func (h *Hub) Refresh() {
	h.mu.Lock()
	id := clone(h.current)
	h.mu.Unlock()
	if id != nil {
		h.transition(TokenRefreshed, id)
	}
}

func (h *Hub) transition(ev Event, id *Identity) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = clone(id)
	for _, ch := range h.subs {
		c := Change{Event: ev, Identity: clone(id)}
		select {
		case ch <- c:
		default:
			// Drop the stale pending change and keep the newest.
			select {
			case <-ch:
			default:
			}
			ch <- c
		}
	}
}

func clone(id *Identity) *Identity {
	if id == nil {
		return nil
	}
	out := *id
	return &out
}
