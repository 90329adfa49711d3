package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/brutalist/internal/domain"
	"github.com/roach88/brutalist/internal/events"
	"github.com/roach88/brutalist/internal/remote"
	"github.com/roach88/brutalist/internal/session"
	"github.com/roach88/brutalist/internal/snapshot"
	"github.com/roach88/brutalist/internal/state"
)

// DefaultPersistTimeout bounds one snapshot save triggered by a mutation.
const DefaultPersistTimeout = 5 * time.Second

// Engine applies intents to a state.Store.
type Engine struct {
	state    *state.Store
	remote   remote.Service
	sessions session.Provider
	cache    *snapshot.Codec
	events   events.Publisher
	ids      IDGenerator
	now      func() time.Time
	seed     func(time.Time) domain.Snapshot
	logger   zerolog.Logger

	persistTimeout time.Duration
	unobserve      func()

	mu       sync.RWMutex
	identity *session.Identity
}

// Option configures an Engine.
type Option func(*Engine)

// WithRemote sets the backend used while a session is active. Without it the
// engine is local-only regardless of session state.
func WithRemote(svc remote.Service) Option {
	return func(e *Engine) { e.remote = svc }
}

// WithSessions sets the session source that Run follows.
func WithSessions(p session.Provider) Option {
	return func(e *Engine) { e.sessions = p }
}

// WithCache enables the local snapshot: Load reads it in local mode and every
// applied change is saved to it.
func WithCache(c *snapshot.Codec) Option {
	return func(e *Engine) { e.cache = c }
}

// WithPublisher sets where domain events go. The default discards them.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) { e.events = p }
}

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithIDGenerator replaces the random id source for new records.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithClock replaces time.Now for timestamps, seed dates and backup names.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSeed replaces the demonstration data used when no snapshot exists.
func WithSeed(seed func(time.Time) domain.Snapshot) Option {
	return func(e *Engine) { e.seed = seed }
}

// WithPersistTimeout bounds each snapshot save.
func WithPersistTimeout(d time.Duration) Option {
	return func(e *Engine) { e.persistTimeout = d }
}

// New creates an Engine over st. The store is not loaded until Load or Run.
func New(st *state.Store, opts ...Option) *Engine {
	e := &Engine{
		state:          st,
		events:         events.Nop{},
		ids:            UUIDv7Generator{},
		now:            time.Now,
		seed:           domain.Seed,
		logger:         zerolog.Nop(),
		persistTimeout: DefaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache != nil {
		e.unobserve = st.Observe(e.persist)
	}
	return e
}

// Close detaches the engine from the store. It does not close the remote,
// cache or publisher, which the caller owns.
func (e *Engine) Close() {
	if e.unobserve != nil {
		e.unobserve()
		e.unobserve = nil
	}
}

// State exposes the underlying store for reads.
func (e *Engine) State() *state.Store {
	return e.state
}

// Identity returns the session identity the engine is currently acting for.
func (e *Engine) Identity() *session.Identity {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.identity == nil {
		return nil
	}
	id := *e.identity
	return &id
}

// Remote reports whether intents are currently written through to the backend.
func (e *Engine) Remote() bool {
	_, ok := e.owner()
	return ok
}

// Run loads the store for the current session and reloads it whenever the
// signed-in user changes, until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	if e.sessions == nil {
		_ = e.Load(ctx)
		<-ctx.Done()
		return ctx.Err()
	}

	sub := e.sessions.Subscribe()
	defer sub.Cancel()

	current, err := e.sessions.Current(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("could not read session, starting signed out")
		current = nil
	}
	e.setIdentity(current)
	_ = e.Load(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change, ok := <-sub.C:
			if !ok {
				return nil
			}
			e.HandleSessionChange(ctx, change)
		}
	}
}

// HandleSessionChange records the new identity and reloads the store when
// the signed-in user differs from before. Token refreshes for the same user
// do not reload. It reports whether a reload happened.
func (e *Engine) HandleSessionChange(ctx context.Context, change session.Change) bool {
	before := e.Identity()
	e.setIdentity(change.Identity)

	if sameUser(before, change.Identity) {
		e.logger.Debug().Str("event", string(change.Event)).Msg("session refreshed")
		return false
	}
	e.logger.Info().Str("event", string(change.Event)).Bool("signed_in", change.Identity != nil).Msg("session changed")
	_ = e.Load(ctx)
	return true
}

// SwitchIdentity acts for id from now on (nil means signed out) and loads
// the matching data, returning the load error.
func (e *Engine) SwitchIdentity(ctx context.Context, id *session.Identity) error {
	e.setIdentity(id)
	return e.Load(ctx)
}

func (e *Engine) setIdentity(id *session.Identity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id == nil {
		e.identity = nil
		return
	}
	cp := *id
	e.identity = &cp
}

func sameUser(a, b *session.Identity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}

// owner returns the remote owner id when writes go through the backend.
func (e *Engine) owner() (string, bool) {
	if e.remote == nil {
		return "", false
	}
	id := e.Identity()
	if id == nil || id.ID == "" {
		return "", false
	}
	return id.ID, true
}

// writeRemote runs write against the backend when a session is active. A
// failed write is logged and returned as REMOTE_WRITE_FAILED.
func (e *Engine) writeRemote(op, entity, id string, write func(owner string) error) error {
	owner, ok := e.owner()
	if !ok {
		return nil
	}
	if err := write(owner); err != nil {
		e.logger.Error().Err(err).Str("op", op).Str("entity", entity).Str("id", id).Msg("remote write failed")
		return newRemoteWriteError(op, entity, id, err)
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, typ events.Type, entityID string, payload any) {
	owner, _ := e.owner()
	ev := events.Event{Type: typ, EntityID: entityID, Owner: owner, At: e.now().UTC(), Payload: payload}
	if err := e.events.Publish(ctx, ev); err != nil {
		e.logger.Warn().Err(err).Str("type", string(typ)).Str("id", entityID).Msg("publish event failed")
	}
}

func (e *Engine) persist(rev int64, snap domain.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), e.persistTimeout)
	defer cancel()
	if err := e.cache.Save(ctx, snap); err != nil {
		e.logger.Error().Err(err).Int64("revision", rev).Msg("persist local snapshot failed")
	}
}
