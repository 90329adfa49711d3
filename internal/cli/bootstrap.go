package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/roach88/brutalist/internal/config"
	"github.com/roach88/brutalist/internal/domain"
	"github.com/roach88/brutalist/internal/engine"
	"github.com/roach88/brutalist/internal/events"
	"github.com/roach88/brutalist/internal/remote"
	"github.com/roach88/brutalist/internal/session"
	"github.com/roach88/brutalist/internal/snapshot"
	"github.com/roach88/brutalist/internal/state"
)

// tokenIssuer is the iss claim of session tokens.
const tokenIssuer = "brutalist"

// app is the wired application shared by every command.
type app struct {
	cfg    config.Config
	logger zerolog.Logger
	state  *state.Store
	engine *engine.Engine
	hub    *session.Hub
	tokens *session.Tokens
	remote *remote.SQLService

	closers []func() error
}

func newLogger(cfg config.Log, verbose bool, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	out := w
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// bootstrap loads the configuration and wires the store, engine and
// collaborators. The store is left empty; callers load it.
func bootstrap(opts *RootOptions, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	a := &app{cfg: cfg, logger: newLogger(cfg.Log, opts.Verbose, logOut), hub: session.NewHub()}

	kv, err := a.openCache()
	if err != nil {
		a.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open local cache", err)
	}

	if cfg.Remote.Enabled() {
		if cfg.Remote.Driver != remote.DriverSQLite && cfg.Remote.Driver != remote.DriverMySQL {
			a.Close()
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("unsupported remote driver %q", cfg.Remote.Driver))
		}
		// An unreachable remote leaves the engine local-only.
		svc, err := remote.Open(cfg.Remote.Driver, cfg.Remote.DSN)
		if err != nil {
			a.logger.Warn().Err(err).Str("driver", cfg.Remote.Driver).Msg("remote unavailable, running local-only")
		} else {
			a.remote = svc
			a.closers = append(a.closers, svc.Close)
		}
	}

	var pub events.Publisher = events.Nop{}
	if len(cfg.Events.Brokers) > 0 {
		pub = events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic)
		a.closers = append(a.closers, pub.Close)
	}

	if cfg.Auth.JWTSecret != "" {
		a.tokens, err = session.NewTokens([]byte(cfg.Auth.JWTSecret), tokenIssuer)
		if err != nil {
			a.Close()
			return nil, WrapExitError(ExitCommandError, "invalid auth config", err)
		}
	}

	engOpts := []engine.Option{
		engine.WithCache(snapshot.NewCodec(kv, a.logger)),
		engine.WithPublisher(pub),
		engine.WithSessions(a.hub),
		engine.WithLogger(a.logger),
	}
	if a.remote != nil {
		engOpts = append(engOpts, engine.WithRemote(a.remote))
	}
	a.state = state.New(domain.Snapshot{})
	a.engine = engine.New(a.state, engOpts...)

	a.logger.Debug().Str("cache", cfg.Cache.Backend).Bool("remote", a.remote != nil).
		Int("brokers", len(cfg.Events.Brokers)).Msg("bootstrapped")
	return a, nil
}

func (a *app) openCache() (snapshot.KV, error) {
	switch a.cfg.Cache.Backend {
	case config.CacheMemory:
		return snapshot.NewMemoryKV(), nil
	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{Addr: a.cfg.Cache.RedisAddr})
		a.closers = append(a.closers, client.Close)
		return snapshot.NewRedisKV(client, a.cfg.Cache.Prefix), nil
	case config.CacheFile:
		return snapshot.NewFileKV(a.cfg.Cache.Dir), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", a.cfg.Cache.Backend)
	}
}

// load fills the store, from the remote for user when given, otherwise from
// the local snapshot.
func (a *app) load(ctx context.Context, user string) error {
	if user == "" {
		return a.engine.Load(ctx)
	}
	if a.remote == nil {
		return errors.New("remote database is not configured or unreachable")
	}
	return a.engine.SwitchIdentity(ctx, &session.Identity{ID: user})
}

// Close releases collaborators in reverse order of creation.
func (a *app) Close() error {
	if a.engine != nil {
		a.engine.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
