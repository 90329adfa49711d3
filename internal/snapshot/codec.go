// Package snapshot persists the entity store between runs under four fixed
// keys, one per collection, and restores it with per-key fallback to seed
// data.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/roach88/brutalist/internal/domain"
)

// Storage keys.
const (
	KeyOrders    = "orders"
	KeyProducts  = "products"
	KeyMaterials = "materials"
	KeySettings  = "settings"
)

// Keys lists every key the codec owns.
var Keys = []string{KeyOrders, KeyProducts, KeyMaterials, KeySettings}

// Codec encodes snapshots into a KV.
type Codec struct {
	kv     KV
	logger zerolog.Logger
}

// NewCodec returns a codec over kv.
func NewCodec(kv KV, logger zerolog.Logger) *Codec {
	return &Codec{kv: kv, logger: logger}
}

// Save writes every collection. All four keys are attempted; the returned
// error joins the failures.
func (c *Codec) Save(ctx context.Context, snap domain.Snapshot) error {
	values := map[string]any{
		KeyOrders:    snap.Orders,
		KeyProducts:  snap.Products,
		KeyMaterials: snap.Materials,
		KeySettings:  snap.Settings,
	}
	var errs []error
	for _, key := range Keys {
		data, err := json.Marshal(values[key])
		if err != nil {
			errs = append(errs, fmt.Errorf("encode %s: %w", key, err))
			continue
		}
		if err := c.kv.Set(ctx, key, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Load restores a snapshot. Each key falls back to the matching part of seed
// independently when it is absent, unreadable or not a JSON array where one
// is expected. Load never fails.
func (c *Codec) Load(ctx context.Context, seed domain.Snapshot) domain.Snapshot {
	seed = seed.Clone()
	return domain.Snapshot{
		Orders:    loadList(ctx, c, KeyOrders, seed.Orders),
		Products:  loadList(ctx, c, KeyProducts, seed.Products),
		Materials: loadList(ctx, c, KeyMaterials, seed.Materials),
		Settings:  c.loadSettings(ctx, seed.Settings),
	}
}

// Clear deletes every key.
func (c *Codec) Clear(ctx context.Context) error {
	var errs []error
	for _, key := range Keys {
		if err := c.kv.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func loadList[T any](ctx context.Context, c *Codec, key string, fallback []T) []T {
	raw, ok, err := c.kv.Get(ctx, key)
	if err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("error loading local snapshot key")
		return fallback
	}
	if !ok || len(raw) == 0 {
		return fallback
	}

	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("error loading local snapshot key")
		return fallback
	}
	if _, isList := probe.([]any); !isList {
		c.logger.Warn().Str("key", key).Msg("data corruption detected, using defaults")
		return fallback
	}

	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("error loading local snapshot key")
		return fallback
	}
	return out
}

// loadSettings decodes over the fallback so keys missing from the stored
// record keep their default values.
func (c *Codec) loadSettings(ctx context.Context, fallback domain.Settings) domain.Settings {
	raw, ok, err := c.kv.Get(ctx, KeySettings)
	if err != nil {
		c.logger.Error().Err(err).Str("key", KeySettings).Msg("error loading local snapshot key")
		return fallback
	}
	if !ok || len(raw) == 0 {
		return fallback
	}
	out := fallback
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Error().Err(err).Str("key", KeySettings).Msg("error loading local snapshot key")
		return fallback
	}
	return out
}
