package engine

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/brutalist/internal/backup"
	"github.com/roach88/brutalist/internal/domain"
	"github.com/roach88/brutalist/internal/remote"
	"github.com/roach88/brutalist/internal/state"
)

// Load fills the store for the current session.
//
// With an active session the four remote collections are fetched in parallel
// and swapped in together; settings absent remotely keep their current value.
// Any fetch error is logged, returned, and leaves the store unchanged.
//
// Without a session the local snapshot is loaded with per-key fallback to
// the seed data. This path never fails.
func (e *Engine) Load(ctx context.Context) error {
	if owner, ok := e.owner(); ok {
		r, err := e.fetchRemote(ctx, owner)
		if err != nil {
			e.logger.Error().Err(err).Str("owner", owner).Msg("error loading data from remote")
			return err
		}
		e.state.Replace(r)
		e.logger.Info().Str("owner", owner).Int("orders", len(*r.Orders)).
			Int("products", len(*r.Products)).Int("materials", len(*r.Materials)).Msg("loaded remote state")
		return nil
	}

	snap := e.seed(e.now())
	if e.cache != nil {
		snap = e.cache.Load(ctx, snap)
	}
	e.state.Replace(state.Full(snap))
	return nil
}

func (e *Engine) fetchRemote(ctx context.Context, owner string) (state.Replacement, error) {
	var (
		orderRows    []remote.OrderRow
		productRows  []remote.ProductRow
		materialRows []remote.MaterialRow
		settingsRow  *remote.SettingsRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := e.remote.Orders().SelectAll(gctx, owner)
		orderRows = rows
		return err
	})
	g.Go(func() error {
		rows, err := e.remote.Products().SelectAll(gctx, owner)
		productRows = rows
		return err
	})
	g.Go(func() error {
		rows, err := e.remote.Materials().SelectAll(gctx, owner)
		materialRows = rows
		return err
	})
	g.Go(func() error {
		row, err := e.remote.Settings().Fetch(gctx, owner)
		if errors.Is(err, remote.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		settingsRow = &row
		return nil
	})
	if err := g.Wait(); err != nil {
		return state.Replacement{}, fmt.Errorf("load remote state: %w", err)
	}

	orders := make([]domain.Order, 0, len(orderRows))
	for _, row := range orderRows {
		o, err := remote.OrderFromRow(row)
		if err != nil {
			return state.Replacement{}, fmt.Errorf("load remote state: %w", err)
		}
		orders = append(orders, o)
	}
	products := make([]domain.Product, 0, len(productRows))
	for _, row := range productRows {
		p, err := remote.ProductFromRow(row)
		if err != nil {
			return state.Replacement{}, fmt.Errorf("load remote state: %w", err)
		}
		products = append(products, p)
	}
	materials := make([]domain.Material, 0, len(materialRows))
	for _, row := range materialRows {
		materials = append(materials, remote.MaterialFromRow(row))
	}

	r := state.Replacement{Orders: &orders, Products: &products, Materials: &materials}
	if settingsRow != nil {
		s := remote.SettingsFromRow(*settingsRow)
		r.Settings = &s
	}
	return r, nil
}

// Export renders the current store as a backup document and returns the
// suggested file name with it.
func (e *Engine) Export() (name string, data []byte, err error) {
	data, err = backup.Encode(e.state.Snapshot())
	if err != nil {
		return "", nil, err
	}
	return backup.FileName(e.now()), data, nil
}

// Import replaces the collections present in a backup document. It bypasses
// the remote backend and reports whether the document was accepted.
func (e *Engine) Import(data []byte) bool {
	ok := backup.Import(e.state, data)
	if !ok {
		e.logger.Warn().Int("bytes", len(data)).Msg("backup rejected")
	}
	return ok
}

// Reset clears the local snapshot and reloads the store for the current
// session, which brings back the seed data in local mode.
func (e *Engine) Reset(ctx context.Context) error {
	if e.cache != nil {
		if err := e.cache.Clear(ctx); err != nil {
			return fmt.Errorf("clear local snapshot: %w", err)
		}
	}
	return e.Load(ctx)
}
