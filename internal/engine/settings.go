package engine

import (
	"context"

	"github.com/roach88/brutalist/internal/domain"
	"github.com/roach88/brutalist/internal/events"
	"github.com/roach88/brutalist/internal/remote"
)

// UpdateSettings merges patch into the current settings section by section
// and stores the result. The merged record is what gets written remotely.
// A patch naming no section returns the current settings untouched.
func (e *Engine) UpdateSettings(ctx context.Context, patch domain.SettingsPatch) (domain.Settings, error) {
	if patch.Empty() {
		e.logger.Debug().Msg("empty settings patch ignored")
		return e.state.Settings(), nil
	}
	merged := domain.MergeSettings(e.state.Settings(), patch)

	err := e.writeRemote("upsert", remote.TableSettings, "", func(owner string) error {
		return e.remote.Settings().Upsert(ctx, owner, remote.SettingsToRow(merged))
	})
	if err != nil {
		return domain.Settings{}, err
	}

	e.state.SetSettings(merged)
	e.publish(ctx, events.SettingsUpdated, "", merged)
	return merged, nil
}
