// Package backup exports the full entity store as a pretty-printed JSON
// document and restores stores from such documents.
package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/brutalist/internal/domain"
	"github.com/roach88/brutalist/internal/state"
)

// FileName returns backup-<YYYY-MM-DD>.json for the UTC calendar day of now.
func FileName(now time.Time) string {
	return "backup-" + now.UTC().Format(domain.DateLayout) + ".json"
}

// Encode renders snap with two-space indentation and a trailing newline.
func Encode(snap domain.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return append(data, '\n'), nil
}

// Write encodes snap into dir under FileName(now) and returns the path.
func Write(dir string, snap domain.Snapshot, now time.Time) (string, error) {
	data, err := Encode(snap)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	path := filepath.Join(dir, FileName(now))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	return path, nil
}

// Decode parses a backup document. Only the top-level keys that are present
// and non-null end up in the returned replacement; a document with none of
// them decodes to an empty replacement. Any present key that fails to decode
// rejects the whole document.
func Decode(data []byte) (state.Replacement, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return state.Replacement{}, fmt.Errorf("parse backup: %w", err)
	}
	if raw == nil {
		return state.Replacement{}, errors.New("parse backup: document is null")
	}

	var r state.Replacement
	var err error
	if r.Orders, err = field[[]domain.Order](raw, "orders"); err != nil {
		return state.Replacement{}, err
	}
	if r.Products, err = field[[]domain.Product](raw, "products"); err != nil {
		return state.Replacement{}, err
	}
	if r.Materials, err = field[[]domain.Material](raw, "materials"); err != nil {
		return state.Replacement{}, err
	}
	if r.Settings, err = field[domain.Settings](raw, "settings"); err != nil {
		return state.Replacement{}, err
	}
	return r, nil
}

// Import decodes data and applies it to st in one revision. It reports
// whether the document was accepted; a rejected document leaves st untouched.
func Import(st *state.Store, data []byte) bool {
	r, err := Decode(data)
	if err != nil {
		return false
	}
	st.Replace(r)
	return true
}

func field[T any](raw map[string]json.RawMessage, key string) (*T, error) {
	msg, ok := raw[key]
	if !ok || bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(msg, &v); err != nil {
		return nil, fmt.Errorf("parse backup %s: %w", key, err)
	}
	return &v, nil
}
