package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/brutalist/internal/domain"
)

func TestError_Message(t *testing.T) {
	err := newRemoteWriteError("delete", "orders", "#5023", errors.New("timeout"))
	assert.Equal(t, "REMOTE_WRITE_FAILED: delete orders #5023: timeout", err.Error())

	err = newRemoteWriteError("upsert", "app_settings", "", errors.New("timeout"))
	assert.Equal(t, "REMOTE_WRITE_FAILED: upsert app_settings: timeout", err.Error())
}

func TestError_Classification(t *testing.T) {
	notFound := fmt.Errorf("wrapped: %w", newNotFoundError("delete", "orders", "x"))
	assert.True(t, IsNotFound(notFound))
	assert.ErrorIs(t, notFound, domain.ErrNotFound)
	assert.False(t, IsRemoteWriteError(notFound))

	invalid := newInvalidError("create", "orders", "x", &domain.ValidationError{Field: "status"})
	assert.True(t, IsInvalid(invalid))
	assert.True(t, domain.IsValidation(invalid))
	assert.False(t, IsNotFound(invalid))

	assert.False(t, IsRemoteWriteError(nil))
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}

func TestUUIDv7Generator(t *testing.T) {
	var g UUIDv7Generator
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
