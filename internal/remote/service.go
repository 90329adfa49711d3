package remote

import (
	"context"
	"errors"
	"fmt"
)

// Table names as they appear in the backend.
const (
	TableOrders    = "orders"
	TableProducts  = "products"
	TableMaterials = "materials"
	TableSettings  = "app_settings"
)

// ErrNoRows is returned when a single-row read or an update finds nothing
// for the owner.
var ErrNoRows = errors.New("no rows")

// Table is the generic CRUD surface of one owner-scoped table.
type Table[R any] interface {
	// SelectAll returns the owner's rows, newest created first.
	SelectAll(ctx context.Context, owner string) ([]R, error)
	// Insert stores row under owner and returns it as stored.
	Insert(ctx context.Context, owner string, row R) (R, error)
	// Update writes the named columns of row to the owner's row with the
	// given id, or every column when none are named.
	Update(ctx context.Context, owner, id string, row R, columns ...string) (R, error)
	// Delete removes the owner's row with the given id. Deleting a row that
	// does not exist is not an error.
	Delete(ctx context.Context, owner, id string) error
}

// SettingsTable holds at most one settings row per owner.
type SettingsTable interface {
	// Fetch returns ErrNoRows when the owner has never saved settings.
	Fetch(ctx context.Context, owner string) (SettingsRow, error)
	Upsert(ctx context.Context, owner string, row SettingsRow) error
}

// Service groups the tenant tables.
type Service interface {
	Orders() Table[OrderRow]
	Products() Table[ProductRow]
	Materials() Table[MaterialRow]
	Settings() SettingsTable
}

// ServiceError annotates a backend failure with the operation and table.
type ServiceError struct {
	Op    string
	Table string
	Err   error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func wrap(op, table string, err error) error {
	if err == nil {
		return nil
	}
	return &ServiceError{Op: op, Table: table, Err: err}
}
