package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// rowCodec describes how one row type maps onto its table. columns lists
// every column in select order and always starts with id, user_id and
// created_at; values returns the row's fields aligned with columns.
type rowCodec[R any] struct {
	table   string
	columns []string
	values  func(R) []any
	scan    func(rowScanner) (R, error)
	stamp   func(r R, owner string, now time.Time) R
}

// keyColumns are never written by Update.
var keyColumns = []string{ColID, ColUserID, ColCreatedAt}

// sqlTable implements Table on database/sql.
type sqlTable[R any] struct {
	db    *sql.DB
	codec rowCodec[R]
	now   func() time.Time
}

func (t *sqlTable[R]) selectList() string {
	return strings.Join(t.codec.columns, ", ")
}

func (t *sqlTable[R]) SelectAll(ctx context.Context, owner string) ([]R, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE user_id = ? ORDER BY created_at DESC, id ASC",
		t.selectList(), t.codec.table)

	rows, err := t.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, wrap("select", t.codec.table, err)
	}
	defer rows.Close()

	out := []R{}
	for rows.Next() {
		r, err := t.codec.scan(rows)
		if err != nil {
			return nil, wrap("scan", t.codec.table, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("select", t.codec.table, err)
	}
	return out, nil
}

func (t *sqlTable[R]) Insert(ctx context.Context, owner string, row R) (R, error) {
	row = t.codec.stamp(row, owner, t.now())
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.codec.columns)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.codec.table, t.selectList(), placeholders)

	if _, err := t.db.ExecContext(ctx, query, t.codec.values(row)...); err != nil {
		var zero R
		return zero, wrap("insert", t.codec.table, err)
	}
	return row, nil
}

func (t *sqlTable[R]) Update(ctx context.Context, owner, id string, row R, columns ...string) (R, error) {
	var zero R
	if len(columns) == 0 {
		columns = t.writableColumns()
	}

	values := t.codec.values(row)
	sets := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns)+2)
	for _, col := range columns {
		i := slices.Index(t.codec.columns, col)
		if i < 0 || slices.Contains(keyColumns, col) {
			return zero, wrap("update", t.codec.table, fmt.Errorf("column %q is not writable", col))
		}
		sets = append(sets, col+" = ?")
		args = append(args, values[i])
	}
	args = append(args, id, owner)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ? AND user_id = ?", t.codec.table, strings.Join(sets, ", "))
	if _, err := t.db.ExecContext(ctx, query, args...); err != nil {
		return zero, wrap("update", t.codec.table, err)
	}

	// Read back rather than trusting RowsAffected: MySQL reports changed
	// rows, not matched rows.
	query = fmt.Sprintf("SELECT %s FROM %s WHERE id = ? AND user_id = ?", t.selectList(), t.codec.table)
	updated, err := t.codec.scan(t.db.QueryRowContext(ctx, query, id, owner))
	if errors.Is(err, sql.ErrNoRows) {
		return zero, wrap("update", t.codec.table, fmt.Errorf("id %s: %w", id, ErrNoRows))
	}
	if err != nil {
		return zero, wrap("update", t.codec.table, err)
	}
	return updated, nil
}

func (t *sqlTable[R]) Delete(ctx context.Context, owner, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ? AND user_id = ?", t.codec.table)
	_, err := t.db.ExecContext(ctx, query, id, owner)
	return wrap("delete", t.codec.table, err)
}

func (t *sqlTable[R]) writableColumns() []string {
	out := make([]string, 0, len(t.codec.columns))
	for _, col := range t.codec.columns {
		if !slices.Contains(keyColumns, col) {
			out = append(out, col)
		}
	}
	return out
}

var orderCodec = rowCodec[OrderRow]{
	table: TableOrders,
	columns: []string{ColID, ColUserID, ColCreatedAt, ColClient, ColDeadline, ColStatus,
		ColOrigin, ColShippingCost, ColTotalValue, ColItems},
	values: func(r OrderRow) []any {
		return []any{r.ID, r.UserID, r.CreatedAt, r.Client, r.Deadline, r.Status,
			r.Origin, r.ShippingCost, r.TotalValue, r.Items}
	},
	scan: func(s rowScanner) (OrderRow, error) {
		var r OrderRow
		err := s.Scan(&r.ID, &r.UserID, &r.CreatedAt, &r.Client, &r.Deadline, &r.Status,
			&r.Origin, &r.ShippingCost, &r.TotalValue, &r.Items)
		r.CreatedAt = r.CreatedAt.UTC()
		return r, err
	},
	stamp: func(r OrderRow, owner string, now time.Time) OrderRow {
		r.UserID = owner
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		return r
	},
}

var productCodec = rowCodec[ProductRow]{
	table: TableProducts,
	columns: []string{ColID, ColUserID, ColCreatedAt, ColName, ColSKU, ColMaterials,
		ColCost, ColStock, ColImage},
	values: func(r ProductRow) []any {
		return []any{r.ID, r.UserID, r.CreatedAt, r.Name, r.SKU, r.Materials, r.Cost, r.Stock, r.Image}
	},
	scan: func(s rowScanner) (ProductRow, error) {
		var r ProductRow
		err := s.Scan(&r.ID, &r.UserID, &r.CreatedAt, &r.Name, &r.SKU, &r.Materials, &r.Cost, &r.Stock, &r.Image)
		r.CreatedAt = r.CreatedAt.UTC()
		return r, err
	},
	stamp: func(r ProductRow, owner string, now time.Time) ProductRow {
		r.UserID = owner
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		return r
	},
}

var materialCodec = rowCodec[MaterialRow]{
	table: TableMaterials,
	columns: []string{ColID, ColUserID, ColCreatedAt, ColName, ColUnit, ColCostPerUnit,
		ColStock, ColMinStock},
	values: func(r MaterialRow) []any {
		return []any{r.ID, r.UserID, r.CreatedAt, r.Name, r.Unit, r.CostPerUnit, r.Stock, r.MinStock}
	},
	scan: func(s rowScanner) (MaterialRow, error) {
		var r MaterialRow
		err := s.Scan(&r.ID, &r.UserID, &r.CreatedAt, &r.Name, &r.Unit, &r.CostPerUnit, &r.Stock, &r.MinStock)
		r.CreatedAt = r.CreatedAt.UTC()
		return r, err
	},
	stamp: func(r MaterialRow, owner string, now time.Time) MaterialRow {
		r.UserID = owner
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		return r
	},
}
