package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type sqlSettings struct {
	db  *sql.DB
	now func() time.Time
}

const settingsColumns = `user_id, company_name, company_slogan, company_tax_id, company_contact,
	company_logo, notif_low_stock, notif_deadlines, theme, density, layout_mode, updated_at`

func (s *sqlSettings) Fetch(ctx context.Context, owner string) (SettingsRow, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE user_id = ?", settingsColumns, TableSettings)

	var r SettingsRow
	err := s.db.QueryRowContext(ctx, query, owner).Scan(
		&r.UserID, &r.CompanyName, &r.CompanySlogan, &r.CompanyTaxID, &r.CompanyContact,
		&r.CompanyLogo, &r.NotifLowStock, &r.NotifDeadlines, &r.Theme, &r.Density, &r.LayoutMode, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SettingsRow{}, wrap("fetch", TableSettings, ErrNoRows)
	}
	if err != nil {
		return SettingsRow{}, wrap("fetch", TableSettings, err)
	}
	r.UpdatedAt = r.UpdatedAt.UTC()
	return r, nil
}

// Upsert writes the owner's settings row inside a transaction. It checks for
// an existing row first since the two dialects disagree on upsert syntax.
func (s *sqlSettings) Upsert(ctx context.Context, owner string, row SettingsRow) error {
	row.UserID = owner
	row.UpdatedAt = s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("upsert", TableSettings, err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+TableSettings+" WHERE user_id = ?", owner).Scan(&exists)
	if err != nil {
		return wrap("upsert", TableSettings, err)
	}

	values := []any{row.CompanyName, row.CompanySlogan, row.CompanyTaxID, row.CompanyContact,
		row.CompanyLogo, row.NotifLowStock, row.NotifDeadlines, row.Theme, row.Density, row.LayoutMode,
		row.UpdatedAt, owner}

	if exists > 0 {
		_, err = tx.ExecContext(ctx, `UPDATE `+TableSettings+` SET company_name = ?, company_slogan = ?,
			company_tax_id = ?, company_contact = ?, company_logo = ?, notif_low_stock = ?,
			notif_deadlines = ?, theme = ?, density = ?, layout_mode = ?, updated_at = ?
			WHERE user_id = ?`, values...)
	} else {
		_, err = tx.ExecContext(ctx, `INSERT INTO `+TableSettings+` (company_name, company_slogan,
			company_tax_id, company_contact, company_logo, notif_low_stock, notif_deadlines, theme,
			density, layout_mode, updated_at, user_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, values...)
	}
	if err != nil {
		return wrap("upsert", TableSettings, err)
	}
	return wrap("upsert", TableSettings, tx.Commit())
}
