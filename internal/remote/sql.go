package remote

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema_sqlite.sql
var schemaSQLite string

//go:embed schema_mysql.sql
var schemaMySQL string

// Supported database/sql driver names.
const (
	DriverSQLite = "sqlite3"
	DriverMySQL  = "mysql"
)

// Schema version tracking (SQLite only, via PRAGMA user_version):
// 0 - Initial tables
// 1 - Owner/creation indexes on the entity tables
const currentSchemaVersion = 1

// SQLService is a Service backed by SQLite or MySQL.
type SQLService struct {
	db     *sql.DB
	driver string

	orders    *sqlTable[OrderRow]
	products  *sqlTable[ProductRow]
	materials *sqlTable[MaterialRow]
	settings  *sqlSettings
}

// Open connects to the backend and applies the schema. For SQLite the dsn
// is a file path (or ":memory:"); for MySQL it is a go-sql-driver DSN, which
// is forced to parse DATETIME columns into time.Time.
func Open(driver, dsn string) (*SQLService, error) {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		dsn = cfg.FormatDSN()
		schema = schemaMySQL
	default:
		return nil, fmt.Errorf("unsupported remote driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open remote database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to remote database: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite only supports one writer at a time.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}

	if err := applySchema(db, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if driver == DriverSQLite {
		if err := runMigrations(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	return newSQLService(db, driver, func() time.Time { return time.Now().UTC() }), nil
}

func newSQLService(db *sql.DB, driver string, now func() time.Time) *SQLService {
	return &SQLService{
		db:        db,
		driver:    driver,
		orders:    &sqlTable[OrderRow]{db: db, codec: orderCodec, now: now},
		products:  &sqlTable[ProductRow]{db: db, codec: productCodec, now: now},
		materials: &sqlTable[MaterialRow]{db: db, codec: materialCodec, now: now},
		settings:  &sqlSettings{db: db, now: now},
	}
}

func (s *SQLService) Orders() Table[OrderRow]       { return s.orders }
func (s *SQLService) Products() Table[ProductRow]   { return s.products }
func (s *SQLService) Materials() Table[MaterialRow] { return s.materials }
func (s *SQLService) Settings() SettingsTable       { return s.settings }

// Driver returns the database/sql driver name in use.
func (s *SQLService) Driver() string {
	return s.driver
}

// Ping checks the connection.
func (s *SQLService) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLService) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema runs each statement separately; the MySQL driver rejects
// multi-statement Exec unless the DSN opts in.
func applySchema(db *sql.DB, schema string) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}

func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV1 adds the (user_id, created_at) indexes that back SelectAll.
func migrateToV1(db *sql.DB) error {
	for _, table := range []string{TableOrders, TableProducts, TableMaterials} {
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_owner_created ON %s(user_id, created_at)", table, table)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}
	return nil
}
