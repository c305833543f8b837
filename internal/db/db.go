package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/hpungsan/leadscan/internal/config"
)

// CurrentSchemaVersion is the latest SQLite schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Dialect selects the SQL flavor a Store speaks.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	default:
		return "unknown"
	}
}

// Store is a write-only sink for analysis runs.
type Store struct {
	DB      *sql.DB
	Dialect Dialect

	// Schema qualifies table names on Postgres. Ignored on SQLite.
	Schema string
}

// NewStore wraps an already-open database. Callers are responsible for the schema.
func NewStore(db *sql.DB, dialect Dialect, schema string) *Store {
	return &Store{DB: db, Dialect: dialect, Schema: schema}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// OpenSQLite opens (creating if needed) the SQLite export database at path.
func OpenSQLite(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, eris.Wrap(err, "failed to create database directory")
		}
	}

	// Pragmas in the connection string apply to every pooled connection
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "failed to open database")
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Best-effort, the file exists once migrations ran
	_ = os.Chmod(path, 0600)

	return NewStore(db, SQLite, ""), nil
}

// OpenPostgres connects to url and makes sure schema and its tables exist.
func OpenPostgres(ctx context.Context, url, schema string) (*Store, error) {
	schema, err := SanitizeSchema(schema)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, eris.Wrap(err, "failed to open postgres")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "failed to connect to postgres")
	}

	if err := ensurePostgresSchema(ctx, db, schema); err != nil {
		db.Close()
		return nil, err
	}

	return NewStore(db, Postgres, schema), nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

var schemaPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// SanitizeSchema validates a Postgres schema name. Schema names are
// interpolated into DDL, so only plain identifiers are accepted.
func SanitizeSchema(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", eris.New("schema name is required")
	}
	if !schemaPattern.MatchString(value) {
		return "", eris.Errorf("invalid schema name %q", value)
	}
	return value, nil
}

// table returns the qualified name of a table for this store.
func (s *Store) table(name string) string {
	if s.Dialect == Postgres && s.Schema != "" {
		return s.Schema + "." + name
	}
	return name
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.Dialect != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// migrate applies SQLite schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS scan_runs (
		  id                TEXT PRIMARY KEY,
		  tag               TEXT,
		  title             TEXT NOT NULL,
		  source_path       TEXT NOT NULL,
		  total_leads       INTEGER NOT NULL,
		  customer_count    INTEGER NOT NULL,
		  multi_lead_count  INTEGER NOT NULL,
		  returning_count   INTEGER NOT NULL,
		  threshold_seconds INTEGER NOT NULL,
		  created_at        INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS scan_customers (
		  run_id        TEXT NOT NULL REFERENCES scan_runs(id) ON DELETE CASCADE,
		  customer_id   TEXT NOT NULL,
		  position      INTEGER NOT NULL,
		  name          TEXT NOT NULL,
		  phone         TEXT NOT NULL,
		  lead_count    INTEGER NOT NULL,
		  is_multi      INTEGER NOT NULL,
		  is_returning  INTEGER NOT NULL,
		  drift_seconds INTEGER NOT NULL,
		  PRIMARY KEY (run_id, customer_id)
		);

		CREATE TABLE IF NOT EXISTS scan_leads (
		  id           TEXT PRIMARY KEY,
		  run_id       TEXT NOT NULL REFERENCES scan_runs(id) ON DELETE CASCADE,
		  customer_id  TEXT NOT NULL,
		  position     INTEGER NOT NULL,
		  postal_code  TEXT,
		  delivery     TEXT,
		  size         TEXT,
		  city         TEXT,
		  submitted_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_scan_leads_run_customer
		ON scan_leads(run_id, customer_id);

		CREATE INDEX IF NOT EXISTS idx_scan_customers_returning
		ON scan_customers(run_id)
		WHERE is_returning = 1;
		`
		if _, err := db.Exec(schema); err != nil {
			return eris.Wrap(err, "migration 1 failed")
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// ensurePostgresSchema creates the schema and tables on first use.
func ensurePostgresSchema(ctx context.Context, db *sql.DB, schema string) error {
	statements := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, schema),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s.scan_runs (
		  id                TEXT PRIMARY KEY,
		  tag               TEXT,
		  title             TEXT NOT NULL,
		  source_path       TEXT NOT NULL,
		  total_leads       INTEGER NOT NULL,
		  customer_count    INTEGER NOT NULL,
		  multi_lead_count  INTEGER NOT NULL,
		  returning_count   INTEGER NOT NULL,
		  threshold_seconds BIGINT NOT NULL,
		  created_at        BIGINT NOT NULL
		)`, schema),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s.scan_customers (
		  run_id        TEXT NOT NULL REFERENCES %[1]s.scan_runs(id) ON DELETE CASCADE,
		  customer_id   uuid NOT NULL,
		  position      INTEGER NOT NULL,
		  name          TEXT NOT NULL,
		  phone         TEXT NOT NULL,
		  lead_count    INTEGER NOT NULL,
		  is_multi      BOOLEAN NOT NULL,
		  is_returning  BOOLEAN NOT NULL,
		  drift_seconds BIGINT NOT NULL,
		  PRIMARY KEY (run_id, customer_id)
		)`, schema),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s.scan_leads (
		  id           uuid PRIMARY KEY,
		  run_id       TEXT NOT NULL REFERENCES %[1]s.scan_runs(id) ON DELETE CASCADE,
		  customer_id  uuid NOT NULL,
		  position     INTEGER NOT NULL,
		  postal_code  TEXT,
		  delivery     TEXT,
		  size         TEXT,
		  city         TEXT,
		  submitted_at BIGINT NOT NULL
		)`, schema),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_scan_leads_run_customer_idx ON %[1]s.scan_leads (run_id, customer_id)`, schema),
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "failed to prepare schema %s", schema)
		}
	}
	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return eris.Wrap(err, "failed to verify journal mode")
	}
	if journalMode != "wal" {
		return eris.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, eris.Wrap(err, "failed to get user_version")
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version)); err != nil {
		return eris.Wrap(err, "failed to set user_version")
	}
	return nil
}
