package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("not found")

// Dialect identifies the SQL flavour behind a Store.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// currentLockKey serializes current-assignment flips on Postgres.
const currentLockKey = 7310412

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Store is the persistence gateway for assignments, submissions and the
// system prompt.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
}

// New opens the database named by dsn and creates missing tables.
// A postgres:// or postgresql:// URL selects Postgres; anything else is a
// SQLite path (":memory:" included).
func New(dsn string) (*Store, error) {
	dialect, driver, source := resolveDSN(dsn)
	db, err := sqlx.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dialect == DialectSQLite {
		// One connection: serialized writers, and ":memory:" stays a single database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db, dialect: dialect}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func resolveDSN(dsn string) (Dialect, string, string) {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DialectPostgres, "pgx", dsn
	}
	if strings.Contains(dsn, "?") {
		return DialectSQLite, "sqlite", dsn
	}
	params := "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite"
	if dsn != ":memory:" {
		params += "&_pragma=journal_mode(WAL)"
	}
	return DialectSQLite, "sqlite", dsn + "?" + params
}

// Dialect reports which SQL flavour the store talks to.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	schema := sqliteSchema
	if s.dialect == DialectPostgres {
		schema = postgresSchema
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS assignments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		prompt_text TEXT NOT NULL,
		is_current BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_single_current
		ON assignments (is_current) WHERE is_current = 1`,
	`CREATE INDEX IF NOT EXISTS idx_assignments_created_at ON assignments (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		original_content TEXT NOT NULL,
		assignment_id INTEGER REFERENCES assignments(id),
		state TEXT NOT NULL DEFAULT 'new',
		generated_question TEXT,
		student_response TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_created_at ON submissions (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS system_prompts (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		prompt_text TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS assignments (
		id BIGSERIAL PRIMARY KEY,
		prompt_text TEXT NOT NULL,
		is_current BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_single_current
		ON assignments (is_current) WHERE is_current`,
	`CREATE INDEX IF NOT EXISTS idx_assignments_created_at ON assignments (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS submissions (
		id BIGSERIAL PRIMARY KEY,
		original_content TEXT NOT NULL,
		assignment_id BIGINT REFERENCES assignments(id),
		state TEXT NOT NULL DEFAULT 'new',
		generated_question TEXT,
		student_response TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_created_at ON submissions (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS system_prompts (
		id BIGINT PRIMARY KEY CHECK (id = 1),
		prompt_text TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

// withReadTx runs fn in a read-only transaction that sees one snapshot.
// SQLite gets that from its single connection.
func (s *Store) withReadTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	var opts *sql.TxOptions
	if s.dialect == DialectPostgres {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	tx, err := s.db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// withTx runs fn inside one transaction. Any error rolls back every write
// fn made.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// lockCurrent serializes concurrent current-assignment changes. SQLite
// already runs one writer at a time.
func (s *Store) lockCurrent(ctx context.Context, tx *sqlx.Tx) error {
	if s.dialect != DialectPostgres {
		return nil
	}
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, currentLockKey)
	return err
}

func normalizePage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = 100
	}
	return skip, limit
}
