package store

import (
	"database/sql"
	"fmt"
	"net/url"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"
)

// Schema version history:
//
//	1 - UNIQUE(name, weekday, period) on courses
//	2 - natural-key uniqueness dropped so replicated records can merge;
//	    duplicates are cleaned up by the reconciler instead
//	3 - courses.synced marks rows the remote bucket has acknowledged
const currentSchemaVersion = 3

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS courses (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	teacher     TEXT NOT NULL DEFAULT '',
	location    TEXT NOT NULL DEFAULT '',
	color       TEXT NOT NULL DEFAULT '',
	weekday     INTEGER NOT NULL,
	period      INTEGER NOT NULL,
	span        INTEGER NOT NULL DEFAULT 1,
	week_first  INTEGER NOT NULL DEFAULT 1,
	week_last   INTEGER NOT NULL DEFAULT 1,
	week_parity TEXT NOT NULL DEFAULT 'all',
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL,
	-- 1 once the remote holds this revision; local edits reset it to 0.
	synced      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_courses_slot ON courses(weekday, period);

-- Course ids deleted locally that the remote bucket has not seen yet.
CREATE TABLE IF NOT EXISTS tombstones (
	id         TEXT PRIMARY KEY,
	deleted_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS preferences (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// SQLite wraps a sql.DB with course and preference operations.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the durable database at path and applies
// the schema.
func OpenSQLite(path string) (*SQLite, error) {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", "5000")
	q.Set("_foreign_keys", "on")
	return open("file:"+path+"?"+q.Encode(), false)
}

var memSeq atomic.Int64

// OpenMemory opens a fresh in-memory database. Its contents are gone when
// the store is closed.
func OpenMemory() (*SQLite, error) {
	name := fmt.Sprintf("classdeck-mem-%d", memSeq.Add(1))
	return open("file:"+name+"?mode=memory&cache=shared&_foreign_keys=on", true)
}

func open(dsn string, memory bool) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if memory {
		// A memory database lives as long as its last connection.
		conn.SetMaxOpenConns(1)
		conn.SetConnMaxLifetime(0)
		conn.SetConnMaxIdleTime(0)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply core schema: %w", err)
	}
	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &SQLite{conn: conn}, nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(conn *sql.DB) error {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("store: get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("store: database schema v%d is newer than v%d", version, currentSchemaVersion)
	}
	if version < 2 {
		if err := migrateToV2(conn); err != nil {
			return err
		}
	}
	if version < 3 {
		if err := migrateToV3(conn); err != nil {
			return err
		}
	}
	if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("store: set user_version: %w", err)
	}
	return nil
}

// migrateToV2 drops the natural-key unique index that v1 databases carry.
func migrateToV2(conn *sql.DB) error {
	if _, err := conn.Exec(`DROP INDEX IF EXISTS idx_courses_natural`); err != nil {
		return fmt.Errorf("store: migrate to v2: %w", err)
	}
	return nil
}

// migrateToV3 adds courses.synced. Existing rows start unsynced, so the
// next Sync pushes or confirms each of them.
func migrateToV3(conn *sql.DB) error {
	rows, err := conn.Query(`PRAGMA table_info(courses)`)
	if err != nil {
		return fmt.Errorf("store: migrate to v3: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, typ        string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("store: migrate to v3: %w", err)
		}
		if name == "synced" {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("store: migrate to v3: %w", err)
	}
	rows.Close()
	if _, err := conn.Exec(`ALTER TABLE courses ADD COLUMN synced INTEGER NOT NULL DEFAULT 0`); err != nil {
		return fmt.Errorf("store: migrate to v3: %w", err)
	}
	return nil
}

// SchemaVersion reports the database's user_version.
func (s *SQLite) SchemaVersion() (int, error) {
	var v int
	err := s.conn.QueryRow("PRAGMA user_version").Scan(&v)
	return v, err
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}
