package repos

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Timestamps are stored as fixed-width UTC text so they sort lexically on
// both SQLite and Postgres.
const tsLayout = "2006-01-02T15:04:05.000000Z07:00"

func formatTS(t time.Time) string { return t.UTC().Format(tsLayout) }

func parseTS(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(tsLayout, s)
}

func parseTSPtr(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseTS(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation reports a UNIQUE or PRIMARY KEY conflict from either
// driver.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "UNIQUE")
		}
	}
	return false
}

// OpenDB connects with "sqlite" (modernc) or "pgx" (Postgres) and makes sure
// the schema exists.
func OpenDB(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case "", "sqlite":
		driver = "sqlite"
	case "pgx", "postgres":
		driver = "pgx"
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// One writer; also keeps ":memory:" databases on a single connection.
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the tables if needed. The DDL sticks to the subset shared by
// SQLite and Postgres.
func Migrate(db *sqlx.DB) error {
	if db.DriverName() == "sqlite" {
		if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
			return err
		}
	}
	schema := `
-- Sections (catalog). LAB sections are never stored as rows.
CREATE TABLE IF NOT EXISTS sections(
  section_id BIGINT PRIMARY KEY,
  course_id BIGINT NOT NULL,
  section_name TEXT NOT NULL,
  course_code TEXT NOT NULL,
  course_credit INTEGER NOT NULL DEFAULT 3,
  section_type TEXT NOT NULL DEFAULT 'OTHER' CHECK (section_type IN ('LECTURE','OTHER')),
  capacity INTEGER NOT NULL,
  consumed_seat INTEGER NOT NULL DEFAULT 0,
  available_seats INTEGER NOT NULL DEFAULT 0 CHECK (available_seats >= 0),
  room_name TEXT,
  room_number TEXT,
  faculties TEXT,
  academic_degree TEXT NOT NULL DEFAULT 'UNDERGRADUATE',
  semester_session_id BIGINT NOT NULL DEFAULT 0,
  schedule_data TEXT,
  last_fetched_at TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_sections_code  ON sections(course_code);
CREATE INDEX IF NOT EXISTS idx_sections_seats ON sections(available_seats);

-- Users (notification recipients)
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  full_name TEXT NOT NULL DEFAULT '',
  email_notifications_enabled INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users(LOWER(email));

-- Alerts (subscriptions)
CREATE TABLE IF NOT EXISTS alerts(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  section_id BIGINT NOT NULL REFERENCES sections(section_id) ON DELETE CASCADE,
  notification_interval_minutes INTEGER NOT NULL DEFAULT 30
    CHECK (notification_interval_minutes BETWEEN 1 AND 1440),
  is_active INTEGER NOT NULL DEFAULT 1,
  last_notification_sent TEXT,
  notification_count INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  updated_at TEXT,
  UNIQUE(user_id, section_id)
);
CREATE INDEX IF NOT EXISTS idx_alerts_active  ON alerts(is_active);
CREATE INDEX IF NOT EXISTS idx_alerts_section ON alerts(section_id);
`
	_, err := db.Exec(schema)
	return err
}
