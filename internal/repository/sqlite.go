package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteDB struct {
	db *sql.DB
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// SQLite serializes writers anyway; one connection also keeps ":memory:"
	// databases from splitting across the pool.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		PRAGMA foreign_keys = ON;
		PRAGMA busy_timeout = 5000;

		CREATE TABLE IF NOT EXISTS districts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL
		);

		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			last_latitude REAL,
			last_longitude REAL,
			last_district_id INTEGER,
			last_risk_level TEXT,
			last_alert_sent_at DATETIME,
			alert_seq INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (last_district_id) REFERENCES districts(id)
		);

		CREATE TABLE IF NOT EXISTS weather_readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			district_id INTEGER NOT NULL,
			temp_c REAL NOT NULL,
			humidity REAL NOT NULL,
			wind_speed REAL NOT NULL,
			description TEXT,
			observed_at DATETIME NOT NULL,
			FOREIGN KEY (district_id) REFERENCES districts(id)
		);

		CREATE TABLE IF NOT EXISTS risk_assessments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			district_id INTEGER NOT NULL,
			level TEXT NOT NULL,
			score REAL NOT NULL DEFAULT 0,
			assessed_at DATETIME NOT NULL,
			FOREIGN KEY (district_id) REFERENCES districts(id)
		);

		CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			message TEXT NOT NULL,
			user_id INTEGER NOT NULL,
			district_id INTEGER NOT NULL,
			level TEXT NOT NULL,
			sent_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (district_id) REFERENCES districts(id)
		);

		CREATE TABLE IF NOT EXISTS alert_dispatches (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			district_id INTEGER NOT NULL,
			level TEXT NOT NULL,
			message TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id)
		);

		CREATE TABLE IF NOT EXISTS locks (
			name TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_risk_assessments_district ON risk_assessments(district_id, assessed_at);
		CREATE INDEX IF NOT EXISTS idx_weather_readings_district ON weather_readings(district_id, observed_at);
		CREATE INDEX IF NOT EXISTS idx_alerts_sent_at ON alerts(sent_at);
		CREATE INDEX IF NOT EXISTS idx_alerts_user_id ON alerts(user_id);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_dispatches_one_pending ON alert_dispatches(user_id) WHERE status = 'pending';
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func nullFloatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	v := nf.Float64
	return &v
}

func nullInt64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}
