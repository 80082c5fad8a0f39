package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"worktrack/internal/event"
	"worktrack/internal/storage"
)

type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

func NewSQLiteStore(dbPath string) storage.Storage {
	return &SQLiteStore{dbPath: dbPath}
}

const createEventsTableSQL = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME NOT NULL,
	type TEXT NOT NULL,
	app_name TEXT,
	window_title TEXT,
	url TEXT,
	category TEXT,
	score INTEGER,
	value REAL,
	tag TEXT,
	notes TEXT
);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events (timestamp);
CREATE INDEX IF NOT EXISTS idx_events_type ON events (type);
`

func (s *SQLiteStore) Init(ctx context.Context) error {
	dir := filepath.Dir(s.dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create db directory %s: %w", dir, err)
	}

	log.Printf("Initializing SQLite database at: %s", s.dbPath)
	db, err := sql.Open("sqlite3", s.dbPath+"?_journal=WAL&_timeout=5000&_fk=true")
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	s.db = db

	// SQLite is best with a single writer connection
	s.db.SetMaxOpenConns(1)
	s.db.SetMaxIdleConns(1)
	s.db.SetConnMaxLifetime(time.Minute * 5)

	if err := s.db.PingContext(ctx); err != nil {
		s.db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, createEventsTableSQL); err != nil {
		s.db.Close()
		return fmt.Errorf("failed to create events table: %w", err)
	}
	log.Println("Database initialized successfully.")
	return nil
}

func (s *SQLiteStore) SaveEvent(ctx context.Context, e event.Event) (int64, error) {
	query := `INSERT INTO events (timestamp, type, app_name, window_title, url, category, score, value, tag, notes)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query, e.Timestamp.UTC(), e.Type, e.AppName, e.WindowTitle,
		e.URL, e.Category, e.Score, e.Value, e.Tag, e.Notes)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) GetEvents(ctx context.Context, start, end time.Time, eventTypes ...event.EventType) ([]event.Event, error) {
	query := `SELECT id, timestamp, type, app_name, window_title, url, category, score, value, tag, notes
	          FROM events
	          WHERE timestamp >= ? AND timestamp <= ?`
	args := []interface{}{start.UTC(), end.UTC()}
	return s.queryEvents(ctx, query, args, eventTypes)
}

// GetActivities also picks up activities that started before start but were
// still running at it. Activity rows are stamped with their start time, so
// the lower bound is widened by the longest archived activity.
func (s *SQLiteStore) GetActivities(ctx context.Context, start, end time.Time) ([]event.ActivityEntry, error) {
	var longest sql.NullFloat64
	if err := s.db.QueryRowContext(ctx,
		`SELECT MAX(value) FROM events WHERE type = ?`, event.EventTypeActivity).Scan(&longest); err != nil {
		return nil, fmt.Errorf("failed to query longest activity: %w", err)
	}
	from := start.Add(-time.Duration(longest.Float64 * float64(time.Second)))

	events, err := s.GetEvents(ctx, from, end, event.EventTypeActivity)
	if err != nil {
		return nil, err
	}

	var out []event.ActivityEntry
	for _, e := range events {
		a := event.ActivityFromEvent(e)
		if a.EndTime.Before(start) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *SQLiteStore) queryEvents(ctx context.Context, query string, args []interface{}, eventTypes []event.EventType) ([]event.Event, error) {
	if len(eventTypes) > 0 {
		placeholders := strings.Repeat("?,", len(eventTypes)-1) + "?"
		query += fmt.Sprintf(" AND type IN (%s)", placeholders)
		for _, et := range eventTypes {
			args = append(args, et)
		}
	}
	query += " ORDER BY timestamp ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var e event.Event
		var appName, windowTitle, url, category, tag, notes sql.NullString
		var score sql.NullInt64
		var value sql.NullFloat64

		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Type, &appName, &windowTitle, &url,
			&category, &score, &value, &tag, &notes); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		e.AppName = appName.String
		e.WindowTitle = windowTitle.String
		e.URL = url.String
		e.Category = category.String
		e.Score = int(score.Int64)
		e.Value = value.Float64
		e.Tag = tag.String
		e.Notes = notes.String
		events = append(events, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	return events, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		log.Println("Closing database connection.")
		return s.db.Close()
	}
	return nil
}
