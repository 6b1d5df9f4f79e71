// Package database implements the calendar store on sqlite: services,
// the weekly work schedule, holidays, the settings singleton and the
// appointment ledger.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps sql.DB for the booking bot.
type DB struct {
	*sql.DB
}

// New opens the database at path and runs migrations.
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS clients (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			telegram_id INTEGER UNIQUE NOT NULL,
			username TEXT,
			full_name TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS services (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			duration_minutes INTEGER NOT NULL,
			price REAL NOT NULL,
			description TEXT,
			active BOOLEAN NOT NULL DEFAULT 1
		)`,

		`CREATE TABLE IF NOT EXISTS work_schedule (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			weekday INTEGER UNIQUE NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			is_working BOOLEAN NOT NULL DEFAULT 1
		)`,

		`CREATE TABLE IF NOT EXISTS holidays (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT UNIQUE NOT NULL,
			reason TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			admin_chat_id INTEGER NOT NULL,
			planning_horizon_days INTEGER NOT NULL DEFAULT 30,
			timezone TEXT NOT NULL DEFAULT 'Europe/Moscow'
		)`,

		`CREATE TABLE IF NOT EXISTS appointments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reference TEXT UNIQUE NOT NULL,
			client_id INTEGER NOT NULL,
			service_id INTEGER NOT NULL,
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			google_event_id TEXT,
			reminded_24h BOOLEAN NOT NULL DEFAULT 0,
			reminded_2h BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (client_id) REFERENCES clients(id),
			FOREIGN KEY (service_id) REFERENCES services(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_appointments_times ON appointments(start_time, end_time)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_status ON appointments(status)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_client ON appointments(client_id)`,
		`CREATE INDEX IF NOT EXISTS idx_holidays_date ON holidays(date)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// EnsureDefaults seeds the settings singleton, one schedule row per
// weekday and the starter services. Idempotent; called on every start so
// the one-row-per-weekday invariant holds even on a fresh database.
func (db *DB) EnsureDefaults(ctx context.Context, adminChatID int64) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO settings (id, admin_chat_id, planning_horizon_days, timezone)
		VALUES (1, ?, 30, 'Europe/Moscow')
		ON CONFLICT(id) DO NOTHING`,
		adminChatID,
	)
	if err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}

	// Mon-Fri 09:00-18:00 working, Sat/Sun off.
	for weekday := 0; weekday < 7; weekday++ {
		working := weekday <= 4
		start, end := "09:00", "18:00"
		if !working {
			start, end = "00:00", "00:00"
		}
		_, err := db.ExecContext(ctx, `
			INSERT INTO work_schedule (weekday, start_time, end_time, is_working)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(weekday) DO NOTHING`,
			weekday, start, end, working,
		)
		if err != nil {
			return fmt.Errorf("seed schedule for weekday %d: %w", weekday, err)
		}
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM services").Scan(&count); err != nil {
		return fmt.Errorf("count services: %w", err)
	}
	if count == 0 {
		defaults := []struct {
			name     string
			duration int
			price    float64
			desc     string
		}{
			{"Маникюр", 60, 1500, "Классический маникюр"},
			{"Педикюр", 90, 2500, "Классический педикюр"},
			{"Покрытие гель-лаком", 45, 1000, "Покрытие ногтей гель-лаком"},
		}
		for _, s := range defaults {
			_, err := db.ExecContext(ctx,
				"INSERT INTO services (name, duration_minutes, price, description, active) VALUES (?, ?, ?, ?, 1)",
				s.name, s.duration, s.price, s.desc,
			)
			if err != nil {
				return fmt.Errorf("seed service %s: %w", s.name, err)
			}
		}
	}

	return nil
}
