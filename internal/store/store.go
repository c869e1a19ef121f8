// Package store keeps the write-back audit log. The spreadsheet is the
// system of record; this log only answers "what did we write and when"
// after the fact, since sheet edits carry no history.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"castboard/internal/events"
)

// DB wraps sql.DB for the dashboard.
type DB struct {
	*sql.DB
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string) (*DB, error) {
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
		`CREATE TABLE IF NOT EXISTS writeback_audit (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			sheet_date TEXT NOT NULL,
			sheet_row INTEGER,
			cast_name TEXT,
			brand TEXT,
			payload TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_writeback_audit_date ON writeback_audit(sheet_date)`,
		`CREATE INDEX IF NOT EXISTS idx_writeback_audit_cast ON writeback_audit(cast_name)`,
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

// AuditEntry is one recorded sheet write.
type AuditEntry struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	SheetDate string          `json:"sheetDate"`
	SheetRow  int             `json:"sheetRow"`
	CastName  string          `json:"castName"`
	Brand     string          `json:"brand"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// RecordWrite inserts an audit entry and returns its generated id.
func (db *DB) RecordWrite(ctx context.Context, entry AuditEntry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO writeback_audit (id, kind, sheet_date, sheet_row, cast_name, brand, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Kind, entry.SheetDate, entry.SheetRow, entry.CastName, entry.Brand, string(entry.Payload),
	)
	if err != nil {
		return "", fmt.Errorf("record write: %w", err)
	}
	return entry.ID, nil
}

// WritesForDate lists audited writes against one day sheet, newest
// first.
func (db *DB) WritesForDate(ctx context.Context, sheetDate string) ([]AuditEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, kind, sheet_date, sheet_row, cast_name, brand, payload, created_at
		 FROM writeback_audit WHERE sheet_date = ? ORDER BY created_at DESC`,
		sheetDate,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var payload string
		if err := rows.Scan(&e.ID, &e.Kind, &e.SheetDate, &e.SheetRow, &e.CastName, &e.Brand, &payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		if payload != "" {
			e.Payload = json.RawMessage(payload)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SubscribeAudit wires the audit log to booking.written events so every
// successful sheet write lands in the log regardless of which handler
// performed it.
func (db *DB) SubscribeAudit(bus *events.EventBus, logger *zerolog.Logger) {
	bus.Subscribe(events.BookingWritten, func(event events.Event) error {
		var entry AuditEntry
		if err := json.Unmarshal(event.Payload, &entry); err != nil {
			logger.Error().Err(err).Msg("Malformed booking.written payload")
			return err
		}
		if _, err := db.RecordWrite(context.Background(), entry); err != nil {
			logger.Error().Err(err).Msg("Audit write failed")
			return err
		}
		return nil
	})
}
