package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/domain"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// AuditStore implements ports.AuditStore as an append-only SQLite table.
// Records are inserted and read, never updated or deleted.
type AuditStore struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite audit store.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewAuditStore creates a new SQLite audit store.
func NewAuditStore(cfg Config) (*AuditStore, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite audit store")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/gateway_audit.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite audit store initialization failed")
		return nil, err
	}

	// Open database connection
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite audit store initialization failed")
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite audit store initialization failed")
		return nil, err
	}

	// Set connection pool settings (important for SQLite)
	db.SetMaxOpenConns(1) // SQLite handles concurrency internally, but Go driver benefits from limiting connections
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &AuditStore{db: db, logger: cfg.Logger}

	if err := store.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize audit schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite audit store initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Audit store initialized", map[string]interface{}{"path": dbPath})

	return store, nil
}

// initializeSchema creates the audit table if it doesn't exist.
func (s *AuditStore) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts TIMESTAMP NOT NULL,
		action TEXT NOT NULL,
		reason TEXT NOT NULL,
		metadata TEXT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_log_ts ON audit_log (ts);
	CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log (action);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Append inserts one audit record. Metadata is stored as a JSON document.
func (s *AuditStore) Append(ctx context.Context, entry domain.AuditEntry) error {
	var metadata []byte
	if entry.Metadata != nil {
		var err error
		metadata, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode audit metadata: %w", err)
		}
	}

	ts := entry.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	const query = `INSERT INTO audit_log (ts, action, reason, metadata) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, ts, entry.Action, entry.Reason, string(metadata)); err != nil {
		return fmt.Errorf("failed to insert audit entry (%s): %w: %v", entry.Action, ports.ErrQueryFailed, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. Used by ops tooling.
func (s *AuditStore) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT ts, action, reason, COALESCE(metadata, '') FROM audit_log ORDER BY id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		var raw string
		if err := rows.Scan(&entry.Time, &entry.Action, &entry.Reason, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &entry.Metadata); err != nil {
				s.logger.Warn(ctx, "Skipping unreadable audit metadata", map[string]interface{}{"action": entry.Action})
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Close closes the database connection.
func (s *AuditStore) Close() error {
	if s.db != nil {
		s.logger.Info(context.Background(), "Closing audit store connection")
		return s.db.Close()
	}
	return nil
}
