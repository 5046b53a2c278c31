// Package sqlite provides the embedded SQLite questionnaire store used for
// local development and tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"vendorq/internal/infra/persistence/schema"
	"vendorq/internal/infra/persistence/sqlstore"
)

const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Dialect holds the SQLite statements used by the shared sql store.
var Dialect = sqlstore.Dialect{
	Name:              "sqlite",
	VendorExists:      `SELECT id FROM vendors WHERE id = ?`,
	FindQuestionnaire: `SELECT id FROM esg_questionnaires WHERE vendor_id = ?`,
	InsertQuestionnaire: `INSERT INTO esg_questionnaires (
		id, vendor_id, questions, auto_filled, total_questions, answered_questions, completion_percentage, completed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	RETURNING id`,
	UpdateQuestionnaire: `UPDATE esg_questionnaires
	SET questions = ?,
		total_questions = ?,
		answered_questions = ?,
		completion_percentage = ?,
		completed_at = ?
	WHERE vendor_id = ?
	RETURNING id`,
	RaiseProgress: `UPDATE vendors
	SET onboarding_progress = MAX(onboarding_progress, ?),
		updated_at = ?
	WHERE id = ?`,
	InsertAudit: `INSERT INTO audit_logs (id, vendor_id, action, metadata, actor, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`,
	LatestQuestionnaire: `SELECT id, vendor_id, questions, auto_filled, total_questions, answered_questions,
		completion_percentage, completed_at
	FROM esg_questionnaires
	WHERE vendor_id = ?
	ORDER BY completed_at DESC
	LIMIT 1`,
	EncodeTime: func(t time.Time) any { return t.UTC().Format(timeFormat) },
}

// Store persists questionnaires to an embedded SQLite file.
type Store struct {
	*sqlstore.Store
	path string
}

// NewStore opens (creating if needed) the SQLite database at path and applies the bundled schema.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "vendorq.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite serialises writers; a single connection keeps transactions from
	// tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := schema.Apply(ctx, db, schema.SQLite()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: sqlstore.New(db, Dialect), path: path}, nil
}

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// UpsertVendor creates the vendor row if missing, used to seed local databases.
func (s *Store) UpsertVendor(ctx context.Context, id, name string, progress int) error {
	_, err := s.DB().ExecContext(ctx, `INSERT INTO vendors (id, name, onboarding_progress) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`, id, name, progress)
	if err != nil {
		return fmt.Errorf("upsert vendor %s: %w", id, err)
	}
	return nil
}
