// Package postgres provides the Postgres-backed questionnaire store. It uses
// pgx through database/sql and targets the externally managed
// vendors/esg_questionnaires/audit_logs schema.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"vendorq/internal/infra/persistence/schema"
	"vendorq/internal/infra/persistence/sqlstore"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/vendorq?sslmode=disable"
	defaultPort   = 5432
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Dialect holds the Postgres statements used by the shared sql store.
var Dialect = sqlstore.Dialect{
	Name:              "postgres",
	VendorExists:      `SELECT id::text FROM vendors WHERE id = $1`,
	FindQuestionnaire: `SELECT id::text FROM esg_questionnaires WHERE vendor_id = $1`,
	InsertQuestionnaire: `INSERT INTO esg_questionnaires (
		id, vendor_id, questions, auto_filled, total_questions, answered_questions, completion_percentage, completed_at
	) VALUES ($1, $2, $3::jsonb, $4, $5, $6, $7, $8)
	RETURNING id::text`,
	UpdateQuestionnaire: `UPDATE esg_questionnaires
	SET questions = $1::jsonb,
		total_questions = $2,
		answered_questions = $3,
		completion_percentage = $4,
		completed_at = $5
	WHERE vendor_id = $6
	RETURNING id::text`,
	RaiseProgress: `UPDATE vendors
	SET onboarding_progress = GREATEST(onboarding_progress, $1),
		updated_at = $2
	WHERE id = $3`,
	InsertAudit: `INSERT INTO audit_logs (id, vendor_id, action, metadata, actor, created_at)
	VALUES ($1, $2, $3, $4::jsonb, $5, $6)`,
	LatestQuestionnaire: `SELECT id::text, vendor_id::text, questions, auto_filled, total_questions, answered_questions,
		completion_percentage::float8, completed_at
	FROM esg_questionnaires
	WHERE vendor_id = $1
	ORDER BY completed_at DESC NULLS LAST
	LIMIT 1`,
}

// Store is the Postgres questionnaire store.
type Store struct {
	*sqlstore.Store
}

// Options tunes NewStore.
type Options struct {
	// ApplySchema runs the bundled DDL after connecting.
	ApplySchema bool
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to defaultDSN).
func NewStore(ctx context.Context, dsn string, opts Options) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if opts.ApplySchema {
		if err := schema.Apply(ctx, db, schema.Postgres()); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &Store{Store: sqlstore.New(db, Dialect)}, nil
}

// ConnInfo describes a server connection whose credentials come from a secret.
type ConnInfo struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

// DSN renders the connection info as a postgres URL.
func (c ConnInfo) DSN() string {
	port := c.Port
	if port == 0 {
		port = defaultPort
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(port)),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
