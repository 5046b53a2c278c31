// Package sqlstore implements the questionnaire persistent store over
// database/sql. Dialect-specific SQL is supplied by the postgres and sqlite
// adapters.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vendorq/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

// Dialect carries the statements and value encoding of one SQL backend.
//
// Statement parameters, in order:
//
//	VendorExists:        vendor id
//	FindQuestionnaire:   vendor id
//	InsertQuestionnaire: id, vendor id, questions JSON, auto_filled, total, answered, percentage, completed_at
//	UpdateQuestionnaire: questions JSON, total, answered, percentage, completed_at, vendor id
//	RaiseProgress:       floor, updated_at, vendor id
//	InsertAudit:         id, vendor id, action, metadata JSON, actor, created_at
//	LatestQuestionnaire: vendor id
type Dialect struct {
	Name                string
	VendorExists        string
	FindQuestionnaire   string
	InsertQuestionnaire string
	UpdateQuestionnaire string
	RaiseProgress       string
	InsertAudit         string
	LatestQuestionnaire string
	// EncodeTime converts timestamps into driver values.
	EncodeTime func(time.Time) any
}

// Store runs questionnaire transactions against a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
	newID   func() string
}

// New wraps db with the given dialect.
func New(db *sql.DB, dialect Dialect) *Store {
	if dialect.EncodeTime == nil {
		dialect.EncodeTime = func(t time.Time) any { return t.UTC() }
	}
	return &Store{db: db, dialect: dialect, newID: uuid.NewString}
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the configured dialect name.
func (s *Store) Dialect() string { return s.dialect.Name }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// RunInTransaction executes fn inside a database transaction, committing only
// when fn returns nil.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Persistence("begin transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) && retErr == nil {
				retErr = domain.Persistence("rollback", rbErr)
			}
		}
	}()
	if err := fn(&transaction{ctx: ctx, tx: tx, store: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return domain.Persistence("commit", err)
	}
	committed = true
	return nil
}

// View runs fn against the database outside an explicit transaction.
func (s *Store) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	return fn(view{ctx: ctx, db: s.db, dialect: s.dialect})
}

type transaction struct {
	ctx   context.Context
	tx    *sql.Tx
	store *Store
}

func (t *transaction) VendorExists(id string) (bool, error) {
	var found string
	err := t.tx.QueryRowContext(t.ctx, t.store.dialect.VendorExists, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, domain.Persistence("select vendor", err)
	}
	return true, nil
}

func (t *transaction) FindQuestionnaireID(vendorID string) (string, bool, error) {
	var id string
	err := t.tx.QueryRowContext(t.ctx, t.store.dialect.FindQuestionnaire, vendorID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, domain.Persistence("select questionnaire", err)
	}
	return id, true, nil
}

func (t *transaction) InsertQuestionnaire(w domain.QuestionnaireWrite) (string, error) {
	questions, err := encodeQuestions(w.Questions)
	if err != nil {
		return "", err
	}
	var id string
	err = t.tx.QueryRowContext(t.ctx, t.store.dialect.InsertQuestionnaire,
		t.store.newID(),
		w.VendorID,
		questions,
		false,
		w.Stats.TotalQuestions,
		w.Stats.AnsweredQuestions,
		w.Stats.CompletionPercentage,
		t.store.dialect.EncodeTime(w.CompletedAt),
	).Scan(&id)
	if err != nil {
		return "", domain.Persistence("insert questionnaire", err)
	}
	return id, nil
}

func (t *transaction) UpdateQuestionnaire(w domain.QuestionnaireWrite) (string, error) {
	questions, err := encodeQuestions(w.Questions)
	if err != nil {
		return "", err
	}
	var id string
	err = t.tx.QueryRowContext(t.ctx, t.store.dialect.UpdateQuestionnaire,
		questions,
		w.Stats.TotalQuestions,
		w.Stats.AnsweredQuestions,
		w.Stats.CompletionPercentage,
		t.store.dialect.EncodeTime(w.CompletedAt),
		w.VendorID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.NotFoundError{Entity: domain.EntityQuestionnaire, ID: w.VendorID}
	}
	if err != nil {
		return "", domain.Persistence("update questionnaire", err)
	}
	return id, nil
}

func (t *transaction) RaiseOnboardingProgress(vendorID string, floor int, at time.Time) error {
	if at.IsZero() {
		at = time.Now()
	}
	_, err := t.tx.ExecContext(t.ctx, t.store.dialect.RaiseProgress,
		floor,
		t.store.dialect.EncodeTime(at),
		vendorID,
	)
	if err != nil {
		return domain.Persistence("update vendor progress", err)
	}
	return nil
}

func (t *transaction) AppendAudit(entry domain.AuditEntry) error {
	id := entry.ID
	if id == "" {
		id = t.store.newID()
	}
	created := entry.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	metadata := string(entry.Metadata)
	if metadata == "" {
		metadata = "{}"
	}
	_, err := t.tx.ExecContext(t.ctx, t.store.dialect.InsertAudit,
		id,
		entry.VendorID,
		entry.Action,
		metadata,
		entry.Actor,
		t.store.dialect.EncodeTime(created),
	)
	if err != nil {
		return domain.Persistence("insert audit log", err)
	}
	return nil
}

type view struct {
	ctx     context.Context
	db      *sql.DB
	dialect Dialect
}

func (v view) LatestQuestionnaire(vendorID string) (domain.Questionnaire, bool, error) {
	var (
		q         domain.Questionnaire
		questions []byte
		completed nullTime
	)
	err := v.db.QueryRowContext(v.ctx, v.dialect.LatestQuestionnaire, vendorID).Scan(
		&q.ID,
		&q.VendorID,
		&questions,
		&q.AutoFilled,
		&q.TotalQuestions,
		&q.AnsweredQuestions,
		&q.CompletionPercentage,
		&completed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Questionnaire{}, false, nil
	}
	if err != nil {
		return domain.Questionnaire{}, false, domain.Persistence("select questionnaire", err)
	}
	q.Questions = []domain.Question{}
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &q.Questions); err != nil {
			return domain.Questionnaire{}, false, domain.Persistence("decode questions", err)
		}
	}
	if completed.Valid {
		t := completed.Time.UTC()
		q.CompletedAt = &t
	}
	return q, true, nil
}

func encodeQuestions(questions []domain.Question) (string, error) {
	if questions == nil {
		questions = []domain.Question{}
	}
	b, err := json.Marshal(questions)
	if err != nil {
		return "", fmt.Errorf("encode questions: %w", err)
	}
	return string(b), nil
}

// nullTime scans timestamps stored either natively or as RFC 3339 text.
type nullTime struct {
	Time  time.Time
	Valid bool
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

func (n *nullTime) Scan(src any) error {
	n.Time, n.Valid = time.Time{}, false
	switch v := src.(type) {
	case nil:
		return nil
	case time.Time:
		n.Time, n.Valid = v, true
		return nil
	case []byte:
		return n.parse(string(v))
	case string:
		return n.parse(v)
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (n *nullTime) parse(s string) error {
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			n.Time, n.Valid = t, true
			return nil
		}
	}
	return fmt.Errorf("parse timestamp %q", s)
}
