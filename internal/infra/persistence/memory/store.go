// Package memory provides an in-memory implementation of the questionnaire
// persistent store. Transactions operate on a cloned state that replaces the
// live state only when the callback succeeds.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"vendorq/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

type memoryState struct {
	vendors        map[string]domain.Vendor
	questionnaires map[string]domain.Questionnaire // keyed by vendor id
	audit          []domain.AuditEntry
}

func newMemoryState() memoryState {
	return memoryState{
		vendors:        make(map[string]domain.Vendor),
		questionnaires: make(map[string]domain.Questionnaire),
	}
}

func (s memoryState) clone() memoryState {
	cloned := memoryState{
		vendors:        make(map[string]domain.Vendor, len(s.vendors)),
		questionnaires: make(map[string]domain.Questionnaire, len(s.questionnaires)),
		audit:          make([]domain.AuditEntry, len(s.audit)),
	}
	for k, v := range s.vendors {
		cloned.vendors[k] = v
	}
	for k, q := range s.questionnaires {
		cloned.questionnaires[k] = cloneQuestionnaire(q)
	}
	copy(cloned.audit, s.audit)
	return cloned
}

// Store is a process-local PersistentStore used for tests and ephemeral runs.
type Store struct {
	mu    sync.RWMutex
	state memoryState
	nowFn func() time.Time
	newID func() string
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		state: newMemoryState(),
		nowFn: func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.NewString() },
	}
}

// AddVendor registers a vendor with the given onboarding progress.
func (s *Store) AddVendor(id string, progress int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.vendors[id] = domain.Vendor{ID: id, OnboardingProgress: progress, UpdatedAt: s.nowFn()}
}

// Vendor returns the stored vendor state.
func (s *Store) Vendor(id string) (domain.Vendor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.state.vendors[id]
	return v, ok
}

// AuditEntries returns audit entries recorded for the vendor in append order.
func (s *Store) AuditEntries(vendorID string) []domain.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.AuditEntry
	for _, e := range s.state.audit {
		if e.VendorID == vendorID {
			out = append(out, e)
		}
	}
	return out
}

// QuestionnaireCount returns the number of stored questionnaires.
func (s *Store) QuestionnaireCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.questionnaires)
}

// RunInTransaction applies fn to a cloned state and swaps it in on success.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return domain.Persistence("begin transaction", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{store: s, state: s.state.clone(), now: s.nowFn()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// View exposes a read-only snapshot to fn.
func (s *Store) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	if err := ctx.Err(); err != nil {
		return domain.Persistence("view", err)
	}
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(transactionView{state: &snapshot})
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

type transaction struct {
	store *Store
	state memoryState
	now   time.Time
}

func (tx *transaction) VendorExists(id string) (bool, error) {
	_, ok := tx.state.vendors[id]
	return ok, nil
}

func (tx *transaction) FindQuestionnaireID(vendorID string) (string, bool, error) {
	q, ok := tx.state.questionnaires[vendorID]
	if !ok {
		return "", false, nil
	}
	return q.ID, true, nil
}

func (tx *transaction) InsertQuestionnaire(w domain.QuestionnaireWrite) (string, error) {
	completed := w.CompletedAt
	q := domain.Questionnaire{
		ID:                   tx.store.newID(),
		VendorID:             w.VendorID,
		Questions:            cloneQuestions(w.Questions),
		AutoFilled:           false,
		TotalQuestions:       w.Stats.TotalQuestions,
		AnsweredQuestions:    w.Stats.AnsweredQuestions,
		CompletionPercentage: w.Stats.CompletionPercentage,
		CompletedAt:          &completed,
	}
	tx.state.questionnaires[w.VendorID] = q
	return q.ID, nil
}

func (tx *transaction) UpdateQuestionnaire(w domain.QuestionnaireWrite) (string, error) {
	q, ok := tx.state.questionnaires[w.VendorID]
	if !ok {
		return "", domain.NotFoundError{Entity: domain.EntityQuestionnaire, ID: w.VendorID}
	}
	completed := w.CompletedAt
	q.Questions = cloneQuestions(w.Questions)
	q.TotalQuestions = w.Stats.TotalQuestions
	q.AnsweredQuestions = w.Stats.AnsweredQuestions
	q.CompletionPercentage = w.Stats.CompletionPercentage
	q.CompletedAt = &completed
	tx.state.questionnaires[w.VendorID] = q
	return q.ID, nil
}

func (tx *transaction) RaiseOnboardingProgress(vendorID string, floor int, at time.Time) error {
	v, ok := tx.state.vendors[vendorID]
	if !ok {
		return nil
	}
	if v.OnboardingProgress < floor {
		v.OnboardingProgress = floor
	}
	if at.IsZero() {
		at = tx.now
	}
	v.UpdatedAt = at
	tx.state.vendors[vendorID] = v
	return nil
}

func (tx *transaction) AppendAudit(entry domain.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = tx.store.newID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = tx.now
	}
	entry.Metadata = append([]byte(nil), entry.Metadata...)
	tx.state.audit = append(tx.state.audit, entry)
	return nil
}

type transactionView struct {
	state *memoryState
}

func (v transactionView) LatestQuestionnaire(vendorID string) (domain.Questionnaire, bool, error) {
	q, ok := v.state.questionnaires[vendorID]
	if !ok {
		return domain.Questionnaire{}, false, nil
	}
	return cloneQuestionnaire(q), true, nil
}

func cloneQuestions(in []domain.Question) []domain.Question {
	if in == nil {
		return []domain.Question{}
	}
	out := make([]domain.Question, len(in))
	copy(out, in)
	return out
}

func cloneQuestionnaire(q domain.Questionnaire) domain.Questionnaire {
	q.Questions = cloneQuestions(q.Questions)
	if q.CompletedAt != nil {
		t := *q.CompletedAt
		q.CompletedAt = &t
	}
	return q
}
