package domain

import (
	"context"
	"time"
)

// Transaction exposes the operations a persistence implementation must
// support within an atomic scope. Implementations return PersistenceError for
// backend failures.
type Transaction interface {
	VendorExists(id string) (bool, error)
	FindQuestionnaireID(vendorID string) (string, bool, error)
	InsertQuestionnaire(QuestionnaireWrite) (string, error)
	UpdateQuestionnaire(QuestionnaireWrite) (string, error)
	// RaiseOnboardingProgress sets progress to max(current, floor) and stamps
	// updated_at with at.
	RaiseOnboardingProgress(vendorID string, floor int, at time.Time) error
	AppendAudit(AuditEntry) error
}

// TransactionView provides read-only access for fetch paths.
type TransactionView interface {
	// LatestQuestionnaire returns the most recently completed questionnaire for the vendor.
	LatestQuestionnaire(vendorID string) (Questionnaire, bool, error)
}

// PersistentStore is a minimal abstraction over durable backends. Writes made
// inside RunInTransaction commit together or not at all.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) error
	View(ctx context.Context, fn func(TransactionView) error) error
	Close() error
}
