// Package domain defines the questionnaire records, audit entries, and
// persistence contracts shared by the service and its storage adapters.
package domain

import (
	"encoding/json"
	"time"
)

// EntityType identifies the type of record referenced by errors and audit rows.
type EntityType string

// Supported entity type identifiers.
const (
	// EntityVendor identifies the vendor a questionnaire is collected about.
	EntityVendor EntityType = "vendor"
	// EntityQuestionnaire identifies a saved questionnaire response.
	EntityQuestionnaire EntityType = "questionnaire"
)

const (
	// ActionQuestionnaireSubmitted is the audit action recorded for every saved submission.
	ActionQuestionnaireSubmitted = "questionnaire_submitted"
	// ActorVendor is the audit actor for vendor-originated submissions.
	ActorVendor = "vendor"

	// CompletionThreshold is the percentage at or above which onboarding progress advances.
	CompletionThreshold = 90.0
	// OnboardingProgressFloor is the minimum progress a vendor holds once the threshold is met.
	OnboardingProgressFloor = 75
)

// Question is a single section/question/answer record derived from a form field.
type Question struct {
	Section  string `json:"section"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Required bool   `json:"required"`
	Answered bool   `json:"answered"`
}

// Stats summarises completion of a question list.
type Stats struct {
	TotalQuestions       int     `json:"total_questions"`
	AnsweredQuestions    int     `json:"answered_questions"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

// Questionnaire is the latest saved response for a vendor.
type Questionnaire struct {
	ID                   string     `json:"id"`
	VendorID             string     `json:"vendor_id"`
	Questions            []Question `json:"questions"`
	AutoFilled           bool       `json:"auto_filled"`
	TotalQuestions       int        `json:"total_questions"`
	AnsweredQuestions    int        `json:"answered_questions"`
	CompletionPercentage float64    `json:"completion_percentage"`
	CompletedAt          *time.Time `json:"completed_at"`
}

// Stats returns the stored counters as a Stats value.
func (q Questionnaire) Stats() Stats {
	return Stats{
		TotalQuestions:       q.TotalQuestions,
		AnsweredQuestions:    q.AnsweredQuestions,
		CompletionPercentage: q.CompletionPercentage,
	}
}

// QuestionnaireWrite carries the values written by an insert or update.
type QuestionnaireWrite struct {
	VendorID    string
	Questions   []Question
	Stats       Stats
	CompletedAt time.Time
}

// AuditEntry is an append-only record of a vendor event. Metadata holds a JSON
// object snapshot written verbatim by the store.
type AuditEntry struct {
	ID        string          `json:"id"`
	VendorID  string          `json:"vendor_id"`
	Action    string          `json:"action"`
	Actor     string          `json:"actor"`
	Metadata  json.RawMessage `json:"metadata"`
	CreatedAt time.Time       `json:"created_at"`
}

// SubmissionAudit is the metadata snapshot stored for ActionQuestionnaireSubmitted.
type SubmissionAudit struct {
	QuestionnaireID      string  `json:"questionnaire_id"`
	TotalQuestions       int     `json:"total_questions"`
	AnsweredQuestions    int     `json:"answered_questions"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

// Vendor is the subset of vendor state touched by questionnaire submissions.
type Vendor struct {
	ID                 string    `json:"id"`
	OnboardingProgress int       `json:"onboarding_progress"`
	UpdatedAt          time.Time `json:"updated_at"`
}
