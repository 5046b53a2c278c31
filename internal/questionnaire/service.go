package questionnaire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vendorq/pkg/domain"
)

// MetricsRecorder receives service operation outcomes.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
	ObserveCompletion(stats domain.Stats)
}

// Archiver keeps a copy of each committed submission outside the relational store.
type Archiver interface {
	Archive(ctx context.Context, snapshot Snapshot) error
}

// Snapshot is the archived view of a committed submission.
type Snapshot struct {
	QuestionnaireID string            `json:"questionnaire_id"`
	VendorID        string            `json:"vendor_id"`
	Created         bool              `json:"created"`
	Questions       []domain.Question `json:"questions"`
	Stats           domain.Stats      `json:"stats"`
	Form            FormData          `json:"form"`
	CompletedAt     time.Time         `json:"completed_at"`
}

// SubmitResult summarises a saved submission.
type SubmitResult struct {
	QuestionnaireID string
	Created         bool
	ProgressRaised  bool
	Questions       []domain.Question
	Stats           domain.Stats
	CompletedAt     time.Time
}

// Service runs questionnaire save and fetch operations against a persistent store.
type Service struct {
	store   domain.PersistentStore
	catalog Catalog
	archive Archiver
	metrics MetricsRecorder
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCatalog overrides the default field catalog.
func WithCatalog(c Catalog) Option {
	return func(s *Service) {
		if len(c) > 0 {
			s.catalog = c
		}
	}
}

// WithArchive enables post-commit archiving.
func WithArchive(a Archiver) Option { return func(s *Service) { s.archive = a } }

// WithMetrics installs a metrics recorder.
func WithMetrics(m MetricsRecorder) Option { return func(s *Service) { s.metrics = m } }

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for completion timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		catalog: DefaultCatalog(),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the field catalog in use.
func (s *Service) Catalog() Catalog { return s.catalog }

// Submit maps the form, computes completion, and saves the questionnaire,
// progress bump, and audit entry in one transaction. A missing vendor yields
// a NotFoundError for EntityVendor.
func (s *Service) Submit(ctx context.Context, vendorID string, form FormData) (result SubmitResult, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "submit", err, start) }()

	if vendorID == "" {
		return SubmitResult{}, domain.ValidationError{Message: "vendor_id is required"}
	}

	questions := Map(s.catalog, form)
	stats := Completion(questions)
	completedAt := s.now().UTC()
	write := domain.QuestionnaireWrite{
		VendorID:    vendorID,
		Questions:   questions,
		Stats:       stats,
		CompletedAt: completedAt,
	}

	result = SubmitResult{Questions: questions, Stats: stats, CompletedAt: completedAt}
	err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		exists, err := tx.VendorExists(vendorID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.NotFoundError{Entity: domain.EntityVendor, ID: vendorID}
		}

		_, found, err := tx.FindQuestionnaireID(vendorID)
		if err != nil {
			return err
		}
		var id string
		if found {
			id, err = tx.UpdateQuestionnaire(write)
		} else {
			id, err = tx.InsertQuestionnaire(write)
		}
		if err != nil {
			return err
		}
		result.QuestionnaireID = id
		result.Created = !found

		if MeetsThreshold(stats) {
			if err := tx.RaiseOnboardingProgress(vendorID, domain.OnboardingProgressFloor, completedAt); err != nil {
				return err
			}
			result.ProgressRaised = true
		}

		meta, err := json.Marshal(domain.SubmissionAudit{
			QuestionnaireID:      id,
			TotalQuestions:       stats.TotalQuestions,
			AnsweredQuestions:    stats.AnsweredQuestions,
			CompletionPercentage: stats.CompletionPercentage,
		})
		if err != nil {
			return fmt.Errorf("encode audit metadata: %w", err)
		}
		return tx.AppendAudit(domain.AuditEntry{
			VendorID:  vendorID,
			Action:    domain.ActionQuestionnaireSubmitted,
			Actor:     domain.ActorVendor,
			Metadata:  meta,
			CreatedAt: completedAt,
		})
	})
	if err != nil {
		return SubmitResult{}, classify("save questionnaire", err)
	}

	s.logger.InfoContext(ctx, "questionnaire saved",
		"vendor_id", vendorID,
		"questionnaire_id", result.QuestionnaireID,
		"created", result.Created,
		"total_questions", stats.TotalQuestions,
		"answered_questions", stats.AnsweredQuestions,
		"completion_percentage", stats.CompletionPercentage,
	)
	if s.metrics != nil {
		s.metrics.ObserveCompletion(stats)
	}
	s.archiveSubmission(ctx, form, result, vendorID)
	return result, nil
}

// Latest returns the most recently saved questionnaire for the vendor. Vendor
// existence is not checked; an unknown vendor yields the same NotFoundError
// as a vendor without a submission.
func (s *Service) Latest(ctx context.Context, vendorID string) (q domain.Questionnaire, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "latest", err, start) }()

	if vendorID == "" {
		return domain.Questionnaire{}, domain.ValidationError{Message: "vendor_id is required"}
	}
	var found bool
	err = s.store.View(ctx, func(view domain.TransactionView) error {
		var err error
		q, found, err = view.LatestQuestionnaire(vendorID)
		return err
	})
	if err != nil {
		return domain.Questionnaire{}, classify("get questionnaire", err)
	}
	if !found {
		return domain.Questionnaire{}, domain.NotFoundError{Entity: domain.EntityQuestionnaire, ID: vendorID}
	}
	return q, nil
}

func (s *Service) archiveSubmission(ctx context.Context, form FormData, result SubmitResult, vendorID string) {
	if s.archive == nil {
		return
	}
	snap := Snapshot{
		QuestionnaireID: result.QuestionnaireID,
		VendorID:        vendorID,
		Created:         result.Created,
		Questions:       result.Questions,
		Stats:           result.Stats,
		Form:            form,
		CompletedAt:     result.CompletedAt,
	}
	if err := s.archive.Archive(ctx, snap); err != nil {
		s.logger.WarnContext(ctx, "archive questionnaire snapshot failed",
			"vendor_id", vendorID,
			"questionnaire_id", result.QuestionnaireID,
			"error", err,
		)
	}
}

func (s *Service) observe(ctx context.Context, op string, err error, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
}

// classify keeps caller-facing error types intact and wraps everything else
// as a PersistenceError.
func classify(op string, err error) error {
	var (
		nf domain.NotFoundError
		ve domain.ValidationError
	)
	if errors.As(err, &nf) || errors.As(err, &ve) {
		return err
	}
	return domain.Persistence(op, err)
}
