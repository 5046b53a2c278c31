package questionnaire

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"vendorq/internal/infra/persistence/memory"
	"vendorq/pkg/domain"
)

type recordingArchive struct {
	mu    sync.Mutex
	snaps []Snapshot
	err   error
}

func (a *recordingArchive) Archive(_ context.Context, s Snapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snaps = append(a.snaps, s)
	return a.err
}

type recordingMetrics struct {
	mu          sync.Mutex
	ops         map[string][]bool
	completions []domain.Stats
}

func (m *recordingMetrics) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ops == nil {
		m.ops = map[string][]bool{}
	}
	m.ops[op] = append(m.ops[op], success)
}

func (m *recordingMetrics) ObserveCompletion(s domain.Stats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completions = append(m.completions, s)
}

// fullForm answers n fields of the default catalog, required fields first.
func fullForm(n int) FormData {
	form := FormData{}
	var ordered []FieldDefinition
	for _, f := range DefaultCatalog() {
		if f.Required {
			ordered = append(ordered, f)
		}
	}
	for _, f := range DefaultCatalog() {
		if !f.Required {
			ordered = append(ordered, f)
		}
	}
	for _, f := range ordered[:n] {
		form[f.Name] = "yes"
	}
	return form
}

func fixedClock(at time.Time) func() time.Time { return func() time.Time { return at } }

func TestSubmitCreatesThenUpdates(t *testing.T) {
	store := memory.NewStore()
	store.AddVendor("v-1", 10)
	first := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	svc := NewService(store, WithClock(fixedClock(first)))
	ctx := context.Background()

	res, err := svc.Submit(ctx, "v-1", FormData{"business_description": "Widgets"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Created || res.QuestionnaireID == "" || res.ProgressRaised {
		t.Fatalf("unexpected first result %+v", res)
	}
	if res.Stats.TotalQuestions != 12 || res.Stats.AnsweredQuestions != 1 || res.Stats.CompletionPercentage != 8.33 {
		t.Fatalf("unexpected stats %+v", res.Stats)
	}

	second := first.Add(time.Hour)
	svc = NewService(store, WithClock(fixedClock(second)))
	res2, err := svc.Submit(ctx, "v-1", fullForm(18))
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if res2.Created || res2.QuestionnaireID != res.QuestionnaireID {
		t.Fatalf("expected in-place update, got %+v", res2)
	}
	if store.QuestionnaireCount() != 1 {
		t.Fatalf("expected a single questionnaire row")
	}
	q, err := svc.Latest(ctx, "v-1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if q.TotalQuestions != 18 || q.AnsweredQuestions != 18 || q.CompletionPercentage != 100 || !q.CompletedAt.Equal(second) {
		t.Fatalf("unexpected latest %+v", q)
	}
	if v, _ := store.Vendor("v-1"); v.OnboardingProgress != domain.OnboardingProgressFloor {
		t.Fatalf("expected progress %d, got %d", domain.OnboardingProgressFloor, v.OnboardingProgress)
	}

	audit := store.AuditEntries("v-1")
	if len(audit) != 2 {
		t.Fatalf("expected one audit entry per submission, got %d", len(audit))
	}
	var meta domain.SubmissionAudit
	if err := json.Unmarshal(audit[1].Metadata, &meta); err != nil {
		t.Fatalf("decode audit metadata: %v", err)
	}
	if meta.QuestionnaireID != res.QuestionnaireID || meta.TotalQuestions != 18 || meta.CompletionPercentage != 100 {
		t.Fatalf("unexpected audit metadata %+v", meta)
	}
	if audit[1].Action != domain.ActionQuestionnaireSubmitted || audit[1].Actor != domain.ActorVendor {
		t.Fatalf("unexpected audit entry %+v", audit[1])
	}
}

func TestSubmitProgressThreshold(t *testing.T) {
	// Blank optionals are omitted, so 11 of 12 answered is 91.67% and 10 of 12 is 83.33%.
	cases := []struct {
		name     string
		start    int
		form     FormData
		raised   bool
		progress int
	}{
		{"below threshold", 10, fullForm(10), false, 10},
		{"above threshold", 10, fullForm(11), true, 75},
		{"never decreases", 95, fullForm(18), true, 95},
		{"low progress raised by full form", 0, fullForm(18), true, 75},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.NewStore()
			store.AddVendor("v", tc.start)
			res, err := NewService(store).Submit(context.Background(), "v", tc.form)
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			if res.ProgressRaised != tc.raised {
				t.Fatalf("raised=%v at %v%%", res.ProgressRaised, res.Stats.CompletionPercentage)
			}
			if v, _ := store.Vendor("v"); v.OnboardingProgress != tc.progress {
				t.Fatalf("expected progress %d, got %d", tc.progress, v.OnboardingProgress)
			}
		})
	}
}

func TestSubmitExactlyNinetyPercentRaisesProgress(t *testing.T) {
	catalog := make(Catalog, 10)
	form := FormData{}
	for i := range catalog {
		name := string(rune('a' + i))
		catalog[i] = FieldDefinition{Name: name, Section: "S", Question: strings.ToUpper(name), Required: true}
		if i < 9 {
			form[name] = "x"
		}
	}
	store := memory.NewStore()
	store.AddVendor("v", 0)
	res, err := NewService(store, WithCatalog(catalog)).Submit(context.Background(), "v", form)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Stats.CompletionPercentage != 90 || !res.ProgressRaised {
		t.Fatalf("expected raise at exactly 90%%, got %+v", res)
	}
}

func TestSubmitUnknownVendorWritesNothing(t *testing.T) {
	store := memory.NewStore()
	archive := &recordingArchive{}
	svc := NewService(store, WithArchive(archive))
	_, err := svc.Submit(context.Background(), "ghost", fullForm(18))
	if !domain.IsNotFound(err, domain.EntityVendor) {
		t.Fatalf("expected vendor not found, got %v", err)
	}
	if store.QuestionnaireCount() != 0 || len(store.AuditEntries("ghost")) != 0 || len(archive.snaps) != 0 {
		t.Fatalf("expected no writes for unknown vendor")
	}
}

func TestSubmitRequiresVendorID(t *testing.T) {
	var ve domain.ValidationError
	if _, err := NewService(memory.NewStore()).Submit(context.Background(), "", FormData{}); !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := NewService(memory.NewStore()).Latest(context.Background(), ""); !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubmitWrapsStoreFailures(t *testing.T) {
	store := memory.NewStore()
	store.AddVendor("v", 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewService(store).Submit(ctx, "v", FormData{})
	var pe domain.PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestLatestNotFound(t *testing.T) {
	store := memory.NewStore()
	store.AddVendor("known", 0)
	svc := NewService(store)
	for _, id := range []string{"known", "unknown"} {
		if _, err := svc.Latest(context.Background(), id); !domain.IsNotFound(err, domain.EntityQuestionnaire) {
			t.Fatalf("%s: expected questionnaire not found, got %v", id, err)
		}
	}
}

func TestSubmitArchivesAfterCommitAndToleratesArchiveFailure(t *testing.T) {
	store := memory.NewStore()
	store.AddVendor("v", 0)
	var logs bytes.Buffer
	archive := &recordingArchive{err: errors.New("bucket unavailable")}
	metrics := &recordingMetrics{}
	svc := NewService(store,
		WithArchive(archive),
		WithMetrics(metrics),
		WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))),
	)
	form := FormData{"business_description": "Widgets"}
	res, err := svc.Submit(context.Background(), "v", form)
	if err != nil {
		t.Fatalf("archive failure must not fail the submit: %v", err)
	}
	if len(archive.snaps) != 1 {
		t.Fatalf("expected one snapshot, got %d", len(archive.snaps))
	}
	snap := archive.snaps[0]
	if snap.QuestionnaireID != res.QuestionnaireID || !snap.Created || snap.Form["business_description"] != "Widgets" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if !strings.Contains(logs.String(), "archive questionnaire snapshot failed") || !strings.Contains(logs.String(), "questionnaire saved") {
		t.Fatalf("expected save and archive warning logs, got %s", logs.String())
	}
	if store.QuestionnaireCount() != 1 {
		t.Fatalf("expected committed questionnaire")
	}

	_, _ = svc.Latest(context.Background(), "v")
	_, _ = svc.Latest(context.Background(), "missing")
	if got := metrics.ops["submit"]; len(got) != 1 || !got[0] {
		t.Fatalf("unexpected submit observations %v", got)
	}
	if got := metrics.ops["latest"]; len(got) != 2 || !got[0] || got[1] {
		t.Fatalf("unexpected latest observations %v", got)
	}
	if len(metrics.completions) != 1 || metrics.completions[0] != res.Stats {
		t.Fatalf("unexpected completion observations %+v", metrics.completions)
	}
}

func TestWithCatalogIgnoresEmpty(t *testing.T) {
	svc := NewService(memory.NewStore(), WithCatalog(nil), WithLogger(nil), WithClock(nil))
	if len(svc.Catalog()) != 18 || svc.logger == nil || svc.now == nil {
		t.Fatalf("expected defaults to survive nil options")
	}
}
