package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"vendorq/internal/questionnaire"
	"vendorq/pkg/domain"
)

const vendorID = "vendor-1"

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(context.Background(), filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func answeredForm(n int) questionnaire.FormData {
	form := questionnaire.FormData{}
	for i, f := range questionnaire.DefaultCatalog() {
		if i >= n {
			break
		}
		form[f.Name] = "answer"
	}
	return form
}

func progressOf(t *testing.T, store *Store, id string) int {
	t.Helper()
	var p int
	if err := store.DB().QueryRow(`SELECT onboarding_progress FROM vendors WHERE id = ?`, id).Scan(&p); err != nil {
		t.Fatalf("read progress: %v", err)
	}
	return p
}

func TestSQLiteStoreAppliesSchema(t *testing.T) {
	store := openStore(t)
	for _, table := range []string{"vendors", "esg_questionnaires", "audit_logs"} {
		var name string
		if err := store.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table).Scan(&name); err != nil {
			t.Fatalf("lookup %s table: %v", table, err)
		}
	}
}

func TestSQLiteSubmitThenResubmitKeepsSingleRow(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	if err := store.UpsertVendor(ctx, vendorID, "Acme", 10); err != nil {
		t.Fatalf("seed vendor: %v", err)
	}
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc := questionnaire.NewService(store, questionnaire.WithClock(func() time.Time { return clock }))

	first, err := svc.Submit(ctx, vendorID, answeredForm(3))
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	clock = clock.Add(time.Hour)
	second, err := svc.Submit(ctx, vendorID, answeredForm(18))
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if !first.Created || second.Created || first.QuestionnaireID != second.QuestionnaireID {
		t.Fatalf("expected insert then update of same row: %+v / %+v", first, second)
	}

	var rows int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM esg_questionnaires WHERE vendor_id = ?`, vendorID).Scan(&rows); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected one questionnaire row, got %d", rows)
	}

	q, err := svc.Latest(ctx, vendorID)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if q.CompletedAt == nil || !q.CompletedAt.Equal(clock) {
		t.Fatalf("expected completed_at %v, got %v", clock, q.CompletedAt)
	}
	if q.CompletionPercentage != 100 || q.TotalQuestions != 18 || q.AutoFilled {
		t.Fatalf("unexpected stored stats %+v", q)
	}
	if got := progressOf(t, store, vendorID); got != domain.OnboardingProgressFloor {
		t.Fatalf("expected progress %d, got %d", domain.OnboardingProgressFloor, got)
	}

	var audits int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM audit_logs WHERE vendor_id = ? AND action = ?`, vendorID, domain.ActionQuestionnaireSubmitted).Scan(&audits); err != nil {
		t.Fatalf("count audits: %v", err)
	}
	if audits != 2 {
		t.Fatalf("expected 2 audit rows, got %d", audits)
	}
}

func TestSQLiteProgressNeverDecreases(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	if err := store.UpsertVendor(ctx, vendorID, "Acme", 95); err != nil {
		t.Fatalf("seed vendor: %v", err)
	}
	if _, err := questionnaire.NewService(store).Submit(ctx, vendorID, answeredForm(18)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := progressOf(t, store, vendorID); got != 95 {
		t.Fatalf("expected progress to stay 95, got %d", got)
	}
}

// requiredForm answers the first n required fields of the default catalog.
func requiredForm(n int) questionnaire.FormData {
	form := questionnaire.FormData{}
	for _, f := range questionnaire.DefaultCatalog() {
		if len(form) == n {
			break
		}
		if f.Required {
			form[f.Name] = "answer"
		}
	}
	return form
}

func vendorUpdatedAt(t *testing.T, store *Store, id string) string {
	t.Helper()
	var updated string
	if err := store.DB().QueryRow(`SELECT updated_at FROM vendors WHERE id = ?`, id).Scan(&updated); err != nil {
		t.Fatalf("read updated_at: %v", err)
	}
	return updated
}

func TestSQLiteBelowThresholdLeavesVendorUntouched(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	if err := store.UpsertVendor(ctx, vendorID, "Acme", 10); err != nil {
		t.Fatalf("seed vendor: %v", err)
	}
	before := vendorUpdatedAt(t, store, vendorID)

	// 10 of 12 required answers is 83.33%.
	res, err := questionnaire.NewService(store).Submit(ctx, vendorID, requiredForm(10))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.ProgressRaised || res.Stats.CompletionPercentage != 83.33 {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := progressOf(t, store, vendorID); got != 10 {
		t.Fatalf("expected progress to stay 10, got %d", got)
	}
	if after := vendorUpdatedAt(t, store, vendorID); after != before {
		t.Fatalf("updated_at changed below threshold: %s -> %s", before, after)
	}
}

func TestSQLiteProgressRaiseUsesServiceClock(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	if err := store.UpsertVendor(ctx, vendorID, "Acme", 0); err != nil {
		t.Fatalf("seed vendor: %v", err)
	}
	clock := time.Date(2025, 12, 31, 23, 59, 58, 0, time.UTC)
	svc := questionnaire.NewService(store, questionnaire.WithClock(func() time.Time { return clock }))
	if _, err := svc.Submit(ctx, vendorID, requiredForm(12)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got, want := vendorUpdatedAt(t, store, vendorID), clock.Format(timeFormat); got != want {
		t.Fatalf("expected updated_at %s, got %s", want, got)
	}
}

func TestSQLiteUnknownVendorLeavesNoRows(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	_, err := questionnaire.NewService(store).Submit(ctx, "ghost", answeredForm(18))
	if !domain.IsNotFound(err, domain.EntityVendor) {
		t.Fatalf("expected vendor not found, got %v", err)
	}
	var n int
	if err := store.DB().QueryRow(`SELECT (SELECT COUNT(*) FROM esg_questionnaires) + (SELECT COUNT(*) FROM audit_logs)`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no writes, got %d rows", n)
	}
}

func TestSQLiteAuditMetadataSnapshot(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	if err := store.UpsertVendor(ctx, vendorID, "Acme", 0); err != nil {
		t.Fatalf("seed vendor: %v", err)
	}
	res, err := questionnaire.NewService(store).Submit(ctx, vendorID, answeredForm(5))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	var raw, actor string
	if err := store.DB().QueryRow(`SELECT metadata, actor FROM audit_logs WHERE vendor_id = ?`, vendorID).Scan(&raw, &actor); err != nil {
		t.Fatalf("read audit: %v", err)
	}
	var meta domain.SubmissionAudit
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if meta.QuestionnaireID != res.QuestionnaireID || meta.TotalQuestions != res.Stats.TotalQuestions || meta.AnsweredQuestions != res.Stats.AnsweredQuestions {
		t.Fatalf("metadata %+v does not match result %+v", meta, res)
	}
	if actor != domain.ActorVendor {
		t.Fatalf("expected actor vendor, got %s", actor)
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := NewStore(ctx, path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	if err := store.UpsertVendor(ctx, vendorID, "Acme", 0); err != nil {
		t.Fatalf("seed vendor: %v", err)
	}
	if _, err := questionnaire.NewService(store).Submit(ctx, vendorID, answeredForm(2)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	_ = store.Close()

	reopened, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	if reopened.Path() != path {
		t.Fatalf("expected path %s, got %s", path, reopened.Path())
	}
	q, err := questionnaire.NewService(reopened).Latest(ctx, vendorID)
	if err != nil {
		t.Fatalf("Latest after reopen: %v", err)
	}
	if q.AnsweredQuestions != 2 {
		t.Fatalf("expected 2 answered questions, got %d", q.AnsweredQuestions)
	}
}
