package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundErrorMatching(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NotFoundError{Entity: EntityVendor, ID: "v-1"})
	if err.Error() != "wrapped: vendor v-1 not found" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !IsNotFound(err, EntityVendor) || !IsNotFound(err, "") {
		t.Fatalf("expected vendor not found match")
	}
	if IsNotFound(err, EntityQuestionnaire) || IsNotFound(errors.New("other"), "") {
		t.Fatalf("unexpected match")
	}
}

func TestPersistenceWrapping(t *testing.T) {
	if Persistence("op", nil) != nil {
		t.Fatalf("nil must stay nil")
	}
	base := errors.New("connection reset")
	err := Persistence("save questionnaire", base)
	if err.Error() != "save questionnaire: connection reset" || !errors.Is(err, base) {
		t.Fatalf("unexpected wrap %v", err)
	}
	again := Persistence("outer", err)
	var pe PersistenceError
	if !errors.As(again, &pe) || pe.Op != "save questionnaire" {
		t.Fatalf("expected existing persistence error to pass through, got %v", again)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	plain := ValidationError{Message: "vendor_id is required"}
	if plain.Error() != "vendor_id is required" || plain.Unwrap() != nil {
		t.Fatalf("unexpected plain error %v", plain)
	}
	cause := errors.New("unexpected EOF")
	wrapped := ValidationError{Message: "invalid request body", Err: cause}
	if wrapped.Error() != "invalid request body: unexpected EOF" || !errors.Is(wrapped, cause) {
		t.Fatalf("unexpected wrapped error %v", wrapped)
	}
}

func TestQuestionnaireStats(t *testing.T) {
	q := Questionnaire{TotalQuestions: 4, AnsweredQuestions: 3, CompletionPercentage: 75}
	if q.Stats() != (Stats{TotalQuestions: 4, AnsweredQuestions: 3, CompletionPercentage: 75}) {
		t.Fatalf("unexpected stats %+v", q.Stats())
	}
}
