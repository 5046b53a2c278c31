package questionnaire

import (
	"math"
	"testing"

	"vendorq/pkg/domain"
)

func questions(total, answered int) []domain.Question {
	out := make([]domain.Question, total)
	for i := range out {
		out[i] = domain.Question{Answered: i < answered}
	}
	return out
}

func TestCompletion(t *testing.T) {
	cases := []struct {
		total, answered int
		want            float64
	}{
		{0, 0, 0},
		{3, 0, 0},
		{3, 1, 33.33},
		{3, 2, 66.67},
		{13, 13, 100},
		{10, 9, 90},
		{14, 5, 35.71},
		{18, 16, 88.89},
	}
	for _, tc := range cases {
		got := Completion(questions(tc.total, tc.answered))
		if got.TotalQuestions != tc.total || got.AnsweredQuestions != tc.answered {
			t.Fatalf("counts mismatch for %d/%d: %+v", tc.answered, tc.total, got)
		}
		if got.CompletionPercentage != tc.want {
			t.Fatalf("%d/%d: want %v, got %v", tc.answered, tc.total, tc.want, got.CompletionPercentage)
		}
	}
}

func TestCompletionInvariantsOverAllSizes(t *testing.T) {
	for total := 0; total <= 25; total++ {
		for answered := 0; answered <= total; answered++ {
			s := Completion(questions(total, answered))
			if s.AnsweredQuestions > s.TotalQuestions {
				t.Fatalf("answered exceeds total: %+v", s)
			}
			want := 0.0
			if total > 0 {
				want = math.Round(float64(answered)/float64(total)*100*100) / 100
			}
			if s.CompletionPercentage != want {
				t.Fatalf("%d/%d: want %v got %v", answered, total, want, s.CompletionPercentage)
			}
		}
	}
}

func TestMeetsThreshold(t *testing.T) {
	if !MeetsThreshold(domain.Stats{CompletionPercentage: 90}) {
		t.Fatalf("exactly 90 must meet the threshold")
	}
	if MeetsThreshold(domain.Stats{CompletionPercentage: 89.99}) {
		t.Fatalf("89.99 must not meet the threshold")
	}
}
