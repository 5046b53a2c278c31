package questionnaire

import (
	"math"

	"vendorq/pkg/domain"
)

// Completion derives answered/total counts and a percentage rounded to two
// decimals. An empty list yields zero percent.
func Completion(questions []domain.Question) domain.Stats {
	total := len(questions)
	answered := 0
	for _, q := range questions {
		if q.Answered {
			answered++
		}
	}
	var pct float64
	if total > 0 {
		pct = math.Round(float64(answered)/float64(total)*100*100) / 100
	}
	return domain.Stats{
		TotalQuestions:       total,
		AnsweredQuestions:    answered,
		CompletionPercentage: pct,
	}
}

// MeetsThreshold reports whether stats qualify for the onboarding progress bump.
func MeetsThreshold(stats domain.Stats) bool {
	return stats.CompletionPercentage >= domain.CompletionThreshold
}
