package learning

import (
	"math"
	"strings"

	"github.com/Motta-Financial/statement-audit/internal/model"
)

// ConfidenceWeights weight the five independent presence checks that feed
// the transaction confidence score.
type ConfidenceWeights struct {
	Date        float64
	Amount      float64
	Description float64
	Balance     float64
	Category    float64
}

// DefaultConfidenceWeights are the production weights.
func DefaultConfidenceWeights() ConfidenceWeights {
	return ConfidenceWeights{
		Date:        0.2,
		Amount:      0.3,
		Description: 0.2,
		Balance:     0.2,
		Category:    0.1,
	}
}

// highConfidenceBoostFloor is how many patterns with confidence >= 0.8 an
// institution needs before scores get the 1.1x boost.
const highConfidenceBoostFloor = 10

// TransactionConfidence scores how much to trust one extracted transaction
// as a weighted sum of presence checks. Institutions with a deep set of
// high-confidence patterns get a 1.1x boost, capped at 1. The result is
// rounded to two decimals.
//
// A stricter variant used by the review surface lives in ReviewConfidence;
// the two formulas are tuned for different call sites and are deliberately
// not unified.
func (s *Store) TransactionConfidence(tx *model.Transaction, institution string, w ConfidenceWeights) float64 {
	score := 0.0
	if _, ok := model.ParseDate(tx.Date); ok {
		score += w.Date
	}
	if tx.HasAmount() {
		score += w.Amount
	}
	if len(strings.TrimSpace(tx.Description)) > 3 {
		score += w.Description
	}
	if tx.Balance != nil {
		score += w.Balance
	}
	if tx.Category != "" {
		score += w.Category
	}

	return round2(s.boost(institution, score))
}

// ReviewConfidence is the review surface's scorer. It differs from
// TransactionConfidence only in the description check: full weight above 10
// characters, half weight above 3.
func (s *Store) ReviewConfidence(tx *model.Transaction, institution string, w ConfidenceWeights) float64 {
	score := 0.0
	if _, ok := model.ParseDate(tx.Date); ok {
		score += w.Date
	}
	if tx.HasAmount() {
		score += w.Amount
	}
	switch desc := strings.TrimSpace(tx.Description); {
	case len(desc) > 10:
		score += w.Description
	case len(desc) > 3:
		score += w.Description / 2
	}
	if tx.Balance != nil {
		score += w.Balance
	}
	if tx.Category != "" {
		score += w.Category
	}

	return round2(s.boost(institution, score))
}

func (s *Store) boost(institution string, score float64) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	high := 0
	for _, id := range s.order {
		p := s.patterns[id]
		if p.Institution == institution && p.Confidence >= 0.8 {
			high++
		}
	}
	if high > highConfidenceBoostFloor {
		score *= 1.1
		if score > 1 {
			score = 1
		}
	}
	return score
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
