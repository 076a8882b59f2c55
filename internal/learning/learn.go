package learning

import (
	"strconv"
	"strings"

	"github.com/Motta-Financial/statement-audit/internal/model"
)

// LearnFromCorrections mines a batch of corrections into patterns. The batch
// is grouped by natural key (institution, field-derived pattern type,
// original value); a group needs at least two members to mine a new pattern,
// since a single correction is noise rather than a trend, but once a pattern
// exists even a singleton reinforces it. The corrected value is fixed at
// mining time to the most frequent value in the group, first-seen winning
// ties; reinforcement never changes it. Returns the patterns touched, in
// group order. An empty batch is a no-op.
func (s *Store) LearnFromCorrections(batch []model.TransactionCorrection) []model.LearnedPattern {
	if len(batch) == 0 {
		return nil
	}

	type group struct {
		key       naturalKey
		corrected []string // in arrival order
	}

	groups := make(map[naturalKey]*group)
	var order []naturalKey
	for _, c := range batch {
		key := naturalKey{
			institution: c.Institution,
			patternType: model.PatternTypeForField(c.Field),
			original:    c.OriginalValue,
		}
		g, ok := groups[key]
		if !ok {
			g = &group{key: key}
			groups[key] = g
			order = append(order, key)
		}
		g.corrected = append(g.corrected, c.CorrectedValue)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var touched []model.LearnedPattern
	for _, key := range order {
		g := groups[key]
		n := len(g.corrected)
		now := s.now()

		if existing, ok := s.byKey[key]; ok {
			// Reinforcement only touches confidence and occurrences; the
			// corrected value was settled by majority when the pattern was
			// mined and a later stray correction must not replace it.
			existing.Confidence = capConfidence(existing.Confidence + 0.05*float64(n))
			existing.Occurrences += n
			existing.UpdatedAt = now
			touched = append(touched, *existing)
			continue
		}
		if n < 2 {
			continue
		}
		corrected := mostFrequent(g.corrected)

		p := &model.LearnedPattern{
			ID:             s.newID(),
			Institution:    key.institution,
			Type:           key.patternType,
			OriginalValue:  key.original,
			CorrectedValue: corrected,
			Confidence:     capConfidence(0.5 + 0.1*float64(n)),
			Occurrences:    n,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		s.patterns[p.ID] = p
		s.byKey[key] = p
		s.order = append(s.order, p.ID)
		touched = append(touched, *p)

		s.log.Info().
			Str("institution", p.Institution).
			Str("type", string(p.Type)).
			Str("original", p.OriginalValue).
			Float64("confidence", p.Confidence).
			Msg("mined new correction pattern")
	}

	return touched
}

// mostFrequent picks the most common value; ties resolve to the value seen
// first.
func mostFrequent(values []string) string {
	counts := make(map[string]int, len(values))
	best := values[0]
	bestCount := 0
	for _, v := range values {
		counts[v]++
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}

func capConfidence(c float64) float64 {
	if c > 1 {
		return 1
	}
	return c
}

// ApplyLearnedPatterns returns a copy of the transaction with every
// applicable high-confidence pattern applied, in registration order, along
// with the ids of the patterns that fired. Patterns match exactly on the
// relevant field, except category patterns which match as a substring of the
// description. Each firing bumps the pattern's occurrence count and nudges
// its confidence. Reapplying with no new corrections converges: a second
// call rewrites the same values and changes nothing further.
func (s *Store) ApplyLearnedPatterns(tx model.Transaction, institution string) (model.Transaction, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fired []string
	for _, id := range s.order {
		p := s.patterns[id]
		if p.Institution != institution || p.Confidence < ApplyThreshold {
			continue
		}
		if applyPattern(&tx, p) {
			p.Occurrences++
			p.Confidence = capConfidence(p.Confidence + 0.01)
			p.UpdatedAt = s.now()
			fired = append(fired, p.ID)
		}
	}
	return tx, fired
}

func applyPattern(tx *model.Transaction, p *model.LearnedPattern) bool {
	switch p.Type {
	case model.PatternDateFormat:
		if tx.Date == p.OriginalValue {
			tx.Date = p.CorrectedValue
			return true
		}
	case model.PatternCategory:
		// Category is keyed off the description, so substring match.
		if strings.Contains(tx.Description, p.OriginalValue) {
			tx.Category = p.CorrectedValue
			return true
		}
	case model.PatternAmountFormat:
		return applyAmountPattern(tx, p)
	case model.PatternDescriptionNorm:
		if tx.Description == p.OriginalValue {
			tx.Description = p.CorrectedValue
			return true
		}
	}
	return false
}

// applyAmountPattern compares the pattern's original value against each
// monetary field rendered to two decimals, replacing the first match. A
// corrected value that does not parse as a number never fires.
func applyAmountPattern(tx *model.Transaction, p *model.LearnedPattern) bool {
	corrected, err := strconv.ParseFloat(p.CorrectedValue, 64)
	if err != nil {
		return false
	}
	if tx.Debit != nil && formatAmount(*tx.Debit) == p.OriginalValue {
		v := corrected
		tx.Debit = &v
		return true
	}
	if tx.Credit != nil && formatAmount(*tx.Credit) == p.OriginalValue {
		v := corrected
		tx.Credit = &v
		return true
	}
	if tx.Balance != nil && formatAmount(*tx.Balance) == p.OriginalValue {
		v := corrected
		tx.Balance = &v
		return true
	}
	return false
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// IncrementPatternOccurrence records one more sighting of a pattern,
// nudging its confidence up by 0.01, capped at 1.
func (s *Store) IncrementPatternOccurrence(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.patterns[id]
	if !ok {
		return false
	}
	p.Occurrences++
	p.Confidence = capConfidence(p.Confidence + 0.01)
	p.UpdatedAt = s.now()
	return true
}
