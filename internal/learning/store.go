// Package learning converts streams of human corrections into reusable,
// confidence-weighted patterns and tracks per-institution accuracy. The
// store is in-memory and safe for concurrent use; it is constructed and
// passed by the caller so tests and workers each own a clearly-scoped copy,
// hydrated from and synced back to the persistence gateway.
package learning

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Motta-Financial/statement-audit/internal/model"
)

// ApplyThreshold is the minimum confidence before a pattern fires on new
// statements.
const ApplyThreshold = 0.7

type naturalKey struct {
	institution string
	patternType model.PatternType
	original    string
}

func keyOf(p *model.LearnedPattern) naturalKey {
	return naturalKey{p.Institution, p.Type, p.OriginalValue}
}

// Store holds learned patterns, the append-only correction log, and
// per-institution metrics. All read-modify-write operations are serialized
// behind one lock; the accuracy recompute stays atomic with its counter
// bump.
type Store struct {
	mu sync.RWMutex

	patterns map[string]*model.LearnedPattern // by id
	byKey    map[naturalKey]*model.LearnedPattern
	order    []string // pattern ids in registration order

	corrections []model.TransactionCorrection
	metrics     map[string]*model.LearningMetrics

	log   zerolog.Logger
	now   func() time.Time
	newID func() string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the store's logger.
func WithLogger(log zerolog.Logger) StoreOption {
	return func(s *Store) { s.log = log }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides pattern id generation, for tests.
func WithIDGenerator(newID func() string) StoreOption {
	return func(s *Store) { s.newID = newID }
}

// NewStore creates an empty learning store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		patterns: make(map[string]*model.LearnedPattern),
		byKey:    make(map[naturalKey]*model.LearnedPattern),
		metrics:  make(map[string]*model.LearningMetrics),
		log:      zerolog.Nop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize bulk-loads patterns and metrics, replacing current state. Later
// duplicates of a natural key win, matching upsert semantics at the gateway.
func (s *Store) Initialize(patterns []model.LearnedPattern, metrics []model.LearningMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.patterns = make(map[string]*model.LearnedPattern, len(patterns))
	s.byKey = make(map[naturalKey]*model.LearnedPattern, len(patterns))
	s.order = s.order[:0]
	for i := range patterns {
		p := patterns[i]
		if p.ID == "" {
			p.ID = s.newID()
		}
		if prev, ok := s.byKey[keyOf(&p)]; ok {
			delete(s.patterns, prev.ID)
			s.removeFromOrder(prev.ID)
		}
		s.patterns[p.ID] = &p
		s.byKey[keyOf(&p)] = &p
		s.order = append(s.order, p.ID)
	}

	s.metrics = make(map[string]*model.LearningMetrics, len(metrics))
	for i := range metrics {
		m := metrics[i]
		s.metrics[m.Institution] = &m
	}

	s.log.Info().
		Int("patterns", len(s.patterns)).
		Int("metrics", len(s.metrics)).
		Msg("learning store initialized")
}

func (s *Store) removeFromOrder(id string) {
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// ExportState returns copies of all live patterns and metrics for syncing
// back to the gateway. Patterns come out in registration order, metrics
// sorted by institution.
func (s *Store) ExportState() ([]model.LearnedPattern, []model.LearningMetrics) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	patterns := make([]model.LearnedPattern, 0, len(s.order))
	for _, id := range s.order {
		patterns = append(patterns, *s.patterns[id])
	}

	metrics := make([]model.LearningMetrics, 0, len(s.metrics))
	for _, m := range s.metrics {
		metrics = append(metrics, *m)
	}
	sort.Slice(metrics, func(i, j int) bool {
		return metrics[i].Institution < metrics[j].Institution
	})

	return patterns, metrics
}

// metricsFor returns the live metrics record for the institution, creating
// it when absent. Caller must hold the write lock.
func (s *Store) metricsFor(institution string) *model.LearningMetrics {
	m, ok := s.metrics[institution]
	if !ok {
		m = &model.LearningMetrics{Institution: institution}
		s.metrics[institution] = m
	}
	return m
}

// recomputeAccuracy derives the accuracy rate from the counters. With no
// parsed transactions the rate is 0, not a division by zero.
func recomputeAccuracy(m *model.LearningMetrics) {
	if m.TransactionsParsed <= 0 {
		m.AccuracyRate = 0
		return
	}
	rate := 1 - float64(m.Corrections)/float64(m.TransactionsParsed)
	if rate < 0 {
		rate = 0
	}
	m.AccuracyRate = rate
}

// AddCorrection appends to the correction log and updates the institution's
// counters and accuracy rate.
func (s *Store) AddCorrection(c model.TransactionCorrection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.CorrectedAt.IsZero() {
		c.CorrectedAt = s.now()
	}
	s.corrections = append(s.corrections, c)

	m := s.metricsFor(c.Institution)
	m.Corrections++
	recomputeAccuracy(m)
	m.UpdatedAt = s.now()
}

// RecordTransactionsParsed bumps the parsed-transaction denominator for the
// institution and recomputes accuracy.
func (s *Store) RecordTransactionsParsed(institution string, count int) {
	if count <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.metricsFor(institution)
	m.TransactionsParsed += count
	recomputeAccuracy(m)
	m.UpdatedAt = s.now()
}

// Corrections returns a copy of the correction log.
func (s *Store) Corrections() []model.TransactionCorrection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.TransactionCorrection, len(s.corrections))
	copy(out, s.corrections)
	return out
}

// GetMetrics returns the institution's metrics record.
func (s *Store) GetMetrics(institution string) (model.LearningMetrics, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.metrics[institution]
	if !ok {
		return model.LearningMetrics{}, false
	}
	return *m, true
}

// GetAllMetrics returns every institution's metrics, sorted by institution.
func (s *Store) GetAllMetrics() []model.LearningMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.LearningMetrics, 0, len(s.metrics))
	for _, m := range s.metrics {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Institution < out[j].Institution })
	return out
}

// PatternsForInstitution returns copies of the institution's patterns in
// registration order.
func (s *Store) PatternsForInstitution(institution string) []model.LearnedPattern {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.LearnedPattern
	for _, id := range s.order {
		if p := s.patterns[id]; p.Institution == institution {
			out = append(out, *p)
		}
	}
	return out
}
