// Package inmemory is an in-memory implementation of the persistence
// gateway. It backs tests and local runs and is safe for concurrent use.
// Data is lost on process exit - production deployments use the
// BigQuery-backed gateway.
package inmemory

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Motta-Financial/statement-audit/internal/gateway"
	"github.com/Motta-Financial/statement-audit/internal/model"
)

type patternKey struct {
	institution string
	patternType model.PatternType
	original    string
}

// Event is one entry in the in-memory event log.
type Event struct {
	Institution string
	EventType   string
	Details     string
	At          time.Time
}

// Store keeps all gateway collections in maps guarded by one RWMutex.
type Store struct {
	mu       sync.RWMutex
	patterns map[patternKey]model.LearnedPattern
	order    []patternKey
	feedback []model.TransactionCorrection
	metrics  map[string]model.LearningMetrics
	events   []Event

	now func() time.Time
}

// NewStore creates an empty in-memory gateway.
func NewStore() *Store {
	return &Store{
		patterns: make(map[patternKey]model.LearnedPattern),
		metrics:  make(map[string]model.LearningMetrics),
		now:      time.Now,
	}
}

// NewStoreWithClock creates a store with a fixed time source, for tests
// that exercise the trend windows.
func NewStoreWithClock(now func() time.Time) *Store {
	s := NewStore()
	s.now = now
	return s
}

// LoadPatterns implements gateway.Gateway.
func (s *Store) LoadPatterns(ctx context.Context, institution string) ([]model.LearnedPattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.LearnedPattern
	for _, key := range s.order {
		p := s.patterns[key]
		if institution != "" && p.Institution != institution {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// SavePattern implements gateway.Gateway. Upserts by natural key.
func (s *Store) SavePattern(ctx context.Context, p model.LearnedPattern) (*model.LearnedPattern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := s.upsertLocked(p)
	return &saved, nil
}

// SavePatternsBulk implements gateway.Gateway.
func (s *Store) SavePatternsBulk(ctx context.Context, ps []model.LearnedPattern) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range ps {
		s.upsertLocked(p)
	}
	return len(ps), nil
}

func (s *Store) upsertLocked(p model.LearnedPattern) model.LearnedPattern {
	key := patternKey{p.Institution, p.Type, p.OriginalValue}
	existing, ok := s.patterns[key]
	if ok {
		// The row keeps its identity across upserts.
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	} else {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = s.now()
		}
		s.order = append(s.order, key)
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = s.now()
	}
	s.patterns[key] = p
	return p
}

// SaveFeedback implements gateway.Gateway.
func (s *Store) SaveFeedback(ctx context.Context, c model.TransactionCorrection) (*model.TransactionCorrection, error) {
	if c.Institution == "" {
		return nil, fmt.Errorf("SaveFeedback: institution is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.CorrectedAt.IsZero() {
		c.CorrectedAt = s.now()
	}
	s.feedback = append(s.feedback, c)
	return &c, nil
}

// LoadFeedback implements gateway.Gateway. Newest first.
func (s *Store) LoadFeedback(ctx context.Context, institution string, limit int) ([]model.TransactionCorrection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.TransactionCorrection
	for i := len(s.feedback) - 1; i >= 0; i-- {
		c := s.feedback[i]
		if institution != "" && c.Institution != institution {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// LoadMetrics implements gateway.Gateway.
func (s *Store) LoadMetrics(ctx context.Context, institution string) ([]model.LearningMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if institution != "" {
		if m, ok := s.metrics[institution]; ok {
			return []model.LearningMetrics{m}, nil
		}
		return nil, nil
	}
	out := make([]model.LearningMetrics, 0, len(s.metrics))
	for _, m := range s.metrics {
		out = append(out, m)
	}
	return out, nil
}

// UpdateMetrics implements gateway.Gateway. Upserts by institution.
func (s *Store) UpdateMetrics(ctx context.Context, m model.LearningMetrics) (*model.LearningMetrics, error) {
	if m.Institution == "" {
		return nil, fmt.Errorf("UpdateMetrics: institution is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = s.now()
	}
	s.metrics[m.Institution] = m
	return &m, nil
}

// LogEvent implements gateway.Gateway.
func (s *Store) LogEvent(ctx context.Context, institution, eventType, details string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, Event{
		Institution: institution,
		EventType:   eventType,
		Details:     details,
		At:          s.now(),
	})
	return nil
}

// Events returns a copy of the event log in append order.
func (s *Store) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event(nil), s.events...)
}

// CalculateImprovementTrend implements gateway.Gateway. It splits the
// trailing 30 days of feedback into an older half (days 30-16 ago) and a
// recent half (days 15-0 ago) and compares correction counts. Fewer recent
// corrections means the extraction is improving.
func (s *Store) CalculateImprovementTrend(ctx context.Context, institution string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	windowStart := now.AddDate(0, 0, -30)
	midpoint := now.AddDate(0, 0, -15)

	older, recent := 0, 0
	for _, c := range s.feedback {
		if c.Institution != institution {
			continue
		}
		switch {
		case c.CorrectedAt.Before(windowStart) || c.CorrectedAt.After(now):
			continue
		case c.CorrectedAt.Before(midpoint):
			older++
		default:
			recent++
		}
	}

	switch {
	case older == 0 && recent == 0:
		return 0, nil
	case older == 0:
		// Corrections appeared where there were none: floor at -100.
		return -100, nil
	case recent == 0:
		return 100, nil
	}
	return int(math.Round(float64(older-recent) / float64(older) * 100)), nil
}

// Ensure Store implements the gateway contract.
var _ gateway.Gateway = (*Store)(nil)
