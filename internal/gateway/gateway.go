// Package gateway defines the persistence contract the audit and learning
// core calls. The core never implements retries or storage concerns itself;
// a failed load degrades to empty in-memory state and a failed save is
// logged and dropped, to be re-derived from the next batch.
package gateway

import (
	"context"

	"github.com/Motta-Financial/statement-audit/internal/model"
)

// Event types recorded through LogEvent.
const (
	EventPatternLearned   = "pattern_learned"
	EventPatternApplied   = "pattern_applied"
	EventCorrectionSaved  = "correction_saved"
	EventStatementAudited = "statement_audited"
	EventStateExported    = "state_exported"
	EventStateInitialized = "state_initialized"
)

// Gateway is the storage collaborator. Pattern writes upsert on the natural
// key (institution, pattern type, original value) and metrics writes upsert
// on institution, so replaying overlapping batches stays idempotent.
type Gateway interface {
	// LoadPatterns returns patterns for one institution, or all when
	// institution is empty.
	LoadPatterns(ctx context.Context, institution string) ([]model.LearnedPattern, error)
	// SavePattern upserts one pattern by natural key and returns the
	// stored row.
	SavePattern(ctx context.Context, p model.LearnedPattern) (*model.LearnedPattern, error)
	// SavePatternsBulk upserts many patterns and returns how many were
	// written.
	SavePatternsBulk(ctx context.Context, ps []model.LearnedPattern) (int, error)

	// SaveFeedback appends one correction to the feedback log.
	SaveFeedback(ctx context.Context, c model.TransactionCorrection) (*model.TransactionCorrection, error)
	// LoadFeedback returns recent corrections, newest first, optionally
	// filtered by institution. limit <= 0 means no limit.
	LoadFeedback(ctx context.Context, institution string, limit int) ([]model.TransactionCorrection, error)

	// LoadMetrics returns metrics for one institution, or all when
	// institution is empty.
	LoadMetrics(ctx context.Context, institution string) ([]model.LearningMetrics, error)
	// UpdateMetrics upserts the institution's metrics record.
	UpdateMetrics(ctx context.Context, m model.LearningMetrics) (*model.LearningMetrics, error)

	// LogEvent appends to the learning event log.
	LogEvent(ctx context.Context, institution, eventType, details string) error

	// CalculateImprovementTrend compares correction counts between the
	// two halves of the trailing 30-day window. Positive means
	// corrections decreased (extraction is improving). Both halves empty
	// yields 0; an empty older half yields -100; an empty recent half
	// yields +100.
	CalculateImprovementTrend(ctx context.Context, institution string) (int, error)
}
