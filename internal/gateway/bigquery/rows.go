// Package bigquery is the BigQuery-backed persistence gateway. Pattern and
// metrics writes are MERGE upserts keyed on their natural keys so replayed
// sync batches never create duplicate rows.
package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/Motta-Financial/statement-audit/internal/model"
)

const (
	patternsTable = "learned_patterns"
	feedbackTable = "correction_feedback"
	metricsTable  = "learning_metrics"
	eventsTable   = "learning_events"
)

// PatternRow is the learned_patterns table schema. The natural key is
// (institution_id, pattern_type, original_value).
type PatternRow struct {
	PatternID      string    `bigquery:"pattern_id"`      // REQUIRED
	InstitutionID  string    `bigquery:"institution_id"`  // REQUIRED
	PatternType    string    `bigquery:"pattern_type"`    // REQUIRED
	OriginalValue  string    `bigquery:"original_value"`  // REQUIRED
	CorrectedValue string    `bigquery:"corrected_value"` // REQUIRED
	Confidence     float64   `bigquery:"confidence"`      // REQUIRED
	Occurrences    int64     `bigquery:"occurrences"`     // REQUIRED
	CreatedTS      time.Time `bigquery:"created_ts"`      // REQUIRED
	UpdatedTS      time.Time `bigquery:"updated_ts"`      // REQUIRED
}

func patternRowFromModel(p model.LearnedPattern) PatternRow {
	return PatternRow{
		PatternID:      p.ID,
		InstitutionID:  p.Institution,
		PatternType:    string(p.Type),
		OriginalValue:  p.OriginalValue,
		CorrectedValue: p.CorrectedValue,
		Confidence:     p.Confidence,
		Occurrences:    int64(p.Occurrences),
		CreatedTS:      p.CreatedAt,
		UpdatedTS:      p.UpdatedAt,
	}
}

func (r PatternRow) toModel() model.LearnedPattern {
	return model.LearnedPattern{
		ID:             r.PatternID,
		Institution:    r.InstitutionID,
		Type:           model.PatternType(r.PatternType),
		OriginalValue:  r.OriginalValue,
		CorrectedValue: r.CorrectedValue,
		Confidence:     r.Confidence,
		Occurrences:    int(r.Occurrences),
		CreatedAt:      r.CreatedTS,
		UpdatedAt:      r.UpdatedTS,
	}
}

// FeedbackRow is the correction_feedback table schema. Append-only; the
// corrected_date DATE column exists for partition pruning on the trend
// query.
type FeedbackRow struct {
	FeedbackID     string     `bigquery:"feedback_id"`     // REQUIRED
	InstitutionID  string     `bigquery:"institution_id"`  // REQUIRED
	Field          string     `bigquery:"field"`           // REQUIRED
	OriginalValue  string     `bigquery:"original_value"`  // REQUIRED
	CorrectedValue string     `bigquery:"corrected_value"` // REQUIRED
	CorrectedBy    string     `bigquery:"corrected_by"`    // NULLABLE
	CorrectedTS    time.Time  `bigquery:"corrected_ts"`    // REQUIRED
	CorrectedDate  civil.Date `bigquery:"corrected_date"`  // REQUIRED
}

func (r FeedbackRow) toModel() model.TransactionCorrection {
	return model.TransactionCorrection{
		Institution:    r.InstitutionID,
		Field:          model.CorrectionField(r.Field),
		OriginalValue:  r.OriginalValue,
		CorrectedValue: r.CorrectedValue,
		CorrectedBy:    r.CorrectedBy,
		CorrectedAt:    r.CorrectedTS,
	}
}

// MetricsRow is the learning_metrics table schema. One live row per
// institution, upserted.
type MetricsRow struct {
	InstitutionID      string    `bigquery:"institution_id"`      // REQUIRED
	TransactionsParsed int64     `bigquery:"transactions_parsed"` // REQUIRED
	Corrections        int64     `bigquery:"corrections"`         // REQUIRED
	AccuracyRate       float64   `bigquery:"accuracy_rate"`       // REQUIRED
	ConfidenceScore    float64   `bigquery:"confidence_score"`    // REQUIRED
	ImprovementTrend   int64     `bigquery:"improvement_trend"`   // REQUIRED
	UpdatedTS          time.Time `bigquery:"updated_ts"`          // REQUIRED
}

func (r MetricsRow) toModel() model.LearningMetrics {
	return model.LearningMetrics{
		Institution:        r.InstitutionID,
		TransactionsParsed: int(r.TransactionsParsed),
		Corrections:        int(r.Corrections),
		AccuracyRate:       r.AccuracyRate,
		ConfidenceScore:    r.ConfidenceScore,
		ImprovementTrend:   int(r.ImprovementTrend),
		UpdatedAt:          r.UpdatedTS,
	}
}

// EventRow is the learning_events table schema.
type EventRow struct {
	EventID       string              `bigquery:"event_id"`       // REQUIRED
	InstitutionID bigquery.NullString `bigquery:"institution_id"` // NULLABLE
	EventType     string              `bigquery:"event_type"`     // REQUIRED
	Details       bigquery.NullString `bigquery:"details"`        // NULLABLE
	CreatedTS     time.Time           `bigquery:"created_ts"`     // REQUIRED
}
