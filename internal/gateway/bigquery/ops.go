package bigquery

import (
	"context"
	"fmt"
	"math"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/Motta-Financial/statement-audit/internal/model"
)

// LoadPatternsWithClient reads patterns, optionally filtered by institution,
// using the provided BigQuery client.
func LoadPatternsWithClient(ctx context.Context, client *bigquery.Client, dataset, institution string) ([]model.LearnedPattern, error) {
	query := fmt.Sprintf(`
		SELECT
			pattern_id,
			institution_id,
			pattern_type,
			original_value,
			corrected_value,
			confidence,
			occurrences,
			created_ts,
			updated_ts
		FROM `+"`%s.%s`"+`
		WHERE @institution = '' OR institution_id = @institution
		ORDER BY created_ts
	`, dataset, patternsTable)

	q := client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "institution", Value: institution},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("LoadPatternsWithClient: reading query: %w", err)
	}

	var patterns []model.LearnedPattern
	for {
		var row PatternRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("LoadPatternsWithClient: iterating: %w", err)
		}
		patterns = append(patterns, row.toModel())
	}

	return patterns, nil
}

// UpsertPatternWithClient merges one pattern on its natural key
// (institution_id, pattern_type, original_value) using the provided client.
func UpsertPatternWithClient(ctx context.Context, client *bigquery.Client, dataset string, p model.LearnedPattern) (*model.LearnedPattern, error) {
	row := patternRowFromModel(p)
	if row.PatternID == "" {
		row.PatternID = uuid.NewString()
	}
	if row.CreatedTS.IsZero() {
		row.CreatedTS = time.Now()
	}
	if row.UpdatedTS.IsZero() {
		row.UpdatedTS = row.CreatedTS
	}

	q := client.Query(fmt.Sprintf(`
		MERGE `+"`%s.%s`"+` T
		USING (SELECT
			@institution_id AS institution_id,
			@pattern_type AS pattern_type,
			@original_value AS original_value) S
		ON T.institution_id = S.institution_id
			AND T.pattern_type = S.pattern_type
			AND T.original_value = S.original_value
		WHEN MATCHED THEN UPDATE SET
			corrected_value = @corrected_value,
			confidence = @confidence,
			occurrences = @occurrences,
			updated_ts = @updated_ts
		WHEN NOT MATCHED THEN INSERT (
			pattern_id,
			institution_id,
			pattern_type,
			original_value,
			corrected_value,
			confidence,
			occurrences,
			created_ts,
			updated_ts)
		VALUES (
			@pattern_id,
			@institution_id,
			@pattern_type,
			@original_value,
			@corrected_value,
			@confidence,
			@occurrences,
			@created_ts,
			@updated_ts)
	`, dataset, patternsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "pattern_id", Value: row.PatternID},
		{Name: "institution_id", Value: row.InstitutionID},
		{Name: "pattern_type", Value: row.PatternType},
		{Name: "original_value", Value: row.OriginalValue},
		{Name: "corrected_value", Value: row.CorrectedValue},
		{Name: "confidence", Value: row.Confidence},
		{Name: "occurrences", Value: row.Occurrences},
		{Name: "created_ts", Value: row.CreatedTS},
		{Name: "updated_ts", Value: row.UpdatedTS},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("UpsertPatternWithClient: running merge: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("UpsertPatternWithClient: waiting for merge: %w", err)
	}
	if err := status.Err(); err != nil {
		return nil, fmt.Errorf("UpsertPatternWithClient: merge failed: %w", err)
	}

	saved := row.toModel()
	return &saved, nil
}

// InsertFeedbackWithClient appends one correction to the feedback log using
// the provided client.
func InsertFeedbackWithClient(ctx context.Context, client *bigquery.Client, dataset string, c model.TransactionCorrection) (*model.TransactionCorrection, error) {
	if c.CorrectedAt.IsZero() {
		c.CorrectedAt = time.Now()
	}
	row := FeedbackRow{
		FeedbackID:     uuid.NewString(),
		InstitutionID:  c.Institution,
		Field:          string(c.Field),
		OriginalValue:  c.OriginalValue,
		CorrectedValue: c.CorrectedValue,
		CorrectedBy:    c.CorrectedBy,
		CorrectedTS:    c.CorrectedAt,
		CorrectedDate:  civil.DateOf(c.CorrectedAt),
	}

	inserter := client.Dataset(dataset).Table(feedbackTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return nil, fmt.Errorf("InsertFeedbackWithClient: inserting row: %w", err)
	}

	saved := row.toModel()
	return &saved, nil
}

// LoadFeedbackWithClient returns recent corrections, newest first, using
// the provided client. limit <= 0 returns everything.
func LoadFeedbackWithClient(ctx context.Context, client *bigquery.Client, dataset, institution string, limit int) ([]model.TransactionCorrection, error) {
	query := fmt.Sprintf(`
		SELECT
			feedback_id,
			institution_id,
			field,
			original_value,
			corrected_value,
			corrected_by,
			corrected_ts,
			corrected_date
		FROM `+"`%s.%s`"+`
		WHERE @institution = '' OR institution_id = @institution
		ORDER BY corrected_ts DESC
	`, dataset, feedbackTable)
	if limit > 0 {
		query += fmt.Sprintf("\t\tLIMIT %d\n", limit)
	}

	q := client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "institution", Value: institution},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("LoadFeedbackWithClient: reading query: %w", err)
	}

	var out []model.TransactionCorrection
	for {
		var row FeedbackRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("LoadFeedbackWithClient: iterating: %w", err)
		}
		out = append(out, row.toModel())
	}

	return out, nil
}

// LoadMetricsWithClient reads metrics, optionally filtered by institution,
// using the provided client.
func LoadMetricsWithClient(ctx context.Context, client *bigquery.Client, dataset, institution string) ([]model.LearningMetrics, error) {
	query := fmt.Sprintf(`
		SELECT
			institution_id,
			transactions_parsed,
			corrections,
			accuracy_rate,
			confidence_score,
			improvement_trend,
			updated_ts
		FROM `+"`%s.%s`"+`
		WHERE @institution = '' OR institution_id = @institution
		ORDER BY institution_id
	`, dataset, metricsTable)

	q := client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "institution", Value: institution},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("LoadMetricsWithClient: reading query: %w", err)
	}

	var out []model.LearningMetrics
	for {
		var row MetricsRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("LoadMetricsWithClient: iterating: %w", err)
		}
		out = append(out, row.toModel())
	}

	return out, nil
}

// UpsertMetricsWithClient merges the institution's metrics row using the
// provided client.
func UpsertMetricsWithClient(ctx context.Context, client *bigquery.Client, dataset string, m model.LearningMetrics) (*model.LearningMetrics, error) {
	if m.Institution == "" {
		return nil, fmt.Errorf("UpsertMetricsWithClient: institution is required")
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now()
	}

	q := client.Query(fmt.Sprintf(`
		MERGE `+"`%s.%s`"+` T
		USING (SELECT @institution_id AS institution_id) S
		ON T.institution_id = S.institution_id
		WHEN MATCHED THEN UPDATE SET
			transactions_parsed = @transactions_parsed,
			corrections = @corrections,
			accuracy_rate = @accuracy_rate,
			confidence_score = @confidence_score,
			improvement_trend = @improvement_trend,
			updated_ts = @updated_ts
		WHEN NOT MATCHED THEN INSERT (
			institution_id,
			transactions_parsed,
			corrections,
			accuracy_rate,
			confidence_score,
			improvement_trend,
			updated_ts)
		VALUES (
			@institution_id,
			@transactions_parsed,
			@corrections,
			@accuracy_rate,
			@confidence_score,
			@improvement_trend,
			@updated_ts)
	`, dataset, metricsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "institution_id", Value: m.Institution},
		{Name: "transactions_parsed", Value: int64(m.TransactionsParsed)},
		{Name: "corrections", Value: int64(m.Corrections)},
		{Name: "accuracy_rate", Value: m.AccuracyRate},
		{Name: "confidence_score", Value: m.ConfidenceScore},
		{Name: "improvement_trend", Value: int64(m.ImprovementTrend)},
		{Name: "updated_ts", Value: m.UpdatedAt},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("UpsertMetricsWithClient: running merge: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("UpsertMetricsWithClient: waiting for merge: %w", err)
	}
	if err := status.Err(); err != nil {
		return nil, fmt.Errorf("UpsertMetricsWithClient: merge failed: %w", err)
	}

	return &m, nil
}

// InsertEventWithClient appends to the learning event log using the
// provided client.
func InsertEventWithClient(ctx context.Context, client *bigquery.Client, dataset, institution, eventType, details string) error {
	row := EventRow{
		EventID:       uuid.NewString(),
		InstitutionID: bigquery.NullString{StringVal: institution, Valid: institution != ""},
		EventType:     eventType,
		Details:       bigquery.NullString{StringVal: details, Valid: details != ""},
		CreatedTS:     time.Now(),
	}

	inserter := client.Dataset(dataset).Table(eventsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertEventWithClient: inserting row: %w", err)
	}
	return nil
}

// ImprovementTrendWithClient counts corrections in the two halves of the
// trailing 30-day window and derives the trend percentage. Positive means
// corrections decreased.
func ImprovementTrendWithClient(ctx context.Context, client *bigquery.Client, dataset, institution string) (int, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			COUNTIF(corrected_ts >= TIMESTAMP_SUB(CURRENT_TIMESTAMP(), INTERVAL 30 DAY)
				AND corrected_ts < TIMESTAMP_SUB(CURRENT_TIMESTAMP(), INTERVAL 15 DAY)) AS older_half,
			COUNTIF(corrected_ts >= TIMESTAMP_SUB(CURRENT_TIMESTAMP(), INTERVAL 15 DAY)) AS recent_half
		FROM `+"`%s.%s`"+`
		WHERE institution_id = @institution_id
	`, dataset, feedbackTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "institution_id", Value: institution},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("ImprovementTrendWithClient: reading query: %w", err)
	}

	var counts struct {
		OlderHalf  int64 `bigquery:"older_half"`
		RecentHalf int64 `bigquery:"recent_half"`
	}
	if err := it.Next(&counts); err != nil {
		return 0, fmt.Errorf("ImprovementTrendWithClient: iterating: %w", err)
	}

	return TrendFromCounts(int(counts.OlderHalf), int(counts.RecentHalf)), nil
}

// TrendFromCounts converts the two half-window correction counts into the
// trend percentage. An empty older half with recent corrections is reported
// as the -100 floor; the reverse as +100.
func TrendFromCounts(older, recent int) int {
	switch {
	case older == 0 && recent == 0:
		return 0
	case older == 0:
		return -100
	case recent == 0:
		return 100
	}
	return int(math.Round(float64(older-recent) / float64(older) * 100))
}
