package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Motta-Financial/statement-audit/internal/model"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testPattern(institution, original string) model.LearnedPattern {
	return model.LearnedPattern{
		Institution:    institution,
		Type:           model.PatternDateFormat,
		OriginalValue:  original,
		CorrectedValue: "corrected",
		Confidence:     0.8,
		Occurrences:    2,
	}
}

func TestSavePatternUpsert(t *testing.T) {
	s := NewStoreWithClock(func() time.Time { return fixedNow })
	ctx := context.Background()

	first, err := s.SavePattern(ctx, testPattern("chase", "01/15/2024"))
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	assert.Equal(t, fixedNow, first.CreatedAt)

	update := testPattern("chase", "01/15/2024")
	update.Confidence = 0.95
	update.Occurrences = 7

	second, err := s.SavePattern(ctx, update)
	require.NoError(t, err)

	// Same natural key keeps the row's identity.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, 0.95, second.Confidence)

	patterns, err := s.LoadPatterns(ctx, "chase")
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, 7, patterns[0].Occurrences)
}

func TestLoadPatternsFilter(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, err := s.SavePatternsBulk(ctx, []model.LearnedPattern{
		testPattern("chase", "a"),
		testPattern("citi", "b"),
		testPattern("chase", "c"),
	})
	require.NoError(t, err)

	chase, err := s.LoadPatterns(ctx, "chase")
	require.NoError(t, err)
	require.Len(t, chase, 2)
	assert.Equal(t, "a", chase[0].OriginalValue)
	assert.Equal(t, "c", chase[1].OriginalValue)

	all, err := s.LoadPatterns(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSaveFeedbackRequiresInstitution(t *testing.T) {
	s := NewStore()

	_, err := s.SaveFeedback(context.Background(), model.TransactionCorrection{})
	assert.Error(t, err)
}

func TestLoadFeedbackNewestFirst(t *testing.T) {
	s := NewStoreWithClock(func() time.Time { return fixedNow })
	ctx := context.Background()

	for _, v := range []string{"first", "second", "third"} {
		_, err := s.SaveFeedback(ctx, model.TransactionCorrection{
			Institution:   "chase",
			Field:         model.FieldDate,
			OriginalValue: v,
		})
		require.NoError(t, err)
	}

	got, err := s.LoadFeedback(ctx, "chase", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[0].OriginalValue)
	assert.Equal(t, "second", got[1].OriginalValue)
}

func TestUpdateMetricsUpsert(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, err := s.UpdateMetrics(ctx, model.LearningMetrics{Institution: "chase", TransactionsParsed: 10})
	require.NoError(t, err)
	_, err = s.UpdateMetrics(ctx, model.LearningMetrics{Institution: "chase", TransactionsParsed: 25})
	require.NoError(t, err)

	got, err := s.LoadMetrics(ctx, "chase")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 25, got[0].TransactionsParsed)

	_, err = s.UpdateMetrics(ctx, model.LearningMetrics{})
	assert.Error(t, err)
}

func TestCalculateImprovementTrend(t *testing.T) {
	tests := []struct {
		name   string
		older  int
		recent int
		want   int
	}{
		{"fewer recent corrections", 10, 5, 50},
		{"no corrections at all", 0, 0, 0},
		{"corrections appeared from nothing", 0, 3, -100},
		{"corrections vanished", 4, 0, 100},
		{"regression", 4, 6, -50},
		{"rounding", 3, 1, 67},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStoreWithClock(func() time.Time { return fixedNow })
			ctx := context.Background()

			olderAt := fixedNow.AddDate(0, 0, -20)
			recentAt := fixedNow.AddDate(0, 0, -5)
			for i := 0; i < tt.older; i++ {
				_, err := s.SaveFeedback(ctx, model.TransactionCorrection{
					Institution: "chase",
					CorrectedAt: olderAt,
				})
				require.NoError(t, err)
			}
			for i := 0; i < tt.recent; i++ {
				_, err := s.SaveFeedback(ctx, model.TransactionCorrection{
					Institution: "chase",
					CorrectedAt: recentAt,
				})
				require.NoError(t, err)
			}

			got, err := s.CalculateImprovementTrend(ctx, "chase")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculateImprovementTrendIgnoresOutliers(t *testing.T) {
	s := NewStoreWithClock(func() time.Time { return fixedNow })
	ctx := context.Background()

	// Outside the 30-day window, a different institution, and in the
	// future: all invisible to the trend.
	for _, c := range []model.TransactionCorrection{
		{Institution: "chase", CorrectedAt: fixedNow.AddDate(0, 0, -45)},
		{Institution: "citi", CorrectedAt: fixedNow.AddDate(0, 0, -5)},
		{Institution: "chase", CorrectedAt: fixedNow.AddDate(0, 0, 1)},
	} {
		_, err := s.SaveFeedback(ctx, c)
		require.NoError(t, err)
	}

	got, err := s.CalculateImprovementTrend(ctx, "chase")
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}
