package learning

import (
	"context"
	"fmt"

	"github.com/Motta-Financial/statement-audit/internal/gateway"
	"github.com/Motta-Financial/statement-audit/internal/model"
)

// HydrateFromGateway initializes the store from persisted state. A failed
// load is logged and the store continues empty: the audit path must keep
// working when storage is down.
func (s *Store) HydrateFromGateway(ctx context.Context, gw gateway.Gateway) {
	patterns, err := gw.LoadPatterns(ctx, "")
	if err != nil {
		s.log.Error().Err(err).Msg("loading patterns failed; continuing with empty state")
		patterns = nil
	}
	metrics, err := gw.LoadMetrics(ctx, "")
	if err != nil {
		s.log.Error().Err(err).Msg("loading metrics failed; continuing with empty state")
		metrics = nil
	}
	s.Initialize(patterns, metrics)

	if err := gw.LogEvent(ctx, "", gateway.EventStateInitialized, ""); err != nil {
		s.log.Warn().Err(err).Msg("event log write failed")
	}
}

// SyncToGateway writes the store's live patterns and metrics back through
// the gateway's upsert operations. Failed saves are logged and dropped; the
// lost increments are re-derived from the next correction batch.
func (s *Store) SyncToGateway(ctx context.Context, gw gateway.Gateway) {
	patterns, metrics := s.ExportState()

	if len(patterns) > 0 {
		n, err := gw.SavePatternsBulk(ctx, patterns)
		if err != nil {
			s.log.Error().Err(err).Msg("pattern sync failed; increments will be re-derived")
		} else {
			s.log.Debug().Int("patterns", n).Msg("patterns synced")
		}
	}

	for _, m := range metrics {
		if _, err := gw.UpdateMetrics(ctx, m); err != nil {
			s.log.Error().Err(err).Str("institution", m.Institution).Msg("metrics sync failed")
		}
	}

	if err := gw.LogEvent(ctx, "", gateway.EventStateExported, ""); err != nil {
		s.log.Warn().Err(err).Msg("event log write failed")
	}
}

// LearnAndSync runs a correction batch end to end against persistent
// storage: each correction is tallied and appended to the feedback log,
// patterns are mined and reinforced, and the updated state is written back.
// One event is recorded per saved correction and per touched pattern.
// Returns the patterns touched, as LearnFromCorrections does.
func (s *Store) LearnAndSync(ctx context.Context, gw gateway.Gateway, batch []model.TransactionCorrection) []model.LearnedPattern {
	for _, c := range batch {
		s.AddCorrection(c)
		if _, err := gw.SaveFeedback(ctx, c); err != nil {
			s.log.Error().Err(err).Str("institution", c.Institution).Msg("feedback save failed; tallied in memory only")
			continue
		}
		if err := gw.LogEvent(ctx, c.Institution, gateway.EventCorrectionSaved, string(c.Field)); err != nil {
			s.log.Warn().Err(err).Msg("event log write failed")
		}
	}

	touched := s.LearnFromCorrections(batch)
	for _, p := range touched {
		if err := gw.LogEvent(ctx, p.Institution, gateway.EventPatternLearned, p.OriginalValue); err != nil {
			s.log.Warn().Err(err).Msg("event log write failed")
		}
	}

	s.SyncToGateway(ctx, gw)
	return touched
}

// ApplyToStatement applies learned patterns to every transaction of the
// statement in place. Firings are summed across transactions and recorded as
// one pattern-applied event; a statement with no firings logs nothing.
// Returns the total number of applications.
func (s *Store) ApplyToStatement(ctx context.Context, gw gateway.Gateway, stmt *model.Statement) int {
	fired := 0
	for i := range stmt.Transactions {
		var ids []string
		stmt.Transactions[i], ids = s.ApplyLearnedPatterns(stmt.Transactions[i], stmt.Institution)
		fired += len(ids)
	}
	if fired > 0 {
		details := fmt.Sprintf("%d pattern applications", fired)
		if err := gw.LogEvent(ctx, stmt.Institution, gateway.EventPatternApplied, details); err != nil {
			s.log.Warn().Err(err).Msg("event log write failed")
		}
	}
	return fired
}
