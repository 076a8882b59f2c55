package learning

import (
	"context"
	"testing"

	"github.com/Motta-Financial/statement-audit/internal/gateway"
	"github.com/Motta-Financial/statement-audit/internal/gateway/inmemory"
	"github.com/Motta-Financial/statement-audit/internal/model"
)

func TestSyncAndHydrateRoundTrip(t *testing.T) {
	ctx := context.Background()
	gw := inmemory.NewStore()

	source := testStore()
	source.LearnFromCorrections([]model.TransactionCorrection{
		dateCorrection("01/15/2024", "2024-01-15"),
		dateCorrection("01/15/2024", "2024-01-15"),
		dateCorrection("01/15/2024", "2024-01-15"),
	})
	source.RecordTransactionsParsed("chase", 50)
	source.SyncToGateway(ctx, gw)

	restored := testStore()
	restored.HydrateFromGateway(ctx, gw)

	patterns := restored.PatternsForInstitution("chase")
	if len(patterns) != 1 {
		t.Fatalf("Expected 1 pattern after hydration, got %d", len(patterns))
	}
	if patterns[0].CorrectedValue != "2024-01-15" || patterns[0].Occurrences != 3 {
		t.Errorf("Pattern did not survive the round trip: %+v", patterns[0])
	}

	m, ok := restored.GetMetrics("chase")
	if !ok {
		t.Fatal("Expected chase metrics after hydration")
	}
	if m.TransactionsParsed != 50 {
		t.Errorf("Expected 50 parsed transactions, got %d", m.TransactionsParsed)
	}
}

func TestSyncUpsertStable(t *testing.T) {
	ctx := context.Background()
	gw := inmemory.NewStore()

	s := testStore()
	s.LearnFromCorrections([]model.TransactionCorrection{
		dateCorrection("01/15/2024", "2024-01-15"),
		dateCorrection("01/15/2024", "2024-01-15"),
	})

	// Sync twice: the second pass must upsert, not duplicate.
	s.SyncToGateway(ctx, gw)
	s.SyncToGateway(ctx, gw)

	persisted, err := gw.LoadPatterns(ctx, "chase")
	if err != nil {
		t.Fatalf("LoadPatterns failed: %v", err)
	}
	if len(persisted) != 1 {
		t.Errorf("Expected 1 persisted pattern after repeated sync, got %d", len(persisted))
	}
}

func countEvents(events []inmemory.Event, eventType string) int {
	n := 0
	for _, e := range events {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

func TestLearnAndSyncRecordsEvents(t *testing.T) {
	ctx := context.Background()
	gw := inmemory.NewStore()

	s := testStore()
	mined := s.LearnAndSync(ctx, gw, []model.TransactionCorrection{
		dateCorrection("01/15/2024", "2024-01-15"),
		dateCorrection("01/15/2024", "2024-01-15"),
		dateCorrection("01/15/2024", "2024-01-15"),
	})
	if len(mined) != 1 {
		t.Fatalf("Expected 1 mined pattern, got %d", len(mined))
	}

	feedback, err := gw.LoadFeedback(ctx, "chase", 0)
	if err != nil {
		t.Fatalf("LoadFeedback failed: %v", err)
	}
	if len(feedback) != 3 {
		t.Errorf("Expected 3 persisted corrections, got %d", len(feedback))
	}

	events := gw.Events()
	if got := countEvents(events, gateway.EventCorrectionSaved); got != 3 {
		t.Errorf("Expected 3 correction-saved events, got %d", got)
	}
	if got := countEvents(events, gateway.EventPatternLearned); got != 1 {
		t.Errorf("Expected 1 pattern-learned event, got %d", got)
	}
	if got := countEvents(events, gateway.EventStateExported); got != 1 {
		t.Errorf("Expected 1 state-exported event from the final sync, got %d", got)
	}
}

func TestApplyToStatementRecordsEvent(t *testing.T) {
	ctx := context.Background()
	gw := inmemory.NewStore()

	s := testStore()
	s.Initialize([]model.LearnedPattern{
		{
			Institution:    "chase",
			Type:           model.PatternDateFormat,
			OriginalValue:  "01/15/2024",
			CorrectedValue: "2024-01-15",
			Confidence:     0.9,
		},
	}, nil)

	stmt := &model.Statement{
		Institution: "chase",
		Transactions: []model.Transaction{
			{ID: "tx-1", Date: "01/15/2024", Description: "Coffee Shop"},
			{ID: "tx-2", Date: "01/15/2024", Description: "Grocery Store"},
			{ID: "tx-3", Date: "2024-01-20", Description: "Payroll"},
		},
	}

	applied := s.ApplyToStatement(ctx, gw, stmt)
	if applied != 2 {
		t.Fatalf("Expected 2 applications, got %d", applied)
	}
	if stmt.Transactions[0].Date != "2024-01-15" || stmt.Transactions[1].Date != "2024-01-15" {
		t.Errorf("Expected dates rewritten in place, got %q and %q",
			stmt.Transactions[0].Date, stmt.Transactions[1].Date)
	}
	if stmt.Transactions[2].Date != "2024-01-20" {
		t.Errorf("Expected non-matching date untouched, got %q", stmt.Transactions[2].Date)
	}

	events := gw.Events()
	if got := countEvents(events, gateway.EventPatternApplied); got != 1 {
		t.Fatalf("Expected 1 pattern-applied event, got %d", got)
	}

	// A statement that fires nothing logs nothing.
	clean := &model.Statement{Institution: "citi", Transactions: []model.Transaction{
		{ID: "tx-1", Date: "2024-01-20", Description: "Payroll"},
	}}
	if got := s.ApplyToStatement(ctx, gw, clean); got != 0 {
		t.Fatalf("Expected 0 applications, got %d", got)
	}
	if got := countEvents(gw.Events(), gateway.EventPatternApplied); got != 1 {
		t.Errorf("Expected no additional event for a clean statement, got %d total", got)
	}
}
