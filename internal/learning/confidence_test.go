package learning

import (
	"fmt"
	"math"
	"testing"

	"github.com/Motta-Financial/statement-audit/internal/model"
)

func fullTransaction() model.Transaction {
	amount := 42.50
	balance := 1042.50
	return model.Transaction{
		ID:          "tx-1",
		Date:        "2024-01-15",
		Description: "Payroll Deposit ACME Corp",
		Credit:      &amount,
		Balance:     &balance,
		Category:    "Income",
	}
}

func TestTransactionConfidence(t *testing.T) {
	s := testStore()
	w := DefaultConfidenceWeights()

	tests := []struct {
		name   string
		mutate func(*model.Transaction)
		want   float64
	}{
		{
			name:   "all fields present",
			mutate: func(tx *model.Transaction) {},
			want:   1.0,
		},
		{
			name:   "missing date",
			mutate: func(tx *model.Transaction) { tx.Date = "" },
			want:   0.8,
		},
		{
			name:   "malformed date",
			mutate: func(tx *model.Transaction) { tx.Date = "01/15/2024" },
			want:   0.8,
		},
		{
			name: "missing amount",
			mutate: func(tx *model.Transaction) {
				tx.Credit = nil
				tx.Debit = nil
			},
			want: 0.7,
		},
		{
			name:   "short description",
			mutate: func(tx *model.Transaction) { tx.Description = "abc" },
			want:   0.8,
		},
		{
			name:   "missing balance",
			mutate: func(tx *model.Transaction) { tx.Balance = nil },
			want:   0.8,
		},
		{
			name:   "missing category",
			mutate: func(tx *model.Transaction) { tx.Category = "" },
			want:   0.9,
		},
		{
			name: "empty transaction",
			mutate: func(tx *model.Transaction) {
				*tx = model.Transaction{}
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := fullTransaction()
			tt.mutate(&tx)
			got := s.TransactionConfidence(&tx, "chase", w)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("TransactionConfidence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReviewConfidenceDescriptionTiers(t *testing.T) {
	s := testStore()
	w := DefaultConfidenceWeights()

	tests := []struct {
		name        string
		description string
		want        float64
	}{
		{"long description full weight", "Payroll Deposit ACME Corp", 1.0},
		{"medium description half weight", "Payroll", 0.9},
		{"short description no weight", "abc", 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := fullTransaction()
			tx.Description = tt.description
			got := s.ReviewConfidence(&tx, "chase", w)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ReviewConfidence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfidenceBoost(t *testing.T) {
	s := testStore()

	// Eleven high-confidence patterns clears the boost floor.
	patterns := make([]model.LearnedPattern, 11)
	for i := range patterns {
		patterns[i] = model.LearnedPattern{
			Institution:   "chase",
			Type:          model.PatternDescriptionNorm,
			OriginalValue: fmt.Sprintf("original-%d", i),
			Confidence:    0.85,
		}
	}
	s.Initialize(patterns, nil)

	tx := fullTransaction()
	tx.Category = "" // base score 0.9

	got := s.TransactionConfidence(&tx, "chase", DefaultConfidenceWeights())
	if math.Abs(got-0.99) > 1e-9 {
		t.Errorf("Expected boosted score 0.99, got %v", got)
	}

	// The boost never pushes past 1.
	full := fullTransaction()
	if got := s.TransactionConfidence(&full, "chase", DefaultConfidenceWeights()); got != 1 {
		t.Errorf("Expected boosted score capped at 1, got %v", got)
	}

	// Other institutions see no boost.
	if got := s.TransactionConfidence(&tx, "citi", DefaultConfidenceWeights()); math.Abs(got-0.9) > 1e-9 {
		t.Errorf("Expected unboosted score 0.9 for citi, got %v", got)
	}
}
