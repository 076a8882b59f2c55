package audit

import (
	"testing"

	"github.com/Motta-Financial/statement-audit/internal/model"
)

func TestCheckDuplicates(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		name         string
		transactions []model.Transaction
		wantIssues   int
		wantSeverity model.Severity
	}{
		{
			name: "identical descriptions are a warning",
			transactions: []model.Transaction{
				{ID: "tx-1", Date: "2024-01-10", Description: "Coffee Shop", Debit: fptr(4.50)},
				{ID: "tx-2", Date: "2024-01-10", Description: "Coffee Shop", Debit: fptr(4.50)},
			},
			wantIssues:   1,
			wantSeverity: model.SeverityWarning,
		},
		{
			name: "shared prefix with diverging tails is info",
			transactions: []model.Transaction{
				{ID: "tx-1", Date: "2024-01-10", Description: "Recurring Subscription Service A", Debit: fptr(9.99)},
				{ID: "tx-2", Date: "2024-01-10", Description: "Recurring Subscription Service B", Debit: fptr(9.99)},
			},
			wantIssues:   1,
			wantSeverity: model.SeverityInfo,
		},
		{
			name: "different amounts are not duplicates",
			transactions: []model.Transaction{
				{ID: "tx-1", Date: "2024-01-10", Description: "Coffee Shop", Debit: fptr(4.50)},
				{ID: "tx-2", Date: "2024-01-10", Description: "Coffee Shop", Debit: fptr(5.50)},
			},
			wantIssues: 0,
		},
		{
			name: "different dates are not duplicates",
			transactions: []model.Transaction{
				{ID: "tx-1", Date: "2024-01-10", Description: "Coffee Shop", Debit: fptr(4.50)},
				{ID: "tx-2", Date: "2024-01-11", Description: "Coffee Shop", Debit: fptr(4.50)},
			},
			wantIssues: 0,
		},
		{
			name: "three-way group yields one issue",
			transactions: []model.Transaction{
				{ID: "tx-1", Date: "2024-01-10", Description: "Coffee Shop", Debit: fptr(4.50)},
				{ID: "tx-2", Date: "2024-01-10", Description: "Coffee Shop", Debit: fptr(4.50)},
				{ID: "tx-3", Date: "2024-01-10", Description: "Coffee Shop", Debit: fptr(4.50)},
			},
			wantIssues:   1,
			wantSeverity: model.SeverityWarning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.checkDuplicates(&model.Statement{Transactions: tt.transactions})
			if len(result.issues) != tt.wantIssues {
				t.Fatalf("Expected %d issues, got %d: %+v", tt.wantIssues, len(result.issues), result.issues)
			}
			if tt.wantIssues > 0 {
				issue := result.issues[0]
				if issue.Severity != tt.wantSeverity {
					t.Errorf("Expected severity %s, got %s", tt.wantSeverity, issue.Severity)
				}
				if len(issue.TransactionIDs) != len(tt.transactions) {
					t.Errorf("Expected all %d transactions referenced, got %v", len(tt.transactions), issue.TransactionIDs)
				}
			}
		})
	}
}

func TestCheckDateSequence(t *testing.T) {
	e := NewEngine()
	period := &model.Statement{PeriodStart: "2024-01-01", PeriodEnd: "2024-01-31"}

	t.Run("out of order is a warning", func(t *testing.T) {
		s := *period
		s.Transactions = []model.Transaction{
			{ID: "tx-1", Date: "2024-01-20", Description: "First", Debit: fptr(1)},
			{ID: "tx-2", Date: "2024-01-10", Description: "Second", Debit: fptr(1)},
		}
		result := e.checkDateSequence(&s)
		if !result.passed {
			t.Error("Expected ordering findings to stay warnings, not fail the pass")
		}
		if len(result.issues) != 1 || result.issues[0].Severity != model.SeverityWarning {
			t.Fatalf("Expected 1 warning, got %+v", result.issues)
		}
	})

	t.Run("outside period is a warning", func(t *testing.T) {
		s := *period
		s.Transactions = []model.Transaction{
			{ID: "tx-1", Date: "2024-02-05", Description: "Late", Debit: fptr(1)},
		}
		result := e.checkDateSequence(&s)
		if len(result.issues) != 1 || result.issues[0].Severity != model.SeverityWarning {
			t.Fatalf("Expected 1 out-of-period warning, got %+v", result.issues)
		}
	})

	t.Run("empty date is skipped here", func(t *testing.T) {
		s := *period
		s.Transactions = []model.Transaction{
			{ID: "tx-1", Date: "", Description: "No Date", Debit: fptr(1)},
		}
		result := e.checkDateSequence(&s)
		if len(result.issues) != 0 || !result.passed {
			t.Errorf("Expected missing dates to be left to the completeness pass, got %+v", result.issues)
		}
	})
}

func TestCheckAmounts(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		name         string
		tx           model.Transaction
		wantSeverity model.Severity
	}{
		{
			name:         "both debit and credit populated",
			tx:           model.Transaction{ID: "tx-1", Debit: fptr(10), Credit: fptr(10)},
			wantSeverity: model.SeverityWarning,
		},
		{
			name:         "negative amount",
			tx:           model.Transaction{ID: "tx-1", Debit: fptr(-25)},
			wantSeverity: model.SeverityWarning,
		},
		{
			name:         "amount above the large threshold",
			tx:           model.Transaction{ID: "tx-1", Credit: fptr(20_000_000)},
			wantSeverity: model.SeverityInfo,
		},
		{
			name:         "more than two decimal digits",
			tx:           model.Transaction{ID: "tx-1", Debit: fptr(10.123)},
			wantSeverity: model.SeverityInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.checkAmounts(&model.Statement{Transactions: []model.Transaction{tt.tx}})
			if len(result.issues) != 1 {
				t.Fatalf("Expected 1 issue, got %d: %+v", len(result.issues), result.issues)
			}
			if result.issues[0].Severity != tt.wantSeverity {
				t.Errorf("Expected severity %s, got %s", tt.wantSeverity, result.issues[0].Severity)
			}
		})
	}

	t.Run("clean amount yields nothing", func(t *testing.T) {
		result := e.checkAmounts(&model.Statement{Transactions: []model.Transaction{
			{ID: "tx-1", Debit: fptr(10.25)},
		}})
		if len(result.issues) != 0 {
			t.Errorf("Expected no issues, got %+v", result.issues)
		}
	})
}

func TestCheckSuspiciousPatterns(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		name         string
		tx           model.Transaction
		wantSeverity model.Severity
	}{
		{
			name:         "long digit run",
			tx:           model.Transaction{ID: "tx-1", Description: "REF 1234567890123 PAYMENT", Debit: fptr(10)},
			wantSeverity: model.SeverityInfo,
		},
		{
			name:         "mostly symbols",
			tx:           model.Transaction{ID: "tx-1", Description: "@#$%^&*!@#$%", Debit: fptr(10)},
			wantSeverity: model.SeverityWarning,
		},
		{
			// 4 symbols over 11 runes; dividing by the 19-byte length
			// would slip under the threshold.
			name:         "multi-byte symbols weigh per rune",
			tx:           model.Transaction{ID: "tx-1", Description: "abcdefg••••", Debit: fptr(10)},
			wantSeverity: model.SeverityWarning,
		},
		{
			name:         "truncated description",
			tx:           model.Transaction{ID: "tx-1", Description: "AMAZON MARKETPL...", Debit: fptr(10)},
			wantSeverity: model.SeverityInfo,
		},
		{
			name:         "round thousand amount",
			tx:           model.Transaction{ID: "tx-1", Description: "Wire Transfer Out", Debit: fptr(5000)},
			wantSeverity: model.SeverityInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.checkSuspiciousPatterns(&model.Statement{Transactions: []model.Transaction{tt.tx}})
			if len(result.issues) != 1 {
				t.Fatalf("Expected 1 issue, got %d: %+v", len(result.issues), result.issues)
			}
			if result.issues[0].Severity != tt.wantSeverity {
				t.Errorf("Expected severity %s, got %s", tt.wantSeverity, result.issues[0].Severity)
			}
		})
	}

	t.Run("ordinary transaction yields nothing", func(t *testing.T) {
		result := e.checkSuspiciousPatterns(&model.Statement{Transactions: []model.Transaction{
			{ID: "tx-1", Description: "Grocery Store Purchase", Debit: fptr(53.27)},
		}})
		if len(result.issues) != 0 {
			t.Errorf("Expected no issues, got %+v", result.issues)
		}
	})
}
