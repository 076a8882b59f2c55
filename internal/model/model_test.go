package model

import "testing"

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{"2024-01-15", true},
		{"2024-12-31", true},
		{"01/15/2024", false},
		{"2024-13-01", false},
		{"13/45/2024", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if _, ok := ParseDate(tt.input); ok != tt.ok {
				t.Errorf("ParseDate(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
		})
	}
}

func TestTransactionAmountHelpers(t *testing.T) {
	debit := 42.5
	tx := Transaction{Debit: &debit}

	if tx.DebitOrZero() != 42.5 {
		t.Errorf("DebitOrZero() = %v, want 42.5", tx.DebitOrZero())
	}
	if tx.CreditOrZero() != 0 {
		t.Errorf("CreditOrZero() = %v, want 0", tx.CreditOrZero())
	}
	if !tx.HasAmount() {
		t.Error("HasAmount() = false, want true")
	}

	empty := Transaction{}
	if empty.HasAmount() {
		t.Error("HasAmount() on empty transaction = true, want false")
	}
}

func TestPatternTypeForField(t *testing.T) {
	tests := []struct {
		field CorrectionField
		want  PatternType
	}{
		{FieldDate, PatternDateFormat},
		{FieldCategory, PatternCategory},
		{FieldDebit, PatternAmountFormat},
		{FieldCredit, PatternAmountFormat},
		{FieldBalance, PatternAmountFormat},
		{FieldDescription, PatternDescriptionNorm},
		{CorrectionField("something-else"), PatternDescriptionNorm},
	}

	for _, tt := range tests {
		t.Run(string(tt.field), func(t *testing.T) {
			if got := PatternTypeForField(tt.field); got != tt.want {
				t.Errorf("PatternTypeForField(%q) = %s, want %s", tt.field, got, tt.want)
			}
		})
	}
}
