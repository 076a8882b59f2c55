// Package model defines the shared data vocabulary for statement auditing
// and adaptive learning. These are domain structs produced by the extraction
// collaborator and consumed read-only by the audit and learning packages.
package model

import (
	"time"
)

// DateLayout is the canonical calendar-date form used across the system.
const DateLayout = "2006-01-02"

// Transaction is one line of an extracted bank statement. At most one of
// Debit/Credit is conventionally populated; Balance is the running balance
// as stated on the document, when the extractor could read it.
type Transaction struct {
	ID          string `json:"id"`
	Date        string `json:"date"` // YYYY-MM-DD
	Description string `json:"description"`

	Debit   *float64 `json:"debit"`
	Credit  *float64 `json:"credit"`
	Balance *float64 `json:"balance"`

	Category    string `json:"category,omitempty"`
	CheckNumber string `json:"check_number,omitempty"`
	Reference   string `json:"reference,omitempty"`
}

// DebitOrZero returns the debit amount, or 0 when absent.
func (t *Transaction) DebitOrZero() float64 {
	if t.Debit == nil {
		return 0
	}
	return *t.Debit
}

// CreditOrZero returns the credit amount, or 0 when absent.
func (t *Transaction) CreditOrZero() float64 {
	if t.Credit == nil {
		return 0
	}
	return *t.Credit
}

// HasAmount reports whether at least one of debit/credit is present.
func (t *Transaction) HasAmount() bool {
	return t.Debit != nil || t.Credit != nil
}

// ParseDate parses a canonical YYYY-MM-DD date string.
func ParseDate(s string) (time.Time, bool) {
	ts, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Statement is one extracted bank statement. The audit engine treats it as
// immutable input; only the learning store ever proposes corrected values,
// and those are applied to copies.
type Statement struct {
	Institution   string `json:"institution"`
	AccountNumber string `json:"account_number"`
	AccountType   string `json:"account_type"`

	PeriodStart string `json:"period_start"` // YYYY-MM-DD
	PeriodEnd   string `json:"period_end"`   // YYYY-MM-DD

	OpeningBalance float64 `json:"opening_balance"`
	ClosingBalance float64 `json:"closing_balance"`
	Currency       string  `json:"currency"`

	Transactions []Transaction `json:"transactions"`

	TotalDebits  float64 `json:"total_debits"`
	TotalCredits float64 `json:"total_credits"`
}

// IssueType classifies what an audit pass found.
type IssueType string

const (
	IssueBalanceMismatch   IssueType = "balance-mismatch"
	IssueDuplicate         IssueType = "duplicate"
	IssueDateSequence      IssueType = "date-sequence"
	IssueAmountInvalid     IssueType = "amount-invalid"
	IssueMissingData       IssueType = "missing-data"
	IssueSuspiciousPattern IssueType = "suspicious-pattern"
)

// Severity ranks how much an issue should block downstream posting.
type Severity string

const (
	// SeverityError means the statement must not be trusted as-is.
	SeverityError Severity = "error"
	// SeverityWarning means plausible but should be reviewed.
	SeverityWarning Severity = "warning"
	// SeverityInfo is advisory only.
	SeverityInfo Severity = "info"
)

// AuditIssue is one finding produced by an audit pass. Issues are immutable
// once produced; the engine never mutates the statement it reports on.
type AuditIssue struct {
	ID             string            `json:"id"`
	Type           IssueType         `json:"type"`
	Severity       Severity          `json:"severity"`
	TransactionIDs []string          `json:"transaction_ids,omitempty"`
	Message        string            `json:"message"`
	Details        map[string]string `json:"details,omitempty"`
	SuggestedFix   string            `json:"suggested_fix,omitempty"`
}

// AuditSummary aggregates issue counts by severity and by pass.
type AuditSummary struct {
	TotalChecks  int `json:"total_checks"`
	PassedChecks int `json:"passed_checks"`

	ErrorCount   int `json:"error_count"`
	WarningCount int `json:"warning_count"`
	InfoCount    int `json:"info_count"`

	IssuesByPass map[string]int `json:"issues_by_pass"`
}

// AuditResult is the outcome of a full audit run. It is derived state,
// recomputed per statement, never stored long-term.
type AuditResult struct {
	Passed          bool         `json:"passed"`
	Score           float64      `json:"score"` // 0-100
	Issues          []AuditIssue `json:"issues"`
	Summary         AuditSummary `json:"summary"`
	Recommendations []string     `json:"recommendations"`
}

// PatternType classifies what kind of extraction mistake a learned pattern
// repairs.
type PatternType string

const (
	PatternDateFormat      PatternType = "date-format"
	PatternCategory        PatternType = "transaction-category"
	PatternAmountFormat    PatternType = "amount-format"
	PatternDescriptionNorm PatternType = "description-normalization"
)

// LearnedPattern is a confidence-weighted (original -> corrected) mapping
// mined from recurring human corrections. The natural key for persistence is
// (Institution, Type, OriginalValue): at most one live pattern per key.
type LearnedPattern struct {
	ID             string      `json:"id"`
	Institution    string      `json:"institution"`
	Type           PatternType `json:"type"`
	OriginalValue  string      `json:"original_value"`
	CorrectedValue string      `json:"corrected_value"`
	Confidence     float64     `json:"confidence"` // [0, 1]
	Occurrences    int         `json:"occurrences"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// CorrectionField names the transaction field a human corrected.
type CorrectionField string

const (
	FieldDate        CorrectionField = "date"
	FieldDescription CorrectionField = "description"
	FieldDebit       CorrectionField = "debit"
	FieldCredit      CorrectionField = "credit"
	FieldBalance     CorrectionField = "balance"
	FieldCategory    CorrectionField = "category"
)

// PatternTypeForField maps a corrected field to the pattern type mined from
// it. Unrecognized fields fall into description normalization.
func PatternTypeForField(f CorrectionField) PatternType {
	switch f {
	case FieldDate:
		return PatternDateFormat
	case FieldCategory:
		return PatternCategory
	case FieldDebit, FieldCredit, FieldBalance:
		return PatternAmountFormat
	default:
		return PatternDescriptionNorm
	}
}

// TransactionCorrection records one human correction. The log is append-only
// and never mutated.
type TransactionCorrection struct {
	Institution    string          `json:"institution"`
	Field          CorrectionField `json:"field"`
	OriginalValue  string          `json:"original_value"`
	CorrectedValue string          `json:"corrected_value"`
	CorrectedBy    string          `json:"corrected_by"`
	CorrectedAt    time.Time       `json:"corrected_at"`
}

// LearningMetrics is the rolling accuracy record for one institution.
// Exactly one live record per institution, upserted on change.
type LearningMetrics struct {
	Institution        string    `json:"institution"`
	TransactionsParsed int       `json:"transactions_parsed"`
	Corrections        int       `json:"corrections"`
	AccuracyRate       float64   `json:"accuracy_rate"`
	ConfidenceScore    float64   `json:"confidence_score"`
	ImprovementTrend   int       `json:"improvement_trend"` // percent
	UpdatedAt          time.Time `json:"updated_at"`
}
