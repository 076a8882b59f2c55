package audit

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Motta-Financial/statement-audit/internal/model"
)

// Pass names, used for issue ids and the per-pass summary counts.
const (
	passBalance      = "balance"
	passDuplicate    = "duplicate"
	passDate         = "date-sequence"
	passAmount       = "amount"
	passCompleteness = "completeness"
	passSuspicious   = "suspicious-pattern"
)

// issueList accumulates issues for one pass. Issue ids are sequential per
// pass so that auditing the same statement twice yields identical results.
type issueList struct {
	pass   string
	issues []model.AuditIssue
}

func (l *issueList) add(issue model.AuditIssue) {
	issue.ID = fmt.Sprintf("%s-%d", l.pass, len(l.issues)+1)
	l.issues = append(l.issues, issue)
}

func fmtAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// checkBalanceReconciliation walks the transactions keeping a running
// balance from the opening balance. A stated per-transaction balance outside
// tolerance records a warning, and the running balance resynchronizes to the
// stated value so one bad line cannot cascade false mismatches through the
// rest of the statement. The closing comparison at the end uses the same
// tolerance and is error severity.
func (e *Engine) checkBalanceReconciliation(s *model.Statement) passResult {
	list := issueList{pass: passBalance}

	running := s.OpeningBalance
	discrepancies := 0
	for i := range s.Transactions {
		tx := &s.Transactions[i]
		running += tx.CreditOrZero() - tx.DebitOrZero()

		if tx.Balance == nil {
			continue
		}
		if math.Abs(*tx.Balance-running) > BalanceTolerance {
			discrepancies++
			list.add(model.AuditIssue{
				Type:           model.IssueBalanceMismatch,
				Severity:       model.SeverityWarning,
				TransactionIDs: []string{tx.ID},
				Message: fmt.Sprintf("stated balance %s disagrees with computed running balance %s",
					fmtAmount(*tx.Balance), fmtAmount(running)),
				Details: map[string]string{
					"computed": fmtAmount(running),
					"stated":   fmtAmount(*tx.Balance),
				},
				SuggestedFix: "verify the amount and stated balance of this transaction against the document",
			})
			// Resync to the document's own figure so one bad line does
			// not cascade. Within tolerance the computed balance keeps
			// running, so sub-cent drift still accumulates into a finding.
			running = *tx.Balance
		}
	}

	closingOK := math.Abs(running-s.ClosingBalance) <= BalanceTolerance
	if !closingOK {
		list.add(model.AuditIssue{
			Type:     model.IssueBalanceMismatch,
			Severity: model.SeverityError,
			Message: fmt.Sprintf("ledger does not close: computed %s, statement says %s",
				fmtAmount(running), fmtAmount(s.ClosingBalance)),
			Details: map[string]string{
				"computed": fmtAmount(running),
				"stated":   fmtAmount(s.ClosingBalance),
			},
		})
	}

	return passResult{
		name:       passBalance,
		hasOutcome: true,
		passed:     discrepancies == 0 && closingOK,
		issues:     list.issues,
	}
}

// duplicateSignature keys a transaction by date, amounts, and the first 20
// characters of its description.
func duplicateSignature(tx *model.Transaction) string {
	desc := tx.Description
	if len(desc) > 20 {
		desc = desc[:20]
	}
	return fmt.Sprintf("%s|%.2f|%.2f|%s", tx.Date, tx.DebitOrZero(), tx.CreditOrZero(), desc)
}

// checkDuplicates groups transactions by signature and reports one issue per
// group of two or more. Byte-identical descriptions make a likelier true
// duplicate, so those groups are warnings and the rest info.
func (e *Engine) checkDuplicates(s *model.Statement) passResult {
	list := issueList{pass: passDuplicate}

	groups := make(map[string][]*model.Transaction)
	var order []string
	for i := range s.Transactions {
		tx := &s.Transactions[i]
		sig := duplicateSignature(tx)
		if _, seen := groups[sig]; !seen {
			order = append(order, sig)
		}
		groups[sig] = append(groups[sig], tx)
	}

	for _, sig := range order {
		group := groups[sig]
		if len(group) < 2 {
			continue
		}

		identical := true
		for _, tx := range group[1:] {
			if tx.Description != group[0].Description {
				identical = false
				break
			}
		}
		severity := model.SeverityInfo
		if identical {
			severity = model.SeverityWarning
		}

		ids := make([]string, 0, len(group))
		for _, tx := range group {
			ids = append(ids, tx.ID)
		}
		list.add(model.AuditIssue{
			Type:           model.IssueDuplicate,
			Severity:       severity,
			TransactionIDs: ids,
			Message: fmt.Sprintf("%d transactions share date, amount, and description prefix %q",
				len(group), strings.SplitN(sig, "|", 4)[3]),
			SuggestedFix: "confirm these are distinct transactions and not a re-read page",
		})
	}

	return passResult{name: passDuplicate, issues: list.issues}
}

// checkDateSequence validates date format, ordering, and period membership.
// Only a malformed date fails the pass; ordering and period findings stay
// warnings.
func (e *Engine) checkDateSequence(s *model.Statement) passResult {
	list := issueList{pass: passDate}
	passed := true

	periodStart, startOK := model.ParseDate(s.PeriodStart)
	periodEnd, endOK := model.ParseDate(s.PeriodEnd)

	var prevDate string
	for i := range s.Transactions {
		tx := &s.Transactions[i]
		if tx.Date == "" {
			continue // reported by the completeness pass
		}

		date, ok := model.ParseDate(tx.Date)
		if !ok {
			passed = false
			list.add(model.AuditIssue{
				Type:           model.IssueDateSequence,
				Severity:       model.SeverityError,
				TransactionIDs: []string{tx.ID},
				Message:        fmt.Sprintf("date %q is not in YYYY-MM-DD form", tx.Date),
				SuggestedFix:   "re-extract or correct the date for this transaction",
			})
			continue
		}

		if prevDate != "" {
			if prev, ok := model.ParseDate(prevDate); ok && date.Before(prev) {
				list.add(model.AuditIssue{
					Type:           model.IssueDateSequence,
					Severity:       model.SeverityWarning,
					TransactionIDs: []string{tx.ID},
					Message:        fmt.Sprintf("date %s precedes the previous transaction's %s", tx.Date, prevDate),
				})
			}
		}
		prevDate = tx.Date

		if startOK && endOK && (date.Before(periodStart) || date.After(periodEnd)) {
			list.add(model.AuditIssue{
				Type:           model.IssueDateSequence,
				Severity:       model.SeverityWarning,
				TransactionIDs: []string{tx.ID},
				Message: fmt.Sprintf("date %s falls outside the statement period %s to %s",
					tx.Date, s.PeriodStart, s.PeriodEnd),
			})
		}
	}

	return passResult{name: passDate, hasOutcome: true, passed: passed, issues: list.issues}
}

// hasExcessDecimals reports amounts carrying more than two decimal digits.
func hasExcessDecimals(v float64) bool {
	return math.Abs(v*100-math.Round(v*100)) > 1e-6
}

// checkAmounts validates each transaction's monetary fields. This pass has
// no single pass/fail outcome; it is judged by its error issues.
func (e *Engine) checkAmounts(s *model.Statement) passResult {
	list := issueList{pass: passAmount}

	for i := range s.Transactions {
		tx := &s.Transactions[i]

		if !tx.HasAmount() {
			list.add(model.AuditIssue{
				Type:           model.IssueAmountInvalid,
				Severity:       model.SeverityError,
				TransactionIDs: []string{tx.ID},
				Message:        "transaction has neither a debit nor a credit amount",
				SuggestedFix:   "supply the missing amount from the source document",
			})
			continue
		}

		if tx.DebitOrZero() != 0 && tx.CreditOrZero() != 0 {
			list.add(model.AuditIssue{
				Type:           model.IssueAmountInvalid,
				Severity:       model.SeverityWarning,
				TransactionIDs: []string{tx.ID},
				Message:        "both debit and credit are populated; a statement line should carry one",
			})
		}

		for _, amount := range []float64{tx.DebitOrZero(), tx.CreditOrZero()} {
			if amount < 0 {
				list.add(model.AuditIssue{
					Type:           model.IssueAmountInvalid,
					Severity:       model.SeverityWarning,
					TransactionIDs: []string{tx.ID},
					Message:        fmt.Sprintf("negative amount %s; direction should be expressed by the column, not the sign", fmtAmount(amount)),
				})
			}
			if amount > e.largeAmountThreshold {
				list.add(model.AuditIssue{
					Type:           model.IssueAmountInvalid,
					Severity:       model.SeverityInfo,
					TransactionIDs: []string{tx.ID},
					Message:        fmt.Sprintf("amount %s exceeds the large-value threshold %s", fmtAmount(amount), fmtAmount(e.largeAmountThreshold)),
				})
			}
			if amount != 0 && hasExcessDecimals(amount) {
				list.add(model.AuditIssue{
					Type:           model.IssueAmountInvalid,
					Severity:       model.SeverityInfo,
					TransactionIDs: []string{tx.ID},
					Message:        "amount carries more than two decimal digits",
				})
			}
		}
	}

	return passResult{name: passAmount, issues: list.issues}
}

var placeholderInstitutions = map[string]bool{
	"":             true,
	"unknown":      true,
	"unknown bank": true,
	"n/a":          true,
}

// checkCompleteness verifies required statement and transaction fields are
// present. The per-transaction amount check here intentionally overlaps the
// amount pass: reviewers want both the per-line and the aggregate view.
func (e *Engine) checkCompleteness(s *model.Statement) passResult {
	list := issueList{pass: passCompleteness}
	passed := true

	if placeholderInstitutions[strings.ToLower(strings.TrimSpace(s.Institution))] {
		list.add(model.AuditIssue{
			Type:     model.IssueMissingData,
			Severity: model.SeverityInfo,
			Message:  "institution could not be resolved; categorization falls back to generic rules",
		})
	}

	if s.PeriodStart == "" || s.PeriodEnd == "" {
		passed = false
		list.add(model.AuditIssue{
			Type:     model.IssueMissingData,
			Severity: model.SeverityWarning,
			Message:  "statement period is incomplete; date checks cannot run against it",
		})
	}

	var missingDates, shortDescriptions, missingAmounts []string
	for i := range s.Transactions {
		tx := &s.Transactions[i]
		if tx.Date == "" {
			missingDates = append(missingDates, tx.ID)
		}
		if len(strings.TrimSpace(tx.Description)) < 3 {
			shortDescriptions = append(shortDescriptions, tx.ID)
		}
		if !tx.HasAmount() {
			missingAmounts = append(missingAmounts, tx.ID)
		}
	}

	if len(missingDates) > 0 {
		passed = false
		list.add(model.AuditIssue{
			Type:           model.IssueMissingData,
			Severity:       model.SeverityError,
			TransactionIDs: missingDates,
			Message:        fmt.Sprintf("%d transaction(s) have no date", len(missingDates)),
		})
	}
	if len(shortDescriptions) > 0 {
		list.add(model.AuditIssue{
			Type:           model.IssueMissingData,
			Severity:       model.SeverityWarning,
			TransactionIDs: shortDescriptions,
			Message:        fmt.Sprintf("%d transaction(s) have a missing or very short description", len(shortDescriptions)),
		})
	}
	if len(missingAmounts) > 0 {
		passed = false
		list.add(model.AuditIssue{
			Type:           model.IssueMissingData,
			Severity:       model.SeverityError,
			TransactionIDs: missingAmounts,
			Message:        fmt.Sprintf("%d transaction(s) have neither debit nor credit", len(missingAmounts)),
		})
	}

	return passResult{name: passCompleteness, hasOutcome: true, passed: passed, issues: list.issues}
}

var longDigitRun = regexp.MustCompile(`\d{10,}`)

// checkSuspiciousPatterns applies heuristic sanity checks over descriptions
// and amounts. Everything here is advisory.
func (e *Engine) checkSuspiciousPatterns(s *model.Statement) passResult {
	list := issueList{pass: passSuspicious}

	for i := range s.Transactions {
		tx := &s.Transactions[i]

		if longDigitRun.MatchString(tx.Description) {
			list.add(model.AuditIssue{
				Type:           model.IssueSuspiciousPattern,
				Severity:       model.SeverityInfo,
				TransactionIDs: []string{tx.ID},
				Message:        "description contains a run of 10+ digits; possibly a misread account or reference number",
			})
		}

		if len(tx.Description) > 10 && symbolRatio(tx.Description) > 0.3 {
			list.add(model.AuditIssue{
				Type:           model.IssueSuspiciousPattern,
				Severity:       model.SeverityWarning,
				TransactionIDs: []string{tx.ID},
				Message:        "description is mostly symbols; likely an extraction artifact",
				SuggestedFix:   "re-extract this line or correct the description by hand",
			})
		}

		if strings.HasSuffix(tx.Description, "...") || strings.HasSuffix(tx.Description, "…") {
			list.add(model.AuditIssue{
				Type:           model.IssueSuspiciousPattern,
				Severity:       model.SeverityInfo,
				TransactionIDs: []string{tx.ID},
				Message:        "description looks truncated",
			})
		}

		for _, amount := range []float64{tx.DebitOrZero(), tx.CreditOrZero()} {
			if amount >= 1000 && math.Mod(amount, 1000) == 0 {
				list.add(model.AuditIssue{
					Type:           model.IssueSuspiciousPattern,
					Severity:       model.SeverityInfo,
					TransactionIDs: []string{tx.ID},
					Message:        fmt.Sprintf("round amount %s; worth confirming the cents were not dropped", fmtAmount(amount)),
				})
			}
		}
	}

	return passResult{name: passSuspicious, issues: list.issues}
}

// symbolRatio is the share of characters that are neither letters, digits,
// nor spaces. Counted over runes, not bytes, so multi-byte symbols weigh
// the same as ASCII ones.
func symbolRatio(s string) float64 {
	symbols, total := 0, 0
	for _, r := range s {
		total++
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == ' ':
		default:
			symbols++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(symbols) / float64(total)
}
