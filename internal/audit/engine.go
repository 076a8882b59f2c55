// Package audit implements the multi-pass statement validator. Six
// independent passes inspect an extracted statement and their findings are
// reduced into a single scored result. The engine is a pure function of its
// input: it never mutates the statement and holds no mutable state, so one
// engine can audit statements from any number of goroutines.
package audit

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/Motta-Financial/statement-audit/internal/bankprofile"
	"github.com/Motta-Financial/statement-audit/internal/model"
)

// BalanceTolerance is the currency-unit slack allowed when comparing
// computed vs. stated balances.
const BalanceTolerance = 0.01

// DefaultLargeAmountThreshold flags amounts worth a second look.
const DefaultLargeAmountThreshold = 10_000_000

// Engine runs the audit passes. Construct with NewEngine.
type Engine struct {
	largeAmountThreshold float64
	registry             *bankprofile.Registry
	log                  zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLargeAmountThreshold overrides the large-amount advisory threshold.
func WithLargeAmountThreshold(v float64) Option {
	return func(e *Engine) { e.largeAmountThreshold = v }
}

// WithRegistry lets the engine consult bank profiles when building
// recommendations for uncategorized transactions.
func WithRegistry(r *bankprofile.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithLogger sets the engine's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// NewEngine creates an audit engine with the given options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		largeAmountThreshold: DefaultLargeAmountThreshold,
		log:                  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// passResult is the outcome of one audit pass. Passes never fail; malformed
// data becomes issues, not errors.
type passResult struct {
	name string
	// hasOutcome marks passes with an explicit pass/fail boolean. Passes
	// without one count as passed iff they produced no error issues.
	hasOutcome bool
	passed     bool
	issues     []model.AuditIssue
}

const totalChecks = 6

// RunFullAudit runs all six passes over the statement and aggregates their
// findings. The only error path is a nil statement, which is a programming
// error on the caller's side, not bad data.
func (e *Engine) RunFullAudit(s *model.Statement) (*model.AuditResult, error) {
	if s == nil {
		return nil, fmt.Errorf("RunFullAudit: nil statement")
	}

	passes := []passResult{
		e.checkBalanceReconciliation(s),
		e.checkDuplicates(s),
		e.checkDateSequence(s),
		e.checkAmounts(s),
		e.checkCompleteness(s),
		e.checkSuspiciousPatterns(s),
	}

	result := e.aggregate(s, passes)

	e.log.Debug().
		Str("institution", s.Institution).
		Int("transactions", len(s.Transactions)).
		Float64("score", result.Score).
		Bool("passed", result.Passed).
		Int("issues", len(result.Issues)).
		Msg("audit complete")

	return result, nil
}

func (e *Engine) aggregate(s *model.Statement, passes []passResult) *model.AuditResult {
	summary := model.AuditSummary{
		TotalChecks:  totalChecks,
		IssuesByPass: make(map[string]int, totalChecks),
	}

	var issues []model.AuditIssue
	for _, p := range passes {
		summary.IssuesByPass[p.name] = len(p.issues)

		passErrors := 0
		for _, is := range p.issues {
			switch is.Severity {
			case model.SeverityError:
				summary.ErrorCount++
				passErrors++
			case model.SeverityWarning:
				summary.WarningCount++
			case model.SeverityInfo:
				summary.InfoCount++
			}
		}
		issues = append(issues, p.issues...)

		passed := p.passed
		if !p.hasOutcome {
			passed = passErrors == 0
		}
		if passed {
			summary.PassedChecks++
		}
	}

	score := float64(summary.PassedChecks)/totalChecks*100 -
		5*float64(summary.ErrorCount) -
		2*float64(summary.WarningCount)
	score = math.Max(0, math.Min(100, score))

	return &model.AuditResult{
		// Warnings and info lower the score but do not block posting.
		Passed:          summary.ErrorCount == 0,
		Score:           score,
		Issues:          issues,
		Summary:         summary,
		Recommendations: e.recommendations(s, summary),
	}
}

func (e *Engine) recommendations(s *model.Statement, summary model.AuditSummary) []string {
	issueCount := summary.ErrorCount + summary.WarningCount + summary.InfoCount
	if issueCount == 0 {
		return nil
	}

	var recs []string
	if summary.ErrorCount > 0 {
		recs = append(recs, fmt.Sprintf(
			"%d error(s) found: do not post this statement until they are resolved.",
			summary.ErrorCount))
	}
	if n := summary.IssuesByPass[passBalance]; n > 0 {
		recs = append(recs, "Verify opening/closing balances against the source document; the ledger does not reconcile cleanly.")
	}
	if n := summary.IssuesByPass[passDuplicate]; n > 0 {
		recs = append(recs, fmt.Sprintf("Review %d possible duplicate group(s); the extractor may have read a page twice.", n))
	}
	if n := summary.IssuesByPass[passDate]; n > 0 {
		recs = append(recs, "Check transaction dates against the statement period and expected format.")
	}
	if summary.WarningCount > 0 && summary.ErrorCount == 0 {
		recs = append(recs, "Warnings only: the statement may be posted after a brief review.")
	}

	if e.registry != nil {
		uncategorized := 0
		for i := range s.Transactions {
			tx := &s.Transactions[i]
			if tx.Category != "" {
				continue
			}
			if _, ok := e.registry.CategorizeTransaction(tx.Description, s.Institution); ok {
				uncategorized++
			}
		}
		if uncategorized > 0 {
			recs = append(recs, fmt.Sprintf(
				"%d uncategorized transaction(s) match known category rules for this institution.",
				uncategorized))
		}
	}

	if len(recs) == 0 {
		// A non-empty recommendation list must accompany any issues.
		recs = append(recs, "Advisory findings only; no action required before posting.")
	}
	return recs
}
