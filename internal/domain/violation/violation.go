// Package violation defines the severity-tagged data-quality report emitted
// by every pipeline stage. Violations are a reconciliation output, not Go
// errors: an error-severity violation marks a row for follow-up but never
// blocks production of the ledgers.
package violation

import (
	"fmt"
	"sort"
)

// Severity classifies how a violation must be surfaced.
type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityError, SeverityWarn:
		return true
	}
	return false
}

// Rule identifies the check that produced a violation.
type Rule string

const (
	RuleNormalization           Rule = "NormalizationError"
	RuleMissingKeyComponent     Rule = "MissingKeyComponent"
	RuleDeduplication           Rule = "DeduplicationError"
	RuleReferentialIntegrity    Rule = "ReferentialIntegrityError"
	RuleFinancialReconciliation Rule = "FinancialReconciliationError"
	RuleSnapshotKeyCollision    Rule = "SnapshotKeyCollision"
	RuleDataQuality             Rule = "DataQualityWarning"
)

// Violation is one failing row tagged with the rule that caught it.
type Violation struct {
	RuleID    Rule     `json:"rule_id"`
	Severity  Severity `json:"severity"`
	EntityKey string   `json:"entity_key"`
	Message   string   `json:"message"`
}

// Report accumulates violations across pipeline stages. Not safe for
// concurrent use; sharded stages collect locally and merge.
type Report struct {
	violations []Violation
}

// NewReport returns an empty report.
func NewReport() *Report { return &Report{} }

// Add appends a violation.
func (r *Report) Add(v Violation) { r.violations = append(r.violations, v) }

// Addf appends a violation with a formatted message.
func (r *Report) Addf(rule Rule, sev Severity, entityKey, format string, args ...interface{}) {
	r.Add(Violation{RuleID: rule, Severity: sev, EntityKey: entityKey, Message: fmt.Sprintf(format, args...)})
}

// Merge appends all violations from other.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.violations = append(r.violations, other.violations...)
}

// Len returns the number of recorded violations.
func (r *Report) Len() int { return len(r.violations) }

// Errors returns the error-severity violations.
func (r *Report) Errors() []Violation { return r.filter(SeverityError) }

// Warnings returns the warn-severity violations.
func (r *Report) Warnings() []Violation { return r.filter(SeverityWarn) }

func (r *Report) filter(sev Severity) []Violation {
	var out []Violation
	for _, v := range r.violations {
		if v.Severity == sev {
			out = append(out, v)
		}
	}
	return out
}

// ByRule returns the violations recorded for one rule.
func (r *Report) ByRule(rule Rule) []Violation {
	var out []Violation
	for _, v := range r.violations {
		if v.RuleID == rule {
			out = append(out, v)
		}
	}
	return out
}

// All returns every violation sorted into a stable order: errors before
// warnings, then by rule, entity key and message. The returned slice is a
// copy.
func (r *Report) All() []Violation {
	out := make([]Violation, len(r.violations))
	copy(out, r.violations)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Severity != b.Severity {
			return a.Severity == SeverityError
		}
		if a.RuleID != b.RuleID {
			return a.RuleID < b.RuleID
		}
		if a.EntityKey != b.EntityKey {
			return a.EntityKey < b.EntityKey
		}
		return a.Message < b.Message
	})
	return out
}
