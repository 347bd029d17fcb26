package domain

import "fmt"

// Severity grades a violation.
type Severity string

// Violation severities.
const (
	SeverityBlock Severity = "block"
	SeverityWarn  Severity = "warn"
	SeverityLog   Severity = "log"
)

// Violation reports one soft anomaly observed during a build or run.
type Violation struct {
	Rule      string   `json:"rule"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
	Subject   string   `json:"subject,omitempty"`
	SubjectID string   `json:"subject_id,omitempty"`
}

// Result aggregates violations accumulated by an engine pass.
type Result struct {
	Violations []Violation `json:"violations,omitempty"`
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// Add records a single violation.
func (r *Result) Add(v Violation) {
	r.Violations = append(r.Violations, v)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// OffendingRow identifies one input row implicated in a structural failure.
type OffendingRow struct {
	RowID      int    `json:"row_id"`
	EmployeeID string `json:"employee_id"`
	Detail     string `json:"detail"`
}

// InvariantError is returned when a structural invariant of the input is
// broken: duplicate mentor identities, dedup ratio exceeded, school-lookup
// mismatch ratio exceeded. It carries the offending rows as context because
// these failures mean the input itself is untrustworthy.
type InvariantError struct {
	Invariant string
	Rows      []OffendingRow
}

func (e InvariantError) Error() string {
	return fmt.Sprintf("invariant %s broken by %d rows", e.Invariant, len(e.Rows))
}

// ErrMissingColumn is returned when a required join-key or identity column
// is absent from an input table. Matching cannot proceed without it.
type ErrMissingColumn struct {
	Table  string
	Column string
}

func (e ErrMissingColumn) Error() string {
	return fmt.Sprintf("table %s missing required column %s", e.Table, e.Column)
}
