package domain

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities.
const (
	// SeverityBlock marks the fit as invalid.
	SeverityBlock Severity = "block"
	// SeverityWarn is reported but leaves the fit valid.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation reports a failed restriction.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	ItemID   string
	TypeID   TypeID
}

// Result aggregates violations from one or more rules.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
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

// ByRule returns the violations raised by the named rule.
func (r Result) ByRule(name string) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Rule == name {
			out = append(out, v)
		}
	}
	return out
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "fit blocked by restrictions"
}
