package graph

// Severity of a diagnostic.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Diagnostic codes produced by validation and emission.
const (
	// CodeUnsetInput: an input slot has no literal, no connection, and no
	// declared default.
	CodeUnsetInput = "VG-001"

	// CodeTypeMismatch: a connection or literal fails the compatibility
	// relation. Edit-time guards make this unreachable for graph-built
	// state, but literals may arrive from deserialization.
	CodeTypeMismatch = "VG-002"

	// CodeValueCycle: a value depends on itself, directly or transitively.
	CodeValueCycle = "VG-003"

	// CodeUnreachable: a condition or action node is attached to no event
	// and will never be emitted.
	CodeUnreachable = "VG-004"

	// CodeRecursionLimit: emission exceeded the maximum inlining depth.
	CodeRecursionLimit = "EM-001"
)

// Diagnostic represents a validation or emission problem, tagged with the
// offending instance and slot where applicable.
type Diagnostic struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Node     string `json:"node,omitempty"`
	Slot     string `json:"slot,omitempty"`
}

// Report is the outcome of validating a graph. A report with zero errors
// is compile-ready; warnings never block emission.
type Report struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// HasErrors returns true if any diagnostic has error severity.
func (r Report) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity diagnostics.
func (r Report) Errors() []Diagnostic {
	var errs []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			errs = append(errs, d)
		}
	}
	return errs
}

// Warnings returns only the warning-severity diagnostics.
func (r Report) Warnings() []Diagnostic {
	var warns []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityWarning {
			warns = append(warns, d)
		}
	}
	return warns
}
