package contracts

import "fmt"

// IssueSeverity grades a processing issue
type IssueSeverity string

const (
	SeverityWarning IssueSeverity = "warning"
	SeverityError   IssueSeverity = "error"
)

// Issue type constants used across the engine
const (
	IssueMissingPrice       = "missing_price"
	IssueValidation         = "validation"
	IssueOverrideValidation = "override_validation"
)

// ProcessingIssue is a non-fatal defect recorded during evaluation.
// Warnings mean the data was incomplete but the evaluation proceeded on a
// fallback; errors mean the evaluation is stale or partial. Downstream
// renderers surface them as banners instead of discarding the result.
type ProcessingIssue struct {
	Severity   IssueSeverity `json:"severity"`
	Type       string        `json:"type"`
	Underlying string        `json:"underlying,omitempty"`
	Message    string        `json:"message"`
}

// NewMissingPriceIssue records a missing-price fallback for a ticker
func NewMissingPriceIssue(ticker, message string) ProcessingIssue {
	return ProcessingIssue{
		Severity:   SeverityWarning,
		Type:       IssueMissingPrice,
		Underlying: ticker,
		Message:    message,
	}
}

// NewValidationIssue records a validation failure that aborted evaluation
func NewValidationIssue(format string, args ...interface{}) ProcessingIssue {
	return ProcessingIssue{
		Severity: SeverityError,
		Type:     IssueValidation,
		Message:  fmt.Sprintf(format, args...),
	}
}

// HasErrors reports whether any issue in the list is error severity
func HasErrors(issues []ProcessingIssue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}
