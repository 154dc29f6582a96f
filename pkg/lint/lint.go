// Package lint provides data-driven linting for pipeline definitions.
// Rules inspect the parsed file before planning and report constructs
// that compile but are likely mistakes: conditionals that can contribute
// nothing, sources nothing loads, tables produced twice, variables with
// no default.
//
// The package defines the shared types; rule implementations live in
// subpackages under rules/ and register themselves via init().
package lint

import (
	"strings"

	"github.com/leapstack-labs/leapflow/pkg/parser"
	"github.com/leapstack-labs/leapflow/pkg/token"
)

// Severity indicates the importance of a diagnostic.
type Severity int

// Severity levels for diagnostics.
const (
	// SeverityError indicates a critical issue that should be fixed.
	SeverityError Severity = iota
	// SeverityWarning indicates a potential issue that should be reviewed.
	SeverityWarning
	// SeverityInfo indicates informational feedback.
	SeverityInfo
	// SeverityHint indicates a suggestion for improvement.
	SeverityHint
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// ParseSeverity converts a severity name to a Severity. Unknown names
// report false and default to SeverityWarning.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(s) {
	case "error":
		return SeverityError, true
	case "warning":
		return SeverityWarning, true
	case "info":
		return SeverityInfo, true
	case "hint":
		return SeverityHint, true
	default:
		return SeverityWarning, false
	}
}

// RuleDef is a data-driven rule definition. Rules are stateless - all
// context comes via the Check function parameters.
type RuleDef struct {
	ID          string    // Unique identifier, e.g., "PL01"
	Name        string    // Human-readable name, e.g., "pipeline.conditional_without_else"
	Group       string    // Category, e.g., "pipeline"
	Description string    // Human-readable description
	Severity    Severity  // Default severity
	Check       CheckFunc // The check function
}

// CheckFunc analyzes a parsed pipeline file and returns diagnostics.
type CheckFunc func(file *parser.File) []Diagnostic

// Diagnostic represents a lint finding.
type Diagnostic struct {
	RuleID   string
	Severity Severity
	Message  string
	Pos      token.Position
	EndPos   token.Position // Optional: end of the problematic range
}
