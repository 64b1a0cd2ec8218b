// Package compliance defines the report shape shared by validators.
package compliance

import (
	"context"

	"github.com/wudi/accesspdf/ir/semantic"
)

// Context is an alias for context.Context to allow for future expansion.
type Context = context.Context

// Violation represents a compliance violation.
type Violation struct {
	Code        string
	Description string
	Location    string
}

// Report details compliance status.
type Report struct {
	Compliant  bool
	Standard   string // e.g., "PDF/UA-1"
	Violations []Violation
}

// Codes returns the distinct violation codes in report order.
func (r *Report) Codes() []string {
	seen := make(map[string]bool, len(r.Violations))
	var out []string
	for _, v := range r.Violations {
		if !seen[v.Code] {
			seen[v.Code] = true
			out = append(out, v.Code)
		}
	}
	return out
}

// Has reports whether a violation with the given code was recorded.
func (r *Report) Has(code string) bool {
	for _, v := range r.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

// Validator checks document compliance against a standard.
type Validator interface {
	Validate(ctx Context, doc *semantic.Document) (*Report, error)
}
