// Package validate checks a parsed statement batch before import and
// reports everything a treasurer should review.
package validate

import (
	"fmt"

	"github.com/calybase/treasury/internal/domain"
	"github.com/calybase/treasury/internal/statement"
)

// ValidationResult contains all validation errors and warnings for a batch
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// ValidationError represents a violation that blocks import of the row
type ValidationError struct {
	Line    int
	Field   string
	Value   string
	Message string
}

// ValidationWarning represents a non-critical issue worth reviewing
type ValidationWarning struct {
	Line    int
	Field   string
	Value   string
	Message string
}

// HasErrors reports whether any blocking error was found.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// ValidateBatch performs validation of a parsed statement batch, combining
// the parser's own fallback/skip reports with per-transaction domain
// constraints. Returns ValidationResult with all errors and warnings found.
func ValidateBatch(result *statement.Result) *ValidationResult {
	vr := &ValidationResult{
		Errors:   []ValidationError{},
		Warnings: []ValidationWarning{},
	}

	// Lenient fallbacks are warnings: the value was substituted, the row
	// survived, but the treasurer should check the source line.
	for _, fb := range result.Fallbacks {
		vr.Warnings = append(vr.Warnings, ValidationWarning{
			Line:    fb.Line,
			Field:   fb.Field,
			Message: fmt.Sprintf("fallback value used: %s", fb.Reason),
		})
	}
	for _, sk := range result.Skipped {
		vr.Warnings = append(vr.Warnings, ValidationWarning{
			Line:    sk.Line,
			Message: fmt.Sprintf("row skipped: %s", sk.Reason),
		})
	}

	for i := range result.Transactions {
		txn := &result.Transactions[i]

		if err := txn.Validate(); err != nil {
			vr.Errors = append(vr.Errors, ValidationError{
				Field:   "transaction",
				Value:   txn.Description,
				Message: err.Error(),
			})
		}

		if txn.Description == "" {
			vr.Warnings = append(vr.Warnings, ValidationWarning{
				Field:   "description",
				Message: "transaction has no description; categorized as fallback",
			})
		}
		if txn.Amount == 0 {
			vr.Warnings = append(vr.Warnings, ValidationWarning{
				Field:   "amount",
				Value:   txn.Description,
				Message: "transaction has zero amount",
			})
		}
		if txn.Category == domain.CategoryOtherIncome || txn.Category == domain.CategoryOtherExpense {
			vr.Warnings = append(vr.Warnings, ValidationWarning{
				Field:   "category",
				Value:   txn.Description,
				Message: fmt.Sprintf("no categorization rule matched, defaulted to %s", txn.Category),
			})
		}
	}

	return vr
}
