// Package normalize provides locale-aware field normalizers for bank
// statement values: dates in several day/month orderings, amounts in
// European and US decimal conventions, and structured payment references
// embedded in free-text descriptions.
package normalize

// Status reports whether a normalizer produced a real parse or had to fall
// back to a substitute value. The fallback values themselves (current date,
// zero amount) are deliberately lenient so a bad row never aborts an import;
// the status lets the batch report surface how often that happened.
type Status string

const (
	StatusOK       Status = "ok"
	StatusFallback Status = "fallback"
)

// Fallback reasons attached to results for the batch report.
const (
	ReasonUnparseableDate   = "unparseable date"
	ReasonUnparseableAmount = "unparseable amount"
	ReasonEmptyValue        = "empty value"
)
