package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// AmountResult carries a parsed amount plus whether it came from a real
// parse or the lenient zero-fallback.
type AmountResult struct {
	Value  float64
	Status Status
	Reason string
}

// currencyJunk strips currency symbols, letters and whitespace before
// numeric disambiguation. Signs, digits, separators and parentheses stay.
var currencyJunk = regexp.MustCompile(`[^\d.,\-()]`)

// ParseAmount parses a single signed amount column. It disambiguates
// European ("1.234,56") and US ("1,234.56") conventions by the relative
// position of the last comma and last dot; with only a comma present, a
// fractional part of at most two digits is treated as a decimal separator
// and anything longer as a thousands separator. Negativity comes from a
// literal minus or parenthesis notation. Unparseable input yields zero with
// StatusFallback.
func ParseAmount(s string) AmountResult {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return AmountResult{Status: StatusFallback, Reason: ReasonEmptyValue}
	}

	cleaned := currencyJunk.ReplaceAllString(trimmed, "")

	negative := false
	if strings.Contains(cleaned, "-") {
		negative = true
		cleaned = strings.ReplaceAll(cleaned, "-", "")
	}
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
	}
	cleaned = strings.Trim(cleaned, "()")

	if cleaned == "" {
		return AmountResult{Status: StatusFallback, Reason: ReasonUnparseableAmount}
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// European: dots group thousands, comma is the decimal mark
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			// US: commas group thousands
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		frac := cleaned[lastComma+1:]
		if len(frac) <= 2 {
			// "45,00" reads as a decimal comma
			cleaned = strings.ReplaceAll(cleaned[:lastComma], ",", "") + "." + frac
		} else {
			// "1,200" reads as a thousands group
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return AmountResult{Status: StatusFallback, Reason: ReasonUnparseableAmount}
	}

	if negative {
		value = -value
	}
	return AmountResult{Value: value, Status: StatusOK}
}

// ParseDebitCredit combines split debit/credit columns into a signed amount
// (credit minus debit). A value present in only one column parses that
// column alone; both empty falls back to zero.
func ParseDebitCredit(debit, credit string) AmountResult {
	d := ParseAmount(debit)
	c := ParseAmount(credit)

	if d.Status == StatusFallback && c.Status == StatusFallback {
		return AmountResult{Status: StatusFallback, Reason: ReasonUnparseableAmount}
	}

	// Debit columns are printed unsigned; take magnitude so a bank that
	// prints "-25,00" in the debit column does not flip back to credit.
	debitMagnitude := d.Value
	if debitMagnitude < 0 {
		debitMagnitude = -debitMagnitude
	}

	return AmountResult{Value: c.Value - debitMagnitude, Status: StatusOK}
}
