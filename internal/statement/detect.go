package statement

import (
	"regexp"
	"strings"

	"github.com/calybase/treasury/internal/domain"
)

// bankToken pairs a layout tag with the name tokens that identify it in a
// header row. Tokens are matched on word boundaries: "ing" as a bare
// substring would false-positive on Dutch column names like
// "rekeningnummer".
type bankToken struct {
	bank    domain.Bank
	pattern *regexp.Regexp
}

var bankTokens = []bankToken{
	{domain.BankBelfius, regexp.MustCompile(`\bbelfius\b`)},
	{domain.BankKBC, regexp.MustCompile(`\b(kbc|cbc)\b`)},
	{domain.BankING, regexp.MustCompile(`\bing\b`)},
	{domain.BankBNP, regexp.MustCompile(`\b(bnp|paribas)\b`)},
	{domain.BankFortis, regexp.MustCompile(`\bfortis\b`)},
}

// DetectBank classifies the export layout from the file's header line. An
// explicit hint other than "auto" wins outright. Otherwise the header is
// searched case-insensitively for bank name tokens, then for known column
// signatures. Unrecognized headers fall back to the generic layout; there
// is no error path, generic is always a safe terminal choice.
func DetectBank(headerLine string, hint domain.Bank) domain.Bank {
	if hint != "" && hint != domain.BankAuto {
		return hint
	}

	header := strings.ToLower(headerLine)

	for _, bt := range bankTokens {
		if bt.pattern.MatchString(header) {
			return bt.bank
		}
	}

	// Column-signature heuristics for exports that never print the bank name
	if strings.Contains(header, "compte") && strings.Contains(header, "date valeur") {
		return domain.BankBelfius
	}
	if strings.Contains(header, "rekeningnummer") && strings.Contains(header, "valutadatum") {
		return domain.BankKBC
	}

	return domain.BankGeneric
}
