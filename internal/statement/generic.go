package statement

import (
	"strings"

	"github.com/calybase/treasury/internal/domain"
)

// fieldCandidates lists, per field, the header names the generic layout
// recognizes, across French, Dutch and English exports. A column is bound to
// the first header whose lowercase text contains a candidate substring.
var fieldCandidates = map[string][]string{
	"valueDate":    {"date valeur", "valutadatum", "value date"},
	"date":         {"date", "datum", "data"},
	"account":      {"compte", "rekening", "account"},
	"counterparty": {"contrepartie", "tegenpartij", "tiers", "counterparty", "naam", "name"},
	"description":  {"communication", "mededeling", "libellé", "libelle", "omschrijving", "description", "détail", "detail"},
	"amount":       {"montant", "bedrag", "amount"},
	"debit":        {"débit", "debet", "debit"},
	"credit":       {"crédit", "credit"},
	"balance":      {"solde", "saldo", "balance"},
}

// bindOrder fixes the field binding sequence so that more specific headers
// claim their column before generic ones: "Date valeur" must bind to
// valueDate before the "date" candidates can take it.
var bindOrder = []string{
	"valueDate", "date", "account", "counterparty",
	"description", "amount", "debit", "credit", "balance",
}

// buildGenericLayout constructs a layout by matching the header row's cells
// against the per-field candidate lists. Fields with no matching header stay
// unmapped (-1) and normalize to their zero values during parsing. Repeated
// header rows are recognized by equality with the original header line, so
// headerTokens stays empty here.
func buildGenericLayout(headerFields []string) *layout {
	lower := make([]string, len(headerFields))
	for i, h := range headerFields {
		lower[i] = strings.ToLower(strings.TrimSpace(h))
	}

	cols := columnMap{
		date: -1, valueDate: -1, account: -1, counterparty: -1,
		description: -1, amount: -1, debit: -1, credit: -1, balance: -1,
	}
	claimed := make(map[int]bool)

	bind := func(field string) int {
		for _, cand := range fieldCandidates[field] {
			for i, h := range lower {
				if claimed[i] {
					continue
				}
				if strings.Contains(h, cand) {
					claimed[i] = true
					return i
				}
			}
		}
		return -1
	}

	for _, field := range bindOrder {
		idx := bind(field)
		switch field {
		case "date":
			cols.date = idx
		case "valueDate":
			cols.valueDate = idx
		case "account":
			cols.account = idx
		case "counterparty":
			cols.counterparty = idx
		case "description":
			cols.description = idx
		case "amount":
			cols.amount = idx
		case "debit":
			cols.debit = idx
		case "credit":
			cols.credit = idx
		case "balance":
			cols.balance = idx
		}
	}

	minCols := 2
	if cols.amount+1 > minCols {
		minCols = cols.amount + 1
	}
	if cols.date+1 > minCols {
		minCols = cols.date + 1
	}

	return &layout{
		bank:       domain.BankGeneric,
		minColumns: minCols,
		columns:    cols,
	}
}
