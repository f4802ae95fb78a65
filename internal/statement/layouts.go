package statement

import (
	"regexp"
	"strings"

	"github.com/calybase/treasury/internal/domain"
)

// columnMap gives the column index per field for a fixed layout. -1 marks a
// field the layout does not expose. A layout carries either a single signed
// amount column or a debit/credit pair, never both.
type columnMap struct {
	date         int
	valueDate    int
	account      int
	counterparty int
	description  int
	amount       int
	debit        int
	credit       int
	balance      int
}

// layout describes one bank's fixed export format: a header recognizer used
// to skip header and title rows anywhere in the file, the minimum column
// count below which a row is dropped, and the column mapping.
type layout struct {
	bank         domain.Bank
	minColumns   int
	headerTokens []*regexp.Regexp
	columns      columnMap
}

// headerTokens compiles header recognizer tokens into word-boundary
// patterns. Bare substring matching would swallow data rows: the ing token
// appears inside Dutch descriptions like OVERSCHRIJVING and PARKING.
func headerTokens(tokens ...string) []*regexp.Regexp {
	pats := make([]*regexp.Regexp, len(tokens))
	for i, tok := range tokens {
		pats[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(tok) + `\b`)
	}
	return pats
}

// isHeaderRow reports whether a raw line is a header or title row for this
// layout. Header rows may appear anywhere in the file, not just line 0:
// some exports repeat the header per page. At least two tokens must match
// on word boundaries, so a description mentioning a single column name or
// the bank still parses as data.
func (l *layout) isHeaderRow(line string) bool {
	lower := strings.ToLower(line)
	hits := 0
	for _, tok := range l.headerTokens {
		if tok.MatchString(lower) {
			hits++
			if hits >= 2 {
				return true
			}
		}
	}
	return false
}

// fixedLayouts maps the five named bank formats. Column orders follow each
// bank's CSV export convention.
var fixedLayouts = map[domain.Bank]*layout{
	// Compte;Date;Date valeur;Contrepartie;Communication;Montant;Solde
	domain.BankBelfius: {
		bank:         domain.BankBelfius,
		minColumns:   6,
		headerTokens: headerTokens("compte", "date valeur", "belfius"),
		columns: columnMap{
			account: 0, date: 1, valueDate: 2, counterparty: 3,
			description: 4, amount: 5, balance: 6,
			debit: -1, credit: -1,
		},
	},
	// Rekeningnummer;Datum;Valutadatum;Tegenpartij;Omschrijving;Bedrag;Saldo
	domain.BankKBC: {
		bank:         domain.BankKBC,
		minColumns:   6,
		headerTokens: headerTokens("rekeningnummer", "valutadatum", "kbc"),
		columns: columnMap{
			account: 0, date: 1, valueDate: 2, counterparty: 3,
			description: 4, amount: 5, balance: 6,
			debit: -1, credit: -1,
		},
	},
	// Datum;Rekening;Naam tegenpartij;Mededeling;Debet;Credit
	domain.BankING: {
		bank:         domain.BankING,
		minColumns:   6,
		headerTokens: headerTokens("datum", "mededeling", "ing"),
		columns: columnMap{
			date: 0, account: 1, counterparty: 2, description: 3,
			debit: 4, credit: 5,
			valueDate: -1, amount: -1, balance: -1,
		},
	},
	// Date exécution;Date valeur;Montant;Devise;Compte;Contrepartie;Communication
	domain.BankBNP: {
		bank:         domain.BankBNP,
		minColumns:   7,
		headerTokens: headerTokens("exécution", "execution", "devise", "bnp", "paribas"),
		columns: columnMap{
			date: 0, valueDate: 1, amount: 2, account: 4,
			counterparty: 5, description: 6,
			debit: -1, credit: -1, balance: -1,
		},
	},
	// Date;Montant;Devise;Compte;Détails;Solde
	domain.BankFortis: {
		bank:         domain.BankFortis,
		minColumns:   5,
		headerTokens: headerTokens("détails", "details", "devise", "solde", "fortis"),
		columns: columnMap{
			date: 0, amount: 1, account: 3, description: 4, balance: 5,
			valueDate: -1, counterparty: -1, debit: -1, credit: -1,
		},
	},
}
