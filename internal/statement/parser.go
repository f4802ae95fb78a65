package statement

import (
	"fmt"
	"strings"
	"time"

	"github.com/calybase/treasury/internal/domain"
	"github.com/calybase/treasury/internal/normalize"
	"github.com/calybase/treasury/internal/rules"
)

// RowIssue records a lenient-fallback substitution or a dropped row so the
// batch report can surface them. Line is the 1-based line number in the
// source file.
type RowIssue struct {
	Line   int
	Field  string
	Reason string
}

// Result is the outcome of parsing one statement file.
type Result struct {
	Bank         domain.Bank
	Transactions []domain.Transaction
	// Fallbacks lists fields that parsed via the lenient fallback policy
	// (date substituted with now, amount with zero).
	Fallbacks []RowIssue
	// Skipped lists rows dropped for having fewer columns than the layout
	// requires.
	Skipped []RowIssue
}

// Parser turns raw statement file content into normalized transactions. The
// rules engine is injected so categorization stays a data-driven
// collaborator rather than ambient state.
type Parser struct {
	engine *rules.Engine
	now    func() time.Time
}

// NewParser creates a statement parser using the given categorization rules.
func NewParser(engine *rules.Engine) *Parser {
	return &Parser{engine: engine, now: time.Now}
}

// Parse parses whole-file content with an explicit or auto-detected bank
// layout. Malformed rows are skipped and reported in the result, never
// fatal; the only error conditions are an empty file or an unusable generic
// header.
func (p *Parser) Parse(content string, bankType domain.Bank) (*Result, error) {
	lines, lineNumbers := splitLines(content)
	if len(lines) == 0 {
		return nil, fmt.Errorf("statement file is empty")
	}

	bank := DetectBank(lines[0], bankType)

	if bank == domain.BankGeneric {
		return p.parseGeneric(lines, lineNumbers)
	}

	lay, ok := fixedLayouts[bank]
	if !ok {
		return nil, fmt.Errorf("no layout registered for bank %q", bank)
	}
	return p.parseWithLayout(lay, lines, lineNumbers, nil), nil
}

// parseGeneric binds the column mapping from the first line, then parses the
// remainder. Rows equal to the header line are treated as repeated headers.
func (p *Parser) parseGeneric(lines []string, lineNumbers []int) (*Result, error) {
	headerFields := ParseCSVLine(lines[0])
	lay := buildGenericLayout(headerFields)

	if lay.columns.date < 0 && lay.columns.amount < 0 && lay.columns.debit < 0 {
		return nil, fmt.Errorf("unusable statement header: no date or amount column recognized in %q", lines[0])
	}

	header := strings.ToLower(strings.TrimSpace(lines[0]))
	isRepeatHeader := func(line string) bool {
		return strings.ToLower(strings.TrimSpace(line)) == header
	}

	return p.parseWithLayout(lay, lines[1:], lineNumbers[1:], isRepeatHeader), nil
}

// parseWithLayout runs the per-row pipeline: skip header rows, drop short
// rows, tokenize, normalize each field, categorize.
func (p *Parser) parseWithLayout(lay *layout, lines []string, lineNumbers []int, isRepeatHeader func(string) bool) *Result {
	result := &Result{Bank: lay.bank}

	for i, line := range lines {
		lineNo := lineNumbers[i]

		if lay.isHeaderRow(line) || (isRepeatHeader != nil && isRepeatHeader(line)) {
			continue
		}

		fields := ParseCSVLine(line)
		if len(fields) < lay.minColumns {
			result.Skipped = append(result.Skipped, RowIssue{
				Line:   lineNo,
				Reason: fmt.Sprintf("row has %d columns, layout %s requires %d", len(fields), lay.bank, lay.minColumns),
			})
			continue
		}

		txn := p.parseRow(lay, fields, lineNo, result)
		result.Transactions = append(result.Transactions, txn)
	}

	return result
}

func (p *Parser) parseRow(lay *layout, fields []string, lineNo int, result *Result) domain.Transaction {
	cols := lay.columns
	now := p.now()

	date := normalize.ParseDateAt(field(fields, cols.date), now)
	if date.Status == normalize.StatusFallback {
		result.Fallbacks = append(result.Fallbacks, RowIssue{Line: lineNo, Field: "date", Reason: date.Reason})
	}

	valueDate := date
	if cols.valueDate >= 0 {
		valueDate = normalize.ParseDateAt(field(fields, cols.valueDate), now)
		if valueDate.Status == normalize.StatusFallback {
			// A missing value date quietly inherits the booking date; only a
			// present-but-garbled one counts as a fallback.
			if strings.TrimSpace(field(fields, cols.valueDate)) == "" {
				valueDate = date
			} else {
				result.Fallbacks = append(result.Fallbacks, RowIssue{Line: lineNo, Field: "valueDate", Reason: valueDate.Reason})
			}
		}
	}

	var amount normalize.AmountResult
	if cols.amount >= 0 {
		amount = normalize.ParseAmount(field(fields, cols.amount))
	} else {
		amount = normalize.ParseDebitCredit(field(fields, cols.debit), field(fields, cols.credit))
	}
	if amount.Status == normalize.StatusFallback {
		result.Fallbacks = append(result.Fallbacks, RowIssue{Line: lineNo, Field: "amount", Reason: amount.Reason})
	}

	var balance float64
	if cols.balance >= 0 {
		// Balance is informational; an absent or garbled balance stays zero
		// without joining the fallback report.
		balance = normalize.ParseAmount(field(fields, cols.balance)).Value
	}

	description := field(fields, cols.description)
	category, _ := p.engine.Categorize(description, amount.Value)

	return domain.Transaction{
		Date:         date.Value,
		ValueDate:    valueDate.Value,
		Account:      field(fields, cols.account),
		Counterparty: field(fields, cols.counterparty),
		Description:  description,
		Amount:       amount.Value,
		Balance:      balance,
		Reference:    normalize.ExtractReference(description),
		Category:     category,
		Bank:         lay.bank,
	}
}

// field returns the column value or empty when the layout does not map the
// field or the row is too short.
func field(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return fields[idx]
}
