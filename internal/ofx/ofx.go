// Package ofx ingests OFX/QFX exports into the same normalized
// transaction model the delimited-text layouts produce.
package ofx

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/calybase/treasury/internal/domain"
	"github.com/calybase/treasury/internal/normalize"
	"github.com/calybase/treasury/internal/rules"
)

// Parser converts OFX statements to normalized transactions. The struct
// only carries the categorization engine; parsing itself is stateless and
// safe for concurrent use.
type Parser struct {
	engine *rules.Engine
}

// NewParser creates an OFX parser using the given categorization rules.
func NewParser(engine *rules.Engine) *Parser {
	return &Parser{engine: engine}
}

// CanParse checks if this parser can handle the file based on extension and header
func CanParse(path string, header []byte) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".ofx" && ext != ".qfx" {
		return false
	}

	// Look for OFX header markers (both v1 SGML and v2 XML formats)
	headerUpper := strings.ToUpper(string(header))
	return strings.Contains(headerUpper, "OFXHEADER") ||
		strings.Contains(headerUpper, "<?OFX") ||
		strings.Contains(headerUpper, "<OFX>")
}

// Parse extracts transactions from an OFX/QFX document. Bank and credit
// card statements are supported; investment statements are not, since the
// treasury model has no concept of securities.
func (p *Parser) Parse(r io.Reader) ([]domain.Transaction, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX content: %w", err)
	}

	response, err := ofxgo.ParseResponse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file (%d bytes): %w", len(content), err)
	}

	if len(response.Bank) > 0 {
		bankStmt, ok := response.Bank[0].(*ofxgo.StatementResponse)
		if !ok {
			return nil, fmt.Errorf("failed to type assert bank statement: expected *ofxgo.StatementResponse, got %T", response.Bank[0])
		}
		if bankStmt.BankTranList == nil {
			return nil, fmt.Errorf("missing transaction list in bank statement")
		}
		account := bankStmt.BankAcctFrom.AcctID.String()
		return p.convertTransactions(bankStmt.BankTranList, account)
	}

	if len(response.CreditCard) > 0 {
		ccStmt, ok := response.CreditCard[0].(*ofxgo.CCStatementResponse)
		if !ok {
			return nil, fmt.Errorf("failed to type assert credit card statement: expected *ofxgo.CCStatementResponse, got %T", response.CreditCard[0])
		}
		if ccStmt.BankTranList == nil {
			return nil, fmt.Errorf("missing transaction list in credit card statement")
		}
		account := ccStmt.CCAcctFrom.AcctID.String()
		return p.convertTransactions(ccStmt.BankTranList, account)
	}

	return nil, fmt.Errorf("no supported statement type found in OFX file (bank: %d, creditcard: %d, investment: %d)",
		len(response.Bank), len(response.CreditCard), len(response.InvStmt))
}

func (p *Parser) convertTransactions(tranList *ofxgo.TransactionList, account string) ([]domain.Transaction, error) {
	txns := make([]domain.Transaction, 0, len(tranList.Transactions))

	for i, ofxTxn := range tranList.Transactions {
		txn, err := p.convertTransaction(ofxTxn, account)
		if err != nil {
			return nil, fmt.Errorf("failed to convert transaction at index %d: %w", i, err)
		}
		txns = append(txns, *txn)
	}

	return txns, nil
}

func (p *Parser) convertTransaction(ofxTxn ofxgo.Transaction, account string) (*domain.Transaction, error) {
	// Use posted date; if not available, fall back to user date
	date := ofxTxn.DtPosted.Time
	if date.IsZero() {
		date = ofxTxn.DtUser.Time
	}
	if date.IsZero() {
		return nil, fmt.Errorf("transaction %s missing both posted date and user date", ofxTxn.FiTID.String())
	}

	// Use Name field for description; if empty, fall back to Memo
	description := strings.TrimSpace(ofxTxn.Name.String())
	memo := strings.TrimSpace(ofxTxn.Memo.String())
	if description == "" {
		description = memo
	} else if memo != "" && memo != description {
		description = description + " " + memo
	}

	amount, _ := ofxTxn.TrnAmt.Float64()
	category, _ := p.engine.Categorize(description, amount)

	return &domain.Transaction{
		Date:        date,
		ValueDate:   date,
		Account:     account,
		Description: description,
		Amount:      amount,
		Reference:   normalize.ExtractReference(description),
		Category:    category,
		Bank:        domain.BankOFX,
	}, nil
}
