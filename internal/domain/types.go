package domain

import (
	"fmt"
	"time"
)

// Category is the derived transaction category. Income categories apply to
// positive amounts, expense categories to zero or negative amounts.
// Use ValidateCategory / CategoryDirection before use.
type Category string

const (
	CategoryMembership  Category = "membership"
	CategorySponsorship Category = "sponsorship"
	CategorySubsidy     Category = "subsidy"
	CategoryEvent       Category = "event"
	CategoryTraining    Category = "training"
	CategoryDonation    Category = "donation"
	CategoryOtherIncome Category = "other_income"

	CategorySalary       Category = "salary"
	CategoryRent         Category = "rent"
	CategoryUtilities    Category = "utilities"
	CategoryInsurance    Category = "insurance"
	CategoryEquipment    Category = "equipment"
	CategoryTransport    Category = "transport"
	CategoryFees         Category = "fees"
	CategoryTaxes        Category = "taxes"
	CategoryOtherExpense Category = "other_expense"
)

// Direction classifies a category as income or expense.
type Direction string

const (
	DirectionIncome  Direction = "income"
	DirectionExpense Direction = "expense"
)

var categoryDirections = map[Category]Direction{
	CategoryMembership: DirectionIncome, CategorySponsorship: DirectionIncome,
	CategorySubsidy: DirectionIncome, CategoryEvent: DirectionIncome,
	CategoryTraining: DirectionIncome, CategoryDonation: DirectionIncome,
	CategoryOtherIncome: DirectionIncome,

	CategorySalary: DirectionExpense, CategoryRent: DirectionExpense,
	CategoryUtilities: DirectionExpense, CategoryInsurance: DirectionExpense,
	CategoryEquipment: DirectionExpense, CategoryTransport: DirectionExpense,
	CategoryFees: DirectionExpense, CategoryTaxes: DirectionExpense,
	CategoryOtherExpense: DirectionExpense,
}

// ValidateCategory checks if category is valid
func ValidateCategory(c Category) bool {
	_, ok := categoryDirections[c]
	return ok
}

// CategoryDirection returns whether the category is an income or expense
// category. Returns false for unknown categories.
func CategoryDirection(c Category) (Direction, bool) {
	d, ok := categoryDirections[c]
	return d, ok
}

// Bank identifies which statement layout produced a transaction.
type Bank string

const (
	BankBelfius Bank = "belfius"
	BankKBC     Bank = "kbc"
	BankING     Bank = "ing"
	BankBNP     Bank = "bnp"
	BankFortis  Bank = "fortis"
	BankGeneric Bank = "generic"
	// BankOFX tags transactions ingested from OFX/QFX exports rather than
	// a delimited-text layout.
	BankOFX Bank = "ofx"
	// BankAuto asks the detector to classify from the header line.
	BankAuto Bank = "auto"
)

var validBanks = map[Bank]struct{}{
	BankBelfius: {}, BankKBC: {}, BankING: {}, BankBNP: {},
	BankFortis: {}, BankGeneric: {}, BankOFX: {},
}

// ValidateBank checks if bank tag is a concrete layout tag (not "auto")
func ValidateBank(b Bank) bool {
	_, ok := validBanks[b]
	return ok
}

// Transaction is one normalized bank statement line.
//
// Sign convention:
//
//	Positive amount = credit/income
//	Negative amount = debit/expense
//
// Layout parsers must normalize to this convention regardless of how the
// source file represents debits (signed column, parentheses, or a separate
// debit column).
type Transaction struct {
	Date         time.Time `json:"date"`
	ValueDate    time.Time `json:"valueDate"`
	Account      string    `json:"account"`
	Counterparty string    `json:"counterparty"`
	Description  string    `json:"description"`
	Amount       float64   `json:"amount"`
	Balance      float64   `json:"balance"`
	Reference    string    `json:"reference"`
	Category     Category  `json:"category"`
	Bank         Bank      `json:"bank"`
}

// Validate checks the invariants a parsed transaction must satisfy before it
// may be staged for import. The sign/category consistency check is the load
// bearing one: a positive amount must carry an income category and a
// non-positive amount an expense category.
func (t *Transaction) Validate() error {
	if t.Date.IsZero() {
		return fmt.Errorf("transaction date cannot be zero")
	}
	dir, ok := CategoryDirection(t.Category)
	if !ok {
		return fmt.Errorf("invalid category: %s", t.Category)
	}
	if t.Amount > 0 && dir != DirectionIncome {
		return fmt.Errorf("positive amount %.2f cannot carry expense category %s", t.Amount, t.Category)
	}
	if t.Amount <= 0 && dir != DirectionExpense {
		return fmt.Errorf("non-positive amount %.2f cannot carry income category %s", t.Amount, t.Category)
	}
	if !ValidateBank(t.Bank) {
		return fmt.Errorf("invalid bank tag: %s", t.Bank)
	}
	return nil
}

// PaymentStatus is the lifecycle state of an expected payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
)

// Payment is an expected payment owned by the payments collaborator. The
// engine only reads pending payments and writes status=confirmed plus the
// matched transaction ID on confirmation.
type Payment struct {
	ID            string        `json:"id"`
	Status        PaymentStatus `json:"status"`
	Amount        float64       `json:"amount"`
	Reference     string        `json:"reference"`
	MemberName    string        `json:"memberName"`
	TransactionID string        `json:"transactionId"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// Signal names a match signal that contributed to a confidence score.
type Signal string

const (
	SignalReference        Signal = "reference"
	SignalReferencePartial Signal = "reference_partial"
	SignalAmount           Signal = "amount"
	SignalAmountClose      Signal = "amount_close"
	SignalDate             Signal = "date"
	SignalName             Signal = "name"
)

// Match pairs a stored transaction with a pending payment above the
// confidence threshold. Derived, never persisted.
type Match struct {
	TransactionID string   `json:"transactionId"`
	PaymentID     string   `json:"paymentId"`
	Confidence    float64  `json:"confidence"`
	Signals       []Signal `json:"signals"`
}

// StoredTransaction is a Transaction as persisted in the treasury
// collection, with import and reconciliation metadata. Reconciliation is
// terminal: once Reconciled is true there is no path back.
type StoredTransaction struct {
	ID            string `json:"id"`
	Transaction
	ImportedAt       time.Time `json:"importedAt"`
	ImportedBy       string    `json:"importedBy"`
	ImportBatchID    string    `json:"importBatchId"`
	Reconciled       bool      `json:"reconciled"`
	MatchedPaymentID string    `json:"matchedPaymentId"`
}
