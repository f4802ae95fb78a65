package treasury_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/calybase/treasury/internal/domain"
	"github.com/calybase/treasury/internal/export"
	"github.com/calybase/treasury/internal/importer"
	"github.com/calybase/treasury/internal/reconcile"
	"github.com/calybase/treasury/internal/rules"
	"github.com/calybase/treasury/internal/statement"
	"github.com/calybase/treasury/internal/store"
	"github.com/calybase/treasury/internal/validate"
)

// TestEndToEnd_ImportAndReconcile drives the full flow: parse a raw
// statement, validate, import into a local store, propose matches against
// pending payments, confirm one, and export the result.
func TestEndToEnd_ImportAndReconcile(t *testing.T) {
	ctx := context.Background()

	engine, err := rules.LoadEmbedded()
	if err != nil {
		t.Fatalf("failed to load rules: %v", err)
	}

	// A Belfius-style export with one credit carrying a structured
	// reference, one plain credit, and one debit.
	content := strings.Join([]string{
		"Compte;Date;Date valeur;Contrepartie;Communication;Montant;Solde",
		"BE68539007547034;15/03/2024;15/03/2024;JEAN DUPONT;COTISATION REF:MEM-2024;25,00;1025,00",
		"BE68539007547034;16/03/2024;16/03/2024;VILLE DE CALY;SUBSIDE ANNUEL;500,00;1525,00",
		"BE68539007547034;17/03/2024;17/03/2024;IMMO SA;LOYER MARS;-750,00;775,00",
	}, "\n")

	parsed, err := statement.NewParser(engine).Parse(content, domain.BankAuto)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parsed.Bank != domain.BankBelfius {
		t.Fatalf("detected bank = %s, want belfius", parsed.Bank)
	}
	if len(parsed.Transactions) != 3 {
		t.Fatalf("parsed %d transactions, want 3", len(parsed.Transactions))
	}

	if report := validate.ValidateBatch(parsed); report.HasErrors() {
		t.Fatalf("validation errors: %+v", report.Errors)
	}

	st, err := store.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer st.Close()

	result, err := importer.New(st).Import(ctx, parsed.Transactions, "treasurer")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(result.Imported) != 3 {
		t.Fatalf("imported %d transactions, want 3", len(result.Imported))
	}

	// Re-importing the same statement is fully suppressed.
	again, err := importer.New(st).Import(ctx, parsed.Transactions, "treasurer")
	if err != nil {
		t.Fatalf("re-Import() error = %v", err)
	}
	if len(again.Imported) != 0 || len(again.Duplicates) != 3 {
		t.Fatalf("re-import = %d imported, %d duplicates; want 0 and 3",
			len(again.Imported), len(again.Duplicates))
	}

	// Seed the expected payment the membership side created.
	if err := st.CreatePayment(ctx, &domain.Payment{
		ID:         "pay-42",
		Status:     domain.PaymentStatusPending,
		Amount:     25.0,
		Reference:  "MEM-2024",
		MemberName: "Jean Dupont",
		CreatedAt:  time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("CreatePayment() error = %v", err)
	}

	matcher := reconcile.NewMatcher(st, st, st)
	matches, err := matcher.FindMatches(ctx)
	if err != nil {
		t.Fatalf("FindMatches() error = %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1: %+v", len(matches), matches)
	}
	match := matches[0]
	if match.PaymentID != "pay-42" {
		t.Errorf("match payment = %s, want pay-42", match.PaymentID)
	}
	if match.Confidence <= reconcile.MatchThreshold {
		t.Errorf("confidence = %v, want above threshold", match.Confidence)
	}

	if err := matcher.Confirm(ctx, match.TransactionID, match.PaymentID); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}

	// Reconciliation is terminal.
	err = matcher.Confirm(ctx, match.TransactionID, match.PaymentID)
	if !errors.Is(err, store.ErrAlreadyReconciled) {
		t.Errorf("second Confirm() error = %v, want ErrAlreadyReconciled", err)
	}

	// The confirmed credit left the candidate pool; the subsidy credit
	// remains, the debit never entered it.
	remaining, err := st.UnreconciledCredits(ctx)
	if err != nil {
		t.Fatalf("UnreconciledCredits() error = %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("remaining credits = %d, want 1", len(remaining))
	}
	if remaining[0].Category != domain.CategorySubsidy {
		t.Errorf("remaining credit category = %s, want subsidy", remaining[0].Category)
	}

	// Export reflects reconciliation state.
	all, err := st.AllTransactions(ctx)
	if err != nil {
		t.Fatalf("AllTransactions() error = %v", err)
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(all, &buf); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	csv := buf.String()
	if !strings.Contains(csv, "COTISATION REF:MEM-2024,MEM-2024,25.00,1025.00,membership,true,belfius") {
		t.Errorf("export missing reconciled membership row:\n%s", csv)
	}
	if !strings.Contains(csv, "LOYER MARS,,-750.00,775.00,rent,false,belfius") {
		t.Errorf("export missing rent row:\n%s", csv)
	}
}

// TestEndToEnd_DocumentIDStability checks that re-parsing the same
// statement yields identical document IDs, keeping imports idempotent at
// the store level.
func TestEndToEnd_DocumentIDStability(t *testing.T) {
	engine, err := rules.LoadEmbedded()
	if err != nil {
		t.Fatalf("failed to load rules: %v", err)
	}

	content := "Compte;Date;Date valeur;Contrepartie;Communication;Montant;Solde\n" +
		"BE68;15/03/2024;15/03/2024;JEAN;COTISATION REF:MEM-2024;25,00;100,00"

	first, err := statement.NewParser(engine).Parse(content, domain.BankBelfius)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	second, err := statement.NewParser(engine).Parse(content, domain.BankBelfius)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	id1 := importer.DocumentID(&first.Transactions[0])
	id2 := importer.DocumentID(&second.Transactions[0])
	if id1 != id2 {
		t.Errorf("document IDs differ across parses: %s vs %s", id1, id2)
	}
	if id1 != "belfius-2024-03-15-MEM-2024-2500" {
		t.Errorf("document ID = %s", id1)
	}
}
