package validate

import (
	"testing"
	"time"

	"github.com/calybase/treasury/internal/domain"
	"github.com/calybase/treasury/internal/statement"
)

func validTxn(amount float64, category domain.Category) domain.Transaction {
	return domain.Transaction{
		Date:        time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		ValueDate:   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Description: "COTISATION MARIE",
		Amount:      amount,
		Category:    category,
		Bank:        domain.BankBelfius,
	}
}

func TestValidateBatchClean(t *testing.T) {
	result := &statement.Result{
		Bank:         domain.BankBelfius,
		Transactions: []domain.Transaction{validTxn(25.0, domain.CategoryMembership)},
	}

	vr := ValidateBatch(result)
	if vr.HasErrors() {
		t.Errorf("HasErrors() = true for clean batch: %+v", vr.Errors)
	}
	if len(vr.Warnings) != 0 {
		t.Errorf("Warnings = %+v, want none", vr.Warnings)
	}
}

func TestValidateBatchSignViolation(t *testing.T) {
	bad := validTxn(-25.0, domain.CategoryMembership)
	result := &statement.Result{
		Bank:         domain.BankBelfius,
		Transactions: []domain.Transaction{bad},
	}

	vr := ValidateBatch(result)
	if !vr.HasErrors() {
		t.Fatal("HasErrors() = false, want sign violation error")
	}
	if len(vr.Errors) != 1 {
		t.Errorf("Errors = %d, want 1", len(vr.Errors))
	}
}

func TestValidateBatchWarnings(t *testing.T) {
	noDesc := validTxn(25.0, domain.CategoryOtherIncome)
	noDesc.Description = ""
	zero := validTxn(0, domain.CategoryOtherExpense)

	result := &statement.Result{
		Bank:         domain.BankGeneric,
		Transactions: []domain.Transaction{noDesc, zero},
		Fallbacks: []statement.RowIssue{
			{Line: 3, Field: "date", Reason: "unparseable date"},
		},
		Skipped: []statement.RowIssue{
			{Line: 7, Reason: "row has 2 columns, layout generic requires 4"},
		},
	}

	vr := ValidateBatch(result)
	if vr.HasErrors() {
		t.Errorf("HasErrors() = true, want warnings only: %+v", vr.Errors)
	}

	// 1 fallback + 1 skip + empty description + 2x default category + zero amount
	wantFields := map[string]int{"date": 1, "": 1, "description": 1, "category": 2, "amount": 1}
	gotFields := map[string]int{}
	for _, w := range vr.Warnings {
		gotFields[w.Field]++
	}
	for field, want := range wantFields {
		if gotFields[field] != want {
			t.Errorf("warnings for field %q = %d, want %d (all: %+v)", field, gotFields[field], want, vr.Warnings)
		}
	}
}
