package domain

import (
	"strings"
	"testing"
	"time"
)

func TestTransactionValidate(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		txn     Transaction
		wantErr string
	}{
		{
			"valid credit",
			Transaction{Date: date, Description: "COTISATION", Amount: 25.0, Category: CategoryMembership, Bank: BankBelfius},
			"",
		},
		{
			"valid debit",
			Transaction{Date: date, Description: "LOYER", Amount: -750.0, Category: CategoryRent, Bank: BankKBC},
			"",
		},
		{
			"zero amount is expense side",
			Transaction{Date: date, Amount: 0, Category: CategoryOtherExpense, Bank: BankGeneric},
			"",
		},
		{
			"zero date",
			Transaction{Amount: 25.0, Category: CategoryMembership, Bank: BankBelfius},
			"date cannot be zero",
		},
		{
			"unknown category",
			Transaction{Date: date, Amount: 25.0, Category: "groceries", Bank: BankBelfius},
			"invalid category",
		},
		{
			"credit with expense category",
			Transaction{Date: date, Amount: 25.0, Category: CategoryRent, Bank: BankBelfius},
			"cannot carry expense category",
		},
		{
			"debit with income category",
			Transaction{Date: date, Amount: -25.0, Category: CategoryMembership, Bank: BankBelfius},
			"cannot carry income category",
		},
		{
			"auto is not a concrete bank",
			Transaction{Date: date, Amount: 25.0, Category: CategoryMembership, Bank: BankAuto},
			"invalid bank tag",
		},
		{
			"empty bank",
			Transaction{Date: date, Amount: 25.0, Category: CategoryMembership},
			"invalid bank tag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.txn.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestCategoryDirection(t *testing.T) {
	incomeCategories := []Category{
		CategoryMembership, CategorySponsorship, CategorySubsidy,
		CategoryEvent, CategoryTraining, CategoryDonation, CategoryOtherIncome,
	}
	expenseCategories := []Category{
		CategorySalary, CategoryRent, CategoryUtilities, CategoryInsurance,
		CategoryEquipment, CategoryTransport, CategoryFees, CategoryTaxes,
		CategoryOtherExpense,
	}

	for _, c := range incomeCategories {
		dir, ok := CategoryDirection(c)
		if !ok || dir != DirectionIncome {
			t.Errorf("CategoryDirection(%q) = %q, %v, want income", c, dir, ok)
		}
	}
	for _, c := range expenseCategories {
		dir, ok := CategoryDirection(c)
		if !ok || dir != DirectionExpense {
			t.Errorf("CategoryDirection(%q) = %q, %v, want expense", c, dir, ok)
		}
	}
	if _, ok := CategoryDirection("groceries"); ok {
		t.Error("CategoryDirection accepted unknown category")
	}
}

func TestValidateBank(t *testing.T) {
	for _, b := range []Bank{BankBelfius, BankKBC, BankING, BankBNP, BankFortis, BankGeneric, BankOFX} {
		if !ValidateBank(b) {
			t.Errorf("ValidateBank(%q) = false, want true", b)
		}
	}
	if ValidateBank(BankAuto) {
		t.Error("ValidateBank(auto) = true; auto is a detection request, not a layout")
	}
	if ValidateBank("monzo") {
		t.Error("ValidateBank accepted unknown bank")
	}
}
