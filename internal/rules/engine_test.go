package rules

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/calybase/treasury/internal/domain"
)

func TestLoadEmbedded(t *testing.T) {
	engine, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded() error: %v", err)
	}

	all := engine.Rules()
	if len(all) != 14 {
		t.Errorf("expected 14 embedded rules, got %d", len(all))
	}
	if all[0].Name != "membership-dues" {
		t.Errorf("first rule = %q, want membership-dues", all[0].Name)
	}
	// Income rules come first in the inspection order.
	sawExpense := false
	for _, r := range all {
		if r.Direction == domain.DirectionExpense {
			sawExpense = true
		} else if sawExpense {
			t.Fatalf("income rule %q listed after expense rules", r.Name)
		}
	}
}

func TestCategorize(t *testing.T) {
	engine, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded() error: %v", err)
	}

	tests := []struct {
		name        string
		description string
		amount      float64
		category    domain.Category
		ruleName    string
	}{
		{"membership credit", "VIREMENT COTISATION 2024", 25.0, domain.CategoryMembership, "membership-dues"},
		{"subsidy prefix match", "SUBSIDE COMMUNAL ANNUEL", 500.0, domain.CategorySubsidy, "subsidies"},
		{"rent debit", "LOYER SALLE MARS", -750.0, domain.CategoryRent, "rent"},
		{"utilities accent keyword", "FACTURE ÉLECTRICITÉ", -120.0, domain.CategoryUtilities, "utilities"},
		{"sign selects direction", "EVENT TRANSPORT 2024", 80.0, domain.CategoryEvent, "event-income"},
		{"same text as expense", "EVENT TRANSPORT 2024", -80.0, domain.CategoryTransport, "transport"},
		{"first rule wins", "COTISATION SPONSOR CLUB", 40.0, domain.CategoryMembership, "membership-dues"},
		{"zero amount is expense", "COTISATION", 0, domain.CategoryOtherExpense, ""},
		{"income fallback", "VIREMENT SANS LIBELLE CONNU", 10.0, domain.CategoryOtherIncome, ""},
		{"expense fallback", "ACHAT DIVERS", -10.0, domain.CategoryOtherExpense, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, ruleName := engine.Categorize(tt.description, tt.amount)
			if category != tt.category {
				t.Errorf("Categorize(%q, %v) category = %q, want %q", tt.description, tt.amount, category, tt.category)
			}
			if ruleName != tt.ruleName {
				t.Errorf("Categorize(%q, %v) rule = %q, want %q", tt.description, tt.amount, ruleName, tt.ruleName)
			}
		})
	}
}

func TestNewEngineValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			"direction category mismatch",
			"rules:\n  - name: bad\n    direction: income\n    keywords: [loyer]\n    category: rent\n",
			"income",
		},
		{
			"invalid category",
			"rules:\n  - name: bad\n    direction: income\n    keywords: [x]\n    category: groceries\n",
			"invalid category",
		},
		{
			"invalid direction",
			"rules:\n  - name: bad\n    direction: sideways\n    keywords: [x]\n    category: rent\n",
			"invalid direction",
		},
		{
			"no keywords",
			"rules:\n  - name: bad\n    direction: expense\n    keywords: []\n    category: rent\n",
			"at least one keyword",
		},
		{
			"blank keyword",
			"rules:\n  - name: bad\n    direction: expense\n    keywords: ['  ']\n    category: rent\n",
			"keywords cannot be empty",
		},
		{
			"malformed yaml",
			"rules:\n  - name: [broken\n",
			"failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := "rules:\n  - name: club-dues\n    direction: income\n    keywords: [lidgeld]\n    category: membership\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	engine, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	category, ruleName := engine.Categorize("LIDGELD 2024", 30.0)
	if category != domain.CategoryMembership || ruleName != "club-dues" {
		t.Errorf("Categorize() = %q/%q, want membership/club-dues", category, ruleName)
	}

	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
