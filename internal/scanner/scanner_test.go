package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/calybase/treasury/internal/domain"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("Date,Montant\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "belfius", "mars.csv"))
	writeFile(t, filepath.Join(root, "belfius", "avril.CSV"))
	writeFile(t, filepath.Join(root, "exports", "bank.ofx"))
	writeFile(t, filepath.Join(root, "loose.csv"))
	writeFile(t, filepath.Join(root, "notes.txt"))

	s := New(root)
	results, err := s.Scan()
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if len(results) != 4 {
		t.Fatalf("Scan() found %d files, want 4: %+v", len(results), results)
	}

	hints := map[string]domain.Bank{}
	for _, r := range results {
		rel, _ := filepath.Rel(root, r.Path)
		hints[filepath.ToSlash(rel)] = r.BankHint
	}

	if hints["belfius/mars.csv"] != domain.BankBelfius {
		t.Errorf("belfius/mars.csv hint = %s, want belfius", hints["belfius/mars.csv"])
	}
	if hints["belfius/avril.CSV"] != domain.BankBelfius {
		t.Errorf("belfius/avril.CSV hint = %s, want belfius", hints["belfius/avril.CSV"])
	}
	// A directory that is not a bank tag falls back to auto-detection.
	if hints["exports/bank.ofx"] != domain.BankAuto {
		t.Errorf("exports/bank.ofx hint = %s, want auto", hints["exports/bank.ofx"])
	}
	if hints["loose.csv"] != domain.BankAuto {
		t.Errorf("loose.csv hint = %s, want auto", hints["loose.csv"])
	}
}

func TestScanMissingDirectory(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing"))
	if _, err := s.Scan(); err == nil {
		t.Error("Scan() of missing directory succeeded, want error")
	}
}
