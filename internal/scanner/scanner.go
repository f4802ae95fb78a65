// Package scanner walks a directory tree and finds bank statement files.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/calybase/treasury/internal/domain"
)

// Scanner walks a directory tree and finds statement files
type Scanner struct {
	rootDir string
}

// New creates a new scanner for the given root directory
func New(rootDir string) *Scanner {
	return &Scanner{rootDir: rootDir}
}

// ScanResult represents a found statement file. BankHint is derived from
// the directory structure and may be BankAuto when the layout cannot be
// inferred from the path.
type ScanResult struct {
	Path     string
	BankHint domain.Bank
}

// Scan walks the directory tree and finds all statement files.
// Path structure: {root}/{bank}/file.csv, where the first directory level
// names the bank layout when it matches a known tag.
func (s *Scanner) Scan() ([]ScanResult, error) {
	var results []ScanResult

	rootDir := s.expandHome(s.rootDir)

	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !s.isStatementFile(path) {
			return nil
		}

		results = append(results, ScanResult{
			Path:     path,
			BankHint: s.bankHint(path, rootDir),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	return results, nil
}

// isStatementFile checks if file is a known statement format
func (s *Scanner) isStatementFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".qfx" || ext == ".ofx" || ext == ".csv"
}

// bankHint derives a bank layout from the first directory level under the
// root, so a tree like statements/belfius/mars.csv skips header detection.
func (s *Scanner) bankHint(filePath, rootDir string) domain.Bank {
	relPath, err := filepath.Rel(rootDir, filePath)
	if err != nil {
		return domain.BankAuto
	}

	parts := strings.Split(filepath.ToSlash(relPath), "/")
	if len(parts) < 2 {
		return domain.BankAuto
	}

	bank := domain.Bank(strings.ToLower(parts[0]))
	if domain.ValidateBank(bank) {
		return bank
	}
	return domain.BankAuto
}

// expandHome expands ~ to home directory
func (s *Scanner) expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
