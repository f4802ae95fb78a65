package importer

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/calybase/treasury/internal/domain"
)

// DocumentID creates a deterministic document ID for a transaction.
// Format: {bank}-{YYYY-MM-DD}-{reference}-{amount}
//
// Deterministic IDs make re-imports of the same statement idempotent at
// the store level even if the duplicate query misses. Transactions without
// a reference take a short description hash instead, so two same-day
// payments of the same amount with different descriptions never collide
// on one document.
func DocumentID(txn *domain.Transaction) string {
	dateStr := txn.Date.Format("2006-01-02")

	// Sanitize reference for use in ID (replace spaces and special chars)
	refStr := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, txn.Reference)

	// Truncate reference if too long
	if len(refStr) > 20 {
		refStr = refStr[:20]
	}

	if refStr == "" {
		refStr = descriptionKey(txn.Description)
	}

	// Format amount without decimal point
	amountStr := fmt.Sprintf("%.2f", txn.Amount)
	amountStr = strings.ReplaceAll(amountStr, ".", "")
	amountStr = strings.ReplaceAll(amountStr, "-", "n")

	bank := txn.Bank
	if bank == "" {
		bank = domain.BankGeneric
	}

	return fmt.Sprintf("%s-%s-%s-%s", bank, dateStr, refStr, amountStr)
}

// descriptionKey stands in for a missing reference: the first 8 hex chars
// of the description's SHA-256. Deterministic per description, so only
// exact duplicates (already caught by the duplicate query) share one.
func descriptionKey(description string) string {
	if strings.TrimSpace(description) == "" {
		return "notx"
	}
	sum := sha256.Sum256([]byte(description))
	return fmt.Sprintf("%x", sum[:4])
}
