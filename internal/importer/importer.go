// Package importer stages parsed transactions into the store with
// duplicate suppression and batch attribution.
package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/calybase/treasury/internal/domain"
)

// Store is the subset of the persistence layer the importer needs.
type Store interface {
	FindDuplicate(ctx context.Context, date time.Time, amount float64, description string) (bool, error)
	SaveTransactions(ctx context.Context, txns []domain.StoredTransaction) error
}

// InvalidTransaction records a transaction rejected before staging.
type InvalidTransaction struct {
	Transaction domain.Transaction
	Err         error
}

// Result summarizes one import batch.
type Result struct {
	BatchID    string
	Total      int
	Imported   []domain.StoredTransaction
	Duplicates []domain.Transaction
	Invalid    []InvalidTransaction
}

// Importer writes transaction batches to a Store.
type Importer struct {
	store Store
	now   func() time.Time
}

// New creates an Importer backed by store.
func New(store Store) *Importer {
	return &Importer{store: store, now: time.Now}
}

// Import stages txns into the store. Each transaction is checked against
// already-stored data by (date, amount, description); duplicates are
// skipped, never overwritten. The surviving set is written in a single
// atomic batch, so a failed import leaves no partial state.
func (im *Importer) Import(ctx context.Context, txns []domain.Transaction, importedBy string) (*Result, error) {
	result := &Result{
		BatchID: uuid.New().String(),
		Total:   len(txns),
	}
	importedAt := im.now()

	// Fingerprints of transactions already staged in this batch, so two
	// identical rows in one file count once.
	staged := make(map[string]struct{})

	for _, txn := range txns {
		if err := txn.Validate(); err != nil {
			result.Invalid = append(result.Invalid, InvalidTransaction{Transaction: txn, Err: err})
			continue
		}

		fp := fingerprint(&txn)
		if _, ok := staged[fp]; ok {
			result.Duplicates = append(result.Duplicates, txn)
			continue
		}

		dup, err := im.store.FindDuplicate(ctx, txn.Date, txn.Amount, txn.Description)
		if err != nil {
			return nil, fmt.Errorf("duplicate check failed: %w", err)
		}
		if dup {
			result.Duplicates = append(result.Duplicates, txn)
			continue
		}

		staged[fp] = struct{}{}
		result.Imported = append(result.Imported, domain.StoredTransaction{
			Transaction:   txn,
			ID:            DocumentID(&txn),
			ImportedAt:    importedAt,
			ImportedBy:    importedBy,
			ImportBatchID: result.BatchID,
		})
	}

	if len(result.Imported) > 0 {
		if err := im.store.SaveTransactions(ctx, result.Imported); err != nil {
			return nil, fmt.Errorf("failed to save import batch %s: %w", result.BatchID, err)
		}
	}

	return result, nil
}

func fingerprint(txn *domain.Transaction) string {
	return fmt.Sprintf("%s|%.2f|%s", txn.Date.Format("2006-01-02"), txn.Amount, txn.Description)
}
