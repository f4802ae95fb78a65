// Package export writes stored transactions back out as CSV for
// spreadsheet review and accounting handoff.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/calybase/treasury/internal/domain"
)

var csvHeader = []string{
	"Date", "Value Date", "Account", "Counterparty", "Description",
	"Reference", "Amount", "Balance", "Category", "Reconciled", "Bank",
}

// WriteCSV writes txns to w with a header row. Dates use ISO format and
// amounts keep two decimals so the file round-trips through the generic
// statement parser.
func WriteCSV(txns []domain.StoredTransaction, w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range txns {
		t := &txns[i]
		record := []string{
			t.Date.Format("2006-01-02"),
			t.ValueDate.Format("2006-01-02"),
			t.Account,
			t.Counterparty,
			t.Description,
			t.Reference,
			strconv.FormatFloat(t.Amount, 'f', 2, 64),
			strconv.FormatFloat(t.Balance, 'f', 2, 64),
			string(t.Category),
			strconv.FormatBool(t.Reconciled),
			string(t.Bank),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write transaction %s: %w", t.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV output: %w", err)
	}
	return nil
}

// WriteCSVFile writes txns to filePath, or stdout when filePath is empty.
func WriteCSVFile(txns []domain.StoredTransaction, filePath string) (err error) {
	if filePath == "" {
		return WriteCSV(txns, os.Stdout)
	}

	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", filePath, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close output file %s: %w", filePath, closeErr)
		}
	}()

	if err = WriteCSV(txns, f); err != nil {
		return fmt.Errorf("failed to write transactions to %s: %w", filePath, err)
	}
	return nil
}
