package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/calybase/treasury/internal/domain"
)

// SQLiteStore is the local implementation for offline import and
// reconciliation. A SQLite transaction stands in for the Firestore
// WriteBatch atomicity guarantee.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS treasury (
	id                 TEXT PRIMARY KEY,
	date               TEXT NOT NULL,
	value_date         TEXT NOT NULL,
	account            TEXT NOT NULL DEFAULT '',
	counterparty       TEXT NOT NULL DEFAULT '',
	description        TEXT NOT NULL DEFAULT '',
	amount             REAL NOT NULL,
	balance            REAL NOT NULL DEFAULT 0,
	reference          TEXT NOT NULL DEFAULT '',
	category           TEXT NOT NULL,
	bank               TEXT NOT NULL,
	imported_at        TEXT NOT NULL,
	imported_by        TEXT NOT NULL DEFAULT '',
	import_batch_id    TEXT NOT NULL DEFAULT '',
	reconciled         INTEGER NOT NULL DEFAULT 0,
	matched_payment_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_treasury_dup ON treasury(date, amount, description);

CREATE TABLE IF NOT EXISTS payments (
	id             TEXT PRIMARY KEY,
	status         TEXT NOT NULL,
	amount         REAL NOT NULL,
	reference      TEXT NOT NULL DEFAULT '',
	member_name    TEXT NOT NULL DEFAULT '',
	transaction_id TEXT,
	created_at     TEXT NOT NULL
);
`

// OpenSQLite opens (and if needed initializes) a local store at path. Use
// ":memory:" for an ephemeral store in tests.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store %s: %w", path, err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// FindDuplicate runs the exact-match duplicate query by date, amount and
// description.
func (s *SQLiteStore) FindDuplicate(ctx context.Context, date time.Time, amount float64, description string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM treasury WHERE date = ? AND amount = ? AND description = ? LIMIT 1`,
		dateKey(date), amount, description,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("duplicate query failed: %w", err)
	}
	return true, nil
}

// SaveTransactions commits an import batch inside one SQLite transaction.
func (s *SQLiteStore) SaveTransactions(ctx context.Context, txns []domain.StoredTransaction) error {
	if len(txns) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO treasury (
			id, date, value_date, account, counterparty, description,
			amount, balance, reference, category, bank,
			imported_at, imported_by, import_batch_id, reconciled, matched_payment_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL)`)
	if err != nil {
		return fmt.Errorf("failed to prepare import insert: %w", err)
	}
	defer stmt.Close()

	for i := range txns {
		t := &txns[i]
		importedAt := t.ImportedAt
		if importedAt.IsZero() {
			importedAt = time.Now()
		}
		if _, err := stmt.ExecContext(ctx,
			t.ID, dateKey(t.Date), dateKey(t.ValueDate), t.Account, t.Counterparty,
			t.Description, t.Amount, t.Balance, t.Reference, string(t.Category),
			string(t.Bank), importedAt.UTC().Format(time.RFC3339), t.ImportedBy, t.ImportBatchID,
		); err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import batch of %d transactions: %w", len(txns), err)
	}
	return nil
}

// UnreconciledCredits returns positive-amount transactions not yet matched.
func (s *SQLiteStore) UnreconciledCredits(ctx context.Context) ([]domain.StoredTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, value_date, account, counterparty, description,
		       amount, balance, reference, category, bank,
		       imported_at, imported_by, import_batch_id, reconciled,
		       COALESCE(matched_payment_id, '')
		FROM treasury
		WHERE reconciled = 0 AND amount > 0
		ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("failed to query unreconciled transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.StoredTransaction
	for rows.Next() {
		var t domain.StoredTransaction
		var date, valueDate, importedAt, category, bank string
		var reconciled int
		if err := rows.Scan(
			&t.ID, &date, &valueDate, &t.Account, &t.Counterparty, &t.Description,
			&t.Amount, &t.Balance, &t.Reference, &category, &bank,
			&importedAt, &t.ImportedBy, &t.ImportBatchID, &reconciled, &t.MatchedPaymentID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		t.Date = parseDateKey(date)
		t.ValueDate = parseDateKey(valueDate)
		t.Category = domain.Category(category)
		t.Bank = domain.Bank(bank)
		t.Reconciled = reconciled != 0
		if ts, err := time.Parse(time.RFC3339, importedAt); err == nil {
			t.ImportedAt = ts
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// PendingPayments returns all payments still awaiting reconciliation.
func (s *SQLiteStore) PendingPayments(ctx context.Context) ([]domain.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, amount, reference, member_name,
		       COALESCE(transaction_id, ''), created_at
		FROM payments
		WHERE status = ?
		ORDER BY created_at`, string(domain.PaymentStatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to query pending payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		var statusStr, createdAt string
		if err := rows.Scan(&p.ID, &statusStr, &p.Amount, &p.Reference, &p.MemberName, &p.TransactionID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment row: %w", err)
		}
		p.Status = domain.PaymentStatus(statusStr)
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			p.CreatedAt = ts
		} else {
			p.CreatedAt = parseDateKey(createdAt)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// CreatePayment inserts an expected payment. The payments collection is
// externally owned in the hosted setup; local mode needs a way to seed it.
func (s *SQLiteStore) CreatePayment(ctx context.Context, p *domain.Payment) error {
	if p.ID == "" {
		return fmt.Errorf("payment ID cannot be empty")
	}
	status := p.Status
	if status == "" {
		status = domain.PaymentStatusPending
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, status, amount, reference, member_name, transaction_id, created_at)
		VALUES (?, ?, ?, ?, ?, NULL, ?)`,
		p.ID, string(status), p.Amount, p.Reference, p.MemberName, createdAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to create payment %s: %w", p.ID, err)
	}
	return nil
}

// ConfirmMatch atomically marks the transaction reconciled and the payment
// confirmed. Terminal: confirming an already-reconciled transaction fails
// with ErrAlreadyReconciled.
func (s *SQLiteStore) ConfirmMatch(ctx context.Context, transactionID, paymentID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin confirmation: %w", err)
	}
	defer tx.Rollback()

	var reconciled int
	err = tx.QueryRowContext(ctx, `SELECT reconciled FROM treasury WHERE id = ?`, transactionID).Scan(&reconciled)
	if err == sql.ErrNoRows {
		return fmt.Errorf("transaction %s: %w", transactionID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load transaction %s: %w", transactionID, err)
	}
	if reconciled != 0 {
		return fmt.Errorf("transaction %s: %w", transactionID, ErrAlreadyReconciled)
	}

	var statusStr string
	err = tx.QueryRowContext(ctx, `SELECT status FROM payments WHERE id = ?`, paymentID).Scan(&statusStr)
	if err == sql.ErrNoRows {
		return fmt.Errorf("payment %s: %w", paymentID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load payment %s: %w", paymentID, err)
	}
	if statusStr != string(domain.PaymentStatusPending) {
		return fmt.Errorf("payment %s has status %q: %w", paymentID, statusStr, ErrPaymentNotPending)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE treasury SET reconciled = 1, matched_payment_id = ? WHERE id = ?`,
		paymentID, transactionID); err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", transactionID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE payments SET status = ?, transaction_id = ? WHERE id = ?`,
		string(domain.PaymentStatusConfirmed), transactionID, paymentID); err != nil {
		return fmt.Errorf("failed to update payment %s: %w", paymentID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reconciliation of %s to %s: %w", transactionID, paymentID, err)
	}
	return nil
}

// AllTransactions returns every stored transaction, oldest first. Used by
// the CSV export.
func (s *SQLiteStore) AllTransactions(ctx context.Context) ([]domain.StoredTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, value_date, account, counterparty, description,
		       amount, balance, reference, category, bank,
		       imported_at, imported_by, import_batch_id, reconciled,
		       COALESCE(matched_payment_id, '')
		FROM treasury
		ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.StoredTransaction
	for rows.Next() {
		var t domain.StoredTransaction
		var date, valueDate, importedAt, category, bank string
		var reconciled int
		if err := rows.Scan(
			&t.ID, &date, &valueDate, &t.Account, &t.Counterparty, &t.Description,
			&t.Amount, &t.Balance, &t.Reference, &category, &bank,
			&importedAt, &t.ImportedBy, &t.ImportBatchID, &reconciled, &t.MatchedPaymentID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		t.Date = parseDateKey(date)
		t.ValueDate = parseDateKey(valueDate)
		t.Category = domain.Category(category)
		t.Bank = domain.Bank(bank)
		t.Reconciled = reconciled != 0
		if ts, err := time.Parse(time.RFC3339, importedAt); err == nil {
			t.ImportedAt = ts
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}
