// Package store persists treasury transactions and expected payments. Two
// implementations exist: a Firestore-backed store for the hosted setup and a
// local SQLite store for offline use. Both guarantee that the import commit
// and the reconciliation confirmation happen as single atomic batches.
package store

import (
	"errors"
	"time"
)

// Collection / table names shared by both implementations.
const (
	TreasuryCollection = "treasury"
	PaymentsCollection = "payments"
)

var (
	// ErrNotFound reports a missing transaction or payment document.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyReconciled guards the terminal reconciliation state: a
	// transaction is reconciled at most once and never un-reconciled.
	ErrAlreadyReconciled = errors.New("transaction already reconciled")
	// ErrPaymentNotPending reports a confirmation attempt against a payment
	// that is not in the pending state.
	ErrPaymentNotPending = errors.New("payment is not pending")
)

// dateKey formats a date the way both stores index it for the exact
// duplicate query.
func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
