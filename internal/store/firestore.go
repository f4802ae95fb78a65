package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/calybase/treasury/internal/domain"
)

// firestoreBatchLimit is the platform cap on writes per batch. Import
// batches beyond it would silently lose atomicity, so they are rejected.
const firestoreBatchLimit = 500

// FirestoreStore persists treasury data in Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// transactionDoc is the treasury collection document shape. Dates are
// stored as YYYY-MM-DD strings so the exact duplicate query can compare
// them without timezone drift.
type transactionDoc struct {
	ID               string    `firestore:"id"`
	Date             string    `firestore:"date"`
	ValueDate        string    `firestore:"valueDate"`
	Account          string    `firestore:"account"`
	Counterparty     string    `firestore:"counterparty"`
	Description      string    `firestore:"description"`
	Amount           float64   `firestore:"amount"`
	Balance          float64   `firestore:"balance"`
	Reference        string    `firestore:"reference"`
	Category         string    `firestore:"category"`
	Bank             string    `firestore:"bank"`
	ImportedAt       time.Time `firestore:"importedAt,serverTimestamp"`
	ImportedBy       string    `firestore:"importedBy"`
	ImportBatchID    string    `firestore:"importBatchId"`
	Reconciled       bool      `firestore:"reconciled"`
	MatchedPaymentID *string   `firestore:"matchedPaymentId"`
}

// paymentDoc is the payments collection document shape. The collection is
// externally owned; this store only reads pending payments and writes the
// confirmation fields.
type paymentDoc struct {
	ID            string    `firestore:"id"`
	Status        string    `firestore:"status"`
	Amount        float64   `firestore:"amount"`
	Reference     string    `firestore:"reference"`
	MemberName    string    `firestore:"memberName"`
	TransactionID string    `firestore:"transactionId"`
	CreatedAt     time.Time `firestore:"createdAt"`
}

// NewFirestoreStore creates a Firestore-backed store for the given project.
func NewFirestoreStore(ctx context.Context, projectID string, opts ...option.ClientOption) (*FirestoreStore, error) {
	conf := &firebase.Config{ProjectID: projectID}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return &FirestoreStore{client: client}, nil
}

// Close closes the underlying client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// FindDuplicate runs the exact-match duplicate query by date, amount and
// description against the treasury collection.
func (s *FirestoreStore) FindDuplicate(ctx context.Context, date time.Time, amount float64, description string) (bool, error) {
	iter := s.client.Collection(TreasuryCollection).
		Where("date", "==", dateKey(date)).
		Where("amount", "==", amount).
		Where("description", "==", description).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	_, err := iter.Next()
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("duplicate query failed: %w", err)
	}
	return true, nil
}

// SaveTransactions commits an import batch as a single atomic write.
func (s *FirestoreStore) SaveTransactions(ctx context.Context, txns []domain.StoredTransaction) error {
	if len(txns) == 0 {
		return nil
	}
	if len(txns) > firestoreBatchLimit {
		return fmt.Errorf("import batch of %d transactions exceeds the %d-write atomic batch limit", len(txns), firestoreBatchLimit)
	}

	batch := s.client.Batch()
	for i := range txns {
		doc := toTransactionDoc(&txns[i])
		batch.Set(s.client.Collection(TreasuryCollection).Doc(doc.ID), doc)
	}

	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit import batch of %d transactions: %w", len(txns), err)
	}
	return nil
}

// UnreconciledCredits returns the positive-amount transactions that have
// not yet been matched to a payment.
func (s *FirestoreStore) UnreconciledCredits(ctx context.Context) ([]domain.StoredTransaction, error) {
	iter := s.client.Collection(TreasuryCollection).
		Where("reconciled", "==", false).
		Where("amount", ">", 0.0).
		Documents(ctx)
	defer iter.Stop()

	var txns []domain.StoredTransaction
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate unreconciled transactions: %w", err)
		}

		var doc transactionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode transaction %s: %w", snap.Ref.ID, err)
		}
		txns = append(txns, fromTransactionDoc(&doc))
	}
	return txns, nil
}

// PendingPayments returns all payments still awaiting reconciliation.
func (s *FirestoreStore) PendingPayments(ctx context.Context) ([]domain.Payment, error) {
	iter := s.client.Collection(PaymentsCollection).
		Where("status", "==", string(domain.PaymentStatusPending)).
		Documents(ctx)
	defer iter.Stop()

	var payments []domain.Payment
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate pending payments: %w", err)
		}

		var doc paymentDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode payment %s: %w", snap.Ref.ID, err)
		}
		if doc.ID == "" {
			doc.ID = snap.Ref.ID
		}
		payments = append(payments, domain.Payment{
			ID:            doc.ID,
			Status:        domain.PaymentStatus(doc.Status),
			Amount:        doc.Amount,
			Reference:     doc.Reference,
			MemberName:    doc.MemberName,
			TransactionID: doc.TransactionID,
			CreatedAt:     doc.CreatedAt,
		})
	}
	return payments, nil
}

// AllTransactions returns every stored transaction, oldest first. Used by
// the CSV export.
func (s *FirestoreStore) AllTransactions(ctx context.Context) ([]domain.StoredTransaction, error) {
	iter := s.client.Collection(TreasuryCollection).OrderBy("date", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var txns []domain.StoredTransaction
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate transactions: %w", err)
		}

		var doc transactionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode transaction %s: %w", snap.Ref.ID, err)
		}
		txns = append(txns, fromTransactionDoc(&doc))
	}
	return txns, nil
}

// CreatePayment inserts an expected payment document. The payments
// collection is normally written by the membership app; this exists for
// seeding and tooling.
func (s *FirestoreStore) CreatePayment(ctx context.Context, p *domain.Payment) error {
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
	doc := paymentDoc{
		ID:         p.ID,
		Status:     string(status),
		Amount:     p.Amount,
		Reference:  p.Reference,
		MemberName: p.MemberName,
		CreatedAt:  createdAt,
	}
	if _, err := s.client.Collection(PaymentsCollection).Doc(p.ID).Set(ctx, doc); err != nil {
		return fmt.Errorf("failed to create payment %s: %w", p.ID, err)
	}
	return nil
}

// ConfirmMatch atomically marks the transaction reconciled and the payment
// confirmed. Reconciliation is terminal: a second confirmation of the same
// transaction fails with ErrAlreadyReconciled. The guard reads and the two
// updates run inside one Firestore transaction, so concurrent confirmations
// of the same transaction cannot both pass the reconciled check.
func (s *FirestoreStore) ConfirmMatch(ctx context.Context, transactionID, paymentID string) error {
	txnRef := s.client.Collection(TreasuryCollection).Doc(transactionID)
	payRef := s.client.Collection(PaymentsCollection).Doc(paymentID)

	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		txnSnap, err := tx.Get(txnRef)
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("transaction %s: %w", transactionID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load transaction %s: %w", transactionID, err)
		}
		var txnDoc transactionDoc
		if err := txnSnap.DataTo(&txnDoc); err != nil {
			return fmt.Errorf("failed to decode transaction %s: %w", transactionID, err)
		}
		if txnDoc.Reconciled {
			return fmt.Errorf("transaction %s: %w", transactionID, ErrAlreadyReconciled)
		}

		paySnap, err := tx.Get(payRef)
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("payment %s: %w", paymentID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load payment %s: %w", paymentID, err)
		}
		var payDoc paymentDoc
		if err := paySnap.DataTo(&payDoc); err != nil {
			return fmt.Errorf("failed to decode payment %s: %w", paymentID, err)
		}
		if payDoc.Status != string(domain.PaymentStatusPending) {
			return fmt.Errorf("payment %s has status %q: %w", paymentID, payDoc.Status, ErrPaymentNotPending)
		}

		if err := tx.Update(txnRef, []firestore.Update{
			{Path: "reconciled", Value: true},
			{Path: "matchedPaymentId", Value: paymentID},
		}); err != nil {
			return fmt.Errorf("failed to update transaction %s: %w", transactionID, err)
		}
		if err := tx.Update(payRef, []firestore.Update{
			{Path: "status", Value: string(domain.PaymentStatusConfirmed)},
			{Path: "transactionId", Value: transactionID},
		}); err != nil {
			return fmt.Errorf("failed to update payment %s: %w", paymentID, err)
		}
		return nil
	})
}

func toTransactionDoc(t *domain.StoredTransaction) *transactionDoc {
	doc := &transactionDoc{
		ID:            t.ID,
		Date:          dateKey(t.Date),
		ValueDate:     dateKey(t.ValueDate),
		Account:       t.Account,
		Counterparty:  t.Counterparty,
		Description:   t.Description,
		Amount:        t.Amount,
		Balance:       t.Balance,
		Reference:     t.Reference,
		Category:      string(t.Category),
		Bank:          string(t.Bank),
		ImportedBy:    t.ImportedBy,
		ImportBatchID: t.ImportBatchID,
		Reconciled:    t.Reconciled,
	}
	if t.MatchedPaymentID != "" {
		id := t.MatchedPaymentID
		doc.MatchedPaymentID = &id
	}
	return doc
}

func fromTransactionDoc(doc *transactionDoc) domain.StoredTransaction {
	t := domain.StoredTransaction{
		ID: doc.ID,
		Transaction: domain.Transaction{
			Date:         parseDateKey(doc.Date),
			ValueDate:    parseDateKey(doc.ValueDate),
			Account:      doc.Account,
			Counterparty: doc.Counterparty,
			Description:  doc.Description,
			Amount:       doc.Amount,
			Balance:      doc.Balance,
			Reference:    doc.Reference,
			Category:     domain.Category(doc.Category),
			Bank:         domain.Bank(doc.Bank),
		},
		ImportedAt:    doc.ImportedAt,
		ImportedBy:    doc.ImportedBy,
		ImportBatchID: doc.ImportBatchID,
		Reconciled:    doc.Reconciled,
	}
	if doc.MatchedPaymentID != nil {
		t.MatchedPaymentID = *doc.MatchedPaymentID
	}
	return t
}

func parseDateKey(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
