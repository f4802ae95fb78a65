// Package reconcile matches unreconciled credit transactions against
// pending member payments and confirms accepted matches.
package reconcile

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/calybase/treasury/internal/domain"
)

// MatchThreshold is the minimum confidence for a candidate to be proposed.
const MatchThreshold = 0.7

// Weight of each matching signal.
const (
	weightReference        = 0.5
	weightReferencePartial = 0.3
	weightAmount           = 0.3
	weightAmountClose      = 0.1
	weightDate             = 0.2
	weightName             = 0.2
)

// matchDateWindow is the number of days within which a payment's creation
// date still contributes to confidence.
const matchDateWindow = 7

// TransactionSource provides reconciliation candidates.
type TransactionSource interface {
	UnreconciledCredits(ctx context.Context) ([]domain.StoredTransaction, error)
}

// PaymentSource provides the pending payment set.
type PaymentSource interface {
	PendingPayments(ctx context.Context) ([]domain.Payment, error)
}

// Confirmer applies an accepted match atomically.
type Confirmer interface {
	ConfirmMatch(ctx context.Context, transactionID, paymentID string) error
}

// Matcher scores transaction/payment pairs and proposes matches above
// the confidence threshold.
type Matcher struct {
	transactions TransactionSource
	payments     PaymentSource
	confirmer    Confirmer
}

// NewMatcher creates a Matcher over the given sources.
func NewMatcher(txns TransactionSource, payments PaymentSource, confirmer Confirmer) *Matcher {
	return &Matcher{transactions: txns, payments: payments, confirmer: confirmer}
}

// Score computes the match confidence between a transaction and a payment,
// along with the signals that contributed. Confidence is capped at 1.0.
func Score(txn *domain.StoredTransaction, payment *domain.Payment) (float64, []domain.Signal) {
	var confidence float64
	var signals []domain.Signal

	if payment.Reference != "" {
		txnRef := strings.ToUpper(strings.TrimSpace(txn.Reference))
		payRef := strings.ToUpper(strings.TrimSpace(payment.Reference))
		switch {
		case txnRef != "" && txnRef == payRef:
			confidence += weightReference
			signals = append(signals, domain.SignalReference)
		case txnRef != "" && (strings.Contains(txnRef, payRef) || strings.Contains(payRef, txnRef)):
			confidence += weightReferencePartial
			signals = append(signals, domain.SignalReferencePartial)
		case strings.Contains(strings.ToUpper(txn.Description), payRef):
			// Reference buried in free text the extractor missed.
			confidence += weightReferencePartial
			signals = append(signals, domain.SignalReferencePartial)
		}
	}

	diff := math.Abs(txn.Amount - payment.Amount)
	if diff < 0.01 {
		confidence += weightAmount
		signals = append(signals, domain.SignalAmount)
	} else if diff < 1.00 {
		confidence += weightAmountClose
		signals = append(signals, domain.SignalAmountClose)
	}

	if !payment.CreatedAt.IsZero() {
		days := math.Abs(txn.Date.Sub(payment.CreatedAt).Hours()) / 24
		// At the window edge the decay reaches zero; a signal that
		// contributes nothing is not recorded.
		if w := weightDate * (1 - days/matchDateWindow); w > 0 {
			confidence += w
			signals = append(signals, domain.SignalDate)
		}
	}

	if payment.MemberName != "" && nameMatches(payment.MemberName, txn.Counterparty+" "+txn.Description) {
		confidence += weightName
		signals = append(signals, domain.SignalName)
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence, signals
}

// FindMatches scores every unreconciled credit against every pending
// payment and returns the candidates above the threshold, highest
// confidence first.
func (m *Matcher) FindMatches(ctx context.Context) ([]domain.Match, error) {
	txns, err := m.transactions.UnreconciledCredits(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load unreconciled transactions: %w", err)
	}
	payments, err := m.payments.PendingPayments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending payments: %w", err)
	}

	var matches []domain.Match
	for i := range txns {
		for j := range payments {
			confidence, signals := Score(&txns[i], &payments[j])
			if confidence <= MatchThreshold {
				continue
			}
			matches = append(matches, domain.Match{
				TransactionID: txns[i].ID,
				PaymentID:     payments[j].ID,
				Confidence:    confidence,
				Signals:       signals,
			})
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Confidence > matches[b].Confidence
	})
	return matches, nil
}

// Confirm applies a proposed match. The underlying store rejects
// already-reconciled transactions and non-pending payments.
func (m *Matcher) Confirm(ctx context.Context, transactionID, paymentID string) error {
	return m.confirmer.ConfirmMatch(ctx, transactionID, paymentID)
}

// nameMatches reports whether every significant token of the member name
// appears in the transaction text. Comparison is case-insensitive and
// diacritic-insensitive, with edit distance 1 tolerated per token to
// absorb bank-side typos ("Francois" vs "Franois").
func nameMatches(memberName, text string) bool {
	wanted := tokenize(memberName)
	if len(wanted) == 0 {
		return false
	}
	have := tokenize(text)

	for _, want := range wanted {
		if !tokenPresent(want, have) {
			return false
		}
	}
	return true
}

func tokenPresent(want string, have []string) bool {
	for _, got := range have {
		if got == want {
			return true
		}
		if len(want) >= 4 && levenshtein.ComputeDistance(want, got) <= 1 {
			return true
		}
	}
	return false
}

// tokenize folds text to lowercase ASCII-ish tokens, dropping
// single-letter fragments (initials, separators).
func tokenize(s string) []string {
	folded := foldDiacritics(strings.ToLower(s))
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldDiacritics(s string) string {
	out, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		return s
	}
	return out
}
