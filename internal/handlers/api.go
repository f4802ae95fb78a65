// Package handlers implements the treasury HTTP API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/calybase/treasury/internal/domain"
	"github.com/calybase/treasury/internal/export"
	"github.com/calybase/treasury/internal/importer"
	"github.com/calybase/treasury/internal/reconcile"
	"github.com/calybase/treasury/internal/statement"
	"github.com/calybase/treasury/internal/store"
	"github.com/calybase/treasury/internal/validate"
)

// maxStatementSize caps uploaded statement files at 10 MB.
const maxStatementSize = 10 << 20

// Store is the persistence surface the API needs, satisfied by both the
// Firestore and SQLite stores.
type Store interface {
	FindDuplicate(ctx context.Context, date time.Time, amount float64, description string) (bool, error)
	SaveTransactions(ctx context.Context, txns []domain.StoredTransaction) error
	UnreconciledCredits(ctx context.Context) ([]domain.StoredTransaction, error)
	PendingPayments(ctx context.Context) ([]domain.Payment, error)
	ConfirmMatch(ctx context.Context, transactionID, paymentID string) error
	AllTransactions(ctx context.Context) ([]domain.StoredTransaction, error)
}

// APIHandler handles API requests
type APIHandler struct {
	store   Store
	parser  *statement.Parser
	matcher *reconcile.Matcher
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(s Store, parser *statement.Parser) *APIHandler {
	return &APIHandler{
		store:   s,
		parser:  parser,
		matcher: reconcile.NewMatcher(s, s, s),
	}
}

// importResponse is the JSON shape returned by Import.
type importResponse struct {
	BatchID    string                       `json:"batchId"`
	Bank       domain.Bank                  `json:"bank"`
	Total      int                          `json:"total"`
	Imported   int                          `json:"imported"`
	Duplicates int                          `json:"duplicates"`
	Invalid    int                          `json:"invalid"`
	Warnings   []validate.ValidationWarning `json:"warnings,omitempty"`
	Errors     []validate.ValidationError   `json:"errors,omitempty"`
	Imports    []domain.StoredTransaction   `json:"transactions,omitempty"`
}

// Import handles POST /api/import. The statement file is the request body;
// the bank layout and importing user come from query parameters.
func (h *APIHandler) Import(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxStatementSize))
	if err != nil {
		http.Error(w, "Failed to read statement body", http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		http.Error(w, "Empty statement body", http.StatusBadRequest)
		return
	}

	bank := domain.Bank(r.URL.Query().Get("bank"))
	if bank == "" {
		bank = domain.BankAuto
	}
	importedBy := r.URL.Query().Get("user")
	if importedBy == "" {
		importedBy = "api"
	}

	parsed, err := h.parser.Parse(string(body), bank)
	if err != nil {
		http.Error(w, "Failed to parse statement: "+err.Error(), http.StatusBadRequest)
		return
	}

	report := validate.ValidateBatch(parsed)

	result, err := importer.New(h.store).Import(r.Context(), parsed.Transactions, importedBy)
	if err != nil {
		log.Printf("ERROR: import failed for user %s: %v", importedBy, err)
		http.Error(w, "Failed to import transactions", http.StatusInternalServerError)
		return
	}

	writeJSON(w, importResponse{
		BatchID:    result.BatchID,
		Bank:       parsed.Bank,
		Total:      result.Total,
		Imported:   len(result.Imported),
		Duplicates: len(result.Duplicates),
		Invalid:    len(result.Invalid),
		Warnings:   report.Warnings,
		Errors:     report.Errors,
		Imports:    result.Imported,
	})
}

// Matches handles GET /api/matches
func (h *APIHandler) Matches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	matches, err := h.matcher.FindMatches(r.Context())
	if err != nil {
		log.Printf("ERROR: match search failed: %v", err)
		http.Error(w, "Failed to find matches", http.StatusInternalServerError)
		return
	}
	if matches == nil {
		matches = []domain.Match{}
	}

	writeJSON(w, matches)
}

type confirmRequest struct {
	TransactionID string `json:"transactionId"`
	PaymentID     string `json:"paymentId"`
}

// ConfirmMatch handles POST /api/matches/confirm
func (h *APIHandler) ConfirmMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.TransactionID == "" || req.PaymentID == "" {
		http.Error(w, "transactionId and paymentId are required", http.StatusBadRequest)
		return
	}

	err := h.matcher.Confirm(r.Context(), req.TransactionID, req.PaymentID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, store.ErrAlreadyReconciled), errors.Is(err, store.ErrPaymentNotPending):
		http.Error(w, err.Error(), http.StatusConflict)
	case err != nil:
		log.Printf("ERROR: confirmation of %s/%s failed: %v", req.TransactionID, req.PaymentID, err)
		http.Error(w, "Failed to confirm match", http.StatusInternalServerError)
	default:
		writeJSON(w, map[string]string{
			"transactionId": req.TransactionID,
			"paymentId":     req.PaymentID,
			"status":        "confirmed",
		})
	}
}

// Export handles GET /api/export, streaming all transactions as CSV.
func (h *APIHandler) Export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	txns, err := h.store.AllTransactions(r.Context())
	if err != nil {
		log.Printf("ERROR: export query failed: %v", err)
		http.Error(w, "Failed to load transactions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="treasury.csv"`)
	if err := export.WriteCSV(txns, w); err != nil {
		log.Printf("ERROR: failed to write CSV export: %v", err)
	}
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode response: %v", err)
	}
}
