package api

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/EmanAguilera/fiambond/internal/domain"
)

// ─── Ledger Handlers ────────────────────────────────────────────────────────
//
// POST /api/transactions — append a standalone income/expense entry
// GET  /api/transactions?user_id=&family_id=&loan_id= — list entries
// GET  /api/balance?user_id=&family_id= — scope balance

type createTransactionRequest struct {
	FamilyID      string          `json:"family_id"`
	Type          domain.TxType   `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	AttachmentURL string          `json:"attachment_url"`
}

// handleCreateTransaction appends a non-loan ledger entry for the actor.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == "" {
		return
	}
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tx, err := s.engine.AppendTransaction(r.Context(), actor, domain.Transaction{
		FamilyID:      req.FamilyID,
		Type:          req.Type,
		Amount:        req.Amount,
		Description:   req.Description,
		AttachmentURL: req.AttachmentURL,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// handleListTransactions lists ledger entries newest first.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	txs, err := s.ledger.ListTransactions(r.Context(), domain.TxFilter{
		UserID:       q.Get("user_id"),
		FamilyID:     q.Get("family_id"),
		LoanID:       q.Get("loan_id"),
		PersonalOnly: q.Get("scope") == "personal",
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": txs})
}

// handleBalance returns sum(income) − sum(expense) for a (user, family)
// scope. Omitting family_id gives the personal ledger.
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	balance, err := s.engine.Balance(r.Context(), userID, q.Get("family_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":   userID,
		"family_id": q.Get("family_id"),
		"balance":   balance,
	})
}
