package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/EmanAguilera/fiambond/internal/app/lifecycle"
	"github.com/EmanAguilera/fiambond/internal/domain"
)

// ─── Loan Handlers ──────────────────────────────────────────────────────────
//
// POST   /api/loans                        — create (actor: creditor)
// GET    /api/loans?user_id=&family_id=    — list; view=buckets for projection
// GET    /api/loans/{id}                   — fetch
// DELETE /api/loans/{id}                   — delete (no repayments yet)
// POST   /api/loans/{id}/confirm           — debtor confirms receipt
// POST   /api/loans/{id}/repayments        — debtor submits a repayment
// POST   /api/loans/{id}/repayments/confirm — creditor confirms it
// POST   /api/loans/{id}/repayments/record  — creditor records directly

type createLoanRequest struct {
	FamilyID       string          `json:"family_id"`
	DebtorID       string          `json:"debtor_id"`
	DebtorName     string          `json:"debtor_name"`
	Amount         decimal.Decimal `json:"amount"`
	InterestAmount decimal.Decimal `json:"interest_amount"`
	Description    string          `json:"description"`
	Deadline       *time.Time      `json:"deadline,omitempty"`
	AttachmentURL  string          `json:"attachment_url"`
}

type repaymentRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	ReceiptURL string          `json:"receipt_url"`
}

// handleCreateLoan creates a loan for the acting creditor.
func (s *Server) handleCreateLoan(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == "" {
		return
	}

	var req createLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	loan, err := s.engine.CreateLoan(r.Context(), actor, lifecycle.CreateLoanInput{
		FamilyID:       req.FamilyID,
		DebtorID:       req.DebtorID,
		DebtorName:     req.DebtorName,
		Amount:         req.Amount,
		InterestAmount: req.InterestAmount,
		Description:    req.Description,
		Deadline:       req.Deadline,
		AttachmentURL:  req.AttachmentURL,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

// handleListLoans lists loans by participant and/or family. With
// view=buckets and a user_id, loans come back grouped by the viewer's
// display buckets.
func (s *Server) handleListLoans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.LoanFilter{
		UserID:   q.Get("user_id"),
		FamilyID: q.Get("family_id"),
		Status:   domain.LoanStatus(q.Get("status")),
	}

	loans, err := s.loans.ListLoans(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if loans == nil {
		loans = []domain.Loan{}
	}

	if q.Get("view") == "buckets" {
		viewer := q.Get("user_id")
		if viewer == "" {
			writeError(w, http.StatusBadRequest, "view=buckets requires user_id")
			return
		}
		buckets := map[domain.LoanBucket][]domain.Loan{
			domain.BucketActionRequired: {},
			domain.BucketLent:           {},
			domain.BucketBorrowed:       {},
			domain.BucketRepaid:         {},
		}
		for _, l := range loans {
			b := lifecycle.Bucket(&l, viewer)
			buckets[b] = append(buckets[b], l)
		}
		writeJSON(w, http.StatusOK, buckets)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"loans": loans})
}

// handleGetLoan fetches one loan.
func (s *Server) handleGetLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := s.loans.GetLoan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// handleDeleteLoan removes a loan with no repayment history.
func (s *Server) handleDeleteLoan(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == "" {
		return
	}
	if err := s.engine.DeleteLoan(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleConfirmLoan acknowledges receipt of the funds (debtor).
func (s *Server) handleConfirmLoan(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == "" {
		return
	}
	loan, err := s.engine.ConfirmLoan(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// handleSubmitRepayment proposes a repayment (debtor).
func (s *Server) handleSubmitRepayment(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == "" {
		return
	}
	var req repaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	loan, err := s.engine.SubmitRepayment(r.Context(), actor, chi.URLParam(r, "id"), lifecycle.RepaymentInput{
		Amount:     req.Amount,
		ReceiptURL: req.ReceiptURL,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// handleConfirmRepayment settles the pending repayment (creditor).
func (s *Server) handleConfirmRepayment(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == "" {
		return
	}
	loan, err := s.engine.ConfirmRepayment(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// handleRecordRepayment records a personal-loan repayment (creditor).
func (s *Server) handleRecordRepayment(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == "" {
		return
	}
	var req repaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	loan, err := s.engine.RecordRepayment(r.Context(), actor, chi.URLParam(r, "id"), lifecycle.RepaymentInput{
		Amount:     req.Amount,
		ReceiptURL: req.ReceiptURL,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}
