// Package api provides the HTTP server for the FiamBond loan service.
//
// It exposes the loan lifecycle transitions, the transaction ledger, and the
// minimal user/family directory behind a chi router. Actor identity arrives
// in the X-User-ID header; session management lives in front of this
// service, and every lifecycle operation takes the actor explicitly.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/EmanAguilera/fiambond/internal/app/lifecycle"
	"github.com/EmanAguilera/fiambond/internal/domain"
)

// Server is the FiamBond HTTP API server.
type Server struct {
	engine         *lifecycle.Engine
	loans          domain.LoanStore
	ledger         domain.Ledger
	dir            domain.Directory
	limiter        *RateLimiter
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(engine *lifecycle.Engine, loans domain.LoanStore, ledger domain.Ledger, dir domain.Directory) *Server {
	return &Server{engine: engine, loans: loans, ledger: ledger, dir: dir}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetRateLimiter installs per-IP rate limiting on the API routes.
func (s *Server) SetRateLimiter(rl *RateLimiter) { s.limiter = rl }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Minute))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(RateLimitMiddleware(s.limiter))
		}

		r.Route("/loans", func(r chi.Router) {
			r.Post("/", s.handleCreateLoan)
			r.Get("/", s.handleListLoans)
			r.Get("/{id}", s.handleGetLoan)
			r.Delete("/{id}", s.handleDeleteLoan)
			r.Post("/{id}/confirm", s.handleConfirmLoan)
			r.Post("/{id}/repayments", s.handleSubmitRepayment)
			r.Post("/{id}/repayments/confirm", s.handleConfirmRepayment)
			r.Post("/{id}/repayments/record", s.handleRecordRepayment)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", s.handleCreateTransaction)
			r.Get("/", s.handleListTransactions)
		})

		r.Get("/balance", s.handleBalance)

		r.Route("/users", func(r chi.Router) {
			r.Post("/", s.handleCreateUser)
			r.Get("/{id}", s.handleGetUser)
		})
		r.Route("/families", func(r chi.Router) {
			r.Post("/", s.handleCreateFamily)
			r.Post("/{id}/members", s.handleAddMember)
		})
	})

	return r
}

// ─── Shared Helpers ─────────────────────────────────────────────────────────

// actorID extracts the acting user from the request. Empty means
// unauthenticated.
func actorID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

// requireActor writes a 401 and returns "" when no actor is present.
func requireActor(w http.ResponseWriter, r *http.Request) string {
	actor := actorID(r)
	if actor == "" {
		writeError(w, http.StatusUnauthorized, "X-User-ID header required")
	}
	return actor
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeDomainError maps a domain error onto an HTTP status. Validation and
// precondition violations are 422s, authorization failures 403s, lost
// optimistic-concurrency races 409s.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrLoanNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrFamilyNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotCreditor),
		errors.Is(err, domain.ErrNotDebtor),
		errors.Is(err, domain.ErrNotFamilyMember):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrNegativeInterest),
		errors.Is(err, domain.ErrAmountTooLarge),
		errors.Is(err, domain.ErrMissingCounterparty),
		errors.Is(err, domain.ErrMissingDescription),
		errors.Is(err, domain.ErrSelfLoan),
		errors.Is(err, domain.ErrInvalidEntryType),
		errors.Is(err, domain.ErrNotAwaitingConfirmation),
		errors.Is(err, domain.ErrLoanNotOutstanding),
		errors.Is(err, domain.ErrLoanSettled),
		errors.Is(err, domain.ErrRepaymentPending),
		errors.Is(err, domain.ErrNoPendingRepayment),
		errors.Is(err, domain.ErrFamilyLoanOnly),
		errors.Is(err, domain.ErrPersonalLoanOnly),
		errors.Is(err, domain.ErrLoanHasRepayments):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// corsMiddleware adds CORS headers for the browser clients.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
