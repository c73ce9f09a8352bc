package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/EmanAguilera/fiambond/internal/domain"
)

// ─── Directory Handlers ─────────────────────────────────────────────────────
// Minimal user/family maintenance: enough to resolve counterparties and back
// the family-membership checks on loan creation.

// handleCreateUser registers a user. Clients migrating existing accounts may
// supply their own id; otherwise one is generated.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       string `json:"id"`
		FullName string `json:"full_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.FullName == "" {
		writeError(w, http.StatusUnprocessableEntity, "full_name is required")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	user := domain.User{ID: req.ID, FullName: req.FullName, CreatedAt: time.Now().UTC()}
	if err := s.dir.CreateUser(r.Context(), user); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// handleGetUser fetches a user.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.dir.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleCreateFamily registers a family owned by the actor, who becomes the
// first member.
func (s *Server) handleCreateFamily(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == "" {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}

	family := domain.Family{ID: uuid.NewString(), Name: req.Name, OwnerID: actor, CreatedAt: time.Now().UTC()}
	if err := s.dir.CreateFamily(r.Context(), family); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, family)
}

// handleAddMember enrolls a user in a family. Only existing members may add.
func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	actor := requireActor(w, r)
	if actor == "" {
		return
	}
	familyID := chi.URLParam(r, "id")

	member, err := s.dir.IsMember(r.Context(), familyID, actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !member {
		writeDomainError(w, domain.ErrNotFamilyMember)
		return
	}

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.dir.AddMember(r.Context(), familyID, req.UserID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "member added"})
}
