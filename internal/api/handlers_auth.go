package api

import (
	"net/http"
	"time"

	"github.com/ledger-sync/internal/models"
)

const defaultTokenTTL = 24 * time.Hour

type registerRequest struct {
	Email string `json:"email"`
}

// handleRegister handles POST /api/v1/auth/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if err := s.store.Register(req.Email); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]bool{"ok": true})
}

// handleLogin handles POST /api/v1/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := parseJSONBody(r, &creds); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	token, err := s.store.Login(creds.Email, creds.Password)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	ttl := s.config.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	respondJSON(w, http.StatusOK, models.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(ttl / time.Second),
	})
}

// handleMe handles GET /api/v1/auth/me
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	me, err := s.store.Me(userIDFrom(r))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, me)
}
