package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ledger-sync/internal/logging"
	"github.com/ledger-sync/internal/models"
)

// handleListPortfolios handles GET /api/v1/portfolios
func (s *Server) handleListPortfolios(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.store.ListPortfolios(userIDFrom(r)))
}

// handleCreatePortfolio handles POST /api/v1/portfolios
func (s *Server) handleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var draft models.PortfolioDraft
	if err := parseJSONBody(r, &draft); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	p, err := s.store.CreatePortfolio(userIDFrom(r), draft)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// handleGetPortfolio handles GET /api/v1/portfolios/{id}
func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetPortfolio(userIDFrom(r), mux.Vars(r)["id"])
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// handleUpdatePortfolio handles PUT /api/v1/portfolios/{id}
func (s *Server) handleUpdatePortfolio(w http.ResponseWriter, r *http.Request) {
	var patch models.PortfolioPatch
	if err := parseJSONBody(r, &patch); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	p, err := s.store.UpdatePortfolio(userIDFrom(r), mux.Vars(r)["id"], patch)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// handleDeletePortfolio handles DELETE /api/v1/portfolios/{id}
func (s *Server) handleDeletePortfolio(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeletePortfolio(userIDFrom(r), mux.Vars(r)["id"]); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// handleClonePortfolio handles POST /api/v1/portfolios/import
func (s *Server) handleClonePortfolio(w http.ResponseWriter, r *http.Request) {
	var req models.CloneRequest
	if err := parseJSONBody(r, &req); err != nil || req.SourceID == "" {
		respondError(w, http.StatusUnprocessableEntity, "source_id is required")
		return
	}

	p, err := s.store.ClonePortfolio(userIDFrom(r), req.SourceID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// handleImportBybit handles POST /api/v1/portfolios/{id}/import/bybit
func (s *Server) handleImportBybit(w http.ResponseWriter, r *http.Request) {
	var keys models.ExternalKeys
	if err := parseJSONBody(r, &keys); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	portfolioID := mux.Vars(r)["id"]
	p, err := s.store.ImportExternal(userIDFrom(r), portfolioID, keys)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	logging.FromContext(r.Context()).WithField("portfolioId", portfolioID).Info("exchange balances imported")
	respondJSON(w, http.StatusOK, p)
}
