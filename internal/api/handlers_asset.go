package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ledger-sync/internal/models"
)

// handleListAssets handles GET /api/v1/portfolios/{id}/assets
func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := s.store.ListAssets(userIDFrom(r), mux.Vars(r)["id"])
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, assets)
}

// handleCreateAsset handles POST /api/v1/portfolios/{id}/assets
func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var draft models.AssetDraft
	if err := parseJSONBody(r, &draft); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	asset, err := s.store.CreateAsset(userIDFrom(r), mux.Vars(r)["id"], draft)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, asset)
}
