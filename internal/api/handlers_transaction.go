package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ledger-sync/internal/models"
)

// handleListTransactions handles GET /api/v1/portfolios/{id}/transactions
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.store.ListTransactions(userIDFrom(r), mux.Vars(r)["id"], r.URL.Query().Get("asset_id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, txs)
}

// handleCreateTransaction handles POST /api/v1/portfolios/{id}/transactions
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var body models.TransactionBody
	if err := parseJSONBody(r, &body); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	tx, err := s.store.CreateTransaction(userIDFrom(r), mux.Vars(r)["id"], body)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, tx)
}

// handleUpdateTransaction handles PUT /api/v1/portfolios/{id}/transactions/{txId}
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var body models.TransactionBody
	if err := parseJSONBody(r, &body); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	vars := mux.Vars(r)
	tx, err := s.store.UpdateTransaction(userIDFrom(r), vars["id"], vars["txId"], body)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

// handleDeleteTransaction handles DELETE /api/v1/portfolios/{id}/transactions/{txId}
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.store.DeleteTransaction(userIDFrom(r), vars["id"], vars["txId"]); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
