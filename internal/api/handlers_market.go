package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/ledger-sync/internal/types"
)

// handleTicker handles GET /api/v1/market/bybit/ticker/{base}
func (s *Server) handleTicker(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	category := types.QuoteCategory(strings.ToLower(q.Get("category")))
	if category == "" {
		category = types.CategorySpot
	}
	if category != types.CategorySpot && category != types.CategoryLinear {
		respondError(w, http.StatusUnprocessableEntity, "category must be spot or linear")
		return
	}
	quote := q.Get("quote")
	if quote == "" {
		quote = "USDT"
	}
	fallback := q.Get("fallback_linear") != "false"

	ticker, err := s.store.Ticker(mux.Vars(r)["base"], quote, category, fallback)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ticker)
}
