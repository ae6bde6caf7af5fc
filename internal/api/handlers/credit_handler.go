package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/models"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/services"
)

type CreditHandler struct {
	identity *services.IdentityService
	ledger   *services.LedgerService
	log      *slog.Logger
}

func NewCreditHandler(identity *services.IdentityService, ledger *services.LedgerService, log *slog.Logger) *CreditHandler {
	return &CreditHandler{identity: identity, ledger: ledger, log: log}
}

type creditsResponse struct {
	OrganizationID string                     `json:"organization_id"`
	Balance        int64                      `json:"balance"`
	Transactions   []models.CreditTransaction `json:"transactions"`
}

func (h *CreditHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, org, err := h.identity.Resolve(r.Context())
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	txs, err := h.ledger.Transactions(r.Context(), org.ID, limit)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if txs == nil {
		txs = []models.CreditTransaction{}
	}
	respondJSON(w, http.StatusOK, creditsResponse{OrganizationID: org.ID, Balance: org.CreditBalance, Transactions: txs})
}

// Health reports liveness.
func Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
