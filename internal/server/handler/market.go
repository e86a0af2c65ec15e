package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/januslabs/janusd/internal/chain"
	"github.com/januslabs/janusd/internal/domain"
)

// MarketHandler serves the prediction-market book.
type MarketHandler struct {
	node   *chain.Node
	logger *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(node *chain.Node, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		node:   node,
		logger: logger.With(slog.String("handler", "market")),
	}
}

// marketResponse is the JSON shape of one market.
type marketResponse struct {
	ID             uint64 `json:"id"`
	Description    string `json:"description"`
	SubjectEntrant int    `json:"subject_entrant"`
	Predicate      string `json:"predicate"`
	YesPool        string `json:"yes_pool"`
	NoPool         string `json:"no_pool"`
	Resolved       bool   `json:"resolved"`
	Outcome        *bool  `json:"outcome,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func toMarketResponse(m domain.Market) marketResponse {
	resp := marketResponse{
		ID:             m.ID,
		Description:    m.Description,
		SubjectEntrant: m.SubjectEntrant,
		Predicate:      string(m.Predicate),
		YesPool:        m.YesPool.String(),
		NoPool:         m.NoPool.String(),
		Resolved:       m.Resolved,
		CreatedAt:      m.CreatedAt.UTC().Format(time.RFC3339),
	}
	if m.Resolved {
		outcome := m.Outcome
		resp.Outcome = &outcome
	}
	return resp
}

// ListMarkets returns all markets in id order.
// GET /api/markets
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	markets := h.node.Markets()
	out := make([]marketResponse, 0, len(markets))
	for _, m := range markets {
		out = append(out, toMarketResponse(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"markets": out,
		"count":   len(out),
	})
}

// GetMarket returns one market by id.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	m, err := h.node.GetMarket(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMarketResponse(m))
}
