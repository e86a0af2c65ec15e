package handler

import (
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/januslabs/janusd/internal/chain"
	"github.com/januslabs/janusd/internal/domain"
)

// PoolHandler serves swap-pool state: reserves, spot price, and quotes.
type PoolHandler struct {
	node   *chain.Node
	prices domain.PriceCache
	logger *slog.Logger
}

// NewPoolHandler creates a PoolHandler. prices may be nil; the cached price
// is then omitted from responses.
func NewPoolHandler(node *chain.Node, prices domain.PriceCache, logger *slog.Logger) *PoolHandler {
	return &PoolHandler{
		node:   node,
		prices: prices,
		logger: logger.With(slog.String("handler", "pool")),
	}
}

// GetPool reports the reserves and the 1e18-scaled spot price.
// GET /api/pool
func (h *PoolHandler) GetPool(w http.ResponseWriter, r *http.Request) {
	base, quote := h.node.Reserves()

	resp := map[string]any{
		"reserve_base":  base.String(),
		"reserve_quote": quote.String(),
		"price":         h.node.Price().String(),
		"token_symbol":  h.node.TokenSymbol(),
	}

	if h.prices != nil {
		pair := h.node.TokenSymbol() + "-BASE"
		if cached, ts, err := h.prices.GetPrice(r.Context(), pair); err == nil {
			resp["cached_price"] = cached.String()
			resp["cached_at"] = ts.UTC().Format(time.RFC3339)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetQuote computes the swap output for amount_in without mutating state.
// GET /api/pool/quote?amount_in=1000000000000000000
func (h *PoolHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("amount_in")
	amountIn, ok := new(big.Int).SetString(raw, 10)
	if !ok || amountIn.Sign() <= 0 {
		writeError(w, http.StatusBadRequest, "amount_in must be a positive integer")
		return
	}

	amountOut, err := h.node.Quote(amountIn)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"amount_in":  amountIn.String(),
		"amount_out": amountOut.String(),
	})
}
