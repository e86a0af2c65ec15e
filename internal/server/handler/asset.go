package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/januslabs/janusd/internal/chain"
	"github.com/januslabs/janusd/internal/domain"
)

// AssetHandler serves the dynamic-asset registry.
type AssetHandler struct {
	node   *chain.Node
	logger *slog.Logger
}

// NewAssetHandler creates an AssetHandler.
func NewAssetHandler(node *chain.Node, logger *slog.Logger) *AssetHandler {
	return &AssetHandler{
		node:   node,
		logger: logger.With(slog.String("handler", "asset")),
	}
}

// assetResponse is the JSON shape of one asset.
type assetResponse struct {
	ID          uint64 `json:"id"`
	Owner       string `json:"owner"`
	MetadataRef string `json:"metadata_ref"`
	ForSale     bool   `json:"for_sale"`
	Price       string `json:"price,omitempty"`
	Seller      string `json:"seller,omitempty"`
	MintedAt    string `json:"minted_at"`
}

func toAssetResponse(a domain.Asset) assetResponse {
	resp := assetResponse{
		ID:          a.ID,
		Owner:       a.Owner.Hex(),
		MetadataRef: a.MetadataRef,
		ForSale:     a.Listing.Active,
		MintedAt:    a.MintedAt.UTC().Format(time.RFC3339),
	}
	if a.Listing.Active {
		resp.Price = a.Listing.Price.String()
		resp.Seller = a.Listing.Seller.Hex()
	}
	return resp
}

// ListAssets returns all minted assets in id order.
// GET /api/assets
func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets := h.node.Assets()
	out := make([]assetResponse, 0, len(assets))
	for _, a := range assets {
		out = append(out, toAssetResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"assets": out,
		"count":  len(out),
	})
}

// GetAsset returns one asset by id.
// GET /api/assets/{id}
func (h *AssetHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	a, err := h.node.Asset(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssetResponse(a))
}
