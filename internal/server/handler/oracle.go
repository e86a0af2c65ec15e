package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/januslabs/janusd/internal/domain"
)

// OracleHandler serves the settlement loop's bookkeeping: minted assets, the
// audit log, and archived session payloads.
type OracleHandler struct {
	store  domain.SettlementStore
	audit  domain.AuditStore
	blobs  domain.BlobReader
	logger *slog.Logger
}

// NewOracleHandler creates an OracleHandler. audit and blobs may be nil; the
// corresponding endpoints then return 404.
func NewOracleHandler(store domain.SettlementStore, audit domain.AuditStore, blobs domain.BlobReader, logger *slog.Logger) *OracleHandler {
	return &OracleHandler{
		store:  store,
		audit:  audit,
		blobs:  blobs,
		logger: logger.With(slog.String("handler", "oracle")),
	}
}

// ListMinted returns the entrant to asset links the oracle has recorded.
// GET /api/oracle/minted
func (h *OracleHandler) ListMinted(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "settlement store not configured")
		return
	}
	recs, err := h.store.ListMinted(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	type mintedResponse struct {
		EntrantID int    `json:"entrant_id"`
		AssetID   uint64 `json:"asset_id"`
		Session   string `json:"session"`
		MintedAt  string `json:"minted_at"`
	}
	out := make([]mintedResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, mintedResponse{
			EntrantID: rec.EntrantID,
			AssetID:   rec.AssetID,
			Session:   rec.Session,
			MintedAt:  rec.MintedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"minted": out,
		"count":  len(out),
	})
}

// ListAudit returns the most recent audit entries.
// GET /api/oracle/audit?limit=50
func (h *OracleHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeError(w, http.StatusNotFound, "audit log not configured")
		return
	}
	entries, err := h.audit.List(r.Context(), parseLimit(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// ListSessions lists the archived session objects.
// GET /api/sessions
func (h *OracleHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeError(w, http.StatusNotFound, "session archive not configured")
		return
	}
	infos, err := h.blobs.List(r.Context(), "sessions/")
	if err != nil {
		writeDomainError(w, err)
		return
	}

	type sessionObject struct {
		Key          string `json:"key"`
		Size         int64  `json:"size"`
		LastModified string `json:"last_modified"`
	}
	out := make([]sessionObject, 0, len(infos))
	for _, info := range infos {
		out = append(out, sessionObject{
			Key:          info.Key,
			Size:         info.Size,
			LastModified: info.LastModified.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": out,
		"count":    len(out),
	})
}

// GetSession streams one archived session's JSONL payload.
// GET /api/sessions/{year}/{key}
func (h *OracleHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeError(w, http.StatusNotFound, "session archive not configured")
		return
	}
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}
	key, err := strconv.ParseInt(r.PathValue("key"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session key")
		return
	}

	body, err := h.blobs.Get(r.Context(), sessionObjectKey(year, key))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	if _, err := io.Copy(w, body); err != nil {
		h.logger.WarnContext(r.Context(), "stream session archive",
			slog.String("error", err.Error()),
		)
	}
}

func sessionObjectKey(year int, key int64) string {
	return "sessions/" + strconv.Itoa(year) + "/" + strconv.FormatInt(key, 10) + ".jsonl"
}
