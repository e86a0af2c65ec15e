package domain

import (
	"context"
	"time"
)

// SettlementStore persists the oracle's settlement bookkeeping: the session
// cursor and the entrant→asset map. Keeping these out of process memory means
// a restart neither reprocesses a settled session nor double-mints an
// entrant's asset.
type SettlementStore interface {
	// GetCursor returns the last fully processed session key, or
	// ErrNotFound if no session has been processed yet.
	GetCursor(ctx context.Context) (int64, error)
	// SetCursor records sessionKey as fully processed.
	SetCursor(ctx context.Context, sessionKey int64) error

	// GetAssetID returns the asset minted for entrantID, or ErrNotFound.
	GetAssetID(ctx context.Context, entrantID int) (uint64, error)
	// PutAssetID records that assetID was minted for entrantID.
	PutAssetID(ctx context.Context, rec MintedAsset) error
	// ListMinted returns all recorded entrant→asset links.
	ListMinted(ctx context.Context) ([]MintedAsset, error)
}

// AuditEntry is one row of the append-only oracle audit log.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log of oracle-submitted calls.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, limit int) ([]AuditEntry, error)
}
