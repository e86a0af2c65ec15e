package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/januslabs/janusd/internal/domain"
)

// SettlementStore implements domain.SettlementStore using PostgreSQL.
type SettlementStore struct {
	pool *pgxpool.Pool
}

// NewSettlementStore creates a SettlementStore backed by the given pool.
func NewSettlementStore(pool *pgxpool.Pool) *SettlementStore {
	return &SettlementStore{pool: pool}
}

var _ domain.SettlementStore = (*SettlementStore)(nil)

// GetCursor returns the last fully processed session key.
func (s *SettlementStore) GetCursor(ctx context.Context) (int64, error) {
	const query = `SELECT session_key FROM settlement_cursor WHERE id = 1`

	var key int64
	err := s.pool.QueryRow(ctx, query).Scan(&key)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: get settlement cursor: %w", err)
	}
	return key, nil
}

// SetCursor records sessionKey as fully processed.
func (s *SettlementStore) SetCursor(ctx context.Context, sessionKey int64) error {
	const query = `
		INSERT INTO settlement_cursor (id, session_key, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE
		SET session_key = EXCLUDED.session_key, updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, sessionKey); err != nil {
		return fmt.Errorf("postgres: set settlement cursor: %w", err)
	}
	return nil
}

// GetAssetID returns the asset minted for entrantID.
func (s *SettlementStore) GetAssetID(ctx context.Context, entrantID int) (uint64, error) {
	const query = `SELECT asset_id FROM minted_assets WHERE entrant_id = $1`

	var assetID int64
	err := s.pool.QueryRow(ctx, query, entrantID).Scan(&assetID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: get asset for entrant %d: %w", entrantID, err)
	}
	return uint64(assetID), nil
}

// PutAssetID records a minted asset. Re-recording the same entrant keeps the
// original link.
func (s *SettlementStore) PutAssetID(ctx context.Context, rec domain.MintedAsset) error {
	const query = `
		INSERT INTO minted_assets (entrant_id, asset_id, session, minted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (entrant_id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		rec.EntrantID, int64(rec.AssetID), rec.Session, rec.MintedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: record minted asset for entrant %d: %w", rec.EntrantID, err)
	}
	return nil
}

// ListMinted returns all recorded entrant to asset links.
func (s *SettlementStore) ListMinted(ctx context.Context) ([]domain.MintedAsset, error) {
	const query = `
		SELECT entrant_id, asset_id, session, minted_at
		FROM minted_assets
		ORDER BY entrant_id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list minted assets: %w", err)
	}
	defer rows.Close()

	var out []domain.MintedAsset
	for rows.Next() {
		var rec domain.MintedAsset
		var assetID int64
		if err := rows.Scan(&rec.EntrantID, &assetID, &rec.Session, &rec.MintedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan minted asset: %w", err)
		}
		rec.AssetID = uint64(assetID)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list minted assets rows: %w", err)
	}
	return out, nil
}
