package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/januslabs/janusd/internal/domain"
	"github.com/januslabs/janusd/internal/feed"
)

// Feed is the slice of the results feed the settler consumes.
type Feed interface {
	LatestSession(ctx context.Context) (domain.Session, error)
	Positions(ctx context.Context, sessionKey int64) ([]domain.PositionRecord, error)
}

// Notifier delivers operator alerts. Satisfied by notify.Notifier.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Config holds the settlement-loop timing and retry parameters.
type Config struct {
	PollInterval time.Duration
	// CallThrottle is the pause between consecutive mutating calls within
	// one iteration, so submissions never race the signing key's nonce.
	CallThrottle time.Duration
	Retry        RetryPolicy
	// LockTTL bounds the distributed iteration lock.
	LockTTL time.Duration
	// FailureAlertThreshold is the number of consecutive failed iterations
	// that triggers an operator alert. Zero disables alerting.
	FailureAlertThreshold int
}

// lockKey is the distributed-lock key serializing settlement iterations
// across replicas.
const lockKey = "settlement"

// Settler drives the registry and the prediction market from session results.
// One iteration runs the whole pipeline: fetch session, dedup against the
// cursor, fetch standings, reduce to final positions, mint or look up assets,
// refresh podium metadata, resolve matching markets, advance the cursor.
//
// Per-entity failures (one entrant's mint, one market's resolution) are
// logged and skipped so the rest of the iteration proceeds; iteration-level
// failures are logged and retried at the next tick. The loop never terminates
// on a single iteration's failure.
type Settler struct {
	feed     Feed
	chain    domain.ChainClient
	store    domain.SettlementStore
	audit    domain.AuditStore
	archiver domain.SessionArchiver
	locks    domain.LockManager
	notifier Notifier

	cfg    Config
	logger *slog.Logger

	busy         atomic.Bool
	failureCount int
}

// NewSettler creates a Settler. audit, archiver, locks, and notifier may be
// nil; the corresponding side channels are then skipped.
func NewSettler(
	fd Feed,
	chainClient domain.ChainClient,
	store domain.SettlementStore,
	audit domain.AuditStore,
	archiver domain.SessionArchiver,
	locks domain.LockManager,
	notifier Notifier,
	cfg Config,
	logger *slog.Logger,
) *Settler {
	return &Settler{
		feed:     fd,
		chain:    chainClient,
		store:    store,
		audit:    audit,
		archiver: archiver,
		locks:    locks,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "settler")),
	}
}

// RunLoop polls on the configured interval until ctx is cancelled. The first
// iteration runs immediately.
func (s *Settler) RunLoop(ctx context.Context) error {
	s.logger.InfoContext(ctx, "settlement loop starting",
		slog.Duration("poll_interval", s.cfg.PollInterval),
		slog.String("oracle_address", s.chain.OracleAddress().Hex()),
	)

	s.runGuarded(ctx)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("settlement loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runGuarded(ctx)
		}
	}
}

// runGuarded runs one iteration under the busy flag and, when configured, the
// distributed lock. An iteration still running when the next tick fires makes
// the tick a no-op rather than an overlapping run.
func (s *Settler) runGuarded(ctx context.Context) {
	if !s.busy.CompareAndSwap(false, true) {
		s.logger.Warn("previous iteration still running, skipping tick")
		return
	}
	defer s.busy.Store(false)

	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, lockKey, s.cfg.LockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				s.logger.Info("another replica holds the settlement lock, skipping tick")
				return
			}
			s.logger.Error("acquire settlement lock", slog.String("error", err.Error()))
			return
		}
		defer unlock()
	}

	if err := s.ProcessOnce(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.failureCount++
		s.logger.Error("settlement iteration failed",
			slog.Int("consecutive_failures", s.failureCount),
			slog.String("error", err.Error()),
		)
		if s.notifier != nil && s.cfg.FailureAlertThreshold > 0 &&
			s.failureCount == s.cfg.FailureAlertThreshold {
			_ = s.notifier.Notify(ctx, "oracle_error", "Settlement loop failing",
				fmt.Sprintf("%d consecutive iterations failed, latest: %v", s.failureCount, err))
		}
		return
	}
	s.failureCount = 0
}

// ProcessOnce runs a single settlement iteration.
func (s *Settler) ProcessOnce(ctx context.Context) error {
	session, err := s.feed.LatestSession(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrFeedNoData) {
			s.logger.InfoContext(ctx, "no session available yet")
			return nil
		}
		return fmt.Errorf("settler: fetch session: %w", err)
	}

	cursor, err := s.store.GetCursor(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("settler: read cursor: %w", err)
	}
	if err == nil && cursor == session.Key {
		s.logger.DebugContext(ctx, "session already processed",
			slog.Int64("session_key", session.Key),
		)
		return nil
	}

	records, err := s.feed.Positions(ctx, session.Key)
	if err != nil {
		return fmt.Errorf("settler: fetch positions: %w", err)
	}
	if len(records) == 0 {
		// Expected during a live session; the cursor stays put so the next
		// tick retries.
		s.logger.InfoContext(ctx, "no position data available yet",
			slog.Int64("session_key", session.Key),
		)
		return nil
	}

	final := domain.ReduceStandings(records)
	s.logger.InfoContext(ctx, "processing session",
		slog.Int64("session_key", session.Key),
		slog.String("session_name", session.Name),
		slog.Int("entrants", len(final)),
		slog.Int("raw_records", len(records)),
	)

	if s.archiver != nil {
		if key, aerr := s.archiver.ArchiveSession(ctx, session, records); aerr != nil {
			s.logger.WarnContext(ctx, "archive session", slog.String("error", aerr.Error()))
		} else {
			s.logger.DebugContext(ctx, "session archived", slog.String("key", key))
		}
	}

	assetIDs := s.mintAssets(ctx, session, final)
	s.refreshPodium(ctx, final, assetIDs)
	s.resolveMarkets(ctx, final)

	if err := s.store.SetCursor(ctx, session.Key); err != nil {
		// The next tick reprocesses the session; mints are deduplicated by
		// the store and resolutions by the already-resolved guard.
		return fmt.Errorf("settler: advance cursor: %w", err)
	}

	s.logger.InfoContext(ctx, "session processing complete",
		slog.Int64("session_key", session.Key),
	)
	return nil
}

// sortedEntrants returns the entrant ids of final in ascending order so
// iteration order, and with it nonce order, is deterministic.
func sortedEntrants(final domain.FinalStandings) []int {
	ids := make([]int, 0, len(final))
	for id := range final {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// mintAssets mints an asset for every entrant that has none yet, returning
// the entrant→asset map for this iteration. One entrant's failure never
// blocks the others.
func (s *Settler) mintAssets(ctx context.Context, session domain.Session, final domain.FinalStandings) map[int]uint64 {
	assetIDs := make(map[int]uint64, len(final))

	for _, entrantID := range sortedEntrants(final) {
		if id, err := s.store.GetAssetID(ctx, entrantID); err == nil {
			s.logger.DebugContext(ctx, "asset already minted",
				slog.Int("entrant", entrantID),
				slog.Uint64("asset_id", id),
			)
			assetIDs[entrantID] = id
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			s.logger.ErrorContext(ctx, "look up minted asset",
				slog.Int("entrant", entrantID),
				slog.String("error", err.Error()),
			)
			continue
		}

		position := final[entrantID]
		info := feed.EntrantInfo(entrantID)
		ref := mintRef(entrantID, info.Name, position, session.Name)

		var assetID uint64
		err := s.cfg.Retry.Do(ctx, func(ctx context.Context) error {
			var merr error
			assetID, merr = s.chain.Mint(ctx, s.chain.OracleAddress(), ref)
			return merr
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "mint asset",
				slog.Int("entrant", entrantID),
				slog.String("error", err.Error()),
			)
			continue
		}

		assetIDs[entrantID] = assetID
		s.logger.InfoContext(ctx, "asset minted",
			slog.Int("entrant", entrantID),
			slog.String("name", info.Name),
			slog.Int("position", position),
			slog.Uint64("asset_id", assetID),
		)
		s.auditLog(ctx, "mint", map[string]any{
			"entrant":  entrantID,
			"asset_id": assetID,
			"session":  session.Key,
			"ref":      ref,
		})

		if err := s.store.PutAssetID(ctx, domain.MintedAsset{
			EntrantID: entrantID,
			AssetID:   assetID,
			Session:   session.Name,
			MintedAt:  time.Now().UTC(),
		}); err != nil {
			// The asset exists on chain but the link is lost; a restart
			// would mint a duplicate, so this is worth a loud log.
			s.logger.ErrorContext(ctx, "record minted asset",
				slog.Int("entrant", entrantID),
				slog.Uint64("asset_id", assetID),
				slog.String("error", err.Error()),
			)
		}

		if err := sleepCtx(ctx, s.cfg.CallThrottle); err != nil {
			return assetIDs
		}
	}
	return assetIDs
}

// refreshPodium rewrites the metadata of every podium finisher's asset.
func (s *Settler) refreshPodium(ctx context.Context, final domain.FinalStandings, assetIDs map[int]uint64) {
	for _, entrantID := range sortedEntrants(final) {
		position := final[entrantID]
		if !domain.IsPodium(position) {
			continue
		}
		assetID, ok := assetIDs[entrantID]
		if !ok {
			s.logger.WarnContext(ctx, "no asset for podium finisher, skipping update",
				slog.Int("entrant", entrantID),
			)
			continue
		}

		info := feed.EntrantInfo(entrantID)
		ref := podiumRef(entrantID, info.Name, position, time.Now().UTC())

		err := s.cfg.Retry.Do(ctx, func(ctx context.Context) error {
			return s.chain.UpdateMetadata(ctx, assetID, ref)
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "update podium metadata",
				slog.Int("entrant", entrantID),
				slog.Uint64("asset_id", assetID),
				slog.String("error", err.Error()),
			)
			continue
		}

		s.logger.InfoContext(ctx, "podium metadata updated",
			slog.Int("entrant", entrantID),
			slog.Int("position", position),
			slog.Uint64("asset_id", assetID),
		)
		s.auditLog(ctx, "update_metadata", map[string]any{
			"entrant":  entrantID,
			"asset_id": assetID,
			"ref":      ref,
		})

		if err := sleepCtx(ctx, s.cfg.CallThrottle); err != nil {
			return
		}
	}
}

// resolveMarkets resolves every unresolved market whose subject has a final
// position. Markets carry a structured subject, so resolution is a direct
// lookup.
func (s *Settler) resolveMarkets(ctx context.Context, final domain.FinalStandings) {
	nextID, err := s.chain.NextMarketID(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "list markets", slog.String("error", err.Error()))
		return
	}

	for id := uint64(0); id < nextID; id++ {
		m, err := s.chain.Market(ctx, id)
		if err != nil {
			s.logger.ErrorContext(ctx, "read market",
				slog.Uint64("market_id", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		if m.Resolved {
			continue
		}
		position, ok := final[m.SubjectEntrant]
		if !ok {
			s.logger.DebugContext(ctx, "market subject not in standings",
				slog.Uint64("market_id", id),
				slog.Int("entrant", m.SubjectEntrant),
			)
			continue
		}

		outcome := m.Predicate.Evaluate(position)
		err = s.cfg.Retry.Do(ctx, func(ctx context.Context) error {
			return s.chain.Resolve(ctx, id, outcome)
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "resolve market",
				slog.Uint64("market_id", id),
				slog.String("error", err.Error()),
			)
			continue
		}

		s.logger.InfoContext(ctx, "market resolved",
			slog.Uint64("market_id", id),
			slog.String("description", m.Description),
			slog.Bool("outcome", outcome),
		)
		s.auditLog(ctx, "resolve", map[string]any{
			"market_id": id,
			"outcome":   outcome,
			"entrant":   m.SubjectEntrant,
			"position":  position,
		})
		if s.notifier != nil {
			_ = s.notifier.Notify(ctx, "market_resolved", "Market resolved",
				fmt.Sprintf("market %d (%s) resolved %v", id, m.Description, outcome))
		}

		if err := sleepCtx(ctx, s.cfg.CallThrottle); err != nil {
			return
		}
	}
}

// auditLog appends to the audit store, best effort.
func (s *Settler) auditLog(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log", slog.String("error", err.Error()))
	}
}
