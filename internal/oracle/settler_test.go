package oracle

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/januslabs/janusd/internal/domain"
)

type fakeFeed struct {
	session    domain.Session
	sessionErr error
	positions  []domain.PositionRecord
	posErr     error
}

func (f *fakeFeed) LatestSession(ctx context.Context) (domain.Session, error) {
	return f.session, f.sessionErr
}

func (f *fakeFeed) Positions(ctx context.Context, sessionKey int64) ([]domain.PositionRecord, error) {
	return f.positions, f.posErr
}

type mintCall struct {
	ref string
}

type updateCall struct {
	assetID uint64
	ref     string
}

type resolveCall struct {
	marketID uint64
	outcome  bool
}

// fakeChain implements domain.ChainClient and can fail a configurable number
// of times per entrant ref so retry behavior is observable.
type fakeChain struct {
	nextAssetID uint64
	mints       []mintCall
	updates     []updateCall
	resolves    []resolveCall
	markets     []domain.Market

	mintFailures map[string]int
	mintErr      error
}

func (c *fakeChain) Mint(ctx context.Context, to common.Address, ref string) (uint64, error) {
	if n := c.mintFailures[ref]; n > 0 {
		c.mintFailures[ref] = n - 1
		return 0, c.mintErr
	}
	id := c.nextAssetID
	c.nextAssetID++
	c.mints = append(c.mints, mintCall{ref: ref})
	return id, nil
}

func (c *fakeChain) UpdateMetadata(ctx context.Context, assetID uint64, ref string) error {
	c.updates = append(c.updates, updateCall{assetID: assetID, ref: ref})
	return nil
}

func (c *fakeChain) Resolve(ctx context.Context, marketID uint64, outcome bool) error {
	c.resolves = append(c.resolves, resolveCall{marketID: marketID, outcome: outcome})
	c.markets[marketID].Resolved = true
	c.markets[marketID].Outcome = outcome
	return nil
}

func (c *fakeChain) NextMarketID(ctx context.Context) (uint64, error) {
	return uint64(len(c.markets)), nil
}

func (c *fakeChain) Market(ctx context.Context, id uint64) (domain.Market, error) {
	if id >= uint64(len(c.markets)) {
		return domain.Market{}, domain.ErrNotFound
	}
	return c.markets[id], nil
}

func (c *fakeChain) OracleAddress() common.Address {
	return common.HexToAddress("0x00000000000000000000000000000000000000aa")
}

var _ domain.ChainClient = (*fakeChain)(nil)

type memStore struct {
	cursor    int64
	hasCursor bool
	assets    map[int]domain.MintedAsset
	putErr    error
}

func newMemStore() *memStore {
	return &memStore{assets: make(map[int]domain.MintedAsset)}
}

func (s *memStore) GetCursor(ctx context.Context) (int64, error) {
	if !s.hasCursor {
		return 0, domain.ErrNotFound
	}
	return s.cursor, nil
}

func (s *memStore) SetCursor(ctx context.Context, sessionKey int64) error {
	s.cursor = sessionKey
	s.hasCursor = true
	return nil
}

func (s *memStore) GetAssetID(ctx context.Context, entrantID int) (uint64, error) {
	rec, ok := s.assets[entrantID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return rec.AssetID, nil
}

func (s *memStore) PutAssetID(ctx context.Context, rec domain.MintedAsset) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.assets[rec.EntrantID] = rec
	return nil
}

func (s *memStore) ListMinted(ctx context.Context) ([]domain.MintedAsset, error) {
	out := make([]domain.MintedAsset, 0, len(s.assets))
	for _, rec := range s.assets {
		out = append(out, rec)
	}
	return out, nil
}

var _ domain.SettlementStore = (*memStore)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestSettler(fd Feed, chain domain.ChainClient, store domain.SettlementStore) *Settler {
	return NewSettler(fd, chain, store, nil, nil, nil, nil, Config{
		Retry: RetryPolicy{MaxAttempts: 2, Backoff: time.Millisecond},
	}, testLogger())
}

func TestProcessOnceFullSettlement(t *testing.T) {
	fd := &fakeFeed{
		session: domain.Session{Key: 9158, Name: "Race"},
		positions: []domain.PositionRecord{
			{EntrantID: 1, Position: 2},
			{EntrantID: 4, Position: 1},
			{EntrantID: 16, Position: 3},
			{EntrantID: 44, Position: 5},
			{EntrantID: 1, Position: 1}, // later record supersedes
			{EntrantID: 4, Position: 2},
		},
	}
	chain := &fakeChain{markets: []domain.Market{
		{ID: 0, Description: "Verstappen wins", SubjectEntrant: 1, Predicate: domain.PredicateWins},
		{ID: 1, Description: "Hamilton podium", SubjectEntrant: 44, Predicate: domain.PredicatePodium},
		{ID: 2, Description: "Norris wins", SubjectEntrant: 4, Predicate: domain.PredicateWins},
	}}
	store := newMemStore()

	s := newTestSettler(fd, chain, store)
	require.NoError(t, s.ProcessOnce(context.Background()))

	// One asset per entrant, minted in ascending entrant order.
	require.Len(t, chain.mints, 4)
	assert.Contains(t, chain.mints[0].ref, "Max_Verstappen")
	assert.Contains(t, chain.mints[0].ref, "P1")

	// Podium finishers 1, 4, 16 get metadata refreshes; 44 does not.
	require.Len(t, chain.updates, 3)
	assert.Contains(t, chain.updates[0].ref, "Winner")

	// Final standings: entrant 1 is P1, 4 is P2, 44 is P5.
	require.Len(t, chain.resolves, 3)
	assert.Equal(t, resolveCall{marketID: 0, outcome: true}, chain.resolves[0])
	assert.Equal(t, resolveCall{marketID: 1, outcome: false}, chain.resolves[1])
	assert.Equal(t, resolveCall{marketID: 2, outcome: false}, chain.resolves[2])

	cursor, err := store.GetCursor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(9158), cursor)
}

func TestProcessOnceSkipsProcessedSession(t *testing.T) {
	fd := &fakeFeed{session: domain.Session{Key: 9158, Name: "Race"}}
	chain := &fakeChain{}
	store := newMemStore()
	require.NoError(t, store.SetCursor(context.Background(), 9158))

	s := newTestSettler(fd, chain, store)
	require.NoError(t, s.ProcessOnce(context.Background()))

	assert.Empty(t, chain.mints)
	assert.Empty(t, chain.resolves)
}

func TestProcessOnceEmptyPositionsLeavesCursor(t *testing.T) {
	fd := &fakeFeed{session: domain.Session{Key: 9158, Name: "Race"}}
	chain := &fakeChain{}
	store := newMemStore()

	s := newTestSettler(fd, chain, store)
	require.NoError(t, s.ProcessOnce(context.Background()))

	assert.Empty(t, chain.mints)
	_, err := store.GetCursor(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProcessOnceNoSessionYet(t *testing.T) {
	fd := &fakeFeed{sessionErr: domain.ErrFeedNoData}
	chain := &fakeChain{}

	s := newTestSettler(fd, chain, newMemStore())
	require.NoError(t, s.ProcessOnce(context.Background()))
	assert.Empty(t, chain.mints)
}

func TestProcessOnceFeedErrorPropagates(t *testing.T) {
	fd := &fakeFeed{sessionErr: errors.New("upstream 500")}
	s := newTestSettler(fd, &fakeChain{}, newMemStore())
	assert.Error(t, s.ProcessOnce(context.Background()))
}

func TestMintRetriesNonceConflict(t *testing.T) {
	fd := &fakeFeed{
		session:   domain.Session{Key: 9158, Name: "Race"},
		positions: []domain.PositionRecord{{EntrantID: 1, Position: 1}},
	}
	ref := mintRef(1, "Max Verstappen", 1, "Race")
	chain := &fakeChain{
		mintFailures: map[string]int{ref: 1},
		mintErr:      domain.ErrNonceConflict,
	}
	store := newMemStore()

	s := newTestSettler(fd, chain, store)
	require.NoError(t, s.ProcessOnce(context.Background()))

	require.Len(t, chain.mints, 1)
	id, err := store.GetAssetID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)
}

func TestMintFailureIsolatedPerEntrant(t *testing.T) {
	fd := &fakeFeed{
		session: domain.Session{Key: 9158, Name: "Race"},
		positions: []domain.PositionRecord{
			{EntrantID: 1, Position: 1},
			{EntrantID: 4, Position: 2},
		},
	}
	ref := mintRef(1, "Max Verstappen", 1, "Race")
	chain := &fakeChain{
		// Exhausts both retry attempts.
		mintFailures: map[string]int{ref: 2},
		mintErr:      domain.ErrNonceConflict,
		markets: []domain.Market{
			{ID: 0, SubjectEntrant: 4, Predicate: domain.PredicateTopTen},
		},
	}
	store := newMemStore()

	s := newTestSettler(fd, chain, store)
	require.NoError(t, s.ProcessOnce(context.Background()))

	// Entrant 4 still minted, its market still resolved, and the cursor
	// advanced despite entrant 1's failure.
	require.Len(t, chain.mints, 1)
	assert.Contains(t, chain.mints[0].ref, "Lando_Norris")
	require.Len(t, chain.resolves, 1)
	assert.True(t, chain.resolves[0].outcome)

	cursor, err := store.GetCursor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(9158), cursor)

	_, err = store.GetAssetID(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExistingAssetsNotReminted(t *testing.T) {
	fd := &fakeFeed{
		session:   domain.Session{Key: 9200, Name: "Sprint"},
		positions: []domain.PositionRecord{{EntrantID: 1, Position: 1}},
	}
	chain := &fakeChain{nextAssetID: 10}
	store := newMemStore()
	require.NoError(t, store.PutAssetID(context.Background(), domain.MintedAsset{
		EntrantID: 1, AssetID: 7, Session: "Race",
	}))

	s := newTestSettler(fd, chain, store)
	require.NoError(t, s.ProcessOnce(context.Background()))

	assert.Empty(t, chain.mints)
	// Podium refresh targets the previously minted asset.
	require.Len(t, chain.updates, 1)
	assert.Equal(t, uint64(7), chain.updates[0].assetID)
}

func TestResolvedMarketsSkipped(t *testing.T) {
	fd := &fakeFeed{
		session:   domain.Session{Key: 9300, Name: "Race"},
		positions: []domain.PositionRecord{{EntrantID: 1, Position: 1}},
	}
	chain := &fakeChain{markets: []domain.Market{
		{ID: 0, SubjectEntrant: 1, Predicate: domain.PredicateWins, Resolved: true, Outcome: true},
	}}

	s := newTestSettler(fd, chain, newMemStore())
	require.NoError(t, s.ProcessOnce(context.Background()))
	assert.Empty(t, chain.resolves)
}

func TestMarketWithUnknownSubjectLeftOpen(t *testing.T) {
	fd := &fakeFeed{
		session:   domain.Session{Key: 9300, Name: "Race"},
		positions: []domain.PositionRecord{{EntrantID: 1, Position: 1}},
	}
	chain := &fakeChain{markets: []domain.Market{
		{ID: 0, SubjectEntrant: 99, Predicate: domain.PredicateWins},
	}}

	s := newTestSettler(fd, chain, newMemStore())
	require.NoError(t, s.ProcessOnce(context.Background()))
	assert.Empty(t, chain.resolves)
}
