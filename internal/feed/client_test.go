package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/januslabs/janusd/internal/domain"
)

func newFeedServer(t *testing.T, sessions []apiSession, positions map[string][]apiPosition) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sessions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Race", r.URL.Query().Get("session_type"))
		assert.Equal(t, "2024", r.URL.Query().Get("year"))
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(sessions))
	})
	mux.HandleFunc("GET /position", func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("session_key")
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(positions[key]))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newFeedClient(baseURL string) *Client {
	return NewClient(ClientConfig{
		BaseURL:     baseURL,
		SessionType: "Race",
		Year:        2024,
		Timeout:     2 * time.Second,
	})
}

func TestLatestSessionReturnsMostRecent(t *testing.T) {
	srv := newFeedServer(t, []apiSession{
		{SessionKey: 9140, SessionName: "Bahrain Grand Prix", SessionType: "Race", Year: 2024},
		{SessionKey: 9158, SessionName: "Monaco Grand Prix", SessionType: "Race", Year: 2024},
	}, nil)

	sess, err := newFeedClient(srv.URL).LatestSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(9158), sess.Key)
	require.Equal(t, "Monaco Grand Prix", sess.Name)
}

func TestLatestSessionEmptyFeed(t *testing.T) {
	srv := newFeedServer(t, []apiSession{}, nil)

	_, err := newFeedClient(srv.URL).LatestSession(context.Background())
	require.ErrorIs(t, err, domain.ErrFeedNoData)
}

func TestLatestSessionUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(ClientConfig{BaseURL: srv.URL, Year: 2024, Timeout: 2 * time.Second})
	_, err := c.LatestSession(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrFeedNoData)
}

func TestPositionsMapsRecords(t *testing.T) {
	srv := newFeedServer(t, nil, map[string][]apiPosition{
		"9158": {
			{DriverNumber: 1, Position: 3, Date: "2024-05-26T14:01:00+00:00"},
			{DriverNumber: 16, Position: 1, Date: "2024-05-26T15:42:11+00:00"},
			{DriverNumber: 1, Position: 6, Date: "2024-05-26T15:42:12+00:00"},
		},
	})

	recs, err := newFeedClient(srv.URL).Positions(context.Background(), 9158)
	require.NoError(t, err)
	require.Equal(t, []domain.PositionRecord{
		{EntrantID: 1, Position: 3},
		{EntrantID: 16, Position: 1},
		{EntrantID: 1, Position: 6},
	}, recs, "records keep feed order so the last one per entrant wins downstream")
}

func TestPositionsEmptySession(t *testing.T) {
	srv := newFeedServer(t, nil, map[string][]apiPosition{})

	recs, err := newFeedClient(srv.URL).Positions(context.Background(), 9999)
	require.NoError(t, err)
	require.Empty(t, recs, "no standings yet is not an error")
}

func TestEntrantInfoFallback(t *testing.T) {
	known := EntrantInfo(1)
	require.Equal(t, "Max Verstappen", known.Name)

	unknown := EntrantInfo(99)
	require.Equal(t, "Driver #99", unknown.Name)
	require.Equal(t, "Unknown", unknown.Team)
}
