package feed

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/januslabs/janusd/internal/domain"
)

// ClientConfig holds the feed endpoint parameters.
type ClientConfig struct {
	BaseURL     string
	SessionType string
	Year        int
	Timeout     time.Duration
	RetryCount  int
}

// Client fetches sessions and standings from the results feed.
type Client struct {
	rc          *resty.Client
	sessionType string
	year        int
}

// NewClient creates a feed client. The timeout bounds every call so a hung
// upstream never stalls a settlement iteration past its tick.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	rc := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(5 * time.Second)

	sessionType := cfg.SessionType
	if sessionType == "" {
		sessionType = "Race"
	}

	return &Client{
		rc:          rc,
		sessionType: sessionType,
		year:        cfg.Year,
	}
}

// LatestSession returns the most recent session of the configured type, or
// ErrFeedNoData when the feed has none.
func (c *Client) LatestSession(ctx context.Context) (domain.Session, error) {
	var sessions []apiSession
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParam("session_type", c.sessionType).
		SetQueryParam("year", strconv.Itoa(c.year)).
		SetResult(&sessions).
		Get("/sessions")
	if err != nil {
		return domain.Session{}, fmt.Errorf("feed: latest session: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return domain.Session{}, fmt.Errorf("feed: latest session: unexpected status %d", resp.StatusCode())
	}
	if len(sessions) == 0 {
		return domain.Session{}, fmt.Errorf("feed: latest session: %w", domain.ErrFeedNoData)
	}

	// The feed returns sessions in chronological order; the last one is the
	// most recent.
	last := sessions[len(sessions)-1]
	return domain.Session{Key: last.SessionKey, Name: last.SessionName}, nil
}

// Positions returns the raw standings stream for a session, in feed order.
// An empty slice means the data is not available yet, which is an expected
// pre-completion state during a live session.
func (c *Client) Positions(ctx context.Context, sessionKey int64) ([]domain.PositionRecord, error) {
	var positions []apiPosition
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParam("session_key", strconv.FormatInt(sessionKey, 10)).
		SetResult(&positions).
		Get("/position")
	if err != nil {
		return nil, fmt.Errorf("feed: positions %d: %w", sessionKey, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("feed: positions %d: unexpected status %d", sessionKey, resp.StatusCode())
	}

	records := make([]domain.PositionRecord, 0, len(positions))
	for _, p := range positions {
		records = append(records, domain.PositionRecord{
			EntrantID: p.DriverNumber,
			Position:  p.Position,
		})
	}
	return records, nil
}
