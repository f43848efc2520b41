package usgs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/quakewatch/internal/domain"
	"github.com/couchcryptid/quakewatch/internal/observability"
)

// maxBodyBytes caps a single response; the 30-day feed is a few megabytes.
const maxBodyBytes = 64 << 20

// Client fetches the USGS real-time summary feeds and event detail documents.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a USGS feed client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// FeedURL returns the summary feed URL for a time window.
func (c *Client) FeedURL(window domain.TimeWindow) string {
	return fmt.Sprintf("%s/all_%s.geojson", c.baseURL, window)
}

// FetchFeed retrieves and parses the summary feed for window.
func (c *Client) FetchFeed(ctx context.Context, window domain.TimeWindow) (domain.Feed, error) {
	body, err := c.FetchFeedDocument(ctx, window)
	if err != nil {
		return domain.Feed{}, err
	}
	events, err := parseFeed(body)
	if err != nil {
		return domain.Feed{}, err
	}

	c.logger.Debug("usgs feed fetched", "window", window, "events", len(events))
	return domain.Feed{Window: window, Events: events, FetchedAt: domain.Now()}, nil
}

// FetchFeedDocument returns the undecoded summary feed for window.
func (c *Client) FetchFeedDocument(ctx context.Context, window domain.TimeWindow) ([]byte, error) {
	if !window.Valid() {
		return nil, fmt.Errorf("unknown time window %q", window)
	}
	return c.get(ctx, c.FeedURL(window), "feed")
}

// FetchDetail retrieves and parses an event detail document.
func (c *Client) FetchDetail(ctx context.Context, detailURL string) (domain.EventDetail, error) {
	body, err := c.get(ctx, detailURL, "detail")
	if err != nil {
		return domain.EventDetail{}, err
	}
	return parseDetail(body)
}

func (c *Client) get(ctx context.Context, fullURL, kind string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.FetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("usgs API error: status %d: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", kind, err)
	}
	return body, nil
}
