// Package ingest fetches wallet activity history from the Polymarket Data API.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/polyinsider/collector/internal/store"
)

const (
	// DataAPIBaseURL is the Polymarket Data API endpoint
	DataAPIBaseURL = "https://data-api.polymarket.com"
	// DefaultTimeout is the per-request HTTP timeout
	DefaultTimeout = 30 * time.Second
)

// Client requests single pages of activity from the Data API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Data API client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DataAPIBaseURL
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchPage fetches one page of a wallet's activity, newest first.
// GET /activity?user={address}&limit={limit}&offset={offset}
func (c *Client) FetchPage(ctx context.Context, address string, offset, limit int) ([]store.ActivityRecord, error) {
	address = strings.ToLower(address)

	q := url.Values{}
	q.Set("user", address)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("sortBy", "TIMESTAMP")
	q.Set("sortDirection", "DESC")
	fullURL := c.baseURL + "/activity?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, &store.TransportError{Op: "create request", URL: fullURL, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &store.TransportError{Op: "GET", URL: fullURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &store.TransportError{Op: "GET", URL: fullURL, StatusCode: resp.StatusCode}
	}

	var entries []activityAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, &store.TransportError{Op: "decode", URL: fullURL, Err: fmt.Errorf("decode activity page: %w", err)}
	}

	records, dropped := convertActivities(entries, address)
	if dropped > 0 {
		c.logger.Debug("activity_entries_without_slug", "dropped", dropped, "offset", offset)
	}

	return records, nil
}
