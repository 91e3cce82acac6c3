package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the AWIN product data host
	DefaultBaseURL = "https://productdata.awin.com"
	// DefaultFetchTimeout bounds one feed download
	DefaultFetchTimeout = 120 * time.Second
	// DefaultMaxBodyBytes caps the size of a downloaded feed
	DefaultMaxBodyBytes int64 = 512 << 20
)

var (
	// ErrMissingAPIKey is returned when no API key is configured
	ErrMissingAPIKey = errors.New("feed api key not configured")
	// ErrFeedTooLarge is returned when the body exceeds the size cap.
	// A partial feed is never returned, since its last row may be cut mid-field.
	ErrFeedTooLarge = errors.New("feed body exceeds size cap")
)

// FetchError reports a non-success response from the feed provider
type FetchError struct {
	StatusCode int
	Status     string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("feed download error: %s", e.Status)
}

// FeedConfig identifies a feed download
type FeedConfig struct {
	BaseURL string
	APIKey  string
	FeedID  string
	Columns []string
}

// URL builds the download URL for the feed
func (c FeedConfig) URL() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	columns := c.Columns
	if len(columns) == 0 {
		columns = ColumnNames()
	}

	return fmt.Sprintf(
		"%s/datafeed/download/apikey/%s/language/en/fid/%s/columns/%s/format/csv/delimiter/%%2C/compression/none/adultcontent/1/",
		base,
		url.PathEscape(c.APIKey),
		url.PathEscape(c.FeedID),
		strings.Join(columns, ","),
	)
}

// Fetcher downloads the raw feed text
type Fetcher struct {
	cfg          FeedConfig
	client       *http.Client
	maxBodyBytes int64
}

// NewFetcher creates a new feed fetcher with the given download timeout
func NewFetcher(cfg FeedConfig, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Fetcher{
		cfg:          cfg,
		client:       &http.Client{Timeout: timeout},
		maxBodyBytes: DefaultMaxBodyBytes,
	}
}

// WithMaxBodyBytes overrides the feed size cap
func (f *Fetcher) WithMaxBodyBytes(n int64) *Fetcher {
	f.maxBodyBytes = n
	return f
}

// Fetch performs one GET against the feed URL and returns the body.
// It never retries.
func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	if f.cfg.APIKey == "" {
		return "", ErrMissingAPIKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL(), nil)
	if err != nil {
		return "", fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("User-Agent", "deal-feed-service/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return "", fmt.Errorf("read feed body: %w", err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return "", fmt.Errorf("%w: more than %d bytes", ErrFeedTooLarge, f.maxBodyBytes)
	}

	return string(body), nil
}
