// Package fetch is the content pipeline: it downloads a web page and
// renders it to Markdown. Failures are typed (invalid URL, network, HTTP
// status, conversion) so callers can report them uniformly.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds a single page fetch.
const DefaultTimeout = 30 * time.Second

// maxBodyBytes caps the response body read (5 MiB).
const maxBodyBytes int64 = 5 * 1024 * 1024

// IsValidURL reports whether s parses as an absolute http or https URL
// with a non-empty host.
func IsValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Fetcher downloads HTML content from URLs.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

// NewFetcher returns a Fetcher whose requests time out after the given
// duration. A non-positive timeout falls back to DefaultTimeout.
func NewFetcher(timeout time.Duration, logger *slog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Fetch downloads the page at rawURL and returns its body as a string.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if !IsValidURL(rawURL) {
		return "", &Error{Kind: KindInvalidURL, Message: "Invalid URL provided: " + rawURL}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &Error{Kind: KindInvalidURL, Message: "Invalid URL provided: " + rawURL, Cause: err}
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.7")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &Error{
			Kind:    KindNetwork,
			Message: fmt.Sprintf("network error while fetching %s: %v", rawURL, err),
			Cause:   err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &Error{
			Kind:    KindHTTPStatus,
			Message: fmt.Sprintf("HTTP %d: failed to fetch %s", resp.StatusCode, rawURL),
		}
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "html") && !strings.Contains(contentType, "xml") {
		f.logger.Warn("content type may not be HTML", "url", rawURL, "content_type", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &Error{
			Kind:    KindNetwork,
			Message: fmt.Sprintf("network error while fetching %s: %v", rawURL, err),
			Cause:   err,
		}
	}

	f.logger.Info("fetched url", "url", rawURL, "bytes", len(body))
	return string(body), nil
}
