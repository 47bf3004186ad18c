// Package httputil provides HTTP utilities for fetching remote tree files.
//
// # Overview
//
// Trees can be opened from URLs as well as local files, so both the CLI and
// the server need a client that handles flaky hosts gracefully:
//
//   - [Fetcher]: size-limited download with instrumentation hooks
//   - [Retry]: automatic retry with exponential backoff
//
// # Retry
//
// [Retry] wraps operations with automatic retry for transient failures:
//
//   - Network errors
//   - 5xx server errors
//   - 429 rate limit responses
//
// It uses exponential backoff to avoid hammering a struggling host:
//
//	data, err := httputil.NewFetcher().Fetch(ctx, url)
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/artic-network/peartree/pkg/errors"
	"github.com/artic-network/peartree/pkg/observability"
)

// DefaultMaxSize caps downloaded tree files. Posterior tree sets can be
// large, but anything beyond this is almost certainly not a tree file.
const DefaultMaxSize = 64 << 20

// Fetcher downloads tree files over HTTP with retry and size limits.
type Fetcher struct {
	// Client is the underlying HTTP client. Defaults to a client with a
	// 30 second timeout.
	Client *http.Client

	// MaxSize is the maximum response size in bytes. Defaults to
	// [DefaultMaxSize]. Responses beyond the limit fail rather than
	// truncate.
	MaxSize int64
}

// NewFetcher creates a Fetcher with default client and size limit.
func NewFetcher() *Fetcher {
	return &Fetcher{
		Client:  &http.Client{Timeout: 30 * time.Second},
		MaxSize: DefaultMaxSize,
	}
}

// Fetch downloads the tree file at rawURL. Transient failures (network
// errors, 5xx, 429) are retried with backoff; anything else fails fast with
// a coded error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := apperrors.ValidateURL(rawURL); err != nil {
		return nil, err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "parse URL %q", rawURL)
	}

	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	maxSize := f.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	var body []byte
	err = RetryWithBackoff(ctx, func() error {
		observability.HTTP().OnRequest(ctx, http.MethodGet, u.Host, u.Path)
		start := time.Now()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			observability.HTTP().OnError(ctx, http.MethodGet, u.Host, u.Path, err)
			return &RetryableError{Err: err}
		}
		defer resp.Body.Close()
		observability.HTTP().OnResponse(ctx, http.MethodGet, u.Host, u.Path, resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode == http.StatusOK:
			data, err := io.ReadAll(io.LimitReader(resp.Body, maxSize+1))
			if err != nil {
				return &RetryableError{Err: err}
			}
			if int64(len(data)) > maxSize {
				return apperrors.New(apperrors.ErrCodeInvalidInput, "response exceeds %d bytes", maxSize)
			}
			body = data
			return nil

		case resp.StatusCode == http.StatusNotFound:
			return apperrors.New(apperrors.ErrCodeFileNotFound, "%s not found", rawURL)

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return &RetryableError{Err: fmt.Errorf("server returned %s", resp.Status)}

		default:
			return apperrors.New(apperrors.ErrCodeNetwork, "fetch %s: %s", rawURL, resp.Status)
		}
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
