package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AngelCh415/searchterm-insights/internal/utils"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

// ErrTooLarge is returned when a remote workbook exceeds the size limit.
var ErrTooLarge = errors.New("workbook exceeds size limit")

// Fetcher downloads workbooks, retrying transport errors, 5xx, 408 and 429
// replies. Other 4xx replies and oversized bodies fail on the first attempt.
type Fetcher struct {
	c        HTTPClient
	backoff  utils.Backoff
	maxBytes int64
}

func NewFetcher(c HTTPClient, maxBytes int64) *Fetcher {
	return &Fetcher{c: c, backoff: utils.NewBackoff(100*time.Millisecond, 2), maxBytes: maxBytes}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, errors.New("empty url")
	}
	var body []byte
	err := f.backoff.Do(ctx, func(int) error {
		b, err := f.get(ctx, url)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("non-2xx: %d body=%s", resp.StatusCode, string(b))
		if retryable(resp.StatusCode) {
			return nil, err
		}
		return nil, utils.Permanent(err)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > f.maxBytes {
		return nil, utils.Permanent(ErrTooLarge)
	}
	return b, nil
}

func retryable(code int) bool {
	return code >= 500 || code == http.StatusRequestTimeout || code == http.StatusTooManyRequests
}
