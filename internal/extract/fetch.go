package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const (
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxBodyBytes     = 8 << 20
)

// ErrUnexpectedStatus indicates a non-200 response from a source page.
var ErrUnexpectedStatus = errors.New("unexpected status code")

// Fetcher retrieves the markup of a source page.
type Fetcher interface {
	Fetch(ctx context.Context, src Source) ([]byte, error)
}

// HTTPFetcher does a plain GET. Deadlines come from ctx.
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
}

// NewHTTPFetcher creates a fetcher using its own client.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{}, UserAgent: browserUserAgent}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, src Source) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", src.URL, err)
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w %d from %s", ErrUnexpectedStatus, resp.StatusCode, src.URL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body from %s: %w", src.URL, err)
	}
	return body, nil
}
