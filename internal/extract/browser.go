package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	DefaultLoadTimeout = 90 * time.Second
	DefaultWaitTimeout = 30 * time.Second
)

// ErrNoWaitSelector is returned for browser sources without a wait selector.
var ErrNoWaitSelector = errors.New("browser source requires a wait selector")

// BrowserFetcher renders client-side pages in headless Chrome. Every call
// gets its own browser process and tab, torn down before returning.
type BrowserFetcher struct {
	ExecPath    string
	UserAgent   string
	LoadTimeout time.Duration
	WaitTimeout time.Duration
	// NoSandbox is required when Chrome runs as root, as in most containers.
	NoSandbox bool
}

// NewBrowserFetcher creates a fetcher with the default page budgets.
func NewBrowserFetcher(execPath string) *BrowserFetcher {
	return &BrowserFetcher{
		ExecPath:    execPath,
		UserAgent:   browserUserAgent,
		LoadTimeout: DefaultLoadTimeout,
		WaitTimeout: DefaultWaitTimeout,
	}
}

func (b *BrowserFetcher) Fetch(ctx context.Context, src Source) ([]byte, error) {
	if src.WaitSelector == "" {
		return nil, ErrNoWaitSelector
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.DisableGPU,
		chromedp.UserAgent(b.UserAgent),
	)
	if b.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.ExecPath))
	}
	if b.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	// Start the browser on the tab context itself; a deadline here would
	// kill the browser once it fires.
	if err := chromedp.Run(tabCtx); err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}

	loadCtx, cancelLoad := context.WithTimeout(tabCtx, orDefault(b.LoadTimeout, DefaultLoadTimeout))
	err := chromedp.Run(loadCtx, chromedp.Navigate(src.URL))
	cancelLoad()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src.URL, err)
	}

	var markup string
	waitCtx, cancelWait := context.WithTimeout(tabCtx, orDefault(b.WaitTimeout, DefaultWaitTimeout))
	defer cancelWait()

	if err := chromedp.Run(waitCtx,
		chromedp.WaitReady(src.WaitSelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &markup, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("wait for %q on %s: %w", src.WaitSelector, src.URL, err)
	}

	return []byte(markup), nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
