package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shanehull/cs2news/internal/logger"
	"github.com/shanehull/cs2news/internal/types"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 3 * time.Second
)

// ErrNotFound is returned when a source yields no item within its attempts.
var ErrNotFound = errors.New("no item found")

// Extractor fetches a source and parses its latest item, retrying failed
// attempts after a fixed delay.
type Extractor struct {
	fetchers    map[string]Fetcher
	maxAttempts int
	retryDelay  time.Duration
	log         logger.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithFetcher registers the fetcher used for a render mode.
func WithFetcher(render string, f Fetcher) Option {
	return func(e *Extractor) { e.fetchers[render] = f }
}

// WithRetry overrides the attempt count and the pause between attempts.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(e *Extractor) {
		if maxAttempts > 0 {
			e.maxAttempts = maxAttempts
		}
		if delay >= 0 {
			e.retryDelay = delay
		}
	}
}

// New creates an Extractor. Plain HTTP is always available; the browser
// fetcher has to be registered with WithFetcher.
func New(log logger.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		fetchers:    map[string]Fetcher{RenderHTTP: NewHTTPFetcher()},
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		log:         log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fetch returns the latest item of src, or an error wrapping ErrNotFound.
func (e *Extractor) Fetch(ctx context.Context, src Source) (types.Item, error) {
	render := src.Render
	if render == "" {
		render = RenderHTTP
	}
	fetcher, ok := e.fetchers[render]
	if !ok {
		return types.Item{}, fmt.Errorf("%w: no fetcher for render mode %q", ErrNotFound, render)
	}

	log := e.log.With(
		logger.String("source", src.Name),
		logger.String("category", string(src.Category)),
	)

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		log.Debug("fetching source", logger.Int("attempt", attempt), logger.String("url", src.URL))

		item, err := e.attempt(ctx, fetcher, src)
		if err == nil {
			return item, nil
		}
		lastErr = err

		log.Warn("attempt failed",
			logger.Int("attempt", attempt),
			logger.Int("max_attempts", e.maxAttempts),
			logger.Error(err),
		)

		if attempt == e.maxAttempts {
			break
		}
		if err := sleep(ctx, e.retryDelay); err != nil {
			return types.Item{}, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
	}

	return types.Item{}, fmt.Errorf("%w after %d attempts: %w", ErrNotFound, e.maxAttempts, lastErr)
}

func (e *Extractor) attempt(ctx context.Context, f Fetcher, src Source) (types.Item, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, src.AttemptTimeout())
	defer cancel()

	body, err := f.Fetch(attemptCtx, src)
	if err != nil {
		return types.Item{}, err
	}
	return Parse(body, src)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
