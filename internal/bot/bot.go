/*
Package bot runs one relay pass: every configured source is extracted,
fingerprinted, checked against the delivery history and, when new, delivered
and recorded. Each source ends in exactly one of the Skipped, Delivered or
Failed outcomes, and no source can block another.
*/
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shanehull/cs2news/internal/extract"
	"github.com/shanehull/cs2news/internal/history"
	"github.com/shanehull/cs2news/internal/identity"
	"github.com/shanehull/cs2news/internal/logger"
	"github.com/shanehull/cs2news/internal/types"
)

// DefaultConcurrency caps parallel sources when Options.Concurrency is unset.
const DefaultConcurrency = 4

// ErrDryRun marks items that were new but deliberately not delivered.
var ErrDryRun = errors.New("dry run, delivery skipped")

// Extractor returns the newest item of a source.
type Extractor interface {
	Fetch(ctx context.Context, src extract.Source) (types.Item, error)
}

// Notifier delivers one item.
type Notifier interface {
	Deliver(ctx context.Context, item types.Item) error
}

// Options is the run configuration handed to the bot at construction.
type Options struct {
	Sources     []extract.Source
	Parallel    bool
	Concurrency int
	// DryRun extracts and checks history without delivering or recording.
	DryRun bool
}

type Bot struct {
	opts     Options
	ext      Extractor
	store    history.Store
	notifier Notifier
	log      logger.Logger
}

func New(opts Options, ext Extractor, store history.Store, notifier Notifier, log logger.Logger) *Bot {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Bot{
		opts:     opts,
		ext:      ext,
		store:    store,
		notifier: notifier,
		log:      log,
	}
}

// Run processes every source once. Results are in source order.
func (b *Bot) Run(ctx context.Context) []types.Result {
	start := time.Now()
	results := make([]types.Result, len(b.opts.Sources))

	if b.opts.Parallel && len(b.opts.Sources) > 1 {
		var wg sync.WaitGroup
		sem := make(chan struct{}, b.opts.Concurrency)

		for i, src := range b.opts.Sources {
			wg.Add(1)
			sem <- struct{}{}

			go func(i int, src extract.Source) {
				defer wg.Done()
				defer func() { <-sem }()
				results[i] = b.process(ctx, src)
			}(i, src)
		}
		wg.Wait()
	} else {
		for i, src := range b.opts.Sources {
			results[i] = b.process(ctx, src)
		}
	}

	b.log.Info("run finished",
		logger.Int("sources", len(results)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return results
}

func (b *Bot) process(ctx context.Context, src extract.Source) types.Result {
	res := types.Result{Source: src.Name, Category: src.Category}
	log := b.log.With(
		logger.String("source", src.Name),
		logger.String("category", string(src.Category)),
	)

	item, err := b.ext.Fetch(ctx, src)
	if err != nil {
		// Any extraction failure, including retry exhaustion, means there is
		// nothing to deliver this run.
		log.Warn("no item extracted, skipping source", logger.Error(err))
		res.Outcome = types.OutcomeSkipped
		res.Err = err
		return res
	}

	fp := identity.Fingerprint(item)
	res.Fingerprint = fp
	res.Title = item.Title
	log = log.With(logger.String("fingerprint", fp), logger.String("title", item.Title))

	seen, err := b.delivered(ctx, item, fp)
	if err != nil {
		log.Error("history lookup failed, not delivering", logger.Error(err))
		res.Outcome = types.OutcomeFailed
		res.Err = err
		return res
	}
	if seen {
		log.Info("item already delivered")
		res.Outcome = types.OutcomeSkipped
		return res
	}

	if b.opts.DryRun {
		log.Info("new item found, dry run so not delivering")
		res.Outcome = types.OutcomeSkipped
		res.Err = ErrDryRun
		return res
	}

	if err := b.notifier.Deliver(ctx, item); err != nil {
		log.Error("delivery failed", logger.Error(err))
		res.Outcome = types.OutcomeFailed
		res.Err = err
		return res
	}

	res.Outcome = types.OutcomeDelivered
	if err := b.store.Record(ctx, fp); err != nil {
		// The item went out but the next run will not know it. This is the
		// one accepted way to deliver twice.
		log.Error("item delivered but history not updated", logger.Error(err))
		res.Err = fmt.Errorf("record fingerprint: %w", err)
		return res
	}

	log.Info("item delivered")
	return res
}

// delivered checks the current fingerprint and then the legacy one, so stores
// written by older deployments are honoured without a migration step.
func (b *Bot) delivered(ctx context.Context, item types.Item, fp string) (bool, error) {
	ok, err := b.store.Contains(ctx, fp)
	if err != nil || ok {
		return ok, err
	}
	return b.store.Contains(ctx, identity.Legacy(item))
}
