package search

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/kvora49/Lead-finder-sub001/internal/engine/provider"
)

// DefaultMaxPages is the pagination cap per variant.
const DefaultMaxPages = 5

// billable reports whether a page counts as a live provider call. A "zero
// results" answer does not.
func billable(p provider.Page) bool {
	return !p.ZeroResults
}

// newPacer limits the aggregate provider call rate of one search to one call
// per delay, shared by every worker.
func newPacer(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// pacer blocks before the page-th provider call of a variant.
type pacer func(ctx context.Context, page int) error

// fixedDelay waits the full delay before every call after a variant's
// first, however long the previous call took.
func fixedDelay(delay time.Duration) pacer {
	return func(ctx context.Context, page int) error {
		if page == 0 {
			return ctx.Err()
		}
		return sleepCtx(ctx, delay)
	}
}

// sharedLimit paces every call against one limiter, for concurrent variants.
func sharedLimit(l *rate.Limiter) pacer {
	return func(ctx context.Context, _ int) error {
		return l.Wait(ctx)
	}
}

// fetchVariant paginates one variant until the provider reports zero
// results, stops handing out page tokens or maxPages is reached. Any error
// aborts the variant; there is no retry.
func fetchVariant(ctx context.Context, sess provider.Session, pace pacer, variant string, maxPages int,
	calls *atomic.Int64, onPage func(provider.Page)) error {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	token := ""
	for page := 0; page < maxPages; page++ {
		if err := pace(ctx, page); err != nil {
			return err
		}
		p, err := sess.FetchPage(ctx, variant, token)
		if err != nil {
			return err
		}
		if billable(p) {
			calls.Add(1)
		}
		onPage(p)

		if p.ZeroResults || p.NextToken == "" {
			return nil
		}
		token = p.NextToken
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
