// Package search orchestrates a lead search: it plans query variants, pages
// through the provider, merges the results and keeps the cache current.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kvora49/Lead-finder-sub001/internal/engine/cache"
	"github.com/kvora49/Lead-finder-sub001/internal/engine/provider"
	"github.com/kvora49/Lead-finder-sub001/internal/metrics"
	"github.com/kvora49/Lead-finder-sub001/internal/model"
	"github.com/kvora49/Lead-finder-sub001/internal/progress"
)

// Settings tunes pagination and pacing.
type Settings struct {
	MaxPages     int
	MaxVariants  int
	PageDelay    time.Duration
	VariantDelay time.Duration
	// Concurrency > 1 runs that many variants at once. Pacing still applies
	// to the aggregate call rate.
	Concurrency int
}

// DefaultSettings matches the provider's observed tolerance.
func DefaultSettings() Settings {
	return Settings{
		MaxPages:     DefaultMaxPages,
		MaxVariants:  MaxVariants,
		PageDelay:    200 * time.Millisecond,
		VariantDelay: 500 * time.Millisecond,
		Concurrency:  1,
	}
}

// ErrNotCached is returned for a cache-only search that has no fresh entry
// to serve.
var ErrNotCached = errors.New("no cached results")

// Options are per-search knobs.
type Options struct {
	ForceRefresh bool
	// CacheOnly forbids live provider calls. A miss fails with ErrNotCached.
	CacheOnly bool
	Reporter  progress.Reporter
}

// Response is the outcome of a search. APICalls is the number of live
// provider calls this search paid for.
type Response struct {
	Results  []model.Lead  `json:"results"`
	APICalls int           `json:"apiCalls"`
	Cached   bool          `json:"cached"`
	Duration time.Duration `json:"-"`
}

type Service struct {
	exec     provider.Executor
	cache    *cache.Manager
	settings Settings
	log      *zap.Logger
	inflight singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
	seq     uint64
}

func NewService(exec provider.Executor, cm *cache.Manager, settings Settings, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if settings.MaxPages <= 0 {
		settings.MaxPages = DefaultMaxPages
	}
	if settings.MaxVariants <= 0 || settings.MaxVariants > MaxVariants {
		settings.MaxVariants = MaxVariants
	}
	if settings.Concurrency < 1 {
		settings.Concurrency = 1
	}
	return &Service{
		exec:     exec,
		cache:    cm,
		settings: settings,
		log:      log.Named("search"),
		flights:  make(map[string]*flight),
	}
}

// Provider names the executor in use.
func (s *Service) Provider() string { return s.exec.Name() }

type fetchResult struct {
	places []model.RawResult
	calls  int
}

// flight is one shared provider fetch. It runs under a context detached from
// its callers and is cancelled once every waiter has left.
type flight struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	req    model.SearchRequest
	rep    progress.Reporter
	log    *zap.Logger

	waiters int // guarded by Service.mu

	leaderGone atomic.Bool
	claimed    atomic.Bool
}

// join attaches the caller to the fetch in flight for key, starting one if
// there is none. The caller that starts it leads: its request and reporter
// drive the fetch.
func (s *Service) join(ctx context.Context, key string, req model.SearchRequest, rep progress.Reporter, log *zap.Logger) (*flight, <-chan singleflight.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flights[key]
	if !ok {
		s.seq++
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{
			id:     fmt.Sprintf("%s#%d", key, s.seq),
			ctx:    fctx,
			cancel: cancel,
			req:    req,
			rep:    rep,
			log:    log,
		}
		s.flights[key] = f
	}
	f.waiters++

	// Registered under mu so that a joiner never outlives the call it found.
	ch := s.inflight.DoChan(f.id, func() (any, error) {
		defer s.land(key, f)
		return s.fetch(f.ctx, f.req, f.rep, f.log)
	})
	return f, ch, !ok
}

// land retires a finished flight so that later searches start afresh.
func (s *Service) land(key string, f *flight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flights[key] == f {
		delete(s.flights, key)
	}
	f.cancel()
}

// leave detaches a waiter. The last one out cancels the fetch and gets true.
func (s *Service) leave(key string, f *flight) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return false
	}
	f.cancel()
	if s.flights[key] == f {
		delete(s.flights, key)
	}
	return true
}

// Search runs req. Concurrent searches for the same cache key share a single
// provider fetch and exactly one of them reports its APICalls: the one that
// started it, or the first to finish if that one has gone away. A caller
// whose ctx ends stops waiting; the fetch itself is cancelled only when no
// caller is left.
func (s *Service) Search(ctx context.Context, req model.SearchRequest, opts Options) (*Response, error) {
	start := time.Now()
	rep := progress.Safe(opts.Reporter, s.log)

	if err := req.Validate(); err != nil {
		rep.Report(progress.Event{Phase: progress.PhaseError, Message: err.Error()})
		return nil, err
	}

	key := cache.Key(req.Keyword, req.Location)
	log := s.log.With(zap.String("keyword", req.Keyword), zap.String("location", req.Location), zap.String("key", key))

	rep.Report(progress.Event{Phase: progress.PhaseStart, Message: fmt.Sprintf("Searching for %s in %s", req.Keyword, req.Location)})

	if !opts.ForceRefresh {
		if e, ok := s.cache.Get(ctx, key); ok {
			leads := model.NormalizeAll(e.Places)
			rep.Report(progress.Event{
				Phase:   progress.PhaseCached,
				Message: fmt.Sprintf("Found %d cached results", len(leads)),
				Found:   len(leads),
			})
			d := time.Since(start)
			metrics.RecordSearch("cached", true, d.Seconds(), len(leads))
			log.Info("served from cache", zap.Int("results", len(leads)), zap.Int64("hits", e.HitCount))
			return &Response{Results: leads, Cached: true, Duration: d}, nil
		}
	}

	if opts.CacheOnly {
		d := time.Since(start)
		metrics.RecordSearch("error", false, d.Seconds(), 0)
		rep.Report(progress.Event{Phase: progress.PhaseError, Message: ErrNotCached.Error()})
		log.Info("cache-only search missed", zap.Bool("force_refresh", opts.ForceRefresh))
		return nil, ErrNotCached
	}

	f, ch, leader := s.join(ctx, key, req, rep, log)
	var (
		v   any
		err error
	)
	select {
	case r := <-ch:
		s.leave(key, f)
		v, err = r.Val, r.Err
	case <-ctx.Done():
		if leader {
			f.leaderGone.Store(true)
		}
		if s.leave(key, f) {
			<-ch
		}
		err = ctx.Err()
	}
	d := time.Since(start)
	if err != nil {
		metrics.RecordSearch("error", false, d.Seconds(), 0)
		rep.Report(progress.Event{Phase: progress.PhaseError, Message: err.Error()})
		log.Warn("search failed", zap.Error(err), zap.Duration("duration", d))
		return nil, err
	}

	res := v.(*fetchResult)
	resp := &Response{
		Results:  model.NormalizeAll(res.places),
		Duration: d,
	}
	outcome := "coalesced"
	if (leader || f.leaderGone.Load()) && f.claimed.CompareAndSwap(false, true) {
		resp.APICalls = res.calls
		outcome = "fetched"
	}
	metrics.RecordSearch(outcome, false, d.Seconds(), len(resp.Results))

	rep.Report(progress.Event{
		Phase:    progress.PhaseDone,
		Message:  fmt.Sprintf("Found %d unique results", len(resp.Results)),
		Found:    len(resp.Results),
		APICalls: resp.APICalls,
	})
	log.Info("search completed",
		zap.String("outcome", outcome),
		zap.Int("results", len(resp.Results)),
		zap.Int("api_calls", resp.APICalls),
		zap.Duration("duration", d))
	return resp, nil
}

func (s *Service) fetch(ctx context.Context, req model.SearchRequest, rep progress.Reporter, log *zap.Logger) (*fetchResult, error) {
	variants := Plan(req)
	if len(variants) > s.settings.MaxVariants {
		variants = variants[:s.settings.MaxVariants]
	}
	total := len(variants)

	sess, err := s.exec.Begin(ctx, req.PlanLocation())
	if err != nil {
		return nil, fmt.Errorf("starting %s session: %w", s.exec.Name(), err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("closing provider session", zap.Error(err))
		}
	}()

	var (
		calls atomic.Int64
		dedup = NewDeduplicator()
		pace  = fixedDelay(s.settings.PageDelay)
	)
	if s.settings.Concurrency > 1 {
		pace = sharedLimit(newPacer(s.settings.PageDelay))
	}

	runVariant := func(ctx context.Context, i int, variant string) error {
		rep.Report(progress.Event{
			Phase:    progress.PhaseSearching,
			Message:  fmt.Sprintf("Searching: %s", variant),
			Current:  i + 1,
			Total:    total,
			Found:    dedup.Len(),
			APICalls: int(calls.Load()),
		})
		pageNo := 0
		err := fetchVariant(ctx, sess, pace, variant, s.settings.MaxPages, &calls, func(p provider.Page) {
			pageNo++
			if billable(p) {
				metrics.ProviderCallsTotal.WithLabelValues(s.exec.Name()).Inc()
			}
			added := dedup.Add(p.Results)
			log.Debug("page fetched",
				zap.String("variant", variant),
				zap.Int("page", pageNo),
				zap.Int("results", len(p.Results)),
				zap.Int("new", len(added)),
				zap.Bool("zero_results", p.ZeroResults))
			rep.Report(progress.Event{
				Phase:    progress.PhasePage,
				Message:  fmt.Sprintf("Page %d of %q: %d new", pageNo, variant, len(added)),
				Current:  i + 1,
				Total:    total,
				Found:    dedup.Len(),
				APICalls: int(calls.Load()),
			})
		})
		if err != nil {
			return fmt.Errorf("variant %q: %w", variant, err)
		}
		return nil
	}

	if s.settings.Concurrency <= 1 {
		for i, variant := range variants {
			if i > 0 {
				if err := sleepCtx(ctx, s.settings.VariantDelay); err != nil {
					return nil, err
				}
			}
			if err := runVariant(ctx, i, variant); err != nil {
				return nil, unwrapCancel(ctx, err)
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.settings.Concurrency)
		for i, variant := range variants {
			g.Go(func() error {
				if i >= s.settings.Concurrency {
					if err := sleepCtx(gctx, s.settings.VariantDelay); err != nil {
						return err
					}
				}
				return runVariant(gctx, i, variant)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, unwrapCancel(ctx, err)
		}
	}

	places := dedup.Results()
	if _, err := s.cache.Put(ctx, req.Keyword, req.Location, places); err != nil {
		log.Warn("cache write failed", zap.Error(err))
	}
	return &fetchResult{places: places, calls: int(calls.Load())}, nil
}

// unwrapCancel reports a cancelled search as the context error itself.
func unwrapCancel(ctx context.Context, err error) error {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return ctx.Err()
	}
	return err
}

// ClearCache expires the cached result set for keyword and location.
func (s *Service) ClearCache(ctx context.Context, keyword, location string) error {
	return s.cache.Clear(ctx, cache.Key(keyword, location))
}

// Ping checks the cache store.
func (s *Service) Ping(ctx context.Context) error {
	return s.cache.Ping(ctx)
}
