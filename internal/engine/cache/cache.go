// Package cache stores completed searches keyed by (keyword, location) so
// that repeating a search inside the TTL costs no provider calls.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kvora49/Lead-finder-sub001/internal/metrics"
	"github.com/kvora49/Lead-finder-sub001/internal/model"
)

// DefaultTTL is how long a cached search stays fresh.
const DefaultTTL = 7 * 24 * time.Hour

// ErrNotFound is returned by a Store when no entry exists for a key.
var ErrNotFound = errors.New("cache entry not found")

// epoch marks an entry cleared by an administrator.
var epoch = time.Unix(0, 0).UTC()

var lower = cases.Lower(language.Und)

// Key derives the cache key for a keyword and location.
func Key(keyword, location string) string {
	sum := sha256.Sum256([]byte(lower.String(strings.TrimSpace(keyword)) + "|" + lower.String(strings.TrimSpace(location))))
	return hex.EncodeToString(sum[:])
}

// Entry is one cached search.
type Entry struct {
	Key          string            `json:"key"`
	Keyword      string            `json:"keyword"`
	Location     string            `json:"location"`
	Places       []model.RawResult `json:"places"`
	ResultsCount int               `json:"resultsCount"`
	CreatedAt    time.Time         `json:"createdAt"`
	HitCount     int64             `json:"hitCount"`
	LastAccessAt time.Time         `json:"lastAccessAt"`
	ExpiresAt    time.Time         `json:"expiresAt"`
}

// Cleared reports whether the entry was expired by Clear.
func (e *Entry) Cleared() bool {
	return !e.ExpiresAt.IsZero() && !e.ExpiresAt.After(epoch)
}

// Fresh reports whether the entry may be served at now.
func (e *Entry) Fresh(now time.Time, ttl time.Duration) bool {
	if e.Cleared() {
		return false
	}
	return now.Sub(e.CreatedAt) < ttl
}

// Store is the document store holding cache entries. Implementations must
// be safe for concurrent use by unrelated searches.
type Store interface {
	// Get returns ErrNotFound when no entry exists. Stale entries are
	// returned as is; freshness is the Manager's concern.
	Get(ctx context.Context, key string) (*Entry, error)
	// Put overwrites the entry for e.Key entirely.
	Put(ctx context.Context, e *Entry) error
	// Touch increments the hit counter and records the access time.
	Touch(ctx context.Context, key string, at time.Time) error
	// Expire marks the entry as already expired without removing it.
	Expire(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Manager applies TTL semantics on top of a Store.
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
	log   *zap.Logger
}

type Option func(*Manager)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(store Store, log *zap.Logger, opts ...Option) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		store: store,
		ttl:   DefaultTTL,
		now:   time.Now,
		log:   log.Named("cache"),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Manager) TTL() time.Duration { return m.ttl }

// Get returns a fresh entry, or false when the entry is absent, stale or the
// store failed. On a hit the access counters are bumped best effort.
func (m *Manager) Get(ctx context.Context, key string) (*Entry, bool) {
	e, err := m.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
			metrics.CacheOperations.WithLabelValues("get", "error").Inc()
		} else {
			metrics.CacheOperations.WithLabelValues("get", "miss").Inc()
		}
		return nil, false
	}

	now := m.now()
	if !e.Fresh(now, m.ttl) {
		m.log.Debug("cache entry stale", zap.String("key", key), zap.Time("created_at", e.CreatedAt))
		metrics.CacheOperations.WithLabelValues("get", "stale").Inc()
		return nil, false
	}

	if err := m.store.Touch(ctx, key, now); err != nil {
		m.log.Warn("cache hit bookkeeping failed", zap.String("key", key), zap.Error(err))
	} else {
		e.HitCount++
		e.LastAccessAt = now
	}
	metrics.CacheOperations.WithLabelValues("get", "hit").Inc()
	return e, true
}

// Put writes a fresh entry for a completed search, replacing any previous one.
func (m *Manager) Put(ctx context.Context, keyword, location string, places []model.RawResult) (*Entry, error) {
	now := m.now()
	if places == nil {
		places = []model.RawResult{}
	}
	e := &Entry{
		Key:          Key(keyword, location),
		Keyword:      keyword,
		Location:     location,
		Places:       places,
		ResultsCount: len(places),
		CreatedAt:    now,
		HitCount:     0,
		LastAccessAt: now,
		ExpiresAt:    now.Add(m.ttl),
	}
	if err := m.store.Put(ctx, e); err != nil {
		metrics.CacheOperations.WithLabelValues("put", "error").Inc()
		return nil, err
	}
	metrics.CacheOperations.WithLabelValues("put", "ok").Inc()
	return e, nil
}

// Clear expires the entry for key so that the next Get misses.
func (m *Manager) Clear(ctx context.Context, key string) error {
	if err := m.store.Expire(ctx, key); err != nil {
		return err
	}
	metrics.CacheOperations.WithLabelValues("clear", "ok").Inc()
	return nil
}

// Lookup returns the stored entry regardless of freshness and without
// touching it.
func (m *Manager) Lookup(ctx context.Context, key string) (*Entry, error) {
	return m.store.Get(ctx, key)
}

// Ping checks the underlying store.
func (m *Manager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}
