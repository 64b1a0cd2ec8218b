// Package cache stores generated image descriptions keyed by image content,
// provider, model and prompt, so that a description is generated at most
// once per key.
package cache

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"github.com/wudi/accesspdf/observability"
)

const keySep = "|"

// Key identifies a cached description.
type Key struct {
	ContentHash string
	Provider    string
	Model       string
	PromptHash  string
}

// String renders the key as "hash|provider|model|prompt".
func (k Key) String() string {
	return strings.Join([]string{k.ContentHash, k.Provider, k.Model, k.PromptHash}, keySep)
}

// Validate rejects keys with a part containing the separator, which
// ParseKey could not split back.
func (k Key) Validate() error {
	for _, part := range []string{k.ContentHash, k.Provider, k.Model, k.PromptHash} {
		if strings.Contains(part, keySep) {
			return fmt.Errorf("invalid cache key %q: %q in part %q", k.String(), keySep, part)
		}
	}
	return nil
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, keySep)
	if len(parts) != 4 {
		return Key{}, fmt.Errorf("invalid cache key %q", s)
	}
	return Key{ContentHash: parts[0], Provider: parts[1], Model: parts[2], PromptHash: parts[3]}, nil
}

// Record is a cached description.
type Record struct {
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Store persists records. Implementations must be safe for concurrent use.
// Get reports a miss with ok == false and a nil error.
type Store interface {
	Get(ctx context.Context, k Key) (rec Record, ok bool, err error)
	Put(ctx context.Context, k Key, rec Record) error
	Close() error
}

// PromptHash fingerprints the prompt text. Changing the prompt changes the
// key, so stale descriptions are never served for a new prompt.
func PromptHash(parts ...string) string {
	h, _ := blake2b.New256(nil)
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Cache fronts a Store and collapses concurrent generations for one key.
type Cache struct {
	store  Store
	group  singleflight.Group
	now    func() time.Time
	logger observability.Logger
}

type Option func(*Cache)

func WithLogger(l observability.Logger) Option {
	return func(c *Cache) { c.logger = observability.OrNop(l) }
}

// WithClock overrides the time source used for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(store Store, opts ...Option) *Cache {
	c := &Cache{store: store, now: time.Now, logger: observability.NopLogger{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) Get(ctx context.Context, k Key) (Record, bool, error) {
	return c.store.Get(ctx, k)
}

// Put stores a record. Existing records are overwritten; the last write wins.
func (c *Cache) Put(ctx context.Context, k Key, rec Record) error {
	if err := k.Validate(); err != nil {
		return err
	}
	return c.store.Put(ctx, k, rec)
}

// GenerateFunc produces a description on a cache miss.
type GenerateFunc func(ctx context.Context) (string, error)

// GetOrGenerate returns the cached record for k, calling gen on a miss.
// Concurrent callers for the same key share one call to gen. The shared call
// does not inherit the cancellation of the caller that started it: a caller
// whose ctx is done returns ctx.Err() while the others keep waiting, and gen
// is expected to bound itself. Errors are not cached. hit reports whether the
// record came from the store.
func (c *Cache) GetOrGenerate(ctx context.Context, k Key, gen GenerateFunc) (rec Record, hit bool, err error) {
	if err := k.Validate(); err != nil {
		return Record{}, false, err
	}
	if rec, ok, err := c.store.Get(ctx, k); err != nil {
		return Record{}, false, fmt.Errorf("cache get: %w", err)
	} else if ok {
		return rec, true, nil
	}
	type outcome struct {
		rec Record
		hit bool
	}
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(k.String(), func() (interface{}, error) {
		// A caller that finished just before this one may have stored it.
		if rec, ok, err := c.store.Get(flightCtx, k); err != nil {
			return nil, fmt.Errorf("cache get: %w", err)
		} else if ok {
			return outcome{rec: rec, hit: true}, nil
		}
		text, err := gen(flightCtx)
		if err != nil {
			return nil, err
		}
		rec := Record{Text: text, GeneratedAt: c.now().UTC()}
		if err := c.store.Put(flightCtx, k, rec); err != nil {
			c.logger.Warn("cache put failed",
				observability.String("key", k.String()),
				observability.Error("error", err))
		}
		return outcome{rec: rec}, nil
	})
	select {
	case <-ctx.Done():
		return Record{}, false, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return Record{}, false, r.Err
		}
		out := r.Val.(outcome)
		return out.rec, out.hit, nil
	}
}

func (c *Cache) Close() error { return c.store.Close() }
