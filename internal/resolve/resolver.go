// Package resolve turns citation keys into bibliographic records.
package resolve

import (
	"context"
	"sync"

	"github.com/matsen/pandoc-zotxt/internal/zotxt"
	"go.uber.org/zap"
)

// DefaultWorkers is the number of keys resolved concurrently.
const DefaultWorkers = 4

// DefaultStrategies is the order in which key schemes are tried.
var DefaultStrategies = []zotxt.KeyType{zotxt.KeyTypeEasyKey, zotxt.KeyTypeBetterBibTeX}

// Lookuper performs a single lookup of a key under one key scheme.
type Lookuper interface {
	Lookup(ctx context.Context, keyType zotxt.KeyType, key string) zotxt.Outcome
}

// Resolution is the outcome for one citation key.
type Resolution struct {
	Key      string
	Strategy zotxt.KeyType // scheme that matched, empty if unresolved
	Record   zotxt.Record  // nil if unresolved
}

// Resolved reports whether a record was found.
func (r Resolution) Resolved() bool {
	return r.Record != nil
}

// Result holds one Resolution per input key, in input order.
type Result struct {
	Resolutions []Resolution
}

// Records returns the resolved records in key order. The slice is never nil.
func (r Result) Records() []zotxt.Record {
	records := make([]zotxt.Record, 0, len(r.Resolutions))
	for _, res := range r.Resolutions {
		if res.Resolved() {
			records = append(records, res.Record)
		}
	}
	return records
}

// Unresolved returns the keys that matched under no strategy.
func (r Result) Unresolved() []string {
	var keys []string
	for _, res := range r.Resolutions {
		if !res.Resolved() {
			keys = append(keys, res.Key)
		}
	}
	return keys
}

// Resolver looks up citation keys, falling back through key schemes.
type Resolver struct {
	lookup     Lookuper
	strategies []zotxt.KeyType
	workers    int
	logger     *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithStrategies sets the key schemes to try, in order.
func WithStrategies(strategies ...zotxt.KeyType) Option {
	return func(r *Resolver) {
		if len(strategies) > 0 {
			r.strategies = strategies
		}
	}
}

// WithWorkers sets how many keys are resolved at once.
func WithWorkers(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Resolver backed by lookup.
func New(lookup Lookuper, opts ...Option) *Resolver {
	r := &Resolver{
		lookup:     lookup,
		strategies: DefaultStrategies,
		workers:    DefaultWorkers,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Strategies returns the key schemes tried, in order.
func (r *Resolver) Strategies() []zotxt.KeyType {
	return r.strategies
}

// Resolve returns the records for keys that could be resolved, in key order,
// each with its "id" set to the citation key it was found under.
// Keys that resolve under no strategy are dropped.
func (r *Resolver) Resolve(ctx context.Context, keys []string) []zotxt.Record {
	return r.ResolveAll(ctx, keys).Records()
}

// ResolveAll attempts every key and reports the outcome of each.
// Different keys may be looked up concurrently; the strategies for one key
// are always tried one after another.
func (r *Resolver) ResolveAll(ctx context.Context, keys []string) Result {
	out := make([]Resolution, len(keys))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(r.workers, len(keys)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = r.resolveOne(ctx, keys[i])
			}
		}()
	}
	for i := range keys {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return Result{Resolutions: out}
}

// resolveOne tries each strategy in order and stops at the first match.
func (r *Resolver) resolveOne(ctx context.Context, key string) Resolution {
	for _, kt := range r.strategies {
		outcome := r.lookup.Lookup(ctx, kt, key)
		if !outcome.Found() {
			continue
		}
		r.logger.Debug("resolved citation key",
			zap.String("key", key),
			zap.String("key_type", string(kt)),
		)
		return Resolution{
			Key:      key,
			Strategy: kt,
			Record:   outcome.Record().WithID(key),
		}
	}

	r.logger.Debug("unresolved citation key", zap.String("key", key))
	return Resolution{Key: key}
}
