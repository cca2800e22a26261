package pipelines

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/scottdavis/inferpipe/pkg/cache"
	"github.com/scottdavis/inferpipe/pkg/core"
	"github.com/sourcegraph/conc/pool"
)

// InputKind tags the shape of a pipeline input, resolved once at the
// entry point.
type InputKind int

const (
	// KindSingle is a scalar input item.
	KindSingle InputKind = iota

	// KindBatch is an ordered list of input items.
	KindBatch

	// KindStream is a lazy dataset handle.
	KindStream
)

// ResolveInputKind classifies an input value. A core.Dataset is a
// stream and []any is a batch; everything else, including []byte
// payloads, is a single item.
func ResolveInputKind(input any) InputKind {
	switch input.(type) {
	case core.Dataset:
		return KindStream
	case []any:
		return KindBatch
	default:
		return KindSingle
	}
}

// Output is the result of a pipeline invocation. Exactly the field
// matching Kind is populated.
type Output struct {
	Kind   InputKind
	Single map[string]any
	Batch  []map[string]any
	Stream *Stream
}

type runOptions struct {
	params      map[string]any
	concurrency int
	cache       cache.Store
	cacheTTL    time.Duration
	logger      *slog.Logger
}

// RunOption configures a pipeline invocation.
type RunOption func(*runOptions)

// WithParams supplies caller parameters, split by the pipeline's
// sanitizer into preprocess, forward and postprocess subsets.
func WithParams(params map[string]any) RunOption {
	return func(o *runOptions) {
		o.params = params
	}
}

// WithConcurrency processes batch inputs with up to n concurrent
// workers. Output order still matches input order. Values below 2 keep
// the default sequential behavior.
func WithConcurrency(n int) RunOption {
	return func(o *runOptions) {
		if n > 0 {
			o.concurrency = n
		} else {
			o.concurrency = 1
		}
	}
}

// WithCache short-circuits single-item processing on a cache hit keyed
// by task, input and parameters.
func WithCache(store cache.Store) RunOption {
	return func(o *runOptions) {
		o.cache = store
	}
}

// WithCacheTTL bounds the lifetime of cached results. Only meaningful
// together with WithCache.
func WithCacheTTL(ttl time.Duration) RunOption {
	return func(o *runOptions) {
		o.cacheTTL = ttl
	}
}

// WithRunLogger overrides the logger used for invocation warnings.
func WithRunLogger(logger *slog.Logger) RunOption {
	return func(o *runOptions) {
		o.logger = logger
	}
}

func newRunOptions(opts []RunOption) *runOptions {
	o := &runOptions{concurrency: 1}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Run invokes a pipeline over an input of any supported shape.
//
// A []any input is processed per element in input order and yields an
// ordered Batch; by default processing is strictly sequential, and the
// first element failure aborts the whole batch. A core.Dataset input
// yields a lazy Stream that computes one result per pull. Anything else
// is a single item and yields a Single result mapping.
func Run(ctx context.Context, p Pipeline, input any, opts ...RunOption) (*Output, error) {
	o := newRunOptions(opts)

	switch ResolveInputKind(input) {
	case KindBatch:
		results, err := runBatch(ctx, p, input.([]any), o)
		if err != nil {
			return nil, err
		}
		return &Output{Kind: KindBatch, Batch: results}, nil
	case KindStream:
		return &Output{Kind: KindStream, Stream: newStream(p, input.(core.Dataset), o)}, nil
	default:
		result, err := processSingle(ctx, p, input, o)
		if err != nil {
			return nil, err
		}
		return &Output{Kind: KindSingle, Single: result}, nil
	}
}

// RunSingle invokes a pipeline over one scalar item.
func RunSingle(ctx context.Context, p Pipeline, input any, opts ...RunOption) (map[string]any, error) {
	return processSingle(ctx, p, input, newRunOptions(opts))
}

// RunBatch invokes a pipeline over a list of items, returning results
// in input order.
func RunBatch(ctx context.Context, p Pipeline, inputs []any, opts ...RunOption) ([]map[string]any, error) {
	return runBatch(ctx, p, inputs, newRunOptions(opts))
}

// RunDataset invokes a pipeline lazily over a dataset. No work happens
// until the returned stream is pulled.
func RunDataset(p Pipeline, ds core.Dataset, opts ...RunOption) *Stream {
	return newStream(p, ds, newRunOptions(opts))
}

func runBatch(ctx context.Context, p Pipeline, inputs []any, o *runOptions) ([]map[string]any, error) {
	results := make([]map[string]any, len(inputs))

	if o.concurrency > 1 {
		wp := pool.New().
			WithMaxGoroutines(o.concurrency).
			WithContext(ctx).
			WithCancelOnError()
		for i, input := range inputs {
			wp.Go(func(ctx context.Context) error {
				result, err := processSingle(ctx, p, input, o)
				if err != nil {
					return err
				}
				results[i] = result
				return nil
			})
		}
		if err := wp.Wait(); err != nil {
			return nil, err
		}
		return results, nil
	}

	for i, input := range inputs {
		result, err := processSingle(ctx, p, input, o)
		if err != nil {
			// One failing element aborts the whole batch.
			return nil, err
		}
		results[i] = result
	}
	return results, nil
}

func processSingle(ctx context.Context, p Pipeline, input any, o *runOptions) (map[string]any, error) {
	preParams, fwdParams, postParams := p.Sanitize(o.params)

	var cacheKey string
	if o.cache != nil {
		cacheKey = resultCacheKey(p.Task(), input, o.params)
		if cacheKey != "" {
			if cached, err := o.cache.Retrieve(cacheKey); err == nil {
				return cached, nil
			}
		}
	}

	out, err := p.Preprocess(ctx, input, preParams)
	if err != nil {
		return nil, err
	}
	out, err = p.Forward(ctx, out, fwdParams)
	if err != nil {
		return nil, err
	}
	result, err := p.Postprocess(ctx, out, postParams)
	if err != nil {
		return nil, err
	}

	if err := checkOutput(p.Task(), result, o.logger); err != nil {
		return nil, err
	}

	if o.cache != nil && cacheKey != "" {
		if err := o.cache.Store(cacheKey, result, cache.WithTTL(o.cacheTTL)); err != nil {
			// Caching is best-effort; the result itself is good.
			o.logger.Warn("failed to cache pipeline result", "task", p.Task(), "error", err)
		}
	}
	return result, nil
}

// resultCacheKey digests task, input and params into a stable key.
// json.Marshal sorts map keys, which keeps the digest deterministic.
// Inputs that cannot be marshalled are simply not cached.
func resultCacheKey(task string, input any, params map[string]any) string {
	payload, err := json.Marshal(struct {
		Task   string         `json:"task"`
		Input  any            `json:"input"`
		Params map[string]any `json:"params,omitempty"`
	}{Task: task, Input: input, Params: params})
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(payload)
	return "pipeline:" + task + ":" + hex.EncodeToString(sum[:])
}
