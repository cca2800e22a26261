package pipelines

import (
	"context"
	"io"

	"github.com/scottdavis/inferpipe/pkg/core"
	"github.com/scottdavis/inferpipe/pkg/errors"
)

// Stream lazily yields pipeline results for a dataset. Each Next call
// pulls exactly one element from the underlying dataset and runs it
// through the pipeline; no work for element i+1 starts before element i
// has been yielded. Streams are single-pass.
type Stream struct {
	p    Pipeline
	ds   core.Dataset
	opts *runOptions
	done bool
}

func newStream(p Pipeline, ds core.Dataset, opts *runOptions) *Stream {
	return &Stream{p: p, ds: ds, opts: opts}
}

// Next computes and returns the result for the next dataset element.
// It returns io.EOF once the dataset is exhausted. A failed element
// surfaces its error here; the stream itself stays usable, so the
// consumer decides whether to keep pulling.
func (s *Stream) Next(ctx context.Context) (map[string]any, error) {
	if s.done {
		return nil, io.EOF
	}

	item, err := s.ds.Next(ctx)
	if errors.Is(err, io.EOF) {
		s.done = true
		return nil, io.EOF
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to read next dataset element")
	}

	return processSingle(ctx, s.p, item, s.opts)
}

// Collect drains the stream, forcing evaluation of every remaining
// element. The first element error aborts collection.
func (s *Stream) Collect(ctx context.Context) ([]map[string]any, error) {
	var results []map[string]any
	for {
		result, err := s.Next(ctx)
		if errors.Is(err, io.EOF) {
			return results, nil
		}
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
}
