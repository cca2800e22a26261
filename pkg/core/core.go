package core

import (
	"context"
	"io"
)

// Model is the minimal contract for an inference model. Inputs are the
// structured result of preprocessing; params are the forward parameter
// subset split off by the pipeline's sanitizer.
type Model interface {
	Invoke(ctx context.Context, inputs map[string]any, params map[string]any) (map[string]any, error)
}

// Preprocessor converts a raw input item into the structured form a
// model consumes.
type Preprocessor interface {
	Process(ctx context.Context, input any, params map[string]any) (map[string]any, error)
}

// PreprocessorFunc adapts a plain function to the Preprocessor interface.
type PreprocessorFunc func(ctx context.Context, input any, params map[string]any) (map[string]any, error)

func (f PreprocessorFunc) Process(ctx context.Context, input any, params map[string]any) (map[string]any, error) {
	return f(ctx, input, params)
}

// Dataset is a pull-based source of input items. Next returns io.EOF
// once the dataset is exhausted. Implementations are single-pass unless
// documented otherwise.
type Dataset interface {
	Next(ctx context.Context) (any, error)
}

// SliceDataset exposes an in-memory slice as a Dataset. It is
// single-pass: once drained it keeps returning io.EOF.
type SliceDataset struct {
	items []any
	pos   int
}

func NewSliceDataset(items []any) *SliceDataset {
	return &SliceDataset{items: items}
}

func (d *SliceDataset) Next(ctx context.Context) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.pos >= len(d.items) {
		return nil, io.EOF
	}
	item := d.items[d.pos]
	d.pos++
	return item, nil
}
