package core

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceDataset(t *testing.T) {
	ds := NewSliceDataset([]any{"a", "b"})
	ctx := context.Background()

	first, err := ds.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", first)

	second, err := ds.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", second)

	_, err = ds.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)

	// Stays exhausted on repeated pulls.
	_, err = ds.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestSliceDatasetCancelledContext(t *testing.T) {
	ds := NewSliceDataset([]any{"a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ds.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPreprocessorFunc(t *testing.T) {
	p := PreprocessorFunc(func(ctx context.Context, input any, params map[string]any) (map[string]any, error) {
		return map[string]any{"input": input}, nil
	})

	out, err := p.Process(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", out["input"])
}
