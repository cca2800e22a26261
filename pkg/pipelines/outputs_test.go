package pipelines

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/scottdavis/inferpipe/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskOutputKeysRoundTrip(t *testing.T) {
	RegisterTaskOutputs("outputs-roundtrip-task", []string{"labels", "scores"})
	t.Cleanup(func() { UnregisterTaskOutputs("outputs-roundtrip-task") })

	keys, ok := TaskOutputKeys("outputs-roundtrip-task")
	assert.True(t, ok)
	assert.Equal(t, []string{"labels", "scores"}, keys)

	_, ok = TaskOutputKeys("never-registered-task")
	assert.False(t, ok)
}

func TestTaskOutputKeysReturnsCopy(t *testing.T) {
	RegisterTaskOutputs("outputs-copy-task", []string{"labels"})
	t.Cleanup(func() { UnregisterTaskOutputs("outputs-copy-task") })

	keys, _ := TaskOutputKeys("outputs-copy-task")
	keys[0] = "mutated"

	fresh, _ := TaskOutputKeys("outputs-copy-task")
	assert.Equal(t, []string{"labels"}, fresh)
}

func TestRunFailsOnMissingOutputKeys(t *testing.T) {
	RegisterTaskOutputs("outputs-missing-task", []string{"labels", "scores"})
	t.Cleanup(func() { UnregisterTaskOutputs("outputs-missing-task") })

	p := echoPipeline(t, "outputs-missing-task")
	p.post = func(ctx context.Context, inputs map[string]any, params map[string]any) (map[string]any, error) {
		return map[string]any{"labels": []string{"positive"}}, nil
	}

	_, err := Run(context.Background(), p, "some text")
	require.Error(t, err)
	assert.Equal(t, errors.ValidationFailed, errors.Code(err))

	var coded *errors.Error
	require.True(t, errors.As(err, &coded))
	assert.Equal(t, []string{"scores"}, coded.Fields()["missing_keys"])
	assert.Equal(t, []string{"labels", "scores"}, coded.Fields()["expected_keys"])
}

func TestRunPassesWithAllOutputKeys(t *testing.T) {
	RegisterTaskOutputs("outputs-complete-task", []string{"labels", "scores"})
	t.Cleanup(func() { UnregisterTaskOutputs("outputs-complete-task") })

	p := echoPipeline(t, "outputs-complete-task")
	p.post = func(ctx context.Context, inputs map[string]any, params map[string]any) (map[string]any, error) {
		return map[string]any{
			"labels": []string{"positive"},
			"scores": []float64{0.98},
			"extra":  "keys beyond the required set are fine",
		}, nil
	}

	out, err := Run(context.Background(), p, "some text")
	require.NoError(t, err)
	assert.Equal(t, KindSingle, out.Kind)
}

func TestRunWarnsOnUnregisteredTask(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	p := echoPipeline(t, "task-nobody-registered")
	p.post = func(ctx context.Context, inputs map[string]any, params map[string]any) (map[string]any, error) {
		return map[string]any{"whatever": true}, nil
	}

	out, err := Run(context.Background(), p, "some text", WithRunLogger(logger))
	require.NoError(t, err)
	assert.Equal(t, true, out.Single["whatever"])

	logged := buf.String()
	assert.Contains(t, logged, "level=WARN")
	assert.Contains(t, logged, "task-nobody-registered")
}
