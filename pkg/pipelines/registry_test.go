package pipelines

import (
	"context"
	"testing"

	"github.com/scottdavis/inferpipe/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuilder(t *testing.T) Builder {
	t.Helper()
	return func(ctx context.Context, task string, opts ...BaseOption) (Pipeline, error) {
		base, err := NewBase(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return &testPipeline{Base: base}, nil
	}
}

func TestRegistryBuild(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("registry-build-task", newTestBuilder(t)))

	p, err := registry.Build(context.Background(), "registry-build-task")
	require.NoError(t, err)

	// The task name was fixed at construction time by the registry.
	assert.Equal(t, "registry-build-task", p.Task())
}

func TestRegistryBuildUnknownTask(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Build(context.Background(), "unknown-task")
	require.Error(t, err)
	assert.Equal(t, errors.ResourceNotFound, errors.Code(err))
}

func TestRegistryRejectsDuplicateTask(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("registry-duplicate-task", newTestBuilder(t)))

	err := registry.Register("registry-duplicate-task", newTestBuilder(t))
	require.Error(t, err)
	assert.Equal(t, errors.ValidationFailed, errors.Code(err))
}

func TestRegistryTasks(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("task-a", newTestBuilder(t)))
	require.NoError(t, registry.Register("task-b", newTestBuilder(t)))

	assert.ElementsMatch(t, []string{"task-a", "task-b"}, registry.Tasks())
}

func TestDefaultRegistry(t *testing.T) {
	require.NoError(t, Register("default-registry-task", newTestBuilder(t)))

	p, err := ForTask(context.Background(), "default-registry-task")
	require.NoError(t, err)
	assert.Equal(t, "default-registry-task", p.Task())
}
