package pipelines

import (
	"context"
	"sync"

	"github.com/scottdavis/inferpipe/pkg/errors"
)

// Builder constructs a pipeline for a task. The registry passes the
// task name the builder was registered under, so the pipeline's task
// field is fixed at construction time.
type Builder func(ctx context.Context, task string, opts ...BaseOption) (Pipeline, error)

// Registry maps task names to pipeline builders.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry creates an empty pipeline registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// Register adds a builder under a task name. Registering the same task
// twice fails.
func (r *Registry) Register(task string, builder Builder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.builders[task]; exists {
		return errors.WithFields(
			errors.New(errors.ValidationFailed, "a pipeline is already registered for task"),
			errors.Fields{"task": task},
		)
	}
	r.builders[task] = builder
	return nil
}

// Build constructs the pipeline registered for a task, prepending
// WithTask(task) so the builder only has to thread opts through to
// NewBase.
func (r *Registry) Build(ctx context.Context, task string, opts ...BaseOption) (Pipeline, error) {
	r.mu.RLock()
	builder, ok := r.builders[task]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.WithFields(
			errors.New(errors.ResourceNotFound, "no pipeline registered for task"),
			errors.Fields{"task": task},
		)
	}
	return builder(ctx, task, append([]BaseOption{WithTask(task)}, opts...)...)
}

// Tasks returns the registered task names.
func (r *Registry) Tasks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]string, 0, len(r.builders))
	for task := range r.builders {
		tasks = append(tasks, task)
	}
	return tasks
}

var defaultRegistry = NewRegistry()

// Register adds a builder to the process-wide registry.
func Register(task string, builder Builder) error {
	return defaultRegistry.Register(task, builder)
}

// ForTask builds a pipeline from the process-wide registry.
func ForTask(ctx context.Context, task string, opts ...BaseOption) (Pipeline, error) {
	return defaultRegistry.Build(ctx, task, opts...)
}
