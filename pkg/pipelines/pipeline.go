package pipelines

import (
	"context"
	"log/slog"

	"github.com/scottdavis/inferpipe/pkg/config"
	"github.com/scottdavis/inferpipe/pkg/core"
	"github.com/scottdavis/inferpipe/pkg/errors"
	"github.com/scottdavis/inferpipe/pkg/models"
)

// Pipeline composes preprocess, forward and postprocess over one or
// more models for a named task.
//
// Base supplies default Sanitize, Preprocess and Forward
// implementations; Postprocess is task-specific and must come from the
// concrete pipeline, so embedding Base alone does not satisfy the
// interface.
type Pipeline interface {
	// Task returns the pipeline's task name, used to look up the
	// registered output keys.
	Task() string

	// Sanitize splits caller parameters into the three disjoint subsets
	// consumed by Preprocess, Forward and Postprocess.
	Sanitize(params map[string]any) (preprocess, forward, postprocess map[string]any)

	// Preprocess converts a raw input item into the structured form
	// Forward consumes.
	Preprocess(ctx context.Context, input any, params map[string]any) (map[string]any, error)

	// Forward runs the model on preprocessed inputs.
	Forward(ctx context.Context, inputs map[string]any, params map[string]any) (map[string]any, error)

	// Postprocess converts model output into the standardized result
	// mapping for the pipeline's task.
	Postprocess(ctx context.Context, inputs map[string]any, params map[string]any) (map[string]any, error)
}

// Base carries pipeline state and the default step implementations.
type Base struct {
	task              string
	cfg               *config.Config
	models            []any
	model             core.Model
	hasMultipleModels bool
	preprocessors     []core.Preprocessor
	preprocessor      core.Preprocessor
	logger            *slog.Logger
}

type baseOptions struct {
	task          string
	configFile    string
	model         any
	models        []any
	modelsSet     bool
	preprocessors []core.Preprocessor
	resolver      *models.Resolver
	logger        *slog.Logger
}

// BaseOption configures Base construction.
type BaseOption func(*baseOptions)

// WithTask sets the pipeline's task name. Task registration passes it
// automatically; standalone pipelines set it themselves.
func WithTask(task string) BaseOption {
	return func(o *baseOptions) {
		o.task = task
	}
}

// WithConfigFile points at a configuration file, parsed eagerly during
// construction.
func WithConfigFile(path string) BaseOption {
	return func(o *baseOptions) {
		o.configFile = path
	}
}

// WithModel supplies a single model reference: a core.Model instance, a
// hub reference or a local path.
func WithModel(model any) BaseOption {
	return func(o *baseOptions) {
		o.model = model
	}
}

// WithModels supplies an ordered list of model references. More than
// one resolved model puts the pipeline in multi-model mode, which the
// default Forward rejects.
func WithModels(models []any) BaseOption {
	return func(o *baseOptions) {
		o.models = models
		o.modelsSet = true
	}
}

// WithPreprocessor supplies the preprocessor the default Preprocess
// delegates to.
func WithPreprocessor(p core.Preprocessor) BaseOption {
	return func(o *baseOptions) {
		o.preprocessors = []core.Preprocessor{p}
	}
}

// WithPreprocessors supplies multiple preprocessors. The default
// Preprocess rejects more than one; pipelines that need several must
// override Preprocess.
func WithPreprocessors(ps []core.Preprocessor) BaseOption {
	return func(o *baseOptions) {
		o.preprocessors = ps
	}
}

// WithModelResolver overrides the resolver used for model references.
// The default resolver has no hub downloader and only accepts model
// instances and local paths.
func WithModelResolver(r *models.Resolver) BaseOption {
	return func(o *baseOptions) {
		o.resolver = r
	}
}

// WithLogger overrides the pipeline's logger.
func WithLogger(logger *slog.Logger) BaseOption {
	return func(o *baseOptions) {
		o.logger = logger
	}
}

// NewBase constructs pipeline state: the configuration file (if any) is
// parsed, model references are resolved (downloading hub snapshots as
// needed) and the multi-model flag is derived from the resolved list.
func NewBase(ctx context.Context, opts ...BaseOption) (*Base, error) {
	o := &baseOptions{}
	for _, opt := range opts {
		opt(o)
	}

	b := &Base{
		task:   o.task,
		logger: o.logger,
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}

	if o.configFile != "" {
		cfg, err := config.FromFile(o.configFile)
		if err != nil {
			return nil, err
		}
		b.cfg = cfg
	}

	resolver := o.resolver
	if resolver == nil {
		resolver = models.NewResolver(nil, models.WithResolverLogger(b.logger))
	}

	switch {
	case o.modelsSet:
		resolved, err := resolver.ResolveModels(ctx, o.models)
		if err != nil {
			return nil, err
		}
		b.models = resolved
	case o.model != nil:
		resolved, err := resolver.ResolveModel(ctx, o.model)
		if err != nil {
			return nil, err
		}
		b.models = []any{resolved}
	}

	b.hasMultipleModels = len(b.models) > 1
	if len(b.models) > 0 {
		if m, ok := b.models[0].(core.Model); ok {
			b.model = m
		}
	}

	b.preprocessors = o.preprocessors
	if len(b.preprocessors) == 1 {
		b.preprocessor = b.preprocessors[0]
	}

	return b, nil
}

// Task implements Pipeline.
func (b *Base) Task() string {
	return b.task
}

// Config returns the parsed configuration, or nil when none was given.
func (b *Base) Config() *config.Config {
	return b.cfg
}

// Model returns the first resolved model when it is a core.Model.
func (b *Base) Model() core.Model {
	return b.model
}

// Models returns the ordered resolved model list. Entries are either
// core.Model instances or local artifact paths.
func (b *Base) Models() []any {
	return b.models
}

// HasMultipleModels reports whether more than one model was resolved.
func (b *Base) HasMultipleModels() bool {
	return b.hasMultipleModels
}

// Preprocessor returns the pipeline's preprocessor when exactly one was
// supplied.
func (b *Base) Preprocessor() core.Preprocessor {
	return b.preprocessor
}

// Logger returns the pipeline's logger.
func (b *Base) Logger() *slog.Logger {
	return b.logger
}

// Sanitize implements the default parameter split: nothing for
// preprocess or forward, everything to postprocess.
func (b *Base) Sanitize(params map[string]any) (map[string]any, map[string]any, map[string]any) {
	return map[string]any{}, map[string]any{}, params
}

// Preprocess delegates to the pipeline's single preprocessor.
func (b *Base) Preprocess(ctx context.Context, input any, params map[string]any) (map[string]any, error) {
	if len(b.preprocessors) == 0 {
		return nil, errors.New(errors.InvalidInput, "a preprocessor is required for the default preprocess implementation")
	}
	if len(b.preprocessors) > 1 {
		return nil, errors.New(errors.InvalidInput, "the default preprocess implementation does not support multiple preprocessors")
	}
	return b.preprocessor.Process(ctx, input, params)
}

// Forward delegates to the pipeline's single model.
func (b *Base) Forward(ctx context.Context, inputs map[string]any, params map[string]any) (map[string]any, error) {
	if b.model == nil {
		return nil, errors.New(errors.InvalidInput, "a model is required for the default forward implementation")
	}
	if b.hasMultipleModels {
		return nil, errors.New(errors.InvalidInput, "the default forward implementation does not support multiple models in a pipeline")
	}
	return b.model.Invoke(ctx, inputs, params)
}
