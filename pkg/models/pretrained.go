package models

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/scottdavis/inferpipe/pkg/core"
	"github.com/scottdavis/inferpipe/pkg/errors"
)

// ConfigFileName is the file a model snapshot carries to describe its
// type. A directory without it is treated as a plain artifact path.
const ConfigFileName = "configuration.json"

// PretrainedConfig is the parsed model configuration file.
type PretrainedConfig struct {
	ModelType string         `json:"model_type"`
	Options   map[string]any `json:"options,omitempty"`
}

// Loader constructs a model from a local snapshot directory and its
// parsed configuration.
type Loader func(ctx context.Context, path string, cfg *PretrainedConfig) (core.Model, error)

var modelTypes = struct {
	mu      sync.RWMutex
	loaders map[string]Loader
}{loaders: make(map[string]Loader)}

// RegisterModelType registers a loader for a model type. Registering a
// type twice fails so two packages cannot silently shadow each other.
func RegisterModelType(name string, loader Loader) error {
	modelTypes.mu.Lock()
	defer modelTypes.mu.Unlock()

	if _, exists := modelTypes.loaders[name]; exists {
		return errors.WithFields(
			errors.New(errors.ValidationFailed, "model type is already registered"),
			errors.Fields{"model_type": name},
		)
	}
	modelTypes.loaders[name] = loader
	return nil
}

func lookupModelType(name string) (Loader, bool) {
	modelTypes.mu.RLock()
	defer modelTypes.mu.RUnlock()
	loader, ok := modelTypes.loaders[name]
	return loader, ok
}

// IsModelDir reports whether path is a model snapshot directory, i.e.
// it carries a configuration file.
func IsModelDir(path string) bool {
	info, err := os.Stat(filepath.Join(path, ConfigFileName))
	return err == nil && !info.IsDir()
}

// FromPretrained constructs a model from a local snapshot directory by
// dispatching on the model type named in its configuration file.
func FromPretrained(ctx context.Context, path string) (core.Model, error) {
	raw, err := os.ReadFile(filepath.Join(path, ConfigFileName))
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to read model configuration"),
			errors.Fields{"path": path},
		)
	}

	var cfg PretrainedConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to parse model configuration"),
			errors.Fields{"path": path},
		)
	}
	if cfg.ModelType == "" {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "model configuration does not name a model_type"),
			errors.Fields{"path": path},
		)
	}

	loader, ok := lookupModelType(cfg.ModelType)
	if !ok {
		return nil, errors.WithFields(
			errors.New(errors.ResourceNotFound, "no loader registered for model type"),
			errors.Fields{"path": path, "model_type": cfg.ModelType},
		)
	}
	return loader(ctx, path, &cfg)
}
