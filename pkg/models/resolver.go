package models

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/scottdavis/inferpipe/pkg/core"
	"github.com/scottdavis/inferpipe/pkg/errors"
	"github.com/scottdavis/inferpipe/pkg/hub"
)

// Resolver turns model references into usable models. A reference is
// either an already-constructed core.Model (returned unchanged), a hub
// reference or local path (downloaded if needed, then loaded when the
// snapshot names a known model type), or nil (a no-op).
type Resolver struct {
	downloader hub.Downloader
	logger     *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger overrides the resolver's logger.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a Resolver. downloader may be nil when only local
// paths and model instances will be resolved.
func NewResolver(downloader hub.Downloader, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		downloader: downloader,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveModel resolves a single model reference.
//
// Strings recognized as hub paths are downloaded unless they already
// exist locally; if the resolved directory carries a model
// configuration a model is constructed, otherwise the local path string
// is returned as-is. Unrecognized strings and nil pass through
// unchanged. Anything else is an invalid reference.
func (r *Resolver) ResolveModel(ctx context.Context, v any) (any, error) {
	switch m := v.(type) {
	case nil:
		return nil, nil
	case core.Model:
		return m, nil
	case string:
		if !hub.IsHubPath(m) {
			return m, nil
		}
		r.logger.Info("initiating model", "model", m)

		path := m
		if _, err := os.Stat(m); err != nil {
			if r.downloader == nil {
				return nil, errors.WithFields(
					errors.New(errors.InvalidInput, "no hub downloader configured for remote model reference"),
					errors.Fields{"model": m},
				)
			}
			path, err = r.downloader.SnapshotDownload(ctx, m)
			if err != nil {
				return nil, err
			}
		}

		if IsModelDir(path) {
			return FromPretrained(ctx, path)
		}
		return path, nil
	default:
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, fmt.Sprintf("model reference must be a string or core.Model, but got type %T", v)),
			errors.Fields{"model_type": fmt.Sprintf("%T", v)},
		)
	}
}

// ResolveModels resolves each reference independently, preserving order.
func (r *Resolver) ResolveModels(ctx context.Context, refs []any) ([]any, error) {
	resolved := make([]any, 0, len(refs))
	for _, ref := range refs {
		m, err := r.ResolveModel(ctx, ref)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, m)
	}
	return resolved, nil
}
