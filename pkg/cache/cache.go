package cache

import (
	"sync"
	"time"

	"github.com/scottdavis/inferpipe/pkg/errors"
)

// StoreOption defines options for Store operations.
type StoreOption func(*StoreOptions)

// StoreOptions contains configuration for Store operations.
type StoreOptions struct {
	TTL time.Duration
}

// WithTTL creates an option to set a TTL for a stored result.
func WithTTL(ttl time.Duration) StoreOption {
	return func(options *StoreOptions) {
		options.TTL = ttl
	}
}

// Store caches pipeline results keyed by an input digest.
type Store interface {
	// Store saves a result under a key with optional TTL settings.
	Store(key string, value map[string]any, opts ...StoreOption) error

	// Retrieve gets a cached result by key. A miss (or expired entry)
	// returns a ResourceNotFound error.
	Retrieve(key string) (map[string]any, error)

	// Clear removes all cached results.
	Clear() error

	// Close releases resources.
	Close() error
}

// InMemoryStore is a process-local Store.
type InMemoryStore struct {
	data   map[string]map[string]any
	expiry map[string]time.Time
	mu     sync.Mutex
}

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		data:   make(map[string]map[string]any),
		expiry: make(map[string]time.Time),
	}
}

func (s *InMemoryStore) Store(key string, value map[string]any, opts ...StoreOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	options := &StoreOptions{}
	for _, opt := range opts {
		opt(options)
	}

	s.data[key] = value

	if options.TTL > 0 {
		s.expiry[key] = time.Now().Add(options.TTL)
	} else {
		delete(s.expiry, key)
	}
	return nil
}

func (s *InMemoryStore) Retrieve(key string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expiry, hasExpiry := s.expiry[key]; hasExpiry && time.Now().After(expiry) {
		delete(s.data, key)
		delete(s.expiry, key)
		return nil, errors.WithFields(
			errors.New(errors.ResourceNotFound, "key expired in result cache"),
			errors.Fields{"key": key, "expiry_time": expiry},
		)
	}

	value, exists := s.data[key]
	if !exists {
		return nil, errors.WithFields(
			errors.New(errors.ResourceNotFound, "key not found in result cache"),
			errors.Fields{"key": key},
		)
	}
	return value, nil
}

func (s *InMemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]map[string]any)
	s.expiry = make(map[string]time.Time)
	return nil
}

func (s *InMemoryStore) Close() error {
	return s.Clear()
}
