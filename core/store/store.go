// Package store implements the in-memory document engine: named
// collections of schema documents with filtering, full-text search, and
// lifecycle events, queried through core/query builders.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/asaidimu/go-events"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/asaidimu/go-maktaba/core/fulltext"
	"github.com/asaidimu/go-maktaba/core/query"
	"github.com/asaidimu/go-maktaba/core/schema"
)

// Options configures a Store. The zero value is usable: a no-op logger,
// no metrics, and the default analyzer.
type Options struct {
	// Logger receives operational logs. Defaults to a no-op logger.
	Logger *zap.Logger
	// Registry, when set, receives the store's metric collectors.
	Registry *prometheus.Registry
	// Analyzer tokenizes text for full-text indexing. Defaults to the
	// simple lowercasing analyzer.
	Analyzer fulltext.Analyzer
}

// Store is a registry of named collections. All methods are safe for
// concurrent use.
type Store struct {
	logger    *zap.Logger
	metrics   *Metrics
	processor *query.DataProcessor
	analyzer  fulltext.Analyzer
	bus       *events.TypedEventBus[Event]

	mu          sync.RWMutex
	collections map[string]*Collection

	subMu         sync.RWMutex
	subscriptions map[string]*SubscriptionInfo
}

// NewStore creates an empty store.
func NewStore(opts *Options) (*Store, error) {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bus, err := events.NewTypedEventBus[Event](events.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize event bus: %w", err)
	}
	return &Store{
		logger:        logger,
		metrics:       NewMetrics(opts.Registry),
		processor:     query.NewDataProcessor(logger),
		analyzer:      opts.Analyzer,
		bus:           bus,
		collections:   make(map[string]*Collection),
		subscriptions: make(map[string]*SubscriptionInfo),
	}, nil
}

// RegisterFilterFunction installs a custom comparison operator available
// to every collection's filters.
func (s *Store) RegisterFilterFunction(operator query.ComparisonOperator, fn query.PredicateFunction) {
	s.processor.RegisterFilterFunction(operator, fn)
}

// RegisterFilterFunctions installs several custom comparison operators.
func (s *Store) RegisterFilterFunctions(functions map[query.ComparisonOperator]query.PredicateFunction) {
	s.processor.RegisterFilterFunctions(functions)
}

// CreateCollection registers an empty collection under the definition's
// name. The definition is validated first, and the name must be unused.
func (s *Store) CreateCollection(def *schema.CollectionDefinition) (*Collection, error) {
	if def == nil {
		return nil, fmt.Errorf("collection definition is nil")
	}
	if result := schema.ValidateDefinition(def); !result.Valid {
		return nil, fmt.Errorf("invalid definition for %q: %s", def.Name, formatIssues(result.Issues))
	}

	s.mu.Lock()
	if _, exists := s.collections[def.Name]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("collection %s already exists", def.Name)
	}
	coll := newCollection(def, s)
	s.collections[def.Name] = coll
	s.mu.Unlock()

	s.metrics.SetDocuments(def.Name, 0)
	s.emitEvent(newEvent(CollectionCreate, "create", def.Name, nil, nil, time.Time{}))
	s.logger.Info("Created collection", zap.String("collection", def.Name))
	return coll, nil
}

// Collection looks up a collection by name.
func (s *Store) Collection(name string) (*Collection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coll, ok := s.collections[name]
	return coll, ok
}

// Drop removes a collection, reporting whether it existed. Result sets
// still holding the dropped collection fail their next fetch.
func (s *Store) Drop(name string) bool {
	s.mu.Lock()
	coll, ok := s.collections[name]
	if ok {
		delete(s.collections, name)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}

	coll.markDropped()
	s.metrics.ForgetCollection(name)
	s.emitEvent(newEvent(CollectionDrop, "drop", name, nil, nil, time.Time{}))
	s.logger.Info("Dropped collection", zap.String("collection", name))
	return true
}

// Names returns the sorted names of all collections.
func (s *Store) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Query starts a builder against the named collection. An unknown name
// still yields a usable builder; its fetch reports the path as not found.
func (s *Store) Query(path string) *query.QueryBuilder {
	s.mu.RLock()
	coll, ok := s.collections[path]
	s.mu.RUnlock()
	if !ok {
		s.logger.Debug("Query against unknown collection", zap.String("path", path))
		return query.NewQueryBuilder(nil, path, &query.BuilderOptions{Logger: s.logger})
	}
	return coll.Query()
}
