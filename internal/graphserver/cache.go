package graphserver

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spangraph/spangraph/api/schemas"
	"github.com/spangraph/spangraph/internal/database"
)

// instanceKey identifies one backend connection target.
type instanceKey struct {
	Project  string
	Instance string
	Database string
}

// adapterFactory creates a live adapter for a connection target. It is a
// field so tests can swap in an in-memory backend without network access.
type adapterFactory func(ctx context.Context, project, instance, database string) (schemas.GraphDatabase, error)

// InstanceCache is the registry of live database adapters, keyed by
// (project, instance, database). Entries are created lazily on first use and
// never evicted for the life of the process. Mock requests always receive a
// fresh mock adapter and are never cached.
//
// A single coarse lock guards the whole map: adapter construction is rare
// relative to query execution, and mutual exclusion per key prevents two
// concurrent first-uses from constructing duplicate adapters.
type InstanceCache struct {
	mu           sync.Mutex
	adapters     map[instanceKey]schemas.GraphDatabase
	newAdapter   adapterFactory
	mockRowLimit int64
	log          *zap.Logger
}

// NewInstanceCache creates an empty cache whose live adapters connect to
// Cloud Spanner.
func NewInstanceCache(mockRowLimit int64, logger *zap.Logger) *InstanceCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := &InstanceCache{
		adapters:     make(map[instanceKey]schemas.GraphDatabase),
		mockRowLimit: mockRowLimit,
		log:          logger.Named("InstanceCache"),
	}
	cache.newAdapter = func(ctx context.Context, project, instance, db string) (schemas.GraphDatabase, error) {
		return database.NewCloudDatabase(ctx, project, instance, db, logger)
	}
	return cache
}

// Get returns the adapter for the given connection parameters, creating and
// remembering it on first use. Mock connections bypass the cache entirely.
func (c *InstanceCache) Get(ctx context.Context, params connectionParams) (schemas.GraphDatabase, error) {
	if params.Mock {
		return database.NewMockDatabase(c.mockRowLimit, c.log), nil
	}

	key := instanceKey{Project: params.Project, Instance: params.Instance, Database: params.Database}

	c.mu.Lock()
	defer c.mu.Unlock()

	if adapter, ok := c.adapters[key]; ok {
		return adapter, nil
	}

	adapter, err := c.newAdapter(ctx, params.Project, params.Instance, params.Database)
	if err != nil {
		return nil, err
	}
	c.adapters[key] = adapter
	c.log.Info("created database adapter",
		zap.String("project", params.Project),
		zap.String("instance", params.Instance),
		zap.String("database", params.Database))
	return adapter, nil
}
