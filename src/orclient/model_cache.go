package orclient

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ModelCache caches the OpenRouter model list. Concurrent misses share a
// single fetch.
type ModelCache struct {
	mu        sync.RWMutex
	listCache *cachedModelList
	ttl       time.Duration
	client    *Client
	group     singleflight.Group
}

type cachedModelList struct {
	models    []*ModelInfo
	fetchedAt time.Time
}

// NewModelCache creates a new model cache
func NewModelCache(client *Client, ttl time.Duration) *ModelCache {
	return &ModelCache{
		ttl:    ttl,
		client: client,
	}
}

// GetModelList gets the model list from cache or fetches it
func (mc *ModelCache) GetModelList(ctx context.Context) ([]*ModelInfo, error) {
	mc.mu.RLock()
	cached := mc.listCache
	mc.mu.RUnlock()

	if cached != nil && time.Since(cached.fetchedAt) < mc.ttl {
		return cached.models, nil
	}

	v, err, _ := mc.group.Do("models", func() (any, error) {
		models, err := mc.client.listModelsUncached(ctx)
		if err != nil {
			return nil, err
		}
		mc.mu.Lock()
		mc.listCache = &cachedModelList{models: models, fetchedAt: time.Now()}
		mc.mu.Unlock()
		return models, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*ModelInfo), nil
}

// ClearCache drops the cached list.
func (mc *ModelCache) ClearCache() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.listCache = nil
}
