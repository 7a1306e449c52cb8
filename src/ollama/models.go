package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/shanev77/crosschat/src/aisdk"
)

// ListModels returns the endpoint's model identifiers in case-sensitive
// lexical order, served from a TTL cache.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	return c.tagCache.Get(ctx)
}

// listModelsUncached fetches the model list directly from the endpoint.
func (c *Client) listModelsUncached(ctx context.Context) ([]string, error) {
	callCtx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleError(resp)
	}

	var tags aisdk.TagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	models := make([]string, 0, len(tags.Models))
	for _, t := range tags.Models {
		if id := t.ID(); id != "" {
			models = append(models, id)
		}
	}
	sort.Strings(models)
	return models, nil
}

// tagCache caches the endpoint's model list for a bounded time so model
// pickers don't hammer the tags endpoint.
type tagCache struct {
	client    *Client
	ttl       time.Duration
	mu        sync.RWMutex
	models    []string
	fetchedAt time.Time
}

func newTagCache(client *Client, ttl time.Duration) *tagCache {
	return &tagCache{client: client, ttl: ttl}
}

// Get returns the cached list, refetching when the entry has expired.
func (tc *tagCache) Get(ctx context.Context) ([]string, error) {
	tc.mu.RLock()
	models, fetchedAt := tc.models, tc.fetchedAt
	tc.mu.RUnlock()

	if models != nil && time.Since(fetchedAt) < tc.ttl {
		return models, nil
	}

	fresh, err := tc.client.listModelsUncached(ctx)
	if err != nil {
		return nil, err
	}

	tc.mu.Lock()
	tc.models = fresh
	tc.fetchedAt = time.Now()
	tc.mu.Unlock()
	return fresh, nil
}

// Invalidate drops the cached list. Called after a model download so the
// new model shows up on the next listing.
func (tc *tagCache) Invalidate() {
	tc.mu.Lock()
	tc.models = nil
	tc.mu.Unlock()
}
