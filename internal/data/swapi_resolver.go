package data

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"StarPort/internal/conf"
	"StarPort/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	lru "github.com/hashicorp/golang-lru/v2"
)

// unknownName substitutes for any related resource that could not be
// resolved, so one bad URL never fails the whole batch.
const unknownName = "Unknown"

// resolverCacheSize bounds the in-process url->name hot cache. Related
// resources repeat heavily across requests (the same films appear on many
// people), so repeats skip the network entirely.
const resolverCacheSize = 4096

// ResourceResolver resolves batches of related-resource URLs to {id, name}
// pairs. All URLs are fetched concurrently, results come back in input
// order, and every per-URL failure yields {id, "Unknown"} without retry or
// circuit breaker involvement.
type ResourceResolver struct {
	client    *resilientClient
	nameCache *lru.Cache[string, string]
	logger    *log.Helper
}

// NewResourceResolver creates the resolver with its own plain upstream
// client (resolution calls bypass the circuit breaker).
func NewResourceResolver(c *conf.Swapi, logger log.Logger) (*ResourceResolver, error) {
	client, err := newResilientClient(
		strings.TrimSuffix(c.BaseUrl, "/"),
		c.Timeout.AsDuration(),
		0,
		0,
		c.ProxyUrl,
		nil,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver client: %w", err)
	}

	nameCache, err := lru.New[string, string](resolverCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver cache: %w", err)
	}

	return &ResourceResolver{
		client:    client,
		nameCache: nameCache,
		logger:    log.NewHelper(logger),
	}, nil
}

// Resolve fans out one request per URL and awaits them all. Empty input
// returns an empty list with no network activity.
func (r *ResourceResolver) Resolve(ctx context.Context, urls []string) []*model.RelatedResource {
	resolved := make([]*model.RelatedResource, len(urls))
	if len(urls) == 0 {
		return resolved
	}

	var wg sync.WaitGroup
	for i, rawURL := range urls {
		wg.Add(1)
		go func(i int, rawURL string) {
			defer wg.Done()
			resolved[i] = r.resolveOne(ctx, rawURL)
		}(i, rawURL)
	}
	wg.Wait()

	return resolved
}

func (r *ResourceResolver) resolveOne(ctx context.Context, rawURL string) *model.RelatedResource {
	id := extractIDFromURL(rawURL)

	if name, ok := r.nameCache.Get(rawURL); ok {
		return &model.RelatedResource{ID: id, Name: name}
	}

	resp, err := r.client.Get(ctx, rawURL)
	if err != nil {
		r.logger.Warnw("msg", "resource resolution failed", "url", rawURL, "error", err)
		return &model.RelatedResource{ID: id, Name: unknownName}
	}

	if resp.status < 200 || resp.status >= 300 {
		r.logger.Warnw("msg", "resource resolution failed", "url", rawURL, "status", resp.status)
		return &model.RelatedResource{ID: id, Name: unknownName}
	}

	// Films carry their display name under "title", everything else under "name".
	props := newEnvelope(resp.body).properties()
	nameField := "name"
	if strings.Contains(rawURL, "/films/") {
		nameField = "title"
	}

	name := asString(props[nameField])
	if name == "" {
		name = unknownName
	} else {
		r.nameCache.Add(rawURL, name)
	}

	return &model.RelatedResource{ID: id, Name: name}
}

// extractIDFromURL pulls the numeric id out of the final path segment.
func extractIDFromURL(rawURL string) int {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}

	path := strings.TrimSuffix(parsed.Path, "/")
	segment := path[strings.LastIndex(path, "/")+1:]

	id, err := strconv.Atoi(segment)
	if err != nil {
		return 0
	}
	return id
}
