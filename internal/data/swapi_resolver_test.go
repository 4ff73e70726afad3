package data

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"StarPort/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/durationpb"
)

func newTestResolver(t *testing.T, baseURL string) *ResourceResolver {
	logger := log.NewStdLogger(os.Stdout)

	resolver, err := NewResourceResolver(&conf.Swapi{
		BaseUrl: baseURL,
		Timeout: durationpb.New(2 * time.Second),
	}, logger)
	require.NoError(t, err)

	return resolver
}

// Test Resolve - names come back in input order with failures as "Unknown"
func TestResolve_OrderAndFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/films/1":
			writeJSON(w, http.StatusOK, map[string]any{
				"result": map[string]any{"properties": map[string]any{"title": "A New Hope"}},
			})
		case "/people/1":
			writeJSON(w, http.StatusOK, map[string]any{
				"result": map[string]any{"properties": map[string]any{"name": "Luke Skywalker"}},
			})
		default:
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "not found"})
		}
	}))
	defer server.Close()

	resolver := newTestResolver(t, server.URL)

	resolved := resolver.Resolve(context.Background(), []string{
		server.URL + "/films/1",
		server.URL + "/films/999",
		server.URL + "/people/1",
	})

	require.Len(t, resolved, 3)
	assert.Equal(t, 1, resolved[0].ID)
	assert.Equal(t, "A New Hope", resolved[0].Name)
	assert.Equal(t, 999, resolved[1].ID)
	assert.Equal(t, "Unknown", resolved[1].Name)
	assert.Equal(t, 1, resolved[2].ID)
	assert.Equal(t, "Luke Skywalker", resolved[2].Name)
}

// Test Resolve - empty input makes no network calls
func TestResolve_EmptyInput(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	resolver := newTestResolver(t, server.URL)

	resolved := resolver.Resolve(context.Background(), nil)
	assert.Empty(t, resolved)
	assert.Equal(t, int32(0), calls.Load())
}

// Test Resolve - an unreachable host yields "Unknown", never an error
func TestResolve_UnreachableHost(t *testing.T) {
	resolver := newTestResolver(t, "http://127.0.0.1:1")

	resolved := resolver.Resolve(context.Background(), []string{"http://127.0.0.1:1/people/1"})
	require.Len(t, resolved, 1)
	assert.Equal(t, 1, resolved[0].ID)
	assert.Equal(t, "Unknown", resolved[0].Name)
}

// Test Resolve - successful names are cached and skip the network on repeats
func TestResolve_CachesNames(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{
			"result": map[string]any{"properties": map[string]any{"name": "Luke Skywalker"}},
		})
	}))
	defer server.Close()

	resolver := newTestResolver(t, server.URL)
	url := server.URL + "/people/1"

	first := resolver.Resolve(context.Background(), []string{url})
	require.Len(t, first, 1)
	assert.Equal(t, "Luke Skywalker", first[0].Name)
	assert.Equal(t, int32(1), calls.Load())

	second := resolver.Resolve(context.Background(), []string{url})
	require.Len(t, second, 1)
	assert.Equal(t, "Luke Skywalker", second[0].Name)
	assert.Equal(t, int32(1), calls.Load())
}

// Test extractIDFromURL
func TestExtractIDFromURL(t *testing.T) {
	tests := []struct {
		url      string
		expected int
	}{
		{"https://www.swapi.tech/api/people/1", 1},
		{"https://www.swapi.tech/api/films/4/", 4},
		{"https://www.swapi.tech/api/people/abc", 0},
		{"not a url at all \x7f", 0},
		{"", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, extractIDFromURL(tt.url))
	}
}
