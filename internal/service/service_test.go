package service

import (
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"StarPort/internal/biz"
	"StarPort/internal/conf"
	"StarPort/internal/data"
	"StarPort/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/durationpb"
)

// fakeGateway is an in-memory biz.SwapiGateway for route tests.
type fakeGateway struct {
	person    *model.Person
	personErr error
	film      *model.Film
	filmErr   error
	people    *model.PaginatedPeople
	searchErr error
	films     []*model.Film
}

func (f *fakeGateway) FetchPerson(ctx context.Context, id int) (*model.Person, error) {
	return f.person, f.personErr
}

func (f *fakeGateway) FetchFilm(ctx context.Context, id int) (*model.Film, error) {
	return f.film, f.filmErr
}

func (f *fakeGateway) SearchPeople(ctx context.Context, params model.SearchParams) (*model.PaginatedPeople, error) {
	return f.people, f.searchErr
}

func (f *fakeGateway) SearchFilms(ctx context.Context, params model.SearchParams) ([]*model.Film, error) {
	return f.films, f.searchErr
}

func (f *fakeGateway) ResolveResourceNames(ctx context.Context, urls []string) []*model.RelatedResource {
	resolved := make([]*model.RelatedResource, len(urls))
	for i := range urls {
		resolved[i] = &model.RelatedResource{ID: i + 1, Name: "Resolved"}
	}
	return resolved
}

// setupTestServer wires the services onto a kratos HTTP server backed by
// miniredis and the fake gateway, served through httptest.
func setupTestServer(t *testing.T, gateway biz.SwapiGateway) (*httptest.Server, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	logger := log.NewStdLogger(os.Stdout)

	statsConf := &conf.Statistics{
		QueryLogKey:        "swapi:query_log",
		QueryCountsKey:     "swapi:query_counts",
		FilmQueryLogKey:    "swapi:film_query_log",
		FilmQueryCountsKey: "swapi:film_query_counts",
		SearchLogKey:       "swapi:search_log",
		SearchCountsKey:    "swapi:search_counts",
		CacheKey:           "swapi:statistics",
		CacheTtl:           durationpb.New(360 * time.Second),
		MetricsQueueSize:   16,
	}

	repo := data.NewQueryLogRepo(statsConf, rdb, logger)
	breaker := data.NewCircuitBreakerStore(nil, rdb, logger)

	recorder := biz.NewMetricsRecorder(repo, 16, logger)
	t.Cleanup(recorder.Stop)

	starwars := NewStarwarsService(biz.NewStarwarsUsecase(gateway, recorder, logger), logger)
	statistics := NewStatisticsService(biz.NewStatisticsUsecase(repo, logger), breaker, logger)

	srv := http.NewServer()
	starwars.RegisterRoutes(srv)
	statistics.RegisterRoutes(srv)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return ts, rdb
}

func getJSON(t *testing.T, url string) (int, map[string]any) {
	resp, err := nethttp.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))

	return resp.StatusCode, body
}

// Test GET /api/people/{id} - envelope and resolved film names
func TestRoute_GetPerson(t *testing.T) {
	gateway := &fakeGateway{
		person: &model.Person{
			ID:        1,
			Name:      "Luke Skywalker",
			Height:    "172",
			BirthYear: "19BBY",
			Films:     []string{"https://www.swapi.tech/api/films/1"},
		},
	}
	ts, _ := setupTestServer(t, gateway)

	status, body := getJSON(t, ts.URL+"/api/people/1")
	require.Equal(t, 200, status)

	payload, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Luke Skywalker", payload["name"])
	assert.Equal(t, "172", payload["height"])
	assert.Equal(t, "19BBY", payload["birth_year"])

	films, ok := payload["films"].([]any)
	require.True(t, ok)
	require.Len(t, films, 1)
	film := films[0].(map[string]any)
	assert.Equal(t, "Resolved", film["name"])
}

// Test GET /api/people/{id} - invalid id yields 400
func TestRoute_GetPerson_InvalidID(t *testing.T) {
	ts, _ := setupTestServer(t, &fakeGateway{})

	status, body := getJSON(t, ts.URL+"/api/people/abc")
	assert.Equal(t, 400, status)
	assert.Equal(t, "INVALID_ID", body["reason"])

	status, body = getJSON(t, ts.URL+"/api/people/0")
	assert.Equal(t, 400, status)
	assert.Equal(t, "INVALID_ID", body["reason"])
}

// Test GET /api/people/{id} - upstream not found yields 404
func TestRoute_GetPerson_NotFound(t *testing.T) {
	gateway := &fakeGateway{
		personErr: &biz.NotFoundError{Resource: "Person", ID: 9999},
	}
	ts, _ := setupTestServer(t, gateway)

	status, body := getJSON(t, ts.URL+"/api/people/9999")
	assert.Equal(t, 404, status)
	assert.Equal(t, "RESOURCE_NOT_FOUND", body["reason"])
}

// Test GET /api/people/{id} - circuit rejection yields 503
func TestRoute_GetPerson_CircuitOpen(t *testing.T) {
	gateway := &fakeGateway{
		personErr: &biz.CircuitOpenError{Key: "swapi:circuit:people:1", RetryAfter: 42},
	}
	ts, _ := setupTestServer(t, gateway)

	status, body := getJSON(t, ts.URL+"/api/people/1")
	assert.Equal(t, 503, status)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", body["reason"])
}

// Test GET /api/people - paginated search payload
func TestRoute_SearchPeople(t *testing.T) {
	gateway := &fakeGateway{
		people: &model.PaginatedPeople{
			Items:        []*model.Person{{ID: 1, Name: "Luke Skywalker"}},
			CurrentPage:  2,
			TotalPages:   3,
			TotalRecords: 25,
			HasNextPage:  true,
		},
	}
	ts, _ := setupTestServer(t, gateway)

	status, body := getJSON(t, ts.URL+"/api/people?name=sky&page=2&limit=10")
	require.Equal(t, 200, status)

	payload := body["data"].(map[string]any)
	meta := payload["meta"].(map[string]any)
	assert.Equal(t, float64(2), meta["current_page"])
	assert.Equal(t, float64(3), meta["total_pages"])
	assert.Equal(t, float64(25), meta["total_records"])
	assert.Equal(t, true, meta["has_next_page"])

	items := payload["items"].([]any)
	require.Len(t, items, 1)
}

// Test GET /api/films - slim search items
func TestRoute_SearchFilms(t *testing.T) {
	gateway := &fakeGateway{
		films: []*model.Film{{ID: 1, Title: "A New Hope", Director: "George Lucas"}},
	}
	ts, _ := setupTestServer(t, gateway)

	status, body := getJSON(t, ts.URL+"/api/films?name=hope")
	require.Equal(t, 200, status)

	items := body["data"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, float64(1), item["id"])
	assert.Equal(t, "A New Hope", item["title"])
	// Search items stay slim
	assert.NotContains(t, item, "director")
}

// Test GET /api/statistics - report computed from the recorded queries
func TestRoute_GetStatistics(t *testing.T) {
	ts, rdb := setupTestServer(t, &fakeGateway{})

	ctx := context.Background()
	require.NoError(t, rdb.ZIncrBy(ctx, "swapi:query_counts", 3, "1").Err())
	require.NoError(t, rdb.ZIncrBy(ctx, "swapi:search_counts", 2, "people:luke").Err())

	status, body := getJSON(t, ts.URL+"/api/statistics")
	require.Equal(t, 200, status)

	payload := body["data"].(map[string]any)
	assert.Equal(t, float64(5), payload["total_queries"])

	hours := payload["popular_hours"].([]any)
	assert.Len(t, hours, 24)

	top := payload["top_search_queries"].([]any)
	require.Len(t, top, 1)
	first := top[0].(map[string]any)
	assert.Equal(t, "luke", first["query"])
	assert.Equal(t, float64(100), first["percentage"])
}

// Test GET /api/statistics/circuits - per-circuit snapshots
func TestRoute_GetCircuitStatistics(t *testing.T) {
	ts, rdb := setupTestServer(t, &fakeGateway{})

	ctx := context.Background()
	require.NoError(t, rdb.Set(ctx, "swapi:circuit:people:state", "open", 0).Err())

	status, body := getJSON(t, ts.URL+"/api/statistics/circuits")
	require.Equal(t, 200, status)

	payload := body["data"].(map[string]any)
	people := payload["swapi:circuit:people"].(map[string]any)
	assert.Equal(t, "open", people["state"])
	films := payload["swapi:circuit:films"].(map[string]any)
	assert.Equal(t, "closed", films["state"])
}

// Test GET /health
func TestRoute_Health(t *testing.T) {
	ts, _ := setupTestServer(t, &fakeGateway{})

	status, body := getJSON(t, ts.URL+"/health")
	assert.Equal(t, 200, status)
	assert.Equal(t, "ok", body["status"])
}

// Test mapDomainError fallthrough for unclassified errors
func TestMapDomainError(t *testing.T) {
	err := mapDomainError(&biz.NotFoundError{Resource: "Film", ID: 2})
	assert.Contains(t, err.Error(), "RESOURCE_NOT_FOUND")

	err = mapDomainError(&biz.UnavailableError{Message: "SWAPI request failed"})
	assert.Contains(t, err.Error(), "UPSTREAM_UNAVAILABLE")

	err = mapDomainError(io.ErrUnexpectedEOF)
	assert.Contains(t, err.Error(), "INTERNAL_ERROR")
}
