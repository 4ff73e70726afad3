package biz

import (
	"context"
	"os"
	"testing"

	"StarPort/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSwapiGateway is an in-memory SwapiGateway for usecase tests.
type fakeSwapiGateway struct {
	person    *model.Person
	personErr error
	film      *model.Film
	filmErr   error
	people    *model.PaginatedPeople
	films     []*model.Film

	resolvedURLs []string
}

func (f *fakeSwapiGateway) FetchPerson(ctx context.Context, id int) (*model.Person, error) {
	return f.person, f.personErr
}

func (f *fakeSwapiGateway) FetchFilm(ctx context.Context, id int) (*model.Film, error) {
	return f.film, f.filmErr
}

func (f *fakeSwapiGateway) SearchPeople(ctx context.Context, params model.SearchParams) (*model.PaginatedPeople, error) {
	return f.people, nil
}

func (f *fakeSwapiGateway) SearchFilms(ctx context.Context, params model.SearchParams) ([]*model.Film, error) {
	return f.films, nil
}

func (f *fakeSwapiGateway) ResolveResourceNames(ctx context.Context, urls []string) []*model.RelatedResource {
	f.resolvedURLs = urls
	resolved := make([]*model.RelatedResource, len(urls))
	for i := range urls {
		resolved[i] = &model.RelatedResource{ID: i + 1, Name: "Resolved"}
	}
	return resolved
}

func newTestStarwarsUsecase(gateway SwapiGateway, repo QueryLogRepo) (*StarwarsUsecase, *MetricsRecorder) {
	logger := log.NewStdLogger(os.Stdout)
	recorder := NewMetricsRecorder(repo, 16, logger)
	return NewStarwarsUsecase(gateway, recorder, logger), recorder
}

// Test GetPerson - related film URLs are resolved and a metric is recorded
func TestGetPerson(t *testing.T) {
	gateway := &fakeSwapiGateway{
		person: &model.Person{
			ID:    1,
			Name:  "Luke Skywalker",
			Films: []string{"https://www.swapi.tech/api/films/1", "https://www.swapi.tech/api/films/2"},
		},
	}
	repo := &fakeQueryLogRepo{}
	uc, recorder := newTestStarwarsUsecase(gateway, repo)

	detail, err := uc.GetPerson(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Luke Skywalker", detail.Name)
	require.Len(t, detail.ResolvedFilms, 2)
	assert.Equal(t, "Resolved", detail.ResolvedFilms[0].Name)
	assert.Equal(t, gateway.person.Films, gateway.resolvedURLs)

	recorder.Stop()

	events := repo.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, "person", events[0].kind)
	assert.Equal(t, 1, events[0].subjectID)
	assert.GreaterOrEqual(t, events[0].responseTimeMs, 0.0)
}

// Test GetPerson - gateway errors pass through and no metric is recorded
func TestGetPerson_Error(t *testing.T) {
	gateway := &fakeSwapiGateway{
		personErr: &NotFoundError{Resource: "Person", ID: 9999},
	}
	repo := &fakeQueryLogRepo{}
	uc, recorder := newTestStarwarsUsecase(gateway, repo)

	_, err := uc.GetPerson(context.Background(), 9999)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	recorder.Stop()
	assert.Empty(t, repo.recorded())
}

// Test GetFilm - related character URLs are resolved
func TestGetFilm(t *testing.T) {
	gateway := &fakeSwapiGateway{
		film: &model.Film{
			ID:         1,
			Title:      "A New Hope",
			Characters: []string{"https://www.swapi.tech/api/people/1"},
		},
	}
	repo := &fakeQueryLogRepo{}
	uc, recorder := newTestStarwarsUsecase(gateway, repo)

	detail, err := uc.GetFilm(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "A New Hope", detail.Title)
	require.Len(t, detail.ResolvedCharacters, 1)

	recorder.Stop()

	events := repo.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, "film", events[0].kind)
}

// Test SearchPeople - the search metric carries the returned page's result count
func TestSearchPeople_RecordsMetric(t *testing.T) {
	gateway := &fakeSwapiGateway{
		people: &model.PaginatedPeople{
			Items:        []*model.Person{{ID: 1}, {ID: 2}, {ID: 3}},
			CurrentPage:  1,
			TotalPages:   1,
			TotalRecords: 3,
		},
	}
	repo := &fakeQueryLogRepo{}
	uc, recorder := newTestStarwarsUsecase(gateway, repo)

	result, err := uc.SearchPeople(context.Background(), model.SearchParams{Name: "Luke", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, result.Items, 3)

	recorder.Stop()

	events := repo.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, "search", events[0].kind)
	assert.Equal(t, "people", events[0].searchType)
	assert.Equal(t, "Luke", events[0].query)
	assert.Equal(t, 3, events[0].resultCount)
}

// Test SearchFilms - records a films search metric
func TestSearchFilms_RecordsMetric(t *testing.T) {
	gateway := &fakeSwapiGateway{
		films: []*model.Film{{ID: 1, Title: "A New Hope"}},
	}
	repo := &fakeQueryLogRepo{}
	uc, recorder := newTestStarwarsUsecase(gateway, repo)

	films, err := uc.SearchFilms(context.Background(), model.SearchParams{Name: "hope"})
	require.NoError(t, err)
	assert.Len(t, films, 1)

	recorder.Stop()

	events := repo.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, "films", events[0].searchType)
	assert.Equal(t, 1, events[0].resultCount)
}
