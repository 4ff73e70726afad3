package biz

import (
	"context"
	"time"

	"StarPort/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// SwapiGateway abstracts the upstream Star Wars API. The data layer
// implementation wraps every call with retry and circuit breaker protection.
type SwapiGateway interface {
	// FetchPerson fetches one person by id. Returns *NotFoundError when the
	// upstream reports 404, *CircuitOpenError or *UnavailableError otherwise
	// on failure.
	FetchPerson(ctx context.Context, id int) (*model.Person, error)

	// FetchFilm fetches one film by id, with the same error contract as
	// FetchPerson.
	FetchFilm(ctx context.Context, id int) (*model.Film, error)

	// SearchPeople searches people, paginating locally when the upstream
	// ignores paging for name-filtered queries.
	SearchPeople(ctx context.Context, params model.SearchParams) (*model.PaginatedPeople, error)

	// SearchFilms searches films. The upstream films endpoint is not
	// paginated; the full matching list is returned.
	SearchFilms(ctx context.Context, params model.SearchParams) ([]*model.Film, error)

	// ResolveResourceNames resolves related-resource URLs to {id, name}
	// pairs concurrently, in input order. Individual failures yield
	// {id, "Unknown"} and never fail the batch.
	ResolveResourceNames(ctx context.Context, urls []string) []*model.RelatedResource
}

// PersonDetail is a person with its related film URLs resolved to names.
type PersonDetail struct {
	*model.Person
	ResolvedFilms []*model.RelatedResource
}

// FilmDetail is a film with its related character URLs resolved to names.
type FilmDetail struct {
	*model.Film
	ResolvedCharacters []*model.RelatedResource
}

// StarwarsUsecase orchestrates upstream fetches, related-resource
// resolution, and per-request metrics dispatch.
type StarwarsUsecase struct {
	gateway SwapiGateway
	metrics *MetricsRecorder
	logger  *log.Helper
}

// NewStarwarsUsecase creates a new StarwarsUsecase.
func NewStarwarsUsecase(gateway SwapiGateway, metrics *MetricsRecorder, logger log.Logger) *StarwarsUsecase {
	return &StarwarsUsecase{
		gateway: gateway,
		metrics: metrics,
		logger:  log.NewHelper(logger),
	}
}

// GetPerson fetches a person and resolves its film URLs to {id, name}.
// The gateway call duration is recorded as a detail-query metric.
func (uc *StarwarsUsecase) GetPerson(ctx context.Context, id int) (*PersonDetail, error) {
	uc.logger.Infow("msg", "fetching person", "person_id", id)

	start := time.Now()
	person, err := uc.gateway.FetchPerson(ctx, id)
	if err != nil {
		return nil, err
	}
	responseTimeMs := float64(time.Since(start)) / float64(time.Millisecond)

	uc.metrics.RecordPersonQuery(id, responseTimeMs)

	return &PersonDetail{
		Person:        person,
		ResolvedFilms: uc.gateway.ResolveResourceNames(ctx, person.Films),
	}, nil
}

// GetFilm fetches a film and resolves its character URLs to {id, name}.
func (uc *StarwarsUsecase) GetFilm(ctx context.Context, id int) (*FilmDetail, error) {
	uc.logger.Infow("msg", "fetching film", "film_id", id)

	start := time.Now()
	film, err := uc.gateway.FetchFilm(ctx, id)
	if err != nil {
		return nil, err
	}
	responseTimeMs := float64(time.Since(start)) / float64(time.Millisecond)

	uc.metrics.RecordFilmQuery(id, responseTimeMs)

	return &FilmDetail{
		Film:               film,
		ResolvedCharacters: uc.gateway.ResolveResourceNames(ctx, film.Characters),
	}, nil
}

// SearchPeople searches people and records a search metric with the result
// count of the returned page.
func (uc *StarwarsUsecase) SearchPeople(ctx context.Context, params model.SearchParams) (*model.PaginatedPeople, error) {
	start := time.Now()
	result, err := uc.gateway.SearchPeople(ctx, params)
	if err != nil {
		return nil, err
	}
	responseTimeMs := float64(time.Since(start)) / float64(time.Millisecond)

	uc.metrics.RecordSearchQuery("people", params.Name, responseTimeMs, len(result.Items))

	return result, nil
}

// SearchFilms searches films and records a search metric.
func (uc *StarwarsUsecase) SearchFilms(ctx context.Context, params model.SearchParams) ([]*model.Film, error) {
	start := time.Now()
	films, err := uc.gateway.SearchFilms(ctx, params)
	if err != nil {
		return nil, err
	}
	responseTimeMs := float64(time.Since(start)) / float64(time.Millisecond)

	uc.metrics.RecordSearchQuery("films", params.Name, responseTimeMs, len(films))

	return films, nil
}
