// Package service exposes the HTTP API: person/film fetches with resolved
// related resources, people/film search, and query statistics.
package service

import (
	"strconv"

	"StarPort/internal/biz"
	"StarPort/internal/model"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// StarwarsService serves the Star Wars proxy endpoints.
type StarwarsService struct {
	uc     *biz.StarwarsUsecase
	logger *log.Helper
}

// NewStarwarsService creates a new StarwarsService instance.
func NewStarwarsService(uc *biz.StarwarsUsecase, logger log.Logger) *StarwarsService {
	return &StarwarsService{
		uc:     uc,
		logger: log.NewHelper(logger),
	}
}

// RegisterRoutes attaches the proxy routes to the HTTP server.
func (s *StarwarsService) RegisterRoutes(srv *http.Server) {
	r := srv.Route("/api")
	r.GET("/people/{id}", s.GetPerson)
	r.GET("/people", s.SearchPeople)
	r.GET("/films/{id}", s.GetFilm)
	r.GET("/films", s.SearchFilms)
}

// personPayload is the person detail response body, with related film URLs
// resolved to {id, name}.
type personPayload struct {
	ID        int                      `json:"id"`
	Name      string                   `json:"name"`
	Height    string                   `json:"height"`
	Mass      string                   `json:"mass"`
	BirthYear string                   `json:"birth_year"`
	Gender    string                   `json:"gender"`
	SkinColor string                   `json:"skin_color"`
	HairColor string                   `json:"hair_color"`
	EyeColor  string                   `json:"eye_color"`
	Films     []*model.RelatedResource `json:"films"`
}

type filmPayload struct {
	ID           int                      `json:"id"`
	Title        string                   `json:"title"`
	EpisodeID    int                      `json:"episode_id"`
	Director     string                   `json:"director"`
	Producer     string                   `json:"producer"`
	ReleaseDate  string                   `json:"release_date"`
	OpeningCrawl string                   `json:"opening_crawl"`
	Characters   []*model.RelatedResource `json:"characters"`
}

type paginationMeta struct {
	CurrentPage  int  `json:"current_page"`
	TotalPages   int  `json:"total_pages"`
	TotalRecords int  `json:"total_records"`
	HasNextPage  bool `json:"has_next_page"`
}

type paginatedPayload struct {
	Items []*model.Person `json:"items"`
	Meta  paginationMeta  `json:"meta"`
}

// filmSearchItem is the slim film representation for search result lists.
type filmSearchItem struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

type dataResponse struct {
	Data any `json:"data"`
}

// GetPerson handles GET /api/people/{id}.
func (s *StarwarsService) GetPerson(ctx http.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	detail, err := s.uc.GetPerson(ctx, id)
	if err != nil {
		return mapDomainError(err)
	}

	return ctx.Result(200, &dataResponse{Data: &personPayload{
		ID:        detail.ID,
		Name:      detail.Name,
		Height:    detail.Height,
		Mass:      detail.Mass,
		BirthYear: detail.BirthYear,
		Gender:    detail.Gender,
		SkinColor: detail.SkinColor,
		HairColor: detail.HairColor,
		EyeColor:  detail.EyeColor,
		Films:     detail.ResolvedFilms,
	}})
}

// GetFilm handles GET /api/films/{id}.
func (s *StarwarsService) GetFilm(ctx http.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	detail, err := s.uc.GetFilm(ctx, id)
	if err != nil {
		return mapDomainError(err)
	}

	return ctx.Result(200, &dataResponse{Data: &filmPayload{
		ID:           detail.ID,
		Title:        detail.Title,
		EpisodeID:    detail.EpisodeID,
		Director:     detail.Director,
		Producer:     detail.Producer,
		ReleaseDate:  detail.ReleaseDate,
		OpeningCrawl: detail.OpeningCrawl,
		Characters:   detail.ResolvedCharacters,
	}})
}

// SearchPeople handles GET /api/people with name/page/limit parameters.
func (s *StarwarsService) SearchPeople(ctx http.Context) error {
	params := searchParams(ctx)

	result, err := s.uc.SearchPeople(ctx, params)
	if err != nil {
		return mapDomainError(err)
	}

	return ctx.Result(200, &dataResponse{Data: &paginatedPayload{
		Items: result.Items,
		Meta: paginationMeta{
			CurrentPage:  result.CurrentPage,
			TotalPages:   result.TotalPages,
			TotalRecords: result.TotalRecords,
			HasNextPage:  result.HasNextPage,
		},
	}})
}

// SearchFilms handles GET /api/films with a name parameter.
func (s *StarwarsService) SearchFilms(ctx http.Context) error {
	params := searchParams(ctx)

	films, err := s.uc.SearchFilms(ctx, params)
	if err != nil {
		return mapDomainError(err)
	}

	items := make([]*filmSearchItem, 0, len(films))
	for _, film := range films {
		items = append(items, &filmSearchItem{ID: film.ID, Title: film.Title})
	}

	return ctx.Result(200, &dataResponse{Data: items})
}

func pathID(ctx http.Context) (int, error) {
	raw := ctx.Vars().Get("id")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.BadRequest("INVALID_ID", "id must be a positive integer")
	}
	return id, nil
}

func searchParams(ctx http.Context) model.SearchParams {
	query := ctx.Query()

	page, _ := strconv.Atoi(query.Get("page"))
	limit, _ := strconv.Atoi(query.Get("limit"))

	return model.SearchParams{
		Name:  query.Get("name"),
		Page:  page,
		Limit: limit,
	}
}

// mapDomainError translates domain errors to boundary responses: not found
// stays distinct, transient-unavailable conditions map to 503, and anything
// else becomes a generic internal error that leaks no detail.
func mapDomainError(err error) error {
	switch {
	case biz.IsNotFound(err):
		return errors.NotFound("RESOURCE_NOT_FOUND", err.Error())
	case biz.IsUnavailable(err):
		return errors.ServiceUnavailable("UPSTREAM_UNAVAILABLE", "service temporarily unavailable")
	default:
		return errors.InternalServer("INTERNAL_ERROR", "internal error")
	}
}
