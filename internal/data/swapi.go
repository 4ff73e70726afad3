package data

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"StarPort/internal/biz"
	"StarPort/internal/conf"
	"StarPort/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// circuitKeyPrefix namespaces the breaker state of upstream endpoints.
const circuitKeyPrefix = "swapi:circuit"

// SwapiHTTPGateway implements biz.SwapiGateway against the SWAPI REST API,
// going through the resilient client for every fetch and search call.
type SwapiHTTPGateway struct {
	client          *resilientClient
	resolver        *ResourceResolver
	defaultPageSize int
	logger          *log.Helper
}

var _ biz.SwapiGateway = (*SwapiHTTPGateway)(nil)

// NewSwapiHTTPGateway creates the gateway from upstream configuration.
func NewSwapiHTTPGateway(c *conf.Swapi, breaker *CircuitBreakerStore, resolver *ResourceResolver, logger log.Logger) (*SwapiHTTPGateway, error) {
	client, err := newResilientClient(
		strings.TrimSuffix(c.BaseUrl, "/"),
		c.Timeout.AsDuration(),
		int(c.RetryTimes),
		c.RetrySleep.AsDuration(),
		c.ProxyUrl,
		breaker,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create SWAPI client: %w", err)
	}

	defaultPageSize := int(c.DefaultPageSize)
	if defaultPageSize < 1 {
		defaultPageSize = 10
	}

	return &SwapiHTTPGateway{
		client:          client,
		resolver:        resolver,
		defaultPageSize: defaultPageSize,
		logger:          log.NewHelper(logger),
	}, nil
}

// circuitKey builds one breaker key per endpoint, e.g. "/people/1" ->
// "swapi:circuit:people:1".
func circuitKey(endpoint string) string {
	normalized := strings.ReplaceAll(strings.Trim(endpoint, "/"), "/", ":")
	return circuitKeyPrefix + ":" + normalized
}

// FetchPerson fetches one person by id.
func (g *SwapiHTTPGateway) FetchPerson(ctx context.Context, id int) (*model.Person, error) {
	endpoint := fmt.Sprintf("/people/%d", id)

	resp, err := g.client.ExecuteGet(ctx, endpoint, nil, circuitKey(endpoint), 404)
	if err != nil {
		return nil, g.mapFetchError(err, "Person", id)
	}

	return personFromProperties(id, newEnvelope(resp.body).properties()), nil
}

// FetchFilm fetches one film by id.
func (g *SwapiHTTPGateway) FetchFilm(ctx context.Context, id int) (*model.Film, error) {
	endpoint := fmt.Sprintf("/films/%d", id)

	resp, err := g.client.ExecuteGet(ctx, endpoint, nil, circuitKey(endpoint), 404)
	if err != nil {
		return nil, g.mapFetchError(err, "Film", id)
	}

	return filmFromProperties(id, newEnvelope(resp.body).properties()), nil
}

// SearchPeople searches people by name with pagination.
//
// The upstream ignores paging parameters whenever a name filter is present
// and returns the entire matching set in one response. In that case page
// and limit are stripped before the call and the returned list is paginated
// locally. Without a name filter the upstream's own pagination metadata is
// trusted verbatim.
func (g *SwapiHTTPGateway) SearchPeople(ctx context.Context, params model.SearchParams) (*model.PaginatedPeople, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit < 1 {
		limit = g.defaultPageSize
	}

	query := url.Values{}
	nameFiltered := strings.TrimSpace(params.Name) != ""
	if nameFiltered {
		query.Set("name", params.Name)
	} else {
		query.Set("page", strconv.Itoa(page))
		query.Set("limit", strconv.Itoa(limit))
	}

	resp, err := g.client.ExecuteGet(ctx, "/people", query, circuitKey("/people"), -1)
	if err != nil {
		return nil, g.mapSearchError(err, "people")
	}

	env := newEnvelope(resp.body)

	items := env.results()
	people := make([]*model.Person, 0, len(items))
	for _, item := range items {
		people = append(people, personFromProperties(asInt(item["uid"]), itemProperties(item)))
	}

	if nameFiltered {
		return paginateLocally(people, page, limit), nil
	}

	return &model.PaginatedPeople{
		Items:        people,
		CurrentPage:  page,
		TotalPages:   env.totalPages(),
		TotalRecords: env.totalRecords(),
		HasNextPage:  env.hasNextPage(),
	}, nil
}

// SearchFilms searches films by name. The upstream films endpoint does not
// paginate; the full matching list comes back in one response.
func (g *SwapiHTTPGateway) SearchFilms(ctx context.Context, params model.SearchParams) ([]*model.Film, error) {
	query := url.Values{}
	if strings.TrimSpace(params.Name) != "" {
		query.Set("title", params.Name)
	}

	resp, err := g.client.ExecuteGet(ctx, "/films", query, circuitKey("/films"), -1)
	if err != nil {
		return nil, g.mapSearchError(err, "films")
	}

	items := newEnvelope(resp.body).results()
	films := make([]*model.Film, 0, len(items))
	for _, item := range items {
		films = append(films, filmFromProperties(asInt(item["uid"]), itemProperties(item)))
	}

	return films, nil
}

// ResolveResourceNames resolves related-resource URLs concurrently.
func (g *SwapiHTTPGateway) ResolveResourceNames(ctx context.Context, urls []string) []*model.RelatedResource {
	return g.resolver.Resolve(ctx, urls)
}

// mapFetchError translates client failures into domain errors: the
// designated not-found status becomes *biz.NotFoundError, circuit
// rejections pass through unchanged, everything else wraps into
// *biz.UnavailableError carrying the cause.
func (g *SwapiHTTPGateway) mapFetchError(err error, resource string, id int) error {
	var nf *notFoundError
	if errors.As(err, &nf) {
		g.logger.Infow("msg", "upstream resource not found", "resource", resource, "id", id)
		return &biz.NotFoundError{Resource: resource, ID: id}
	}

	var co *biz.CircuitOpenError
	if errors.As(err, &co) {
		g.logger.Warnw("msg", "upstream circuit open", "resource", resource, "id", id, "circuit", co.Key)
		return err
	}

	g.logger.Errorw("msg", "upstream fetch failed", "resource", resource, "id", id, "error", err)
	return &biz.UnavailableError{Message: "SWAPI request failed", Cause: err}
}

func (g *SwapiHTTPGateway) mapSearchError(err error, kind string) error {
	var co *biz.CircuitOpenError
	if errors.As(err, &co) {
		g.logger.Warnw("msg", "upstream circuit open", "search", kind, "circuit", co.Key)
		return err
	}

	g.logger.Errorw("msg", "upstream search failed", "search", kind, "error", err)
	return &biz.UnavailableError{Message: "SWAPI search request failed", Cause: err}
}

// paginateLocally slices a full result set into the requested page:
// totalPages = ceil(total/limit) with a minimum of 1, the requested page
// clamped into [1, totalPages].
func paginateLocally(people []*model.Person, page, limit int) *model.PaginatedPeople {
	total := len(people)

	totalPages := (total + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &model.PaginatedPeople{
		Items:        people[start:end],
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalRecords: total,
		HasNextPage:  page < totalPages,
	}
}

// personFromProperties maps upstream fields to the domain record with
// empty-string defaults for anything missing.
func personFromProperties(id int, props map[string]any) *model.Person {
	return &model.Person{
		ID:        id,
		Name:      asString(props["name"]),
		Height:    asString(props["height"]),
		Mass:      asString(props["mass"]),
		BirthYear: asString(props["birth_year"]),
		Gender:    asString(props["gender"]),
		SkinColor: asString(props["skin_color"]),
		HairColor: asString(props["hair_color"]),
		EyeColor:  asString(props["eye_color"]),
		Films:     asStringList(props["films"]),
	}
}

func filmFromProperties(id int, props map[string]any) *model.Film {
	return &model.Film{
		ID:           id,
		Title:        asString(props["title"]),
		EpisodeID:    asInt(props["episode_id"]),
		Director:     asString(props["director"]),
		Producer:     asString(props["producer"]),
		ReleaseDate:  asString(props["release_date"]),
		OpeningCrawl: asString(props["opening_crawl"]),
		Characters:   asStringList(props["characters"]),
	}
}
