// Package model defines the domain records shared across layers.
package model

// Person is a normalized SWAPI person record. Missing upstream fields map
// to empty strings; Films holds the raw related-resource URLs.
type Person struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Height    string   `json:"height"`
	Mass      string   `json:"mass"`
	BirthYear string   `json:"birth_year"`
	Gender    string   `json:"gender"`
	SkinColor string   `json:"skin_color"`
	HairColor string   `json:"hair_color"`
	EyeColor  string   `json:"eye_color"`
	Films     []string `json:"films"`
}

// Film is a normalized SWAPI film record. Characters holds the raw
// related-resource URLs.
type Film struct {
	ID           int      `json:"id"`
	Title        string   `json:"title"`
	EpisodeID    int      `json:"episode_id"`
	Director     string   `json:"director"`
	Producer     string   `json:"producer"`
	ReleaseDate  string   `json:"release_date"`
	OpeningCrawl string   `json:"opening_crawl"`
	Characters   []string `json:"characters"`
}

// RelatedResource is a resolved cross-reference: the numeric id extracted
// from a SWAPI URL and the human-readable name (or "Unknown").
type RelatedResource struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// PaginatedPeople is one page of a people search result.
type PaginatedPeople struct {
	Items        []*Person `json:"items"`
	CurrentPage  int       `json:"current_page"`
	TotalPages   int       `json:"total_pages"`
	TotalRecords int       `json:"total_records"`
	HasNextPage  bool      `json:"has_next_page"`
}

// SearchParams are the recognized people/film search parameters.
// Zero values are dropped before the upstream call.
type SearchParams struct {
	Name  string
	Page  int
	Limit int
}
