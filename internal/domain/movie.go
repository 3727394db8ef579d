package domain

import "time"

// SearchResult is a single row returned by a catalog title search.
type SearchResult struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Year      string `json:"year"`
	PosterURL string `json:"posterUrl"`
}

// MovieDetail is the full record returned by a catalog lookup.
type MovieDetail struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Year             string  `json:"year"`
	Released         string  `json:"released"`
	RuntimeMinutes   int     `json:"runtimeMinutes"`
	HasRuntime       bool    `json:"hasRuntime"`
	Genre            string  `json:"genre"`
	CatalogRating    float64 `json:"catalogRating"`
	HasCatalogRating bool    `json:"hasCatalogRating"`
	Plot             string  `json:"plot"`
	Actors           string  `json:"actors"`
	Director         string  `json:"director"`
	PosterURL        string  `json:"posterUrl"`
}

// WatchedEntry is a movie the user closed from the detail view, with the
// rating they gave it (0 means unrated).
type WatchedEntry struct {
	MovieDetail
	UserRating int       `json:"userRating"`
	AddedAt    time.Time `json:"addedAt"`
}

// SearchState mirrors what the results pane renders.
type SearchState struct {
	Query     string         `json:"query"`
	Results   []SearchResult `json:"results"`
	IsLoading bool           `json:"isLoading"`
	Error     string         `json:"error,omitempty"`
}

// Summary aggregates the watched list for the stats panel.
type Summary struct {
	Count                 int     `json:"count"`
	AverageCatalogRating  float64 `json:"averageCatalogRating"`
	AverageRuntimeMinutes float64 `json:"averageRuntimeMinutes"`
	AverageUserRating     float64 `json:"averageUserRating"`
}
