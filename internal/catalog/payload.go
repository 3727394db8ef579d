package catalog

import (
	"math"
	"strconv"
	"strings"

	"github.com/Clark-Hu/popcorn/internal/domain"
)

const notAvailable = "N/A"

// searchPayload is the wire shape of a title search.
type searchPayload struct {
	Response string       `json:"Response"`
	Error    string       `json:"Error"`
	Search   []searchItem `json:"Search" validate:"required,dive"`
}

type searchItem struct {
	Title  string `json:"Title" validate:"required"`
	Year   string `json:"Year"`
	ImdbID string `json:"imdbID" validate:"required"`
	Poster string `json:"Poster"`
}

// detailPayload is the flat wire shape of a lookup by identifier.
type detailPayload struct {
	Response   string `json:"Response"`
	Error      string `json:"Error"`
	Title      string `json:"Title" validate:"required"`
	Year       string `json:"Year"`
	Released   string `json:"Released"`
	Runtime    string `json:"Runtime"`
	Genre      string `json:"Genre"`
	Director   string `json:"Director"`
	Actors     string `json:"Actors"`
	Plot       string `json:"Plot"`
	Poster     string `json:"Poster"`
	ImdbRating string `json:"imdbRating"`
	ImdbID     string `json:"imdbID" validate:"required"`
}

func convertSearch(payload searchPayload) []domain.SearchResult {
	results := make([]domain.SearchResult, 0, len(payload.Search))
	for _, item := range payload.Search {
		results = append(results, domain.SearchResult{
			ID:        strings.TrimSpace(item.ImdbID),
			Title:     item.Title,
			Year:      item.Year,
			PosterURL: cleanPoster(item.Poster),
		})
	}
	return results
}

func convertDetail(payload detailPayload) domain.MovieDetail {
	runtime, hasRuntime := parseLeadingInt(payload.Runtime)
	rating, hasRating := parseRating(payload.ImdbRating)
	return domain.MovieDetail{
		ID:               strings.TrimSpace(payload.ImdbID),
		Title:            payload.Title,
		Year:             payload.Year,
		Released:         payload.Released,
		RuntimeMinutes:   runtime,
		HasRuntime:       hasRuntime,
		Genre:            payload.Genre,
		CatalogRating:    rating,
		HasCatalogRating: hasRating,
		Plot:             payload.Plot,
		Actors:           payload.Actors,
		Director:         payload.Director,
		PosterURL:        cleanPoster(payload.Poster),
	}
}

func cleanPoster(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == notAvailable {
		return ""
	}
	return raw
}

// parseLeadingInt reads the integer prefix of values such as "142 min".
func parseLeadingInt(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	end := 0
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(raw[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseRating(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == notAvailable {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
