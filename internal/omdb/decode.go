package omdb

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Clark-Hu/movie-search/internal/domain"
)

// unavailable is OMDb's marker for a missing field.
const unavailable = "N/A"

type searchResponse struct {
	Response     string           `json:"Response"`
	Error        string           `json:"Error"`
	TotalResults string           `json:"totalResults"`
	Search       []summaryPayload `json:"Search"`
}

type summaryPayload struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	ImdbID string `json:"imdbID"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`
}

type detailResponse struct {
	Response   string          `json:"Response"`
	Error      string          `json:"Error"`
	ImdbID     string          `json:"imdbID"`
	Title      string          `json:"Title"`
	Year       string          `json:"Year"`
	Type       string          `json:"Type"`
	Genre      string          `json:"Genre"`
	Director   string          `json:"Director"`
	Writer     string          `json:"Writer"`
	Actors     string          `json:"Actors"`
	Plot       string          `json:"Plot"`
	Runtime    string          `json:"Runtime"`
	Rated      string          `json:"Rated"`
	Awards     string          `json:"Awards"`
	BoxOffice  string          `json:"BoxOffice"`
	Production string          `json:"Production"`
	Language   string          `json:"Language"`
	Poster     string          `json:"Poster"`
	Ratings    []ratingPayload `json:"Ratings"`
}

type ratingPayload struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

func decodeSearchPage(body []byte) (domain.SearchPage, error) {
	var payload searchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.SearchPage{}, fmt.Errorf("decode omdb search response: %w", err)
	}
	if strings.EqualFold(payload.Response, "False") {
		return domain.SearchPage{Exhausted: true}, nil
	}

	records := make([]domain.SummaryRecord, 0, len(payload.Search))
	for _, item := range payload.Search {
		id := strings.TrimSpace(item.ImdbID)
		if id == "" {
			continue
		}
		records = append(records, domain.SummaryRecord{
			ID:     id,
			Title:  available(item.Title),
			Year:   available(item.Year),
			Type:   available(item.Type),
			Poster: available(item.Poster),
		})
	}
	total, _ := strconv.Atoi(strings.TrimSpace(payload.TotalResults))
	return domain.SearchPage{
		Records:      records,
		TotalResults: total,
		Exhausted:    len(records) == 0,
	}, nil
}

func decodeDetail(body []byte) (domain.DetailRecord, error) {
	var payload detailResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.DetailRecord{}, fmt.Errorf("decode omdb detail response: %w", err)
	}
	if strings.EqualFold(payload.Response, "False") {
		if payload.Error != "" {
			return domain.DetailRecord{}, fmt.Errorf("%w: %s", ErrNotFound, payload.Error)
		}
		return domain.DetailRecord{}, ErrNotFound
	}

	detail := domain.DetailRecord{
		ID:         strings.TrimSpace(payload.ImdbID),
		Title:      available(payload.Title),
		Year:       available(payload.Year),
		Type:       available(payload.Type),
		Genre:      available(payload.Genre),
		Director:   available(payload.Director),
		Writer:     available(payload.Writer),
		Actors:     available(payload.Actors),
		Plot:       available(payload.Plot),
		Runtime:    available(payload.Runtime),
		Rated:      available(payload.Rated),
		Awards:     available(payload.Awards),
		BoxOffice:  available(payload.BoxOffice),
		Production: available(payload.Production),
		Language:   available(payload.Language),
		Poster:     available(payload.Poster),
	}
	for _, r := range payload.Ratings {
		source := available(r.Source)
		if source == "" {
			continue
		}
		detail.Ratings = append(detail.Ratings, domain.RatingScore{
			Source: source,
			Value:  available(r.Value),
		})
	}
	return detail, nil
}

// available maps OMDb's "N/A" marker to the empty string.
func available(value string) string {
	value = strings.TrimSpace(value)
	if strings.EqualFold(value, unavailable) {
		return ""
	}
	return value
}
