package domain

// SummaryRecord is the minimal entry returned by a title search.
type SummaryRecord struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Year   string `json:"year"`
	Type   string `json:"type"`
	Poster string `json:"poster,omitempty"`
}

// RatingScore is one (source, score) pair from the detail record, e.g. ("Rotten Tomatoes", "84%").
type RatingScore struct {
	Source string `json:"source"`
	Value  string `json:"value"`
}

// DetailRecord carries the full metadata for a title, keyed by the same ID as its summary.
// Fields the upstream reported as unavailable are empty.
type DetailRecord struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Year       string        `json:"year"`
	Type       string        `json:"type,omitempty"`
	Genre      string        `json:"genre,omitempty"`
	Director   string        `json:"director,omitempty"`
	Writer     string        `json:"writer,omitempty"`
	Actors     string        `json:"actors,omitempty"`
	Plot       string        `json:"plot,omitempty"`
	Runtime    string        `json:"runtime,omitempty"`
	Rated      string        `json:"rated,omitempty"`
	Awards     string        `json:"awards,omitempty"`
	BoxOffice  string        `json:"boxOffice,omitempty"`
	Production string        `json:"production,omitempty"`
	Language   string        `json:"language,omitempty"`
	Poster     string        `json:"poster,omitempty"`
	Ratings    []RatingScore `json:"ratings,omitempty"`
}

// EnrichedResult joins a summary with its successfully fetched detail.
type EnrichedResult struct {
	Summary SummaryRecord `json:"summary"`
	Detail  DetailRecord  `json:"detail"`
}

// ID returns the shared identifier of the joined records.
func (e EnrichedResult) ID() string {
	return e.Summary.ID
}

// Type prefers the detail's type and falls back to the summary's.
func (e EnrichedResult) Type() string {
	if e.Detail.Type != "" {
		return e.Detail.Type
	}
	return e.Summary.Type
}

// Poster prefers the summary's poster and falls back to the detail's.
func (e EnrichedResult) Poster() string {
	if e.Summary.Poster != "" {
		return e.Summary.Poster
	}
	return e.Detail.Poster
}

// Year prefers the detail's year and falls back to the summary's.
func (e EnrichedResult) Year() string {
	if e.Detail.Year != "" {
		return e.Detail.Year
	}
	return e.Summary.Year
}

// SearchPage is one page of a title search. Exhausted is set when the upstream reported
// no (further) results for the query.
type SearchPage struct {
	Records      []SummaryRecord
	TotalResults int
	Exhausted    bool
}
