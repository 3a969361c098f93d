package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/Clark-Hu/movie-search/internal/search"
)

func TestBuildSearchQuery(t *testing.T) {
	values, _ := url.ParseQuery("title= bat &genre=Crime,Drama&year=2005&type=movie&director= Nolan &cast=christian bale,,michael caine")

	q, err := buildSearchQuery(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Title != "bat" || q.Prompt != "" {
		t.Fatalf("title/prompt not trimmed: %+v", q)
	}
	want := search.Filters{
		Genre:    []string{"crime", "drama"},
		Year:     []string{"2005"},
		Type:     []string{"movie"},
		Director: []string{"nolan"},
		Cast:     []string{"christian bale", "michael caine"},
	}
	if !reflect.DeepEqual(q.Filters, want) {
		t.Fatalf("filters = %+v, want %+v", q.Filters, want)
	}
}

func TestBuildSearchQuery_TooLong(t *testing.T) {
	values := url.Values{"title": {strings.Repeat("a", maxTitleInput+1)}}
	if _, err := buildSearchQuery(values); err == nil {
		t.Fatalf("expected error for oversized title")
	}
	values = url.Values{"prompt": {strings.Repeat("a", maxPromptInput+1)}}
	if _, err := buildSearchQuery(values); err == nil {
		t.Fatalf("expected error for oversized prompt")
	}
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 1, false},
		{"page=3", 3, false},
		{"page=0", 0, true},
		{"page=-2", 0, true},
		{"page=abc", 0, true},
	}
	for _, tt := range tests {
		values, _ := url.ParseQuery(tt.raw)
		got, err := parsePage(values)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Fatalf("parsePage(%q) = %d, %v; want %d, err=%v", tt.raw, got, err, tt.want, tt.wantErr)
		}
	}
}

func decodeSearch(t *testing.T, rec *httptest.ResponseRecorder) searchResponse {
	t.Helper()
	var resp searchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode search response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestAPISearchWithFilters(t *testing.T) {
	ups := batmanUpstreams()
	srv := buildTestServer(t, ups, nil)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/search?title=bat&director=nolan&year=2005", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	resp := decodeSearch(t, rec)
	if len(resp.Items) != 1 || resp.Items[0].ID() != "tt0372784" {
		t.Fatalf("items = %+v, want only Batman Begins", resp.Items)
	}
	if resp.State != search.StateDone || resp.Page != 1 || resp.TotalPages != 1 || resp.TotalResults != 1 {
		t.Fatalf("unexpected paging: %+v", resp)
	}
	if ups.movies.lastTerm != "bat" {
		t.Fatalf("term = %q, want bat", ups.movies.lastTerm)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != sessionCookie || !cookies[0].HttpOnly {
		t.Fatalf("session cookie not issued: %+v", cookies)
	}
}

func TestAPISearchRejectsBeforeAnyCall(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		wantCode string
		wantMsg  string
	}{
		{"short title", "/api/search?title=ba", "INSUFFICIENT_INPUT", search.MsgInsufficientInput},
		{"both inputs", "/api/search?title=batman&prompt=dark+knight", "AMBIGUOUS_INPUT", search.MsgAmbiguousInput},
		{"filters only", "/api/search?genre=drama&year=2005", "INSUFFICIENT_INPUT", search.MsgInsufficientInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ups := batmanUpstreams()
			srv := buildTestServer(t, ups, nil)

			rec := serve(srv, httptest.NewRequest(http.MethodGet, tt.target, nil))
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422", rec.Code)
			}
			resp := decodeError(t, rec)
			if resp.Code != tt.wantCode || resp.Message != tt.wantMsg || resp.Usage != search.UsageHint || resp.UsageURL != usagePath {
				t.Fatalf("unexpected error body: %+v", resp)
			}
			if ups.movies.titleCalls != 0 || ups.ai.lastPrompt != "" {
				t.Fatalf("collaborators called for invalid input")
			}
		})
	}
}

func TestAPISearchPromptResolution(t *testing.T) {
	ups := batmanUpstreams()
	srv := buildTestServer(t, ups, nil)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/search?prompt=first+batman+movie+featuring+christian+bale", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	resp := decodeSearch(t, rec)
	if resp.Query.Title != "Batman Begins" || resp.Query.Prompt != "" || resp.ResolvedTitle != "Batman Begins" {
		t.Fatalf("effective query = %+v", resp.Query)
	}
	if ups.movies.lastTerm != "Batman Begins" {
		t.Fatalf("term = %q, want resolved title", ups.movies.lastTerm)
	}
}

func TestAPISearchPromptNoMatch(t *testing.T) {
	ups := batmanUpstreams()
	ups.ai.text = ""
	srv := buildTestServer(t, ups, nil)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/search?prompt=what+is+the+weather", nil))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	resp := decodeError(t, rec)
	if resp.Code != "AI_RESOLUTION_FAILED" || resp.Message != search.MsgAINoMatch {
		t.Fatalf("unexpected error body: %+v", resp)
	}
	if ups.movies.titleCalls != 0 {
		t.Fatalf("title search called after failed resolution")
	}
}

func TestAPISearchTitleFailureReportsMessage(t *testing.T) {
	ups := batmanUpstreams()
	ups.movies.err = errors.New("connection reset")
	srv := buildTestServer(t, ups, nil)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/search?title=batman", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeSearch(t, rec)
	if len(resp.Items) != 0 || resp.Message != search.MsgFetchTitles || resp.UsageURL != usagePath {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAPISearchPaginationUsesStoredResult(t *testing.T) {
	ups := batmanUpstreams()
	ups.movies.summaries, ups.movies.details = manySummaries(12)
	srv := buildTestServer(t, ups, nil)

	first := serve(srv, httptest.NewRequest(http.MethodGet, "/api/search?title=star", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("status = %d", first.Code)
	}
	calls := ups.movies.titleCalls

	req := withCookies(httptest.NewRequest(http.MethodGet, "/api/search?page=2", nil), first)
	rec := serve(srv, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeSearch(t, rec)
	if resp.Page != 2 || resp.TotalPages != 2 || len(resp.Items) != 2 || resp.TotalResults != 12 {
		t.Fatalf("unexpected page: page=%d/%d items=%d total=%d", resp.Page, resp.TotalPages, len(resp.Items), resp.TotalResults)
	}
	if ups.movies.titleCalls != calls {
		t.Fatalf("paging triggered a new search")
	}
}

func TestAPISearchFiltersOnlyDoesNotServeStoredResult(t *testing.T) {
	ups := batmanUpstreams()
	srv := buildTestServer(t, ups, nil)

	first := serve(srv, httptest.NewRequest(http.MethodGet, "/api/search?title=batman", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("status = %d", first.Code)
	}

	rec := serve(srv, withCookies(httptest.NewRequest(http.MethodGet, "/api/search?genre=drama", nil), first))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "INSUFFICIENT_INPUT" {
		t.Fatalf("unexpected error body: %+v", resp)
	}
}

func TestAPISearchReset(t *testing.T) {
	srv := buildTestServer(t, batmanUpstreams(), nil)

	first := serve(srv, httptest.NewRequest(http.MethodGet, "/api/search?title=batman", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("status = %d", first.Code)
	}

	rec := serve(srv, withCookies(httptest.NewRequest(http.MethodDelete, "/api/search", nil), first))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("reset status = %d, want 204", rec.Code)
	}

	rec = serve(srv, withCookies(httptest.NewRequest(http.MethodGet, "/api/search?page=1", nil), first))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("page after reset = %d, want 404", rec.Code)
	}
}

func TestAPISearchPageWithoutSession(t *testing.T) {
	srv := buildTestServer(t, batmanUpstreams(), nil)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/search?page=2", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestAPISearchBadPage(t *testing.T) {
	srv := buildTestServer(t, batmanUpstreams(), nil)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/search?title=batman&page=x", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAPIMovie(t *testing.T) {
	ups := batmanUpstreams()
	srv := buildTestServer(t, ups, nil)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/movies/tt0372784", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	var resp movieDetailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Detail.Director != "Christopher Nolan" {
		t.Fatalf("detail = %+v", resp.Detail)
	}
	if resp.Trailer == nil || resp.Trailer.EmbedURL != "https://www.youtube.com/embed/neY2xVmOfUM" {
		t.Fatalf("trailer = %+v", resp.Trailer)
	}
	if ups.trailers.lastTitle != "Batman Begins" || ups.trailers.lastYear != "2005" {
		t.Fatalf("trailer lookup used %q/%q", ups.trailers.lastTitle, ups.trailers.lastYear)
	}
}

func TestAPIMovieWithoutTrailer(t *testing.T) {
	ups := batmanUpstreams()
	ups.trailers.trailer.VideoID = ""
	srv := buildTestServer(t, ups, nil)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/movies/tt0096895", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"trailer":null`) {
		t.Fatalf("body = %s, want null trailer", rec.Body.String())
	}
}

func TestAPIMovieErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		status int
	}{
		{"unknown id", "/api/movies/tt9999999", http.StatusNotFound},
		{"malformed id", "/api/movies/tt-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := buildTestServer(t, batmanUpstreams(), nil)
			rec := serve(srv, httptest.NewRequest(http.MethodGet, tt.target, nil))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestAPIMovieUpstreamFailure(t *testing.T) {
	ups := batmanUpstreams()
	ups.movies.err = errors.New("timeout")
	srv := buildTestServer(t, ups, nil)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/movies/tt0372784", nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Message != search.MsgFetchDetails {
		t.Fatalf("message = %q", resp.Message)
	}
}
