package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/movie-search/internal/domain"
	"github.com/Clark-Hu/movie-search/internal/omdb"
	"github.com/Clark-Hu/movie-search/internal/search"
	"github.com/Clark-Hu/movie-search/internal/youtube"
)

const (
	sessionCookie  = "movie_search_session"
	usagePath      = "/usage"
	maxTitleInput  = 200
	maxPromptInput = 2000
)

var errMovieNotFound = errors.New("movie not found")

type errorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Usage    string `json:"usage,omitempty"`
	UsageURL string `json:"usageUrl,omitempty"`
}

type searchResponse struct {
	ID            string                  `json:"id"`
	State         search.State            `json:"state"`
	Query         search.Query            `json:"query"`
	ResolvedTitle string                  `json:"resolvedTitle,omitempty"`
	Items         []domain.EnrichedResult `json:"items"`
	Page          int                     `json:"page"`
	TotalPages    int                     `json:"totalPages"`
	TotalResults  int                     `json:"totalResults"`
	Message       string                  `json:"message,omitempty"`
	Usage         string                  `json:"usage,omitempty"`
	UsageURL      string                  `json:"usageUrl,omitempty"`
}

type trailerResponse struct {
	VideoID  string `json:"videoId"`
	Title    string `json:"title,omitempty"`
	EmbedURL string `json:"embedUrl"`
}

type movieDetailResponse struct {
	Summary domain.SummaryRecord `json:"summary"`
	Detail  domain.DetailRecord  `json:"detail"`
	Trailer *trailerResponse     `json:"trailer"`
}

func (s *Server) handleAPISearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q, err := buildSearchQuery(query)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	page, err := parsePage(query)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	sess := s.session(w, r)
	if isSearchRequest(query) {
		if _, err := s.runSearch(r.Context(), sess, q); err != nil {
			s.respondSearchError(w, err)
			return
		}
	}

	view, ok := sess.Page(page)
	if !ok {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "No search has been run in this session")
		return
	}
	s.respondJSON(w, http.StatusOK, toSearchResponse(view))
}

func (s *Server) handleAPIReset(w http.ResponseWriter, r *http.Request) {
	s.resetSession(r)
	w.WriteHeader(http.StatusNoContent)
}

// resetSession clears the visitor's result list. Visitors without a session have nothing to clear.
func (s *Server) resetSession(r *http.Request) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return
	}
	if sess, ok := s.sessions.Get(c.Value); ok {
		sess.Reset()
	}
}

func (s *Server) handleAPIMovie(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.validate.Var(id, "required,alphanum,max=16"); err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid movie id")
		return
	}

	movie, trailer, err := s.loadMovie(r, id)
	if err != nil {
		if errors.Is(err, errMovieNotFound) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}
		s.respondError(w, http.StatusBadGateway, "UPSTREAM_ERROR", search.MsgFetchDetails)
		return
	}

	resp := movieDetailResponse{Summary: movie.Summary, Detail: movie.Detail}
	if trailer.VideoID != "" {
		resp.Trailer = &trailerResponse{VideoID: trailer.VideoID, Title: trailer.Title, EmbedURL: trailer.EmbedURL()}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// runSearch runs q in sess bounded by the configured search timeout.
func (s *Server) runSearch(ctx context.Context, sess *search.Session, q search.Query) (search.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.searchTimeout())
	defer cancel()
	return sess.Search(ctx, q)
}

func (s *Server) respondSearchError(w http.ResponseWriter, err error) {
	kind := search.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case search.KindAmbiguousInput, search.KindInsufficientInput, search.KindAIResolution:
		status = http.StatusUnprocessableEntity
	case search.KindCanceled:
		status = http.StatusConflict
	default:
		s.logger.Printf("search error: %v", err)
	}
	s.respondJSON(w, status, errorResponse{
		Code:     kind.String(),
		Message:  search.UserMessage(err),
		Usage:    search.UsageHint,
		UsageURL: usagePath,
	})
}

// loadMovie prefers the record from the visitor's latest result list and falls back to a
// fresh detail lookup. A missing trailer is not an error.
func (s *Server) loadMovie(r *http.Request, id string) (domain.EnrichedResult, domain.Trailer, error) {
	movie, found := domain.EnrichedResult{}, false
	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess, ok := s.sessions.Get(c.Value); ok {
			movie, found = sess.Lookup(id)
		}
	}

	if !found {
		ctx, cancel := context.WithTimeout(r.Context(), s.upstreamTimeout())
		detail, err := s.upstreams.Movies.FetchDetail(ctx, id)
		cancel()
		if err != nil {
			if errors.Is(err, omdb.ErrNotFound) {
				return domain.EnrichedResult{}, domain.Trailer{}, fmt.Errorf("%w: %s", errMovieNotFound, id)
			}
			s.logger.Printf("fetch detail for %s failed: %v", id, err)
			return domain.EnrichedResult{}, domain.Trailer{}, err
		}
		if detail.ID == "" {
			detail.ID = id
		}
		movie = domain.EnrichedResult{
			Summary: domain.SummaryRecord{ID: id, Title: detail.Title, Year: detail.Year, Type: detail.Type, Poster: detail.Poster},
			Detail:  detail,
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.upstreamTimeout())
	defer cancel()
	trailer, err := s.upstreams.Trailers.FindTrailer(ctx, movie.Detail.Title, movie.Year())
	if err != nil {
		if !errors.Is(err, youtube.ErrNoTrailer) {
			s.logger.Printf("trailer lookup for %s failed: %v", id, err)
		}
		trailer = domain.Trailer{}
	}
	return movie, trailer, nil
}

// session returns the visitor's session, issuing a cookie when a new one was created.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *search.Session {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	sess := s.sessions.GetOrCreate(id)
	if sess.ID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}

// searchKeys are the query keys that start a new search; a request with none of them
// only pages through the stored result.
var searchKeys = []string{"title", "prompt", "genre", "year", "type", "director", "cast"}

func isSearchRequest(query url.Values) bool {
	for _, key := range searchKeys {
		if query.Has(key) {
			return true
		}
	}
	return false
}

func buildSearchQuery(query url.Values) (search.Query, error) {
	q := search.Query{
		Title:  strings.TrimSpace(query.Get("title")),
		Prompt: strings.TrimSpace(query.Get("prompt")),
		Filters: search.Filters{
			Genre:    search.ParseFilterList(query.Get("genre")),
			Year:     search.ParseFilterList(query.Get("year")),
			Type:     search.ParseFilterList(query.Get("type")),
			Director: search.ParseFilterList(query.Get("director")),
			Cast:     search.ParseFilterList(query.Get("cast")),
		},
	}
	if utf8.RuneCountInString(q.Title) > maxTitleInput {
		return q, fmt.Errorf("title must be at most %d characters", maxTitleInput)
	}
	if utf8.RuneCountInString(q.Prompt) > maxPromptInput {
		return q, fmt.Errorf("prompt must be at most %d characters", maxPromptInput)
	}
	return q, nil
}

func parsePage(query url.Values) (int, error) {
	val := strings.TrimSpace(query.Get("page"))
	if val == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(val)
	if err != nil || page < 1 {
		return 0, fmt.Errorf("invalid page value")
	}
	return page, nil
}

func toSearchResponse(view search.PageView) searchResponse {
	resp := searchResponse{
		ID:            view.Result.ID,
		State:         view.Result.State,
		Query:         view.Result.Query,
		ResolvedTitle: view.Result.ResolvedTitle,
		Items:         view.Items,
		Page:          view.Page,
		TotalPages:    view.TotalPages,
		TotalResults:  view.Total,
		Message:       view.Result.Message,
		Usage:         view.Result.Usage,
	}
	if resp.Items == nil {
		resp.Items = []domain.EnrichedResult{}
	}
	if resp.Usage != "" {
		resp.UsageURL = usagePath
	}
	return resp
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Printf("failed to encode response: %v", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}
