package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Clark-Hu/movie-search/internal/upstream"
)

type fetchMoviesParams struct {
	SearchTerm string `query:"searchTerm" validate:"required,max=200"`
	Page       int    `query:"page" validate:"gte=1,lte=100"`
}

type fetchMovieDetailsParams struct {
	IMDbID string `query:"imdbID" validate:"required,alphanum,max=16"`
}

type fetchMovieTrailerParams struct {
	MovieTitle string `query:"movieTitle" validate:"required,max=200"`
	MovieYear  string `query:"movieYear" validate:"max=32"`
}

type geminiParams struct {
	Prompt string `query:"prompt" validate:"required,max=2000"`
}

type relayMessage struct {
	Message string `json:"message"`
}

type geminiResponse struct {
	Text string `json:"text"`
}

// cors sets the permissive headers every relay response carries and answers preflights.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleFetchMovies(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params := fetchMoviesParams{
		SearchTerm: strings.TrimSpace(query.Get("searchTerm")),
		Page:       1,
	}
	if val := strings.TrimSpace(query.Get("page")); val != "" {
		page, err := strconv.Atoi(val)
		if err != nil {
			s.respondRelayError(w, http.StatusBadRequest, "page must be a number")
			return
		}
		params.Page = page
	}
	if !s.validRelayParams(w, params) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.upstreamTimeout())
	defer cancel()
	body, err := s.upstreams.Movies.SearchRaw(ctx, params.SearchTerm, params.Page)
	if err != nil {
		s.relayFailure(w, "fetchMovies", err)
		return
	}
	s.relayBody(w, body)
}

func (s *Server) handleFetchMovieDetails(w http.ResponseWriter, r *http.Request) {
	params := fetchMovieDetailsParams{IMDbID: strings.TrimSpace(r.URL.Query().Get("imdbID"))}
	if !s.validRelayParams(w, params) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.upstreamTimeout())
	defer cancel()
	body, err := s.upstreams.Movies.DetailRaw(ctx, params.IMDbID)
	if err != nil {
		s.relayFailure(w, "fetchMovieDetails", err)
		return
	}
	s.relayBody(w, body)
}

func (s *Server) handleFetchMovieTrailer(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params := fetchMovieTrailerParams{
		MovieTitle: strings.TrimSpace(query.Get("movieTitle")),
		MovieYear:  strings.TrimSpace(query.Get("movieYear")),
	}
	if !s.validRelayParams(w, params) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.upstreamTimeout())
	defer cancel()
	body, err := s.upstreams.Trailers.SearchRaw(ctx, params.MovieTitle, params.MovieYear)
	if err != nil {
		s.relayFailure(w, "fetchMovieTrailer", err)
		return
	}
	s.relayBody(w, body)
}

func (s *Server) handleGemini(w http.ResponseWriter, r *http.Request) {
	params := geminiParams{Prompt: strings.TrimSpace(r.URL.Query().Get("prompt"))}
	if !s.validRelayParams(w, params) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.upstreamTimeout())
	defer cancel()
	text, err := s.upstreams.AI.Generate(ctx, params.Prompt)
	if err != nil {
		s.relayFailure(w, "gemini", err)
		return
	}
	s.respondJSON(w, http.StatusOK, geminiResponse{Text: text})
}

func (s *Server) relayBody(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.logger.Printf("failed to write relay body: %v", err)
	}
}

func (s *Server) respondRelayError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, relayMessage{Message: message})
}

// relayFailure forwards an upstream error status as-is; any other failure becomes 502.
func (s *Server) relayFailure(w http.ResponseWriter, route string, err error) {
	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode >= http.StatusBadRequest {
		s.respondRelayError(w, statusErr.StatusCode, fmt.Sprintf("Request failed with status code %d", statusErr.StatusCode))
		return
	}

	s.logger.Printf("relay %s failed: %v", route, err)
	message := err.Error()
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// url.Error carries the request URL, which includes the API key.
		message = urlErr.Err.Error()
	}
	s.respondRelayError(w, http.StatusBadGateway, message)
}

func (s *Server) validRelayParams(w http.ResponseWriter, params interface{}) bool {
	if err := s.validate.Struct(params); err != nil {
		s.respondRelayError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// validationMessage reports only the first failing parameter.
func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid query parameters"
	}
	e := ve[0]
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", e.Field(), e.Param())
	case "alphanum":
		return fmt.Sprintf("%s must be alphanumeric", e.Field())
	default:
		return fmt.Sprintf("%s is invalid", e.Field())
	}
}
