package httpserver

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/movie-search/internal/domain"
	"github.com/Clark-Hu/movie-search/internal/search"
)

//go:embed templates/*.html static/*
var assets embed.FS

const posterPlaceholder = "/static/no-poster.svg"

var standardRatingSources = []string{"Internet Movie Database", "Rotten Tomatoes", "Metacritic"}

type searchForm struct {
	Title    string
	Prompt   string
	Genre    string
	Year     string
	Type     string
	Director string
	Cast     string
}

type resultCard struct {
	ID     string
	Title  template.HTML
	Type   string
	Year   string
	Rated  string
	Poster string
}

type indexPage struct {
	Form       searchForm
	Searched   bool
	Items      []resultCard
	Page       int
	TotalPages int
	Total      int
	PrevPage   int
	NextPage   int
	Message    string
	Usage      string
	UsagePath  string
}

type moviePage struct {
	Movie    domain.EnrichedResult
	Poster   string
	EmbedURL string
	Ratings  []domain.RatingScore
	IMDbURL  string
}

func parsePages() *template.Template {
	funcs := template.FuncMap{
		"orNA":       orNA,
		"capitalize": capitalize,
	}
	return template.Must(template.New("pages").Funcs(funcs).ParseFS(assets, "templates/*.html"))
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	data := indexPage{UsagePath: usagePath, Form: formFromQuery(query)}

	q, err := buildSearchQuery(query)
	if err != nil {
		data.Message = err.Error()
		s.render(w, http.StatusBadRequest, "index", data)
		return
	}
	page, err := parsePage(query)
	if err != nil {
		page = 1
	}

	sess := s.session(w, r)
	if isSearchRequest(query) {
		if _, err := s.runSearch(r.Context(), sess, q); err != nil && errors.Is(err, search.ErrSuperseded) {
			data.Message = search.MsgCanceled
			data.Usage = search.UsageHint
			s.render(w, http.StatusOK, "index", data)
			return
		}
	}

	if view, ok := sess.Page(page); ok {
		data.fill(view)
	}
	s.render(w, http.StatusOK, "index", data)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.resetSession(r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleMoviePage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.validate.Var(id, "required,alphanum,max=16"); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	movie, trailer, err := s.loadMovie(r, id)
	if err != nil {
		if errors.Is(err, errMovieNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		s.render(w, http.StatusBadGateway, "index", indexPage{
			UsagePath: usagePath,
			Message:   search.MsgFetchDetails,
			Usage:     search.UsageHint,
		})
		return
	}

	data := moviePage{
		Movie:    movie,
		Poster:   posterURL(movie),
		EmbedURL: trailer.EmbedURL(),
		Ratings:  movie.Detail.Ratings,
		IMDbURL:  "https://www.imdb.com/title/" + url.PathEscape(id) + "/",
	}
	if len(data.Ratings) == 0 {
		data.Ratings = make([]domain.RatingScore, 0, len(standardRatingSources))
		for _, source := range standardRatingSources {
			data.Ratings = append(data.Ratings, domain.RatingScore{Source: source})
		}
	}
	s.render(w, http.StatusOK, "movie", data)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "usage", nil)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Printf("render %s failed: %v", name, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (p *indexPage) fill(view search.PageView) {
	res := view.Result
	p.Searched = true
	p.Form = searchForm{
		Title:    res.Query.Title,
		Prompt:   res.Query.Prompt,
		Genre:    strings.Join(res.Query.Filters.Genre, ","),
		Year:     strings.Join(res.Query.Filters.Year, ","),
		Type:     strings.Join(res.Query.Filters.Type, ","),
		Director: strings.Join(res.Query.Filters.Director, ","),
		Cast:     strings.Join(res.Query.Filters.Cast, ","),
	}
	p.Page = view.Page
	p.TotalPages = view.TotalPages
	p.Total = view.Total
	if view.Page > 1 {
		p.PrevPage = view.Page - 1
	}
	if view.Page < view.TotalPages {
		p.NextPage = view.Page + 1
	}
	p.Message = res.Message
	p.Usage = res.Usage

	p.Items = make([]resultCard, 0, len(view.Items))
	for _, item := range view.Items {
		p.Items = append(p.Items, resultCard{
			ID:     item.ID(),
			Title:  HighlightTitle(item.Summary.Title, res.Query.Title),
			Type:   item.Type(),
			Year:   item.Year(),
			Rated:  item.Detail.Rated,
			Poster: posterURL(item),
		})
	}
}

func formFromQuery(query url.Values) searchForm {
	return searchForm{
		Title:    query.Get("title"),
		Prompt:   query.Get("prompt"),
		Genre:    query.Get("genre"),
		Year:     query.Get("year"),
		Type:     query.Get("type"),
		Director: query.Get("director"),
		Cast:     query.Get("cast"),
	}
}

func posterURL(movie domain.EnrichedResult) string {
	if poster := movie.Poster(); poster != "" {
		return poster
	}
	return posterPlaceholder
}

// orNA renders an unavailable field as "<label> N/A".
func orNA(label, value string) string {
	if strings.TrimSpace(value) == "" {
		return label + " N/A"
	}
	return value
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
