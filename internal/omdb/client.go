package omdb

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Clark-Hu/movie-search/internal/domain"
	"github.com/Clark-Hu/movie-search/internal/metrics"
	"github.com/Clark-Hu/movie-search/internal/upstream"
)

// Name labels OMDb requests in logs and metrics.
const Name = "omdb"

// ErrNotFound is returned when OMDb has no record for the requested identifier.
var ErrNotFound = errors.New("omdb: not found")

// Client defines the contract for querying the OMDb API.
type Client interface {
	SearchTitles(ctx context.Context, term string, page int) (domain.SearchPage, error)
	FetchDetail(ctx context.Context, id string) (domain.DetailRecord, error)
}

// HTTPClient implements Client over HTTP. The Raw methods return the upstream body untouched
// for the relay endpoints.
type HTTPClient struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	logger  *log.Logger
}

// NewHTTPClient constructs a new HTTP-backed OMDb client.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, m *metrics.Metrics, logger *log.Logger) (*HTTPClient, error) {
	if logger == nil {
		logger = log.Default()
	}
	parsed, err := upstream.ParseBaseURL(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse omdb url: %w", err)
	}
	return &HTTPClient{
		baseURL: parsed,
		apiKey:  apiKey,
		client:  upstream.NewHTTPClient(Name, timeout, m),
		logger:  logger,
	}, nil
}

// SearchRaw runs a title search for one page and returns the upstream JSON.
func (c *HTTPClient) SearchRaw(ctx context.Context, term string, page int) ([]byte, error) {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("s", "*"+term+"*")
	q.Set("page", strconv.Itoa(page))
	return c.get(ctx, q)
}

// DetailRaw fetches the full record for id and returns the upstream JSON.
func (c *HTTPClient) DetailRaw(ctx context.Context, id string) ([]byte, error) {
	q := url.Values{}
	q.Set("i", id)
	return c.get(ctx, q)
}

// SearchTitles returns one decoded page of search results.
func (c *HTTPClient) SearchTitles(ctx context.Context, term string, page int) (domain.SearchPage, error) {
	body, err := c.SearchRaw(ctx, term, page)
	if err != nil {
		return domain.SearchPage{}, err
	}
	return decodeSearchPage(body)
}

// FetchDetail returns the decoded detail record for id.
func (c *HTTPClient) FetchDetail(ctx context.Context, id string) (domain.DetailRecord, error) {
	body, err := c.DetailRaw(ctx, id)
	if err != nil {
		return domain.DetailRecord{}, err
	}
	return decodeDetail(body)
}

func (c *HTTPClient) get(ctx context.Context, q url.Values) ([]byte, error) {
	q.Set("apikey", c.apiKey)
	endpoint := *c.baseURL
	if endpoint.Path == "" {
		endpoint.Path = "/"
	}
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	body, err := upstream.Do(c.client, Name, req)
	if err != nil {
		var statusErr *upstream.StatusError
		if errors.As(err, &statusErr) {
			c.logger.Printf("omdb: unexpected status %d", statusErr.StatusCode)
		}
		return nil, err
	}
	return body, nil
}
