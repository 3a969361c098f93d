package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"github.com/Clark-Hu/movie-search/internal/domain"
	"github.com/Clark-Hu/movie-search/internal/metrics"
	"github.com/Clark-Hu/movie-search/internal/upstream"
)

// Name labels YouTube requests in logs and metrics.
const Name = "youtube"

// defaultYear is sent when the caller has no year, matching what the player page always did.
const defaultYear = "1"

// apiPath is appended to the endpoint by the generated service.
const apiPath = "/youtube/v3"

// ErrNoTrailer is returned when the search produced no video.
var ErrNoTrailer = errors.New("youtube: no trailer found")

// Client finds a trailer video for a title.
type Client interface {
	FindTrailer(ctx context.Context, title, year string) (domain.Trailer, error)
}

// HTTPClient implements Client on the YouTube Data API v3 service.
type HTTPClient struct {
	service *ytapi.Service
	apiKey  string
	logger  *log.Logger
}

// NewHTTPClient constructs a YouTube client. baseURL may include the /youtube/v3 suffix.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, m *metrics.Metrics, logger *log.Logger) (*HTTPClient, error) {
	if logger == nil {
		logger = log.Default()
	}
	parsed, err := upstream.ParseBaseURL(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse youtube url: %w", err)
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, apiPath) + "/"

	// With a custom HTTP client the service ignores option.WithAPIKey; the key is sent per call.
	service, err := ytapi.NewService(context.Background(),
		option.WithHTTPClient(upstream.NewHTTPClient(Name, timeout, m)),
		option.WithEndpoint(parsed.String()),
	)
	if err != nil {
		return nil, fmt.Errorf("init youtube service: %w", err)
	}
	return &HTTPClient{
		service: service,
		apiKey:  apiKey,
		logger:  logger,
	}, nil
}

func (c *HTTPClient) search(ctx context.Context, title, year string) (*ytapi.SearchListResponse, error) {
	resp, err := c.service.Search.List([]string{"snippet"}).
		Q(trailerQuery(title, year)).
		Type("video").
		MaxResults(1).
		Context(ctx).
		Do(googleapi.QueryParameter("key", c.apiKey))
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			c.logger.Printf("youtube: unexpected status %d for title %q", apiErr.Code, title)
			return nil, &upstream.StatusError{Upstream: Name, StatusCode: apiErr.Code, Body: []byte(apiErr.Body)}
		}
		return nil, fmt.Errorf("%s: request failed: %w", Name, err)
	}
	return resp, nil
}

// SearchRaw runs the trailer search and returns the search list response as JSON.
func (c *HTTPClient) SearchRaw(ctx context.Context, title, year string) ([]byte, error) {
	resp, err := c.search(ctx, title, year)
	if err != nil {
		return nil, err
	}
	return json.Marshal(resp)
}

// FindTrailer returns the first video matching the trailer query.
func (c *HTTPClient) FindTrailer(ctx context.Context, title, year string) (domain.Trailer, error) {
	resp, err := c.search(ctx, title, year)
	if err != nil {
		return domain.Trailer{}, err
	}
	for _, item := range resp.Items {
		if item == nil || item.Id == nil {
			continue
		}
		if id := strings.TrimSpace(item.Id.VideoId); id != "" {
			trailer := domain.Trailer{VideoID: id}
			if item.Snippet != nil {
				trailer.Title = item.Snippet.Title
			}
			return trailer, nil
		}
	}
	return domain.Trailer{}, ErrNoTrailer
}

func trailerQuery(title, year string) string {
	year = strings.TrimSpace(year)
	if year == "" {
		year = defaultYear
	}
	return strings.TrimSpace(title) + " " + year + " Official Trailer"
}
