package gemini

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"google.golang.org/genai"

	"github.com/Clark-Hu/movie-search/internal/metrics"
	"github.com/Clark-Hu/movie-search/internal/upstream"
)

// Name labels Gemini requests in logs and metrics.
const Name = "gemini"

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-1.5-flash"

// minTitleLen is the shortest answer accepted as a title; title search needs at least this much.
const minTitleLen = 3

// ErrNoMatch is returned when the model produced no usable title for the prompt.
var ErrNoMatch = errors.New("gemini: no confident match")

const instructionPrompt = "You help people find the name of a movie, series, episode or game that really exists, " +
	"based on their description. Reply with exactly one name and nothing else, never a list. " +
	"If you are unsure of the full name, reply with the single word of the name you are sure of. " +
	"If the description is not about finding such a title, reply with nothing at all. " +
	"Valid answers are at least 3 characters long. The description is: "

// Client resolves a free-text description into a single title.
type Client interface {
	ResolveTitle(ctx context.Context, prompt string) (string, error)
}

// HTTPClient implements Client on the Gemini API SDK.
type HTTPClient struct {
	client *genai.Client
	model  string
	logger *log.Logger
}

// NewHTTPClient constructs a Gemini client. baseURL ends with the API version, e.g.
// https://generativelanguage.googleapis.com/v1beta.
func NewHTTPClient(baseURL, apiKey, model string, timeout time.Duration, m *metrics.Metrics, logger *log.Logger) (*HTTPClient, error) {
	if logger == nil {
		logger = log.Default()
	}
	parsed, err := upstream.ParseBaseURL(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse gemini url: %w", err)
	}
	var version string
	if parsed.Path != "" && parsed.Path != "/" {
		version = path.Base(parsed.Path)
		parsed.Path = strings.TrimSuffix(parsed.Path, version)
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: upstream.NewHTTPClient(Name, timeout, m),
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    parsed.String(),
			APIVersion: version,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("init gemini sdk: %w", err)
	}
	return &HTTPClient{
		client: client,
		model:  strings.TrimSpace(model),
		logger: logger,
	}, nil
}

// Generate sends the instruction plus prompt and returns the model's raw text answer.
// An empty answer is not an error here.
func (c *HTTPClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(instructionPrompt+prompt), nil)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			c.logger.Printf("gemini: unexpected status %d", apiErr.Code)
			return "", &upstream.StatusError{Upstream: Name, StatusCode: apiErr.Code, Body: []byte(apiErr.Message)}
		}
		return "", fmt.Errorf("%s: request failed: %w", Name, err)
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, p := range candidate.Content.Parts {
			if p != nil {
				sb.WriteString(p.Text)
			}
		}
		if sb.Len() > 0 {
			break
		}
	}
	return sb.String(), nil
}

// ResolveTitle returns the title suggested for prompt, or ErrNoMatch when the model declined.
func (c *HTTPClient) ResolveTitle(ctx context.Context, prompt string) (string, error) {
	text, err := c.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return CleanTitle(text)
}

// CleanTitle normalizes a model answer into a title, rejecting answers too short to search for.
func CleanTitle(text string) (string, error) {
	title := strings.TrimSpace(text)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	title = strings.Trim(title, "\"'*`")
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) < minTitleLen {
		return "", ErrNoMatch
	}
	return title, nil
}
