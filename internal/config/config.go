package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port                string
	OMDbURL             string
	OMDbAPIKey          string
	YouTubeURL          string
	YouTubeAPIKey       string
	GeminiURL           string
	GeminiModel         string
	GoogleAPIKey        string
	UpstreamTimeoutSecs int
	SearchTimeoutSecs   int
	DetailConcurrency   int
	SessionTTLSecs      int
	ReadTimeoutSecs     int
	WriteTimeoutSecs    int
	IdleTimeoutSecs     int
}

// Load reads configuration from environment variables, applying defaults and validation.
func Load() (Config, error) {
	cfg := Config{
		Port:                getEnv("PORT", "8080"),
		OMDbURL:             getEnv("OMDB_URL", "https://www.omdbapi.com"),
		OMDbAPIKey:          os.Getenv("OMDB_API_KEY"),
		YouTubeURL:          getEnv("YOUTUBE_URL", "https://www.googleapis.com/youtube/v3"),
		YouTubeAPIKey:       os.Getenv("YOUTUBE_API_KEY"),
		GeminiURL:           getEnv("GEMINI_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GoogleAPIKey:        os.Getenv("GOOGLE_API_KEY"),
		UpstreamTimeoutSecs: getEnvInt("UPSTREAM_TIMEOUT_SECS", 5),
		SearchTimeoutSecs:   getEnvInt("SEARCH_TIMEOUT_SECS", 30),
		DetailConcurrency:   getEnvInt("DETAIL_CONCURRENCY", 8),
		SessionTTLSecs:      getEnvInt("SESSION_TTL_SECS", 1800),
		ReadTimeoutSecs:     getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:    getEnvInt("SERVER_WRITE_TIMEOUT", 45),
		IdleTimeoutSecs:     getEnvInt("SERVER_IDLE_TIMEOUT", 60),
	}

	if cfg.OMDbAPIKey == "" {
		return Config{}, fmt.Errorf("OMDB_API_KEY is required")
	}
	if cfg.YouTubeAPIKey == "" {
		return Config{}, fmt.Errorf("YOUTUBE_API_KEY is required")
	}
	if cfg.GoogleAPIKey == "" {
		return Config{}, fmt.Errorf("GOOGLE_API_KEY is required")
	}
	for _, u := range []struct{ key, val string }{
		{"OMDB_URL", cfg.OMDbURL},
		{"YOUTUBE_URL", cfg.YouTubeURL},
		{"GEMINI_URL", cfg.GeminiURL},
	} {
		if err := validateURL(u.val); err != nil {
			return Config{}, fmt.Errorf("%s is invalid: %w", u.key, err)
		}
	}
	if cfg.UpstreamTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("UPSTREAM_TIMEOUT_SECS must be positive")
	}
	if cfg.SearchTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("SEARCH_TIMEOUT_SECS must be positive")
	}
	if cfg.SearchTimeoutSecs < cfg.UpstreamTimeoutSecs {
		return Config{}, fmt.Errorf("SEARCH_TIMEOUT_SECS cannot be shorter than UPSTREAM_TIMEOUT_SECS")
	}
	if cfg.DetailConcurrency <= 0 {
		return Config{}, fmt.Errorf("DETAIL_CONCURRENCY must be positive")
	}
	if cfg.SessionTTLSecs <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL_SECS must be positive")
	}

	return cfg, nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%q must be absolute", raw)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}
