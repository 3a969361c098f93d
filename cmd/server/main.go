package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Clark-Hu/movie-search/internal/config"
	"github.com/Clark-Hu/movie-search/internal/gemini"
	httpserver "github.com/Clark-Hu/movie-search/internal/http"
	"github.com/Clark-Hu/movie-search/internal/metrics"
	"github.com/Clark-Hu/movie-search/internal/omdb"
	"github.com/Clark-Hu/movie-search/internal/search"
	"github.com/Clark-Hu/movie-search/internal/youtube"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := log.New(os.Stdout, "[movie-search] ", log.LstdFlags|log.Lshortfile)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	upstreamTimeout := time.Duration(cfg.UpstreamTimeoutSecs) * time.Second

	movies, err := omdb.NewHTTPClient(cfg.OMDbURL, cfg.OMDbAPIKey, upstreamTimeout, m, logger)
	if err != nil {
		log.Fatalf("init omdb client: %v", err)
	}
	trailers, err := youtube.NewHTTPClient(cfg.YouTubeURL, cfg.YouTubeAPIKey, upstreamTimeout, m, logger)
	if err != nil {
		log.Fatalf("init youtube client: %v", err)
	}
	ai, err := gemini.NewHTTPClient(cfg.GeminiURL, cfg.GoogleAPIKey, cfg.GeminiModel, upstreamTimeout, m, logger)
	if err != nil {
		log.Fatalf("init gemini client: %v", err)
	}

	pipeline := search.New(movies, movies, ai, search.Options{
		DetailConcurrency: cfg.DetailConcurrency,
		CallTimeout:       upstreamTimeout,
		Logger:            logger,
		Metrics:           m,
	})
	sessionTTL := time.Duration(cfg.SessionTTLSecs) * time.Second
	sessions := search.NewSessionStore(pipeline, sessionTTL, m)
	go sessions.Run(ctx, sessionTTL/2)

	server := httpserver.New(cfg, httpserver.Upstreams{Movies: movies, Trailers: trailers, AI: ai}, sessions, reg, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Start()
	}()
	logger.Printf("listening on :%s", cfg.Port)

	select {
	case err := <-serverErrCh:
		if err != nil {
			log.Printf("server error: %v", err)
		}
		return
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("graceful shutdown error: %v", err)
	}
}
