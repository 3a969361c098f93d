package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Clark-Hu/movie-search/internal/upstream"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewHTTPClient(srv.URL+"/v1beta", "g-key", "", time.Second, nil, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return client
}

func answer(text string) string {
	return `{"candidates":[{"content":{"parts":[{"text":` + jsonString(text) + `}],"role":"model"}}]}`
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestResolveTitle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1beta/models/gemini-1.5-flash:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "g-key" {
			t.Errorf("api key header = %q", got)
		}
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 1 || !strings.HasSuffix(req.Contents[0].Parts[0].Text, "first batman movie featuring christian bale") {
			t.Errorf("prompt not forwarded: %+v", req)
		}
		_, _ = w.Write([]byte(answer("Batman Begins\n")))
	})

	title, err := client.ResolveTitle(context.Background(), "first batman movie featuring christian bale")
	if err != nil {
		t.Fatalf("ResolveTitle() unexpected error: %v", err)
	}
	if title != "Batman Begins" {
		t.Fatalf("title = %q, want Batman Begins", title)
	}
}

func TestResolveTitleEmptyAnswerIsNoMatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(answer("")))
	})

	if _, err := client.ResolveTitle(context.Background(), "what is the weather"); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("ResolveTitle() error = %v, want ErrNoMatch", err)
	}
}

func TestResolveTitleUpstreamFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`))
	})

	_, err := client.ResolveTitle(context.Background(), "a heist inside dreams")
	var statusErr *upstream.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("ResolveTitle() error = %v, want 503 status error", err)
	}
}

func TestNewHTTPClientKeepsPathPrefix(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(answer("Inception")))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL+"/gemini/v1beta/", "k", "gemini-test", time.Second, nil, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	if _, err := client.Generate(context.Background(), "a heist inside dreams"); err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if gotPath != "/gemini/v1beta/models/gemini-test:generateContent" {
		t.Fatalf("path = %s", gotPath)
	}
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "Inception", want: "Inception"},
		{in: "  \"Inception\"  ", want: "Inception"},
		{in: "**Heat**\nsome explanation", want: "Heat"},
		{in: "", wantErr: true},
		{in: "It", wantErr: true},
		{in: "   \n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CleanTitle(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrNoMatch) {
					t.Fatalf("CleanTitle(%q) error = %v, want ErrNoMatch", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("CleanTitle(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}
