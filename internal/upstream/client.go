package upstream

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Clark-Hu/movie-search/internal/metrics"
)

// maxBodyBytes bounds how much of an upstream response is read into memory.
const maxBodyBytes = 4 << 20 // 4 MiB

// StatusError is returned when an upstream API answers with a non-2xx status.
type StatusError struct {
	Upstream   string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	if e == nil {
		return "upstream status error"
	}
	return fmt.Sprintf("%s: upstream returned %d", e.Upstream, e.StatusCode)
}

// NewHTTPClient constructs the HTTP client shared by one upstream API. Every round trip is
// recorded in m under name.
func NewHTTPClient(name string, timeout time.Duration, m *metrics.Metrics) *http.Client {
	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConnsPerHost:   16,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &Transport{
			Name:    name,
			Base:    base,
			Metrics: m,
		},
	}
}

// Transport records request counts and latency per upstream before handing the request to Base.
type Transport struct {
	Name    string
	Base    http.RoundTripper
	Metrics *metrics.Metrics
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	started := time.Now()
	resp, err := base.RoundTrip(req)
	code := "error"
	if err == nil {
		code = strconv.Itoa(resp.StatusCode)
	}
	t.Metrics.ObserveUpstream(t.Name, code, time.Since(started))
	return resp, err
}

// Do sends req and returns the response body for 2xx answers. Non-2xx answers produce a
// *StatusError carrying the upstream body.
func Do(client *http.Client, name string, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Upstream: name, StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}

// ParseBaseURL validates an upstream base URL and strips any trailing slash.
func ParseBaseURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(raw), "/"))
	if err != nil {
		return nil, err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("url %q must be absolute", raw)
	}
	return parsed, nil
}
