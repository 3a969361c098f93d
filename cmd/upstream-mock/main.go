// Command upstream-mock serves canned OMDb, YouTube Data and Gemini responses so the
// server can run without real API keys.
//
//	OMDB_URL=http://localhost:9099/omdb
//	YOUTUBE_URL=http://localhost:9099/youtube/v3
//	GEMINI_URL=http://localhost:9099/gemini/v1beta
package main

import (
	_ "embed"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
)

//go:embed fixtures.json
var defaultFixtures []byte

const pageSize = 10

// titleEntry is one title in OMDb's wire shape.
type titleEntry map[string]json.RawMessage

type fixtures struct {
	Titles   []titleEntry      `json:"titles"`
	Trailers map[string]string `json:"trailers"`
	Answers  map[string]string `json:"answers"`
}

func main() {
	var (
		port   = flag.String("port", "9099", "port to listen on")
		data   = flag.String("data", "", "path to a fixtures file; the embedded fixtures are used when empty")
		apiKey = flag.String("key", "", "reject requests whose api key differs; any key is accepted when empty")
		logReq = flag.Bool("log", false, "enable request logging")
	)
	flag.Parse()

	raw := defaultFixtures
	if *data != "" {
		file, err := os.ReadFile(*data)
		if err != nil {
			log.Fatalf("read mock data: %v", err)
		}
		raw = file
	}

	var fx fixtures
	if err := json.Unmarshal(raw, &fx); err != nil {
		log.Fatalf("parse mock data: %v", err)
	}

	var handler http.Handler = newMux(fx, *apiKey)
	if *logReq {
		next := handler
		handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	addr := ":" + *port
	log.Printf("mock upstreams listening on %s (%d titles)", addr, len(fx.Titles))
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func newMux(fx fixtures, apiKey string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/omdb", func(w http.ResponseWriter, r *http.Request) {
		if !keyAccepted(r.URL.Query().Get("apikey"), apiKey) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"Response": "False", "Error": "Invalid API key!"})
			return
		}
		q := r.URL.Query()
		if id := q.Get("i"); id != "" {
			serveDetail(w, fx, id)
			return
		}
		serveSearch(w, fx, q.Get("s"), q.Get("page"))
	})
	mux.HandleFunc("/youtube/v3/search", func(w http.ResponseWriter, r *http.Request) {
		if !keyAccepted(r.URL.Query().Get("key"), apiKey) {
			writeJSON(w, http.StatusForbidden, map[string]interface{}{"error": map[string]interface{}{"code": 403, "message": "API key not valid."}})
			return
		}
		serveTrailer(w, fx, r.URL.Query().Get("q"))
	})
	mux.HandleFunc("/gemini/v1beta/models/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		key := r.Header.Get("x-goog-api-key")
		if key == "" {
			key = r.URL.Query().Get("key")
		}
		if !keyAccepted(key, apiKey) {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": map[string]interface{}{"code": 400, "message": "API key not valid."}})
			return
		}
		serveAnswer(w, r, fx)
	})
	return mux
}

func keyAccepted(got, want string) bool {
	return want == "" || got == want
}

func serveSearch(w http.ResponseWriter, fx fixtures, term, rawPage string) {
	needle := strings.ToLower(strings.Trim(term, "* "))
	page, err := strconv.Atoi(rawPage)
	if err != nil || page < 1 {
		page = 1
	}

	matches := make([]map[string]json.RawMessage, 0)
	for _, t := range fx.Titles {
		if needle != "" && strings.Contains(strings.ToLower(stringField(t, "Title")), needle) {
			matches = append(matches, map[string]json.RawMessage{
				"Title":  t["Title"],
				"Year":   t["Year"],
				"imdbID": t["imdbID"],
				"Type":   t["Type"],
				"Poster": t["Poster"],
			})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return string(matches[i]["imdbID"]) < string(matches[j]["imdbID"])
	})

	start := (page - 1) * pageSize
	if len(matches) == 0 || start >= len(matches) {
		writeJSON(w, http.StatusOK, map[string]string{"Response": "False", "Error": "Movie not found!"})
		return
	}
	end := start + pageSize
	if end > len(matches) {
		end = len(matches)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"Search":       matches[start:end],
		"totalResults": strconv.Itoa(len(matches)),
		"Response":     "True",
	})
}

func serveDetail(w http.ResponseWriter, fx fixtures, id string) {
	for _, t := range fx.Titles {
		if stringField(t, "imdbID") == id {
			out := make(map[string]json.RawMessage, len(t)+1)
			for k, v := range t {
				out[k] = v
			}
			out["Response"] = json.RawMessage(`"True"`)
			writeJSON(w, http.StatusOK, out)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"Response": "False", "Error": "Incorrect IMDb ID."})
}

func serveTrailer(w http.ResponseWriter, fx fixtures, query string) {
	items := make([]map[string]interface{}, 0, 1)
	for title, videoID := range fx.Trailers {
		if strings.HasPrefix(query, title+" ") {
			items = append(items, map[string]interface{}{
				"kind":    "youtube#searchResult",
				"id":      map[string]string{"kind": "youtube#video", "videoId": videoID},
				"snippet": map[string]string{"title": title + " - Official Trailer"},
			})
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"kind":  "youtube#searchListResponse",
		"items": items,
	})
}

func serveAnswer(w http.ResponseWriter, r *http.Request, fx fixtures) {
	var req struct {
		Contents []struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": map[string]interface{}{"code": 400, "message": err.Error()}})
		return
	}
	var prompt string
	for _, c := range req.Contents {
		for _, p := range c.Parts {
			prompt += p.Text
		}
	}
	prompt = strings.ToLower(prompt)

	keys := make([]string, 0, len(fx.Answers))
	for k := range fx.Answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	answer := ""
	for _, k := range keys {
		if strings.Contains(prompt, strings.ToLower(k)) {
			answer = fx.Answers[k]
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"candidates": []map[string]interface{}{{
			"content": map[string]interface{}{
				"role":  "model",
				"parts": []map[string]string{{"text": answer}},
			},
			"finishReason": "STOP",
		}},
	})
}

func stringField(t titleEntry, key string) string {
	var s string
	if raw, ok := t[key]; ok {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}
