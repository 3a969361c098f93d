package search

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Clark-Hu/movie-search/internal/domain"
	"github.com/Clark-Hu/movie-search/internal/metrics"
)

// PageSize is how many results one page of a result list shows.
const PageSize = 10

// Runner executes one search invocation. *Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, q Query) (Result, error)
}

// Session holds the latest result list of one user. Starting a new search cancels the
// one in flight; a result that arrives after a newer search started is discarded.
type Session struct {
	ID     string
	runner Runner

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	result     Result
	hasResult  bool
	lastSeen   time.Time
}

// NewSession returns an empty session driven by runner.
func NewSession(id string, runner Runner) *Session {
	return &Session{ID: id, runner: runner, lastSeen: time.Now()}
}

// Search runs q, replacing the previous result list only if no newer search has started
// meanwhile. A superseded invocation returns ErrSuperseded and leaves the session untouched.
func (s *Session) Search(ctx context.Context, q Query) (Result, error) {
	runCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	s.cancel = cancel
	s.lastSeen = time.Now()
	s.mu.Unlock()

	res, err := s.runner.Run(runCtx, q)
	res.Generation = gen

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		cancel()
		return res, &Error{Kind: KindCanceled, Err: ErrSuperseded}
	}
	cancel()
	s.cancel = nil
	s.result = res
	s.hasResult = true
	return res, err
}

// Cancel stops the search in flight, if any.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
}

// Reset cancels the search in flight and forgets the stored result list.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
	s.result = Result{}
	s.hasResult = false
	s.lastSeen = time.Now()
}

// Result returns the latest accepted result.
func (s *Session) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	return s.result, s.hasResult
}

// PageView is one page of a session's result list.
type PageView struct {
	Result     Result
	Items      []domain.EnrichedResult
	Page       int
	TotalPages int
	Total      int
}

// Page returns page n (1-based) of the latest result list. n is clamped into range.
func (s *Session) Page(n int) (PageView, bool) {
	res, ok := s.Result()
	if !ok {
		return PageView{}, false
	}
	items, page, pages := Paginate(res.Items, n, PageSize)
	return PageView{
		Result:     res,
		Items:      items,
		Page:       page,
		TotalPages: pages,
		Total:      len(res.Items),
	}, true
}

// Lookup finds a result of the latest list by identifier.
func (s *Session) Lookup(id string) (domain.EnrichedResult, bool) {
	res, ok := s.Result()
	if !ok {
		return domain.EnrichedResult{}, false
	}
	for _, item := range res.Items {
		if item.ID() == id {
			return item, true
		}
	}
	return domain.EnrichedResult{}, false
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Paginate slices items into pages of size and returns page n along with the clamped page
// number and the page count. An empty list has one empty page.
func Paginate(items []domain.EnrichedResult, n, size int) ([]domain.EnrichedResult, int, int) {
	if size <= 0 {
		size = PageSize
	}
	pages := (len(items) + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if n < 1 {
		n = 1
	}
	if n > pages {
		n = pages
	}
	start := (n - 1) * size
	if start >= len(items) {
		return []domain.EnrichedResult{}, n, pages
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], n, pages
}

// SessionStore keeps sessions keyed by an opaque identifier.
type SessionStore struct {
	runner  Runner
	ttl     time.Duration
	metrics *metrics.Metrics
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore returns a store whose sessions run searches through runner. Sessions idle
// for longer than ttl are removed by Sweep; a non-positive ttl keeps them forever.
func NewSessionStore(runner Runner, ttl time.Duration, m *metrics.Metrics) *SessionStore {
	return &SessionStore{
		runner:   runner,
		ttl:      ttl,
		metrics:  m,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for id.
func (st *SessionStore) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// GetOrCreate returns the session for id, creating a fresh one with a new identifier when
// id is unknown.
func (st *SessionStore) GetOrCreate(id string) *Session {
	if s, ok := st.Get(id); ok {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[id]; ok {
		return s
	}
	s := NewSession(uuid.NewString(), st.runner)
	st.sessions[s.ID] = s
	st.metrics.SetActiveSessions(len(st.sessions))
	return s
}

// Sweep removes sessions idle for longer than the store's ttl and returns how many were
// removed. Their searches in flight are cancelled.
func (st *SessionStore) Sweep() int {
	if st.ttl <= 0 {
		return 0
	}
	cutoff := st.now().Add(-st.ttl)

	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.sessions {
		if s.idleSince().Before(cutoff) {
			s.Cancel()
			delete(st.sessions, id)
			removed++
		}
	}
	st.metrics.SetActiveSessions(len(st.sessions))
	return removed
}

// Run sweeps the store every interval until ctx is done.
func (st *SessionStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
