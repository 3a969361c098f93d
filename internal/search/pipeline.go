package search

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/Clark-Hu/movie-search/internal/domain"
	"github.com/Clark-Hu/movie-search/internal/metrics"
)

const (
	// MaxPages is how many summary pages one search requests at most.
	MaxPages = 3
	// DefaultDetailConcurrency caps parallel detail lookups when Options leaves it unset.
	DefaultDetailConcurrency = 8
)

// TitleSearcher returns one page of summary records for a title fragment.
type TitleSearcher interface {
	SearchTitles(ctx context.Context, term string, page int) (domain.SearchPage, error)
}

// DetailFetcher returns the full record for one identifier.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, id string) (domain.DetailRecord, error)
}

// TitleResolver turns a free-text description into a single title.
type TitleResolver interface {
	ResolveTitle(ctx context.Context, prompt string) (string, error)
}

// State is a step of one search invocation.
type State string

const (
	StateIdle              State = "idle"
	StateResolving         State = "resolving"
	StateFetchingSummaries State = "fetching_summaries"
	StateFetchingDetails   State = "fetching_details"
	StateFiltering         State = "filtering"
	StateDone              State = "done"
	StateFailed            State = "failed"
)

// Observer receives state transitions. Implementations must be safe for concurrent use;
// transitions of different searches may interleave.
type Observer interface {
	OnState(searchID string, state State)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(searchID string, state State)

func (f ObserverFunc) OnState(searchID string, state State) { f(searchID, state) }

// Options tunes a Pipeline. Zero values select defaults.
type Options struct {
	DetailConcurrency int
	// CallTimeout bounds every single collaborator call; zero leaves calls bounded only by ctx.
	CallTimeout time.Duration
	Logger      *log.Logger
	Metrics     *metrics.Metrics
	Observer    Observer
}

// Result is the outcome of one search invocation.
type Result struct {
	ID         string `json:"id"`
	Generation uint64 `json:"generation,omitempty"`
	State      State  `json:"state"`
	// Query is the effective query: after a successful resolution Title holds the
	// resolved title and Prompt is empty.
	Query          Query                   `json:"query"`
	ResolvedTitle  string                  `json:"resolvedTitle,omitempty"`
	Items          []domain.EnrichedResult `json:"items"`
	Fetched        int                     `json:"fetched"`
	DetailFailures int                     `json:"detailFailures,omitempty"`
	Message        string                  `json:"message,omitempty"`
	Usage          string                  `json:"usage,omitempty"`
}

// Pipeline turns a Query into a filtered, enriched result list.
type Pipeline struct {
	searcher TitleSearcher
	details  DetailFetcher
	resolver TitleResolver
	opts     Options
	logger   *log.Logger
}

// New constructs a Pipeline over the three collaborators.
func New(searcher TitleSearcher, details DetailFetcher, resolver TitleResolver, opts Options) *Pipeline {
	if opts.DetailConcurrency <= 0 {
		opts.DetailConcurrency = DefaultDetailConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{
		searcher: searcher,
		details:  details,
		resolver: resolver,
		opts:     opts,
		logger:   logger,
	}
}

// Run executes one search. Precondition and resolution failures return a *Error and a
// Result in StateFailed; fetch and detail failures are recorded on Result.Message and
// never returned as errors.
func (p *Pipeline) Run(ctx context.Context, q Query) (Result, error) {
	started := time.Now()
	res := Result{
		ID:    uuid.NewString(),
		State: StateIdle,
		Query: q.Normalized(),
		Items: []domain.EnrichedResult{},
	}
	p.transition(&res, StateIdle)

	if err := res.Query.Validate(); err != nil {
		return p.fail(res, err, started)
	}

	if res.Query.Prompt != "" {
		p.transition(&res, StateResolving)
		title, err := p.resolve(ctx, res.Query.Prompt)
		if err != nil {
			if canceled(ctx) {
				return p.fail(res, &Error{Kind: KindCanceled, Err: ctx.Err()}, started)
			}
			p.logger.Printf("search %s: ai resolution failed: %v", res.ID, err)
			return p.fail(res, &Error{Kind: KindAIResolution, Err: err}, started)
		}
		res.Query.Title = title
		res.Query.Prompt = ""
		res.ResolvedTitle = title
	}

	p.transition(&res, StateFetchingSummaries)
	summaries, err := p.fetchSummaries(ctx, res.ID, res.Query.Title)
	if canceled(ctx) {
		return p.fail(res, &Error{Kind: KindCanceled, Err: ctx.Err()}, started)
	}
	if err != nil {
		res.Message = MsgFetchTitles
	}
	res.Fetched = len(summaries)

	p.transition(&res, StateFetchingDetails)
	enriched, failed := p.enrich(ctx, res.ID, summaries)
	if canceled(ctx) {
		return p.fail(res, &Error{Kind: KindCanceled, Err: ctx.Err()}, started)
	}
	res.DetailFailures = failed
	p.opts.Metrics.AddDetailFailures(failed)
	if failed > 0 && res.Message == "" {
		res.Message = MsgFetchDetails
	}

	p.transition(&res, StateFiltering)
	res.Items = res.Query.Filters.Apply(enriched)

	outcome := "done"
	if len(res.Items) == 0 {
		outcome = "empty"
		if res.Message == "" {
			res.Message = MsgNoResults
		}
	}
	if res.Message != "" {
		res.Usage = UsageHint
	}
	p.transition(&res, StateDone)
	p.opts.Metrics.ObserveSearch(outcome, time.Since(started))
	return res, nil
}

func (p *Pipeline) fail(res Result, err error, started time.Time) (Result, error) {
	res.Message = UserMessage(err)
	res.Usage = UsageHint
	p.transition(&res, StateFailed)
	outcome := "failed"
	if KindOf(err) == KindCanceled {
		outcome = "canceled"
	}
	p.opts.Metrics.ObserveSearch(outcome, time.Since(started))
	return res, err
}

// canceled reports whether the caller canceled ctx. An expired deadline is a fetch failure
// of the phase that ran out of time.
func canceled(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}

func (p *Pipeline) transition(res *Result, state State) {
	res.State = state
	if p.opts.Observer != nil {
		p.opts.Observer.OnState(res.ID, state)
	}
}

func (p *Pipeline) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opts.CallTimeout > 0 {
		return context.WithTimeout(ctx, p.opts.CallTimeout)
	}
	return context.WithCancel(ctx)
}

func (p *Pipeline) resolve(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := p.callContext(ctx)
	defer cancel()

	title, err := p.resolver.ResolveTitle(callCtx, prompt)
	if err != nil {
		return "", err
	}
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) < MinTitleLen {
		return "", ErrNoMatch
	}
	return title, nil
}

// fetchSummaries requests pages in order and stops at the first exhausted page. A failing
// page ends the phase; the records gathered so far are still returned.
func (p *Pipeline) fetchSummaries(ctx context.Context, searchID, term string) ([]domain.SummaryRecord, error) {
	seen := make(map[string]struct{})
	records := make([]domain.SummaryRecord, 0, MaxPages*10)
	for page := 1; page <= MaxPages; page++ {
		callCtx, cancel := p.callContext(ctx)
		result, err := p.searcher.SearchTitles(callCtx, term, page)
		cancel()
		if err != nil {
			if ctx.Err() == nil {
				p.logger.Printf("search %s: title page %d failed: %v", searchID, page, err)
			}
			return records, err
		}
		for _, r := range result.Records {
			if r.ID == "" {
				continue
			}
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
			records = append(records, r)
		}
		if result.Exhausted {
			break
		}
	}
	return records, nil
}

// enrich fetches every detail concurrently, at most DetailConcurrency at a time. A failed
// lookup drops only its own record. The output keeps the order of summaries.
func (p *Pipeline) enrich(ctx context.Context, searchID string, summaries []domain.SummaryRecord) ([]domain.EnrichedResult, int) {
	if len(summaries) == 0 {
		return nil, 0
	}

	details := make([]*domain.DetailRecord, len(summaries))
	sem := semaphore.NewWeighted(int64(p.opts.DetailConcurrency))
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for i, summary := range summaries {
		wg.Add(1)
		go func(index int, id string) {
			defer wg.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			defer sem.Release(1)

			callCtx, cancel := p.callContext(ctx)
			defer cancel()
			detail, err := p.details.FetchDetail(callCtx, id)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					p.logger.Printf("search %s: detail fetch failed for %s: %v", searchID, id, err)
				}
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			if detail.ID == "" {
				detail.ID = id
			}
			details[index] = &detail
		}(i, summary.ID)
	}
	wg.Wait()

	enriched := make([]domain.EnrichedResult, 0, len(summaries))
	for i, summary := range summaries {
		if details[i] == nil {
			continue
		}
		enriched = append(enriched, domain.EnrichedResult{Summary: summary, Detail: *details[i]})
	}
	return enriched, failed
}
