package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"reviewcrawler/internal/extractor"
	"reviewcrawler/internal/fetcher"
	"reviewcrawler/internal/normalize"
	"reviewcrawler/internal/paginate"
	"reviewcrawler/internal/robots"
	"reviewcrawler/internal/sites"
	"reviewcrawler/pkg/types"
)

var (
	// ErrSeedUnreachable signals that the seed URL itself never produced a
	// page, so the caller can report the failure rather than an empty list.
	ErrSeedUnreachable = errors.New("seed url could not be fetched")
	// ErrNoReviews signals a crawl that fetched pages but extracted nothing.
	ErrNoReviews = errors.New("no reviews found")
)

// Outcome reports how a crawl ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
)

// Result is the product of one Scrape invocation.
type Result struct {
	SeedURL      string
	Domain       string
	Reviews      []types.Review
	PagesFetched int
	Outcome      Outcome
	Err          error
}

// FrontierOptions bound a single crawl.
type FrontierOptions struct {
	MaxPages   int
	MaxReviews int
}

// Frontier orchestrates the fetch/extract/paginate loop for one seed URL.
// Its queue and visited set live for exactly one Scrape call and are owned
// by that call's control flow.
type Frontier struct {
	fetch      fetcher.Fetcher
	extract    *extractor.Extractor
	navigate   *paginate.Navigator
	normalizer *normalize.Normalizer
	robots     *robots.Agent
	limiter    *DomainLimiter
	logger     *slog.Logger
	opts       FrontierOptions
}

// NewFrontier wires a frontier from its collaborators. robots and limiter
// may be nil to disable those checks.
func NewFrontier(
	fetch fetcher.Fetcher,
	extract *extractor.Extractor,
	navigate *paginate.Navigator,
	normalizer *normalize.Normalizer,
	robotsAgent *robots.Agent,
	limiter *DomainLimiter,
	logger *slog.Logger,
	opts FrontierOptions,
) (*Frontier, error) {
	if fetch == nil || extract == nil || navigate == nil || normalizer == nil {
		return nil, errors.New("frontier requires fetcher, extractor, navigator, and normalizer")
	}
	if opts.MaxPages <= 0 {
		return nil, fmt.Errorf("frontier max_pages must be > 0 (got %d)", opts.MaxPages)
	}
	if opts.MaxReviews <= 0 {
		return nil, fmt.Errorf("frontier max_reviews must be > 0 (got %d)", opts.MaxReviews)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Frontier{
		fetch:      fetch,
		extract:    extract,
		navigate:   navigate,
		normalizer: normalizer,
		robots:     robotsAgent,
		limiter:    limiter,
		logger:     logger,
		opts:       opts,
	}, nil
}

// Scrape walks a site's paginated review listing breadth-first, starting
// from the seed, until the page budget, the record ceiling, or the queue is
// exhausted. Cancellation stops cleanly and returns whatever was collected.
func (f *Frontier) Scrape(ctx context.Context, profile sites.Profile, seed *url.URL) Result {
	logger := f.logger.With("seed", seed.String(), "domain", profile.Domain)
	logger.Info("starting crawl", "render", profile.RequiresRendering)

	result := Result{
		SeedURL: seed.String(),
		Domain:  profile.Domain,
		Outcome: OutcomeCompleted,
	}

	queue := []*url.URL{seed}
	visited := NewVisitedSet()
	// Pages reached through URL-pattern inference (or the page-2 guess) are
	// speculative: they were never seen as links in a document. A barren
	// speculative page ends its branch instead of paginating into the void.
	speculative := make(map[string]struct{})
	guessed := make(map[string]struct{})
	guessingAllowed := true

	var candidates []types.CandidateReview
	pagesProcessed := 0
	var lastFetchErr error

	for len(queue) > 0 && pagesProcessed < f.opts.MaxPages && len(candidates) < f.opts.MaxReviews {
		if ctx.Err() != nil {
			result.Outcome = OutcomeCancelled
			logger.Warn("crawl cancelled", "pages_fetched", result.PagesFetched)
			break
		}

		current := queue[0]
		queue = queue[1:]

		// Claiming at dequeue guarantees each URL is fetched at most once,
		// so the loop terminates even if pagination cycles.
		if !visited.Claim(current) {
			continue
		}
		pagesProcessed++
		_, wasSpeculative := speculative[current.String()]
		_, wasGuessed := guessed[current.String()]

		if f.robots != nil && !f.robots.Allowed(ctx, current) {
			logger.Debug("blocked by robots", "url", current.String())
			continue
		}

		if f.limiter != nil {
			if err := f.limiter.Wait(ctx, current.Hostname()); err != nil {
				result.Outcome = OutcomeCancelled
				break
			}
		}

		page, err := f.fetch.Fetch(ctx, types.FetchRequest{URL: current, Render: profile.RequiresRendering})
		if err != nil {
			// A single miss is acceptable data loss, not a crawl-ending error.
			logger.Warn("fetch failed, skipping", "url", current.String(), "error", err)
			lastFetchErr = err
			continue
		}
		result.PagesFetched++

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
		if err != nil {
			logger.Debug("html parse failed", "url", current.String(), "error", err)
			continue
		}

		extracted := f.extract.Extract(doc, profile)
		logger.Info("page processed",
			"url", current.String(),
			"page", pagesProcessed,
			"extracted", len(extracted),
		)

		if wasSpeculative && len(extracted) == 0 {
			if wasGuessed {
				// The guess was wrong; stop synthesizing page addresses
				// for this crawl.
				guessingAllowed = false
			}
			continue
		}

		candidates = append(candidates, extracted...)
		if len(candidates) >= f.opts.MaxReviews {
			logger.Info("record ceiling reached", "collected", len(candidates))
			break
		}

		nav := f.navigate.Next(doc, profile, current)
		if nav.Guessed && !guessingAllowed {
			continue
		}
		for _, next := range nav.URLs {
			if visited.Contains(next) {
				continue
			}
			switch nav.Strategy {
			case paginate.StrategyPattern, paginate.StrategyGuess:
				speculative[next.String()] = struct{}{}
			}
			if nav.Guessed {
				guessed[next.String()] = struct{}{}
			}
			queue = append(queue, next)
		}
	}

	meta := normalize.Meta{
		SourceURL:    seed.String(),
		SourceDomain: profile.Domain,
		ScrapedAt:    time.Now(),
	}
	result.Reviews = f.normalizer.Normalize(candidates, meta)
	if len(result.Reviews) > f.opts.MaxReviews {
		result.Reviews = result.Reviews[:f.opts.MaxReviews]
	}

	if result.PagesFetched == 0 && result.Outcome != OutcomeCancelled {
		if lastFetchErr != nil {
			result.Err = fmt.Errorf("%w: %w", ErrSeedUnreachable, lastFetchErr)
		} else {
			result.Err = ErrSeedUnreachable
		}
	} else if len(result.Reviews) == 0 && result.Outcome != OutcomeCancelled {
		result.Err = ErrNoReviews
	}

	logger.Info("crawl finished",
		"outcome", result.Outcome,
		"pages_fetched", result.PagesFetched,
		"reviews", len(result.Reviews),
	)
	return result
}
