package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"testing"

	"reviewcrawler/internal/extractor"
	"reviewcrawler/internal/fetcher"
	"reviewcrawler/internal/normalize"
	"reviewcrawler/internal/paginate"
	"reviewcrawler/internal/sites"
	"reviewcrawler/pkg/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mapFetcher serves canned pages by URL string. URLs absent from the map
// fail with an HTTP 404 fetch error.
type mapFetcher struct {
	pages   map[string]string
	fetched []string
	onFetch func()
}

func (m *mapFetcher) Fetch(_ context.Context, req types.FetchRequest) (*types.RawPage, error) {
	target := req.URL.String()
	m.fetched = append(m.fetched, target)
	if m.onFetch != nil {
		m.onFetch()
	}
	body, ok := m.pages[target]
	if !ok {
		return nil, &fetcher.FetchError{URL: target, Reason: fetcher.ReasonHTTPError, Status: 404}
	}
	return &types.RawPage{URL: req.URL, FinalURL: req.URL, Body: []byte(body), StatusCode: 200}, nil
}

var testRules = &sites.Rules{
	ReviewContainer: "div.review",
	ReviewText:      "p.body",
}

func testProfile() sites.Profile {
	return sites.Profile{Domain: "example.com", Rules: testRules}
}

// reviewPage renders count review containers with distinct bodies.
func reviewPage(page, count int) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < count; i++ {
		fmt.Fprintf(&b, `<div class="review"><p class="body">Review %d from page %d with enough text.</p></div>`, i+1, page)
	}
	b.WriteString("</body></html>")
	return b.String()
}

const emptyPage = "<html><body><p>no reviews here</p></body></html>"

func newTestFrontier(t *testing.T, fetch fetcher.Fetcher, opts FrontierOptions) *Frontier {
	t.Helper()
	logger := discardLogger()
	f, err := NewFrontier(
		fetch,
		extractor.New(logger),
		paginate.New(logger),
		normalize.New(normalize.Options{}, logger),
		nil,
		nil,
		logger,
		opts,
	)
	if err != nil {
		t.Fatalf("new frontier: %v", err)
	}
	return f
}

func seedURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestScrapeStopsAtBarrenSpeculativePage(t *testing.T) {
	// Three populated pages, then an empty page 4. Pattern pagination could
	// propose page 5 forever; the barren speculative page must end the crawl.
	fetch := &mapFetcher{pages: map[string]string{
		"https://example.com/reviews?page=1": reviewPage(1, 3),
		"https://example.com/reviews?page=2": reviewPage(2, 3),
		"https://example.com/reviews?page=3": reviewPage(3, 3),
		"https://example.com/reviews?page=4": emptyPage,
		"https://example.com/reviews?page=5": reviewPage(5, 3),
	}}
	frontier := newTestFrontier(t, fetch, FrontierOptions{MaxPages: 100, MaxReviews: 1000})

	result := frontier.Scrape(context.Background(), testProfile(), seedURL(t, "https://example.com/reviews?page=1"))

	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if len(result.Reviews) != 9 {
		t.Errorf("reviews = %d, want 9", len(result.Reviews))
	}
	if result.PagesFetched != 4 {
		t.Errorf("pages fetched = %d, want 4", result.PagesFetched)
	}
	for _, u := range fetch.fetched {
		if strings.Contains(u, "page=5") {
			t.Error("crawl paginated past the empty page")
		}
	}
	if result.Outcome != OutcomeCompleted {
		t.Errorf("outcome = %q", result.Outcome)
	}
}

func TestScrapeRespectsPageBudget(t *testing.T) {
	fetch := &mapFetcher{pages: map[string]string{}}
	for i := 1; i <= 20; i++ {
		fetch.pages[fmt.Sprintf("https://example.com/reviews?page=%d", i)] = reviewPage(i, 2)
	}
	frontier := newTestFrontier(t, fetch, FrontierOptions{MaxPages: 3, MaxReviews: 1000})

	result := frontier.Scrape(context.Background(), testProfile(), seedURL(t, "https://example.com/reviews?page=1"))

	if result.PagesFetched != 3 {
		t.Errorf("pages fetched = %d, want 3", result.PagesFetched)
	}
	if len(result.Reviews) != 6 {
		t.Errorf("reviews = %d, want 6", len(result.Reviews))
	}
}

func TestScrapeRespectsRecordCeiling(t *testing.T) {
	fetch := &mapFetcher{pages: map[string]string{}}
	for i := 1; i <= 20; i++ {
		fetch.pages[fmt.Sprintf("https://example.com/reviews?page=%d", i)] = reviewPage(i, 3)
	}
	frontier := newTestFrontier(t, fetch, FrontierOptions{MaxPages: 100, MaxReviews: 4})

	result := frontier.Scrape(context.Background(), testProfile(), seedURL(t, "https://example.com/reviews?page=1"))

	if len(result.Reviews) > 4 {
		t.Errorf("reviews = %d, exceeds ceiling of 4", len(result.Reviews))
	}
	if result.PagesFetched > 2 {
		t.Errorf("pages fetched = %d after ceiling", result.PagesFetched)
	}
	if result.Err != nil {
		t.Errorf("unexpected error: %v", result.Err)
	}
}

func TestScrapeTerminatesOnPaginationCycle(t *testing.T) {
	// Pages link to each other in a loop via next links. The visited set
	// must break the cycle.
	pageA := reviewPage(1, 2)[:len(reviewPage(1, 2))-len("</body></html>")] +
		`<a rel="next" href="/reviews/b">Next</a></body></html>`
	pageB := reviewPage(2, 2)[:len(reviewPage(2, 2))-len("</body></html>")] +
		`<a rel="next" href="/reviews/a">Next</a></body></html>`
	fetch := &mapFetcher{pages: map[string]string{
		"https://example.com/reviews/a": pageA,
		"https://example.com/reviews/b": pageB,
	}}
	frontier := newTestFrontier(t, fetch, FrontierOptions{MaxPages: 100, MaxReviews: 1000})

	result := frontier.Scrape(context.Background(), testProfile(), seedURL(t, "https://example.com/reviews/a"))

	if result.PagesFetched != 2 {
		t.Errorf("pages fetched = %d, want 2", result.PagesFetched)
	}
	if len(result.Reviews) != 4 {
		t.Errorf("reviews = %d, want 4", len(result.Reviews))
	}
}

func TestScrapeContinuesPastFailedPage(t *testing.T) {
	// Page 2 of the chain 404s. Its reviews are lost but the crawl itself
	// completes with what page 1 yielded.
	fetch := &mapFetcher{pages: map[string]string{
		"https://example.com/reviews?page=1": reviewPage(1, 3),
		"https://example.com/reviews?page=3": reviewPage(3, 3),
	}}
	frontier := newTestFrontier(t, fetch, FrontierOptions{MaxPages: 100, MaxReviews: 1000})

	result := frontier.Scrape(context.Background(), testProfile(), seedURL(t, "https://example.com/reviews?page=1"))

	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if len(result.Reviews) != 3 {
		t.Errorf("reviews = %d, want 3 from the surviving page", len(result.Reviews))
	}
	if result.Outcome != OutcomeCompleted {
		t.Errorf("outcome = %q", result.Outcome)
	}
}

func TestScrapeSeedUnreachable(t *testing.T) {
	fetch := &mapFetcher{pages: map[string]string{}}
	frontier := newTestFrontier(t, fetch, FrontierOptions{MaxPages: 10, MaxReviews: 100})

	result := frontier.Scrape(context.Background(), testProfile(), seedURL(t, "https://example.com/reviews"))

	if !errors.Is(result.Err, ErrSeedUnreachable) {
		t.Fatalf("err = %v, want ErrSeedUnreachable", result.Err)
	}
	var fetchErr *fetcher.FetchError
	if !errors.As(result.Err, &fetchErr) {
		t.Error("underlying fetch failure not wrapped")
	}
	if len(result.Reviews) != 0 {
		t.Errorf("reviews = %d", len(result.Reviews))
	}
}

func TestScrapeNoReviews(t *testing.T) {
	fetch := &mapFetcher{pages: map[string]string{
		"https://example.com/about": emptyPage,
	}}
	frontier := newTestFrontier(t, fetch, FrontierOptions{MaxPages: 10, MaxReviews: 100})

	result := frontier.Scrape(context.Background(), testProfile(), seedURL(t, "https://example.com/about"))

	if !errors.Is(result.Err, ErrNoReviews) {
		t.Fatalf("err = %v, want ErrNoReviews", result.Err)
	}
	if result.PagesFetched == 0 {
		t.Error("seed page should have been fetched")
	}
}

func TestScrapeCancellationReturnsPartialResults(t *testing.T) {
	fetch := &mapFetcher{pages: map[string]string{}}
	for i := 1; i <= 10; i++ {
		fetch.pages[fmt.Sprintf("https://example.com/reviews?page=%d", i)] = reviewPage(i, 2)
	}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	fetch.onFetch = func() {
		calls++
		if calls == 2 {
			cancel()
		}
	}
	frontier := newTestFrontier(t, fetch, FrontierOptions{MaxPages: 100, MaxReviews: 1000})

	result := frontier.Scrape(ctx, testProfile(), seedURL(t, "https://example.com/reviews?page=1"))

	if result.Outcome != OutcomeCancelled {
		t.Fatalf("outcome = %q, want cancelled", result.Outcome)
	}
	if result.Err != nil {
		t.Errorf("cancellation must not set a failure error, got %v", result.Err)
	}
	if len(result.Reviews) != 4 {
		t.Errorf("reviews = %d, want the 4 collected before cancellation", len(result.Reviews))
	}
}

func TestScrapeGuessedPageFailureDisablesGuessing(t *testing.T) {
	// The seed has no page indicator and no next links, so the navigator
	// synthesizes ?page=2. That guess lands on an empty page; no further
	// guesses may follow.
	fetch := &mapFetcher{pages: map[string]string{
		"https://example.com/reviews":        reviewPage(1, 3),
		"https://example.com/reviews?page=2": emptyPage,
	}}
	frontier := newTestFrontier(t, fetch, FrontierOptions{MaxPages: 100, MaxReviews: 1000})

	result := frontier.Scrape(context.Background(), testProfile(), seedURL(t, "https://example.com/reviews"))

	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if len(result.Reviews) != 3 {
		t.Errorf("reviews = %d, want 3", len(result.Reviews))
	}
	if result.PagesFetched != 2 {
		t.Errorf("pages fetched = %d, want 2", result.PagesFetched)
	}
}
