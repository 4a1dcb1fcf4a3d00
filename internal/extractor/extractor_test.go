package extractor

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"reviewcrawler/internal/sites"
)

func testExtractor() *Extractor {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}
	return doc
}

var ruleProfile = sites.Profile{
	Domain: "example.com",
	Rules: &sites.Rules{
		ReviewContainer: "div.review",
		ReviewText:      "p.body",
		Rating:          "span.stars",
		Reviewer:        "span.author",
		Date:            "span.when",
	},
}

func TestRuleExtraction(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<div class="review">
			<p class="body">Fantastic support team, resolved my issue fast.</p>
			<span class="stars 5-star"></span>
			<span class="author">Alex P.</span>
			<span class="when">Reviewed on January 5, 2026 via web</span>
		</div>
		<div class="review">
			<p class="body">Shipping took three weeks.</p>
		</div>
	</body></html>`)

	got := testExtractor().Extract(doc, ruleProfile)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}

	first := got[0]
	if first.Text != "Fantastic support team, resolved my issue fast." {
		t.Errorf("text = %q", first.Text)
	}
	if !first.HasRating || first.Rating != 5 {
		t.Errorf("rating = %v (has=%v), want 5", first.Rating, first.HasRating)
	}
	if first.Reviewer != "Alex P." {
		t.Errorf("reviewer = %q", first.Reviewer)
	}
	if first.Date != "January 5, 2026" {
		t.Errorf("date = %q", first.Date)
	}
	if first.SourceTag != "rules" {
		t.Errorf("source tag = %q", first.SourceTag)
	}

	second := got[1]
	if second.HasRating {
		t.Errorf("rating should be absent, got %v", second.Rating)
	}
}

func TestRuleExtractionDropsEmptyContainers(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<div class="review"><span class="stars 4-star"></span></div>
		<div class="review"><p class="body">Actual feedback text here.</p></div>
	</body></html>`)

	got := testExtractor().Extract(doc, ruleProfile)
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].Text != "Actual feedback text here." {
		t.Errorf("text = %q", got[0].Text)
	}
}

func TestHeuristicFallbackWhenRulesMiss(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<article class="customer-testimonial">
			<p>This product exceeded every expectation I had for it.</p>
			<span class="rating-badge" aria-label="4.5 out of 5"></span>
		</article>
		<div class="sidebar">unrelated text that is long enough to qualify</div>
	</body></html>`)

	got := testExtractor().Extract(doc, ruleProfile)
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].SourceTag != "heuristic" {
		t.Errorf("source tag = %q", got[0].SourceTag)
	}
	if !strings.Contains(got[0].Text, "exceeded every expectation") {
		t.Errorf("text = %q", got[0].Text)
	}
	if !got[0].HasRating || got[0].Rating != 4.5 {
		t.Errorf("rating = %v (has=%v), want 4.5", got[0].Rating, got[0].HasRating)
	}
}

func TestHeuristicUsedForGenericProfile(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<li class="review-item"><p>Decent value for the price, would buy again.</p></li>
	</body></html>`)

	got := testExtractor().Extract(doc, sites.Profile{Domain: "unknown.example"})
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].SourceTag != "heuristic" {
		t.Errorf("source tag = %q", got[0].SourceTag)
	}
}

func TestExtractEmptyPage(t *testing.T) {
	doc := parseDoc(t, `<html><body><p>nothing reviewish</p></body></html>`)
	if got := testExtractor().Extract(doc, ruleProfile); len(got) != 0 {
		t.Fatalf("expected no candidates, got %d", len(got))
	}
}
