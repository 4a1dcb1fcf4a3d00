package paginate

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"reviewcrawler/internal/sites"
)

func testNavigator() *Navigator {
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

func TestNavigatorPatternWinsOverLinks(t *testing.T) {
	doc := parseDoc(t, `<html><body><a rel="next" href="/reviews?page=99">Next</a></body></html>`)
	current := mustParse(t, "https://example.com/reviews?page=2")

	result := testNavigator().Next(doc, sites.Profile{Domain: "example.com"}, current)
	if result.Strategy != StrategyPattern {
		t.Fatalf("strategy = %q, want %q", result.Strategy, StrategyPattern)
	}
	if len(result.URLs) != 1 || result.URLs[0].Query().Get("page") != "3" {
		t.Errorf("unexpected URLs %v", result.URLs)
	}
	if result.Guessed {
		t.Error("pattern result must not be marked guessed")
	}
}

func TestNavigatorRuleLinks(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<a class="pager-next" href="/reviews/acme?start=20">More</a>
		<a class="pager-next" href="/reviews/acme?start=20">More (dup)</a>
	</body></html>`)
	current := mustParse(t, "https://example.com/reviews/acme")
	profile := sites.Profile{
		Domain: "example.com",
		Rules:  &sites.Rules{Pagination: "a.pager-next"},
	}

	result := testNavigator().Next(doc, profile, current)
	if result.Strategy != StrategyRuleLinks {
		t.Fatalf("strategy = %q, want %q", result.Strategy, StrategyRuleLinks)
	}
	if len(result.URLs) != 1 {
		t.Fatalf("duplicate hrefs not collapsed: %v", result.URLs)
	}
	if got := result.URLs[0].String(); got != "https://example.com/reviews/acme?start=20" {
		t.Errorf("resolved = %q", got)
	}
}

func TestNavigatorGenericNext(t *testing.T) {
	cases := []struct {
		name string
		html string
	}{
		{"rel attribute", `<a rel="next" href="/p2">more</a>`},
		{"aria label", `<a aria-label="Next page" href="/p2">&rsaquo;</a>`},
		{"visible text", `<a href="/p2">Next</a>`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := parseDoc(t, "<html><body>"+tc.html+"</body></html>")
			current := mustParse(t, "https://example.com/reviews")

			result := testNavigator().Next(doc, sites.Profile{Domain: "example.com"}, current)
			if result.Strategy != StrategyGenericNext {
				t.Fatalf("strategy = %q, want %q", result.Strategy, StrategyGenericNext)
			}
			if len(result.URLs) != 1 || result.URLs[0].Path != "/p2" {
				t.Errorf("unexpected URLs %v", result.URLs)
			}
		})
	}
}

func TestNavigatorSkipsNonNavigableHrefs(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<a rel="next" href="javascript:void(0)">Next</a>
		<a rel="next" href="#">Next</a>
		<a rel="next" href="mailto:a@b.c">Next</a>
	</body></html>`)
	current := mustParse(t, "https://example.com/reviews")

	result := testNavigator().Next(doc, sites.Profile{Domain: "example.com"}, current)
	if result.Strategy != StrategyGuess {
		t.Fatalf("expected fall-through to guess, got %q", result.Strategy)
	}
}

func TestNavigatorGuessIsLastResort(t *testing.T) {
	doc := parseDoc(t, `<html><body><p>no links here</p></body></html>`)
	current := mustParse(t, "https://example.com/reviews")

	result := testNavigator().Next(doc, sites.Profile{Domain: "example.com"}, current)
	if result.Strategy != StrategyGuess || !result.Guessed {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.URLs) != 1 || result.URLs[0].Query().Get("page") != "2" {
		t.Errorf("unexpected guess %v", result.URLs)
	}
}
