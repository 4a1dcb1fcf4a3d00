package paginate

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"reviewcrawler/internal/sites"
)

// Strategy proposes follow-up page URLs for a fetched document. Strategies
// are tried in order; the first non-empty result wins.
type Strategy interface {
	Name() string
	Next(doc *goquery.Document, profile sites.Profile, current *url.URL) []*url.URL
}

// Strategy names surfaced via Result.Strategy.
const (
	StrategyPattern     = "pattern"
	StrategyRuleLinks   = "rule-links"
	StrategyGenericNext = "generic-next"
	StrategyGuess       = "guess"
)

// Result carries the proposed next pages. Strategy names the tier that
// produced them; Guessed marks a synthesized page-2 address rather than a
// confirmed pattern or discovered link.
type Result struct {
	URLs     []*url.URL
	Strategy string
	Guessed  bool
}

// Navigator determines the next page(s) to fetch. A detected URL pattern
// short-circuits immediately; DOM-based discovery runs only when the URL
// itself carries no page indicator; the page-2 guess is the last resort.
type Navigator struct {
	strategies []Strategy
	logger     *slog.Logger
}

// New builds the default cascade.
func New(logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Navigator{
		strategies: []Strategy{
			PatternStrategy{},
			RuleLinkStrategy{},
			GenericNextStrategy{},
		},
		logger: logger,
	}
}

// Next returns candidate follow-up URLs for the page, usually zero or one
// entries. An empty result is a pagination dead-end, not an error.
func (n *Navigator) Next(doc *goquery.Document, profile sites.Profile, current *url.URL) Result {
	for _, strategy := range n.strategies {
		urls := strategy.Next(doc, profile, current)
		if len(urls) > 0 {
			n.logger.Debug("pagination resolved",
				"url", current.String(),
				"strategy", strategy.Name(),
				"next", len(urls),
			)
			return Result{URLs: urls, Strategy: strategy.Name()}
		}
	}

	if guess := GuessSecondPage(current); guess != nil {
		return Result{URLs: []*url.URL{guess}, Strategy: StrategyGuess, Guessed: true}
	}
	return Result{}
}

// PatternStrategy proposes the next page from an inferred URL pattern,
// avoiding a DOM re-scan when the address already carries a page number.
type PatternStrategy struct{}

func (PatternStrategy) Name() string { return StrategyPattern }

func (PatternStrategy) Next(_ *goquery.Document, _ sites.Profile, current *url.URL) []*url.URL {
	pattern, ok := Detect(current)
	if !ok {
		return nil
	}
	next := pattern.Next()
	if next == nil {
		return nil
	}
	return []*url.URL{next}
}

// RuleLinkStrategy discovers pagination links via the site profile's
// pagination selector.
type RuleLinkStrategy struct{}

func (RuleLinkStrategy) Name() string { return StrategyRuleLinks }

func (RuleLinkStrategy) Next(doc *goquery.Document, profile sites.Profile, current *url.URL) []*url.URL {
	if doc == nil || profile.Rules == nil || strings.TrimSpace(profile.Rules.Pagination) == "" {
		return nil
	}

	var urls []*url.URL
	seen := make(map[string]struct{})
	doc.Find(profile.Rules.Pagination).Each(func(_ int, link *goquery.Selection) {
		resolved := resolveHref(link, current)
		if resolved == nil {
			return
		}
		key := resolved.String()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		urls = append(urls, resolved)
	})
	return urls
}

// GenericNextStrategy looks for anchors or buttons whose rel attribute,
// accessibility label, or visible text suggests "next".
type GenericNextStrategy struct{}

func (GenericNextStrategy) Name() string { return StrategyGenericNext }

func (GenericNextStrategy) Next(doc *goquery.Document, _ sites.Profile, current *url.URL) []*url.URL {
	if doc == nil {
		return nil
	}

	var next *url.URL
	doc.Find("a, button").EachWithBreak(func(_ int, elem *goquery.Selection) bool {
		if !suggestsNext(elem) {
			return true
		}
		if resolved := resolveHref(elem, current); resolved != nil {
			next = resolved
			return false
		}
		return true
	})

	if next == nil {
		return nil
	}
	return []*url.URL{next}
}

func suggestsNext(elem *goquery.Selection) bool {
	if rel, ok := elem.Attr("rel"); ok && strings.Contains(strings.ToLower(rel), "next") {
		return true
	}
	if aria, ok := elem.Attr("aria-label"); ok && strings.Contains(strings.ToLower(aria), "next") {
		return true
	}
	text := strings.ToLower(strings.TrimSpace(elem.Text()))
	return text == "next" || text == "next page" || strings.HasPrefix(text, "next ")
}

func resolveHref(elem *goquery.Selection, base *url.URL) *url.URL {
	href, ok := elem.Attr("href")
	if !ok {
		return nil
	}
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") || href == "#" {
		return nil
	}
	resolved, err := base.Parse(href)
	if err != nil {
		return nil
	}
	resolved.Fragment = ""
	scheme := strings.ToLower(resolved.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil
	}
	return resolved
}
