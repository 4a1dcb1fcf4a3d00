package extractor

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"reviewcrawler/internal/sites"
	"reviewcrawler/pkg/types"
)

// Strategy attempts to pull candidate reviews out of a parsed document.
// Strategies are tried in order; the first non-empty result wins.
type Strategy interface {
	Name() string
	Extract(doc *goquery.Document, profile sites.Profile) []types.CandidateReview
}

// Extractor runs the strategy cascade over a fetched page.
type Extractor struct {
	strategies []Strategy
	logger     *slog.Logger
}

// New builds the default cascade: site rules first, generic heuristics as
// fallback.
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		strategies: []Strategy{
			RuleStrategy{},
			HeuristicStrategy{},
		},
		logger: logger,
	}
}

// Extract converts a parsed document into candidate reviews. A page that
// yields nothing is an extraction miss, not an error.
func (e *Extractor) Extract(doc *goquery.Document, profile sites.Profile) []types.CandidateReview {
	if doc == nil {
		return nil
	}

	for _, strategy := range e.strategies {
		candidates := strategy.Extract(doc, profile)
		if len(candidates) > 0 {
			e.logger.Debug("extraction succeeded",
				"strategy", strategy.Name(),
				"candidates", len(candidates),
			)
			return candidates
		}
	}
	return nil
}

// RuleStrategy extracts reviews using a site profile's CSS selectors.
type RuleStrategy struct{}

func (RuleStrategy) Name() string { return "rules" }

func (RuleStrategy) Extract(doc *goquery.Document, profile sites.Profile) []types.CandidateReview {
	rules := profile.Rules
	if rules == nil || strings.TrimSpace(rules.ReviewContainer) == "" {
		return nil
	}

	var reviews []types.CandidateReview
	doc.Find(rules.ReviewContainer).Each(func(_ int, container *goquery.Selection) {
		review := types.CandidateReview{SourceTag: "rules"}

		if rules.ReviewText != "" {
			review.Text = strings.TrimSpace(container.Find(rules.ReviewText).First().Text())
		}
		// A container without usable text is dropped silently.
		if review.Text == "" {
			return
		}

		if rules.Rating != "" {
			if ratingElem := container.Find(rules.Rating).First(); ratingElem.Length() > 0 {
				review.Rating, review.HasRating = extractRating(ratingElem)
			}
		}
		if rules.Reviewer != "" {
			review.Reviewer = strings.TrimSpace(container.Find(rules.Reviewer).First().Text())
		}
		if rules.Date != "" {
			if raw := strings.TrimSpace(container.Find(rules.Date).First().Text()); raw != "" {
				review.Date = parseDate(raw)
			}
		}

		reviews = append(reviews, review)
	})
	return reviews
}

// HeuristicStrategy scans for container-like elements whose class attribute
// suggests review content, with best-effort field recovery.
type HeuristicStrategy struct{}

func (HeuristicStrategy) Name() string { return "heuristic" }

// containerKeywords flag an element class as likely review content.
var containerKeywords = []string{"review", "comment", "feedback", "testimonial"}

const (
	minTextBlockLen = 20
	maxTextBlocks   = 3
)

func (HeuristicStrategy) Extract(doc *goquery.Document, _ sites.Profile) []types.CandidateReview {
	var reviews []types.CandidateReview

	doc.Find("div, article, li, section").Each(func(_ int, elem *goquery.Selection) {
		class, ok := elem.Attr("class")
		if !ok {
			return
		}
		class = strings.ToLower(class)
		matched := false
		for _, keyword := range containerKeywords {
			if strings.Contains(class, keyword) {
				matched = true
				break
			}
		}
		if !matched {
			return
		}

		review := parseGenericContainer(elem)
		if review.Text == "" {
			return
		}
		reviews = append(reviews, review)
	})

	return reviews
}

func parseGenericContainer(elem *goquery.Selection) types.CandidateReview {
	review := types.CandidateReview{SourceTag: "heuristic"}

	blocks := textBlocks(elem, minTextBlockLen, maxTextBlocks)
	review.Text = strings.Join(blocks, " ")
	if review.Text == "" {
		return review
	}

	if ratingElem := elem.Find(ratingClassSelector).First(); ratingElem.Length() > 0 {
		review.Rating, review.HasRating = extractRating(ratingElem)
	}
	return review
}
