package normalize

import (
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"reviewcrawler/pkg/types"
)

// defaultSpamKeywords mark likely promotional or bot content. A single hit
// is tolerated since real reviews mention discounts; two distinct hits
// reject the record.
var defaultSpamKeywords = []string{
	"spam", "fake", "bot", "advertisement", "promo", "discount code",
	"click here", "visit our website", "buy now", "limited time",
}

// Options tunes validation thresholds.
type Options struct {
	MinLength    int
	MaxLength    int
	SpamKeywords []string
}

// Meta carries the crawl provenance stamped onto every emitted review.
type Meta struct {
	SourceURL    string
	SourceDomain string
	ScrapedAt    time.Time
}

// Normalizer validates, cleans, and deduplicates extracted candidates.
type Normalizer struct {
	minLength    int
	maxLength    int
	spamKeywords []string
	logger       *slog.Logger
}

// New constructs a normalizer, falling back to the default thresholds and
// spam list where options are unset.
func New(opts Options, logger *slog.Logger) *Normalizer {
	if opts.MinLength <= 0 {
		opts.MinLength = 5
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = 5000
	}
	keywords := opts.SpamKeywords
	if len(keywords) == 0 {
		keywords = defaultSpamKeywords
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		minLength:    opts.MinLength,
		maxLength:    opts.MaxLength,
		spamKeywords: keywords,
		logger:       logger,
	}
}

// Normalize cleans each candidate in discovery order, drops invalid ones,
// and deduplicates on the lower-cased whitespace-collapsed text, keeping the
// first occurrence.
func (n *Normalizer) Normalize(candidates []types.CandidateReview, meta Meta) []types.Review {
	reviews := make([]types.Review, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))

	for _, candidate := range candidates {
		text := CollapseWhitespace(candidate.Text)
		if len(text) > n.maxLength {
			cut := n.maxLength
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			text = text[:cut]
		}
		if !n.valid(text) {
			continue
		}

		key := strings.ToLower(text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		reviews = append(reviews, types.Review{
			Text:         text,
			Rating:       candidate.Rating,
			HasRating:    candidate.HasRating,
			Reviewer:     CollapseWhitespace(candidate.Reviewer),
			Date:         CollapseWhitespace(candidate.Date),
			SourceTag:    candidate.SourceTag,
			SourceURL:    meta.SourceURL,
			SourceDomain: meta.SourceDomain,
			ScrapedAt:    meta.ScrapedAt,
		})
	}

	dropped := len(candidates) - len(reviews)
	if dropped > 0 {
		n.logger.Debug("normalization dropped candidates",
			"kept", len(reviews),
			"dropped", dropped,
		)
	}
	return reviews
}

func (n *Normalizer) valid(text string) bool {
	if len(text) < n.minLength {
		return false
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, keyword := range n.spamKeywords {
		if strings.Contains(lower, keyword) {
			hits++
			if hits >= 2 {
				return false
			}
		}
	}
	return true
}

// CollapseWhitespace trims a string and folds internal whitespace runs into
// single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
