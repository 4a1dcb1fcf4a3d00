package sites

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"reviewcrawler/internal/config"
)

// Rules holds the CSS selectors used for rule-based extraction on a known
// review site. A nil *Rules on a Profile means generic extraction.
type Rules struct {
	ReviewContainer string
	ReviewText      string
	Rating          string
	Reviewer        string
	Date            string
	Pagination      string
}

// Profile identifies a crawl target. Immutable once resolved.
type Profile struct {
	Domain            string
	BaseURL           *url.URL
	Rules             *Rules
	RequiresRendering bool
}

// builtinRules maps known review-site domains to their selector sets.
// Matched by substring against the normalized host, so "glassdoor.com"
// also covers regional subdomains.
var builtinRules = map[string]Rules{
	"trustpilot.com": {
		ReviewContainer: "article[data-service-review-card-paper]",
		ReviewText:      `div[data-service-review-text-typography="true"]`,
		Rating:          "div[data-service-review-rating] img",
		Reviewer:        `span[data-consumer-name-typography="true"]`,
		Date:            "time",
		Pagination:      "a[data-pagination-button-next-label]",
	},
	"glassdoor.com": {
		ReviewContainer: `li[data-test="employer-review"]`,
		ReviewText:      `[data-test="reviewBodyText"]`,
		Rating:          `[data-test="rating"]`,
		Reviewer:        `[data-test="employee-review-reviewer"]`,
		Date:            `[data-test="review-date"]`,
		Pagination:      `[data-test="pagination-next"]`,
	},
	"glassdoor.co.in": {
		ReviewContainer: `[data-test="employer-review"], .review, .employerReview`,
		ReviewText:      `[data-test="reviewBodyText"], .review-details, .reviewBodyText`,
		Rating:          `[data-test="rating"], .ratingNumber, [class*="rating"]`,
		Reviewer:        `[data-test="employee-review-reviewer"], .reviewer, .authorName`,
		Date:            `[data-test="review-date"], .review-date, [class*="date"]`,
		Pagination:      `[data-test="pagination-next"], .next, [aria-label="Next"]`,
	},
	"yelp.com": {
		ReviewContainer: `div[data-testid*="review"]`,
		ReviewText:      `p[data-testid="review-text"]`,
		Rating:          `div[aria-label*="star rating"]`,
		Reviewer:        `span[data-testid="review-author"]`,
		Date:            `span[data-testid="review-date"]`,
		Pagination:      `a[aria-label="Next"]`,
	},
	"google.com": {
		ReviewContainer: "div[data-review-id]",
		ReviewText:      "span[data-expandable-text]",
		Rating:          `span[aria-label*="star"]`,
		Reviewer:        `div[data-value="Name"]`,
		Date:            `span[class*="date"]`,
		Pagination:      `button[aria-label="Next page"]`,
	},
	"ambitionbox.com": {
		ReviewContainer: `.review-card, .review-item, [class*="review"]`,
		ReviewText:      `.review-text, .review-content, [class*="review-text"]`,
		Rating:          `.rating, [class*="rating"], [class*="star"]`,
		Reviewer:        `.reviewer-name, .review-author, [class*="author"]`,
		Date:            `.review-date, [class*="date"]`,
		Pagination:      `.next-page, .pagination-next, [href*="page"]`,
	},
}

// renderedDomains lists sites known to hydrate review content client-side.
var renderedDomains = []string{
	"glassdoor.com",
	"glassdoor.co.in",
	"indeed.com",
	"linkedin.com",
	"ambitionbox.com",
}

// Registry resolves site profiles against the built-in rule table plus any
// configured extensions. Read-only after construction, safe for concurrent
// use by multiple crawls.
type Registry struct {
	rules    map[string]Rules
	domains  []string
	rendered []string
}

// NewRegistry builds a registry from the built-in table merged with config
// overrides. Config rules for an already-known domain replace the built-in
// entry.
func NewRegistry(cfg config.SitesConfig) *Registry {
	rules := make(map[string]Rules, len(builtinRules)+len(cfg.Rules))
	for domain, r := range builtinRules {
		rules[domain] = r
	}
	for _, rc := range cfg.Rules {
		rules[rc.Domain] = Rules{
			ReviewContainer: rc.ReviewContainer,
			ReviewText:      rc.ReviewText,
			Rating:          rc.Rating,
			Reviewer:        rc.Reviewer,
			Date:            rc.Date,
			Pagination:      rc.Pagination,
		}
	}

	domains := make([]string, 0, len(rules))
	for domain := range rules {
		domains = append(domains, domain)
	}
	sort.Strings(domains)

	rendered := make([]string, 0, len(renderedDomains)+len(cfg.RenderedDomains))
	rendered = append(rendered, renderedDomains...)
	rendered = append(rendered, cfg.RenderedDomains...)

	return &Registry{rules: rules, domains: domains, rendered: rendered}
}

// ParseSeed validates a raw URL for syntactic scheme and host presence,
// defaulting to https when the scheme is missing.
func ParseSeed(rawURL string) (*url.URL, error) {
	raw := strings.TrimSpace(rawURL)
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	if parsed.Scheme == "" {
		parsed, err = url.Parse("https://" + raw)
		if err != nil {
			return nil, fmt.Errorf("parse url %q: %w", rawURL, err)
		}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("url %q missing host", rawURL)
	}
	return parsed, nil
}

// Resolve parses the seed URL and determines the extraction strategy for its
// domain. It performs no network I/O; an unknown domain simply yields a
// profile in generic mode.
func (r *Registry) Resolve(rawURL string) (Profile, error) {
	parsed, err := ParseSeed(rawURL)
	if err != nil {
		return Profile{}, err
	}

	domain := NormalizeDomain(parsed.Hostname())

	profile := Profile{
		Domain:  domain,
		BaseURL: &url.URL{Scheme: parsed.Scheme, Host: parsed.Host},
	}

	for _, key := range r.domains {
		if strings.Contains(domain, key) {
			rules := r.rules[key]
			profile.Rules = &rules
			break
		}
	}

	for _, site := range r.rendered {
		if strings.Contains(domain, site) {
			profile.RequiresRendering = true
			break
		}
	}

	return profile, nil
}

// NormalizeDomain lowercases a host and strips a leading "www." prefix.
func NormalizeDomain(host string) string {
	domain := strings.ToLower(strings.TrimSpace(host))
	return strings.TrimPrefix(domain, "www.")
}
