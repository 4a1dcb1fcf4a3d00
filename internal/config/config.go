package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the full configuration required to run the review crawler.
type Config struct {
	Crawl     CrawlConfig     `yaml:"crawl"`
	Rendering RenderingConfig `yaml:"rendering"`
	Robots    RobotsConfig    `yaml:"robots"`
	Sites     SitesConfig     `yaml:"sites"`
	Normalize NormalizeConfig `yaml:"normalize"`
	Worker    WorkerConfig    `yaml:"worker"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CrawlConfig controls the crawl frontier, limits, and throttling.
type CrawlConfig struct {
	Seeds              []string          `yaml:"seeds"`
	MaxPages           int               `yaml:"max_pages"`
	MaxReviews         int               `yaml:"max_reviews"`
	UserAgent          string            `yaml:"user_agent"`
	Headers            map[string]string `yaml:"headers"`
	ProxyURL           string            `yaml:"proxy_url"`
	RequestTimeout     Duration          `yaml:"request_timeout"`
	PerDomainDelay     Duration          `yaml:"per_domain_delay"`
	RateLimitPerDomain RateLimitConfig   `yaml:"rate_limit_per_domain"`
	JitterMin          Duration          `yaml:"jitter_min"`
	JitterMax          Duration          `yaml:"jitter_max"`
	MaxBodyBytes       int64             `yaml:"max_body_bytes"`
}

// RateLimitConfig applies a token bucket per domain.
type RateLimitConfig struct {
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
}

// RenderingConfig controls optional JavaScript rendering.
type RenderingConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Engine             string   `yaml:"engine"`
	Timeout            Duration `yaml:"timeout"`
	WaitForSelector    string   `yaml:"wait_for_selector"`
	SettleDelay        Duration `yaml:"settle_delay"`
	ConcurrentSessions int      `yaml:"concurrent_sessions"`
	DisableHeadless    bool     `yaml:"disable_headless"`
}

// RobotsConfig configures robots.txt handling.
type RobotsConfig struct {
	Respect   bool     `yaml:"respect"`
	Overrides []string `yaml:"overrides"`
	UserAgent string   `yaml:"user_agent"`
	CacheTTL  Duration `yaml:"cache_ttl"`
}

// SiteRuleConfig declares per-domain CSS selectors for review extraction.
type SiteRuleConfig struct {
	Domain          string `yaml:"domain"`
	ReviewContainer string `yaml:"review_container"`
	ReviewText      string `yaml:"review_text"`
	Rating          string `yaml:"rating"`
	Reviewer        string `yaml:"reviewer"`
	Date            string `yaml:"date"`
	Pagination      string `yaml:"pagination"`
}

// SitesConfig extends the built-in site rule table.
type SitesConfig struct {
	Rules           []SiteRuleConfig `yaml:"rules"`
	RenderedDomains []string         `yaml:"rendered_domains"`
}

// NormalizeConfig tunes review validation and cleaning.
type NormalizeConfig struct {
	MinLength    int      `yaml:"min_length"`
	MaxLength    int      `yaml:"max_length"`
	SpamKeywords []string `yaml:"spam_keywords"`
}

// WorkerConfig controls concurrency across seed crawls.
type WorkerConfig struct {
	Concurrency int `yaml:"concurrency"`
	QueueSize   int `yaml:"queue_size"`
}

// OutputConfig selects where normalized reviews are written.
type OutputConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Structured bool   `yaml:"structured"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		Crawl: CrawlConfig{
			MaxPages:       10,
			MaxReviews:     5000,
			Headers:        map[string]string{},
			RequestTimeout: DurationFrom(30 * time.Second),
			PerDomainDelay: DurationFrom(2 * time.Second),
			JitterMin:      DurationFrom(500 * time.Millisecond),
			JitterMax:      DurationFrom(1500 * time.Millisecond),
			MaxBodyBytes:   6 * 1024 * 1024,
		},
		Rendering: RenderingConfig{
			Enabled:            true,
			Engine:             "chromedp",
			Timeout:            DurationFrom(60 * time.Second),
			SettleDelay:        DurationFrom(3 * time.Second),
			ConcurrentSessions: 2,
		},
		Robots: RobotsConfig{
			Respect:   true,
			Overrides: []string{},
			UserAgent: "reviewcrawler-bot/1.0",
			CacheTTL:  DurationFrom(6 * time.Hour),
		},
		Normalize: NormalizeConfig{
			MinLength: 5,
			MaxLength: 5000,
		},
		Worker: WorkerConfig{
			Concurrency: 4,
			QueueSize:   64,
		},
		Output: OutputConfig{
			Path:   "-",
			Format: "jsonl",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Structured: true,
		},
	}
}

// Load reads, merges, and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer fh.Close()

	return LoadFromReader(fh)
}

// LoadFromReader decodes configuration from an arbitrary reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decodeYAML(r, &cfg); err != nil {
		return nil, err
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// Validate enforces required invariants for the crawler configuration.
func (c Config) Validate() error {
	for i, seed := range c.Crawl.Seeds {
		if strings.TrimSpace(seed) == "" {
			return fmt.Errorf("seed %d is empty", i)
		}
	}
	if c.Crawl.MaxPages <= 0 {
		return fmt.Errorf("crawl.max_pages must be > 0 (got %d)", c.Crawl.MaxPages)
	}
	if c.Crawl.MaxReviews <= 0 {
		return fmt.Errorf("crawl.max_reviews must be > 0 (got %d)", c.Crawl.MaxReviews)
	}
	if c.Crawl.MaxBodyBytes <= 0 {
		return fmt.Errorf("crawl.max_body_bytes must be > 0 (got %d)", c.Crawl.MaxBodyBytes)
	}
	if c.Crawl.JitterMax.Duration < c.Crawl.JitterMin.Duration {
		return errors.New("crawl.jitter_max must be >= crawl.jitter_min")
	}
	if rl := c.Crawl.RateLimitPerDomain; rl.Requests < 0 {
		return fmt.Errorf("crawl.rate_limit_per_domain.requests must be >= 0 (got %d)", rl.Requests)
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker.concurrency must be > 0 (got %d)", c.Worker.Concurrency)
	}
	if c.Worker.QueueSize <= 0 {
		return fmt.Errorf("worker.queue_size must be > 0 (got %d)", c.Worker.QueueSize)
	}
	if c.Robots.Respect && strings.TrimSpace(c.Robots.UserAgent) == "" {
		return errors.New("robots.user_agent must be set when robots.respect is true")
	}
	if c.Normalize.MinLength <= 0 {
		return fmt.Errorf("normalize.min_length must be > 0 (got %d)", c.Normalize.MinLength)
	}
	if c.Normalize.MaxLength < c.Normalize.MinLength {
		return errors.New("normalize.max_length must be >= normalize.min_length")
	}
	switch c.Output.Format {
	case "", "jsonl":
	default:
		return fmt.Errorf("unsupported output format %q", c.Output.Format)
	}
	for i, rule := range c.Sites.Rules {
		if strings.TrimSpace(rule.Domain) == "" {
			return fmt.Errorf("sites.rules[%d] has empty domain", i)
		}
		if strings.TrimSpace(rule.ReviewContainer) == "" {
			return fmt.Errorf("sites.rules[%d] (%s) needs review_container", i, rule.Domain)
		}
	}
	return nil
}

func (c *Config) normalise() {
	cleaned := make([]string, 0, len(c.Crawl.Seeds))
	for _, seed := range c.Crawl.Seeds {
		seed = strings.TrimSpace(seed)
		if seed != "" {
			cleaned = append(cleaned, seed)
		}
	}
	c.Crawl.Seeds = cleaned
	c.Crawl.UserAgent = strings.TrimSpace(c.Crawl.UserAgent)
	c.Robots.UserAgent = strings.TrimSpace(c.Robots.UserAgent)
	c.Output.Path = strings.TrimSpace(c.Output.Path)

	if len(c.Robots.Overrides) > 0 {
		c.Robots.Overrides = dedupeLower(c.Robots.Overrides)
	}
	if len(c.Sites.RenderedDomains) > 0 {
		c.Sites.RenderedDomains = dedupeLower(c.Sites.RenderedDomains)
	}
	for i := range c.Sites.Rules {
		c.Sites.Rules[i].Domain = strings.ToLower(strings.TrimSpace(c.Sites.Rules[i].Domain))
	}
	if len(c.Normalize.SpamKeywords) > 0 {
		c.Normalize.SpamKeywords = dedupeLower(c.Normalize.SpamKeywords)
	}
}

func dedupeLower(values []string) []string {
	unique := make(map[string]struct{}, len(values))
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := unique[v]; ok {
			continue
		}
		unique[v] = struct{}{}
		cleaned = append(cleaned, v)
	}
	sort.Strings(cleaned)
	return cleaned
}

// Enabled reports whether per-domain rate limiting is active.
func (r RateLimitConfig) Enabled() bool {
	return r.Requests > 0 && !r.Window.IsZero()
}
