package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"reviewcrawler/internal/config"
	"reviewcrawler/internal/extractor"
	"reviewcrawler/internal/fetcher"
	"reviewcrawler/internal/normalize"
	"reviewcrawler/internal/paginate"
	robotsclient "reviewcrawler/internal/robots"
	"reviewcrawler/internal/sites"
)

// Engine orchestrates independent seed crawls over a shared fetcher,
// throttling, and extraction stack. Seeds run concurrently on a worker
// pool; each seed gets its own frontier with a private queue and visited
// set, while politeness state (robots cache, per-domain limiter) is shared
// so that seeds on the same host do not stack requests.
type Engine struct {
	cfg      config.Config
	registry *sites.Registry
	frontier *Frontier
	logger   *slog.Logger
}

// NewEngine builds a crawl engine from configuration.
func NewEngine(cfg config.Config) (*Engine, error) {
	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	httpFetcher, err := fetcher.NewHTTPFetcher(fetcher.Options{
		UserAgent:    cfg.Crawl.UserAgent,
		Headers:      cfg.Crawl.Headers,
		Timeout:      cfg.Crawl.RequestTimeout.Duration,
		MaxBodyBytes: cfg.Crawl.MaxBodyBytes,
		ProxyURL:     cfg.Crawl.ProxyURL,
		JitterMin:    cfg.Crawl.JitterMin.Duration,
		JitterMax:    cfg.Crawl.JitterMax.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("http fetcher: %w", err)
	}

	var renderer fetcher.Renderer
	if cfg.Rendering.Enabled {
		switch strings.ToLower(cfg.Rendering.Engine) {
		case "chromedp", "chrome":
			renderer = fetcher.NewChromedpRenderer(fetcher.RenderOptions{
				Timeout:            cfg.Rendering.Timeout.Duration,
				WaitForSelector:    cfg.Rendering.WaitForSelector,
				SettleDelay:        cfg.Rendering.SettleDelay.Duration,
				UserAgent:          cfg.Crawl.UserAgent,
				MaxBodyBytes:       cfg.Crawl.MaxBodyBytes,
				DisableHeadless:    cfg.Rendering.DisableHeadless,
				ConcurrentSessions: cfg.Rendering.ConcurrentSessions,
			}, logger)
		case "none":
			// Explicit opt-out even if enabled flag toggled.
		default:
			return nil, fmt.Errorf("unsupported rendering engine %q", cfg.Rendering.Engine)
		}
	}

	composite := fetcher.NewComposite(httpFetcher, renderer)
	robots := robotsclient.NewAgent(cfg.Robots, httpFetcher.Client())

	var rateSettings RateLimiterSettings
	if cfg.Crawl.RateLimitPerDomain.Enabled() {
		rateSettings = RateLimiterSettings{
			Requests: cfg.Crawl.RateLimitPerDomain.Requests,
			Window:   cfg.Crawl.RateLimitPerDomain.Window.Duration,
		}
	}
	limiter := NewDomainLimiter(cfg.Crawl.PerDomainDelay.Duration, rateSettings)

	normalizer := normalize.New(normalize.Options{
		MinLength:    cfg.Normalize.MinLength,
		MaxLength:    cfg.Normalize.MaxLength,
		SpamKeywords: cfg.Normalize.SpamKeywords,
	}, logger)

	frontier, err := NewFrontier(
		composite,
		extractor.New(logger),
		paginate.New(logger),
		normalizer,
		robots,
		limiter,
		logger,
		FrontierOptions{
			MaxPages:   cfg.Crawl.MaxPages,
			MaxReviews: cfg.Crawl.MaxReviews,
		},
	)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:      cfg,
		registry: sites.NewRegistry(cfg.Sites),
		frontier: frontier,
		logger:   logger,
	}, nil
}

// Logger exposes the engine's configured logger for callers that want to
// report alongside it.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// Scrape crawls a single seed URL and returns its result. The error return
// covers seed resolution only; per-crawl failures travel in Result.Err.
func (e *Engine) Scrape(ctx context.Context, rawURL string) (Result, error) {
	profile, err := e.registry.Resolve(rawURL)
	if err != nil {
		return Result{}, err
	}
	seed, err := sites.ParseSeed(rawURL)
	if err != nil {
		return Result{}, err
	}
	return e.frontier.Scrape(ctx, profile, seed), nil
}

// Run crawls every configured seed and returns one result per seed, in seed
// order. A seed that fails to resolve yields a result carrying the
// resolution error; it does not abort the other seeds. Run returns an error
// only when the run as a whole could not proceed.
func (e *Engine) Run(ctx context.Context) ([]Result, error) {
	seeds := e.cfg.Crawl.Seeds
	if len(seeds) == 0 {
		return nil, fmt.Errorf("no seeds configured")
	}

	pool, err := NewWorkerPool(ctx, e.cfg.Worker.Concurrency, e.cfg.Worker.QueueSize)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	results := make([]Result, len(seeds))
	var wg sync.WaitGroup

	for i, raw := range seeds {
		profile, err := e.registry.Resolve(raw)
		if err != nil {
			results[i] = Result{SeedURL: raw, Outcome: OutcomeCompleted, Err: err}
			continue
		}
		seed, err := sites.ParseSeed(raw)
		if err != nil {
			results[i] = Result{SeedURL: raw, Outcome: OutcomeCompleted, Err: err}
			continue
		}

		idx := i
		wg.Add(1)
		if err := pool.Submit(ctx, func(workerCtx context.Context) {
			defer wg.Done()
			results[idx] = e.frontier.Scrape(workerCtx, profile, seed)
		}); err != nil {
			wg.Done()
			results[idx] = Result{SeedURL: raw, Domain: profile.Domain, Outcome: OutcomeCancelled, Err: err}
			e.logger.Error("seed submit failed", "url", raw, "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		e.logger.Warn("context cancelled, waiting for in-flight crawls")
		<-done
		return results, ctx.Err()
	case <-done:
		return results, nil
	}
}

func buildLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unsupported log level %q", cfg.Level)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Structured {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler), nil
}
