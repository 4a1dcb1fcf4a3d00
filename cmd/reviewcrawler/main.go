package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"reviewcrawler/internal/config"
	"reviewcrawler/internal/crawler"
	"reviewcrawler/internal/sink"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "Path to crawler configuration file")
	seeds := flag.String("seeds", "", "Comma-separated seed URLs (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *seeds != "" {
		cfg.Crawl.Seeds = splitSeeds(*seeds)
	}

	engine, err := crawler.NewEngine(*cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise engine: %v\n", err)
		os.Exit(1)
	}

	out, err := sink.New(cfg.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open output: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	results, err := engine.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "crawler stopped with error: %v\n", err)
		os.Exit(1)
	}

	logger := engine.Logger()
	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
			logger.Error("seed failed",
				"seed", result.SeedURL,
				"pages", result.PagesFetched,
				"reviews", len(result.Reviews),
				"error", result.Err)
		} else {
			logger.Info("seed finished",
				"seed", result.SeedURL,
				"domain", result.Domain,
				"pages", result.PagesFetched,
				"reviews", len(result.Reviews),
				"outcome", string(result.Outcome))
		}
		if len(result.Reviews) == 0 {
			continue
		}
		if werr := out.Write(context.Background(), result.Reviews); werr != nil {
			fmt.Fprintf(os.Stderr, "failed to write reviews: %v\n", werr)
			os.Exit(1)
		}
	}

	if failed == len(results) {
		os.Exit(1)
	}
}

func splitSeeds(raw string) []string {
	parts := strings.Split(raw, ",")
	seeds := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			seeds = append(seeds, trimmed)
		}
	}
	return seeds
}
