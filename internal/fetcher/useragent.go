package fetcher

import (
	"math/rand/v2"
	"strings"

	browser "github.com/EDDYCJY/fake-useragent"
)

// fallbackAgents covers the case where the fake-useragent cache is cold and
// returns nothing.
var fallbackAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

// selectUserAgent returns the configured user agent if set, otherwise a
// random browser-like one.
func selectUserAgent(configured string) string {
	if strings.TrimSpace(configured) != "" {
		return configured
	}
	if ua := browser.Random(); ua != "" {
		return ua
	}
	return fallbackAgents[rand.IntN(len(fallbackAgents))]
}
