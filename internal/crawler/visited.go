package crawler

import (
	"net/url"
	"strings"
	"sync"
)

// VisitedSet records URLs already claimed by a crawl. It never shrinks
// during a crawl: a URL is marked exactly once, at the moment it is claimed,
// which is what guarantees termination even when pagination produces cycles.
type VisitedSet struct {
	mu      sync.RWMutex
	entries map[string]struct{}
}

// NewVisitedSet initialises an empty set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{entries: make(map[string]struct{})}
}

// Claim marks the URL as visited and reports whether this call was the
// first to do so.
func (v *VisitedSet) Claim(u *url.URL) bool {
	key := canonicalKey(u)
	if key == "" {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, seen := v.entries[key]; seen {
		return false
	}
	v.entries[key] = struct{}{}
	return true
}

// Contains reports whether the URL has already been claimed.
func (v *VisitedSet) Contains(u *url.URL) bool {
	key := canonicalKey(u)
	if key == "" {
		return true
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, seen := v.entries[key]
	return seen
}

// Len returns the number of claimed URLs.
func (v *VisitedSet) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}

// canonicalKey normalizes scheme, host, default ports, and empty paths so
// trivially different spellings of one address dedupe together.
func canonicalKey(u *url.URL) string {
	if u == nil {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		scheme = "http"
	}
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && port != defaultPortForScheme(scheme) {
		host = host + ":" + port
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	key := scheme + "://" + host + path
	if q := u.RawQuery; q != "" {
		key += "?" + q
	}
	return key
}

func defaultPortForScheme(scheme string) string {
	switch scheme {
	case "http":
		return "80"
	case "https":
		return "443"
	default:
		return ""
	}
}
