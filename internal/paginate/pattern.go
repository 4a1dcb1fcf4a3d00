package paginate

import (
	"net/url"
	"regexp"
	"strconv"
)

// Kind classifies how a site addresses its pages.
type Kind string

const (
	KindNone  Kind = "none"
	KindQuery Kind = "query-parameter"
	KindPath  Kind = "path-segment"
)

// pageParams is the ordered list of query parameter names recognized as page
// numbers. Order matters: the first present numeric parameter wins.
var pageParams = []string{"page", "p", "pg", "pagenum", "page_no"}

var pathSegRe = regexp.MustCompile(`(?i)/pages?/(\d+)`)

// Pattern is an inferred page addressing scheme for one URL. Derived fresh
// per page, never persisted across crawls.
type Pattern struct {
	Kind    Kind
	Param   string
	Current int
	Base    *url.URL

	pathPrefix string
	pathSuffix string
}

// Detect infers an existing pagination pattern from the URL itself: a known
// page query parameter first, then a /page/<n> path segment. It reports
// false when the URL carries no page indicator.
func Detect(u *url.URL) (Pattern, bool) {
	if u == nil {
		return Pattern{Kind: KindNone}, false
	}

	query := u.Query()
	for _, name := range pageParams {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			continue
		}
		base := cloneURL(u)
		bq := base.Query()
		bq.Del(name)
		base.RawQuery = bq.Encode()
		return Pattern{Kind: KindQuery, Param: name, Current: n, Base: base}, true
	}

	if m := pathSegRe.FindStringSubmatchIndex(u.Path); m != nil {
		numStart, numEnd := m[2], m[3]
		n, err := strconv.Atoi(u.Path[numStart:numEnd])
		if err == nil && n >= 1 {
			base := cloneURL(u)
			base.Path = u.Path[:numStart] + u.Path[numEnd:]
			return Pattern{
				Kind:       KindPath,
				Current:    n,
				Base:       base,
				pathPrefix: u.Path[:numStart],
				pathSuffix: u.Path[numEnd:],
			}, true
		}
	}

	return Pattern{Kind: KindNone}, false
}

// Next constructs the URL of the following page, preserving every other
// query parameter.
func (p Pattern) Next() *url.URL {
	next := cloneURL(p.Base)
	switch p.Kind {
	case KindQuery:
		q := next.Query()
		q.Set(p.Param, strconv.Itoa(p.Current+1))
		next.RawQuery = q.Encode()
	case KindPath:
		next.Path = p.pathPrefix + strconv.Itoa(p.Current+1) + p.pathSuffix
	default:
		return nil
	}
	return next
}

// GuessSecondPage assumes the URL represents page 1 and synthesizes a page-2
// address with the default page parameter. The result is a heuristic guess:
// a fetch failure on it is expected and non-fatal.
func GuessSecondPage(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	guess := cloneURL(u)
	q := guess.Query()
	q.Set("page", "2")
	guess.RawQuery = q.Encode()
	return guess
}

func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}
