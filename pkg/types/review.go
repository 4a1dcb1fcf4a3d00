package types

import (
	"net/url"
	"time"
)

// FetchRequest models a single page retrieval submitted to a fetcher.
type FetchRequest struct {
	URL    *url.URL
	Render bool
}

// RawPage represents one fetched document. It is owned by the fetcher and
// consumed immediately by extraction and pagination, then discarded.
type RawPage struct {
	URL             *url.URL
	FinalURL        *url.URL
	Body            []byte
	ContentType     string
	StatusCode      int
	FetchedAt       time.Time
	Rendered        bool
	ResponseLatency time.Duration
}

// CandidateReview is extraction output before validation. Fields other than
// Text are best-effort and may be empty.
type CandidateReview struct {
	Text      string
	Rating    float64
	HasRating bool
	Reviewer  string
	Date      string
	SourceTag string
}

// Review is a validated, cleaned, deduplicated record. Immutable once
// emitted; owned by the caller.
type Review struct {
	Text         string    `json:"text"`
	Rating       float64   `json:"rating,omitempty"`
	HasRating    bool      `json:"has_rating"`
	Reviewer     string    `json:"reviewer,omitempty"`
	Date         string    `json:"date,omitempty"`
	SourceTag    string    `json:"source_tag"`
	SourceURL    string    `json:"source_url"`
	SourceDomain string    `json:"source_domain"`
	ScrapedAt    time.Time `json:"scraped_at"`
}
