package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"reviewcrawler/pkg/types"
)

// Fetcher retrieves a web page for the crawler.
type Fetcher interface {
	Fetch(ctx context.Context, req types.FetchRequest) (*types.RawPage, error)
}

// FailureReason classifies why a fetch could not produce a page.
type FailureReason string

const (
	ReasonTimeout   FailureReason = "timeout"
	ReasonHTTPError FailureReason = "http_error"
	ReasonNetwork   FailureReason = "network_error"
	ReasonRender    FailureReason = "render_error"
)

// FetchError is a non-fatal page retrieval failure. The frontier treats it
// as "skip this URL".
type FetchError struct {
	URL    string
	Reason FailureReason
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Reason, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Options controls HTTP fetching behaviour.
type Options struct {
	UserAgent    string
	Headers      map[string]string
	Timeout      time.Duration
	MaxBodyBytes int64
	ProxyURL     string
	JitterMin    time.Duration
	JitterMax    time.Duration
}

// HTTPFetcher implements Fetcher via the Go http.Client with browser-like
// headers and a randomized user agent per request.
type HTTPFetcher struct {
	client       *http.Client
	userAgent    string
	extraHeaders map[string]string
	maxBodyBytes int64
	jitterMin    time.Duration
	jitterMax    time.Duration
}

// NewHTTPFetcher constructs an HTTP fetcher using the provided options.
func NewHTTPFetcher(opts Options) (*HTTPFetcher, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 5 * 1024 * 1024 // 5MB cap
	}

	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if strings.TrimSpace(opts.ProxyURL) != "" {
		proxyURL, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	client := &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
	}

	headers := make(map[string]string, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &HTTPFetcher{
		client:       client,
		userAgent:    opts.UserAgent,
		extraHeaders: headers,
		maxBodyBytes: opts.MaxBodyBytes,
		jitterMin:    opts.JitterMin,
		jitterMax:    opts.JitterMax,
	}, nil
}

// Fetch downloads a single URL using HTTP. After a successful response it
// sleeps a randomized short delay so consecutive requests to the same site
// are spaced out.
func (f *HTTPFetcher) Fetch(ctx context.Context, req types.FetchRequest) (*types.RawPage, error) {
	if req.URL == nil {
		return nil, errors.New("request URL is nil")
	}
	target := req.URL.String()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("User-Agent", selectUserAgent(f.userAgent))
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")
	httpReq.Header.Set("Upgrade-Insecure-Requests", "1")
	httpReq.Header.Set("Sec-Fetch-Dest", "document")
	httpReq.Header.Set("Sec-Fetch-Mode", "navigate")
	httpReq.Header.Set("Cache-Control", "max-age=0")

	for k, v := range f.extraHeaders {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(target, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &FetchError{URL: target, Reason: ReasonHTTPError, Status: resp.StatusCode}
	}

	body, err := f.readBody(resp)
	if err != nil {
		return nil, &FetchError{URL: target, Reason: ReasonNetwork, Err: err}
	}

	var finalURL *url.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL
	} else {
		finalURL = req.URL
	}

	page := &types.RawPage{
		URL:             req.URL,
		FinalURL:        finalURL,
		Body:            body,
		ContentType:     resp.Header.Get("Content-Type"),
		StatusCode:      resp.StatusCode,
		FetchedAt:       time.Now(),
		Rendered:        false,
		ResponseLatency: time.Since(start),
	}

	f.politenessPause(ctx)

	return page, nil
}

func (f *HTTPFetcher) politenessPause(ctx context.Context) {
	if f.jitterMax <= 0 {
		return
	}
	pause := f.jitterMin
	if span := f.jitterMax - f.jitterMin; span > 0 {
		pause += time.Duration(rand.Int64N(int64(span)))
	}
	if pause <= 0 {
		return
	}
	timer := time.NewTimer(pause)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func classifyTransportError(target string, err error) *FetchError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{URL: target, Reason: ReasonTimeout, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{URL: target, Reason: ReasonTimeout, Err: err}
	}
	return &FetchError{URL: target, Reason: ReasonNetwork, Err: err}
}

func (f *HTTPFetcher) readBody(resp *http.Response) ([]byte, error) {
	if resp == nil || resp.Body == nil {
		return nil, errors.New("empty response body")
	}

	reader := io.Reader(resp.Body)
	closers := []io.Closer{resp.Body}

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		reader = gz
		closers = append(closers, gz)
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		reader = fl
		closers = append(closers, fl)
	}

	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	limited := io.LimitReader(reader, f.maxBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, fmt.Errorf("response body exceeds limit of %d bytes", f.maxBodyBytes)
	}
	return body, nil
}

// Client exposes the underlying HTTP client for reuse (eg. robots.txt fetches).
func (f *HTTPFetcher) Client() *http.Client {
	if f == nil {
		return nil
	}
	return f.client
}

// Renderer executes JavaScript and returns the materialized DOM.
type Renderer interface {
	Render(ctx context.Context, req types.FetchRequest) (*types.RawPage, error)
}

// Composite chooses between raw HTTP and a renderer per request. Renderer
// failures fall back to a plain HTTP fetch rather than losing the page.
type Composite struct {
	defaultFetcher Fetcher
	renderer       Renderer
}

// NewComposite builds a composite fetcher from HTTP and optional renderer components.
func NewComposite(httpFetcher Fetcher, renderer Renderer) *Composite {
	return &Composite{defaultFetcher: httpFetcher, renderer: renderer}
}

// Fetch delegates to either the renderer (if requested) or the HTTP fetcher.
func (c *Composite) Fetch(ctx context.Context, req types.FetchRequest) (*types.RawPage, error) {
	if req.Render && c.renderer != nil {
		page, err := c.renderer.Render(ctx, req)
		if err == nil {
			return page, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		slog.Warn("renderer failed, falling back to HTTP fetch", "url", req.URL.String(), "error", err)
	}
	if req.Render {
		req.Render = false
	}
	return c.defaultFetcher.Fetch(ctx, req)
}
