package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrFetch wraps every transport-level failure so callers can treat "page
// could not be fetched" uniformly, regardless of the underlying cause.
var ErrFetch = errors.New("page fetch failed")

type Client struct {
	resty *resty.Client
	delay time.Duration
}

type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Delay     time.Duration
	Retries   int
}

// NewClient builds the shared HTTP client. The source site throttles obvious
// bots, so the client presents browser-like headers and keeps redirects
// within the site's own domain.
func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	// Retries defaults to 2; pass a negative value to disable
	retries := opts.Retries
	if retries == 0 {
		retries = 2
	} else if retries < 0 {
		retries = 0
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	client.SetTimeout(opts.Timeout)
	client.SetRetryCount(retries)
	client.SetRetryWaitTime(500 * time.Millisecond)
	client.SetRetryMaxWaitTime(2 * time.Second)
	// The source answers bursts with 5xx; those are worth a second attempt
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() >= 500
	})
	client.SetHeader("User-Agent", opts.UserAgent)
	client.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	client.SetHeader("Accept-Language", "da-DK,da;q=0.9,en-US;q=0.8,en;q=0.7")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(base.Hostname()))

	return &Client{
		resty: client,
		delay: opts.Delay,
	}, nil
}

// ResolveURL makes a possibly relative href absolute against the client's
// base URL. An unparsable href is returned unchanged.
func (c *Client) ResolveURL(href string) string {
	base, err := url.Parse(c.resty.BaseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// Session is the per-run page cache. Each pipeline run owns exactly one
// Session; the same URL discovered via multiple listing paths is fetched
// once. Sessions are not safe for concurrent use, matching the pipeline's
// strictly sequential fetch model.
type Session struct {
	client    *Client
	pages     map[string][]byte
	lastFetch time.Time
}

func NewSession(client *Client) *Session {
	return &Session{
		client: client,
		pages:  make(map[string][]byte),
	}
}

// Get returns the raw document at url, serving repeats from the run cache.
// Network fetches are spaced by the configured courtesy delay; cache hits
// skip both the network and the delay.
func (s *Session) Get(ctx context.Context, pageURL string) ([]byte, error) {
	if data, ok := s.pages[pageURL]; ok {
		slog.Debug("Page served from run cache", "url", pageURL)
		return data, nil
	}

	if err := s.throttle(ctx); err != nil {
		return nil, err
	}

	res, err := s.client.resty.R().
		SetContext(ctx).
		Get(pageURL)
	s.lastFetch = time.Now()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, pageURL, err)
	}
	if res.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: %s: status %d", ErrFetch, pageURL, res.StatusCode())
	}

	data := res.Body()
	s.pages[pageURL] = data
	slog.Debug("Page fetched", "url", pageURL, "bytes", len(data))

	return data, nil
}

// CachedPages reports how many distinct pages this run has fetched.
func (s *Session) CachedPages() int {
	return len(s.pages)
}

func (s *Session) throttle(ctx context.Context) error {
	if s.client.delay <= 0 || s.lastFetch.IsZero() {
		return nil
	}
	wait := s.client.delay - time.Since(s.lastFetch)
	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
