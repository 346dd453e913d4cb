package scrape

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jkaae/kinogram/app/config"
	"github.com/jkaae/kinogram/app/fetcher"
)

// Crawler walks paginated listing pages and enumerates candidate item URLs.
// Ordering is irrelevant to callers, so results come back as a set.
type Crawler struct {
	session  *fetcher.Session
	profile  *config.Profile
	maxPages int
}

func NewCrawler(session *fetcher.Session, profile *config.Profile, maxPages int) *Crawler {
	if maxPages <= 0 {
		maxPages = profile.Limits.MaxPages
	}
	return &Crawler{
		session:  session,
		profile:  profile,
		maxPages: maxPages,
	}
}

// EnumerateItems does a breadth-first walk from startURL, collecting every
// anchor that looks like an item detail page under allowedPrefix. Pagination
// links (?page=N on the same path, or the site's "next" label) are enqueued
// until the queue drains, a fetch fails, or the page ceiling is reached. A
// fetch failure ends the walk with whatever was gathered so far.
func (c *Crawler) EnumerateItems(ctx context.Context, startURL, allowedPrefix string) (map[string]struct{}, error) {
	return c.enumerate(ctx, startURL, func(href string) bool {
		return c.isItemHref(href, allowedPrefix)
	})
}

// EnumerateSeries walks the series index the same way, collecting series
// page URLs instead of item URLs.
func (c *Crawler) EnumerateSeries(ctx context.Context, startURL string) (map[string]struct{}, error) {
	return c.enumerate(ctx, startURL, func(href string) bool {
		return strings.Contains(hrefPath(href), c.profile.Listings.SeriesPattern)
	})
}

func (c *Crawler) enumerate(ctx context.Context, startURL string, match func(href string) bool) (map[string]struct{}, error) {
	items := make(map[string]struct{})
	visited := make(map[string]struct{})
	queue := []string{startURL}

	for len(queue) > 0 && len(visited) < c.maxPages {
		if err := ctx.Err(); err != nil {
			return items, err
		}

		pageURL := queue[0]
		queue = queue[1:]
		if _, seen := visited[pageURL]; seen {
			continue
		}
		visited[pageURL] = struct{}{}

		data, err := c.session.Get(ctx, pageURL)
		if err != nil {
			slog.Warn("Listing page fetch failed, ending crawl", "url", pageURL, "error", err)
			break
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
		if err != nil {
			slog.Warn("Listing page is not parseable HTML", "url", pageURL, "error", err)
			continue
		}

		found := 0
		doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
			href, _ := sel.Attr("href")
			if match(href) {
				items[c.resolve(pageURL, href)] = struct{}{}
				found++
				return
			}
			if next, ok := c.paginationHref(sel, href, pageURL); ok {
				if _, seen := visited[next]; !seen {
					queue = append(queue, next)
				}
			}
		})

		slog.Debug("Listing page crawled", "url", pageURL, "items", found, "queued", len(queue))
	}

	return items, nil
}

func (c *Crawler) isItemHref(href, allowedPrefix string) bool {
	path := hrefPath(href)
	if allowedPrefix != "" && !strings.HasPrefix(path, allowedPrefix) {
		return false
	}
	for _, noise := range c.profile.Listings.Excludes {
		if strings.Contains(path, noise) {
			return false
		}
	}
	for _, pattern := range c.profile.Listings.ItemPatterns {
		if strings.Contains(path, pattern) {
			return true
		}
	}
	return false
}

// paginationHref recognizes "next page" anchors: either an explicit ?page=N
// link on the listing's own path, or an anchor labelled with the site's
// next-page text.
func (c *Crawler) paginationHref(sel *goquery.Selection, href, pageURL string) (string, bool) {
	parsedPage, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}
	parsedHref, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	samePath := parsedHref.Path == "" || parsedHref.Path == parsedPage.Path
	hasPageParam := parsedHref.Query().Get("page") != ""

	if samePath && hasPageParam {
		return c.resolve(pageURL, href), true
	}

	label := strings.TrimSpace(sel.Text())
	if c.profile.Text.NextPage != "" && strings.EqualFold(label, c.profile.Text.NextPage) {
		return c.resolve(pageURL, href), true
	}

	return "", false
}

func (c *Crawler) resolve(pageURL, href string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	resolved := base.ResolveReference(ref)
	return resolved.String()
}

func hrefPath(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	return parsed.Path
}

// ListingURL joins the site base with a listing path from the profile.
func ListingURL(baseURL, listingPath string) string {
	return fmt.Sprintf("%s%s", strings.TrimRight(baseURL, "/"), listingPath)
}
