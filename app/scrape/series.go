package scrape

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jkaae/kinogram/app/config"
	"github.com/jkaae/kinogram/app/fetcher"
)

// Registry resolves series membership and metadata. It is built once per
// run: the series index is crawled up front, and items discovered through
// other listings can still be bound afterwards through the series link on
// their own page.
type Registry struct {
	session *fetcher.Session
	profile *config.Profile
	crawler *Crawler

	baseURL    string
	membership map[string]string        // item URL -> series name
	meta       map[string]SeriesDetail  // series name -> metadata
	byURL      map[string]*SeriesDetail // series URL -> resolved metadata, cached
}

func NewRegistry(session *fetcher.Session, profile *config.Profile, baseURL string, maxPages int) *Registry {
	return &Registry{
		session:    session,
		profile:    profile,
		crawler:    NewCrawler(session, profile, maxPages),
		baseURL:    baseURL,
		membership: make(map[string]string),
		meta:       make(map[string]SeriesDetail),
		byURL:      make(map[string]*SeriesDetail),
	}
}

// Build crawls the series index and, for each series page, its member
// listing. A failing index degrades to an empty registry; the run goes on
// with every item unbound.
func (r *Registry) Build(ctx context.Context) {
	indexURL := ListingURL(r.baseURL, r.profile.Listings.SeriesIndex)

	seriesSet, err := r.crawler.EnumerateSeries(ctx, indexURL)
	if err != nil {
		slog.Warn("Series index crawl failed, continuing without series", "url", indexURL, "error", err)
		return
	}
	seriesURLs := make([]string, 0, len(seriesSet))
	for seriesURL := range seriesSet {
		seriesURLs = append(seriesURLs, seriesURL)
	}
	sort.Strings(seriesURLs)

	for _, seriesURL := range seriesURLs {
		if ctx.Err() != nil {
			return
		}
		detail := r.resolveSeries(ctx, seriesURL)
		if detail == nil {
			continue
		}

		members, err := r.crawler.EnumerateItems(ctx, seriesURL, "")
		if err != nil {
			slog.Warn("Series member crawl failed", "series", detail.Name, "error", err)
			continue
		}
		for member := range members {
			if _, bound := r.membership[member]; !bound {
				r.membership[member] = detail.Name
			}
		}
		slog.Debug("Series resolved", "name", detail.Name, "members", len(members))
	}
}

// ResolveFallback binds an item that no series listing claimed, using the
// series link found on the item's own page. The series page must be
// reachable: when it is not, the item stays unbound and lands in the
// standalone bucket.
func (r *Registry) ResolveFallback(ctx context.Context, itemURL string, detail *ItemDetail) string {
	if name, ok := r.membership[itemURL]; ok {
		return name
	}
	if detail == nil || detail.SeriesURL == "" {
		return ""
	}

	series := r.resolveSeries(ctx, detail.SeriesURL)
	if series == nil {
		return ""
	}

	name := series.Name
	if detail.SeriesName != "" {
		// The link text on the item page is the display name the site uses
		name = detail.SeriesName
		r.adoptName(detail.SeriesURL, name)
	}
	r.membership[itemURL] = name
	return name
}

// SeriesFor returns the bound series name for an item URL, or "".
func (r *Registry) SeriesFor(itemURL string) string {
	return r.membership[itemURL]
}

// Meta returns the stored metadata for a series name.
func (r *Registry) Meta(name string) (SeriesDetail, bool) {
	detail, ok := r.meta[name]
	return detail, ok
}

// MemberURLs returns every item URL any series page claimed.
func (r *Registry) MemberURLs() []string {
	urls := make([]string, 0, len(r.membership))
	for itemURL := range r.membership {
		urls = append(urls, itemURL)
	}
	return urls
}

// resolveSeries fetches a series page once and extracts name, intro and
// banner. Results, including misses, are cached per URL for the run.
func (r *Registry) resolveSeries(ctx context.Context, seriesURL string) *SeriesDetail {
	if cached, ok := r.byURL[seriesURL]; ok {
		return cached
	}

	data, err := r.session.Get(ctx, seriesURL)
	if err != nil {
		slog.Warn("Series page fetch failed", "url", seriesURL, "error", err)
		r.byURL[seriesURL] = nil
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		r.byURL[seriesURL] = nil
		return nil
	}

	detail := &SeriesDetail{
		URL:    seriesURL,
		Name:   r.seriesName(doc, seriesURL),
		Intro:  r.seriesIntro(doc),
		Banner: r.seriesBanner(doc, seriesURL),
	}

	r.byURL[seriesURL] = detail
	r.meta[detail.Name] = *detail
	return detail
}

func (r *Registry) seriesName(doc *goquery.Document, seriesURL string) string {
	if content, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if trimmed := strings.TrimSpace(content); trimmed != "" && !r.isBrand(trimmed) {
			return trimmed
		}
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" && !r.isBrand(h1) {
		return h1
	}
	return titleFromSlug(seriesURL)
}

// seriesIntro takes the first body paragraphs, truncated to the configured
// word budget.
func (r *Registry) seriesIntro(doc *goquery.Document) string {
	var text string
	for _, selector := range r.profile.Selectors.Body {
		sel := doc.Find(selector).First()
		if sel.Length() > 0 {
			text = textLines(sel)
			break
		}
	}
	if text == "" {
		text = textLines(doc.Find("article p"))
	}

	words := strings.Fields(strings.ReplaceAll(text, "\n", " "))
	limit := r.profile.Limits.IntroWords
	if limit > 0 && len(words) > limit {
		words = append(words[:limit], "…")
	}
	return strings.Join(words, " ")
}

func (r *Registry) seriesBanner(doc *goquery.Document, seriesURL string) string {
	for _, selector := range r.profile.Selectors.Image {
		if src, ok := doc.Find(selector).First().Attr("src"); ok && src != "" {
			return r.resolve(seriesURL, src)
		}
	}
	return ""
}

// adoptName re-keys cached metadata when the item page's link text differs
// from the name scraped off the series page. Members already bound under
// the old name follow along, so the series stays a single bucket.
func (r *Registry) adoptName(seriesURL, name string) {
	cached, ok := r.byURL[seriesURL]
	if !ok || cached == nil || cached.Name == name {
		return
	}
	old := cached.Name
	delete(r.meta, old)
	cached.Name = name
	r.meta[name] = *cached
	for itemURL, bound := range r.membership {
		if bound == old {
			r.membership[itemURL] = name
		}
	}
}

func (r *Registry) isBrand(candidate string) bool {
	for _, brand := range r.profile.Text.BrandNames {
		if strings.EqualFold(candidate, brand) {
			return true
		}
	}
	return false
}

func (r *Registry) resolve(pageURL, href string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
