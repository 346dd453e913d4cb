package program

import (
	"context"
	"log/slog"
	"sort"

	"github.com/jkaae/kinogram/app/config"
	"github.com/jkaae/kinogram/app/fetcher"
	"github.com/jkaae/kinogram/app/scrape"
)

// Engine runs the full extraction and reconciliation pipeline. Engines are
// cheap and stateless between runs: every Run owns a fresh page cache and
// fresh registries, so concurrent callers simply use separate runs.
type Engine struct {
	client   *fetcher.Client
	profile  *config.Profile
	baseURL  string
	maxPages int
}

func NewEngine(client *fetcher.Client, profile *config.Profile, baseURL string, maxPages int) *Engine {
	return &Engine{
		client:   client,
		profile:  profile,
		baseURL:  baseURL,
		maxPages: maxPages,
	}
}

// Run produces the grouped program for the given window. Individual page
// failures are logged and skipped; the run only fails on invalid input or
// cancellation.
func (e *Engine) Run(ctx context.Context, w Window) (*Program, error) {
	session := fetcher.NewSession(e.client)
	registry := scrape.NewRegistry(session, e.profile, e.baseURL, e.maxPages)
	crawler := scrape.NewCrawler(session, e.profile, e.maxPages)
	extractor := scrape.NewExtractor(session, e.profile)

	registry.Build(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	urls := e.enumerate(ctx, crawler, registry)
	slog.Info("Item universe enumerated", "urls", len(urls), "pages", session.CachedPages())

	buckets := make(map[string]map[string]*Item) // series name -> canonical title -> item
	processed := 0

	for _, itemURL := range urls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		detail, err := extractor.Extract(ctx, itemURL, w.From)
		if err != nil || detail == nil {
			continue
		}

		screenings := e.qualifyScreenings(detail, w)
		if len(screenings) == 0 {
			slog.Debug("Item has no screenings in window, dropped", "url", itemURL)
			continue
		}

		seriesName := registry.SeriesFor(itemURL)
		if seriesName == "" {
			seriesName = registry.ResolveFallback(ctx, itemURL, detail)
		}

		e.merge(buckets, seriesName, detail, screenings)
		processed++
	}

	prog := e.assemble(buckets, registry)
	slog.Info("Program reconciled",
		"items_processed", processed,
		"series", len(prog.Series),
		"standalone", len(prog.Standalone))

	return prog, nil
}

// enumerate unions every discovery path: the film listing, the events
// listing and the series pages' member listings.
func (e *Engine) enumerate(ctx context.Context, crawler *scrape.Crawler, registry *scrape.Registry) []string {
	universe := make(map[string]struct{})

	listings := []string{e.profile.Listings.Films, e.profile.Listings.Events}
	for _, listing := range listings {
		if listing == "" || ctx.Err() != nil {
			continue
		}
		startURL := scrape.ListingURL(e.baseURL, listing)
		found, err := crawler.EnumerateItems(ctx, startURL, listing)
		if err != nil {
			slog.Warn("Listing crawl aborted", "listing", listing, "error", err)
			continue
		}
		for u := range found {
			universe[u] = struct{}{}
		}
	}

	for _, u := range registry.MemberURLs() {
		universe[u] = struct{}{}
	}

	urls := make([]string, 0, len(universe))
	for u := range universe {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// screeningKey identifies a screening for dedup purposes. HasClock keeps a
// date-only screening distinct from a timed midnight one on the same day.
type screeningKey struct {
	at    int64
	clock bool
}

func keyFor(s scrape.Showtime) screeningKey {
	return screeningKey{at: s.At.Unix(), clock: s.HasClock}
}

// qualifyScreenings filters a detail's showings to the window and dedups
// them by timestamp.
func (e *Engine) qualifyScreenings(detail *scrape.ItemDetail, w Window) []Screening {
	seen := make(map[screeningKey]struct{})
	var screenings []Screening

	for _, showing := range detail.Showings {
		if !w.Contains(showing.Showtime) {
			continue
		}
		key := keyFor(showing.Showtime)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		status := StatusAvailable
		if showing.SoldOut {
			status = StatusSoldOut
		}
		screenings = append(screenings, Screening{
			Showtime:  showing.Showtime,
			TicketURL: showing.TicketURL,
			Status:    status,
		})
	}

	return screenings
}

// merge folds a discovery into its series bucket. The canonical title is
// the merge key; a record already present keeps its first-seen title and
// populated fields, gains any field it lacked and the union of screenings.
func (e *Engine) merge(buckets map[string]map[string]*Item, seriesName string, detail *scrape.ItemDetail, screenings []Screening) {
	bucket, ok := buckets[seriesName]
	if !ok {
		bucket = make(map[string]*Item)
		buckets[seriesName] = bucket
	}

	canonical := Canonicalize(detail.Title)
	existing, ok := bucket[canonical]
	if !ok {
		bucket[canonical] = &Item{
			Title:          detail.Title,
			CanonicalTitle: canonical,
			URL:            detail.URL,
			Image:          detail.Image,
			Synopsis:       detail.Synopsis,
			Credits:        detail.Credits,
			SeriesName:     seriesName,
			IsEvent:        detail.IsEvent,
			Screenings:     screenings,
		}
		return
	}

	if existing.Image == "" {
		existing.Image = detail.Image
	}
	if existing.Synopsis == "" {
		existing.Synopsis = detail.Synopsis
	}
	if existing.Credits == "" {
		existing.Credits = detail.Credits
	}
	existing.IsEvent = existing.IsEvent || detail.IsEvent

	have := make(map[screeningKey]struct{}, len(existing.Screenings))
	for _, s := range existing.Screenings {
		have[keyFor(s.Showtime)] = struct{}{}
	}
	for _, s := range screenings {
		if _, dup := have[keyFor(s.Showtime)]; dup {
			continue
		}
		existing.Screenings = append(existing.Screenings, s)
	}
}

// assemble sorts everything: screenings ascending within items, items by
// first screening within their group, series by their first item with a
// name tie-break.
func (e *Engine) assemble(buckets map[string]map[string]*Item, registry *scrape.Registry) *Program {
	prog := &Program{
		Series:     []*Series{},
		Standalone: []*Item{},
	}

	for seriesName, bucket := range buckets {
		items := make([]*Item, 0, len(bucket))
		for _, item := range bucket {
			sort.Slice(item.Screenings, func(a, b int) bool {
				return item.Screenings[a].Showtime.Before(item.Screenings[b].Showtime)
			})
			if len(item.Screenings) == 0 {
				continue
			}
			items = append(items, item)
		}
		if len(items) == 0 {
			continue
		}

		sort.Slice(items, func(a, b int) bool {
			return items[a].FirstScreening().Before(items[b].FirstScreening())
		})

		if seriesName == "" {
			prog.Standalone = items
			continue
		}

		series := &Series{
			Name:  seriesName,
			Items: items,
		}
		if meta, ok := registry.Meta(seriesName); ok {
			series.Intro = meta.Intro
			series.Banner = meta.Banner
		}
		prog.Series = append(prog.Series, series)
	}

	sort.Slice(prog.Series, func(a, b int) bool {
		sa, sb := prog.Series[a], prog.Series[b]
		fa, fb := sa.Items[0].FirstScreening(), sb.Items[0].FirstScreening()
		if fa.At.Equal(fb.At) && fa.HasClock == fb.HasClock {
			return sa.Name < sb.Name
		}
		return fa.Before(fb)
	})

	return prog
}
