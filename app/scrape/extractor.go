package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/jkaae/kinogram/app/config"
	"github.com/jkaae/kinogram/app/fetcher"
)

// Extractor turns one film/event page into an ItemDetail. Showings gate
// everything else: a page with no showings yields nil without any metadata
// work, since such an item can never reach the output.
type Extractor struct {
	session   *fetcher.Session
	profile   *config.Profile
	segmenter *Segmenter
}

func NewExtractor(session *fetcher.Session, profile *config.Profile) *Extractor {
	return &Extractor{
		session:   session,
		profile:   profile,
		segmenter: NewSegmenter(profile.Text.CreditMarkers, profile.Text.Blacklist),
	}
}

// Extract fetches and parses the page at itemURL. ref anchors the year
// resolution of parsed dates. A fetch failure or a page without showings
// returns (nil, nil): the caller skips the item, nothing aborts.
func (e *Extractor) Extract(ctx context.Context, itemURL string, ref time.Time) (*ItemDetail, error) {
	data, err := e.session.Get(ctx, itemURL)
	if err != nil {
		slog.Warn("Item page fetch failed, skipping", "url", itemURL, "error", err)
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		slog.Warn("Item page is not parseable HTML, skipping", "url", itemURL, "error", err)
		return nil, nil
	}

	showings := e.extractShowings(doc, itemURL, ref)
	if len(showings) == 0 {
		slog.Debug("Item has no showings, skipping metadata extraction", "url", itemURL)
		return nil, nil
	}

	detail := &ItemDetail{
		URL:      itemURL,
		Title:    e.extractTitle(doc, itemURL),
		Image:    e.extractImage(doc, itemURL),
		Showings: showings,
		IsEvent:  e.isEvent(doc, itemURL),
	}

	body := e.extractBodyText(doc, data)
	detail.Synopsis, detail.Credits = e.segmenter.Run(body)

	detail.SeriesName, detail.SeriesURL = e.extractSeriesLink(doc, itemURL)

	return detail, nil
}

// extractShowings reads the dedicated ticket-listing rows. Rows lacking a
// date or time fragment are skipped; a fragment that fails to parse costs
// only that one candidate.
func (e *Extractor) extractShowings(doc *goquery.Document, itemURL string, ref time.Time) []Showing {
	var showings []Showing

	doc.Find(e.profile.Selectors.ShowingRow).Each(func(_ int, row *goquery.Selection) {
		dateFrag := strings.TrimSpace(row.Find(e.profile.Selectors.ShowingDate).First().Text())
		timeFrag := strings.TrimSpace(row.Find(e.profile.Selectors.ShowingTime).First().Text())
		if dateFrag == "" || timeFrag == "" {
			return
		}

		showtime, err := ParseShowtime(dateFrag, timeFrag, ref)
		if err != nil {
			slog.Debug("Discarding showing with unparseable fragments",
				"url", itemURL, "date", dateFrag, "time", timeFrag, "error", err)
			return
		}

		ticketURL := "#"
		if href, ok := row.Find(e.profile.Selectors.ShowingTicket).First().Attr("href"); ok && href != "" {
			ticketURL = e.resolve(itemURL, href)
		}

		soldOut := strings.Contains(strings.ToLower(row.Text()), e.profile.Text.SoldOut)

		showings = append(showings, Showing{
			Showtime:  showtime,
			TicketURL: ticketURL,
			SoldOut:   soldOut,
		})
	})

	return showings
}

// extractTitle applies the title strategies in priority order and takes the
// first candidate that is non-empty and not the site's own brand name.
func (e *Extractor) extractTitle(doc *goquery.Document, itemURL string) string {
	strategies := []func() string{
		func() string {
			content, _ := doc.Find(`meta[property="og:title"]`).First().Attr("content")
			return content
		},
		func() string { return e.structuredDataTitle(doc) },
		func() string { return doc.Find("h1").First().Text() },
		func() string { return doc.Find("title").First().Text() },
		func() string { return titleFromSlug(itemURL) },
	}

	for _, strategy := range strategies {
		candidate := strings.TrimSpace(strategy())
		if candidate == "" || e.isBrandName(candidate) {
			continue
		}
		return candidate
	}
	return ""
}

func (e *Extractor) structuredDataTitle(doc *goquery.Document) string {
	var title string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var payload struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal([]byte(sel.Text()), &payload); err != nil {
			return true
		}
		if payload.Name != "" {
			title = payload.Name
			return false
		}
		return true
	})
	return title
}

func (e *Extractor) isBrandName(candidate string) bool {
	for _, brand := range e.profile.Text.BrandNames {
		if strings.EqualFold(candidate, brand) {
			return true
		}
	}
	return false
}

// titleFromSlug derives a last-resort title from the URL path.
func titleFromSlug(itemURL string) string {
	parsed, err := url.Parse(itemURL)
	if err != nil {
		return ""
	}
	slug := parsed.Path
	if idx := strings.LastIndex(slug, "/"); idx >= 0 {
		slug = slug[idx+1:]
	}
	words := strings.Split(strings.ReplaceAll(slug, "-", " "), " ")
	for i, word := range words {
		if word != "" {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

func (e *Extractor) extractImage(doc *goquery.Document, itemURL string) string {
	for _, selector := range e.profile.Selectors.Image {
		if src, ok := doc.Find(selector).First().Attr("src"); ok && src != "" {
			return e.resolve(itemURL, src)
		}
	}
	return ""
}

// extractBodyText pulls the item's body block via the designated selectors,
// falling back to readability extraction when the markup has moved.
func (e *Extractor) extractBodyText(doc *goquery.Document, raw []byte) string {
	for _, selector := range e.profile.Selectors.Body {
		sel := doc.Find(selector).First()
		if sel.Length() > 0 {
			if text := textLines(sel); text != "" {
				return text
			}
		}
	}

	article, err := readability.FromReader(bytes.NewReader(raw), nil)
	if err != nil || article.Content == "" {
		return ""
	}
	fragment, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return ""
	}
	return textLines(fragment.Selection)
}

func (e *Extractor) extractSeriesLink(doc *goquery.Document, itemURL string) (string, string) {
	link := doc.Find(e.profile.Selectors.SeriesLink).First()
	if link.Length() > 0 {
		if href, ok := link.Attr("href"); ok {
			return strings.TrimSpace(link.Text()), e.resolve(itemURL, href)
		}
	}

	// Secondary pattern: a "Film i serien" heading whose section carries a
	// "Se alle" anchor pointing at the series page.
	var name, seriesURL string
	doc.Find("h2, h3").EachWithBreak(func(_ int, heading *goquery.Selection) bool {
		if !strings.Contains(heading.Text(), "Film i serien") {
			return true
		}
		name = strings.TrimSpace(strings.TrimPrefix(
			strings.TrimSpace(heading.Text()), "Film i serien"))
		name = strings.TrimLeft(name, "–- ")
		heading.Parent().Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			if strings.Contains(a.Text(), "Se alle") {
				href, _ := a.Attr("href")
				seriesURL = e.resolve(itemURL, href)
				return false
			}
			return true
		})
		return false
	})

	if seriesURL == "" {
		return "", ""
	}
	return name, seriesURL
}

// eventTokenPattern matches "event" as a standalone word only, so Danish
// words containing it ("eventyr") do not flag a screening as an event.
var eventTokenPattern = regexp.MustCompile(`(?i)\bevent\b`)

func (e *Extractor) isEvent(doc *goquery.Document, itemURL string) bool {
	if pattern := e.profile.Listings.EventPattern; pattern != "" && strings.Contains(itemURL, pattern) {
		return true
	}
	event := false
	doc.Find(e.profile.Selectors.ShowingRow).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if eventTokenPattern.MatchString(row.Text()) {
			event = true
			return false
		}
		return true
	})
	return event
}

func (e *Extractor) resolve(pageURL, href string) string {
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

// textLines flattens a selection into one logical text block, one line per
// text node, the way the body selectors expect it for segmentation.
func textLines(sel *goquery.Selection) string {
	var lines []string
	for _, node := range sel.Nodes {
		collectTextLines(node, &lines)
	}
	return strings.Join(lines, "\n")
}

func collectTextLines(node *html.Node, lines *[]string) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		if text := strings.TrimSpace(node.Data); text != "" {
			*lines = append(*lines, text)
		}
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectTextLines(child, lines)
	}
}
