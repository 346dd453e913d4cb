package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jkaae/kinogram/app/config"
)

var testRef = time.Date(2025, time.November, 20, 12, 0, 0, 0, time.UTC)

const filmPage = `<html>
<head>
  <title>Cinemateket</title>
  <meta property="og:title" content="Cykeltyven">
</head>
<body>
<article>
  <h1>Cykeltyven</h1>
  <div class="media-element-container"><img src="/images/cykeltyven.jpg"></div>
  <div class="field-name-body"><div class="field-item">
    <p>En ung mand får stjålet den cykel, der er hans levebrød.</p>
    <p>Læs mere</p>
    <p>Instruktør: Vittorio De Sica</p>
    <p>Italien, 1948 / 89 min.</p>
  </div></div>
  <div class="field-name-field-cinemateket-series"><a href="/cinemateket/biograf/alle-serier/serie/neorealisme">Neorealisme</a></div>
  <ul>
    <li class="ct-cinema-movie-showings__list-item">
      <span class="ct-cinema-movie-showings__date">Lør 13. dec</span>
      <span class="ct-cinema-movie-showings__time">14.15</span>
      <a class="btn" href="https://www.ebillet.dk/koeb/1">Bestil billet</a>
    </li>
    <li class="ct-cinema-movie-showings__list-item">
      <span class="ct-cinema-movie-showings__date">Søn 21. dec</span>
      <span class="ct-cinema-movie-showings__time">16:00</span>
      <a class="btn" href="/koeb/2">Bestil billet</a>
      <span>Udsolgt</span>
    </li>
    <li class="ct-cinema-movie-showings__list-item">
      <span class="ct-cinema-movie-showings__date">Man 22. dec</span>
    </li>
  </ul>
</article>
</body></html>`

func serveFilmPage(t *testing.T, body string) (*Extractor, string, func()) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	extractor := NewExtractor(newTestSession(t, server.URL), config.Default())
	return extractor, server.URL + "/cinemateket/biograf/alle-film/film/cykeltyven", server.Close
}

func TestExtractFilmPage(t *testing.T) {
	extractor, itemURL, done := serveFilmPage(t, filmPage)
	defer done()

	detail, err := extractor.Extract(context.Background(), itemURL, testRef)
	if err != nil {
		t.Fatal(err)
	}
	if detail == nil {
		t.Fatal("Expected detail, got nil")
	}

	if detail.Title != "Cykeltyven" {
		t.Errorf("Expected title 'Cykeltyven', got '%s'", detail.Title)
	}
	if !strings.HasSuffix(detail.Image, "/images/cykeltyven.jpg") {
		t.Errorf("Expected resolved image URL, got '%s'", detail.Image)
	}
	if !strings.Contains(detail.Synopsis, "stjålet den cykel") {
		t.Errorf("Expected synopsis text, got '%s'", detail.Synopsis)
	}
	if strings.Contains(detail.Synopsis, "Læs mere") {
		t.Errorf("Boilerplate must not survive into synopsis: '%s'", detail.Synopsis)
	}
	if !strings.Contains(detail.Credits, "Instruktør: Vittorio De Sica") {
		t.Errorf("Expected credits, got '%s'", detail.Credits)
	}
	if detail.SeriesName != "Neorealisme" {
		t.Errorf("Expected series name 'Neorealisme', got '%s'", detail.SeriesName)
	}
	if !strings.Contains(detail.SeriesURL, "/serie/neorealisme") {
		t.Errorf("Expected series URL, got '%s'", detail.SeriesURL)
	}
	if detail.IsEvent {
		t.Error("Plain film page must not be flagged as event")
	}
}

func TestExtractShowings(t *testing.T) {
	extractor, itemURL, done := serveFilmPage(t, filmPage)
	defer done()

	detail, err := extractor.Extract(context.Background(), itemURL, testRef)
	if err != nil {
		t.Fatal(err)
	}

	// The third row lacks a time fragment and is skipped
	if len(detail.Showings) != 2 {
		t.Fatalf("Expected 2 showings, got %d", len(detail.Showings))
	}

	first := detail.Showings[0]
	expectedFirst := time.Date(2025, 12, 13, 14, 15, 0, 0, time.UTC)
	if !first.Showtime.At.Equal(expectedFirst) {
		t.Errorf("Expected first showing at %v, got %v", expectedFirst, first.Showtime.At)
	}
	if first.TicketURL != "https://www.ebillet.dk/koeb/1" {
		t.Errorf("Expected absolute ticket URL, got '%s'", first.TicketURL)
	}
	if first.SoldOut {
		t.Error("First showing should not be sold out")
	}

	second := detail.Showings[1]
	if !second.SoldOut {
		t.Error("Second showing should be sold out")
	}
	if !strings.HasSuffix(second.TicketURL, "/koeb/2") || strings.HasPrefix(second.TicketURL, "/") {
		t.Errorf("Expected relative ticket href resolved absolute, got '%s'", second.TicketURL)
	}
}

func TestExtractNoShowingsShortCircuits(t *testing.T) {
	page := `<html><head><meta property="og:title" content="Uden visninger"></head>
	<body><h1>Uden visninger</h1><p>Beskrivelse.</p></body></html>`
	extractor, itemURL, done := serveFilmPage(t, page)
	defer done()

	detail, err := extractor.Extract(context.Background(), itemURL, testRef)
	if err != nil {
		t.Fatal(err)
	}
	if detail != nil {
		t.Errorf("Expected nil for page without showings, got %+v", detail)
	}
}

func TestExtractFetchFailureIsSkip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	extractor := NewExtractor(newTestSession(t, server.URL), config.Default())
	detail, err := extractor.Extract(context.Background(), server.URL+"/film/borte", testRef)
	if err != nil {
		t.Errorf("Fetch failure must not surface as error, got %v", err)
	}
	if detail != nil {
		t.Error("Expected nil detail on fetch failure")
	}
}

func TestExtractTitlePriority(t *testing.T) {
	showings := `<li class="ct-cinema-movie-showings__list-item">
		<span class="ct-cinema-movie-showings__date">Lør 13. dec</span>
		<span class="ct-cinema-movie-showings__time">14:15</span>
	</li>`

	tests := []struct {
		name     string
		page     string
		expected string
	}{
		{
			"og:title wins",
			`<html><head><meta property="og:title" content="Ordet"><title>Sidetitel</title></head>
			<body><h1>Overskrift</h1>` + showings + `</body></html>`,
			"Ordet",
		},
		{
			"brand name rejected, h1 used",
			`<html><head><meta property="og:title" content="Cinemateket"></head>
			<body><h1>Vredens dag</h1>` + showings + `</body></html>`,
			"Vredens dag",
		},
		{
			"structured data over heading",
			`<html><head><script type="application/ld+json">{"name": "Gertrud"}</script></head>
			<body><h1>Noget andet</h1>` + showings + `</body></html>`,
			"Gertrud",
		},
		{
			"page title fallback",
			`<html><head><title>Mifunes sidste sang</title></head><body>` + showings + `</body></html>`,
			"Mifunes sidste sang",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor, itemURL, done := serveFilmPage(t, tt.page)
			defer done()

			detail, err := extractor.Extract(context.Background(), itemURL, testRef)
			if err != nil {
				t.Fatal(err)
			}
			if detail == nil {
				t.Fatal("Expected detail")
			}
			if detail.Title != tt.expected {
				t.Errorf("Expected title '%s', got '%s'", tt.expected, detail.Title)
			}
		})
	}
}

func TestExtractTitleFromSlug(t *testing.T) {
	showings := `<li class="ct-cinema-movie-showings__list-item">
		<span class="ct-cinema-movie-showings__date">Lør 13. dec</span>
		<span class="ct-cinema-movie-showings__time">14:15</span>
	</li>`
	page := `<html><head><title>Cinemateket</title></head><body>` + showings + `</body></html>`

	extractor, itemURL, done := serveFilmPage(t, page)
	defer done()

	detail, err := extractor.Extract(context.Background(), itemURL, testRef)
	if err != nil {
		t.Fatal(err)
	}
	if detail.Title != "Cykeltyven" {
		t.Errorf("Expected slug-derived title 'Cykeltyven', got '%s'", detail.Title)
	}
}

func TestExtractEventFlag(t *testing.T) {
	page := strings.Replace(filmPage, `content="Cykeltyven"`, `content="Stumfilmskoncert"`, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	extractor := NewExtractor(newTestSession(t, server.URL), config.Default())
	detail, err := extractor.Extract(context.Background(),
		server.URL+"/cinemateket/biograf/alle-events/event/stumfilmskoncert", testRef)
	if err != nil {
		t.Fatal(err)
	}
	if detail == nil {
		t.Fatal("Expected detail")
	}
	if !detail.IsEvent {
		t.Error("Item under the events path must be flagged as event")
	}
}

func TestExtractEventFlagIgnoresDanishWords(t *testing.T) {
	page := strings.Replace(filmPage, "Bestil billet</a>", "Bestil billet</a><span>Et eventyr for hele familien</span>", 1)
	extractor, itemURL, done := serveFilmPage(t, page)
	defer done()

	detail, err := extractor.Extract(context.Background(), itemURL, testRef)
	if err != nil {
		t.Fatal(err)
	}
	if detail == nil {
		t.Fatal("Expected detail")
	}
	if detail.IsEvent {
		t.Error("'eventyr' in a showing row must not flag the item as event")
	}
}

func TestExtractEventFlagFromShowingRow(t *testing.T) {
	page := strings.Replace(filmPage, "Bestil billet</a>", "Bestil billet</a><span>Event: introduktion ved instruktøren</span>", 1)
	extractor, itemURL, done := serveFilmPage(t, page)
	defer done()

	detail, err := extractor.Extract(context.Background(), itemURL, testRef)
	if err != nil {
		t.Fatal(err)
	}
	if detail == nil {
		t.Fatal("Expected detail")
	}
	if !detail.IsEvent {
		t.Error("Standalone 'Event' token in a showing row must flag the item as event")
	}
}

func TestExtractSeriesSecondaryPattern(t *testing.T) {
	page := `<html><head><meta property="og:title" content="Sult"></head><body>
	<li class="ct-cinema-movie-showings__list-item">
		<span class="ct-cinema-movie-showings__date">Lør 13. dec</span>
		<span class="ct-cinema-movie-showings__time">14:15</span>
	</li>
	<section>
		<h3>Film i serien – Carl Th. Dreyer</h3>
		<a href="/cinemateket/biograf/alle-serier/serie/dreyer">Se alle</a>
	</section>
	</body></html>`

	extractor, itemURL, done := serveFilmPage(t, page)
	defer done()

	detail, err := extractor.Extract(context.Background(), itemURL, testRef)
	if err != nil {
		t.Fatal(err)
	}
	if detail.SeriesName != "Carl Th. Dreyer" {
		t.Errorf("Expected series name from heading, got '%s'", detail.SeriesName)
	}
	if !strings.Contains(detail.SeriesURL, "/serie/dreyer") {
		t.Errorf("Expected series URL from 'Se alle' anchor, got '%s'", detail.SeriesURL)
	}
}
