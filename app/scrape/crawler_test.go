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
	"github.com/jkaae/kinogram/app/fetcher"
)

func newTestSession(t *testing.T, serverURL string) *fetcher.Session {
	t.Helper()
	client, err := fetcher.NewClient(fetcher.Options{
		BaseURL:   serverURL,
		UserAgent: "kinogram-test",
		Timeout:   5 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	return fetcher.NewSession(client)
}

func TestEnumerateItemsFollowsPagination(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cinemateket/biograf/alle-film", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "", "0":
			fmt.Fprint(w, `<html><body>
				<a href="/cinemateket/biograf/alle-film/film/ordet">Ordet</a>
				<a href="/cinemateket/biograf/alle-film/film/cykeltyven">Cykeltyven</a>
				<a href="/cinemateket/biograf/alle-film?page=1">Næste</a>
			</body></html>`)
		case "1":
			fmt.Fprint(w, `<html><body>
				<a href="/cinemateket/biograf/alle-film/film/vredens-dag">Vredens dag</a>
				<a href="/cinemateket/biograf/alle-film/film/ordet">Ordet</a>
			</body></html>`)
		default:
			http.NotFound(w, r)
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	crawler := NewCrawler(newTestSession(t, server.URL), config.Default(), 0)
	items, err := crawler.EnumerateItems(context.Background(),
		server.URL+"/cinemateket/biograf/alle-film", "/cinemateket/biograf/alle-film")
	if err != nil {
		t.Fatal(err)
	}

	if len(items) != 3 {
		t.Errorf("Expected 3 unique items across pages, got %d: %v", len(items), items)
	}
	want := server.URL + "/cinemateket/biograf/alle-film/film/vredens-dag"
	if _, ok := items[want]; !ok {
		t.Errorf("Expected second-page item %s in result", want)
	}
}

func TestEnumerateItemsFiltersNoiseAndPrefix(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cinemateket/biograf/alle-film", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<a href="/cinemateket/biograf/alle-film/film/ordet">Ordet</a>
			<a href="/viden-om-film/film/ordet-analyse">Analyse</a>
			<a href="/nyheder/artikel">Nyhed</a>
			<a href="/om-os">Om os</a>
		</body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	crawler := NewCrawler(newTestSession(t, server.URL), config.Default(), 0)
	items, err := crawler.EnumerateItems(context.Background(),
		server.URL+"/cinemateket/biograf/alle-film", "")
	if err != nil {
		t.Fatal(err)
	}

	if len(items) != 1 {
		t.Fatalf("Expected exactly 1 item after noise filtering, got %d: %v", len(items), items)
	}
	for u := range items {
		if !strings.HasSuffix(u, "/film/ordet") {
			t.Errorf("Expected only the film link, got %s", u)
		}
	}
}

func TestEnumerateItemsPageCeiling(t *testing.T) {
	pagesServed := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/cinemateket/biograf/alle-film", func(w http.ResponseWriter, r *http.Request) {
		pagesServed++
		page := r.URL.Query().Get("page")
		// Every page links to another one: without a ceiling this never ends
		fmt.Fprintf(w, `<html><body>
			<a href="/cinemateket/biograf/alle-film/film/f%s">Film</a>
			<a href="/cinemateket/biograf/alle-film?page=%s9">Næste</a>
		</body></html>`, page, page)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	crawler := NewCrawler(newTestSession(t, server.URL), config.Default(), 4)
	_, err := crawler.EnumerateItems(context.Background(),
		server.URL+"/cinemateket/biograf/alle-film", "")
	if err != nil {
		t.Fatal(err)
	}

	if pagesServed > 4 {
		t.Errorf("Expected at most 4 pages fetched under ceiling, got %d", pagesServed)
	}
}

func TestEnumerateItemsFetchFailureEndsWalk(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cinemateket/biograf/alle-film", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `<html><body>
			<a href="/cinemateket/biograf/alle-film/film/ordet">Ordet</a>
			<a href="/cinemateket/biograf/alle-film?page=1">Næste</a>
		</body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	crawler := NewCrawler(newTestSession(t, server.URL), config.Default(), 0)
	items, err := crawler.EnumerateItems(context.Background(),
		server.URL+"/cinemateket/biograf/alle-film", "")
	if err != nil {
		t.Fatal(err)
	}

	// First page's findings survive the second page's failure
	if len(items) != 1 {
		t.Errorf("Expected 1 item gathered before the failure, got %d", len(items))
	}
}

func TestEnumerateItemsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("No fetch should happen after cancellation")
	}))
	defer server.Close()

	crawler := NewCrawler(newTestSession(t, server.URL), config.Default(), 0)
	_, err := crawler.EnumerateItems(ctx, server.URL+"/cinemateket/biograf/alle-film", "")
	if err == nil {
		t.Error("Expected context error from cancelled crawl")
	}
}
