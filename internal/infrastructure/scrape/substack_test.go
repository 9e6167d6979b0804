package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/fetch"
)

func TestSubstackExtract(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/archive", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
		  <a href="/p/first-post">First</a>
		  <a href="/p/second-post">Second</a>
		  <a href="/p/first-post">First again</a>
		  <a href="/p/third-post">Third</a>
		  <a href="/about">About</a>
		</body></html>`))
	})
	for _, slug := range []string{"first-post", "second-post", "third-post"} {
		slug := slug
		mux.HandleFunc("/p/"+slug, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `<html><head>
			  <meta name="description" content="teaser for %s">
			</head><body>
			  <h1 class="post-title">Post %s</h1>
			  <time datetime="2024-02-10T09:00:00Z">Feb 10</time>
			  <div class="available-content">Body of %s with enough words.</div>
			</body></html>`, slug, slug, slug)
		})
	}
	server := httptest.NewServer(mux)
	defer server.Close()

	s := NewSubstack(fetch.NewClient(server.Client()), nil)
	src := domain.Source{Name: "my-substack", URL: server.URL + "/archive", Language: "en"}

	articles, err := s.Extract(context.Background(), src)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}

	if len(articles) != 3 {
		t.Fatalf("expected 3 articles, got %d", len(articles))
	}

	first := articles[0]
	if first.SourceURL != server.URL+"/p/first-post" {
		t.Fatalf("expected absolute post URL, got %s", first.SourceURL)
	}
	if first.Title != "Post first-post" {
		t.Fatalf("unexpected title: %s", first.Title)
	}
	if !strings.Contains(first.Content, "Body of first-post") {
		t.Fatalf("unexpected content: %s", first.Content)
	}
	if first.Description != "teaser for first-post" {
		t.Fatalf("unexpected description: %s", first.Description)
	}
	want := time.Date(2024, time.February, 10, 9, 0, 0, 0, time.UTC)
	if !first.PublishedAt.Equal(want) {
		t.Fatalf("unexpected published date: %v", first.PublishedAt)
	}
	if first.Category != "newsletter" {
		t.Fatalf("unexpected category: %s", first.Category)
	}
}

func TestSubstackExtractSkipsBrokenPost(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/archive", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
		  <a href="/p/good">Good</a>
		  <a href="/p/broken">Broken</a>
		</body></html>`))
	})
	mux.HandleFunc("/p/good", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
		  <h1>Good Post</h1>
		  <div class="body">Still here.</div>
		</body></html>`))
	})
	mux.HandleFunc("/p/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	s := NewSubstack(fetch.NewClient(server.Client()), nil)
	src := domain.Source{Name: "my-substack", URL: server.URL + "/archive", Language: "en"}

	articles, err := s.Extract(context.Background(), src)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("expected the broken post to be skipped, got %d articles", len(articles))
	}
	if articles[0].Title != "Good Post" {
		t.Fatalf("unexpected title: %s", articles[0].Title)
	}
}

func TestSubstackExtractCapsPosts(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/archive", func(w http.ResponseWriter, r *http.Request) {
		var b strings.Builder
		b.WriteString("<html><body>")
		for i := 0; i < 8; i++ {
			fmt.Fprintf(&b, `<a href="/p/post-%d">Post %d</a>`, i, i)
		}
		b.WriteString("</body></html>")
		_, _ = w.Write([]byte(b.String()))
	})
	mux.HandleFunc("/p/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><h1>A Post</h1><div class="body">text</div></body></html>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	s := NewSubstack(fetch.NewClient(server.Client()), nil)
	src := domain.Source{Name: "my-substack", URL: server.URL + "/archive", Language: "en"}

	articles, err := s.Extract(context.Background(), src)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if len(articles) != 5 {
		t.Fatalf("expected the archive walk to stop at 5, got %d", len(articles))
	}
}
