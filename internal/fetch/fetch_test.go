package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGetSendsBrowserUserAgent(t *testing.T) {
	t.Parallel()

	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("payload"))
	}))
	defer server.Close()

	c := NewClient(server.Client())
	body, err := c.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if string(body) != "payload" {
		t.Fatalf("unexpected body: %q", body)
	}
	if !strings.Contains(gotUA, "Mozilla/5.0") {
		t.Fatalf("expected a browser user agent, got %q", gotUA)
	}
}

func TestGetRejectsNonOKStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(server.Client())
	if _, err := c.Get(context.Background(), server.URL); err == nil {
		t.Fatal("expected an error for a 404 response")
	}
}

func TestDocumentSharesGetSemantics(t *testing.T) {
	t.Parallel()

	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`<html><body><h1>Heading</h1></body></html>`))
	}))
	defer server.Close()

	c := NewClient(server.Client())
	doc, err := c.Document(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Document error: %v", err)
	}
	if got := doc.Find("h1").Text(); got != "Heading" {
		t.Fatalf("unexpected document content: %q", got)
	}
	if !strings.Contains(gotUA, "Mozilla/5.0") {
		t.Fatalf("expected the shared user agent on document fetches, got %q", gotUA)
	}
}

func TestDocumentPropagatesStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(server.Client())
	if _, err := c.Document(context.Background(), server.URL); err == nil {
		t.Fatal("expected an error for a 503 response")
	}
}
