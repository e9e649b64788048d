package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestIsValidURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		url   string
		valid bool
	}{
		{"https://example.com", true},
		{"http://example.com/path?q=1", true},
		{"ftp://example.com", false},
		{"not-a-url", false},
		{"https://", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsValidURL(tc.url); got != tc.valid {
			t.Errorf("IsValidURL(%q) = %v, want %v", tc.url, got, tc.valid)
		}
	}
}

func TestFetchInvalidURL(t *testing.T) {
	t.Parallel()

	f := NewFetcher(time.Second, nil)
	_, err := f.Fetch(context.Background(), "not-a-url")
	if err == nil {
		t.Fatal("expected error")
	}
	var ferr *Error
	if !errors.As(err, &ferr) || ferr.Kind != KindInvalidURL {
		t.Fatalf("expected invalid url error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid URL") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestFetchHTTPStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(time.Second, nil)
	_, err := f.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error")
	}
	var ferr *Error
	if !errors.As(err, &ferr) || ferr.Kind != KindHTTPStatus {
		t.Fatalf("expected http status error, got %v", err)
	}
	if !strings.Contains(err.Error(), "HTTP 404") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestFetchSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<h1>Hello</h1>"))
	}))
	defer srv.Close()

	f := NewFetcher(time.Second, nil)
	body, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if body != "<h1>Hello</h1>" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestFetchNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close() // deliberately closed before the request

	f := NewFetcher(time.Second, nil)
	_, err := f.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error")
	}
	var ferr *Error
	if !errors.As(err, &ferr) || ferr.Kind != KindNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestPipelineFetchMarkdown(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><h1>Hello</h1></body></html>"))
	}))
	defer srv.Close()

	p := NewPipeline(time.Second, nil)
	first, err := p.FetchMarkdown(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch markdown: %v", err)
	}
	if first != "# Hello\n" {
		t.Fatalf("unexpected markdown: %q", first)
	}

	// Re-fetching an unchanged resource is deterministic.
	second, err := p.FetchMarkdown(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch markdown: %v", err)
	}
	if second != first {
		t.Fatalf("expected identical results, got %q and %q", second, first)
	}
}
