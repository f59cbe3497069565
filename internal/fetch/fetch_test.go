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

func newTestFetcher() *Fetcher {
	return New(5*time.Second, "nerplay/0.1", 1<<20, 3)
}

func TestFetchHTMLStripsMarkup(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>Energy report</title>
<script>var hidden = "charcoal";</script>
<style>body { color: red; }</style></head>
<body><p>Kenya relies on biomass.</p></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	got, err := newTestFetcher().Fetch(context.Background(), srv.URL+"/page")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !strings.Contains(got.Text, "Kenya relies on biomass.") {
		t.Errorf("text %q missing body content", got.Text)
	}
	if !strings.Contains(got.Text, "Energy report") {
		t.Errorf("text %q missing title content", got.Text)
	}
	if strings.Contains(got.Text, "hidden") || strings.Contains(got.Text, "color: red") {
		t.Errorf("text %q includes script or style content", got.Text)
	}
	if got.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", got.StatusCode)
	}
}

func TestFetchPlainTextPassthrough(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/notes.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("The WHO links the energy ladder to PM2.5 exposure."))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	got, err := newTestFetcher().Fetch(context.Background(), srv.URL+"/notes.txt")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got.Text != "The WHO links the energy ladder to PM2.5 exposure." {
		t.Errorf("Text = %q, want body unchanged", got.Text)
	}
}

func TestFetchRespectsRobots(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	})
	mux.HandleFunc("/private/report", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("secret"))
	})
	mux.HandleFunc("/public", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("open data"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newTestFetcher()
	_, err := f.Fetch(context.Background(), srv.URL+"/private/report")
	if !errors.Is(err, ErrRobotsDisallowed) {
		t.Fatalf("Fetch(/private/report) error = %v, want ErrRobotsDisallowed", err)
	}

	got, err := f.Fetch(context.Background(), srv.URL+"/public")
	if err != nil {
		t.Fatalf("Fetch(/public) failed: %v", err)
	}
	if got.Text != "open data" {
		t.Errorf("Text = %q, want %q", got.Text, "open data")
	}
}

func TestFetchTruncatesLargeBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/big", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(strings.Repeat("x", 1000)))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := New(5*time.Second, "nerplay/0.1", 64, 3)
	got, err := f.Fetch(context.Background(), srv.URL+"/big")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(got.Text) != 64 {
		t.Errorf("len(Text) = %d, want 64", len(got.Text))
	}
}

func TestFetchStopsRedirectLoops(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL+"/loop")
	if err == nil || !strings.Contains(err.Error(), "redirects") {
		t.Fatalf("Fetch error = %v, want redirect cap error", err)
	}
}

func TestFetchRejectsNonHTTPScheme(t *testing.T) {
	_, err := newTestFetcher().Fetch(context.Background(), "ftp://example.com/file")
	if err == nil || !strings.Contains(err.Error(), "unsupported scheme") {
		t.Fatalf("Fetch error = %v, want unsupported scheme error", err)
	}
}

func TestFetchErrorStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/down", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL+"/down")
	if err == nil || !strings.Contains(err.Error(), "unexpected status: 500") {
		t.Fatalf("Fetch error = %v, want status error", err)
	}
}

func TestVisibleTextJoinsWithSpaces(t *testing.T) {
	page := `<div><p>first</p><p>second</p></div>`
	got, err := VisibleText(strings.NewReader(page))
	if err != nil {
		t.Fatalf("VisibleText failed: %v", err)
	}
	if got != "first second" {
		t.Errorf("VisibleText = %q, want %q", got, "first second")
	}
}
