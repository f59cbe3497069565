// Package fetch downloads web pages and reduces them to plain text
// suitable for entity analysis.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/net/html"
)

// ErrRobotsDisallowed is returned when a site's robots.txt forbids the
// requested path for our user agent.
var ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

// Fetcher fetches pages over HTTP with a size cap and a per-host
// robots.txt cache. It is safe for concurrent use.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64

	mu     sync.RWMutex
	robots map[string]*robotstxt.RobotsData
}

// New returns a Fetcher. maxRedirects caps redirect chains and
// maxBytes caps how much of a response body is read.
func New(timeout time.Duration, userAgent string, maxBytes int64, maxRedirects int) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
		robots:    make(map[string]*robotstxt.RobotsData),
	}
}

// Result is a fetched page reduced to text.
type Result struct {
	Text        string
	FinalURL    string
	ContentType string
	StatusCode  int
}

// Fetch retrieves rawURL and returns its visible text. HTML responses
// are stripped to their text nodes; anything else is returned as-is.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}

	if !f.allowed(ctx, parsed) {
		return nil, fmt.Errorf("%w: %s", ErrRobotsDisallowed, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	text := string(body)
	if strings.Contains(contentType, "html") {
		text, err = VisibleText(strings.NewReader(text))
		if err != nil {
			return nil, fmt.Errorf("extract text: %w", err)
		}
	}

	return &Result{
		Text:        text,
		FinalURL:    resp.Request.URL.String(),
		ContentType: contentType,
		StatusCode:  resp.StatusCode,
	}, nil
}

// VisibleText parses HTML and joins its text nodes, skipping script,
// style, noscript and iframe subtrees.
func VisibleText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				if buf.Len() > 0 {
					buf.WriteString(" ")
				}
				buf.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return buf.String(), nil
}

// allowed consults the host's robots.txt. Hosts whose robots.txt
// cannot be fetched or parsed are allowed by default.
func (f *Fetcher) allowed(ctx context.Context, u *url.URL) bool {
	data, err := f.robotsData(ctx, u)
	if err != nil {
		log.Printf("[nerplay] robots.txt unavailable for %s: %v, allowing", u.Host, err)
		return true
	}
	return data.TestAgent(u.Path, f.userAgent)
}

func (f *Fetcher) robotsData(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	f.mu.RLock()
	data, ok := f.robots[u.Host]
	f.mu.RUnlock()
	if ok {
		return data, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		data, _ = robotstxt.FromStatusAndBytes(http.StatusNotFound, nil)
	} else {
		data, err = robotstxt.FromResponse(resp)
		if err != nil {
			return nil, fmt.Errorf("parse robots.txt: %w", err)
		}
	}

	f.mu.Lock()
	f.robots[u.Host] = data
	f.mu.Unlock()
	return data, nil
}
