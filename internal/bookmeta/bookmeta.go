// Package bookmeta fetches page metadata (OpenGraph tags, title) for
// bookmark blocks.
package bookmeta

import (
	"context"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	fetchTimeout = 5 * time.Second
	maxBodyBytes = 512 << 10 // metadata lives in <head>; half a MB is plenty
	userAgent    = "ansuz-bookmark/1.0"
)

// Meta is the extracted bookmark metadata. Fields fall back to the URL
// itself when the target cannot be fetched or parsed.
type Meta struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// Fetcher retrieves bookmark metadata over HTTP.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher with a short per-request timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: fetchTimeout}}
}

var (
	ogRe    = regexp.MustCompile(`(?is)<meta[^>]+property=["']og:(title|description|image)["'][^>]+content=["']([^"']*)["']`)
	ogRevRe = regexp.MustCompile(`(?is)<meta[^>]+content=["']([^"']*)["'][^>]+property=["']og:(title|description|image)["']`)
	descRe  = regexp.MustCompile(`(?is)<meta[^>]+name=["']description["'][^>]+content=["']([^"']*)["']`)
	titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
)

// Fetch downloads the target page and extracts og:title, og:description,
// og:image, and the document title. A failed fetch never surfaces as an
// error: the bookmark degrades to {url, title: url}.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) Meta {
	fallback := Meta{URL: rawURL, Title: rawURL}

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fallback
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fallback
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return fallback
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fallback
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fallback
	}

	return extract(rawURL, string(body))
}

func extract(rawURL, body string) Meta {
	m := Meta{URL: rawURL}

	for _, match := range ogRe.FindAllStringSubmatch(body, -1) {
		setOG(&m, strings.ToLower(match[1]), match[2])
	}
	// Some pages put content= before property=.
	for _, match := range ogRevRe.FindAllStringSubmatch(body, -1) {
		setOG(&m, strings.ToLower(match[2]), match[1])
	}

	if m.Title == "" {
		if match := titleRe.FindStringSubmatch(body); match != nil {
			m.Title = clean(match[1])
		}
	}
	if m.Description == "" {
		if match := descRe.FindStringSubmatch(body); match != nil {
			m.Description = clean(match[1])
		}
	}
	if m.Title == "" {
		m.Title = rawURL
	}
	return m
}

func setOG(m *Meta, key, value string) {
	value = clean(value)
	if value == "" {
		return
	}
	switch key {
	case "title":
		if m.Title == "" {
			m.Title = value
		}
	case "description":
		if m.Description == "" {
			m.Description = value
		}
	case "image":
		if m.Image == "" {
			m.Image = value
		}
	}
}

func clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(s))
}
