package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/thoas/go-funk"
	"golang.org/x/net/html"
)

// ListingClient finds the listing page of an address and mines its photos.
type ListingClient struct {
	searchURL    string
	searchAPIKey string
	userAgent    string
	maxPageSize  int64
	httpClient   *http.Client
}

// NewListingClient returns a client reading at most maxPageSize bytes of a
// listing page. Photos past that point are not seen.
func NewListingClient(searchURL, searchAPIKey, userAgent string, maxPageSize int64, fetchTimeout time.Duration) *ListingClient {
	if maxPageSize <= 0 {
		maxPageSize = 5 << 20
	}
	return &ListingClient{
		searchURL:    searchURL,
		searchAPIKey: searchAPIKey,
		userAgent:    userAgent,
		maxPageSize:  maxPageSize,
		httpClient:   newHTTPClient(fetchTimeout, 45*time.Second),
	}
}

type searchResponse struct {
	Results []struct {
		URL   string `json:"url"`
		Title string `json:"title"`
	} `json:"results"`
}

// FindListingURL searches a canonical listing page for address. It returns
// ErrNoResult when the search has no usable hit.
func (c *ListingClient) FindListingURL(ctx context.Context, address string) (string, error) {
	if c.searchURL == "" {
		return "", fmt.Errorf("listing search is not configured")
	}

	q := url.Values{}
	q.Set("q", address+" real estate listing")

	header := http.Header{}
	if c.searchAPIKey != "" {
		header.Set("X-API-Key", c.searchAPIKey)
	}

	var resp searchResponse
	if err := getJSON(ctx, c.httpClient, c.searchURL+"?"+q.Encode(), header, &resp); err != nil {
		return "", fmt.Errorf("listing search: %w", err)
	}

	for _, r := range resp.Results {
		if u, err := url.Parse(r.URL); err == nil && isHTTP(u) {
			return u.String(), nil
		}
	}
	return "", fmt.Errorf("listing search for %q: %w", address, ErrNoResult)
}

// ExtractImages fetches pageURL and returns the absolute photo URLs found in
// it, first occurrence order, without duplicates.
func (c *ListingClient) ExtractImages(ctx context.Context, pageURL string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil || !isHTTP(base) {
		return nil, fmt.Errorf("invalid listing url %q", pageURL)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing page: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("listing page returned status %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, c.maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing page: %w", err)
	}

	return funk.UniqString(collectImageURLs(doc, base)), nil
}

func collectImageURLs(doc *html.Node, base *url.URL) []string {
	var found []string
	add := func(raw string) {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "data:") {
			return
		}
		ref, err := url.Parse(raw)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if !isHTTP(abs) || !looksLikePhoto(abs) {
			return
		}
		found = append(found, abs.String())
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				if prop := attr(n, "property"); prop == "og:image" || attr(n, "name") == "twitter:image" {
					add(attr(n, "content"))
				}
			case "img", "source":
				add(attr(n, "src"))
				add(attr(n, "data-src"))
				add(firstSrcsetURL(attr(n, "srcset")))
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return found
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func firstSrcsetURL(srcset string) string {
	first, _, _ := strings.Cut(srcset, ",")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

var skippedExtensions = []string{".svg", ".gif", ".ico"}

// looksLikePhoto drops vector art, sprites and icons.
func looksLikePhoto(u *url.URL) bool {
	return !funk.ContainsString(skippedExtensions, strings.ToLower(path.Ext(u.Path)))
}

func isHTTP(u *url.URL) bool {
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
