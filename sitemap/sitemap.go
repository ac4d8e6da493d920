// Package sitemap discovers a site's published pages, which the engine
// offers to the suggester as internal link targets.
package sitemap

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ruckquest/augmenter/models"
	"github.com/ruckquest/augmenter/slug"
)

const (
	defaultTimeout = 30 * time.Second

	// maxChildSitemaps bounds how many child sitemaps of an index are
	// followed, so a pathological index cannot stall a pass.
	maxChildSitemaps = 50
)

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc string `xml:"loc"`
}

type sitemapIndex struct {
	XMLName  xml.Name       `xml:"sitemapindex"`
	Sitemaps []sitemapEntry `xml:"sitemap"`
}

type sitemapEntry struct {
	Loc string `xml:"loc"`
}

// Client fetches and parses XML sitemaps.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a sitemap client. Pass nil to use a default HTTP client.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{httpClient: httpClient}
}

// Pages fetches the sitemap at sitemapURL and returns every page it lists.
// Sitemap indexes are followed one level deep. Page titles are reconstructed
// from URL slugs; the homepage itself is excluded since linking to it adds
// no value inside an article.
func (c *Client) Pages(ctx context.Context, sitemapURL string) ([]models.PageRef, error) {
	body, err := c.fetch(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}

	var index sitemapIndex
	if err := xml.Unmarshal(body, &index); err == nil && len(index.Sitemaps) > 0 {
		return c.fromIndex(ctx, index)
	}

	var set urlSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("parsing sitemap %s: %w", sitemapURL, err)
	}
	return pageRefs(set), nil
}

func (c *Client) fromIndex(ctx context.Context, index sitemapIndex) ([]models.PageRef, error) {
	var pages []models.PageRef
	for i, entry := range index.Sitemaps {
		if i >= maxChildSitemaps {
			log.Printf("sitemap index has %d children, stopping at %d", len(index.Sitemaps), maxChildSitemaps)
			break
		}
		body, err := c.fetch(ctx, entry.Loc)
		if err != nil {
			log.Printf("skipping child sitemap %s: %v", entry.Loc, err)
			continue
		}
		var set urlSet
		if err := xml.Unmarshal(body, &set); err != nil {
			log.Printf("skipping unparseable child sitemap %s: %v", entry.Loc, err)
			continue
		}
		pages = append(pages, pageRefs(set)...)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("sitemap index yielded no pages")
	}
	return pages, nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", url, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func pageRefs(set urlSet) []models.PageRef {
	var pages []models.PageRef
	for _, u := range set.URLs {
		loc := strings.TrimSpace(u.Loc)
		if loc == "" {
			continue
		}
		s := slug.FromURL(loc)
		if s == "" || isHomepage(loc) {
			continue
		}
		pages = append(pages, models.PageRef{
			Title: slug.Title(s),
			URL:   loc,
		})
	}
	return pages
}

// isHomepage reports whether loc has no path beyond the domain root.
func isHomepage(loc string) bool {
	loc = strings.TrimRight(loc, "/")
	rest := loc
	if idx := strings.Index(loc, "://"); idx != -1 {
		rest = loc[idx+3:]
	}
	return !strings.Contains(rest, "/")
}
