package api

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/ruckquest/augmenter"
	"github.com/ruckquest/augmenter/metrics"
	"github.com/ruckquest/augmenter/models"
	"github.com/ruckquest/augmenter/slug"
	"github.com/ruckquest/augmenter/storage"
)

// pageCacheTTL is how long a site's discovered page list stays fresh.
const pageCacheTTL = 24 * time.Hour

// Store defines the database operations the API needs.
type Store interface {
	SaveRun(run *models.Run) error
	GetRunByID(id string) (*models.Run, error)
	ListRuns(limit, offset int) ([]*models.Run, error)
	Count() (int, error)
	DeleteRunByID(id string) error
	SavePageCache(baseURL string, pages []models.PageRef) error
	GetPageCache(baseURL string, maxAge time.Duration) ([]models.PageRef, bool, error)
}

// PageSource discovers a site's published pages.
type PageSource interface {
	Pages(ctx context.Context, sitemapURL string) ([]models.PageRef, error)
}

// Runner executes one full augmentation: page discovery, the engine pass,
// archival, and persistence.
type Runner interface {
	Run(ctx context.Context, html, baseURL string, forceRefreshPages bool) (*models.Run, error)
}

// Pipeline is the production Runner. It wires the engine to its
// collaborators and records metrics per pass.
type Pipeline struct {
	engineConfig augmenter.Config
	suggester    augmenter.Suggester
	pages        PageSource
	store        Store
	archive      storage.Backend
}

// NewPipeline assembles a Runner from its collaborators.
func NewPipeline(engineConfig augmenter.Config, suggester augmenter.Suggester, pages PageSource, store Store, archive storage.Backend) *Pipeline {
	return &Pipeline{
		engineConfig: engineConfig,
		suggester:    suggester,
		pages:        pages,
		store:        store,
		archive:      archive,
	}
}

// Run augments html for the site at baseURL and persists the result.
func (p *Pipeline) Run(ctx context.Context, html, baseURL string, forceRefreshPages bool) (*models.Run, error) {
	start := time.Now()

	pages, err := p.sitePages(ctx, baseURL, forceRefreshPages)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	engine := augmenter.New(p.engineConfig, p.suggester, pages)
	augmented, report, err := engine.Augment(ctx, html)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("augmentation pass failed: %w", err)
	}

	run := &models.Run{
		ID:             uuid.NewString(),
		BaseURL:        baseURL,
		Slug:           documentSlug(html),
		Document:       augmented,
		Report:         *report,
		ProcessingTime: time.Since(start).Seconds(),
		CreatedAt:      time.Now().UTC(),
	}

	// Archive both versions. Losing the archive degrades rollback, not the
	// response, so failures log and continue.
	if key, err := p.archive.SaveDocument(ctx, run.Slug, storage.VersionPristine, html); err != nil {
		log.Printf("failed to archive pristine document: %v", err)
	} else {
		run.PristineKey = key
	}
	if key, err := p.archive.SaveDocument(ctx, run.Slug, storage.VersionAugmented, augmented); err != nil {
		log.Printf("failed to archive augmented document: %v", err)
	} else {
		run.AugmentedKey = key
	}

	if err := p.store.SaveRun(run); err != nil {
		metrics.RunsTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("failed to persist run: %w", err)
	}

	recordPassMetrics(time.Since(start), report)
	return run, nil
}

func (p *Pipeline) sitePages(ctx context.Context, baseURL string, forceRefresh bool) ([]models.PageRef, error) {
	if !forceRefresh {
		if pages, ok, err := p.store.GetPageCache(baseURL, pageCacheTTL); err != nil {
			log.Printf("page cache lookup failed: %v", err)
		} else if ok {
			return pages, nil
		}
	}

	pages, err := p.pages.Pages(ctx, baseURL+"/sitemap.xml")
	if err != nil {
		return nil, fmt.Errorf("discovering pages for %s: %w", baseURL, err)
	}
	if err := p.store.SavePageCache(baseURL, pages); err != nil {
		log.Printf("failed to cache pages for %s: %v", baseURL, err)
	}
	return pages, nil
}

// documentSlug derives an archive slug from the document title.
func documentSlug(doc string) string {
	return slug.GenerateWithFallback(extractTitle(doc), "document")
}

// extractTitle returns the text of the document's first h1, falling back to
// the title element. Parsing is tolerant: any input yields a tree, so a
// fragment without either element just comes back empty.
func extractTitle(doc string) string {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return ""
	}
	if t := findElementText(root, "h1"); t != "" {
		return t
	}
	return findElementText(root, "title")
}

func findElementText(n *html.Node, tag string) string {
	if n.Type == html.ElementNode && n.Data == tag {
		return strings.TrimSpace(nodeText(n))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findElementText(c, tag); t != "" {
			return t
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(nodeText(c))
	}
	return sb.String()
}

func recordPassMetrics(d time.Duration, report *models.Report) {
	applied := make(map[string]int)
	for _, p := range report.Applied {
		applied[string(p.Kind)]++
	}
	dropped := make(map[string]int)
	for _, p := range report.Dropped {
		dropped[string(p.Reason)]++
	}
	metrics.ObservePass(d, applied, dropped, false)
}
