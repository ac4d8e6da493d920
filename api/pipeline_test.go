package api

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ruckquest/augmenter"
	"github.com/ruckquest/augmenter/models"
	"github.com/ruckquest/augmenter/storage"
)

type stubPages struct {
	pages []models.PageRef
	calls int
	err   error
}

func (s *stubPages) Pages(ctx context.Context, sitemapURL string) ([]models.PageRef, error) {
	s.calls++
	return s.pages, s.err
}

type cachingStore struct {
	stubStore
	cached   []models.PageRef
	cacheHit bool
}

func (s *cachingStore) SavePageCache(baseURL string, pages []models.PageRef) error {
	s.cached = pages
	return nil
}

func (s *cachingStore) GetPageCache(baseURL string, maxAge time.Duration) ([]models.PageRef, bool, error) {
	if s.cacheHit {
		return s.cached, true, nil
	}
	return nil, false, nil
}

type noopSuggester struct{}

func (noopSuggester) SuggestLinks(ctx context.Context, w models.Window, pages []models.PageRef) ([]models.CandidatePatch, error) {
	return nil, nil
}

func (noopSuggester) SuggestMedia(ctx context.Context, doc string, catalog []models.InsertionPoint) ([]models.CandidatePatch, error) {
	return nil, nil
}

func newPipelineFixture(t *testing.T, pages *stubPages, store Store) *Pipeline {
	t.Helper()
	archive, err := storage.New(storage.Config{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	return NewPipeline(augmenter.DefaultConfig(), noopSuggester{}, pages, store, archive)
}

func TestPipelineRun(t *testing.T) {
	pages := &stubPages{pages: []models.PageRef{{Title: "Gear Guide", URL: "https://ruckquest.com/gear-guide"}}}
	store := &cachingStore{stubStore: stubStore{runs: map[string]*models.Run{}}}
	p := newPipelineFixture(t, pages, store)

	html := "<h1>Rucking Basics</h1><p>Content.</p>"
	run, err := p.Run(context.Background(), html, "https://ruckquest.com", false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if run.ID == "" {
		t.Error("run has no ID")
	}
	if run.Slug != "rucking-basics" {
		t.Errorf("slug = %q, want first heading slug", run.Slug)
	}
	if run.Document != html {
		t.Errorf("no-op suggester changed the document: %q", run.Document)
	}
	if run.PristineKey == "" || run.AugmentedKey == "" || run.PristineKey == run.AugmentedKey {
		t.Errorf("archive keys = %q / %q", run.PristineKey, run.AugmentedKey)
	}
	if _, ok := store.runs[run.ID]; !ok {
		t.Error("run not persisted")
	}
	if len(store.cached) != 1 {
		t.Errorf("pages not cached: %+v", store.cached)
	}
}

func TestPipelineUsesPageCache(t *testing.T) {
	pages := &stubPages{}
	store := &cachingStore{
		stubStore: stubStore{runs: map[string]*models.Run{}},
		cached:    []models.PageRef{{Title: "Cached", URL: "https://ruckquest.com/cached"}},
		cacheHit:  true,
	}
	p := newPipelineFixture(t, pages, store)

	if _, err := p.Run(context.Background(), "<p>doc</p>", "https://ruckquest.com", false); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if pages.calls != 0 {
		t.Errorf("sitemap fetched %d times despite warm cache", pages.calls)
	}

	if _, err := p.Run(context.Background(), "<p>doc</p>", "https://ruckquest.com", true); err != nil {
		t.Fatalf("Run with refresh: %v", err)
	}
	if pages.calls != 1 {
		t.Errorf("force refresh did not refetch, calls = %d", pages.calls)
	}
}

func TestPipelinePageDiscoveryFailure(t *testing.T) {
	pages := &stubPages{err: fmt.Errorf("sitemap unreachable")}
	store := &cachingStore{stubStore: stubStore{runs: map[string]*models.Run{}}}
	p := newPipelineFixture(t, pages, store)

	if _, err := p.Run(context.Background(), "<p>doc</p>", "https://ruckquest.com", false); err == nil {
		t.Fatal("expected error when page discovery fails")
	}
}
