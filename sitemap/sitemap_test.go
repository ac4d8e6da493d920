package sitemap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const flatSitemap = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://ruckquest.com/</loc></url>
  <url><loc>https://ruckquest.com/rucking-basics/</loc></url>
  <url><loc>https://ruckquest.com/gear-guide</loc></url>
</urlset>`

func TestPagesFlatSitemap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(flatSitemap))
	}))
	defer srv.Close()

	pages, err := NewClient(srv.Client()).Pages(context.Background(), srv.URL+"/sitemap.xml")
	if err != nil {
		t.Fatalf("Pages: %v", err)
	}

	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2 (homepage excluded): %+v", len(pages), pages)
	}
	if pages[0].URL != "https://ruckquest.com/rucking-basics/" || pages[0].Title != "Rucking Basics" {
		t.Errorf("page 0 = %+v", pages[0])
	}
	if pages[1].URL != "https://ruckquest.com/gear-guide" || pages[1].Title != "Gear Guide" {
		t.Errorf("page 1 = %+v", pages[1])
	}
}

func TestPagesSitemapIndex(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sitemap.xml":
			w.Write([]byte(`<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>` + srv.URL + `/posts.xml</loc></sitemap>
  <sitemap><loc>` + srv.URL + `/missing.xml</loc></sitemap>
</sitemapindex>`))
		case "/posts.xml":
			w.Write([]byte(`<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://ruckquest.com/30-day-ruck-challenge</loc></url>
</urlset>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	pages, err := NewClient(srv.Client()).Pages(context.Background(), srv.URL+"/sitemap.xml")
	if err != nil {
		t.Fatalf("Pages: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1: %+v", len(pages), pages)
	}
	if pages[0].Title != "30 Day Ruck Challenge" {
		t.Errorf("title = %q", pages[0].Title)
	}
}

func TestPagesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.Client()).Pages(context.Background(), srv.URL+"/sitemap.xml"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestPagesUnparseable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not a sitemap</html>"))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.Client()).Pages(context.Background(), srv.URL+"/sitemap.xml"); err == nil {
		t.Fatal("expected error for unparseable body")
	}
}
