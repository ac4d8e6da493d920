package augmenter

import (
	"strings"
	"testing"

	"github.com/ruckquest/augmenter/models"
)

const resolveDoc = `<h1>Rucking Basics</h1>
<p>Start with a light ruck and a good pair of boots.</p>
<h2>Training Plan</h2>
<p>Build distance before weight.</p>`

func inlineCandidate(anchor, url string) models.CandidatePatch {
	return models.CandidatePatch{
		Kind:        models.PatchInline,
		AnchorText:  anchor,
		ResourceURL: url,
	}
}

func blockCandidate(pointID int, pos models.Position, url string) models.CandidatePatch {
	return models.CandidatePatch{
		Kind:             models.PatchBlock,
		InsertionPointID: pointID,
		Position:         pos,
		ResourceKind:     models.ResourceImage,
		MediaFragment:    `<img src="` + url + `">`,
		ResourceURL:      url,
	}
}

func TestResolveInline(t *testing.T) {
	r := newResolver(resolveDoc, nil)

	p, _, ok := r.resolve(inlineCandidate("light ruck", "/gear/rucks"))
	if !ok {
		t.Fatal("expected candidate to resolve")
	}
	if got := resolveDoc[p.OriginalStart:p.OriginalEnd]; got != "light ruck" {
		t.Errorf("resolved span = %q, want %q", got, "light ruck")
	}
	if p.DiscoveryOrder != 0 {
		t.Errorf("discovery order = %d, want 0", p.DiscoveryOrder)
	}
}

func TestResolveInlineExactMatchOnly(t *testing.T) {
	r := newResolver(resolveDoc, nil)

	tests := []struct {
		name   string
		anchor string
	}{
		{"absent text", "heavy ruck"},
		{"case mismatch", "LIGHT RUCK"},
		{"near match", "light  ruck"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, reason, ok := r.resolve(inlineCandidate(tt.anchor, "/gear"))
			if ok {
				t.Fatal("expected candidate to be dropped")
			}
			if reason != models.DropUnresolvableAnchor {
				t.Errorf("reason = %q, want %q", reason, models.DropUnresolvableAnchor)
			}
		})
	}
}

func TestResolveDedup(t *testing.T) {
	r := newResolver(resolveDoc, nil)

	if _, _, ok := r.resolve(inlineCandidate("light ruck", "/gear/rucks")); !ok {
		t.Fatal("first candidate should resolve")
	}

	_, reason, ok := r.resolve(inlineCandidate("boots", "/gear/rucks"))
	if ok || reason != models.DropDuplicateResource {
		t.Errorf("same resource: ok=%v reason=%q, want dropped %q", ok, reason, models.DropDuplicateResource)
	}

	_, reason, ok = r.resolve(inlineCandidate("light ruck", "/other"))
	if ok || reason != models.DropDuplicateAnchor {
		t.Errorf("same anchor: ok=%v reason=%q, want dropped %q", ok, reason, models.DropDuplicateAnchor)
	}

	// A fresh anchor and resource still resolves after the drops above.
	if _, _, ok := r.resolve(inlineCandidate("boots", "/gear/boots")); !ok {
		t.Error("independent candidate should resolve after duplicates were dropped")
	}
}

func TestResolveFailureDoesNotConsumeResource(t *testing.T) {
	r := newResolver(resolveDoc, nil)

	// An unresolvable candidate must not reserve its resource URL.
	if _, _, ok := r.resolve(inlineCandidate("not in document", "/gear/rucks")); ok {
		t.Fatal("expected first candidate to be dropped")
	}
	if _, _, ok := r.resolve(inlineCandidate("light ruck", "/gear/rucks")); !ok {
		t.Error("resource should still be free after a failed resolution")
	}
}

func TestResolveBlock(t *testing.T) {
	catalog := BuildCatalog(resolveDoc)

	h2Open := strings.Index(resolveDoc, "<h2>")
	h2Close := strings.Index(resolveDoc, "</h2>") + len("</h2>")

	tests := []struct {
		name       string
		pos        models.Position
		wantSplice int
	}{
		{"before heading", models.Before, h2Open},
		{"after heading", models.After, h2Close},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newResolver(resolveDoc, catalog)
			p, reason, ok := r.resolve(blockCandidate(2, tt.pos, "https://cdn.example.com/plan.jpg"))
			if !ok {
				t.Fatalf("expected candidate to resolve, got reason %q", reason)
			}
			if p.OriginalStart != tt.wantSplice || p.OriginalEnd != tt.wantSplice {
				t.Errorf("splice = [%d,%d], want zero-width at %d", p.OriginalStart, p.OriginalEnd, tt.wantSplice)
			}
		})
	}
}

func TestResolveBlockParagraph(t *testing.T) {
	catalog := BuildCatalog(resolveDoc)

	// Point 3 is the first paragraph; After lands past its closing tag.
	pOpen := strings.Index(resolveDoc, "<p>")
	pClose := strings.Index(resolveDoc, "</p>") + len("</p>")

	r := newResolver(resolveDoc, catalog)
	p, reason, ok := r.resolve(blockCandidate(3, models.After, "https://cdn.example.com/boots.jpg"))
	if !ok {
		t.Fatalf("expected candidate to resolve, got reason %q", reason)
	}
	if p.OriginalStart != pClose {
		t.Errorf("after-paragraph splice = %d, want %d", p.OriginalStart, pClose)
	}

	r = newResolver(resolveDoc, catalog)
	p, _, ok = r.resolve(blockCandidate(3, models.Before, "https://cdn.example.com/boots.jpg"))
	if !ok {
		t.Fatal("expected candidate to resolve")
	}
	if p.OriginalStart != pOpen {
		t.Errorf("before-paragraph splice = %d, want %d", p.OriginalStart, pOpen)
	}
}

func TestResolveBlockUnknownPoint(t *testing.T) {
	r := newResolver(resolveDoc, BuildCatalog(resolveDoc))
	_, reason, ok := r.resolve(blockCandidate(99, models.Before, "/img"))
	if ok || reason != models.DropUnknownPoint {
		t.Errorf("ok=%v reason=%q, want dropped %q", ok, reason, models.DropUnknownPoint)
	}
}

func TestResolveBlockEchoedHeadingText(t *testing.T) {
	// The heading's words also appear in an earlier paragraph. The splice
	// must land at the cataloged element, not at the echo.
	doc := `<h2>Intro</h2>
<p>Some conclusion remarks appear early here.</p>
<h2>Conclusion</h2>
<p>Wrap up.</p>`
	catalog := BuildCatalog(doc)

	r := newResolver(doc, catalog)
	p, reason, ok := r.resolve(blockCandidate(2, models.Before, "https://cdn.example.com/c.jpg"))
	if !ok {
		t.Fatalf("expected candidate to resolve, got reason %q", reason)
	}
	if want := strings.Index(doc, "<h2>Conclusion"); p.OriginalStart != want {
		t.Errorf("splice = %d, want %d (the Conclusion heading)", p.OriginalStart, want)
	}
}

func TestResolveBlockHeadingWithInnerMarkup(t *testing.T) {
	// Inner markup makes the compacted label absent from the raw document.
	// Resolution works from the cataloged offsets, so the patch still lands.
	doc := `<h2><em>Top</em> Picks</h2><p>Body text.</p>`
	catalog := BuildCatalog(doc)
	if len(catalog) == 0 || catalog[0].Label != "Top Picks" {
		t.Fatalf("unexpected catalog: %+v", catalog)
	}

	r := newResolver(doc, catalog)
	p, reason, ok := r.resolve(blockCandidate(1, models.Before, "/img-a"))
	if !ok {
		t.Fatalf("expected candidate to resolve, got reason %q", reason)
	}
	if p.OriginalStart != 0 {
		t.Errorf("before splice = %d, want 0", p.OriginalStart)
	}

	p, reason, ok = r.resolve(blockCandidate(1, models.After, "/img-b"))
	if !ok {
		t.Fatalf("expected candidate to resolve, got reason %q", reason)
	}
	if want := strings.Index(doc, "<p>"); p.OriginalStart != want {
		t.Errorf("after splice = %d, want %d", p.OriginalStart, want)
	}
}
