package augmenter

import (
	"strings"
	"testing"

	"github.com/ruckquest/augmenter/models"
)

func TestBuildCatalog(t *testing.T) {
	doc := `<h1>Rucking 101</h1>
<p>Rucking is walking with a weighted pack.</p>
<h2 class="sub">Choosing a <em>Pack</em></h2>
<p>Any sturdy backpack works to start.</p>
<p><strong>Weight matters:</strong> begin light and add gradually.</p>
<p>This paragraph neither follows a heading nor opens with emphasis, so it is skipped.</p>`

	points := BuildCatalog(doc)

	want := []struct {
		kind  models.InsertionPointKind
		label string
		elem  string
	}{
		{models.PointHeading, "Rucking 101", `<h1>Rucking 101</h1>`},
		{models.PointHeading, "Choosing a Pack", `<h2 class="sub">Choosing a <em>Pack</em></h2>`},
		{models.PointParagraph, "Rucking is walking with a weighted pack.", `<p>Rucking is walking with a weighted pack.</p>`},
		{models.PointParagraph, "Any sturdy backpack works to start.", `<p>Any sturdy backpack works to start.</p>`},
		{models.PointParagraph, "Weight matters: begin light and add gradually.", `<p><strong>Weight matters:</strong> begin light and add gradually.</p>`},
	}

	if len(points) != len(want) {
		t.Fatalf("got %d points, want %d: %+v", len(points), len(want), points)
	}
	for i, p := range points {
		if p.ID != i+1 {
			t.Errorf("point %d has ID %d, want %d", i, p.ID, i+1)
		}
		if p.Kind != want[i].kind || p.Label != want[i].label {
			t.Errorf("point %d = %s %q, want %s %q", i, p.Kind, p.Label, want[i].kind, want[i].label)
		}
		if got := doc[p.Start:p.End]; got != want[i].elem {
			t.Errorf("point %d offsets cover %q, want %q", i, got, want[i].elem)
		}
	}
}

func TestBuildCatalogSkipsEmptyLabels(t *testing.T) {
	doc := `<h2>   </h2><h2><img src="x.png"></h2><h3>Real Heading</h3>`
	points := BuildCatalog(doc)
	if len(points) != 1 {
		t.Fatalf("got %d points, want 1: %+v", len(points), points)
	}
	if points[0].Label != "Real Heading" || points[0].ID != 1 {
		t.Errorf("got %+v, want id 1 label %q", points[0], "Real Heading")
	}
}

func TestBuildCatalogTruncatesLabels(t *testing.T) {
	long := strings.Repeat("very long heading text ", 20)
	doc := "<h1>" + long + "</h1>"
	points := BuildCatalog(doc)
	if len(points) != 1 {
		t.Fatalf("got %d points, want 1", len(points))
	}
	if n := len([]rune(points[0].Label)); n > labelMaxRunes {
		t.Errorf("label is %d runes, cap is %d", n, labelMaxRunes)
	}
	if strings.HasSuffix(points[0].Label, " ") {
		t.Error("truncated label has trailing whitespace")
	}
}

func TestBuildCatalogCollapsesWhitespace(t *testing.T) {
	doc := "<h2>Load\n\t  Management</h2>"
	points := BuildCatalog(doc)
	if len(points) != 1 || points[0].Label != "Load Management" {
		t.Fatalf("got %+v, want single point labelled %q", points, "Load Management")
	}
}

func TestBuildCatalogEmphasisBeyondProbe(t *testing.T) {
	// Emphasis that starts past the probe prefix does not make the
	// paragraph a section opener.
	pad := strings.Repeat("x", emphasisProbeBytes)
	doc := "<p>" + pad + "<strong>late bold</strong></p>"
	if points := BuildCatalog(doc); len(points) != 0 {
		t.Fatalf("got %d points, want 0: %+v", len(points), points)
	}
}

func TestBuildCatalogAttributedEmphasis(t *testing.T) {
	doc := `<p><strong class="lead">Key point:</strong> attributed openers count too.</p>`
	points := BuildCatalog(doc)
	if len(points) != 1 {
		t.Fatalf("got %d points, want 1: %+v", len(points), points)
	}
	if points[0].Kind != models.PointParagraph {
		t.Errorf("kind = %s, want %s", points[0].Kind, models.PointParagraph)
	}
}

func TestBuildCatalogEmptyDocument(t *testing.T) {
	if points := BuildCatalog(""); len(points) != 0 {
		t.Fatalf("got %d points for empty document, want 0", len(points))
	}
}
