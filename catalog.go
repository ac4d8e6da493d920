package augmenter

import (
	"regexp"
	"strings"

	"github.com/ruckquest/augmenter/models"
)

const (
	// labelMaxRunes caps catalog labels so prompts stay readable.
	labelMaxRunes = 100
	// emphasisProbeBytes is how far into a paragraph's markup we look for an
	// opening emphasis tag when deciding whether it starts a section.
	emphasisProbeBytes = 50
)

var (
	headingRe   = regexp.MustCompile(`(?is)<h[1-6][^>]*>(.*?)</h[1-6]\s*>`)
	paragraphRe = regexp.MustCompile(`(?is)<p(?:\s[^>]*)?>(.*?)</p\s*>`)
	tagRe       = regexp.MustCompile(`<[^>]+>`)
	emphasisRe  = regexp.MustCompile(`(?i)<(?:strong|b|em)(?:\s[^>]*)?>`)
)

// BuildCatalog scans the document for heading elements (levels 1-6) and
// section-opening paragraphs and assigns each a stable, 1-based sequential
// ID. Labels are markup-stripped so a suggester can reference a location
// without exact-text matching; entries whose label strips to nothing are
// skipped. Headings are cataloged first, then qualifying paragraphs, each
// group in document order.
func BuildCatalog(doc string) []models.InsertionPoint {
	var points []models.InsertionPoint

	headings := headingRe.FindAllStringSubmatchIndex(doc, -1)
	headingEnds := make([]int, 0, len(headings))
	for _, m := range headings {
		headingEnds = append(headingEnds, m[1])
		label := compactLabel(doc[m[2]:m[3]])
		if label == "" {
			continue
		}
		points = append(points, models.InsertionPoint{
			ID:    len(points) + 1,
			Kind:  models.PointHeading,
			Label: label,
			Start: m[0],
			End:   m[1],
		})
	}

	for _, m := range paragraphRe.FindAllStringSubmatchIndex(doc, -1) {
		inner := doc[m[2]:m[3]]
		if !followsHeading(doc, headingEnds, m[0]) && !emphasisLead(inner) {
			continue
		}
		label := compactLabel(inner)
		if label == "" {
			continue
		}
		points = append(points, models.InsertionPoint{
			ID:    len(points) + 1,
			Kind:  models.PointParagraph,
			Label: label,
			Start: m[0],
			End:   m[1],
		})
	}

	return points
}

// followsHeading reports whether only whitespace separates pos from the end
// of a preceding heading, making the paragraph at pos a section opener.
func followsHeading(doc string, headingEnds []int, pos int) bool {
	for _, end := range headingEnds {
		if end > pos {
			break
		}
		if strings.TrimSpace(doc[end:pos]) == "" {
			return true
		}
	}
	return false
}

// emphasisLead reports whether the paragraph markup opens with bold or
// emphasis within the first ~50 characters.
func emphasisLead(inner string) bool {
	probe := inner
	if len(probe) > emphasisProbeBytes {
		probe = probe[:emphasisProbeBytes]
	}
	return emphasisRe.MatchString(probe)
}

// compactLabel strips markup, collapses whitespace, and truncates to the
// label cap on a rune boundary.
func compactLabel(s string) string {
	s = tagRe.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) > labelMaxRunes {
		s = strings.TrimSpace(string(runes[:labelMaxRunes]))
	}
	return s
}
