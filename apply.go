package augmenter

import (
	"fmt"
	"log"
	"sort"

	"github.com/ruckquest/augmenter/models"
)

// schedule orders resolved patches by ascending original position, breaking
// ties by discovery order, and discards any patch whose range overlaps an
// already scheduled one. Zero-width patches touching a kept patch's end are
// adjacent, not overlapping, and survive.
func schedule(patches []models.ResolvedPatch) ([]models.ResolvedPatch, []models.DroppedPatch) {
	sorted := make([]models.ResolvedPatch, len(patches))
	copy(sorted, patches)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].OriginalStart != sorted[j].OriginalStart {
			return sorted[i].OriginalStart < sorted[j].OriginalStart
		}
		return sorted[i].DiscoveryOrder < sorted[j].DiscoveryOrder
	})

	var (
		kept    []models.ResolvedPatch
		dropped []models.DroppedPatch
		lastEnd int
	)
	for _, p := range sorted {
		if p.OriginalStart < lastEnd {
			dropped = append(dropped, models.DroppedPatch{
				Patch:  p.CandidatePatch,
				Reason: models.DropOverlap,
			})
			continue
		}
		kept = append(kept, p)
		if p.OriginalEnd > lastEnd {
			lastEnd = p.OriginalEnd
		}
	}
	return kept, dropped
}

// Apply splices scheduled patches into doc in one left-to-right pass,
// tracking the cumulative offset so later patches land where their pristine
// coordinates say despite earlier insertions. Patches must already be
// ordered and overlap-free, as schedule produces them. A patch whose
// adjusted range falls outside the working document is skipped, never fatal.
// It returns the augmented document, the patches actually spliced in, and
// the skipped ones.
func Apply(doc string, patches []models.ResolvedPatch) (string, []models.ResolvedPatch, []models.DroppedPatch) {
	var (
		applied []models.ResolvedPatch
		dropped []models.DroppedPatch
	)

	out := doc
	offset := 0
	for _, p := range patches {
		start := p.OriginalStart + offset
		end := p.OriginalEnd + offset
		if start < 0 || end > len(out) || start > end {
			log.Printf("patch at %d..%d out of bounds after offset %d, skipping",
				p.OriginalStart, p.OriginalEnd, offset)
			dropped = append(dropped, models.DroppedPatch{
				Patch:  p.CandidatePatch,
				Reason: models.DropOutOfBounds,
			})
			continue
		}

		insert := renderPatch(p)
		out = out[:start] + insert + out[end:]
		offset += len(insert) - (p.OriginalEnd - p.OriginalStart)
		applied = append(applied, p)
	}
	return out, applied, dropped
}

// renderPatch produces the replacement text for one patch. Inline patches
// wrap the matched anchor text in a link; block patches carry a prebuilt
// media fragment padded with blank lines on the document side.
func renderPatch(p models.ResolvedPatch) string {
	if p.Kind == models.PatchInline {
		return fmt.Sprintf("<a href=%q>%s</a>", p.ResourceURL, p.AnchorText)
	}
	if p.Position == models.Before {
		return p.MediaFragment + "\n\n"
	}
	return "\n\n" + p.MediaFragment
}
