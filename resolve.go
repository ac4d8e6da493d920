package augmenter

import (
	"strings"

	"github.com/ruckquest/augmenter/models"
)

// resolver maps candidate patches onto concrete offsets in the pristine
// document and enforces pass-scoped uniqueness of anchors and resources.
// It is not safe for concurrent use; candidates must be fed sequentially in
// discovery order so the earliest duplicate always wins.
type resolver struct {
	doc     string
	catalog map[int]models.InsertionPoint

	usedAnchors   map[string]bool
	usedResources map[string]bool
	next          int
}

func newResolver(doc string, catalog []models.InsertionPoint) *resolver {
	byID := make(map[int]models.InsertionPoint, len(catalog))
	for _, p := range catalog {
		byID[p.ID] = p
	}
	return &resolver{
		doc:           doc,
		catalog:       byID,
		usedAnchors:   make(map[string]bool),
		usedResources: make(map[string]bool),
	}
}

// resolve pins one candidate to offsets in the pristine document. The bool
// result reports success; on failure the drop reason explains the discard.
// Every candidate consumes a discovery-order slot whether or not it resolves,
// so ordering stays stable across identical candidate multisets.
func (r *resolver) resolve(c models.CandidatePatch) (models.ResolvedPatch, models.DropReason, bool) {
	order := r.next
	r.next++

	switch c.Kind {
	case models.PatchInline:
		return r.resolveInline(c, order)
	case models.PatchBlock:
		return r.resolveBlock(c, order)
	default:
		return models.ResolvedPatch{}, models.DropMalformed, false
	}
}

// resolveInline finds the first literal, case-sensitive occurrence of the
// anchor text. No fuzzy or regex fallback: a missed enhancement is
// preferable to a silently wrong one.
func (r *resolver) resolveInline(c models.CandidatePatch, order int) (models.ResolvedPatch, models.DropReason, bool) {
	start := strings.Index(r.doc, c.AnchorText)
	if start == -1 {
		return models.ResolvedPatch{}, models.DropUnresolvableAnchor, false
	}
	if r.usedResources[c.ResourceURL] {
		return models.ResolvedPatch{}, models.DropDuplicateResource, false
	}
	if r.usedAnchors[c.AnchorText] {
		return models.ResolvedPatch{}, models.DropDuplicateAnchor, false
	}

	r.usedResources[c.ResourceURL] = true
	r.usedAnchors[c.AnchorText] = true

	return models.ResolvedPatch{
		CandidatePatch: c,
		OriginalStart:  start,
		OriginalEnd:    start + len(c.AnchorText),
		DiscoveryOrder: order,
	}, "", true
}

// resolveBlock looks up the insertion point and splices at the element
// offsets the catalog recorded, yielding an empty range on the requested
// side. Label text plays no part here; it exists for the suggester, and
// searching for it could land on an unrelated echo of the same words.
func (r *resolver) resolveBlock(c models.CandidatePatch, order int) (models.ResolvedPatch, models.DropReason, bool) {
	point, ok := r.catalog[c.InsertionPointID]
	if !ok {
		return models.ResolvedPatch{}, models.DropUnknownPoint, false
	}
	if r.usedResources[c.ResourceURL] {
		return models.ResolvedPatch{}, models.DropDuplicateResource, false
	}

	splice := point.Start
	if c.Position == models.After {
		splice = point.End
	}

	r.usedResources[c.ResourceURL] = true

	return models.ResolvedPatch{
		CandidatePatch: c,
		OriginalStart:  splice,
		OriginalEnd:    splice,
		DiscoveryOrder: order,
	}, "", true
}
