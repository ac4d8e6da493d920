package models

import (
	"fmt"
	"strings"
	"time"
)

// PatchKind discriminates the two patch variants.
type PatchKind string

const (
	PatchInline PatchKind = "inline" // anchor-text replacement with a link
	PatchBlock  PatchKind = "block"  // media fragment spliced around an element
)

// Position says which side of an insertion point a block patch lands on.
type Position string

const (
	Before Position = "before"
	After  Position = "after"
)

// ResourceKind is the media type of a block patch.
type ResourceKind string

const (
	ResourceImage ResourceKind = "image"
	ResourceVideo ResourceKind = "video"
)

// InsertionPointKind is the structural element an insertion point names.
type InsertionPointKind string

const (
	PointHeading   InsertionPointKind = "heading"
	PointParagraph InsertionPointKind = "paragraph"
)

// Window is a word-aligned slice of the document handed to the link
// suggester. Char offsets index into the pristine document.
type Window struct {
	StartWord int    `json:"start_word"`
	EndWord   int    `json:"end_word"` // exclusive
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"` // exclusive
	Text      string `json:"text"`
}

// InsertionPoint is an addressable structural anchor (heading or
// section-opening paragraph) the media suggester can reference by ID
// without needing exact-text matching. IDs are 1-based and stable for
// the lifetime of one augmentation pass.
type InsertionPoint struct {
	ID    int                `json:"id"`
	Kind  InsertionPointKind `json:"kind"`
	Label string             `json:"label"` // markup-stripped, never empty

	// Start and End are the element's offsets in the pristine document,
	// from the opening tag to just past the closing tag.
	Start int `json:"start"`
	End   int `json:"end"`
}

// PageRef is a published page available as an internal link target.
type PageRef struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// CandidatePatch is one suggested change, produced by a suggester call and
// consumed immediately by the resolver. The Kind field selects which of the
// remaining fields are meaningful.
type CandidatePatch struct {
	Kind PatchKind `json:"kind"`

	// inline fields
	AnchorText string `json:"anchor_text,omitempty"`
	LinkLabel  string `json:"link_label,omitempty"` // suggester's stated context, informational

	// block fields
	InsertionPointID int          `json:"insertion_point_id,omitempty"`
	Position         Position     `json:"position,omitempty"`
	ResourceKind     ResourceKind `json:"resource_kind,omitempty"`
	MediaFragment    string       `json:"media_fragment,omitempty"`

	// ResourceURL identifies the linked or embedded resource for both kinds;
	// no two applied patches may share one.
	ResourceURL string `json:"resource_url"`
}

// Validate checks the patch has every field its kind requires. Suggester
// output that fails validation is treated as absent, never as a fatal error.
func (p CandidatePatch) Validate() error {
	if p.ResourceURL == "" {
		return fmt.Errorf("missing resource_url")
	}
	switch p.Kind {
	case PatchInline:
		if strings.TrimSpace(p.AnchorText) == "" {
			return fmt.Errorf("inline patch missing anchor_text")
		}
	case PatchBlock:
		if p.InsertionPointID < 1 {
			return fmt.Errorf("block patch has invalid insertion_point_id %d", p.InsertionPointID)
		}
		if p.Position != Before && p.Position != After {
			return fmt.Errorf("block patch has invalid position %q", p.Position)
		}
		if p.ResourceKind != ResourceImage && p.ResourceKind != ResourceVideo {
			return fmt.Errorf("block patch has invalid resource_kind %q", p.ResourceKind)
		}
		if strings.TrimSpace(p.MediaFragment) == "" {
			return fmt.Errorf("block patch missing media_fragment")
		}
	default:
		return fmt.Errorf("unknown patch kind %q", p.Kind)
	}
	return nil
}

// ResolvedPatch is a candidate pinned to concrete offsets in the pristine
// document. For block patches the range is empty (start == end), marking a
// pure insertion point.
type ResolvedPatch struct {
	CandidatePatch
	OriginalStart  int `json:"original_start"`
	OriginalEnd    int `json:"original_end"` // exclusive
	DiscoveryOrder int `json:"discovery_order"`
}

// DropReason classifies why a candidate did not survive resolution.
type DropReason string

const (
	DropUnresolvableAnchor DropReason = "unresolvable_anchor"
	DropDuplicateResource  DropReason = "duplicate_resource"
	DropDuplicateAnchor    DropReason = "duplicate_anchor"
	DropUnknownPoint       DropReason = "unknown_insertion_point"
	DropMalformed          DropReason = "malformed"
	DropOverlap            DropReason = "overlap"
	DropOutOfBounds        DropReason = "out_of_bounds"
)

// DroppedPatch records a discarded candidate for the pass report.
type DroppedPatch struct {
	Patch  CandidatePatch `json:"patch"`
	Reason DropReason     `json:"reason"`
}

// Report summarizes one augmentation pass.
type Report struct {
	Applied  []ResolvedPatch `json:"applied"`
	Dropped  []DroppedPatch  `json:"dropped,omitempty"`
	Windows  int             `json:"windows"`
	Catalog  int             `json:"catalog_entries"`
	Warnings []string        `json:"warnings,omitempty"` // non-fatal suggester issues
}

// Run is a persisted augmentation pass: both document versions (archived by
// key), the report, and bookkeeping for the API.
type Run struct {
	ID             string    `json:"id"`
	BaseURL        string    `json:"base_url"`
	Slug           string    `json:"slug,omitempty"`
	PristineKey    string    `json:"pristine_key,omitempty"`  // storage key of the v0 document
	AugmentedKey   string    `json:"augmented_key,omitempty"` // storage key of the v1 document
	Document       string    `json:"document,omitempty"`      // augmented HTML, inline in API responses
	Report         Report    `json:"report"`
	ProcessingTime float64   `json:"processing_time_seconds"`
	CreatedAt      time.Time `json:"created_at"`
}
