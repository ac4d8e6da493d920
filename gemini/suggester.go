// Package gemini implements patch suggestion on top of Google's Gemini
// models, using structured JSON output so responses parse into typed
// candidates instead of free text.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/ruckquest/augmenter/models"
)

const (
	// DefaultModel balances suggestion quality against per-pass cost.
	DefaultModel = "gemini-2.0-flash"

	// mediaSkipWords is how many leading words of the document are withheld
	// from the media prompt. Media crowded into the opening hurts more than
	// it helps, so the model never sees the intro as placement material.
	mediaSkipWords = 200
)

// MediaResolver turns a model-written description into a concrete, hosted
// resource URL. Implementations generate or search for the asset and upload
// it before returning.
type MediaResolver interface {
	ResolveImage(ctx context.Context, description string) (string, error)
	ResolveVideo(ctx context.Context, description string) (string, error)
}

// Suggester proposes link and media patches via the Gemini API.
type Suggester struct {
	client   *genai.Client
	model    string
	resolver MediaResolver
}

// NewSuggester creates a Gemini-backed suggester. resolver may be nil, in
// which case media suggestions are disabled and SuggestMedia returns empty.
func NewSuggester(ctx context.Context, apiKey, modelName string, resolver MediaResolver) (*Suggester, error) {
	if modelName == "" {
		modelName = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Suggester{
		client:   client,
		model:    modelName,
		resolver: resolver,
	}, nil
}

// Close releases the underlying API client.
func (s *Suggester) Close() error {
	return s.client.Close()
}

var linkSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"anchor_text": {Type: genai.TypeString},
			"target_url":  {Type: genai.TypeString},
			"context":     {Type: genai.TypeString},
			"reasoning":   {Type: genai.TypeString},
		},
		Required: []string{"anchor_text", "target_url", "context", "reasoning"},
	},
}

type linkSuggestion struct {
	AnchorText string `json:"anchor_text"`
	TargetURL  string `json:"target_url"`
	Context    string `json:"context"`
	Reasoning  string `json:"reasoning"`
}

// SuggestLinks asks the model for internal links within one window. The
// available pages are shuffled per call to eliminate position bias in the
// model's choices.
func (s *Suggester) SuggestLinks(ctx context.Context, window models.Window, pages []models.PageRef) ([]models.CandidatePatch, error) {
	if len(pages) == 0 {
		return nil, nil
	}

	shuffled := make([]models.PageRef, len(pages))
	copy(shuffled, pages)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	pagesJSON, err := json.MarshalIndent(shuffled, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling pages: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("You are an expert content editor specializing in internal linking. ")
	sb.WriteString("Analyze this content and suggest high-value internal links from our available pages.\n\n")
	sb.WriteString("Available pages:\n")
	sb.Write(pagesJSON)
	sb.WriteString("\n\nContent to analyze:\n")
	sb.WriteString(window.Text)
	sb.WriteString("\n\nRules:\n")
	sb.WriteString("- The anchor_text must exactly match a contiguous run of text in the content, character for character.\n")
	sb.WriteString("- Never suggest anchor text that sits inside an HTML tag or an existing link.\n")
	sb.WriteString("- The target_url must come from the available pages list.\n")
	sb.WriteString("- Suggest at most 3 links, only where they genuinely help the reader.\n")

	gm := s.client.GenerativeModel(s.model)
	gm.ResponseMIMEType = "application/json"
	gm.ResponseSchema = linkSchema

	resp, err := gm.GenerateContent(ctx, genai.Text(sb.String()))
	if err != nil {
		return nil, fmt.Errorf("link suggestion call failed: %w", err)
	}

	return ParseLinkSuggestions(responseText(resp)), nil
}

// ParseLinkSuggestions decodes the model's JSON into inline candidates.
// Malformed payloads yield an empty list, never an error.
func ParseLinkSuggestions(raw string) []models.CandidatePatch {
	var suggestions []linkSuggestion
	if err := json.Unmarshal([]byte(raw), &suggestions); err != nil {
		log.Printf("discarding unparseable link suggestions: %v", err)
		return nil
	}

	var candidates []models.CandidatePatch
	for _, sg := range suggestions {
		if sg.AnchorText == "" || sg.TargetURL == "" {
			log.Printf("discarding incomplete link suggestion: %+v", sg)
			continue
		}
		candidates = append(candidates, models.CandidatePatch{
			Kind:        models.PatchInline,
			AnchorText:  sg.AnchorText,
			LinkLabel:   sg.Context,
			ResourceURL: sg.TargetURL,
		})
	}
	return candidates
}

var mediaSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"locationId": {Type: genai.TypeInteger},
			"position": {
				Type: genai.TypeString,
				Enum: []string{"before", "after"},
			},
			"mediaType": {
				Type: genai.TypeString,
				Enum: []string{"image", "video"},
			},
			"description": {Type: genai.TypeString},
		},
		Required: []string{"locationId", "position", "mediaType", "description"},
	},
}

type MediaPlacement struct {
	LocationID  int    `json:"locationId"`
	Position    string `json:"position"`
	MediaType   string `json:"mediaType"`
	Description string `json:"description"`
}

// SuggestMedia asks the model where images and videos belong, then resolves
// each description to a hosted asset. Placements whose resolution fails are
// skipped, not fatal.
func (s *Suggester) SuggestMedia(ctx context.Context, doc string, catalog []models.InsertionPoint) ([]models.CandidatePatch, error) {
	if s.resolver == nil || len(catalog) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("You are an expert content editor deciding where visual media belongs in an article.\n\n")
	sb.WriteString("Available insertion points:\n")
	for _, p := range catalog {
		fmt.Fprintf(&sb, "ID %d (%s): %s\n", p.ID, p.Kind, p.Label)
	}
	sb.WriteString("\nArticle content:\n")
	sb.WriteString(trimLeadingWords(doc, mediaSkipWords))
	sb.WriteString("\n\nRules:\n")
	sb.WriteString("- locationId must be one of the IDs listed above.\n")
	sb.WriteString("- position is \"before\" or \"after\" the named location.\n")
	sb.WriteString("- Describe each asset concretely enough to generate or search for it.\n")
	sb.WriteString("- Suggest at most 3 placements, spread through the article.\n")

	gm := s.client.GenerativeModel(s.model)
	gm.ResponseMIMEType = "application/json"
	gm.ResponseSchema = mediaSchema

	resp, err := gm.GenerateContent(ctx, genai.Text(sb.String()))
	if err != nil {
		return nil, fmt.Errorf("media suggestion call failed: %w", err)
	}

	var candidates []models.CandidatePatch
	for _, placement := range ParseMediaPlacements(responseText(resp)) {
		c, err := s.resolvePlacement(ctx, placement)
		if err != nil {
			log.Printf("skipping media placement at point %d: %v", placement.LocationID, err)
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// ParseMediaPlacements decodes the model's JSON placement list. Malformed
// payloads and entries with out-of-range enums yield nothing.
func ParseMediaPlacements(raw string) []MediaPlacement {
	var placements []MediaPlacement
	if err := json.Unmarshal([]byte(raw), &placements); err != nil {
		log.Printf("discarding unparseable media placements: %v", err)
		return nil
	}

	valid := placements[:0]
	for _, p := range placements {
		if p.LocationID < 1 || p.Description == "" {
			log.Printf("discarding incomplete media placement: %+v", p)
			continue
		}
		if p.Position != "before" && p.Position != "after" {
			log.Printf("discarding media placement with position %q", p.Position)
			continue
		}
		if p.MediaType != "image" && p.MediaType != "video" {
			log.Printf("discarding media placement with mediaType %q", p.MediaType)
			continue
		}
		valid = append(valid, p)
	}
	return valid
}

func (s *Suggester) resolvePlacement(ctx context.Context, p MediaPlacement) (models.CandidatePatch, error) {
	c := models.CandidatePatch{
		Kind:             models.PatchBlock,
		InsertionPointID: p.LocationID,
		Position:         models.Position(p.Position),
	}

	switch p.MediaType {
	case "image":
		url, err := s.resolver.ResolveImage(ctx, p.Description)
		if err != nil {
			return models.CandidatePatch{}, err
		}
		c.ResourceKind = models.ResourceImage
		c.ResourceURL = url
		c.MediaFragment = fmt.Sprintf("<img src=%q alt=%q>", url, p.Description)
	case "video":
		url, err := s.resolver.ResolveVideo(ctx, p.Description)
		if err != nil {
			return models.CandidatePatch{}, err
		}
		c.ResourceKind = models.ResourceVideo
		c.ResourceURL = url
		c.MediaFragment = "[embed]" + url + "[/embed]"
	}
	return c, nil
}

// trimLeadingWords drops the first n whitespace-separated words of s.
func trimLeadingWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[n:], " ")
}

// responseText extracts the first text part of a generation response.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return ""
	}
	if text, ok := content.Parts[0].(genai.Text); ok {
		return string(text)
	}
	return fmt.Sprintf("%v", content.Parts[0])
}
