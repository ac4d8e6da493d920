package augmenter

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/ruckquest/augmenter/models"
)

const (
	// DefaultWindowWords is the window size handed to the link suggester.
	// Large enough for surrounding context, small enough that anchor text
	// suggestions stay grounded in nearby prose.
	DefaultWindowWords = 500

	// DefaultSuggestWorkers bounds concurrent link-suggestion calls.
	DefaultSuggestWorkers = 4
)

// Suggester proposes candidate patches for a document. Implementations make
// remote calls; both methods must honour ctx. Returned candidates are taken
// in slice order, which the engine treats as the suggester's preference
// ranking within one call.
type Suggester interface {
	// SuggestLinks proposes inline link patches for one window of the
	// document, choosing targets from pages.
	SuggestLinks(ctx context.Context, window models.Window, pages []models.PageRef) ([]models.CandidatePatch, error)

	// SuggestMedia proposes block media patches for the whole document,
	// referencing insertion points from the catalog by ID.
	SuggestMedia(ctx context.Context, doc string, catalog []models.InsertionPoint) ([]models.CandidatePatch, error)
}

// Config holds the engine's tunables.
type Config struct {
	// WindowWords is the word count per link-suggestion window.
	WindowWords int

	// SuggestWorkers is the number of concurrent SuggestLinks calls.
	SuggestWorkers int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		WindowWords:    DefaultWindowWords,
		SuggestWorkers: DefaultSuggestWorkers,
	}
}

// Engine runs augmentation passes: it windows a document, collects candidate
// patches from the suggester, resolves them against the pristine text, and
// applies the survivors in one offset-tracked pass.
type Engine struct {
	config    Config
	suggester Suggester
	pages     []models.PageRef
}

// New creates an Engine. pages is the link-target universe for this pass;
// the engine never mutates it.
func New(config Config, suggester Suggester, pages []models.PageRef) *Engine {
	if config.WindowWords <= 0 {
		config.WindowWords = DefaultWindowWords
	}
	if config.SuggestWorkers <= 0 {
		config.SuggestWorkers = DefaultSuggestWorkers
	}
	return &Engine{
		config:    config,
		suggester: suggester,
		pages:     pages,
	}
}

// linkResult pairs one window's suggestions with its index so concurrent
// collection can be reassembled in window order.
type linkResult struct {
	index      int
	candidates []models.CandidatePatch
	err        error
}

// Augment runs one augmentation pass over doc and returns the augmented
// document plus a report of applied and dropped patches. Suggester failures
// degrade to warnings; the only errors returned are context cancellation.
// The output is deterministic for a given document, page set, and suggester
// output, regardless of the order concurrent suggestion calls complete in.
func (e *Engine) Augment(ctx context.Context, doc string) (string, *models.Report, error) {
	windows := SplitWindows(doc, e.config.WindowWords)
	catalog := BuildCatalog(doc)

	report := &models.Report{
		Windows: len(windows),
		Catalog: len(catalog),
	}

	linkResults, mediaCandidates, warnings := e.collect(ctx, doc, windows, catalog)
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	report.Warnings = warnings

	// Discovery order is fixed before resolution begins: every inline
	// candidate in window order, then every block candidate. Completion
	// order of the concurrent calls above never leaks into it.
	var candidates []models.CandidatePatch
	for _, r := range linkResults {
		candidates = append(candidates, r...)
	}
	candidates = append(candidates, mediaCandidates...)

	res := newResolver(doc, catalog)
	var resolved []models.ResolvedPatch
	for _, c := range candidates {
		if err := c.Validate(); err != nil {
			log.Printf("discarding malformed candidate: %v", err)
			report.Dropped = append(report.Dropped, models.DroppedPatch{
				Patch:  c,
				Reason: models.DropMalformed,
			})
			continue
		}
		p, reason, ok := res.resolve(c)
		if !ok {
			report.Dropped = append(report.Dropped, models.DroppedPatch{
				Patch:  c,
				Reason: reason,
			})
			continue
		}
		resolved = append(resolved, p)
	}

	scheduled, overlaps := schedule(resolved)
	report.Dropped = append(report.Dropped, overlaps...)

	out, applied, oob := Apply(doc, scheduled)
	report.Applied = applied
	report.Dropped = append(report.Dropped, oob...)

	return out, report, nil
}

// collect fans per-window link suggestions out over a bounded worker pool
// and runs the whole-document media suggestion alongside. Results come back
// slotted by window index so the caller sees a deterministic order.
func (e *Engine) collect(ctx context.Context, doc string, windows []models.Window, catalog []models.InsertionPoint) ([][]models.CandidatePatch, []models.CandidatePatch, []string) {
	linkResults := make([][]models.CandidatePatch, len(windows))

	jobs := make(chan int, len(windows))
	results := make(chan linkResult, len(windows))

	var wg sync.WaitGroup
	workers := e.config.SuggestWorkers
	if workers > len(windows) {
		workers = len(windows)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				cands, err := e.suggester.SuggestLinks(ctx, windows[i], e.pages)
				results <- linkResult{index: i, candidates: cands, err: err}
			}
		}()
	}
	for i := range windows {
		jobs <- i
	}
	close(jobs)

	var (
		mediaCandidates []models.CandidatePatch
		mediaErr        error
		mediaDone       = make(chan struct{})
	)
	go func() {
		defer close(mediaDone)
		mediaCandidates, mediaErr = e.suggester.SuggestMedia(ctx, doc, catalog)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var warnings []string
	for r := range results {
		if r.err != nil {
			log.Printf("link suggestion for window %d failed: %v", r.index, r.err)
			warnings = append(warnings, fmt.Sprintf("window %d link suggestion failed: %v", r.index, r.err))
			continue
		}
		linkResults[r.index] = r.candidates
	}

	<-mediaDone
	if mediaErr != nil {
		log.Printf("media suggestion failed: %v", mediaErr)
		warnings = append(warnings, fmt.Sprintf("media suggestion failed: %v", mediaErr))
		mediaCandidates = nil
	}

	return linkResults, mediaCandidates, warnings
}
