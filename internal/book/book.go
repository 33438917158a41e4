// Package book orchestrates the summarization of one document: resume
// from checkpoints, summarize the sections that need work, synthesize,
// and render.
package book

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"bookbrief/internal/checkpoint"
	"bookbrief/internal/render"
	"bookbrief/internal/source"
	"bookbrief/internal/summarizer"
)

// Status is the terminal state of a document run.
type Status string

const (
	// StatusDone means every section is summarized and output written.
	StatusDone Status = "done"
	// StatusAborted means at least one section failed or the run was
	// cancelled. Completed sections are checkpointed for next time.
	StatusAborted Status = "aborted"
)

// Result reports what happened to one document.
type Result struct {
	DocumentID        string
	Status            Status
	SectionsCompleted int
	SectionsResumed   int
	SectionsFailed    int
	Err               error
}

// Orchestrator runs the full pipeline for one document.
type Orchestrator struct {
	summarizer summarizer.Summarizer
	store      *checkpoint.Store
	renderers  []render.Renderer
	model      string
	logger     *zap.Logger
}

func NewOrchestrator(sum summarizer.Summarizer, store *checkpoint.Store,
	renderers []render.Renderer, model string, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		summarizer: sum,
		store:      store,
		renderers:  renderers,
		model:      model,
		logger:     logger,
	}
}

// Process summarizes a document, resuming from any previous run. A
// failed section is logged and skipped so the rest of the document
// still makes progress; synthesis and rendering only happen once every
// section is complete.
func (o *Orchestrator) Process(ctx context.Context, doc *source.Document) *Result {
	result := &Result{DocumentID: doc.ID, Status: StatusAborted}
	log := o.logger.With(zap.String("document", doc.ID))

	state, err := o.store.Load(doc.ID, len(doc.Sections), o.model)
	if err != nil {
		result.Err = fmt.Errorf("book: %w", err)
		return result
	}

	if state.Model != "" && state.Model != o.model {
		log.Info("model changed, discarding previous completions",
			zap.String("previous", state.Model),
			zap.String("current", o.model))
		state.Invalidate()
	}
	state.Model = o.model

	summaries := make([]summarizer.SectionSummary, 0, len(doc.Sections))
	for _, sec := range doc.Sections {
		if err := ctx.Err(); err != nil {
			result.Err = err
			return result
		}

		fp := checkpoint.Fingerprint(sec.Text)

		if o.store.IsUpToDate(state, sec.Index, fp) {
			text, err := o.store.ReadSummary(doc.ID, sec.Index)
			if err != nil {
				result.Err = fmt.Errorf("book: %w", err)
				return result
			}
			log.Info("section already summarized, skipping",
				zap.Int("section", sec.Index),
				zap.String("title", sec.Title))
			summaries = append(summaries, summarizer.SectionSummary{
				Index: sec.Index, Title: sec.Title, Fingerprint: fp, Text: text,
			})
			result.SectionsResumed++
			continue
		}

		log.Info("summarizing section",
			zap.Int("section", sec.Index),
			zap.String("title", sec.Title))

		text, err := o.summarizer.SummarizeSection(ctx, sec)
		if err != nil {
			if ctx.Err() != nil {
				result.Err = ctx.Err()
				return result
			}
			log.Error("section failed", zap.Int("section", sec.Index), zap.Error(err))
			result.SectionsFailed++
			result.Err = err
			continue
		}

		if err := o.store.RecordCompletion(state, sec.Index, sec.Title, fp, text); err != nil {
			result.Err = fmt.Errorf("book: %w", err)
			return result
		}
		summaries = append(summaries, summarizer.SectionSummary{
			Index: sec.Index, Title: sec.Title, Fingerprint: fp, Text: text,
		})
		result.SectionsCompleted++
	}

	if !state.IsComplete() {
		log.Warn("document incomplete",
			zap.Int("completed", len(state.Completed)),
			zap.Int("total", state.TotalSections))
		return result
	}

	fps := make([]string, len(summaries))
	for i, s := range summaries {
		fps[i] = s.Fingerprint
	}
	synthFP := checkpoint.CombinedFingerprint(fps)

	var synthesis string
	if o.store.SynthesisUpToDate(state, synthFP) {
		synthesis, err = o.store.ReadSynthesis(doc.ID)
		if err != nil {
			result.Err = fmt.Errorf("book: %w", err)
			return result
		}
		log.Info("synthesis already produced, skipping")
	} else {
		synthesis, err = o.summarizer.Synthesize(ctx, doc.Title, summaries)
		if err != nil {
			result.Err = fmt.Errorf("book: %w", err)
			return result
		}
		if err := o.store.RecordSynthesis(state, synthFP, synthesis); err != nil {
			result.Err = fmt.Errorf("book: %w", err)
			return result
		}
	}

	out := &render.Summary{
		DocumentID: doc.ID,
		Title:      doc.Title,
		Model:      o.model,
		Sections:   summaries,
		Synthesis:  synthesis,
	}
	// One failing renderer does not stop the others.
	var renderErr error
	for _, r := range o.renderers {
		if err := r.Render(out); err != nil {
			log.Error("renderer failed", zap.String("renderer", r.Name()), zap.Error(err))
			renderErr = err
		}
	}
	if renderErr != nil {
		result.Err = fmt.Errorf("book: %w", renderErr)
		return result
	}

	result.Status = StatusDone
	result.Err = nil
	return result
}
