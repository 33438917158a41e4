// Package summarizer turns document sections into summaries by mapping
// the backend over chunks and reducing the partial results.
package summarizer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"bookbrief/internal/chunker"
	"bookbrief/internal/generate"
	"bookbrief/internal/source"
)

// SectionSummary is the finished summary of one section.
type SectionSummary struct {
	Index       int
	Title       string
	Fingerprint string
	Text        string
}

// Summarizer produces section summaries and whole-document syntheses.
type Summarizer interface {
	SummarizeSection(ctx context.Context, sec source.Section) (string, error)
	Synthesize(ctx context.Context, docTitle string, summaries []SectionSummary) (string, error)
}

// Reducer implements Summarizer with a map/reduce pass over chunks.
// Chunks of a section are summarized sequentially; a single failed
// chunk fails the whole section so no partial summary is ever recorded.
type Reducer struct {
	gen          generate.Generator
	language     string
	maxChars     int
	overlapChars int
	sampleRatio  float64
	opts         generate.Options
	logger       *zap.Logger
}

func NewReducer(gen generate.Generator, language string, maxChars, overlapChars int,
	sampleRatio float64, opts generate.Options, logger *zap.Logger) *Reducer {
	return &Reducer{
		gen:          gen,
		language:     language,
		maxChars:     maxChars,
		overlapChars: overlapChars,
		sampleRatio:  sampleRatio,
		opts:         opts,
		logger:       logger,
	}
}

func (r *Reducer) SummarizeSection(ctx context.Context, sec source.Section) (string, error) {
	chunks := chunker.SplitSample(sec.Text, r.maxChars, r.overlapChars, r.sampleRatio)
	if len(chunks) == 0 {
		return "", fmt.Errorf("summarizer: section %d %q has no text", sec.Index, sec.Title)
	}

	if len(chunks) == 1 {
		text, err := r.gen.Complete(ctx, SectionPrompt(r.language, sec.Title, chunks[0]), r.opts)
		if err != nil {
			return "", fmt.Errorf("summarizer: section %d %q: %w", sec.Index, sec.Title, err)
		}
		return text, nil
	}

	r.logger.Info("mapping section chunks",
		zap.Int("section", sec.Index),
		zap.String("title", sec.Title),
		zap.Int("chunks", len(chunks)))

	partials := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		prompt := MapPrompt(r.language, sec.Title, chunk, i+1, len(chunks))
		text, err := r.gen.Complete(ctx, prompt, r.opts)
		if err != nil {
			return "", fmt.Errorf("summarizer: section %d %q chunk %d/%d: %w",
				sec.Index, sec.Title, i+1, len(chunks), err)
		}
		partials = append(partials, text)
	}

	merged, err := r.gen.Complete(ctx, ReducePrompt(r.language, sec.Title, partials), r.opts)
	if err != nil {
		return "", fmt.Errorf("summarizer: section %d %q reduce: %w", sec.Index, sec.Title, err)
	}
	return merged, nil
}

func (r *Reducer) Synthesize(ctx context.Context, docTitle string, summaries []SectionSummary) (string, error) {
	if len(summaries) == 0 {
		return "", fmt.Errorf("summarizer: nothing to synthesize for %q", docTitle)
	}

	text, err := r.gen.Complete(ctx, GlobalPrompt(r.language, docTitle, summaries), r.opts)
	if err != nil {
		return "", fmt.Errorf("summarizer: synthesis of %q: %w", docTitle, err)
	}
	return text, nil
}
