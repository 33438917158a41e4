// Package render writes finished document summaries to their output
// destinations.
package render

import (
	"bookbrief/internal/summarizer"
)

// Summary is a fully summarized document ready for output.
type Summary struct {
	DocumentID string
	Title      string
	Model      string
	Sections   []summarizer.SectionSummary
	Synthesis  string
}

// Renderer writes a document summary somewhere.
type Renderer interface {
	Render(summary *Summary) error
	Name() string
}
