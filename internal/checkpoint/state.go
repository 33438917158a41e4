// Package checkpoint persists per-document progress so interrupted runs
// resume instead of restarting. Each completed section leaves a summary
// artifact on disk plus an entry in a JSON state file; the artifacts
// alone are enough to rebuild the state if the JSON is lost.
package checkpoint

import (
	"sort"
	"time"
)

// State records which sections of a document are done and under which
// content fingerprints and model they were produced.
type State struct {
	DocumentID    string         `json:"document_id"`
	TotalSections int            `json:"total_sections"`
	Completed     []int          `json:"completed"`
	Fingerprints  map[int]string `json:"fingerprints"`
	Model         string         `json:"model"`
	// SynthesisFingerprint is the combined section fingerprint the
	// stored global synthesis was produced from, empty if none.
	SynthesisFingerprint string    `json:"synthesis_fingerprint,omitempty"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func NewState(documentID string, totalSections int, model string) *State {
	return &State{
		DocumentID:    documentID,
		TotalSections: totalSections,
		Fingerprints:  make(map[int]string),
		Model:         model,
	}
}

// IsCompleted reports whether section index is recorded as done.
func (s *State) IsCompleted(index int) bool {
	for _, c := range s.Completed {
		if c == index {
			return true
		}
	}
	return false
}

// MarkCompleted records a section as done under the given fingerprint.
func (s *State) MarkCompleted(index int, fingerprint string) {
	if !s.IsCompleted(index) {
		s.Completed = append(s.Completed, index)
		sort.Ints(s.Completed)
	}
	s.Fingerprints[index] = fingerprint
}

// Invalidate drops every completion record. Used when the configured
// model no longer matches the one that produced the summaries.
func (s *State) Invalidate() {
	s.Completed = nil
	s.Fingerprints = make(map[int]string)
	s.SynthesisFingerprint = ""
}

// IsComplete reports whether every section is done.
func (s *State) IsComplete() bool {
	return s.TotalSections > 0 && len(s.Completed) == s.TotalSections
}
