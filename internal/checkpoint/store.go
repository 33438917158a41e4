package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
)

const (
	stateFile     = "state.json"
	sectionsDir   = "sections"
	maxTitleChars = 40
)

var (
	artifactPattern  = regexp.MustCompile(`^(\d+)_(.*)_([0-9a-f]{8})\.md$`)
	synthesisPattern = regexp.MustCompile(`^synthesis_([0-9a-f]{8})\.md$`)
)

// Store reads and writes checkpoint state and section artifacts under a
// root directory, one subdirectory per document. All writes go through
// a temp file and rename so a crash never leaves a half-written file.
type Store struct {
	dir    string
	logger *zap.Logger
}

func NewStore(dir string, logger *zap.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

func (s *Store) docDir(documentID string) string {
	return filepath.Join(s.dir, documentID)
}

func (s *Store) sectionsPath(documentID string) string {
	return filepath.Join(s.docDir(documentID), sectionsDir)
}

// ArtifactName builds the section artifact file name. The name alone
// carries index, title, and fingerprint so state can be rebuilt from a
// directory listing.
func ArtifactName(index int, title, fingerprint string) string {
	return fmt.Sprintf("%02d_%s_%s.md", index, sanitizeTitle(title), fingerprint)
}

func sanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if runes := []rune(out); len(runes) > maxTitleChars {
		out = string(runes[:maxTitleChars])
	}
	if out == "" {
		out = "section"
	}
	return out
}

// Load returns the stored state for a document. A missing, corrupt, or
// structurally invalid state file is not an error: the state is rebuilt
// from the artifact files, adopting the given model since artifacts do
// not record it.
func (s *Store) Load(documentID string, totalSections int, model string) (*State, error) {
	path := filepath.Join(s.docDir(documentID), stateFile)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s.reconstruct(documentID, totalSections, model)
	}
	if err != nil {
		return nil, fmt.Errorf("checkpoint: failed to read state for %s: %w", documentID, err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn("state file is corrupt, rebuilding from artifacts",
			zap.String("document", documentID),
			zap.Error(err))
		return s.reconstruct(documentID, totalSections, model)
	}
	if state.DocumentID != documentID {
		s.logger.Warn("state file does not match this document, rebuilding from artifacts",
			zap.String("document", documentID),
			zap.String("recorded", state.DocumentID))
		return s.reconstruct(documentID, totalSections, model)
	}
	if state.Fingerprints == nil {
		state.Fingerprints = make(map[int]string)
	}
	state.TotalSections = totalSections

	// A re-parse can shrink the section list; drop records that fell
	// out of range, and records with no fingerprint to check against.
	kept := state.Completed[:0]
	for _, index := range state.Completed {
		if index >= 1 && index <= totalSections && state.Fingerprints[index] != "" {
			kept = append(kept, index)
		} else {
			delete(state.Fingerprints, index)
		}
	}
	state.Completed = kept
	for index := range state.Fingerprints {
		if index < 1 || index > totalSections {
			delete(state.Fingerprints, index)
		}
	}
	return &state, nil
}

// reconstruct scans the sections directory and rebuilds state from
// artifact file names.
func (s *Store) reconstruct(documentID string, totalSections int, model string) (*State, error) {
	state := NewState(documentID, totalSections, model)

	entries, err := os.ReadDir(s.sectionsPath(documentID))
	if os.IsNotExist(err) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checkpoint: failed to scan artifacts for %s: %w", documentID, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := artifactPattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		index, err := strconv.Atoi(m[1])
		if err != nil || index < 1 || index > totalSections {
			continue
		}
		state.MarkCompleted(index, m[3])
	}

	if _, fp, ok := s.findSynthesis(documentID); ok {
		state.SynthesisFingerprint = fp
	}

	if len(state.Completed) > 0 {
		s.logger.Info("rebuilt checkpoint state from artifacts",
			zap.String("document", documentID),
			zap.Int("sections", len(state.Completed)))
	}
	return state, nil
}

// IsUpToDate reports whether a section can be skipped: it is recorded
// as completed, its stored fingerprint matches the fresh one, and its
// artifact file is still on disk.
func (s *Store) IsUpToDate(state *State, index int, fresh string) bool {
	if !state.IsCompleted(index) {
		return false
	}
	if state.Fingerprints[index] != fresh {
		return false
	}
	_, _, ok := s.findArtifact(state.DocumentID, index)
	return ok
}

// findArtifact locates the artifact file for a section index.
func (s *Store) findArtifact(documentID string, index int) (path, fingerprint string, ok bool) {
	entries, err := os.ReadDir(s.sectionsPath(documentID))
	if err != nil {
		return "", "", false
	}
	for _, entry := range entries {
		m := artifactPattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		if i, err := strconv.Atoi(m[1]); err == nil && i == index {
			return filepath.Join(s.sectionsPath(documentID), entry.Name()), m[3], true
		}
	}
	return "", "", false
}

// RecordCompletion writes the section artifact, then updates and
// persists the state. The artifact lands first: if the process dies
// between the two writes, reconstruction still finds the summary.
func (s *Store) RecordCompletion(state *State, index int, title, fingerprint, summary string) error {
	if err := os.MkdirAll(s.sectionsPath(state.DocumentID), 0755); err != nil {
		return fmt.Errorf("checkpoint: failed to create sections dir: %w", err)
	}

	// Drop every stale artifact for this index before writing the new
	// one, so each index has exactly one artifact at any time. A title
	// edit alone changes the name, not the fingerprint.
	name := ArtifactName(index, title, fingerprint)
	if entries, err := os.ReadDir(s.sectionsPath(state.DocumentID)); err == nil {
		for _, entry := range entries {
			m := artifactPattern.FindStringSubmatch(entry.Name())
			if m == nil || entry.Name() == name {
				continue
			}
			if i, err := strconv.Atoi(m[1]); err == nil && i == index {
				old := filepath.Join(s.sectionsPath(state.DocumentID), entry.Name())
				if err := os.Remove(old); err != nil {
					s.logger.Warn("failed to remove stale artifact",
						zap.String("path", old), zap.Error(err))
				}
			}
		}
	}

	path := filepath.Join(s.sectionsPath(state.DocumentID), name)
	if err := writeFileAtomic(path, []byte(summary)); err != nil {
		return fmt.Errorf("checkpoint: failed to write artifact for section %d: %w", index, err)
	}

	state.MarkCompleted(index, fingerprint)
	return s.Persist(state)
}

// Persist writes the state file atomically.
func (s *Store) Persist(state *State) error {
	if err := os.MkdirAll(s.docDir(state.DocumentID), 0755); err != nil {
		return fmt.Errorf("checkpoint: failed to create document dir: %w", err)
	}

	state.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: failed to marshal state: %w", err)
	}

	path := filepath.Join(s.docDir(state.DocumentID), stateFile)
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("checkpoint: failed to persist state for %s: %w", state.DocumentID, err)
	}
	return nil
}

// findSynthesis locates the synthesis artifact in the document dir.
func (s *Store) findSynthesis(documentID string) (path, fingerprint string, ok bool) {
	entries, err := os.ReadDir(s.docDir(documentID))
	if err != nil {
		return "", "", false
	}
	for _, entry := range entries {
		if m := synthesisPattern.FindStringSubmatch(entry.Name()); m != nil {
			return filepath.Join(s.docDir(documentID), entry.Name()), m[1], true
		}
	}
	return "", "", false
}

// SynthesisUpToDate reports whether the stored global synthesis was
// produced from the given combined fingerprint and is still on disk.
func (s *Store) SynthesisUpToDate(state *State, fresh string) bool {
	if state.SynthesisFingerprint != fresh {
		return false
	}
	_, fp, ok := s.findSynthesis(state.DocumentID)
	return ok && fp == fresh
}

// RecordSynthesis writes the global synthesis artifact and persists the
// fingerprint it was produced from.
func (s *Store) RecordSynthesis(state *State, fingerprint, text string) error {
	if err := os.MkdirAll(s.docDir(state.DocumentID), 0755); err != nil {
		return fmt.Errorf("checkpoint: failed to create document dir: %w", err)
	}

	name := fmt.Sprintf("synthesis_%s.md", fingerprint)
	if old, _, ok := s.findSynthesis(state.DocumentID); ok && filepath.Base(old) != name {
		if err := os.Remove(old); err != nil {
			s.logger.Warn("failed to remove stale synthesis", zap.String("path", old), zap.Error(err))
		}
	}

	path := filepath.Join(s.docDir(state.DocumentID), name)
	if err := writeFileAtomic(path, []byte(text)); err != nil {
		return fmt.Errorf("checkpoint: failed to write synthesis: %w", err)
	}

	state.SynthesisFingerprint = fingerprint
	return s.Persist(state)
}

// ReadSynthesis returns the stored global synthesis text.
func (s *Store) ReadSynthesis(documentID string) (string, error) {
	path, _, ok := s.findSynthesis(documentID)
	if !ok {
		return "", fmt.Errorf("checkpoint: no synthesis artifact for %s", documentID)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("checkpoint: failed to read synthesis: %w", err)
	}
	return string(data), nil
}

// ReadSummary returns the stored summary text for a completed section.
func (s *Store) ReadSummary(documentID string, index int) (string, error) {
	path, _, ok := s.findArtifact(documentID, index)
	if !ok {
		return "", fmt.Errorf("checkpoint: no artifact for section %d of %s", index, documentID)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("checkpoint: failed to read artifact for section %d: %w", index, err)
	}
	return string(data), nil
}

// writeFileAtomic writes data to a temp file in the target directory
// and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
