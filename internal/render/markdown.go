package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// MarkdownRenderer writes one markdown file per document into an output
// directory: title, index of sections, each section summary, and the
// overall synthesis.
type MarkdownRenderer struct {
	outputDir string
	logger    *zap.Logger
}

func NewMarkdownRenderer(outputDir string, logger *zap.Logger) *MarkdownRenderer {
	return &MarkdownRenderer{outputDir: outputDir, logger: logger}
}

func (r *MarkdownRenderer) Name() string {
	return "markdown"
}

func (r *MarkdownRenderer) Render(summary *Summary) error {
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return fmt.Errorf("render: failed to create output dir: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", summary.Title)
	fmt.Fprintf(&b, "*Summarized with %s on %s*\n\n", summary.Model, time.Now().Format("2006-01-02"))

	b.WriteString("## Contents\n\n")
	for _, sec := range summary.Sections {
		fmt.Fprintf(&b, "%d. %s\n", sec.Index, sec.Title)
	}
	b.WriteString("\n")

	for _, sec := range summary.Sections {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n---\n\n", sec.Title, strings.TrimSpace(sec.Text))
	}

	if summary.Synthesis != "" {
		fmt.Fprintf(&b, "## Overall Synthesis\n\n%s\n", strings.TrimSpace(summary.Synthesis))
	}

	path := filepath.Join(r.outputDir, summary.DocumentID+"_summary.md")
	if err := writeFileAtomic(path, []byte(b.String())); err != nil {
		return fmt.Errorf("render: failed to write %s: %w", path, err)
	}

	r.logger.Info("wrote summary file",
		zap.String("document", summary.DocumentID),
		zap.String("path", path))
	return nil
}

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
