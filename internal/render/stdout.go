package render

import (
	"fmt"
	"io"
	"os"
)

// StdoutRenderer prints a compact digest of a document summary.
// Useful for one-off runs without opening the output files.
type StdoutRenderer struct {
	out io.Writer
}

func NewStdoutRenderer() *StdoutRenderer {
	return &StdoutRenderer{out: os.Stdout}
}

func (r *StdoutRenderer) Name() string {
	return "stdout"
}

func (r *StdoutRenderer) Render(summary *Summary) error {
	fmt.Fprintf(r.out, "=== %s (%d sections) ===\n", summary.Title, len(summary.Sections))
	for _, sec := range summary.Sections {
		fmt.Fprintf(r.out, "\n[%d] %s\n%s\n", sec.Index, sec.Title, sec.Text)
	}
	if summary.Synthesis != "" {
		fmt.Fprintf(r.out, "\n--- Overall Synthesis ---\n%s\n", summary.Synthesis)
	}
	return nil
}
