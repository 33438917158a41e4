package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Section is one chapter-like unit of a document. Index is 1-based and
// stable for the lifetime of the document on disk.
type Section struct {
	Index int
	Title string
	Text  string
}

// Document is the ordered section list produced by a Loader.
type Document struct {
	ID       string
	Title    string
	Sections []Section
}

// Loader turns a file on disk into an ordered section list.
type Loader interface {
	Load(ctx context.Context, path string) (*Document, error)
}

var invalidNameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeName strips the extension and replaces characters that are not
// safe in file names. Used for document IDs and artifact names.
func SanitizeName(filename string) string {
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	name = invalidNameChars.ReplaceAllString(name, "_")
	return strings.TrimSpace(name)
}

// CountWords counts whitespace-separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// ScanDir lists the supported document files in dir, sorted by name.
func ScanDir(dir string, extensions []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("source: failed to scan %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		for _, want := range extensions {
			if ext == want {
				files = append(files, filepath.Join(dir, entry.Name()))
				break
			}
		}
	}
	sort.Strings(files)
	return files, nil
}
