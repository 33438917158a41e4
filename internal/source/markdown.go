package source

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

const fallbackBlockWords = 3000

var headingPattern = regexp.MustCompile(`(?m)^(#{1,3})\s+(.+)$`)

// MarkdownLoader splits .md and .txt files on level 1-3 headings. Files
// with no headings are cut into fixed-size word blocks so long plain-text
// dumps still produce workable sections.
type MarkdownLoader struct {
	minWords int
	logger   *zap.Logger
}

func NewMarkdownLoader(minWords int, logger *zap.Logger) *MarkdownLoader {
	return &MarkdownLoader{minWords: minWords, logger: logger}
}

func (l *MarkdownLoader) Load(ctx context.Context, path string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("source: failed to read %s: %w", path, err)
	}

	doc := &Document{
		ID:    SanitizeName(path),
		Title: SanitizeName(path),
	}

	sections := splitByHeadings(string(data))
	if len(sections) == 0 {
		sections = splitByWordBlocks(string(data), fallbackBlockWords)
	}

	index := 1
	for _, sec := range sections {
		words := CountWords(sec.Text)
		if words < l.minWords {
			l.logger.Debug("skipping short section",
				zap.String("document", doc.ID),
				zap.String("title", sec.Title),
				zap.Int("words", words))
			continue
		}
		sec.Index = index
		doc.Sections = append(doc.Sections, sec)
		index++
	}

	if len(doc.Sections) == 0 {
		return nil, fmt.Errorf("source: %s has no sections with at least %d words", path, l.minWords)
	}

	l.logger.Info("loaded document",
		zap.String("document", doc.ID),
		zap.Int("sections", len(doc.Sections)))
	return doc, nil
}

func splitByHeadings(text string) []Section {
	matches := headingPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	var sections []Section
	for i, m := range matches {
		title := strings.TrimSpace(text[m[4]:m[5]])
		bodyStart := m[1]
		bodyEnd := len(text)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		body := strings.TrimSpace(text[bodyStart:bodyEnd])
		if body == "" {
			continue
		}
		sections = append(sections, Section{Title: title, Text: body})
	}
	return sections
}

func splitByWordBlocks(text string, blockWords int) []Section {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var sections []Section
	for start := 0; start < len(words); start += blockWords {
		end := start + blockWords
		if end > len(words) {
			end = len(words)
		}
		sections = append(sections, Section{
			Title: fmt.Sprintf("Section %d", len(sections)+1),
			Text:  strings.Join(words[start:end], " "),
		})
	}
	return sections
}
