package summarizer

import (
	"fmt"
	"strings"
)

// PromptVersion identifies the template generation. Bump it when the
// wording changes enough that cached completions should not be reused.
const PromptVersion = "v1"

const (
	mapWordBudget    = 300
	reduceWordBudget = 550
)

// SectionPrompt is the single-pass template for sections that fit in
// one chunk.
func SectionPrompt(language, title, text string) string {
	return fmt.Sprintf(`You are an expert editor producing faithful summaries of long documents.

Summarize the section titled "%s" below in about %d words, in %s.
Preserve key arguments, names, and conclusions. Do not add commentary or
information that is not in the text.

SECTION TEXT:
%s

SUMMARY:`, title, reduceWordBudget, language, text)
}

// MapPrompt summarizes one chunk of a multi-chunk section.
func MapPrompt(language, title, chunk string, part, totalParts int) string {
	return fmt.Sprintf(`You are an expert editor producing faithful summaries of long documents.

The section titled "%s" is split into %d parts. Summarize part %d below
in about %d words, in %s. Preserve key arguments, names, and conclusions.
Do not add commentary or information that is not in the text.

PART %d OF %d:
%s

SUMMARY:`, title, totalParts, part, mapWordBudget, language, part, totalParts, chunk)
}

// ReducePrompt merges the per-chunk summaries of a section into one
// coherent summary.
func ReducePrompt(language, title string, partials []string) string {
	var b strings.Builder
	for i, p := range partials {
		fmt.Fprintf(&b, "PART %d SUMMARY:\n%s\n\n", i+1, p)
	}

	return fmt.Sprintf(`You are an expert editor producing faithful summaries of long documents.

Below are partial summaries of consecutive parts of the section titled
"%s". Merge them into a single coherent summary of about %d words, in %s.
Remove repetition, keep the original order of ideas, and do not add
information that is not in the partial summaries.

%sMERGED SUMMARY:`, title, reduceWordBudget, language, b.String())
}

// GlobalPrompt synthesizes the whole document from its section
// summaries.
func GlobalPrompt(language, docTitle string, summaries []SectionSummary) string {
	var b strings.Builder
	for _, s := range summaries {
		fmt.Fprintf(&b, "SECTION %d (%s):\n%s\n\n", s.Index, s.Title, s.Text)
	}

	return fmt.Sprintf(`You are an expert editor producing faithful summaries of long documents.

Below are the section summaries of the document "%s", in order. Write an
overall synthesis of the document in about %d words, in %s: its central
themes, how the sections connect, and the main conclusions. Do not add
information that is not in the summaries.

%sOVERALL SYNTHESIS:`, docTitle, reduceWordBudget, language, b.String())
}
