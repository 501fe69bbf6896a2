package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tildaslashalef/ghmind/internal/workspace"
)

// DefaultBudget is the character budget used when none is configured
const DefaultBudget = 12000

// minKeep is the share of the budget a semantic cut must keep before the
// raw character cut is preferred
const minKeep = 2

// truncationMarker closes a cut text with the shown and total rune counts
const truncationMarker = "\n... [truncated: %d of %d characters shown]\n"

// markerLen is the longest marker a text of total runes can receive
func markerLen(total int) int {
	return utf8.RuneCountInString(fmt.Sprintf(truncationMarker, total, total))
}

// Truncate shortens text to at most budget characters (runes), marker
// included, and reports whether it cut anything. Diffs are cut at the last
// file or hunk boundary inside the budget, other text at the last paragraph
// or line break. When the budget cannot even hold the marker line the text
// is cut raw without one.
func Truncate(text string, budget int) (string, bool) {
	total := utf8.RuneCountInString(text)
	if budget <= 0 || total <= budget {
		return text, false
	}

	avail := budget - markerLen(total)
	if avail <= 0 {
		return string([]rune(text)[:budget]), true
	}

	head := string([]rune(text)[:avail])
	floor := len(head) / minKeep

	var cut int
	if isDiff(text) {
		cut = lastBoundary(head, floor, "\ndiff --git ", "\n@@ ")
	}
	if cut == 0 {
		cut = lastBoundary(head, floor, "\n\n", "\n")
	}
	if cut > 0 {
		head = head[:cut]
	}

	head = strings.TrimRight(head, "\n")
	return head + fmt.Sprintf(truncationMarker, utf8.RuneCountInString(head), total), true
}

// isDiff reports whether text looks like a unified diff
func isDiff(text string) bool {
	return strings.HasPrefix(text, "diff --git ") ||
		strings.HasPrefix(text, "--- ") ||
		strings.HasPrefix(text, "@@ ") ||
		strings.Contains(text, "\ndiff --git ")
}

// lastBoundary returns the byte offset of the last separator in text past
// floor, trying separators in order. Zero means none qualified.
func lastBoundary(text string, floor int, separators ...string) int {
	for _, sep := range separators {
		if i := strings.LastIndex(text, sep); i > floor {
			return i
		}
	}
	return 0
}

// FitDocuments shares budget between docs in order. Each document gets an
// even share of what is left; documents that no longer fit are dropped.
// Documents cut to an excerpt are flagged Truncated.
func FitDocuments(docs []workspace.Document, budget int) []workspace.Document {
	if budget <= 0 {
		return docs
	}

	fitted := make([]workspace.Document, 0, len(docs))
	remaining := budget
	for i, doc := range docs {
		if remaining <= 0 {
			break
		}
		share := remaining / (len(docs) - i)
		if share <= 0 {
			share = remaining
		}
		content, cut := Truncate(doc.Content, share)
		remaining -= utf8.RuneCountInString(content)
		doc.Content = content
		doc.Truncated = cut
		fitted = append(fitted, doc)
	}
	return fitted
}
