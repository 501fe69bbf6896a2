package utils

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"
)

// markdownWidth is the word wrap used for rendered markdown previews
const markdownWidth = 100

// WrapText wraps text at word boundaries to the given width
func WrapText(str string, width int) string {
	if width <= 0 {
		return str
	}
	return wordwrap.String(str, width)
}

// RenderMarkdown renders markdown for the terminal. When rendering fails the
// source is returned unchanged.
func RenderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(markdownWidth),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// PrintMarkdown prints rendered markdown under a heading
func PrintMarkdown(title, md string) {
	PrintHeading(title)
	fmt.Fprintln(Output, strings.TrimRight(RenderMarkdown(md), "\n"))
}

// Pluralize returns singular when n is 1 and plural otherwise
func Pluralize(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
