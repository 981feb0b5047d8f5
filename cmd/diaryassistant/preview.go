package main

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"

	"diaryassistant/internal/textutil"
)

const previewWidth = 80

// renderPreview truncates feedback for display. Terminals get markdown
// rendering; pipes and files get the plain text.
func renderPreview(out io.Writer, feedback string, limit int) string {
	text := strings.TrimSpace(textutil.Truncate(strings.TrimSpace(feedback), limit))
	if text == "" {
		return ""
	}
	if !isTerminal(out) {
		return text
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(previewWidth),
	)
	if err != nil {
		return text
	}
	rendered, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
