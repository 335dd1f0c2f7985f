package ui

import (
	"regexp"
	"strings"

	markdown "github.com/MichaelMure/go-term-markdown"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"
)

var (
	inlineCodeRegex = regexp.MustCompile(`(?s)\x1b\[44;3m(.*?)\x1b\[0m`)
	mdLinkRegex     = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)
	urlRegex        = regexp.MustCompile(`(https?://[^\s]+)`)
	ansiRegex       = regexp.MustCompile(`\x1b\[[0-9;]*m`)
)

// codeBlockMarker prefixes code block lines in go-term-markdown output.
const codeBlockMarker = "┃"

// MinRenderWidth is the narrowest width RenderMarkdown lays out for.
const MinRenderWidth = 20

// RenderMarkdown renders an assistant reply for a terminal of the given width.
func RenderMarkdown(content string, width int) string {
	if width < MinRenderWidth {
		width = MinRenderWidth
	}

	content = preprocessLinks(content)

	// Autolink off: plain URLs stay plain so the terminal can make them clickable.
	ext := markdown.Extensions() &^ parser.Autolink
	p := parser.NewWithExtensions(ext)
	r := markdown.NewRenderer(width-4, 0)
	rendered := gomarkdown.Render(p.Parse([]byte(content)), r)

	return postProcessMarkdown(string(rendered), width)
}

func postProcessMarkdown(rendered string, width int) string {
	rendered = fixInlineCode(rendered)
	rendered = colorURLs(rendered)
	return frameCodeBlocks(rendered, width)
}

// preprocessLinks turns [text](url) into url.
func preprocessLinks(content string) string {
	return mdLinkRegex.ReplaceAllString(content, "$2")
}

// fixInlineCode swaps the renderer's blue background for red text.
func fixInlineCode(s string) string {
	return inlineCodeRegex.ReplaceAllString(s, "\x1b[31m$1\x1b[0m")
}

func colorURLs(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if !strings.Contains(line, codeBlockMarker) {
			lines[i] = urlRegex.ReplaceAllString(line, "\x1b[31m$1\x1b[0m")
		}
	}
	return strings.Join(lines, "\n")
}

func frameCodeBlocks(s string, width int) string {
	const darkGray = "\x1b[90m"
	const reset = "\x1b[0m"

	lineLen := width - 4
	closing := darkGray + strings.Repeat("━", lineLen) + reset

	var result []string
	inCodeBlock := false

	for _, line := range strings.Split(s, "\n") {
		if strings.Contains(line, codeBlockMarker) {
			if !inCodeBlock {
				inCodeBlock = true
				label := "[code]"
				left := (lineLen - len(label)) / 2
				right := lineLen - len(label) - left
				result = append(result, "",
					darkGray+strings.Repeat("━", left)+reset+label+darkGray+strings.Repeat("━", right)+reset,
					"")
			}
			result = append(result, stripCodeBlockPrefix(line))
			continue
		}
		if inCodeBlock {
			result = append(result, "", closing, "")
			inCodeBlock = false
		}
		result = append(result, line)
	}
	if inCodeBlock {
		result = append(result, "", closing, "")
	}

	return strings.Join(result, "\n")
}

func stripCodeBlockPrefix(line string) string {
	idx := strings.Index(line, codeBlockMarker)
	if idx < 0 {
		return line
	}
	after := idx + len(codeBlockMarker)
	if after < len(line) && line[after] == ' ' {
		after++
	}
	return line[after:]
}

// StripANSI removes color escapes, for width calculations and plain output.
func StripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}
