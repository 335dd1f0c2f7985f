// Package ui formats relay output for the terminal: styled status lines,
// rendered markdown replies and model listings.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	dimColor     = lipgloss.Color("7")
	accentColor  = lipgloss.Color("12")
	successColor = lipgloss.Color("10")
	warningColor = lipgloss.Color("11")
	dangerColor  = lipgloss.Color("9")

	// Assistant reply style
	AssistantStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	// Secondary information (ids, sizes, durations)
	DimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	TitleStyle = lipgloss.NewStyle().
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(dangerColor).
			Bold(true)

	// Marks the model currently configured as default
	SelectedStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true)
)

// RenderError formats a user-facing error line.
func RenderError(msg string) string {
	return ErrorStyle.Render("✗ ") + msg
}

// RenderSuccess formats a confirmation line.
func RenderSuccess(msg string) string {
	return SuccessStyle.Render("✓ ") + msg
}

// FormatFooter formats alternating key/description pairs.
// Usage: FormatFooter("--render", "markdown", "--copy", "clipboard")
func FormatFooter(parts ...string) string {
	descStyle := lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	var result []string
	for i := 0; i < len(parts); i += 2 {
		if i+1 < len(parts) {
			result = append(result, parts[i]+" "+descStyle.Render(parts[i+1]))
		}
	}
	return strings.Join(result, "  ")
}
