package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"opendocs/model"
)

// FilterModels returns the models whose display name fuzzy-matches query,
// best match first. An empty query returns models unchanged.
func FilterModels(models []model.ModelInfo, query string) []model.ModelInfo {
	if query == "" {
		return models
	}

	targets := make([]string, len(models))
	for i, m := range models {
		targets[i] = m.Name
	}

	matches := fuzzy.Find(query, targets)
	filtered := make([]model.ModelInfo, len(matches))
	for i, match := range matches {
		filtered[i] = models[match.Index]
	}
	return filtered
}

// FormatModelTable lays models out in aligned columns, marking current.
// width bounds the name column; 0 means no limit.
func FormatModelTable(models []model.ModelInfo, current string, width int) string {
	if len(models) == 0 {
		return DimStyle.Render("No models found.") + "\n"
	}

	nameWidth := 0
	for _, m := range models {
		nameWidth = max(nameWidth, runewidth.StringWidth(m.Name))
	}
	if width > 0 {
		nameWidth = min(nameWidth, width)
	}

	var b strings.Builder
	for _, m := range models {
		name := runewidth.Truncate(m.Name, nameWidth, "...")
		padded := runewidth.FillRight(name, nameWidth)

		marker := "  "
		if IsCurrentModel(m, current) {
			marker = "* "
			padded = SelectedStyle.Render(padded)
		}

		line := marker + padded
		if m.Size > 0 {
			line += "  " + DimStyle.Render(FormatSize(m.Size))
		}
		if m.InternalName != "" && m.InternalName != m.Name {
			line += "  " + DimStyle.Render(m.InternalName)
		}
		b.WriteString(strings.TrimRight(line, " ") + "\n")
	}
	return b.String()
}

// IsCurrentModel reports whether m is the model named current, by display or
// API name.
func IsCurrentModel(m model.ModelInfo, current string) bool {
	if current == "" {
		return false
	}
	return m.Name == current || m.InternalName == current
}

// FormatSize renders a byte count the way model listings show it.
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
