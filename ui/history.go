package ui

import (
	"fmt"
	"strings"
	"time"

	"opendocs/storage"
)

// FormatExchanges renders journal records one per line, without color:
//
//	2026-01-02 15:04:05  gemini/gemini-2.0-flash-lite  done  12 chunks  1.2s
func FormatExchanges(records []storage.ExchangeRecord) string {
	if len(records) == 0 {
		return "No exchanges recorded.\n"
	}

	var b strings.Builder
	for _, rec := range records {
		fmt.Fprintf(&b, "%s  %s/%s  %s", rec.StartedAt.Local().Format(time.DateTime), rec.Provider, rec.Model, rec.Outcome)
		if rec.Category != "" {
			fmt.Fprintf(&b, " (%s)", rec.Category)
		}
		fmt.Fprintf(&b, "  %d chunks  %s\n", rec.Fragments, rec.Duration.Round(time.Millisecond))
	}
	return b.String()
}
