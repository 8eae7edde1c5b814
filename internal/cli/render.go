package cli

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/roach88/scribe/internal/model"
)

const previewRunes = 40

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

// preview shortens s to one line of at most previewRunes runes.
func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	r := []rune(s)
	return string(r[:previewRunes]) + "…"
}

func writePresetList(w io.Writer, presets []model.WritingPreset) {
	if len(presets) == 0 {
		fmt.Fprintln(w, "No presets.")
		return
	}
	for _, p := range presets {
		marker := " "
		if p.IsDefault {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s  %s", marker, p.ID, p.Name)
		if p.Description != "" {
			fmt.Fprintf(w, "  (%s)", p.Description)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d preset(s)\n", len(presets))
}

func writePreset(w io.Writer, p model.WritingPreset) {
	fmt.Fprintf(w, "ID:          %s\n", p.ID)
	fmt.Fprintf(w, "Name:        %s\n", p.Name)
	fmt.Fprintf(w, "Description: %s\n", p.Description)
	fmt.Fprintf(w, "Default:     %t\n", p.IsDefault)
	fmt.Fprintf(w, "Created:     %s\n", formatMillis(p.CreatedAt))
	fmt.Fprintf(w, "Updated:     %s\n", formatMillis(p.UpdatedAt))
	fmt.Fprintf(w, "\n%s\n", p.SystemPrompt)
}

func writeTextList(w io.Writer, texts []model.GeneratedText) {
	if len(texts) == 0 {
		fmt.Fprintln(w, "No history.")
		return
	}
	for _, g := range texts {
		fmt.Fprintf(w, "%s  %s  [%s]  %s\n", g.ID, formatMillis(g.CreatedAt), g.PresetName, preview(g.Input))
	}
	fmt.Fprintf(w, "%d text(s)\n", len(texts))
}

func writeText(w io.Writer, g model.GeneratedText) {
	fmt.Fprintf(w, "ID:       %s\n", g.ID)
	fmt.Fprintf(w, "Created:  %s\n", formatMillis(g.CreatedAt))
	fmt.Fprintf(w, "Preset:   %s (%s)\n", g.PresetName, g.PresetID)
	fmt.Fprintf(w, "Provider: %s\n", g.ModelProvider)
	fmt.Fprintf(w, "\nInput:\n%s\n", g.Input)

	versions, labels := g.Versions(), g.Labels()
	for i := range versions {
		fmt.Fprintf(w, "\n[%d] %s\n%s\n", i+1, labels[i], versions[i])
	}
}
