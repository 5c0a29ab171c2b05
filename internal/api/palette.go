package api

import "github.com/lox/sunspots/internal/forecast"

// Palette defines the page colours for a solar cycle phase.
type Palette struct {
	// Background is the main page background color
	Background string
	// Card is the background for cards/panels
	Card string
	// CardBorder is an optional border/highlight for cards
	CardBorder string
	// Text is the primary text color
	Text string
	// TextMuted is the secondary/muted text color
	TextMuted string
	// Accent is the primary accent color (links, highlights)
	Accent string
	// AccentAlt is a secondary accent (warnings, interval band legend)
	AccentAlt string
}

// DefaultPalette is the fallback dark theme.
var DefaultPalette = Palette{
	Background: "#0f0f1a",
	Card:       "#1a1a2e",
	CardBorder: "#2a2a4e",
	Text:       "#eeeeee",
	TextMuted:  "#8a8aa0",
	Accent:     "#4fc3f7",
	AccentAlt:  "#ff7043",
}

var palettes = map[forecast.SolarPhase]Palette{
	forecast.PhaseRising: {
		Background: "#2a2520", // warm dark brown
		Card:       "#3a3530",
		CardBorder: "#554a40",
		Text:       "#fff8f0",
		TextMuted:  "#a09080",
		Accent:     "#ffaa66",
		AccentAlt:  "#ff6644",
	},
	forecast.PhaseMaximum: {
		Background: "#f5f0e8", // warm cream
		Card:       "#ffffff",
		CardBorder: "#e0d8c8",
		Text:       "#2a2520",
		TextMuted:  "#706050",
		Accent:     "#d07020",
		AccentAlt:  "#c04010",
	},
	forecast.PhaseDeclining: {
		Background: "#352820",
		Card:       "#453830",
		CardBorder: "#604838",
		Text:       "#fff0e0",
		TextMuted:  "#a08060",
		Accent:     "#ff8844",
		AccentAlt:  "#ee5522",
	},
	forecast.PhaseMinimum: {
		Background: "#0a0a12",
		Card:       "#141420",
		CardBorder: "#252535",
		Text:       "#dde0e8",
		TextMuted:  "#556070",
		Accent:     "#7799cc",
		AccentAlt:  "#dd7755",
	},
}

// PaletteFor returns the colour scheme for a phase.
func PaletteFor(phase forecast.SolarPhase) Palette {
	if p, ok := palettes[phase]; ok {
		return p
	}
	return DefaultPalette
}
