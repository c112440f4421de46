package ui

import "charm.land/lipgloss/v2"

type Theme struct {
	Header       lipgloss.Style
	Status       lipgloss.Style
	PanelTitle   lipgloss.Style
	PanelBorder  lipgloss.Style
	PanelBody    lipgloss.Style
	Overlay      lipgloss.Style
	OverlayTitle lipgloss.Style
	Toast        lipgloss.Style
	Accent       lipgloss.Style
	Completed    lipgloss.Style
	Current      lipgloss.Style
	Locked       lipgloss.Style
	Fail         lipgloss.Style
	Muted        lipgloss.Style
	Info         lipgloss.Style
	Podium       lipgloss.Style
}

type palette struct {
	accent  string
	good    string
	bad     string
	warm    string
	ink     string
	slate   string
	paper   string
	border  string
	muted   string
	gold    string
	overlay lipgloss.Border
}

var palettes = map[string]palette{
	"modern_arcade": {
		accent: "#5EEBFF", good: "#67F0A8", bad: "#FF6F91", warm: "#FFC857",
		ink: "#0E1420", slate: "#1B2740", paper: "#EAF2FF", border: "#4B5F8A",
		muted: "#9CAAC6", gold: "#F2D16B", overlay: lipgloss.RoundedBorder(),
	},
	"cozy_clean": {
		accent: "#86B6F6", good: "#80C4A3", bad: "#D17A86", warm: "#F2B872",
		ink: "#1E2430", slate: "#30394A", paper: "#F4F6FA", border: "#4A5972",
		muted: "#A3ACC2", gold: "#F2B872", overlay: lipgloss.RoundedBorder(),
	},
	"retro_terminal": {
		accent: "#9CF5A2", good: "#9CF5A2", bad: "#FF6B6B", warm: "#E5D47A",
		ink: "#07150A", slate: "#12301A", paper: "#C5F7C4", border: "#1F5C2F",
		muted: "#73A17A", gold: "#E5D47A", overlay: lipgloss.DoubleBorder(),
	},
}

func DefaultTheme() Theme {
	return ThemeForVariant("modern_arcade")
}

func ThemeForVariant(variant string) Theme {
	p, ok := palettes[variant]
	if !ok {
		p = palettes["modern_arcade"]
	}
	c := lipgloss.Color
	return Theme{
		Header:      lipgloss.NewStyle().Background(c(p.ink)).Foreground(c(p.paper)).Padding(0, 1),
		Status:      lipgloss.NewStyle().Background(c(p.slate)).Foreground(c(p.paper)).Padding(0, 1),
		PanelTitle:  lipgloss.NewStyle().Foreground(c(p.accent)).Bold(true),
		PanelBorder: lipgloss.NewStyle().Foreground(c(p.border)),
		PanelBody:   lipgloss.NewStyle().Foreground(c(p.paper)),
		Overlay: lipgloss.NewStyle().
			BorderStyle(p.overlay).
			BorderForeground(c(p.accent)).
			Background(c(p.ink)).
			Foreground(c(p.paper)).
			Padding(1, 2),
		OverlayTitle: lipgloss.NewStyle().Foreground(c(p.accent)).Bold(true),
		Toast: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(c(p.gold)).
			Foreground(c(p.paper)).
			Padding(0, 1),
		Accent:    lipgloss.NewStyle().Foreground(c(p.accent)).Bold(true),
		Completed: lipgloss.NewStyle().Foreground(c(p.good)).Bold(true),
		Current:   lipgloss.NewStyle().Foreground(c(p.warm)).Bold(true),
		Locked:    lipgloss.NewStyle().Foreground(c(p.muted)),
		Fail:      lipgloss.NewStyle().Foreground(c(p.bad)).Bold(true),
		Muted:     lipgloss.NewStyle().Foreground(c(p.muted)),
		Info:      lipgloss.NewStyle().Foreground(c(p.accent)),
		Podium:    lipgloss.NewStyle().Foreground(c(p.gold)).Bold(true),
	}
}
