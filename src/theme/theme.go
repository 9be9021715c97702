// Package theme holds the colors used to render transcripts in the terminal.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/elee1766/parley/src/model"
)

// Theme represents a color theme
type Theme struct {
	Name       string
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Text       lipgloss.Color
	TextMuted  lipgloss.Color
	Error      lipgloss.Color
	Background lipgloss.Color
	// CodeStyle names the chroma style for fenced code blocks
	CodeStyle string
}

var (
	Dark = Theme{
		Name:       "dark",
		Primary:    lipgloss.Color("#00ff00"),
		Secondary:  lipgloss.Color("#5fafff"),
		Text:       lipgloss.Color("#ffffff"),
		TextMuted:  lipgloss.Color("#808080"),
		Error:      lipgloss.Color("#ff5f5f"),
		Background: lipgloss.Color("#000000"),
		CodeStyle:  "monokai",
	}
	Light = Theme{
		Name:       "light",
		Primary:    lipgloss.Color("#007a00"),
		Secondary:  lipgloss.Color("#005fd7"),
		Text:       lipgloss.Color("#000000"),
		TextMuted:  lipgloss.Color("#6c6c6c"),
		Error:      lipgloss.Color("#d70000"),
		Background: lipgloss.Color("#ffffff"),
		CodeStyle:  "github",
	}
)

// CurrentTheme is used by the renderers
var CurrentTheme = Dark

// SetTheme sets the current theme
func SetTheme(t Theme) {
	CurrentTheme = t
}

// ByName returns a built-in theme.
func ByName(name string) (Theme, bool) {
	switch name {
	case Dark.Name:
		return Dark, true
	case Light.Name:
		return Light, true
	}
	return Theme{}, false
}

// Sender styles the name line of a message author.
func (t Theme) Sender(kind model.SenderType) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true)
	switch kind {
	case model.SenderUser:
		return s.Foreground(t.Primary)
	case model.SenderAgent:
		return s.Foreground(t.Secondary)
	default:
		return s.Foreground(t.TextMuted)
	}
}

func (t Theme) Title() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(t.Text).Underline(true)
}

func (t Theme) Muted() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.TextMuted)
}

func (t Theme) Failure() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error)
}

// Body indents message content under its header.
func (t Theme) Body() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Text).PaddingLeft(2)
}
