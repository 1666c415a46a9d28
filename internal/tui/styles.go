package tui

import "github.com/charmbracelet/lipgloss"

// Palette holds the colors for one theme.
type Palette struct {
	Header     lipgloss.Color
	Footer     lipgloss.Color
	Border     lipgloss.Color
	Selected   lipgloss.Color
	SelfSender lipgloss.Color
	Sender     lipgloss.Color
	Muted      lipgloss.Color
	Error      lipgloss.Color
}

var themes = map[string]Palette{
	"default": {
		Header:     lipgloss.Color("62"),
		Footer:     lipgloss.Color("237"),
		Border:     lipgloss.Color("240"),
		Selected:   lipgloss.Color("170"),
		SelfSender: lipgloss.Color("42"),
		Sender:     lipgloss.Color("39"),
		Muted:      lipgloss.Color("243"),
		Error:      lipgloss.Color("196"),
	},
	"high-contrast": {
		Header:     lipgloss.Color("15"),
		Footer:     lipgloss.Color("15"),
		Border:     lipgloss.Color("15"),
		Selected:   lipgloss.Color("226"),
		SelfSender: lipgloss.Color("46"),
		Sender:     lipgloss.Color("51"),
		Muted:      lipgloss.Color("250"),
		Error:      lipgloss.Color("201"),
	},
}

func (m *Model) palette() Palette {
	if palette, ok := themes[m.cfg.Theme]; ok {
		return palette
	}
	return themes["default"]
}
