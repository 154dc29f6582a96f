package output

import "github.com/charmbracelet/lipgloss"

// Styles is the style set the renderer and commands share. With color
// disabled every style is a no-op and output stays plain.
type Styles struct {
	Header1       lipgloss.Style
	Header2       lipgloss.Style
	Success       lipgloss.Style
	Error         lipgloss.Style
	Warning       lipgloss.Style
	Info          lipgloss.Style
	Muted         lipgloss.Style
	Bold          lipgloss.Style
	StepID        lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
}

func newStyles(color bool) *Styles {
	if !color {
		return &Styles{}
	}
	return &Styles{
		Header1:       lipgloss.NewStyle().Bold(true).Underline(true),
		Header2:       lipgloss.NewStyle().Bold(true),
		Success:       lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		Error:         lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		Warning:       lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		Info:          lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		Muted:         lipgloss.NewStyle().Faint(true),
		Bold:          lipgloss.NewStyle().Bold(true),
		StepID:        lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		StatusSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		StatusFailed:  lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
}
