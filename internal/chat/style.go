package chat

import "github.com/charmbracelet/lipgloss"

type styles struct {
	banner  lipgloss.Style
	title   lipgloss.Style
	dim     lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	err     lipgloss.Style
	command lipgloss.Style
	cite    lipgloss.Style
}

// newStyles binds the palette to a renderer so color is only emitted when
// the REPL output is a terminal.
func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		banner:  r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("12")).Padding(0, 1),
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		dim:     r.NewStyle().Faint(true),
		ok:      r.NewStyle().Foreground(lipgloss.Color("10")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("11")),
		err:     r.NewStyle().Foreground(lipgloss.Color("9")),
		command: r.NewStyle().Foreground(lipgloss.Color("14")),
		cite:    r.NewStyle().Foreground(lipgloss.Color("6")).Underline(true),
	}
}
