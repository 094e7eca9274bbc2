package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/phonginreallife/rentdesk/services"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	// badge colors by name
	badgeColors = map[string]lipgloss.Color{
		services.ColorBlue:   lipgloss.Color("12"),
		services.ColorOrange: lipgloss.Color("208"),
		services.ColorGreen:  lipgloss.Color("10"),
		services.ColorRed:    lipgloss.Color("9"),
	}
)

// badge renders text in the named badge color. Unknown colors render plain.
func badge(text, color string) string {
	c, ok := badgeColors[color]
	if !ok {
		return text
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true).Render(text)
}

func riskStyle(level services.RiskLevel) lipgloss.Style {
	switch level {
	case services.RiskDanger:
		return errorStyle
	case services.RiskWarning:
		return warnStyle
	case services.RiskSafe:
		return successStyle
	default:
		return mutedStyle
	}
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
}

func printTitle(w io.Writer, title string) {
	fmt.Fprintln(w, titleStyle.Render(title)) //nolint:errcheck
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, currency)
}
