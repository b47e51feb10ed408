package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/recera/graphchart/pkg/webapp"
)

// Style definitions
var (
	// Colors
	primaryColor   = lipgloss.Color("#3b82f6") // Blue
	secondaryColor = lipgloss.Color("#64748b") // Gray
	successColor   = lipgloss.Color("#10b981") // Green
	warningColor   = lipgloss.Color("#f59e0b") // Yellow
	errorColor     = lipgloss.Color("#ef4444") // Red
	mutedColor     = lipgloss.Color("#94a3b8") // Muted gray

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)

	selectedStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	neighborStyle = lipgloss.NewStyle().
			Foreground(successColor)

	intermediateStyle = lipgloss.NewStyle().
				Foreground(warningColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)
)

// RenderConfig formats an effective configuration for the terminal
func RenderConfig(eff webapp.EffectiveConfig) string {
	rows := [][2]string{
		{"dataset_name", eff.Dataset},
		{"source", eff.Source},
		{"target", eff.Target},
		{"max_nodes", fmt.Sprint(eff.MaxNodes)},
		{"directed_edges", fmt.Sprint(eff.DirectedEdges)},
	}
	for _, k := range eff.AdvancedKeys() {
		rows = append(rows, [2]string{k, fmt.Sprint(eff.Advanced[k])})
	}

	var b strings.Builder
	b.WriteString(successStyle.Render("✓ Configuration is valid"))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("%s %s\n", subtitleStyle.Render(fmt.Sprintf("%-16s", row[0])), row[1]))
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// RenderError formats a failure for the terminal
func RenderError(err error) string {
	return errorStyle.Render("✗ ") + err.Error()
}
