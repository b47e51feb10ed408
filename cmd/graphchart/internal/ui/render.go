package ui

import (
	"fmt"
	"strings"

	"github.com/recera/graphchart/pkg/highlight"
	"github.com/recera/graphchart/pkg/render"
)

// View implements tea.Model
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("graphchart inspect · " + m.title))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n\n")

	if m.filtering || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		b.WriteString("\n")
	}

	b.WriteString(m.renderNodes())
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderStatus() string {
	selected, ok := m.engine.Selected()
	if !ok {
		return subtitleStyle.Render(fmt.Sprintf("%d nodes · idle", len(m.ids)))
	}

	var hop1, hop2 int
	for id, color := range m.colors {
		switch {
		case id == selected:
		case color == highlight.Unset:
			hop1++
		case color == highlight.IntermediateColor:
			hop2++
		}
	}
	return subtitleStyle.Render(fmt.Sprintf("%d nodes · ", len(m.ids))) +
		selectedStyle.Render(m.display(selected)) +
		subtitleStyle.Render(fmt.Sprintf(" · %d neighbors · %d at two hops", hop1, hop2))
}

// renderNodes shows the window of visible nodes around the cursor
func (m Model) renderNodes() string {
	if len(m.visible) == 0 {
		return mutedStyle.Render("  no nodes") + "\n"
	}

	rows := m.height - 8
	if rows < 3 {
		rows = 3
	}
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := start + rows
	if end > len(m.visible) {
		end = len(m.visible)
	}

	selected, highlighted := m.engine.Selected()

	var b strings.Builder
	for i := start; i < end; i++ {
		id := m.visible[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		text := m.display(id)
		color := m.colors[id]
		switch {
		case !highlighted:
			b.WriteString(cursor + text)
		case id == selected:
			b.WriteString(cursor + selectedStyle.Render("● "+text))
		case color == highlight.Unset:
			b.WriteString(cursor + neighborStyle.Render("○ "+text))
		case color == highlight.IntermediateColor:
			b.WriteString(cursor + intermediateStyle.Render("· "+text))
		default:
			b.WriteString(cursor + mutedStyle.Render("  "+text))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderFooter() string {
	if m.showHelp {
		k := m.keys
		lines := []string{
			fmt.Sprintf("%-8s %s", k.Up.Help().Key, k.Up.Help().Desc),
			fmt.Sprintf("%-8s %s", k.Down.Help().Key, k.Down.Help().Desc),
			fmt.Sprintf("%-8s %s", k.Select.Help().Key, k.Select.Help().Desc),
			fmt.Sprintf("%-8s %s", k.Clear.Help().Key, k.Clear.Help().Desc),
			fmt.Sprintf("%-8s %s", k.Filter.Help().Key, k.Filter.Help().Desc),
			fmt.Sprintf("%-8s %s", k.Quit.Help().Key, k.Quit.Help().Desc),
		}
		return helpStyle.Render(strings.Join(lines, "\n"))
	}
	return helpStyle.Render("enter highlight · esc clear · / filter · ? help · q quit")
}

func (m Model) display(id render.NodeID) string {
	label := m.labels[id]
	if label == "" || label == string(id) {
		return string(id)
	}
	return fmt.Sprintf("%s (%s)", label, id)
}
