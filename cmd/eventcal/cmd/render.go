package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Sahilgupta2175/event-calendar/internal/calendar"
	"github.com/Sahilgupta2175/event-calendar/internal/model"
	"github.com/Sahilgupta2175/event-calendar/internal/recurrence"
)

const cellWidth = 14

var (
	primaryColor = lipgloss.Color("#7C3AED")
	mutedColor   = lipgloss.Color("#6B7280")
	accentColor  = lipgloss.Color("#F59E0B")

	categoryColors = map[model.Category]lipgloss.Color{
		model.CategoryWork:     lipgloss.Color("#3B82F6"),
		model.CategoryPersonal: lipgloss.Color("#10B981"),
		model.CategoryHealth:   lipgloss.Color("#EF4444"),
		model.CategorySocial:   lipgloss.Color("#A855F7"),
		model.CategoryOther:    lipgloss.Color("#6B7280"),
	}

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(primaryColor).MarginBottom(1)
	weekdayStyle = lipgloss.NewStyle().Bold(true).Width(cellWidth + 2).Align(lipgloss.Center)
	cellStyle    = lipgloss.NewStyle().Width(cellWidth).Height(5).Border(lipgloss.RoundedBorder()).BorderForeground(mutedColor)
	todayStyle   = cellStyle.BorderForeground(accentColor)
	outsideStyle = cellStyle.Faint(true)
	dayNumStyle  = lipgloss.NewStyle().Bold(true)
	moreStyle    = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
	timeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Width(7)
	idStyle      = lipgloss.NewStyle().Foreground(mutedColor)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
)

func categoryStyle(c model.Category) lipgloss.Style {
	color, ok := categoryColors[c]
	if !ok {
		color = mutedColor
	}
	return lipgloss.NewStyle().Foreground(color)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}

func renderCell(d calendar.Day) string {
	var lines []string
	lines = append(lines, dayNumStyle.Render(fmt.Sprintf("%d", d.Day)))
	for _, e := range d.Events {
		lines = append(lines, categoryStyle(e.Category).Render(truncate(e.Time+" "+e.Title, cellWidth)))
	}
	if d.More > 0 {
		lines = append(lines, moreStyle.Render(fmt.Sprintf("+%d more", d.More)))
	}

	style := cellStyle
	switch {
	case d.Today:
		style = todayStyle
	case !d.InMonth:
		style = outsideStyle
	}
	return style.Render(strings.Join(lines, "\n"))
}

// renderGrid draws the month as bordered day cells, Sunday first.
func renderGrid(m calendar.Month) string {
	var rows []string
	rows = append(rows, titleStyle.Render(m.Title))

	var names []string
	for _, n := range []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"} {
		names = append(names, weekdayStyle.Render(n))
	}
	rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, names...))

	for _, week := range m.Weeks() {
		cells := make([]string, len(week))
		for i, d := range week {
			cells[i] = renderCell(d)
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderList prints one line per event, grouped under date headings.
func renderList(events []model.Event) string {
	if len(events) == 0 {
		return "No events found.\n"
	}

	var b strings.Builder
	date := ""
	for _, e := range events {
		if e.Date != date {
			if date != "" {
				b.WriteString("\n")
			}
			date = e.Date
			b.WriteString(headerStyle.Render(e.Date) + "\n")
		}

		line := timeStyle.Render(e.Time) +
			categoryStyle(e.Category).Render(fmt.Sprintf("%-9s", e.Category)) +
			fmt.Sprintf("%-4dm ", e.DurationOrDefault()) +
			e.Title
		if rule := recurrence.Describe(e.EventDefinition); rule != "" {
			line += moreStyle.Render(" (" + strings.ToLower(rule) + ")")
		}
		line += "  " + idStyle.Render(e.ID)
		b.WriteString(line + "\n")
	}
	fmt.Fprintf(&b, "\nTotal: %d events\n", len(events))
	return b.String()
}
