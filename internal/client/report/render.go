package report

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	subtle     = lipgloss.NewStyle().Faint(true)
	boldCell   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell       = lipgloss.NewStyle().Padding(0, 1)
	amountCell = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
)

// Render draws t for the terminal.
func Render(t Table) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(t.Title))
	b.WriteByte('\n')
	if t.Subtitle != "" {
		b.WriteString(subtle.Render(t.Subtitle))
		b.WriteByte('\n')
	}

	header := "Amount"
	if t.Currency != "" {
		header += " (" + t.Currency + ")"
	}
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("", header).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow || row >= len(t.Rows) {
				return boldCell
			}
			r := t.Rows[row]
			switch {
			case r.Kind != Item && col == 0:
				return boldCell
			case col == 1 && r.Kind == Total:
				return amountCell.Bold(true)
			case col == 1:
				return amountCell
			}
			return cell
		})

	for _, r := range t.Rows {
		tbl.Row(displayLabel(r), displayValue(r))
	}
	b.WriteString(tbl.String())
	b.WriteByte('\n')
	return b.String()
}

func displayLabel(r Row) string {
	if r.Kind == Item {
		return "  " + r.Label
	}
	return r.Label
}

func displayValue(r Row) string {
	switch r.Kind {
	case Heading:
		return ""
	case Note:
		return r.Text
	}
	return r.Amount.StringFixed(2)
}
