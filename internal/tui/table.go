package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/itsbohara/anchor/internal/view"
)

// RenderDashboard writes the grouped references as one table per status.
// Groups with no members are skipped; when every group is empty the empty
// text is written instead.
func RenderDashboard(w io.Writer, groups []view.Group) error {
	total := 0
	for _, g := range groups {
		total += len(g.References)
	}
	if total == 0 {
		_, err := fmt.Fprintln(w, emptyText)
		return err
	}

	first := true
	for _, g := range groups {
		if len(g.References) == 0 {
			continue
		}
		if !first {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		first = false
		if _, err := fmt.Fprintf(w, "%s (%d)\n", headerStyle.Render(g.Label), len(g.References)); err != nil {
			return err
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(colorMuted)).
			Headers("", "NAME", "PATH", "TYPE", "TAGS", "LAST OPENED", "ID").
			StyleFunc(func(row, _ int) lipgloss.Style {
				if row == table.HeaderRow {
					return tableHeaderStyle
				}
				return tableCellStyle
			})
		for _, r := range g.References {
			pin := ""
			if r.Pinned {
				pin = "*"
			}
			t.Row(pin, r.ReferenceName, r.AbsolutePath, string(r.Type),
				strings.Join(r.Tags, ", "), shortTime(r.LastOpenedAt), r.ID)
		}
		if _, err := fmt.Fprintln(w, t.Render()); err != nil {
			return err
		}
	}
	return nil
}

func shortTime(s string) string {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	return t.Local().Format("2006-01-02 15:04")
}
