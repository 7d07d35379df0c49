package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/itsbohara/anchor/internal/cache"
)

// Run shows the panel until it is dismissed. It reports whether the user
// asked for the full dashboard on the way out.
func Run(ctx context.Context, opts Options) (dashboard bool, err error) {
	var p *tea.Program
	m := New(ctx, opts, func(msg tea.Msg) {
		if p != nil {
			p.Send(msg)
		}
	})
	p = tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen(), tea.WithReportFocus())

	if opts.Bus != nil {
		r := cache.NewRefresher(ctx, opts.Bus, opts.Cache, func(s cache.Snapshot) {
			p.Send(snapshotMsg(s))
		})
		defer r.Close()
	}

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return false, nil
		}
		return false, fmt.Errorf("tui: %w", err)
	}
	return m.WantsDashboard(), nil
}
