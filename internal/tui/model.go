// Package tui is the quick-access panel: a search box over the cached
// references with keyboard navigation, open actions and an inline add form.
package tui

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/itsbohara/anchor/internal/cache"
	"github.com/itsbohara/anchor/internal/events"
	"github.com/itsbohara/anchor/internal/models"
	"github.com/itsbohara/anchor/internal/nav"
	"github.com/itsbohara/anchor/internal/pathcheck"
	"github.com/itsbohara/anchor/internal/remote"
	"github.com/itsbohara/anchor/internal/shell"
	"github.com/itsbohara/anchor/internal/view"
)

const emptyText = "No references found"

type (
	snapshotMsg  cache.Snapshot
	pathStateMsg pathcheck.State
	actionMsg    struct {
		command string
		name    string
		err     error
	}
	savedMsg struct {
		ref models.Reference
		err error
	}
)

// Options wires the panel to its collaborators.
type Options struct {
	Cache          *cache.Store
	Runner         remote.Runner
	Checker        pathcheck.Checker
	Bus            *events.Bus
	PathCheckDelay time.Duration
	Logger         *slog.Logger
}

// Model is the bubbletea model of the panel.
type Model struct {
	ctx    context.Context
	opts   Options
	logger *slog.Logger
	notify func(tea.Msg)

	search   textinput.Model
	machine  *nav.Machine
	pending  []tea.Cmd
	snapshot cache.Snapshot
	rows     []view.Row
	form     *form
	status   string

	width     int
	dashboard bool
	quitting  bool
}

// New builds a panel model. Messages produced outside the update loop
// (path checks, background reloads) go through notify; it may be nil in
// which case they are dropped.
func New(ctx context.Context, opts Options, notify func(tea.Msg)) *Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	search := textinput.New()
	search.Placeholder = "Search references..."
	search.Prompt = "› "
	search.Cursor.SetMode(cursor.CursorStatic)
	search.Focus()

	m := &Model{
		ctx:    ctx,
		opts:   opts,
		logger: opts.Logger,
		notify: notify,
		search: search,
	}
	m.machine = nav.New(dispatcher{m})
	return m
}

// WantsDashboard reports whether the panel was closed through the
// "Open Anchor" control.
func (m *Model) WantsDashboard() bool { return m.dashboard }

func (m *Model) Init() tea.Cmd {
	return m.load()
}

func (m *Model) load() tea.Cmd {
	c := m.opts.Cache
	ctx := m.ctx
	logger := m.logger
	return func() tea.Msg {
		if err := c.Load(ctx); err != nil {
			logger.Debug("tui: load failed", slog.String("error", err.Error()))
		}
		return snapshotMsg(c.Snapshot())
	}
}

func (m *Model) send(msg tea.Msg) {
	if m.notify != nil {
		m.notify(msg)
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.FocusMsg:
		if m.opts.Bus != nil {
			m.opts.Bus.Emit(events.WindowFocus)
			return m, nil
		}
		return m, m.load()

	case tea.ResumeMsg:
		// Coming back from a suspend is the panel becoming visible again.
		if m.opts.Bus != nil {
			m.opts.Bus.Emit(events.WindowVisible)
			return m, nil
		}
		return m, m.load()

	case snapshotMsg:
		m.snapshot = cache.Snapshot(msg)
		m.refresh()
		return m, nil

	case pathStateMsg:
		// The assistant's own state wins over the delivered value, which
		// may be from an edit that has since been superseded.
		if m.form != nil {
			m.form.path = pathcheck.State(msg)
			if m.form.checker != nil {
				m.form.path = m.form.checker.State()
			}
		}
		return m, nil

	case actionMsg:
		// Open failures are not surfaced in the panel.
		m.status = ""
		if msg.err != nil {
			m.logger.Debug("tui: action failed",
				slog.String("command", msg.command),
				slog.String("error", msg.err.Error()))
		} else if msg.command == shell.CopyPath {
			m.status = "Copied path of " + msg.name
		}
		return m, nil

	case savedMsg:
		return m, m.saved(msg)

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if key.Matches(msg, keys.Suspend) {
			return m, tea.Suspend
		}
		if m.form != nil {
			return m, m.updateForm(msg)
		}
		return m, m.updateList(msg)
	}

	if m.form != nil {
		return m, m.form.update(msg)
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

// refresh rederives the visible rows from the snapshot and the query.
func (m *Model) refresh() {
	m.rows = view.Flatten(view.QuickAccess(m.snapshot.References, m.search.Value()))
	m.machine.SetItems(view.Items(m.rows))
}

func (m *Model) updateList(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.New):
		m.openForm()
		return nil
	case key.Matches(msg, keys.Copy):
		if ref, ok := m.machine.Selected(); ok {
			return m.run(shell.CopyPath, ref)
		}
		return nil
	case key.Matches(msg, keys.Reveal):
		if ref, ok := m.machine.Selected(); ok {
			return m.run(shell.RevealInFinder, ref)
		}
		return nil
	case key.Matches(msg, keys.Open) && m.machine.Focus() == nav.FocusPrimary:
		m.dashboard = true
		m.quitting = true
		return tea.Quit
	}

	if k, mod, ok := navKey(msg); ok {
		act, _ := m.machine.Handle(k, mod)
		if act == nav.ActionFocus {
			m.syncFocus()
		}
		return m.flush()
	}

	if m.machine.Focus() != nav.FocusSearch {
		return nil
	}
	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != before {
		m.machine.QueryChanged()
		m.refresh()
	}
	return cmd
}

func (m *Model) syncFocus() {
	if m.machine.Focus() == nav.FocusSearch {
		m.search.Focus()
	} else {
		m.search.Blur()
	}
}

// flush returns the commands queued by the navigation dispatcher.
func (m *Model) flush() tea.Cmd {
	cmds := m.pending
	m.pending = nil
	switch len(cmds) {
	case 0:
		return nil
	case 1:
		return cmds[0]
	}
	return tea.Batch(cmds...)
}

func (m *Model) run(command string, ref models.Reference) tea.Cmd {
	runner := m.opts.Runner
	ctx := m.ctx
	name := ref.ReferenceName
	path := ref.AbsolutePath
	return func() tea.Msg {
		if runner == nil {
			return actionMsg{command: command, name: name}
		}
		return actionMsg{command: command, name: name, err: runner.Run(ctx, command, path)}
	}
}

func (m *Model) openForm() {
	var checker *pathcheck.Assistant
	if m.opts.Checker != nil {
		checker = pathcheck.New(m.opts.Checker, m.opts.PathCheckDelay, func(s pathcheck.State) {
			m.send(pathStateMsg(s))
		})
	}
	m.form = newForm(checker)
	m.search.Blur()
}

func (m *Model) closeForm() {
	if m.form != nil {
		m.form.close()
		m.form = nil
	}
	m.syncFocus()
}

func (m *Model) updateForm(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Dismiss):
		m.closeForm()
		return nil
	case key.Matches(msg, keys.Next), key.Matches(msg, keys.Down):
		m.form.move(1)
		return nil
	case key.Matches(msg, keys.Prev), key.Matches(msg, keys.Up):
		m.form.move(-1)
		return nil
	case key.Matches(msg, keys.Save):
		return m.submit()
	case key.Matches(msg, keys.Open):
		if m.form.focus == fieldTags {
			return m.submit()
		}
		m.form.move(1)
		return nil
	}
	return m.form.update(msg)
}

func (m *Model) submit() tea.Cmd {
	f := m.form
	if f.saving {
		return nil
	}
	d := f.draft()
	res := models.ValidateForSave(d)
	f.errors = res.Errors
	f.err = ""
	if !res.Valid {
		return nil
	}
	f.saving = true
	c := m.opts.Cache
	ctx := m.ctx
	return func() tea.Msg {
		ref, err := c.Add(ctx, d)
		return savedMsg{ref: ref, err: err}
	}
}

func (m *Model) saved(msg savedMsg) tea.Cmd {
	if m.form != nil {
		m.form.saving = false
		if msg.err != nil {
			m.form.err = remote.Message(msg.err)
			return nil
		}
	}
	if msg.err != nil {
		m.status = remote.Message(msg.err)
		return nil
	}
	m.closeForm()
	m.status = "Added " + msg.ref.ReferenceName
	m.snapshot = m.opts.Cache.Snapshot()
	m.refresh()
	return nil
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.form != nil {
		return m.form.view()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Anchor"))
	b.WriteString("\n")
	b.WriteString(m.search.View())
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		if m.snapshot.IsLoading {
			b.WriteString(emptyStyle.Render("Loading…"))
		} else {
			b.WriteString(emptyStyle.Render(emptyText))
		}
		b.WriteString("\n")
	}

	cur := m.machine.Cursor()
	for _, row := range m.rows {
		if row.Kind == view.RowHeader {
			b.WriteString(headerStyle.Render(row.Label))
			b.WriteString("\n")
			continue
		}
		name := itemStyle.Render(row.Reference.ReferenceName)
		if row.Index == cur {
			name = selectedStyle.Render(row.Reference.ReferenceName)
		}
		b.WriteString(name + "  " + pathStyle.Render(row.Reference.AbsolutePath))
		b.WriteString("\n")
	}

	if m.snapshot.Error != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.snapshot.Error))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(pathStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	btn := buttonStyle
	if m.machine.Focus() == nav.FocusPrimary {
		btn = buttonFocusedStyle
	}
	b.WriteString(btn.Render("Open Anchor"))
	b.WriteString("\n")
	b.WriteString(footerStyle.Render(helpLine(keys.Open, keys.Terminal, keys.Editor, keys.Copy, keys.New, keys.Dismiss)))
	return b.String()
}

// dispatcher turns navigation actions into queued commands.
type dispatcher struct{ m *Model }

func (d dispatcher) OpenDefault(ref models.Reference) {
	d.m.pending = append(d.m.pending, d.m.run(shell.OpenInFinder, ref))
}

func (d dispatcher) OpenTerminal(ref models.Reference) {
	d.m.pending = append(d.m.pending, d.m.run(shell.OpenInTerminal, ref))
}

func (d dispatcher) OpenEditor(ref models.Reference) {
	d.m.pending = append(d.m.pending, d.m.run(shell.OpenInEditor, ref))
}

func (d dispatcher) Dismiss() {
	d.m.quitting = true
	d.m.pending = append(d.m.pending, tea.Quit)
}
