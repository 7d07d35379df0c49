package tui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/itsbohara/anchor/internal/cache"
	"github.com/itsbohara/anchor/internal/events"
	"github.com/itsbohara/anchor/internal/models"
	"github.com/itsbohara/anchor/internal/nav"
	"github.com/itsbohara/anchor/internal/pathcheck"
	"github.com/itsbohara/anchor/internal/remote"
	"github.com/itsbohara/anchor/internal/testutil"
	"github.com/itsbohara/anchor/internal/view"
)

type call struct{ command, path string }

type fakeBackend struct {
	mu        sync.Mutex
	refs      []models.Reference
	createErr error
	calls     []call
}

func (f *fakeBackend) Load(context.Context) ([]models.Reference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Reference(nil), f.refs...), nil
}

func (f *fakeBackend) Create(_ context.Context, d models.Draft) (models.Reference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return models.Reference{}, &remote.OpError{Op: remote.OpCreate, Message: f.createErr.Error()}
	}
	r := models.Reference{
		ID: "new", ReferenceName: d.ReferenceName, AbsolutePath: d.AbsolutePath,
		Type: d.Type, Status: d.Status, Tags: d.Tags, Description: d.Description, Pinned: d.Pinned,
		CreatedAt: "2024-02-01T00:00:00Z", LastOpenedAt: "2024-02-01T00:00:00Z",
	}
	f.refs = append(f.refs, r)
	return r, nil
}

func (f *fakeBackend) Update(_ context.Context, id string, d models.Draft) (models.Reference, error) {
	return models.Reference{ID: id, ReferenceName: d.ReferenceName}, nil
}

func (f *fakeBackend) Delete(context.Context, string) error { return nil }

func (f *fakeBackend) PathExists(_ context.Context, path string) (bool, error) {
	return !strings.HasPrefix(path, "/missing"), nil
}

func (f *fakeBackend) Run(_ context.Context, command, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{command, path})
	return nil
}

func (f *fakeBackend) lastCall() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return call{}
	}
	return f.calls[len(f.calls)-1]
}

func ref(id, name string, st models.Status, pinned bool) models.Reference {
	return models.Reference{
		ID: id, ReferenceName: name, AbsolutePath: "/src/" + strings.ToLower(name),
		Type: models.TypeFolder, Status: st, Tags: []string{}, Pinned: pinned,
		CreatedAt: "2024-01-01T12:00:00Z", LastOpenedAt: "2024-01-01T12:00:00Z",
	}
}

type harness struct {
	t       *testing.T
	m       *Model
	backend *fakeBackend
	async   chan tea.Msg
	quit    bool
}

func newHarness(t *testing.T, bus *events.Bus, refs ...models.Reference) *harness {
	t.Helper()
	backend := &fakeBackend{refs: refs}
	h := &harness{t: t, backend: backend, async: make(chan tea.Msg, 16)}
	h.m = New(context.Background(), Options{
		Cache:          cache.New(backend, testutil.Logger()),
		Runner:         backend,
		Checker:        backend,
		Bus:            bus,
		PathCheckDelay: 10 * time.Millisecond,
		Logger:         testutil.Logger(),
	}, func(msg tea.Msg) { h.async <- msg })
	h.send(h.m.Init()())
	return h
}

// send feeds msg to the model and runs every resulting command to
// completion, feeding their messages back in.
func (h *harness) send(msg tea.Msg) {
	queue := []tea.Msg{msg}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if _, ok := next.(tea.QuitMsg); ok {
			h.quit = true
			continue
		}
		_, cmd := h.m.Update(next)
		queue = append(queue, collect(cmd)...)
	}
}

func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func (h *harness) key(k tea.KeyType) { h.send(tea.KeyMsg{Type: k}) }

func (h *harness) typeText(s string) {
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

// awaitPath drains asynchronous path states until one satisfies ok.
func (h *harness) awaitPath(ok func(pathcheck.State) bool) {
	h.t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-h.async:
			h.send(msg)
			if s, is := msg.(pathStateMsg); is && ok(pathcheck.State(s)) {
				return
			}
		case <-deadline:
			h.t.Fatal("path state never reached")
		}
	}
}

func sample() []models.Reference {
	return []models.Reference{
		ref("1", "Alpha", models.StatusActive, true),
		ref("2", "Beta", models.StatusActive, false),
		ref("3", "Gamma", models.StatusIdea, false),
	}
}

func TestModel_RendersSections(t *testing.T) {
	h := newHarness(t, nil, sample()...)
	out := h.m.View()
	for _, want := range []string{"Pinned", "Active", "Idea", "Alpha", "Beta", "Gamma", "Open Anchor"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Pinned") > strings.Index(out, "Active") {
		t.Error("pinned section should come first")
	}
}

func TestModel_EmptyState(t *testing.T) {
	h := newHarness(t, nil)
	if !strings.Contains(h.m.View(), emptyText) {
		t.Errorf("view = %q", h.m.View())
	}
}

func TestModel_TypingFiltersAndResetsCursor(t *testing.T) {
	h := newHarness(t, nil, sample()...)
	h.key(tea.KeyDown)
	h.key(tea.KeyDown)
	if h.m.machine.Cursor() != 2 {
		t.Fatalf("cursor = %d", h.m.machine.Cursor())
	}
	h.typeText("gam")
	if h.m.machine.Cursor() != 0 {
		t.Errorf("cursor after query = %d", h.m.machine.Cursor())
	}
	items := view.Items(h.m.rows)
	if len(items) != 1 || items[0].ID != "3" {
		t.Errorf("items = %+v", items)
	}

	h.typeText("zzz")
	if !strings.Contains(h.m.View(), emptyText) {
		t.Error("expected empty state for unmatched query")
	}
}

func TestModel_OpenActions(t *testing.T) {
	cases := []struct {
		name string
		msg  tea.KeyMsg
		want string
	}{
		{"enter", tea.KeyMsg{Type: tea.KeyEnter}, "open_in_finder"},
		{"ctrl+t", tea.KeyMsg{Type: tea.KeyCtrlT}, "open_in_terminal"},
		{"alt+enter", tea.KeyMsg{Type: tea.KeyEnter, Alt: true}, "open_in_vscode"},
		{"ctrl+e", tea.KeyMsg{Type: tea.KeyCtrlE}, "open_in_vscode"},
		{"ctrl+y", tea.KeyMsg{Type: tea.KeyCtrlY}, "copy_path_to_clipboard"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, nil, sample()...)
			h.key(tea.KeyDown)
			h.send(tc.msg)
			got := h.backend.lastCall()
			if got.command != tc.want || got.path != "/src/beta" {
				t.Errorf("call = %+v, want %s on /src/beta", got, tc.want)
			}
			if h.quit {
				t.Error("open actions keep the panel open")
			}
		})
	}
}

func TestModel_CopyShowsStatus(t *testing.T) {
	h := newHarness(t, nil, sample()...)
	h.key(tea.KeyCtrlY)
	if !strings.Contains(h.m.View(), "Copied path of Alpha") {
		t.Errorf("view = %s", h.m.View())
	}
}

func TestModel_EnterOnEmptyListDoesNothing(t *testing.T) {
	h := newHarness(t, nil)
	h.key(tea.KeyEnter)
	if c := h.backend.lastCall(); c.command != "" {
		t.Errorf("unexpected call %+v", c)
	}
}

func TestModel_EscapeDismisses(t *testing.T) {
	h := newHarness(t, nil, sample()...)
	h.key(tea.KeyEsc)
	if !h.quit {
		t.Error("escape should quit")
	}
	if h.m.View() != "" {
		t.Error("view should be blank after quitting")
	}
}

func TestModel_FocusRingAndDashboard(t *testing.T) {
	h := newHarness(t, nil, sample()...)
	h.key(tea.KeyShiftTab)
	if h.m.machine.Focus() != nav.FocusPrimary {
		t.Fatalf("focus = %v", h.m.machine.Focus())
	}
	h.typeText("x")
	if h.m.search.Value() != "" {
		t.Error("typing with the button focused should not edit the query")
	}
	h.key(tea.KeyTab)
	if h.m.machine.Focus() != nav.FocusSearch {
		t.Fatalf("focus = %v", h.m.machine.Focus())
	}

	h.key(tea.KeyShiftTab)
	h.key(tea.KeyEnter)
	if !h.quit || !h.m.WantsDashboard() {
		t.Error("enter on the button should close and request the dashboard")
	}
	if c := h.backend.lastCall(); c.command != "" {
		t.Errorf("unexpected call %+v", c)
	}
}

func TestModel_FocusReloadsThroughBus(t *testing.T) {
	bus := events.NewBus()
	fired := make(chan struct{}, 1)
	unsub := bus.Subscribe(events.WindowFocus, func() { fired <- struct{}{} })
	defer unsub()

	h := newHarness(t, bus, sample()...)
	h.send(tea.FocusMsg{})
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("focus was not emitted")
	}
}

func TestModel_FocusReloadsWithoutBus(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.mu.Lock()
	h.backend.refs = sample()
	h.backend.mu.Unlock()

	h.send(tea.FocusMsg{})
	if len(view.Items(h.m.rows)) != 3 {
		t.Errorf("rows = %+v", h.m.rows)
	}
}

func TestModel_ResumeEmitsVisible(t *testing.T) {
	bus := events.NewBus()
	fired := make(chan struct{}, 1)
	unsub := bus.Subscribe(events.WindowVisible, func() { fired <- struct{}{} })
	defer unsub()

	h := newHarness(t, bus, sample()...)
	h.send(tea.ResumeMsg{})
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("visibility was not emitted")
	}
}

func TestModel_ResumeReloadsWithoutBus(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.mu.Lock()
	h.backend.refs = sample()
	h.backend.mu.Unlock()

	h.send(tea.ResumeMsg{})
	if len(view.Items(h.m.rows)) != 3 {
		t.Errorf("rows = %+v", h.m.rows)
	}
}

func TestModel_AddForm(t *testing.T) {
	h := newHarness(t, nil, sample()...)
	h.key(tea.KeyCtrlN)
	if h.m.form == nil {
		t.Fatal("form did not open")
	}
	h.typeText("Delta")
	h.key(tea.KeyTab)
	h.typeText("/missing/delta")
	h.awaitPath(func(s pathcheck.State) bool { return s.Warning != "" })
	if !strings.Contains(h.m.View(), pathcheck.WarningText) {
		t.Errorf("warning not shown:\n%s", h.m.View())
	}

	h.key(tea.KeyTab) // type
	h.key(tea.KeyTab) // status
	h.key(tea.KeyTab)
	h.typeText("go, , cli")
	h.key(tea.KeyCtrlS)

	if h.m.form != nil {
		t.Fatalf("form should close after save; err=%q", h.m.form.err)
	}
	snap := h.m.opts.Cache.Snapshot()
	last := snap.References[len(snap.References)-1]
	if last.ReferenceName != "Delta" || strings.Join(last.Tags, "|") != "go|cli" {
		t.Errorf("added = %+v", last)
	}
	if !strings.Contains(h.m.View(), "Delta") {
		t.Error("new reference should be listed")
	}
}

func TestModel_AddFormEveryField(t *testing.T) {
	h := newHarness(t, nil)
	h.key(tea.KeyCtrlN)
	h.typeText("Delta")
	h.key(tea.KeyTab)
	h.typeText("/src/delta")
	h.key(tea.KeyTab)
	h.key(tea.KeyRight) // folder -> file
	h.key(tea.KeyTab)
	h.key(tea.KeyRight)
	h.key(tea.KeyRight)
	h.key(tea.KeyLeft)
	h.key(tea.KeyRight) // active -> idea
	h.key(tea.KeyTab)
	h.typeText("go")
	h.key(tea.KeyTab)
	h.typeText("  release notes ")
	h.key(tea.KeyTab)
	if !strings.Contains(h.m.View(), "‹ no ›") {
		t.Errorf("pinned should default to no:\n%s", h.m.View())
	}
	h.send(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	h.key(tea.KeyEnter)

	if h.m.form != nil {
		t.Fatalf("enter on the last field should save; err=%q", h.m.form.err)
	}
	h.backend.mu.Lock()
	got := h.backend.refs[len(h.backend.refs)-1]
	h.backend.mu.Unlock()
	if got.Type != models.TypeFile || got.Status != models.StatusIdea || !got.Pinned {
		t.Errorf("added = %+v", got)
	}
	if got.Description == nil || *got.Description != "release notes" {
		t.Errorf("description = %v", got.Description)
	}
	if strings.Join(got.Tags, "|") != "go" {
		t.Errorf("tags = %v", got.Tags)
	}
}

func TestModel_AddFormBlankDescriptionIsNil(t *testing.T) {
	h := newHarness(t, nil)
	h.key(tea.KeyCtrlN)
	h.typeText("Delta")
	h.key(tea.KeyTab)
	h.typeText("/src/delta")
	h.key(tea.KeyCtrlS)

	h.backend.mu.Lock()
	got := h.backend.refs[len(h.backend.refs)-1]
	h.backend.mu.Unlock()
	if got.Description != nil || got.Pinned || got.Type != models.TypeFolder || got.Status != models.StatusActive {
		t.Errorf("added = %+v", got)
	}
}

func TestModel_StalePathStateIgnored(t *testing.T) {
	h := newHarness(t, nil)
	h.key(tea.KeyCtrlN)
	h.key(tea.KeyTab)
	h.typeText("/src/a")
	for range len("/src/a") {
		h.key(tea.KeyBackspace)
	}
	if v := h.m.form.inputs[fieldPath].Value(); v != "" {
		t.Fatalf("path = %q", v)
	}

	// A check started before the clear reports late.
	h.send(pathStateMsg(pathcheck.State{Checking: true}))
	if out := h.m.View(); strings.Contains(out, "checking…") {
		t.Errorf("stale state rendered:\n%s", out)
	}
}

func TestModel_AddFormValidation(t *testing.T) {
	h := newHarness(t, nil)
	h.key(tea.KeyCtrlN)
	h.key(tea.KeyCtrlS)
	if h.m.form == nil {
		t.Fatal("form should stay open")
	}
	out := h.m.View()
	for _, want := range []string{"Reference name is required", "Absolute path is required"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if len(h.m.opts.Cache.Snapshot().References) != 0 {
		t.Error("nothing should be created")
	}
}

func TestModel_AddFormBackendError(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.createErr = errors.New("Path is locked")
	h.key(tea.KeyCtrlN)
	h.typeText("Delta")
	h.key(tea.KeyTab)
	h.typeText("/src/delta")
	h.key(tea.KeyCtrlS)
	if h.m.form == nil {
		t.Fatal("form should stay open on failure")
	}
	if !strings.Contains(h.m.View(), "Path is locked") {
		t.Errorf("view = %s", h.m.View())
	}

	h.key(tea.KeyEsc)
	if h.m.form != nil || h.quit {
		t.Error("escape in the form closes only the form")
	}
}

func TestRenderDashboard(t *testing.T) {
	refs := sample()
	groups := view.Dashboard(refs, "", view.DefaultSort)
	var buf bytes.Buffer
	if err := RenderDashboard(&buf, groups); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Active (2)", "Idea (1)", "NAME", "/src/gamma", "2024-01-01"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Paused") {
		t.Error("empty groups should be skipped")
	}
	if !strings.Contains(out, "│") || !strings.Contains(out, "┌") {
		t.Errorf("expected a bordered table:\n%s", out)
	}

	buf.Reset()
	_ = RenderDashboard(&buf, view.Dashboard(nil, "", view.DefaultSort))
	if strings.TrimSpace(buf.String()) != emptyText {
		t.Errorf("empty output = %q", buf.String())
	}
}
