package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/itsbohara/anchor/internal/events"
	"github.com/itsbohara/anchor/internal/models"
	"github.com/itsbohara/anchor/internal/remote"
	"github.com/itsbohara/anchor/internal/testutil"
)

// fakeRemote is an in-memory remote.Store. When hold is set for an op the
// first call of that op signals entered and waits for release.
type fakeRemote struct {
	mu      sync.Mutex
	refs    []models.Reference
	nextID  int
	fail    error
	loads   atomic.Int32
	hold    map[string]chan struct{}
	entered chan string
}

func newFake(refs ...models.Reference) *fakeRemote {
	return &fakeRemote{refs: refs, hold: map[string]chan struct{}{}, entered: make(chan string, 8)}
}

func (f *fakeRemote) gate(op string) {
	f.mu.Lock()
	ch, ok := f.hold[op]
	if ok {
		delete(f.hold, op)
	}
	f.mu.Unlock()
	if ok {
		f.entered <- op
		<-ch
	}
}

func (f *fakeRemote) err(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return &remote.OpError{Op: op, Err: f.fail}
	}
	return nil
}

func (f *fakeRemote) Load(context.Context) ([]models.Reference, error) {
	f.loads.Add(1)
	f.mu.Lock()
	refs := append([]models.Reference(nil), f.refs...)
	f.mu.Unlock()
	f.gate("load")
	if err := f.err(remote.OpLoad); err != nil {
		return nil, err
	}
	return refs, nil
}

func (f *fakeRemote) Create(_ context.Context, d models.Draft) (models.Reference, error) {
	f.gate("create")
	if err := f.err(remote.OpCreate); err != nil {
		return models.Reference{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	ref := refFrom(fmt.Sprintf("id-%d", f.nextID), d)
	f.refs = append(f.refs, ref)
	return ref, nil
}

func (f *fakeRemote) Update(_ context.Context, id string, d models.Draft) (models.Reference, error) {
	f.gate("update")
	if err := f.err(remote.OpUpdate); err != nil {
		return models.Reference{}, err
	}
	return refFrom(id, d), nil
}

func (f *fakeRemote) Delete(context.Context, string) error {
	f.gate("delete")
	return f.err(remote.OpDelete)
}

func (f *fakeRemote) PathExists(context.Context, string) (bool, error) { return true, nil }

func refFrom(id string, d models.Draft) models.Reference {
	return models.Reference{
		ID:            id,
		ReferenceName: d.ReferenceName,
		AbsolutePath:  d.AbsolutePath,
		Type:          d.Type,
		Status:        d.Status,
		Tags:          d.Tags,
		CreatedAt:     "2024-01-01T00:00:00Z",
		LastOpenedAt:  "2024-01-01T00:00:00Z",
	}
}

func named(id, name string) models.Reference {
	return models.Reference{ID: id, ReferenceName: name, AbsolutePath: "/" + name, Tags: []string{}}
}

// holdOp makes the next call of op block and returns its release func.
func (f *fakeRemote) holdOp(op string) func() {
	ch := make(chan struct{})
	f.mu.Lock()
	f.hold[op] = ch
	f.mu.Unlock()
	return func() { close(ch) }
}

func (f *fakeRemote) waitEntered(t *testing.T, op string) {
	t.Helper()
	select {
	case got := <-f.entered:
		if got != op {
			t.Fatalf("entered %q, want %q", got, op)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("%s never started", op)
	}
}

func ids(s Snapshot) []string {
	out := make([]string, len(s.References))
	for i, r := range s.References {
		out[i] = r.ID
	}
	return out
}

func TestAdd_Scenario(t *testing.T) {
	svc, _ := testutil.TestService(t)
	store := New(remote.NewLocal(svc, nil), testutil.Logger())

	ref, err := store.Add(context.Background(), models.Draft{
		ReferenceName: "Anchor",
		AbsolutePath:  "/tmp/a",
		Type:          models.TypeFolder,
		Status:        models.StatusActive,
		Tags:          []string{"x"},
	})
	if err != nil {
		t.Fatal(err)
	}
	snap := store.Snapshot()
	if len(snap.References) != 1 {
		t.Fatalf("len = %d, want 1", len(snap.References))
	}
	got := snap.References[0]
	if got.ReferenceName != "Anchor" || got.ID == "" || got.CreatedAt == "" || got.LastOpenedAt == "" {
		t.Errorf("cached = %+v", got)
	}
	if got.ID != ref.ID {
		t.Error("returned reference differs from cached one")
	}
	if snap.IsLoading || snap.Error != "" {
		t.Errorf("flags after success: %+v", snap)
	}
}

func TestLoad_ReplacesWholesale(t *testing.T) {
	f := newFake(named("a", "A"), named("b", "B"))
	store := New(f, testutil.Logger())
	ctx := context.Background()

	if err := store.Load(ctx); err != nil {
		t.Fatal(err)
	}
	f.mu.Lock()
	f.refs = []models.Reference{named("c", "C")}
	f.mu.Unlock()
	if err := store.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if got := ids(store.Snapshot()); len(got) != 1 || got[0] != "c" {
		t.Errorf("ids = %v, want [c]", got)
	}
}

func TestLoad_FailurePreservesState(t *testing.T) {
	f := newFake(named("a", "A"))
	store := New(f, testutil.Logger())
	ctx := context.Background()
	_ = store.Load(ctx)

	f.fail = errors.New("backend down")
	if err := store.Load(ctx); err == nil {
		t.Fatal("expected error")
	}
	snap := store.Snapshot()
	if len(snap.References) != 1 || snap.References[0].ID != "a" {
		t.Errorf("references changed on failed load: %v", ids(snap))
	}
	if snap.Error != "Failed to load references" {
		t.Errorf("error = %q", snap.Error)
	}
	if snap.IsLoading {
		t.Error("loading not cleared")
	}

	f.fail = nil
	_ = store.Load(ctx)
	if store.Snapshot().Error != "" {
		t.Error("error should reset on the next operation")
	}
}

func TestMutationFailure_LeavesCacheUntouched(t *testing.T) {
	f := newFake(named("a", "A"))
	store := New(f, testutil.Logger())
	ctx := context.Background()
	_ = store.Load(ctx)

	f.fail = errors.New("boom")
	if _, err := store.Add(ctx, models.Draft{ReferenceName: "B", AbsolutePath: "/b"}); err == nil {
		t.Error("add: expected error")
	}
	if _, err := store.Update(ctx, "a", models.Draft{ReferenceName: "Z", AbsolutePath: "/z"}); err == nil {
		t.Error("update: expected error")
	}
	if err := store.Delete(ctx, "a"); err == nil {
		t.Error("delete: expected error")
	}
	snap := store.Snapshot()
	if len(snap.References) != 1 || snap.References[0].ReferenceName != "A" {
		t.Errorf("cache changed: %+v", snap.References)
	}
	if snap.Error != "Failed to delete reference" {
		t.Errorf("error = %q", snap.Error)
	}
}

func TestUpdateInPlaceAndDelete(t *testing.T) {
	f := newFake(named("a", "A"), named("b", "B"), named("c", "C"))
	store := New(f, testutil.Logger())
	ctx := context.Background()
	_ = store.Load(ctx)

	if _, err := store.Update(ctx, "b", models.Draft{ReferenceName: "B2", AbsolutePath: "/b"}); err != nil {
		t.Fatal(err)
	}
	snap := store.Snapshot()
	if snap.References[1].ID != "b" || snap.References[1].ReferenceName != "B2" {
		t.Errorf("update not in place: %+v", snap.References)
	}

	if err := store.Delete(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if got := ids(store.Snapshot()); len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("ids after delete = %v", got)
	}
}

func TestIsLoadingWhileInFlight(t *testing.T) {
	f := newFake()
	store := New(f, testutil.Logger())
	release := f.holdOp("load")

	done := make(chan struct{})
	go func() {
		_ = store.Load(context.Background())
		close(done)
	}()
	f.waitEntered(t, "load")
	if !store.Snapshot().IsLoading {
		t.Error("expected IsLoading during load")
	}
	release()
	<-done
	if store.Snapshot().IsLoading {
		t.Error("expected IsLoading cleared")
	}
}

func TestStaleUpdateDiscarded(t *testing.T) {
	f := newFake(named("a", "A"))
	store := New(f, testutil.Logger())
	ctx := context.Background()
	_ = store.Load(ctx)

	release := f.holdOp("update")
	done := make(chan models.Reference)
	go func() {
		ref, _ := store.Update(ctx, "a", models.Draft{ReferenceName: "first", AbsolutePath: "/a"})
		done <- ref
	}()
	f.waitEntered(t, "update")

	if _, err := store.Update(ctx, "a", models.Draft{ReferenceName: "second", AbsolutePath: "/a"}); err != nil {
		t.Fatal(err)
	}
	release()
	if ref := <-done; ref.ReferenceName != "first" {
		t.Errorf("caller should still receive its result, got %q", ref.ReferenceName)
	}
	if got := store.Snapshot().References[0].ReferenceName; got != "second" {
		t.Errorf("name = %q, want second", got)
	}
}

func TestStaleUpdateCannotResurrect(t *testing.T) {
	f := newFake(named("a", "A"))
	store := New(f, testutil.Logger())
	ctx := context.Background()
	_ = store.Load(ctx)

	release := f.holdOp("update")
	done := make(chan struct{})
	go func() {
		_, _ = store.Update(ctx, "a", models.Draft{ReferenceName: "late", AbsolutePath: "/a"})
		close(done)
	}()
	f.waitEntered(t, "update")

	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	release()
	<-done
	if n := len(store.Snapshot().References); n != 0 {
		t.Errorf("deleted reference came back: %d entries", n)
	}
}

func TestConfirmedDeleteWinsOverLaterUpdate(t *testing.T) {
	f := newFake(named("a", "A"))
	store := New(f, testutil.Logger())
	ctx := context.Background()
	_ = store.Load(ctx)

	release := f.holdOp("delete")
	done := make(chan error)
	go func() { done <- store.Delete(ctx, "a") }()
	f.waitEntered(t, "delete")

	if _, err := store.Update(ctx, "a", models.Draft{ReferenceName: "renamed", AbsolutePath: "/a"}); err != nil {
		t.Fatal(err)
	}
	release()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if got := ids(store.Snapshot()); len(got) != 0 {
		t.Errorf("confirmed delete was not applied, cache holds %v", got)
	}

	// A later stale update for the same id must not bring it back.
	if _, err := store.Update(ctx, "a", models.Draft{ReferenceName: "again", AbsolutePath: "/a"}); err != nil {
		t.Fatal(err)
	}
	if got := ids(store.Snapshot()); len(got) != 0 {
		t.Errorf("update resurrected a deleted reference: %v", got)
	}
}

func TestSupersededLoadNotApplied(t *testing.T) {
	f := newFake()
	store := New(f, testutil.Logger())
	ctx := context.Background()

	release := f.holdOp("load")
	done := make(chan struct{})
	go func() {
		_ = store.Load(ctx)
		close(done)
	}()
	f.waitEntered(t, "load")

	// The load has already read an empty set; this add lands first.
	if _, err := store.Add(ctx, models.Draft{ReferenceName: "N", AbsolutePath: "/n"}); err != nil {
		t.Fatal(err)
	}
	release()
	<-done
	snap := store.Snapshot()
	if len(snap.References) != 1 {
		t.Errorf("superseded load overwrote the add: %v", ids(snap))
	}
	if snap.IsLoading {
		t.Error("loading not cleared by superseded load")
	}
}

func TestUniqueness_CreateOfExistingIDReplaces(t *testing.T) {
	f := newFake()
	store := New(f, testutil.Logger())
	ctx := context.Background()

	ref, _ := store.Add(ctx, models.Draft{ReferenceName: "A", AbsolutePath: "/a"})
	f.mu.Lock()
	f.nextID = 0 // next create reuses id-1
	f.mu.Unlock()
	_, _ = store.Add(ctx, models.Draft{ReferenceName: "A again", AbsolutePath: "/a"})

	snap := store.Snapshot()
	if len(snap.References) != 1 || snap.References[0].ID != ref.ID {
		t.Fatalf("duplicate ids in cache: %v", ids(snap))
	}
	if snap.References[0].ReferenceName != "A again" {
		t.Errorf("name = %q", snap.References[0].ReferenceName)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	f := newFake(models.Reference{ID: "a", ReferenceName: "A", Tags: []string{"x"}})
	store := New(f, testutil.Logger())
	_ = store.Load(context.Background())

	snap := store.Snapshot()
	snap.References[0].ReferenceName = "mutated"
	snap.References[0].Tags[0] = "mutated"
	again := store.Snapshot()
	if again.References[0].ReferenceName != "A" || again.References[0].Tags[0] != "x" {
		t.Error("snapshot shares memory with the cache")
	}
}

func TestRefresher(t *testing.T) {
	f := newFake(named("a", "A"))
	store := New(f, testutil.Logger())
	bus := events.NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var snaps atomic.Int32
	r := NewRefresher(ctx, bus, store, func(Snapshot) { snaps.Add(1) })

	bus.Emit(events.WindowFocus)
	bus.Emit(events.ReferencesChanged)
	bus.Emit(events.WindowVisible)
	testutil.Eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return snaps.Load() == 3
	}, "refresh triggers did not all reload")
	if n := f.loads.Load(); n != 3 {
		t.Errorf("loads = %d, want 3", n)
	}

	r.Close()
	bus.Emit(events.WindowFocus)
	time.Sleep(50 * time.Millisecond)
	if n := f.loads.Load(); n != 3 {
		t.Errorf("load after Close: loads = %d", n)
	}
}
