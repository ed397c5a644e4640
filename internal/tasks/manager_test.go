package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestManager(t *testing.T, store Store) (*Manager, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2026, time.March, 10, 9, 0, 0, 0, time.Local)}
	if store == nil {
		store = NewInMemoryStore()
	}
	m, err := NewManager(context.Background(), store)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	m.SetClock(c.now)
	return m, c
}

func sequentialIDs(ids ...string) func() string {
	i := 0
	return func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
}

func TestAddListAndRemove(t *testing.T) {
	m, _ := newTestManager(t, nil)

	first := m.Add("buy milk", "alice")
	second := m.Add("write tests", "alice")
	m.Add("walk dog", "bob")

	if len(first) != idLength {
		t.Fatalf("id length = %d, want %d", len(first), idLength)
	}

	open := m.ListOpen("alice")
	if len(open) != 2 || open[0].ID != first || open[1].ID != second {
		t.Fatalf("ListOpen(alice) = %+v, want [%s %s]", open, first, second)
	}

	if m.Remove(first, "bob") {
		t.Fatalf("Remove() by non-owner = true, want false")
	}
	if m.Remove(first, "Alice") {
		t.Fatalf("Remove() with different casing = true, want false")
	}
	if !m.Remove(first, "alice") {
		t.Fatalf("Remove() by owner = false, want true")
	}
	if m.Remove(first, "alice") {
		t.Fatalf("second Remove() = true, want false")
	}
	if got := len(m.ListOpen("alice")); got != 1 {
		t.Fatalf("ListOpen(alice) len = %d, want 1", got)
	}
}

func TestAddRegeneratesCollidingIDs(t *testing.T) {
	m, _ := newTestManager(t, nil)
	m.SetIDGenerator(sequentialIDs("aaaaaaaa", "aaaaaaaa", "bbbbbbbb"))

	a := m.Add("one", "alice")
	b := m.Add("two", "alice")
	if a == b {
		t.Fatalf("ids collided: %q", a)
	}
	if b != "bbbbbbbb" {
		t.Fatalf("second id = %q, want %q", b, "bbbbbbbb")
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	m, _ := newTestManager(t, nil)
	id := m.Add("task", "alice")

	if !m.Complete(id, "alice") {
		t.Fatalf("first Complete() = false, want true")
	}
	if m.Complete(id, "alice") {
		t.Fatalf("second Complete() = true, want false")
	}
	st := m.StatsOf("alice")
	if st.Total != 1 || st.Daily != 1 {
		t.Fatalf("StatsOf(alice) = %+v, want daily=1 total=1", st)
	}
	if got := len(m.ListOpen("alice")); got != 0 {
		t.Fatalf("ListOpen(alice) len = %d, want 0", got)
	}
}

func TestCompleteRequiresOwner(t *testing.T) {
	m, _ := newTestManager(t, nil)
	id := m.Add("task", "alice")

	if m.Complete(id, "bob") {
		t.Fatalf("Complete() by non-owner = true, want false")
	}
	if m.Complete("missing", "alice") {
		t.Fatalf("Complete() unknown id = true, want false")
	}
	if got := m.StatsOf("bob"); got != (UserStats{}) {
		t.Fatalf("StatsOf(bob) = %+v, want zero", got)
	}
}

func TestWipeAllRemovesOnlyOwnerTasks(t *testing.T) {
	m, c := newTestManager(t, nil)
	m.Add("a", "alice")
	m.Add("b", "alice")
	bob := m.Add("c", "bob")
	done := m.Add("d", "alice")
	m.Complete(done, "alice")

	c.t = c.t.Add(time.Hour)
	if got := m.WipeAll("alice"); got != 3 {
		t.Fatalf("WipeAll(alice) = %d, want 3", got)
	}
	remaining := m.Snapshot().Tasks
	if len(remaining) != 1 || remaining[0].ID != bob {
		t.Fatalf("remaining tasks = %+v, want only %s", remaining, bob)
	}
	if got := m.WipeAll("alice"); got != 0 {
		t.Fatalf("second WipeAll(alice) = %d, want 0", got)
	}
}

func TestPruneStaleRemovesOnlyOlderTasks(t *testing.T) {
	m, c := newTestManager(t, nil)
	old := m.Add("yesterday's work", "alice")

	if got := m.PruneStale(DateOf(c.t)); got != 0 {
		t.Fatalf("same-day PruneStale() = %d, want 0", got)
	}

	c.t = c.t.Add(24 * time.Hour)
	fresh := m.Add("today's work", "alice")
	if got := m.PruneStale(DateOf(c.t)); got != 1 {
		t.Fatalf("next-day PruneStale() = %d, want 1", got)
	}

	tasks := m.Snapshot().Tasks
	if len(tasks) != 1 || tasks[0].ID != fresh {
		t.Fatalf("tasks after prune = %+v, want only %s (pruned %s)", tasks, fresh, old)
	}
}

func TestListOpenHidesYesterday(t *testing.T) {
	m, c := newTestManager(t, nil)
	m.Add("old", "alice")
	c.t = c.t.Add(24 * time.Hour)
	if got := len(m.ListOpen("alice")); got != 0 {
		t.Fatalf("ListOpen(alice) len = %d, want 0", got)
	}
	if got := len(m.Today()); got != 0 {
		t.Fatalf("Today() len = %d, want 0", got)
	}
}

func TestResetDailyStatsKeepsTotals(t *testing.T) {
	m, _ := newTestManager(t, nil)
	for i := 0; i < 3; i++ {
		m.Complete(m.Add(fmt.Sprintf("t%d", i), "alice"), "alice")
	}
	m.ResetDailyStats()

	if got := m.StatsOf("alice"); got.Daily != 0 || got.Total != 3 {
		t.Fatalf("StatsOf(alice) = %+v, want daily=0 total=3", got)
	}
}

func TestLeaderboard(t *testing.T) {
	m, _ := newTestManager(t, nil)
	complete := func(user string, n int) {
		for i := 0; i < n; i++ {
			m.Complete(m.Add("x", user), user)
		}
	}
	complete("carol", 1)
	complete("alice", 3)
	complete("bob", 3)
	m.ResetDailyStats()
	complete("dave", 2)

	daily, total := m.Leaderboard(2)
	wantDaily := []Ranked{{User: "dave", Count: 2}}
	wantTotal := []Ranked{{User: "alice", Count: 3}, {User: "bob", Count: 3}}
	if !reflect.DeepEqual(daily, wantDaily) {
		t.Fatalf("daily = %+v, want %+v", daily, wantDaily)
	}
	if !reflect.DeepEqual(total, wantTotal) {
		t.Fatalf("total = %+v, want %+v", total, wantTotal)
	}
	if got := m.TotalCompleted(); got != 9 {
		t.Fatalf("TotalCompleted() = %d, want 9", got)
	}
}

func TestEveryMutationPersists(t *testing.T) {
	store := NewInMemoryStore()
	m, c := newTestManager(t, store)
	base := store.Saves()

	id := m.Add("a", "alice")
	m.Complete(id, "alice")
	m.Remove(id, "alice")
	m.WipeAll("alice")
	m.PruneStale(DateOf(c.t))
	m.ResetDailyStats()

	if got := store.Saves() - base; got != 6 {
		t.Fatalf("saves = %d, want 6", got)
	}
}

type failingStore struct {
	*InMemoryStore
}

func (f *failingStore) Save(context.Context, State) error {
	return errors.New("disk full")
}

func TestSaveFailureKeepsInMemoryChange(t *testing.T) {
	m, _ := newTestManager(t, &failingStore{InMemoryStore: NewInMemoryStore()})
	var hookErrs int
	m.SetSaveErrorHook(func(error) { hookErrs++ })

	id := m.Add("still here", "alice")
	if got := len(m.ListOpen("alice")); got != 1 {
		t.Fatalf("ListOpen(alice) len = %d, want 1 (id %s)", got, id)
	}
	if hookErrs != 1 {
		t.Fatalf("save error hook calls = %d, want 1", hookErrs)
	}
}

func TestManagerRoundTripThroughFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	store := NewFileStore(path)
	m, _ := newTestManager(t, store)

	m.SetClock(time.Now)
	a := m.Add("first", "alice")
	m.Add("second", "bob")
	m.Add("third", "alice")
	m.Complete(a, "alice")
	want := m.Snapshot()

	reloaded, err := NewManager(context.Background(), NewFileStore(path))
	if err != nil {
		t.Fatalf("NewManager() reload error = %v", err)
	}
	got := reloaded.Snapshot()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("reloaded state = %+v, want %+v", got, want)
	}
}
