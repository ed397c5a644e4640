package tasks

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	idLength    = 8
	saveTimeout = 5 * time.Second
)

// Manager owns every task record and the per-user completion stats. All reads
// and writes are serialized on one lock, and every mutation is persisted
// before the lock is released.
type Manager struct {
	mu sync.RWMutex

	store Store
	now   func() time.Time
	newID func() string

	tasks map[string]*Task
	order []string
	stats map[string]*UserStats

	onSaveError func(error)
}

// NewManager loads the persisted state from store and drops tasks that were
// not created today.
func NewManager(ctx context.Context, store Store) (*Manager, error) {
	if store == nil {
		store = NewInMemoryStore()
	}
	m := &Manager{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.NewString()[:idLength] },
		tasks: make(map[string]*Task),
		stats: make(map[string]*UserStats),
	}

	state, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	m.restoreLocked(state)
	m.PruneStale(m.today())
	return m, nil
}

// SetClock replaces the wall clock. Intended for tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// SetIDGenerator replaces the task id source. Intended for tests.
func (m *Manager) SetIDGenerator(gen func() string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newID = gen
}

// SetSaveErrorHook registers a callback invoked whenever persisting fails.
func (m *Manager) SetSaveErrorHook(hook func(error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSaveError = hook
}

func (m *Manager) StoreMode() string {
	return m.store.Mode()
}

func (m *Manager) Add(description, owner string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.newID()
	for {
		if _, exists := m.tasks[id]; !exists {
			break
		}
		id = m.newID()
	}

	m.tasks[id] = &Task{
		ID:          id,
		Description: strings.TrimSpace(description),
		Owner:       owner,
		CreatedDate: m.todayLocked(),
	}
	m.order = append(m.order, id)
	m.saveLocked()
	return id
}

func (m *Manager) Remove(id, owner string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok || t.Owner != owner {
		return false
	}
	m.deleteLocked(id)
	m.saveLocked()
	return true
}

func (m *Manager) Complete(id, owner string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok || t.Owner != owner || t.Completed {
		return false
	}
	t.Completed = true
	st := m.stats[owner]
	if st == nil {
		st = &UserStats{}
		m.stats[owner] = st
	}
	st.Daily++
	st.Total++
	m.saveLocked()
	return true
}

// ListOpen returns today's incomplete tasks of owner in insertion order.
func (m *Manager) ListOpen(owner string) []Task {
	m.mu.RLock()
	defer m.mu.RUnlock()

	today := m.todayLocked()
	var out []Task
	for _, id := range m.order {
		t := m.tasks[id]
		if t.Owner == owner && t.CreatedDate == today && !t.Completed {
			out = append(out, *t)
		}
	}
	return out
}

// Today returns every task created today, completed or not.
func (m *Manager) Today() []Task {
	m.mu.RLock()
	defer m.mu.RUnlock()

	today := m.todayLocked()
	out := make([]Task, 0, len(m.order))
	for _, id := range m.order {
		if t := m.tasks[id]; t.CreatedDate == today {
			out = append(out, *t)
		}
	}
	return out
}

func (m *Manager) OpenCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, t := range m.tasks {
		if !t.Completed {
			n++
		}
	}
	return n
}

func (m *Manager) StatsOf(owner string) UserStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if st := m.stats[owner]; st != nil {
		return *st
	}
	return UserStats{}
}

// TotalCompleted sums the all-time counters of every user.
func (m *Manager) TotalCompleted() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, st := range m.stats {
		n += st.Total
	}
	return n
}

// Leaderboard returns the top n users by today's and by all-time completions.
// Users with a zero count are left out.
func (m *Manager) Leaderboard(n int) (daily, total []Ranked) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for user, st := range m.stats {
		if st.Daily > 0 {
			daily = append(daily, Ranked{User: user, Count: st.Daily})
		}
		if st.Total > 0 {
			total = append(total, Ranked{User: user, Count: st.Total})
		}
	}
	return topN(daily, n), topN(total, n)
}

func (m *Manager) WipeAll(owner string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var doomed []string
	for _, id := range m.order {
		if m.tasks[id].Owner == owner {
			doomed = append(doomed, id)
		}
	}
	for _, id := range doomed {
		m.deleteLocked(id)
	}
	m.saveLocked()
	return len(doomed)
}

// PruneStale deletes every task whose creation date is not today.
func (m *Manager) PruneStale(today Date) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stale []string
	for _, id := range m.order {
		if m.tasks[id].CreatedDate != today {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		m.deleteLocked(id)
	}
	m.saveLocked()
	return len(stale)
}

func (m *Manager) ResetDailyStats() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.stats {
		st.Daily = 0
	}
	m.saveLocked()
}

// Snapshot returns a copy of the full state in persisted form.
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) Close() error {
	return m.store.Close()
}

func (m *Manager) today() Date {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.todayLocked()
}

func (m *Manager) todayLocked() Date {
	return DateOf(m.now())
}

func (m *Manager) deleteLocked(id string) {
	delete(m.tasks, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *Manager) snapshotLocked() State {
	state := State{
		Tasks: make([]Task, 0, len(m.order)),
		Stats: make(map[string]UserStats, len(m.stats)),
	}
	for _, id := range m.order {
		state.Tasks = append(state.Tasks, *m.tasks[id])
	}
	for user, st := range m.stats {
		state.Stats[user] = *st
	}
	return state
}

func (m *Manager) restoreLocked(state State) {
	m.tasks = make(map[string]*Task, len(state.Tasks))
	m.order = m.order[:0]
	for _, t := range state.Tasks {
		if _, dup := m.tasks[t.ID]; dup {
			continue
		}
		task := t
		m.tasks[t.ID] = &task
		m.order = append(m.order, t.ID)
	}
	m.stats = make(map[string]*UserStats, len(state.Stats))
	for user, st := range state.Stats {
		s := st
		m.stats[user] = &s
	}
}

// saveLocked writes the whole state. A failed write is logged and reported
// to the hook; the in-memory change stays applied.
func (m *Manager) saveLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := m.store.Save(ctx, m.snapshotLocked()); err != nil {
		log.Printf("task store save failed (%s): %v", m.store.Mode(), err)
		if m.onSaveError != nil {
			m.onSaveError(err)
		}
	}
}

func topN(rows []Ranked, n int) []Ranked {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].User < rows[j].User
	})
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}
