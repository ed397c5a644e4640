package commands

import "sync"

// Lurkers is the process-wide set of identities that announced !lurk today.
type Lurkers struct {
	mu    sync.Mutex
	order []string
	seen  map[string]struct{}
}

func NewLurkers() *Lurkers {
	return &Lurkers{seen: make(map[string]struct{})}
}

// Add records identity and reports whether it was new.
func (l *Lurkers) Add(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[identity]; ok {
		return false
	}
	l.seen[identity] = struct{}{}
	l.order = append(l.order, identity)
	return true
}

func (l *Lurkers) List() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}

func (l *Lurkers) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order = nil
	l.seen = make(map[string]struct{})
}
