// Package access keeps the set of chat identities that may not use bot
// commands. Identities are compared case-insensitively and stored lowercase.
package access

import (
	"bufio"
	"bytes"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/ent0n29/pomochat/internal/atomicfile"
)

type List struct {
	mu      sync.RWMutex
	path    string
	blocked map[string]struct{}

	onSaveError func(error)
}

// Load reads the blocked-users file at path. A missing file yields an empty
// list. An empty path keeps the list in memory only.
func Load(path string) (*List, error) {
	l := &List{path: path, blocked: make(map[string]struct{})}
	if strings.TrimSpace(path) == "" {
		return l, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read blocked users file: %w", err)
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if id := normalize(sc.Text()); id != "" {
			l.blocked[id] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan blocked users file: %w", err)
	}
	return l, nil
}

func (l *List) SetSaveErrorHook(hook func(error)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onSaveError = hook
}

// Block adds identity. It reports false when identity was already blocked.
func (l *List) Block(identity string) bool {
	id := normalize(identity)
	if id == "" {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.blocked[id]; ok {
		return false
	}
	l.blocked[id] = struct{}{}
	l.saveLocked()
	return true
}

// Unblock removes identity. It reports false when identity was not blocked.
func (l *List) Unblock(identity string) bool {
	id := normalize(identity)
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.blocked[id]; !ok {
		return false
	}
	delete(l.blocked, id)
	l.saveLocked()
	return true
}

func (l *List) IsBlocked(identity string) bool {
	id := normalize(identity)
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.blocked[id]
	return ok
}

// List returns the blocked identities sorted.
func (l *List) List() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.blocked))
	for id := range l.blocked {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (l *List) saveLocked() {
	if l.path == "" {
		return
	}
	if err := l.writeLocked(); err != nil {
		log.Printf("blocked users save failed: %v", err)
		if l.onSaveError != nil {
			l.onSaveError(err)
		}
	}
}

func (l *List) writeLocked() error {
	ids := make([]string, 0, len(l.blocked))
	for id := range l.blocked {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var buf bytes.Buffer
	for _, id := range ids {
		buf.WriteString(id)
		buf.WriteByte('\n')
	}

	return atomicfile.Write(l.path, buf.Bytes())
}

func normalize(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}
