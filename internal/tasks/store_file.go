package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/ent0n29/pomochat/internal/atomicfile"
)

// FileStore persists state as a single JSON document:
//
//	{"tasks": {"<id>": {"description", "completed", "user", "date"}},
//	 "user_stats": {"<user>": {"daily", "total"}}}
type FileStore struct {
	path string
}

type fileData struct {
	Tasks     map[string]fileTask  `json:"tasks"`
	UserStats map[string]UserStats `json:"user_stats"`
}

type fileTask struct {
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	User        string `json:"user"`
	Date        Date   `json:"date"`
	Seq         int    `json:"seq,omitempty"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(_ context.Context) (State, error) {
	state := State{Stats: make(map[string]UserStats)}
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return state, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read task file: %w", err)
	}

	var doc fileData
	if err := json.Unmarshal(data, &doc); err != nil {
		return State{}, fmt.Errorf("unmarshal task file %s: %w", s.path, err)
	}

	ids := make([]string, 0, len(doc.Tasks))
	for id := range doc.Tasks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := doc.Tasks[ids[i]], doc.Tasks[ids[j]]
		if a.Seq != b.Seq {
			return a.Seq < b.Seq
		}
		return ids[i] < ids[j]
	})
	for _, id := range ids {
		ft := doc.Tasks[id]
		state.Tasks = append(state.Tasks, Task{
			ID:          id,
			Description: ft.Description,
			Owner:       ft.User,
			Completed:   ft.Completed,
			CreatedDate: ft.Date,
		})
	}
	for user, st := range doc.UserStats {
		state.Stats[user] = st
	}
	return state, nil
}

func (s *FileStore) Save(_ context.Context, state State) error {
	doc := fileData{
		Tasks:     make(map[string]fileTask, len(state.Tasks)),
		UserStats: make(map[string]UserStats, len(state.Stats)),
	}
	for i, t := range state.Tasks {
		doc.Tasks[t.ID] = fileTask{
			Description: t.Description,
			Completed:   t.Completed,
			User:        t.Owner,
			Date:        t.CreatedDate,
			Seq:         i + 1,
		}
	}
	for user, st := range state.Stats {
		doc.UserStats[user] = st
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal task file: %w", err)
	}
	return atomicfile.Write(s.path, data)
}

func (s *FileStore) Mode() string { return "file" }

func (s *FileStore) Close() error { return nil }
