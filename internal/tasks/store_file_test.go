package tasks

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tasks.json")
	store := NewFileStore(path)

	want := State{
		Tasks: []Task{
			{ID: "zz000001", Description: "first", Owner: "alice", CreatedDate: Date{2026, time.January, 31}},
			{ID: "aa000002", Description: "second", Owner: "Bob", Completed: true, CreatedDate: Date{2025, time.December, 1}},
		},
		Stats: map[string]UserStats{
			"Bob":   {Daily: 1, Total: 7},
			"alice": {Daily: 0, Total: 2},
		},
	}
	if err := store.Save(context.Background(), want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Load() = %+v, want %+v", got, want)
	}
}

func TestFileStoreWritesDocumentedShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	store := NewFileStore(path)
	err := store.Save(context.Background(), State{
		Tasks: []Task{{ID: "abcd1234", Description: "x", Owner: "alice", CreatedDate: Date{2026, time.May, 4}}},
		Stats: map[string]UserStats{"alice": {Daily: 2, Total: 3}},
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var doc map[string]map[string]map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal saved file: %v", err)
	}
	task := doc["tasks"]["abcd1234"]
	if task["date"] != "2026-05-04" || task["user"] != "alice" || task["description"] != "x" || task["completed"] != false {
		t.Fatalf("task record = %+v", task)
	}
	stats := doc["user_stats"]["alice"]
	if stats["daily"] != float64(2) || stats["total"] != float64(3) {
		t.Fatalf("user_stats record = %+v", stats)
	}
}

func TestFileStoreReadsFilesWithoutSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	legacy := `{
  "tasks": {
    "b2": {"description": "later", "completed": false, "user": "alice", "date": "2026-02-02"},
    "a1": {"description": "earlier", "completed": true, "user": "alice", "date": "2026-02-02"}
  },
  "user_stats": {"alice": {"daily": 1, "total": 1}}
}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := NewFileStore(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.Tasks) != 2 || got.Tasks[0].ID != "a1" || got.Tasks[1].ID != "b2" {
		t.Fatalf("tasks = %+v, want a1 then b2", got.Tasks)
	}
	if got.Tasks[0].CreatedDate != (Date{2026, time.February, 2}) {
		t.Fatalf("date = %v, want 2026-02-02", got.Tasks[0].CreatedDate)
	}
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	got, err := NewFileStore(filepath.Join(t.TempDir(), "absent.json")).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.Tasks) != 0 || len(got.Stats) != 0 {
		t.Fatalf("Load() = %+v, want empty", got)
	}
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := NewFileStore(path).Load(context.Background()); err == nil {
		t.Fatalf("Load() error = nil, want parse error")
	}
}

func TestDateHelpers(t *testing.T) {
	d, err := ParseDate("2024-02-28")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if next := d.AddDays(1); next.String() != "2024-02-29" {
		t.Fatalf("AddDays(1) = %s, want 2024-02-29", next)
	}
	if !d.Before(d.AddDays(1)) || d.AddDays(1).Before(d) {
		t.Fatalf("Before() ordering is wrong")
	}
	if _, err := ParseDate("28/02/2024"); err == nil {
		t.Fatalf("ParseDate() error = nil, want error")
	}
}
