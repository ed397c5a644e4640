package access

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestBlockIsCaseInsensitive(t *testing.T) {
	l, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !l.Block("Troll") {
		t.Fatalf("Block(Troll) = false, want true")
	}
	if l.Block("TROLL") {
		t.Fatalf("Block(TROLL) = true, want false (already blocked)")
	}
	if !l.IsBlocked("troll") || !l.IsBlocked("tRoLl") {
		t.Fatalf("IsBlocked() = false for case variant, want true")
	}
	if !l.Unblock("troll") {
		t.Fatalf("Unblock(troll) = false, want true")
	}
	if l.Unblock("troll") {
		t.Fatalf("second Unblock(troll) = true, want false")
	}
	if l.IsBlocked("Troll") {
		t.Fatalf("IsBlocked(Troll) = true after unblock")
	}
}

func TestBlockRejectsEmptyIdentity(t *testing.T) {
	l, _ := Load("")
	if l.Block("   ") {
		t.Fatalf("Block(blank) = true, want false")
	}
}

func TestPersistsLowercaseLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocked_users.txt")
	l, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	l.Block("Zed")
	l.Block("amy")
	l.Block("Bob")
	l.Unblock("bob")

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got, want := string(raw), "amy\nzed\n"; got != want {
		t.Fatalf("file = %q, want %q", got, want)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload error = %v", err)
	}
	if got, want := reloaded.List(), []string{"amy", "zed"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
}

func TestLoadNormalizesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocked_users.txt")
	if err := os.WriteFile(path, []byte("Spammer\n\n  other \n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	l, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got, want := l.List(), []string{"other", "spammer"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
}
