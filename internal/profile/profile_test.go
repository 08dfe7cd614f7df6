package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveLoadListDelete(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir := "/games/FEZ"
	channel := "nightly"
	noCache := true
	p := &Profile{
		GameDir:     &dir,
		Channel:     &channel,
		NoCache:     &noCache,
		PatcherArgs: []string{"--quiet"},
		Blacklist:   []string{"Old.mm.dll"},
	}
	if err := Save("speedrun", p); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load("speedrun")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.GameDir == nil || *loaded.GameDir != dir {
		t.Fatalf("GameDir=%v want=%q", loaded.GameDir, dir)
	}
	if loaded.Channel == nil || *loaded.Channel != "nightly" {
		t.Fatalf("Channel=%v want nightly", loaded.Channel)
	}
	if loaded.Verbose != nil {
		t.Fatalf("Verbose=%v want unset", *loaded.Verbose)
	}
	if len(loaded.Blacklist) != 1 || loaded.Blacklist[0] != "Old.mm.dll" {
		t.Fatalf("Blacklist=%v", loaded.Blacklist)
	}

	names, err := List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 1 || names[0] != "speedrun" {
		t.Fatalf("List=%v want [speedrun]", names)
	}

	if err := Delete("speedrun"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := Load("speedrun"); err == nil {
		t.Fatalf("Load after Delete should fail")
	}
}

func TestListWithoutProfilesDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	names, err := List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("List=%v want empty", names)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if err := os.MkdirAll(Dir(), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	path := filepath.Join(Dir(), "old.toml")
	if err := os.WriteFile(path, []byte("instance-dir = \"/x\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := Load("old")
	if err == nil || !strings.Contains(err.Error(), "instance-dir") {
		t.Fatalf("Load error=%v want unknown key instance-dir", err)
	}
}

func TestSaveRejectsBadNames(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, name := range []string{"", "..", "a/b"} {
		if err := Save(name, &Profile{}); err == nil {
			t.Fatalf("Save(%q) should fail", name)
		}
	}
}
