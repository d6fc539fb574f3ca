package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"remindbot/pkg/logx"
)

func testSnapshot() Snapshot {
	return Snapshot{
		"42": {
			{ID: "a", Task: "Buy milk", RemindAt: time.Date(2026, 6, 1, 13, 0, 0, 0, time.UTC)},
			{ID: "b", Task: "Walk dog", RemindAt: time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC)},
		},
		"-100123": {
			{ID: "c", Task: "Standup", RemindAt: time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)},
		},
	}
}

func assertSnapshotEqual(t *testing.T, got, want Snapshot) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("snapshot has %d chats, want %d", len(got), len(want))
	}
	for chat, entries := range want {
		gotEntries, ok := got[chat]
		if !ok {
			t.Fatalf("chat %s missing from snapshot", chat)
		}
		if len(gotEntries) != len(entries) {
			t.Fatalf("chat %s has %d entries, want %d", chat, len(gotEntries), len(entries))
		}
		for i, e := range entries {
			g := gotEntries[i]
			if g.ID != e.ID || g.Task != e.Task || !g.RemindAt.Equal(e.RemindAt) {
				t.Fatalf("chat %s entry %d = %+v, want %+v", chat, i, g, e)
			}
		}
	}
}

func TestFileRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "reminders.json")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	want := testSnapshot()
	if err := st.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertSnapshotEqual(t, got, want)
}

func TestFileMissingIsEmpty(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nope.json")
	st, err := Open(Config{Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	got, err := st.Load()
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("snapshot = %v, want empty", got)
	}
}

func TestFileCorruptReportsErrorAndEmpty(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "reminders.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	st, err := Open(Config{Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	got, err := st.Load()
	if err == nil {
		t.Fatal("expected load error for corrupt file")
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("snapshot = %v, want empty fallback", got)
	}
}

func TestFileSaveReplacesPreviousSnapshot(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "reminders.json")
	st, err := Open(Config{Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	if err := st.Save(testSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// a chat whose last reminder was removed must vanish, not go empty
	if err := st.Save(Snapshot{}); err != nil {
		t.Fatalf("Save empty: %v", err)
	}
	got, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("snapshot = %v, want empty after full rewrite", got)
	}
}

func TestChatKeyRoundTrip(t *testing.T) {
	t.Parallel()
	for _, id := range []int64{0, 42, -100123456} {
		got, err := ParseChatKey(ChatKey(id))
		if err != nil {
			t.Fatalf("ParseChatKey: %v", err)
		}
		if got != id {
			t.Fatalf("round trip = %d, want %d", got, id)
		}
	}
}

func TestSnapshotClone(t *testing.T) {
	t.Parallel()
	orig := testSnapshot()
	clone := orig.Clone()
	clone["42"][0].Task = "mutated"
	if orig["42"][0].Task == "mutated" {
		t.Fatal("clone shares entry backing array with original")
	}
}
