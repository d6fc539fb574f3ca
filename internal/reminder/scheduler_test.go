package reminder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"remindbot/internal/store"
	"remindbot/pkg/logx"
)

func newTestScheduler(t *testing.T) (*Scheduler, store.Store) {
	t.Helper()
	st, err := store.Open(store.Config{
		Path: filepath.Join(t.TempDir(), "reminders.json"),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st, time.UTC, logx.Nop()), st
}

func TestScheduleRejectsPastTime(t *testing.T) {
	t.Parallel()
	s, st := newTestScheduler(t)
	now := time.Now()

	for _, at := range []time.Time{now.Add(-time.Hour), now.Add(-time.Millisecond)} {
		if _, err := s.Schedule(42, "late", at); err != ErrPastTime {
			t.Fatalf("Schedule(%v) err = %v, want ErrPastTime", at, err)
		}
	}
	if s.Pending() != 0 {
		t.Fatalf("Pending = %d after rejected schedules, want 0", s.Pending())
	}

	// rejection must not touch the store either
	s.Stop(context.Background())
	snap, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap) != 0 {
		t.Fatalf("snapshot = %v, want empty", snap)
	}
}

func TestScheduleFireDeliversOnce(t *testing.T) {
	t.Parallel()
	s, _ := newTestScheduler(t)

	r, err := s.Schedule(42, "Buy milk", time.Now().Add(30*time.Millisecond))
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if r.ID == "" {
		t.Fatal("scheduled reminder has empty id")
	}

	var ev FireEvent
	select {
	case ev = <-s.Fires():
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
	if ev.ChatID != 42 || ev.ID != r.ID {
		t.Fatalf("fire event = %+v, want chat 42 id %s", ev, r.ID)
	}

	fired, ok := s.Fire(ev)
	if !ok {
		t.Fatal("Fire reported reminder missing")
	}
	if fired.Task != "Buy milk" {
		t.Fatalf("fired task = %q", fired.Task)
	}
	if s.Pending() != 0 {
		t.Fatalf("Pending = %d after fire, want 0", s.Pending())
	}

	// follow-up resolution stays available after removal
	got, ok := s.Fired(r.ID)
	if !ok || got.Task != "Buy milk" {
		t.Fatalf("Fired(%s) = %+v, %v", r.ID, got, ok)
	}

	// the same event consumed twice delivers nothing the second time
	if _, ok := s.Fire(ev); ok {
		t.Fatal("second Fire for the same event succeeded")
	}
}

func TestCancelBeforeFireSuppressesDelivery(t *testing.T) {
	t.Parallel()
	s, _ := newTestScheduler(t)

	r, err := s.Schedule(42, "Walk dog", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	canceled, err := s.Cancel(42, 0)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if canceled.ID != r.ID {
		t.Fatalf("canceled id = %s, want %s", canceled.ID, r.ID)
	}
	if s.Pending() != 0 {
		t.Fatalf("Pending = %d, want 0", s.Pending())
	}

	// a stale event for the canceled reminder must be a no-op
	if _, ok := s.Fire(FireEvent{ChatID: 42, ID: r.ID}); ok {
		t.Fatal("Fire delivered a canceled reminder")
	}
}

func TestCancelIndexBounds(t *testing.T) {
	t.Parallel()
	s, _ := newTestScheduler(t)

	if _, err := s.Cancel(42, 0); err != ErrIndexOutOfRange {
		t.Fatalf("Cancel on empty chat err = %v, want ErrIndexOutOfRange", err)
	}
	if _, err := s.Schedule(42, "only", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	for _, idx := range []int{-1, 1, 99} {
		if _, err := s.Cancel(42, idx); err != ErrIndexOutOfRange {
			t.Fatalf("Cancel(%d) err = %v, want ErrIndexOutOfRange", idx, err)
		}
	}
}

func TestListIsolatedPerChat(t *testing.T) {
	t.Parallel()
	s, _ := newTestScheduler(t)
	at := time.Now().Add(time.Hour)

	mustSchedule := func(chat int64, task string) {
		t.Helper()
		if _, err := s.Schedule(chat, task, at); err != nil {
			t.Fatalf("Schedule: %v", err)
		}
	}
	mustSchedule(1, "first")
	mustSchedule(1, "second")
	mustSchedule(2, "other chat")

	got := s.List(1)
	if len(got) != 2 || got[0].Task != "first" || got[1].Task != "second" {
		t.Fatalf("List(1) = %+v", got)
	}
	if len(s.List(2)) != 1 {
		t.Fatalf("List(2) = %+v", s.List(2))
	}
	if len(s.List(3)) != 0 {
		t.Fatalf("List(3) = %+v", s.List(3))
	}

	if _, err := s.Cancel(1, 0); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got := s.List(1); len(got) != 1 || got[0].Task != "second" {
		t.Fatalf("List(1) after cancel = %+v", got)
	}
	if len(s.List(2)) != 1 {
		t.Fatal("cancel in chat 1 affected chat 2")
	}
}

func TestRestoreDropsPastAndRearmsFuture(t *testing.T) {
	t.Parallel()
	st, err := store.Open(store.Config{
		Path: filepath.Join(t.TempDir(), "reminders.json"),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	now := time.Now()
	seed := store.Snapshot{
		store.ChatKey(42): {
			{ID: "past", Task: "missed while down", RemindAt: now.Add(-time.Hour)},
			{ID: "soon", Task: "fire quickly", RemindAt: now.Add(50 * time.Millisecond)},
			{Task: "no id yet", RemindAt: now.Add(time.Hour)},
		},
	}
	if err := st.Save(seed); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s := New(st, time.UTC, logx.Nop())
	if err := s.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if s.Pending() != 2 {
		t.Fatalf("Pending = %d after restore, want 2 (past entry dropped)", s.Pending())
	}

	list := s.List(42)
	for _, r := range list {
		if r.ID == "" {
			t.Fatal("restored reminder left without id")
		}
		if r.Task == "missed while down" {
			t.Fatal("past-due entry survived restore")
		}
	}

	// the near-future entry was re-armed, not just kept in memory
	select {
	case ev := <-s.Fires():
		if ev.ID != "soon" {
			t.Fatalf("fired id = %s, want soon", ev.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("restored timer never fired")
	}
}

func TestRestoreCorruptSnapshotStartsEmpty(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "reminders.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}
	st, err := store.Open(store.Config{Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	s := New(st, time.UTC, logx.Nop())
	if err := s.Restore(); err == nil {
		t.Fatal("Restore should surface the load error")
	}
	if s.Pending() != 0 {
		t.Fatalf("Pending = %d, want 0", s.Pending())
	}
	if _, err := s.Schedule(42, "still works", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Schedule after corrupt restore: %v", err)
	}
}

func TestStopWritesFinalSnapshot(t *testing.T) {
	t.Parallel()
	s, st := newTestScheduler(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx, 0)

	at := time.Now().Add(time.Hour).Truncate(time.Millisecond)
	if _, err := s.Schedule(42, "survive restart", at); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	s.Stop(context.Background())

	snap, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	entries := snap[store.ChatKey(42)]
	if len(entries) != 1 {
		t.Fatalf("snapshot entries = %+v, want one", entries)
	}
	if entries[0].Task != "survive restart" || !entries[0].RemindAt.Equal(at) {
		t.Fatalf("entry = %+v", entries[0])
	}

	// and a fresh scheduler picks it up
	s2 := New(st, time.UTC, logx.Nop())
	if err := s2.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if s2.Pending() != 1 {
		t.Fatalf("Pending after restart = %d, want 1", s2.Pending())
	}
}

func TestSweepDropsStaleUnarmedReminders(t *testing.T) {
	t.Parallel()
	s, _ := newTestScheduler(t)

	r, err := s.Schedule(42, "goes stale", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	// simulate a lost timer on an already-due reminder
	s.mu.Lock()
	s.disarmLocked(r.ID)
	s.byChat[42][0].RemindAt = time.Now().Add(-time.Minute)
	s.mu.Unlock()

	s.Sweep()
	if s.Pending() != 0 {
		t.Fatalf("Pending = %d after sweep, want 0", s.Pending())
	}
}

func TestFiredPrunesAfterRetention(t *testing.T) {
	t.Parallel()
	s, _ := newTestScheduler(t)

	base := time.Now()
	s.now = func() time.Time { return base }
	r, err := s.Schedule(42, "old news", base.Add(time.Minute))
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if _, ok := s.Fire(FireEvent{ChatID: 42, ID: r.ID}); !ok {
		t.Fatal("Fire failed")
	}
	if _, ok := s.Fired(r.ID); !ok {
		t.Fatal("Fired lookup failed immediately after firing")
	}

	s.now = func() time.Time { return base.Add(firedRetention + time.Minute) }
	if _, ok := s.Fired(r.ID); ok {
		t.Fatal("Fired entry survived past retention")
	}
}
