package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"remindbot/internal/store"
	"remindbot/pkg/logx"
)

// firedRetention bounds how long a delivered reminder stays resolvable for
// the follow-up buttons.
const firedRetention = 24 * time.Hour

// Scheduler owns the in-memory reminder lists and their one-shot timers.
//
// Timers never mutate state directly: an expiring timer posts a FireEvent
// to the fire channel and the event loop calls Fire, so user actions and
// firings stay serialized. Cancellation stops the timer first; whichever of
// Cancel/Fire removes the reminder from its list wins, the other becomes a
// no-op.
type Scheduler struct {
	log logx.Logger
	st  store.Store
	loc *time.Location

	now func() time.Time

	mu     sync.Mutex
	byChat map[int64][]*Reminder
	timers map[string]*time.Timer
	fired  map[string]Fired

	fires chan FireEvent
	saves chan store.Snapshot

	done    chan struct{}
	saverWG sync.WaitGroup

	cron *cron.Cron
}

func New(st store.Store, loc *time.Location, log logx.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Scheduler{
		log:    log,
		st:     st,
		loc:    loc,
		now:    time.Now,
		byChat: map[int64][]*Reminder{},
		timers: map[string]*time.Timer{},
		fired:  map[string]Fired{},
		fires:  make(chan FireEvent, 64),
		saves:  make(chan store.Snapshot, 1),
		done:   make(chan struct{}),
	}
}

// Fires is the channel timer expirations are posted to. The consumer must
// call Fire for each event.
func (s *Scheduler) Fires() <-chan FireEvent { return s.fires }

// Location is the single civil timezone all reminder times use.
func (s *Scheduler) Location() *time.Location { return s.loc }

// Restore loads the persisted snapshot and re-arms timers for reminders
// still in the future. Entries whose time already passed are dropped
// without firing. A load error falls back to an empty state and is never
// fatal.
func (s *Scheduler) Restore() error {
	snap, err := s.st.Load()
	if err != nil {
		s.log.Error("snapshot load failed; starting empty", logx.Err(err))
		snap = store.Snapshot{}
	}

	s.mu.Lock()
	now := s.now()
	restored, dropped := 0, 0
	for key, entries := range snap {
		chatID, perr := store.ParseChatKey(key)
		if perr != nil {
			s.log.Warn("skipping snapshot entry with bad chat key", logx.String("key", key))
			continue
		}
		for _, e := range entries {
			if !e.RemindAt.After(now) {
				dropped++
				continue
			}
			r := &Reminder{
				ID:       e.ID,
				ChatID:   chatID,
				Task:     e.Task,
				RemindAt: e.RemindAt,
			}
			if r.ID == "" {
				// snapshots written before ids existed
				r.ID = uuid.NewString()
			}
			s.byChat[chatID] = append(s.byChat[chatID], r)
			s.armLocked(r)
			restored++
		}
	}
	s.persistLocked()
	s.mu.Unlock()

	s.log.Info("reminders restored",
		logx.Int("restored", restored), logx.Int("dropped_past_due", dropped))
	return err
}

// Start launches the background saver and, when sweepEvery > 0, the
// housekeeping job.
func (s *Scheduler) Start(ctx context.Context, sweepEvery time.Duration) {
	s.saverWG.Add(1)
	go func() {
		defer s.saverWG.Done()
		s.saver(ctx)
	}()

	if sweepEvery > 0 {
		s.cron = cron.New(cron.WithLocation(s.loc))
		_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", sweepEvery), s.Sweep)
		if err != nil {
			s.log.Error("sweep job register failed", logx.Err(err))
		} else {
			s.cron.Start()
			s.log.Debug("sweep job started", logx.Duration("every", sweepEvery))
		}
	}
}

// Schedule validates the target time, arms a one-shot timer and persists.
func (s *Scheduler) Schedule(chatID int64, task string, at time.Time) (Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !at.After(s.now()) {
		return Reminder{}, ErrPastTime
	}

	r := &Reminder{
		ID:       uuid.NewString(),
		ChatID:   chatID,
		Task:     task,
		RemindAt: at,
	}
	s.byChat[chatID] = append(s.byChat[chatID], r)
	s.armLocked(r)
	s.persistLocked()

	s.log.Info("reminder scheduled",
		logx.Int64("chat", chatID), logx.String("id", r.ID), logx.Time("at", at.In(s.loc)))
	return *r, nil
}

// List returns the chat's pending reminders in insertion order.
func (s *Scheduler) List(chatID int64) []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Reminder, 0, len(s.byChat[chatID]))
	for _, r := range s.byChat[chatID] {
		out = append(out, *r)
	}
	return out
}

// Cancel disarms and removes the reminder at the given zero-based position.
func (s *Scheduler) Cancel(chatID int64, index int) (Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.byChat[chatID]
	if index < 0 || index >= len(list) {
		return Reminder{}, ErrIndexOutOfRange
	}
	r := list[index]
	s.disarmLocked(r.ID)
	s.removeLocked(chatID, index)
	s.persistLocked()

	s.log.Info("reminder canceled",
		logx.Int64("chat", chatID), logx.String("id", r.ID))
	return *r, nil
}

// Fire resolves a FireEvent: it removes the reminder from its chat's list
// and records it for follow-up resolution. It reports false when the
// reminder was canceled before the event was consumed, in which case
// nothing must be delivered.
func (s *Scheduler) Fire(ev FireEvent) (Reminder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.byChat[ev.ChatID]
	for i, r := range list {
		if r.ID != ev.ID {
			continue
		}
		delete(s.timers, r.ID)
		s.removeLocked(ev.ChatID, i)
		s.fired[r.ID] = Fired{Reminder: *r, FiredAt: s.now()}
		s.pruneFiredLocked()
		s.persistLocked()

		s.log.Info("reminder fired",
			logx.Int64("chat", ev.ChatID), logx.String("id", r.ID))
		return *r, true
	}
	return Reminder{}, false
}

// Fired looks up a recently delivered reminder by id.
func (s *Scheduler) Fired(id string) (Reminder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneFiredLocked()
	f, ok := s.fired[id]
	if !ok {
		return Reminder{}, false
	}
	return f.Reminder, true
}

// Pending reports the total number of scheduled reminders across chats.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, list := range s.byChat {
		n += len(list)
	}
	return n
}

// Sweep drops reminders whose time passed without an armed timer and prunes
// the fired-reminder retention. Normally a no-op; it exists so a missed
// timer callback can never leave a stale entry behind forever.
func (s *Scheduler) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stale := 0
	for chatID, list := range s.byChat {
		kept := list[:0]
		for _, r := range list {
			if !r.RemindAt.After(now) {
				if _, armed := s.timers[r.ID]; !armed {
					stale++
					continue
				}
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			delete(s.byChat, chatID)
		} else {
			s.byChat[chatID] = kept
		}
	}
	s.pruneFiredLocked()
	if stale > 0 {
		s.log.Warn("sweep dropped stale reminders", logx.Int("count", stale))
	}
	s.persistLocked()
}

// Stop disarms every timer and writes a final synchronous snapshot.
func (s *Scheduler) Stop(ctx context.Context) {
	if s.cron != nil {
		stopped := s.cron.Stop().Done()
		select {
		case <-stopped:
		case <-ctx.Done():
		}
	}

	s.mu.Lock()
	for id, t := range s.timers {
		_ = t.Stop()
		delete(s.timers, id)
	}
	close(s.done)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	waited := make(chan struct{})
	go func() {
		s.saverWG.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
	}

	if err := s.st.Save(snap); err != nil {
		s.log.Error("final snapshot save failed", logx.Err(err))
	}
	s.log.Info("scheduler stopped")
}

// armLocked starts the one-shot timer for r. Call with s.mu held.
func (s *Scheduler) armLocked(r *Reminder) {
	ev := FireEvent{ChatID: r.ChatID, ID: r.ID}
	delay := r.RemindAt.Sub(s.now())
	if delay < 0 {
		delay = 0
	}
	s.timers[r.ID] = time.AfterFunc(delay, func() {
		select {
		case s.fires <- ev:
		case <-s.done:
		}
	})
}

// disarmLocked stops and forgets the timer for id. A timer that already
// fired posts its event anyway; Fire then misses the removed reminder and
// delivers nothing.
func (s *Scheduler) disarmLocked(id string) {
	if t, ok := s.timers[id]; ok {
		_ = t.Stop()
		delete(s.timers, id)
	}
}

// removeLocked drops index i from the chat's list, deleting the chat key
// when the list becomes empty. Call with s.mu held.
func (s *Scheduler) removeLocked(chatID int64, i int) {
	list := s.byChat[chatID]
	list = append(list[:i], list[i+1:]...)
	if len(list) == 0 {
		delete(s.byChat, chatID)
		return
	}
	s.byChat[chatID] = list
}

func (s *Scheduler) pruneFiredLocked() {
	cutoff := s.now().Add(-firedRetention)
	for id, f := range s.fired {
		if f.FiredAt.Before(cutoff) {
			delete(s.fired, id)
		}
	}
}

func (s *Scheduler) snapshotLocked() store.Snapshot {
	snap := store.Snapshot{}
	for chatID, list := range s.byChat {
		key := store.ChatKey(chatID)
		for _, r := range list {
			snap[key] = append(snap[key], store.Entry{
				ID:       r.ID,
				Task:     r.Task,
				RemindAt: r.RemindAt,
			})
		}
	}
	return snap
}

// persistLocked hands the current snapshot to the background saver without
// blocking; when a save is already queued the newer snapshot replaces it.
func (s *Scheduler) persistLocked() {
	snap := s.snapshotLocked()
	select {
	case s.saves <- snap:
	default:
		select {
		case <-s.saves:
		default:
		}
		select {
		case s.saves <- snap:
		default:
		}
	}
}

func (s *Scheduler) saver(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case snap := <-s.saves:
			if err := s.st.Save(snap); err != nil {
				s.log.Warn("snapshot save failed", logx.Err(err))
			}
		}
	}
}
