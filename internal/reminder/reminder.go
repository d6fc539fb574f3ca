package reminder

import (
	"errors"
	"time"
)

var (
	// ErrPastTime rejects scheduling at or before the current instant.
	ErrPastTime = errors.New("reminder time is in the past")
	// ErrIndexOutOfRange rejects a cancel/delete position that does not
	// exist in the chat's list.
	ErrIndexOutOfRange = errors.New("reminder index out of range")
)

// Reminder is one pending one-shot notification. The live timer handle is
// never stored on the record; the scheduler keeps it in a side map keyed by
// ID so reloading a snapshot cannot resurrect stale handles.
type Reminder struct {
	ID       string
	ChatID   int64
	Task     string
	RemindAt time.Time
}

// FireEvent is posted to the fire channel when a timer reaches its target
// instant. The owning event loop resolves it via Scheduler.Fire, which is
// where the exactly-once removal happens.
type FireEvent struct {
	ChatID int64
	ID     string
}

// Fired is a reminder that has already been delivered, retained briefly so
// the post-fire "done" / "remind me later" buttons can recover the task.
type Fired struct {
	Reminder
	FiredAt time.Time
}
