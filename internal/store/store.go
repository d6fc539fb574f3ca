package store

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"remindbot/pkg/logx"
)

// ChatKey renders a chat id the way snapshots key it.
func ChatKey(chatID int64) string { return strconv.FormatInt(chatID, 10) }

// ParseChatKey is the inverse of ChatKey.
func ParseChatKey(key string) (int64, error) {
	return strconv.ParseInt(key, 10, 64)
}

// Entry is one persisted reminder. Timer handles and conversation state are
// deliberately not part of the snapshot; they are rebuilt at startup.
type Entry struct {
	ID       string    `json:"id,omitempty"`
	Task     string    `json:"task"`
	RemindAt time.Time `json:"remindAt"`
}

// Snapshot maps a chat id (decimal string) to that chat's pending reminders
// in insertion order. A chat with no reminders is absent, never empty.
type Snapshot map[string][]Entry

// Clone deep-copies the snapshot so it can be handed to a background saver.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for chat, entries := range s {
		out[chat] = append([]Entry(nil), entries...)
	}
	return out
}

// Store persists the full reminder snapshot.
//
// Save always rewrites the whole snapshot; there is no partial update, so a
// failed save never corrupts previously persisted state.
type Store interface {
	Load() (Snapshot, error)
	Save(Snapshot) error
	Close() error
}

// Config selects the persistence backend.
//
// Driver values:
//   - "file" (default when empty): one JSON file
//   - "sqlite": SQLite database file
type Config struct {
	Driver string
	Path   string
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
