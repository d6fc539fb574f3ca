package config

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Reminders RemindersConfig `json:"reminders"`
	Keepalive KeepaliveConfig `json:"keepalive"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
	// SendRatePerSec caps outbound messages per second (Telegram global
	// limit is ~30/s). 0 uses the default.
	SendRatePerSec int `json:"send_rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig selects the reminder snapshot backend.
//
// Driver values:
//   - "file" (default): one JSON file keyed by chat id
//   - "sqlite": SQLite database file
type StorageConfig struct {
	Driver string `json:"driver,omitempty"`
	Path   string `json:"path"`
}

type RemindersConfig struct {
	// Timezone is the single civil timezone all times are interpreted in
	// (IANA name, e.g. "Asia/Jerusalem").
	Timezone string `json:"timezone,omitempty"`
	// SweepInterval is a Go duration string for the housekeeping job that
	// prunes stale entries and rewrites the snapshot. "0s" disables it.
	SweepInterval string `json:"sweep_interval,omitempty"`
}

type KeepaliveConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
}
