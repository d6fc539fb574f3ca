package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{
		"telegram": {"token": "123:abc", "poll_timeout": "15s", "send_rate_per_sec": 20},
		"logging": {"level": "debug", "console": true},
		"storage": {"driver": "sqlite", "path": "/tmp/reminders.db"},
		"reminders": {"timezone": "Asia/Jerusalem", "sweep_interval": "30m"},
		"keepalive": {"enabled": true, "addr": ":9000"}
	}`)

	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || cfg.Telegram.SendRatePerSec != 20 {
		t.Fatalf("telegram = %+v", cfg.Telegram)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.Path != "/tmp/reminders.db" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if cfg.Reminders.Timezone != "Asia/Jerusalem" {
		t.Fatalf("reminders = %+v", cfg.Reminders)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get did not return the committed config")
	}
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
telegram:
  token: "123:abc"
  poll_timeout: 10s
logging:
  level: info
  console: true
storage:
  path: ./reminders.json
reminders:
  timezone: Asia/Jerusalem
`)

	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if !cfg.Logging.Console || cfg.Logging.Level != "info" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"telegram": {"token": "x", "tokne_typo": true}}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"telegram": {"token": "x"}}{"extra": 1}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestParseMissingFile(t *testing.T) {
	t.Parallel()
	m := NewManager(filepath.Join(t.TempDir(), "missing.json"))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSubscribePublishDrop(t *testing.T) {
	t.Parallel()
	m := NewManager("unused")
	ch := m.Subscribe(1)

	cfg := &Config{}
	m.publish(cfg)
	select {
	case got := <-ch:
		if got != cfg {
			t.Fatal("subscriber received a different config")
		}
	default:
		t.Fatal("subscriber never received the published config")
	}

	// a full buffer must not block publish
	m.publish(cfg)
	m.publish(cfg)

	m.Unsubscribe(ch)
	if _, open := <-ch; open {
		t.Fatal("channel still open after Unsubscribe")
	}
	m.publish(cfg) // no subscribers left; must not panic
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationField("poll_timeout", " 90s ")
	if err != nil || d != 90*time.Second {
		t.Fatalf("ParseDurationField = %v, %v", d, err)
	}
	for _, raw := range []string{"", "fast", "-5s"} {
		if _, err := ParseDurationField("f", raw); err == nil {
			t.Fatalf("ParseDurationField(%q) accepted", raw)
		}
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationOrDefault("sweep_interval", "", time.Hour)
	if err != nil || d != time.Hour {
		t.Fatalf("default case = %v, %v", d, err)
	}
	d, err = ParseDurationOrDefault("sweep_interval", "2h", time.Hour)
	if err != nil || d != 2*time.Hour {
		t.Fatalf("explicit case = %v, %v", d, err)
	}
}
