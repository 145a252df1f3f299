package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var envKeys = []string{
	"TRACKER_CONFIG", "API_ID", "API_HASH", "PHONE", "PASSWORD", "SESSION_NAME", "SESSION_FILE",
	"TARGET_USER", "LOG_CHAT_ID", "DOWNLOAD_DIR", "LOG_LEVEL", "API_ADDR", "POLL_INTERVAL",
	"LOG_DEVELOPMENT", "ALLOW_UNRESOLVED_LOG_CHAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	want := &Config{
		Telegram: TelegramConfig{
			SessionName: "telegram_tracker",
			SessionFile: "telegram_tracker.session.json",
			DialogLimit: 100,
		},
		Tracker: TrackerConfig{
			DownloadDir:  "downloads",
			PollInterval: 10 * time.Second,
			EventBuffer:  64,
		},
		Log: LogConfig{Level: "info"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_FileAndEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("HASH_FROM_ENV", "abc123")

	path := writeFile(t, `
telegram:
  api_id: 42
  api_hash: ${HASH_FROM_ENV}
  session_name: work
tracker:
  target_user: "@alice"
  log_chat: me
  poll_interval: 30s
api:
  addr: ":9090"
`)
	t.Setenv("TARGET_USER", "bob")
	t.Setenv("POLL_INTERVAL", "5s")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Telegram.APIID != 42 {
		t.Errorf("APIID = %d, want 42", cfg.Telegram.APIID)
	}
	if cfg.Telegram.APIHash != "abc123" {
		t.Errorf("APIHash = %q, want expanded value", cfg.Telegram.APIHash)
	}
	if cfg.Telegram.SessionFile != "work.session.json" {
		t.Errorf("SessionFile = %q", cfg.Telegram.SessionFile)
	}
	if cfg.Tracker.TargetUser != "bob" {
		t.Errorf("TargetUser = %q, want env override", cfg.Tracker.TargetUser)
	}
	if cfg.Tracker.LogChat != SelfChat {
		t.Errorf("LogChat = %q", cfg.Tracker.LogChat)
	}
	if cfg.Tracker.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v, want 5s", cfg.Tracker.PollInterval)
	}
	if cfg.API.Addr != ":9090" {
		t.Errorf("API.Addr = %q", cfg.API.Addr)
	}
}

func TestLoadConfig_InvalidAPIID(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_ID", "not-a-number")

	if _, err := LoadConfig(""); err == nil {
		t.Fatal("expected error for malformed API_ID")
	}
}

func TestLoadConfig_BadYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "telegram: [unterminated")

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestValidate_ReportsEveryMissingKey(t *testing.T) {
	cfg := &Config{}

	err := cfg.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() = %v, want *ValidationError", err)
	}

	want := []string{"API_ID", "API_HASH", "TARGET_USER", "LOG_CHAT_ID"}
	if diff := cmp.Diff(want, verr.Missing); diff != "" {
		t.Errorf("missing keys mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_Complete(t *testing.T) {
	cfg := &Config{
		Telegram: TelegramConfig{APIID: 1, APIHash: "h"},
		Tracker:  TrackerConfig{TargetUser: "alice", LogChat: "me"},
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}
