package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where LoadConfig looks for the YAML file unless TRACKER_CONFIG is set.
const DefaultPath = "configs/config.yml"

// SelfChat is the log destination marker for the account's own Saved Messages.
const SelfChat = "me"

// Config is the whole application configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	API      APIConfig      `yaml:"api"`
	Log      LogConfig      `yaml:"log"`
}

// TelegramConfig holds the client credentials and session location.
type TelegramConfig struct {
	APIID       int    `yaml:"api_id"`
	APIHash     string `yaml:"api_hash"`
	Phone       string `yaml:"phone"`
	Password    string `yaml:"password"`
	SessionName string `yaml:"session_name"`
	SessionFile string `yaml:"session_file"`
	DialogLimit int    `yaml:"dialog_limit"`
}

// TrackerConfig describes who is watched and where the activity goes.
type TrackerConfig struct {
	TargetUser   string        `yaml:"target_user"`
	LogChat      string        `yaml:"log_chat"`
	DownloadDir  string        `yaml:"download_dir"`
	PollInterval time.Duration `yaml:"poll_interval"`
	// EventBuffer is the backlog of unhandled events at which a warning is
	// logged. The queue itself is not bounded.
	EventBuffer int `yaml:"event_buffer"`
	// AllowUnresolvedLogChat keeps the tracker running when the log chat
	// cannot be resolved, sending to the raw numeric id instead.
	AllowUnresolvedLogChat bool `yaml:"allow_unresolved_log_chat"`
}

// APIConfig controls the HTTP control surface. An empty Addr disables it.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// LoadConfig reads .env, the optional YAML file at path and the environment,
// in that order of increasing precedence.
func LoadConfig(path string) (*Config, error) {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	cfg := &Config{}
	if p := os.Getenv("TRACKER_CONFIG"); p != "" {
		path = p
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.setDefaults()

	return cfg, nil
}

func (c *Config) readFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("failed to decode config file: %w", err)
	}

	// Expand environment variables in string values
	c.Telegram.APIHash = os.ExpandEnv(c.Telegram.APIHash)
	c.Telegram.Phone = os.ExpandEnv(c.Telegram.Phone)
	c.Telegram.Password = os.ExpandEnv(c.Telegram.Password)
	c.Telegram.SessionFile = os.ExpandEnv(c.Telegram.SessionFile)
	c.Tracker.TargetUser = os.ExpandEnv(c.Tracker.TargetUser)
	c.Tracker.LogChat = os.ExpandEnv(c.Tracker.LogChat)
	c.Tracker.DownloadDir = os.ExpandEnv(c.Tracker.DownloadDir)

	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("API_ID"); v != "" {
		id, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid API_ID %q: %w", v, err)
		}
		c.Telegram.APIID = id
	}
	setString(&c.Telegram.APIHash, "API_HASH")
	setString(&c.Telegram.Phone, "PHONE")
	setString(&c.Telegram.Password, "PASSWORD")
	setString(&c.Telegram.SessionName, "SESSION_NAME")
	setString(&c.Telegram.SessionFile, "SESSION_FILE")
	setString(&c.Tracker.TargetUser, "TARGET_USER")
	setString(&c.Tracker.LogChat, "LOG_CHAT_ID")
	setString(&c.Tracker.DownloadDir, "DOWNLOAD_DIR")
	setString(&c.Log.Level, "LOG_LEVEL")

	if v, ok := os.LookupEnv("API_ADDR"); ok {
		c.API.Addr = v
	}
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid POLL_INTERVAL %q: %w", v, err)
		}
		c.Tracker.PollInterval = d
	}
	if v := os.Getenv("LOG_DEVELOPMENT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LOG_DEVELOPMENT %q: %w", v, err)
		}
		c.Log.Development = b
	}
	if v := os.Getenv("ALLOW_UNRESOLVED_LOG_CHAT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid ALLOW_UNRESOLVED_LOG_CHAT %q: %w", v, err)
		}
		c.Tracker.AllowUnresolvedLogChat = b
	}

	return nil
}

func (c *Config) setDefaults() {
	if c.Telegram.SessionName == "" {
		c.Telegram.SessionName = "telegram_tracker"
	}
	if c.Telegram.SessionFile == "" {
		c.Telegram.SessionFile = c.Telegram.SessionName + ".session.json"
	}
	if c.Telegram.DialogLimit <= 0 {
		c.Telegram.DialogLimit = 100
	}
	if c.Tracker.DownloadDir == "" {
		c.Tracker.DownloadDir = "downloads"
	}
	if c.Tracker.PollInterval <= 0 {
		c.Tracker.PollInterval = 10 * time.Second
	}
	if c.Tracker.EventBuffer <= 0 {
		c.Tracker.EventBuffer = 64
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports every required value that is missing.
func (c *Config) Validate() error {
	var missing []string
	if c.Telegram.APIID == 0 {
		missing = append(missing, "API_ID")
	}
	if c.Telegram.APIHash == "" {
		missing = append(missing, "API_HASH")
	}
	if c.Tracker.TargetUser == "" {
		missing = append(missing, "TARGET_USER")
	}
	if c.Tracker.LogChat == "" {
		missing = append(missing, "LOG_CHAT_ID")
	}
	if len(missing) == 0 {
		return nil
	}

	msg := fmt.Sprintf("missing required configuration: %s (set them in .env or %s)", strings.Join(missing, ", "), DefaultPath)
	if c.Telegram.APIID == 0 || c.Telegram.APIHash == "" {
		msg += "; API credentials are issued at https://my.telegram.org"
	}
	return &ValidationError{Missing: missing, msg: msg}
}

// ValidationError lists the configuration keys that were not provided.
type ValidationError struct {
	Missing []string
	msg     string
}

func (e *ValidationError) Error() string { return e.msg }

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.TrimSpace(v)
	}
}
