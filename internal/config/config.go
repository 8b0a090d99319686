package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	MediaDir string `toml:"media_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Schedule contains the daily posting times.
type Schedule struct {
	Times         []string `toml:"times"`
	Timezone      string   `toml:"timezone"`
	StatsInterval int      `toml:"stats_interval"`
}

// Upload contains retry and caption policy for publish attempts.
type Upload struct {
	MaxRetry        int    `toml:"max_retry"`
	DefaultCaption  string `toml:"default_caption"`
	CaptionMaxRunes int    `toml:"caption_max_runes"`
	SubmitTimeout   int    `toml:"submit_timeout"`
	AbortGrace      int    `toml:"abort_grace"`
}

// Session points at the persisted publishing session.
type Session struct {
	CookiesPath string `toml:"cookies_path"`
}

// Publisher configures the external automation command that performs uploads.
type Publisher struct {
	Command            string   `toml:"command"`
	Args               []string `toml:"args"`
	Headless           bool     `toml:"headless"`
	PermanentExitCodes []int    `toml:"permanent_exit_codes"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	HeartbeatInterval int `toml:"heartbeat_interval"`
	HeartbeatTimeout  int `toml:"heartbeat_timeout"`
}

// Maintenance contains housekeeping for posted items.
type Maintenance struct {
	PostedRetentionDays int  `toml:"posted_retention_days"`
	DeletePostedMedia   bool `toml:"delete_posted_media"`
}

// Intake controls the optional ffprobe check run when media is queued.
type Intake struct {
	Probe         bool   `toml:"probe"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	MaxDuration   int    `toml:"max_duration"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Queued         bool   `toml:"queued"`
	Posted         bool   `toml:"posted"`
	Retry          bool   `toml:"retry"`
	Failed         bool   `toml:"failed"`
	Session        bool   `toml:"session"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for Postline.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and media directories plus the API bind address
//   - Schedule: daily posting times and timezone
//   - Upload: retry bound, default caption, and publish timeouts
//   - Session: location of the saved publishing session
//   - Publisher: external automation command
//   - Workflow: heartbeat cadence for in-progress items
//   - Maintenance: retention of posted items
//   - Intake: optional ffprobe validation of queued media
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Schedule      Schedule      `toml:"schedule"`
	Upload        Upload        `toml:"upload"`
	Session       Session       `toml:"session"`
	Publisher     Publisher     `toml:"publisher"`
	Workflow      Workflow      `toml:"workflow"`
	Maintenance   Maintenance   `toml:"maintenance"`
	Intake        Intake        `toml:"intake"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`

	location *time.Location
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/postline/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if err := loadDotEnv(resolvedPath); err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv populates the environment from .env files beside the config file
// and in the working directory. Variables already set are left untouched.
func loadDotEnv(configPath string) error {
	candidates := []string{".env"}
	if dir := filepath.Dir(configPath); configPath != "" && dir != "" {
		candidates = append([]string{filepath.Join(dir, ".env")}, candidates...)
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			return fmt.Errorf("load env file %s: %w", abs, err)
		}
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("postline.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.MediaDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the queue database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "queue.db")
}

// SocketPath returns the daemon IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.DataDir, "postline.sock")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "postline.lock")
}

// PIDPath returns the daemon pid file location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.DataDir, "postline.pid")
}

// Location returns the timezone used to evaluate schedule times.
func (c *Config) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	loc, err := loadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SubmitTimeout is the wall-clock budget for a single publish attempt.
func (c *Config) SubmitTimeout() time.Duration {
	return time.Duration(c.Upload.SubmitTimeout) * time.Second
}

// AbortGrace bounds how long a timed-out publish attempt may take to wind down.
func (c *Config) AbortGrace() time.Duration {
	return time.Duration(c.Upload.AbortGrace) * time.Second
}

// HeartbeatInterval is the cadence at which in-progress items are refreshed.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Workflow.HeartbeatInterval) * time.Second
}

// HeartbeatTimeout is the age after which an in-progress item is considered stale.
func (c *Config) HeartbeatTimeout() time.Duration {
	return time.Duration(c.Workflow.HeartbeatTimeout) * time.Second
}

// StatsInterval is the cadence of the periodic queue summary log.
func (c *Config) StatsInterval() time.Duration {
	return time.Duration(c.Schedule.StatsInterval) * time.Second
}

func loadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// MaxMediaDuration returns the longest accepted clip, or zero when unbounded.
func (c *Config) MaxMediaDuration() time.Duration {
	if c.Intake.MaxDuration <= 0 {
		return 0
	}
	return time.Duration(c.Intake.MaxDuration) * time.Second
}
