package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local directories owned by reawwise.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// WAAPI contains connection and retry settings for the authoring tool.
type WAAPI struct {
	Host               string `toml:"host"`
	Port               int    `toml:"port"`
	Serializer         string `toml:"serializer"`
	CallTimeoutSeconds int    `toml:"call_timeout_seconds"`
	MinRetryDelayMS    int    `toml:"min_retry_delay_ms"`
	MaxRetryDelayMS    int    `toml:"max_retry_delay_ms"`
	PollIntervalMS     int    `toml:"poll_interval_ms"`
	ReadRetryAttempts  int    `toml:"read_retry_attempts"`
	ReadRetryDelayMS   int    `toml:"read_retry_delay_ms"`
}

// Import contains defaults applied to new sessions and to the import executor.
type Import struct {
	ConflictPolicy   string `toml:"conflict_policy"`
	TemplatePolicy   string `toml:"template_policy"`
	SelectionChannel int    `toml:"selection_channel"`
	UndoGroupName    string `toml:"undo_group_name"`
	DefaultLanguage  string `toml:"default_language"`
	EmbedAudio       bool   `toml:"embed_audio"`
}

// Session contains workstation adapter settings.
type Session struct {
	Manifest       string `toml:"manifest"`
	PollIntervalMS int    `toml:"poll_interval_ms"`
}

// Notifications configures the optional ntfy endpoint.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reawwise.
//
// Configuration sections by subsystem:
//   - Paths: state and log directories
//   - WAAPI: authoring tool address, serializer, timeouts and backoff
//   - Import: conflict/template policies, undo group and UI selection
//   - Session: render manifest location and poll cadence
//   - Notifications: ntfy topic for import results
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	WAAPI         WAAPI         `toml:"waapi"`
	Import        Import        `toml:"import"`
	Session       Session       `toml:"session"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
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

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reawwise.toml")
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

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// URL returns the WebSocket endpoint of the WAAPI router.
func (w WAAPI) URL() string {
	return "ws://" + net.JoinHostPort(w.Host, strconv.Itoa(w.Port)) + "/waapi"
}

// CallTimeout returns the per-call timeout. Zero means calls block until the
// transport fails.
func (w WAAPI) CallTimeout() time.Duration {
	return time.Duration(w.CallTimeoutSeconds) * time.Second
}

// MinRetryDelay returns the initial reconnect backoff.
func (w WAAPI) MinRetryDelay() time.Duration {
	return time.Duration(w.MinRetryDelayMS) * time.Millisecond
}

// MaxRetryDelay returns the reconnect backoff ceiling.
func (w WAAPI) MaxRetryDelay() time.Duration {
	return time.Duration(w.MaxRetryDelayMS) * time.Millisecond
}

// PollInterval returns the keep-alive ping cadence while connected.
func (w WAAPI) PollInterval() time.Duration {
	return time.Duration(w.PollIntervalMS) * time.Millisecond
}

// ReadRetryDelay returns the sleep between idempotent read retries.
func (w WAAPI) ReadRetryDelay() time.Duration {
	return time.Duration(w.ReadRetryDelayMS) * time.Millisecond
}

// RequestTimeout bounds a single ntfy POST.
func (n Notifications) RequestTimeout() time.Duration {
	return time.Duration(n.RequestTimeoutSeconds) * time.Second
}

// PollInterval returns how often the workstation session is checked for changes.
func (s Session) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMS) * time.Millisecond
}

// StateDBPath returns the bbolt file holding per-session project state.
func (c *Config) StateDBPath() string {
	return filepath.Join(c.Paths.StateDir, "state.db")
}

// HistoryDBPath returns the sqlite file holding import history.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LogFilePath returns the log file written next to stderr output, or "" when
// file logging is disabled.
func (c *Config) LogFilePath() string {
	if c.Paths.LogDir == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "reawwise.log")
}

// WatchLockPath returns the lock file guarding a single watch process.
func (c *Config) WatchLockPath() string {
	return filepath.Join(c.Paths.StateDir, "watch.lock")
}

// SocketPath returns the control socket a running watch listens on.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "reawwise.sock")
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
