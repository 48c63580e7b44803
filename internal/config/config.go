package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AutoModel is the model choice value that lets the selector pick a file.
const AutoModel = "auto"

// Config holds all application configuration.
type Config struct {
	ModelsDir string        `yaml:"models_dir"`
	ASR       ASRConfig     `yaml:"asr"`
	Refine    RefineConfig  `yaml:"refine"`
	Hotkey    HotkeyConfig  `yaml:"hotkey"`
	Audio     AudioConfig   `yaml:"audio"`
	Inject    InjectConfig  `yaml:"inject"`
	History   HistoryConfig `yaml:"history"`
	Metrics   MetricsConfig `yaml:"metrics"`
	LogLevel  string        `yaml:"log_level"`
}

// ASRConfig selects the whisper model and decoding language.
type ASRConfig struct {
	Model    string `yaml:"model"`    // "auto" or a file name inside models_dir
	Language string `yaml:"language"` // "auto", "zh", "en", ...
}

// RefineConfig controls transcript refinement by a local language model.
type RefineConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Model       string        `yaml:"model"`    // "auto" or a .gguf file name inside models_dir
	Provider    string        `yaml:"provider"` // llamacpp, llamafile, ollama, openai
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
}

// HotkeyConfig holds hotkey-related settings.
type HotkeyConfig struct {
	Keys        []string `yaml:"keys"`
	Mode        string   `yaml:"mode"` // "hold" or "toggle"
	HistoryKeys []string `yaml:"history_keys"`
}

// AudioConfig holds audio capture settings.
type AudioConfig struct {
	SampleRate  uint32        `yaml:"sample_rate"`
	Channels    uint32        `yaml:"channels"`
	MinDuration time.Duration `yaml:"min_duration"`
	DumpDir     string        `yaml:"dump_dir"`
}

// InjectConfig overrides the delivery timings of the injection engine.
type InjectConfig struct {
	Attempts     int           `yaml:"attempts"`
	ClearDelay   time.Duration `yaml:"clear_delay"`
	WriteDelay   time.Duration `yaml:"write_delay"`
	SettleDelay  time.Duration `yaml:"settle_delay"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// HistoryConfig configures the optional on-disk history journal.
type HistoryConfig struct {
	Path string `yaml:"path"` // empty disables persistence
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the endpoint
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "voxpaste")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultDataDir returns the directory for models and the history journal.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "voxpaste")
}

// DefaultModelsDir returns the default models directory path.
func DefaultModelsDir() string {
	return filepath.Join(DefaultDataDir(), "models")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		ModelsDir: DefaultModelsDir(),
		ASR: ASRConfig{
			Model:    AutoModel,
			Language: "auto",
		},
		Refine: RefineConfig{
			Enabled:     true,
			Model:       AutoModel,
			Provider:    "llamacpp",
			BaseURL:     "http://127.0.0.1:8080/v1",
			Timeout:     20 * time.Second,
			Temperature: 0.2,
			MaxTokens:   512,
		},
		Hotkey: HotkeyConfig{
			Keys:        []string{"ctrl", "shift", "r"},
			Mode:        "hold",
			HistoryKeys: []string{"ctrl", "shift", "h"},
		},
		Audio: AudioConfig{
			SampleRate:  16000,
			Channels:    1,
			MinDuration: 300 * time.Millisecond,
		},
		Inject: InjectConfig{
			Attempts:     2,
			ClearDelay:   20 * time.Millisecond,
			WriteDelay:   30 * time.Millisecond,
			SettleDelay:  350 * time.Millisecond,
			RetryBackoff: 90 * time.Millisecond,
		},
		History: HistoryConfig{
			Path: filepath.Join(DefaultDataDir(), "history.sqlite"),
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in paths is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.ModelsDir = expandTilde(cfg.ModelsDir)
	cfg.Audio.DumpDir = expandTilde(cfg.Audio.DumpDir)
	cfg.History.Path = expandTilde(cfg.History.Path)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.ModelsDir == "" {
		return errors.New("models_dir must not be empty")
	}

	if strings.TrimSpace(c.ASR.Model) == "" {
		return errors.New("asr.model must not be empty (use \"auto\")")
	}

	if c.Refine.Enabled {
		switch c.Refine.Provider {
		case "llamacpp", "llamafile", "ollama", "openai":
		default:
			return fmt.Errorf("refine.provider must be llamacpp, llamafile, ollama, or openai, got %q", c.Refine.Provider)
		}
		if c.Refine.Timeout <= 0 {
			return errors.New("refine.timeout must be > 0")
		}
		if c.Refine.Temperature < 0 || c.Refine.Temperature > 2 {
			return fmt.Errorf("refine.temperature must be in [0, 2], got %.2f", c.Refine.Temperature)
		}
	}

	if len(c.Hotkey.Keys) == 0 {
		return errors.New("hotkey.keys must not be empty")
	}

	switch c.Hotkey.Mode {
	case "hold", "toggle":
	default:
		return fmt.Errorf("hotkey.mode must be \"hold\" or \"toggle\", got %q", c.Hotkey.Mode)
	}

	if c.Audio.SampleRate == 0 {
		return errors.New("audio.sample_rate must be > 0")
	}

	if c.Audio.Channels == 0 {
		return errors.New("audio.channels must be > 0")
	}

	if c.Inject.Attempts < 1 {
		return fmt.Errorf("inject.attempts must be >= 1, got %d", c.Inject.Attempts)
	}
	if c.Inject.ClearDelay < 0 || c.Inject.WriteDelay < 0 || c.Inject.SettleDelay < 0 || c.Inject.RetryBackoff < 0 {
		return errors.New("inject delays must not be negative")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// ParseLogLevel maps a config log level to a slog level. Unknown values map to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const defaultHeader = `# voxpaste configuration
#
# asr.model / refine.model: "auto" picks a model from models_dir,
# any other value is a file name inside models_dir.
# inject.*: delivery timings for slow target applications.
# history.path: empty disables the on-disk history journal.
# metrics.addr: e.g. "127.0.0.1:9464" to expose Prometheus metrics.

`

// WriteDefault writes the default config to DefaultConfigPath. It returns the
// written path, or "" if a config file already exists.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
