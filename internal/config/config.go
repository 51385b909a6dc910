package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds launcher settings. The menu itself lives in its own file
// (see package menu) so that it can be edited and hot-reloaded on its own.
type Config struct {
	Menu       string          `yaml:"menu"`
	Fullscreen bool            `yaml:"fullscreen"`
	Log        LogConfig       `yaml:"log"`
	Runner     RunnerConfig    `yaml:"runner"`
	Telemetry  TelemetryConfig `yaml:"telemetry"`
	Watch      WatchConfig     `yaml:"watch"`
	GPIO       GPIOConfig      `yaml:"gpio"`
}

// LogConfig selects the log file and level.
type LogConfig struct {
	// Path of the JSON log file. Empty disables logging; the terminal
	// belongs to the UI.
	Path    string `yaml:"path"`
	Verbose bool   `yaml:"verbose"`
}

// RunnerConfig controls how menu commands are started and buffered.
type RunnerConfig struct {
	PTY             bool              `yaml:"pty"`
	Env             map[string]string `yaml:"env"`
	WorkDir         string            `yaml:"work_dir"`
	QueueLines      int               `yaml:"queue_lines"`
	MaxLineBytes    int               `yaml:"max_line_bytes"`
	ScrollbackLines int               `yaml:"scrollback_lines"`
	ExitGrace       time.Duration     `yaml:"exit_grace"`
}

// TelemetryConfig tunes GPS routing and the map refresh throttle.
type TelemetryConfig struct {
	Marker          string        `yaml:"marker"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// WatchConfig controls hot reload of the menu file.
type WatchConfig struct {
	Enable       bool          `yaml:"enable"`
	Debounce     time.Duration `yaml:"debounce"`
	PollInterval time.Duration `yaml:"poll_interval"`
	ForcePoll    bool          `yaml:"force_poll"`
}

// GPIOConfig wires an optional hardware back button.
type GPIOConfig struct {
	// BackPin is the BCM number of a push button wired to ground. 0 disables.
	BackPin  int           `yaml:"back_pin"`
	Debounce time.Duration `yaml:"debounce"`
}

// Default returns the settings used when no settings file is given.
func Default() Config {
	cfg := Config{
		Menu:  "./pimenu.yaml",
		Watch: WatchConfig{Enable: true},
	}
	applyDefaults(&cfg)
	return cfg
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		var te *yaml.TypeError
		if errors.As(err, &te) && unknownFieldsOnly(te) {
			return Config{}, fmt.Errorf("config contains unknown fields: %s", strings.Join(stripLines(te.Errors), "; "))
		}
		return Config{}, err
	}

	if strings.TrimSpace(cfg.Menu) == "" {
		return Config{}, fmt.Errorf("menu is required")
	}
	if !filepath.IsAbs(cfg.Menu) {
		cfg.Menu = filepath.Join(filepath.Dir(path), cfg.Menu)
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Runner.QueueLines < 0 {
		return fmt.Errorf("runner.queue_lines must be >= 0")
	}
	if cfg.Runner.MaxLineBytes < 0 {
		return fmt.Errorf("runner.max_line_bytes must be >= 0")
	}
	if cfg.Runner.ScrollbackLines < 0 {
		return fmt.Errorf("runner.scrollback_lines must be >= 0")
	}
	if cfg.Runner.ExitGrace < 0 {
		return fmt.Errorf("runner.exit_grace must be >= 0")
	}
	for k := range cfg.Runner.Env {
		if strings.TrimSpace(k) == "" || strings.ContainsAny(k, "= ") {
			return fmt.Errorf("runner.env has invalid variable name %q", k)
		}
	}
	if cfg.Telemetry.RefreshInterval < 0 {
		return fmt.Errorf("telemetry.refresh_interval must be >= 0")
	}
	if cfg.Telemetry.Marker != "" && strings.TrimSpace(cfg.Telemetry.Marker) == "" {
		return fmt.Errorf("telemetry.marker must not be blank")
	}
	if cfg.Watch.Debounce < 0 || cfg.Watch.PollInterval < 0 {
		return fmt.Errorf("watch durations must be >= 0")
	}
	if cfg.GPIO.BackPin < 0 {
		return fmt.Errorf("gpio.back_pin must be >= 0")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Runner.QueueLines == 0 {
		cfg.Runner.QueueLines = 256
	}
	if cfg.Runner.MaxLineBytes == 0 {
		cfg.Runner.MaxLineBytes = 16 * 1024
	}
	if cfg.Runner.ScrollbackLines == 0 {
		cfg.Runner.ScrollbackLines = 2000
	}
	if cfg.Telemetry.Marker == "" {
		cfg.Telemetry.Marker = "GGA,"
	}
	if cfg.Telemetry.RefreshInterval == 0 {
		cfg.Telemetry.RefreshInterval = 1 * time.Second
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 200 * time.Millisecond
	}
	if cfg.Watch.PollInterval == 0 {
		cfg.Watch.PollInterval = 2 * time.Second
	}
	if cfg.GPIO.Debounce == 0 {
		cfg.GPIO.Debounce = 50 * time.Millisecond
	}
}

var yamlLinePrefix = regexp.MustCompile(`^line \d+: `)

func unknownFieldsOnly(te *yaml.TypeError) bool {
	for _, e := range te.Errors {
		if !strings.Contains(e, "not found in type") {
			return false
		}
	}
	return len(te.Errors) > 0
}

func stripLines(errs []string) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, yamlLinePrefix.ReplaceAllString(e, ""))
	}
	return out
}
