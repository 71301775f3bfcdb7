package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	appName = "professore"

	DefaultBPM          = 80.0
	DefaultPrefillCount = 64
	DefaultPrefillLimit = 0.10
	DefaultVolume       = 100
	DefaultFilterKey    = 60
)

// PoolConfig sizes the shared note pool
type PoolConfig struct {
	PrefillCount int     `json:"prefillCount"`
	PrefillLimit float64 `json:"prefillLimit"`
}

// PlayerConfig drives the sequence player and its render target
type PlayerConfig struct {
	BPM           float64 `json:"bpm"`
	ConnectDevice bool    `json:"connectDevice"`
	Forward       bool    `json:"forward"`
	OutputPort    string  `json:"outputPort,omitempty"` // empty means first port
	SoundFont     string  `json:"soundFont,omitempty"`  // used when no port opens
}

// VoiceConfig points at the sampled voice
type VoiceConfig struct {
	SamplesDir string `json:"samplesDir,omitempty"`
	Stacked    bool   `json:"stacked"`
	Volume     int    `json:"volume"`
}

// FilterConfig limits which keys reach the listeners
type FilterConfig struct {
	Enabled bool `json:"enabled"`
	Acute   bool `json:"acute"`
	Key     int  `json:"key"`
}

// InputConfig selects keyboards by port name substring
type InputConfig struct {
	Preferred []string `json:"preferred,omitempty"`
	Excluded  []string `json:"excluded,omitempty"`
}

type LogConfig struct {
	Level string `json:"level,omitempty"`
	File  string `json:"file,omitempty"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	Palette string `json:"palette,omitempty"` // .gpl file, embedded default when empty
}

// Config is the main configuration structure
type Config struct {
	Pool   PoolConfig   `json:"pool"`
	Player PlayerConfig `json:"player"`
	Voice  VoiceConfig  `json:"voice"`
	Filter FilterConfig `json:"filter"`
	Input  InputConfig  `json:"input"`
	Log    LogConfig    `json:"log"`
	UI     UIConfig     `json:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Pool: PoolConfig{
			PrefillCount: DefaultPrefillCount,
			PrefillLimit: DefaultPrefillLimit,
		},
		Player: PlayerConfig{
			BPM:           DefaultBPM,
			ConnectDevice: true,
			Forward:       true,
		},
		Voice: VoiceConfig{
			SamplesDir: "sounds",
			Stacked:    true,
			Volume:     DefaultVolume,
		},
		Filter: FilterConfig{
			Key: DefaultFilterKey,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads path over the defaults. Fields absent from the file keep
// their default values.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Validate()
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

func (c *Config) SaveTo(path string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate pulls out-of-range values back to something usable
func (c *Config) Validate() {
	if c.Pool.PrefillCount < 1 {
		c.Pool.PrefillCount = DefaultPrefillCount
	}
	c.Pool.PrefillLimit = min(max(c.Pool.PrefillLimit, 0), 1)

	if c.Player.BPM <= 0 {
		c.Player.BPM = DefaultBPM
	}
	c.Voice.Volume = min(max(c.Voice.Volume, 0), 100)
	c.Filter.Key = min(max(c.Filter.Key, 0), 127)
}

// Prefer adds a port to the preferred inputs if it is not there yet
func (c *Config) Prefer(port string) {
	for _, p := range c.Input.Preferred {
		if p == port {
			return
		}
	}
	c.Input.Preferred = append(c.Input.Preferred, port)
}
