// Package config loads engine settings from a YAML file.
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

	"github.com/amenocturne/infinite-echoes/internal/compiler"
)

type AudioConfig struct {
	SampleRate   int     `yaml:"sample_rate"`
	BufferMillis int     `yaml:"buffer_ms"`
	Volume       float64 `yaml:"volume"`
	MaxVoices    int     `yaml:"max_voices"`
}

type Config struct {
	Engine      compiler.Config `yaml:"engine"`
	Audio       AudioConfig     `yaml:"audio"`
	FrameMillis int             `yaml:"frame_ms"`
	LogLevel    string          `yaml:"log_level"`
}

func Default() *Config {
	return &Config{
		Engine: compiler.DefaultConfig(),
		Audio: AudioConfig{
			SampleRate:   48000,
			BufferMillis: 50,
			Volume:       0.8,
			MaxVoices:    256,
		},
		FrameMillis: 16,
		LogLevel:    "info",
	}
}

// DefaultPath is ~/.config/infinite-echoes/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "infinite-echoes", "config.yaml"), nil
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return fmt.Errorf("sample_rate %d out of range", c.Audio.SampleRate)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return fmt.Errorf("volume %g out of range 0-1", c.Audio.Volume)
	}
	if c.FrameMillis <= 0 {
		return fmt.Errorf("frame_ms must be positive, got %d", c.FrameMillis)
	}
	if window := c.Engine.Window(); c.FrameInterval()*2 >= window {
		return fmt.Errorf("frame interval %v too long for a %v schedule-ahead window", c.FrameInterval(), window)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.FrameMillis) * time.Millisecond
}

func (c *Config) BufferSize() time.Duration {
	return time.Duration(c.Audio.BufferMillis) * time.Millisecond
}

func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}
