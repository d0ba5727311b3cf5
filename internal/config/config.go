// ABOUTME: Player configuration loaded from YAML
// ABOUTME: Applies defaults and clamps the audio settings
package config

import (
	"os"
	"time"

	"github.com/camview/liveaudio/internal/logging"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Defaults.
const (
	DefaultBufferMs = 1000
	MaxBufferMs     = 5000
	DefaultServer   = "localhost:8927"
	DefaultCodec    = "auto"
)

// Config holds the player settings
type Config struct {
	AudioBufferMs   *int     `yaml:"audio_buffer_ms"`
	AudioMute       bool     `yaml:"audio_mute"`
	AudioVolume     *float64 `yaml:"audio_volume"`
	AutoplayWarning bool     `yaml:"autoplay_warning"`

	Server      string            `yaml:"server"`
	Codec       string            `yaml:"codec"` // auto, mulaw, pcm, flac, opus, mp3
	Discover    bool              `yaml:"discover"`
	MetricsAddr string            `yaml:"metrics_addr"`
	Log         logging.LogConfig `yaml:"log"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse decodes YAML configuration and applies defaults.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.AudioBufferMs == nil {
		v := DefaultBufferMs
		c.AudioBufferMs = &v
	}
	if c.AudioVolume == nil {
		v := 1.0
		c.AudioVolume = &v
	}
	if c.Server == "" {
		c.Server = DefaultServer
	}
	if c.Codec == "" {
		c.Codec = DefaultCodec
	}
	c.Log.ApplyDefaults()
}

// Validate checks fields that have no sensible clamp.
func (c *Config) Validate() error {
	switch c.Codec {
	case "auto", "mulaw", "pcm", "flac", "opus", "mp3":
	default:
		return errors.Errorf("unknown codec %q", c.Codec)
	}
	return nil
}

// TargetDelay returns audio_buffer_ms clamped to [0, MaxBufferMs].
func (c *Config) TargetDelay() time.Duration {
	ms := DefaultBufferMs
	if c.AudioBufferMs != nil {
		ms = *c.AudioBufferMs
	}
	if ms < 0 {
		ms = 0
	}
	if ms > MaxBufferMs {
		ms = MaxBufferMs
	}
	return time.Duration(ms) * time.Millisecond
}

// Volume returns audio_volume clamped to [0, 1].
func (c *Config) Volume() float64 {
	v := 1.0
	if c.AudioVolume != nil {
		v = *c.AudioVolume
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
