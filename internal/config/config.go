// Package config assembles recorder settings from defaults, an optional .env
// file, HVW_* environment variables and command line flags.
package config

import (
	"io/fs"
	"math"
	"strings"
	"time"

	"github.com/acentior/hw-video-writer/internal/mfx"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "HVW"

type Config struct {
	Output  OutputConfig  `mapstructure:"output"`
	Video   VideoConfig   `mapstructure:"video"`
	Encoder EncoderConfig `mapstructure:"encoder"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type OutputConfig struct {
	Path   string `mapstructure:"path"`
	FourCC string `mapstructure:"fourcc"`
}

type VideoConfig struct {
	Width  int     `mapstructure:"width"`
	Height int     `mapstructure:"height"`
	Fps    float64 `mapstructure:"fps"`
	// Source is "pattern" or "camera".
	Source string `mapstructure:"source"`
	// Frames stops the recording after that many frames; 0 records until
	// interrupted.
	Frames int `mapstructure:"frames"`
}

type EncoderConfig struct {
	Backend        string        `mapstructure:"backend"`
	SyncTimeout    time.Duration `mapstructure:"sync_timeout"`
	BusyInterval   time.Duration `mapstructure:"busy_interval"`
	BusyMaxRetries uint64        `mapstructure:"busy_max_retries"`
}

type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	// Addr is where /metrics is served; empty disables it.
	Addr string `mapstructure:"addr"`
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("output.path", "out.h264")
	v.SetDefault("output.fourcc", "H264")

	v.SetDefault("video.width", 640)
	v.SetDefault("video.height", 480)
	v.SetDefault("video.fps", 30.0)
	v.SetDefault("video.source", "pattern")
	v.SetDefault("video.frames", 300)

	v.SetDefault("encoder.backend", "simulated")
	v.SetDefault("encoder.sync_timeout", "1s")
	v.SetDefault("encoder.busy_interval", "1ms")
	v.SetDefault("encoder.busy_max_retries", 0) // unbounded

	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")

	v.SetDefault("metrics.addr", "")
}

// New returns a viper instance with defaults and HVW_ environment binding,
// e.g. HVW_VIDEO_FPS for video.fps.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// LoadEnv loads .env style files into the process environment. Missing files
// are ignored; with no arguments ".env" is tried.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Wrapf(err, "load %s", file)
		}
	}
	return nil
}

// Load unmarshals v and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that can be checked without opening a device.
func (c *Config) Validate() error {
	if c.Output.Path == "" {
		return errors.New("output.path is required")
	}
	if _, err := c.FourCC(); err != nil {
		return err
	}
	if c.Video.Width <= 0 || c.Video.Height <= 0 {
		return errors.Newf("video size %dx%d must be positive", c.Video.Width, c.Video.Height)
	}
	if !(c.Video.Fps > 0) || math.IsInf(c.Video.Fps, 0) {
		return errors.Newf("video.fps %v must be positive", c.Video.Fps)
	}
	switch c.Video.Source {
	case "pattern", "camera":
	default:
		return errors.WithHint(errors.Newf("unknown video.source %q", c.Video.Source),
			"use \"pattern\" or \"camera\"")
	}
	if c.Video.Frames < 0 {
		return errors.Newf("video.frames %d is negative", c.Video.Frames)
	}
	if c.Encoder.Backend == "" {
		return errors.New("encoder.backend is required")
	}
	if c.Encoder.SyncTimeout < 0 || c.Encoder.BusyInterval < 0 {
		return errors.New("encoder timeouts must not be negative")
	}
	return nil
}

// FourCC parses Output.FourCC. Codec support is left to the writer.
func (c *Config) FourCC() (mfx.FourCC, error) {
	cc, err := mfx.ParseFourCC(strings.ToUpper(c.Output.FourCC))
	if err != nil {
		return 0, errors.Wrap(err, "output.fourcc")
	}
	return cc, nil
}
