// SPDX-License-Identifier: EPL-2.0

// Package config provides the configuration schema and loader of the
// audioio command.
package config

import (
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/ik5/audioio/audio"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// ZapLevel maps l to a zap level. Unknown levels map to info.
func (l LogLevel) ZapLevel() zapcore.Level {
	switch l {
	case LogDebug:
		return zapcore.DebugLevel
	case LogWarn:
		return zapcore.WarnLevel
	case LogError:
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	Session  SessionConfig  `yaml:"session"`
	Platform PlatformConfig `yaml:"platform"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// SessionConfig describes the stream opened by record and play.
type SessionConfig struct {
	// SampleRate in Hz. Play ignores it and uses the file header.
	SampleRate int `yaml:"sample_rate"`

	// Channels is 1 or 2. Play ignores it.
	Channels int `yaml:"channels"`

	// Format is "pcm16" or "float32". Play ignores it.
	Format string `yaml:"format"`

	// BufferSize is the transfer buffer in bytes, a multiple of the frame size.
	BufferSize int `yaml:"buffer_size"`

	// Duration bounds a recording. Zero records until interrupted.
	Duration time.Duration `yaml:"duration"`
}

// PlatformConfig selects the audio backend.
type PlatformConfig struct {
	// Name is a registered platform: "portaudio" or "null".
	Name string `yaml:"name"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level LogLevel `yaml:"level"`

	// File, when set, sends logs to a rotated file instead of stderr.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// ListenAddr serves /metrics when non-empty (e.g. ":9464").
	ListenAddr string `yaml:"listen_addr"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			SampleRate: 44100,
			Channels:   1,
			Format:     audio.FormatPCM16.String(),
			BufferSize: 4096,
		},
		Platform: PlatformConfig{Name: "portaudio"},
		Log: LogConfig{
			Level:      LogInfo,
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// AudioConfig converts the session settings into an engine configuration for
// direction dir. The result is not validated.
func (c *Config) AudioConfig(dir audio.Direction) (audio.Config, error) {
	format, err := audio.ParseSampleFormat(c.Session.Format)
	if err != nil {
		return audio.Config{}, err
	}

	return audio.Config{
		SampleRate: c.Session.SampleRate,
		Channels:   c.Session.Channels,
		Format:     format,
		BufferSize: c.Session.BufferSize,
		Direction:  dir,
	}, nil
}
