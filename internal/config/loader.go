// SPDX-License-Identifier: EPL-2.0

package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ik5/audioio/audio"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. Fields absent from the file keep their [Default] values.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and
// validates the result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Session
	s := cfg.Session
	if s.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("session.sample_rate %d must be positive", s.SampleRate))
	}
	if s.Channels != 1 && s.Channels != 2 {
		errs = append(errs, fmt.Errorf("session.channels %d is invalid; valid values: 1, 2", s.Channels))
	}
	format, err := audio.ParseSampleFormat(s.Format)
	if err != nil {
		errs = append(errs, fmt.Errorf("session.format %q is invalid; valid values: pcm16, float32", s.Format))
	}
	if s.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("session.buffer_size %d must be positive", s.BufferSize))
	} else if err == nil && s.Channels > 0 {
		if frame := s.Channels * format.BytesPerSample(); s.BufferSize%frame != 0 {
			errs = append(errs, fmt.Errorf("session.buffer_size %d is not a multiple of the %d byte frame", s.BufferSize, frame))
		}
	}
	if s.Duration < 0 {
		errs = append(errs, fmt.Errorf("session.duration %s must not be negative", s.Duration))
	}

	// Platform
	if cfg.Platform.Name == "" {
		errs = append(errs, errors.New("platform.name is required"))
	}

	// Log
	if cfg.Log.Level != "" && !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}
	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxBackups < 0 || cfg.Log.MaxAgeDays < 0 {
		errs = append(errs, errors.New("log rotation limits must not be negative"))
	}

	return errors.Join(errs...)
}
