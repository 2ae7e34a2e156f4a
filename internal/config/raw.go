package config

import "fmt"

// RawConfig mirrors the file format. Nil fields were not set and keep their
// defaults.
type RawConfig struct {
	Display         *string `yaml:"display" toml:"display"`
	LogLevel        *string `yaml:"log_level" toml:"log_level"`
	LogFormat       *string `yaml:"log_format" toml:"log_format"`
	Background      *string `yaml:"background" toml:"background"`
	Shape           *bool   `yaml:"shape" toml:"shape"`
	OpacityProperty *string `yaml:"opacity_property" toml:"opacity_property"`
}

// ValidationError reports an invalid configuration value, with the file
// position it came from when known.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BuildEffectiveConfig applies raw on top of the defaults.
func BuildEffectiveConfig(raw RawConfig) *Config {
	cfg := DefaultConfig()
	if raw.Display != nil {
		cfg.Display = *raw.Display
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}
	if raw.LogFormat != nil {
		cfg.LogFormat = *raw.LogFormat
	}
	if raw.Background != nil {
		cfg.Background = *raw.Background
	}
	if raw.Shape != nil {
		cfg.Shape = *raw.Shape
	}
	if raw.OpacityProperty != nil {
		cfg.OpacityProperty = *raw.OpacityProperty
	}
	return cfg
}
