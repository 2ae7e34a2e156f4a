package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/xgb/render"
)

// Log formats accepted by log_format.
const (
	LogFormatAuto = "auto"
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// DefaultOpacityProperty is the window property holding per-window opacity.
const DefaultOpacityProperty = "_NET_WM_WINDOW_OPACITY"

// Config represents the effective compositor configuration.
type Config struct {
	// Display is the X display to open; empty means $DISPLAY.
	Display   string
	LogLevel  string
	LogFormat string
	// Background is the fill colour of the root tile when no wallpaper
	// property is set, as #rrggbb or #rrggbbaa.
	Background      string
	Shape           bool
	OpacityProperty string
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       LogFormatAuto,
		Background:      "#000000",
		Shape:           true,
		OpacityProperty: DefaultOpacityProperty,
	}
}

// Validate checks enum values, the background colour and the opacity
// property name.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, warning, error")}
	}
	switch c.LogFormat {
	case LogFormatAuto, LogFormatText, LogFormatJSON:
	default:
		return &ValidationError{Path: "log_format", Err: fmt.Errorf("log_format must be one of: auto, text, json")}
	}
	if _, err := ParseColor(c.Background); err != nil {
		return &ValidationError{Path: "background", Err: err}
	}
	if strings.TrimSpace(c.OpacityProperty) == "" {
		return &ValidationError{Path: "opacity_property", Err: fmt.Errorf("opacity_property must not be empty")}
	}
	return nil
}

// BackgroundColor returns the parsed background colour. It must only be
// called on a validated Config.
func (c *Config) BackgroundColor() render.Color {
	color, _ := ParseColor(c.Background)
	return color
}

// ParseColor parses #rrggbb or #rrggbbaa into a 16-bit-per-channel colour.
// Alpha defaults to opaque.
func ParseColor(s string) (render.Color, error) {
	hex, ok := strings.CutPrefix(strings.TrimSpace(s), "#")
	if !ok || (len(hex) != 6 && len(hex) != 8) {
		return render.Color{}, fmt.Errorf("colour %q must be #rrggbb or #rrggbbaa", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return render.Color{}, fmt.Errorf("colour %q: %w", s, err)
	}
	// Scale 8-bit channels to 16 bits so 0xff maps to 0xffff.
	channel := func(shift uint) uint16 {
		return uint16(v>>shift&0xff) * 0x101
	}
	return render.Color{
		Red:   channel(24),
		Green: channel(16),
		Blue:  channel(8),
		Alpha: channel(0),
	}, nil
}
