package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sf64rca/rctx"
	"github.com/sf64rca/rctx/backend"
)

// Config holds CLI configuration for rctxdemo.
type Config struct {
	Backend string
	Width   int
	Height  int

	Capacity     int
	Filter       string
	FBOffset     int
	FBWidth      int
	FBHeight     int
	FrameTimeout time.Duration

	ContentDir string
	ROM        string
	Install    string
	Watch      bool

	Frames        int
	FrameInterval time.Duration
	Resizes       string
	Snapshot      string
	LogLevel      string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	src := backend.DefaultFrameSource
	return Config{
		Backend:       "auto",
		Width:         1280,
		Height:        720,
		Capacity:      rctx.DefaultCapacity,
		Filter:        "nearest",
		FBOffset:      src.Offset,
		FBWidth:       src.Width,
		FBHeight:      src.Height,
		FrameTimeout:  backend.DefaultFrameTimeout,
		ContentDir:    ".",
		ROM:           "",
		Frames:        120,
		FrameInterval: 16 * time.Millisecond,
		LogLevel:      "info",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := c.BackendKind(); err != nil {
		return err
	}
	if _, err := backend.ParseFilter(c.Filter); err != nil {
		return err
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.Capacity <= 0 || c.Capacity > rctx.MaxCapacity {
		return fmt.Errorf("capacity must be in (0, %d], got %d", rctx.MaxCapacity, c.Capacity)
	}
	src := c.FrameSource()
	if c.FBOffset < 0 || src.Width <= 0 || src.Height <= 0 || c.FBOffset+src.Size() > c.Capacity {
		return fmt.Errorf("framebuffer %dx%d at offset %d does not fit %d bytes of memory",
			src.Width, src.Height, c.FBOffset, c.Capacity)
	}
	if c.FrameTimeout <= 0 {
		return fmt.Errorf("frame timeout must be positive")
	}
	if c.Frames < 0 {
		return fmt.Errorf("frames must not be negative")
	}
	if c.FrameInterval < 0 {
		return fmt.Errorf("frame interval must not be negative")
	}
	if _, err := ParseSizes(c.Resizes); err != nil {
		return err
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.ContentDir == "" {
		c.ContentDir = "."
	}
	return nil
}

// BackendKind parses the Backend field.
func (c *Config) BackendKind() (backend.Kind, error) {
	return backend.ParseKind(c.Backend)
}

// FrameSource returns the configured framebuffer location.
func (c *Config) FrameSource() backend.FrameSource {
	return backend.FrameSource{Offset: c.FBOffset, Width: c.FBWidth, Height: c.FBHeight}
}

// Size is a window size.
type Size struct {
	Width, Height int
}

// ParseSizes parses a comma-separated list of WIDTHxHEIGHT sizes.
func ParseSizes(s string) ([]Size, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []Size
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		w, h, ok := strings.Cut(strings.ToLower(part), "x")
		if !ok {
			return nil, fmt.Errorf("parse size %q: want WIDTHxHEIGHT", part)
		}
		width, err := strconv.Atoi(w)
		if err != nil {
			return nil, fmt.Errorf("parse size %q: %w", part, err)
		}
		height, err := strconv.Atoi(h)
		if err != nil {
			return nil, fmt.Errorf("parse size %q: %w", part, err)
		}
		if width <= 0 || height <= 0 {
			return nil, fmt.Errorf("parse size %q: must be positive", part)
		}
		out = append(out, Size{width, height})
	}
	return out, nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

// setIntPtr sets an int value from a pointer if not nil and flag not changed.
// Unlike setInt it accepts zero, for offsets.
func (s *configSetter) setIntPtr(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}
