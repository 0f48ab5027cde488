package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Backend       string `toml:"backend"`
	Width         int    `toml:"width"`
	Height        int    `toml:"height"`
	Capacity      int    `toml:"capacity"`
	Filter        string `toml:"filter"`
	FBOffset      *int   `toml:"fb_offset"`
	FBWidth       int    `toml:"fb_width"`
	FBHeight      int    `toml:"fb_height"`
	FrameTimeout  string `toml:"frame_timeout"`
	ContentDir    string `toml:"content_dir"`
	ROM           string `toml:"rom"`
	Install       string `toml:"install"`
	Watch         *bool  `toml:"watch"`
	Frames        int    `toml:"frames"`
	FrameInterval string `toml:"frame_interval"`
	Resizes       string `toml:"resizes"`
	Snapshot      string `toml:"snapshot"`
	LogLevel      string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.rctx/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".rctx", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("backend", fc.Backend, &cfg.Backend)
	s.setString("filter", fc.Filter, &cfg.Filter)
	s.setString("content-dir", fc.ContentDir, &cfg.ContentDir)
	s.setString("rom", fc.ROM, &cfg.ROM)
	s.setString("install", fc.Install, &cfg.Install)
	s.setString("resizes", fc.Resizes, &cfg.Resizes)
	s.setString("snapshot", fc.Snapshot, &cfg.Snapshot)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	s.setInt("width", fc.Width, &cfg.Width)
	s.setInt("height", fc.Height, &cfg.Height)
	s.setInt("capacity", fc.Capacity, &cfg.Capacity)
	s.setIntPtr("fb-offset", fc.FBOffset, &cfg.FBOffset)
	s.setInt("fb-width", fc.FBWidth, &cfg.FBWidth)
	s.setInt("fb-height", fc.FBHeight, &cfg.FBHeight)
	s.setInt("frames", fc.Frames, &cfg.Frames)

	if err := s.setDuration("frame-timeout", fc.FrameTimeout, &cfg.FrameTimeout); err != nil {
		return err
	}
	if err := s.setDuration("frame-interval", fc.FrameInterval, &cfg.FrameInterval); err != nil {
		return err
	}

	s.setBool("watch", fc.Watch, &cfg.Watch)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
