package cliconfig

import (
	"fmt"
	"os"
	"strconv"
)

// ApplyEnvConfig applies configuration from environment variables (RCTX_*).
// It respects flags that have been explicitly set (changed map).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("backend", os.Getenv("RCTX_BACKEND"), &cfg.Backend)
	s.setString("filter", os.Getenv("RCTX_FILTER"), &cfg.Filter)
	s.setString("content-dir", os.Getenv("RCTX_CONTENT_DIR"), &cfg.ContentDir)
	s.setString("rom", os.Getenv("RCTX_ROM"), &cfg.ROM)
	s.setString("install", os.Getenv("RCTX_INSTALL"), &cfg.Install)
	s.setString("resizes", os.Getenv("RCTX_RESIZES"), &cfg.Resizes)
	s.setString("snapshot", os.Getenv("RCTX_SNAPSHOT"), &cfg.Snapshot)
	s.setString("log-level", os.Getenv("RCTX_LOG_LEVEL"), &cfg.LogLevel)

	ints := []struct {
		flag, env string
		dst       *int
	}{
		{"width", "RCTX_WIDTH", &cfg.Width},
		{"height", "RCTX_HEIGHT", &cfg.Height},
		{"capacity", "RCTX_CAPACITY", &cfg.Capacity},
		{"fb-width", "RCTX_FB_WIDTH", &cfg.FBWidth},
		{"fb-height", "RCTX_FB_HEIGHT", &cfg.FBHeight},
		{"frames", "RCTX_FRAMES", &cfg.Frames},
	}
	for _, v := range ints {
		if err := s.setIntFromString(v.flag, os.Getenv(v.env), v.dst); err != nil {
			return err
		}
	}

	// Zero is a valid offset, so it is not handled by setIntFromString.
	if v := os.Getenv("RCTX_FB_OFFSET"); v != "" && !changed["fb-offset"] {
		off, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse fb-offset: %w", err)
		}
		cfg.FBOffset = off
	}

	if err := s.setDuration("frame-timeout", os.Getenv("RCTX_FRAME_TIMEOUT"), &cfg.FrameTimeout); err != nil {
		return err
	}
	if err := s.setDuration("frame-interval", os.Getenv("RCTX_FRAME_INTERVAL"), &cfg.FrameInterval); err != nil {
		return err
	}

	s.setBoolFromString("watch", os.Getenv("RCTX_WATCH"), &cfg.Watch)
	return nil
}
