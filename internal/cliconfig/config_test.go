package cliconfig

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/sf64rca/rctx/backend"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
	kind, _ := cfg.BackendKind()
	if kind != backend.Auto {
		t.Errorf("default backend = %v, want auto", kind)
	}
	if cfg.FrameSource() != backend.DefaultFrameSource {
		t.Errorf("default frame source = %+v", cfg.FrameSource())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"unknown backend", func(c *Config) { c.Backend = "gles" }, "gles"},
		{"unknown filter", func(c *Config) { c.Filter = "cubic" }, "cubic"},
		{"zero width", func(c *Config) { c.Width = 0 }, "window size"},
		{"zero capacity", func(c *Config) { c.Capacity = 0 }, "capacity"},
		{"framebuffer outside memory", func(c *Config) { c.Capacity = 1 << 20 }, "framebuffer"},
		{"negative offset", func(c *Config) { c.FBOffset = -4 }, "framebuffer"},
		{"zero frame timeout", func(c *Config) { c.FrameTimeout = 0 }, "frame timeout"},
		{"bad resizes", func(c *Config) { c.Resizes = "640by480" }, "640by480"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSmallMemory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capacity = 1 << 20
	cfg.FBOffset = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestParseSizes(t *testing.T) {
	got, err := ParseSizes("1920x1080, 640X480")
	if err != nil {
		t.Fatalf("ParseSizes: %v", err)
	}
	want := []Size{{1920, 1080}, {640, 480}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("ParseSizes = %v, want %v", got, want)
	}
	if got, err := ParseSizes(""); err != nil || got != nil {
		t.Errorf("ParseSizes(\"\") = %v, %v", got, err)
	}
	for _, bad := range []string{"x", "10x", "0x10", "axb", "10"} {
		if _, err := ParseSizes(bad); err == nil {
			t.Errorf("ParseSizes(%q) = nil error", bad)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}

func TestConfigSetterRespectsChanged(t *testing.T) {
	s := newConfigSetter(map[string]bool{"width": true})
	w, h := 100, 100
	s.setInt("width", 200, &w)
	s.setInt("height", 200, &h)
	if w != 100 || h != 200 {
		t.Errorf("got %dx%d, want 100x200", w, h)
	}

	d := time.Second
	if err := s.setDuration("frame-timeout", "bogus", &d); err == nil {
		t.Error("setDuration accepted a bad duration")
	}
}
