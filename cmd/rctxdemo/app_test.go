package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sf64rca/rctx"
	"github.com/sf64rca/rctx/backend"
	"github.com/sf64rca/rctx/internal/cliconfig"
)

func testConfig(t *testing.T) cliconfig.Config {
	t.Helper()
	cfg := cliconfig.DefaultConfig()
	cfg.Backend = "software"
	cfg.Width, cfg.Height = 64, 48
	cfg.Capacity = 1 << 17
	cfg.FBOffset = 1 << 16
	cfg.FBWidth, cfg.FBHeight = 32, 24
	cfg.ContentDir = t.TempDir()
	cfg.Frames = 6
	cfg.FrameInterval = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// v64Image returns a byte-swapped 1 KiB ROM image.
func v64Image() []byte {
	z := make([]byte, 1024)
	copy(z, []byte{0x80, 0x37, 0x12, 0x40})
	copy(z[0x20:], "DEMO                ")
	copy(z[0x3b:], "NDME")
	out := make([]byte, len(z))
	for i := 0; i < len(z); i += 2 {
		out[i], out[i+1] = z[i+1], z[i]
	}
	return out
}

func TestRunSoftwareSession(t *testing.T) {
	cfg := testConfig(t)
	cfg.Resizes = "96x72"
	cfg.Snapshot = filepath.Join(t.TempDir(), "frame.png")

	a, err := newApp(cfg, discardLogger())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	if err := a.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	st := a.manager.Stats()
	if st.FramesRendered != 6 {
		t.Errorf("FramesRendered = %d, want 6", st.FramesRendered)
	}
	if st.Resizes != 1 {
		t.Errorf("Resizes = %d, want 1", st.Resizes)
	}
	if a.manager.IsInitialized() {
		t.Error("manager still initialized after run")
	}
	if a.manager.Backend() != backend.Software {
		t.Errorf("Backend() = %v, want software", a.manager.Backend())
	}
	if a.bindings.Len() != 0 {
		t.Error("token still bound after run")
	}
	last := a.window.LastFrame()
	if last == nil || last.Rect.Dx() != 96 || last.Rect.Dy() != 72 {
		t.Fatalf("last frame = %v, want 96x72", last)
	}
	if fi, err := os.Stat(cfg.Snapshot); err != nil || fi.Size() == 0 {
		t.Errorf("snapshot not written: %v", err)
	}
}

func TestRunInvalidBackendIsFatal(t *testing.T) {
	cfg := testConfig(t)
	a, err := newApp(cfg, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	a.kind = backend.Kind(42)

	err = a.run(context.Background())
	if rctx.KindOf(err) != rctx.ConfigurationError {
		t.Errorf("run error = %v (%v), want ConfigurationError", err, rctx.KindOf(err))
	}
}

func TestLoadROM(t *testing.T) {
	cfg := testConfig(t)
	cfg.ROM = "game.v64"
	if err := os.WriteFile(filepath.Join(cfg.ContentDir, cfg.ROM), v64Image(), 0o644); err != nil {
		t.Fatal(err)
	}
	a, err := newApp(cfg, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := a.manager.Initialize(a.window, 64, 48, backend.Software); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer a.manager.Shutdown()
	tok := a.bindings.Bind(a.manager)

	if err := a.loadROM(context.Background(), tok); err != nil {
		t.Fatalf("loadROM: %v", err)
	}
	got, err := a.manager.ReadData(0, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{0x80, 0x37, 0x12, 0x40}) {
		t.Errorf("memory starts with % x, want z64 magic", got)
	}

	a.bindings.Unbind(tok)
	if err := a.loadROM(context.Background(), tok); !errors.Is(err, rctx.ErrUnknownToken) {
		t.Errorf("loadROM after Unbind = %v, want ErrUnknownToken", err)
	}
}

func TestInstallROM(t *testing.T) {
	cfg := testConfig(t)
	cfg.ROM = "roms/game.v64"
	cfg.Install = filepath.Join(t.TempDir(), "picked.v64")
	if err := os.WriteFile(cfg.Install, v64Image(), 0o644); err != nil {
		t.Fatal(err)
	}
	a, err := newApp(cfg, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := a.installROM(context.Background()); err != nil {
		t.Fatalf("installROM: %v", err)
	}
	if !a.resolver.Exists(cfg.ROM) {
		t.Error("ROM not installed")
	}
}

func TestROMWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	reloaded := make(chan struct{}, 4)
	w, err := newROMWatcher(dir, "game.z64", 10*time.Millisecond, func() {
		reloaded <- struct{}{}
	})
	if err != nil {
		t.Fatalf("newROMWatcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.run(ctx, discardLogger())
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// Unrelated files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.bin"), []byte{1}, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "game.z64"), []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("reload not triggered")
	}
}

func TestPattern(t *testing.T) {
	p := newPattern(14, 2)
	buf := p.render(100)
	if len(buf) != 14*2*4 {
		t.Fatalf("len = %d", len(buf))
	}
	for i := 3; i < len(buf); i += 4 {
		if buf[i] != 0xff {
			t.Fatalf("alpha at %d = %#x, want opaque", i, buf[i])
		}
	}
	// Sweep lands on x+y == frame % (w+h).
	sweep := p.render(3)
	if sweep[3*4] != 0xff || sweep[3*4+1] != 0xff || sweep[3*4+2] != 0xff {
		t.Error("sweep pixel not white")
	}
}
