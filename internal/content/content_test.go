package content

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileResolverReadAll(t *testing.T) {
	dir := t.TempDir()
	want := []byte("rom payload")
	if err := os.WriteFile(filepath.Join(dir, "game.z64"), want, 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewFileResolver(dir)
	ctx := context.Background()

	got, err := ReadAll(ctx, r, "game.z64", 0)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("ReadAll = %q, want %q", got, want)
	}

	if _, err := ReadAll(ctx, r, "game.z64", 4); !errors.Is(err, ErrTooLarge) {
		t.Errorf("ReadAll with small limit = %v, want ErrTooLarge", err)
	}
	if got, err := ReadAll(ctx, r, "game.z64", int64(len(want))); err != nil || !bytes.Equal(got, want) {
		t.Errorf("ReadAll with exact limit = %q, %v", got, err)
	}
}

func TestFileResolverErrors(t *testing.T) {
	r := NewFileResolver(t.TempDir())
	ctx := context.Background()

	tests := []struct {
		ref  string
		want error
	}{
		{"missing.z64", ErrNotFound},
		{"", ErrInvalidReference},
		{"../escape.z64", ErrInvalidReference},
		{"/etc/passwd", ErrInvalidReference},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			if _, err := r.Open(ctx, tt.ref); !errors.Is(err, tt.want) {
				t.Errorf("Open(%q) = %v, want %v", tt.ref, err, tt.want)
			}
		})
	}
}

func TestFileResolverCanceled(t *testing.T) {
	r := NewFileResolver(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Open(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("Open with canceled context = %v", err)
	}
}

func TestFileResolverInstall(t *testing.T) {
	srcDir, root := t.TempDir(), t.TempDir()
	src := filepath.Join(srcDir, "picked.z64")
	if err := os.WriteFile(src, []byte{0x80, 0x37, 0x12, 0x40}, 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewFileResolver(root)
	if r.Exists("roms/game.z64") {
		t.Fatal("content exists before Install")
	}
	if err := r.Install(context.Background(), src, "roms/game.z64"); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if !r.Exists("roms/game.z64") {
		t.Fatal("content missing after Install")
	}
	got, _ := ReadAll(context.Background(), r, "roms/game.z64", 0)
	if !bytes.Equal(got, []byte{0x80, 0x37, 0x12, 0x40}) {
		t.Errorf("installed content = % x", got)
	}

	entries, _ := os.ReadDir(filepath.Join(root, "roms"))
	if len(entries) != 1 {
		t.Errorf("install left %d entries, want 1", len(entries))
	}
	if err := r.Install(context.Background(), filepath.Join(srcDir, "nope"), "x"); err == nil {
		t.Error("Install of a missing file succeeded")
	}
}
