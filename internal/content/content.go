// Package content resolves content references to byte streams.
//
// The lifecycle manager never sees references; the application resolves a
// payload and hands the bytes to Manager.LoadData.
package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	// ErrNotFound is returned when a reference does not name existing content.
	ErrNotFound = errors.New("content: not found")

	// ErrInvalidReference is returned for references that cannot be resolved
	// safely, such as paths escaping the content root.
	ErrInvalidReference = errors.New("content: invalid reference")

	// ErrTooLarge is returned by ReadAll when content exceeds the limit.
	ErrTooLarge = errors.New("content: too large")
)

// Resolver turns a content reference into a byte stream.
type Resolver interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// FileResolver resolves references as slash-separated paths below Root.
type FileResolver struct {
	Root string
}

// NewFileResolver returns a resolver rooted at dir.
func NewFileResolver(dir string) *FileResolver {
	return &FileResolver{Root: dir}
}

// Path returns the file system path for ref.
func (r *FileResolver) Path(ref string) (string, error) {
	local := filepath.FromSlash(ref)
	if ref == "" || !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	return filepath.Join(r.Root, local), nil
}

// Open opens the file named by ref.
func (r *FileResolver) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := r.Path(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, fmt.Errorf("content: open %s: %w", ref, err)
	}
	return f, nil
}

// Exists reports whether ref names existing content.
func (r *FileResolver) Exists(ref string) bool {
	p, err := r.Path(ref)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Install copies the file at src into the content root under ref. The copy
// is written to a temporary file and renamed, so readers never observe a
// partial file.
func (r *FileResolver) Install(ctx context.Context, src, ref string) error {
	dst, err := r.Path(ref)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("content: install: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("content: install: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".install-*")
	if err != nil {
		return fmt.Errorf("content: install: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := io.Copy(tmp, readerWithContext(ctx, in)); err != nil {
		tmp.Close()
		return fmt.Errorf("content: install %s: %w", ref, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("content: install %s: %w", ref, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("content: install %s: %w", ref, err)
	}
	return nil
}

// ReadAll resolves ref and reads at most limit bytes. Content larger than
// limit fails with ErrTooLarge; a limit <= 0 means no limit.
func ReadAll(ctx context.Context, r Resolver, ref string, limit int64) ([]byte, error) {
	rc, err := r.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var src io.Reader = readerWithContext(ctx, rc)
	if limit > 0 {
		src = io.LimitReader(src, limit+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("content: read %s: %w", ref, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, ref, limit)
	}
	return data, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
