// Package headless provides an off-screen window for the demo and tests.
//
// A Window has a native handle, keeps a copy of the last presented frame
// and delivers resize events posted to it, standing in for a platform
// window system.
package headless

import (
	"errors"
	"image"
	"image/png"
	"os"
	"sync"
	"sync/atomic"
)

// ErrNoFrame is returned by SavePNG before any frame was presented.
var ErrNoFrame = errors.New("headless: no frame presented")

// nextHandle hands out unique non-zero native handles.
var nextHandle atomic.Uintptr

// ResizeEvent is a surface size change.
type ResizeEvent struct {
	Width, Height int
}

// Window is an off-screen window. It implements backend.Window and
// backend.FramePresenter.
//
// Window is safe for concurrent use.
type Window struct {
	handle uintptr
	events chan ResizeEvent

	mu     sync.Mutex
	width  int
	height int
	last   *image.RGBA
	frames uint64
	closed bool
}

// NewWindow creates a window of the given size with room for queue pending
// resize events.
func NewWindow(width, height, queue int) *Window {
	if queue < 1 {
		queue = 1
	}
	return &Window{
		handle: nextHandle.Add(1),
		events: make(chan ResizeEvent, queue),
		width:  width,
		height: height,
	}
}

// NativeHandle returns the window's handle, or 0 once closed.
func (w *Window) NativeHandle() uintptr {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0
	}
	return w.handle
}

// Size returns the current window size.
func (w *Window) Size() (width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

// Resize changes the window size and posts a ResizeEvent. When the queue is
// full the oldest pending event is dropped; the newest size always arrives.
// It is a no-op on a closed window.
func (w *Window) Resize(width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.width, w.height = width, height
	ev := ResizeEvent{Width: width, Height: height}
	for {
		select {
		case w.events <- ev:
			return
		default:
		}
		select {
		case <-w.events:
		default:
		}
	}
}

// Events returns the resize event channel. It is closed by Close.
func (w *Window) Events() <-chan ResizeEvent {
	return w.events
}

// Close invalidates the handle and closes the event channel.
func (w *Window) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.events)
}

// PresentFrame stores a copy of frame.
func (w *Window) PresentFrame(frame *image.RGBA) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.last == nil || w.last.Rect != frame.Rect {
		w.last = image.NewRGBA(frame.Rect)
	}
	copy(w.last.Pix, frame.Pix)
	w.frames++
	return nil
}

// LastFrame returns a copy of the most recently presented frame, or nil.
func (w *Window) LastFrame() *image.RGBA {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.last == nil {
		return nil
	}
	img := image.NewRGBA(w.last.Rect)
	copy(img.Pix, w.last.Pix)
	return img
}

// Frames returns the number of presented frames.
func (w *Window) Frames() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// SavePNG writes the last presented frame to path.
func (w *Window) SavePNG(path string) error {
	img := w.LastFrame()
	if img == nil {
		return ErrNoFrame
	}
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	return png.Encode(f, img)
}
