package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sf64rca/rctx"
	"github.com/sf64rca/rctx/backend"
	"github.com/sf64rca/rctx/internal/cliconfig"
	"github.com/sf64rca/rctx/internal/content"
	"github.com/sf64rca/rctx/internal/headless"
	"github.com/sf64rca/rctx/internal/rom"
)

// app is one demo session. The manager is created here, at the root, and
// reached from the loader and watcher goroutines only through a token.
type app struct {
	cfg      cliconfig.Config
	log      *slog.Logger
	kind     backend.Kind
	resizes  []cliconfig.Size
	resolver *content.FileResolver

	manager  *rctx.Manager
	window   *headless.Window
	bindings *rctx.Bindings
	token    rctx.Token

	// loads is signaled after every ROM load attempt (for tests).
	loads chan error
}

func newApp(cfg cliconfig.Config, log *slog.Logger) (*app, error) {
	kind, err := cfg.BackendKind()
	if err != nil {
		return nil, err
	}
	resizes, err := cliconfig.ParseSizes(cfg.Resizes)
	if err != nil {
		return nil, err
	}
	filter, err := backend.ParseFilter(cfg.Filter)
	if err != nil {
		return nil, err
	}

	m := rctx.New(
		rctx.WithCapacity(cfg.Capacity),
		rctx.WithFrameSource(cfg.FrameSource()),
		rctx.WithFilter(filter),
		rctx.WithFrameTimeout(cfg.FrameTimeout),
	)
	return &app{
		cfg:      cfg,
		log:      log,
		kind:     kind,
		resizes:  resizes,
		resolver: content.NewFileResolver(cfg.ContentDir),
		manager:  m,
		window:   headless.NewWindow(cfg.Width, cfg.Height, 4),
		bindings: rctx.NewBindings(),
		loads:    make(chan error, 16),
	}, nil
}

func (a *app) run(ctx context.Context) error {
	defer a.window.Close()

	if err := a.installROM(ctx); err != nil {
		return err
	}

	if err := a.manager.Initialize(a.window, a.cfg.Width, a.cfg.Height, a.kind); err != nil {
		// Configuration and resource errors are fatal for the session.
		return fmt.Errorf("initialize (%s): %w", rctx.KindOf(err), err)
	}
	defer a.manager.Shutdown()

	a.token = a.bindings.Bind(a.manager)
	defer a.bindings.Unbind(a.token)

	if err := a.manager.WithBackend(a.describeBackend); err != nil {
		a.log.Warn("backend handle", "err", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup

	if a.cfg.ROM != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.reportLoad(a.loadROM(ctx, a.token))
		}()
		if a.cfg.Watch {
			w, err := newROMWatcher(a.cfg.ContentDir, a.cfg.ROM, 100*time.Millisecond, func() {
				a.reportLoad(a.loadROM(ctx, a.token))
			})
			if err != nil {
				a.log.Warn("rom watcher disabled", "err", err)
			} else {
				wg.Add(1)
				go func() {
					defer wg.Done()
					w.run(ctx, a.log)
				}()
			}
		}
	}

	err := a.loop(ctx)
	cancel()
	wg.Wait()

	if a.cfg.Snapshot != "" {
		if serr := a.window.SavePNG(a.cfg.Snapshot); serr != nil {
			a.log.Warn("snapshot failed", "path", a.cfg.Snapshot, "err", serr)
		} else {
			a.log.Info("snapshot written", "path", a.cfg.Snapshot)
		}
	}

	st := a.manager.Stats()
	a.log.Info("session finished",
		"backend", a.manager.Backend(),
		"rendered", st.FramesRendered, "busy", st.FramesBusy, "errors", st.FrameErrors,
		"resizes", st.Resizes, "loads", st.Loads, "presented", a.window.Frames())
	return err
}

// installROM copies the configured install file into the content
// directory when the ROM reference does not resolve yet.
func (a *app) installROM(ctx context.Context) error {
	if a.cfg.ROM == "" || a.cfg.Install == "" || a.resolver.Exists(a.cfg.ROM) {
		return nil
	}
	a.log.Info("installing rom", "from", a.cfg.Install, "ref", a.cfg.ROM)
	if err := a.resolver.Install(ctx, a.cfg.Install, a.cfg.ROM); err != nil {
		return fmt.Errorf("install rom: %w", err)
	}
	return nil
}

func (a *app) describeBackend(h *rctx.Handle) error {
	attrs := []any{"backend", h.Backend(), "generation", h.Generation(),
		"format", h.SurfaceFormat(), "gpu", h.HalDevice() != nil}
	a.log.Info("backend ready", attrs...)
	return nil
}

// loadROM resolves the ROM, normalizes it and loads it at offset 0. It
// reaches the manager through the binding token, so a torn-down manager is
// reported instead of dereferenced.
func (a *app) loadROM(ctx context.Context, tok rctx.Token) error {
	m, err := a.bindings.Resolve(tok)
	if err != nil {
		return err
	}
	limit := int64(a.cfg.Capacity)
	if src := a.cfg.FrameSource(); src.Offset > 0 {
		limit = int64(src.Offset)
	}
	data, err := content.ReadAll(ctx, a.resolver, a.cfg.ROM, limit)
	if err != nil {
		return err
	}
	img, err := rom.Parse(data)
	if err != nil {
		return err
	}
	if err := m.LoadData(img.Data); err != nil {
		return err
	}
	a.log.Info("rom loaded",
		"title", img.Header.Title, "code", img.Header.GameCode(),
		"format", img.Format, "bytes", len(img.Data))
	return nil
}

func (a *app) reportLoad(err error) {
	if err != nil {
		a.log.Error("rom load failed", "ref", a.cfg.ROM, "kind", rctx.KindOf(err), "err", err)
	}
	select {
	case a.loads <- err:
	default:
	}
}

// loop is the event/render loop: it applies window resizes, repaints the
// framebuffer and renders until the frame budget is spent or ctx ends.
func (a *app) loop(ctx context.Context) error {
	var tick <-chan time.Time
	if a.cfg.FrameInterval > 0 {
		t := time.NewTicker(a.cfg.FrameInterval)
		defer t.Stop()
		tick = t.C
	}

	src := a.cfg.FrameSource()
	pattern := newPattern(src.Width, src.Height)
	every := 0
	if len(a.resizes) > 0 && a.cfg.Frames > 0 {
		every = a.cfg.Frames / (len(a.resizes) + 1)
	}
	next := 0

	for frame := 0; a.cfg.Frames == 0 || frame < a.cfg.Frames; frame++ {
		if every > 0 && next < len(a.resizes) && frame == every*(next+1) {
			s := a.resizes[next]
			a.window.Resize(s.Width, s.Height)
			next++
		}
		a.drainEvents()

		if err := a.manager.LoadDataAt(src.Offset, pattern.render(frame)); err != nil {
			a.log.Warn("framebuffer update failed", "err", err)
		}
		if err := a.manager.RenderFrame(); err != nil {
			switch rctx.KindOf(err) {
			case rctx.TransientBackendBusy:
				a.log.Debug("frame busy", "frame", frame)
			case rctx.InvalidState:
				return err
			default:
				a.log.Warn("frame failed", "frame", frame, "err", err)
			}
		}

		if tick == nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
		}
	}
	return nil
}

// drainEvents applies every pending resize event.
func (a *app) drainEvents() {
	for {
		select {
		case ev, ok := <-a.window.Events():
			if !ok {
				return
			}
			if err := a.manager.Resize(ev.Width, ev.Height); err != nil {
				if errors.Is(err, backend.ErrInvalidDimensions) {
					a.log.Warn("ignoring resize", "width", ev.Width, "height", ev.Height)
					continue
				}
				a.log.Warn("resize failed, retrying before next frame", "err", err)
			}
		default:
			return
		}
	}
}
