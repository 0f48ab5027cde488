// Command rctxdemo drives a render context lifecycle manager against an
// off-screen window: it loads a ROM image through a content resolver,
// paints a test pattern into the emulated framebuffer and renders frames
// while replaying scripted window resizes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/sf64rca/rctx"
	_ "github.com/sf64rca/rctx/backend/vulkan" // register the GPU backend
	"github.com/sf64rca/rctx/internal/cliconfig"
)

var exampleUsage = strings.TrimSpace(`
  rctxdemo --rom Starfox64.z64 --content-dir ~/roms
  rctxdemo --backend software --frames 300 --resizes 1920x1080,640x480 --snapshot out.png
  rctxdemo --config $HOME/.rctx/config.toml --watch
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:     "rctxdemo",
		Short:   "Run a render context lifecycle against an off-screen window",
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// Environment overrides the file; flags override both.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			level, _ := cliconfig.ParseLogLevel(cfg.LogLevel)
			log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			rctx.SetLogger(log)
			log.Info("configuration", "config", fmt.Sprintf("%+v", cfg))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, log)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.rctx/config.toml)")
	root.Flags().StringVar(&cfg.Backend, "backend", cfg.Backend, "render backend: auto, vulkan or software")
	root.Flags().IntVar(&cfg.Width, "width", cfg.Width, "initial window width")
	root.Flags().IntVar(&cfg.Height, "height", cfg.Height, "initial window height")

	root.Flags().IntVar(&cfg.Capacity, "capacity", cfg.Capacity, "backing memory size in bytes")
	root.Flags().StringVar(&cfg.Filter, "filter", cfg.Filter, "scan-out filter: nearest or bilinear")
	root.Flags().IntVar(&cfg.FBOffset, "fb-offset", cfg.FBOffset, "framebuffer offset in backing memory")
	root.Flags().IntVar(&cfg.FBWidth, "fb-width", cfg.FBWidth, "framebuffer width in pixels")
	root.Flags().IntVar(&cfg.FBHeight, "fb-height", cfg.FBHeight, "framebuffer height in pixels")
	root.Flags().DurationVar(&cfg.FrameTimeout, "frame-timeout", cfg.FrameTimeout, "how long a frame may wait on the GPU")

	root.Flags().StringVar(&cfg.ContentDir, "content-dir", cfg.ContentDir, "directory ROM references resolve against")
	root.Flags().StringVar(&cfg.ROM, "rom", cfg.ROM, "ROM reference to load (optional)")
	root.Flags().StringVar(&cfg.Install, "install", cfg.Install, "copy this file into the content directory as --rom if it is missing")
	root.Flags().BoolVar(&cfg.Watch, "watch", cfg.Watch, "reload the ROM when it changes on disk")

	root.Flags().IntVar(&cfg.Frames, "frames", cfg.Frames, "frames to render (0 = until interrupted)")
	root.Flags().DurationVar(&cfg.FrameInterval, "frame-interval", cfg.FrameInterval, "delay between frames")
	root.Flags().StringVar(&cfg.Resizes, "resizes", cfg.Resizes, "comma-separated WIDTHxHEIGHT window resizes spread over the run")
	root.Flags().StringVar(&cfg.Snapshot, "snapshot", cfg.Snapshot, "write the last presented frame to this PNG file")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rctxdemo: %v\n", err)
		os.Exit(1)
	}
}

// run is split from main so tests can drive a whole session.
func run(ctx context.Context, cfg cliconfig.Config, log *slog.Logger) error {
	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	return a.run(ctx)
}
