// Command magnolia-demo moves flat-colored boxes around through the
// magnolia renderer.
//
// In a window, the arrow keys move the player, Space spawns wandering
// boxes, B switches between the explicit and legacy backends and Escape
// quits. With -headless it renders offscreen with scripted input and
// writes the last frame to -output.
//
// Usage:
//
//	magnolia-demo [-config demo.toml] [-backend explicit|legacy] [-headless]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/magnolia"
	"github.com/gogpu/magnolia/backend"
	"github.com/gogpu/magnolia/backend/explicit"
	_ "github.com/gogpu/magnolia/backend/legacy/gl21"
	_ "github.com/gogpu/magnolia/backend/legacy/gl33"
	"github.com/gogpu/magnolia/internal/scene"
)

func init() {
	// glfw and GL contexts live on the main thread.
	runtime.LockOSThread()
}

func main() {
	cfg, err := loadConfig(os.Args[0], os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level, _ := cfg.level()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	magnolia.SetLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Headless {
		err = runHeadless(ctx, cfg, log)
	} else {
		err = runWindow(ctx, cfg, log)
	}
	if err != nil {
		log.Error("demo failed", "err", err)
		os.Exit(1)
	}
}

// newScene creates the player box.
func newScene(r *magnolia.Renderer, cfg config, log *slog.Logger) (*scene.World, error) {
	world := scene.NewWorld(r, cfg.Seed, log)
	player, err := world.Spawn(mgl32.Vec2{}, 0.3, magnolia.White)
	if err != nil {
		return nil, err
	}
	player.AddBehaviour(scene.PlayerControls{})
	player.AddBehaviour(scene.BorderCollision{})
	player.AddBehaviour(scene.Spawner{Range: 0.5})
	return world, nil
}

func runHeadless(ctx context.Context, cfg config, log *slog.Logger) error {
	// Lets the run complete on machines without a GPU.
	backend.Register(backend.Explicit, "noop", 0, explicit.Noop)

	r := magnolia.NewRenderer(cfg.options(log)...)
	if err := r.Init(ctx, offscreen{cfg.Width, cfg.Height}, cfg.kind()); err != nil {
		return err
	}
	defer r.Destroy()

	world, err := newScene(r, cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	frames := 0
	loop := r.NewLoop(func(dt float64) {
		var in scene.Input
		if frames < cfg.Spawn {
			in = in.With(scene.KeySpace).With(scene.KeyRight)
		}
		world.Update(dt, in)
		frames++
		if frames >= cfg.Frames {
			cancel()
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		loop.Start(gctx, time.Second/time.Duration(cfg.FPS))
		<-gctx.Done()
		loop.Stop()
		return nil
	})
	g.Go(func() error {
		return report(gctx, r, loop, log)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	img, err := r.Snapshot()
	if err != nil {
		return err
	}
	if err := writeImage(cfg.Output, img); err != nil {
		return err
	}
	log.Info("snapshot written", "path", cfg.Output, "frames", frames, "objects", len(world.Objects()))
	return nil
}

func runWindow(ctx context.Context, cfg config, log *slog.Logger) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw: %w", err)
	}
	defer glfw.Terminate()

	win := newWindow(cfg.Title, cfg.Width, cfg.Height)
	defer win.destroy()
	if cfg.kind() == backend.Explicit {
		if err := win.ensure(); err != nil {
			return err
		}
	}

	r := magnolia.NewRenderer(cfg.options(log)...)
	if err := r.Init(ctx, win, cfg.kind()); err != nil {
		return err
	}
	defer r.Destroy()
	showBackend(r, win)

	world, err := newScene(r, cfg, log)
	if err != nil {
		return err
	}
	var in scene.Input
	loop := r.NewLoop(func(dt float64) {
		world.Update(dt, in)
	})

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return report(gctx, r, loop, log)
	})

	ticker := time.NewTicker(time.Second / time.Duration(cfg.FPS))
	defer ticker.Stop()
	for err == nil && !win.shouldClose() {
		var now time.Time
		select {
		case <-gctx.Done():
			err = context.Cause(gctx)
			continue
		case now = <-ticker.C:
		}
		glfw.PollEvents()
		in = win.input()
		if win.takeSwitch() {
			err = switchBackend(ctx, r, win, world)
		}
		loop.Tick(now)
	}
	cancel()
	if werr := g.Wait(); err == nil {
		err = werr
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// switchBackend flips between the two backend kinds on the main thread,
// outside any tick.
func switchBackend(ctx context.Context, r *magnolia.Renderer, win *window, world *scene.World) error {
	next := backend.Explicit
	if kind, _, _ := r.Backend(); kind == backend.Explicit {
		next = backend.Legacy
	}
	if next == backend.Explicit {
		if err := win.ensure(); err != nil {
			return err
		}
	}
	if err := r.SwitchBackend(ctx, next, win); err != nil {
		return fmt.Errorf("switch to %s: %w", next, err)
	}
	showBackend(r, win)
	return world.Reattach()
}

func showBackend(r *magnolia.Renderer, win *window) {
	kind, variant, _ := r.Backend()
	if kind == backend.Explicit {
		variant += " (offscreen)"
	}
	win.setSubtitle(variant)
}

// report logs frame statistics once a second until ctx is done.
func report(ctx context.Context, r *magnolia.Renderer, loop *magnolia.Loop, log *slog.Logger) error {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			st := r.LastFrame()
			log.Info("frame",
				"variant", st.Variant,
				"fps", fmt.Sprintf("%.0f", loop.FPS()),
				"queued", st.Queued,
				"draws", st.Draws,
				"dropped", st.Dropped)
		}
	}
}
