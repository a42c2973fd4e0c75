package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/magnolia"
	"github.com/gogpu/magnolia/backend"
)

// config is read from an optional TOML file and then overridden by the
// flags given on the command line.
type config struct {
	Backend  string `toml:"backend"`
	Width    int    `toml:"width"`
	Height   int    `toml:"height"`
	Title    string `toml:"title"`
	Clear    string `toml:"clear"`
	Uniforms string `toml:"uniforms"`
	FPS      int    `toml:"fps"`
	Seed     uint64 `toml:"seed"`
	Headless bool   `toml:"headless"`
	Frames   int    `toml:"frames"`
	Spawn    int    `toml:"spawn"`
	Output   string `toml:"output"`
	LogLevel string `toml:"log_level"`
}

// defaultConfig leaves Backend empty: resolve picks legacy for a window and
// explicit for a headless run.
func defaultConfig() config {
	return config{
		Backend:  "",
		Width:    800,
		Height:   600,
		Title:    "magnolia",
		Clear:    "#1a1a26",
		Uniforms: "dynamic",
		FPS:      60,
		Seed:     1,
		Frames:   120,
		Spawn:    20,
		Output:   "frame.png",
		LogLevel: "info",
	}
}

func bindFlags(fs *flag.FlagSet, c *config) {
	fs.StringVar(&c.Backend, "backend", c.Backend, "preferred backend: explicit or legacy (default legacy in a window, explicit headless)")
	fs.IntVar(&c.Width, "width", c.Width, "surface width")
	fs.IntVar(&c.Height, "height", c.Height, "surface height")
	fs.StringVar(&c.Title, "title", c.Title, "window title")
	fs.StringVar(&c.Clear, "clear", c.Clear, "clear color as hex")
	fs.StringVar(&c.Uniforms, "uniforms", c.Uniforms, "uniform strategy: dynamic or per-object")
	fs.IntVar(&c.FPS, "fps", c.FPS, "target frame rate")
	fs.Uint64Var(&c.Seed, "seed", c.Seed, "random seed")
	fs.BoolVar(&c.Headless, "headless", c.Headless, "render offscreen and write the last frame to -output")
	fs.IntVar(&c.Frames, "frames", c.Frames, "frames to render in headless mode")
	fs.IntVar(&c.Spawn, "spawn", c.Spawn, "frames with Space held at the start of a headless run")
	fs.StringVar(&c.Output, "output", c.Output, "headless snapshot, .png or .bmp")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
}

// loadConfig parses args. Flags set explicitly win over the file, which
// wins over the defaults.
func loadConfig(name string, args []string) (config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	path := fs.String("config", "", "TOML config file")
	flags := defaultConfig()
	bindFlags(fs, &flags)
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	cfg := defaultConfig()
	if *path != "" {
		md, err := toml.DecodeFile(*path, &cfg)
		if err != nil {
			return config{}, fmt.Errorf("read config: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return config{}, fmt.Errorf("read config: unknown keys %v", undecoded)
		}
	}

	// Re-bind onto cfg and copy every flag that was set.
	overlay := flag.NewFlagSet(name, flag.ContinueOnError)
	bindFlags(overlay, &cfg)
	var err error
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" || err != nil {
			return
		}
		err = overlay.Set(f.Name, f.Value.String())
	})
	if err != nil {
		return config{}, err
	}
	cfg.resolve()
	return cfg, cfg.validate()
}

// resolve fills in the backend when none was chosen. Explicit has no
// presentable surface in a glfw window, so windows default to legacy.
func (c *config) resolve() {
	if c.Backend != "" {
		return
	}
	c.Backend = "explicit"
	if !c.Headless {
		c.Backend = "legacy"
	}
}

func (c config) validate() error {
	var errs []error
	if _, err := backend.ParseKind(c.Backend); err != nil {
		errs = append(errs, err)
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("size %dx%d must be positive", c.Width, c.Height))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps %d must be positive", c.FPS))
	}
	if _, err := c.uniforms(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.level(); err != nil {
		errs = append(errs, err)
	}
	if c.Headless && c.Frames < 1 {
		errs = append(errs, errors.New("headless mode needs at least one frame"))
	}
	return errors.Join(errs...)
}

func (c config) kind() backend.Kind {
	k, _ := backend.ParseKind(c.Backend)
	return k
}

func (c config) uniforms() (magnolia.UniformStrategy, error) {
	switch strings.ToLower(c.Uniforms) {
	case "dynamic":
		return magnolia.UniformDynamic, nil
	case "per-object", "perobject":
		return magnolia.UniformPerObject, nil
	default:
		return 0, fmt.Errorf("unknown uniform strategy %q", c.Uniforms)
	}
}

func (c config) level() (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(c.LogLevel))
	return l, err
}

func (c config) options(log *slog.Logger) []magnolia.Option {
	u, _ := c.uniforms()
	return []magnolia.Option{
		magnolia.WithClearColor(magnolia.Hex(c.Clear)),
		magnolia.WithUniformStrategy(u),
		magnolia.WithLogger(log),
	}
}
