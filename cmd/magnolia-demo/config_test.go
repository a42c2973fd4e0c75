package main

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/magnolia"
	"github.com/gogpu/magnolia/backend"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("demo", nil)
	if err != nil {
		t.Fatal(err)
	}
	want := defaultConfig()
	want.Backend = "legacy"
	if cfg != want {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
	if cfg.kind() != backend.Legacy {
		t.Errorf("windowed kind = %v, want legacy", cfg.kind())
	}
}

func TestDefaultBackendFollowsMode(t *testing.T) {
	tests := []struct {
		args []string
		want backend.Kind
	}{
		{nil, backend.Legacy},
		{[]string{"-headless"}, backend.Explicit},
		{[]string{"-headless", "-backend", "legacy"}, backend.Legacy},
		{[]string{"-backend", "explicit"}, backend.Explicit},
	}
	for _, tt := range tests {
		cfg, err := loadConfig("demo", tt.args)
		if err != nil {
			t.Fatalf("%v: %v", tt.args, err)
		}
		if cfg.kind() != tt.want {
			t.Errorf("%v: kind = %v, want %v", tt.args, cfg.kind(), tt.want)
		}
	}
}

func TestLoadConfigFileAndFlags(t *testing.T) {
	path := writeFile(t, "demo.toml", `
backend = "legacy"
width = 640
height = 480
uniforms = "per-object"
clear = "#102030"
headless = true
`)
	cfg, err := loadConfig("demo", []string{"-config", path, "-width", "320", "-headless=false"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != "legacy" || cfg.kind() != backend.Legacy {
		t.Errorf("Backend = %q", cfg.Backend)
	}
	if cfg.Width != 320 {
		t.Errorf("Width = %d, want flag value 320", cfg.Width)
	}
	if cfg.Height != 480 {
		t.Errorf("Height = %d, want file value 480", cfg.Height)
	}
	if cfg.Headless {
		t.Error("flag -headless=false did not override the file")
	}
	if cfg.FPS != 60 {
		t.Errorf("FPS = %d, want default 60", cfg.FPS)
	}
	if u, _ := cfg.uniforms(); u != magnolia.UniformPerObject {
		t.Errorf("uniforms = %v", u)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		args []string
		want string
	}{
		{"unknown key", "colour = 1\n", nil, "unknown keys"},
		{"bad backend", "", []string{"-backend", "metal"}, "unknown kind"},
		{"bad size", "", []string{"-width", "0"}, "must be positive"},
		{"bad uniforms", "uniforms = \"ring\"\n", nil, "uniform strategy"},
		{"bad level", "", []string{"-log-level", "loud"}, "loud"},
		{"no frames", "", []string{"-headless", "-frames", "0"}, "at least one frame"},
		{"bad toml", "width = \n", nil, "read config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := tt.args
			if tt.file != "" {
				args = append([]string{"-config", writeFile(t, "c.toml", tt.file)}, args...)
			}
			_, err := loadConfig("demo", args)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestWriteImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	dir := t.TempDir()

	for _, name := range []string{"frame.png", "frame.bmp"} {
		path := filepath.Join(dir, name)
		if err := writeImage(path, img); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		f, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		got, format, err := image.Decode(f)
		f.Close()
		if err != nil {
			t.Fatalf("decode %s: %v", name, err)
		}
		if format != strings.TrimPrefix(filepath.Ext(name), ".") {
			t.Errorf("format = %q", format)
		}
		if r, _, _, _ := got.At(1, 1).RGBA(); r != 0xffff {
			t.Errorf("%s pixel = %v", name, got.At(1, 1))
		}
	}
	if err := writeImage(filepath.Join(dir, "frame.gif"), img); err == nil {
		t.Error("gif accepted")
	}
}
