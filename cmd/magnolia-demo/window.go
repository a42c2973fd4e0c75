package main

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gogpu/magnolia/backend/legacy"
	"github.com/gogpu/magnolia/internal/scene"
)

// window is the demo's glfw window. It is the surface of both backends:
// Legacy makes a GL context current on it, and Explicit renders offscreen
// while the window supplies size and input.
//
// All methods must be called on the main thread.
type window struct {
	title  string
	width  int
	height int

	win     *glfw.Window
	profile legacy.Profile
	hasGL   bool

	switchRequested bool
}

var _ legacy.GLSurface = (*window)(nil)

func newWindow(title string, width, height int) *window {
	return &window{title: title, width: width, height: height}
}

// Size returns the framebuffer size.
func (w *window) Size() (int, int) {
	if w.win == nil {
		return w.width, w.height
	}
	return w.win.GetFramebufferSize()
}

// MakeCurrent creates a window whose context has profile p, replacing the
// current window when its context differs, and makes the context current.
func (w *window) MakeCurrent(p legacy.Profile) error {
	if w.win != nil && w.hasGL && w.profile == p {
		w.win.MakeContextCurrent()
		return nil
	}

	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.ContextVersionMajor, p.Major)
	glfw.WindowHint(glfw.ContextVersionMinor, p.Minor)
	if p.Core {
		glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
		glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	}
	if err := w.create(); err != nil {
		return fmt.Errorf("OpenGL %s: %w", p, err)
	}
	w.win.MakeContextCurrent()
	glfw.SwapInterval(1)
	w.profile, w.hasGL = p, true
	return nil
}

// ensure opens a window without a GL context if none is open.
func (w *window) ensure() error {
	if w.win != nil {
		return nil
	}
	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	w.hasGL = false
	return w.create()
}

func (w *window) create() error {
	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		return err
	}
	if w.win != nil {
		w.width, w.height = w.win.GetSize()
		w.win.Destroy()
	}
	win.SetKeyCallback(w.onKey)
	w.win = win
	return nil
}

// SwapBuffers presents the GL back buffer.
func (w *window) SwapBuffers() {
	if w.win != nil && w.hasGL {
		w.win.SwapBuffers()
	}
}

func (w *window) onKey(win *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	if action != glfw.Press {
		return
	}
	switch key {
	case glfw.KeyEscape:
		win.SetShouldClose(true)
	case glfw.KeyB:
		w.switchRequested = true
	}
}

// takeSwitch reports and clears a pending backend switch request.
func (w *window) takeSwitch() bool {
	req := w.switchRequested
	w.switchRequested = false
	return req
}

// input samples the held keys.
func (w *window) input() scene.Input {
	var in scene.Input
	if w.win == nil {
		return in
	}
	keys := []struct {
		glfw  glfw.Key
		scene scene.Key
	}{
		{glfw.KeyUp, scene.KeyUp},
		{glfw.KeyDown, scene.KeyDown},
		{glfw.KeyLeft, scene.KeyLeft},
		{glfw.KeyRight, scene.KeyRight},
		{glfw.KeySpace, scene.KeySpace},
	}
	for _, k := range keys {
		if w.win.GetKey(k.glfw) == glfw.Press {
			in = in.With(k.scene)
		}
	}
	return in
}

func (w *window) shouldClose() bool {
	return w.win != nil && w.win.ShouldClose()
}

func (w *window) setSubtitle(s string) {
	if w.win != nil {
		w.win.SetTitle(w.title + " - " + s)
	}
}

func (w *window) destroy() {
	if w.win != nil {
		w.win.Destroy()
		w.win = nil
	}
}
