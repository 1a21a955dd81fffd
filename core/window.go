// Package core owns the platform window. It creates an OpenGL 4.1 core
// context with GLFW and turns window callbacks into input events.
package core

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"deferred-viewer/input"
)

func init() {
	// GLFW and GL must stay on the main thread.
	runtime.LockOSThread()
}

type Window struct {
	Handle *glfw.Window
	Width  int
	Height int
	Title  string
	Events *input.Queue
}

type WindowConfig struct {
	Width     int
	Height    int
	Title     string
	Resizable bool
	VSync     bool
}

// NewWindow opens a window with a current OpenGL 4.1 core context. Events
// are pushed on the returned window's queue.
func NewWindow(config WindowConfig) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, boolToInt(config.Resizable))

	handle, err := glfw.CreateWindow(config.Width, config.Height, config.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	handle.MakeContextCurrent()
	glfw.SwapInterval(boolToInt(config.VSync))

	window := &Window{
		Handle: handle,
		Width:  config.Width,
		Height: config.Height,
		Title:  config.Title,
		Events: &input.Queue{},
	}
	window.installCallbacks()
	return window, nil
}

func (w *Window) installCallbacks() {
	q := w.Events
	w.Handle.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		switch action {
		case glfw.Press, glfw.Repeat:
			q.Push(input.Event{Kind: input.KeyDown, Key: translateKey(key)})
		case glfw.Release:
			q.Push(input.Event{Kind: input.KeyUp, Key: translateKey(key)})
		}
	})
	w.Handle.SetMouseButtonCallback(func(win *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		x, y := win.GetCursorPos()
		kind := input.MouseDown
		if action == glfw.Release {
			kind = input.MouseUp
		}
		q.Push(input.Event{Kind: kind, Button: input.Button(button), X: float32(x), Y: float32(y)})
	})
	w.Handle.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		q.Push(input.Event{Kind: input.MouseMove, X: float32(x), Y: float32(y)})
	})
	w.Handle.SetScrollCallback(func(_ *glfw.Window, xoff, yoff float64) {
		q.Push(input.Event{Kind: input.Scroll, DX: float32(xoff), DY: float32(yoff)})
	})
	w.Handle.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		q.Push(input.Event{Kind: input.Resize, Width: width, Height: height})
	})
	w.Handle.SetSizeCallback(func(_ *glfw.Window, width, height int) {
		w.Width = width
		w.Height = height
	})
}

// translateKey maps a GLFW key to the keys the viewer reacts to.
func translateKey(k glfw.Key) input.Key {
	switch k {
	case glfw.KeySpace, glfw.KeyO, glfw.KeyR, glfw.KeyEscape,
		glfw.KeyRight, glfw.KeyLeft, glfw.KeyDown, glfw.KeyUp,
		glfw.KeyPageUp, glfw.KeyPageDown:
		return input.Key(k)
	}
	return input.KeyUnknown
}

func (w *Window) ShouldClose() bool {
	return w.Handle.ShouldClose()
}

func (w *Window) SetShouldClose(v bool) {
	w.Handle.SetShouldClose(v)
}

func (w *Window) PollEvents() {
	glfw.PollEvents()
}

func (w *Window) SwapBuffers() {
	w.Handle.SwapBuffers()
}

func (w *Window) GetFramebufferSize() (int, int) {
	return w.Handle.GetFramebufferSize()
}

func (w *Window) Destroy() {
	w.Handle.Destroy()
	glfw.Terminate()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
