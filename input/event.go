// Package input carries window events from the platform layer to the frame
// loop. Events are queued by window callbacks and drained once per frame, so
// consumers never run inside a callback.
package input

import (
	"fmt"
	"sync"
)

// Kind discriminates Event.
type Kind int

const (
	KeyDown Kind = iota
	KeyUp
	MouseDown
	MouseUp
	MouseMove
	Scroll
	Resize
)

func (k Kind) String() string {
	switch k {
	case KeyDown:
		return "KeyDown"
	case KeyUp:
		return "KeyUp"
	case MouseDown:
		return "MouseDown"
	case MouseUp:
		return "MouseUp"
	case MouseMove:
		return "MouseMove"
	case Scroll:
		return "Scroll"
	case Resize:
		return "Resize"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Key is a virtual key code. Values match GLFW key codes, which use ASCII
// for printable keys.
type Key int

const (
	KeyUnknown    Key = -1
	KeySpace      Key = 32
	KeyO          Key = 79
	KeyR          Key = 82
	KeyEscape     Key = 256
	KeyArrowRight Key = 262
	KeyArrowLeft  Key = 263
	KeyArrowDown  Key = 264
	KeyArrowUp    Key = 265
	KeyPageUp     Key = 266
	KeyPageDown   Key = 267
)

// Button is a mouse button. Values match GLFW.
type Button int

const (
	ButtonLeft   Button = 0
	ButtonRight  Button = 1
	ButtonMiddle Button = 2
)

// Event is one input occurrence. Only the fields relevant to Kind are set:
// Key for key events, Button with X/Y for button events, X/Y for moves,
// DX/DY for scrolls, Width/Height for framebuffer resizes.
type Event struct {
	Kind          Kind
	Key           Key
	Button        Button
	X, Y          float32
	DX, DY        float32
	Width, Height int
}

// Queue is a FIFO of events safe for concurrent producers.
type Queue struct {
	mu     sync.Mutex
	events []Event
}

func (q *Queue) Push(e Event) {
	q.mu.Lock()
	q.events = append(q.events, e)
	q.mu.Unlock()
}

// Drain appends all queued events to dst in arrival order, empties the queue
// and returns the extended slice.
func (q *Queue) Drain(dst []Event) []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	dst = append(dst, q.events...)
	q.events = q.events[:0]
	return dst
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
