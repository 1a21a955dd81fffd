package main

import (
	"deferred-viewer/input"
	"deferred-viewer/scene"
)

// lightStep is how far one key press moves a light direction component.
const lightStep = 0.1

// controls turns key presses into light edits, the SSAO toggle and quit.
type controls struct {
	light      scene.Light
	toggleSSAO bool
	quit       bool
}

func newControls() *controls {
	return &controls{light: scene.DefaultLight()}
}

// handle reports whether e was a key the viewer consumes.
func (c *controls) handle(e input.Event) bool {
	if e.Kind != input.KeyDown {
		return e.Kind == input.KeyUp && e.Key != input.KeyUnknown
	}
	switch e.Key {
	case input.KeyEscape:
		c.quit = true
	case input.KeyO:
		c.toggleSSAO = !c.toggleSSAO
	case input.KeyR:
		c.light = scene.DefaultLight()
	case input.KeyArrowLeft:
		c.light.Nudge(0, -lightStep)
	case input.KeyArrowRight:
		c.light.Nudge(0, lightStep)
	case input.KeyPageUp:
		c.light.Nudge(1, lightStep)
	case input.KeyPageDown:
		c.light.Nudge(1, -lightStep)
	case input.KeyArrowUp:
		c.light.Nudge(2, -lightStep)
	case input.KeyArrowDown:
		c.light.Nudge(2, lightStep)
	default:
		return false
	}
	return true
}

// takeToggle returns and clears a pending SSAO toggle.
func (c *controls) takeToggle() bool {
	t := c.toggleSSAO
	c.toggleSSAO = false
	return t
}
