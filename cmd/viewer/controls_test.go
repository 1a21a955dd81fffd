package main

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"

	"deferred-viewer/input"
	"deferred-viewer/scene"
)

func press(k input.Key) input.Event { return input.Event{Kind: input.KeyDown, Key: k} }

func TestControlsNudgeLight(t *testing.T) {
	c := newControls()
	assert.True(t, c.handle(press(input.KeyArrowRight)))
	assert.True(t, c.handle(press(input.KeyPageUp)))
	assert.True(t, c.handle(press(input.KeyArrowDown)))
	assert.InDelta(t, 0.1, c.light.Direction[0], 1e-6)
	assert.InDelta(t, -0.9, c.light.Direction[1], 1e-6)
	assert.InDelta(t, 0.1, c.light.Direction[2], 1e-6)

	for range 100 {
		c.handle(press(input.KeyArrowLeft))
	}
	assert.Equal(t, float32(-scene.LightRange), c.light.Direction[0])

	c.handle(press(input.KeyR))
	assert.Equal(t, mgl32.Vec3{0, -1, 0}, c.light.Direction)

	// Arrow keys are key codes, not event kinds
	assert.True(t, c.handle(press(input.KeyArrowUp)))
	assert.InDelta(t, -0.1, c.light.Direction[2], 1e-6)
	assert.False(t, c.handle(input.Event{Kind: input.KeyDown, Key: input.KeySpace}))
}

func TestControlsToggleAndQuit(t *testing.T) {
	c := newControls()
	c.handle(press(input.KeyO))
	assert.True(t, c.takeToggle())
	assert.False(t, c.takeToggle())

	// Two presses before a frame cancel out.
	c.handle(press(input.KeyO))
	c.handle(press(input.KeyO))
	assert.False(t, c.takeToggle())

	assert.False(t, c.quit)
	c.handle(press(input.KeyEscape))
	assert.True(t, c.quit)
}

func TestControlsIgnoreOtherEvents(t *testing.T) {
	c := newControls()
	assert.False(t, c.handle(press(input.KeyUnknown)))
	assert.False(t, c.handle(input.Event{Kind: input.MouseMove, X: 3}))
	assert.True(t, c.handle(input.Event{Kind: input.KeyUp, Key: input.KeyO}))
	assert.False(t, c.takeToggle())
}
