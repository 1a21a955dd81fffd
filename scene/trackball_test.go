package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deferred-viewer/input"
)

func unitBox() AABB {
	return AABB{}.Extend(mgl32.Vec3{-1, -1, -1}).Extend(mgl32.Vec3{1, 1, 1})
}

func drag(tc *TrackballController, button input.Button, x0, y0, x1, y1 float32) {
	tc.Handle(input.Event{Kind: input.MouseDown, Button: button, X: x0, Y: y0})
	tc.Handle(input.Event{Kind: input.MouseMove, X: x1, Y: y1})
	tc.Handle(input.Event{Kind: input.MouseUp, Button: button, X: x1, Y: y1})
}

func TestTrackballFramesBounds(t *testing.T) {
	tc := NewTrackballFromBounds(unitBox(), 800, 600)
	r := unitBox().Radius()
	assert.Equal(t, mgl32.Vec3{}, tc.Target)
	assertNear(t, mgl32.Vec3{0, 0, r * 1.2}, tc.Position, 1e-5)

	// Empty scenes frame the unit sphere
	empty := NewTrackballFromBounds(AABB{}, 800, 600)
	assertNear(t, mgl32.Vec3{0, 0, 1.2}, empty.Position, 1e-6)
}

func TestTrackballZoom(t *testing.T) {
	tc := NewTrackballFromBounds(unitBox(), 800, 600)
	before := tc.Position.Sub(tc.Target).Len()

	assert.True(t, tc.Handle(input.Event{Kind: input.Scroll, DY: 1}))
	assert.False(t, tc.Handle(input.Event{Kind: input.Scroll}))
	require.True(t, tc.Update())
	assert.InDelta(t, before*0.9, tc.Position.Sub(tc.Target).Len(), 1e-5)

	// Nothing pending
	assert.False(t, tc.Update())

	tc.Handle(input.Event{Kind: input.Scroll, DY: -2})
	tc.Update()
	assert.InDelta(t, before*0.9/0.81, tc.Position.Sub(tc.Target).Len(), 1e-4)
}

func TestTrackballFullTurn(t *testing.T) {
	tc := NewTrackballFromBounds(unitBox(), 800, 600)
	start := tc.Position

	drag(tc, input.ButtonLeft, 0, 300, 400, 300)
	tc.Update()
	dist := tc.Position.Sub(tc.Target).Len()
	assert.InDelta(t, start.Len(), dist, 1e-4)
	// Half the width is half a revolution
	assertNear(t, start.Mul(-1), tc.Position, 1e-4)

	drag(tc, input.ButtonLeft, 0, 300, 400, 300)
	tc.Update()
	assertNear(t, start, tc.Position, 1e-4)
}

func TestTrackballPitchStopsAtPole(t *testing.T) {
	tc := NewTrackballFromBounds(unitBox(), 800, 600)
	drag(tc, input.ButtonLeft, 0, 0, 0, 300)
	tc.Update()

	dir := tc.Position.Sub(tc.Target).Normalize()
	assert.Less(t, mgl32.Abs(dir.Dot(tc.Up)), float32(maxPitchCos))
}

func TestTrackballPanMovesTarget(t *testing.T) {
	tc := NewTrackballFromBounds(unitBox(), 800, 600)
	offset := tc.Position.Sub(tc.Target)

	drag(tc, input.ButtonRight, 100, 100, 160, 100)
	tc.Update()
	assertNear(t, offset, tc.Position.Sub(tc.Target), 1e-5)
	// Dragging right slides the view left
	assert.Less(t, tc.Target[0], float32(0))
	assert.InDelta(t, 0, tc.Target[1], 1e-5)
}

func TestTrackballIgnoresHover(t *testing.T) {
	tc := NewTrackballController(800, 600)
	assert.False(t, tc.Handle(input.Event{Kind: input.MouseMove, X: 50, Y: 50}))
	assert.False(t, tc.Handle(input.Event{Kind: input.KeyDown, Key: input.KeyO}))
	assert.False(t, tc.Handle(input.Event{Kind: input.Resize, Width: 1024, Height: 768}))
	assert.Equal(t, 1024, tc.Width)
	assert.False(t, tc.Update())
}

func TestTrackballAppliesToCamera(t *testing.T) {
	tc := NewTrackballFromBounds(unitBox(), 800, 600)
	cam := NewCamera(45, 1, 0.1, 100)
	tc.Apply(cam)
	assert.Equal(t, tc.Position, cam.Eye)
	assert.Equal(t, tc.Target, cam.Target)
}
