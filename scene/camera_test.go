package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestViewMatrixLooksDownNegativeZ(t *testing.T) {
	cam := NewCamera(45, 16.0/9.0, 0.1, 100)
	cam.LookAt(mgl32.Vec3{1, 2, 8}, mgl32.Vec3{1, 2, 3}, mgl32.Vec3{0, 1, 0})

	target := cam.GetViewMatrix().Mul4x1(mgl32.Vec4{1, 2, 3, 1})
	assert.InDelta(t, 0, target[0], 1e-5)
	assert.InDelta(t, 0, target[1], 1e-5)
	assert.InDelta(t, -5, target[2], 1e-5)

	assertNear(t, mgl32.Vec3{0, 0, -1}, cam.GetForward(), 1e-6)
}

func TestViewProjectionIsCachedUntilChanged(t *testing.T) {
	cam := NewCamera(45, 1, 0.1, 100)
	before := cam.GetViewProjectionMatrix()
	assert.Equal(t, before, cam.GetViewProjectionMatrix())

	cam.UpdateAspectRatio(200, 100)
	assert.InDelta(t, 2, cam.AspectRatio, 1e-6)
	assert.NotEqual(t, before, cam.GetViewProjectionMatrix())

	// Zero height leaves the aspect alone
	cam.UpdateAspectRatio(200, 0)
	assert.InDelta(t, 2, cam.AspectRatio, 1e-6)
}

func TestSkyMatrixIgnoresEyePosition(t *testing.T) {
	a := NewCamera(45, 1, 0.1, 100)
	a.LookAt(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	b := NewCamera(45, 1, 0.1, 100)
	b.LookAt(mgl32.Vec3{5, -3, 7}, mgl32.Vec3{5, -3, 6}, mgl32.Vec3{0, 1, 0})

	assertMatNear(t, a.GetSkyMatrix(), b.GetSkyMatrix(), 1e-5)
	assert.False(t, a.GetViewProjectionMatrix().ApproxEqualThreshold(b.GetViewProjectionMatrix(), 1e-5))
}

func TestLightNudgeAndDir(t *testing.T) {
	l := DefaultLight()
	assert.Equal(t, mgl32.Vec3{0, -1, 0}, l.Dir())

	for range 40 {
		l.Nudge(0, 0.1)
	}
	assert.InDelta(t, LightRange, l.Direction[0], 1e-6)
	l.Nudge(1, -10)
	assert.InDelta(t, -LightRange, l.Direction[1], 1e-6)

	l.Direction = mgl32.Vec3{}
	assert.Equal(t, mgl32.Vec3{0, -1, 0}, l.Dir())
}
