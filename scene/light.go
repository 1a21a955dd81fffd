package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// LightRange bounds each component of a light direction edited at runtime.
const LightRange = 3

// Light is the single directional light of the scene. Direction points from
// the light into the scene and need not be normalized.
type Light struct {
	Direction mgl32.Vec3
	Color     mgl32.Vec3
	Intensity float32
}

// DefaultLight shines straight down with white unit intensity.
func DefaultLight() Light {
	return Light{
		Direction: mgl32.Vec3{0, -1, 0},
		Color:     mgl32.Vec3{1, 1, 1},
		Intensity: 1,
	}
}

// Nudge adds delta to one direction component, clamped to ±LightRange.
func (l *Light) Nudge(axis int, delta float32) {
	l.Direction[axis] = mgl32.Clamp(l.Direction[axis]+delta, -LightRange, LightRange)
}

// Dir returns the normalized direction, falling back to straight down for
// a zero vector.
func (l Light) Dir() mgl32.Vec3 {
	if l.Direction.Len() < 1e-6 {
		return mgl32.Vec3{0, -1, 0}
	}
	return l.Direction.Normalize()
}
