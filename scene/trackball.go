package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"deferred-viewer/input"
)

const (
	minOrbitDistance = 1e-3
	maxPitchCos      = 0.99
)

// TrackballController orbits a camera around a target point. Left drag
// rotates, right or middle drag pans, the scroll wheel zooms. Handle only
// accumulates motion; Update applies it once per frame.
type TrackballController struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3
	Width    int
	Height   int

	RotateSpeed float32
	PanSpeed    float32
	ZoomSpeed   float32

	rotating, panning bool
	lastX, lastY      float32
	rotate, pan       mgl32.Vec2
	zoom              float32
}

func NewTrackballController(width, height int) *TrackballController {
	return &TrackballController{
		Position:    mgl32.Vec3{0, 0, 1},
		Up:          mgl32.Vec3{0, 1, 0},
		Width:       width,
		Height:      height,
		RotateSpeed: 1,
		PanSpeed:    1,
		ZoomSpeed:   1,
	}
}

// NewTrackballFromBounds frames box: the target is its center and the eye
// sits on +Z at 1.2 times the bounding radius.
func NewTrackballFromBounds(box AABB, width, height int) *TrackballController {
	tc := NewTrackballController(width, height)
	center, radius := box.Sphere()
	tc.Target = center
	tc.Position = center.Add(mgl32.Vec3{0, 0, radius * 1.2})
	return tc
}

// Handle records one input event. It returns true when the event was
// consumed by the controller.
func (tc *TrackballController) Handle(e input.Event) bool {
	switch e.Kind {
	case input.MouseDown:
		if e.Button == input.ButtonLeft {
			tc.rotating = true
		} else {
			tc.panning = true
		}
		tc.lastX, tc.lastY = e.X, e.Y
	case input.MouseUp:
		if e.Button == input.ButtonLeft {
			tc.rotating = false
		} else {
			tc.panning = false
		}
	case input.MouseMove:
		dx, dy := e.X-tc.lastX, e.Y-tc.lastY
		tc.lastX, tc.lastY = e.X, e.Y
		switch {
		case tc.rotating:
			tc.rotate = tc.rotate.Add(mgl32.Vec2{dx, dy})
		case tc.panning:
			tc.pan = tc.pan.Add(mgl32.Vec2{dx, dy})
		default:
			return false
		}
	case input.Scroll:
		if e.DY == 0 {
			return false
		}
		tc.zoom += e.DY
	case input.Resize:
		if e.Width > 0 && e.Height > 0 {
			tc.Width, tc.Height = e.Width, e.Height
		}
		return false
	default:
		return false
	}
	return true
}

// Update applies the motion accumulated since the last call and reports
// whether the camera moved.
func (tc *TrackballController) Update() bool {
	moved := false
	if tc.rotate != (mgl32.Vec2{}) {
		tc.applyRotation()
		moved = true
	}
	if tc.pan != (mgl32.Vec2{}) {
		tc.applyPan()
		moved = true
	}
	if tc.zoom != 0 {
		tc.applyZoom()
		moved = true
	}
	tc.rotate, tc.pan, tc.zoom = mgl32.Vec2{}, mgl32.Vec2{}, 0
	return moved
}

// Apply points cam at the controller's current view.
func (tc *TrackballController) Apply(cam *Camera) {
	cam.LookAt(tc.Position, tc.Target, tc.Up)
}

// applyRotation turns the eye around the target: a drag across the full
// window width is one revolution, across the height half of one.
func (tc *TrackballController) applyRotation() {
	offset := tc.Position.Sub(tc.Target)
	yaw := -tc.rotate[0] / float32(max(tc.Width, 1)) * 2 * math32.Pi * tc.RotateSpeed
	pitch := -tc.rotate[1] / float32(max(tc.Height, 1)) * math32.Pi * tc.RotateSpeed

	offset = mgl32.QuatRotate(yaw, tc.Up.Normalize()).Rotate(offset)
	_, right, _ := tc.basisFor(offset)
	pitched := mgl32.QuatRotate(pitch, right).Rotate(offset)
	if math32.Abs(pitched.Normalize().Dot(tc.Up.Normalize())) < maxPitchCos {
		offset = pitched
	}
	tc.Position = tc.Target.Add(offset)
}

// basisFor returns the view basis of an eye at target+offset.
func (tc *TrackballController) basisFor(offset mgl32.Vec3) (forward, right, up mgl32.Vec3) {
	forward = offset.Mul(-1).Normalize()
	right = forward.Cross(tc.Up).Normalize()
	return forward, right, right.Cross(forward)
}

// applyPan slides eye and target together in the view plane, scaled so the
// scene follows the cursor at the target distance.
func (tc *TrackballController) applyPan() {
	offset := tc.Position.Sub(tc.Target)
	_, right, up := tc.basisFor(offset)
	dist := offset.Len()
	scale := dist / float32(max(tc.Height, 1)) * tc.PanSpeed
	move := right.Mul(-tc.pan[0] * scale).Add(up.Mul(tc.pan[1] * scale))
	tc.Position = tc.Position.Add(move)
	tc.Target = tc.Target.Add(move)
}

// applyZoom scales the eye distance by 0.9 per scroll step, towards the
// target for positive steps.
func (tc *TrackballController) applyZoom() {
	offset := tc.Position.Sub(tc.Target)
	dist := offset.Len() * math32.Pow(0.9, tc.zoom*tc.ZoomSpeed)
	dist = max(dist, minOrbitDistance)
	tc.Position = tc.Target.Add(offset.Normalize().Mul(dist))
}
