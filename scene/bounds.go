package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned bounding box. The zero value is empty.
type AABB struct {
	Min, Max mgl32.Vec3
	Valid    bool
}

// Extend grows the box to contain p.
func (box AABB) Extend(p mgl32.Vec3) AABB {
	if !box.Valid {
		return AABB{Min: p, Max: p, Valid: true}
	}
	for i := range 3 {
		box.Min[i] = min(box.Min[i], p[i])
		box.Max[i] = max(box.Max[i], p[i])
	}
	return box
}

func (box AABB) Union(other AABB) AABB {
	if !other.Valid {
		return box
	}
	return box.Extend(other.Min).Extend(other.Max)
}

func (box AABB) Center() mgl32.Vec3 {
	return box.Min.Add(box.Max).Mul(0.5)
}

// Radius is the radius of the sphere through the box corners.
func (box AABB) Radius() float32 {
	return box.Max.Sub(box.Min).Len() * 0.5
}

// Sphere returns the bounding sphere, or the unit sphere at the origin for
// an empty or degenerate box.
func (box AABB) Sphere() (mgl32.Vec3, float32) {
	if !box.Valid || box.Radius() < 1e-6 {
		return mgl32.Vec3{}, 1
	}
	return box.Center(), box.Radius()
}

// localAABB returns the tight box of packed xyz positions.
func localAABB(positions []float32) AABB {
	var box AABB
	for i := 0; i+2 < len(positions); i += 3 {
		box = box.Extend(mgl32.Vec3{positions[i], positions[i+1], positions[i+2]})
	}
	return box
}

// transformAABB transforms a local box by m by testing all 8 corners.
func transformAABB(local AABB, m mgl32.Mat4) AABB {
	if !local.Valid {
		return local
	}
	mn, mx := local.Min, local.Max
	corners := [8]mgl32.Vec3{
		{mn[0], mn[1], mn[2]},
		{mx[0], mn[1], mn[2]},
		{mn[0], mx[1], mn[2]},
		{mx[0], mx[1], mn[2]},
		{mn[0], mn[1], mx[2]},
		{mx[0], mn[1], mx[2]},
		{mn[0], mx[1], mx[2]},
		{mx[0], mx[1], mx[2]},
	}
	var out AABB
	for _, c := range corners {
		out = out.Extend(mgl32.TransformCoordinate(c, m))
	}
	return out
}
