package softgpu

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"deferred-viewer/internal/gfx"
)

type clipVertex struct {
	pos  mgl32.Vec4
	vary gfx.Varyings
}

type screenVertex struct {
	x, y, z float32
	invW    float32
	vary    gfx.Varyings
}

const wEpsilon = 1e-6

// Clip planes as signed distances; a vertex is inside when the distance is
// not negative.
var clipPlanes = [...]func(p mgl32.Vec4) float32{
	func(p mgl32.Vec4) float32 { return p[3] - wEpsilon },
	func(p mgl32.Vec4) float32 { return p[2] + p[3] },
	func(p mgl32.Vec4) float32 { return p[3] - p[2] },
}

func lerpVertex(a, b *clipVertex, t float32, n int) clipVertex {
	var v clipVertex
	v.pos = a.pos.Add(b.pos.Sub(a.pos).Mul(t))
	for i := range n {
		v.vary[i] = a.vary[i] + (b.vary[i]-a.vary[i])*t
	}
	return v
}

// clip runs Sutherland-Hodgman against the w, near and far planes. The
// remaining planes are handled by the scissor of the rasterizer.
func clip(tri *[3]clipVertex, n int) []clipVertex {
	poly := []clipVertex{tri[0], tri[1], tri[2]}
	for _, plane := range clipPlanes {
		inside := true
		for i := range poly {
			if plane(poly[i].pos) < 0 {
				inside = false
				break
			}
		}
		if inside {
			continue
		}
		out := make([]clipVertex, 0, len(poly)+1)
		for i := range poly {
			a, b := &poly[i], &poly[(i+1)%len(poly)]
			da, db := plane(a.pos), plane(b.pos)
			if da >= 0 {
				out = append(out, *a)
			}
			if (da >= 0) != (db >= 0) {
				out = append(out, lerpVertex(a, b, da/(da-db), n))
			}
		}
		poly = out
		if len(poly) < 3 {
			return nil
		}
	}
	return poly
}

func (d *Device) drawTriangle(tri *[3]clipVertex) {
	n := d.program.Varyings
	poly := clip(tri, n)
	if len(poly) < 3 {
		return
	}
	w, h := float32(d.target.width), float32(d.target.height)
	verts := make([]screenVertex, len(poly))
	for i := range poly {
		p := poly[i].pos
		inv := 1 / p[3]
		sv := &verts[i]
		sv.x = (p[0]*inv + 1) * 0.5 * w
		sv.y = (p[1]*inv + 1) * 0.5 * h
		sv.z = p[2]*inv*0.5 + 0.5
		sv.invW = inv
		for k := range n {
			sv.vary[k] = poly[i].vary[k] * inv
		}
	}
	for i := 1; i+1 < len(verts); i++ {
		d.fillTriangle(&verts[0], &verts[i], &verts[i+1])
	}
}

// edge is the signed area of (a, b, p). The endpoints are visited in a
// fixed order so triangles sharing an edge get exactly opposite values and
// leave no cracks along it.
func edge(a, b *screenVertex, px, py float32) float32 {
	if b.y < a.y || (b.y == a.y && b.x < a.x) {
		return -((a.x-b.x)*(py-b.y) - (a.y-b.y)*(px-b.x))
	}
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

func (d *Device) fillTriangle(v0, v1, v2 *screenVertex) {
	area := edge(v0, v1, v2.x, v2.y)
	if area == 0 {
		return
	}
	// Counter-clockwise in window space is front facing.
	switch d.pipeline.Cull {
	case gfx.CullBack:
		if area < 0 {
			return
		}
	case gfx.CullFront:
		if area > 0 {
			return
		}
	}
	t := &d.target
	minX := max(int(math32.Floor(min(v0.x, v1.x, v2.x))), 0)
	maxX := min(int(math32.Ceil(max(v0.x, v1.x, v2.x))), t.width-1)
	minY := max(int(math32.Floor(min(v0.y, v1.y, v2.y))), 0)
	maxY := min(int(math32.Ceil(max(v0.y, v1.y, v2.y))), t.height-1)

	n := d.program.Varyings
	testDepth := d.pipeline.DepthFormat != gfx.FormatNone && t.depth != nil
	var vary gfx.Varyings
	var out [gfx.MaxColorAttachments]mgl32.Vec4
	for y := minY; y <= maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5
			b0 := edge(v1, v2, px, py) / area
			b1 := edge(v2, v0, px, py) / area
			b2 := edge(v0, v1, px, py) / area
			if b0 < 0 || b1 < 0 || b2 < 0 {
				continue
			}
			z := mgl32.Clamp(b0*v0.z+b1*v1.z+b2*v2.z, 0, 1)
			di := y*t.width + x
			if testDepth && !d.pipeline.DepthCompare.Test(z, t.depth.data[di]) {
				continue
			}
			if testDepth && d.pipeline.DepthWrite {
				t.depth.data[di] = z
			}
			if d.program.Fragment == nil || len(t.colors) == 0 {
				continue
			}
			invW := b0*v0.invW + b1*v1.invW + b2*v2.invW
			for k := range n {
				vary[k] = (b0*v0.vary[k] + b1*v1.vary[k] + b2*v2.vary[k]) / invW
			}
			out = [gfx.MaxColorAttachments]mgl32.Vec4{}
			d.program.Fragment(d.uniforms, d.textures, &vary, &out)
			for i, s := range t.colors {
				s.store(x, y, out[i], t.formats[i])
			}
			d.fragments++
		}
	}
}
