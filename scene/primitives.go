package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// All generators wind triangles counter-clockwise seen from outside.

// Plane generates a ground plane in XZ facing +Y, centered on the origin.
func Plane(width, depth float32) Geometry {
	x, z := width/2, depth/2
	return Geometry{
		Positions: []float32{-x, 0, -z, -x, 0, z, x, 0, z, x, 0, -z},
		Normals:   []float32{0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1, 0},
		UVs:       []float32{0, 0, 0, 1, 1, 1, 1, 0},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
	}
}

// cubeFaces lists normal, u and v per face with u × v = normal.
var cubeFaces = [6][3]mgl32.Vec3{
	{{1, 0, 0}, {0, 0, -1}, {0, 1, 0}},
	{{-1, 0, 0}, {0, 0, 1}, {0, 1, 0}},
	{{0, 1, 0}, {1, 0, 0}, {0, 0, -1}},
	{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}},
	{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}},
	{{0, 0, -1}, {-1, 0, 0}, {0, 1, 0}},
}

// Cube generates an axis-aligned cube with the given edge length and flat
// per-face normals.
func Cube(size float32) Geometry {
	h := size / 2
	var g Geometry
	corners := [4]mgl32.Vec2{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for _, f := range cubeFaces {
		n, u, v := f[0], f[1], f[2]
		base := uint32(g.VertexCount())
		for _, c := range corners {
			p := n.Add(u.Mul(c[0])).Add(v.Mul(c[1])).Mul(h)
			g.Positions = append(g.Positions, p[0], p[1], p[2])
			g.Normals = append(g.Normals, n[0], n[1], n[2])
			g.UVs = append(g.UVs, (c[0]+1)/2, (1-c[1])/2)
		}
		g.Indices = append(g.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return g
}

// Sphere generates a UV sphere. Ring 0 is the north pole.
func Sphere(radius float32, segments, rings int) Geometry {
	segments = max(segments, 3)
	rings = max(rings, 2)

	var g Geometry
	for ring := 0; ring <= rings; ring++ {
		phi := float32(ring) * math32.Pi / float32(rings)
		sinPhi, cosPhi := math32.Sincos(phi)
		for seg := 0; seg <= segments; seg++ {
			theta := float32(seg) * 2 * math32.Pi / float32(segments)
			sinTheta, cosTheta := math32.Sincos(theta)
			n := mgl32.Vec3{sinPhi * cosTheta, cosPhi, sinPhi * sinTheta}
			g.Positions = append(g.Positions, n[0]*radius, n[1]*radius, n[2]*radius)
			g.Normals = append(g.Normals, n[0], n[1], n[2])
			g.UVs = append(g.UVs, float32(seg)/float32(segments), float32(ring)/float32(rings))
		}
	}
	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			current := uint32(ring*(segments+1) + seg)
			next := current + uint32(segments+1)
			g.Indices = append(g.Indices, current, current+1, next)
			g.Indices = append(g.Indices, current+1, next+1, next)
		}
	}
	return g
}
