package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"deferred-viewer/textures"
)

// MaterialKind is the closed set of surface models the renderer knows.
type MaterialKind int

const (
	// MaterialAlbedo is an unlit base color, optionally textured.
	MaterialAlbedo MaterialKind = iota
)

func (k MaterialKind) String() string {
	if k == MaterialAlbedo {
		return "albedo"
	}
	return fmt.Sprintf("MaterialKind(%d)", int(k))
}

// Material describes how a mesh is shaded. Texture may be nil, in which case
// the base color alone is used.
type Material struct {
	Kind      MaterialKind
	BaseColor mgl32.Vec4
	Texture   *textures.Texture
}

func DefaultMaterial() Material {
	return Material{Kind: MaterialAlbedo, BaseColor: mgl32.Vec4{1, 1, 1, 1}}
}

// Geometry is de-interleaved triangle list data. Positions and Normals hold
// three floats per vertex, UVs two.
type Geometry struct {
	Positions []float32
	Normals   []float32
	UVs       []float32
	Indices   []uint32
}

func (g *Geometry) VertexCount() int { return len(g.Positions) / 3 }

// Validate checks attribute lengths and index ranges.
func (g *Geometry) Validate() error {
	n := g.VertexCount()
	switch {
	case n == 0 || len(g.Positions)%3 != 0:
		return fmt.Errorf("geometry: %d position floats", len(g.Positions))
	case len(g.Normals) != n*3:
		return fmt.Errorf("geometry: %d normal floats for %d vertices", len(g.Normals), n)
	case len(g.UVs) != n*2:
		return fmt.Errorf("geometry: %d uv floats for %d vertices", len(g.UVs), n)
	case len(g.Indices) == 0 || len(g.Indices)%3 != 0:
		return fmt.Errorf("geometry: %d indices do not form triangles", len(g.Indices))
	}
	for _, i := range g.Indices {
		if int(i) >= n {
			return fmt.Errorf("geometry: index %d out of %d vertices", i, n)
		}
	}
	return nil
}

// Mesh is one drawable: geometry, its material and a world transform.
type Mesh struct {
	Name      string
	Geometry  Geometry
	Material  Material
	Transform mgl32.Mat4
}

// Model is the flattened scene a renderer consumes.
type Model struct {
	Name   string
	Meshes []Mesh
	Bounds AABB
}

// AddMesh validates m and grows the model bounds by its world-space extent.
func (mdl *Model) AddMesh(m Mesh) error {
	if err := m.Geometry.Validate(); err != nil {
		return fmt.Errorf("mesh %q: %w", m.Name, err)
	}
	if m.Transform == (mgl32.Mat4{}) {
		m.Transform = mgl32.Ident4()
	}
	mdl.Meshes = append(mdl.Meshes, m)
	mdl.Bounds = mdl.Bounds.Union(transformAABB(localAABB(m.Geometry.Positions), m.Transform))
	return nil
}
