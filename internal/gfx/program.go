package gfx

import (
	"github.com/go-gl/mathgl/mgl32"
)

// MaxVaryings is the number of interpolated floats a reference program may
// pass from its vertex to its fragment stage.
const MaxVaryings = 16

// Varyings carries per-vertex outputs that are interpolated across a
// triangle before reaching the fragment stage.
type Varyings [MaxVaryings]float32

func (v *Varyings) SetVec2(at int, x mgl32.Vec2) { copy(v[at:at+2], x[:]) }
func (v *Varyings) SetVec3(at int, x mgl32.Vec3) { copy(v[at:at+3], x[:]) }

func (v *Varyings) Vec2(at int) mgl32.Vec2 { return mgl32.Vec2{v[at], v[at+1]} }
func (v *Varyings) Vec3(at int) mgl32.Vec3 { return mgl32.Vec3{v[at], v[at+1], v[at+2]} }

// VertexInput is what the vertex stage of a reference program sees. Missing
// attribute components read as (0, 0, 0, 1).
type VertexInput struct {
	Attrs    [MaxVertexAttrs]mgl32.Vec4
	VertexID int
}

// Sampler gives the fragment stage access to the images bound to a draw.
type Sampler interface {
	Sample(slot int, uv mgl32.Vec2) mgl32.Vec4
	SampleCube(slot int, dir mgl32.Vec3) mgl32.Vec4
}

// Program is the CPU rendition of a shader. Vertex returns the clip-space
// position; Fragment fills one color per attachment and may be nil for
// depth-only pipelines.
type Program struct {
	Varyings int
	Vertex   func(u Uniforms, in *VertexInput, out *Varyings) mgl32.Vec4
	Fragment func(u Uniforms, tex Sampler, in *Varyings, out *[MaxColorAttachments]mgl32.Vec4)
}
