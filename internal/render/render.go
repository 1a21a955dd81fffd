// Package render implements the deferred shading passes of the viewer and
// the frame driver that sequences them. Every shader is written twice: as
// GLSL 4.10 core for GPU backends and as a gfx.Program for the software
// backend, and both renditions compute the same thing.
package render

import (
	"github.com/go-gl/mathgl/mgl32"

	"deferred-viewer/internal/gfx"
)

// Pass labels, as reported by Pipeline.Order.
const (
	LabelShadow      = "shadow"
	LabelGBuffer     = "gbuffer"
	LabelSSAO        = "ssao"
	LabelLighting    = "lighting"
	LabelSkybox      = "skybox"
	LabelPostProcess = "postprocess"
	LabelBake        = "bake"
)

// program pairs a shader with the one pipeline that uses it.
type program struct {
	shader   gfx.Shader
	pipeline gfx.Pipeline
}

func newProgram(ctx *gfx.Context, sd gfx.ShaderDesc, pd gfx.PipelineDesc) (program, error) {
	sh, err := ctx.MakeShader(sd)
	if err != nil {
		return program{}, err
	}
	pd.Shader = sh
	pip, err := ctx.MakePipeline(pd)
	if err != nil {
		ctx.DestroyShader(sh)
		return program{}, err
	}
	return program{shader: sh, pipeline: pip}, nil
}

func (p program) destroy(ctx *gfx.Context) {
	ctx.DestroyPipeline(p.pipeline)
	ctx.DestroyShader(p.shader)
}

// fullscreenVert draws one oversized triangle from gl_VertexID.
const fullscreenVert = `
#version 410 core
out vec2 fragUV;
void main() {
    const vec2 pos[3] = vec2[3](
        vec2(-1.0, -1.0),
        vec2( 3.0, -1.0),
        vec2(-1.0,  3.0)
    );
    gl_Position = vec4(pos[gl_VertexID], 0.0, 1.0);
    fragUV      = pos[gl_VertexID] * 0.5 + 0.5;
}
`

var fullscreenPositions = [3]mgl32.Vec2{{-1, -1}, {3, -1}, {-1, 3}}

// fullscreenVertex writes the UV to varyings 0 and 1.
func fullscreenVertex(_ gfx.Uniforms, in *gfx.VertexInput, out *gfx.Varyings) mgl32.Vec4 {
	p := fullscreenPositions[in.VertexID%3]
	out.SetVec2(0, p.Mul(0.5).Add(mgl32.Vec2{0.5, 0.5}))
	return mgl32.Vec4{p[0], p[1], 0, 1}
}

// drawFullscreen issues the three-vertex draw of fullscreenVert.
func drawFullscreen(ctx *gfx.Context, pip gfx.Pipeline, images []gfx.Image, u gfx.Uniforms) {
	ctx.ApplyPipeline(pip)
	ctx.ApplyBindings(gfx.Bindings{Images: images})
	ctx.ApplyUniforms(u)
	ctx.Draw(0, 3, 1)
}

func mulVec4(a, b mgl32.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{a[0] * b[0], a[1] * b[1], a[2] * b[2], a[3] * b[3]}
}

func mulVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func smoothstep(edge0, edge1, x float32) float32 {
	t := mgl32.Clamp((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}

func normalizeSafe(v mgl32.Vec3) mgl32.Vec3 {
	if l := v.Len(); l > 0 {
		return v.Mul(1 / l)
	}
	return v
}
