package render

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"deferred-viewer/internal/gfx"
	"deferred-viewer/scene"
)

const shadowVert = `
#version 410 core
layout(location = 0) in vec3 inPosition;

uniform mat4 lightMVP;

void main() {
    gl_Position = lightMVP * vec4(inPosition, 1.0);
}
`

const shadowFrag = `
#version 410 core
void main() {}
`

var shadowProgram = &gfx.Program{
	Vertex: func(u gfx.Uniforms, in *gfx.VertexInput, _ *gfx.Varyings) mgl32.Vec4 {
		return u.Mat4("lightMVP").Mul4x1(in.Attrs[0])
	},
}

// ShadowPass renders scene depth from the directional light into a square
// depth image.
type ShadowPass struct {
	Depth gfx.Image
	Size  int

	ctx         *gfx.Context
	pass        gfx.Pass
	prog        program
	lightMatrix mgl32.Mat4
}

func NewShadowPass(ctx *gfx.Context, size int) (*ShadowPass, error) {
	p := &ShadowPass{Size: size, ctx: ctx, lightMatrix: mgl32.Ident4()}
	if err := p.init(); err != nil {
		p.Destroy()
		return nil, fmt.Errorf("shadow pass: %w", err)
	}
	return p, nil
}

func (p *ShadowPass) init() error {
	var err error
	p.Depth, err = p.ctx.MakeImage(gfx.ImageDesc{
		Width: p.Size, Height: p.Size, Format: gfx.FormatDepth, RenderTarget: true,
		MinFilter: gfx.FilterNearest, MagFilter: gfx.FilterNearest,
		Label: "shadow-map",
	})
	if err != nil {
		return err
	}
	p.pass, err = p.ctx.MakePass(gfx.PassDesc{Depth: gfx.Attachment{Image: p.Depth}, Label: LabelShadow})
	if err != nil {
		return err
	}
	p.prog, err = newProgram(p.ctx, gfx.ShaderDesc{
		Vertex: shadowVert, Fragment: shadowFrag, Program: shadowProgram, Label: "shadow",
	}, gfx.PipelineDesc{
		Layout:       meshLayout[:1],
		IndexType:    gfx.IndexUint32,
		DepthFormat:  gfx.FormatDepth,
		DepthCompare: gfx.CompareLess,
		DepthWrite:   true,
		Label:        "shadow",
	})
	if err != nil {
		return err
	}
	return p.ctx.Validate(p.pass, p.prog.pipeline, nil)
}

// LightMatrix returns the light view-projection of the last Run.
func (p *ShadowPass) LightMatrix() mgl32.Mat4 { return p.lightMatrix }

func (p *ShadowPass) Run(s *GPUScene, light scene.Light) {
	p.lightMatrix = LightMatrix(s.Bounds, light)
	ctx := p.ctx
	action := gfx.ClearAction(gfx.Black)
	ctx.BeginPass(p.pass, &action)
	ctx.ApplyPipeline(p.prog.pipeline)
	for i := range s.Meshes {
		m := &s.Meshes[i]
		ctx.ApplyBindings(gfx.Bindings{VertexBuffers: []gfx.Buffer{m.Positions}, IndexBuffer: m.Indices})
		ctx.ApplyUniforms(gfx.Uniforms{"lightMVP": p.lightMatrix.Mul4(m.Model)})
		ctx.Draw(0, m.Count, 1)
	}
	ctx.EndPass()
}

func (p *ShadowPass) Destroy() {
	p.prog.destroy(p.ctx)
	p.ctx.DestroyPass(p.pass)
	p.ctx.DestroyImage(p.Depth)
}

// LightMatrix fits an orthographic light frustum around the bounding sphere
// of bounds, looking along the light direction from twice the radius away.
func LightMatrix(bounds scene.AABB, light scene.Light) mgl32.Mat4 {
	center, radius := bounds.Sphere()
	dir := light.Dir()
	up := mgl32.Vec3{0, 1, 0}
	if math32.Abs(dir.Dot(up)) > 0.99 {
		up = mgl32.Vec3{0, 0, 1}
	}
	eye := center.Sub(dir.Mul(2 * radius))
	view := mgl32.LookAtV(eye, center, up)
	proj := mgl32.Ortho(-radius, radius, -radius, radius, 0.5*radius, 3.5*radius)
	return proj.Mul4(view)
}
