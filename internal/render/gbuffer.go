package render

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"deferred-viewer/internal/gfx"
)

const gbufferVert = `
#version 410 core
layout(location = 0) in vec3 inPosition;
layout(location = 1) in vec3 inNormal;
layout(location = 2) in vec2 inUV;

uniform mat4 camera;
uniform mat4 model;
uniform mat4 normalMatrix;

out vec3 fragPos;
out vec3 fragNormal;
out vec2 fragUV;

void main() {
    vec4 world  = model * vec4(inPosition, 1.0);
    fragPos     = world.xyz;
    fragNormal  = mat3(normalMatrix) * inNormal;
    fragUV      = inUV;
    gl_Position = camera * world;
}
`

const gbufferFrag = `
#version 410 core
in vec3 fragPos;
in vec3 fragNormal;
in vec2 fragUV;

layout(location = 0) out vec4 outPosition;
layout(location = 1) out vec4 outNormal;
layout(location = 2) out vec4 outAlbedo;

uniform sampler2D albedoTex;
uniform vec4      albedoFactor;

void main() {
    outPosition = vec4(fragPos, 1.0);
    outNormal   = vec4(normalize(fragNormal), 1.0);
    outAlbedo   = texture(albedoTex, fragUV) * albedoFactor;
}
`

var gbufferProgram = &gfx.Program{
	Varyings: 8,
	Vertex: func(u gfx.Uniforms, in *gfx.VertexInput, out *gfx.Varyings) mgl32.Vec4 {
		world := u.Mat4("model").Mul4x1(in.Attrs[0])
		out.SetVec3(0, world.Vec3())
		out.SetVec3(3, u.Mat4("normalMatrix").Mat3().Mul3x1(in.Attrs[1].Vec3()))
		out.SetVec2(6, in.Attrs[2].Vec2())
		return u.Mat4("camera").Mul4x1(world)
	},
	Fragment: func(u gfx.Uniforms, tex gfx.Sampler, in *gfx.Varyings, out *[gfx.MaxColorAttachments]mgl32.Vec4) {
		out[0] = in.Vec3(0).Vec4(1)
		out[1] = normalizeSafe(in.Vec3(3)).Vec4(1)
		out[2] = mulVec4(tex.Sample(0, in.Vec2(6)), u.Vec4("albedoFactor"))
	},
}

// GBufferPass rasterizes the scene into world-space position, normal and
// albedo targets plus depth. Background texels keep position w = 0.
type GBufferPass struct {
	Position gfx.Image
	Normal   gfx.Image
	Albedo   gfx.Image
	Depth    gfx.Image
	Width    int
	Height   int

	ctx  *gfx.Context
	pass gfx.Pass
	prog program
}

var gbufferFormats = []gfx.PixelFormat{gfx.FormatRGBA32F, gfx.FormatRGBA16F, gfx.FormatRGBA8}

func NewGBufferPass(ctx *gfx.Context, width, height int) (*GBufferPass, error) {
	p := &GBufferPass{Width: width, Height: height, ctx: ctx}
	if err := p.init(); err != nil {
		p.Destroy()
		return nil, fmt.Errorf("gbuffer pass: %w", err)
	}
	return p, nil
}

func (p *GBufferPass) init() error {
	targets := []*gfx.Image{&p.Position, &p.Normal, &p.Albedo}
	labels := []string{"gbuffer-position", "gbuffer-normal", "gbuffer-albedo"}
	colors := make([]gfx.Attachment, len(targets))
	for i, dst := range targets {
		img, err := p.ctx.MakeImage(gfx.ImageDesc{
			Width: p.Width, Height: p.Height, Format: gbufferFormats[i], RenderTarget: true,
			MinFilter: gfx.FilterNearest, MagFilter: gfx.FilterNearest,
			Label: labels[i],
		})
		if err != nil {
			return err
		}
		*dst = img
		colors[i] = gfx.Attachment{Image: img}
	}
	var err error
	p.Depth, err = p.ctx.MakeImage(gfx.ImageDesc{
		Width: p.Width, Height: p.Height, Format: gfx.FormatDepth, RenderTarget: true,
		MinFilter: gfx.FilterNearest, MagFilter: gfx.FilterNearest,
		Label: "gbuffer-depth",
	})
	if err != nil {
		return err
	}
	p.pass, err = p.ctx.MakePass(gfx.PassDesc{Colors: colors, Depth: gfx.Attachment{Image: p.Depth}, Label: LabelGBuffer})
	if err != nil {
		return err
	}
	p.prog, err = newProgram(p.ctx, gfx.ShaderDesc{
		Vertex:   gbufferVert,
		Fragment: gbufferFrag,
		Images:   []gfx.SamplerSlot{{Name: "albedoTex"}},
		Program:  gbufferProgram,
		Label:    "gbuffer",
	}, gfx.PipelineDesc{
		Layout:       meshLayout,
		IndexType:    gfx.IndexUint32,
		ColorFormats: gbufferFormats,
		DepthFormat:  gfx.FormatDepth,
		DepthCompare: gfx.CompareLess,
		DepthWrite:   true,
		Label:        "gbuffer",
	})
	if err != nil {
		return err
	}
	return p.ctx.Validate(p.pass, p.prog.pipeline, nil)
}

// Run draws every mesh with cameraMatrix = projection * view.
func (p *GBufferPass) Run(s *GPUScene, cameraMatrix mgl32.Mat4) {
	ctx := p.ctx
	action := gfx.ClearAction(mgl32.Vec4{})
	ctx.BeginPass(p.pass, &action)
	ctx.ApplyPipeline(p.prog.pipeline)
	for i := range s.Meshes {
		m := &s.Meshes[i]
		ctx.ApplyBindings(m.bindings())
		ctx.ApplyUniforms(gfx.Uniforms{
			"camera":       cameraMatrix,
			"model":        m.Model,
			"normalMatrix": m.Normal,
			"albedoFactor": m.BaseColor,
		})
		ctx.Draw(0, m.Count, 1)
	}
	ctx.EndPass()
}

func (p *GBufferPass) Destroy() {
	p.prog.destroy(p.ctx)
	p.ctx.DestroyPass(p.pass)
	for _, img := range []gfx.Image{p.Position, p.Normal, p.Albedo, p.Depth} {
		p.ctx.DestroyImage(img)
	}
}
