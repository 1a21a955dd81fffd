package render

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"deferred-viewer/internal/gfx"
)

// postFrag is exposure tone mapping followed by gamma 2.2.
const postFrag = `
#version 410 core
in  vec2 fragUV;
out vec4 outColor;

uniform sampler2D hdrTex;
uniform float     exposure;

void main() {
    vec3 hdr    = texture(hdrTex, fragUV).rgb;
    vec3 mapped = vec3(1.0) - exp(-hdr * exposure);
    outColor    = vec4(pow(mapped, vec3(1.0 / 2.2)), 1.0);
}
`

// ToneMap applies the post-process curve to one linear channel.
func ToneMap(c, exposure float32) float32 {
	return math32.Pow(1-math32.Exp(-c*exposure), 1/2.2)
}

var postProgram = &gfx.Program{
	Varyings: 2,
	Vertex:   fullscreenVertex,
	Fragment: func(u gfx.Uniforms, tex gfx.Sampler, in *gfx.Varyings, out *[gfx.MaxColorAttachments]mgl32.Vec4) {
		hdr := tex.Sample(0, in.Vec2(0))
		e := u.Float("exposure")
		out[0] = mgl32.Vec4{ToneMap(hdr[0], e), ToneMap(hdr[1], e), ToneMap(hdr[2], e), 1}
	},
}

// PostProcessPass resolves the HDR lighting result into the default
// framebuffer.
type PostProcessPass struct {
	Exposure float32

	ctx      *gfx.Context
	source   gfx.Image
	prog     program
	uniforms gfx.Uniforms
}

func NewPostProcessPass(ctx *gfx.Context, source gfx.Image, exposure float32) (*PostProcessPass, error) {
	p := &PostProcessPass{Exposure: exposure, ctx: ctx, source: source, uniforms: gfx.Uniforms{}}
	var err error
	p.prog, err = newProgram(ctx, gfx.ShaderDesc{
		Vertex:   fullscreenVert,
		Fragment: postFrag,
		Images:   []gfx.SamplerSlot{{Name: "hdrTex"}},
		Program:  postProgram,
		Label:    "postprocess",
	}, gfx.PipelineDesc{
		ColorFormats: []gfx.PixelFormat{gfx.DefaultPassFormat},
		Label:        "postprocess",
	})
	if err == nil {
		err = ctx.Validate(gfx.Pass{}, p.prog.pipeline, &gfx.Bindings{Images: []gfx.Image{source}})
	}
	if err != nil {
		p.Destroy()
		return nil, fmt.Errorf("postprocess pass: %w", err)
	}
	return p, nil
}

// Run draws into the default framebuffer of the given size.
func (p *PostProcessPass) Run(width, height int) {
	p.uniforms["exposure"] = p.Exposure
	ctx := p.ctx
	action := gfx.ClearAction(gfx.Black)
	action.Depth.Action = gfx.ActionDontCare
	ctx.BeginDefaultPass(&action, width, height)
	drawFullscreen(ctx, p.prog.pipeline, []gfx.Image{p.source}, p.uniforms)
	ctx.EndPass()
}

func (p *PostProcessPass) Destroy() {
	p.prog.destroy(p.ctx)
}
