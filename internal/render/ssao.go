package render

import (
	"fmt"
	"math/rand"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"deferred-viewer/internal/gfx"
)

const ssaoFrag = `
#version 410 core
in  vec2 fragUV;
out vec4 outAO;

uniform sampler2D positionTex;
uniform sampler2D normalTex;
uniform sampler2D noiseTex;
uniform vec3  kernel[64];
uniform int   kernelSize;
uniform mat4  view;
uniform mat4  projection;
uniform float radius;
uniform float bias;
uniform vec2  noiseScale;

void main() {
    vec4 world = texture(positionTex, fragUV);
    if (world.w == 0.0) { outAO = vec4(1.0); return; }

    vec3 pos = (view * vec4(world.xyz, 1.0)).xyz;
    vec3 N   = normalize(mat3(view) * texture(normalTex, fragUV).xyz);

    vec3 rnd = texture(noiseTex, fragUV * noiseScale).xyz;
    vec3 T   = normalize(rnd - N * dot(rnd, N));
    vec3 B   = cross(N, T);
    mat3 TBN = mat3(T, B, N);

    float occ = 0.0;
    for (int i = 0; i < kernelSize; i++) {
        vec3 s = pos + TBN * kernel[i] * radius;

        vec4 off = projection * vec4(s, 1.0);
        off.xyz /= off.w;
        vec2 suv = clamp(off.xy * 0.5 + 0.5, 0.001, 0.999);

        vec4 geo = texture(positionTex, suv);
        if (geo.w == 0.0) continue;
        float geoZ = (view * vec4(geo.xyz, 1.0)).z;

        float rng = smoothstep(0.0, 1.0, radius / max(abs(pos.z - geoZ), 0.0001));
        occ += (geoZ >= s.z + bias ? 1.0 : 0.0) * rng;
    }

    outAO = vec4(1.0 - occ / float(kernelSize), 0.0, 0.0, 1.0);
}
`

var ssaoProgram = &gfx.Program{
	Varyings: 2,
	Vertex:   fullscreenVertex,
	Fragment: func(u gfx.Uniforms, tex gfx.Sampler, in *gfx.Varyings, out *[gfx.MaxColorAttachments]mgl32.Vec4) {
		uv := in.Vec2(0)
		world := tex.Sample(0, uv)
		if world[3] == 0 {
			out[0] = mgl32.Vec4{1, 1, 1, 1}
			return
		}
		view, proj := u.Mat4("view"), u.Mat4("projection")
		radius, bias := u.Float("radius"), u.Float("bias")

		pos := view.Mul4x1(world.Vec3().Vec4(1)).Vec3()
		n := normalizeSafe(view.Mat3().Mul3x1(tex.Sample(1, uv).Vec3()))

		ns := u.Vec2("noiseScale")
		rnd := tex.Sample(2, mgl32.Vec2{uv[0] * ns[0], uv[1] * ns[1]}).Vec3()
		t := normalizeSafe(rnd.Sub(n.Mul(rnd.Dot(n))))
		b := n.Cross(t)
		tbn := mgl32.Mat3FromCols(t, b, n)

		kernel := u.Vec3s("kernel")
		size := min(u.Int("kernelSize"), len(kernel))
		var occ float32
		for _, k := range kernel[:size] {
			s := pos.Add(tbn.Mul3x1(k).Mul(radius))
			off := proj.Mul4x1(s.Vec4(1))
			suv := mgl32.Vec2{
				mgl32.Clamp(off[0]/off[3]*0.5+0.5, 0.001, 0.999),
				mgl32.Clamp(off[1]/off[3]*0.5+0.5, 0.001, 0.999),
			}
			geo := tex.Sample(0, suv)
			if geo[3] == 0 {
				continue
			}
			geoZ := view.Mul4x1(geo.Vec3().Vec4(1))[2]
			rng := smoothstep(0, 1, radius/max(math32.Abs(pos[2]-geoZ), 0.0001))
			if geoZ >= s[2]+bias {
				occ += rng
			}
		}
		ao := float32(1)
		if size > 0 {
			ao = 1 - occ/float32(size)
		}
		out[0] = mgl32.Vec4{ao, 0, 0, 1}
	},
}

// SSAOOptions tune the occlusion estimate.
type SSAOOptions struct {
	KernelSize int
	Radius     float32
	Bias       float32
}

// SSAOPass estimates ambient occlusion from the G-buffer position and
// normal targets into a single-channel image at G-buffer resolution.
type SSAOPass struct {
	AO     gfx.Image
	Kernel []mgl32.Vec3
	SSAOOptions

	ctx      *gfx.Context
	gbuffer  *GBufferPass
	noise    gfx.Image
	pass     gfx.Pass
	prog     program
	uniforms gfx.Uniforms
}

func NewSSAOPass(ctx *gfx.Context, gbuffer *GBufferPass, opts SSAOOptions) (*SSAOPass, error) {
	p := &SSAOPass{SSAOOptions: opts, ctx: ctx, gbuffer: gbuffer}
	if err := p.init(); err != nil {
		p.Destroy()
		return nil, fmt.Errorf("ssao pass: %w", err)
	}
	return p, nil
}

func (p *SSAOPass) init() error {
	if p.KernelSize <= 0 || p.KernelSize > 64 {
		return fmt.Errorf("%w: kernel size %d", gfx.ErrInvalidDesc, p.KernelSize)
	}
	p.Kernel = ssaoKernel(p.KernelSize)

	var err error
	p.noise, err = p.ctx.MakeImage(gfx.ImageDesc{
		Width: 4, Height: 4, Format: gfx.FormatRGBA32F,
		MinFilter: gfx.FilterNearest, MagFilter: gfx.FilterNearest, Wrap: gfx.WrapRepeat,
		Floats: ssaoNoise(),
		Label:  "ssao-noise",
	})
	if err != nil {
		return err
	}
	p.AO, err = p.ctx.MakeImage(gfx.ImageDesc{
		Width: p.gbuffer.Width, Height: p.gbuffer.Height, Format: gfx.FormatR16F, RenderTarget: true,
		Label: "ssao-ao",
	})
	if err != nil {
		return err
	}
	p.pass, err = p.ctx.MakePass(gfx.PassDesc{Colors: []gfx.Attachment{{Image: p.AO}}, Label: LabelSSAO})
	if err != nil {
		return err
	}
	p.prog, err = newProgram(p.ctx, gfx.ShaderDesc{
		Vertex:   fullscreenVert,
		Fragment: ssaoFrag,
		Images:   []gfx.SamplerSlot{{Name: "positionTex"}, {Name: "normalTex"}, {Name: "noiseTex"}},
		Program:  ssaoProgram,
		Label:    "ssao",
	}, gfx.PipelineDesc{
		ColorFormats: []gfx.PixelFormat{gfx.FormatR16F},
		Label:        "ssao",
	})
	if err != nil {
		return err
	}
	p.uniforms = gfx.Uniforms{
		"kernel":     p.Kernel,
		"kernelSize": int32(p.KernelSize),
		"radius":     p.Radius,
		"bias":       p.Bias,
		"noiseScale": mgl32.Vec2{float32(p.gbuffer.Width) / 4, float32(p.gbuffer.Height) / 4},
	}
	return p.ctx.Validate(p.pass, p.prog.pipeline, p.bindings())
}

func (p *SSAOPass) bindings() *gfx.Bindings {
	return &gfx.Bindings{Images: []gfx.Image{p.gbuffer.Position, p.gbuffer.Normal, p.noise}}
}

// Run computes AO for the camera described by view and projection.
func (p *SSAOPass) Run(view, projection mgl32.Mat4) {
	p.uniforms["view"] = view
	p.uniforms["projection"] = projection
	ctx := p.ctx
	action := gfx.ClearAction(mgl32.Vec4{1, 1, 1, 1})
	ctx.BeginPass(p.pass, &action)
	drawFullscreen(ctx, p.prog.pipeline, p.bindings().Images, p.uniforms)
	ctx.EndPass()
}

func (p *SSAOPass) Destroy() {
	p.prog.destroy(p.ctx)
	p.ctx.DestroyPass(p.pass)
	p.ctx.DestroyImage(p.AO)
	p.ctx.DestroyImage(p.noise)
}

// ssaoKernel returns n hemisphere samples around +Z, clustered towards the
// origin. The seed is fixed so the pattern is stable between runs.
func ssaoKernel(n int) []mgl32.Vec3 {
	rng := rand.New(rand.NewSource(42))
	kernel := make([]mgl32.Vec3, n)
	for i := range kernel {
		v := mgl32.Vec3{
			rng.Float32()*2 - 1,
			rng.Float32()*2 - 1,
			rng.Float32(),
		}
		v = normalizeSafe(v)
		t := float32(i) / float32(n)
		kernel[i] = v.Mul(0.1 + 0.9*t*t)
	}
	return kernel
}

// ssaoNoise returns 4×4 RGBA rotation vectors in the XY plane.
func ssaoNoise() []float32 {
	rng := rand.New(rand.NewSource(123))
	noise := make([]float32, 4*4*4)
	for i := range 16 {
		noise[i*4+0] = rng.Float32()*2 - 1
		noise[i*4+1] = rng.Float32()*2 - 1
	}
	return noise
}
