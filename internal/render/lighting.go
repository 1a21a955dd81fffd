package render

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"deferred-viewer/internal/gfx"
	"deferred-viewer/scene"
)

const lightingFrag = `
#version 410 core
in  vec2 fragUV;
out vec4 outColor;

uniform sampler2D positionTex;
uniform sampler2D normalTex;
uniform sampler2D albedoTex;
uniform sampler2D aoTex;
uniform sampler2D shadowMap;

uniform vec3  viewPos;
uniform vec3  lightDir;
uniform vec3  lightColor;
uniform float lightIntensity;
uniform float ambient;
uniform mat4  lightMatrix;
uniform vec2  shadowTexel;

float visibility(vec3 world, float NdotL) {
    vec4 lp = lightMatrix * vec4(world, 1.0);
    vec3 p  = lp.xyz / lp.w * 0.5 + 0.5;
    if (p.z > 1.0) return 1.0;

    float bias = max(0.005 * (1.0 - NdotL), 0.0005);
    float lit  = 0.0;
    for (int x = -1; x <= 1; x++) {
        for (int y = -1; y <= 1; y++) {
            float d = texture(shadowMap, p.xy + vec2(x, y) * shadowTexel).r;
            lit += p.z - bias > d ? 0.0 : 1.0;
        }
    }
    return lit / 9.0;
}

void main() {
    vec4 world = texture(positionTex, fragUV);
    if (world.w == 0.0) { outColor = vec4(0.0); return; }

    vec3  albedo = texture(albedoTex, fragUV).rgb;
    vec3  N      = normalize(texture(normalTex, fragUV).xyz);
    vec3  L      = -lightDir;
    vec3  V      = normalize(viewPos - world.xyz);
    vec3  H      = normalize(L + V);
    float NdotL  = max(dot(N, L), 0.0);
    float ao     = texture(aoTex, fragUV).r;
    float vis    = visibility(world.xyz, NdotL);
    vec3  radiance = lightColor * lightIntensity;

    vec3 color = albedo * ambient * ao;
    color += albedo * radiance * NdotL * vis;
    if (NdotL > 0.0) {
        color += radiance * 0.25 * pow(max(dot(N, H), 0.0), 32.0) * vis;
    }
    outColor = vec4(color, 1.0);
}
`

// Sampler slots of the lighting shader.
const (
	lightingPosition = iota
	lightingNormal
	lightingAlbedo
	lightingAO
	lightingShadow
)

var lightingProgram = &gfx.Program{
	Varyings: 2,
	Vertex:   fullscreenVertex,
	Fragment: func(u gfx.Uniforms, tex gfx.Sampler, in *gfx.Varyings, out *[gfx.MaxColorAttachments]mgl32.Vec4) {
		uv := in.Vec2(0)
		world := tex.Sample(lightingPosition, uv)
		if world[3] == 0 {
			out[0] = mgl32.Vec4{}
			return
		}
		pos := world.Vec3()
		albedo := tex.Sample(lightingAlbedo, uv).Vec3()
		n := normalizeSafe(tex.Sample(lightingNormal, uv).Vec3())
		l := u.Vec3("lightDir").Mul(-1)
		v := normalizeSafe(u.Vec3("viewPos").Sub(pos))
		h := normalizeSafe(l.Add(v))
		ndotl := max(n.Dot(l), 0)
		ao := tex.Sample(lightingAO, uv)[0]
		vis := shadowVisibility(u, tex, pos, ndotl)
		radiance := u.Vec3("lightColor").Mul(u.Float("lightIntensity"))

		color := albedo.Mul(u.Float("ambient") * ao)
		color = color.Add(mulVec3(albedo, radiance).Mul(ndotl * vis))
		if ndotl > 0 {
			specular := 0.25 * math32.Pow(max(n.Dot(h), 0), 32) * vis
			color = color.Add(radiance.Mul(specular))
		}
		out[0] = color.Vec4(1)
	},
}

// shadowVisibility is 3×3 percentage-closer filtering of the shadow map.
func shadowVisibility(u gfx.Uniforms, tex gfx.Sampler, world mgl32.Vec3, ndotl float32) float32 {
	lp := u.Mat4("lightMatrix").Mul4x1(world.Vec4(1))
	p := lp.Vec3().Mul(1 / lp[3]).Mul(0.5).Add(mgl32.Vec3{0.5, 0.5, 0.5})
	if p[2] > 1 {
		return 1
	}
	bias := max(0.005*(1-ndotl), 0.0005)
	texel := u.Vec2("shadowTexel")
	var lit float32
	for x := -1; x <= 1; x++ {
		for y := -1; y <= 1; y++ {
			uv := mgl32.Vec2{p[0] + float32(x)*texel[0], p[1] + float32(y)*texel[1]}
			if p[2]-bias <= tex.Sample(lightingShadow, uv)[0] {
				lit++
			}
		}
	}
	return lit / 9
}

// LightingPass resolves the G-buffer into linear HDR color. It samples a
// real AO image while SSAO is enabled and a 1×1 white stand-in otherwise.
type LightingPass struct {
	Result  gfx.Image
	Ambient float32

	ctx      *gfx.Context
	gbuffer  *GBufferPass
	shadow   *ShadowPass
	fakeAO   gfx.Image
	ao       gfx.Image
	enabled  bool
	pass     gfx.Pass
	prog     program
	uniforms gfx.Uniforms
}

func NewLightingPass(ctx *gfx.Context, gbuffer *GBufferPass, shadow *ShadowPass, ambient float32) (*LightingPass, error) {
	p := &LightingPass{Ambient: ambient, ctx: ctx, gbuffer: gbuffer, shadow: shadow}
	if err := p.init(); err != nil {
		p.Destroy()
		return nil, fmt.Errorf("lighting pass: %w", err)
	}
	return p, nil
}

func (p *LightingPass) init() error {
	var err error
	p.fakeAO, err = p.ctx.MakeImage(gfx.ImageDesc{
		Width: 1, Height: 1, Format: gfx.FormatR16F,
		MinFilter: gfx.FilterNearest, MagFilter: gfx.FilterNearest,
		Floats: []float32{1},
		Label:  "fake-ao",
	})
	if err != nil {
		return err
	}
	p.Result, err = p.ctx.MakeImage(gfx.ImageDesc{
		Width: p.gbuffer.Width, Height: p.gbuffer.Height, Format: gfx.FormatRGBA32F, RenderTarget: true,
		Label: "lighting-result",
	})
	if err != nil {
		return err
	}
	p.pass, err = p.ctx.MakePass(gfx.PassDesc{Colors: []gfx.Attachment{{Image: p.Result}}, Label: LabelLighting})
	if err != nil {
		return err
	}
	p.prog, err = newProgram(p.ctx, gfx.ShaderDesc{
		Vertex:   fullscreenVert,
		Fragment: lightingFrag,
		Images: []gfx.SamplerSlot{
			lightingPosition: {Name: "positionTex"},
			lightingNormal:   {Name: "normalTex"},
			lightingAlbedo:   {Name: "albedoTex"},
			lightingAO:       {Name: "aoTex"},
			lightingShadow:   {Name: "shadowMap", Depth: true},
		},
		Program: lightingProgram,
		Label:   "lighting",
	}, gfx.PipelineDesc{
		ColorFormats: []gfx.PixelFormat{gfx.FormatRGBA32F},
		Label:        "lighting",
	})
	if err != nil {
		return err
	}
	size := float32(p.shadow.Size)
	p.uniforms = gfx.Uniforms{"shadowTexel": mgl32.Vec2{1 / size, 1 / size}}
	return p.ctx.Validate(p.pass, p.prog.pipeline, p.bindings())
}

// EnableSSAO makes subsequent frames sample ao. The image must be a live
// single-channel image of G-buffer size.
func (p *LightingPass) EnableSSAO(ao gfx.Image) error {
	if p.ctx.InPass() {
		return fmt.Errorf("enable ssao: %w", gfx.ErrInsidePass)
	}
	info, ok := p.ctx.ImageInfo(ao)
	if !ok {
		return fmt.Errorf("enable ssao: %w", gfx.ErrInvalidHandle)
	}
	if info.Type != gfx.Image2D || info.Format.Channels() != 1 || info.Format.IsDepth() {
		return fmt.Errorf("enable ssao: %w: %q is a %s %s image", gfx.ErrImageType, info.Label, info.Format, info.Type)
	}
	if info.Width != p.gbuffer.Width || info.Height != p.gbuffer.Height {
		return fmt.Errorf("enable ssao: %w: %dx%d, want %dx%d", gfx.ErrAttachmentSize,
			info.Width, info.Height, p.gbuffer.Width, p.gbuffer.Height)
	}
	p.ao, p.enabled = ao, true
	return nil
}

// DisableSSAO switches back to the white stand-in.
func (p *LightingPass) DisableSSAO() error {
	if p.ctx.InPass() {
		return fmt.Errorf("disable ssao: %w", gfx.ErrInsidePass)
	}
	p.ao, p.enabled = gfx.Image{}, false
	return nil
}

func (p *LightingPass) SSAOEnabled() bool { return p.enabled }

// AOImage returns the image the next frame samples for occlusion.
func (p *LightingPass) AOImage() gfx.Image {
	if p.enabled {
		return p.ao
	}
	return p.fakeAO
}

func (p *LightingPass) bindings() *gfx.Bindings {
	images := make([]gfx.Image, 5)
	images[lightingPosition] = p.gbuffer.Position
	images[lightingNormal] = p.gbuffer.Normal
	images[lightingAlbedo] = p.gbuffer.Albedo
	images[lightingAO] = p.AOImage()
	images[lightingShadow] = p.shadow.Depth
	return &gfx.Bindings{Images: images}
}

// Run shades every covered pixel as seen from viewPos.
func (p *LightingPass) Run(viewPos mgl32.Vec3, light scene.Light) {
	p.uniforms["viewPos"] = viewPos
	p.uniforms["lightDir"] = light.Dir()
	p.uniforms["lightColor"] = light.Color
	p.uniforms["lightIntensity"] = light.Intensity
	p.uniforms["ambient"] = p.Ambient
	p.uniforms["lightMatrix"] = p.shadow.LightMatrix()

	ctx := p.ctx
	action := gfx.ClearAction(mgl32.Vec4{})
	ctx.BeginPass(p.pass, &action)
	drawFullscreen(ctx, p.prog.pipeline, p.bindings().Images, p.uniforms)
	ctx.EndPass()
}

func (p *LightingPass) Destroy() {
	p.prog.destroy(p.ctx)
	p.ctx.DestroyPass(p.pass)
	p.ctx.DestroyImage(p.Result)
	p.ctx.DestroyImage(p.fakeAO)
}
