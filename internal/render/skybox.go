package render

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"deferred-viewer/internal/gfx"
	"deferred-viewer/internal/logging"
	"deferred-viewer/scene"
	"deferred-viewer/textures"
)

const bakeVert = `
#version 410 core
layout(location = 0) in vec3 inPosition;

uniform mat4 projection;
uniform mat4 view;

out vec3 localPos;

void main() {
    localPos    = inPosition;
    gl_Position = projection * view * vec4(inPosition, 1.0);
}
`

const bakeFrag = `
#version 410 core
in  vec3 localPos;
out vec4 outColor;

uniform sampler2D panorama;

const vec2 invAtan = vec2(0.1591, 0.3183);

vec2 sphericalUV(vec3 v) {
    vec2 uv = vec2(atan(v.z, v.x), asin(v.y));
    return uv * invAtan + 0.5;
}

void main() {
    outColor = vec4(texture(panorama, sphericalUV(normalize(localPos))).rgb, 1.0);
}
`

// sphericalUV maps a unit direction to equirectangular coordinates.
func sphericalUV(v mgl32.Vec3) mgl32.Vec2 {
	return mgl32.Vec2{
		math32.Atan2(v[2], v[0])*0.1591 + 0.5,
		math32.Asin(mgl32.Clamp(v[1], -1, 1))*0.3183 + 0.5,
	}
}

var bakeProgram = &gfx.Program{
	Varyings: 3,
	Vertex: func(u gfx.Uniforms, in *gfx.VertexInput, out *gfx.Varyings) mgl32.Vec4 {
		out.SetVec3(0, in.Attrs[0].Vec3())
		return u.Mat4("projection").Mul4(u.Mat4("view")).Mul4x1(in.Attrs[0])
	},
	Fragment: func(_ gfx.Uniforms, tex gfx.Sampler, in *gfx.Varyings, out *[gfx.MaxColorAttachments]mgl32.Vec4) {
		out[0] = tex.Sample(0, sphericalUV(normalizeSafe(in.Vec3(0)))).Vec3().Vec4(1)
	},
}

// cubeViews holds the look target and up vector of each cube face, in face
// order.
var cubeViews = [gfx.CubeFaces][2]mgl32.Vec3{
	{{1, 0, 0}, {0, -1, 0}},
	{{-1, 0, 0}, {0, -1, 0}},
	{{0, 1, 0}, {0, 0, 1}},
	{{0, -1, 0}, {0, 0, -1}},
	{{0, 0, 1}, {0, -1, 0}},
	{{0, 0, -1}, {0, -1, 0}},
}

// FaceView returns the view matrix used to render one cube face from the
// origin.
func FaceView(face gfx.CubeFace) mgl32.Mat4 {
	v := cubeViews[face]
	return mgl32.LookAtV(mgl32.Vec3{}, v[0], v[1])
}

// FaceHook observes each face of a bake as it is rendered.
type FaceHook func(face gfx.CubeFace, view mgl32.Mat4)

// cubeMesh is a unit cube of edge 2 on the device.
type cubeMesh struct {
	positions gfx.Buffer
	indices   gfx.Buffer
	count     int
}

func newCubeMesh(ctx *gfx.Context, label string) (cubeMesh, error) {
	g := scene.Cube(2)
	var m cubeMesh
	var err error
	m.positions, err = ctx.MakeBuffer(gfx.BufferDesc{Type: gfx.VertexBuffer, Vertices: g.Positions, Label: label + "/positions"})
	if err != nil {
		return m, err
	}
	m.indices, err = ctx.MakeBuffer(gfx.BufferDesc{Type: gfx.IndexBuffer, Indices: g.Indices, Label: label + "/indices"})
	if err != nil {
		ctx.DestroyBuffer(m.positions)
		return cubeMesh{}, err
	}
	m.count = len(g.Indices)
	return m, nil
}

func (m cubeMesh) bindings(images ...gfx.Image) gfx.Bindings {
	return gfx.Bindings{VertexBuffers: []gfx.Buffer{m.positions}, IndexBuffer: m.indices, Images: images}
}

func (m cubeMesh) destroy(ctx *gfx.Context) {
	ctx.DestroyBuffer(m.indices)
	ctx.DestroyBuffer(m.positions)
}

// BakeCubemap projects an equirectangular panorama onto the six faces of a
// new size² RGBA32F cube image. Everything but the cube image is released
// before returning. hook may be nil.
func BakeCubemap(ctx *gfx.Context, pano *textures.Panorama, size int, hook FaceHook) (gfx.Image, error) {
	b := &baker{ctx: ctx}
	defer b.release()
	cube, err := b.bake(pano, size, hook)
	if err != nil {
		ctx.DestroyImage(cube)
		return gfx.Image{}, fmt.Errorf("bake cubemap: %w", err)
	}
	return cube, nil
}

// baker tracks the transient objects of one bake.
type baker struct {
	ctx    *gfx.Context
	pano   gfx.Image
	mesh   cubeMesh
	prog   program
	passes []gfx.Pass
}

func (b *baker) bake(pano *textures.Panorama, size int, hook FaceHook) (gfx.Image, error) {
	ctx := b.ctx
	if pano == nil {
		return gfx.Image{}, fmt.Errorf("%w: no panorama", gfx.ErrInvalidDesc)
	}
	var err error
	b.pano, err = ctx.MakeImage(gfx.ImageDesc{
		Width: pano.Width, Height: pano.Height, Format: gfx.FormatRGBA32F,
		Floats: pano.Pixels,
		Label:  "panorama",
	})
	if err != nil {
		return gfx.Image{}, err
	}
	cube, err := ctx.MakeImage(gfx.ImageDesc{
		Type: gfx.ImageCube, Width: size, Height: size, Format: gfx.FormatRGBA32F, RenderTarget: true,
		Label: "environment",
	})
	if err != nil {
		return gfx.Image{}, err
	}
	if b.mesh, err = newCubeMesh(ctx, "bake-cube"); err != nil {
		return cube, err
	}
	b.prog, err = newProgram(ctx, gfx.ShaderDesc{
		Vertex:   bakeVert,
		Fragment: bakeFrag,
		Images:   []gfx.SamplerSlot{{Name: "panorama"}},
		Program:  bakeProgram,
		Label:    "bake",
	}, gfx.PipelineDesc{
		Layout:       []gfx.VertexAttr{{Buffer: 0, Format: gfx.Float3}},
		IndexType:    gfx.IndexUint32,
		ColorFormats: []gfx.PixelFormat{gfx.FormatRGBA32F},
		Label:        "bake",
	})
	if err != nil {
		return cube, err
	}
	for face := range gfx.CubeFace(gfx.CubeFaces) {
		pass, err := ctx.MakePass(gfx.PassDesc{
			Colors: []gfx.Attachment{{Image: cube, Face: face}},
			Label:  LabelBake + face.String(),
		})
		if err != nil {
			return cube, err
		}
		b.passes = append(b.passes, pass)
	}

	u := gfx.Uniforms{"projection": mgl32.Perspective(mgl32.DegToRad(90), 1, 0.1, 10)}
	bind := b.mesh.bindings(b.pano)
	for face, pass := range b.passes {
		face := gfx.CubeFace(face)
		view := FaceView(face)
		if hook != nil {
			hook(face, view)
		}
		u["view"] = view
		action := gfx.ClearAction(gfx.Black)
		ctx.BeginPass(pass, &action)
		ctx.ApplyPipeline(b.prog.pipeline)
		ctx.ApplyBindings(bind)
		ctx.ApplyUniforms(u)
		ctx.Draw(0, b.mesh.count, 1)
		ctx.EndPass()
		logging.Logger().Debug("render: baked face", "face", face)
	}
	return cube, ctx.Err()
}

func (b *baker) release() {
	for _, p := range b.passes {
		b.ctx.DestroyPass(p)
	}
	b.prog.destroy(b.ctx)
	b.mesh.destroy(b.ctx)
	b.ctx.DestroyImage(b.pano)
}

const skyboxVert = `
#version 410 core
layout(location = 0) in vec3 inPosition;

uniform mat4 camera;

out vec3 localPos;

void main() {
    localPos    = inPosition;
    gl_Position = (camera * vec4(inPosition, 1.0)).xyww;
}
`

const skyboxFrag = `
#version 410 core
in  vec3 localPos;
out vec4 outColor;

uniform samplerCube environment;

void main() {
    outColor = vec4(texture(environment, localPos).rgb, 1.0);
}
`

var skyboxProgram = &gfx.Program{
	Varyings: 3,
	Vertex: func(u gfx.Uniforms, in *gfx.VertexInput, out *gfx.Varyings) mgl32.Vec4 {
		out.SetVec3(0, in.Attrs[0].Vec3())
		p := u.Mat4("camera").Mul4x1(in.Attrs[0])
		return mgl32.Vec4{p[0], p[1], p[3], p[3]}
	},
	Fragment: func(_ gfx.Uniforms, tex gfx.Sampler, in *gfx.Varyings, out *[gfx.MaxColorAttachments]mgl32.Vec4) {
		out[0] = tex.SampleCube(0, in.Vec3(0)).Vec3().Vec4(1)
	},
}

// SkyboxPass draws the environment cube behind the lit scene. It loads the
// lighting result and tests against the G-buffer depth without writing it,
// so sky appears only where no geometry was rasterized.
type SkyboxPass struct {
	Environment gfx.Image

	ctx      *gfx.Context
	mesh     cubeMesh
	pass     gfx.Pass
	prog     program
	uniforms gfx.Uniforms
}

// NewSkyboxPass takes ownership of environment.
func NewSkyboxPass(ctx *gfx.Context, environment gfx.Image, lighting *LightingPass, gbuffer *GBufferPass) (*SkyboxPass, error) {
	p := &SkyboxPass{Environment: environment, ctx: ctx, uniforms: gfx.Uniforms{}}
	if err := p.init(lighting, gbuffer); err != nil {
		p.Destroy()
		return nil, fmt.Errorf("skybox pass: %w", err)
	}
	return p, nil
}

func (p *SkyboxPass) init(lighting *LightingPass, gbuffer *GBufferPass) error {
	var err error
	if p.mesh, err = newCubeMesh(p.ctx, "skybox-cube"); err != nil {
		return err
	}
	p.pass, err = p.ctx.MakePass(gfx.PassDesc{
		Colors: []gfx.Attachment{{Image: lighting.Result, Access: gfx.AccessComposite}},
		Depth:  gfx.Attachment{Image: gbuffer.Depth, Access: gfx.AccessRead},
		Label:  LabelSkybox,
	})
	if err != nil {
		return err
	}
	p.prog, err = newProgram(p.ctx, gfx.ShaderDesc{
		Vertex:   skyboxVert,
		Fragment: skyboxFrag,
		Images:   []gfx.SamplerSlot{{Name: "environment", Type: gfx.ImageCube}},
		Program:  skyboxProgram,
		Label:    "skybox",
	}, gfx.PipelineDesc{
		Layout:       []gfx.VertexAttr{{Buffer: 0, Format: gfx.Float3}},
		IndexType:    gfx.IndexUint32,
		ColorFormats: []gfx.PixelFormat{gfx.FormatRGBA32F},
		DepthFormat:  gfx.FormatDepth,
		DepthCompare: gfx.CompareLessEqual,
		Label:        "skybox",
	})
	if err != nil {
		return err
	}
	bind := p.mesh.bindings(p.Environment)
	return p.ctx.Validate(p.pass, p.prog.pipeline, &bind)
}

// Run draws the sky with cameraMatrix = projection * view without
// translation.
func (p *SkyboxPass) Run(cameraMatrix mgl32.Mat4) {
	p.uniforms["camera"] = cameraMatrix
	ctx := p.ctx
	action := gfx.LoadAction()
	ctx.BeginPass(p.pass, &action)
	ctx.ApplyPipeline(p.prog.pipeline)
	ctx.ApplyBindings(p.mesh.bindings(p.Environment))
	ctx.ApplyUniforms(p.uniforms)
	ctx.Draw(0, p.mesh.count, 1)
	ctx.EndPass()
}

func (p *SkyboxPass) Destroy() {
	p.prog.destroy(p.ctx)
	p.ctx.DestroyPass(p.pass)
	p.mesh.destroy(p.ctx)
	p.ctx.DestroyImage(p.Environment)
}
