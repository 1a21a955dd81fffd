package softgpu

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deferred-viewer/internal/gfx"
)

// flatProgram passes positions through and writes the "color" uniform.
var flatProgram = &gfx.Program{
	Vertex: func(u gfx.Uniforms, in *gfx.VertexInput, out *gfx.Varyings) mgl32.Vec4 {
		return in.Attrs[0]
	},
	Fragment: func(u gfx.Uniforms, tex gfx.Sampler, in *gfx.Varyings, out *[gfx.MaxColorAttachments]mgl32.Vec4) {
		out[0] = u.Vec4("color")
	},
}

type fixture struct {
	ctx   *gfx.Context
	dev   *Device
	color gfx.Image
	depth gfx.Image
	pass  gfx.Pass
}

func newFixture(t *testing.T, w, h int) *fixture {
	t.Helper()
	f := &fixture{dev: New()}
	f.ctx = gfx.NewContext(f.dev)
	var err error
	f.color, err = f.ctx.MakeImage(gfx.ImageDesc{Width: w, Height: h, Format: gfx.FormatRGBA32F, RenderTarget: true, Label: "color"})
	require.NoError(t, err)
	f.depth, err = f.ctx.MakeImage(gfx.ImageDesc{Width: w, Height: h, Format: gfx.FormatDepth, RenderTarget: true, Label: "depth"})
	require.NoError(t, err)
	f.pass, err = f.ctx.MakePass(gfx.PassDesc{
		Colors: []gfx.Attachment{{Image: f.color}},
		Depth:  gfx.Attachment{Image: f.depth},
		Label:  "test",
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) pipeline(t *testing.T, compare gfx.CompareFunc, cull gfx.CullMode) gfx.Pipeline {
	t.Helper()
	shd, err := f.ctx.MakeShader(gfx.ShaderDesc{Program: flatProgram})
	require.NoError(t, err)
	pip, err := f.ctx.MakePipeline(gfx.PipelineDesc{
		Shader:       shd,
		Layout:       []gfx.VertexAttr{{Format: gfx.Float4}},
		ColorFormats: []gfx.PixelFormat{gfx.FormatRGBA32F},
		DepthFormat:  gfx.FormatDepth,
		DepthCompare: compare,
		DepthWrite:   true,
		Cull:         cull,
	})
	require.NoError(t, err)
	return pip
}

func (f *fixture) buffer(t *testing.T, verts ...float32) gfx.Buffer {
	t.Helper()
	b, err := f.ctx.MakeBuffer(gfx.BufferDesc{Vertices: verts})
	require.NoError(t, err)
	return b
}

func (f *fixture) draw(pip gfx.Pipeline, vb gfx.Buffer, color mgl32.Vec4, n int) {
	f.ctx.ApplyPipeline(pip)
	f.ctx.ApplyBindings(gfx.Bindings{VertexBuffers: []gfx.Buffer{vb}})
	f.ctx.ApplyUniforms(gfx.Uniforms{"color": color})
	f.ctx.Draw(0, n, 1)
}

var (
	red   = mgl32.Vec4{1, 0, 0, 1}
	green = mgl32.Vec4{0, 1, 0, 1}
)

// quad covers the left half of the viewport at the given NDC depth.
func leftHalf(z float32) []float32 {
	return []float32{
		-1, -1, z, 1, 0, -1, z, 1, 0, 1, z, 1,
		-1, -1, z, 1, 0, 1, z, 1, -1, 1, z, 1,
	}
}

func TestFullscreenCoverage(t *testing.T) {
	f := newFixture(t, 8, 4)
	pip := f.pipeline(t, gfx.CompareLess, gfx.CullBack)
	vb := f.buffer(t, -1, -1, 0, 1, 3, -1, 0, 1, -1, 3, 0, 1)

	action := gfx.ClearAction(mgl32.Vec4{})
	f.ctx.BeginPass(f.pass, &action)
	f.draw(pip, vb, red, 3)
	f.ctx.EndPass()
	f.ctx.Commit()
	require.NoError(t, f.ctx.Err())

	px, err := f.dev.ReadImage(f.color, 0)
	require.NoError(t, err)
	for _, v := range px.Texels {
		assert.Equal(t, red, v)
	}
	depth, err := f.dev.ReadImage(f.depth, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, depth.At(3, 2)[0], 1e-6)
}

func TestDepthTest(t *testing.T) {
	f := newFixture(t, 8, 8)
	less := f.pipeline(t, gfx.CompareLess, gfx.CullNone)
	near := f.buffer(t, leftHalf(-0.5)...)
	far := f.buffer(t, -1, -1, 0.5, 1, 1, -1, 0.5, 1, 1, 1, 0.5, 1, -1, -1, 0.5, 1, 1, 1, 0.5, 1, -1, 1, 0.5, 1)

	action := gfx.ClearAction(mgl32.Vec4{})
	f.ctx.BeginPass(f.pass, &action)
	f.draw(less, near, red, 6)
	f.draw(less, far, green, 6)
	f.ctx.EndPass()
	f.ctx.Commit()
	require.NoError(t, f.ctx.Err())

	px, err := f.dev.ReadImage(f.color, 0)
	require.NoError(t, err)
	assert.Equal(t, red, px.At(1, 4), "near quad wins on the left")
	assert.Equal(t, green, px.At(6, 4), "far quad fills the right")
}

func TestBackFaceCulling(t *testing.T) {
	f := newFixture(t, 4, 4)
	pip := f.pipeline(t, gfx.CompareAlways, gfx.CullBack)
	// Clockwise winding
	vb := f.buffer(t, -1, -1, 0, 1, -1, 3, 0, 1, 3, -1, 0, 1)

	action := gfx.ClearAction(mgl32.Vec4{})
	f.ctx.BeginPass(f.pass, &action)
	f.draw(pip, vb, red, 3)
	f.ctx.EndPass()
	f.ctx.Commit()

	_, fragments := f.dev.Stats()
	assert.Zero(t, fragments)
}

func TestNearPlaneClipping(t *testing.T) {
	f := newFixture(t, 4, 4)
	pip := f.pipeline(t, gfx.CompareAlways, gfx.CullNone)
	proj := mgl32.Perspective(mgl32.DegToRad(90), 1, 0.1, 10)
	var verts []float32
	// The apex sits behind the eye; unclipped it would project below the
	// viewport and the visible part of the triangle would be lost.
	for _, p := range []mgl32.Vec3{{-1, -1, -1}, {1, -1, -1}, {0, 2, 1}} {
		c := proj.Mul4x1(p.Vec4(1))
		verts = append(verts, c[:]...)
	}
	vb := f.buffer(t, verts...)

	action := gfx.ClearAction(mgl32.Vec4{})
	f.ctx.BeginPass(f.pass, &action)
	f.draw(pip, vb, red, 3)
	f.ctx.EndPass()
	f.ctx.Commit()
	require.NoError(t, f.ctx.Err())

	px, err := f.dev.ReadImage(f.color, 0)
	require.NoError(t, err)
	for _, v := range px.Texels {
		assert.Equal(t, red, v)
	}
}

func TestRGBA8Quantization(t *testing.T) {
	dev := New()
	ctx := gfx.NewContext(dev)
	shd, err := ctx.MakeShader(gfx.ShaderDesc{Program: flatProgram})
	require.NoError(t, err)
	pip, err := ctx.MakePipeline(gfx.PipelineDesc{
		Shader:       shd,
		Layout:       []gfx.VertexAttr{{Format: gfx.Float2}},
		ColorFormats: []gfx.PixelFormat{gfx.DefaultPassFormat},
	})
	require.NoError(t, err)
	vb, err := ctx.MakeBuffer(gfx.BufferDesc{Vertices: []float32{-1, -1, 3, -1, -1, 3}})
	require.NoError(t, err)

	ctx.BeginDefaultPass(nil, 2, 2)
	ctx.ApplyPipeline(pip)
	ctx.ApplyBindings(gfx.Bindings{VertexBuffers: []gfx.Buffer{vb}})
	ctx.ApplyUniforms(gfx.Uniforms{"color": mgl32.Vec4{0.5, 2, -1, 1}})
	ctx.Draw(0, 3, 1)
	ctx.EndPass()
	ctx.Commit()
	require.NoError(t, ctx.Err())

	px := dev.ReadBackbuffer()
	require.NotNil(t, px)
	assert.Equal(t, mgl32.Vec4{128.0 / 255, 1, 0, 1}, px.At(1, 1))
}

func TestCubeCoordsMatchFaceBasis(t *testing.T) {
	cases := []struct {
		dir  mgl32.Vec3
		face gfx.CubeFace
		s, t float32
	}{
		{mgl32.Vec3{1, 0, 0}, gfx.FacePosX, 0.5, 0.5},
		{mgl32.Vec3{-1, 0, 0}, gfx.FaceNegX, 0.5, 0.5},
		{mgl32.Vec3{0, 1, 0}, gfx.FacePosY, 0.5, 0.5},
		{mgl32.Vec3{0, -1, 0}, gfx.FaceNegY, 0.5, 0.5},
		{mgl32.Vec3{0, 0, 1}, gfx.FacePosZ, 0.5, 0.5},
		{mgl32.Vec3{0, 0, -1}, gfx.FaceNegZ, 0.5, 0.5},
		// +X face: s grows towards -z, t grows towards -y
		{mgl32.Vec3{1, -0.5, -0.5}, gfx.FacePosX, 0.75, 0.75},
		// +Y face: s grows towards +x, t grows towards +z
		{mgl32.Vec3{0.5, 1, 0.5}, gfx.FacePosY, 0.75, 0.75},
	}
	for _, tc := range cases {
		face, s, tt := cubeCoords(tc.dir)
		assert.Equal(t, tc.face, face, "dir %v", tc.dir)
		assert.InDelta(t, tc.s, s, 1e-6, "s of %v", tc.dir)
		assert.InDelta(t, tc.t, tt, 1e-6, "t of %v", tc.dir)
	}
}

func TestSampleWrapAndFilter(t *testing.T) {
	img := newImage(&gfx.ImageDesc{
		Width:  2,
		Height: 1,
		Format: gfx.FormatR32F,
		Floats: []float32{0, 1},
		Wrap:   gfx.WrapClamp,
	})
	units := textureUnits{img}

	// Texel centers return exact values, midpoint blends
	assert.InDelta(t, 0, units.Sample(0, mgl32.Vec2{0.25, 0.5})[0], 1e-6)
	assert.InDelta(t, 1, units.Sample(0, mgl32.Vec2{0.75, 0.5})[0], 1e-6)
	assert.InDelta(t, 0.5, units.Sample(0, mgl32.Vec2{0.5, 0.5})[0], 1e-6)
	// Clamp holds the edge, repeat wraps around
	assert.InDelta(t, 1, units.Sample(0, mgl32.Vec2{1.5, 0.5})[0], 1e-6)
	img.desc.Wrap = gfx.WrapRepeat
	img.desc.MagFilter = gfx.FilterNearest
	assert.InDelta(t, 0, units.Sample(0, mgl32.Vec2{1.25, 0.5})[0], 1e-6)
}

func TestUnknownReadback(t *testing.T) {
	dev := New()
	_, err := dev.ReadImage(gfx.Image{}, 0)
	assert.ErrorIs(t, err, gfx.ErrInvalidHandle)
	assert.Nil(t, dev.ReadBackbuffer())
}
