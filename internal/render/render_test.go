package render

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deferred-viewer/config"
	"deferred-viewer/internal/gfx"
	"deferred-viewer/internal/softgpu"
	"deferred-viewer/scene"
	"deferred-viewer/textures"
)

func newContext() (*gfx.Context, *softgpu.Device) {
	dev := softgpu.New()
	return gfx.NewContext(dev), dev
}

// testConfig shrinks every target so frames stay cheap on the CPU.
func testConfig(w, h int) config.Config {
	cfg := config.Default()
	cfg.Window.Width, cfg.Window.Height = w, h
	cfg.Render.CubemapSize = 8
	cfg.Render.ShadowMapSize = 64
	cfg.Render.SSAOKernelSize = 8
	return cfg
}

func boxModel(t *testing.T, size float32) *scene.Model {
	t.Helper()
	m := &scene.Model{Name: "box"}
	require.NoError(t, m.AddMesh(scene.Mesh{Name: "box", Geometry: scene.Cube(size), Material: scene.DefaultMaterial()}))
	return m
}

func planeModel(t *testing.T) *scene.Model {
	t.Helper()
	m := &scene.Model{Name: "ground"}
	require.NoError(t, m.AddMesh(scene.Mesh{Name: "ground", Geometry: scene.Plane(4, 4), Material: scene.DefaultMaterial()}))
	return m
}

func lookingCamera(w, h int, eye mgl32.Vec3) *scene.Camera {
	cam := scene.NewCamera(45, float32(w)/float32(h), 0.1, 100)
	cam.LookAt(eye, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	return cam
}

func newTestPipeline(t *testing.T, cfg config.Config, model *scene.Model, pano *textures.Panorama) (*Pipeline, *gfx.Context, *softgpu.Device) {
	t.Helper()
	ctx, dev := newContext()
	p, err := NewPipeline(ctx, cfg, model, pano)
	require.NoError(t, err)
	t.Cleanup(p.Destroy)
	return p, ctx, dev
}

func read(t *testing.T, dev *softgpu.Device, img gfx.Image) *softgpu.Pixels {
	t.Helper()
	px, err := dev.ReadImage(img, gfx.FacePosX)
	require.NoError(t, err)
	return px
}

func TestGBufferTargetsShareSize(t *testing.T) {
	ctx, _ := newContext()
	g, err := NewGBufferPass(ctx, 40, 30)
	require.NoError(t, err)
	defer g.Destroy()

	want := map[gfx.Image]gfx.PixelFormat{
		g.Position: gfx.FormatRGBA32F,
		g.Normal:   gfx.FormatRGBA16F,
		g.Albedo:   gfx.FormatRGBA8,
		g.Depth:    gfx.FormatDepth,
	}
	for img, format := range want {
		info, ok := ctx.ImageInfo(img)
		require.True(t, ok)
		assert.Equal(t, 40, info.Width, info.Label)
		assert.Equal(t, 30, info.Height, info.Label)
		assert.Equal(t, format, info.Format, info.Label)
	}
}

func TestBakeEmitsFacesInOrder(t *testing.T) {
	ctx, dev := newContext()
	c := [4]float32{0.25, 0.5, 0.75, 1}
	var faces []gfx.CubeFace
	var views []mgl32.Mat4
	cube, err := BakeCubemap(ctx, textures.UniformPanorama(4, 2, c), 8, func(f gfx.CubeFace, view mgl32.Mat4) {
		faces = append(faces, f)
		views = append(views, view)
	})
	require.NoError(t, err)

	assert.Equal(t, []gfx.CubeFace{gfx.FacePosX, gfx.FaceNegX, gfx.FacePosY, gfx.FaceNegY, gfx.FacePosZ, gfx.FaceNegZ}, faces)
	for i, v := range views {
		assert.Equal(t, FaceView(gfx.CubeFace(i)), v)
	}

	for f := range gfx.CubeFace(gfx.CubeFaces) {
		px, err := dev.ReadImage(cube, f)
		require.NoError(t, err)
		for _, texel := range px.Texels {
			for ch := range 3 {
				require.InDelta(t, c[ch], texel[ch], 1e-5, "face %s", f)
			}
			require.Equal(t, float32(1), texel[3])
		}
	}

	// Only the cube outlives the bake.
	assert.Equal(t, gfx.Stats{Images: 1}, ctx.Stats())
	producers := ctx.Producers(cube)
	require.Len(t, producers, gfx.CubeFaces)
	for i, p := range producers {
		assert.Equal(t, "bake"+gfx.CubeFace(i).String(), p.Pass)
		assert.Equal(t, gfx.CubeFace(i), p.Face)
	}
}

func TestBakeWithoutPanoramaFails(t *testing.T) {
	ctx, _ := newContext()
	_, err := BakeCubemap(ctx, nil, 8, nil)
	assert.ErrorIs(t, err, gfx.ErrInvalidDesc)
	assert.Zero(t, ctx.Stats().Live())
}

func TestSSAOToggleIsIdempotent(t *testing.T) {
	const w, h = 24, 16
	p, ctx, dev := newTestPipeline(t, testConfig(w, h), planeModel(t), textures.UniformPanorama(2, 2, [4]float32{1, 1, 1, 1}))
	cam := lookingCamera(w, h, mgl32.Vec3{0, 3, 3})
	light := scene.DefaultLight()
	lit := p.Lighting()
	ao := p.Images()["ssao-ao"]

	require.NoError(t, lit.EnableSSAO(ao))
	require.NoError(t, p.Frame(cam, light))
	once := read(t, dev, lit.Result)

	require.NoError(t, lit.DisableSSAO())
	assert.False(t, lit.SSAOEnabled())
	assert.NotEqual(t, ao, lit.AOImage())

	require.NoError(t, lit.EnableSSAO(ao))
	assert.True(t, lit.SSAOEnabled())
	assert.Equal(t, ao, lit.AOImage())
	require.NoError(t, p.Frame(cam, light))
	assert.Equal(t, once.Texels, read(t, dev, lit.Result).Texels)
	assert.NoError(t, ctx.Err())
}

func TestSSAOToggleRejected(t *testing.T) {
	const w, h = 16, 16
	p, ctx, _ := newTestPipeline(t, testConfig(w, h), nil, textures.UniformPanorama(2, 2, [4]float32{1, 1, 1, 1}))
	lit := p.Lighting()

	wrong, err := ctx.MakeImage(gfx.ImageDesc{Width: w, Height: h, Format: gfx.FormatRGBA8, Label: "rgba"})
	require.NoError(t, err)
	defer ctx.DestroyImage(wrong)
	assert.ErrorIs(t, lit.EnableSSAO(wrong), gfx.ErrImageType)

	small, err := ctx.MakeImage(gfx.ImageDesc{Width: 4, Height: 4, Format: gfx.FormatR16F, Label: "small"})
	require.NoError(t, err)
	defer ctx.DestroyImage(small)
	assert.ErrorIs(t, lit.EnableSSAO(small), gfx.ErrAttachmentSize)
	assert.ErrorIs(t, lit.EnableSSAO(gfx.Image{}), gfx.ErrInvalidHandle)

	ctx.BeginDefaultPass(nil, 1, 1)
	assert.ErrorIs(t, lit.DisableSSAO(), gfx.ErrInsidePass)
	ctx.EndPass()
	assert.True(t, lit.SSAOEnabled())
	assert.NoError(t, ctx.Err())
}

func TestEveryImageHasOneWriter(t *testing.T) {
	p, ctx, _ := newTestPipeline(t, testConfig(16, 12), boxModel(t, 1), textures.UniformPanorama(2, 2, [4]float32{1, 1, 1, 1}))
	for name, img := range p.Images() {
		producers := ctx.Producers(img)
		if name == "environment" {
			seen := map[gfx.CubeFace]bool{}
			for _, pr := range producers {
				assert.False(t, seen[pr.Face], "face %s written twice", pr.Face)
				seen[pr.Face] = true
			}
			assert.Len(t, seen, gfx.CubeFaces)
			continue
		}
		assert.Len(t, producers, 1, name)
	}

	_, err := ctx.MakePass(gfx.PassDesc{Colors: []gfx.Attachment{{Image: p.GBuffer().Position}}, Label: "rogue"})
	assert.ErrorIs(t, err, gfx.ErrMultipleWriters)
}

func TestBakedFacesKeepTheirWriter(t *testing.T) {
	p, ctx, _ := newTestPipeline(t, testConfig(16, 12), nil, textures.UniformPanorama(2, 2, [4]float32{1, 1, 1, 1}))
	env := p.Images()["environment"]

	// The bake passes are gone, yet their faces stay claimed
	_, err := ctx.MakePass(gfx.PassDesc{Colors: []gfx.Attachment{{Image: env, Face: gfx.FacePosX}}, Label: "rebake"})
	assert.ErrorIs(t, err, gfx.ErrMultipleWriters)
	assert.Len(t, ctx.Producers(env), gfx.CubeFaces)
}

func TestGraphFollowsFrameOrder(t *testing.T) {
	const w, h = 16, 12
	p, _, _ := newTestPipeline(t, testConfig(w, h), boxModel(t, 1), textures.UniformPanorama(2, 2, [4]float32{1, 1, 1, 1}))
	require.NoError(t, p.Frame(lookingCamera(w, h, mgl32.Vec3{0, 0, 3}), scene.DefaultLight()))

	order := p.Order()
	assert.Equal(t, []string{LabelShadow, LabelGBuffer, LabelSSAO, LabelLighting, LabelSkybox, LabelPostProcess}, order)
	index := map[string]int{}
	for i, label := range order {
		index[label] = i
	}
	edges := p.Graph()
	require.NotEmpty(t, edges)
	for _, e := range edges {
		c, ok := index[e.Consumer]
		require.True(t, ok, e.Consumer)
		if pi, ok := index[e.Producer]; ok {
			assert.Less(t, pi, c, "%s -> %s (%s)", e.Producer, e.Consumer, e.Image)
		} else {
			// Produced once at construction.
			assert.Contains(t, e.Producer, LabelBake)
		}
	}

	require.NoError(t, p.SetSSAO(false))
	require.NoError(t, p.Frame(lookingCamera(w, h, mgl32.Vec3{0, 0, 3}), scene.DefaultLight()))
	assert.Equal(t, []string{LabelShadow, LabelGBuffer, LabelLighting, LabelSkybox, LabelPostProcess}, p.Order())
}

func TestSkyboxOnlyBehindGeometry(t *testing.T) {
	const w, h = 24, 16
	sky := [4]float32{0, 0, 5, 1}
	p, _, dev := newTestPipeline(t, testConfig(w, h), boxModel(t, 1), textures.UniformPanorama(2, 2, sky))
	require.NoError(t, p.Frame(lookingCamera(w, h, mgl32.Vec3{0, 0, 3}), scene.DefaultLight()))

	depth := read(t, dev, p.GBuffer().Depth)
	color := read(t, dev, p.Lighting().Result)
	var geometry, background int
	for i, d := range depth.Texels {
		c := color.Texels[i]
		if d[0] < 1 {
			geometry++
			assert.InDelta(t, c[0], c[2], 1e-4, "texel %d shows sky over geometry", i)
			assert.Equal(t, float32(1), c[3])
			continue
		}
		background++
		assert.InDelta(t, 0, c[0], 1e-4)
		assert.InDelta(t, 5, c[2], 1e-3)
	}
	assert.Positive(t, geometry)
	assert.Positive(t, background)
	assert.Less(t, depth.At(w/2, h/2)[0], float32(1))
	assert.Equal(t, float32(1), depth.At(0, 0)[0])
}

func TestWhiteSkyEmptyScene(t *testing.T) {
	const w, h = 8, 6
	p, ctx, dev := newTestPipeline(t, testConfig(w, h), nil, textures.UniformPanorama(2, 2, [4]float32{1, 1, 1, 1}))
	require.NoError(t, p.Frame(lookingCamera(w, h, mgl32.Vec3{0, 0, 1}), scene.DefaultLight()))
	require.NoError(t, ctx.Err())

	want := math32.Round(ToneMap(1, 1)*255) / 255
	assert.InDelta(t, 207.0/255, want, 1e-6)
	bb := dev.ReadBackbuffer()
	require.NotNil(t, bb)
	require.Equal(t, w, bb.Width)
	for _, texel := range bb.Texels {
		for ch := range 3 {
			require.InDelta(t, want, texel[ch], 1e-6)
		}
		require.Equal(t, float32(1), texel[3])
	}
}

func TestLightDirectionChangesShading(t *testing.T) {
	const w, h = 16, 16
	p, _, dev := newTestPipeline(t, testConfig(w, h), planeModel(t), textures.UniformPanorama(2, 2, [4]float32{0, 0, 0, 1}))
	cam := lookingCamera(w, h, mgl32.Vec3{0, 3, 3})
	require.NoError(t, p.SetSSAO(false))

	down := scene.DefaultLight()
	require.NoError(t, p.Frame(cam, down))
	lit := read(t, dev, p.Lighting().Result).At(w/2, h/2)

	up := down
	up.Direction = mgl32.Vec3{0, 1, 0}
	require.NoError(t, p.Frame(cam, up))
	dark := read(t, dev, p.Lighting().Result).At(w/2, h/2)

	// From below only the ambient term is left.
	assert.InDelta(t, 0.3, dark[0], 1e-3)
	assert.Greater(t, lit[0], dark[0]+0.9)
}

func TestFrameKeepsObjectCount(t *testing.T) {
	const w, h = 12, 8
	p, ctx, _ := newTestPipeline(t, testConfig(w, h), boxModel(t, 1), textures.UniformPanorama(2, 2, [4]float32{1, 1, 1, 1}))
	before := ctx.Stats()
	cam := lookingCamera(w, h, mgl32.Vec3{1, 1, 3})
	for range 3 {
		require.NoError(t, p.Frame(cam, scene.DefaultLight()))
	}
	after := ctx.Stats()
	assert.Equal(t, before.Live(), after.Live())
	assert.Equal(t, before.Frames+3, after.Frames)

	p.Destroy()
	assert.Zero(t, ctx.Stats().Live())
	p.Destroy()
	assert.ErrorIs(t, p.Frame(cam, scene.DefaultLight()), ErrDestroyed)
}

func TestNewPipelineReleasesOnError(t *testing.T) {
	pano := textures.UniformPanorama(2, 2, [4]float32{1, 1, 1, 1})
	cases := map[string]struct {
		mutate func(*config.Config)
		pano   *textures.Panorama
	}{
		"kernel":   {func(c *config.Config) { c.Render.SSAOKernelSize = 0 }, pano},
		"shadow":   {func(c *config.Config) { c.Render.ShadowMapSize = 0 }, pano},
		"panorama": {func(*config.Config) {}, nil},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ctx, _ := newContext()
			cfg := testConfig(8, 8)
			tc.mutate(&cfg)
			_, err := NewPipeline(ctx, cfg, boxModel(t, 1), tc.pano)
			require.Error(t, err)
			assert.Zero(t, ctx.Stats().Live())
		})
	}
}

func TestLightMatrixContainsBounds(t *testing.T) {
	box := scene.AABB{}.Extend(mgl32.Vec3{-1, 0, -2}).Extend(mgl32.Vec3{3, 2, 1})
	for _, dir := range []mgl32.Vec3{{0, -1, 0}, {1, -1, 0.5}, {0, 0, 1}} {
		m := LightMatrix(box, scene.Light{Direction: dir})
		for _, corner := range []mgl32.Vec3{box.Min, box.Max, {box.Min[0], box.Max[1], box.Min[2]}} {
			p := mgl32.TransformCoordinate(corner, m)
			for i := range 3 {
				assert.LessOrEqual(t, math32.Abs(p[i]), float32(1.0001), "corner %v dir %v", corner, dir)
			}
		}
	}
	// Empty scenes fall back to a unit sphere at the origin.
	c := mgl32.TransformCoordinate(mgl32.Vec3{}, LightMatrix(scene.AABB{}, scene.DefaultLight()))
	assert.InDelta(t, 0, c[0], 1e-5)
	assert.InDelta(t, 0, c[1], 1e-5)
}

func TestSSAOKernelInHemisphere(t *testing.T) {
	k := ssaoKernel(64)
	require.Len(t, k, 64)
	for i, v := range k {
		assert.GreaterOrEqual(t, v[2], float32(0))
		assert.LessOrEqual(t, v.Len(), float32(1.0001), "sample %d", i)
	}
	assert.Equal(t, k, ssaoKernel(64))
	assert.Len(t, ssaoNoise(), 64)
}
