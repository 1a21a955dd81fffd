package render

import (
	"errors"
	"fmt"

	"deferred-viewer/config"
	"deferred-viewer/internal/gfx"
	"deferred-viewer/internal/logging"
	"deferred-viewer/scene"
	"deferred-viewer/textures"
)

var ErrDestroyed = errors.New("render: pipeline destroyed")

// Edge is a declared dependency: Consumer reads Image after Producer has
// written it.
type Edge struct {
	Producer string
	Consumer string
	Image    string
}

// Pipeline owns every pass and runs them in their fixed order each frame.
type Pipeline struct {
	ctx   *gfx.Context
	scene *GPUScene

	shadow   *ShadowPass
	gbuffer  *GBufferPass
	ssao     *SSAOPass
	lighting *LightingPass
	skybox   *SkyboxPass
	post     *PostProcessPass

	width     int
	height    int
	order     []string
	destroyed bool
}

// NewPipeline uploads model, bakes the environment from pano and builds
// every pass with a G-buffer of the configured window size. On error all
// objects created so far are released.
func NewPipeline(ctx *gfx.Context, cfg config.Config, model *scene.Model, pano *textures.Panorama) (*Pipeline, error) {
	p := &Pipeline{ctx: ctx, width: cfg.Window.Width, height: cfg.Window.Height}
	if err := p.build(cfg, model, pano); err != nil {
		p.Destroy()
		return nil, err
	}
	ctx.SetPassObserver(p.observe)
	logging.Logger().Info("render: pipeline built",
		"width", p.width, "height", p.height, "meshes", len(p.scene.Meshes), "ssao", p.lighting.SSAOEnabled())
	return p, nil
}

func (p *Pipeline) build(cfg config.Config, model *scene.Model, pano *textures.Panorama) error {
	r := cfg.Render
	var err error
	if model == nil {
		model = &scene.Model{}
	}
	if p.scene, err = UploadScene(p.ctx, model); err != nil {
		return err
	}
	if p.shadow, err = NewShadowPass(p.ctx, r.ShadowMapSize); err != nil {
		return err
	}
	if p.gbuffer, err = NewGBufferPass(p.ctx, p.width, p.height); err != nil {
		return err
	}
	p.ssao, err = NewSSAOPass(p.ctx, p.gbuffer, SSAOOptions{
		KernelSize: r.SSAOKernelSize,
		Radius:     r.SSAORadius,
		Bias:       r.SSAOBias,
	})
	if err != nil {
		return err
	}
	if p.lighting, err = NewLightingPass(p.ctx, p.gbuffer, p.shadow, r.Ambient); err != nil {
		return err
	}
	if r.SSAOEnabled {
		if err = p.lighting.EnableSSAO(p.ssao.AO); err != nil {
			return err
		}
	}
	env, err := BakeCubemap(p.ctx, pano, r.CubemapSize, nil)
	if err != nil {
		return err
	}
	if p.skybox, err = NewSkyboxPass(p.ctx, env, p.lighting, p.gbuffer); err != nil {
		return err
	}
	if p.post, err = NewPostProcessPass(p.ctx, p.lighting.Result, r.Exposure); err != nil {
		return err
	}
	return nil
}

func (p *Pipeline) observe(label string, _ *gfx.PassDesc) {
	if label == "default" {
		label = LabelPostProcess
	}
	p.order = append(p.order, label)
}

// SetOutputSize sets the default framebuffer size used by post-processing.
// The G-buffer keeps its construction size.
func (p *Pipeline) SetOutputSize(width, height int) {
	if width > 0 && height > 0 {
		p.width, p.height = width, height
	}
}

// Frame renders one frame from cam lit by light and commits it. The
// returned error is the first command failure of the context, if any.
func (p *Pipeline) Frame(cam *scene.Camera, light scene.Light) error {
	if p.destroyed {
		return ErrDestroyed
	}
	p.order = p.order[:0]

	p.shadow.Run(p.scene, light)
	p.gbuffer.Run(p.scene, cam.GetViewProjectionMatrix())
	if p.lighting.SSAOEnabled() {
		p.ssao.Run(cam.GetViewMatrix(), cam.GetProjectionMatrix())
	}
	p.lighting.Run(cam.Eye, light)
	p.skybox.Run(cam.GetSkyMatrix())
	p.post.Run(p.width, p.height)
	p.ctx.Commit()

	if err := p.ctx.Err(); err != nil {
		return fmt.Errorf("frame: %w", err)
	}
	return nil
}

// SetSSAO toggles ambient occlusion between frames.
func (p *Pipeline) SetSSAO(on bool) error {
	if p.destroyed {
		return ErrDestroyed
	}
	if on == p.lighting.SSAOEnabled() {
		return nil
	}
	if on {
		return p.lighting.EnableSSAO(p.ssao.AO)
	}
	return p.lighting.DisableSSAO()
}

func (p *Pipeline) SSAOEnabled() bool { return p.lighting.SSAOEnabled() }

// Order returns the pass labels executed by the last frame.
func (p *Pipeline) Order() []string {
	return append([]string(nil), p.order...)
}

// Graph lists the producer to consumer edges of every image the passes
// share, with producers taken from the context's write tracking.
func (p *Pipeline) Graph() []Edge {
	reads := []struct {
		image     gfx.Image
		consumers []string
	}{
		{p.shadow.Depth, []string{LabelLighting}},
		{p.gbuffer.Position, []string{LabelSSAO, LabelLighting}},
		{p.gbuffer.Normal, []string{LabelSSAO, LabelLighting}},
		{p.gbuffer.Albedo, []string{LabelLighting}},
		{p.gbuffer.Depth, []string{LabelSkybox}},
		{p.ssao.AO, []string{LabelLighting}},
		{p.lighting.Result, []string{LabelSkybox, LabelPostProcess}},
		{p.skybox.Environment, []string{LabelSkybox}},
	}
	var edges []Edge
	for _, r := range reads {
		info, _ := p.ctx.ImageInfo(r.image)
		for _, prod := range p.ctx.Producers(r.image) {
			for _, c := range r.consumers {
				edges = append(edges, Edge{Producer: prod.Pass, Consumer: c, Image: info.Label})
			}
		}
	}
	return edges
}

// Images returns every image the pipeline owns.
func (p *Pipeline) Images() map[string]gfx.Image {
	return map[string]gfx.Image{
		"shadow-map":       p.shadow.Depth,
		"gbuffer-position": p.gbuffer.Position,
		"gbuffer-normal":   p.gbuffer.Normal,
		"gbuffer-albedo":   p.gbuffer.Albedo,
		"gbuffer-depth":    p.gbuffer.Depth,
		"ssao-ao":          p.ssao.AO,
		"lighting-result":  p.lighting.Result,
		"environment":      p.skybox.Environment,
	}
}

// GBuffer exposes the G-buffer targets.
func (p *Pipeline) GBuffer() *GBufferPass { return p.gbuffer }

// Lighting exposes the lighting pass and its SSAO state.
func (p *Pipeline) Lighting() *LightingPass { return p.lighting }

// Destroy releases every object in reverse construction order. Calling it
// again has no effect.
func (p *Pipeline) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true
	p.ctx.SetPassObserver(nil)
	if p.post != nil {
		p.post.Destroy()
	}
	if p.skybox != nil {
		p.skybox.Destroy()
	}
	if p.lighting != nil {
		p.lighting.Destroy()
	}
	if p.ssao != nil {
		p.ssao.Destroy()
	}
	if p.gbuffer != nil {
		p.gbuffer.Destroy()
	}
	if p.shadow != nil {
		p.shadow.Destroy()
	}
	if p.scene != nil {
		p.scene.Destroy()
	}
}
