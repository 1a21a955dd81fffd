package gfx

import (
	"fmt"
	"slices"

	"deferred-viewer/internal/logging"
)

// Stats reports live object counts and the number of committed frames.
type Stats struct {
	Images    int
	Buffers   int
	Shaders   int
	Pipelines int
	Passes    int
	Frames    uint64
}

// Live returns the total number of live objects.
func (s Stats) Live() int {
	return s.Images + s.Buffers + s.Shaders + s.Pipelines + s.Passes
}

// Producer records a pass that wrote one face of an image.
type Producer struct {
	Pass string
	Face CubeFace
}

type bufferInfo struct {
	typ   BufferType
	count int
	label string
}

type passInfo struct {
	desc   PassDesc
	colors []PixelFormat
	depth  PixelFormat
	width  int
	height int
}

type faceKey struct {
	image uint32
	face  CubeFace
}

// frameState is the per-pass command state.
type frameState struct {
	active   bool
	pass     Pass
	info     *passInfo
	pipeline *PipelineDesc
	shader   *ShaderDesc
	bound    bool
	indexed  int
	vertices int
}

// Context owns every GPU object and validates commands before they reach
// the backend. Construction methods return errors; per-frame methods record
// the first failure, after which further frame commands are dropped until
// the caller observes Err.
type Context struct {
	backend   Backend
	images    pool[ImageDesc]
	buffers   pool[bufferInfo]
	shaders   pool[ShaderDesc]
	pipelines pool[PipelineDesc]
	passes    pool[passInfo]

	// producers maps each written (image, face) to its writing pass label
	// for the lifetime of the image, outliving the pass itself.
	producers map[faceKey]string
	history   map[Image][]Producer

	frame    frameState
	err      error
	frames   uint64
	observer func(label string, desc *PassDesc)
}

func NewContext(backend Backend) *Context {
	logging.Logger().Info("gfx: context created", "backend", backend.Name())
	return &Context{
		backend:   backend,
		producers: make(map[faceKey]string),
		history:   make(map[Image][]Producer),
	}
}

// Backend returns the backend commands are forwarded to.
func (c *Context) Backend() Backend { return c.backend }

// Err returns the first error recorded by a per-frame command.
func (c *Context) Err() error { return c.err }

// InPass reports whether a pass has begun and not yet ended.
func (c *Context) InPass() bool { return c.frame.active }

// SetPassObserver installs fn to be called on every BeginPass. The default
// pass is reported with the label "default" and a nil descriptor.
func (c *Context) SetPassObserver(fn func(label string, desc *PassDesc)) {
	c.observer = fn
}

func (c *Context) Stats() Stats {
	return Stats{
		Images:    c.images.live,
		Buffers:   c.buffers.live,
		Shaders:   c.shaders.live,
		Pipelines: c.pipelines.live,
		Passes:    c.passes.live,
		Frames:    c.frames,
	}
}

// ImageInfo returns the descriptor of a live image without its initial data.
func (c *Context) ImageInfo(h Image) (ImageDesc, bool) {
	d, ok := c.images.get(h.id)
	if !ok {
		return ImageDesc{}, false
	}
	return *d, true
}

// Producers lists every pass that has written the image, including passes
// that have since been destroyed.
func (c *Context) Producers(h Image) []Producer {
	return slices.Clone(c.history[h])
}

func (c *Context) MakeImage(desc ImageDesc) (Image, error) {
	if err := validateImage(&desc); err != nil {
		return Image{}, fmt.Errorf("image %q: %w", desc.Label, err)
	}
	stored := desc
	stored.Pixels, stored.Floats = nil, nil
	id, ok := c.images.alloc(stored)
	if !ok {
		return Image{}, ErrPoolExhausted
	}
	h := Image{id}
	if err := c.backend.CreateImage(h, &desc); err != nil {
		c.images.release(id)
		return Image{}, fmt.Errorf("image %q: %w", desc.Label, err)
	}
	logging.Logger().Debug("gfx: image created", "label", desc.Label, "type", desc.Type,
		"format", desc.Format, "width", desc.Width, "height", desc.Height)
	return h, nil
}

func (c *Context) MakeBuffer(desc BufferDesc) (Buffer, error) {
	info := bufferInfo{typ: desc.Type, label: desc.Label}
	switch desc.Type {
	case VertexBuffer:
		if len(desc.Vertices) == 0 || desc.Indices != nil {
			return Buffer{}, fmt.Errorf("buffer %q: %w: vertex buffer needs vertex data only", desc.Label, ErrInvalidDesc)
		}
		info.count = len(desc.Vertices)
	case IndexBuffer:
		if len(desc.Indices) == 0 || desc.Vertices != nil {
			return Buffer{}, fmt.Errorf("buffer %q: %w: index buffer needs index data only", desc.Label, ErrInvalidDesc)
		}
		info.count = len(desc.Indices)
	default:
		return Buffer{}, fmt.Errorf("buffer %q: %w: unknown type %d", desc.Label, ErrInvalidDesc, desc.Type)
	}
	id, ok := c.buffers.alloc(info)
	if !ok {
		return Buffer{}, ErrPoolExhausted
	}
	h := Buffer{id}
	if err := c.backend.CreateBuffer(h, &desc); err != nil {
		c.buffers.release(id)
		return Buffer{}, fmt.Errorf("buffer %q: %w", desc.Label, err)
	}
	logging.Logger().Debug("gfx: buffer created", "label", desc.Label, "elements", info.count)
	return h, nil
}

func (c *Context) MakeShader(desc ShaderDesc) (Shader, error) {
	if err := validateShader(&desc); err != nil {
		return Shader{}, fmt.Errorf("shader %q: %w", desc.Label, err)
	}
	desc.Images = slices.Clone(desc.Images)
	id, ok := c.shaders.alloc(desc)
	if !ok {
		return Shader{}, ErrPoolExhausted
	}
	h := Shader{id}
	if err := c.backend.CreateShader(h, &desc); err != nil {
		c.shaders.release(id)
		return Shader{}, fmt.Errorf("shader %q: %w", desc.Label, err)
	}
	logging.Logger().Debug("gfx: shader created", "label", desc.Label, "images", len(desc.Images))
	return h, nil
}

func (c *Context) MakePipeline(desc PipelineDesc) (Pipeline, error) {
	if err := c.validatePipeline(&desc); err != nil {
		return Pipeline{}, fmt.Errorf("pipeline %q: %w", desc.Label, err)
	}
	desc.Layout = slices.Clone(desc.Layout)
	desc.ColorFormats = slices.Clone(desc.ColorFormats)
	id, ok := c.pipelines.alloc(desc)
	if !ok {
		return Pipeline{}, ErrPoolExhausted
	}
	h := Pipeline{id}
	if err := c.backend.CreatePipeline(h, &desc); err != nil {
		c.pipelines.release(id)
		return Pipeline{}, fmt.Errorf("pipeline %q: %w", desc.Label, err)
	}
	logging.Logger().Debug("gfx: pipeline created", "label", desc.Label)
	return h, nil
}

// MakePass creates an offscreen pass. Every AccessWrite attachment makes the
// pass the producer of that image face; a face may have one live producer.
func (c *Context) MakePass(desc PassDesc) (Pass, error) {
	desc.Colors = slices.Clone(desc.Colors)
	info, err := c.validatePass(&desc)
	if err != nil {
		return Pass{}, fmt.Errorf("pass %q: %w", desc.Label, err)
	}
	id, ok := c.passes.alloc(info)
	if !ok {
		return Pass{}, ErrPoolExhausted
	}
	h := Pass{id}
	if err := c.backend.CreatePass(h, &info.desc); err != nil {
		c.passes.release(id)
		return Pass{}, fmt.Errorf("pass %q: %w", desc.Label, err)
	}
	for _, a := range attachments(&info.desc) {
		if a.Access != AccessWrite {
			continue
		}
		k := c.key(a)
		c.producers[k] = desc.Label
		c.history[a.Image] = append(c.history[a.Image], Producer{Pass: desc.Label, Face: k.face})
	}
	logging.Logger().Debug("gfx: pass created", "label", desc.Label, "colors", len(desc.Colors),
		"width", info.width, "height", info.height)
	return h, nil
}

func (c *Context) DestroyImage(h Image) {
	if !c.images.release(h.id) {
		return
	}
	for k := range c.producers {
		if k.image == h.id {
			delete(c.producers, k)
		}
	}
	c.backend.DestroyImage(h)
}

func (c *Context) DestroyBuffer(h Buffer) {
	if c.buffers.release(h.id) {
		c.backend.DestroyBuffer(h)
	}
}

func (c *Context) DestroyShader(h Shader) {
	if c.shaders.release(h.id) {
		c.backend.DestroyShader(h)
	}
}

func (c *Context) DestroyPipeline(h Pipeline) {
	if c.pipelines.release(h.id) {
		c.backend.DestroyPipeline(h)
	}
}

func (c *Context) DestroyPass(h Pass) {
	if c.passes.release(h.id) {
		c.backend.DestroyPass(h)
	}
}

// Validate checks that pipeline can draw into pass with bindings. A zero
// pass stands for the default framebuffer; nil bindings skip the resource
// checks.
func (c *Context) Validate(pass Pass, pipeline Pipeline, bindings *Bindings) error {
	info, err := c.passFor(pass)
	if err != nil {
		return err
	}
	pip, ok := c.pipelines.get(pipeline.id)
	if !ok {
		return fmt.Errorf("%w: pipeline %d", ErrInvalidHandle, pipeline.id)
	}
	if err := checkFormats(info, pip); err != nil {
		return err
	}
	if bindings == nil {
		return nil
	}
	shader, ok := c.shaders.get(pip.Shader.id)
	if !ok {
		return fmt.Errorf("%w: shader of pipeline %q", ErrInvalidHandle, pip.Label)
	}
	_, _, err = c.checkBindings(info, pip, shader, bindings)
	return err
}

func (c *Context) BeginPass(pass Pass, action *PassAction) {
	if c.err != nil {
		return
	}
	if c.frame.active {
		c.fail(fmt.Errorf("begin pass: %w", ErrInsidePass))
		return
	}
	info, ok := c.passes.get(pass.id)
	if !ok {
		c.fail(fmt.Errorf("begin pass: %w: pass %d", ErrInvalidHandle, pass.id))
		return
	}
	if action == nil {
		a := ClearAction(Black)
		action = &a
	}
	for i, a := range info.desc.Colors {
		if a.Access != AccessWrite && action.Colors[i].Action == ActionClear {
			c.fail(fmt.Errorf("begin pass %q: %w: clear of %s color attachment %d",
				info.desc.Label, ErrInvalidDesc, a.Access, i))
			return
		}
	}
	if d := info.desc.Depth; !d.Image.IsZero() && d.Access != AccessWrite && action.Depth.Action == ActionClear {
		c.fail(fmt.Errorf("begin pass %q: %w: clear of %s depth attachment",
			info.desc.Label, ErrInvalidDesc, d.Access))
		return
	}
	c.frame = frameState{active: true, pass: pass, info: info}
	if c.observer != nil {
		c.observer(info.desc.Label, &info.desc)
	}
	c.backend.BeginPass(pass, action)
}

func (c *Context) BeginDefaultPass(action *PassAction, width, height int) {
	if c.err != nil {
		return
	}
	if c.frame.active {
		c.fail(fmt.Errorf("begin default pass: %w", ErrInsidePass))
		return
	}
	if width <= 0 || height <= 0 {
		c.fail(fmt.Errorf("begin default pass: %w: size %dx%d", ErrInvalidDesc, width, height))
		return
	}
	if action == nil {
		a := ClearAction(Black)
		action = &a
	}
	info := defaultPass(width, height)
	c.frame = frameState{active: true, info: info}
	if c.observer != nil {
		c.observer("default", nil)
	}
	c.backend.BeginDefaultPass(action, width, height)
}

func (c *Context) ApplyPipeline(pipeline Pipeline) {
	if c.err != nil {
		return
	}
	if !c.frame.active {
		c.fail(fmt.Errorf("apply pipeline: %w", ErrOutsidePass))
		return
	}
	pip, ok := c.pipelines.get(pipeline.id)
	if !ok {
		c.fail(fmt.Errorf("apply pipeline: %w: pipeline %d", ErrInvalidHandle, pipeline.id))
		return
	}
	if err := checkFormats(c.frame.info, pip); err != nil {
		c.fail(fmt.Errorf("apply pipeline %q: %w", pip.Label, err))
		return
	}
	shader, ok := c.shaders.get(pip.Shader.id)
	if !ok {
		c.fail(fmt.Errorf("apply pipeline %q: %w: shader destroyed", pip.Label, ErrInvalidHandle))
		return
	}
	c.frame.pipeline, c.frame.shader, c.frame.bound = pip, shader, false
	c.backend.ApplyPipeline(pipeline)
}

func (c *Context) ApplyBindings(b Bindings) {
	if c.err != nil {
		return
	}
	if !c.frame.active || c.frame.pipeline == nil {
		c.fail(fmt.Errorf("apply bindings: %w: no pipeline applied", ErrOutsidePass))
		return
	}
	indexed, vertices, err := c.checkBindings(c.frame.info, c.frame.pipeline, c.frame.shader, &b)
	if err != nil {
		c.fail(fmt.Errorf("apply bindings: %w", err))
		return
	}
	c.frame.bound, c.frame.indexed, c.frame.vertices = true, indexed, vertices
	c.backend.ApplyBindings(&b)
}

func (c *Context) ApplyUniforms(u Uniforms) {
	if c.err != nil {
		return
	}
	if !c.frame.active || c.frame.pipeline == nil {
		c.fail(fmt.Errorf("apply uniforms: %w: no pipeline applied", ErrOutsidePass))
		return
	}
	for name, v := range u {
		if !Supported(v) {
			c.fail(fmt.Errorf("apply uniforms: %w: %q has unsupported type %T", ErrInvalidDesc, name, v))
			return
		}
	}
	c.backend.ApplyUniforms(u)
}

// Draw issues count vertices starting at base, instances times. With an
// index buffer base and count address indices.
func (c *Context) Draw(base, count, instances int) {
	if c.err != nil {
		return
	}
	if !c.frame.active || c.frame.pipeline == nil || !c.frame.bound {
		c.fail(fmt.Errorf("draw: %w: pipeline and bindings must be applied", ErrOutsidePass))
		return
	}
	if base < 0 || count < 0 || instances < 0 {
		c.fail(fmt.Errorf("draw: %w: base %d count %d instances %d", ErrInvalidDesc, base, count, instances))
		return
	}
	limit := c.frame.vertices
	if c.frame.pipeline.IndexType == IndexUint32 {
		limit = c.frame.indexed
	}
	if limit >= 0 && base+count > limit {
		c.fail(fmt.Errorf("draw: %w: range %d+%d exceeds %d elements", ErrInvalidDesc, base, count, limit))
		return
	}
	if count == 0 || instances == 0 {
		return
	}
	c.backend.Draw(base, count, instances)
}

func (c *Context) EndPass() {
	if c.err != nil {
		c.frame = frameState{}
		return
	}
	if !c.frame.active {
		c.fail(fmt.Errorf("end pass: %w", ErrOutsidePass))
		return
	}
	c.frame = frameState{}
	c.backend.EndPass()
}

// Commit finishes the frame.
func (c *Context) Commit() {
	c.frames++
	if c.err != nil {
		return
	}
	if c.frame.active {
		c.fail(fmt.Errorf("commit: %w", ErrInsidePass))
		return
	}
	if err := c.backend.Commit(); err != nil {
		c.fail(fmt.Errorf("commit: %w", err))
	}
}

func (c *Context) fail(err error) {
	if c.err != nil {
		return
	}
	c.err = err
	logging.Logger().Warn("gfx: frame error", "err", err)
}

func (c *Context) key(a Attachment) faceKey {
	k := faceKey{image: a.Image.id}
	if d, ok := c.images.get(a.Image.id); ok && d.Type == ImageCube {
		k.face = a.Face
	}
	return k
}

func (c *Context) passFor(pass Pass) (*passInfo, error) {
	if pass.IsZero() {
		return defaultPass(1, 1), nil
	}
	info, ok := c.passes.get(pass.id)
	if !ok {
		return nil, fmt.Errorf("%w: pass %d", ErrInvalidHandle, pass.id)
	}
	return info, nil
}

func defaultPass(width, height int) *passInfo {
	return &passInfo{
		desc:   PassDesc{Label: "default"},
		colors: []PixelFormat{DefaultPassFormat},
		width:  width,
		height: height,
	}
}

func attachments(desc *PassDesc) []Attachment {
	out := slices.Clone(desc.Colors)
	if !desc.Depth.Image.IsZero() {
		out = append(out, desc.Depth)
	}
	return out
}
