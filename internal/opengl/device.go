// Package opengl implements gfx.Backend on an OpenGL 4.1 core context. All
// calls must come from the goroutine that owns the current context.
package opengl

import (
	"fmt"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"deferred-viewer/internal/gfx"
	"deferred-viewer/internal/logging"
)

type texture struct {
	id     uint32
	target uint32
	typ    gfx.ImageType
	width  int32
	height int32
}

type buffer struct {
	id     uint32
	target uint32
}

type framebuffer struct {
	id     uint32
	width  int32
	height int32
}

// Device is the OpenGL backend. It keeps one vertex array object and
// rebinds attributes on every ApplyBindings.
type Device struct {
	textures     map[gfx.Image]*texture
	buffers      map[gfx.Buffer]*buffer
	programs     map[gfx.Shader]*program
	pipelines    map[gfx.Pipeline]*gfx.PipelineDesc
	framebuffers map[gfx.Pass]*framebuffer

	vao      uint32
	pipeline *gfx.PipelineDesc
	program  *program
}

var _ gfx.Backend = (*Device)(nil)

// New loads the GL entry points of the current context.
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	logging.Logger().Info("opengl: context ready",
		"version", gl.GoStr(gl.GetString(gl.VERSION)),
		"renderer", gl.GoStr(gl.GetString(gl.RENDERER)))

	d := &Device{
		textures:     make(map[gfx.Image]*texture),
		buffers:      make(map[gfx.Buffer]*buffer),
		programs:     make(map[gfx.Shader]*program),
		pipelines:    make(map[gfx.Pipeline]*gfx.PipelineDesc),
		framebuffers: make(map[gfx.Pass]*framebuffer),
	}
	gl.GenVertexArrays(1, &d.vao)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.Enable(gl.TEXTURE_CUBE_MAP_SEAMLESS)
	return d, nil
}

func (d *Device) Name() string { return "opengl" }

func (d *Device) CreateImage(h gfx.Image, desc *gfx.ImageDesc) error {
	f := formats[desc.Format]
	t := &texture{
		target: textureTarget(desc.Type),
		typ:    desc.Type,
		width:  int32(desc.Width),
		height: int32(desc.Height),
	}
	gl.GenTextures(1, &t.id)
	gl.BindTexture(t.target, t.id)

	var data unsafe.Pointer
	switch {
	case desc.Pixels != nil:
		data = gl.Ptr(desc.Pixels)
	case desc.Floats != nil:
		data = gl.Ptr(desc.Floats)
	}
	w, ht := t.width, t.height
	if desc.Type == gfx.ImageCube {
		for face := range gfx.CubeFace(gfx.CubeFaces) {
			gl.TexImage2D(faceTarget(desc.Type, face), 0, f.internal, w, ht, 0, f.format, f.xtype, nil)
		}
		gl.TexParameteri(t.target, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
	} else {
		gl.TexImage2D(gl.TEXTURE_2D, 0, f.internal, w, ht, 0, f.format, f.xtype, data)
	}
	gl.TexParameteri(t.target, gl.TEXTURE_MIN_FILTER, filter(desc.MinFilter))
	gl.TexParameteri(t.target, gl.TEXTURE_MAG_FILTER, filter(desc.MagFilter))
	gl.TexParameteri(t.target, gl.TEXTURE_WRAP_S, wrap(desc.Wrap))
	gl.TexParameteri(t.target, gl.TEXTURE_WRAP_T, wrap(desc.Wrap))
	if desc.Format.IsDepth() {
		// Depth is sampled as a plain value and compared in the shader.
		gl.TexParameteri(t.target, gl.TEXTURE_COMPARE_MODE, gl.NONE)
	}
	gl.BindTexture(t.target, 0)

	d.textures[h] = t
	return nil
}

func (d *Device) CreateBuffer(h gfx.Buffer, desc *gfx.BufferDesc) error {
	b := &buffer{target: gl.ARRAY_BUFFER}
	gl.GenBuffers(1, &b.id)
	gl.BindVertexArray(0)
	if desc.Type == gfx.IndexBuffer {
		b.target = gl.ELEMENT_ARRAY_BUFFER
		gl.BindBuffer(b.target, b.id)
		gl.BufferData(b.target, len(desc.Indices)*4, gl.Ptr(desc.Indices), gl.STATIC_DRAW)
	} else {
		gl.BindBuffer(b.target, b.id)
		gl.BufferData(b.target, len(desc.Vertices)*4, gl.Ptr(desc.Vertices), gl.STATIC_DRAW)
	}
	gl.BindBuffer(b.target, 0)
	d.buffers[h] = b
	return nil
}

func (d *Device) CreateShader(h gfx.Shader, desc *gfx.ShaderDesc) error {
	p, err := newShader(desc)
	if err != nil {
		return err
	}
	d.programs[h] = p
	return nil
}

func (d *Device) CreatePipeline(h gfx.Pipeline, desc *gfx.PipelineDesc) error {
	cp := *desc
	d.pipelines[h] = &cp
	return nil
}

func (d *Device) CreatePass(h gfx.Pass, desc *gfx.PassDesc) error {
	fb := &framebuffer{}
	gl.GenFramebuffers(1, &fb.id)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.id)

	attach := func(point uint32, a gfx.Attachment) {
		t := d.textures[a.Image]
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, point, faceTarget(t.typ, a.Face), t.id, 0)
	}
	drawBuffers := make([]uint32, len(desc.Colors))
	for i, a := range desc.Colors {
		attach(gl.COLOR_ATTACHMENT0+uint32(i), a)
		drawBuffers[i] = gl.COLOR_ATTACHMENT0 + uint32(i)
	}
	if !desc.Depth.Image.IsZero() {
		attach(gl.DEPTH_ATTACHMENT, desc.Depth)
	}
	if len(drawBuffers) > 0 {
		gl.DrawBuffers(int32(len(drawBuffers)), &drawBuffers[0])
	} else {
		gl.DrawBuffer(gl.NONE)
		gl.ReadBuffer(gl.NONE)
	}

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		gl.DeleteFramebuffers(1, &fb.id)
		return fmt.Errorf("opengl: framebuffer %q incomplete: status=0x%X", desc.Label, status)
	}
	fb.width, fb.height = d.passSize(desc)
	d.framebuffers[h] = fb
	return nil
}

// passSize returns the size of the first attachment; the context has
// checked that all attachments agree.
func (d *Device) passSize(desc *gfx.PassDesc) (int32, int32) {
	img := desc.Depth.Image
	if len(desc.Colors) > 0 {
		img = desc.Colors[0].Image
	}
	t := d.textures[img]
	return t.width, t.height
}

func (d *Device) DestroyImage(h gfx.Image) {
	if t, ok := d.textures[h]; ok {
		gl.DeleteTextures(1, &t.id)
		delete(d.textures, h)
	}
}

func (d *Device) DestroyBuffer(h gfx.Buffer) {
	if b, ok := d.buffers[h]; ok {
		gl.DeleteBuffers(1, &b.id)
		delete(d.buffers, h)
	}
}

func (d *Device) DestroyShader(h gfx.Shader) {
	if p, ok := d.programs[h]; ok {
		p.destroy()
		delete(d.programs, h)
	}
}

func (d *Device) DestroyPipeline(h gfx.Pipeline) { delete(d.pipelines, h) }

func (d *Device) DestroyPass(h gfx.Pass) {
	if fb, ok := d.framebuffers[h]; ok {
		gl.DeleteFramebuffers(1, &fb.id)
		delete(d.framebuffers, h)
	}
}

// Release deletes the vertex array. Objects still owned by a gfx.Context
// must be destroyed through it first.
func (d *Device) Release() {
	gl.DeleteVertexArrays(1, &d.vao)
}

func (d *Device) BeginPass(h gfx.Pass, action *gfx.PassAction) {
	fb := d.framebuffers[h]
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.id)
	gl.Viewport(0, 0, fb.width, fb.height)
	d.clear(action, true)
}

func (d *Device) BeginDefaultPass(action *gfx.PassAction, width, height int) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(width), int32(height))
	d.clear(action, false)
}

func (d *Device) clear(action *gfx.PassAction, offscreen bool) {
	colors := 1
	if offscreen {
		colors = gfx.MaxColorAttachments
	}
	gl.ColorMask(true, true, true, true)
	for i := range colors {
		if a := action.Colors[i]; a.Action == gfx.ActionClear {
			gl.ClearBufferfv(gl.COLOR, int32(i), &a.Value[0])
		}
	}
	if action.Depth.Action == gfx.ActionClear {
		gl.DepthMask(true)
		v := action.Depth.Value
		gl.ClearBufferfv(gl.DEPTH, 0, &v)
	}
}

func (d *Device) ApplyPipeline(h gfx.Pipeline) {
	pip := d.pipelines[h]
	d.pipeline, d.program = pip, d.programs[pip.Shader]
	gl.UseProgram(d.program.id)

	if pip.DepthFormat == gfx.FormatNone {
		gl.Disable(gl.DEPTH_TEST)
	} else {
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(compareFunc(pip.DepthCompare))
	}
	gl.DepthMask(pip.DepthWrite)

	switch pip.Cull {
	case gfx.CullBack:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	case gfx.CullFront:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	default:
		gl.Disable(gl.CULL_FACE)
	}
	gl.FrontFace(gl.CCW)
	gl.BindVertexArray(d.vao)
}

func (d *Device) ApplyBindings(b *gfx.Bindings) {
	gl.BindVertexArray(d.vao)
	for i := range gfx.MaxVertexAttrs {
		loc := uint32(i)
		if i >= len(d.pipeline.Layout) {
			gl.DisableVertexAttribArray(loc)
			continue
		}
		a := d.pipeline.Layout[i]
		gl.BindBuffer(gl.ARRAY_BUFFER, d.buffers[b.VertexBuffers[a.Buffer]].id)
		gl.EnableVertexAttribArray(loc)
		gl.VertexAttribPointer(loc, int32(a.Format.Components()), gl.FLOAT, false, 0, nil)
	}
	if d.pipeline.IndexType == gfx.IndexUint32 {
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, d.buffers[b.IndexBuffer].id)
	}
	for i, img := range b.Images {
		t := d.textures[img]
		gl.ActiveTexture(gl.TEXTURE0 + uint32(i))
		gl.BindTexture(t.target, t.id)
	}
}

func (d *Device) ApplyUniforms(u gfx.Uniforms) { d.program.upload(u) }

func (d *Device) Draw(base, count, instances int) {
	if d.pipeline.IndexType == gfx.IndexUint32 {
		gl.DrawElementsInstanced(gl.TRIANGLES, int32(count), gl.UNSIGNED_INT,
			gl.PtrOffset(base*4), int32(instances))
		return
	}
	gl.DrawArraysInstanced(gl.TRIANGLES, int32(base), int32(count), int32(instances))
}

func (d *Device) EndPass() {
	d.pipeline, d.program = nil, nil
}

// Commit reports the first pending GL error of the frame. Presenting the
// default framebuffer is up to the window.
func (d *Device) Commit() error {
	if e := gl.GetError(); e != gl.NO_ERROR {
		for gl.GetError() != gl.NO_ERROR {
		}
		return fmt.Errorf("opengl: error 0x%X", e)
	}
	return nil
}
