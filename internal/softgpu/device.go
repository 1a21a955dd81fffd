// Package softgpu is a CPU implementation of gfx.Backend. It runs the
// reference programs of each shader through a scanline rasterizer, which
// makes rendering results observable without a GPU or a window.
package softgpu

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"deferred-viewer/internal/gfx"
)

var ErrNoProgram = errors.New("softgpu: shader has no reference program")

type pipeline struct {
	gfx.PipelineDesc
	program *gfx.Program
}

type target struct {
	colors  []*surface
	formats []gfx.PixelFormat
	depth   *surface
	width   int
	height  int
}

// Device is the software backend. It is not safe for concurrent use.
type Device struct {
	images    map[gfx.Image]*image
	buffers   map[gfx.Buffer]*gfx.BufferDesc
	shaders   map[gfx.Shader]*gfx.Program
	pipelines map[gfx.Pipeline]*pipeline
	passes    map[gfx.Pass]*gfx.PassDesc

	backbuffer *surface

	target   target
	pipeline *pipeline
	program  *gfx.Program
	vertices [][]float32
	indices  []uint32
	textures textureUnits
	uniforms gfx.Uniforms

	draws     int
	fragments int
	err       error
}

var _ gfx.Backend = (*Device)(nil)

func New() *Device {
	return &Device{
		images:    make(map[gfx.Image]*image),
		buffers:   make(map[gfx.Buffer]*gfx.BufferDesc),
		shaders:   make(map[gfx.Shader]*gfx.Program),
		pipelines: make(map[gfx.Pipeline]*pipeline),
		passes:    make(map[gfx.Pass]*gfx.PassDesc),
	}
}

func (d *Device) Name() string { return "softgpu" }

func (d *Device) CreateImage(h gfx.Image, desc *gfx.ImageDesc) error {
	d.images[h] = newImage(desc)
	return nil
}

func (d *Device) CreateBuffer(h gfx.Buffer, desc *gfx.BufferDesc) error {
	cp := *desc
	d.buffers[h] = &cp
	return nil
}

func (d *Device) CreateShader(h gfx.Shader, desc *gfx.ShaderDesc) error {
	if desc.Program == nil {
		return ErrNoProgram
	}
	d.shaders[h] = desc.Program
	return nil
}

func (d *Device) CreatePipeline(h gfx.Pipeline, desc *gfx.PipelineDesc) error {
	prog, ok := d.shaders[desc.Shader]
	if !ok {
		return fmt.Errorf("softgpu: pipeline %q: unknown shader", desc.Label)
	}
	d.pipelines[h] = &pipeline{PipelineDesc: *desc, program: prog}
	return nil
}

func (d *Device) CreatePass(h gfx.Pass, desc *gfx.PassDesc) error {
	cp := *desc
	d.passes[h] = &cp
	return nil
}

func (d *Device) DestroyImage(h gfx.Image)       { delete(d.images, h) }
func (d *Device) DestroyBuffer(h gfx.Buffer)     { delete(d.buffers, h) }
func (d *Device) DestroyShader(h gfx.Shader)     { delete(d.shaders, h) }
func (d *Device) DestroyPipeline(h gfx.Pipeline) { delete(d.pipelines, h) }
func (d *Device) DestroyPass(h gfx.Pass)         { delete(d.passes, h) }

func (d *Device) BeginPass(h gfx.Pass, action *gfx.PassAction) {
	desc := d.passes[h]
	t := target{}
	for _, a := range desc.Colors {
		img := d.images[a.Image]
		t.colors = append(t.colors, img.face(a.Face))
		t.formats = append(t.formats, img.desc.Format)
		t.width, t.height = img.desc.Width, img.desc.Height
	}
	if !desc.Depth.Image.IsZero() {
		img := d.images[desc.Depth.Image]
		t.depth = img.face(0)
		t.width, t.height = img.desc.Width, img.desc.Height
	}
	d.begin(t, action)
}

func (d *Device) BeginDefaultPass(action *gfx.PassAction, width, height int) {
	if d.backbuffer == nil || d.backbuffer.width != width || d.backbuffer.height != height {
		d.backbuffer = newSurface(width, height, 4)
	}
	d.begin(target{
		colors:  []*surface{d.backbuffer},
		formats: []gfx.PixelFormat{gfx.DefaultPassFormat},
		width:   width,
		height:  height,
	}, action)
}

func (d *Device) begin(t target, action *gfx.PassAction) {
	d.target = t
	for i, s := range t.colors {
		if a := action.Colors[i]; a.Action == gfx.ActionClear {
			s.fill(a.Value, t.formats[i])
		}
	}
	if t.depth != nil && action.Depth.Action == gfx.ActionClear {
		for i := range t.depth.data {
			t.depth.data[i] = action.Depth.Value
		}
	}
}

func (d *Device) ApplyPipeline(h gfx.Pipeline) {
	d.pipeline = d.pipelines[h]
	d.program = d.pipeline.program
}

func (d *Device) ApplyBindings(b *gfx.Bindings) {
	d.vertices = d.vertices[:0]
	for _, h := range b.VertexBuffers {
		d.vertices = append(d.vertices, d.buffers[h].Vertices)
	}
	d.indices = nil
	if buf, ok := d.buffers[b.IndexBuffer]; ok {
		d.indices = buf.Indices
	}
	d.textures = d.textures[:0]
	for _, h := range b.Images {
		d.textures = append(d.textures, d.images[h])
	}
}

func (d *Device) ApplyUniforms(u gfx.Uniforms) { d.uniforms = u }

func (d *Device) Draw(base, count, instances int) {
	d.draws++
	indexed := d.pipeline.IndexType == gfx.IndexUint32
	for range instances {
		for i := 0; i+2 < count; i += 3 {
			var tri [3]clipVertex
			for k := range 3 {
				idx := base + i + k
				if indexed {
					idx = int(d.indices[idx])
				}
				if !d.runVertex(idx, &tri[k]) {
					return
				}
			}
			d.drawTriangle(&tri)
		}
	}
}

func (d *Device) runVertex(idx int, v *clipVertex) bool {
	var in gfx.VertexInput
	in.VertexID = idx
	for i, a := range d.pipeline.Layout {
		n := a.Format.Components()
		buf := d.vertices[a.Buffer]
		if (idx+1)*n > len(buf) {
			if d.err == nil {
				d.err = fmt.Errorf("softgpu: vertex %d outside buffer of attribute %d", idx, i)
			}
			return false
		}
		in.Attrs[i] = mgl32.Vec4{0, 0, 0, 1}
		copy(in.Attrs[i][:n], buf[idx*n:(idx+1)*n])
	}
	v.pos = d.program.Vertex(d.uniforms, &in, &v.vary)
	return true
}

func (d *Device) EndPass() {
	d.target = target{}
	d.pipeline, d.program = nil, nil
}

func (d *Device) Commit() error {
	err := d.err
	d.err = nil
	return err
}

// Stats reports the draws issued and fragments shaded since creation.
func (d *Device) Stats() (draws, fragments int) { return d.draws, d.fragments }

// Pixels is a readback of one image face.
type Pixels struct {
	Width  int
	Height int
	Texels []mgl32.Vec4
}

// At returns the texel at column x of row y, row 0 being v = 0.
func (p *Pixels) At(x, y int) mgl32.Vec4 { return p.Texels[y*p.Width+x] }

func readSurface(s *surface) *Pixels {
	p := &Pixels{Width: s.width, Height: s.height, Texels: make([]mgl32.Vec4, s.width*s.height)}
	for y := range s.height {
		for x := range s.width {
			p.Texels[y*s.width+x] = s.texel(x, y)
		}
	}
	return p
}

// ReadImage copies one face of an image. Face is ignored for 2-D images.
func (d *Device) ReadImage(h gfx.Image, face gfx.CubeFace) (*Pixels, error) {
	img, ok := d.images[h]
	if !ok {
		return nil, fmt.Errorf("softgpu: read image %d: %w", h.ID(), gfx.ErrInvalidHandle)
	}
	return readSurface(img.face(face)), nil
}

// ReadBackbuffer copies the default framebuffer, or returns nil before the
// first default pass.
func (d *Device) ReadBackbuffer() *Pixels {
	if d.backbuffer == nil {
		return nil
	}
	return readSurface(d.backbuffer)
}
