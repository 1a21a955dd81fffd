package render

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"deferred-viewer/internal/gfx"
	"deferred-viewer/internal/logging"
	"deferred-viewer/scene"
	"deferred-viewer/textures"
)

// meshLayout is the vertex layout shared by the scene pipelines: position,
// normal and UV each in their own buffer.
var meshLayout = []gfx.VertexAttr{
	{Buffer: 0, Format: gfx.Float3},
	{Buffer: 1, Format: gfx.Float3},
	{Buffer: 2, Format: gfx.Float2},
}

// GPUMesh is a mesh whose buffers and albedo texture live on the device.
type GPUMesh struct {
	Name      string
	Positions gfx.Buffer
	Normals   gfx.Buffer
	UVs       gfx.Buffer
	Indices   gfx.Buffer
	Count     int
	Albedo    gfx.Image
	BaseColor mgl32.Vec4
	Model     mgl32.Mat4
	Normal    mgl32.Mat4
}

func (m *GPUMesh) bindings() gfx.Bindings {
	return gfx.Bindings{
		VertexBuffers: []gfx.Buffer{m.Positions, m.Normals, m.UVs},
		IndexBuffer:   m.Indices,
		Images:        []gfx.Image{m.Albedo},
	}
}

// GPUScene owns the device copy of a scene.Model.
type GPUScene struct {
	Meshes []GPUMesh
	Bounds scene.AABB

	ctx      *gfx.Context
	white    gfx.Image
	textures map[*textures.Texture]gfx.Image
}

// UploadScene creates the buffers and textures of every mesh. Meshes
// without a texture sample a shared 1×1 white image, so their colour is the
// base colour factor alone. Textures shared between meshes are uploaded once.
func UploadScene(ctx *gfx.Context, model *scene.Model) (*GPUScene, error) {
	s := &GPUScene{
		Bounds:   model.Bounds,
		ctx:      ctx,
		textures: make(map[*textures.Texture]gfx.Image),
	}
	white, err := ctx.MakeImage(gfx.ImageDesc{
		Width: 1, Height: 1, Format: gfx.FormatRGBA8,
		MinFilter: gfx.FilterNearest, MagFilter: gfx.FilterNearest,
		Pixels: []byte{255, 255, 255, 255},
		Label:  "white",
	})
	if err != nil {
		return nil, err
	}
	s.white = white

	for i := range model.Meshes {
		if err := s.upload(&model.Meshes[i]); err != nil {
			s.Destroy()
			return nil, fmt.Errorf("upload mesh %q: %w", model.Meshes[i].Name, err)
		}
	}
	logging.Logger().Debug("render: scene uploaded", "meshes", len(s.Meshes), "textures", len(s.textures))
	return s, nil
}

func (s *GPUScene) upload(m *scene.Mesh) error {
	g := &m.Geometry
	gm := GPUMesh{
		Name:      m.Name,
		Count:     len(g.Indices),
		BaseColor: m.Material.BaseColor,
		Model:     m.Transform,
		Normal:    normalMatrix(m.Transform),
	}
	var err error
	if gm.Positions, err = s.vertexBuffer(g.Positions, m.Name+"/positions"); err != nil {
		return err
	}
	s.Meshes = append(s.Meshes, gm)
	mesh := &s.Meshes[len(s.Meshes)-1]
	if mesh.Normals, err = s.vertexBuffer(g.Normals, m.Name+"/normals"); err != nil {
		return err
	}
	if mesh.UVs, err = s.vertexBuffer(g.UVs, m.Name+"/uvs"); err != nil {
		return err
	}
	mesh.Indices, err = s.ctx.MakeBuffer(gfx.BufferDesc{Type: gfx.IndexBuffer, Indices: g.Indices, Label: m.Name + "/indices"})
	if err != nil {
		return err
	}
	mesh.Albedo, err = s.texture(m.Material.Texture)
	return err
}

func (s *GPUScene) vertexBuffer(data []float32, label string) (gfx.Buffer, error) {
	return s.ctx.MakeBuffer(gfx.BufferDesc{Type: gfx.VertexBuffer, Vertices: data, Label: label})
}

func (s *GPUScene) texture(tex *textures.Texture) (gfx.Image, error) {
	if tex == nil {
		return s.white, nil
	}
	if img, ok := s.textures[tex]; ok {
		return img, nil
	}
	img, err := s.ctx.MakeImage(gfx.ImageDesc{
		Width:  tex.Width,
		Height: tex.Height,
		Format: gfx.FormatRGBA8,
		Wrap:   gfx.WrapRepeat,
		Pixels: tex.Pixels,
		Label:  tex.Name,
	})
	if err != nil {
		return gfx.Image{}, err
	}
	s.textures[tex] = img
	return img, nil
}

// Destroy releases every device object of the scene.
func (s *GPUScene) Destroy() {
	for _, m := range s.Meshes {
		s.ctx.DestroyBuffer(m.Positions)
		s.ctx.DestroyBuffer(m.Normals)
		s.ctx.DestroyBuffer(m.UVs)
		s.ctx.DestroyBuffer(m.Indices)
	}
	for _, img := range s.textures {
		s.ctx.DestroyImage(img)
	}
	s.ctx.DestroyImage(s.white)
	s.Meshes, s.textures = nil, nil
}

// normalMatrix returns the inverse transpose of m, or m itself when it is
// singular.
func normalMatrix(m mgl32.Mat4) mgl32.Mat4 {
	if m.Det() == 0 {
		return m
	}
	return m.Inv().Transpose()
}
