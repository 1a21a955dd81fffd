package softgpu

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"deferred-viewer/internal/gfx"
)

// surface is one mip-less face of an image. Texels are stored row by row
// starting at v = 0, with Channels floats per texel.
type surface struct {
	width    int
	height   int
	channels int
	data     []float32
}

func newSurface(w, h, channels int) *surface {
	return &surface{width: w, height: h, channels: channels, data: make([]float32, w*h*channels)}
}

func (s *surface) texel(x, y int) mgl32.Vec4 {
	i := (y*s.width + x) * s.channels
	if s.channels == 1 {
		return mgl32.Vec4{s.data[i], 0, 0, 1}
	}
	return mgl32.Vec4{s.data[i], s.data[i+1], s.data[i+2], s.data[i+3]}
}

func (s *surface) store(x, y int, v mgl32.Vec4, format gfx.PixelFormat) {
	i := (y*s.width + x) * s.channels
	if s.channels == 1 {
		s.data[i] = v[0]
		return
	}
	if format == gfx.FormatRGBA8 {
		for c := range 4 {
			v[c] = unorm8(v[c])
		}
	}
	copy(s.data[i:i+4], v[:])
}

func (s *surface) fill(v mgl32.Vec4, format gfx.PixelFormat) {
	for y := range s.height {
		for x := range s.width {
			s.store(x, y, v, format)
		}
	}
}

// unorm8 quantizes to the nearest representable 8-bit normalized value.
func unorm8(v float32) float32 {
	v = mgl32.Clamp(v, 0, 1)
	return math32.Round(v*255) / 255
}

type image struct {
	desc  gfx.ImageDesc
	faces []*surface
}

func newImage(desc *gfx.ImageDesc) *image {
	img := &image{desc: *desc}
	img.desc.Pixels, img.desc.Floats = nil, nil
	n := 1
	if desc.Type == gfx.ImageCube {
		n = gfx.CubeFaces
	}
	ch := desc.Format.Channels()
	for range n {
		img.faces = append(img.faces, newSurface(desc.Width, desc.Height, ch))
	}
	s := img.faces[0]
	switch {
	case desc.Pixels != nil:
		for i, b := range desc.Pixels {
			s.data[i] = float32(b) / 255
		}
	case desc.Floats != nil:
		copy(s.data, desc.Floats)
	}
	if desc.Format.IsDepth() {
		for _, f := range img.faces {
			for i := range f.data {
				f.data[i] = 1
			}
		}
	}
	return img
}

func (img *image) face(f gfx.CubeFace) *surface {
	if img.desc.Type != gfx.ImageCube {
		return img.faces[0]
	}
	return img.faces[f]
}
