package opengl

import (
	gl "github.com/go-gl/gl/v4.1-core/gl"

	"deferred-viewer/internal/gfx"
)

// glFormat is the texture storage of a pixel format.
type glFormat struct {
	internal int32
	format   uint32
	xtype    uint32
}

var formats = map[gfx.PixelFormat]glFormat{
	gfx.FormatRGBA8:   {gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE},
	gfx.FormatRGBA16F: {gl.RGBA16F, gl.RGBA, gl.FLOAT},
	gfx.FormatRGBA32F: {gl.RGBA32F, gl.RGBA, gl.FLOAT},
	gfx.FormatR16F:    {gl.R16F, gl.RED, gl.FLOAT},
	gfx.FormatR32F:    {gl.R32F, gl.RED, gl.FLOAT},
	gfx.FormatDepth:   {gl.DEPTH_COMPONENT32F, gl.DEPTH_COMPONENT, gl.FLOAT},
}

func compareFunc(c gfx.CompareFunc) uint32 {
	switch c {
	case gfx.CompareNever:
		return gl.NEVER
	case gfx.CompareLess:
		return gl.LESS
	case gfx.CompareLessEqual:
		return gl.LEQUAL
	case gfx.CompareEqual:
		return gl.EQUAL
	case gfx.CompareGreater:
		return gl.GREATER
	case gfx.CompareGreaterEqual:
		return gl.GEQUAL
	case gfx.CompareNotEqual:
		return gl.NOTEQUAL
	}
	return gl.ALWAYS
}

func filter(f gfx.Filter) int32 {
	if f == gfx.FilterNearest {
		return gl.NEAREST
	}
	return gl.LINEAR
}

func wrap(w gfx.Wrap) int32 {
	if w == gfx.WrapRepeat {
		return gl.REPEAT
	}
	return gl.CLAMP_TO_EDGE
}

func textureTarget(t gfx.ImageType) uint32 {
	if t == gfx.ImageCube {
		return gl.TEXTURE_CUBE_MAP
	}
	return gl.TEXTURE_2D
}

// faceTarget is the attachment target of one face; 2-D images ignore face.
func faceTarget(t gfx.ImageType, face gfx.CubeFace) uint32 {
	if t == gfx.ImageCube {
		return gl.TEXTURE_CUBE_MAP_POSITIVE_X + uint32(face)
	}
	return gl.TEXTURE_2D
}
