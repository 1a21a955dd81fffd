package softgpu

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"deferred-viewer/internal/gfx"
)

// textureUnits implements gfx.Sampler over the images of the current
// bindings.
type textureUnits []*image

func (t textureUnits) Sample(slot int, uv mgl32.Vec2) mgl32.Vec4 {
	if slot >= len(t) || t[slot] == nil {
		return mgl32.Vec4{}
	}
	img := t[slot]
	return sample2D(img.faces[0], &img.desc, uv[0], uv[1], img.desc.Wrap)
}

// SampleCube picks the face by the major axis of dir and samples it with
// edge clamping, following the OpenGL cube map selection table.
func (t textureUnits) SampleCube(slot int, dir mgl32.Vec3) mgl32.Vec4 {
	if slot >= len(t) || t[slot] == nil {
		return mgl32.Vec4{}
	}
	img := t[slot]
	face, s, tc := cubeCoords(dir)
	return sample2D(img.faces[face], &img.desc, s, tc, gfx.WrapClamp)
}

func cubeCoords(d mgl32.Vec3) (gfx.CubeFace, float32, float32) {
	ax, ay, az := math32.Abs(d[0]), math32.Abs(d[1]), math32.Abs(d[2])
	var face gfx.CubeFace
	var sc, tc, ma float32
	switch {
	case ax >= ay && ax >= az:
		ma = ax
		if d[0] >= 0 {
			face, sc, tc = gfx.FacePosX, -d[2], -d[1]
		} else {
			face, sc, tc = gfx.FaceNegX, d[2], -d[1]
		}
	case ay >= az:
		ma = ay
		if d[1] >= 0 {
			face, sc, tc = gfx.FacePosY, d[0], d[2]
		} else {
			face, sc, tc = gfx.FaceNegY, d[0], -d[2]
		}
	default:
		ma = az
		if d[2] >= 0 {
			face, sc, tc = gfx.FacePosZ, d[0], -d[1]
		} else {
			face, sc, tc = gfx.FaceNegZ, -d[0], -d[1]
		}
	}
	if ma == 0 {
		return gfx.FacePosX, 0.5, 0.5
	}
	return face, (sc/ma + 1) / 2, (tc/ma + 1) / 2
}

func sample2D(s *surface, desc *gfx.ImageDesc, u, v float32, wrap gfx.Wrap) mgl32.Vec4 {
	// Magnification and minification use the same filter without mips.
	if desc.MagFilter == gfx.FilterNearest {
		x := wrapCoord(int(math32.Floor(u*float32(s.width))), s.width, wrap)
		y := wrapCoord(int(math32.Floor(v*float32(s.height))), s.height, wrap)
		return s.texel(x, y)
	}
	fx := u*float32(s.width) - 0.5
	fy := v*float32(s.height) - 0.5
	x0f, y0f := math32.Floor(fx), math32.Floor(fy)
	ax, ay := fx-x0f, fy-y0f
	x0, y0 := int(x0f), int(y0f)
	x1 := wrapCoord(x0+1, s.width, wrap)
	y1 := wrapCoord(y0+1, s.height, wrap)
	x0 = wrapCoord(x0, s.width, wrap)
	y0 = wrapCoord(y0, s.height, wrap)

	t00, t10 := s.texel(x0, y0), s.texel(x1, y0)
	t01, t11 := s.texel(x0, y1), s.texel(x1, y1)
	top := t00.Mul(1 - ax).Add(t10.Mul(ax))
	bottom := t01.Mul(1 - ax).Add(t11.Mul(ax))
	return top.Mul(1 - ay).Add(bottom.Mul(ay))
}

func wrapCoord(i, n int, wrap gfx.Wrap) int {
	if wrap == gfx.WrapRepeat {
		i %= n
		if i < 0 {
			i += n
		}
		return i
	}
	return min(max(i, 0), n-1)
}
