package gfx

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Uniforms maps uniform names to values. Supported value types are float32,
// int32, int, bool, mgl32.Vec2, mgl32.Vec3, mgl32.Vec4, mgl32.Mat4 and
// []mgl32.Vec3 (uploaded as an array starting at element 0).
type Uniforms map[string]any

func (u Uniforms) Float(name string) float32 {
	v, _ := u[name].(float32)
	return v
}

func (u Uniforms) Int(name string) int {
	switch v := u[name].(type) {
	case int32:
		return int(v)
	case int:
		return v
	case bool:
		if v {
			return 1
		}
	}
	return 0
}

func (u Uniforms) Bool(name string) bool { return u.Int(name) != 0 }

func (u Uniforms) Vec2(name string) mgl32.Vec2 {
	v, _ := u[name].(mgl32.Vec2)
	return v
}

func (u Uniforms) Vec3(name string) mgl32.Vec3 {
	v, _ := u[name].(mgl32.Vec3)
	return v
}

func (u Uniforms) Vec4(name string) mgl32.Vec4 {
	v, _ := u[name].(mgl32.Vec4)
	return v
}

// Mat4 returns the named matrix, or identity when unset.
func (u Uniforms) Mat4(name string) mgl32.Mat4 {
	if v, ok := u[name].(mgl32.Mat4); ok {
		return v
	}
	return mgl32.Ident4()
}

func (u Uniforms) Vec3s(name string) []mgl32.Vec3 {
	v, _ := u[name].([]mgl32.Vec3)
	return v
}

// Supported reports whether v has a type backends know how to upload.
func Supported(v any) bool {
	switch v.(type) {
	case float32, int32, int, bool, mgl32.Vec2, mgl32.Vec3, mgl32.Vec4, mgl32.Mat4, []mgl32.Vec3:
		return true
	}
	return false
}
