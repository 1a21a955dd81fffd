package core

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"

	"deferred-viewer/input"
)

func TestTranslateKey(t *testing.T) {
	cases := map[glfw.Key]input.Key{
		glfw.KeyEscape:   input.KeyEscape,
		glfw.KeyO:        input.KeyO,
		glfw.KeyLeft:     input.KeyArrowLeft,
		glfw.KeyUp:       input.KeyArrowUp,
		glfw.KeyDown:     input.KeyArrowDown,
		glfw.KeyPageDown: input.KeyPageDown,
		glfw.KeyF1:       input.KeyUnknown,
		glfw.KeyA:        input.KeyUnknown,
	}
	for in, want := range cases {
		assert.Equal(t, want, translateKey(in), "glfw key %d", in)
	}
}
