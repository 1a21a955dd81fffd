package textures

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeConvertsToRGBA8(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.NRGBA{R: 255, A: 255})
	src.Set(1, 0, color.NRGBA{B: 255, A: 255})

	tex, err := DecodeBytes("pair", encodePNG(t, src))
	require.NoError(t, err)
	assert.Equal(t, 2, tex.Width)
	assert.Equal(t, 1, tex.Height)
	assert.Equal(t, []byte{255, 0, 0, 255, 0, 0, 255, 255}, tex.Pixels)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeBytes("junk", []byte("not an image"))
	assert.ErrorIs(t, err, image.ErrFormat)
}

func TestChecker(t *testing.T) {
	white := color.RGBA{255, 255, 255, 255}
	black := color.RGBA{0, 0, 0, 255}
	tex := Checker("checker", 16, white, black)
	require.Len(t, tex.Pixels, 16*16*4)

	// Blocks are two texels wide
	assert.Equal(t, byte(255), tex.Pixels[0])
	assert.Equal(t, byte(255), tex.Pixels[4])
	assert.Equal(t, byte(0), tex.Pixels[8])
}

func TestCacheDecodesOnce(t *testing.T) {
	c := NewCache()
	calls := 0
	decode := func() (*Texture, error) {
		calls++
		return Solid("red", color.RGBA{R: 255, A: 255}), nil
	}
	a, err := c.Get("image#0", decode)
	require.NoError(t, err)
	b, err := c.Get("image#0", decode)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, calls)

	_, err = c.Get("image#1", func() (*Texture, error) { return nil, errors.New("boom") })
	assert.Error(t, err)
	assert.Equal(t, 1, c.Len())

	assert.Nil(t, c.GetOrDefault(""))
	assert.Nil(t, c.GetOrDefault("does/not/exist.png"))
}

func TestPanoramaLDRIsFlippedAndLinear(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 2))
	src.Set(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255}) // top
	src.Set(0, 1, color.NRGBA{R: 128, A: 255})                 // bottom

	p, err := DecodePanorama("ldr", bytes.NewReader(encodePNG(t, src)))
	require.NoError(t, err)
	assert.Equal(t, [4]float32{1, 1, 1, 1}, p.At(0, 1))
	bottom := p.At(0, 0)
	assert.InDelta(t, 0.2195, bottom[0], 1e-3)
	assert.Zero(t, bottom[1])
}

const rgbeHeader = "#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n\n"

func TestPanoramaFlatRGBE(t *testing.T) {
	data := rgbeHeader + "-Y 2 +X 1\n" + string([]byte{128, 64, 0, 129, 0, 0, 0, 0})

	p, err := DecodePanorama("flat.hdr", strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Width)
	assert.Equal(t, 2, p.Height)
	assert.Equal(t, [4]float32{0, 0, 0, 1}, p.At(0, 0))
	assert.Equal(t, [4]float32{1, 0.5, 0, 1}, p.At(0, 1))
}

func TestPanoramaRunLengthRGBE(t *testing.T) {
	scan := []byte{2, 2, 0, 8, 136, 128, 136, 64, 136, 0, 136, 129}
	data := rgbeHeader + "-Y 1 +X 8\n" + string(scan)

	p, err := DecodePanorama("rle.hdr", strings.NewReader(data))
	require.NoError(t, err)
	for x := range 8 {
		assert.Equal(t, [4]float32{1, 0.5, 0, 1}, p.At(x, 0))
	}
}

func TestPanoramaRGBEErrors(t *testing.T) {
	cases := map[string]string{
		"orientation": rgbeHeader + "+Y 1 +X 1\n" + "\x00\x00\x00\x00",
		"format":      "#?RADIANCE\nFORMAT=32-bit_rle_xyze\n\n-Y 1 +X 1\n",
		"truncated":   rgbeHeader + "-Y 2 +X 1\n" + "\x01\x01",
		"oversized":   rgbeHeader + "-Y 100000 +X 100000\n",
		"wide":        rgbeHeader + "-Y 1 +X 16385\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodePanorama(name, strings.NewReader(data))
			assert.ErrorIs(t, err, ErrRGBE)
		})
	}
}

func TestUniformPanorama(t *testing.T) {
	p := UniformPanorama(2, 2, [4]float32{0.25, 0.5, 1, 1})
	for y := range 2 {
		for x := range 2 {
			assert.Equal(t, [4]float32{0.25, 0.5, 1, 1}, p.At(x, y))
		}
	}
}
