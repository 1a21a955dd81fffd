package textures

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/chewxy/math32"
)

// Panorama is an equirectangular environment image in linear RGBA float32.
// Rows are stored bottom first, so v = 0 is the lowest latitude.
type Panorama struct {
	Name   string
	Width  int
	Height int
	Pixels []float32
}

// UniformPanorama returns a w x h panorama filled with one color.
func UniformPanorama(w, h int, c [4]float32) *Panorama {
	p := &Panorama{Name: "uniform", Width: w, Height: h, Pixels: make([]float32, w*h*4)}
	for i := 0; i < len(p.Pixels); i += 4 {
		copy(p.Pixels[i:i+4], c[:])
	}
	return p
}

// At returns the texel at column x of row y, row 0 being the bottom.
func (p *Panorama) At(x, y int) [4]float32 {
	i := (y*p.Width + x) * 4
	return [4]float32(p.Pixels[i : i+4])
}

// DecodePanorama reads a Radiance .hdr stream, or any registered LDR image
// format which is converted from sRGB to linear with gamma 2.2. The result
// is flipped vertically.
func DecodePanorama(name string, r io.Reader) (*Panorama, error) {
	br := bufio.NewReader(r)
	sig, _ := br.Peek(2)
	if string(sig) == "#?" {
		w, h, rgb, err := decodeRGBE(br)
		if err != nil {
			return nil, fmt.Errorf("decode panorama %q: %w", name, err)
		}
		p := &Panorama{Name: name, Width: w, Height: h, Pixels: make([]float32, w*h*4)}
		for y := range h {
			dst := (h - 1 - y) * w
			for x := range w {
				s, d := (y*w+x)*3, (dst+x)*4
				p.Pixels[d], p.Pixels[d+1], p.Pixels[d+2], p.Pixels[d+3] = rgb[s], rgb[s+1], rgb[s+2], 1
			}
		}
		return p, nil
	}

	img, _, err := image.Decode(br)
	if err != nil {
		return nil, fmt.Errorf("decode panorama %q: %w", name, err)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	p := &Panorama{Name: name, Width: w, Height: h, Pixels: make([]float32, w*h*4)}
	for y := range h {
		dst := (h - 1 - y) * w
		for x := range w {
			r, g, bl, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			d := (dst + x) * 4
			p.Pixels[d] = toLinear(r)
			p.Pixels[d+1] = toLinear(g)
			p.Pixels[d+2] = toLinear(bl)
			p.Pixels[d+3] = float32(a) / 0xffff
		}
	}
	return p, nil
}

func toLinear(c uint32) float32 {
	return math32.Pow(float32(c)/0xffff, 2.2)
}

// LoadPanorama reads an environment image from disk.
func LoadPanorama(path string) (*Panorama, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open panorama %q: %w", path, err)
	}
	defer f.Close()
	return DecodePanorama(path, f)
}
