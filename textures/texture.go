package textures

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"sync"

	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"deferred-viewer/internal/logging"
)

// Texture holds CPU-side RGBA8 pixels, row-major from the top row of the
// source image. glTF texture coordinates address this layout directly.
type Texture struct {
	Name   string
	Width  int
	Height int
	Pixels []byte
}

// Decode reads any registered image format and converts it to RGBA8.
func Decode(name string, r io.Reader) (*Texture, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode texture %q: %w", name, err)
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(rgba, rgba.Bounds(), img, b.Min, xdraw.Src)
	return &Texture{Name: name, Width: b.Dx(), Height: b.Dy(), Pixels: rgba.Pix}, nil
}

// DecodeBytes decodes an in-memory image such as a glTF buffer view.
func DecodeBytes(name string, data []byte) (*Texture, error) {
	return Decode(name, bytes.NewReader(data))
}

// Load reads an image file from disk.
func Load(path string) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open texture %q: %w", path, err)
	}
	defer f.Close()
	return Decode(path, f)
}

// Solid returns a 1x1 texture of color c.
func Solid(name string, c color.RGBA) *Texture {
	return &Texture{Name: name, Width: 1, Height: 1, Pixels: []byte{c.R, c.G, c.B, c.A}}
}

// Checker returns a size x size checkerboard with 8 cells per side.
func Checker(name string, size int, c1, c2 color.RGBA) *Texture {
	pixels := make([]byte, size*size*4)
	block := max(size/8, 1)
	for y := range size {
		for x := range size {
			c := c2
			if (x/block+y/block)%2 == 0 {
				c = c1
			}
			i := (y*size + x) * 4
			pixels[i], pixels[i+1], pixels[i+2], pixels[i+3] = c.R, c.G, c.B, c.A
		}
	}
	return &Texture{Name: name, Width: size, Height: size, Pixels: pixels}
}

// Cache shares decoded textures between materials that reference the same
// source.
type Cache struct {
	mu       sync.RWMutex
	textures map[string]*Texture
}

func NewCache() *Cache {
	return &Cache{textures: make(map[string]*Texture)}
}

// Get returns the texture cached under key, decoding it on first use.
func (c *Cache) Get(key string, decode func() (*Texture, error)) (*Texture, error) {
	c.mu.RLock()
	if tex, ok := c.textures[key]; ok {
		c.mu.RUnlock()
		return tex, nil
	}
	c.mu.RUnlock()

	tex, err := decode()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.textures[key]; ok {
		return prev, nil
	}
	c.textures[key] = tex
	return tex, nil
}

// Load reads path through the cache.
func (c *Cache) Load(path string) (*Texture, error) {
	return c.Get(path, func() (*Texture, error) { return Load(path) })
}

// GetOrDefault returns the texture at path, or nil after logging a warning
// when it cannot be read. An empty path yields nil.
func (c *Cache) GetOrDefault(path string) *Texture {
	if path == "" {
		return nil
	}
	tex, err := c.Load(path)
	if err != nil {
		logging.Logger().Warn("textures: using base color only", "path", path, "err", err)
		return nil
	}
	return tex
}

// Len returns the number of cached textures.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.textures)
}
