package textures

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var ErrRGBE = errors.New("textures: malformed Radiance HDR")

// maxRGBESide bounds each header dimension before pixel memory is allocated.
const maxRGBESide = 16384

// decodeRGBE reads a Radiance .hdr stream with the standard "-Y h +X w"
// orientation into linear RGB floats, top row first.
func decodeRGBE(r *bufio.Reader) (w, h int, rgb []float32, err error) {
	magic, err := r.ReadString('\n')
	if err != nil {
		return 0, 0, nil, fmt.Errorf("%w: header: %v", ErrRGBE, err)
	}
	if !strings.HasPrefix(magic, "#?") {
		return 0, 0, nil, fmt.Errorf("%w: missing #? signature", ErrRGBE)
	}
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return 0, 0, nil, fmt.Errorf("%w: header: %v", ErrRGBE, err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if v, ok := strings.CutPrefix(line, "FORMAT="); ok && v != "32-bit_rle_rgbe" {
			return 0, 0, nil, fmt.Errorf("%w: unsupported format %q", ErrRGBE, v)
		}
	}
	res, err := r.ReadString('\n')
	if err != nil {
		return 0, 0, nil, fmt.Errorf("%w: resolution: %v", ErrRGBE, err)
	}
	f := strings.Fields(res)
	if len(f) != 4 || f[0] != "-Y" || f[2] != "+X" {
		return 0, 0, nil, fmt.Errorf("%w: unsupported orientation %q", ErrRGBE, strings.TrimSpace(res))
	}
	if h, err = strconv.Atoi(f[1]); err != nil || h <= 0 || h > maxRGBESide {
		return 0, 0, nil, fmt.Errorf("%w: height %q", ErrRGBE, f[1])
	}
	if w, err = strconv.Atoi(f[3]); err != nil || w <= 0 || w > maxRGBESide {
		return 0, 0, nil, fmt.Errorf("%w: width %q", ErrRGBE, f[3])
	}

	rgb = make([]float32, w*h*3)
	line := make([]byte, w*4)
	for y := range h {
		if err := readScanline(r, line, w); err != nil {
			return 0, 0, nil, fmt.Errorf("%w: scanline %d: %v", ErrRGBE, y, err)
		}
		for x := range w {
			e := line[x*4+3]
			if e == 0 {
				continue
			}
			scale := float32(math.Ldexp(1, int(e)-(128+8)))
			i := (y*w + x) * 3
			rgb[i] = float32(line[x*4]) * scale
			rgb[i+1] = float32(line[x*4+1]) * scale
			rgb[i+2] = float32(line[x*4+2]) * scale
		}
	}
	return w, h, rgb, nil
}

// readScanline fills line with w RGBE pixels, undoing the per-channel run
// length encoding when the scanline uses it.
func readScanline(r *bufio.Reader, line []byte, w int) error {
	head, err := r.Peek(4)
	if err != nil {
		return err
	}
	if w < 8 || w >= 32768 || head[0] != 2 || head[1] != 2 || head[2]&0x80 != 0 {
		_, err := io.ReadFull(r, line)
		return err
	}
	if int(head[2])<<8|int(head[3]) != w {
		return errors.New("scanline width mismatch")
	}
	if _, err := r.Discard(4); err != nil {
		return err
	}
	for ch := range 4 {
		for x := 0; x < w; {
			n, err := r.ReadByte()
			if err != nil {
				return err
			}
			if n > 128 {
				count := int(n - 128)
				v, err := r.ReadByte()
				if err != nil {
					return err
				}
				if x+count > w {
					return errors.New("run overflows scanline")
				}
				for ; count > 0; count-- {
					line[x*4+ch] = v
					x++
				}
				continue
			}
			count := int(n)
			if count == 0 || x+count > w {
				return errors.New("bad literal run")
			}
			for ; count > 0; count-- {
				v, err := r.ReadByte()
				if err != nil {
					return err
				}
				line[x*4+ch] = v
				x++
			}
		}
	}
	return nil
}
