package gfx

import "math"

// Handles are opaque ids issued by a Context. The low 16 bits hold the slot
// index plus one, the high 16 bits the slot generation, so the zero value is
// never a live object and a destroyed handle never becomes valid again. A
// slot whose generation is exhausted is retired instead of reused.

// Image identifies a 2-D texture or cube map.
type Image struct{ id uint32 }

// Buffer identifies a vertex or index buffer.
type Buffer struct{ id uint32 }

// Shader identifies a linked shader program.
type Shader struct{ id uint32 }

// Pipeline identifies a fixed-function state block bound to a shader.
type Pipeline struct{ id uint32 }

// Pass identifies a set of render-target attachments.
type Pass struct{ id uint32 }

func (h Image) ID() uint32      { return h.id }
func (h Image) IsZero() bool    { return h.id == 0 }
func (h Buffer) ID() uint32     { return h.id }
func (h Buffer) IsZero() bool   { return h.id == 0 }
func (h Shader) ID() uint32     { return h.id }
func (h Shader) IsZero() bool   { return h.id == 0 }
func (h Pipeline) ID() uint32   { return h.id }
func (h Pipeline) IsZero() bool { return h.id == 0 }
func (h Pass) ID() uint32       { return h.id }
func (h Pass) IsZero() bool     { return h.id == 0 }

const (
	indexBits = 16
	indexMask = 1<<indexBits - 1
	maxSlots  = indexMask
)

type slot[D any] struct {
	gen   uint16
	alive bool
	desc  D
}

// pool is a generation-checked arena of descriptors.
type pool[D any] struct {
	slots []slot[D]
	free  []uint32
	live  int
}

func (p *pool[D]) alloc(desc D) (uint32, bool) {
	var idx uint32
	if n := len(p.free); n > 0 {
		idx = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		if len(p.slots) >= maxSlots {
			return 0, false
		}
		p.slots = append(p.slots, slot[D]{})
		idx = uint32(len(p.slots) - 1)
	}
	s := &p.slots[idx]
	s.gen++
	s.alive = true
	s.desc = desc
	p.live++
	return uint32(s.gen)<<indexBits | (idx + 1), true
}

func (p *pool[D]) get(id uint32) (*D, bool) {
	idx := id & indexMask
	if idx == 0 || int(idx) > len(p.slots) {
		return nil, false
	}
	s := &p.slots[idx-1]
	if !s.alive || uint32(s.gen) != id>>indexBits {
		return nil, false
	}
	return &s.desc, true
}

func (p *pool[D]) release(id uint32) bool {
	if _, ok := p.get(id); !ok {
		return false
	}
	idx := id&indexMask - 1
	var zero D
	p.slots[idx].alive = false
	p.slots[idx].desc = zero
	if p.slots[idx].gen < math.MaxUint16 {
		p.free = append(p.free, idx)
	}
	p.live--
	return true
}

// each visits every live descriptor.
func (p *pool[D]) each(fn func(id uint32, desc *D)) {
	for i := range p.slots {
		s := &p.slots[i]
		if s.alive {
			fn(uint32(s.gen)<<indexBits|uint32(i+1), &s.desc)
		}
	}
}
