package gfx

import (
	"github.com/go-gl/mathgl/mgl32"
)

// MaxColorAttachments is the number of color targets a pass may carry.
const MaxColorAttachments = 4

// MaxVertexAttrs is the number of vertex attribute locations a layout may use.
const MaxVertexAttrs = 8

// DefaultPassFormat is the color format of the default framebuffer.
const DefaultPassFormat = FormatRGBA8

type ImageType int

const (
	Image2D ImageType = iota
	ImageCube
)

func (t ImageType) String() string {
	if t == ImageCube {
		return "cube"
	}
	return "2d"
}

// PixelFormat enumerates texel layouts. FormatNone marks an absent
// attachment in pipeline descriptors.
type PixelFormat int

const (
	FormatNone PixelFormat = iota
	FormatRGBA8
	FormatRGBA16F
	FormatRGBA32F
	FormatR16F
	FormatR32F
	FormatDepth
)

var formatNames = [...]string{"none", "rgba8", "rgba16f", "rgba32f", "r16f", "r32f", "depth"}

func (f PixelFormat) String() string {
	if f < 0 || int(f) >= len(formatNames) {
		return "invalid"
	}
	return formatNames[f]
}

func (f PixelFormat) IsDepth() bool { return f == FormatDepth }

// IsFloat reports whether texel data is supplied as float32.
func (f PixelFormat) IsFloat() bool { return f != FormatNone && f != FormatRGBA8 }

// Channels returns the number of stored components per texel.
func (f PixelFormat) Channels() int {
	switch f {
	case FormatRGBA8, FormatRGBA16F, FormatRGBA32F:
		return 4
	case FormatR16F, FormatR32F, FormatDepth:
		return 1
	}
	return 0
}

type Filter int

const (
	FilterLinear Filter = iota
	FilterNearest
)

type Wrap int

const (
	WrapClamp Wrap = iota
	WrapRepeat
)

// CubeFace selects a cube map face. Face order follows the usual
// +X, -X, +Y, -Y, +Z, -Z layout.
type CubeFace int

const (
	FacePosX CubeFace = iota
	FaceNegX
	FacePosY
	FaceNegY
	FacePosZ
	FaceNegZ
)

// CubeFaces is the number of faces of a cube image.
const CubeFaces = 6

var faceNames = [...]string{"+x", "-x", "+y", "-y", "+z", "-z"}

func (f CubeFace) String() string {
	if f < 0 || int(f) >= len(faceNames) {
		return "invalid"
	}
	return faceNames[f]
}

// ImageDesc describes an image. Rows of initial data are stored in upload
// order: row 0 is sampled at v = 0. Pixels is used by RGBA8 images, Floats by
// the float formats; only non render-target 2-D images may carry data.
type ImageDesc struct {
	Type         ImageType
	Width        int
	Height       int
	Format       PixelFormat
	RenderTarget bool
	MinFilter    Filter
	MagFilter    Filter
	Wrap         Wrap
	Pixels       []byte
	Floats       []float32
	Label        string
}

type BufferType int

const (
	VertexBuffer BufferType = iota
	IndexBuffer
)

// BufferDesc carries immutable buffer contents. Vertex buffers hold tightly
// packed float32 attributes, index buffers uint32 indices.
type BufferDesc struct {
	Type     BufferType
	Vertices []float32
	Indices  []uint32
	Label    string
}

type VertexFormat int

const (
	Float2 VertexFormat = iota + 2
	Float3
	Float4
)

// Components returns the number of floats per vertex.
func (f VertexFormat) Components() int { return int(f) }

// VertexAttr binds attribute location i (its index in the layout) to a
// tightly packed vertex buffer slot.
type VertexAttr struct {
	Buffer int
	Format VertexFormat
}

type IndexType int

const (
	IndexNone IndexType = iota
	IndexUint32
)

// CompareFunc is a depth comparison. The zero value always passes.
type CompareFunc int

const (
	CompareAlways CompareFunc = iota
	CompareNever
	CompareLess
	CompareLessEqual
	CompareEqual
	CompareGreater
	CompareGreaterEqual
	CompareNotEqual
)

// Test reports whether an incoming depth passes against the stored one.
func (c CompareFunc) Test(incoming, stored float32) bool {
	switch c {
	case CompareNever:
		return false
	case CompareLess:
		return incoming < stored
	case CompareLessEqual:
		return incoming <= stored
	case CompareEqual:
		return incoming == stored
	case CompareGreater:
		return incoming > stored
	case CompareGreaterEqual:
		return incoming >= stored
	case CompareNotEqual:
		return incoming != stored
	}
	return true
}

type CullMode int

const (
	CullNone CullMode = iota
	CullBack
	CullFront
)

// SamplerSlot declares a texture sampled by a shader. Slot i is bound to
// texture unit i.
type SamplerSlot struct {
	Name  string
	Type  ImageType
	Depth bool
}

// ShaderDesc holds GLSL 4.10 core sources for GPU backends and a reference
// program for CPU backends. Backends use whichever they can execute.
type ShaderDesc struct {
	Vertex   string
	Fragment string
	Images   []SamplerSlot
	Program  *Program
	Label    string
}

// PipelineDesc fixes the state a draw runs with. ColorFormats and
// DepthFormat must equal the formats of the pass the pipeline draws into.
type PipelineDesc struct {
	Shader       Shader
	Layout       []VertexAttr
	IndexType    IndexType
	ColorFormats []PixelFormat
	DepthFormat  PixelFormat
	DepthCompare CompareFunc
	DepthWrite   bool
	Cull         CullMode
	Label        string
}

// Access states how a pass uses an attachment.
type Access int

const (
	// AccessWrite makes the pass the producer of the image face.
	AccessWrite Access = iota
	// AccessComposite draws over contents produced by an earlier pass.
	AccessComposite
	// AccessRead uses a depth attachment for testing only.
	AccessRead
)

func (a Access) String() string {
	switch a {
	case AccessComposite:
		return "composite"
	case AccessRead:
		return "read"
	}
	return "write"
}

// Attachment names one face of an image as a render target. Face is
// ignored for 2-D images.
type Attachment struct {
	Image  Image
	Face   CubeFace
	Access Access
}

// PassDesc lists the attachments of an offscreen pass. A zero Depth image
// means the pass has no depth attachment.
type PassDesc struct {
	Colors []Attachment
	Depth  Attachment
	Label  string
}

type Action int

const (
	ActionClear Action = iota
	ActionLoad
	ActionDontCare
)

type ColorAction struct {
	Action Action
	Value  mgl32.Vec4
}

type DepthAction struct {
	Action Action
	Value  float32
}

// PassAction says what happens to each attachment when a pass begins.
type PassAction struct {
	Colors [MaxColorAttachments]ColorAction
	Depth  DepthAction
}

// Black is opaque black.
var Black = mgl32.Vec4{0, 0, 0, 1}

// ClearAction clears every color attachment to c and depth to 1.
func ClearAction(c mgl32.Vec4) PassAction {
	var a PassAction
	for i := range a.Colors {
		a.Colors[i] = ColorAction{Action: ActionClear, Value: c}
	}
	a.Depth = DepthAction{Action: ActionClear, Value: 1}
	return a
}

// LoadAction keeps the contents of every attachment.
func LoadAction() PassAction {
	var a PassAction
	for i := range a.Colors {
		a.Colors[i].Action = ActionLoad
	}
	a.Depth.Action = ActionLoad
	return a
}

// Bindings are the resources a draw reads.
type Bindings struct {
	VertexBuffers []Buffer
	IndexBuffer   Buffer
	Images        []Image
}
