package gfx

import (
	"fmt"
	"slices"
)

func validateImage(d *ImageDesc) error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidDesc, d.Width, d.Height)
	}
	if d.Format <= FormatNone || d.Format > FormatDepth {
		return fmt.Errorf("%w: format %d", ErrInvalidDesc, d.Format)
	}
	switch d.Type {
	case Image2D:
	case ImageCube:
		if d.Width != d.Height {
			return fmt.Errorf("%w: cube faces must be square, got %dx%d", ErrInvalidDesc, d.Width, d.Height)
		}
		if d.Format.IsDepth() {
			return fmt.Errorf("%w: depth cube maps are not supported", ErrInvalidDesc)
		}
	default:
		return fmt.Errorf("%w: image type %d", ErrInvalidDesc, d.Type)
	}
	if d.Format.IsDepth() && !d.RenderTarget {
		return fmt.Errorf("%w: depth images must be render targets", ErrInvalidDesc)
	}
	hasData := d.Pixels != nil || d.Floats != nil
	if hasData && (d.RenderTarget || d.Type != Image2D) {
		return fmt.Errorf("%w: only sampled 2-D images carry initial data", ErrInvalidDesc)
	}
	texels := d.Width * d.Height * d.Format.Channels()
	switch {
	case d.Pixels != nil && d.Floats != nil:
		return fmt.Errorf("%w: both byte and float data given", ErrInvalidDesc)
	case d.Pixels != nil:
		if d.Format != FormatRGBA8 {
			return fmt.Errorf("%w: byte data for %s image", ErrInvalidDesc, d.Format)
		}
		if len(d.Pixels) != texels {
			return fmt.Errorf("%w: %d bytes for %d texel components", ErrInvalidDesc, len(d.Pixels), texels)
		}
	case d.Floats != nil:
		if !d.Format.IsFloat() {
			return fmt.Errorf("%w: float data for %s image", ErrInvalidDesc, d.Format)
		}
		if len(d.Floats) != texels {
			return fmt.Errorf("%w: %d floats for %d texel components", ErrInvalidDesc, len(d.Floats), texels)
		}
	}
	return nil
}

func validateShader(d *ShaderDesc) error {
	hasGLSL := d.Vertex != "" && d.Fragment != ""
	if !hasGLSL && d.Program == nil {
		return fmt.Errorf("%w: shader has neither sources nor a reference program", ErrInvalidDesc)
	}
	if p := d.Program; p != nil {
		if p.Vertex == nil {
			return fmt.Errorf("%w: reference program without vertex stage", ErrInvalidDesc)
		}
		if p.Varyings < 0 || p.Varyings > MaxVaryings {
			return fmt.Errorf("%w: %d varyings, at most %d", ErrInvalidDesc, p.Varyings, MaxVaryings)
		}
	}
	seen := make(map[string]bool, len(d.Images))
	for i, s := range d.Images {
		if s.Name == "" {
			return fmt.Errorf("%w: sampler slot %d has no name", ErrInvalidDesc, i)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: sampler %q declared twice", ErrInvalidDesc, s.Name)
		}
		if s.Depth && s.Type != Image2D {
			return fmt.Errorf("%w: depth sampler %q must be 2-D", ErrInvalidDesc, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

func (c *Context) validatePipeline(d *PipelineDesc) error {
	if _, ok := c.shaders.get(d.Shader.id); !ok {
		return fmt.Errorf("%w: shader %d", ErrInvalidHandle, d.Shader.id)
	}
	if len(d.Layout) > MaxVertexAttrs {
		return fmt.Errorf("%w: %d vertex attributes, at most %d", ErrInvalidDesc, len(d.Layout), MaxVertexAttrs)
	}
	for i, a := range d.Layout {
		if a.Buffer < 0 || a.Format < Float2 || a.Format > Float4 {
			return fmt.Errorf("%w: vertex attribute %d", ErrInvalidDesc, i)
		}
	}
	if len(d.ColorFormats) > MaxColorAttachments {
		return fmt.Errorf("%w: %d color formats, at most %d", ErrInvalidDesc, len(d.ColorFormats), MaxColorAttachments)
	}
	for i, f := range d.ColorFormats {
		if f <= FormatNone || f >= FormatDepth {
			return fmt.Errorf("%w: color format %d is %s", ErrInvalidDesc, i, f)
		}
	}
	if d.DepthFormat != FormatNone && !d.DepthFormat.IsDepth() {
		return fmt.Errorf("%w: depth format %s", ErrInvalidDesc, d.DepthFormat)
	}
	if d.DepthWrite && d.DepthFormat == FormatNone {
		return fmt.Errorf("%w: depth write without depth format", ErrInvalidDesc)
	}
	if len(d.ColorFormats) == 0 && d.DepthFormat == FormatNone {
		return fmt.Errorf("%w: pipeline has no outputs", ErrInvalidDesc)
	}
	return nil
}

func (c *Context) validatePass(d *PassDesc) (passInfo, error) {
	info := passInfo{desc: *d}
	if len(d.Colors) > MaxColorAttachments {
		return info, fmt.Errorf("%w: %d color attachments, at most %d", ErrInvalidDesc, len(d.Colors), MaxColorAttachments)
	}
	if len(d.Colors) == 0 && d.Depth.Image.IsZero() {
		return info, fmt.Errorf("%w: pass has no attachments", ErrInvalidDesc)
	}
	var seen []faceKey
	check := func(a Attachment, depth bool) error {
		img, ok := c.images.get(a.Image.id)
		if !ok {
			return fmt.Errorf("%w: attachment image %d", ErrInvalidHandle, a.Image.id)
		}
		if !img.RenderTarget {
			return fmt.Errorf("%w: %q", ErrNotRenderTarget, img.Label)
		}
		if img.Format.IsDepth() != depth {
			return fmt.Errorf("%w: %q has format %s", ErrFormatMismatch, img.Label, img.Format)
		}
		if img.Type == ImageCube && (a.Face < FacePosX || a.Face > FaceNegZ) {
			return fmt.Errorf("%w: cube face %d", ErrInvalidDesc, a.Face)
		}
		if info.width == 0 {
			info.width, info.height = img.Width, img.Height
		} else if img.Width != info.width || img.Height != info.height {
			return fmt.Errorf("%w: %q is %dx%d, pass is %dx%d",
				ErrAttachmentSize, img.Label, img.Width, img.Height, info.width, info.height)
		}
		k := c.key(a)
		if slices.Contains(seen, k) {
			return fmt.Errorf("%w: %q attached twice", ErrInvalidDesc, img.Label)
		}
		seen = append(seen, k)
		switch a.Access {
		case AccessWrite:
			if owner, ok := c.producers[k]; ok {
				return fmt.Errorf("%w: %q face %s is written by %q", ErrMultipleWriters, img.Label, k.face, owner)
			}
		case AccessComposite, AccessRead:
			if a.Access == AccessRead && !depth {
				return fmt.Errorf("%w: read-only access is for depth attachments", ErrInvalidDesc)
			}
			if _, ok := c.producers[k]; !ok {
				return fmt.Errorf("%w: %q face %s", ErrNoProducer, img.Label, k.face)
			}
		default:
			return fmt.Errorf("%w: access %d", ErrInvalidDesc, a.Access)
		}
		return nil
	}
	for _, a := range d.Colors {
		if err := check(a, false); err != nil {
			return info, err
		}
		img, _ := c.images.get(a.Image.id)
		info.colors = append(info.colors, img.Format)
	}
	if !d.Depth.Image.IsZero() {
		if err := check(d.Depth, true); err != nil {
			return info, err
		}
		info.depth = FormatDepth
	}
	return info, nil
}

func checkFormats(info *passInfo, pip *PipelineDesc) error {
	if !slices.Equal(info.colors, pip.ColorFormats) {
		return fmt.Errorf("%w: pipeline %q colors %v, pass %q colors %v",
			ErrFormatMismatch, pip.Label, pip.ColorFormats, info.desc.Label, info.colors)
	}
	if info.depth != pip.DepthFormat {
		return fmt.Errorf("%w: pipeline %q depth %s, pass %q depth %s",
			ErrFormatMismatch, pip.Label, pip.DepthFormat, info.desc.Label, info.depth)
	}
	if pip.DepthWrite && info.desc.Depth.Access == AccessRead && !info.desc.Depth.Image.IsZero() {
		return fmt.Errorf("%w: pipeline %q writes depth into read-only attachment of %q",
			ErrFormatMismatch, pip.Label, info.desc.Label)
	}
	return nil
}

// checkBindings validates b against pip and returns the number of indices
// and the smallest vertex count across the bound vertex buffers (-1 when the
// layout is empty).
func (c *Context) checkBindings(info *passInfo, pip *PipelineDesc, shader *ShaderDesc, b *Bindings) (int, int, error) {
	vertices := -1
	for i, a := range pip.Layout {
		if a.Buffer >= len(b.VertexBuffers) {
			return 0, 0, fmt.Errorf("%w: attribute %d needs vertex buffer slot %d", ErrInvalidDesc, i, a.Buffer)
		}
		buf, ok := c.buffers.get(b.VertexBuffers[a.Buffer].id)
		if !ok {
			return 0, 0, fmt.Errorf("%w: vertex buffer slot %d", ErrInvalidHandle, a.Buffer)
		}
		if buf.typ != VertexBuffer {
			return 0, 0, fmt.Errorf("%w: %q is not a vertex buffer", ErrInvalidDesc, buf.label)
		}
		if n := buf.count / a.Format.Components(); vertices < 0 || n < vertices {
			vertices = n
		}
	}
	indexed := 0
	if pip.IndexType == IndexUint32 {
		buf, ok := c.buffers.get(b.IndexBuffer.id)
		if !ok {
			return 0, 0, fmt.Errorf("%w: index buffer", ErrInvalidHandle)
		}
		if buf.typ != IndexBuffer {
			return 0, 0, fmt.Errorf("%w: %q is not an index buffer", ErrInvalidDesc, buf.label)
		}
		indexed = buf.count
	}
	if len(b.Images) < len(shader.Images) {
		return 0, 0, fmt.Errorf("%w: shader %q samples %d images, %d bound",
			ErrInvalidDesc, shader.Label, len(shader.Images), len(b.Images))
	}
	for i, slot := range shader.Images {
		img, ok := c.images.get(b.Images[i].id)
		if !ok {
			return 0, 0, fmt.Errorf("%w: image for sampler %q", ErrInvalidHandle, slot.Name)
		}
		if img.Type != slot.Type {
			return 0, 0, fmt.Errorf("%w: sampler %q is %s, %q is %s", ErrImageType, slot.Name, slot.Type, img.Label, img.Type)
		}
		if img.Format.IsDepth() != slot.Depth {
			return 0, 0, fmt.Errorf("%w: sampler %q depth=%t, %q is %s", ErrImageType, slot.Name, slot.Depth, img.Label, img.Format)
		}
		for _, a := range attachments(&info.desc) {
			if a.Image == b.Images[i] {
				return 0, 0, fmt.Errorf("%w: %q is sampled while attached to %q", ErrInvalidDesc, img.Label, info.desc.Label)
			}
		}
	}
	return indexed, vertices, nil
}
