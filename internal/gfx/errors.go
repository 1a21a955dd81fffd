package gfx

import "errors"

var (
	ErrInvalidHandle   = errors.New("gfx: invalid handle")
	ErrInvalidDesc     = errors.New("gfx: invalid descriptor")
	ErrFormatMismatch  = errors.New("gfx: pipeline format does not match pass")
	ErrImageType       = errors.New("gfx: image type does not match sampler slot")
	ErrAttachmentSize  = errors.New("gfx: attachments differ in size")
	ErrNotRenderTarget = errors.New("gfx: image is not a render target")
	ErrOutsidePass     = errors.New("gfx: command outside of a pass")
	ErrInsidePass      = errors.New("gfx: command inside of a pass")
	ErrMultipleWriters = errors.New("gfx: image already has a producer")
	ErrNoProducer      = errors.New("gfx: image has no producer")
	ErrPoolExhausted   = errors.New("gfx: handle pool exhausted")
)
