package gfx

// Backend executes validated commands. Descriptors handed to Create methods
// have passed Context validation; handles passed to per-frame methods are
// live. A Backend is used from a single goroutine.
type Backend interface {
	Name() string

	CreateImage(h Image, desc *ImageDesc) error
	CreateBuffer(h Buffer, desc *BufferDesc) error
	CreateShader(h Shader, desc *ShaderDesc) error
	CreatePipeline(h Pipeline, desc *PipelineDesc) error
	CreatePass(h Pass, desc *PassDesc) error

	DestroyImage(h Image)
	DestroyBuffer(h Buffer)
	DestroyShader(h Shader)
	DestroyPipeline(h Pipeline)
	DestroyPass(h Pass)

	BeginPass(h Pass, action *PassAction)
	BeginDefaultPass(action *PassAction, width, height int)
	ApplyPipeline(h Pipeline)
	ApplyBindings(b *Bindings)
	ApplyUniforms(u Uniforms)
	Draw(base, count, instances int)
	EndPass()

	// Commit ends the frame and reports any failure the device observed
	// while executing it.
	Commit() error
}
