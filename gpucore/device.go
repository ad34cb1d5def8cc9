package gpucore

import "errors"

// Errors returned by Device implementations.
var (
	// ErrUnknownResource is returned when an ID does not name a live resource.
	ErrUnknownResource = errors.New("gpucore: unknown resource")

	// ErrUnsupportedProgram is returned when a device cannot execute a program.
	ErrUnsupportedProgram = errors.New("gpucore: unsupported program")

	// ErrPassEnded is returned when a pass is used after End.
	ErrPassEnded = errors.New("gpucore: pass already ended")

	// ErrBufferOverflow is returned when more instances are written than
	// the buffer holds.
	ErrBufferOverflow = errors.New("gpucore: instance buffer overflow")
)

// Limits reports device capabilities relevant to the pipeline.
type Limits struct {
	// MaxTextureDimension is the largest width or height of a 2D texture
	// or render target.
	MaxTextureDimension int
}

// Device abstracts over backend implementations.
//
// Devices are driven from a single goroutine. Implementations need not be
// safe for concurrent use.
type Device interface {
	// Name identifies the backend and adapter for logs.
	Name() string

	// Limits returns device capabilities.
	Limits() Limits

	// CreateTexture allocates a sampled texture, uploads pixels into mip
	// level 0 and generates the remaining levels.
	CreateTexture(desc TextureDescriptor, pixels []byte) (TextureID, error)

	// DestroyTexture releases a texture.
	DestroyTexture(id TextureID)

	// CreateTarget allocates an offscreen color target.
	CreateTarget(width, height int) (TargetID, error)

	// DestroyTarget releases a render target.
	DestroyTarget(id TargetID)

	// CreateProgram compiles a render program.
	CreateProgram(desc ProgramDescriptor) (ProgramID, error)

	// DestroyProgram releases a program.
	DestroyProgram(id ProgramID)

	// CreateInstanceBuffer allocates a buffer for capacity instance records.
	CreateInstanceBuffer(capacity int) (BufferID, error)

	// DestroyBuffer releases an instance buffer.
	DestroyBuffer(id BufferID)

	// BeginPass starts recording draws into target, cleared to clear.
	BeginPass(target TargetID, clear [4]float32) (Pass, error)

	// ReadPixels returns the target contents as premultiplied RGBA
	// float32 values, row-major, top row first.
	ReadPixels(target TargetID) ([]float32, error)

	// Destroy releases the device and every resource created from it.
	Destroy()
}

// Pass records draws into one render target.
//
// WriteInstances overwrites the start of the buffer. A draw sees the
// instance data written before it, even when the buffer is overwritten
// again later in the same pass.
type Pass interface {
	// SetProgram selects the program for subsequent draws.
	SetProgram(id ProgramID)

	// SetBindings selects the textures for subsequent draws.
	SetBindings(b Bindings)

	// SetUniforms sets the scalar uniforms for subsequent draws.
	SetUniforms(u Uniforms)

	// WriteInstances overwrites buffer with records starting at index 0.
	WriteInstances(buffer BufferID, records []Instance) error

	// Draw issues one instanced draw of vertexCount quad vertices reading
	// instanceCount records from buffer. Procedural programs read no
	// instances and pass InvalidID.
	Draw(buffer BufferID, vertexCount, instanceCount int) error

	// End finishes the pass and submits it.
	End() error
}
