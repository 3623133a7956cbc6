package layer

import (
	"context"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/outpath/attribute"
)

// UniformBinding is one packed uniform block of a draw call.
type UniformBinding struct {
	Block *UniformBlock
	Data  []byte
}

// DrawCall is everything a host needs to issue one instanced draw of a
// layer. The buffers are owned by the layer and are valid until its next
// Update.
type DrawCall struct {
	Layer string

	Topology    gputypes.PrimitiveTopology
	IndexFormat gputypes.IndexFormat
	Indices     []uint16

	// Geometry is the per-vertex template, laid out as GeometryLayout.
	Geometry       []float32
	GeometryLayout gputypes.VertexBufferLayout

	// Instances are the per-instance attribute buffers.
	Instances     []attribute.Binding
	InstanceCount int

	Uniforms []UniformBinding
}

// Uniform returns the packed bytes of the named block, or nil.
func (c *DrawCall) Uniform(name string) []byte {
	for _, u := range c.Uniforms {
		if u.Block.Name == name {
			return u.Data
		}
	}
	return nil
}

// Renderer is the host rendering framework. It owns the GPU device,
// compiles the layer's shaders and executes draw calls.
type Renderer interface {
	DrawInstanced(ctx context.Context, call *DrawCall) error
}

// RendererFunc adapts a function to [Renderer].
type RendererFunc func(ctx context.Context, call *DrawCall) error

// DrawInstanced calls f.
func (f RendererFunc) DrawInstanced(ctx context.Context, call *DrawCall) error {
	return f(ctx, call)
}
