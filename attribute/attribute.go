// Package attribute manages the per-instance vertex attributes of a layer.
//
// Attributes are declared once with [Manager.AddInstanced]. Accessor driven
// attributes are evaluated once per record and the encoded value is
// repeated for every instance of that record, as given by the start indices
// of the tesselator. Attributes with a custom Update function (positions,
// segment types) fill their buffers directly.
package attribute

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
)

// Type is the component type of an attribute buffer.
type Type int

// Component types.
const (
	Float32 Type = iota
	Unorm8
	Uint8
	Uint32
)

// Size returns the byte size of one component.
func (t Type) Size() int {
	switch t {
	case Unorm8, Uint8:
		return 1
	default:
		return 4
	}
}

func (t Type) String() string {
	switch t {
	case Float32:
		return "float32"
	case Unorm8:
		return "unorm8"
	case Uint8:
		return "uint8"
	case Uint32:
		return "uint32"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// VertexFormat returns the GPU vertex format for size components of type t.
// It reports false for combinations WebGPU cannot express.
func VertexFormat(t Type, size int) (format gputypes.VertexFormat, ok bool) {
	switch t {
	case Float32:
		switch size {
		case 1:
			return gputypes.VertexFormatFloat32, true
		case 2:
			return gputypes.VertexFormatFloat32x2, true
		case 3:
			return gputypes.VertexFormatFloat32x3, true
		case 4:
			return gputypes.VertexFormatFloat32x4, true
		}
	case Unorm8:
		switch size {
		case 2:
			return gputypes.VertexFormatUnorm8x2, true
		case 4:
			return gputypes.VertexFormatUnorm8x4, true
		}
	case Uint8:
		switch size {
		case 2:
			return gputypes.VertexFormatUint8x2, true
		case 4:
			return gputypes.VertexFormatUint8x4, true
		}
	case Uint32:
		switch size {
		case 1:
			return gputypes.VertexFormatUint32, true
		case 2:
			return gputypes.VertexFormatUint32x2, true
		}
	}
	return format, false
}

// Accessor writes the value of one record into dst. dst holds the default
// value on entry, so an accessor may leave components it does not know.
type Accessor func(record int, dst []float64)

// ShaderAttribute exposes a slice of an attribute's components under its
// own shader name, such as the left/start/end/right parts of a position
// window.
type ShaderAttribute struct {
	Name   string
	Offset int // first component
	Size   int
}

// Descriptor declares an instanced attribute.
type Descriptor struct {
	Name string
	Size int
	Type Type

	// Default is the value used when there is no accessor, and the initial
	// value handed to the accessor.
	Default []float64

	// Accessor evaluates the attribute per record. AccessorName identifies
	// it for [Manager.InvalidateAccessor].
	Accessor     Accessor
	AccessorName string

	// Update replaces the accessor loop. It must call SetValue.
	Update func(a *Attribute, ctx Context)

	// ShaderAttributes splits the attribute into several shader inputs.
	// Empty means one input named Name.
	ShaderAttributes []ShaderAttribute
}

// Attribute is a declared attribute together with its current buffer.
type Attribute struct {
	desc        Descriptor
	value       []byte
	count       int
	needsUpdate bool
}

// Name returns the attribute name.
func (a *Attribute) Name() string { return a.desc.Name }

// Size returns the number of components per instance.
func (a *Attribute) Size() int { return a.desc.Size }

// Type returns the component type.
func (a *Attribute) Type() Type { return a.desc.Type }

// Stride returns the byte size of one instance.
func (a *Attribute) Stride() int { return a.desc.Size * a.desc.Type.Size() }

// Value returns the encoded buffer. It must not be modified.
func (a *Attribute) Value() []byte { return a.value }

// Count returns the number of instances in the buffer.
func (a *Attribute) Count() int { return a.count }

// NeedsUpdate reports whether the attribute is invalidated.
func (a *Attribute) NeedsUpdate() bool { return a.needsUpdate }

// SetValue replaces the buffer with count instances read from values,
// which holds Size components per instance.
func (a *Attribute) SetValue(values []float64, count int) {
	a.value = a.alloc(count)
	a.count = count
	stride := a.Stride()
	for i := range count {
		a.encode(a.value[i*stride:], values[i*a.desc.Size:(i+1)*a.desc.Size])
	}
}

// Component returns component c of instance i as float64.
func (a *Attribute) Component(i, c int) float64 {
	off := i*a.Stride() + c*a.desc.Type.Size()
	switch a.desc.Type {
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(a.value[off:])))
	case Unorm8, Uint8:
		return float64(a.value[off])
	case Uint32:
		return float64(binary.LittleEndian.Uint32(a.value[off:]))
	}
	return 0
}

func (a *Attribute) alloc(count int) []byte {
	n := count * a.Stride()
	if cap(a.value) >= n {
		return a.value[:n]
	}
	return make([]byte, n)
}

// encode writes one instance worth of components into dst.
func (a *Attribute) encode(dst []byte, v []float64) {
	size := a.desc.Type.Size()
	for c, x := range v {
		switch a.desc.Type {
		case Float32:
			binary.LittleEndian.PutUint32(dst[c*size:], math.Float32bits(float32(x)))
		case Unorm8, Uint8:
			dst[c] = clampByte(x)
		case Uint32:
			if x < 0 || math.IsNaN(x) {
				x = 0
			}
			binary.LittleEndian.PutUint32(dst[c*size:], uint32(min(x, math.MaxUint32)))
		}
	}
}

func clampByte(x float64) byte {
	switch {
	case math.IsNaN(x) || x <= 0:
		return 0
	case x >= 255:
		return 255
	}
	return byte(math.Round(x))
}

// shaderAttributes returns the shader inputs, defaulting to one input that
// covers all components.
func (a *Attribute) shaderAttributes() []ShaderAttribute {
	if len(a.desc.ShaderAttributes) > 0 {
		return a.desc.ShaderAttributes
	}
	return []ShaderAttribute{{Name: a.desc.Name, Offset: 0, Size: a.desc.Size}}
}
