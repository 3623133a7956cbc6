package layer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/gogpu/naga"
)

// ErrUniformMismatch is returned when draw parameters do not match the
// declared uniform block.
var ErrUniformMismatch = errors.New("layer: uniform mismatch")

// UniformType is the scalar type of a uniform field.
type UniformType int

// Uniform field types. Both are 4 bytes wide.
const (
	F32 UniformType = iota
	I32
)

func (t UniformType) wgsl() string {
	if t == I32 {
		return "i32"
	}
	return "f32"
}

// UniformField is one scalar member of a uniform block.
type UniformField struct {
	Name string
	Type UniformType
}

// UniformBlock declares a uniform struct shared by the host and the shader.
// The WGSL declaration and the packed bytes are both derived from Fields,
// so they cannot disagree on names, order or types.
type UniformBlock struct {
	// Name is the module name and the WGSL variable name.
	Name string

	// Struct is the WGSL struct type name.
	Struct string

	Fields []UniformField
}

// Size returns the byte size of the packed block, padded to 16 bytes.
func (b *UniformBlock) Size() int {
	n := len(b.Fields) * 4
	return (n + 15) &^ 15
}

// Offset returns the byte offset of the named field.
func (b *UniformBlock) Offset(name string) (int, bool) {
	for i, f := range b.Fields {
		if f.Name == name {
			return i * 4, true
		}
	}
	return 0, false
}

// Pack encodes values in declaration order, little-endian. Every field must
// be present and no other key is allowed.
func (b *UniformBlock) Pack(values map[string]float64) ([]byte, error) {
	if len(values) != len(b.Fields) {
		for name := range values {
			if _, ok := b.Offset(name); !ok {
				return nil, fmt.Errorf("%w: %s has no field %q", ErrUniformMismatch, b.Name, name)
			}
		}
	}
	buf := make([]byte, b.Size())
	for i, f := range b.Fields {
		v, ok := values[f.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s not set", ErrUniformMismatch, b.Name, f.Name)
		}
		var bits uint32
		switch f.Type {
		case I32:
			bits = uint32(int32(v))
		default:
			bits = math.Float32bits(float32(v))
		}
		binary.LittleEndian.PutUint32(buf[i*4:], bits)
	}
	return buf, nil
}

// WGSL returns the struct declaration and the uniform variable bound at
// group and binding.
func (b *UniformBlock) WGSL(group, binding int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "struct %s {\n", b.Struct)
	for _, f := range b.Fields {
		fmt.Fprintf(&sb, "    %s: %s,\n", f.Name, f.Type.wgsl())
	}
	sb.WriteString("}\n\n")
	fmt.Fprintf(&sb, "@group(%d) @binding(%d) var<uniform> %s: %s;\n", group, binding, b.Name, b.Struct)
	return sb.String()
}

// probeWGSL returns a minimal vertex shader that reads every field of the
// block, so that compiling it checks the declaration end to end.
func (b *UniformBlock) probeWGSL() string {
	var sb strings.Builder
	sb.WriteString(b.WGSL(0, 0))
	sb.WriteString("\n@vertex\nfn vs_main() -> @builtin(position) vec4<f32> {\n")
	sb.WriteString("    var s: f32 = 0.0;\n")
	for _, f := range b.Fields {
		fmt.Fprintf(&sb, "    s = s + f32(%s.%s);\n", b.Name, f.Name)
	}
	sb.WriteString("    return vec4<f32>(s, 0.0, 0.0, 1.0);\n}\n")
	return sb.String()
}

// Compile compiles the block declaration to SPIR-V. A failure means the
// declaration itself is not valid WGSL.
func (b *UniformBlock) Compile() ([]byte, error) {
	spirv, err := naga.Compile(b.probeWGSL())
	if err != nil {
		return nil, fmt.Errorf("layer: compile %s uniforms: %w", b.Name, err)
	}
	return spirv, nil
}

// PathUniforms is the uniform block of the outlined path shader. It carries
// the stroke and the outline parameters in one struct.
var PathUniforms = &UniformBlock{
	Name:   "path",
	Struct: "PathUniforms",
	Fields: []UniformField{
		{"widthScale", F32},
		{"widthMinPixels", F32},
		{"widthMaxPixels", F32},
		{"jointType", F32},
		{"capType", F32},
		{"miterLimit", F32},
		{"billboard", I32},
		{"widthUnits", I32},
		{"outlineWidthUnits", I32},
		{"outlineMinPixels", F32},
		{"outlineMaxPixels", F32},
	},
}

// StrokeUniforms is the plain path block, without outline fields. Layers
// that keep the outline in a separate module use it together with
// OutlineUniforms.
var StrokeUniforms = &UniformBlock{
	Name:   "path",
	Struct: "PathUniforms",
	Fields: []UniformField{
		{"widthScale", F32},
		{"widthMinPixels", F32},
		{"widthMaxPixels", F32},
		{"jointType", F32},
		{"capType", F32},
		{"miterLimit", F32},
		{"billboard", I32},
		{"widthUnits", I32},
	},
}

// OutlineUniforms is the outline module block.
var OutlineUniforms = &UniformBlock{
	Name:   "outline",
	Struct: "OutlineUniforms",
	Fields: []UniformField{
		{"outlineWidthUnits", I32},
		{"outlineMinPixels", F32},
		{"outlineMaxPixels", F32},
	},
}

// ViewportUniforms is supplied by the host every frame. The path shaders
// project positions to pixels with it; layers never pack it themselves.
var ViewportUniforms = &UniformBlock{
	Name:   "viewport",
	Struct: "ViewportUniforms",
	Fields: []UniformField{
		{"width", F32},
		{"height", F32},
		{"centerX", F32},
		{"centerY", F32},
		{"pixelsPerUnit", F32},
		{"unitsPerMeter", F32},
	},
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// uniformValues returns every draw parameter the blocks may ask for.
// Blocks pick the subset they declare.
func (p Props) uniformValues(capType float64) map[string]float64 {
	return map[string]float64{
		"widthScale":        p.WidthScale,
		"widthMinPixels":    p.WidthMinPixels,
		"widthMaxPixels":    p.WidthMaxPixels,
		"jointType":         boolValue(p.JointRounded),
		"capType":           capType,
		"miterLimit":        p.MiterLimit,
		"billboard":         boolValue(p.Billboard),
		"widthUnits":        float64(p.WidthUnits),
		"outlineWidthUnits": float64(p.OutlineWidthUnits),
		"outlineMinPixels":  p.OutlineMinPixels,
		"outlineMaxPixels":  p.OutlineMaxPixels,
	}
}

// packFor packs the subset of values declared by b.
func packFor(b *UniformBlock, all map[string]float64) ([]byte, error) {
	values := make(map[string]float64, len(b.Fields))
	for _, f := range b.Fields {
		if v, ok := all[f.Name]; ok {
			values[f.Name] = v
		}
	}
	return b.Pack(values)
}
