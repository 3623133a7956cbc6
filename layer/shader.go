package layer

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gogpu/naga"

	"github.com/gogpu/outpath/internal/cache"
)

//go:embed shaders/path.wgsl
var pathShaderWGSL string

// spirvCache holds compiled shaders by layer kind.
var spirvCache = cache.New[string, []byte](8)

// Bind group 0 layout of the path shaders. The layer's own blocks follow
// the viewport in declaration order.
const (
	shaderBindGroup   = 0
	viewportBinding   = 0
	firstLayerBinding = 1
)

// ShaderSource returns the complete WGSL of the layer: the viewport block,
// the layer's uniform blocks and the segment shader. The entry points are
// vs_main, fs_main and fs_picking. The shader reads single precision
// positions only; FP64 layers need a host shader for the 64Low inputs.
func (l *PathLayer[T]) ShaderSource() string {
	return shaderSource(l.variant)
}

// CompileShader compiles ShaderSource to SPIR-V. Layers of the same kind
// share the result, which must not be modified.
func (l *PathLayer[T]) CompileShader() ([]byte, error) {
	spirv, err := spirvCache.GetOrCreate(l.variant.name, func() ([]byte, error) {
		return naga.Compile(l.ShaderSource())
	})
	if err != nil {
		return nil, fmt.Errorf("layer %s: compile shader: %w", l.id, err)
	}
	return spirv, nil
}

func shaderSource(v variant) string {
	var sb strings.Builder
	sb.WriteString(ViewportUniforms.WGSL(shaderBindGroup, viewportBinding))
	sb.WriteString("\n")

	outline := v.blocks[0]
	for i, b := range v.blocks {
		sb.WriteString(b.WGSL(shaderBindGroup, firstLayerBinding+i))
		sb.WriteString("\n")
		if b == OutlineUniforms {
			outline = b
		}
	}
	for _, f := range OutlineUniforms.Fields {
		fmt.Fprintf(&sb, "fn %s() -> %s { return %s.%s; }\n", f.Name, f.Type.wgsl(), outline.Name, f.Name)
	}
	sb.WriteString("\n")
	sb.WriteString(pathShaderWGSL)
	return sb.String()
}
