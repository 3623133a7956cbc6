// Package layer implements the path layers on top of the tesselator: a
// PathLayer declares its instanced attributes, keeps the tesselation in sync
// with its data and hands one instanced draw call per frame to a host
// [Renderer].
//
// The three layer kinds are the same PathLayer with a different variant:
//
//   - OutPathLayer: stroke and outline parameters in one "path" uniform block
//   - OutlinedPathLayer: a plain "path" block plus a separate "outline" block
//   - OutlineLayer: two-point segments from source and target accessors
package layer

import (
	"context"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/outpath"
	"github.com/gogpu/outpath/attribute"
	"github.com/gogpu/outpath/tesselator"
)

// Attribute names.
const (
	AttrPositions     = "instancePositions"
	AttrTypes         = "instanceTypes"
	AttrStrokeWidths  = "instanceStrokeWidths"
	AttrOutlineWidths = "instanceOutlineWidths"
	AttrColors        = "instanceColors"
	AttrOutlineColors = "instanceOutlineColors"
	AttrPickingColors = "instancePickingColors"
)

// Accessor names, as used in [UpdateTriggers].
const (
	AccessorPath         = "getPath"
	AccessorColor        = "getColor"
	AccessorWidth        = "getWidth"
	AccessorOutlineColor = "getOutlineColor"
	AccessorOutlineWidth = "getOutlineWidth"
)

// Accessors extract per-record values. A nil accessor uses the layer
// default for every record.
type Accessors[T any] struct {
	GetPath         func(record T, index int) tesselator.Path
	GetColor        func(record T, index int) Color
	GetWidth        func(record T, index int) float64
	GetOutlineColor func(record T, index int) Color
	GetOutlineWidth func(record T, index int) float64
}

// Const returns an accessor that yields v for every record.
func Const[T, V any](v V) func(record T, index int) V {
	return func(T, int) V { return v }
}

// SourceIndexer is implemented by records that wrap a row of another data
// set. Picking resolves to the source index instead of the row.
type SourceIndexer interface {
	SourceIndex() int
}

// Binary holds pre-computed buffers that bypass the accessors.
type Binary struct {
	// Geometry replaces GetPath.
	Geometry *tesselator.GeometryBuffer

	// Attributes holds per-record values keyed by attribute name.
	Attributes map[string][]float64
}

// UpdateTriggers names the accessors whose results changed although the
// accessors themselves did not.
type UpdateTriggers struct {
	All       bool
	Accessors []string
}

func (u UpdateTriggers) has(name string) bool {
	if u.All {
		return true
	}
	for _, a := range u.Accessors {
		if a == name {
			return true
		}
	}
	return false
}

// ChangeFlags tells Update what changed since the previous update.
type ChangeFlags struct {
	DataChanged           bool
	PropsChanged          bool
	UpdateTriggersChanged UpdateTriggers
}

type variant struct {
	name                string
	blocks              []*UniformBlock
	defaultOutlineWidth float64
	capType             func(Props) float64
}

func roundedCaps(p Props) float64 { return boolValue(p.CapRounded) }

func outlineCaps(p Props) float64 { return p.CapType.uniform() }

var (
	outPathVariant = variant{
		name:                "OutPathLayer",
		blocks:              []*UniformBlock{PathUniforms},
		defaultOutlineWidth: 8,
		capType:             roundedCaps,
	}
	outlinedPathVariant = variant{
		name:                "OutlinedPathLayer",
		blocks:              []*UniformBlock{StrokeUniforms, OutlineUniforms},
		defaultOutlineWidth: 0,
		capType:             roundedCaps,
	}
	outlineVariant = variant{
		name:                "OutlineLayer",
		blocks:              []*UniformBlock{PathUniforms},
		defaultOutlineWidth: 0,
		capType:             outlineCaps,
	}
)

// PathLayer renders records as extruded polylines with an outline.
//
// A PathLayer is not safe for concurrent use. Update must complete before
// Draw; the host calls them in turn once per render step.
type PathLayer[T any] struct {
	id      string
	variant variant
	props   Props
	acc     Accessors[T]
	data    []T
	binary  Binary

	tess  *tesselator.Tesselator
	attrs *attribute.Manager

	numInstances int
	startIndices []int
	disabled     map[int]bool
	scratch      []float64

	pathTypeChanged bool
}

// NewOutPathLayer creates a layer whose shader reads stroke and outline
// parameters from one uniform block.
func NewOutPathLayer[T any](id string, data []T, acc Accessors[T], props Props) (*PathLayer[T], error) {
	return newPathLayer(id, outPathVariant, data, acc, props)
}

// NewOutlinedPathLayer creates a layer that keeps the outline parameters
// in a separate uniform module.
func NewOutlinedPathLayer[T any](id string, data []T, acc Accessors[T], props Props) (*PathLayer[T], error) {
	return newPathLayer(id, outlinedPathVariant, data, acc, props)
}

func newPathLayer[T any](id string, v variant, data []T, acc Accessors[T], props Props) (*PathLayer[T], error) {
	if err := props.Validate(); err != nil {
		outpath.Logger().Warn("layer: invalid props", "layer", id, "err", err)
		return nil, fmt.Errorf("layer %s: %w", id, err)
	}
	l := &PathLayer[T]{
		id:      id,
		variant: v,
		props:   props,
		acc:     acc,
		data:    data,
		tess:    tesselator.New(tesselator.WithFP64(props.FP64)),
		attrs:   attribute.NewManager(id),
	}
	if err := l.initializeAttributes(); err != nil {
		return nil, fmt.Errorf("layer %s: %w", id, err)
	}
	outpath.Logger().Info("layer: initialized", "layer", id, "kind", v.name, "fp64", props.FP64)
	return l, nil
}

func (l *PathLayer[T]) initializeAttributes() error {
	positions := attribute.Descriptor{
		Name:         AttrPositions,
		AccessorName: AccessorPath,
		Update:       l.calculatePositions,
	}
	parts := []string{"instanceLeftPositions", "instanceStartPositions", "instanceEndPositions", "instanceRightPositions"}
	if l.props.FP64 {
		positions.Size = 24
		for i, name := range parts {
			positions.ShaderAttributes = append(positions.ShaderAttributes,
				attribute.ShaderAttribute{Name: name, Offset: i * 6, Size: 3},
				attribute.ShaderAttribute{Name: name + "64Low", Offset: i*6 + 3, Size: 3})
		}
	} else {
		positions.Size = 12
		for i, name := range parts {
			positions.ShaderAttributes = append(positions.ShaderAttributes,
				attribute.ShaderAttribute{Name: name, Offset: i * 3, Size: 3})
		}
	}

	return l.attrs.AddInstanced(
		positions,
		attribute.Descriptor{
			Name:         AttrTypes,
			Size:         1,
			Type:         attribute.Uint32,
			AccessorName: AccessorPath,
			Update:       l.calculateSegmentTypes,
		},
		attribute.Descriptor{
			Name:         AttrStrokeWidths,
			Size:         1,
			Default:      []float64{1},
			AccessorName: AccessorWidth,
			Accessor:     l.widthAccessor(l.acc.GetWidth),
		},
		attribute.Descriptor{
			Name:         AttrOutlineWidths,
			Size:         1,
			Default:      []float64{l.variant.defaultOutlineWidth},
			AccessorName: AccessorOutlineWidth,
			Accessor:     l.widthAccessor(l.acc.GetOutlineWidth),
		},
		attribute.Descriptor{
			Name:         AttrColors,
			Size:         4,
			Type:         attribute.Unorm8,
			Default:      []float64{0, 0, 0, 255},
			AccessorName: AccessorColor,
			Accessor:     l.colorAccessor(l.acc.GetColor),
		},
		attribute.Descriptor{
			Name:         AttrOutlineColors,
			Size:         4,
			Type:         attribute.Unorm8,
			Default:      []float64{0, 0, 0, 255},
			AccessorName: AccessorOutlineColor,
			Accessor:     l.colorAccessor(l.acc.GetOutlineColor),
		},
		attribute.Descriptor{
			Name:     AttrPickingColors,
			Size:     4,
			Type:     attribute.Uint8,
			Accessor: attribute.PickingAccessor(l.pickingIndex),
		},
	)
}

func (l *PathLayer[T]) widthAccessor(get func(T, int) float64) attribute.Accessor {
	if get == nil {
		return nil
	}
	return func(record int, dst []float64) {
		if record < len(l.data) {
			dst[0] = get(l.data[record], record)
		}
	}
}

func (l *PathLayer[T]) colorAccessor(get func(T, int) Color) attribute.Accessor {
	if get == nil {
		return nil
	}
	return func(record int, dst []float64) {
		if record < len(l.data) {
			get(l.data[record], record).components(dst)
		}
	}
}

// ID returns the layer id.
func (l *PathLayer[T]) ID() string { return l.id }

// Kind returns the layer kind, such as "OutPathLayer".
func (l *PathLayer[T]) Kind() string { return l.variant.name }

// Props returns the current props.
func (l *PathLayer[T]) Props() Props { return l.props }

// Data returns the current records.
func (l *PathLayer[T]) Data() []T { return l.data }

// SetData replaces the records. Call Update with DataChanged afterwards.
func (l *PathLayer[T]) SetData(data []T) { l.data = data }

// SetBinary installs pre-computed buffers. Call Update with DataChanged
// afterwards.
func (l *PathLayer[T]) SetBinary(b Binary) { l.binary = b }

// SetProps validates and installs new props. The precision mode is fixed
// at construction and cannot be changed.
func (l *PathLayer[T]) SetProps(p Props) error {
	if err := p.Validate(); err != nil {
		outpath.Logger().Warn("layer: invalid props", "layer", l.id, "err", err)
		return fmt.Errorf("layer %s: %w", l.id, err)
	}
	if p.FP64 != l.props.FP64 {
		return fmt.Errorf("layer %s: %w: fp64 is fixed at construction", l.id, ErrInvalidProp)
	}
	if p.PathType != l.props.PathType {
		l.pathTypeChanged = true
	}
	l.props = p
	return nil
}

// Update brings the tesselation and the attributes up to date.
func (l *PathLayer[T]) Update(flags ChangeFlags) {
	triggers := flags.UpdateTriggersChanged
	geometryChanged := flags.DataChanged || triggers.has(AccessorPath)
	// Switching the path type changes normalization of every path.
	if flags.PropsChanged && l.pathTypeChanged {
		geometryChanged = true
	}
	l.pathTypeChanged = false

	if flags.DataChanged {
		l.attrs.InvalidateAll()
	}
	if geometryChanged {
		l.updateGeometry(flags.DataChanged)
		if !flags.DataChanged {
			// Other attributes are only invalidated on data change, so
			// cover the remaining cases here.
			l.attrs.InvalidateAll()
		}
	}
	for _, name := range []string{AccessorColor, AccessorWidth, AccessorOutlineColor, AccessorOutlineWidth} {
		if triggers.has(name) {
			l.attrs.InvalidateAccessor(name)
		}
	}

	l.attrs.Update(attribute.Context{
		NumRecords:   max(len(l.startIndices)-1, 0),
		NumInstances: l.numInstances,
		StartIndices: l.startIndices,
		Buffers:      l.binary.Attributes,
	})
}

func (l *PathLayer[T]) updateGeometry(dataChanged bool) {
	in := tesselator.Input{
		GeometryBuffer: l.binary.Geometry,
		Normalize:      l.props.PathType == PathTypeAuto,
		Loop:           l.props.PathType == PathTypeLoop,
		DataChanged:    dataChanged,
	}
	if in.GeometryBuffer == nil {
		in.Data = tesselator.FromSlice(l.data, l.pathAccessor())
	}
	l.tess.UpdateGeometry(in)
	l.numInstances = l.tess.InstanceCount()
	l.startIndices = l.tess.VertexStarts()
}

// pathAccessor returns GetPath, or an accessor yielding no geometry when
// it is unset.
func (l *PathLayer[T]) pathAccessor() func(T, int) tesselator.Path {
	if l.acc.GetPath != nil {
		return l.acc.GetPath
	}
	return func(T, int) tesselator.Path { return tesselator.Path{} }
}

// calculatePositions expands the padded position stream into one window of
// four vertices per instance.
func (l *PathLayer[T]) calculatePositions(a *attribute.Attribute, _ attribute.Context) {
	stride := l.tess.Stride()
	window := 4 * stride
	positions := l.tess.Positions()
	vertexStarts := l.tess.VertexStarts()
	positionStarts := l.tess.PositionStarts()

	values := l.floatScratch(l.numInstances * window)
	for p := 0; p+1 < len(vertexStarts); p++ {
		for i := vertexStarts[p]; i < vertexStarts[p+1]; i++ {
			k := positionStarts[p] + i - vertexStarts[p]
			src := positions[k*stride : k*stride+window]
			dst := values[i*window : (i+1)*window]
			for c, v := range src {
				dst[c] = float64(v)
			}
		}
	}
	a.SetValue(values, l.numInstances)
}

func (l *PathLayer[T]) calculateSegmentTypes(a *attribute.Attribute, _ attribute.Context) {
	types := l.tess.SegmentTypes()
	values := l.floatScratch(len(types))
	for i, t := range types {
		values[i] = float64(t)
	}
	a.SetValue(values, len(types))
}

func (l *PathLayer[T]) floatScratch(n int) []float64 {
	if cap(l.scratch) < n {
		l.scratch = make([]float64, n)
	}
	return l.scratch[:n]
}

// NumInstances returns the number of segment instances.
func (l *PathLayer[T]) NumInstances() int { return l.numInstances }

// StartIndices returns the first instance of every record followed by the
// instance count.
func (l *PathLayer[T]) StartIndices() []int { return l.startIndices }

// Tesselator returns the layer's tesselator. Its buffers are read-only.
func (l *PathLayer[T]) Tesselator() *tesselator.Tesselator { return l.tess }

// Attributes returns the layer's attribute manager.
func (l *PathLayer[T]) Attributes() *attribute.Manager { return l.attrs }

// Bounds returns the bounds of the tesselated positions.
func (l *PathLayer[T]) Bounds() (lo, hi [3]float64, ok bool) {
	a, b, ok := l.tess.Bounds()
	return a, b, ok
}

// DrawCall packs the current props into the uniform blocks and returns
// the instanced draw call.
func (l *PathLayer[T]) DrawCall() (*DrawCall, error) {
	all := l.props.uniformValues(l.variant.capType(l.props))
	call := &DrawCall{
		Layer:          l.id,
		Topology:       gputypes.PrimitiveTopologyTriangleList,
		IndexFormat:    gputypes.IndexFormatUint16,
		Indices:        SegmentIndices,
		Geometry:       SegmentPositions,
		GeometryLayout: segmentGeometryLayout,
		Instances:      l.attrs.Bindings(1),
		InstanceCount:  l.numInstances,
	}
	for _, b := range l.variant.blocks {
		data, err := packFor(b, all)
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", l.id, err)
		}
		call.Uniforms = append(call.Uniforms, UniformBinding{Block: b, Data: data})
	}
	return call, nil
}

// Draw issues one instanced draw call. Layers without instances draw
// nothing.
func (l *PathLayer[T]) Draw(ctx context.Context, r Renderer) error {
	if l.numInstances == 0 {
		return nil
	}
	call, err := l.DrawCall()
	if err != nil {
		return err
	}
	if err := r.DrawInstanced(ctx, call); err != nil {
		return fmt.Errorf("layer %s: draw: %w", l.id, err)
	}
	return nil
}

// UniformBlocks returns the uniform blocks the layer's shader declares.
func (l *PathLayer[T]) UniformBlocks() []*UniformBlock { return l.variant.blocks }

// Destroy releases the layer's buffers.
func (l *PathLayer[T]) Destroy() {
	l.tess.Destroy()
	l.numInstances = 0
	l.startIndices = nil
	l.attrs = attribute.NewManager(l.id)
	if err := l.initializeAttributes(); err != nil {
		outpath.Logger().Warn("layer: reinitializing attributes", "layer", l.id, "err", err)
	}
	outpath.Logger().Info("layer: destroyed", "layer", l.id)
}
