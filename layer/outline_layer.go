package layer

import (
	"fmt"

	"github.com/gogpu/outpath/tesselator"
)

// LineAccessors extract a straight segment and its style per record.
type LineAccessors[T any] struct {
	GetSourcePosition func(record T, index int) []float64
	GetTargetPosition func(record T, index int) []float64
	GetColor          func(record T, index int) Color
	GetWidth          func(record T, index int) float64
	GetOutlineColor   func(record T, index int) Color
	GetOutlineWidth   func(record T, index int) float64
}

// NewOutlineLayer creates a layer that draws one outlined segment from the
// source to the target position of every record. Props.CapType selects the
// end caps; the segments are always open paths.
func NewOutlineLayer[T any](id string, data []T, acc LineAccessors[T], props Props) (*PathLayer[T], error) {
	if acc.GetSourcePosition == nil || acc.GetTargetPosition == nil {
		return nil, fmt.Errorf("layer %s: %w: source and target accessors are required", id, ErrInvalidProp)
	}
	props.PathType = PathTypeOpen
	return newPathLayer(id, outlineVariant, data, Accessors[T]{
		GetPath:         segmentPath(acc.GetSourcePosition, acc.GetTargetPosition),
		GetColor:        acc.GetColor,
		GetWidth:        acc.GetWidth,
		GetOutlineColor: acc.GetOutlineColor,
		GetOutlineWidth: acc.GetOutlineWidth,
	}, props)
}

// segmentPath joins two position accessors into a two-vertex path. A
// missing z defaults to zero; a record without either position has no
// geometry.
func segmentPath[T any](source, target func(T, int) []float64) func(T, int) tesselator.Path {
	return func(record T, index int) tesselator.Path {
		from, to := source(record, index), target(record, index)
		if len(from) < 2 || len(to) < 2 {
			return tesselator.Path{}
		}
		flat := make([]float64, 0, 6)
		flat = appendXYZ(flat, from)
		flat = appendXYZ(flat, to)
		return tesselator.Path{Flat: flat, Size: 3}
	}
}

func appendXYZ(dst, p []float64) []float64 {
	var v [3]float64
	copy(v[:], p)
	return append(dst, v[:]...)
}
