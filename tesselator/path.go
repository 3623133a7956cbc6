package tesselator

import (
	"math"

	"golang.org/x/image/math/f64"
)

// Path is the geometry of one polyline.
//
// Either Points (one slice of 2 or 3 components per vertex) or Flat (Size
// components per vertex, back to back) is set. When both are set, Points
// wins.
type Path struct {
	Points [][]float64
	Flat   []float64

	// Size is the number of components per vertex in Flat: 2 or 3.
	// Zero means the Input.PositionSize of the update.
	Size int

	// Loop marks the path as closed. A normalized path whose first and last
	// vertices are equal is also treated as closed.
	Loop bool
}

// Source is a collection of records with a geometry accessor.
type Source interface {
	// Len returns the number of records.
	Len() int

	// Geometry returns the path of record i.
	Geometry(i int) Path
}

type sliceSource[T any] struct {
	data []T
	get  func(record T, index int) Path
}

func (s sliceSource[T]) Len() int { return len(s.data) }

func (s sliceSource[T]) Geometry(i int) Path { return s.get(s.data[i], i) }

// FromSlice adapts a slice and a per-record accessor to a [Source].
func FromSlice[T any](data []T, get func(record T, index int) Path) Source {
	return sliceSource[T]{data: data, get: get}
}

// GeometryBuffer is pre-flattened geometry supplied by an upstream stage.
// Path i spans vertices StartIndices[i] up to StartIndices[i+1], the last path
// runs to the end of Positions.
type GeometryBuffer struct {
	Positions    []float64
	StartIndices []int
	Size         int
}

func (b *GeometryBuffer) len() int {
	return len(b.StartIndices)
}

func (b *GeometryBuffer) path(i, size int) Path {
	if b.Size > 0 {
		size = b.Size
	}
	if size <= 0 {
		return Path{}
	}
	total := len(b.Positions) / size
	start := b.StartIndices[i]
	end := total
	if i+1 < len(b.StartIndices) {
		end = b.StartIndices[i+1]
	}
	if start < 0 || end > total || start > end {
		return Path{}
	}
	return Path{Flat: b.Positions[start*size : end*size], Size: size}
}

// Coerce converts loosely typed geometry, such as decoded JSON, into a Path.
// Supported forms are nested coordinate arrays ([][]float64, [][2]float64,
// [][3]float64, []f64.Vec3, []any of []any) and flat []float64 (2D).
// Anything else yields an empty Path, which tesselates to nothing.
func Coerce(v any) Path {
	switch g := v.(type) {
	case Path:
		return g
	case [][]float64:
		return Path{Points: g}
	case [][2]float64:
		pts := make([][]float64, len(g))
		for i := range g {
			pts[i] = g[i][:]
		}
		return Path{Points: pts}
	case [][3]float64:
		pts := make([][]float64, len(g))
		for i := range g {
			pts[i] = g[i][:]
		}
		return Path{Points: pts}
	case []f64.Vec3:
		pts := make([][]float64, len(g))
		for i := range g {
			pts[i] = g[i][:]
		}
		return Path{Points: pts}
	case []float64:
		return Path{Flat: g, Size: 2}
	case []any:
		pts := make([][]float64, 0, len(g))
		for _, p := range g {
			coords, ok := p.([]any)
			if !ok {
				return Path{}
			}
			pt := make([]float64, len(coords))
			for k, c := range coords {
				f, ok := c.(float64)
				if !ok {
					return Path{}
				}
				pt[k] = f
			}
			pts = append(pts, pt)
		}
		return Path{Points: pts}
	}
	return Path{}
}

// normPath is a validated path in canonical form: xyz triples.
type normPath struct {
	xyz  []float64
	loop bool
}

func (p normPath) vertexCount() int { return len(p.xyz) / 3 }

// segmentCount returns the number of instances the path contributes.
func (p normPath) segmentCount() int {
	n := p.vertexCount()
	if p.loop {
		if n < 3 {
			return 0
		}
		return n
	}
	if n < 2 {
		return 0
	}
	return n - 1
}

func (p normPath) vertex(i int) f64.Vec3 {
	return f64.Vec3{p.xyz[i*3], p.xyz[i*3+1], p.xyz[i*3+2]}
}

// canonicalize validates raw and appends its xyz triples to arena. It
// returns the path, the grown arena and false for geometry that cannot be
// interpreted, in which case the arena is left unchanged.
func canonicalize(raw Path, normalize, loop bool, positionSize int, arena []float64) (normPath, []float64, bool) {
	start := len(arena)
	grown, ok := arena, false
	switch {
	case normalize && raw.Points != nil:
		grown, ok = appendPoints(arena, raw.Points)
	case raw.Flat != nil:
		size := raw.Size
		if size == 0 {
			size = positionSize
		}
		grown, ok = appendFlat(arena, raw.Flat, size)
	}
	if !ok {
		return normPath{}, arena[:start], false
	}
	xyz := grown[start:len(grown):len(grown)]

	if !normalize {
		return normPath{xyz: xyz, loop: loop}, grown, true
	}

	closed := raw.Loop
	if n := len(xyz) / 3; n > 1 && sameVertex(xyz, 0, n-1) {
		closed = true
		xyz = xyz[:len(xyz)-3]
	}
	return normPath{xyz: xyz, loop: closed}, grown, true
}

func appendPoints(dst []float64, points [][]float64) ([]float64, bool) {
	for _, p := range points {
		if len(p) != 2 && len(p) != 3 {
			return dst, false
		}
		z := 0.0
		if len(p) == 3 {
			z = p[2]
		}
		if !finite(p[0]) || !finite(p[1]) || !finite(z) {
			return dst, false
		}
		dst = append(dst, p[0], p[1], z)
	}
	return dst, true
}

func appendFlat(dst []float64, flat []float64, size int) ([]float64, bool) {
	if (size != 2 && size != 3) || len(flat)%size != 0 {
		return dst, false
	}
	for i := 0; i < len(flat); i += size {
		z := 0.0
		if size == 3 {
			z = flat[i+2]
		}
		if !finite(flat[i]) || !finite(flat[i+1]) || !finite(z) {
			return dst, false
		}
		dst = append(dst, flat[i], flat[i+1], z)
	}
	return dst, true
}

func sameVertex(xyz []float64, a, b int) bool {
	return xyz[a*3] == xyz[b*3] && xyz[a*3+1] == xyz[b*3+1] && xyz[a*3+2] == xyz[b*3+2]
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
