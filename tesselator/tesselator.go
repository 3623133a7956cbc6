package tesselator

import (
	"slices"
	"sort"

	"golang.org/x/image/math/f64"

	"github.com/gogpu/outpath"
)

// Buffer names accepted by [Tesselator.Get].
const (
	BufferPositions    = "positions"
	BufferSegmentTypes = "segmentTypes"
)

// Input describes one geometry update.
type Input struct {
	// Data supplies records and their geometry. Ignored when GeometryBuffer
	// is set.
	Data Source

	// GeometryBuffer is pre-flattened geometry from an upstream stage.
	GeometryBuffer *GeometryBuffer

	// Normalize canonicalizes every path: nested points are flattened and a
	// path whose last vertex repeats the first is closed. When false the
	// geometry must be flat and Loop decides the path type for all paths.
	Normalize bool

	// Loop is the path type used when Normalize is false.
	Loop bool

	// PositionSize is the vertex size of flat geometry that does not carry
	// its own. Zero means 3.
	PositionSize int

	// DataChanged is true for a full rebuild. When false and every path
	// keeps its segment count, the previous buffers are rewritten in place.
	DataChanged bool
}

// Stats summarizes the last update.
type Stats struct {
	Paths          int
	SkippedPaths   int
	Instances      int
	PaddedVertices int
	Reused         bool
}

// Tesselator owns the instance buffers of one path layer.
//
// A Tesselator is not safe for concurrent use; callers serialize updates.
type Tesselator struct {
	fp64 bool

	vertexStarts   []int
	positionStarts []int
	positions      []float32
	segmentTypes   []uint8
	instanceCount  int

	paths []normPath
	arena []float64
	stats Stats
}

// New creates a Tesselator with empty buffers.
func New(opts ...Option) *Tesselator {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Tesselator{
		fp64:           o.fp64,
		vertexStarts:   []int{0},
		positionStarts: []int{0},
	}
}

// FP64 reports whether positions are written in split precision.
func (t *Tesselator) FP64() bool { return t.fp64 }

// Stride returns the number of float32 components per padded vertex.
func (t *Tesselator) Stride() int {
	if t.fp64 {
		return 6
	}
	return 3
}

// InstanceCount returns the total number of segments of the last update.
func (t *Tesselator) InstanceCount() int { return t.instanceCount }

// VertexStarts returns the first instance of every path followed by the
// instance count.
func (t *Tesselator) VertexStarts() []int { return t.vertexStarts }

// PositionStarts returns the first padded vertex of every path followed by
// the padded vertex count.
func (t *Tesselator) PositionStarts() []int { return t.positionStarts }

// Positions returns the padded vertex stream.
func (t *Tesselator) Positions() []float32 { return t.positions }

// SegmentTypes returns one [SegmentType] byte per instance.
func (t *Tesselator) SegmentTypes() []uint8 { return t.segmentTypes }

// Stats returns counters of the last update.
func (t *Tesselator) Stats() Stats { return t.stats }

// Get returns the named buffer: []float32 for BufferPositions, []uint8 for
// BufferSegmentTypes and nil for anything else. The result must not be
// modified and is valid until the next UpdateGeometry.
func (t *Tesselator) Get(name string) any {
	switch name {
	case BufferPositions:
		return t.positions
	case BufferSegmentTypes:
		return t.segmentTypes
	}
	return nil
}

// UpdateGeometry recomputes all buffers from in. Paths that are too short or
// malformed contribute no instances; UpdateGeometry never fails.
func (t *Tesselator) UpdateGeometry(in Input) {
	positionSize := in.PositionSize
	if positionSize == 0 {
		positionSize = 3
	}

	count := 0
	switch {
	case in.GeometryBuffer != nil:
		count = in.GeometryBuffer.len()
	case in.Data != nil:
		count = in.Data.Len()
	}

	log := outpath.Logger()
	t.paths = t.paths[:0]
	t.arena = t.arena[:0]
	skipped := 0
	for i := range count {
		var raw Path
		if in.GeometryBuffer != nil {
			raw = in.GeometryBuffer.path(i, positionSize)
		} else {
			raw = in.Data.Geometry(i)
		}

		p, arena, ok := canonicalize(raw, in.Normalize, in.Loop, positionSize, t.arena)
		t.arena = arena
		if !ok || p.segmentCount() == 0 {
			skipped++
			log.Debug("tesselator: skipping path", "index", i, "valid", ok, "vertices", p.vertexCount())
			p = normPath{}
		}
		t.paths = append(t.paths, p)
	}

	t.layout(in.DataChanged)

	stride := t.Stride()
	for i, p := range t.paths {
		segments := t.vertexStarts[i+1] - t.vertexStarts[i]
		if segments == 0 {
			continue
		}
		writeSegmentTypes(t.segmentTypes[t.vertexStarts[i]:t.vertexStarts[i+1]], p.loop)
		t.writePositions(t.positions[t.positionStarts[i]*stride:t.positionStarts[i+1]*stride], p)
	}

	t.stats.Paths = count
	t.stats.SkippedPaths = skipped
	t.stats.Instances = t.instanceCount
	t.stats.PaddedVertices = t.positionStarts[len(t.positionStarts)-1]
	log.Debug("tesselator: geometry updated",
		"paths", count,
		"skipped", skipped,
		"instances", t.instanceCount,
		"reused", t.stats.Reused)
}

// layout computes the start offsets of the current paths and sizes the
// output buffers. Existing buffers are kept when the update is not a data
// change and no path changed its segment count.
func (t *Tesselator) layout(dataChanged bool) {
	n := len(t.paths)
	reuse := !dataChanged && len(t.vertexStarts) == n+1 && t.positions != nil
	if reuse {
		for i, p := range t.paths {
			if t.vertexStarts[i+1]-t.vertexStarts[i] != p.segmentCount() {
				reuse = false
				break
			}
		}
	}
	t.stats.Reused = reuse
	if reuse {
		return
	}

	vertexStarts := make([]int, n+1)
	positionStarts := make([]int, n+1)
	instances, padded := 0, 0
	for i, p := range t.paths {
		vertexStarts[i] = instances
		positionStarts[i] = padded
		if segments := p.segmentCount(); segments > 0 {
			instances += segments
			padded += segments + 3
		}
	}
	vertexStarts[n] = instances
	positionStarts[n] = padded

	t.vertexStarts = vertexStarts
	t.positionStarts = positionStarts
	t.instanceCount = instances
	t.positions = make([]float32, padded*t.Stride())
	t.segmentTypes = make([]uint8, instances)
}

// writePositions writes the padded region of p into dst.
func (t *Tesselator) writePositions(dst []float32, p normPath) {
	n := p.vertexCount()
	k := 0
	put := func(v int) {
		t.putVertex(dst, k, p.vertex(v))
		k++
	}
	if p.loop {
		put(n - 1)
	} else {
		put(0)
	}
	for v := range n {
		put(v)
	}
	if p.loop {
		put(0)
		put(1)
	} else {
		put(n - 1)
	}
}

func (t *Tesselator) putVertex(dst []float32, k int, v f64.Vec3) {
	if !t.fp64 {
		dst[k*3] = float32(v[0])
		dst[k*3+1] = float32(v[1])
		dst[k*3+2] = float32(v[2])
		return
	}
	base := k * 6
	for c := range 3 {
		dst[base+c], dst[base+3+c] = SplitFloat64(v[c])
	}
}

func (t *Tesselator) vertexAt(k int) f64.Vec3 {
	if !t.fp64 {
		return f64.Vec3{
			float64(t.positions[k*3]),
			float64(t.positions[k*3+1]),
			float64(t.positions[k*3+2]),
		}
	}
	base := k * 6
	var v f64.Vec3
	for c := range 3 {
		v[c] = JoinFloat64(t.positions[base+c], t.positions[base+3+c])
	}
	return v
}

// Window returns the left, start, end and right vertices read by an
// instance, and the index of the path it belongs to. It reports false for
// an instance out of range.
func (t *Tesselator) Window(instance int) (window [4]f64.Vec3, path int, ok bool) {
	if instance < 0 || instance >= t.instanceCount {
		return window, -1, false
	}
	// Degenerate paths have an empty range, so search for the first path
	// whose range ends after instance.
	path = sort.Search(len(t.vertexStarts)-1, func(i int) bool {
		return t.vertexStarts[i+1] > instance
	})
	base := t.positionStarts[path] + instance - t.vertexStarts[path]
	for i := range window {
		window[i] = t.vertexAt(base + i)
	}
	return window, path, true
}

// PathRange returns the instances [start, end) of path i.
func (t *Tesselator) PathRange(i int) (start, end int) {
	if i < 0 || i+1 >= len(t.vertexStarts) {
		return 0, 0
	}
	return t.vertexStarts[i], t.vertexStarts[i+1]
}

// Bounds returns the axis-aligned bounds of all tesselated vertices. It
// reports false when there is no geometry.
func (t *Tesselator) Bounds() (lo, hi f64.Vec3, ok bool) {
	padded := t.positionStarts[len(t.positionStarts)-1]
	if padded == 0 {
		return lo, hi, false
	}
	lo = t.vertexAt(0)
	hi = lo
	for k := 1; k < padded; k++ {
		v := t.vertexAt(k)
		for c := range 3 {
			lo[c] = min(lo[c], v[c])
			hi[c] = max(hi[c], v[c])
		}
	}
	return lo, hi, true
}

// Clone returns a deep copy of the current buffers, detached from t.
func (t *Tesselator) Clone() *Tesselator {
	return &Tesselator{
		fp64:           t.fp64,
		vertexStarts:   slices.Clone(t.vertexStarts),
		positionStarts: slices.Clone(t.positionStarts),
		positions:      slices.Clone(t.positions),
		segmentTypes:   slices.Clone(t.segmentTypes),
		instanceCount:  t.instanceCount,
		stats:          t.stats,
	}
}

// Destroy releases the buffers. The Tesselator can be updated again.
func (t *Tesselator) Destroy() {
	t.vertexStarts = []int{0}
	t.positionStarts = []int{0}
	t.positions = nil
	t.segmentTypes = nil
	t.instanceCount = 0
	t.paths = nil
	t.arena = nil
	t.stats = Stats{}
}
