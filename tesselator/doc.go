// Package tesselator converts path geometry into the instanced attribute
// layout consumed by the path layers.
//
// # Layout
//
// Every segment between two consecutive path vertices is one GPU instance.
// An instance reads a window of four consecutive vertices from the padded
// position stream:
//
//	left  start  end  right
//
// To make that window valid at the ends of a path, each path is written as a
// padded region of segmentCount+3 vertices:
//
//	open path, N vertices:  v0  v0 v1 ... vN-1  vN-1
//	loop,      N vertices:  vN-1  v0 v1 ... vN-1  v0 v1
//
// The closing segment of a loop ends at v0, so its window is
// (vN-2, vN-1, v0, v1).
//
// Instance j of a path therefore starts at region[j]. VertexStarts holds the
// first instance of every path (plus a trailing sentinel equal to the
// instance count) and PositionStarts the first padded vertex of every path.
//
// # Segment types
//
// Each instance carries a byte of [SegmentType] flags. The first segment of
// an open path has [SegmentStartCap], the last one [SegmentEndCap]; a path
// with a single segment carries both. Segments of a loop are joints on both
// ends and are marked with [SegmentLoop].
//
// # Precision
//
// With [WithFP64] every coordinate is written as a high float32 part followed
// by the low float32 remainder, doubling the position stride from 3 to 6.
//
// # Failure semantics
//
// Malformed or short paths are never repaired and never abort an update:
// they contribute zero instances and zero padded vertices, and the rest of
// the collection is processed normally.
package tesselator
