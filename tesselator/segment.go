package tesselator

// SegmentType is the per-instance flag byte telling the shader which ends of
// a segment are caps.
type SegmentType uint8

// Segment type flags. An interior segment of an open path is SegmentJoint.
const (
	SegmentJoint    SegmentType = 0
	SegmentStartCap SegmentType = 1 << 0
	SegmentEndCap   SegmentType = 1 << 1
	SegmentLoop     SegmentType = 1 << 2
)

// IsStartCap reports whether the segment starts with a cap.
func (s SegmentType) IsStartCap() bool { return s&SegmentStartCap != 0 }

// IsEndCap reports whether the segment ends with a cap.
func (s SegmentType) IsEndCap() bool { return s&SegmentEndCap != 0 }

// IsJoint reports whether both ends of the segment are joints.
func (s SegmentType) IsJoint() bool { return s&(SegmentStartCap|SegmentEndCap) == 0 }

// IsLoop reports whether the segment belongs to a closed path.
func (s SegmentType) IsLoop() bool { return s&SegmentLoop != 0 }

// String returns a short name for the flag combination.
func (s SegmentType) String() string {
	switch s {
	case SegmentJoint:
		return "joint"
	case SegmentStartCap:
		return "start-cap"
	case SegmentEndCap:
		return "end-cap"
	case SegmentStartCap | SegmentEndCap:
		return "start-cap|end-cap"
	case SegmentLoop:
		return "loop-joint"
	}
	return "invalid"
}

// writeSegmentTypes fills dst, one byte per segment of a path.
func writeSegmentTypes(dst []uint8, loop bool) {
	if len(dst) == 0 {
		return
	}
	if loop {
		for i := range dst {
			dst[i] = uint8(SegmentLoop)
		}
		return
	}
	for i := range dst {
		dst[i] = uint8(SegmentJoint)
	}
	dst[0] |= uint8(SegmentStartCap)
	dst[len(dst)-1] |= uint8(SegmentEndCap)
}
