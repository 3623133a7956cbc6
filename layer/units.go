package layer

import (
	"fmt"
	"strings"
)

// Unit is the unit of a width: meters, common space units or pixels.
// The numeric values are the ones the shader expects.
type Unit int

// Width units.
const (
	UnitMeters Unit = 0
	UnitCommon Unit = 1
	UnitPixels Unit = 2
)

func (u Unit) String() string {
	switch u {
	case UnitMeters:
		return "meters"
	case UnitCommon:
		return "common"
	case UnitPixels:
		return "pixels"
	}
	return fmt.Sprintf("Unit(%d)", int(u))
}

// Valid reports whether u is one of the defined units.
func (u Unit) Valid() bool {
	return u >= UnitMeters && u <= UnitPixels
}

// ParseUnit parses "meters", "common" or "pixels".
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "meters":
		return UnitMeters, nil
	case "common":
		return UnitCommon, nil
	case "pixels":
		return UnitPixels, nil
	}
	return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidProp, s)
}

// MarshalText implements encoding.TextMarshaler.
func (u Unit) MarshalText() ([]byte, error) {
	if !u.Valid() {
		return nil, fmt.Errorf("%w: unit %d", ErrInvalidProp, int(u))
	}
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *Unit) UnmarshalText(text []byte) error {
	v, err := ParseUnit(string(text))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// PathType forces every path to be open or closed and skips normalization.
// The empty PathType normalizes each path and detects loops.
type PathType string

// Path types.
const (
	PathTypeAuto PathType = ""
	PathTypeLoop PathType = "loop"
	PathTypeOpen PathType = "open"
)

// Valid reports whether t is one of the defined path types.
func (t PathType) Valid() bool {
	return t == PathTypeAuto || t == PathTypeLoop || t == PathTypeOpen
}

// CapType is the end style of an OutlineLayer segment.
type CapType string

// Outline cap types.
const (
	CapNone  CapType = "none"
	CapFlat  CapType = "flat"
	CapRound CapType = "round"
)

// Valid reports whether c is one of the defined cap types.
func (c CapType) Valid() bool {
	return c == CapNone || c == CapFlat || c == CapRound
}

// uniform returns the shader value of the cap type: 0 square, 1 round,
// 2 butt.
func (c CapType) uniform() float64 {
	switch c {
	case CapRound:
		return 1
	case CapNone:
		return 2
	}
	return 0
}
