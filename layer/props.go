package layer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrInvalidProp is returned for props outside their documented range.
var ErrInvalidProp = errors.New("layer: invalid prop")

// MaxSafeInteger is the default upper pixel clamp: no clamping.
const MaxSafeInteger = 1<<53 - 1

// Props are the scalar draw parameters of a path layer.
type Props struct {
	// WidthUnits is the unit of the stroke width.
	WidthUnits Unit `yaml:"widthUnits" toml:"widthUnits"`

	// WidthScale multiplies every stroke width. Must be >= 0.
	WidthScale float64 `yaml:"widthScale" toml:"widthScale"`

	// WidthMinPixels keeps paths from getting too thin when zoomed out.
	WidthMinPixels float64 `yaml:"widthMinPixels" toml:"widthMinPixels"`

	// WidthMaxPixels keeps paths from getting too thick when zoomed in.
	WidthMaxPixels float64 `yaml:"widthMaxPixels" toml:"widthMaxPixels"`

	// JointRounded draws round joints instead of miter joints.
	JointRounded bool `yaml:"jointRounded" toml:"jointRounded"`

	// CapRounded draws round caps instead of square caps.
	CapRounded bool `yaml:"capRounded" toml:"capRounded"`

	// MiterLimit is the maximum extent of a miter joint in ratio to the
	// stroke width. Only used when JointRounded is false.
	MiterLimit float64 `yaml:"miterLimit" toml:"miterLimit"`

	// Billboard extrudes the path in screen space instead of along the
	// ground plane.
	Billboard bool `yaml:"billboard" toml:"billboard"`

	// PathType skips normalization and forces all paths open or closed.
	PathType PathType `yaml:"pathType" toml:"pathType"`

	// OutlineWidthUnits is the unit of the outline width.
	OutlineWidthUnits Unit `yaml:"outlineWidthUnits" toml:"outlineWidthUnits"`

	// OutlineMinPixels and OutlineMaxPixels clamp the outline width.
	OutlineMinPixels float64 `yaml:"outlineMinPixels" toml:"outlineMinPixels"`
	OutlineMaxPixels float64 `yaml:"outlineMaxPixels" toml:"outlineMaxPixels"`

	// CapType is the end style of OutlineLayer segments.
	CapType CapType `yaml:"capType" toml:"capType"`

	// FP64 writes positions in split precision.
	FP64 bool `yaml:"fp64" toml:"fp64"`
}

// DefaultProps returns the documented defaults.
func DefaultProps() Props {
	return Props{
		WidthUnits:        UnitMeters,
		WidthScale:        1,
		WidthMinPixels:    0,
		WidthMaxPixels:    MaxSafeInteger,
		MiterLimit:        4,
		PathType:          PathTypeAuto,
		OutlineWidthUnits: UnitPixels,
		OutlineMinPixels:  0,
		OutlineMaxPixels:  MaxSafeInteger,
		CapType:           CapFlat,
	}
}

// Validate checks every prop against its range.
func (p Props) Validate() error {
	var errs []error
	nonNegative := func(name string, v float64) {
		if math.IsNaN(v) || v < 0 {
			errs = append(errs, fmt.Errorf("%w: %s = %v, want >= 0", ErrInvalidProp, name, v))
		}
	}
	nonNegative("widthScale", p.WidthScale)
	nonNegative("widthMinPixels", p.WidthMinPixels)
	nonNegative("widthMaxPixels", p.WidthMaxPixels)
	nonNegative("miterLimit", p.MiterLimit)
	nonNegative("outlineMinPixels", p.OutlineMinPixels)
	nonNegative("outlineMaxPixels", p.OutlineMaxPixels)
	if !p.WidthUnits.Valid() {
		errs = append(errs, fmt.Errorf("%w: widthUnits = %d", ErrInvalidProp, int(p.WidthUnits)))
	}
	if !p.OutlineWidthUnits.Valid() {
		errs = append(errs, fmt.Errorf("%w: outlineWidthUnits = %d", ErrInvalidProp, int(p.OutlineWidthUnits)))
	}
	if !p.PathType.Valid() {
		errs = append(errs, fmt.Errorf("%w: pathType = %q", ErrInvalidProp, p.PathType))
	}
	if !p.CapType.Valid() {
		errs = append(errs, fmt.Errorf("%w: capType = %q", ErrInvalidProp, p.CapType))
	}
	return errors.Join(errs...)
}

// LoadProps reads props from a YAML (.yaml, .yml) or TOML (.toml) file.
// Keys missing from the file keep their defaults.
func LoadProps(path string) (Props, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Props{}, fmt.Errorf("layer: read props: %w", err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	p, err := DecodeProps(bytes.NewReader(data), format)
	if err != nil {
		return Props{}, fmt.Errorf("layer: %s: %w", path, err)
	}
	return p, nil
}

// DecodeProps decodes props in the given format ("yaml", "yml" or "toml")
// on top of [DefaultProps] and validates the result.
func DecodeProps(r io.Reader, format string) (Props, error) {
	p := DefaultProps()
	switch format {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&p); err != nil && !errors.Is(err, io.EOF) {
			return Props{}, fmt.Errorf("decode yaml props: %w", err)
		}
	case "toml":
		if err := toml.NewDecoder(r).Decode(&p); err != nil {
			return Props{}, fmt.Errorf("decode toml props: %w", err)
		}
	default:
		return Props{}, fmt.Errorf("%w: unsupported props format %q", ErrInvalidProp, format)
	}
	if err := p.Validate(); err != nil {
		return Props{}, err
	}
	return p, nil
}
