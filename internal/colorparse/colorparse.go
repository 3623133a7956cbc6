// Package colorparse converts loosely typed color values, as found in trip
// files, into layer colors.
//
// Accepted forms are numeric arrays [r, g, b] or [r, g, b, a], the strings
// "rgb(r, g, b)" and "rgba(r, g, b, a)", hex strings "#rgb", "#rrggbb" and
// "#rrggbbaa", and CSS color names.
package colorparse

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"

	"github.com/gogpu/outpath/layer"
)

// ErrInvalidColor is returned for values that do not describe a color.
var ErrInvalidColor = errors.New("colorparse: invalid color")

// Parse converts v into a color. Missing alpha defaults to 255.
func Parse(v any) (layer.Color, error) {
	switch c := v.(type) {
	case layer.Color:
		return c, nil
	case string:
		return ParseString(c)
	case []any:
		comps := make([]float64, len(c))
		for i, x := range c {
			f, ok := x.(float64)
			if !ok {
				return layer.Color{}, fmt.Errorf("%w: component %d is %T", ErrInvalidColor, i, x)
			}
			comps[i] = f
		}
		return fromComponents(comps)
	case []float64:
		return fromComponents(c)
	case []int:
		comps := make([]float64, len(c))
		for i, x := range c {
			comps[i] = float64(x)
		}
		return fromComponents(comps)
	}
	return layer.Color{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidColor, v)
}

// ParseString parses the string forms.
func ParseString(s string) (layer.Color, error) {
	s = strings.TrimSpace(s)
	low := strings.ToLower(s)
	switch {
	case low == "":
		return layer.Color{}, fmt.Errorf("%w: empty string", ErrInvalidColor)
	case low[0] == '#':
		return parseHex(low[1:])
	case strings.HasPrefix(low, "rgb(") || strings.HasPrefix(low, "rgba("):
		return parseFunc(low)
	}
	if c, ok := colornames.Map[low]; ok {
		return layer.RGBA(c.R, c.G, c.B, c.A), nil
	}
	return layer.Color{}, fmt.Errorf("%w: unknown color name %q", ErrInvalidColor, s)
}

func parseHex(x string) (layer.Color, error) {
	switch len(x) {
	case 3:
		v, err := strconv.ParseUint(x, 16, 16)
		if err != nil {
			return layer.Color{}, fmt.Errorf("%w: #%s", ErrInvalidColor, x)
		}
		r, g, b := uint8(v>>8&0xf), uint8(v>>4&0xf), uint8(v&0xf)
		return layer.RGB(r|r<<4, g|g<<4, b|b<<4), nil
	case 6, 8:
		v, err := strconv.ParseUint(x, 16, 32)
		if err != nil {
			return layer.Color{}, fmt.Errorf("%w: #%s", ErrInvalidColor, x)
		}
		if len(x) == 6 {
			v = v<<8 | 0xff
		}
		return layer.RGBA(uint8(v>>24), uint8(v>>16), uint8(v>>8), uint8(v)), nil
	}
	return layer.Color{}, fmt.Errorf("%w: #%s has %d digits", ErrInvalidColor, x, len(x))
}

func parseFunc(s string) (layer.Color, error) {
	open := strings.IndexByte(s, '(')
	if !strings.HasSuffix(s, ")") {
		return layer.Color{}, fmt.Errorf("%w: %s", ErrInvalidColor, s)
	}
	fields := strings.Split(s[open+1:len(s)-1], ",")
	comps := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return layer.Color{}, fmt.Errorf("%w: %s: %w", ErrInvalidColor, s, err)
		}
		comps[i] = v
	}
	// CSS alpha is a fraction.
	if len(comps) == 4 && strings.HasPrefix(s, "rgba(") {
		comps[3] *= 255
	}
	return fromComponents(comps)
}

func fromComponents(comps []float64) (layer.Color, error) {
	if len(comps) != 3 && len(comps) != 4 {
		return layer.Color{}, fmt.Errorf("%w: %d components", ErrInvalidColor, len(comps))
	}
	c := layer.Black
	for i, v := range comps {
		if math.IsNaN(v) || v < 0 || v > 255 {
			return layer.Color{}, fmt.Errorf("%w: component %d = %v", ErrInvalidColor, i, v)
		}
		c[i] = uint8(math.Round(v))
	}
	return c, nil
}
