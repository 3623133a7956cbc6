package layer

// Color is an RGBA color with 8-bit components.
type Color [4]uint8

// RGB returns an opaque color.
func RGB(r, g, b uint8) Color {
	return Color{r, g, b, 255}
}

// RGBA returns a color with alpha.
func RGBA(r, g, b, a uint8) Color {
	return Color{r, g, b, a}
}

// Black is the default path and outline color.
var Black = Color{0, 0, 0, 255}

func (c Color) components(dst []float64) {
	for i := range c {
		dst[i] = float64(c[i])
	}
}

// Step returns 0 when x < edge and 1 otherwise.
func Step(edge, x float64) float64 {
	if x < edge {
		return 0
	}
	return 1
}

// Mix blends a toward b by t in [0, 1]: a*(1-t) + b*t per component.
//
// With t = Step(edge, distance) this selects the stroke or the outline color
// without a branch on the distance, which is how the fragment stage colors a
// pixel.
func Mix(a, b Color, t float64) Color {
	var out Color
	for i := range out {
		out[i] = uint8(float64(a[i])*(1-t) + float64(b[i])*t + 0.5)
	}
	return out
}
