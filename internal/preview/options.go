package preview

import "image/color"

// Option configures a Renderer during creation.
type Option func(*options)

type options struct {
	width, height int
	padding       float64
	background    color.Color
	unitsPerMeter float64
}

func defaultOptions() options {
	return options{
		width:         800,
		height:        600,
		padding:       16,
		background:    color.White,
		unitsPerMeter: 1,
	}
}

// WithSize sets the image size in pixels. Non-positive sizes are ignored.
func WithSize(width, height int) Option {
	return func(o *options) {
		if width > 0 && height > 0 {
			o.width, o.height = width, height
		}
	}
}

// WithPadding sets the margin Fit keeps around the geometry.
func WithPadding(pixels float64) Option {
	return func(o *options) {
		o.padding = max(pixels, 0)
	}
}

// WithBackground sets the clear color.
func WithBackground(c color.Color) Option {
	return func(o *options) {
		o.background = c
	}
}

// WithUnitsPerMeter sets how many world units one meter spans. Use it for
// widths in meters over geographic coordinates, where a degree of latitude
// is about 111 km.
func WithUnitsPerMeter(u float64) Option {
	return func(o *options) {
		if u > 0 {
			o.unitsPerMeter = u
		}
	}
}
