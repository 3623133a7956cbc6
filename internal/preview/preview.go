// Package preview rasterizes layer draw calls on the CPU.
//
// A Renderer implements [layer.Renderer]: it decodes the instance buffers
// and uniform blocks of a draw call, runs the segment vertex math for each
// template vertex and fills the resulting triangles with
// golang.org/x/image/vector. Outline and stroke are drawn as two bands, the
// outer one with the color the fragment blend picks at the path edge and the
// inner one with the color it picks at the center.
package preview

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/vector"
	"seehuhn.de/go/geom/vec"

	"github.com/gogpu/outpath"
	"github.com/gogpu/outpath/layer"
	"github.com/gogpu/outpath/tesselator"
)

// ErrMalformedDrawCall is returned for draw calls that lack an attribute or
// uniform the preview needs.
var ErrMalformedDrawCall = errors.New("preview: malformed draw call")

// Renderer draws into an RGBA image.
//
// A Renderer is not safe for concurrent use.
type Renderer struct {
	opts options
	img  *image.RGBA
	ras  *vector.Rasterizer

	center        vec.Vec2
	pixelsPerUnit float64
	calls         int
}

// New creates a Renderer with a cleared image. The viewport maps world
// units one to one around the origin until Fit is called.
func New(opts ...Option) *Renderer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	r := &Renderer{
		opts:          o,
		img:           image.NewRGBA(image.Rect(0, 0, o.width, o.height)),
		ras:           vector.NewRasterizer(o.width, o.height),
		pixelsPerUnit: 1,
	}
	r.Clear()
	return r
}

// Clear fills the image with the background color.
func (r *Renderer) Clear() {
	draw.Draw(r.img, r.img.Bounds(), image.NewUniform(r.opts.background), image.Point{}, draw.Src)
	r.calls = 0
}

// Fit centers the viewport on the box lo..hi and scales it to fill the
// image inside the padding.
func (r *Renderer) Fit(lo, hi [3]float64) {
	r.center = vec.Vec2{X: (lo[0] + hi[0]) / 2, Y: (lo[1] + hi[1]) / 2}
	w := float64(r.opts.width) - 2*r.opts.padding
	h := float64(r.opts.height) - 2*r.opts.padding
	scale := math.Inf(1)
	if dx := hi[0] - lo[0]; dx > 0 {
		scale = w / dx
	}
	if dy := hi[1] - lo[1]; dy > 0 {
		scale = min(scale, h/dy)
	}
	if math.IsInf(scale, 1) || scale <= 0 {
		scale = 1
	}
	r.pixelsPerUnit = scale
}

// Image returns the render target.
func (r *Renderer) Image() *image.RGBA { return r.img }

// Calls returns the number of draw calls since the last Clear.
func (r *Renderer) Calls() int { return r.calls }

// WritePNG encodes the image.
func (r *Renderer) WritePNG(w io.Writer) error {
	if err := png.Encode(w, r.img); err != nil {
		return fmt.Errorf("preview: encode png: %w", err)
	}
	return nil
}

// toPixels maps a world position to image coordinates, y down.
func (r *Renderer) toPixels(p [3]float64) vec.Vec2 {
	return vec.Vec2{
		X: float64(r.opts.width)/2 + (p[0]-r.center.X)*r.pixelsPerUnit,
		Y: float64(r.opts.height)/2 - (p[1]-r.center.Y)*r.pixelsPerUnit,
	}
}

func (r *Renderer) widthToPixels(width float64, units layer.Unit, minPixels, maxPixels float64) float64 {
	pixels := width
	switch units {
	case layer.UnitMeters:
		pixels = width * r.opts.unitsPerMeter * r.pixelsPerUnit
	case layer.UnitCommon:
		pixels = width * r.pixelsPerUnit
	}
	return max(minPixels, min(pixels, maxPixels))
}

// DrawInstanced rasterizes every instance of call.
func (r *Renderer) DrawInstanced(ctx context.Context, call *layer.DrawCall) error {
	in, err := decode(call)
	if err != nil {
		return err
	}
	u := &uniformReader{call: call}
	params := segmentParams{
		widthScale:     u.get("widthScale"),
		widthUnits:     layer.Unit(u.get("widthUnits")),
		widthMin:       u.get("widthMinPixels"),
		widthMax:       u.get("widthMaxPixels"),
		outlineUnits:   layer.Unit(u.get("outlineWidthUnits")),
		outlineMin:     u.get("outlineMinPixels"),
		outlineMax:     u.get("outlineMaxPixels"),
		capType:        u.get("capType"),
		jointRounded:   u.get("jointType") > 0.5,
		miterLimit:     u.get("miterLimit"),
		templateVertex: call.Geometry,
	}
	if len(u.missing) > 0 {
		return fmt.Errorf("%w: %s has no uniform %v", ErrMalformedDrawCall, call.Layer, u.missing)
	}

	// Outer band of every instance first, so that a joint never paints
	// outline over the stroke of its neighbour.
	for band := range 2 {
		for i := range call.InstanceCount {
			if i%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			r.drawInstance(call.Indices, in.instance(i), params, band == 1)
		}
	}
	r.calls++
	outpath.Logger().Debug("preview: drew layer",
		"layer", call.Layer,
		"instances", call.InstanceCount)
	return nil
}

type segmentParams struct {
	widthScale, widthMin, widthMax float64
	widthUnits                     layer.Unit
	outlineUnits                   layer.Unit
	outlineMin, outlineMax         float64
	capType                        float64
	jointRounded                   bool
	miterLimit                     float64
	templateVertex                 []float32
}

// drawInstance fills the four template triangles of one segment. The
// inner band is the stroke, the outer band covers stroke and outline.
func (r *Renderer) drawInstance(indices []uint16, s instance, p segmentParams, inner bool) {
	strokePx := r.widthToPixels(s.width*p.widthScale, p.widthUnits, p.widthMin, p.widthMax)
	outlinePx := r.widthToPixels(s.outlineWidth, p.outlineUnits, p.outlineMin, p.outlineMax)
	halfWidth := strokePx/2 + outlinePx
	if halfWidth <= 0 {
		return
	}
	ratio := strokePx / 2 / halfWidth

	// The fragment stage blends by the distance from the center line:
	// the center picks the stroke color, the edge the outline color.
	extent, distance := 1.0, 1.0
	if inner {
		extent, distance = ratio, 0
	}
	if (inner && ratio == 0) || (!inner && ratio >= 1) {
		return
	}
	c := layer.Mix(s.color, s.outlineColor, layer.Step(ratio, distance))

	var pts [6]vec.Vec2
	for v := range pts {
		atEnd := p.templateVertex[2*v] > 0.5
		side := float64(p.templateVertex[2*v+1])
		pts[v] = r.vertex(s, p, atEnd, side, halfWidth*extent)
	}

	r.ras.Reset(r.opts.width, r.opts.height)
	for t := 0; t+2 < len(indices); t += 3 {
		a, b, cc := pts[indices[t]], pts[indices[t+1]], pts[indices[t+2]]
		// Accumulate every triangle with the same orientation so that
		// shared edges add up to full coverage.
		if cross(b.Sub(a), cc.Sub(a)) < 0 {
			b, cc = cc, b
		}
		r.ras.MoveTo(float32(a.X), float32(a.Y))
		r.ras.LineTo(float32(b.X), float32(b.Y))
		r.ras.LineTo(float32(cc.X), float32(cc.Y))
		r.ras.ClosePath()
	}
	src := image.NewUniform(color.NRGBA{R: c[0], G: c[1], B: c[2], A: c[3]})
	r.ras.Draw(r.img, r.img.Bounds(), src, image.Point{})
}

// vertex places one template vertex of a segment: on the start or end
// anchor, offset along the segment normal (caps) or the miter direction
// (joints).
func (r *Renderer) vertex(s instance, p segmentParams, atEnd bool, side, halfWidth float64) vec.Vec2 {
	a := r.toPixels(s.window[1])
	b := r.toPixels(s.window[2])
	dir := normalize(b.Sub(a))
	normal := vec.Vec2{X: -dir.Y, Y: dir.X}

	anchor := a
	neighborDir := normalize(a.Sub(r.toPixels(s.window[0])))
	isCap := s.segmentType.IsStartCap()
	if atEnd {
		anchor = b
		neighborDir = normalize(r.toPixels(s.window[3]).Sub(b))
		isCap = s.segmentType.IsEndCap()
	}

	if isCap {
		offset := normal.Mul(side * halfWidth)
		// capType: 0 square, 1 round, 2 butt.
		if p.capType < 1.5 && side != 0 {
			out := dir
			if !atEnd {
				out = dir.Mul(-1)
			}
			offset = offset.Add(out.Mul(halfWidth))
		}
		return anchor.Add(offset)
	}

	tangent := normalize(dir.Add(neighborDir))
	miterNormal := vec.Vec2{X: -tangent.Y, Y: tangent.X}
	miterLength := 1.0
	if !p.jointRounded {
		miterLength = min(1/max(miterNormal.Dot(normal), 1e-3), p.miterLimit)
	}
	return anchor.Add(miterNormal.Mul(side * halfWidth * miterLength))
}

func normalize(v vec.Vec2) vec.Vec2 {
	l := v.Length()
	if l < 1e-9 {
		return vec.Vec2{}
	}
	return v.Mul(1 / l)
}

func cross(a, b vec.Vec2) float64 {
	return a.X*b.Y - a.Y*b.X
}

type instance struct {
	window       [4][3]float64
	segmentType  tesselator.SegmentType
	width        float64
	outlineWidth float64
	color        layer.Color
	outlineColor layer.Color
}

// instanceBuffers are the decoded vertex buffers of a draw call.
type instanceBuffers struct {
	positions     []byte
	positionWords int
	types         []byte
	widths        []byte
	outlineWidths []byte
	colors        []byte
	outlineColors []byte
}

func decode(call *layer.DrawCall) (instanceBuffers, error) {
	var in instanceBuffers
	found := 0
	for _, b := range call.Instances {
		switch b.Attribute {
		case layer.AttrPositions:
			in.positions = b.Data
			in.positionWords = int(b.Layout.ArrayStride / 4)
		case layer.AttrTypes:
			in.types = b.Data
		case layer.AttrStrokeWidths:
			in.widths = b.Data
		case layer.AttrOutlineWidths:
			in.outlineWidths = b.Data
		case layer.AttrColors:
			in.colors = b.Data
		case layer.AttrOutlineColors:
			in.outlineColors = b.Data
		default:
			continue
		}
		found++
	}
	if found != 6 {
		return in, fmt.Errorf("%w: %s has %d of 6 instance attributes", ErrMalformedDrawCall, call.Layer, found)
	}
	if in.positionWords != 12 && in.positionWords != 24 {
		return in, fmt.Errorf("%w: %s position stride %d", ErrMalformedDrawCall, call.Layer, in.positionWords*4)
	}
	n := call.InstanceCount
	if len(in.positions) < n*in.positionWords*4 || len(in.types) < n*4 ||
		len(in.widths) < n*4 || len(in.outlineWidths) < n*4 ||
		len(in.colors) < n*4 || len(in.outlineColors) < n*4 {
		return in, fmt.Errorf("%w: %s buffers shorter than %d instances", ErrMalformedDrawCall, call.Layer, n)
	}
	if len(call.Geometry) < 12 {
		return in, fmt.Errorf("%w: %s template geometry", ErrMalformedDrawCall, call.Layer)
	}
	for _, idx := range call.Indices {
		if idx >= 6 {
			return in, fmt.Errorf("%w: %s index %d", ErrMalformedDrawCall, call.Layer, idx)
		}
	}
	return in, nil
}

func f32(b []byte, word int) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b[word*4:])))
}

func (in instanceBuffers) instance(i int) instance {
	var s instance
	base := i * in.positionWords
	for v := range 4 {
		for c := range 3 {
			if in.positionWords == 24 {
				// High and low parts of a split float64.
				k := base + v*6 + c
				s.window[v][c] = f32(in.positions, k) + f32(in.positions, k+3)
			} else {
				s.window[v][c] = f32(in.positions, base+v*3+c)
			}
		}
	}
	s.segmentType = tesselator.SegmentType(binary.LittleEndian.Uint32(in.types[i*4:]))
	s.width = f32(in.widths, i)
	s.outlineWidth = f32(in.outlineWidths, i)
	copy(s.color[:], in.colors[i*4:i*4+4])
	copy(s.outlineColor[:], in.outlineColors[i*4:i*4+4])
	return s
}

// uniformReader looks fields up by name across the blocks of a draw call
// and collects the names it could not find.
type uniformReader struct {
	call    *layer.DrawCall
	missing []string
}

func (u *uniformReader) get(name string) float64 {
	for _, b := range u.call.Uniforms {
		for i, f := range b.Block.Fields {
			if f.Name != name {
				continue
			}
			if len(b.Data) < (i+1)*4 {
				break
			}
			bits := binary.LittleEndian.Uint32(b.Data[i*4:])
			if f.Type == layer.I32 {
				return float64(int32(bits))
			}
			return float64(math.Float32frombits(bits))
		}
	}
	u.missing = append(u.missing, name)
	return 0
}
