package preview

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/png"
	"testing"

	"github.com/gogpu/outpath/layer"
	"github.com/gogpu/outpath/tesselator"
)

type line struct {
	points [][]float64
}

var (
	red  = layer.RGB(255, 0, 0)
	blue = layer.RGB(0, 0, 255)
)

func lineAccessors() layer.Accessors[line] {
	return layer.Accessors[line]{
		GetPath:         func(l line, _ int) tesselator.Path { return tesselator.Path{Points: l.points} },
		GetColor:        layer.Const[line](red),
		GetWidth:        layer.Const[line](10.0),
		GetOutlineColor: layer.Const[line](blue),
		GetOutlineWidth: layer.Const[line](2.0),
	}
}

func pixelProps() layer.Props {
	p := layer.DefaultProps()
	p.WidthUnits = layer.UnitPixels
	p.OutlineWidthUnits = layer.UnitPixels
	return p
}

// render draws data with a 100x50 renderer. The horizontal line from (0, 0)
// to (10, 0) maps to pixels x 10..90 on row 25, 8 pixels per unit.
func render(t *testing.T, l *layer.PathLayer[line]) *Renderer {
	t.Helper()
	l.Update(layer.ChangeFlags{DataChanged: true})
	r := New(WithSize(100, 50), WithPadding(10))
	lo, hi, ok := l.Bounds()
	if !ok {
		t.Fatal("layer has no bounds")
	}
	r.Fit(lo, hi)
	if err := l.Draw(context.Background(), r); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	return r
}

func near(got color.RGBA, want layer.Color) bool {
	d := func(a, b uint8) int {
		if a > b {
			return int(a - b)
		}
		return int(b - a)
	}
	return d(got.R, want[0]) <= 2 && d(got.G, want[1]) <= 2 && d(got.B, want[2]) <= 2 && d(got.A, want[3]) <= 2
}

func TestRenderOutPath(t *testing.T) {
	l, err := layer.NewOutPathLayer("line", []line{{points: [][]float64{{0, 0}, {10, 0}}}}, lineAccessors(), pixelProps())
	if err != nil {
		t.Fatal(err)
	}
	r := render(t, l)
	img := r.Image()

	white := layer.RGB(255, 255, 255)
	tests := []struct {
		name string
		x, y int
		want layer.Color
	}{
		{"Center", 50, 25, red},
		{"StrokeEdge", 50, 21, red},
		{"OutlineBelow", 50, 30, blue},
		{"OutlineAbove", 50, 18, blue},
		{"SquareCap", 5, 25, red},
		{"Outside", 50, 45, white},
		{"BeyondCap", 1, 25, white},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := img.RGBAAt(tt.x, tt.y); !near(got, tt.want) {
				t.Errorf("pixel (%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
	if r.Calls() != 1 {
		t.Errorf("Calls() = %d, want 1", r.Calls())
	}
}

func TestRenderOutlinedPathSplitsUniforms(t *testing.T) {
	props := pixelProps()
	props.CapRounded = true
	l, err := layer.NewOutlinedPathLayer("line", []line{{points: [][]float64{{0, 0}, {10, 0}}}}, lineAccessors(), props)
	if err != nil {
		t.Fatal(err)
	}
	img := render(t, l).Image()
	if got := img.RGBAAt(50, 25); !near(got, red) {
		t.Errorf("center = %v, want red", got)
	}
	if got := img.RGBAAt(50, 31); !near(got, blue) {
		t.Errorf("outline = %v, want blue", got)
	}
}

func TestRenderLoopJoints(t *testing.T) {
	square := line{points: [][]float64{{0, 0}, {10, 0}, {10, 4}, {0, 4}, {0, 0}}}
	l, err := layer.NewOutPathLayer("square", []line{square}, lineAccessors(), pixelProps())
	if err != nil {
		t.Fatal(err)
	}
	img := render(t, l).Image()

	// 7.5 pixels per unit: the box edges run along x 12.5 and 87.5 and
	// y 10 and 40.
	for _, p := range [][2]int{{30, 40}, {70, 10}, {87, 25}, {12, 25}, {50, 41}, {50, 9}} {
		if got := img.RGBAAt(p[0], p[1]); !near(got, red) {
			t.Errorf("pixel %v = %v, want red", p, got)
		}
	}
	if got := img.RGBAAt(50, 25); !near(got, layer.RGB(255, 255, 255)) {
		t.Errorf("inside of the loop = %v, want background", got)
	}
}

func TestDrawInstancedMalformed(t *testing.T) {
	r := New(WithSize(10, 10))
	err := r.DrawInstanced(context.Background(), &layer.DrawCall{Layer: "empty", InstanceCount: 1})
	if !errors.Is(err, ErrMalformedDrawCall) {
		t.Errorf("DrawInstanced(empty) error = %v, want ErrMalformedDrawCall", err)
	}

	l, err := layer.NewOutPathLayer("line", []line{{points: [][]float64{{0, 0}, {1, 0}}}}, lineAccessors(), pixelProps())
	if err != nil {
		t.Fatal(err)
	}
	l.Update(layer.ChangeFlags{DataChanged: true})
	call, err := l.DrawCall()
	if err != nil {
		t.Fatal(err)
	}
	call.Uniforms = nil
	if err := r.DrawInstanced(context.Background(), call); !errors.Is(err, ErrMalformedDrawCall) {
		t.Errorf("DrawInstanced(no uniforms) error = %v, want ErrMalformedDrawCall", err)
	}
}

func TestDrawInstancedCanceled(t *testing.T) {
	l, err := layer.NewOutPathLayer("line", []line{{points: [][]float64{{0, 0}, {1, 0}}}}, lineAccessors(), pixelProps())
	if err != nil {
		t.Fatal(err)
	}
	l.Update(layer.ChangeFlags{DataChanged: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Draw(ctx, New()); !errors.Is(err, context.Canceled) {
		t.Errorf("Draw() error = %v, want context.Canceled", err)
	}
}

func TestWritePNG(t *testing.T) {
	r := New(WithSize(32, 16), WithBackground(color.Black))
	var buf bytes.Buffer
	if err := r.WritePNG(&buf); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 16 {
		t.Errorf("bounds = %v, want 32x16", b)
	}
	if got := color.RGBAModel.Convert(img.At(3, 3)); got != (color.RGBA{A: 255}) {
		t.Errorf("background = %v, want black", got)
	}
}

func TestFitDegenerateBox(t *testing.T) {
	r := New(WithSize(100, 100))
	r.Fit([3]float64{5, 5, 0}, [3]float64{5, 5, 0})
	if r.pixelsPerUnit != 1 {
		t.Errorf("pixelsPerUnit = %v, want 1", r.pixelsPerUnit)
	}
	if got := r.toPixels([3]float64{5, 5, 0}); got.X != 50 || got.Y != 50 {
		t.Errorf("center maps to %v, want (50, 50)", got)
	}
}
