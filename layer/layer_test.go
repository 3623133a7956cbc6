package layer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/outpath"
	"github.com/gogpu/outpath/attribute"
	"github.com/gogpu/outpath/tesselator"
)

type trip struct {
	coords [][]float64
	width  float64
	color  Color
}

func tripPath(tr trip, _ int) tesselator.Path { return tesselator.Path{Points: tr.coords} }

func tripWidth(tr trip, _ int) float64 { return tr.width }

var trips = []trip{
	{coords: [][]float64{{0, 0}, {1, 0}, {2, 0}}, width: 1, color: RGB(255, 0, 0)},
	{coords: [][]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}, width: 2, color: RGB(0, 0, 255)},
}

func newTripLayer(t *testing.T, props Props) *PathLayer[trip] {
	t.Helper()
	l, err := NewOutPathLayer("trips", trips, Accessors[trip]{
		GetPath:  tripPath,
		GetWidth: tripWidth,
		GetColor: func(tr trip, _ int) Color { return tr.color },
	}, props)
	require.NoError(t, err)
	l.Update(ChangeFlags{DataChanged: true})
	return l
}

func TestPathLayerInstances(t *testing.T) {
	l := newTripLayer(t, DefaultProps())

	assert.Equal(t, 6, l.NumInstances())
	assert.Equal(t, []int{0, 2, 6}, l.StartIndices())
	assert.Equal(t, "OutPathLayer", l.Kind())

	widths := l.Attributes().Get(AttrStrokeWidths)
	require.Equal(t, 6, widths.Count())
	for i, want := range []float64{1, 1, 2, 2, 2, 2} {
		assert.Equal(t, want, widths.Component(i, 0), "width of instance %d", i)
	}

	types := l.Attributes().Get(AttrTypes)
	for i, want := range []tesselator.SegmentType{
		tesselator.SegmentStartCap, tesselator.SegmentEndCap,
		tesselator.SegmentLoop, tesselator.SegmentLoop, tesselator.SegmentLoop, tesselator.SegmentLoop,
	} {
		assert.Equal(t, float64(want), types.Component(i, 0), "type of instance %d", i)
	}

	colors := l.Attributes().Get(AttrColors)
	assert.Equal(t, 255.0, colors.Component(0, 0))
	assert.Equal(t, 255.0, colors.Component(5, 2))
	assert.Equal(t, 255.0, colors.Component(5, 3))

	outline := l.Attributes().Get(AttrOutlineWidths)
	assert.Equal(t, 8.0, outline.Component(3, 0))
}

func TestPathLayerPositionWindows(t *testing.T) {
	l := newTripLayer(t, DefaultProps())
	positions := l.Attributes().Get(AttrPositions)
	require.Equal(t, 6, positions.Count())

	// Second segment of the open path: left v0, start v1, end v2, right v2.
	assert.Equal(t, 0.0, positions.Component(1, 0))
	assert.Equal(t, 1.0, positions.Component(1, 3))
	assert.Equal(t, 2.0, positions.Component(1, 6))
	assert.Equal(t, 2.0, positions.Component(1, 9))

	// Last segment of the loop wraps around: left (1,1), start (0,1),
	// end (0,0), right (1,0).
	want := []float64{1, 1, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0}
	for c, v := range want {
		assert.Equal(t, v, positions.Component(5, c), "component %d", c)
	}
}

func TestPathLayerBindings(t *testing.T) {
	l := newTripLayer(t, DefaultProps())
	bindings := l.Attributes().Bindings(1)
	require.Len(t, bindings, 7)

	pos := bindings[0]
	assert.Equal(t, AttrPositions, pos.Attribute)
	assert.Equal(t, uint64(48), pos.Layout.ArrayStride)
	assert.Equal(t, gputypes.VertexStepModeInstance, pos.Layout.StepMode)
	assert.Equal(t, []string{"instanceLeftPositions", "instanceStartPositions", "instanceEndPositions", "instanceRightPositions"}, pos.Names)
	for i, a := range pos.Layout.Attributes {
		assert.Equal(t, uint32(1+i), a.ShaderLocation)
		assert.Equal(t, uint64(12*i), a.Offset)
	}

	types := bindings[1]
	require.Len(t, types.Layout.Attributes, 1)
	assert.Equal(t, gputypes.VertexFormatUint32, types.Layout.Attributes[0].Format)
	assert.Equal(t, uint32(5), types.Layout.Attributes[0].ShaderLocation)

	picking := bindings[6]
	assert.Equal(t, gputypes.VertexFormatUint8x4, picking.Layout.Attributes[0].Format)
	assert.Equal(t, uint32(10), picking.Layout.Attributes[0].ShaderLocation)
}

func TestPathLayerFP64(t *testing.T) {
	props := DefaultProps()
	props.FP64 = true
	l := newTripLayer(t, props)

	positions := l.Attributes().Get(AttrPositions)
	assert.Equal(t, 24, positions.Size())

	bindings := l.Attributes().Bindings(1)
	require.Len(t, bindings[0].Names, 8)
	assert.Equal(t, "instanceLeftPositions64Low", bindings[0].Names[1])
	assert.Equal(t, uint64(96), bindings[0].Layout.ArrayStride)

	props.FP64 = false
	assert.ErrorIs(t, l.SetProps(props), ErrInvalidProp)
}

func TestPathLayerUpdateTriggers(t *testing.T) {
	scale := 1.0
	l, err := NewOutPathLayer("trips", trips, Accessors[trip]{
		GetPath:  tripPath,
		GetWidth: func(tr trip, _ int) float64 { return tr.width * scale },
	}, DefaultProps())
	require.NoError(t, err)
	l.Update(ChangeFlags{DataChanged: true})

	scale = 10
	l.Update(ChangeFlags{})
	assert.Equal(t, 1.0, l.Attributes().Get(AttrStrokeWidths).Component(0, 0), "no trigger, no recompute")

	l.Update(ChangeFlags{UpdateTriggersChanged: UpdateTriggers{Accessors: []string{AccessorWidth}}})
	assert.Equal(t, 10.0, l.Attributes().Get(AttrStrokeWidths).Component(0, 0))
	assert.Equal(t, 20.0, l.Attributes().Get(AttrStrokeWidths).Component(2, 0))
}

func TestPathLayerSetData(t *testing.T) {
	l := newTripLayer(t, DefaultProps())
	l.SetData(trips[:1])
	l.Update(ChangeFlags{DataChanged: true})
	assert.Equal(t, 2, l.NumInstances())
	assert.Equal(t, []int{0, 2}, l.StartIndices())

	l.SetData(nil)
	l.Update(ChangeFlags{DataChanged: true})
	assert.Equal(t, 0, l.NumInstances())
}

func TestPathLayerBinaryGeometry(t *testing.T) {
	l, err := NewOutPathLayer[trip]("binary", make([]trip, 2), Accessors[trip]{}, DefaultProps())
	require.NoError(t, err)
	l.SetBinary(Binary{
		Geometry: &tesselator.GeometryBuffer{
			Positions:    []float64{0, 0, 1, 0, 5, 5, 6, 5, 7, 5},
			StartIndices: []int{0, 2},
			Size:         2,
		},
		Attributes: map[string][]float64{AttrStrokeWidths: {3, 4}},
	})
	l.Update(ChangeFlags{DataChanged: true})

	assert.Equal(t, 3, l.NumInstances())
	widths := l.Attributes().Get(AttrStrokeWidths)
	assert.Equal(t, 3.0, widths.Component(0, 0))
	assert.Equal(t, 4.0, widths.Component(2, 0))
}

func TestPathLayerMissingGeometry(t *testing.T) {
	twoPaths := &tesselator.GeometryBuffer{
		Positions:    []float64{0, 0, 1, 0, 5, 5, 6, 5, 7, 5},
		StartIndices: []int{0, 2},
		Size:         2,
	}
	threeTrips := append(append([]trip(nil), trips...), trip{coords: [][]float64{{9, 9}, {10, 9}}, width: 7})

	tests := []struct {
		name      string
		data      []trip
		acc       Accessors[trip]
		geometry  *tesselator.GeometryBuffer
		instances int
		widths    []float64
	}{
		{
			name: "NilGetPath",
			data: trips,
			acc:  Accessors[trip]{GetWidth: tripWidth},
		},
		{
			name:      "GeometryShorterThanData",
			data:      threeTrips,
			acc:       Accessors[trip]{GetWidth: tripWidth},
			geometry:  twoPaths,
			instances: 3,
			widths:    []float64{1, 2, 2},
		},
		{
			name:      "GeometryWithoutRecords",
			acc:       Accessors[trip]{GetWidth: tripWidth, GetColor: func(tr trip, _ int) Color { return tr.color }},
			geometry:  twoPaths,
			instances: 3,
			widths:    []float64{1, 1, 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewOutPathLayer("missing", tt.data, tt.acc, DefaultProps())
			require.NoError(t, err)
			l.SetBinary(Binary{Geometry: tt.geometry})
			require.NotPanics(t, func() { l.Update(ChangeFlags{DataChanged: true}) })
			assert.Equal(t, tt.instances, l.NumInstances())

			widths := l.Attributes().Get(AttrStrokeWidths)
			colors := l.Attributes().Get(AttrColors)
			require.Equal(t, tt.instances, widths.Count())
			for i, want := range tt.widths {
				assert.Equal(t, want, widths.Component(i, 0), "width of instance %d", i)
				assert.Equal(t, 255.0, colors.Component(i, 3), "alpha of instance %d", i)
			}
		})
	}
}

func TestPathLayerPropsChangeKeepsGeometry(t *testing.T) {
	square := tesselator.Path{Flat: []float64{0, 0, 1, 0, 1, 1, 0, 1, 0, 0}, Size: 2}
	calls := 0
	l, err := NewOutPathLayer("square", []tesselator.Path{square}, Accessors[tesselator.Path]{
		GetPath: func(p tesselator.Path, _ int) tesselator.Path {
			calls++
			return p
		},
	}, DefaultProps())
	require.NoError(t, err)
	l.Update(ChangeFlags{DataChanged: true})
	require.Equal(t, 1, calls)
	assert.Equal(t, 4, l.NumInstances())
	assert.Equal(t, uint8(tesselator.SegmentLoop), l.Tesselator().SegmentTypes()[0])

	props := l.Props()
	props.WidthScale = 3
	require.NoError(t, l.SetProps(props))
	l.Update(ChangeFlags{PropsChanged: true})
	assert.Equal(t, 1, calls, "a width change must not re-tesselate")

	// Without normalization the closing vertex is kept as an open path.
	props.PathType = PathTypeOpen
	require.NoError(t, l.SetProps(props))
	l.Update(ChangeFlags{PropsChanged: true})
	assert.Equal(t, 2, calls)
	assert.Equal(t, 4, l.NumInstances())
	assert.Equal(t, uint8(tesselator.SegmentStartCap), l.Tesselator().SegmentTypes()[0])

	l.Update(ChangeFlags{PropsChanged: true})
	assert.Equal(t, 2, calls, "the path type change is consumed by one update")
}

func TestNewPathLayerInvalidProps(t *testing.T) {
	props := DefaultProps()
	props.MiterLimit = -1
	_, err := NewOutPathLayer("bad", trips, Accessors[trip]{GetPath: tripPath}, props)
	assert.ErrorIs(t, err, ErrInvalidProp)
}

func TestDraw(t *testing.T) {
	props := DefaultProps()
	props.CapRounded = true
	props.WidthUnits = UnitPixels
	l := newTripLayer(t, props)

	var got *DrawCall
	r := RendererFunc(func(_ context.Context, call *DrawCall) error {
		got = call
		return nil
	})
	require.NoError(t, l.Draw(context.Background(), r))
	require.NotNil(t, got)

	assert.Equal(t, "trips", got.Layer)
	assert.Equal(t, 6, got.InstanceCount)
	assert.Equal(t, gputypes.PrimitiveTopologyTriangleList, got.Topology)
	assert.Len(t, got.Indices, 12)
	assert.Len(t, got.Geometry, 12)
	require.Len(t, got.Uniforms, 1)

	path := got.Uniform("path")
	require.Len(t, path, 48)
	assert.Equal(t, float32(1), f32At(path, 0), "widthScale")
	assert.Equal(t, float32(1), f32At(path, 16), "capType")
	assert.Equal(t, float32(4), f32At(path, 20), "miterLimit")
	assert.Equal(t, int32(2), i32At(path, 28), "widthUnits")
	assert.Equal(t, int32(2), i32At(path, 32), "outlineWidthUnits")
	assert.Nil(t, got.Uniform("outline"))
}

func TestDrawOutlinedPath(t *testing.T) {
	l, err := NewOutlinedPathLayer("outlined", trips, Accessors[trip]{GetPath: tripPath}, DefaultProps())
	require.NoError(t, err)
	l.Update(ChangeFlags{DataChanged: true})

	assert.Equal(t, 0.0, l.Attributes().Get(AttrOutlineWidths).Component(0, 0))

	call, err := l.DrawCall()
	require.NoError(t, err)
	require.Len(t, call.Uniforms, 2)
	assert.Len(t, call.Uniform("path"), 32)
	outline := call.Uniform("outline")
	require.Len(t, outline, 16)
	assert.Equal(t, int32(2), i32At(outline, 0))
	assert.Equal(t, float32(MaxSafeInteger), f32At(outline, 8))
}

func TestDrawSkipsEmptyLayer(t *testing.T) {
	l, err := NewOutPathLayer[trip]("empty", nil, Accessors[trip]{GetPath: tripPath}, DefaultProps())
	require.NoError(t, err)
	l.Update(ChangeFlags{DataChanged: true})

	called := false
	require.NoError(t, l.Draw(context.Background(), RendererFunc(func(context.Context, *DrawCall) error {
		called = true
		return nil
	})))
	assert.False(t, called)
}

func TestDrawRendererError(t *testing.T) {
	l := newTripLayer(t, DefaultProps())
	errLost := errors.New("device lost")
	err := l.Draw(context.Background(), RendererFunc(func(context.Context, *DrawCall) error {
		return errLost
	}))
	assert.ErrorIs(t, err, errLost)
}

func TestDestroy(t *testing.T) {
	orig := outpath.Logger()
	t.Cleanup(func() { outpath.SetLogger(orig) })
	var logs bytes.Buffer
	outpath.SetLogger(slog.New(slog.NewTextHandler(&logs, nil)))

	l := newTripLayer(t, DefaultProps())
	l.Destroy()
	assert.Equal(t, 0, l.NumInstances())
	_, _, ok := l.Bounds()
	assert.False(t, ok)
	assert.NotContains(t, logs.String(), "level=WARN")

	// The attributes are declared again and the layer is usable.
	require.Len(t, l.Attributes().Attributes(), 7)
	l.Update(ChangeFlags{DataChanged: true})
	assert.Equal(t, 6, l.NumInstances())
}

type segment struct {
	from, to []float64
}

func TestOutlineLayer(t *testing.T) {
	data := []segment{
		{from: []float64{0, 0}, to: []float64{10, 0}},
		{from: []float64{0, 0, 1}, to: []float64{0, 5, 1}},
	}
	props := DefaultProps()
	props.CapType = CapNone
	l, err := NewOutlineLayer("segments", data, LineAccessors[segment]{
		GetSourcePosition: func(s segment, _ int) []float64 { return s.from },
		GetTargetPosition: func(s segment, _ int) []float64 { return s.to },
	}, props)
	require.NoError(t, err)
	l.Update(ChangeFlags{DataChanged: true})

	assert.Equal(t, PathTypeOpen, l.Props().PathType)
	assert.Equal(t, 2, l.NumInstances())
	types := l.Attributes().Get(AttrTypes)
	assert.Equal(t, float64(tesselator.SegmentStartCap|tesselator.SegmentEndCap), types.Component(1, 0))

	positions := l.Attributes().Get(AttrPositions)
	assert.Equal(t, 10.0, positions.Component(0, 6))
	assert.Equal(t, 1.0, positions.Component(1, 5))

	call, err := l.DrawCall()
	require.NoError(t, err)
	assert.Equal(t, float32(2), f32At(call.Uniform("path"), 16), "capType none")

	lo, hi, ok := l.Bounds()
	require.True(t, ok)
	assert.Equal(t, [3]float64{0, 0, 0}, lo)
	assert.Equal(t, [3]float64{10, 5, 1}, hi)
}

func TestOutlineLayerRequiresPositions(t *testing.T) {
	_, err := NewOutlineLayer("segments", []segment{}, LineAccessors[segment]{}, DefaultProps())
	assert.ErrorIs(t, err, ErrInvalidProp)
}

func TestConst(t *testing.T) {
	get := Const[trip](RGB(1, 2, 3))
	assert.Equal(t, RGB(1, 2, 3), get(trip{}, 7))
}

type wrapped struct {
	source int
	coords [][]float64
}

func (w wrapped) SourceIndex() int { return w.source }

func TestPicking(t *testing.T) {
	data := []wrapped{
		{source: 4, coords: [][]float64{{0, 0}, {1, 1}}},
		{source: 9, coords: [][]float64{{0, 0}, {1, 1}, {2, 0}}},
	}
	l, err := NewOutPathLayer("picking", data, Accessors[wrapped]{
		GetPath: func(w wrapped, _ int) tesselator.Path { return tesselator.Path{Points: w.coords} },
	}, DefaultProps())
	require.NoError(t, err)
	l.Update(ChangeFlags{DataChanged: true})

	picking := l.Attributes().Get(AttrPickingColors)
	assert.Equal(t, 5.0, picking.Component(0, 0))
	assert.Equal(t, 10.0, picking.Component(2, 0))
	assert.Equal(t, 255.0, picking.Component(2, 3))

	info, ok := l.PickObject(attribute.EncodePickingColor(9))
	require.True(t, ok)
	assert.Equal(t, 9, info.Index)
	assert.Equal(t, data[1].coords, info.Object.coords)

	_, ok = l.PickObject(attribute.PickingColor{})
	assert.False(t, ok)

	require.NoError(t, l.DisablePickingIndex(9))
	l.Update(ChangeFlags{})
	assert.Equal(t, 5.0, picking.Component(0, 0))
	assert.Equal(t, 0.0, picking.Component(1, 0))
	assert.Equal(t, 0.0, picking.Component(2, 0))

	l.RestorePickingColors()
	l.Update(ChangeFlags{})
	assert.Equal(t, 10.0, picking.Component(2, 0))

	assert.Error(t, l.DisablePickingIndex(-1))
}

func TestPickObjectByRow(t *testing.T) {
	l := newTripLayer(t, DefaultProps())
	info, ok := l.PickObject(attribute.EncodePickingColor(1))
	require.True(t, ok)
	assert.Equal(t, 1, info.Index)
	assert.Equal(t, 2.0, info.Object.width)

	_, ok = l.PickObject(attribute.EncodePickingColor(2))
	assert.False(t, ok)
}
