package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/outpath/internal/colorparse"
	"github.com/gogpu/outpath/layer"
	"github.com/gogpu/outpath/tesselator"
)

// Layer kinds accepted by --layers.
const (
	kindOutPath  = "outpath"
	kindOutlined = "outlined"
	kindOutline  = "outline"
)

type style struct {
	strokeWidth  float64
	outlineWidth float64
	outlineColor layer.Color
}

func loadStyle(conf *viper.Viper) (style, error) {
	c, err := colorparse.Parse(conf.GetString("outline-color"))
	if err != nil {
		return style{}, fmt.Errorf("outline color: %w", err)
	}
	return style{
		strokeWidth:  conf.GetFloat64("stroke-width"),
		outlineWidth: conf.GetFloat64("outline-width"),
		outlineColor: c,
	}, nil
}

func loadProps(conf *viper.Viper) (layer.Props, error) {
	path := conf.GetString("props")
	if path == "" {
		return layer.DefaultProps(), nil
	}
	return layer.LoadProps(path)
}

func newLayer(kind string, trips []Trip, props layer.Props, s style) (*layer.PathLayer[Trip], error) {
	id := kind + "-trips"
	switch kind {
	case kindOutPath, kindOutlined:
		acc := layer.Accessors[Trip]{
			GetPath:         func(t Trip, _ int) tesselator.Path { return t.Path() },
			GetColor:        func(t Trip, _ int) layer.Color { return t.RGBA() },
			GetWidth:        layer.Const[Trip](s.strokeWidth),
			GetOutlineColor: layer.Const[Trip](s.outlineColor),
			GetOutlineWidth: layer.Const[Trip](s.outlineWidth),
		}
		if kind == kindOutlined {
			return layer.NewOutlinedPathLayer(id, trips, acc, props)
		}
		return layer.NewOutPathLayer(id, trips, acc, props)
	case kindOutline:
		return layer.NewOutlineLayer(id, trips, layer.LineAccessors[Trip]{
			GetSourcePosition: func(t Trip, _ int) []float64 { return t.source() },
			GetTargetPosition: func(t Trip, _ int) []float64 { return t.target() },
			GetColor:          func(t Trip, _ int) layer.Color { return t.RGBA() },
			GetWidth:          layer.Const[Trip](s.strokeWidth),
			GetOutlineColor:   layer.Const[Trip](s.outlineColor),
			GetOutlineWidth:   layer.Const[Trip](s.outlineWidth),
		}, props)
	}
	return nil, fmt.Errorf("unknown layer kind %q", kind)
}

// buildLayers creates and tesselates one layer per kind. Layers share no
// state, so each is built on its own goroutine.
func buildLayers(ctx context.Context, kinds []string, trips []Trip, props layer.Props, s style) ([]*layer.PathLayer[Trip], error) {
	layers := make([]*layer.PathLayer[Trip], len(kinds))
	g, ctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			l, err := newLayer(kind, trips, props, s)
			if err != nil {
				return err
			}
			l.Update(layer.ChangeFlags{DataChanged: true})
			layers[i] = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return layers, nil
}

// setup loads everything the layer commands share.
func setup(ctx context.Context, conf *viper.Viper) ([]*layer.PathLayer[Trip], error) {
	trips, err := loadTrips(conf.GetString("trips"))
	if err != nil {
		return nil, err
	}
	props, err := loadProps(conf)
	if err != nil {
		return nil, err
	}
	s, err := loadStyle(conf)
	if err != nil {
		return nil, err
	}
	return buildLayers(ctx, conf.GetStringSlice("layers"), trips, props, s)
}
