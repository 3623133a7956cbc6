package main

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"

	"github.com/gogpu/outpath"
	"github.com/gogpu/outpath/internal/colorparse"
	"github.com/gogpu/outpath/layer"
	"github.com/gogpu/outpath/tesselator"
)

// Coord is one timestamped trip position.
type Coord struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Timestamp any     `json:"timestamp"`
}

// Trip is one record of a trips file. Color is an [r, g, b] array, an
// "rgb(r, g, b)" string or a hex color.
type Trip struct {
	UUID      string  `json:"UUID"`
	DateStart any     `json:"dateStart"`
	Coords    []Coord `json:"coords"`
	Color     any     `json:"color"`

	rgba layer.Color
}

// Path returns the trip as a flat lng/lat path.
func (t Trip) Path() tesselator.Path {
	flat := make([]float64, 0, 2*len(t.Coords))
	for _, c := range t.Coords {
		flat = append(flat, c.Lng, c.Lat)
	}
	return tesselator.Path{Flat: flat, Size: 2}
}

// RGBA returns the parsed trip color.
func (t Trip) RGBA() layer.Color { return t.rgba }

// source and target are the first and last positions, nil for an empty
// trip.
func (t Trip) source() []float64 {
	if len(t.Coords) == 0 {
		return nil
	}
	return []float64{t.Coords[0].Lng, t.Coords[0].Lat}
}

func (t Trip) target() []float64 {
	if len(t.Coords) == 0 {
		return nil
	}
	c := t.Coords[len(t.Coords)-1]
	return []float64{c.Lng, c.Lat}
}

func loadTrips(path string) ([]Trip, error) {
	if path == "" {
		return nil, fmt.Errorf("no trips file, set --trips")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trips: %w", err)
	}
	var trips []Trip
	if err := json.Unmarshal(data, &trips); err != nil {
		return nil, fmt.Errorf("decoding trips %s: %w", path, err)
	}
	for i := range trips {
		c, err := colorparse.Parse(trips[i].Color)
		if err != nil {
			c = fallbackColor(trips[i].UUID)
			outpath.Logger().Warn("trips: unusable color", "uuid", trips[i].UUID, "err", err)
		}
		trips[i].rgba = c
	}
	return trips, nil
}

// fallbackColor derives a stable opaque color from the trip id.
func fallbackColor(uuid string) layer.Color {
	h := fnv.New32a()
	h.Write([]byte(uuid))
	v := h.Sum32()
	return layer.RGB(uint8(v>>16), uint8(v>>8), uint8(v))
}
