// Package outpath renders lists of coordinates as extruded polylines with an
// outline stroke, drawn with one instanced GPU draw call per layer.
//
// # Overview
//
// The module is organized into:
//   - tesselator: converts path geometry into padded instance buffers
//     (positions, segment types, vertex starts)
//   - attribute: per-instance attributes filled from record accessors
//   - layer: OutPathLayer, OutlinedPathLayer and OutlineLayer, which pack
//     draw parameters into uniform blocks and hand an instanced draw call to
//     a host renderer
//
// # Quick Start
//
//	l, err := layer.NewOutPathLayer("trips", trips, layer.Accessors[Trip]{
//	    GetPath:  func(t Trip, _ int) tesselator.Path { return t.Path() },
//	    GetColor: func(t Trip, _ int) layer.Color { return t.Color },
//	}, layer.DefaultProps())
//	if err != nil {
//	    return err
//	}
//	l.Update(layer.ChangeFlags{DataChanged: true})
//	err = l.Draw(ctx, renderer)
//
// The renderer is any [layer.Renderer]; the internal preview package
// rasterizes draw calls on the CPU for the outpath command.
//
// # Logging
//
// The module is silent by default. Call [SetLogger] to receive diagnostics
// such as skipped paths and buffer sizes.
package outpath

// Version information
const (
	// Version is the current version of the module
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
