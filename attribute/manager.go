package attribute

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/outpath"
)

// ErrInvalidDescriptor is returned for attribute declarations that cannot be
// encoded.
var ErrInvalidDescriptor = errors.New("attribute: invalid descriptor")

// Context describes the instance layout an update fills.
type Context struct {
	// NumRecords is the number of input records. When StartIndices is set,
	// records beyond its last path are ignored.
	NumRecords int

	// NumInstances is the number of instances to allocate.
	NumInstances int

	// StartIndices holds the first instance of every record followed by
	// NumInstances. Nil means one instance per record.
	StartIndices []int

	// Buffers holds pre-computed per-record values keyed by attribute name,
	// Size components per record. A buffer bypasses the accessor.
	Buffers map[string][]float64
}

// Manager owns the instanced attributes of one layer.
//
// A Manager is not safe for concurrent use.
type Manager struct {
	id      string
	attrs   []*Attribute
	byName  map[string]*Attribute
	scratch []float64
}

// NewManager creates an empty Manager. id is used in log messages.
func NewManager(id string) *Manager {
	return &Manager{id: id, byName: make(map[string]*Attribute)}
}

// AddInstanced declares attributes. Every new attribute starts invalidated.
func (m *Manager) AddInstanced(descs ...Descriptor) error {
	for _, d := range descs {
		if d.Name == "" || d.Size <= 0 {
			return fmt.Errorf("%w: %q size %d", ErrInvalidDescriptor, d.Name, d.Size)
		}
		if _, dup := m.byName[d.Name]; dup {
			return fmt.Errorf("%w: duplicate attribute %q", ErrInvalidDescriptor, d.Name)
		}
		if len(d.Default) != 0 && len(d.Default) != d.Size {
			return fmt.Errorf("%w: %q default has %d components, want %d",
				ErrInvalidDescriptor, d.Name, len(d.Default), d.Size)
		}
		a := &Attribute{desc: d, needsUpdate: true}
		for _, sa := range a.shaderAttributes() {
			if sa.Offset < 0 || sa.Offset+sa.Size > d.Size {
				return fmt.Errorf("%w: shader attribute %q out of range", ErrInvalidDescriptor, sa.Name)
			}
			if _, ok := VertexFormat(d.Type, sa.Size); !ok {
				return fmt.Errorf("%w: %q has no vertex format for %d x %s",
					ErrInvalidDescriptor, sa.Name, sa.Size, d.Type)
			}
		}
		m.attrs = append(m.attrs, a)
		m.byName[d.Name] = a
	}
	return nil
}

// Get returns the named attribute or nil.
func (m *Manager) Get(name string) *Attribute {
	return m.byName[name]
}

// Attributes returns all attributes in declaration order.
func (m *Manager) Attributes() []*Attribute {
	return m.attrs
}

// Invalidate marks one attribute for recomputation.
func (m *Manager) Invalidate(name string) {
	if a, ok := m.byName[name]; ok {
		a.needsUpdate = true
	}
}

// InvalidateAccessor marks every attribute fed by the named accessor.
func (m *Manager) InvalidateAccessor(accessor string) {
	for _, a := range m.attrs {
		if a.desc.AccessorName == accessor {
			a.needsUpdate = true
		}
	}
}

// InvalidateAll marks every attribute for recomputation.
func (m *Manager) InvalidateAll() {
	for _, a := range m.attrs {
		a.needsUpdate = true
	}
}

// Update recomputes invalidated attributes and returns their names.
func (m *Manager) Update(ctx Context) []string {
	var updated []string
	for _, a := range m.attrs {
		if !a.needsUpdate {
			continue
		}
		if a.desc.Update != nil {
			a.desc.Update(a, ctx)
		} else {
			m.fill(a, ctx)
		}
		a.needsUpdate = false
		updated = append(updated, a.desc.Name)
	}
	if len(updated) > 0 {
		outpath.Logger().Debug("attribute: updated",
			"layer", m.id,
			"attributes", updated,
			"instances", ctx.NumInstances)
	}
	return updated
}

// fill evaluates the accessor once per record and repeats the encoded value
// over the record's instances.
func (m *Manager) fill(a *Attribute, ctx Context) {
	size := a.desc.Size
	stride := a.Stride()
	a.value = a.alloc(ctx.NumInstances)
	a.count = ctx.NumInstances
	if cap(m.scratch) < size {
		m.scratch = make([]float64, size)
	}
	v := m.scratch[:size]
	buffer := ctx.Buffers[a.desc.Name]

	records := ctx.NumRecords
	if ctx.StartIndices != nil {
		records = min(records, len(ctx.StartIndices)-1)
	}
	for r := range records {
		start, end := r, r+1
		if ctx.StartIndices != nil {
			start, end = ctx.StartIndices[r], ctx.StartIndices[r+1]
		}
		if start >= end {
			continue
		}

		clear(v)
		copy(v, a.desc.Default)
		switch {
		case len(buffer) >= (r+1)*size:
			copy(v, buffer[r*size:(r+1)*size])
		case a.desc.Accessor != nil:
			a.desc.Accessor(r, v)
		}

		first := a.value[start*stride : (start+1)*stride]
		a.encode(first, v)
		for i := start + 1; i < end; i++ {
			copy(a.value[i*stride:(i+1)*stride], first)
		}
	}
}

// Binding is one vertex buffer of an instanced draw.
type Binding struct {
	Attribute string
	Names     []string
	Layout    gputypes.VertexBufferLayout
	Data      []byte
}

// Bindings returns one instance-stepped vertex buffer per attribute, with
// shader locations assigned in declaration order from firstLocation.
func (m *Manager) Bindings(firstLocation uint32) []Binding {
	loc := firstLocation
	out := make([]Binding, 0, len(m.attrs))
	for _, a := range m.attrs {
		b := Binding{
			Attribute: a.desc.Name,
			Data:      a.value,
			Layout: gputypes.VertexBufferLayout{
				ArrayStride: uint64(a.Stride()),
				StepMode:    gputypes.VertexStepModeInstance,
			},
		}
		for _, sa := range a.shaderAttributes() {
			format, _ := VertexFormat(a.desc.Type, sa.Size)
			b.Layout.Attributes = append(b.Layout.Attributes, gputypes.VertexAttribute{
				Format:         format,
				Offset:         uint64(sa.Offset * a.desc.Type.Size()),
				ShaderLocation: loc,
			})
			b.Names = append(b.Names, sa.Name)
			loc++
		}
		out = append(out, b)
	}
	return out
}
