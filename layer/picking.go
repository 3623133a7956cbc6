package layer

import (
	"fmt"

	"github.com/gogpu/outpath"
	"github.com/gogpu/outpath/attribute"
)

// PickInfo describes the object under a picked pixel.
type PickInfo[T any] struct {
	Index  int
	Object T
}

func (l *PathLayer[T]) pickingIndex(record int) int {
	index := record
	if record < len(l.data) {
		if s, ok := any(l.data[record]).(SourceIndexer); ok {
			index = s.SourceIndex()
		}
	}
	if l.disabled[index] {
		return -1
	}
	return index
}

// PickObject resolves a color read back from the picking buffer. The
// second result is false for the background color or an index outside the
// data.
func (l *PathLayer[T]) PickObject(c attribute.PickingColor) (PickInfo[T], bool) {
	index := attribute.DecodePickingColor(c)
	if index < 0 {
		return PickInfo[T]{Index: -1}, false
	}
	for r, d := range l.data {
		if s, ok := any(d).(SourceIndexer); ok && s.SourceIndex() == index {
			return PickInfo[T]{Index: index, Object: l.data[r]}, true
		}
	}
	if index >= len(l.data) {
		return PickInfo[T]{Index: -1}, false
	}
	return PickInfo[T]{Index: index, Object: l.data[index]}, true
}

// DisablePickingIndex stops the object at index from being picked until
// RestorePickingColors is called. For records that implement SourceIndexer
// index is a source index and every row wrapping it is disabled.
func (l *PathLayer[T]) DisablePickingIndex(index int) error {
	if index < 0 || index > attribute.MaxPickingIndex {
		return fmt.Errorf("layer %s: picking index %d out of range", l.id, index)
	}
	if l.disabled == nil {
		l.disabled = make(map[int]bool)
	}
	l.disabled[index] = true
	l.attrs.Invalidate(AttrPickingColors)
	outpath.Logger().Debug("layer: picking disabled", "layer", l.id, "index", index)
	return nil
}

// RestorePickingColors re-enables picking for every record.
func (l *PathLayer[T]) RestorePickingColors() {
	if len(l.disabled) == 0 {
		return
	}
	clear(l.disabled)
	l.attrs.Invalidate(AttrPickingColors)
}
