package attribute

// PickingColor is the RGB color written to the picking buffer for one
// object. The zero color means "no object".
type PickingColor [3]uint8

// EncodePickingColor encodes an object index. Index -1 encodes to the
// zero color.
func EncodePickingColor(index int) PickingColor {
	v := index + 1
	return PickingColor{uint8(v), uint8(v >> 8), uint8(v >> 16)}
}

// DecodePickingColor returns the object index of c, or -1 for the zero
// color.
func DecodePickingColor(c PickingColor) int {
	return int(c[0]) + int(c[1])<<8 + int(c[2])<<16 - 1
}

// MaxPickingIndex is the largest index that survives an encode/decode round
// trip.
const MaxPickingIndex = 1<<24 - 2

// PickingAccessor returns an accessor for a 4-component picking attribute.
// index maps a record to the object index to encode, which is the record
// itself unless the data was wrapped by an upstream stage.
func PickingAccessor(index func(record int) int) Accessor {
	return func(record int, dst []float64) {
		c := EncodePickingColor(index(record))
		dst[0], dst[1], dst[2] = float64(c[0]), float64(c[1]), float64(c[2])
		if len(dst) > 3 {
			dst[3] = 255
		}
	}
}
