package tesselator

// SplitFloat64 splits v into a float32 high part and the float32 remainder,
// so that float64(hi)+float64(lo) recovers v to roughly 48 bits of mantissa.
func SplitFloat64(v float64) (hi, lo float32) {
	hi = float32(v)
	lo = float32(v - float64(hi))
	return hi, lo
}

// JoinFloat64 is the inverse of [SplitFloat64].
func JoinFloat64(hi, lo float32) float64 {
	return float64(hi) + float64(lo)
}
