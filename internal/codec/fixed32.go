// internal/codec/fixed32.go
package codec

import "math"

// ScaleCentiMM is the register scale for values carried in 1/100 mm.
const ScaleCentiMM = 100

// Int32 bounds, restated to keep the clamp explicit.
const (
	minInt32 = -2147483648
	maxInt32 = 2147483647
)

// EncodeFixed32 converts a physical value into the controller's two-word
// representation: value*scale rounded to the nearest integer, clamped to
// int32, reinterpreted as unsigned via two's complement and split into
// [low, high] 16-bit words (low word first).
//
// Clamping is silent on the wire but reported so callers can log it.
func EncodeFixed32(value float64, scale int) (low, high uint16, clamped bool) {
	scaled := math.Round(value * float64(scale))

	if scaled < minInt32 {
		scaled = minInt32
		clamped = true
	} else if scaled > maxInt32 {
		scaled = maxInt32
		clamped = true
	}

	u := uint32(int32(scaled))
	return uint16(u & 0xFFFF), uint16(u >> 16), clamped
}

// DecodeFixed32 is the inverse of EncodeFixed32: rebuilds the signed 32-bit
// value from its two words (low word first) and divides by scale.
func DecodeFixed32(low, high uint16, scale int) float64 {
	u := uint32(high)<<16 | uint32(low)
	return float64(int32(u)) / float64(scale)
}
