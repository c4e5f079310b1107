package domain

import "math"

// Audio chunks are raw 16-bit little-endian PCM. The helpers below are
// the whole of the media-plane math: volume scaling on the way in/out
// and an RMS level used for silence indication.

// ApplyGain scales every sample in place, clamping at the int16 range.
// A gain of 1.0 is a no-op; the trailing odd byte of a malformed chunk
// is left untouched.
func ApplyGain(chunk []byte, gain float64) {
	if gain == 1.0 {
		return
	}
	for i := 0; i+1 < len(chunk); i += 2 {
		s := float64(int16(uint16(chunk[i]) | uint16(chunk[i+1])<<8)) * gain
		switch {
		case s > math.MaxInt16:
			s = math.MaxInt16
		case s < math.MinInt16:
			s = math.MinInt16
		}
		v := uint16(int16(s))
		chunk[i] = byte(v)
		chunk[i+1] = byte(v >> 8)
	}
}

// RMS returns the root-mean-square amplitude of the chunk normalized to
// [0,1]. An empty chunk is silent.
func RMS(chunk []byte) float64 {
	n := len(chunk) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i+1 < len(chunk); i += 2 {
		// normalize by 32768 so MinInt16 maps to exactly -1.0 and the
		// result stays inside [0,1]
		s := float64(int16(uint16(chunk[i])|uint16(chunk[i+1])<<8)) / 32768
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}

// IsSilence compares the normalized RMS level against threshold. Used
// for UI feedback only; silent chunks are still delivered.
func IsSilence(chunk []byte, threshold float64) bool {
	return RMS(chunk) < threshold
}
