package stream

import "math"

// DefaultVolume matches the relay's usual loudness without clipping.
const DefaultVolume = 0.4

// ApplyVolume scales samples in place, clamping to the int16 range.
func ApplyVolume(samples []int16, volume float64) {
	if volume == 1 {
		return
	}
	for i, s := range samples {
		v := math.Round(float64(s) * volume)
		switch {
		case v > math.MaxInt16:
			v = math.MaxInt16
		case v < math.MinInt16:
			v = math.MinInt16
		}
		samples[i] = int16(v)
	}
}
