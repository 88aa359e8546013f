package interview

import (
	"encoding/binary"
	"math"
)

// RMS returns the root-mean-square amplitude of a frame of 16-bit signed
// little-endian PCM samples. Empty and odd-length frames read as silence.
func RMS(frame []byte) float64 {
	if len(frame) < 2 || len(frame)%2 != 0 {
		return 0
	}
	n := len(frame) / 2
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(frame[2*i:])))
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}

// Detector classifies frames as speech or silence by energy.
type Detector struct {
	Threshold float64
}

// IsSpeech reports whether the frame's RMS is strictly above the threshold.
func (d Detector) IsSpeech(frame []byte) bool {
	return RMS(frame) > d.Threshold
}
