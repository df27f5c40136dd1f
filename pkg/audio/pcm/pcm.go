// Package pcm converts between raw PCM bytes and the []float32 in [-1,1]
// the VAD core expects, the way the teacher's resampler converts between
// arbitrary PCM formats via a shared getFloat64/setFloat64 switch.
package pcm

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/xaionaro-go/streamvad/pkg/audio/types"
)

// ToFloat32 decodes n samples of the given format from p into out, which
// must have length >= n. It returns the number of samples decoded.
func ToFloat32(format types.PCMFormat, p []byte, out []float32) (int, error) {
	size := format.Size()
	if size == 0 {
		return 0, fmt.Errorf("pcm: unsupported format %v", format)
	}
	n := len(p) / size
	if n > len(out) {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		sample := p[i*size : (i+1)*size]
		switch format {
		case types.PCMFormatS16LE:
			out[i] = float32(int16(binary.LittleEndian.Uint16(sample))) / 32768
		case types.PCMFormatS16BE:
			out[i] = float32(int16(binary.BigEndian.Uint16(sample))) / 32768
		case types.PCMFormatFloat32LE:
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(sample))
		default:
			return 0, fmt.Errorf("pcm: unsupported format %v", format)
		}
	}
	return n, nil
}

// BytesPerSample returns the byte size of one sample in the given format.
func BytesPerSample(format types.PCMFormat) int {
	return format.Size()
}
