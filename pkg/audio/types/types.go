// Package types holds the small set of ambient PCM types the CLI needs to
// describe raw audio framing, trimmed down from the teacher's broader
// audio.Channel/SampleRate/PCMFormat vocabulary (used throughout
// pkg/audio/*.go for live capture/playback) to just the subset the VAD
// command-line front-end exercises when reading a PCM file or stdin.
package types

// SampleRate is a PCM sample rate in Hz.
type SampleRate int

// Channel is a channel count.
type Channel int

// PCMFormat identifies the sample encoding of a raw PCM byte stream.
type PCMFormat int

const (
	PCMFormatS16LE PCMFormat = iota
	PCMFormatS16BE
	PCMFormatFloat32LE
)

// Size returns the number of bytes one sample occupies in this format.
func (f PCMFormat) Size() int {
	switch f {
	case PCMFormatS16LE, PCMFormatS16BE:
		return 2
	case PCMFormatFloat32LE:
		return 4
	default:
		return 0
	}
}

func (f PCMFormat) String() string {
	switch f {
	case PCMFormatS16LE:
		return "s16le"
	case PCMFormatS16BE:
		return "s16be"
	case PCMFormatFloat32LE:
		return "f32le"
	default:
		return "unknown"
	}
}
