// Package webrtcfvad implements the scorer.Scorer contract on top of
// WebRTC's classical (non-neural) voice activity detector via
// github.com/josharian/fvad. It is a supplemental backend: there is no
// ONNX model to classify by port signature, so it is never registered
// with the scorer registry and is instead selected directly by backend
// name, mirroring the teacher's own (unretrieved)
// pkg/vad/implementations/libfvad package referenced from its speech
// pipeline.
//
// WebRTC's detector is a hard voice/non-voice classifier, not a
// continuous probability estimator, so Score returns exactly 1.0 or 0.0.
package webrtcfvad

import (
	"fmt"

	"github.com/josharian/fvad"
	"github.com/xaionaro-go/streamvad/pkg/vad/scorer"
)

// Mode selects the aggressiveness of WebRTC's classical detector, passed
// straight through to fvad.Mode.
type Mode = fvad.Mode

const (
	ModeQuality        = fvad.QualityMode
	ModeLowBitrate     = fvad.LowBitrateMode
	ModeAggressive     = fvad.AggressiveMode
	ModeVeryAggressive = fvad.VeryAggressiveMode
)

// validFrameMs are the only frame durations WebRTC's detector accepts.
var validFrameMs = map[int]bool{10: true, 20: true, 30: true}

// Scorer wraps a *fvad.Fvad instance. It is not registered in the ONNX
// scorer registry; callers construct it directly with New.
type Scorer struct {
	detector    *fvad.Fvad
	sampleRate  int
	frameLength int
	scratch     []int16
}

var _ scorer.Scorer = (*Scorer)(nil)

// New builds a webrtcfvad Scorer for the given sample rate, frame duration
// (10, 20, or 30ms) and detector aggressiveness mode.
func New(sampleRate, frameMs int, mode Mode) (*Scorer, error) {
	if !validFrameMs[frameMs] {
		return nil, fmt.Errorf("webrtcfvad: frame duration must be 10, 20, or 30ms, got %dms", frameMs)
	}

	detector := fvad.New()
	if err := detector.SetSampleRate(sampleRate); err != nil {
		return nil, fmt.Errorf("webrtcfvad: set sample rate %d: %w", sampleRate, err)
	}
	if err := detector.SetMode(mode); err != nil {
		return nil, fmt.Errorf("webrtcfvad: set mode %v: %w", mode, err)
	}

	frameLength := frameMs * sampleRate / 1000
	return &Scorer{
		detector:    detector,
		sampleRate:  sampleRate,
		frameLength: frameLength,
		scratch:     make([]int16, frameLength),
	}, nil
}

func (s *Scorer) Geometry() scorer.Geometry {
	return scorer.Geometry{FrameShift: s.frameLength, FrameLength: s.frameLength}
}

// InitState is a no-op: WebRTC's classical detector carries no recurrent
// state across frames beyond its own internal energy history, which has
// no exposed reset hook other than rebuilding the detector.
func (s *Scorer) InitState() {}

// Score converts one frame of [-1,1] float samples to int16 PCM and runs
// WebRTC's classical voice/non-voice decision, returning 1.0 for voice and
// 0.0 for non-voice.
func (s *Scorer) Score(frame []float32) (float64, error) {
	if len(frame) != s.frameLength {
		return 0, fmt.Errorf("webrtcfvad: expected %d samples, got %d", s.frameLength, len(frame))
	}
	for i, sample := range frame {
		s.scratch[i] = int16(sample * 32767)
	}
	voice, err := s.detector.Process(s.scratch)
	if err != nil {
		return 0, fmt.Errorf("webrtcfvad: process frame: %w", err)
	}
	if voice {
		return 1.0, nil
	}
	return 0.0, nil
}

func (s *Scorer) Close() error {
	return nil
}
