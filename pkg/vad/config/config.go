// Package config defines the immutable per-instance configuration for the
// VAD engine and the millisecond-to-frame-count conversion every instance
// performs once at construction.
package config

import "fmt"

// Config holds every tunable of a streaming VAD instance. All fields are
// immutable for the lifetime of the instance; changing behavior requires
// creating a new instance from the same handle.
type Config struct {
	// Threshold is the per-frame speech probability above which a frame
	// counts as "speech" when pushed into the smoothing window.
	Threshold float64

	// SampleRate is the PCM sample rate in Hz. Must match the rate the
	// loaded scorer backend was exported for.
	SampleRate int

	// SpeechWindowSizeMs/SpeechWindowThresholdMs govern the
	// silence-to-speech transition: within the most recent
	// SpeechWindowSizeMs of frames, at least SpeechWindowThresholdMs
	// worth must be speech before a segment opens.
	SpeechWindowSizeMs      int
	SpeechWindowThresholdMs int

	// SilenceWindowSizeMs/SilenceWindowThresholdMs govern the
	// speech-to-silence transition, symmetric to the speech window.
	SilenceWindowSizeMs      int
	SilenceWindowThresholdMs int

	// MaxSpeechMs is a hard cap on a single segment's duration; segments
	// exceeding it are synthetically split.
	MaxSpeechMs int

	// LeftPaddingMs/RightPaddingMs are prepended/appended to the
	// detected start/end of a segment to compensate for smoothing
	// latency.
	LeftPaddingMs  int
	RightPaddingMs int
}

// Default returns the documented default configuration.
func Default() Config {
	return Config{
		Threshold:                0.4,
		SampleRate:               16000,
		SpeechWindowSizeMs:       300,
		SpeechWindowThresholdMs:  250,
		SilenceWindowSizeMs:      600,
		SilenceWindowThresholdMs: 500,
		MaxSpeechMs:              10000,
		LeftPaddingMs:            100,
		RightPaddingMs:           100,
	}
}

// WithDefaults returns a copy of c with any zero-valued field replaced by
// the documented default, leaving explicitly-set fields untouched. Threshold
// is considered unset only when exactly zero, matching how a caller that
// never touches the field leaves it at its Go zero value.
func (c Config) WithDefaults() Config {
	d := Default()
	if c.Threshold == 0 {
		c.Threshold = d.Threshold
	}
	if c.SampleRate == 0 {
		c.SampleRate = d.SampleRate
	}
	if c.SpeechWindowSizeMs == 0 {
		c.SpeechWindowSizeMs = d.SpeechWindowSizeMs
	}
	if c.SpeechWindowThresholdMs == 0 {
		c.SpeechWindowThresholdMs = d.SpeechWindowThresholdMs
	}
	if c.SilenceWindowSizeMs == 0 {
		c.SilenceWindowSizeMs = d.SilenceWindowSizeMs
	}
	if c.SilenceWindowThresholdMs == 0 {
		c.SilenceWindowThresholdMs = d.SilenceWindowThresholdMs
	}
	if c.MaxSpeechMs == 0 {
		c.MaxSpeechMs = d.MaxSpeechMs
	}
	if c.LeftPaddingMs == 0 {
		c.LeftPaddingMs = d.LeftPaddingMs
	}
	if c.RightPaddingMs == 0 {
		c.RightPaddingMs = d.RightPaddingMs
	}
	return c
}

// Validate reports whether c is internally consistent enough to build an
// instance from: positive sample rate, a threshold in [0,1], and no
// negative durations.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("vad config: sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("vad config: threshold must be in [0,1], got %v", c.Threshold)
	}
	for name, ms := range map[string]int{
		"speech_window_size_ms":       c.SpeechWindowSizeMs,
		"speech_window_threshold_ms":  c.SpeechWindowThresholdMs,
		"silence_window_size_ms":      c.SilenceWindowSizeMs,
		"silence_window_threshold_ms": c.SilenceWindowThresholdMs,
		"max_speech_ms":                c.MaxSpeechMs,
		"left_padding_ms":              c.LeftPaddingMs,
		"right_padding_ms":             c.RightPaddingMs,
	} {
		if ms < 0 {
			return fmt.Errorf("vad config: %s must not be negative, got %d", name, ms)
		}
	}
	return nil
}

// RoundUpDiv returns ceil(a/b) for positive integers, used throughout the
// millisecond-to-frame-count and millisecond-to-sample-count conversions.
func RoundUpDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// Geometry captures the frame counts and sample counts derived from a
// Config once the active backend's frame shift is known. Computed once at
// instance construction per §3's "converted once" rule.
type Geometry struct {
	SpeechWindowSizeFrames       int
	SpeechWindowThresholdFrames  int
	SilenceWindowSizeFrames      int
	SilenceWindowThresholdFrames int

	LeftPaddingSamples  int
	RightPaddingSamples int
	MaxSpeechSamples    int

	SamplesPerMs int
}

// DeriveGeometry converts every millisecond quantity in c into frame
// counts (using frameShiftSamples, in samples) and sample counts, rounding
// durations up to whole frames/samples.
func DeriveGeometry(c Config, frameShiftSamples int) Geometry {
	samplesPerMs := c.SampleRate / 1000
	frameShiftMs := frameShiftSamples / samplesPerMs
	if frameShiftMs <= 0 {
		frameShiftMs = 1
	}
	return Geometry{
		SpeechWindowSizeFrames:       RoundUpDiv(c.SpeechWindowSizeMs, frameShiftMs),
		SpeechWindowThresholdFrames:  RoundUpDiv(c.SpeechWindowThresholdMs, frameShiftMs),
		SilenceWindowSizeFrames:      RoundUpDiv(c.SilenceWindowSizeMs, frameShiftMs),
		SilenceWindowThresholdFrames: RoundUpDiv(c.SilenceWindowThresholdMs, frameShiftMs),

		LeftPaddingSamples:  c.LeftPaddingMs * samplesPerMs,
		RightPaddingSamples: c.RightPaddingMs * samplesPerMs,
		MaxSpeechSamples:    c.MaxSpeechMs * samplesPerMs,

		SamplesPerMs: samplesPerMs,
	}
}
