package segment

import (
	"github.com/xaionaro-go/streamvad/pkg/vad/config"
	"github.com/xaionaro-go/streamvad/pkg/vad/window"
)

// State is the silence<->speech transition machine shared by the general
// dispatcher and the FSMN low-frame-rate dispatcher. It owns the sliding
// smoothing window and every piece of streaming state named in the data
// model: current, lastEnd, start/end, segIdx, and the drained segment
// buffer.
//
// Grounded on VadModel's window_detector_/current_/last_end_/start_/end_/
// seg_idx_/segs_ fields and on_voice_start/on_voice_end/update_frame_state
// in original_source/vad-filter-onnx/vad/vad-model.cc.
type State struct {
	cfg      config.Config
	geometry config.Geometry
	shift    int

	window *window.Bits

	current int
	lastEnd int
	start   int
	end     int
	segIdx  int
	segs    []Segment
}

// NewState builds a State for a backend whose frame shift (in samples) is
// shift. The smoothing window's capacity is the larger of the speech and
// silence window frame counts.
func NewState(cfg config.Config, shift int) *State {
	geometry := config.DeriveGeometry(cfg, shift)
	capacity := geometry.SpeechWindowSizeFrames
	if geometry.SilenceWindowSizeFrames > capacity {
		capacity = geometry.SilenceWindowSizeFrames
	}
	s := &State{
		cfg:      cfg,
		geometry: geometry,
		shift:    shift,
		window:   window.New(capacity),
	}
	s.Reset()
	return s
}

// Reset returns the state machine to a fresh stream: current and lastEnd
// to zero, start/end to idle, segIdx to zero, and the smoothing window
// cleared. It does not touch any scorer-owned recurrent tensors; callers
// are responsible for calling the scorer's InitState alongside this.
func (s *State) Reset() {
	s.current = 0
	s.lastEnd = 0
	s.start = -1
	s.end = -1
	s.segIdx = 0
	s.segs = s.segs[:0]
	s.window.Reset()
}

// Current returns the absolute sample position of the next frame to be
// scored.
func (s *State) Current() int { return s.current }

// Advance moves the current sample pointer forward by one frame shift,
// after the caller has scored that frame and before it feeds the frame's
// probability through Update.
func (s *State) Advance() { s.current += s.shift }

// IsOpen reports whether a speech segment is currently active.
func (s *State) IsOpen() bool { return s.start != -1 }

// Update pushes one frame's speech decision into the smoothing window and
// drives the silence<->speech transition, then applies the max-duration
// split guard. It must be called once per scored frame, after Advance has
// moved current past that frame (current reflects "sample position of the
// next frame to be scored", matching the C++ current_ semantics at the
// point update_frame_state/the duration check run).
func (s *State) Update(probability float64) {
	s.window.Push(probability > s.cfg.Threshold)

	if s.start == -1 {
		if s.window.CheckSpeech(s.geometry.SpeechWindowSizeFrames, s.geometry.SpeechWindowThresholdFrames) {
			s.onVoiceStart()
		}
	} else {
		if s.window.CheckSilence(s.geometry.SilenceWindowSizeFrames, s.geometry.SilenceWindowThresholdFrames) {
			s.onVoiceEnd()
		}
	}

	if s.start != -1 && s.current-s.start > s.geometry.MaxSpeechSamples {
		s.onVoiceEnd()
		s.onVoiceStart()
	}
}

func (s *State) onVoiceStart() {
	speechFramesRight := s.window.NumRightOnes()
	start := s.current - speechFramesRight*s.shift - s.geometry.LeftPaddingSamples
	if start < s.lastEnd {
		start = s.lastEnd
	}
	s.start = start

	s.segs = append(s.segs, Segment{
		Idx:     s.segIdx,
		Start:   start,
		End:     -1,
		StartMs: start / s.geometry.SamplesPerMs,
		EndMs:   -1,
	})
}

func (s *State) onVoiceEnd() {
	silenceFramesRight := s.window.NumRightZeros()
	end := s.current - silenceFramesRight*s.shift + s.geometry.RightPaddingSamples
	if end > s.current {
		end = s.current
	}

	if n := len(s.segs); n > 0 && s.segs[n-1].isOpen() {
		s.segs[n-1].End = end
		s.segs[n-1].EndMs = end / s.geometry.SamplesPerMs
	} else {
		s.segs = append(s.segs, Segment{
			Idx:     s.segIdx,
			Start:   s.start,
			End:     end,
			StartMs: s.start / s.geometry.SamplesPerMs,
			EndMs:   end / s.geometry.SamplesPerMs,
		})
	}

	s.lastEnd = end
	s.start = -1
	s.end = -1
	s.segIdx++
}

// Flush closes any open segment (as if silence had just been observed) and
// returns it, or the zero Segment with Idx -1 if nothing was open. Any
// segment it closes is also removed from the pending drain buffer, so a
// subsequent Drain does not re-emit it.
func (s *State) Flush() Segment {
	if s.start != -1 {
		s.onVoiceEnd()
		if n := len(s.segs); n > 0 {
			closed := s.segs[n-1]
			s.segs = s.segs[:n-1]
			return closed
		}
	}
	return Segment{Idx: -1, Start: -1, End: -1, StartMs: -1, EndMs: -1}
}

// Drain returns every closed segment collected since the last Drain call
// and clears them from the internal buffer, matching decode's "move segs_
// out" step. A still-open segment at the tail of the buffer is kept there,
// so onVoiceEnd later completes it in place and a later Drain or Flush
// returns it closed.
func (s *State) Drain() []Segment {
	out := s.segs
	s.segs = nil
	if n := len(out); n > 0 && out[n-1].isOpen() {
		s.segs = append(s.segs, out[n-1])
		out = out[:n-1]
	}
	return out
}
