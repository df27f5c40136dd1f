// Package scorer defines the contract a neural (or classical) voice
// activity backend must satisfy, independent of any specific inference
// engine, plus the registry used to pick a backend by its declared ONNX
// port signature.
package scorer

// Geometry describes the frame shape a Scorer expects, in samples.
// FrameLength is the number of samples fed per Score call; FrameShift is
// how far the dispatcher's read pointer advances per frame. When
// FrameLength > FrameShift, consecutive frames overlap by
// FrameLength-FrameShift samples.
type Geometry struct {
	FrameShift  int
	FrameLength int
}

// Scorer is the contract every VAD backend variant implements: given one
// frame of audio it returns a speech probability in [0,1] and advances its
// own opaque recurrent state. Callers always receive "probability of
// speech" — backends that natively emit a noise logit convert it
// internally.
type Scorer interface {
	// Geometry returns this backend's frame shift/length in samples.
	Geometry() Geometry

	// InitState zero-initializes all recurrent tensors. Called once at
	// construction and again on Reset.
	InitState()

	// Score runs one feed-forward pass over exactly Geometry().FrameLength
	// samples and returns the speech probability, updating internal
	// recurrent state as a side effect.
	Score(frame []float32) (float64, error)

	// Close releases any backend-owned resources (ONNX session, cgo
	// handles). Safe to call once; behavior after Close is undefined.
	Close() error
}

// Kind identifies which backend variant a Scorer implements. It is used
// by the dispatcher to choose between the general shift-based framing loop
// and the FSMN low-frame-rate path.
type Kind string

const (
	KindSileroV4    Kind = "silero-v4"
	KindSileroV5    Kind = "silero-v5"
	KindFSMN        Kind = "fsmn"
	KindTEN         Kind = "ten"
	KindWebRTCFVAD  Kind = "webrtc-fvad"
)

// BatchScorer is implemented by backends (currently only FSMN) whose
// native inference call returns probabilities for several frames at once
// instead of one frame per call.
type BatchScorer interface {
	Scorer

	// ScoreBatch runs one LFR inference over n samples, with the given
	// padding flags, and returns one speech probability per logit frame
	// the backend produced.
	ScoreBatch(samples []float32, firstPadding, lastPadding int64) ([]float64, error)
}
