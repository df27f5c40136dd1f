package segment

import (
	"github.com/xaionaro-go/streamvad/pkg/vad/config"
	"github.com/xaionaro-go/streamvad/pkg/vad/scorer"
)

// FSMNDispatcher drives the FSMN backend's low-frame-rate batched
// inference: it buffers raw samples, waits for enough context before the
// first inference, and thereafter keeps exactly one context window (55ms)
// of look-behind in the buffer between calls.
//
// Grounded on FsmnVadModel::decode/process_logits in
// original_source/vad-filter-onnx/vad/fsmn-vad-model.cc.
type FSMNDispatcher struct {
	scorer scorer.BatchScorer
	state  *State

	reminder         []float32
	isFirstInference bool

	frameShift      int
	reminderLimit   int
	firstChunkLimit int
}

// NewFSMNDispatcher builds a FSMNDispatcher bound to one FSMN batch scorer
// and configuration.
func NewFSMNDispatcher(sc scorer.BatchScorer, cfg config.Config) *FSMNDispatcher {
	geometry := sc.Geometry()
	fs := geometry.FrameShift
	fl := geometry.FrameLength
	return &FSMNDispatcher{
		scorer:           sc,
		state:            NewState(cfg, fs),
		isFirstInference: true,
		frameShift:       fs,
		reminderLimit:    3*fs + fl,
		firstChunkLimit:  100 * (cfg.SampleRate / 1000),
	}
}

// Decode feeds n new samples through the FSMN LFR framing loop and returns
// every segment finished during this call. If isLast, any open segment is
// flushed and folded into the returned slice.
func (d *FSMNDispatcher) Decode(samples []float32, isLast bool) ([]Segment, error) {
	if len(samples) > 0 {
		d.reminder = append(d.reminder, samples...)
	}
	if len(d.reminder) == 0 && !isLast {
		return nil, nil
	}

	closed := Segment{Idx: -1, Start: -1, End: -1, StartMs: -1, EndMs: -1}

	switch {
	case d.isFirstInference:
		if len(d.reminder) < d.firstChunkLimit && !isLast {
			return nil, nil
		}

		var lastPadding int64
		if isLast {
			lastPadding = 2
		}
		logits, err := d.scorer.ScoreBatch(d.reminder, 2, lastPadding)
		if err != nil {
			return nil, err
		}
		d.isFirstInference = false

		if isLast {
			d.processLogits(logits, -1)
			closed = d.state.Flush()
			d.reminder = nil
		} else {
			numToConsume := len(logits) - 2
			if numToConsume < 0 {
				numToConsume = 0
			}
			d.processLogits(logits, numToConsume)
			d.reminder = d.consume(d.reminder, numToConsume*d.frameShift)
		}

	case !isLast:
		if len(d.reminder) > d.reminderLimit {
			logits, err := d.scorer.ScoreBatch(d.reminder, 0, 0)
			if err != nil {
				return nil, err
			}
			d.processLogits(logits, -1)
			d.reminder = d.consume(d.reminder, len(logits)*d.frameShift)
		}

	default:
		if len(d.reminder) > 0 {
			logits, err := d.scorer.ScoreBatch(d.reminder, 0, 2)
			if err != nil {
				return nil, err
			}
			d.processLogits(logits, -1)
		}
		closed = d.state.Flush()
		d.reminder = nil
	}

	segs := d.state.Drain()
	if closed.Idx >= 0 {
		segs = append(segs, closed)
	}
	return segs, nil
}

// processLogits feeds the first n logits (all of them, if n < 0) through
// the shared smoothing/transition state machine, advancing current by one
// frame shift per logit.
func (d *FSMNDispatcher) processLogits(logits []float64, n int) {
	if n < 0 || n > len(logits) {
		n = len(logits)
	}
	for i := 0; i < n; i++ {
		d.state.Advance()
		d.state.Update(logits[i])
	}
}

// consume drops the first n samples of buf, copying the remainder into a
// freshly sized slice so the underlying array doesn't grow unbounded.
func (d *FSMNDispatcher) consume(buf []float32, n int) []float32 {
	if n <= 0 {
		return buf
	}
	if n >= len(buf) {
		return nil
	}
	next := make([]float32, len(buf)-n)
	copy(next, buf[n:])
	return next
}

// Flush closes any open segment and returns it.
func (d *FSMNDispatcher) Flush() Segment {
	return d.state.Flush()
}

// Reset returns the dispatcher to a fresh stream.
func (d *FSMNDispatcher) Reset() {
	d.state.Reset()
	d.scorer.InitState()
	d.reminder = nil
	d.isFirstInference = true
}
