package segment

import (
	"github.com/xaionaro-go/streamvad/pkg/vad/config"
	"github.com/xaionaro-go/streamvad/pkg/vad/scorer"
)

// Dispatcher is the general (non-FSMN) framing loop: it accumulates
// incoming samples into a reminder buffer, slices off frames of the
// backend's declared length, advances by the backend's declared shift
// (preserving overlap when length > shift), and feeds each frame's
// probability into a State.
//
// Grounded on VadModel::decode's main loop in
// original_source/vad-filter-onnx/vad/vad-model.cc.
type Dispatcher struct {
	scorer   scorer.Scorer
	state    *State
	reminder []float32
}

// NewDispatcher builds a Dispatcher bound to one scorer and configuration.
func NewDispatcher(sc scorer.Scorer, cfg config.Config) *Dispatcher {
	geometry := sc.Geometry()
	return &Dispatcher{
		scorer: sc,
		state:  NewState(cfg, geometry.FrameShift),
	}
}

// Decode feeds n new samples through the framing loop and returns every
// segment finished during this call. If isLast, any open segment is
// flushed, folded into the returned slice, and the reminder buffer is
// cleared.
func (d *Dispatcher) Decode(samples []float32, isLast bool) ([]Segment, error) {
	if len(samples) == 0 && !isLast {
		return nil, nil
	}

	geometry := d.scorer.Geometry()
	d.reminder = append(d.reminder, samples...)

	buf := d.reminder
	for len(buf) >= geometry.FrameLength {
		probability, err := d.scorer.Score(buf[:geometry.FrameLength])
		if err != nil {
			return nil, err
		}
		d.state.Advance()
		d.state.Update(probability)

		buf = buf[geometry.FrameShift:]
	}

	closed := Segment{Idx: -1, Start: -1, End: -1, StartMs: -1, EndMs: -1}
	if isLast {
		closed = d.state.Flush()
		d.reminder = nil
	} else if len(buf) > 0 {
		next := make([]float32, len(buf))
		copy(next, buf)
		d.reminder = next
	} else {
		d.reminder = nil
	}

	segs := d.state.Drain()
	if closed.Idx >= 0 {
		segs = append(segs, closed)
	}
	return segs, nil
}

// Flush closes any open segment and returns it.
func (d *Dispatcher) Flush() Segment {
	return d.state.Flush()
}

// Reset returns the dispatcher (state machine, reminder buffer, and
// scorer recurrent tensors) to a fresh stream.
func (d *Dispatcher) Reset() {
	d.state.Reset()
	d.scorer.InitState()
	d.reminder = nil
}
