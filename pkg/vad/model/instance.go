package model

import (
	"fmt"

	"github.com/xaionaro-go/streamvad/pkg/vad/config"
	"github.com/xaionaro-go/streamvad/pkg/vad/scorer"
	"github.com/xaionaro-go/streamvad/pkg/vad/segment"
)

// dispatcher is the small capability interface both framing loops satisfy,
// letting Instance stay agnostic of which one it holds. No inheritance is
// needed: the sum type is expressed as an interface over two concrete
// Go types.
type dispatcher interface {
	Decode(samples []float32, isLast bool) ([]segment.Segment, error)
	Flush() segment.Segment
	Reset()
}

// Instance owns all mutable state for one logical stream: the active
// dispatcher (general or FSMN), built from a shared Handle plus an
// immutable Config. It is used by exactly one caller at a time; there is
// no internal concurrency.
type Instance struct {
	handle     *Handle
	dispatcher dispatcher
	cfg        config.Config
	closed     bool
}

func newInstance(h *Handle, sc scorer.Scorer, cfg config.Config) (*Instance, error) {
	var d dispatcher
	if batch, ok := sc.(scorer.BatchScorer); ok && h.kind == scorer.KindFSMN {
		d = segment.NewFSMNDispatcher(batch, cfg)
	} else {
		d = segment.NewDispatcher(sc, cfg)
	}
	return &Instance{handle: h, dispatcher: d, cfg: cfg}, nil
}

// Decode feeds samples (PCM in -1..1, at cfg.SampleRate) through the
// framing and segment state machine and returns every segment finished
// during this call. isLast marks end-of-stream: any open segment is
// flushed and internal buffers are cleared. After an error the instance's
// streaming state is unspecified; call Reset or discard the instance.
func (i *Instance) Decode(samples []float32, isLast bool) ([]segment.Segment, error) {
	if i.closed || i.dispatcher == nil {
		return nil, ErrNotInitialized
	}
	segs, err := i.dispatcher.Decode(samples, isLast)
	if err != nil {
		return nil, fmt.Errorf("vad instance: decode: %w", err)
	}
	return segs, nil
}

// Flush closes any open segment and returns it.
func (i *Instance) Flush() segment.Segment {
	if i.closed {
		return segment.Segment{Idx: -1, Start: -1, End: -1, StartMs: -1, EndMs: -1}
	}
	return i.dispatcher.Flush()
}

// Reset returns the instance to a fresh stream: streaming state and
// recurrent tensors are reinitialized; the shared handle is untouched.
func (i *Instance) Reset() {
	if i.closed {
		return
	}
	i.dispatcher.Reset()
}

// Close releases this instance's reference on the shared handle resources.
// The instance must not be used afterwards.
func (i *Instance) Close() error {
	if i.closed {
		return nil
	}
	i.closed = true
	return i.handle.release()
}
