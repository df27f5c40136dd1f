// Package ten implements the scorer.Scorer contract for the TEN VAD ONNX
// graph: ports "input, h1, c1, h2, c2, cache" -> "prob, h1, c1, h2, c2,
// cache", two independent [1,64] LSTM state pairs plus a [1,2,41]
// convolution cache, 256-sample shift and 768-sample window.
//
// Grounded on TenVadModel::forward/init_state in
// original_source/vad-filter-onnx/vad/ten-vad-model.cc.
package ten

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
	"github.com/xaionaro-go/streamvad/pkg/vad/scorer"
	"github.com/xaionaro-go/streamvad/pkg/vad/scorer/onnxsession"
)

const (
	frameShift  = 256
	frameLength = 768

	stateDim = 64

	cacheDim1 = 2
	cacheDim2 = 41
)

func init() {
	scorer.Register(90, factory{})
}

type factory struct{}

func (factory) Kind() scorer.Kind { return scorer.KindTEN }

func (factory) Match(inputNames, outputNames []string) bool {
	// The TEN graph declares generic port names, so it is classified by
	// arity alone; lower registration priority than the named backends
	// ensures they are tried first.
	return len(inputNames) == 6 && len(outputNames) == 6
}

func (factory) NewScorer(session *onnxsession.Session, sampleRate int) (scorer.Scorer, error) {
	s := &Scorer{session: session}
	s.InitState()
	return s, nil
}

// Scorer is the TEN VAD backend.
type Scorer struct {
	session   *onnxsession.Session
	h1, c1    []float32
	h2, c2    []float32
	convCache []float32
}

var _ scorer.Scorer = (*Scorer)(nil)

func (s *Scorer) Geometry() scorer.Geometry {
	return scorer.Geometry{FrameShift: frameShift, FrameLength: frameLength}
}

func (s *Scorer) InitState() {
	s.h1 = make([]float32, stateDim)
	s.c1 = make([]float32, stateDim)
	s.h2 = make([]float32, stateDim)
	s.c2 = make([]float32, stateDim)
	s.convCache = make([]float32, cacheDim1*cacheDim2)
}

func (s *Scorer) Score(frame []float32) (_ float64, _err error) {
	if len(frame) != frameLength {
		return 0, fmt.Errorf("ten: expected %d samples, got %d", frameLength, len(frame))
	}

	input, err := ort.NewTensor(ort.NewShape(1, int64(len(frame))), frame)
	if err != nil {
		return 0, fmt.Errorf("ten: create input tensor: %w", err)
	}
	defer input.Destroy()

	h1, err := ort.NewTensor(ort.NewShape(1, stateDim), s.h1)
	if err != nil {
		return 0, fmt.Errorf("ten: create h1 tensor: %w", err)
	}
	defer h1.Destroy()

	c1, err := ort.NewTensor(ort.NewShape(1, stateDim), s.c1)
	if err != nil {
		return 0, fmt.Errorf("ten: create c1 tensor: %w", err)
	}
	defer c1.Destroy()

	h2, err := ort.NewTensor(ort.NewShape(1, stateDim), s.h2)
	if err != nil {
		return 0, fmt.Errorf("ten: create h2 tensor: %w", err)
	}
	defer h2.Destroy()

	c2, err := ort.NewTensor(ort.NewShape(1, stateDim), s.c2)
	if err != nil {
		return 0, fmt.Errorf("ten: create c2 tensor: %w", err)
	}
	defer c2.Destroy()

	cache, err := ort.NewTensor(ort.NewShape(1, cacheDim1, cacheDim2), s.convCache)
	if err != nil {
		return 0, fmt.Errorf("ten: create cache tensor: %w", err)
	}
	defer cache.Destroy()

	prob, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		return 0, fmt.Errorf("ten: create prob tensor: %w", err)
	}
	defer prob.Destroy()

	h1n, err := ort.NewEmptyTensor[float32](ort.NewShape(1, stateDim))
	if err != nil {
		return 0, fmt.Errorf("ten: create h1n tensor: %w", err)
	}
	defer h1n.Destroy()

	c1n, err := ort.NewEmptyTensor[float32](ort.NewShape(1, stateDim))
	if err != nil {
		return 0, fmt.Errorf("ten: create c1n tensor: %w", err)
	}
	defer c1n.Destroy()

	h2n, err := ort.NewEmptyTensor[float32](ort.NewShape(1, stateDim))
	if err != nil {
		return 0, fmt.Errorf("ten: create h2n tensor: %w", err)
	}
	defer h2n.Destroy()

	c2n, err := ort.NewEmptyTensor[float32](ort.NewShape(1, stateDim))
	if err != nil {
		return 0, fmt.Errorf("ten: create c2n tensor: %w", err)
	}
	defer c2n.Destroy()

	cacheN, err := ort.NewEmptyTensor[float32](ort.NewShape(1, cacheDim1, cacheDim2))
	if err != nil {
		return 0, fmt.Errorf("ten: create cacheN tensor: %w", err)
	}
	defer cacheN.Destroy()

	inputs := []ort.Value{input, h1, c1, h2, c2, cache}
	outputs := []ort.Value{prob, h1n, c1n, h2n, c2n, cacheN}
	if err := s.session.Raw.Run(inputs, outputs); err != nil {
		return 0, fmt.Errorf("ten: inference: %w", err)
	}

	copy(s.h1, h1n.GetData())
	copy(s.c1, c1n.GetData())
	copy(s.h2, h2n.GetData())
	copy(s.c2, c2n.GetData())
	copy(s.convCache, cacheN.GetData())
	return float64(prob.GetData()[0]), nil
}

func (s *Scorer) Close() error {
	return s.session.Close()
}
