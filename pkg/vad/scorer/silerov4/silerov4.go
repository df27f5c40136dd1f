// Package silerov4 implements the scorer.Scorer contract for the Silero
// VAD v4 ONNX graph: ports "input, sr, h, c" -> "output, hn, cn", no frame
// overlap, LSTM hidden/cell state of shape [2,1,64].
//
// Grounded on SileroVadModelV4::forward/init_state in
// original_source/vad-filter-onnx/vad/silero-vad-model.cc.
package silerov4

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
	"github.com/xaionaro-go/streamvad/pkg/vad/scorer"
	"github.com/xaionaro-go/streamvad/pkg/vad/scorer/onnxsession"
)

const (
	frameShift  = 512
	frameLength = 512
	stateDim0   = 2
	stateDim1   = 1
	stateDim2   = 64
)

func init() {
	scorer.Register(100, factory{})
}

type factory struct{}

func (factory) Kind() scorer.Kind { return scorer.KindSileroV4 }

func (factory) Match(inputNames, outputNames []string) bool {
	return len(inputNames) == 4 && len(outputNames) == 3 &&
		inputNames[0] == "input" && inputNames[1] == "sr" &&
		inputNames[2] == "h" && inputNames[3] == "c" &&
		outputNames[0] == "output" && outputNames[1] == "hn" && outputNames[2] == "cn"
}

func (factory) NewScorer(session *onnxsession.Session, sampleRate int) (scorer.Scorer, error) {
	s := &Scorer{session: session, sampleRate: int64(sampleRate)}
	s.InitState()
	return s, nil
}

// Scorer is the Silero V4 backend: a 512-sample, no-overlap LSTM detector.
type Scorer struct {
	session    *onnxsession.Session
	sampleRate int64
	h          []float32
	c          []float32
}

var _ scorer.Scorer = (*Scorer)(nil)

func (s *Scorer) Geometry() scorer.Geometry {
	return scorer.Geometry{FrameShift: frameShift, FrameLength: frameLength}
}

// InitState zero-initializes the LSTM hidden and cell state tensors.
func (s *Scorer) InitState() {
	n := stateDim0 * stateDim1 * stateDim2
	s.h = make([]float32, n)
	s.c = make([]float32, n)
}

// Score runs one 512-sample inference, carrying LSTM state forward.
func (s *Scorer) Score(frame []float32) (_ float64, _err error) {
	if len(frame) != frameLength {
		return 0, fmt.Errorf("silerov4: expected %d samples, got %d", frameLength, len(frame))
	}

	input, err := ort.NewTensor(ort.NewShape(1, int64(len(frame))), frame)
	if err != nil {
		return 0, fmt.Errorf("silerov4: create input tensor: %w", err)
	}
	defer input.Destroy()

	sr, err := ort.NewTensor(ort.NewShape(1), []int64{s.sampleRate})
	if err != nil {
		return 0, fmt.Errorf("silerov4: create sr tensor: %w", err)
	}
	defer sr.Destroy()

	hState, err := ort.NewTensor(ort.NewShape(stateDim0, stateDim1, stateDim2), s.h)
	if err != nil {
		return 0, fmt.Errorf("silerov4: create h tensor: %w", err)
	}
	defer hState.Destroy()

	cState, err := ort.NewTensor(ort.NewShape(stateDim0, stateDim1, stateDim2), s.c)
	if err != nil {
		return 0, fmt.Errorf("silerov4: create c tensor: %w", err)
	}
	defer cState.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		return 0, fmt.Errorf("silerov4: create output tensor: %w", err)
	}
	defer output.Destroy()

	hn, err := ort.NewEmptyTensor[float32](ort.NewShape(stateDim0, stateDim1, stateDim2))
	if err != nil {
		return 0, fmt.Errorf("silerov4: create hn tensor: %w", err)
	}
	defer hn.Destroy()

	cn, err := ort.NewEmptyTensor[float32](ort.NewShape(stateDim0, stateDim1, stateDim2))
	if err != nil {
		return 0, fmt.Errorf("silerov4: create cn tensor: %w", err)
	}
	defer cn.Destroy()

	inputs := []ort.Value{input, sr, hState, cState}
	outputs := []ort.Value{output, hn, cn}
	if err := s.session.Raw.Run(inputs, outputs); err != nil {
		return 0, fmt.Errorf("silerov4: inference: %w", err)
	}

	copy(s.h, hn.GetData())
	copy(s.c, cn.GetData())
	return float64(output.GetData()[0]), nil
}

func (s *Scorer) Close() error {
	return s.session.Close()
}
