// Package silerov5 implements the scorer.Scorer contract for the Silero
// VAD v5 ONNX graph: ports "input, state, sr" -> "output, stateN", a
// combined LSTM state tensor of shape [2,1,128], and (per spec) a small
// context overlap between consecutive frames so the network sees a bit of
// look-ahead/look-behind beyond the pure shift.
//
// Grounded on SileroVadModelV5::forward/init_state in
// original_source/vad-filter-onnx/vad/silero-vad-model.cc.
package silerov5

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
	"github.com/xaionaro-go/streamvad/pkg/vad/scorer"
	"github.com/xaionaro-go/streamvad/pkg/vad/scorer/onnxsession"
)

const (
	stateDim0 = 2
	stateDim1 = 1
	stateDim2 = 128
)

func init() {
	scorer.Register(100, factory{})
}

type factory struct{}

func (factory) Kind() scorer.Kind { return scorer.KindSileroV5 }

func (factory) Match(inputNames, outputNames []string) bool {
	return len(inputNames) == 3 && len(outputNames) == 2 &&
		inputNames[0] == "input" && inputNames[1] == "state" && inputNames[2] == "sr" &&
		outputNames[0] == "output" && outputNames[1] == "stateN"
}

func (factory) NewScorer(session *onnxsession.Session, sampleRate int) (scorer.Scorer, error) {
	shift, context := geometryFor(sampleRate)
	s := &Scorer{
		session:     session,
		sampleRate:  int64(sampleRate),
		frameShift:  shift,
		frameLength: shift + context,
	}
	s.InitState()
	return s, nil
}

// geometryFor returns (frameShift, context) for the given sample rate: 256
// samples shift / 32 samples context at 8kHz, 512/64 at 16kHz.
func geometryFor(sampleRate int) (shift, context int) {
	if sampleRate <= 8000 {
		return 256, 32
	}
	return 512, 64
}

// Scorer is the Silero V5 backend.
type Scorer struct {
	session     *onnxsession.Session
	sampleRate  int64
	frameShift  int
	frameLength int
	state       []float32
}

var _ scorer.Scorer = (*Scorer)(nil)

func (s *Scorer) Geometry() scorer.Geometry {
	return scorer.Geometry{FrameShift: s.frameShift, FrameLength: s.frameLength}
}

func (s *Scorer) InitState() {
	s.state = make([]float32, stateDim0*stateDim1*stateDim2)
}

func (s *Scorer) Score(frame []float32) (_ float64, _err error) {
	if len(frame) != s.frameLength {
		return 0, fmt.Errorf("silerov5: expected %d samples, got %d", s.frameLength, len(frame))
	}

	input, err := ort.NewTensor(ort.NewShape(1, int64(len(frame))), frame)
	if err != nil {
		return 0, fmt.Errorf("silerov5: create input tensor: %w", err)
	}
	defer input.Destroy()

	state, err := ort.NewTensor(ort.NewShape(stateDim0, stateDim1, stateDim2), s.state)
	if err != nil {
		return 0, fmt.Errorf("silerov5: create state tensor: %w", err)
	}
	defer state.Destroy()

	sr, err := ort.NewTensor(ort.NewShape(1), []int64{s.sampleRate})
	if err != nil {
		return 0, fmt.Errorf("silerov5: create sr tensor: %w", err)
	}
	defer sr.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		return 0, fmt.Errorf("silerov5: create output tensor: %w", err)
	}
	defer output.Destroy()

	stateN, err := ort.NewEmptyTensor[float32](ort.NewShape(stateDim0, stateDim1, stateDim2))
	if err != nil {
		return 0, fmt.Errorf("silerov5: create stateN tensor: %w", err)
	}
	defer stateN.Destroy()

	inputs := []ort.Value{input, state, sr}
	outputs := []ort.Value{output, stateN}
	if err := s.session.Raw.Run(inputs, outputs); err != nil {
		return 0, fmt.Errorf("silerov5: inference: %w", err)
	}

	copy(s.state, stateN.GetData())
	return float64(output.GetData()[0]), nil
}

func (s *Scorer) Close() error {
	return s.session.Close()
}
