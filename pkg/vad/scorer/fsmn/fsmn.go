// Package fsmn implements the scorer.BatchScorer contract for the FSMN
// ONNX graph: ports "speech, in_cache0..3, first_padding, last_padding" ->
// "logits, out_cache0..3". Unlike the Silero/TEN backends it runs on a
// low-frame-rate (LFR) batch of several 10ms frames per call rather than
// one frame at a time; the streaming reminder-buffer bookkeeping that
// decides how many samples to batch lives in the segment package's
// FSMNDispatcher, not here.
//
// Grounded on FsmnVadModel::forward_frames/init_state in
// original_source/vad-filter-onnx/vad/fsmn-vad-model.cc.
package fsmn

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
	"github.com/xaionaro-go/streamvad/pkg/vad/scorer"
	"github.com/xaionaro-go/streamvad/pkg/vad/scorer/onnxsession"
)

const (
	frameShiftMs  = 10
	frameLengthMs = 25

	cacheDim1 = 128
	cacheDim2 = 19
)

func init() {
	scorer.Register(100, factory{})
}

type factory struct{}

func (factory) Kind() scorer.Kind { return scorer.KindFSMN }

func (factory) Match(inputNames, outputNames []string) bool {
	return len(inputNames) == 7 && len(outputNames) >= 1 &&
		inputNames[0] == "speech" &&
		inputNames[1] == "in_cache0" && inputNames[2] == "in_cache1" &&
		inputNames[3] == "in_cache2" && inputNames[4] == "in_cache3" &&
		inputNames[5] == "first_padding" && inputNames[6] == "last_padding" &&
		outputNames[0] == "logits"
}

func (factory) NewScorer(session *onnxsession.Session, sampleRate int) (scorer.Scorer, error) {
	s := &Scorer{
		session:     session,
		frameShift:  frameShiftMs * (sampleRate / 1000),
		frameLength: frameLengthMs * (sampleRate / 1000),
	}
	s.InitState()
	return s, nil
}

// Scorer is the FSMN low-frame-rate backend. Score treats its argument as a
// single-frame batch of one, for callers that only need the generic
// scorer.Scorer contract; streaming callers should use ScoreBatch directly.
type Scorer struct {
	session     *onnxsession.Session
	frameShift  int
	frameLength int
	caches      [4][]float32
}

var (
	_ scorer.Scorer      = (*Scorer)(nil)
	_ scorer.BatchScorer = (*Scorer)(nil)
)

func (s *Scorer) Geometry() scorer.Geometry {
	return scorer.Geometry{FrameShift: s.frameShift, FrameLength: s.frameLength}
}

// InitState zeroes the four FSMN memory caches, shape [1,128,19,1] each.
func (s *Scorer) InitState() {
	n := cacheDim1 * cacheDim2
	for i := range s.caches {
		s.caches[i] = make([]float32, n)
	}
}

// Score runs a one-frame batch through ScoreBatch with no padding and
// returns its single probability. Streaming dispatch should prefer
// ScoreBatch, which amortizes inference over several frames at once.
func (s *Scorer) Score(frame []float32) (float64, error) {
	probs, err := s.ScoreBatch(frame, 0, 0)
	if err != nil {
		return 0, err
	}
	if len(probs) == 0 {
		return 0, fmt.Errorf("fsmn: model produced no logits for %d samples", len(frame))
	}
	return probs[0], nil
}

// ScoreBatch runs one LFR inference over n samples of speech audio with the
// given padding flags and returns one speech probability per logit frame
// the model produced, carrying the four FSMN memory caches forward.
func (s *Scorer) ScoreBatch(samples []float32, firstPadding, lastPadding int64) ([]float64, error) {
	speech, err := ort.NewTensor(ort.NewShape(1, int64(len(samples))), samples)
	if err != nil {
		return nil, fmt.Errorf("fsmn: create speech tensor: %w", err)
	}
	defer speech.Destroy()

	cacheTensors := make([]*ort.Tensor[float32], 4)
	for i := range s.caches {
		t, err := ort.NewTensor(ort.NewShape(1, cacheDim1, cacheDim2, 1), s.caches[i])
		if err != nil {
			for j := 0; j < i; j++ {
				cacheTensors[j].Destroy()
			}
			return nil, fmt.Errorf("fsmn: create in_cache%d tensor: %w", i, err)
		}
		cacheTensors[i] = t
	}
	defer func() {
		for _, t := range cacheTensors {
			t.Destroy()
		}
	}()

	firstP, err := ort.NewTensor(ort.NewShape(), []int64{firstPadding})
	if err != nil {
		return nil, fmt.Errorf("fsmn: create first_padding tensor: %w", err)
	}
	defer firstP.Destroy()

	lastP, err := ort.NewTensor(ort.NewShape(), []int64{lastPadding})
	if err != nil {
		return nil, fmt.Errorf("fsmn: create last_padding tensor: %w", err)
	}
	defer lastP.Destroy()

	logits, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(samples))))
	if err != nil {
		return nil, fmt.Errorf("fsmn: create logits tensor: %w", err)
	}
	defer logits.Destroy()

	outCaches := make([]*ort.Tensor[float32], 4)
	for i := range outCaches {
		t, err := ort.NewEmptyTensor[float32](ort.NewShape(1, cacheDim1, cacheDim2, 1))
		if err != nil {
			for j := 0; j < i; j++ {
				outCaches[j].Destroy()
			}
			return nil, fmt.Errorf("fsmn: create out_cache%d tensor: %w", i, err)
		}
		outCaches[i] = t
	}
	defer func() {
		for _, t := range outCaches {
			t.Destroy()
		}
	}()

	inputs := []ort.Value{speech, cacheTensors[0], cacheTensors[1], cacheTensors[2], cacheTensors[3], firstP, lastP}
	outputs := []ort.Value{logits, outCaches[0], outCaches[1], outCaches[2], outCaches[3]}
	if err := s.session.Raw.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("fsmn: inference: %w", err)
	}

	for i := range s.caches {
		copy(s.caches[i], outCaches[i].GetData())
	}

	raw := logits.GetData()
	probs := make([]float64, len(raw))
	for i, noiseProb := range raw {
		// the model emits noise probability; callers always want p_speech.
		probs[i] = 1 - float64(noiseProb)
	}
	return probs, nil
}

func (s *Scorer) Close() error {
	return s.session.Close()
}
