package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaionaro-go/streamvad/pkg/vad/config"
	"github.com/xaionaro-go/streamvad/pkg/vad/scorer"
)

// mockBatchScorer replays a fixed slice of probabilities for every
// ScoreBatch call, independent of the samples/padding it is given; enough
// to exercise FSMNDispatcher's buffering and EOS-flush logic without
// modeling real LFR batching.
type mockBatchScorer struct {
	script []float64
}

var _ scorer.BatchScorer = (*mockBatchScorer)(nil)

func (m *mockBatchScorer) Geometry() scorer.Geometry {
	return scorer.Geometry{FrameShift: 160, FrameLength: 400}
}

func (m *mockBatchScorer) InitState() {}

func (m *mockBatchScorer) Score(frame []float32) (float64, error) {
	probs, err := m.ScoreBatch(frame, 0, 0)
	if err != nil {
		return 0, err
	}
	return probs[0], nil
}

func (m *mockBatchScorer) ScoreBatch(samples []float32, firstPadding, lastPadding int64) ([]float64, error) {
	return m.script, nil
}

func (m *mockBatchScorer) Close() error { return nil }

func TestFSMNDispatcher_DecodeAtEOSReturnsFlushedSegment(t *testing.T) {
	sc := &mockBatchScorer{script: []float64{0.1, 0.1, 0.9, 0.9}}
	cfg := config.Config{
		Threshold:                0.4,
		SampleRate:               16000,
		SpeechWindowSizeMs:       20,
		SpeechWindowThresholdMs:  20,
		SilenceWindowSizeMs:      20,
		SilenceWindowThresholdMs: 20,
		MaxSpeechMs:              10000,
	}
	d := NewFSMNDispatcher(sc, cfg)

	// A single Decode call carrying isLast=true, exactly as the CLI and
	// the seed scenarios drive it: the segment left open when the
	// internal EOS flush closes it must come back from this same call.
	samples := make([]float32, 4*160)
	segs, err := d.Decode(samples, true)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, 0, segs[0].Idx)
	assert.NotEqual(t, -1, segs[0].End)

	second := d.Flush()
	assert.Equal(t, -1, second.Idx)
}
