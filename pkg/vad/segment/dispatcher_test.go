package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaionaro-go/streamvad/pkg/vad/config"
	"github.com/xaionaro-go/streamvad/pkg/vad/scorer"
)

// mockScorer replays a scripted sequence of probabilities, one per Score
// call, mirroring spec.md §8's "probabilities are supplied by a mocked
// scorer" seed-scenario setup (frame_shift = frame_length = 512, matching
// Silero-V4's geometry with no overlap).
type mockScorer struct {
	script []float64
	calls  int
}

var _ scorer.Scorer = (*mockScorer)(nil)

func (m *mockScorer) Geometry() scorer.Geometry {
	return scorer.Geometry{FrameShift: 512, FrameLength: 512}
}

func (m *mockScorer) InitState() {}

func (m *mockScorer) Score(frame []float32) (float64, error) {
	p := m.script[m.calls]
	m.calls++
	return p, nil
}

func (m *mockScorer) Close() error { return nil }

func repeat(p float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = p
	}
	return out
}

func concat(parts ...[]float64) []float64 {
	var out []float64
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// samplesForScript builds one 512-sample frame of raw audio per scripted
// probability; the mock scorer ignores its contents and consults the
// script by call index, so any non-empty frame buffer works.
func samplesForScript(script []float64) []float32 {
	return make([]float32, 512*len(script))
}

func defaultTestConfig() config.Config {
	return config.Config{
		Threshold:                0.4,
		SampleRate:               16000,
		SpeechWindowSizeMs:       300,
		SpeechWindowThresholdMs:  250,
		SilenceWindowSizeMs:      600,
		SilenceWindowThresholdMs: 500,
		MaxSpeechMs:              10000,
		LeftPaddingMs:            100,
		RightPaddingMs:           100,
	}
}

func TestSeedScenario1_AllSilence(t *testing.T) {
	script := repeat(0.1, 50)
	sc := &mockScorer{script: script}
	d := NewDispatcher(sc, defaultTestConfig())

	segs, err := d.Decode(samplesForScript(script), true)
	require.NoError(t, err)
	assert.Empty(t, segs)
}

func TestSeedScenario2_OneSegment(t *testing.T) {
	script := concat(repeat(0.1, 10), repeat(0.9, 20), repeat(0.1, 30))
	sc := &mockScorer{script: script}
	d := NewDispatcher(sc, defaultTestConfig())

	segs, err := d.Decode(samplesForScript(script), true)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, 0, segs[0].Idx)
	assert.True(t, segs[0].Start < segs[0].End)
	assert.Equal(t, segs[0].Start*1000/16000, segs[0].StartMs)
	assert.Equal(t, segs[0].End*1000/16000, segs[0].EndMs)
}

func TestSeedScenario3_MaxDurationSplit(t *testing.T) {
	script := concat(repeat(0.1, 10), repeat(0.9, 400), repeat(0.1, 10))
	sc := &mockScorer{script: script}
	d := NewDispatcher(sc, defaultTestConfig())

	segs, err := d.Decode(samplesForScript(script), true)
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, 0, segs[0].Idx)
	assert.Equal(t, 1, segs[1].Idx)
	assert.True(t, segs[0].End <= segs[1].Start)

	maxSpeechSamples := 10000 * 16
	assert.LessOrEqual(t, segs[0].End-segs[0].Start, maxSpeechSamples+1600+512)
}

func TestSeedScenario4_SpeechTooShort(t *testing.T) {
	script := concat(repeat(0.1, 10), repeat(0.9, 5), repeat(0.1, 10))
	sc := &mockScorer{script: script}
	d := NewDispatcher(sc, defaultTestConfig())

	segs, err := d.Decode(samplesForScript(script), true)
	require.NoError(t, err)
	assert.Empty(t, segs)
}

func TestSeedScenario5_BriefSilenceBridge(t *testing.T) {
	script := concat(repeat(0.1, 10), repeat(0.9, 20), repeat(0.1, 5), repeat(0.9, 20), repeat(0.1, 10))
	sc := &mockScorer{script: script}
	d := NewDispatcher(sc, defaultTestConfig())

	segs, err := d.Decode(samplesForScript(script), true)
	require.NoError(t, err)
	require.Len(t, segs, 1)
}

func TestSeedScenario6_FlushClosesOpenSegment(t *testing.T) {
	script := concat(repeat(0.1, 10), repeat(0.9, 20))
	sc := &mockScorer{script: script}
	d := NewDispatcher(sc, defaultTestConfig())

	segs, err := d.Decode(samplesForScript(script), false)
	require.NoError(t, err)
	assert.Empty(t, segs, "an open segment must not be emitted by decode")

	closed := d.Flush()
	assert.GreaterOrEqual(t, closed.Idx, 0)
	assert.LessOrEqual(t, closed.End, d.state.Current())
}

func TestSeedScenario6_DecodeAtEOSReturnsFlushedSegment(t *testing.T) {
	script := concat(repeat(0.1, 10), repeat(0.9, 20))
	sc := &mockScorer{script: script}
	d := NewDispatcher(sc, defaultTestConfig())

	// This is the actual shape the CLI and the seed scenario use: EOS
	// arrives as isLast=true on the same Decode call as the trailing
	// audio, not as a separate Flush call. The segment still open when
	// decode's internal flush closes it must come back from this call.
	segs, err := d.Decode(samplesForScript(script), true)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, 0, segs[0].Idx)
	assert.NotEqual(t, -1, segs[0].End)

	// The state machine must not hand the same segment out again from a
	// subsequent explicit Flush.
	second := d.Flush()
	assert.Equal(t, -1, second.Idx)
}

func TestFlushIdempotence(t *testing.T) {
	script := concat(repeat(0.1, 10), repeat(0.9, 20))
	sc := &mockScorer{script: script}
	d := NewDispatcher(sc, defaultTestConfig())

	_, err := d.Decode(samplesForScript(script), false)
	require.NoError(t, err)

	first := d.Flush()
	second := d.Flush()
	assert.NotEqual(t, -1, first.Idx)
	assert.Equal(t, -1, second.Idx)
}

func TestResetClearsState(t *testing.T) {
	script := concat(repeat(0.1, 10), repeat(0.9, 20), repeat(0.1, 30))
	sc := &mockScorer{script: script}
	d := NewDispatcher(sc, defaultTestConfig())

	_, err := d.Decode(samplesForScript(script), true)
	require.NoError(t, err)

	d.Reset()
	assert.Equal(t, 0, d.state.Current())
	assert.False(t, d.state.IsOpen())

	sc.calls = 0
	segsAfterReset, err := d.Decode(samplesForScript(script), true)
	require.NoError(t, err)

	sc2 := &mockScorer{script: script}
	d2 := NewDispatcher(sc2, defaultTestConfig())
	segsFresh, err := d2.Decode(samplesForScript(script), true)
	require.NoError(t, err)

	assert.Equal(t, segsFresh, segsAfterReset)
}

func TestChunkSizeIndependence(t *testing.T) {
	script := concat(repeat(0.1, 10), repeat(0.9, 20), repeat(0.1, 5), repeat(0.9, 20), repeat(0.1, 10))

	runWithChunkFrames := func(framesPerChunk int) []Segment {
		sc := &mockScorer{script: script}
		d := NewDispatcher(sc, defaultTestConfig())
		samples := samplesForScript(script)

		var all []Segment
		chunkSamples := framesPerChunk * 512
		for i := 0; i < len(samples); i += chunkSamples {
			end := i + chunkSamples
			if end > len(samples) {
				end = len(samples)
			}
			segs, err := d.Decode(samples[i:end], false)
			require.NoError(t, err)
			all = append(all, segs...)
		}
		segs, err := d.Decode(nil, true)
		require.NoError(t, err)
		all = append(all, segs...)
		return all
	}

	whole := runWithChunkFrames(len(script))
	chunked := runWithChunkFrames(1)

	require.Equal(t, len(whole), len(chunked))
	for i := range whole {
		assert.Equal(t, whole[i].Idx, chunked[i].Idx)
		assert.Equal(t, whole[i].Start, chunked[i].Start)
		assert.Equal(t, whole[i].End, chunked[i].End)
	}
}
