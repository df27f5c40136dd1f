package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushAndCounts(t *testing.T) {
	w := New(10)
	w.Push(true)
	w.Push(true)
	w.Push(false)
	w.Push(true)

	assert.Equal(t, "1101", w.String())
	assert.False(t, w.CheckSpeech(4, 5))
	assert.True(t, w.CheckSpeech(4, 3))

	w.Push(true)
	w.Push(true)
	w.Push(true)
	assert.Equal(t, "1101111", w.String())
	assert.True(t, w.CheckSpeech(7, 5))
}

func TestSlideToAllZero(t *testing.T) {
	w := New(10)
	for i := 0; i < 4; i++ {
		w.Push(true)
	}
	for i := 0; i < 10; i++ {
		w.Push(false)
	}
	assert.Equal(t, 10, w.Len())
	assert.True(t, w.CheckSilence(10, 10))
	assert.False(t, w.CheckSpeech(10, 1))
}

func TestRunLengths(t *testing.T) {
	w := New(10)
	w.Push(true)
	w.Push(true)
	w.Push(false)

	require.Equal(t, "110", w.String())
	assert.Equal(t, 1, w.NumRightZeros())
	assert.Equal(t, 0, w.NumRightOnes())
	assert.Equal(t, 2, w.NumLeftOnes())
	assert.Equal(t, 0, w.NumLeftZeros())

	w.Push(true)
	assert.Equal(t, "1101", w.String())
	assert.Equal(t, 1, w.NumRightOnes())
	assert.Equal(t, 0, w.NumRightZeros())
}

func TestCapacityCappedAt64(t *testing.T) {
	w := New(100)
	assert.Equal(t, 64, w.Capacity())
	for i := 0; i < 100; i++ {
		w.Push(true)
	}
	assert.Equal(t, 64, w.Len())
	assert.Equal(t, 64, w.NumRightOnes())
	assert.Equal(t, 64, w.NumLeftOnes())
}

func TestStringRendering(t *testing.T) {
	w := New(5)
	w.Push(true)
	w.Push(false)
	assert.Equal(t, "10", w.String())

	for i := 0; i < 10; i++ {
		w.Push(true)
	}
	assert.Equal(t, "11111", w.String())
}

func TestResetClearsState(t *testing.T) {
	w := New(8)
	w.Push(true)
	w.Push(true)
	w.Reset()
	assert.Equal(t, 0, w.Len())
	assert.Equal(t, "", w.String())
	// a zero-width window always meets a zero threshold
	assert.True(t, w.CheckSpeech(0, 0))
}

func TestNumRightZerosAccountsForUnfilledLength(t *testing.T) {
	w := New(8)
	w.Push(false)
	w.Push(false)
	// Only 2 valid bits, both zero; the run must not bleed into the
	// unfilled high bits of the word.
	assert.Equal(t, 2, w.NumRightZeros())
}
