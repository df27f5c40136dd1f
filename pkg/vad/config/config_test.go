package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	d := Default()
	assert.Equal(t, 0.4, d.Threshold)
	assert.Equal(t, 16000, d.SampleRate)
	assert.Equal(t, 300, d.SpeechWindowSizeMs)
	assert.Equal(t, 250, d.SpeechWindowThresholdMs)
	assert.Equal(t, 600, d.SilenceWindowSizeMs)
	assert.Equal(t, 500, d.SilenceWindowThresholdMs)
	assert.Equal(t, 10000, d.MaxSpeechMs)
	assert.Equal(t, 100, d.LeftPaddingMs)
	assert.Equal(t, 100, d.RightPaddingMs)
}

func TestWithDefaults_FillsOnlyZeroFields(t *testing.T) {
	c := Config{SampleRate: 8000, Threshold: 0.6}
	filled := c.WithDefaults()

	assert.Equal(t, 8000, filled.SampleRate, "explicitly set field must survive untouched")
	assert.Equal(t, 0.6, filled.Threshold, "explicitly set field must survive untouched")
	assert.Equal(t, Default().SpeechWindowSizeMs, filled.SpeechWindowSizeMs)
	assert.Equal(t, Default().MaxSpeechMs, filled.MaxSpeechMs)
}

func TestWithDefaults_AllZero(t *testing.T) {
	var c Config
	assert.Equal(t, Default(), c.WithDefaults())
}

func TestValidate(t *testing.T) {
	t.Run("valid default", func(t *testing.T) {
		assert.NoError(t, Default().Validate())
	})

	t.Run("non-positive sample rate", func(t *testing.T) {
		c := Default()
		c.SampleRate = 0
		assert.Error(t, c.Validate())

		c.SampleRate = -1
		assert.Error(t, c.Validate())
	})

	t.Run("threshold out of range", func(t *testing.T) {
		c := Default()
		c.Threshold = -0.1
		assert.Error(t, c.Validate())

		c.Threshold = 1.1
		assert.Error(t, c.Validate())

		c.Threshold = 0
		assert.NoError(t, c.Validate())

		c.Threshold = 1
		assert.NoError(t, c.Validate())
	})

	t.Run("negative duration fields", func(t *testing.T) {
		base := Default()
		fields := []func(*Config){
			func(c *Config) { c.SpeechWindowSizeMs = -1 },
			func(c *Config) { c.SpeechWindowThresholdMs = -1 },
			func(c *Config) { c.SilenceWindowSizeMs = -1 },
			func(c *Config) { c.SilenceWindowThresholdMs = -1 },
			func(c *Config) { c.MaxSpeechMs = -1 },
			func(c *Config) { c.LeftPaddingMs = -1 },
			func(c *Config) { c.RightPaddingMs = -1 },
		}
		for _, mutate := range fields {
			c := base
			mutate(&c)
			assert.Error(t, c.Validate())
		}
	})
}

func TestRoundUpDiv(t *testing.T) {
	assert.Equal(t, 0, RoundUpDiv(0, 10))
	assert.Equal(t, 1, RoundUpDiv(1, 10))
	assert.Equal(t, 1, RoundUpDiv(10, 10))
	assert.Equal(t, 2, RoundUpDiv(11, 10))
	assert.Equal(t, 0, RoundUpDiv(10, 0))
	assert.Equal(t, 0, RoundUpDiv(10, -1))
}

func TestDeriveGeometry(t *testing.T) {
	c := Default()
	g := DeriveGeometry(c, 512)

	assert.Equal(t, 16, g.SamplesPerMs)
	// frameShiftMs = 512/16 = 32
	assert.Equal(t, RoundUpDiv(300, 32), g.SpeechWindowSizeFrames)
	assert.Equal(t, RoundUpDiv(250, 32), g.SpeechWindowThresholdFrames)
	assert.Equal(t, RoundUpDiv(600, 32), g.SilenceWindowSizeFrames)
	assert.Equal(t, RoundUpDiv(500, 32), g.SilenceWindowThresholdFrames)
	assert.Equal(t, 100*16, g.LeftPaddingSamples)
	assert.Equal(t, 100*16, g.RightPaddingSamples)
	assert.Equal(t, 10000*16, g.MaxSpeechSamples)
}

func TestDeriveGeometry_SubOneMillisecondShift(t *testing.T) {
	c := Default()
	c.SampleRate = 16000
	// a shift smaller than one millisecond's worth of samples must not
	// divide frameShiftMs down to zero.
	g := DeriveGeometry(c, 1)
	assert.Greater(t, g.SpeechWindowSizeFrames, 0)
}
