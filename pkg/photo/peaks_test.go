package photo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func pushAll(f *PeakFinder, values []float64) {
	for i, v := range values {
		f.Push(float64(i), v)
	}
}

func TestPeakFinder(t *testing.T) {
	t.Run("local maxima above threshold", func(t *testing.T) {
		f := NewPeakFinder(0.5)
		pushAll(f, []float64{0, 0.2, 0.9, 0.3, 0.1, 0.6, 0.7, 0.6, 0.2, 0.1})
		assert.Equal(t, []Candidate{{Depth: 2, Strength: 0.9}, {Depth: 6, Strength: 0.7}}, f.Peaks())
	})

	t.Run("threshold is strict", func(t *testing.T) {
		f := NewPeakFinder(0.5)
		pushAll(f, []float64{0, 0, 0.5, 0, 0})
		assert.Empty(t, f.Peaks())
	})

	t.Run("ends never peak", func(t *testing.T) {
		f := NewPeakFinder(0.5)
		pushAll(f, []float64{0.9, 0.8, 0.1, 0.2, 0.3, 0.8, 0.9})
		assert.Empty(t, f.Peaks())
	})

	t.Run("plateau", func(t *testing.T) {
		f := NewPeakFinder(0.5)
		pushAll(f, []float64{0, 0, 0.8, 0.8, 0, 0})
		assert.Equal(t, []Candidate{{Depth: 2, Strength: 0.8}, {Depth: 3, Strength: 0.8}}, f.Peaks())
	})

	t.Run("short input", func(t *testing.T) {
		f := NewPeakFinder(0.5)
		pushAll(f, []float64{0, 1, 0})
		assert.Empty(t, f.Peaks())
	})

	t.Run("nan is never a peak", func(t *testing.T) {
		f := NewPeakFinder(0.5)
		pushAll(f, []float64{0, 0, math.NaN(), 0, 0})
		assert.Empty(t, f.Peaks())
	})
}

func TestScore(t *testing.T) {
	candidates := []Candidate{{Depth: 0, Strength: 1}, {Depth: 0.5, Strength: 0.5}}
	k := IndicatorKernel{Width: 1}
	assert.InDelta(t, 1.5, Score(candidates, k, 0), 1e-12)
	assert.InDelta(t, 0.5, Score(candidates, k, 1.2), 1e-12)
	assert.Equal(t, 0.0, Score(candidates, k, 2))
	assert.Equal(t, 0.0, Score(nil, k, 0))
}

func TestPeakAtZero(t *testing.T) {
	bump := func(center float64) func(float64) float64 {
		return func(d float64) float64 { return 1 - (d-center)*(d-center) }
	}

	assert.InDelta(t, 1, peakAtZero(3, 0.1, 0, bump(0)), 1e-12)
	assert.Equal(t, 0.0, peakAtZero(3, 0.1, 1, bump(2)))

	// Within tolerance the best nearby score is used.
	assert.InDelta(t, 1, peakAtZero(3, 0.1, 1, bump(0.5)), 1e-12)
	assert.Equal(t, 0.0, peakAtZero(3, 0.1, 0, bump(0.5)))

	assert.Equal(t, 0.0, peakAtZero(3, 0.1, 1, func(float64) float64 { return 0 }))
	assert.Equal(t, 0.0, peakAtZero(3, 0.1, 1, func(float64) float64 { return -1 }))
	assert.Equal(t, 0.0, peakAtZero(3, 0.1, 1, func(float64) float64 { return math.NaN() }))

	// A flat positive curve has its maximum at zero too.
	assert.Equal(t, 2.0, peakAtZero(3, 0.1, 0, func(float64) float64 { return 2 }))
}
