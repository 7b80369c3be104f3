package coro

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantileEstimatorConvergesOnUniformData(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	est := newQuantileEstimator(0.5)

	var data []float64
	for i := 0; i < 10000; i++ {
		x := rng.Float64() * 100
		data = append(data, x)
		est.Observe(x)
	}

	sort.Float64s(data)
	exact := data[len(data)/2]
	got := est.Value()
	assert.InDelta(t, exact, got, 5.0)
}

func TestQuantileEstimatorSmallSampleExact(t *testing.T) {
	est := newQuantileEstimator(0.5)
	for _, v := range []float64{3, 1, 2} {
		est.Observe(v)
	}
	assert.Equal(t, 3, est.seen)
	assert.InDelta(t, 2.0, est.Value(), 1.0)
}

func TestQuantileEstimatorEmptyIsZero(t *testing.T) {
	est := newQuantileEstimator(0.5)
	assert.Equal(t, 0.0, est.Value())
}

func TestQuantileEstimatorClampsTarget(t *testing.T) {
	low := newQuantileEstimator(-1)
	high := newQuantileEstimator(2)
	assert.False(t, math.IsNaN(low.target))
	assert.Equal(t, 0.0, low.target)
	assert.Equal(t, 1.0, high.target)
}

func TestLatencyQuantilesTracksIndependentPercentiles(t *testing.T) {
	m := newLatencyQuantiles()
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 5000; i++ {
		m.Observe(rng.Float64() * 1000)
	}

	p50, p90, p99 := m.P50(), m.P90(), m.P99()
	assert.LessOrEqual(t, p50, p90)
	assert.LessOrEqual(t, p90, p99)
	assert.Equal(t, 5000, m.Count())
	assert.Greater(t, m.Max(), 0.0)
}

func TestLatencyQuantilesMaxTracksObservations(t *testing.T) {
	m := newLatencyQuantiles()
	for _, v := range []float64{1, 9, 3, 7, 2, 100, 4} {
		m.Observe(v)
	}
	assert.Equal(t, 100.0, m.Max())
}

func TestLatencyQuantilesEmptyIsZero(t *testing.T) {
	m := newLatencyQuantiles()
	assert.Equal(t, 0.0, m.Max())
	assert.Equal(t, 0, m.Count())
}
