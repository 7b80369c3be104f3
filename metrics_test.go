package coro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatencyMetricsSmallSampleExactPercentiles(t *testing.T) {
	var l LatencyMetrics
	for i := 1; i <= 4; i++ {
		l.Record(time.Duration(i) * time.Millisecond)
	}
	n := l.Sample()
	assert.Equal(t, 4, n)
	assert.Equal(t, 4*time.Millisecond, l.Max)
}

func TestLatencyMetricsLargeSampleUsesPSquare(t *testing.T) {
	var l LatencyMetrics
	for i := 1; i <= 2000; i++ {
		l.Record(time.Duration(i) * time.Microsecond)
	}
	n := l.Sample()
	assert.Equal(t, sampleSize, n)
	require.Greater(t, l.P50, time.Duration(0))
	assert.GreaterOrEqual(t, l.P99, l.P50)
	assert.GreaterOrEqual(t, l.Max, l.P99)
}

func TestQueueMetricsUpdateTracksMaxAndEMA(t *testing.T) {
	var q QueueMetrics
	q.UpdatePool(1)
	q.UpdatePool(5)
	q.UpdatePool(2)
	assert.Equal(t, 2, q.PoolCurrent)
	assert.Equal(t, 5, q.PoolMax)
	assert.Greater(t, q.PoolAvg, 0.0)

	q.UpdateContainer(3)
	assert.Equal(t, 3, q.ContainerMax)

	q.UpdateScheduler(7)
	assert.Equal(t, 7, q.SchedulerMax)
}

func TestTPSCounterPanicsOnInvalidWindow(t *testing.T) {
	assert.Panics(t, func() { NewTPSCounter(0, time.Second) })
	assert.Panics(t, func() { NewTPSCounter(time.Second, 0) })
	assert.Panics(t, func() { NewTPSCounter(time.Second, 2*time.Second) })
}

func TestTPSCounterCountsIncrements(t *testing.T) {
	c := NewTPSCounter(time.Second, 100*time.Millisecond)
	for i := 0; i < 10; i++ {
		c.Increment()
	}
	assert.Greater(t, c.TPS(), 0.0)
}
