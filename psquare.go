package coro

import "math"

// quantileEstimator implements the P² algorithm for estimating a single
// streaming quantile in O(1) time and space per observation, without
// retaining the samples it has seen.
//
// Reference: Jain, R. and Chlamtac, I. (1985). "The P² Algorithm for
// Dynamic Calculation of Quantiles and Histograms Without Storing
// Observations". Communications of the ACM, 28(10), pp. 1076-1085.
//
// Not safe for concurrent use; latencyQuantiles owns the synchronization.
type quantileEstimator struct {
	target float64 // the quantile this estimator tracks, in [0, 1]

	height    [5]float64 // marker heights
	marker    [5]int     // marker positions (observation counts)
	desired   [5]float64 // desired (ideal, fractional) marker positions
	increment [5]float64 // per-observation increment to desired positions
	seen      int        // total observations so far
	warmup    [5]float64 // buffers the first 5 observations before startup
}

// newQuantileEstimator returns an estimator for the target quantile, which
// is clamped into [0, 1].
func newQuantileEstimator(target float64) *quantileEstimator {
	switch {
	case target < 0:
		target = 0
	case target > 1:
		target = 1
	}
	return &quantileEstimator{
		target:    target,
		increment: [5]float64{0, target / 2, target, (1 + target) / 2, 1},
	}
}

// Observe folds a new sample into the estimate.
func (e *quantileEstimator) Observe(x float64) {
	e.seen++
	if e.seen <= 5 {
		e.warmup[e.seen-1] = x
		if e.seen == 5 {
			e.startup()
		}
		return
	}

	k := e.cell(x)
	for i := k + 1; i < 5; i++ {
		e.marker[i]++
	}
	for i := range e.desired {
		e.desired[i] += e.increment[i]
	}
	e.settle()
}

// cell widens the outer markers if x falls outside the range seen so far,
// and otherwise reports the marker index immediately below x.
func (e *quantileEstimator) cell(x float64) int {
	switch {
	case x < e.height[0]:
		e.height[0] = x
		return 0
	case x >= e.height[4]:
		e.height[4] = x
		return 3
	default:
		for k := 0; k < 4; k++ {
			if e.height[k] <= x && x < e.height[k+1] {
				return k
			}
		}
		return 3
	}
}

// settle nudges the three interior markers toward their desired positions,
// preferring the parabolic formula and falling back to a linear one when it
// would overshoot the neighboring markers.
func (e *quantileEstimator) settle() {
	for i := 1; i < 4; i++ {
		d := e.desired[i] - float64(e.marker[i])
		switch {
		case d >= 1 && e.marker[i+1]-e.marker[i] > 1:
			e.move(i, 1)
		case d <= -1 && e.marker[i-1]-e.marker[i] < -1:
			e.move(i, -1)
		}
	}
}

func (e *quantileEstimator) move(i, sign int) {
	h := e.parabolic(i, sign)
	if e.height[i-1] < h && h < e.height[i+1] {
		e.height[i] = h
	} else {
		e.height[i] = e.linear(i, sign)
	}
	e.marker[i] += sign
}

func (e *quantileEstimator) startup() {
	for i := 1; i < 5; i++ {
		key := e.warmup[i]
		j := i - 1
		for j >= 0 && e.warmup[j] > key {
			e.warmup[j+1] = e.warmup[j]
			j--
		}
		e.warmup[j+1] = key
	}
	for i := 0; i < 5; i++ {
		e.height[i] = e.warmup[i]
		e.marker[i] = i
	}
	e.desired = [5]float64{0, 2 * e.target, 4 * e.target, 2 + 2*e.target, 4}
}

func (e *quantileEstimator) parabolic(i, sign int) float64 {
	d := float64(sign)
	ni, prev, next := float64(e.marker[i]), float64(e.marker[i-1]), float64(e.marker[i+1])
	a := d / (next - prev)
	b := (ni - prev + d) * (e.height[i+1] - e.height[i]) / (next - ni)
	c := (next - ni - d) * (e.height[i] - e.height[i-1]) / (ni - prev)
	return e.height[i] + a*(b+c)
}

func (e *quantileEstimator) linear(i, sign int) float64 {
	if sign > 0 {
		return e.height[i] + (e.height[i+1]-e.height[i])/float64(e.marker[i+1]-e.marker[i])
	}
	return e.height[i] - (e.height[i]-e.height[i-1])/float64(e.marker[i]-e.marker[i-1])
}

// Value returns the current estimate. Before 5 observations have arrived
// there are no markers yet, so it falls back to an exact order statistic of
// the buffered samples.
func (e *quantileEstimator) Value() float64 {
	if e.seen == 0 {
		return 0
	}
	if e.seen >= 5 {
		return e.height[2]
	}
	sorted := make([]float64, e.seen)
	copy(sorted, e.warmup[:e.seen])
	for i := 1; i < e.seen; i++ {
		key := sorted[i]
		j := i - 1
		for j >= 0 && sorted[j] > key {
			sorted[j+1] = sorted[j]
			j--
		}
		sorted[j+1] = key
	}
	idx := int(float64(e.seen-1) * e.target)
	if idx >= e.seen {
		idx = e.seen - 1
	}
	return sorted[idx]
}

// latencyQuantiles tracks the P50/P90/P95/P99 of a duration-valued stream,
// each with its own O(1) P² estimator, plus a running sum/count/max.
// LatencyMetrics reads Max from it; it derives the mean from its own
// rolling Sum instead.
//
// Not safe for concurrent use; LatencyMetrics guards access with its own
// mutex.
type latencyQuantiles struct {
	p50, p90, p95, p99 *quantileEstimator

	count int
	sum   float64
	max   float64
}

func newLatencyQuantiles() *latencyQuantiles {
	return &latencyQuantiles{
		p50: newQuantileEstimator(0.50),
		p90: newQuantileEstimator(0.90),
		p95: newQuantileEstimator(0.95),
		p99: newQuantileEstimator(0.99),
		max: -math.MaxFloat64,
	}
}

// Observe folds one latency sample, expressed in nanoseconds, into every
// tracked percentile plus the running sum/count/max.
func (m *latencyQuantiles) Observe(x float64) {
	m.count++
	m.sum += x
	if x > m.max {
		m.max = x
	}
	m.p50.Observe(x)
	m.p90.Observe(x)
	m.p95.Observe(x)
	m.p99.Observe(x)
}

func (m *latencyQuantiles) P50() float64 { return m.p50.Value() }
func (m *latencyQuantiles) P90() float64 { return m.p90.Value() }
func (m *latencyQuantiles) P95() float64 { return m.p95.Value() }
func (m *latencyQuantiles) P99() float64 { return m.p99.Value() }

func (m *latencyQuantiles) Count() int { return m.count }

func (m *latencyQuantiles) Max() float64 {
	if m.count == 0 {
		return 0
	}
	return m.max
}
