package ichimoku

import "math"

// rollingMax returns out[i] = max(v[i-period+1..i]). The window must be full
// and free of NaN, otherwise out[i] is NaN — no partial windows.
func rollingMax(v []float64, period int) []float64 {
	return rollingExtreme(v, period, func(prev, next float64) bool { return prev <= next })
}

// rollingMin is the minimum counterpart of rollingMax.
func rollingMin(v []float64, period int) []float64 {
	return rollingExtreme(v, period, func(prev, next float64) bool { return prev >= next })
}

// rollingExtreme computes a rolling max/min in O(n) with a monotonic deque of
// indices. evict reports whether the deque tail should be dropped in favour
// of the incoming value.
func rollingExtreme(v []float64, period int, evict func(prev, next float64) bool) []float64 {
	out := make([]float64, len(v))
	dq := make([]int, 0, period) // indices into v, values monotonic
	lastNaN := -1

	for i, x := range v {
		if math.IsNaN(x) {
			lastNaN = i
		} else {
			for len(dq) > 0 && evict(v[dq[len(dq)-1]], x) {
				dq = dq[:len(dq)-1]
			}
			dq = append(dq, i)
		}

		// Drop indices that fell out of the window.
		for len(dq) > 0 && dq[0] <= i-period {
			dq = dq[1:]
		}

		if i >= period-1 && lastNaN < i-period+1 && len(dq) > 0 {
			out[i] = v[dq[0]]
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// midpoint returns the element-wise average of two series. NaN propagates.
func midpoint(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = (a[i] + b[i]) / 2
	}
	return out
}

// shiftBackward moves the series toward index 0: out[i] = v[i+n]. The
// trailing n entries become NaN. This is how the leading spans' "plotted n
// periods ahead" is stored index-relative.
func shiftBackward(v []float64, n int) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		if i+n < len(v) {
			out[i] = v[i+n]
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// shiftForward moves the series toward the end: out[i] = v[i-n]. The first n
// entries become NaN. Used for the lagging chikou span.
func shiftForward(v []float64, n int) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		if i-n >= 0 {
			out[i] = v[i-n]
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}
