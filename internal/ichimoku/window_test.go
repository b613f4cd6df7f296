package ichimoku

import (
	"math"
	"testing"
)

func TestRollingMax_RequiresFullWindow(t *testing.T) {
	v := []float64{3, 1, 4, 1, 5, 9, 2, 6}
	out := rollingMax(v, 3)

	if !math.IsNaN(out[0]) || !math.IsNaN(out[1]) {
		t.Errorf("expected NaN before the first full window, got %v %v", out[0], out[1])
	}

	want := []float64{4, 4, 5, 9, 9, 9}
	for i, w := range want {
		if out[i+2] != w {
			t.Errorf("out[%d]: expected %v, got %v", i+2, w, out[i+2])
		}
	}
}

func TestRollingMin_RequiresFullWindow(t *testing.T) {
	v := []float64{3, 1, 4, 1, 5, 9, 2, 6}
	out := rollingMin(v, 3)

	want := []float64{1, 1, 1, 1, 2, 2}
	for i, w := range want {
		if out[i+2] != w {
			t.Errorf("out[%d]: expected %v, got %v", i+2, w, out[i+2])
		}
	}
}

func TestRollingExtreme_NaNPoisonsWindow(t *testing.T) {
	v := []float64{1, 2, math.NaN(), 4, 5, 6, 7}
	out := rollingMax(v, 3)

	// Windows touching index 2 stay absent.
	for i := 0; i <= 4; i++ {
		if !math.IsNaN(out[i]) {
			t.Errorf("out[%d]: expected NaN, got %v", i, out[i])
		}
	}
	if out[5] != 6 || out[6] != 7 {
		t.Errorf("expected 6, 7 after the NaN cleared, got %v, %v", out[5], out[6])
	}
}

func TestShiftBackward_PullsFromLaterIndices(t *testing.T) {
	v := []float64{10, 11, 12, 13, 14}
	out := shiftBackward(v, 2)

	want := []float64{12, 13, 14}
	for i, w := range want {
		if out[i] != w {
			t.Errorf("out[%d]: expected %v, got %v", i, w, out[i])
		}
	}
	if !math.IsNaN(out[3]) || !math.IsNaN(out[4]) {
		t.Errorf("trailing entries should be NaN, got %v %v", out[3], out[4])
	}
}

func TestShiftForward_PullsFromEarlierIndices(t *testing.T) {
	v := []float64{10, 11, 12, 13, 14}
	out := shiftForward(v, 2)

	if !math.IsNaN(out[0]) || !math.IsNaN(out[1]) {
		t.Errorf("leading entries should be NaN, got %v %v", out[0], out[1])
	}
	want := []float64{10, 11, 12}
	for i, w := range want {
		if out[i+2] != w {
			t.Errorf("out[%d]: expected %v, got %v", i+2, w, out[i+2])
		}
	}
}
