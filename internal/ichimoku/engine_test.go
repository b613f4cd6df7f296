package ichimoku

import (
	"math"
	"reflect"
	"testing"

	"ichimoku-apiv1/internal/model"
)

// makeRisingBars builds n bars with close = 100+i, high = close+1, low = close-1.
func makeRisingBars(n int) []model.Bar {
	bars := make([]model.Bar, n)
	for i := 0; i < n; i++ {
		c := 100.0 + float64(i)
		bars[i] = model.Bar{
			Time:  "2024-01-01 00:00:00",
			Open:  model.Float(c),
			High:  model.Float(c + 1),
			Low:   model.Float(c - 1),
			Close: model.Float(c),
		}
	}
	return bars
}

func makeFallingBars(n int) []model.Bar {
	bars := make([]model.Bar, n)
	for i := 0; i < n; i++ {
		c := 200.0 - float64(i)
		bars[i] = model.Bar{
			Open:  model.Float(c),
			High:  model.Float(c + 1),
			Low:   model.Float(c - 1),
			Close: model.Float(c),
		}
	}
	return bars
}

func mustEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestNew_RejectsNonPositivePeriods(t *testing.T) {
	bad := []Config{
		{TenkanPeriod: 0, KijunPeriod: 26, SenkouBPeriod: 52, ChikouShift: 26},
		{TenkanPeriod: 9, KijunPeriod: -1, SenkouBPeriod: 52, ChikouShift: 26},
		{TenkanPeriod: 9, KijunPeriod: 26, SenkouBPeriod: 0, ChikouShift: 26},
		{TenkanPeriod: 9, KijunPeriod: 26, SenkouBPeriod: 52, ChikouShift: 0},
	}
	for i, cfg := range bad {
		if _, err := New(cfg); err == nil {
			t.Errorf("config %d: expected error for %+v", i, cfg)
		}
	}
}

func TestCompute_EmptyInput(t *testing.T) {
	e := mustEngine(t)
	out := e.Compute(nil)
	if len(out) != 0 {
		t.Fatalf("expected empty output, got %d bars", len(out))
	}
}

func TestCompute_LengthPreserved(t *testing.T) {
	e := mustEngine(t)
	for _, n := range []int{1, 5, 26, 52, 60, 100} {
		out := e.Compute(makeRisingBars(n))
		if len(out) != n {
			t.Errorf("n=%d: expected %d enriched bars, got %d", n, n, len(out))
		}
	}
}

func TestCompute_WarmupAbsences(t *testing.T) {
	e := mustEngine(t)
	out := e.Compute(makeRisingBars(60))

	for i, eb := range out {
		if i < 8 && eb.Ichimoku.TenkanSen != nil {
			t.Errorf("bar %d: tenkan should be absent before a full 9-bar window", i)
		}
		if i >= 8 && eb.Ichimoku.TenkanSen == nil {
			t.Errorf("bar %d: tenkan should be present", i)
		}
		if i < 25 && eb.Ichimoku.KijunSen != nil {
			t.Errorf("bar %d: kijun should be absent before a full 26-bar window", i)
		}
		if i < 26 && eb.Ichimoku.ChikouSpan != nil {
			t.Errorf("bar %d: chikou should be absent for the first 26 bars", i)
		}
		if i >= 26 && eb.Ichimoku.ChikouSpan == nil {
			t.Errorf("bar %d: chikou should be present", i)
		}
	}
}

func TestCompute_SpanShiftDirection(t *testing.T) {
	e := mustEngine(t)
	out := e.Compute(makeRisingBars(60))

	// Raw span B exists for indices 51..59; shifted backward by 26 it lands
	// on indices 25..33. The trailing 26 bars never carry leading spans.
	for i, eb := range out {
		wantB := i >= 25 && i <= 33
		if (eb.Ichimoku.SenkouSpanB != nil) != wantB {
			t.Errorf("bar %d: senkou span B present=%v, want %v", i, eb.Ichimoku.SenkouSpanB != nil, wantB)
		}
		// Raw span A starts at index 25 (kijun warm-up), so the shifted
		// series runs from the first bar through index 33.
		wantA := i <= 33
		if (eb.Ichimoku.SenkouSpanA != nil) != wantA {
			t.Errorf("bar %d: senkou span A present=%v, want %v", i, eb.Ichimoku.SenkouSpanA != nil, wantA)
		}
	}

	// chikou[i] takes the close from 26 bars earlier.
	if got := *out[30].Ichimoku.ChikouSpan; got != 104 {
		t.Errorf("chikou[30]: expected close[4]=104, got %v", got)
	}
}

func TestCompute_SixtyRisingBars(t *testing.T) {
	e := mustEngine(t)
	out := e.Compute(makeRisingBars(60))

	// tenkan[59] = (max high[51..59] + min low[51..59]) / 2 = (160+150)/2.
	if out[59].Ichimoku.TenkanSen == nil {
		t.Fatal("tenkan[59] should be present")
	}
	if got := *out[59].Ichimoku.TenkanSen; math.Abs(got-155.0) > 1e-9 {
		t.Errorf("tenkan[59]: expected 155.0, got %v", got)
	}

	// A strict uptrend puts the price below the backward-shifted cloud with
	// tenkan over kijun and chikou under price: sell fires once all series
	// are present (bars 26..33).
	for i := 26; i <= 33; i++ {
		if out[i].Signal.Signal != model.SignalSell {
			t.Errorf("bar %d: expected sell, got %s (%s)", i, out[i].Signal.Signal, out[i].Signal.Reason)
		}
	}
}

func TestCompute_FallingBarsProduceBuy(t *testing.T) {
	e := mustEngine(t)
	out := e.Compute(makeFallingBars(100))

	// Mirror of the uptrend case: price sits above the shifted cloud, kijun
	// above tenkan, chikou above price.
	for _, i := range []int{30, 50, 73} {
		if out[i].Signal.Signal != model.SignalBuy {
			t.Errorf("bar %d: expected buy, got %s (%s)", i, out[i].Signal.Signal, out[i].Signal.Reason)
		}
		if out[i].Signal.Reason != "Price above cloud, Kijun above Tenkan, Chikou above price" {
			t.Errorf("bar %d: unexpected reason %q", i, out[i].Signal.Reason)
		}
	}
}

func TestCompute_BuySellNeverSimultaneous(t *testing.T) {
	e := mustEngine(t)
	for _, bars := range [][]model.Bar{makeRisingBars(120), makeFallingBars(120)} {
		for i, eb := range e.Compute(bars) {
			c := eb.Signal.ConditionsMet
			if c["price_above_cloud"] && c["price_below_cloud"] {
				t.Errorf("bar %d: cloud predicates both true", i)
			}
		}
	}
}

func TestCompute_SingleBarMissingClose(t *testing.T) {
	e := mustEngine(t)
	bars := []model.Bar{{
		Time: "2024-01-01 00:00:00",
		High: model.Float(101),
		Low:  model.Float(99),
	}}
	out := e.Compute(bars)
	if len(out) != 1 {
		t.Fatalf("expected 1 enriched bar, got %d", len(out))
	}

	eb := out[0]
	if eb.Ichimoku.TenkanSen != nil || eb.Ichimoku.KijunSen != nil ||
		eb.Ichimoku.SenkouSpanA != nil || eb.Ichimoku.SenkouSpanB != nil ||
		eb.Ichimoku.ChikouSpan != nil || eb.Ichimoku.CloudStatus != nil {
		t.Errorf("expected all indicators absent, got %+v", eb.Ichimoku)
	}
	if eb.Signal.Signal != model.SignalNeutral {
		t.Errorf("expected neutral, got %s", eb.Signal.Signal)
	}
	if eb.Signal.Reason != "Missing or NaN value for close" {
		t.Errorf("unexpected reason %q", eb.Signal.Reason)
	}
	if len(eb.Signal.ConditionsMet) != 0 {
		t.Errorf("expected empty conditions, got %v", eb.Signal.ConditionsMet)
	}
}

func TestCompute_MissingFieldCheckOrder(t *testing.T) {
	e := mustEngine(t)

	// A single complete bar has a close but no warm indicators; the reason
	// must name tenkan_sen, the first absent field after close.
	out := e.Compute(makeRisingBars(1))
	if out[0].Signal.Reason != "Missing or NaN value for tenkan_sen" {
		t.Errorf("unexpected reason %q", out[0].Signal.Reason)
	}

	// With tenkan warm but kijun not, the reason moves to kijun_sen.
	out = e.Compute(makeRisingBars(10))
	if out[9].Signal.Reason != "Missing or NaN value for kijun_sen" {
		t.Errorf("unexpected reason %q", out[9].Signal.Reason)
	}
}

func TestCompute_RequiredSeriesMissingEverywhere(t *testing.T) {
	e := mustEngine(t)
	bars := make([]model.Bar, 10)
	for i := range bars {
		bars[i] = model.Bar{High: model.Float(101), Low: model.Float(99)} // no close at all
	}
	out := e.Compute(bars)
	if len(out) != 10 {
		t.Fatalf("expected 10 degraded bars, got %d", len(out))
	}
	for i, eb := range out {
		if eb.Signal.Signal != model.SignalNeutral {
			t.Errorf("bar %d: expected neutral, got %s", i, eb.Signal.Signal)
		}
		if eb.Signal.Reason != "Missing or NaN value for close" {
			t.Errorf("bar %d: unexpected reason %q", i, eb.Signal.Reason)
		}
	}
}

func TestCompute_PureFunction(t *testing.T) {
	e := mustEngine(t)
	bars := makeRisingBars(80)
	first := e.Compute(bars)
	second := e.Compute(bars)
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated computation over the same input diverged")
	}
}

func TestMinBars(t *testing.T) {
	e := mustEngine(t)
	if got := e.MinBars(); got != 78 {
		t.Errorf("expected 78 (52+26), got %d", got)
	}
}
