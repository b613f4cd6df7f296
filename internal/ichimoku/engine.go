// Package ichimoku computes the Ichimoku Cloud indicator and rule-based
// trading signals over an ordered sequence of OHLC bars.
//
// The engine is a pure function of its input: it holds only its four
// configured periods, keeps no state between calls, and is safe to invoke
// from concurrent requests.
package ichimoku

import (
	"fmt"
	"log"
	"math"

	"ichimoku-apiv1/internal/model"
)

// Config holds the four Ichimoku periods. All must be positive.
type Config struct {
	TenkanPeriod  int // conversion line window, default 9
	KijunPeriod   int // base line window, default 26
	SenkouBPeriod int // leading span B window, default 52
	ChikouShift   int // lagging/leading span displacement, default 26
}

// DefaultConfig returns the standard 9/26/52/26 Ichimoku parameters.
func DefaultConfig() Config {
	return Config{
		TenkanPeriod:  9,
		KijunPeriod:   26,
		SenkouBPeriod: 52,
		ChikouShift:   26,
	}
}

// Engine transforms ordered Bar sequences into EnrichedBar sequences.
type Engine struct {
	cfg Config
}

// New creates an Engine. Non-positive periods are rejected up front: a zero
// window would silently produce an empty rolling series.
func New(cfg Config) (*Engine, error) {
	if cfg.TenkanPeriod <= 0 || cfg.KijunPeriod <= 0 || cfg.SenkouBPeriod <= 0 || cfg.ChikouShift <= 0 {
		return nil, fmt.Errorf("ichimoku: all periods must be positive, got %+v", cfg)
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine's immutable configuration.
func (e *Engine) Config() Config { return e.cfg }

// MinBars returns the history length needed before every series has at least
// one present value: max(window) plus the span displacement.
func (e *Engine) MinBars() int {
	longest := e.cfg.TenkanPeriod
	if e.cfg.KijunPeriod > longest {
		longest = e.cfg.KijunPeriod
	}
	if e.cfg.SenkouBPeriod > longest {
		longest = e.cfg.SenkouBPeriod
	}
	return longest + e.cfg.ChikouShift
}

// Compute enriches every input bar with Ichimoku values and a signal.
// Output length always equals input length; an empty input yields an empty
// result. Bars with missing fields or insufficient history degrade to absent
// values and a neutral signal — never an error.
func (e *Engine) Compute(bars []model.Bar) []model.EnrichedBar {
	if len(bars) == 0 {
		return []model.EnrichedBar{}
	}

	high := extract(bars, func(b *model.Bar) *float64 { return b.High })
	low := extract(bars, func(b *model.Bar) *float64 { return b.Low })
	closes := extract(bars, func(b *model.Bar) *float64 { return b.Close })

	if !anyPresent(high) || !anyPresent(low) || !anyPresent(closes) {
		// Nothing to compute, but output length is still preserved: every
		// bar degrades to absent values and a neutral signal below.
		log.Printf("[ichimoku] required series missing across %d bars (need high, low, close)", len(bars))
	}

	tenkan := midpoint(rollingMax(high, e.cfg.TenkanPeriod), rollingMin(low, e.cfg.TenkanPeriod))
	kijun := midpoint(rollingMax(high, e.cfg.KijunPeriod), rollingMin(low, e.cfg.KijunPeriod))

	// Leading spans: raw midpoints shifted backward so each index holds the
	// value "plotted ahead" of its source bar.
	spanA := shiftBackward(midpoint(tenkan, kijun), e.cfg.ChikouShift)
	rawB := midpoint(rollingMax(high, e.cfg.SenkouBPeriod), rollingMin(low, e.cfg.SenkouBPeriod))
	spanB := shiftBackward(rawB, e.cfg.ChikouShift)

	// Lagging span: the close plotted back in time.
	chikou := shiftForward(closes, e.cfg.ChikouShift)

	out := make([]model.EnrichedBar, len(bars))
	for i := range bars {
		status := cloudStatus(spanA[i], spanB[i], closes[i])
		out[i] = model.EnrichedBar{
			Bar: bars[i],
			Ichimoku: model.IndicatorSet{
				TenkanSen:   present(tenkan[i]),
				KijunSen:    present(kijun[i]),
				SenkouSpanA: present(spanA[i]),
				SenkouSpanB: present(spanB[i]),
				ChikouSpan:  present(chikou[i]),
				CloudStatus: status,
			},
			Signal: evalSignal(closes[i], tenkan[i], kijun[i], chikou[i], spanA[i], spanB[i], status),
		}
	}
	return out
}

// extract pulls one price series out of the bars, nil becoming NaN.
func extract(bars []model.Bar, field func(*model.Bar) *float64) []float64 {
	out := make([]float64, len(bars))
	for i := range bars {
		if p := field(&bars[i]); p != nil {
			out[i] = *p
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// anyPresent reports whether the series carries at least one real value.
func anyPresent(v []float64) bool {
	for _, x := range v {
		if !math.IsNaN(x) {
			return true
		}
	}
	return false
}

// present converts a NaN-marked series value to the model's pointer form.
func present(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
