package model

// Bar represents a single OHLC quote bar fetched from the terminal bridge.
// Price fields are pointers: a nil field means the bridge did not supply it,
// and the indicator engine degrades that bar instead of failing the request.
// Bars are ordered oldest first; index position is meaningful for rolling
// windows and span shifts.
type Bar struct {
	Time  string   `json:"time"`
	Open  *float64 `json:"open"`
	High  *float64 `json:"high"`
	Low   *float64 `json:"low"`
	Close *float64 `json:"close"`
}

// CloudStatus is the price's position relative to the senkou span envelope.
type CloudStatus string

const (
	CloudAbove  CloudStatus = "above"
	CloudBelow  CloudStatus = "below"
	CloudInside CloudStatus = "inside"
)

// IndicatorSet holds the per-bar Ichimoku values. A nil field means the bar
// lacks the history needed for that series; it serializes as JSON null.
type IndicatorSet struct {
	TenkanSen   *float64     `json:"tenkan_sen"`
	KijunSen    *float64     `json:"kijun_sen"`
	SenkouSpanA *float64     `json:"senkou_span_a"`
	SenkouSpanB *float64     `json:"senkou_span_b"`
	ChikouSpan  *float64     `json:"chikou_span"`
	CloudStatus *CloudStatus `json:"cloud_status"`
}

// SignalType is the per-bar trading classification.
type SignalType string

const (
	SignalBuy     SignalType = "buy"
	SignalSell    SignalType = "sell"
	SignalNeutral SignalType = "neutral"
)

// Signal is the rule-based classification for one bar. ConditionsMet maps
// predicate names to their truth values; it is empty (not nil) when the bar
// is missing an indicator required for evaluation.
type Signal struct {
	Signal        SignalType      `json:"signal"`
	Reason        string          `json:"reason"`
	ConditionsMet map[string]bool `json:"conditions_met"`
}

// EnrichedBar is a Bar plus its computed indicators and signal. Produced by
// the engine, serialized once, then discarded — never mutated after creation.
type EnrichedBar struct {
	Bar
	Ichimoku IndicatorSet `json:"ichimoku"`
	Signal   Signal       `json:"signal"`
}

// Float returns a pointer to v. Convenience for building bars.
func Float(v float64) *float64 { return &v }
