package ichimoku

import (
	"fmt"
	"math"

	"ichimoku-apiv1/internal/model"
)

// cloudStatus classifies the close against the span envelope. Returns nil
// when either span or the close is absent.
func cloudStatus(spanA, spanB, close float64) *model.CloudStatus {
	if math.IsNaN(spanA) || math.IsNaN(spanB) || math.IsNaN(close) {
		return nil
	}

	cloudTop := math.Max(spanA, spanB)
	cloudBottom := math.Min(spanA, spanB)

	status := model.CloudInside
	switch {
	case close > cloudTop:
		status = model.CloudAbove
	case close < cloudBottom:
		status = model.CloudBelow
	}
	return &status
}

// evalSignal applies the Ichimoku trading rules to one bar.
//
// Buy: price above the cloud, Kijun above Tenkan, Chikou above price.
// Sell: price below the cloud, Kijun below Tenkan, Chikou below price.
// Anything else is neutral. The two rule sets cannot both hold since the
// cloud predicates are mutually exclusive.
func evalSignal(close, tenkan, kijun, chikou, spanA, spanB float64, status *model.CloudStatus) model.Signal {
	// Check order is fixed: callers rely on the reason naming the first
	// missing field.
	required := []struct {
		name  string
		value float64
	}{
		{"close", close},
		{"tenkan_sen", tenkan},
		{"kijun_sen", kijun},
		{"chikou_span", chikou},
		{"senkou_span_a", spanA},
		{"senkou_span_b", spanB},
	}
	for _, f := range required {
		if math.IsNaN(f.value) {
			return model.Signal{
				Signal:        model.SignalNeutral,
				Reason:        fmt.Sprintf("Missing or NaN value for %s", f.name),
				ConditionsMet: map[string]bool{},
			}
		}
	}

	conditions := map[string]bool{
		"price_above_cloud":  status != nil && *status == model.CloudAbove,
		"price_below_cloud":  status != nil && *status == model.CloudBelow,
		"kijun_above_tenkan": kijun > tenkan,
		"kijun_below_tenkan": kijun < tenkan,
		"chikou_above_price": chikou > close,
		"chikou_below_price": chikou < close,
	}

	switch {
	case conditions["price_above_cloud"] && conditions["kijun_above_tenkan"] && conditions["chikou_above_price"]:
		return model.Signal{
			Signal:        model.SignalBuy,
			Reason:        "Price above cloud, Kijun above Tenkan, Chikou above price",
			ConditionsMet: conditions,
		}
	case conditions["price_below_cloud"] && conditions["kijun_below_tenkan"] && conditions["chikou_below_price"]:
		return model.Signal{
			Signal:        model.SignalSell,
			Reason:        "Price below cloud, Kijun below Tenkan, Chikou below price",
			ConditionsMet: conditions,
		}
	default:
		return model.Signal{
			Signal:        model.SignalNeutral,
			Reason:        "Ichimoku conditions not fully met",
			ConditionsMet: conditions,
		}
	}
}
