package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestEnrichedBar_AbsentValuesSerializeAsNull(t *testing.T) {
	eb := EnrichedBar{
		Bar: Bar{
			Time:  "2024-01-01 00:00:00",
			High:  Float(101),
			Low:   Float(99),
			Close: Float(100),
		},
		Ichimoku: IndicatorSet{},
		Signal: Signal{
			Signal:        SignalNeutral,
			Reason:        "Missing or NaN value for tenkan_sen",
			ConditionsMet: map[string]bool{},
		},
	}

	raw, err := json.Marshal(eb)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(raw)

	for _, want := range []string{
		`"open":null`,
		`"tenkan_sen":null`,
		`"senkou_span_a":null`,
		`"cloud_status":null`,
		`"conditions_met":{}`,
		`"signal":"neutral"`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}
	if strings.Contains(s, "NaN") {
		t.Errorf("absent values must never serialize as NaN: %s", s)
	}
}

func TestEnrichedBar_PresentValues(t *testing.T) {
	status := CloudAbove
	eb := EnrichedBar{
		Bar: Bar{Time: "t", Open: Float(1), High: Float(2), Low: Float(0.5), Close: Float(1.5)},
		Ichimoku: IndicatorSet{
			TenkanSen:   Float(1.2),
			CloudStatus: &status,
		},
		Signal: Signal{Signal: SignalBuy, Reason: "r", ConditionsMet: map[string]bool{"price_above_cloud": true}},
	}

	raw, err := json.Marshal(eb)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(raw)
	for _, want := range []string{`"tenkan_sen":1.2`, `"cloud_status":"above"`, `"price_above_cloud":true`} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}
}
