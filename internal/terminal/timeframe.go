package terminal

import "strings"

// Timeframe codes understood by the terminal bridge. These follow the
// MetaTrader encoding: plain minutes for intraday frames, flag bits for
// hourly and larger frames.
const (
	TimeframeM1  = 1
	TimeframeM2  = 2
	TimeframeM3  = 3
	TimeframeM4  = 4
	TimeframeM5  = 5
	TimeframeM6  = 6
	TimeframeM10 = 10
	TimeframeM12 = 12
	TimeframeM15 = 15
	TimeframeM20 = 20
	TimeframeM30 = 30
	TimeframeH1  = 0x4001
	TimeframeH2  = 0x4002
	TimeframeH3  = 0x4003
	TimeframeH4  = 0x4004
	TimeframeH6  = 0x4006
	TimeframeH8  = 0x4008
	TimeframeH12 = 0x400c
	TimeframeD1  = 0x4018
	TimeframeW1  = 0x8001
	TimeframeMN1 = 0xc001
)

var timeframeCodes = map[string]int{
	"M1":  TimeframeM1,
	"M2":  TimeframeM2,
	"M3":  TimeframeM3,
	"M4":  TimeframeM4,
	"M5":  TimeframeM5,
	"M6":  TimeframeM6,
	"M10": TimeframeM10,
	"M12": TimeframeM12,
	"M15": TimeframeM15,
	"M20": TimeframeM20,
	"M30": TimeframeM30,
	"H1":  TimeframeH1,
	"H2":  TimeframeH2,
	"H3":  TimeframeH3,
	"H4":  TimeframeH4,
	"H6":  TimeframeH6,
	"H8":  TimeframeH8,
	"H12": TimeframeH12,
	"D1":  TimeframeD1,
	"W1":  TimeframeW1,
	"MN1": TimeframeMN1,
}

// TimeframeCode maps a timeframe string like "M5" or "H1" to its bridge
// code. Unknown strings fall back to H1.
func TimeframeCode(s string) int {
	if code, ok := timeframeCodes[strings.ToUpper(s)]; ok {
		return code
	}
	return TimeframeH1
}
