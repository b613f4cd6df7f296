package api

import "ichimoku-apiv1/internal/model"

// QuotesResponse is the REST response type for /quotes.
type QuotesResponse struct {
	Symbol    string      `json:"symbol"`
	Timeframe string      `json:"timeframe"`
	Count     int         `json:"count"`
	Data      []model.Bar `json:"data"`
}

// SymbolsResponse is the REST response type for /symbols.
type SymbolsResponse struct {
	Symbols []string `json:"symbols"`
}

// IchimokuResponse is the REST response type for /ichimoku.
type IchimokuResponse struct {
	Symbol       string              `json:"symbol"`
	Timeframe    string              `json:"timeframe"`
	TotalCandles int                 `json:"total_candles"`
	LatestSignal *model.Signal       `json:"latest_signal"`
	Data         []model.EnrichedBar `json:"data"`
}

// HealthResponse is the REST response type for /health.
type HealthResponse struct {
	Status            string `json:"status"`
	TerminalConnected bool   `json:"terminal_connected"`
}

// ErrorResponse is the REST error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
