package yahoo

import "encoding/json"

// ChartResponse represents the envelope returned by Yahoo's v8 chart API.
type ChartResponse struct {
	Chart struct {
		Result []ChartResult `json:"result"`
		Error  *ChartError   `json:"error"`
	} `json:"chart"`
}

type ChartError struct {
	Code        string `json:"code"`        // e.g. "Not Found"
	Description string `json:"description"` // Human-readable detail
}

type ChartResult struct {
	Meta struct {
		Symbol             string   `json:"symbol"`
		Currency           string   `json:"currency"`
		RegularMarketPrice *float64 `json:"regularMarketPrice"` // Last traded price, may be absent
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"` // Bar open times (seconds since epoch)
	Indicators struct {
		Quote []struct {
			Close []json.Number `json:"close"` // null for bars without trades
		} `json:"quote"`
	} `json:"indicators"`
}
