package model

import "time"

const EnvelopeVersion = "v1"

type Envelope struct {
	Version  string       `json:"version"`
	Success  bool         `json:"success"`
	Data     any          `json:"data,omitempty"`
	Error    *ErrorBody   `json:"error"`
	Warnings []string     `json:"warnings,omitempty"`
	Meta     EnvelopeMeta `json:"meta"`
}

type ErrorBody struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

type EnvelopeMeta struct {
	RequestID string    `json:"request_id"`
	SessionID string    `json:"session_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
}

type ProtocolTVL struct {
	Rank      int     `json:"rank"`
	Protocol  string  `json:"protocol"`
	Category  string  `json:"category"`
	TVLUSD    float64 `json:"tvl_usd"`
	Change1D  float64 `json:"change_1d"`
	SourceURL string  `json:"url,omitempty"`
}

// TradingInfo is a market snapshot with a couple of technical indicators
// computed from hourly candles.
type TradingInfo struct {
	Symbol       string    `json:"symbol"`
	Pair         string    `json:"pair"`
	PriceUSD     float64   `json:"price_usd"`
	Change24hPct float64   `json:"change_24h_pct"`
	High24h      float64   `json:"high_24h"`
	Low24h       float64   `json:"low_24h"`
	Volume24h    float64   `json:"volume_24h"`
	RSI14        float64   `json:"rsi_14"`
	EMA20        float64   `json:"ema_20"`
	Trend        string    `json:"trend"`
	FetchedAt    time.Time `json:"fetched_at"`
}

type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Todo struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type CreatedToken struct {
	Name        string    `json:"name"`
	Symbol      string    `json:"symbol"`
	TotalSupply string    `json:"total_supply"`
	TxHash      string    `json:"tx_hash"`
	CreatedAt   time.Time `json:"created_at"`
}
