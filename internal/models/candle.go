package models

import "encoding/json"

// Candle is a single OHLCV bar over a fixed interval. Immutable once closed.
type Candle struct {
	OpenTime int64   `json:"open_time" bson:"open_time"`
	Open     float64 `json:"open" bson:"open"`
	High     float64 `json:"high" bson:"high"`
	Low      float64 `json:"low" bson:"low"`
	Close    float64 `json:"close" bson:"close"`
	Volume   float64 `json:"volume" bson:"volume"`
}

func (c *Candle) String() string {
	b, _ := json.Marshal(c)
	return string(b)
}

// Closes extracts the close series from an ordered candle sequence.
func Closes(candles []*Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Highs extracts the high series from an ordered candle sequence.
func Highs(candles []*Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

// Lows extracts the low series from an ordered candle sequence.
func Lows(candles []*Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}

// Volumes extracts the volume series from an ordered candle sequence.
func Volumes(candles []*Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}
