package models

import (
	"encoding/json"

	"github.com/cryptopulse/signalpipe/internal/libs/errs"
)

// SignalType is the trade direction a Signal recommends.
type SignalType string

const (
	SignalLong  SignalType = "LONG"
	SignalShort SignalType = "SHORT"
)

// Confidence buckets the continuous score.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
)

// EntryRange is the suggested entry band around the current price.
type EntryRange struct {
	Min float64 `json:"min" bson:"min"`
	Max float64 `json:"max" bson:"max"`
}

// TimeframeAlignment records which buckets agreed with the signal direction,
// for display in the dispatched message.
type TimeframeAlignment struct {
	Primary   bool `json:"primary" bson:"primary"`
	Secondary bool `json:"secondary" bson:"secondary"`
	Minor     bool `json:"minor" bson:"minor"`
}

// Signal is the Scorer's core output. Invariants: Score >= 60;
// Confidence == HIGH iff Score >= 75; SignalID is globally unique; StopLoss
// sits on the opposite side of CurrentPrice from the TakeProfit ladder.
type Signal struct {
	SignalID            string               `json:"signal_id" bson:"signal_id"`
	Timestamp           int64                `json:"timestamp" bson:"timestamp"`
	Asset               string               `json:"asset" bson:"asset"`
	Type                SignalType           `json:"type" bson:"type"`
	Score               int                  `json:"score" bson:"score"`
	Confidence          Confidence           `json:"confidence" bson:"confidence"`
	EntryRange          EntryRange           `json:"entry_range" bson:"entry_range"`
	TakeProfit          []float64            `json:"take_profit" bson:"take_profit"`
	StopLoss            float64              `json:"stop_loss" bson:"stop_loss"`
	Reasons             map[string][]string  `json:"reasons" bson:"reasons"`
	TimeframeAlignment  *TimeframeAlignment  `json:"timeframe_alignment" bson:"timeframe_alignment"`
	LiquidityNote       string               `json:"liquidity_note,omitempty" bson:"liquidity_note,omitempty"`
	FundingNote         string               `json:"funding_note,omitempty" bson:"funding_note,omitempty"`
	CorrelationID       string               `json:"correlation_id" bson:"correlation_id"`
}

func (s *Signal) String() string {
	b, _ := json.Marshal(s)
	return string(b)
}

// Validate checks a non-empty SignalID, a score within 60..100, the
// confidence bucket and the signal type before persistence or publish. It
// does not check SignalID uniqueness or the StopLoss side.
func (s *Signal) Validate() error {
	if s.SignalID == "" {
		return &errs.ValidationError{Field: "signal_id", Value: s.SignalID}
	}
	if s.Score < 60 || s.Score > 100 {
		return &errs.ValidationError{Field: "score", Value: s.Score}
	}
	if (s.Score >= 75) != (s.Confidence == ConfidenceHigh) {
		return &errs.ValidationError{Field: "confidence", Value: s.Confidence}
	}
	if s.Type != SignalLong && s.Type != SignalShort {
		return &errs.ValidationError{Field: "type", Value: s.Type}
	}
	return nil
}
