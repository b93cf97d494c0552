package strategy

import (
	"CryptoSignalBot/internal/models"
)

// Direction of a signal
type Direction string

const (
	Long    Direction = models.DirectionLong
	Short   Direction = models.DirectionShort
	NoTrade Direction = models.DirectionNoTrade
)

// Signal is the output of one evaluation. Treat it as immutable: WithAdvisory
// returns an annotated copy.
type Signal struct {
	Symbol    string
	Direction Direction

	// Price levels
	EntryMin       float64
	EntryMax       float64
	StopLoss       float64
	TakeProfit     float64
	MaxRiskPercent float64

	Rationale []string

	AdvisoryConfidence *float64
	AdvisoryComment    string
}

// EntryReference is the midpoint of the entry band.
func (s Signal) EntryReference() float64 {
	return (s.EntryMin + s.EntryMax) / 2
}

// IsTrade reports whether the signal carries a direction.
func (s Signal) IsTrade() bool {
	return s.Direction == Long || s.Direction == Short
}

// WithAdvisory returns a copy annotated with an advisory score.
func (s Signal) WithAdvisory(confidence float64, comment string) Signal {
	out := s
	out.Rationale = append([]string(nil), s.Rationale...)
	c := confidence
	out.AdvisoryConfidence = &c
	out.AdvisoryComment = comment
	return out
}

// Record converts the signal into its persisted form.
func (s Signal) Record() *models.Signal {
	return &models.Signal{
		Symbol:             s.Symbol,
		Direction:          string(s.Direction),
		EntryMin:           s.EntryMin,
		EntryMax:           s.EntryMax,
		StopLoss:           s.StopLoss,
		TakeProfit:         s.TakeProfit,
		MaxRiskPercent:     s.MaxRiskPercent,
		Rationale:          append([]string(nil), s.Rationale...),
		AdvisoryConfidence: s.AdvisoryConfidence,
		AdvisoryComment:    s.AdvisoryComment,
	}
}

// Params holds indicator periods, entry gates and level rules.
type Params struct {
	MinBars int

	FastEMA int
	SlowEMA int

	RSIPeriod int

	BBPeriod     int
	BBMultiplier float64

	MACDFast   int
	MACDSlow   int
	MACDSignal int

	// Trend-following RSI gates (exclusive bounds)
	TrendLongRSIMin  float64
	TrendLongRSIMax  float64
	TrendShortRSIMin float64
	TrendShortRSIMax float64

	// Mean-reversion RSI thresholds
	OversoldRSI   float64
	OverboughtRSI float64

	// Momentum RSI midline
	MomentumRSI float64

	StopLossPct    float64 // 0.05 = 5% risk distance
	RewardRisk     float64 // target distance as a multiple of the stop distance
	EntryBandPct   float64 // 0.002 = +/-0.2%
	MaxRiskPercent float64 // reported on every signal
}

// DefaultParams returns the production settings.
func DefaultParams() Params {
	return Params{
		MinBars:          50,
		FastEMA:          20,
		SlowEMA:          50,
		RSIPeriod:        14,
		BBPeriod:         20,
		BBMultiplier:     2.0,
		MACDFast:         12,
		MACDSlow:         26,
		MACDSignal:       9,
		TrendLongRSIMin:  45,
		TrendLongRSIMax:  70,
		TrendShortRSIMin: 30,
		TrendShortRSIMax: 55,
		OversoldRSI:      35,
		OverboughtRSI:    65,
		MomentumRSI:      50,
		StopLossPct:      0.05,
		RewardRisk:       2,
		EntryBandPct:     0.002,
		MaxRiskPercent:   5.0,
	}
}
