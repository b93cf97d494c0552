package strategy

import "fmt"

// TrendStrategy fires on a fast/slow EMA crossover confirmed by RSI.
type TrendStrategy struct {
	params Params
}

func NewTrendStrategy(params Params) *TrendStrategy {
	return &TrendStrategy{params: params}
}

func (s *TrendStrategy) Name() string { return "trend_crossover" }

func (s *TrendStrategy) Evaluate(snap Snapshot) (Direction, []string) {
	cross := snap.EMACross
	if !cross.Crossed {
		return NoTrade, nil
	}

	p := s.params
	if cross.Direction > 0 {
		line := fmt.Sprintf("Bullish EMA crossover: EMA%d %.4f crossed above EMA%d %.4f (prev %.4f <= %.4f)",
			p.FastEMA, cross.CurrFast, p.SlowEMA, cross.CurrSlow, cross.PrevFast, cross.PrevSlow)
		if snap.RSI > p.TrendLongRSIMin && snap.RSI < p.TrendLongRSIMax {
			return Long, []string{line, fmt.Sprintf("RSI %.2f inside bullish gate (%.0f-%.0f)", snap.RSI, p.TrendLongRSIMin, p.TrendLongRSIMax)}
		}
		return NoTrade, []string{fmt.Sprintf("Bullish EMA crossover ignored: RSI %.2f outside %.0f-%.0f", snap.RSI, p.TrendLongRSIMin, p.TrendLongRSIMax)}
	}

	line := fmt.Sprintf("Bearish EMA crossover: EMA%d %.4f crossed below EMA%d %.4f (prev %.4f >= %.4f)",
		p.FastEMA, cross.CurrFast, p.SlowEMA, cross.CurrSlow, cross.PrevFast, cross.PrevSlow)
	if snap.RSI > p.TrendShortRSIMin && snap.RSI < p.TrendShortRSIMax {
		return Short, []string{line, fmt.Sprintf("RSI %.2f inside bearish gate (%.0f-%.0f)", snap.RSI, p.TrendShortRSIMin, p.TrendShortRSIMax)}
	}
	return NoTrade, []string{fmt.Sprintf("Bearish EMA crossover ignored: RSI %.2f outside %.0f-%.0f", snap.RSI, p.TrendShortRSIMin, p.TrendShortRSIMax)}
}
