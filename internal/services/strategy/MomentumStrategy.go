package strategy

import "fmt"

// MomentumStrategy fires when the MACD histogram changes sign.
type MomentumStrategy struct {
	params Params
}

func NewMomentumStrategy(params Params) *MomentumStrategy {
	return &MomentumStrategy{params: params}
}

func (s *MomentumStrategy) Name() string { return "macd_momentum" }

func (s *MomentumStrategy) Evaluate(snap Snapshot) (Direction, []string) {
	p := s.params

	if snap.PrevHistogram < 0 && snap.Histogram > 0 {
		if snap.RSI > p.MomentumRSI {
			return Long, []string{
				fmt.Sprintf("MACD histogram flipped positive: %.6f -> %.6f", snap.PrevHistogram, snap.Histogram),
				fmt.Sprintf("RSI %.2f above %.0f", snap.RSI, p.MomentumRSI),
			}
		}
		return NoTrade, []string{fmt.Sprintf("MACD histogram flipped positive but RSI %.2f not above %.0f", snap.RSI, p.MomentumRSI)}
	}

	if snap.PrevHistogram > 0 && snap.Histogram < 0 {
		if snap.RSI < p.MomentumRSI {
			return Short, []string{
				fmt.Sprintf("MACD histogram flipped negative: %.6f -> %.6f", snap.PrevHistogram, snap.Histogram),
				fmt.Sprintf("RSI %.2f below %.0f", snap.RSI, p.MomentumRSI),
			}
		}
		return NoTrade, []string{fmt.Sprintf("MACD histogram flipped negative but RSI %.2f not below %.0f", snap.RSI, p.MomentumRSI)}
	}

	return NoTrade, nil
}
