package strategy

import "fmt"

// MeanReversionStrategy fades band touches at RSI extremes.
type MeanReversionStrategy struct {
	params Params
}

func NewMeanReversionStrategy(params Params) *MeanReversionStrategy {
	return &MeanReversionStrategy{params: params}
}

func (s *MeanReversionStrategy) Name() string { return "bollinger_mean_reversion" }

func (s *MeanReversionStrategy) Evaluate(snap Snapshot) (Direction, []string) {
	p := s.params

	if snap.Price <= snap.LowerBand && snap.RSI < p.OversoldRSI {
		return Long, []string{
			fmt.Sprintf("Oversold bounce: price %.4f at or below lower Bollinger band %.4f", snap.Price, snap.LowerBand),
			fmt.Sprintf("RSI %.2f below %.0f", snap.RSI, p.OversoldRSI),
		}
	}

	if snap.Price >= snap.UpperBand && snap.RSI > p.OverboughtRSI {
		return Short, []string{
			fmt.Sprintf("Overbought rejection: price %.4f at or above upper Bollinger band %.4f", snap.Price, snap.UpperBand),
			fmt.Sprintf("RSI %.2f above %.0f", snap.RSI, p.OverboughtRSI),
		}
	}

	return NoTrade, nil
}
