package trading

import (
	"context"
	"fmt"

	"CryptoSignalBot/internal/models"
	"CryptoSignalBot/internal/operations/provider"

	"github.com/rs/zerolog"
)

// NoteStore writes the one annotation allowed on a closed position.
type NoteStore interface {
	UpdateAdvisoryNote(ctx context.Context, id uint, note string) error
}

// CloseReview returns a hook that asks scorer about a finished trade and
// appends the answer to the position's advisory note. Failures are only logged.
func CloseReview(scorer provider.AdvisoryScorer, notes NoteStore, logger zerolog.Logger) CloseHook {
	log := logger.With().Str("component", "review").Logger()
	return func(ctx context.Context, p models.Position) {
		score, err := scorer.ScoreSignal(ctx, p.Symbol, closeSummary(p), nil)
		if err != nil {
			log.Warn().Err(err).Uint("position_id", p.ID).Msg("post-close review unavailable")
			return
		}

		note := fmt.Sprintf("review %.0f: %s", score.Confidence, score.Comment)
		if p.AdvisoryNote != "" {
			note = p.AdvisoryNote + " | " + note
		}
		if err := notes.UpdateAdvisoryNote(ctx, p.ID, note); err != nil {
			log.Warn().Err(err).Uint("position_id", p.ID).Msg("failed to store review note")
		}
	}
}

func closeSummary(p models.Position) []string {
	return []string{
		fmt.Sprintf("closed %s position", p.Side),
		fmt.Sprintf("entry %.8g exit %.8g", p.EntryPrice, p.ExitPrice),
		fmt.Sprintf("exit reason %s", p.ExitReason),
		fmt.Sprintf("realized pnl %.2f%%", p.RealizedPnlPercent),
	}
}
