package trading

import (
	"context"
	"errors"
	"io"
	"testing"

	"CryptoSignalBot/internal/models"
	"CryptoSignalBot/internal/operations/provider"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScorer struct {
	score     provider.Score
	err       error
	rationale []string
}

func (f *fakeScorer) ScoreSignal(ctx context.Context, symbol string, rationale []string, recent []models.Price) (provider.Score, error) {
	f.rationale = rationale
	return f.score, f.err
}

type fakeNotes map[uint]string

func (f fakeNotes) UpdateAdvisoryNote(ctx context.Context, id uint, note string) error {
	f[id] = note
	return nil
}

func closedLong(t *testing.T) models.Position {
	t.Helper()
	p := openLong(7, "BTCUSDT")
	p.AdvisoryNote = "clean breakout"
	require.NoError(t, p.Close(110, models.ExitReasonTakeProfit, fixedNow))
	return p
}

func TestCloseReview_AppendsNote(t *testing.T) {
	scorer := &fakeScorer{score: provider.Score{Confidence: 81.6, Comment: "target hit as planned"}}
	notes := fakeNotes{}

	CloseReview(scorer, notes, zerolog.New(io.Discard))(context.Background(), closedLong(t))

	assert.Equal(t, "clean breakout | review 82: target hit as planned", notes[7])
	assert.Contains(t, scorer.rationale, "exit reason take_profit")
}

func TestCloseReview_ScorerFailureLeavesNote(t *testing.T) {
	scorer := &fakeScorer{err: errors.New("quota")}
	notes := fakeNotes{}

	CloseReview(scorer, notes, zerolog.New(io.Discard))(context.Background(), closedLong(t))
	assert.Empty(t, notes)
}
