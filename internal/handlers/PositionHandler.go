package handlers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"CryptoSignalBot/internal/models"
	"CryptoSignalBot/internal/services/risk"
	"CryptoSignalBot/internal/services/strategy"
)

var ErrOperationInProgress = errors.New("position operation in progress")

type Executor interface {
	OpenPosition(ctx context.Context, signal strategy.Signal, decision risk.Decision, signalID uint) (*models.Position, error)
}

// PositionHandler serialises position operations per symbol.
type PositionHandler struct {
	executor Executor

	// For tracking and synchronization
	activePositions sync.Map
}

func NewPositionHandler(executor Executor) *PositionHandler {
	return &PositionHandler{executor: executor}
}

// Open places the entry for an accepted signal. A second call for the same
// symbol while the first is in flight fails with ErrOperationInProgress.
func (h *PositionHandler) Open(ctx context.Context, signal strategy.Signal, decision risk.Decision, signalID uint) (*models.Position, error) {
	key := fmt.Sprintf("position_%s", signal.Symbol)
	if _, loaded := h.activePositions.LoadOrStore(key, true); loaded {
		return nil, fmt.Errorf("%w for %s", ErrOperationInProgress, signal.Symbol)
	}
	defer h.activePositions.Delete(key)

	return h.executor.OpenPosition(ctx, signal, decision, signalID)
}
