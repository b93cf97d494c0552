// Package stream keeps a live view of futures mark prices for display. The
// trading core never reads from it.
package stream

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Quote is the latest mark price for a symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	EventTime time.Time `json:"event_time"`
}

// PriceBoard is a concurrency-safe last-value cache.
type PriceBoard struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

func NewPriceBoard() *PriceBoard {
	return &PriceBoard{quotes: make(map[string]Quote)}
}

// Update stores q unless a newer quote is already present.
func (b *PriceBoard) Update(q Quote) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if prev, ok := b.quotes[q.Symbol]; ok && prev.EventTime.After(q.EventTime) {
		return
	}
	b.quotes[q.Symbol] = q
}

func (b *PriceBoard) Get(symbol string) (Quote, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q, ok := b.quotes[symbol]
	return q, ok
}

// Snapshot copies every quote.
func (b *PriceBoard) Snapshot() map[string]Quote {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]Quote, len(b.quotes))
	for k, v := range b.quotes {
		out[k] = v
	}
	return out
}

// ServeHTTP writes every quote as JSON, or one quote with ?symbol=.
func (b *PriceBoard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if symbol := strings.ToUpper(r.URL.Query().Get("symbol")); symbol != "" {
		q, ok := b.Get(symbol)
		if !ok {
			http.Error(w, "no quote for "+symbol, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(q)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(b.Snapshot())
}
