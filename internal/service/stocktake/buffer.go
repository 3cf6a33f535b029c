package stocktake

import (
	"sync"
	"time"

	"github.com/hmiyata/battrack/internal/domain/models"
)

// Buffer accumulates the physically observed units across several pastes
// before a comparison run. Keyed by serial: pasting a serial again simply
// overwrites its observed date.
type Buffer struct {
	mu    sync.RWMutex
	order []string
	dates map[string]time.Time
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{dates: make(map[string]time.Time)}
}

// Add merges pairs into the buffer and returns the total buffered count.
func (b *Buffer) Add(pairs []models.SerialDate) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, pair := range pairs {
		if _, seen := b.dates[pair.Serial]; !seen {
			b.order = append(b.order, pair.Serial)
		}
		b.dates[pair.Serial] = pair.AcquiredAt
	}
	return len(b.order)
}

// Pairs lists the buffered units in first-paste order.
func (b *Buffer) Pairs() []models.SerialDate {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.SerialDate, 0, len(b.order))
	for _, serial := range b.order {
		out = append(out, models.SerialDate{Serial: serial, AcquiredAt: b.dates[serial]})
	}
	return out
}

// Len reports the buffered unit count.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.order)
}

// Clear drops everything buffered so far.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.order = nil
	b.dates = make(map[string]time.Time)
}
