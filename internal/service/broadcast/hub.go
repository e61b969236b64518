package broadcast

import (
	"sync"

	"PillarCast/internal/domain/models"
	applogger "PillarCast/pkg/logger"
)

const defaultBuffer = 16

type subscriber struct {
	ch     chan models.PredictionRecord
	closed bool
}

// Hub fans persisted records out to in-process subscribers. Publish never
// blocks: a subscriber whose buffer is full is evicted and its channel closed.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]*subscriber
	next   uint64
	buffer int
	closed bool
	l      *applogger.Logger
}

func NewHub(buffer int, l *applogger.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{subs: make(map[uint64]*subscriber), buffer: buffer, l: l}
}

// Subscribe registers a new subscriber. The returned cancel func is idempotent.
func (h *Hub) Subscribe() (<-chan models.PredictionRecord, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := &subscriber{ch: make(chan models.PredictionRecord, h.buffer)}
	if h.closed {
		s.closed = true
		close(s.ch)
		return s.ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = s

	return s.ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.drop(id)
	}
}

// Publish delivers rec to every subscriber with room and returns how many received it.
func (h *Hub) Publish(rec models.PredictionRecord) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for id, s := range h.subs {
		select {
		case s.ch <- rec:
			delivered++
		default:
			h.l.Warn("evicting slow subscriber", applogger.Int("buffer", h.buffer))
			h.drop(id)
		}
	}
	return delivered
}

// Len is the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects every subscriber; later subscriptions receive a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.subs {
		h.drop(id)
	}
	h.closed = true
}

func (h *Hub) drop(id uint64) {
	s, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
