package indicator

import "autotrader/internal/domain"

// History is a fixed-capacity ring buffer of ticks for one symbol. It is not
// safe for concurrent use; the market-data store guards it.
type History struct {
	buf   []domain.MarketTick
	start int
	size  int
}

func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]domain.MarketTick, capacity)}
}

// Push appends tick, evicting the oldest entry when full.
func (h *History) Push(tick domain.MarketTick) {
	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = tick
		h.size++
		return
	}
	h.buf[h.start] = tick
	h.start = (h.start + 1) % len(h.buf)
}

func (h *History) Len() int      { return h.size }
func (h *History) Capacity() int { return len(h.buf) }

// Ticks returns the buffered ticks oldest first.
func (h *History) Ticks() []domain.MarketTick {
	out := make([]domain.MarketTick, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

// Last returns the newest tick.
func (h *History) Last() (domain.MarketTick, bool) {
	if h.size == 0 {
		return domain.MarketTick{}, false
	}
	return h.buf[(h.start+h.size-1)%len(h.buf)], true
}
