// Package activity keeps a bounded, append-only record of what the trading
// loop did each cycle.
package activity

import (
	"sync"
	"time"

	"autotrader/internal/domain"
)

type Kind string

const (
	KindExecuted Kind = "executed"
	KindRejected Kind = "rejected"
	KindSkipped  Kind = "skipped"
	KindHold     Kind = "hold"
	KindHalted   Kind = "halted"
)

// Entry is one activity record. Code is a stable machine-readable reason.
type Entry struct {
	ID      uint64              `json:"id"`
	Time    time.Time           `json:"time"`
	Kind    Kind                `json:"kind"`
	Symbol  string              `json:"symbol,omitempty"`
	Action  domain.Action       `json:"action,omitempty"`
	Code    string              `json:"code"`
	Message string              `json:"message,omitempty"`
	Trade   *domain.TradeRecord `json:"trade,omitempty"`
}

// Log is a ring buffer of entries. Reads return copies.
type Log struct {
	mu     sync.RWMutex
	buf    []Entry
	start  int
	size   int
	nextID uint64
	now    func() time.Time
}

func NewLog(capacity int) *Log {
	if capacity < 1 {
		capacity = 1
	}
	return &Log{buf: make([]Entry, capacity), nextID: 1, now: time.Now}
}

// Append stamps e with the next ID (and the current time if unset) and
// stores it, evicting the oldest entry when full.
func (l *Log) Append(e Entry) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.ID = l.nextID
	l.nextID++
	if e.Time.IsZero() {
		e.Time = l.now()
	}
	if e.Trade != nil {
		trade := *e.Trade
		e.Trade = &trade
	}
	if l.size < len(l.buf) {
		l.buf[(l.start+l.size)%len(l.buf)] = e
		l.size++
	} else {
		l.buf[l.start] = e
		l.start = (l.start + 1) % len(l.buf)
	}
	return e
}

// Recent returns up to n entries, newest first. n <= 0 returns all.
func (l *Log) Recent(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > l.size {
		n = l.size
	}
	out := make([]Entry, n)
	for i := 0; i < n; i++ {
		out[i] = l.buf[(l.start+l.size-1-i)%len(l.buf)]
	}
	return out
}

// Since returns entries with ID greater than id, oldest first. Entries that
// were already evicted are silently missing.
func (l *Log) Since(id uint64) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Entry
	for i := 0; i < l.size; i++ {
		e := l.buf[(l.start+i)%len(l.buf)]
		if e.ID > id {
			out = append(out, e)
		}
	}
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}
