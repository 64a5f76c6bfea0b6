package chat

import (
	"sync"

	"github.com/bangunrumah/konsultasi-engine/internal/models"
)

// Log is the append-only message store for one room: fetched history, live
// transport events and optimistic local sends all land here. The timeline is
// a pure projection over a Snapshot; nothing mutates entries in place except
// the explicit replace-by-id used for optimistic→confirmed transitions.
// Transport events arrive off the caller's goroutine, hence the lock.
type Log struct {
	mu       sync.RWMutex
	messages []models.Message
	index    map[string]int
}

func NewLog() *Log {
	return &Log{index: make(map[string]int)}
}

// Append adds a message. A duplicate id is ignored.
func (l *Log) Append(m models.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.index[m.ID]; ok {
		return
	}
	l.index[m.ID] = len(l.messages)
	l.messages = append(l.messages, m)
}

// AppendAll adds a batch (typically fetched history) preserving order.
func (l *Log) AppendAll(msgs []models.Message) {
	for _, m := range msgs {
		l.Append(m)
	}
}

// ReplaceByID swaps the entry with oldID for the confirmed message, keeping
// its position. Used when an upload URL or server ack replaces a local
// placeholder; the old local id is never reused.
func (l *Log) ReplaceByID(oldID string, m models.Message) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.index[oldID]
	if !ok {
		return false
	}
	delete(l.index, oldID)
	l.index[m.ID] = i
	l.messages[i] = m
	return true
}

// Remove drops a message, e.g. an optimistic attachment whose upload failed.
func (l *Log) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.index[id]
	if !ok {
		return false
	}
	delete(l.index, id)
	l.messages = append(l.messages[:i], l.messages[i+1:]...)
	for j := i; j < len(l.messages); j++ {
		l.index[l.messages[j].ID] = j
	}
	return true
}

// Snapshot returns a copy of all messages in assignment order.
func (l *Log) Snapshot() []models.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of stored messages.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}
