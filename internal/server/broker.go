package server

import (
	"encoding/json"
	"sync"
)

// Event is pushed to a game session's SSE and websocket subscribers.
type Event struct {
	Type           string `json:"type"`
	AttemptNumber  int    `json:"attemptNumber,omitempty"`
	Correct        bool   `json:"correct,omitempty"`
	ClueNumber     int    `json:"clueNumber,omitempty"`
	Clue           string `json:"clue,omitempty"`
	ElapsedSeconds int    `json:"elapsedSeconds,omitempty"`
	Answer         string `json:"answer,omitempty"`
	Date           string `json:"date,omitempty"`
	Slot           string `json:"slot,omitempty"`
}

const (
	EventAttempt     = "attempt"
	EventWon         = "won"
	EventLost        = "lost"
	EventInvalidated = "invalidated"
)

// Broker is an in-process pub/sub for session events, keyed by session token.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel of JSON-encoded events for token. The channel is
// closed when the topic is closed.
func (b *Broker) Subscribe(token string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[token] == nil {
		b.subs[token] = make(map[chan []byte]struct{})
	}
	b.subs[token][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(token string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[token], ch)
	if len(b.subs[token]) == 0 {
		delete(b.subs, token)
	}
	b.mu.Unlock()
}

func (b *Broker) Publish(token string, event Event) {
	data, _ := json.Marshal(event)
	b.mu.RLock()
	for ch := range b.subs[token] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}

// Close ends every subscription for token.
func (b *Broker) Close(token string) {
	b.mu.Lock()
	for ch := range b.subs[token] {
		close(ch)
	}
	delete(b.subs, token)
	b.mu.Unlock()
}
