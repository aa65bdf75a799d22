package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	sseChannelBuffer = 16
	sseHeartbeat     = 30 * time.Second
)

// Event is a message pushed to every view of a board.
type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"-"`
}

// MarshalJSON flattens Data next to the type field.
func (e Event) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Data)+1)
	for k, v := range e.Data {
		m[k] = v
	}
	m["type"] = e.Type
	return json.Marshal(m)
}

// subscriber is a single SSE connection.
type subscriber struct {
	ch      chan []byte
	boardID string
}

// Broadcaster fans board events out to SSE subscribers.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	logger *zap.Logger
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		subs:   make(map[*subscriber]struct{}),
		logger: logger,
	}
}

// Subscribe adds a subscriber for a board.
func (b *Broadcaster) Subscribe(boardID string) *subscriber {
	s := &subscriber{
		ch:      make(chan []byte, sseChannelBuffer),
		boardID: boardID,
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(s *subscriber) {
	b.mu.Lock()
	if _, ok := b.subs[s]; ok {
		delete(b.subs, s)
		close(s.ch)
	}
	b.mu.Unlock()
}

// CloseBoard disconnects every subscriber of a board.
func (b *Broadcaster) CloseBoard(boardID string) {
	b.mu.Lock()
	for s := range b.subs {
		if s.boardID == boardID {
			delete(b.subs, s)
			close(s.ch)
		}
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers of a board.
// A subscriber whose buffer is full is disconnected: its stream ends, the
// browser reconnects and gets a fresh board_state instead of a stale grid.
func (b *Broadcaster) Publish(boardID string, evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		b.logger.Error("marshal event", zap.String("type", evt.Type), zap.Error(err))
		return
	}

	var slow []*subscriber
	b.mu.RLock()
	for s := range b.subs {
		if s.boardID != boardID {
			continue
		}
		select {
		case s.ch <- data:
		default:
			slow = append(slow, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range slow {
		b.logger.Debug("slow subscriber disconnected",
			zap.String("board", boardID), zap.String("type", evt.Type))
		b.Unsubscribe(s)
	}
}

// SubscriberCount returns the number of open streams for a board.
func (b *Broadcaster) SubscriberCount(boardID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for s := range b.subs {
		if s.boardID == boardID {
			n++
		}
	}
	return n
}

// ServeSSE streams the events of a board until the client goes away.
// initial is sent first, before any published event.
func (b *Broadcaster) ServeSSE(w http.ResponseWriter, r *http.Request, boardID string, initial Event) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming non supporté", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s := b.Subscribe(boardID)
	defer b.Unsubscribe(s)

	if data, err := json.Marshal(initial); err == nil {
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-s.ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}
