package main

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds all boards in memory.
type Store struct {
	mu     sync.RWMutex
	boards map[string]*Board
	ttl    time.Duration
}

// NewStore creates an empty store. Boards idle for longer than ttl are
// removed by Reap.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		boards: make(map[string]*Board),
		ttl:    ttl,
	}
}

// CreateBoard registers a new empty board.
func (s *Store) CreateBoard() *Board {
	b := NewBoard(uuid.NewString())

	s.mu.Lock()
	s.boards[b.ID] = b
	s.mu.Unlock()

	return b
}

// GetBoard returns a board by ID, or nil if not found.
func (s *Store) GetBoard(id string) *Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.boards[id]
}

// Len returns the number of live boards.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.boards)
}

// Reap deletes boards not seen since ttl before now and returns their IDs.
// Boards for which busy reports true are kept whatever their age.
func (s *Store) Reap(now time.Time, busy func(id string) bool) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for id, b := range s.boards {
		if now.Sub(b.LastSeen()) <= s.ttl || (busy != nil && busy(id)) {
			continue
		}
		delete(s.boards, id)
		removed = append(removed, id)
	}
	return removed
}

// Run reaps idle boards every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration, busy func(id string) bool, onReap func(ids []string)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if ids := s.Reap(now, busy); len(ids) > 0 && onReap != nil {
				onReap(ids)
			}
		}
	}
}
