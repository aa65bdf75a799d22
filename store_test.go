package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestCreateAndGetBoard(t *testing.T) {
	s := NewStore(time.Hour)
	b := s.CreateBoard()

	require.NotEmpty(t, b.ID)
	assert.Same(t, b, s.GetBoard(b.ID))
	assert.Nil(t, s.GetBoard("nonexistent"))
	assert.Equal(t, 1, s.Len())

	other := s.CreateBoard()
	assert.NotEqual(t, b.ID, other.ID)
	assert.Equal(t, StateEmpty, other.View().State)
}

func TestReap(t *testing.T) {
	s := NewStore(time.Minute)
	idle := s.CreateBoard()
	active := s.CreateBoard()

	later := time.Now().Add(2 * time.Minute)
	active.mu.Lock()
	active.lastSeen = later
	active.mu.Unlock()

	removed := s.Reap(later, nil)
	assert.Equal(t, []string{idle.ID}, removed)
	assert.Nil(t, s.GetBoard(idle.ID))
	assert.NotNil(t, s.GetBoard(active.ID))
}

func TestReapKeepsWatchedBoards(t *testing.T) {
	s := NewStore(time.Minute)
	watched := s.CreateBoard()
	idle := s.CreateBoard()

	later := time.Now().Add(time.Hour)
	removed := s.Reap(later, func(id string) bool { return id == watched.ID })
	assert.Equal(t, []string{idle.ID}, removed)
	assert.NotNil(t, s.GetBoard(watched.ID))
}

func TestViewRefreshesLastSeen(t *testing.T) {
	s := NewStore(time.Minute)
	b := s.CreateBoard()

	b.mu.Lock()
	b.lastSeen = time.Now().Add(-time.Hour)
	b.mu.Unlock()

	b.View()
	assert.Empty(t, s.Reap(time.Now(), nil), "a board being viewed is not idle")

	b.mu.Lock()
	b.lastSeen = time.Now().Add(-time.Hour)
	b.mu.Unlock()

	b.TileImage(0)
	assert.Empty(t, s.Reap(time.Now(), nil), "fetching tiles counts as activity")
}

func TestStoreRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewStore(time.Nanosecond)
	b := s.CreateBoard()

	reaped := make(chan []string, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx, 5*time.Millisecond, nil, func(ids []string) {
			select {
			case reaped <- ids:
			default:
			}
		})
	}()

	select {
	case ids := <-reaped:
		assert.Equal(t, []string{b.ID}, ids)
	case <-time.After(time.Second):
		t.Fatal("board was not reaped")
	}

	cancel()
	<-done
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore(time.Hour)
	var wg sync.WaitGroup

	for i := range 100 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := s.CreateBoard()
			s.GetBoard(b.ID)
			b.View()
			if i%10 == 0 {
				s.Reap(time.Now(), nil)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 100, s.Len())
}
