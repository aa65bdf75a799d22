package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// ErrSuperseded is returned by Load when a newer upload started before the
// image finished decoding.
var ErrSuperseded = errors.New("load superseded by a newer upload")

const noSlot = -1

// Upload is an image file submitted by the player.
type Upload struct {
	Data     []byte
	MIMEType string
	Viewport float64 // viewport width in CSS pixels, 0 if unknown
}

// PuzzleBuilder turns an upload into a shuffled puzzle.
type PuzzleBuilder interface {
	Build(ctx context.Context, up Upload) (*Puzzle, error)
}

// Board holds the puzzle session of one player.
type Board struct {
	ID string

	mu       sync.Mutex
	puzzle   *Puzzle
	gen      uint64
	seq      uint64 // bumped on every change of the grid or its state
	cancel   context.CancelFunc
	engaged  int
	lastSeen time.Time
	rng      *rand.Rand
}

// TileView is the projection of a tile sitting on a slot.
type TileView struct {
	ID      int     `json:"id"`
	Slot    int     `json:"slot"`
	Correct Coord   `json:"correct"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
	URL     string  `json:"url"`
}

// BoardView is the renderable state of a board.
type BoardView struct {
	ID         string      `json:"id"`
	State      PuzzleState `json:"state"`
	Generation uint64      `json:"generation"`
	Seq        uint64      `json:"seq"`
	Engaged    *int        `json:"engaged,omitempty"`
	Layout     *Layout     `json:"layout,omitempty"`
	Tiles      []TileView  `json:"tiles,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// MoveResult describes the outcome of a swap attempt.
type MoveResult struct {
	Swapped     bool         `json:"swapped"`
	A           int          `json:"a"`
	B           int          `json:"b"`
	Celebration *Celebration `json:"celebration,omitempty"`
	Board       BoardView    `json:"board"`
}

// NewBoard creates an empty board.
func NewBoard(id string) *Board {
	return &Board{
		ID:       id,
		engaged:  noSlot,
		lastSeen: time.Now(),
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Load builds a puzzle from an upload and installs it, replacing any previous
// puzzle. Starting a load cancels the one still in flight, and a load that
// completes after a newer one started is discarded with ErrSuperseded.
func (b *Board) Load(ctx context.Context, builder PuzzleBuilder, up Upload) (BoardView, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.gen++
	gen := b.gen
	b.cancel = cancel
	b.lastSeen = time.Now()
	b.mu.Unlock()

	p, err := builder.Build(ctx, up)

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		return BoardView{}, fmt.Errorf("generation %d: %w", gen, ErrSuperseded)
	}
	b.cancel = nil
	if err != nil {
		return BoardView{}, err
	}
	b.puzzle = p
	b.engaged = noSlot
	b.seq++
	return b.viewLocked(), nil
}

// Engage marks the slot under the pointer at the start of a drag or touch.
func (b *Board) Engage(slot int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastSeen = time.Now()

	switch {
	case b.puzzle == nil:
		return ErrNoPuzzle
	case b.puzzle.State == StateSolved:
		return ErrSolved
	case !b.puzzle.validSlot(slot):
		return fmt.Errorf("engage %d: %w", slot, ErrSlotRange)
	}
	b.engaged = slot
	return nil
}

// Release ends a drag or touch gesture. When ok is false the gesture ended
// outside any tile. The engaged slot is cleared in every case.
func (b *Board) Release(slot int, ok bool) (MoveResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastSeen = time.Now()

	engaged := b.engaged
	b.engaged = noSlot
	if b.puzzle == nil {
		return MoveResult{}, ErrNoPuzzle
	}
	if engaged == noSlot || !ok || slot == engaged || !b.puzzle.validSlot(slot) {
		return MoveResult{A: engaged, B: slot, Board: b.viewLocked()}, nil
	}
	return b.swapLocked(engaged, slot)
}

// Swap exchanges two slots directly.
func (b *Board) Swap(a, c int) (MoveResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastSeen = time.Now()

	if b.puzzle == nil {
		return MoveResult{}, ErrNoPuzzle
	}
	return b.swapLocked(a, c)
}

func (b *Board) swapLocked(a, c int) (MoveResult, error) {
	solved, err := b.puzzle.Swap(a, c)
	if err != nil {
		return MoveResult{}, fmt.Errorf("swap %d<->%d: %w", a, c, err)
	}
	res := MoveResult{Swapped: a != c, A: a, B: c}
	if res.Swapped {
		b.seq++
	}
	if solved {
		b.engaged = noSlot
		res.Celebration = NewCelebration(b.rng, b.puzzle.Message)
	}
	res.Board = b.viewLocked()
	return res, nil
}

// View returns the current state of the board. Looking at a board counts
// as activity.
func (b *Board) View() BoardView {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastSeen = time.Now()
	return b.viewLocked()
}

// TileImage returns the PNG of a tile of the current puzzle.
func (b *Board) TileImage(id int) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastSeen = time.Now()
	if b.puzzle == nil {
		return nil, false
	}
	return b.puzzle.TileImage(id)
}

// LastSeen returns the time of the last interaction with the board.
func (b *Board) LastSeen() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSeen
}

func (b *Board) viewLocked() BoardView {
	v := BoardView{ID: b.ID, State: StateEmpty, Generation: b.gen, Seq: b.seq}
	if b.puzzle == nil {
		return v
	}
	layout := b.puzzle.Layout
	v.State = b.puzzle.State
	v.Layout = &layout
	if b.engaged != noSlot {
		e := b.engaged
		v.Engaged = &e
	}
	if v.State == StateSolved {
		v.Message = b.puzzle.Message
	}
	v.Tiles = make([]TileView, len(b.puzzle.Tiles))
	for i, t := range b.puzzle.Tiles {
		v.Tiles[i] = TileView{
			ID:      t.ID,
			Slot:    i,
			Correct: t.Correct,
			OffsetX: t.OffsetX,
			OffsetY: t.OffsetY,
			URL:     fmt.Sprintf("/api/boards/%s/tiles/%d?g=%d", b.ID, t.ID, b.gen),
		}
	}
	return v
}
