package main

import (
	"errors"
	"image"
	"math/rand/v2"
	"time"
)

// PuzzleState is the interaction state of a board.
type PuzzleState string

const (
	StateEmpty    PuzzleState = "empty"
	StateShuffled PuzzleState = "shuffled"
	StateSolved   PuzzleState = "solved"
)

var (
	ErrNoPuzzle  = errors.New("no puzzle loaded")
	ErrSolved    = errors.New("puzzle already solved")
	ErrSlotRange = errors.New("slot out of range")
)

// Puzzle is one shuffled grid built from an uploaded image.
// The order of Tiles is the current display order.
type Puzzle struct {
	Layout    Layout
	Tiles     []Tile
	State     PuzzleState
	Format    string
	Message   string
	CreatedAt time.Time

	images [][]byte // tile PNGs indexed by tile ID
}

// NewPuzzle slices an image of the given bounds and shuffles the result.
func NewPuzzle(bounds image.Rectangle, layout Layout, rng *rand.Rand) *Puzzle {
	tiles := NewTileSet(bounds, layout)
	Shuffle(tiles, rng)
	return &Puzzle{
		Layout:    layout,
		Tiles:     tiles,
		State:     StateShuffled,
		CreatedAt: time.Now(),
	}
}

// Swap exchanges the tiles at slots a and b, then checks for completion.
// It returns true only on the swap that solves the puzzle.
func (p *Puzzle) Swap(a, b int) (bool, error) {
	if p.State == StateSolved {
		return false, ErrSolved
	}
	if !p.validSlot(a) || !p.validSlot(b) {
		return false, ErrSlotRange
	}
	if a == b {
		return false, nil
	}
	p.Tiles[a], p.Tiles[b] = p.Tiles[b], p.Tiles[a]
	if IsSolved(p.Tiles, p.Layout.Cols) {
		p.State = StateSolved
		return true, nil
	}
	return false, nil
}

// TileImage returns the rendered PNG of a tile by its ID.
func (p *Puzzle) TileImage(id int) ([]byte, bool) {
	if id < 0 || id >= len(p.images) || p.images[id] == nil {
		return nil, false
	}
	return p.images[id], true
}

func (p *Puzzle) validSlot(i int) bool {
	return i >= 0 && i < len(p.Tiles)
}
