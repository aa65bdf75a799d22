package main

import (
	"image"
	"math/rand/v2"
)

// Coord is a column/row position on the board.
type Coord struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// Tile is one rectangular crop of the source image.
// Correct is its home position and never changes once the tile is built.
type Tile struct {
	ID      int             `json:"id"`
	Correct Coord           `json:"correct"`
	Source  image.Rectangle `json:"-"`
	OffsetX float64         `json:"offset_x"`
	OffsetY float64         `json:"offset_y"`
}

// SlotCoord returns the coordinate implied by a grid index.
func SlotCoord(index, cols int) Coord {
	return Coord{Col: index % cols, Row: index / cols}
}

// NewTileSet slices an image of the given natural size into rows×cols tiles,
// returned in solved (row-major) order.
func NewTileSet(bounds image.Rectangle, layout Layout) []Tile {
	w, h := bounds.Dx(), bounds.Dy()
	tiles := make([]Tile, 0, layout.Rows*layout.Cols)
	for y := 0; y < layout.Rows; y++ {
		for x := 0; x < layout.Cols; x++ {
			tiles = append(tiles, Tile{
				ID:      y*layout.Cols + x,
				Correct: Coord{Col: x, Row: y},
				Source: image.Rect(
					bounds.Min.X+x*w/layout.Cols,
					bounds.Min.Y+y*h/layout.Rows,
					bounds.Min.X+(x+1)*w/layout.Cols,
					bounds.Min.Y+(y+1)*h/layout.Rows,
				),
				OffsetX: float64(x) * layout.TileWidth,
				OffsetY: float64(y) * layout.TileHeight,
			})
		}
	}
	return tiles
}

// Shuffle permutes tiles in place with Fisher–Yates.
func Shuffle(tiles []Tile, rng *rand.Rand) {
	for i := len(tiles) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		tiles[i], tiles[j] = tiles[j], tiles[i]
	}
}

// IsSolved reports whether every tile sits on its home slot.
func IsSolved(tiles []Tile, cols int) bool {
	for i, t := range tiles {
		if t.Correct != SlotCoord(i, cols) {
			return false
		}
	}
	return true
}
