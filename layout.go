package main

import "math"

const (
	puzzleRows = 3
	puzzleCols = 3

	// viewportRatio caps the puzzle width to a share of the viewport.
	viewportRatio = 0.9
)

// Layout is the display geometry of a puzzle.
type Layout struct {
	Rows       int     `json:"rows"`
	Cols       int     `json:"cols"`
	Scale      float64 `json:"scale"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	TileWidth  float64 `json:"tile_width"`
	TileHeight float64 `json:"tile_height"`
}

// ComputeLayout fits an image of natural size w×h into the viewport.
// The puzzle never exceeds viewportRatio of the viewport width and is never
// upscaled. A viewport of zero or less means the width is unknown.
func ComputeLayout(w, h int, viewport float64, rows, cols int) Layout {
	maxWidth := float64(w)
	if viewport > 0 {
		maxWidth = math.Min(viewport*viewportRatio, float64(w))
	}
	scale := 1.0
	if w > 0 {
		scale = maxWidth / float64(w)
	}
	return Layout{
		Rows:       rows,
		Cols:       cols,
		Scale:      scale,
		Width:      float64(w) * scale,
		Height:     float64(h) * scale,
		TileWidth:  float64(w) / float64(cols) * scale,
		TileHeight: float64(h) / float64(rows) * scale,
	}
}
