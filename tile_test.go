package main

import (
	"image"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTiles(w, h, rows, cols int) []Tile {
	layout := ComputeLayout(w, h, 0, rows, cols)
	return NewTileSet(image.Rect(0, 0, w, h), layout)
}

func tileIDs(tiles []Tile) []int {
	ids := make([]int, len(tiles))
	for i, t := range tiles {
		ids[i] = t.ID
	}
	return ids
}

func TestNewTileSetCoversEveryCoordinate(t *testing.T) {
	for _, tc := range []struct{ rows, cols int }{{3, 3}, {1, 1}, {2, 5}, {4, 3}} {
		tiles := newTestTiles(600, 400, tc.rows, tc.cols)
		require.Len(t, tiles, tc.rows*tc.cols)

		seen := make(map[Coord]bool)
		for _, tile := range tiles {
			assert.False(t, seen[tile.Correct], "duplicate coord %v", tile.Correct)
			seen[tile.Correct] = true
			assert.GreaterOrEqual(t, tile.Correct.Col, 0)
			assert.Less(t, tile.Correct.Col, tc.cols)
			assert.GreaterOrEqual(t, tile.Correct.Row, 0)
			assert.Less(t, tile.Correct.Row, tc.rows)
		}
		assert.Len(t, seen, tc.rows*tc.cols)
		assert.True(t, IsSolved(tiles, tc.cols), "tile set must start in solved order")
	}
}

func TestNewTileSetSourceRects(t *testing.T) {
	tiles := newTestTiles(300, 300, 3, 3)

	area := 0
	for _, tile := range tiles {
		assert.Equal(t, 100, tile.Source.Dx())
		assert.Equal(t, 100, tile.Source.Dy())
		assert.Equal(t, image.Pt(tile.Correct.Col*100, tile.Correct.Row*100), tile.Source.Min)
		assert.Equal(t, float64(tile.Correct.Col)*100, tile.OffsetX)
		assert.Equal(t, float64(tile.Correct.Row)*100, tile.OffsetY)
		area += tile.Source.Dx() * tile.Source.Dy()
	}
	assert.Equal(t, 300*300, area)
}

func TestShuffleIsPermutation(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	tiles := newTestTiles(90, 90, 3, 3)
	want := tileIDs(tiles)

	for range 100 {
		Shuffle(tiles, rng)
		got := tileIDs(tiles)
		sort.Ints(got)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("shuffle changed the tile multiset (-want +got):\n%s", diff)
		}
	}
}

// 2x2 grids have 24 orderings: check each one shows up as often as the others.
func TestShuffleUniformOrderings(t *testing.T) {
	const trials = 24_000
	rng := rand.New(rand.NewPCG(1, 2))
	counts := make(map[[4]int]int)

	for range trials {
		tiles := newTestTiles(2, 2, 2, 2)
		Shuffle(tiles, rng)
		var key [4]int
		copy(key[:], tileIDs(tiles))
		counts[key]++
	}
	require.Len(t, counts, 24)

	expected := float64(trials) / 24
	chi2 := 0.0
	for _, n := range counts {
		d := float64(n) - expected
		chi2 += d * d / expected
	}
	// 23 degrees of freedom; the 99.99th percentile is about 57.
	assert.Less(t, chi2, 60.0, "orderings are not uniform: chi2=%.2f", chi2)
}

func TestShuffleUniformSlots(t *testing.T) {
	const trials = 90_000
	rng := rand.New(rand.NewPCG(3, 4))
	var first [9]int

	for range trials {
		tiles := newTestTiles(3, 3, 3, 3)
		Shuffle(tiles, rng)
		first[tiles[0].ID]++
	}

	expected := float64(trials) / 9
	chi2 := 0.0
	for _, n := range first {
		d := float64(n) - expected
		chi2 += d * d / expected
	}
	// 8 degrees of freedom; the 99.99th percentile is about 31.8.
	assert.Less(t, chi2, 35.0, "first slot is biased: chi2=%.2f", chi2)
}

func TestIsSolved(t *testing.T) {
	solved := newTestTiles(300, 300, 3, 3)
	want := []Coord{
		{0, 0}, {1, 0}, {2, 0},
		{0, 1}, {1, 1}, {2, 1},
		{0, 2}, {1, 2}, {2, 2},
	}
	for i, tile := range solved {
		assert.Equal(t, want[i], tile.Correct)
	}
	assert.True(t, IsSolved(solved, 3))

	solved[0], solved[1] = solved[1], solved[0]
	assert.False(t, IsSolved(solved, 3))
}

func TestSlotCoord(t *testing.T) {
	assert.Equal(t, Coord{Col: 0, Row: 0}, SlotCoord(0, 3))
	assert.Equal(t, Coord{Col: 2, Row: 0}, SlotCoord(2, 3))
	assert.Equal(t, Coord{Col: 0, Row: 1}, SlotCoord(3, 3))
	assert.Equal(t, Coord{Col: 2, Row: 2}, SlotCoord(8, 3))
}
