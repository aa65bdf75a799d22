package main

import (
	"context"
	"math/rand/v2"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultMessage = "Bravo, le puzzle est terminé !"

// Builder decodes uploads into shuffled 3×3 puzzles. When a captioner is
// set, the completion message is asked for while the image is decoded.
type Builder struct {
	captioner Captioner
	logger    *zap.Logger
	newRand   func() *rand.Rand
}

// NewBuilder creates a builder. captioner may be nil.
func NewBuilder(captioner Captioner, logger *zap.Logger) *Builder {
	return &Builder{
		captioner: captioner,
		logger:    logger,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
	}
}

// Build implements PuzzleBuilder.
func (bl *Builder) Build(ctx context.Context, up Upload) (*Puzzle, error) {
	g, gctx := errgroup.WithContext(ctx)

	var p *Puzzle
	g.Go(func() error {
		src, format, err := DecodeImage(up.Data)
		if err != nil {
			return err
		}
		b := src.Bounds()
		layout := ComputeLayout(b.Dx(), b.Dy(), up.Viewport, puzzleRows, puzzleCols)
		puzzle := NewPuzzle(b, layout, bl.newRand())
		puzzle.Format = format
		puzzle.images, err = RenderTiles(gctx, src, puzzle.Tiles, layout)
		if err != nil {
			return err
		}
		p = puzzle
		return nil
	})

	message := defaultMessage
	if bl.captioner != nil {
		g.Go(func() error {
			msg, err := bl.captioner.Caption(gctx, up.Data, up.MIMEType)
			if err != nil {
				bl.logger.Warn("caption failed, using default message", zap.Error(err))
				return nil
			}
			if msg != "" {
				message = msg
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	p.Message = message
	bl.logger.Debug("puzzle built",
		zap.String("format", p.Format),
		zap.Float64("scale", p.Layout.Scale),
		zap.Int("tiles", len(p.Tiles)),
	)
	return p, nil
}
