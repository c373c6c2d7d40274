package main

import (
	"fmt"
	"io"
	"os"

	"github.com/notnil/chess"
	"github.com/samber/lo"

	"github.com/hailam/nnsearch/internal/board"
)

// gameFromPGN reads the first game of a PGN stream and returns its final
// position with the keys of every earlier position, oldest first.
func gameFromPGN(r io.Reader) (*board.Position, []uint64, error) {
	opt, err := chess.PGN(r)
	if err != nil {
		return nil, nil, fmt.Errorf("parse PGN: %w", err)
	}
	game := chess.NewGame(opt)

	positions := game.Positions()
	if len(positions) == 0 {
		return nil, nil, fmt.Errorf("parse PGN: no positions")
	}

	boards := make([]*board.Position, len(positions))
	for i, p := range positions {
		if boards[i], err = board.ParseFEN(p.String()); err != nil {
			return nil, nil, fmt.Errorf("position %d of game: %w", i, err)
		}
	}

	last := len(boards) - 1
	history := lo.Map(boards[:last], func(p *board.Position, _ int) uint64 {
		return p.Hash
	})
	return boards[last], history, nil
}

func gameFromPGNFile(path string) (*board.Position, []uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return gameFromPGN(f)
}
