package main

import (
	"strings"
	"testing"

	"github.com/hailam/nnsearch/internal/board"
)

func TestBenchFENsParse(t *testing.T) {
	for i, fen := range benchFENs {
		pos, err := board.ParseFEN(fen)
		if err != nil {
			t.Errorf("position %d: %v", i+1, err)
			continue
		}
		if !pos.HasLegalMoves() {
			t.Errorf("position %d has no legal moves", i+1)
		}
	}
}

func TestSANLine(t *testing.T) {
	pos := board.NewPosition()
	var pv []board.Move
	p := pos.Copy()
	for _, s := range []string{"e2e4", "e7e5", "g1f3"} {
		m, err := board.ParseMove(s, p)
		if err != nil {
			t.Fatalf("ParseMove(%s): %v", s, err)
		}
		pv = append(pv, m)
		p.MakeMove(m)
	}

	got := strings.Join(sanLine(pos, pv), " ")
	if got != "1.e4 e5 2.Nf3" {
		t.Errorf("sanLine = %q", got)
	}

	black, _ := board.ParseFEN("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1")
	m, _ := board.ParseMove("e7e5", black)
	if got := sanLine(black, []board.Move{m, board.NewMove(board.E2, board.E4)}); len(got) != 1 || got[0] != "1...e5" {
		t.Errorf("black to move: %q", got)
	}
}
