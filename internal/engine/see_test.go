package engine

import (
	"testing"

	"github.com/hailam/nnsearch/internal/board"
)

// exchange plays out every legal sequence of captures on m's destination and
// returns the material outcome of m when both sides may stop capturing.
func exchange(pos *board.Position, m board.Move) int {
	gain := seeValue[pos.PieceAt(m.To()).Type()]
	to := m.To()
	undo := pos.MakeMove(m)
	best := 0
	legal := pos.GenerateLegalMoves()
	for i := 0; i < legal.Len(); i++ {
		r := legal.Get(i)
		if r.To() == to && r.Flag() == board.FlagNormal {
			best = max(best, exchange(pos, r))
		}
	}
	pos.UnmakeMove(m, undo)
	return gain - best
}

func TestSEE(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		move string
		want int
	}{
		{"free pawn", "4k3/8/8/3p4/4P3/8/8/4K3 w - - 0 1", "e4d5", 100},
		{"defended pawn", "4k3/8/1n6/3p4/4P3/8/8/4K3 w - - 0 1", "e4d5", 0},
		{"pawn then rook", "4k3/8/1n6/3p4/4P3/8/8/3RK3 w - - 0 1", "e4d5", 100},
		{"rook first", "4k3/8/1n6/3p4/4P3/8/8/3RK3 w - - 0 1", "d1d5", -100},
		{"x-ray rooks", "3rk3/3r4/8/3p4/8/8/3R4/3RK3 w - - 0 1", "d2d5", -400},
		{"pinned defender", "8/k7/1n6/3p3R/3B4/8/8/4K3 w - - 0 1", "h5d5", 100},
		{"pinner captures", "8/k7/1n6/3p3R/3B4/8/8/4K3 w - - 0 1", "d4b6", 0},
		{"undefended rook pawn", "1k1r4/1pp4p/p7/4p3/8/P5P1/1PP4P/2K1R3 w - - 0 1", "e1e5", 100},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos, err := board.ParseFEN(tc.fen)
			if err != nil {
				t.Fatalf("ParseFEN: %v", err)
			}
			m, err := board.ParseMove(tc.move, pos)
			if err != nil {
				t.Fatalf("ParseMove(%s): %v", tc.move, err)
			}

			if got := exchange(pos, m); got != tc.want {
				t.Fatalf("exhaustive exchange = %d, want %d", got, tc.want)
			}
			for th := tc.want - 400; th <= tc.want+400; th++ {
				if got := SEEGE(pos, m, th); got != (th <= tc.want) {
					t.Fatalf("SEEGE(%s, %d) = %v, exchange value %d", tc.move, th, got, tc.want)
				}
			}
		})
	}
}

func TestSEENonNormalMoves(t *testing.T) {
	pos, _ := board.ParseFEN("r3k2r/8/8/3pP3/8/8/8/R3K2R w KQkq d6 0 1")
	for _, s := range []string{"e5d6", "e1g1"} {
		m, err := board.ParseMove(s, pos)
		if err != nil {
			t.Fatalf("ParseMove(%s): %v", s, err)
		}
		if !SEEGE(pos, m, 0) || SEEGE(pos, m, 1) {
			t.Errorf("%s is not treated as an even exchange", s)
		}
	}
}
