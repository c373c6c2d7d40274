package engine

import (
	"testing"

	"github.com/hailam/nnsearch/internal/board"
)

var pickerFENs = []string{
	board.StartFEN,
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
	"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	"4k3/8/8/8/8/8/4r3/R3K3 w Q - 0 1",
}

func legalSet(pos *board.Position) map[board.Move]bool {
	set := make(map[board.Move]bool)
	legal := pos.GenerateLegalMoves()
	for i := 0; i < legal.Len(); i++ {
		set[legal.Get(i)] = true
	}
	return set
}

func sentinelConts(h *histories) [4]*pieceToHistory {
	s := h.sentinel()
	return [4]*pieceToHistory{s, s, s, s}
}

func drain(t *testing.T, pos *board.Position, mp *MovePicker) []board.Move {
	t.Helper()
	var out []board.Move
	seen := make(map[board.Move]bool)
	for m := mp.Next(); m != board.NoMove; m = mp.Next() {
		if seen[m] {
			t.Fatalf("%s: move %v returned twice", pos.ToFEN(), m)
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

func TestMainPickerYieldsEveryLegalMoveOnce(t *testing.T) {
	hist := new(histories)
	for _, fen := range pickerFENs {
		pos, err := board.ParseFEN(fen)
		if err != nil {
			t.Fatalf("ParseFEN(%q): %v", fen, err)
		}
		want := legalSet(pos)

		var quiet board.Move
		var first board.Move
		for m := range want {
			if first == board.NoMove {
				first = m
			}
			if quiet == board.NoMove && isQuiet(pos, m) {
				quiet = m
			}
		}

		for _, tt := range []board.Move{board.NoMove, first} {
			killers := [2]board.Move{quiet, board.NewMove(board.A1, board.H8)}
			mp := newMainPicker(pos, hist, tt, killers, sentinelConts(hist), 6)
			got := drain(t, pos, &mp)

			if tt != board.NoMove && (len(got) == 0 || got[0] != tt) {
				t.Errorf("%s: TT move %v not returned first", fen, tt)
			}
			n := 0
			for _, m := range got {
				if pos.IsLegal(m) {
					if !want[m] {
						t.Errorf("%s: picker returned %v, not in legal list", fen, m)
					}
					n++
				}
			}
			if n != len(want) {
				t.Errorf("%s: picker returned %d legal moves, want %d", fen, n, len(want))
			}
		}
	}
}

func TestPickerSkipQuiets(t *testing.T) {
	hist := new(histories)
	pos, _ := board.ParseFEN(pickerFENs[1])
	mp := newMainPicker(pos, hist, board.NoMove, [2]board.Move{}, sentinelConts(hist), 4)
	mp.SkipQuiets()
	for _, m := range drain(t, pos, &mp) {
		if isQuiet(pos, m) {
			t.Errorf("quiet move %v returned after SkipQuiets", m)
		}
	}
}

func TestGoodCapturesBeforeQuiets(t *testing.T) {
	hist := new(histories)
	pos, _ := board.ParseFEN(pickerFENs[1])
	mp := newMainPicker(pos, hist, board.NoMove, [2]board.Move{}, sentinelConts(hist), 4)
	seenQuiet := false
	for m := mp.Next(); m != board.NoMove; m = mp.Next() {
		if isQuiet(pos, m) {
			seenQuiet = true
			continue
		}
		if seenQuiet && SEEGE(pos, m, 0) {
			t.Errorf("winning capture %v returned after a quiet move", m)
		}
	}
}

func TestQSearchPickerCapturesOnly(t *testing.T) {
	hist := new(histories)
	for _, fen := range pickerFENs {
		pos, _ := board.ParseFEN(fen)
		if pos.InCheck() {
			continue
		}
		mp := newQSearchPicker(pos, hist, board.NoMove, sentinelConts(hist), board.NoSquare, false)
		for _, m := range drain(t, pos, &mp) {
			if isQuiet(pos, m) {
				t.Errorf("%s: quiet move %v in quiescence without checks", fen, m)
			}
		}

		mp = newQSearchPicker(pos, hist, board.NoMove, sentinelConts(hist), board.NoSquare, true)
		for _, m := range drain(t, pos, &mp) {
			if isQuiet(pos, m) && !givesCheck(pos, m) {
				t.Errorf("%s: quiet non-check %v in quiescence", fen, m)
			}
		}
	}
}

func TestPartialInsertionSort(t *testing.T) {
	moves := []scoredMove{{1, 5}, {2, -100}, {3, 50}, {4, 7}, {5, -200}, {6, 60}}
	partialInsertionSort(moves, 0)
	want := []int{60, 50, 7, 5}
	for i, s := range want {
		if moves[i].score != s {
			t.Fatalf("position %d has score %d, want %d (%v)", i, moves[i].score, s, moves)
		}
	}
}

func TestPickerKeepsEveryBadCapture(t *testing.T) {
	// Knights on every light square, pawn chains on the dark ones: over a
	// hundred captures, most of them losing a knight for a pawn.
	fen := "4k3/pNpNpNpN/NpNpNpNp/pNpNpNpN/NpNpNpNp/pNpNpNpN/NpNpNpNp/7K w - - 0 1"
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	want := legalSet(pos)

	losing := 0
	for m := range want {
		if capturedType(pos, m) != board.NoPieceType && !SEEGE(pos, m, -50) {
			losing++
		}
	}
	if losing <= 64 {
		t.Fatalf("only %d losing captures, position does not cover the overflow", losing)
	}

	hist := new(histories)
	mp := newMainPicker(pos, hist, board.NoMove, [2]board.Move{}, sentinelConts(hist), 6)
	got := drain(t, pos, &mp)

	n := 0
	for _, m := range got {
		if pos.IsLegal(m) {
			n++
		}
	}
	if n != len(want) {
		t.Errorf("picker returned %d legal moves, want %d (%d losing captures)", n, len(want), losing)
	}
}
