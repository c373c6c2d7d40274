package board

import (
	"testing"

	"github.com/notnil/chess"
)

var testFENs = []string{
	StartFEN,
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
	"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	"r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10",
	"8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1",
	"4k3/8/8/8/8/8/8/4K2r w - - 0 1",
	"3k4/8/8/8/8/8/5b2/r3K2R w K - 0 1",
}

func moveSet(ml *MoveList) map[Move]bool {
	set := make(map[Move]bool, ml.Len())
	for i := 0; i < ml.Len(); i++ {
		set[ml.Get(i)] = true
	}
	return set
}

func TestGenKindsPartitionMoves(t *testing.T) {
	for _, fen := range testFENs {
		pos := mustFEN(t, fen)
		if pos.InCheck() {
			evasions := NewMoveList()
			pos.GenerateMoves(evasions, GenEvasions)
			legal := 0
			for i := 0; i < evasions.Len(); i++ {
				if pos.IsLegal(evasions.Get(i)) {
					legal++
				}
			}
			if legal != pos.GenerateLegalMoves().Len() {
				t.Errorf("%s: %d legal evasions, want %d", fen, legal, pos.GenerateLegalMoves().Len())
			}
			continue
		}

		captures, quiets, all := NewMoveList(), NewMoveList(), NewMoveList()
		pos.GenerateMoves(captures, GenCaptures)
		pos.GenerateMoves(quiets, GenQuiets)
		pos.GenerateMoves(all, GenAll)

		capSet, quietSet, allSet := moveSet(captures), moveSet(quiets), moveSet(all)
		if len(capSet)+len(quietSet) != len(allSet) {
			t.Errorf("%s: captures %d + quiets %d != all %d", fen, len(capSet), len(quietSet), len(allSet))
		}
		for m := range capSet {
			if quietSet[m] {
				t.Errorf("%s: %v generated as capture and quiet", fen, m)
			}
			if !allSet[m] {
				t.Errorf("%s: capture %v missing from GenAll", fen, m)
			}
			if !m.IsCapture(pos) && !m.IsPromotion() {
				t.Errorf("%s: %v is not loud", fen, m)
			}
		}
		for m := range quietSet {
			if !allSet[m] {
				t.Errorf("%s: quiet %v missing from GenAll", fen, m)
			}
		}
	}
}

func TestQuietChecksGiveCheck(t *testing.T) {
	for _, fen := range testFENs {
		pos := mustFEN(t, fen)
		if pos.InCheck() {
			continue
		}
		checks := NewMoveList()
		pos.GenerateMoves(checks, GenQuietChecks)
		for i := 0; i < checks.Len(); i++ {
			m := checks.Get(i)
			if !pos.IsLegal(m) {
				continue
			}
			if m.IsCapture(pos) || m.IsPromotion() {
				t.Errorf("%s: quiet check %v is loud", fen, m)
			}
			undo := pos.MakeMove(m)
			if !pos.InCheck() {
				t.Errorf("%s: %v does not give check", fen, m)
			}
			pos.UnmakeMove(m, undo)
		}
	}
}

func TestIsPseudoLegalMatchesGeneration(t *testing.T) {
	for _, fen := range testFENs {
		pos := mustFEN(t, fen)
		generated := moveSet(pos.GeneratePseudoLegalMoves())
		for raw := 0; raw < 1<<16; raw++ {
			m := Move(raw)
			if got := pos.IsPseudoLegal(m); got != generated[m] {
				t.Fatalf("%s: IsPseudoLegal(%v flag=%x) = %v, generated = %v", fen, m, m.Flag(), got, generated[m])
			}
		}
	}
}

func TestHashAfterMatchesMakeMove(t *testing.T) {
	for _, fen := range testFENs {
		pos := mustFEN(t, fen)
		moves := pos.GenerateLegalMoves()
		for i := 0; i < moves.Len(); i++ {
			m := moves.Get(i)
			predicted := pos.HashAfter(m)
			undo := pos.MakeMove(m)
			if !undo.Valid {
				t.Fatalf("%s: legal move %v rejected by MakeMove", fen, m)
			}
			if pos.Hash != predicted {
				t.Errorf("%s: HashAfter(%v) = %x, MakeMove gives %x", fen, m, predicted, pos.Hash)
			}
			if pos.Hash != pos.ComputeHash() {
				t.Errorf("%s: incremental hash after %v differs from ComputeHash", fen, m)
			}
			if pos.PawnKey != pos.ComputePawnKey() {
				t.Errorf("%s: incremental pawn key after %v differs from ComputePawnKey", fen, m)
			}
			pos.UnmakeMove(m, undo)
		}
	}
}

func TestNullMoveRoundTrip(t *testing.T) {
	pos := mustFEN(t, testFENs[1])
	before := *pos
	undo := pos.MakeNullMove()
	if pos.SideToMove == before.SideToMove || pos.Hash == before.Hash {
		t.Fatalf("null move did not pass the turn")
	}
	if pos.Hash != pos.ComputeHash() {
		t.Errorf("null move hash %x differs from ComputeHash %x", pos.Hash, pos.ComputeHash())
	}
	pos.UnmakeNullMove(undo)
	if *pos != before {
		t.Errorf("position differs after null move round trip")
	}
}

// TestLegalMovesMatchReference compares legal move counts with an independent
// move generator on each test position and on every child position.
func TestLegalMovesMatchReference(t *testing.T) {
	check := func(pos *Position) {
		fen := pos.ToFEN()
		opt, err := chess.FEN(fen)
		if err != nil {
			t.Fatalf("reference rejected FEN %q: %v", fen, err)
		}
		want := len(chess.NewGame(opt).ValidMoves())
		if got := pos.GenerateLegalMoves().Len(); got != want {
			t.Errorf("%s: %d legal moves, reference has %d", fen, got, want)
		}
	}

	for _, fen := range testFENs {
		pos := mustFEN(t, fen)
		check(pos)
		moves := pos.GenerateLegalMoves()
		for i := 0; i < moves.Len(); i++ {
			m := moves.Get(i)
			undo := pos.MakeMove(m)
			check(pos)
			pos.UnmakeMove(m, undo)
		}
	}
}

func TestMovesToSAN(t *testing.T) {
	pos := NewPosition()
	var line []Move
	p := pos.Copy()
	for _, uci := range []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5", "a7a6", "e1g1"} {
		m, err := ParseMove(uci, p)
		if err != nil {
			t.Fatalf("ParseMove(%s): %v", uci, err)
		}
		line = append(line, m)
		p.MakeMove(m)
	}

	want := []string{"e4", "e5", "Nf3", "Nc6", "Bb5", "a6", "O-O"}
	got := MovesToSAN(pos, line)
	if len(got) != len(want) {
		t.Fatalf("MovesToSAN returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("move %d: got %s, want %s", i, got[i], want[i])
		}
	}
}
