package nnue

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/hailam/nnsearch/internal/board"
)

var (
	testNetOnce sync.Once
	testNet     *Network
)

func randomNet() *Network {
	testNetOnce.Do(func() { testNet = NewRandomNetwork(12345) })
	return testNet
}

var evalFENs = []string{
	board.StartFEN,
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
	"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
}

func mustFEN(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return pos
}

// checkAgainstScratch compares both perspectives of the current ply with
// accumulators computed from nothing.
func checkAgainstScratch(t *testing.T, e *Evaluator, pos *board.Position, line []board.Move) {
	t.Helper()
	got := e.Evaluate(pos)
	acc := &e.stack[e.ply]
	var want [2][L1Size]int16
	for _, c := range [2]board.Color{board.White, board.Black} {
		e.net.accumulate(c, pos, &want[c])
		if acc.values[c] != want[c] {
			t.Fatalf("%s after %v: %v accumulator differs from scratch", pos.ToFEN(), line, c)
		}
	}
	if w := e.net.forward(&want, pos.SideToMove, OutputBucket(pos.PieceCount())); got != w {
		t.Fatalf("%s after %v: incremental eval %d, scratch eval %d", pos.ToFEN(), line, got, w)
	}
}

func walk(t *testing.T, e *Evaluator, pos *board.Position, depth int, line []board.Move) {
	if depth == 0 {
		return
	}
	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		// Sample the tree to keep the test fast but still reach castling,
		// en passant, promotions and king bucket changes.
		if depth > 1 && i%3 != 0 {
			continue
		}
		m := moves.Get(i)
		e.MakeMove(pos, m)
		undo := pos.MakeMove(m)
		line = append(line, m)

		if i%2 == 0 {
			checkAgainstScratch(t, e, pos, line)
		}
		walk(t, e, pos, depth-1, line)

		line = line[:len(line)-1]
		pos.UnmakeMove(m, undo)
		e.UnmakeMove()
	}
	checkAgainstScratch(t, e, pos, line)
}

func TestIncrementalMatchesRefresh(t *testing.T) {
	depth := 3
	if testing.Short() {
		depth = 2
	}
	net := randomNet()
	for _, fen := range evalFENs {
		pos := mustFEN(t, fen)
		e := NewEvaluator(net)
		e.Refresh(pos)
		walk(t, e, pos, depth, nil)
	}
}

func TestNullMoveKeepsAccumulator(t *testing.T) {
	net := randomNet()
	pos := mustFEN(t, evalFENs[1])
	e := NewEvaluator(net)
	e.Refresh(pos)
	before := e.Evaluate(pos)

	undo := pos.MakeNullMove()
	e.MakeNullMove()
	if e.stack[e.ply].values != e.stack[e.ply-1].values {
		t.Fatalf("null move child does not copy the parent accumulator")
	}
	checkAgainstScratch(t, e, pos, nil)

	moves := pos.GenerateLegalMoves()
	m := moves.Get(0)
	e.MakeMove(pos, m)
	mu := pos.MakeMove(m)
	checkAgainstScratch(t, e, pos, []board.Move{m})
	pos.UnmakeMove(m, mu)
	e.UnmakeMove()

	pos.UnmakeNullMove(undo)
	e.UnmakeMove()
	if got := e.Evaluate(pos); got != before {
		t.Errorf("eval after null move round trip = %d, want %d", got, before)
	}
}

func TestKingBucketChangeRefreshes(t *testing.T) {
	net := randomNet()
	// Kd4 -> e4 crosses the mirror line; Kd4 -> d5 stays in bucket 6 -> 7.
	pos := mustFEN(t, "4k3/8/8/8/3K4/8/8/8 w - - 0 1")
	e := NewEvaluator(net)
	e.Refresh(pos)

	for _, uci := range []string{"d4e4", "d4d5", "d4c4"} {
		m, err := board.ParseMove(uci, pos)
		if err != nil {
			t.Fatalf("ParseMove(%s): %v", uci, err)
		}
		e.MakeMove(pos, m)
		undo := pos.MakeMove(m)
		child := &e.stack[e.ply]
		wantRefresh := refreshKey(board.White, m.From()) != refreshKey(board.White, m.To())
		if child.needsRefresh[board.White] != wantRefresh {
			t.Errorf("%s: needsRefresh = %v, want %v", uci, child.needsRefresh[board.White], wantRefresh)
		}
		if child.needsRefresh[board.Black] {
			t.Errorf("%s: opponent perspective flagged for refresh", uci)
		}
		checkAgainstScratch(t, e, pos, []board.Move{m})
		pos.UnmakeMove(m, undo)
		e.UnmakeMove()
	}
}

func TestRefreshIdempotent(t *testing.T) {
	net := randomNet()
	pos := mustFEN(t, evalFENs[3])
	e := NewEvaluator(net)

	e.Refresh(pos)
	first := e.stack[0].values
	e.Refresh(pos)
	if e.stack[0].values != first {
		t.Fatalf("second refresh changed the accumulator")
	}

	e.ResetCache()
	e.Refresh(pos)
	if e.stack[0].values != first {
		t.Fatalf("refresh from an empty cache differs from a cached refresh")
	}
}

func TestFeatureSymmetry(t *testing.T) {
	// A position and its colour-flipped twin produce the same features for
	// the matching perspectives, so the side to move sees the same eval.
	net := randomNet()
	pos := mustFEN(t, "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3")
	flipped := mustFEN(t, "rnbqkb1r/pppp1ppp/5n2/4p3/4P3/2N5/PPPP1PPP/R1BQKBNR b KQkq - 2 3")

	e1, e2 := NewEvaluator(net), NewEvaluator(net)
	e1.Refresh(pos)
	e2.Refresh(flipped)
	if a, b := e1.Evaluate(pos), e2.Evaluate(flipped); a != b {
		t.Errorf("colour-flipped eval %d != %d", b, a)
	}
}

func TestFeatureIndexRange(t *testing.T) {
	seen := make(map[int]bool)
	for _, persp := range [2]board.Color{board.White, board.Black} {
		for ksq := board.A1; ksq <= board.H8; ksq++ {
			if b := KingBucket(persp, ksq); b < 0 || b >= KingBuckets {
				t.Fatalf("KingBucket(%v, %v) = %d", persp, ksq, b)
			}
			for pc := board.WhitePawn; pc < board.NoPiece; pc++ {
				for sq := board.A1; sq <= board.H8; sq++ {
					idx := FeatureIndex(persp, ksq, pc, sq)
					if idx < 0 || idx >= InputSize {
						t.Fatalf("FeatureIndex out of range: %d", idx)
					}
					seen[idx] = true
				}
			}
		}
	}
	if len(seen) != InputSize {
		t.Errorf("%d of %d features reachable", len(seen), InputSize)
	}
}

func TestOutputBucket(t *testing.T) {
	cases := []struct{ pieces, want int }{{2, 0}, {5, 0}, {6, 1}, {17, 3}, {32, 7}, {40, 7}}
	for _, tc := range cases {
		if got := OutputBucket(tc.pieces); got != tc.want {
			t.Errorf("OutputBucket(%d) = %d, want %d", tc.pieces, got, tc.want)
		}
	}
}

func TestLoadRejectsWrongSize(t *testing.T) {
	var buf bytes.Buffer
	if err := randomNet().Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data := buf.Bytes()
	if len(data) != ExpectedSize() {
		t.Fatalf("Save wrote %d bytes, ExpectedSize is %d", len(data), ExpectedSize())
	}

	for _, tc := range []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated", data[:len(data)-1]},
		{"trailing", append(append([]byte{}, data...), 0)},
	} {
		if _, err := Load(bytes.NewReader(tc.data)); !errors.Is(err, ErrSizeMismatch) {
			t.Errorf("%s: Load error = %v, want ErrSizeMismatch", tc.name, err)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	net := randomNet()
	var buf bytes.Buffer
	if err := net.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ftBias != net.ftBias || loaded.out != net.out {
		t.Fatalf("loaded weights differ")
	}

	for _, fen := range evalFENs {
		pos := mustFEN(t, fen)
		a, b := NewEvaluator(net), NewEvaluator(loaded)
		a.Refresh(pos)
		b.Refresh(pos)
		if x, y := a.Evaluate(pos), b.Evaluate(pos); x != y {
			t.Errorf("%s: eval %d after reload, want %d", fen, y, x)
		}
	}
}

func TestSparseLayerMatchesDense(t *testing.T) {
	net := randomNet()
	l := &net.out[3]
	var in [L1Size]uint8
	for i := range in {
		if i%7 == 0 || i%11 == 0 {
			in[i] = uint8(i % 128)
		}
	}
	var got [L2Size]int32
	l.propagateL1(&in, &got)

	for o := 0; o < L2Size; o++ {
		want := l.l1Bias[o]
		for i := 0; i < L1Size; i++ {
			want += int32(l.l1Weights[l1WeightIndex(o*L1Size+i)]) * int32(in[i])
		}
		if got[o] != want {
			t.Errorf("output %d: sparse %d, dense %d", o, got[o], want)
		}
	}
}

func TestMaterialNetwork(t *testing.T) {
	net := NewMaterialNetwork()
	tests := []struct {
		fen  string
		want int
	}{
		{board.StartFEN, 0},
		{"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR b KQkq - 0 1", 0},
		{"4k3/8/8/8/8/8/8/3QK3 w - - 0 1", 859},
		{"4k3/8/8/8/8/8/8/3QK3 b - - 0 1", -859},
		{"4k3/8/8/8/8/8/4P3/4K3 w - - 0 1", 66},
		{"4k3/8/8/8/8/8/4P3/4K3 b - - 0 1", -66},
	}
	for _, tt := range tests {
		pos := mustFEN(t, tt.fen)
		e := NewEvaluator(net)
		e.Refresh(pos)
		if got := e.Evaluate(pos); got != tt.want {
			t.Errorf("%s: eval %d, want %d", tt.fen, got, tt.want)
		}
	}

	// Incremental updates still agree with a refresh.
	e := NewEvaluator(net)
	pos := mustFEN(t, evalFENs[1])
	e.Refresh(pos)
	walk(t, e, pos, 2, nil)
}
