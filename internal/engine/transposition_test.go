package engine

import (
	"errors"
	"testing"

	"github.com/hailam/nnsearch/internal/board"
)

func TestTTRoundTrip(t *testing.T) {
	tt, err := NewTranspositionTable(1)
	if err != nil {
		t.Fatalf("NewTranspositionTable: %v", err)
	}

	key := uint64(0x123456789abcdef0)
	if _, hit, _ := tt.Lookup(key); hit {
		t.Fatal("empty table reported a hit")
	}

	m := board.NewMove(board.E2, board.E4)
	_, _, w := tt.Lookup(key)
	w.Write(key, 57, true, BoundLower, 9, m, 12)

	d, hit, _ := tt.Lookup(key)
	if !hit {
		t.Fatal("stored entry not found")
	}
	if d.Move != m || d.Score != 57 || d.Eval != 12 || d.Depth != 9 || d.Bound != BoundLower || !d.PV {
		t.Errorf("got %+v", d)
	}

	// Same cluster and same 16-bit key, different verification bits.
	if _, hit, _ := tt.Lookup(key ^ 1<<20); hit {
		t.Error("key differing in verification bits reported a hit")
	}
	// Same cluster, different high bits.
	if _, hit, _ := tt.Lookup(key ^ 1<<60); hit {
		t.Error("key differing in high bits reported a hit")
	}
}

func TestTTEvalOnlyEntry(t *testing.T) {
	tt, _ := NewTranspositionTable(1)
	key := uint64(0xfeedface12345678)
	_, _, w := tt.Lookup(key)
	w.Write(key, noScore, false, BoundNone, DepthNone, board.NoMove, -35)

	d, hit, _ := tt.Lookup(key)
	if !hit {
		t.Fatal("eval-only entry not found")
	}
	if d.Eval != -35 || d.Score != noScore || d.Bound != BoundNone {
		t.Errorf("got %+v", d)
	}
}

func TestTTKeepsDeeperEntry(t *testing.T) {
	tt, _ := NewTranspositionTable(1)
	key := uint64(0x0102030405060708)
	m1 := board.NewMove(board.G1, board.F3)
	m2 := board.NewMove(board.B1, board.C3)

	_, _, w := tt.Lookup(key)
	w.Write(key, 10, false, BoundLower, 12, m1, 0)

	_, _, w = tt.Lookup(key)
	w.Write(key, 20, false, BoundUpper, 2, m2, 0)

	d, _, _ := tt.Lookup(key)
	if d.Depth != 12 || d.Score != 10 {
		t.Errorf("shallow write replaced deeper entry: %+v", d)
	}
	if d.Move != m2 {
		t.Errorf("move not refreshed: got %v want %v", d.Move, m2)
	}

	_, _, w = tt.Lookup(key)
	w.Write(key, 30, false, BoundExact, 2, m1, 0)
	if d, _, _ = tt.Lookup(key); d.Bound != BoundExact || d.Score != 30 {
		t.Errorf("exact write did not replace entry: %+v", d)
	}
}

func TestTTClear(t *testing.T) {
	tt, _ := NewTranspositionTable(2)
	for i := uint64(0); i < 1000; i++ {
		key := i*0x9E3779B97F4A7C15 + 1
		_, _, w := tt.Lookup(key)
		w.Write(key, 0, false, BoundExact, 5, board.NoMove, 0)
	}
	if tt.Hashfull() == 0 {
		t.Error("hashfull is zero after writes")
	}
	tt.Clear(4)
	if got := tt.Hashfull(); got != 0 {
		t.Errorf("hashfull after clear = %d", got)
	}
	if _, hit, _ := tt.Lookup(1); hit {
		t.Error("hit after clear")
	}
}

func TestTTResizeRejectsBadSize(t *testing.T) {
	tt, _ := NewTranspositionTable(1)
	for _, mb := range []int{0, -1, MaxHashMB + 1} {
		if err := tt.Resize(mb); !errors.Is(err, ErrInvalidHashSize) {
			t.Errorf("Resize(%d) = %v, want ErrInvalidHashSize", mb, err)
		}
	}
	if _, err := NewTranspositionTable(0); !errors.Is(err, ErrInvalidHashSize) {
		t.Errorf("NewTranspositionTable(0) = %v", err)
	}
}

func TestMateScoreAdjust(t *testing.T) {
	tests := []struct {
		score, ply, stored int
	}{
		{MateIn(5), 3, MateIn(2)},
		{MatedIn(7), 4, MatedIn(3)},
		{150, 10, 150},
		{-20, 10, -20},
		{noScore, 10, noScore},
	}
	for _, tc := range tests {
		got := AdjustScoreToTT(tc.score, tc.ply)
		if got != tc.stored {
			t.Errorf("AdjustScoreToTT(%d, %d) = %d, want %d", tc.score, tc.ply, got, tc.stored)
		}
		if back := AdjustScoreFromTT(got, tc.ply); back != tc.score {
			t.Errorf("round trip of %d at ply %d gave %d", tc.score, tc.ply, back)
		}
	}
}
