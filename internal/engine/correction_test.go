package engine

import (
	"testing"

	"github.com/hailam/nnsearch/internal/board"
)

// Workers embed CorrectionHistory by value, so the zero value must work.
func TestCorrectionHistoryZeroValue(t *testing.T) {
	var ch CorrectionHistory
	pos := board.NewPosition()

	if got := ch.Adjust(pos, 50); got != 50 {
		t.Fatalf("empty history adjusted 50 to %d", got)
	}

	ch.Update(pos, 150, 50, 15)
	if got := ch.Adjust(pos, 50); got != 56 {
		t.Errorf("after one update: %d, want 56", got)
	}

	for i := 0; i < 200; i++ {
		ch.Update(pos, 150, 50, 15)
	}
	if got := ch.Adjust(pos, 50); got != 50+correctionLimit/correctionGrain {
		t.Errorf("correction not clamped: %d", got)
	}

	other := mustFEN(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR b KQkq - 0 1")
	if got := ch.Adjust(other, 50); got != 50 {
		t.Errorf("black to move shares white's correction: %d", got)
	}

	ch.Update(pos, 150, 50, 0)
	ch.Clear()
	if got := ch.Adjust(pos, 50); got != 50 {
		t.Errorf("after Clear: %d", got)
	}
}
