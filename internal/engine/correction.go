package engine

import (
	"github.com/hailam/nnsearch/internal/board"
)

// CorrectionHistorySize is the number of entries per side (2^14).
const CorrectionHistorySize = 16384
const CorrectionHistoryMask = CorrectionHistorySize - 1

const (
	correctionGrain = 256 // stored corrections are in 1/256 centipawn
	correctionLimit = 32 * correctionGrain
)

// CorrectionHistory adjusts static evaluation based on search results.
// When the search finds the static eval was wrong for a pawn structure, the
// error is recorded and applied to later positions with the same pawns.
type CorrectionHistory struct {
	pawn [2][CorrectionHistorySize]int16
}

func (ch *CorrectionHistory) entry(pos *board.Position) *int16 {
	return &ch.pawn[pos.SideToMove][pos.PawnKey&CorrectionHistoryMask]
}

// Adjust returns eval corrected for pos, kept clear of the mate range.
func (ch *CorrectionHistory) Adjust(pos *board.Position, eval int) int {
	v := eval + int(*ch.entry(pos))/correctionGrain
	return max(-MateInMaxPly+1, min(MateInMaxPly-1, v))
}

// Update moves the correction for pos toward the difference between the
// search result and the static evaluation, weighting deeper searches more.
func (ch *CorrectionHistory) Update(pos *board.Position, searchScore, staticEval, depth int) {
	if depth < 1 {
		return
	}
	diff := (searchScore - staticEval) * correctionGrain
	weight := min(depth+1, 16)

	e := ch.entry(pos)
	v := (int(*e)*(256-weight) + diff*weight) / 256
	*e = int16(max(-correctionLimit, min(correctionLimit, v)))
}

// Clear resets all correction values.
func (ch *CorrectionHistory) Clear() {
	ch.pawn = [2][CorrectionHistorySize]int16{}
}
