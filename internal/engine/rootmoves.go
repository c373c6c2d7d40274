package engine

import (
	"cmp"
	"slices"

	"github.com/hailam/nnsearch/internal/board"
)

// RootMove is one legal move of the root position and what the search
// learned about it.
type RootMove struct {
	Move          board.Move
	Score         int
	PreviousScore int
	AverageScore  int
	SelDepth      int
	Nodes         uint64 // nodes spent below this move in the current search
	PV            []board.Move
}

type rootMoves []RootMove

func newRootMoves(pos *board.Position) rootMoves {
	legal := pos.GenerateLegalMoves()
	rms := make(rootMoves, 0, legal.Len())
	for i := 0; i < legal.Len(); i++ {
		m := legal.Get(i)
		rms = append(rms, RootMove{
			Move:          m,
			Score:         -Infinity,
			PreviousScore: -Infinity,
			AverageScore:  -Infinity,
			PV:            []board.Move{m},
		})
	}
	return rms
}

func (rms rootMoves) clone() rootMoves {
	out := make(rootMoves, len(rms))
	for i, rm := range rms {
		out[i] = rm
		out[i].PV = slices.Clone(rm.PV)
	}
	return out
}

func (rms rootMoves) find(m board.Move) *RootMove {
	for i := range rms {
		if rms[i].Move == m {
			return &rms[i]
		}
	}
	return nil
}

// sort orders moves best first. Moves that were not searched to completion
// in this iteration keep their relative order.
func (rms rootMoves) sort() {
	slices.SortStableFunc(rms, func(a, b RootMove) int {
		if a.Score != b.Score {
			return cmp.Compare(b.Score, a.Score)
		}
		return cmp.Compare(b.PreviousScore, a.PreviousScore)
	})
}

func (rms rootMoves) totalNodes() uint64 {
	var n uint64
	for i := range rms {
		n += rms[i].Nodes
	}
	return n
}
