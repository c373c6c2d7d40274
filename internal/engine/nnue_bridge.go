package engine

import (
	"github.com/hailam/nnsearch/internal/board"
)

// The evaluator keeps one accumulator per ply, so every board change in the
// search goes through these helpers to keep both stacks in step.

// makeMove plays m at ply. The evaluator records its feature update before the
// board changes.
func (w *Worker) makeMove(m board.Move, ply int) {
	w.keys = append(w.keys, w.pos.Hash)
	w.eval.MakeMove(w.pos, m)
	w.undo[ply] = w.pos.MakeMove(m)
}

func (w *Worker) unmakeMove(m board.Move, ply int) {
	w.pos.UnmakeMove(m, w.undo[ply])
	w.eval.UnmakeMove()
	w.keys = w.keys[:len(w.keys)-1]
}

// makeNullMove passes the turn. A zero key marks the null move in the key
// history so repetition detection never looks past it.
func (w *Worker) makeNullMove(ply int) {
	w.keys = append(w.keys, 0)
	w.eval.MakeNullMove()
	w.nullUndo[ply] = w.pos.MakeNullMove()
}

func (w *Worker) unmakeNullMove(ply int) {
	w.pos.UnmakeNullMove(w.nullUndo[ply])
	w.eval.UnmakeMove()
	w.keys = w.keys[:len(w.keys)-1]
}

// evaluate returns the network score of the current position, damped as the
// fifty-move counter grows and kept out of the mate range.
func (w *Worker) evaluate() int {
	v := w.eval.Evaluate(w.pos)
	v = v * (200 - w.pos.HalfMoveClock) / 200
	return max(-MateInMaxPly+1, min(MateInMaxPly-1, v))
}

// isRepetition reports whether the current position occurred before since
// the last irreversible move.
func (w *Worker) isRepetition() bool {
	n := len(w.keys)
	end := min(w.pos.HalfMoveClock, n)
	for i := 2; i <= end; i += 2 {
		k := w.keys[n-i]
		if k == 0 || w.keys[n-i+1] == 0 {
			return false
		}
		if i >= 4 && k == w.pos.Hash {
			return true
		}
	}
	return false
}

func (w *Worker) isDraw() bool {
	return w.pos.IsDraw() || w.isRepetition()
}
