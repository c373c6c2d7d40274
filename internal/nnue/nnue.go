// Package nnue implements the efficiently updatable neural network evaluation.
//
// The network is HalfKA-style: each perspective sees every piece (kings
// included) relative to its own king, which selects one of KingBuckets
// feature slices and is mirrored onto files a-d. The accumulator is updated
// lazily along the search stack and refreshed through a per-bucket cache.
package nnue

import (
	"errors"

	"github.com/hailam/nnsearch/internal/board"
)

// Network architecture constants
const (
	FeaturesPerBucket = 2 * 6 * 64 // relative colour, piece type, square
	KingBuckets       = 8
	InputSize         = FeaturesPerBucket * KingBuckets

	L1Size        = 1536 // accumulator width per perspective
	L2Size        = 16
	L3Size        = 32
	OutputBuckets = 8

	// Quantization constants
	FTClip          = 255 // accumulator clip before the pairwise product
	ActivationRange = 127 // 1.0 after any activation
	WeightScaleBits = 6   // hidden weights are scaled by 2^6
	OutputScale     = 400 // network unit to centipawns
)

// MaxPly bounds the accumulator arena. It must not be smaller than the
// search's own ply limit.
const MaxPly = 256

// ErrSizeMismatch is returned when a network stream does not have exactly
// ExpectedSize bytes.
var ErrSizeMismatch = errors.New("network size mismatch")

// OutputBucket selects the output layer set from the number of pieces on the
// board, kings included.
func OutputBucket(pieceCount int) int {
	b := (pieceCount - 2) / 4
	if b < 0 {
		return 0
	}
	if b >= OutputBuckets {
		return OutputBuckets - 1
	}
	return b
}

// Evaluator owns one worker's accumulator stack and bucket cache. The network
// it reads from is shared and never written.
type Evaluator struct {
	net   *Network
	stack [MaxPly + 1]accumulator
	ply   int
	cache bucketCache
}

// NewEvaluator creates an evaluator for net.
func NewEvaluator(net *Network) *Evaluator {
	e := &Evaluator{net: net}
	e.cache.reset(net)
	return e
}

// Refresh rebuilds both perspectives for pos at the root of the stack.
func (e *Evaluator) Refresh(pos *board.Position) {
	e.ply = 0
	acc := &e.stack[0]
	acc.kings = pos.KingSquare
	acc.delta = featureDelta{}
	for _, c := range [2]board.Color{board.White, board.Black} {
		acc.needsRefresh[c] = false
		e.cache.refresh(e.net, c, pos, &acc.values[c])
		acc.computed[c] = true
	}
}

// MakeMove records the feature update for m. It must be called before the
// move is made on pos and only for legal moves.
func (e *Evaluator) MakeMove(pos *board.Position, m board.Move) {
	parent := &e.stack[e.ply]
	e.ply++
	child := &e.stack[e.ply]
	child.computed = [2]bool{}
	child.needsRefresh = [2]bool{}
	child.kings = parent.kings
	child.delta = moveDelta(pos, m)

	us := pos.SideToMove
	if pos.PieceAt(m.From()).Type() == board.King {
		child.kings[us] = m.To()
		if refreshKey(us, m.To()) != refreshKey(us, m.From()) {
			child.needsRefresh[us] = true
		}
	}
}

// MakeNullMove pushes a ply whose features equal its parent's.
func (e *Evaluator) MakeNullMove() {
	parent := &e.stack[e.ply]
	e.ply++
	child := &e.stack[e.ply]
	child.kings = parent.kings
	child.delta = featureDelta{}
	child.needsRefresh = [2]bool{}
	child.computed = parent.computed
	for c := range child.computed {
		if child.computed[c] {
			child.values[c] = parent.values[c]
		}
	}
}

// UnmakeMove pops the ply pushed by MakeMove or MakeNullMove.
func (e *Evaluator) UnmakeMove() {
	if e.ply > 0 {
		e.ply--
	}
}

// Evaluate returns the network score of pos from the side to move's point of
// view. pos must be the position reached by the recorded moves.
func (e *Evaluator) Evaluate(pos *board.Position) int {
	e.update(board.White, pos)
	e.update(board.Black, pos)
	acc := &e.stack[e.ply]
	return e.net.forward(&acc.values, pos.SideToMove, OutputBucket(pos.PieceCount()))
}

// ResetCache empties the bucket cache, for example between games.
func (e *Evaluator) ResetCache() {
	e.cache.reset(e.net)
}
