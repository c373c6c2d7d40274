package nnue

import "github.com/hailam/nnsearch/internal/board"

// accumulator is one ply of the evaluator stack. A perspective is either
// computed, or reachable from the nearest computed ancestor by replaying each
// ply's delta, or blocked by a ply that needs a full refresh.
type accumulator struct {
	values       [2][L1Size]int16
	computed     [2]bool
	needsRefresh [2]bool
	delta        featureDelta // change from the parent ply
	kings        [2]board.Square
}

// update makes perspective persp of the current ply computed.
func (e *Evaluator) update(persp board.Color, pos *board.Position) {
	cur := &e.stack[e.ply]
	if cur.computed[persp] {
		return
	}

	i := e.ply
	for i > 0 && !e.stack[i].computed[persp] && !e.stack[i].needsRefresh[persp] {
		i--
	}
	if !e.stack[i].computed[persp] {
		// A refresh somewhere on the chain is done once, here.
		e.cache.refresh(e.net, persp, pos, &cur.values[persp])
		cur.computed[persp] = true
		return
	}

	for j := i + 1; j <= e.ply; j++ {
		e.net.applyDelta(persp, &e.stack[j-1].values[persp], &e.stack[j])
		e.stack[j].computed[persp] = true
	}
}

// applyDelta writes parent plus child's delta into child.
func (n *Network) applyDelta(persp board.Color, parent *[L1Size]int16, child *accumulator) {
	o := orient(persp, child.kings[persp])
	d := &child.delta
	out := &child.values[persp]
	*out = *parent

	for i := uint8(0); i < d.nRemoved; i++ {
		ps := d.removed[i]
		subRow(out, n.ftRow(o.index(persp, ps.piece, ps.sq)))
	}
	for i := uint8(0); i < d.nAdded; i++ {
		ps := d.added[i]
		addRow(out, n.ftRow(o.index(persp, ps.piece, ps.sq)))
	}
}

func addRow(acc *[L1Size]int16, row []int16) {
	row = row[:L1Size]
	for i := range acc {
		acc[i] += row[i]
	}
}

func subRow(acc *[L1Size]int16, row []int16) {
	row = row[:L1Size]
	for i := range acc {
		acc[i] -= row[i]
	}
}

// accumulate computes persp's accumulator for pos from the bias alone.
func (n *Network) accumulate(persp board.Color, pos *board.Position, out *[L1Size]int16) {
	*out = n.ftBias
	o := orient(persp, pos.KingSquare[persp])
	for c := board.White; c <= board.Black; c++ {
		for pt := board.Pawn; pt <= board.King; pt++ {
			pc := board.NewPiece(pt, c)
			bb := pos.Pieces[c][pt]
			for bb != 0 {
				addRow(out, n.ftRow(o.index(persp, pc, bb.PopLSB())))
			}
		}
	}
}
