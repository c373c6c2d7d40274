package nnue

import "github.com/hailam/nnsearch/internal/board"

const refreshKeys = KingBuckets * 2

// cacheEntry remembers the accumulator of the last board refreshed with one
// king bucket and mirror side.
type cacheEntry struct {
	values [L1Size]int16
	pieces [2][6]board.Bitboard
}

// bucketCache turns a full refresh into an update against the last board seen
// with the same king bucket, which usually differs by a few pieces.
type bucketCache struct {
	entries [2][refreshKeys]cacheEntry
}

// reset makes every entry describe an empty board.
func (bc *bucketCache) reset(net *Network) {
	for c := range bc.entries {
		for k := range bc.entries[c] {
			bc.entries[c][k].values = net.ftBias
			bc.entries[c][k].pieces = [2][6]board.Bitboard{}
		}
	}
}

// refresh writes persp's accumulator for pos into out.
func (bc *bucketCache) refresh(net *Network, persp board.Color, pos *board.Position, out *[L1Size]int16) {
	ksq := pos.KingSquare[persp]
	entry := &bc.entries[persp][refreshKey(persp, ksq)]
	o := orient(persp, ksq)

	for c := board.White; c <= board.Black; c++ {
		for pt := board.Pawn; pt <= board.King; pt++ {
			pc := board.NewPiece(pt, c)
			was, now := entry.pieces[c][pt], pos.Pieces[c][pt]
			removed, added := was&^now, now&^was
			for removed != 0 {
				subRow(&entry.values, net.ftRow(o.index(persp, pc, removed.PopLSB())))
			}
			for added != 0 {
				addRow(&entry.values, net.ftRow(o.index(persp, pc, added.PopLSB())))
			}
		}
	}
	entry.pieces = pos.Pieces
	*out = entry.values
}
