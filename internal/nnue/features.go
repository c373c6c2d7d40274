package nnue

import "github.com/hailam/nnsearch/internal/board"

// kingBucketLayout maps a perspective-relative king square to its bucket.
// Only files a-d are reached after mirroring; the table is symmetric anyway.
var kingBucketLayout = [64]int{
	0, 1, 2, 3, 3, 2, 1, 0,
	4, 4, 5, 5, 5, 5, 4, 4,
	6, 6, 6, 6, 6, 6, 6, 6,
	6, 6, 6, 6, 6, 6, 6, 6,
	7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7,
}

// orientation is everything a perspective's king square contributes to a
// feature index.
type orientation struct {
	xor  board.Square // rank flip for black, file mirror for a king on e-h
	base int          // bucket offset into the input space
}

func orient(persp board.Color, ksq board.Square) orientation {
	var xor board.Square
	if persp == board.Black {
		xor = 56
	}
	if (ksq ^ xor).File() >= 4 {
		xor ^= 7
	}
	return orientation{xor: xor, base: kingBucketLayout[ksq^xor] * FeaturesPerBucket}
}

// index returns the input feature of pc on sq.
func (o orientation) index(persp board.Color, pc board.Piece, sq board.Square) int {
	rel := 0
	if pc.Color() != persp {
		rel = 1
	}
	return o.base + rel*384 + int(pc.Type())*64 + int(sq^o.xor)
}

// KingBucket returns the king bucket used by persp with its king on ksq.
func KingBucket(persp board.Color, ksq board.Square) int {
	return orient(persp, ksq).base / FeaturesPerBucket
}

// FeatureIndex returns the input feature of pc on sq seen by persp, whose
// king stands on ksq.
func FeatureIndex(persp board.Color, ksq board.Square, pc board.Piece, sq board.Square) int {
	return orient(persp, ksq).index(persp, pc, sq)
}

// refreshKey identifies the feature slice in use. A king move that changes it
// invalidates every feature of that perspective.
func refreshKey(persp board.Color, ksq board.Square) int {
	o := orient(persp, ksq)
	key := o.base / FeaturesPerBucket << 1
	if o.xor&7 != 0 {
		key |= 1
	}
	return key
}

type pieceSquare struct {
	piece board.Piece
	sq    board.Square
}

// featureDelta is the perspective-neutral change a move makes to the board:
// at most two pieces leave a square and at most two arrive.
type featureDelta struct {
	removed  [2]pieceSquare
	added    [2]pieceSquare
	nRemoved uint8
	nAdded   uint8
}

func (d *featureDelta) remove(pc board.Piece, sq board.Square) {
	d.removed[d.nRemoved] = pieceSquare{pc, sq}
	d.nRemoved++
}

func (d *featureDelta) add(pc board.Piece, sq board.Square) {
	d.added[d.nAdded] = pieceSquare{pc, sq}
	d.nAdded++
}

// moveDelta describes m on pos before it is made.
func moveDelta(pos *board.Position, m board.Move) featureDelta {
	var d featureDelta
	from, to := m.From(), m.To()
	pc := pos.PieceAt(from)
	us := pc.Color()

	if m.IsCastling() {
		rook := board.NewPiece(board.Rook, us)
		rookFrom, rookTo := to+1, to-1
		if to < from {
			rookFrom, rookTo = to-2, to+1
		}
		d.remove(pc, from)
		d.remove(rook, rookFrom)
		d.add(pc, to)
		d.add(rook, rookTo)
		return d
	}

	d.remove(pc, from)
	if m.IsEnPassant() {
		d.remove(board.NewPiece(board.Pawn, us.Other()), to^8)
	} else if captured := pos.PieceAt(to); captured != board.NoPiece {
		d.remove(captured, to)
	}
	if m.IsPromotion() {
		d.add(board.NewPiece(m.Promotion(), us), to)
	} else {
		d.add(pc, to)
	}
	return d
}
