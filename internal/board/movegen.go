package board

// GenKind selects which category of pseudo-legal moves GenerateMoves emits.
type GenKind uint8

const (
	// GenCaptures emits captures, en passant and every promotion.
	GenCaptures GenKind = iota
	// GenQuiets emits non-capturing, non-promoting moves including castling.
	GenQuiets
	// GenEvasions emits the replies to a check. Only valid when in check.
	GenEvasions
	// GenQuietChecks emits quiet moves that give direct check.
	GenQuietChecks
	// GenAll emits GenCaptures and GenQuiets together. Only valid when not in check.
	GenAll
)

// castlingSpec describes one castling option.
type castlingSpec struct {
	right    CastlingRights
	color    Color
	kingFrom Square
	kingTo   Square
	rookFrom Square
	rookTo   Square
	empty    Bitboard // squares that must be vacant
	safe     [3]Square
}

var castlingSpecs = [4]castlingSpec{
	{WhiteKingSideCastle, White, E1, G1, H1, F1, SquareBB(F1) | SquareBB(G1), [3]Square{E1, F1, G1}},
	{WhiteQueenSideCastle, White, E1, C1, A1, D1, SquareBB(B1) | SquareBB(C1) | SquareBB(D1), [3]Square{E1, D1, C1}},
	{BlackKingSideCastle, Black, E8, G8, H8, F8, SquareBB(F8) | SquareBB(G8), [3]Square{E8, F8, G8}},
	{BlackQueenSideCastle, Black, E8, C8, A8, D8, SquareBB(B8) | SquareBB(C8) | SquareBB(D8), [3]Square{E8, D8, C8}},
}

// castlingRightsMask[sq] lists the rights lost when a piece leaves or lands on sq.
var castlingRightsMask [64]CastlingRights

func init() {
	castlingRightsMask[E1] = WhiteKingSideCastle | WhiteQueenSideCastle
	castlingRightsMask[H1] = WhiteKingSideCastle
	castlingRightsMask[A1] = WhiteQueenSideCastle
	castlingRightsMask[E8] = BlackKingSideCastle | BlackQueenSideCastle
	castlingRightsMask[H8] = BlackKingSideCastle
	castlingRightsMask[A8] = BlackQueenSideCastle
}

// castlingRookSquares returns the rook's origin and destination for a castling
// king move from -> to.
func castlingRookSquares(from, to Square) (Square, Square) {
	if to > from {
		return NewSquare(7, from.Rank()), NewSquare(5, from.Rank())
	}
	return NewSquare(0, from.Rank()), NewSquare(3, from.Rank())
}

// GenerateMoves appends pseudo-legal moves of the requested kind to ml.
func (p *Position) GenerateMoves(ml *MoveList, kind GenKind) {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]

	var target Bitboard
	switch kind {
	case GenCaptures:
		target = p.Occupied[them]
	case GenQuiets, GenQuietChecks:
		target = ^p.AllOccupied
	case GenAll:
		target = ^p.Occupied[us]
	case GenEvasions:
		if p.Checkers.MoreThanOne() {
			p.generateKingMoves(ml, ^p.Occupied[us])
			return
		}
		checker := p.Checkers.LSB()
		target = Between(checker, ksq) | SquareBB(checker)
	}

	p.generatePawnMoves(ml, kind, target)

	var checkSquares [King]Bitboard
	if kind == GenQuietChecks {
		eksq := p.KingSquare[them]
		checkSquares[Knight] = KnightAttacks(eksq)
		checkSquares[Bishop] = BishopAttacks(eksq, p.AllOccupied)
		checkSquares[Rook] = RookAttacks(eksq, p.AllOccupied)
		checkSquares[Queen] = checkSquares[Bishop] | checkSquares[Rook]
	}

	for pt := Knight; pt <= Queen; pt++ {
		pieces := p.Pieces[us][pt]
		for pieces != 0 {
			from := pieces.PopLSB()
			attacks := AttacksFrom(pt, from, p.AllOccupied) & target
			if kind == GenQuietChecks {
				attacks &= checkSquares[pt]
			}
			for attacks != 0 {
				ml.Add(NewMove(from, attacks.PopLSB()))
			}
		}
	}

	switch kind {
	case GenCaptures, GenQuiets, GenAll:
		p.generateKingMoves(ml, target)
	case GenEvasions:
		p.generateKingMoves(ml, ^p.Occupied[us])
	}

	if (kind == GenQuiets || kind == GenAll) && p.Checkers == 0 {
		p.generateCastlingMoves(ml)
	}
}

// generatePawnMoves emits the pawn moves of one category. All promotions belong to
// the capture category; quiet pushes and double pushes belong to the quiet one.
func (p *Position) generatePawnMoves(ml *MoveList, kind GenKind, target Bitboard) {
	us := p.SideToMove
	them := us.Other()
	pawns := p.Pieces[us][Pawn]
	empty := ^p.AllOccupied
	enemies := p.Occupied[them]

	var single, double, west, east, promoRank Bitboard
	var push int
	if us == White {
		single = pawns.North() & empty
		double = (single & Rank3).North() & empty
		west = pawns.NorthWest() & enemies
		east = pawns.NorthEast() & enemies
		promoRank = Rank8
		push = 8
	} else {
		single = pawns.South() & empty
		double = (single & Rank6).South() & empty
		west = pawns.SouthWest() & enemies
		east = pawns.SouthEast() & enemies
		promoRank = Rank1
		push = -8
	}

	quiets := kind == GenQuiets || kind == GenAll || kind == GenEvasions || kind == GenQuietChecks
	loud := kind == GenCaptures || kind == GenAll || kind == GenEvasions

	switch kind {
	case GenEvasions:
		single &= target
		double &= target
		west &= target
		east &= target
	case GenQuietChecks:
		checks := PawnAttacks(p.KingSquare[them], them)
		single &= checks
		double &= checks
	}

	if quiets {
		b := single &^ promoRank
		for b != 0 {
			to := b.PopLSB()
			ml.Add(NewMove(Square(int(to)-push), to))
		}
		for double != 0 {
			to := double.PopLSB()
			ml.Add(NewMove(Square(int(to)-2*push), to))
		}
	}

	if !loud {
		return
	}

	b := single & promoRank
	for b != 0 {
		to := b.PopLSB()
		addPromotions(ml, Square(int(to)-push), to)
	}
	for _, caps := range [2]struct {
		bb    Bitboard
		delta int
	}{{west, push - 1}, {east, push + 1}} {
		bb := caps.bb
		for bb != 0 {
			to := bb.PopLSB()
			from := Square(int(to) - caps.delta)
			if SquareBB(to)&promoRank != 0 {
				addPromotions(ml, from, to)
			} else {
				ml.Add(NewMove(from, to))
			}
		}
	}

	if p.EnPassant != NoSquare {
		// In check, en passant only helps when it removes the checker or
		// lands on the blocking square.
		captured := p.EnPassant ^ 8
		if kind == GenEvasions && (target&SquareBB(captured)) == 0 && (target&SquareBB(p.EnPassant)) == 0 {
			return
		}
		attackers := PawnAttacks(p.EnPassant, them) & pawns
		for attackers != 0 {
			ml.Add(NewEnPassant(attackers.PopLSB(), p.EnPassant))
		}
	}
}

// addPromotions adds all four promotion moves, queen first.
func addPromotions(ml *MoveList, from, to Square) {
	ml.Add(NewPromotion(from, to, Queen))
	ml.Add(NewPromotion(from, to, Rook))
	ml.Add(NewPromotion(from, to, Bishop))
	ml.Add(NewPromotion(from, to, Knight))
}

// generateKingMoves generates non-castling king moves onto target.
func (p *Position) generateKingMoves(ml *MoveList, target Bitboard) {
	kingBB := p.Pieces[p.SideToMove][King]
	if kingBB == 0 {
		return
	}
	from := kingBB.LSB()
	attacks := KingAttacks(from) & target
	for attacks != 0 {
		ml.Add(NewMove(from, attacks.PopLSB()))
	}
}

// generateCastlingMoves generates castling moves whose path is empty and safe.
func (p *Position) generateCastlingMoves(ml *MoveList) {
	for i := range castlingSpecs {
		cs := &castlingSpecs[i]
		if cs.color == p.SideToMove && p.canCastle(cs) {
			ml.Add(NewCastling(cs.kingFrom, cs.kingTo))
		}
	}
}

func (p *Position) canCastle(cs *castlingSpec) bool {
	us := cs.color
	if p.CastlingRights&cs.right == 0 ||
		p.AllOccupied&cs.empty != 0 ||
		p.Pieces[us][Rook]&SquareBB(cs.rookFrom) == 0 ||
		p.KingSquare[us] != cs.kingFrom {
		return false
	}
	for _, sq := range cs.safe {
		if p.IsSquareAttacked(sq, us.Other()) {
			return false
		}
	}
	return true
}

// GeneratePseudoLegalMoves generates every pseudo-legal move.
func (p *Position) GeneratePseudoLegalMoves() *MoveList {
	ml := NewMoveList()
	if p.Checkers != 0 {
		p.GenerateMoves(ml, GenEvasions)
	} else {
		p.GenerateMoves(ml, GenAll)
	}
	return ml
}

// GenerateLegalMoves generates all legal moves for the position.
func (p *Position) GenerateLegalMoves() *MoveList {
	ml := p.GeneratePseudoLegalMoves()
	n := 0
	for i := 0; i < ml.Len(); i++ {
		if m := ml.Get(i); p.IsLegal(m) {
			ml.Set(n, m)
			n++
		}
	}
	ml.count = n
	return ml
}

// GenerateCaptures generates all legal captures and promotions.
func (p *Position) GenerateCaptures() *MoveList {
	ml := NewMoveList()
	p.GenerateMoves(ml, GenCaptures)
	return p.filterLegal(ml)
}

// GenerateChecks generates legal quiet moves that give direct check.
func (p *Position) GenerateChecks() *MoveList {
	ml := NewMoveList()
	p.GenerateMoves(ml, GenQuietChecks)
	return p.filterLegal(ml)
}

func (p *Position) filterLegal(ml *MoveList) *MoveList {
	out := NewMoveList()
	for i := 0; i < ml.Len(); i++ {
		if m := ml.Get(i); p.IsLegal(m) {
			out.Add(m)
		}
	}
	return out
}

// HasLegalMoves returns true if the side to move has any legal moves.
func (p *Position) HasLegalMoves() bool {
	ml := p.GeneratePseudoLegalMoves()
	for i := 0; i < ml.Len(); i++ {
		if p.IsLegal(ml.Get(i)) {
			return true
		}
	}
	return false
}

// IsCheckmate returns true if the position is checkmate.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate returns true if the position is stalemate.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}

// IsDraw reports a draw by the fifty-move rule or insufficient material.
// Repetitions need the game history and are detected by the caller.
func (p *Position) IsDraw() bool {
	if p.HalfMoveClock >= 100 && (p.Checkers == 0 || p.HasLegalMoves()) {
		return true
	}
	return p.IsInsufficientMaterial()
}

// IsInsufficientMaterial returns true if neither side can checkmate.
func (p *Position) IsInsufficientMaterial() bool {
	if p.Pieces[White][Pawn]|p.Pieces[Black][Pawn] != 0 ||
		p.Pieces[White][Rook]|p.Pieces[Black][Rook] != 0 ||
		p.Pieces[White][Queen]|p.Pieces[Black][Queen] != 0 {
		return false
	}

	minors := (p.Pieces[White][Knight] | p.Pieces[White][Bishop] |
		p.Pieces[Black][Knight] | p.Pieces[Black][Bishop])

	// K vs K and K+minor vs K
	return !minors.MoreThanOne()
}
