package board

// MakeMove applies a move to the position and returns undo information.
// The returned UndoInfo has Valid == false when there is no piece of the side
// to move on the origin square (the position is left untouched) or when the
// move left the mover's king attacked (the move is applied and must still be
// unmade).
func (p *Position) MakeMove(m Move) UndoInfo {
	undo := UndoInfo{
		CapturedPiece:  NoPiece,
		CastlingRights: p.CastlingRights,
		EnPassant:      p.EnPassant,
		HalfMoveClock:  p.HalfMoveClock,
		Hash:           p.Hash,
		PawnKey:        p.PawnKey,
		Checkers:       p.Checkers,
		Blockers:       p.Blockers,
		Pinners:        p.Pinners,
		KingSquare:     p.KingSquare,
		Pieces:         p.Pieces,
		Occupied:       p.Occupied,
		AllOccupied:    p.AllOccupied,
	}

	us := p.SideToMove
	them := us.Other()
	from, to := m.From(), m.To()

	piece := p.PieceAt(from)
	if piece == NoPiece || piece.Color() != us {
		return undo
	}
	undo.MovedPiece = piece
	undo.Valid = true
	pt := piece.Type()

	p.Hash ^= zobristSideToMove ^ zobristCastling[p.CastlingRights]
	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
		p.EnPassant = NoSquare
	}

	if !m.IsCastling() {
		capSq := to
		if m.IsEnPassant() {
			capSq = to ^ 8
		}
		if captured := p.removePiece(capSq); captured != NoPiece {
			undo.CapturedPiece = captured
			p.Hash ^= zobristPiece[them][captured.Type()][capSq]
			if captured.Type() == Pawn {
				p.PawnKey ^= zobristPiece[them][Pawn][capSq]
			}
		}
	}

	p.movePiece(from, to)
	p.Hash ^= zobristPiece[us][pt][from] ^ zobristPiece[us][pt][to]
	if pt == Pawn {
		p.PawnKey ^= zobristPiece[us][Pawn][from] ^ zobristPiece[us][Pawn][to]
	}

	switch {
	case m.IsPromotion():
		promo := m.Promotion()
		p.Pieces[us][Pawn] &^= SquareBB(to)
		p.Pieces[us][promo] |= SquareBB(to)
		p.Hash ^= zobristPiece[us][Pawn][to] ^ zobristPiece[us][promo][to]
		p.PawnKey ^= zobristPiece[us][Pawn][to]
	case m.IsCastling():
		rookFrom, rookTo := castlingRookSquares(from, to)
		p.movePiece(rookFrom, rookTo)
		p.Hash ^= zobristPiece[us][Rook][rookFrom] ^ zobristPiece[us][Rook][rookTo]
	}

	p.CastlingRights &^= castlingRightsMask[from] | castlingRightsMask[to]
	p.Hash ^= zobristCastling[p.CastlingRights]

	if pt == Pawn && (int(to)-int(from) == 16 || int(from)-int(to) == 16) {
		p.EnPassant = Square((int(from) + int(to)) / 2)
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
	}

	if pt == Pawn || undo.CapturedPiece != NoPiece {
		p.HalfMoveClock = 0
	} else {
		p.HalfMoveClock++
	}
	if us == Black {
		p.FullMoveNumber++
	}

	p.SideToMove = them
	p.UpdateCheckInfo()

	if p.IsSquareAttacked(p.KingSquare[us], them) {
		undo.Valid = false
	}
	return undo
}

// UnmakeMove restores the position saved in undo. Moves rejected before being
// applied (no piece on the origin square) must not be unmade.
func (p *Position) UnmakeMove(m Move, undo UndoInfo) {
	us := p.SideToMove.Other()

	p.CastlingRights = undo.CastlingRights
	p.EnPassant = undo.EnPassant
	p.HalfMoveClock = undo.HalfMoveClock
	p.Hash = undo.Hash
	p.PawnKey = undo.PawnKey
	p.Checkers = undo.Checkers
	p.Blockers = undo.Blockers
	p.Pinners = undo.Pinners
	p.KingSquare = undo.KingSquare
	p.Pieces = undo.Pieces
	p.Occupied = undo.Occupied
	p.AllOccupied = undo.AllOccupied
	p.SideToMove = us

	if us == Black {
		p.FullMoveNumber--
	}
}

// HashAfter returns the Zobrist key the position would have after m, without
// making the move.
func (p *Position) HashAfter(m Move) uint64 {
	us := p.SideToMove
	them := us.Other()
	from, to := m.From(), m.To()
	pt := p.PieceAt(from).Type()
	if pt == NoPieceType {
		return p.Hash
	}

	h := p.Hash ^ zobristSideToMove ^ zobristCastling[p.CastlingRights]
	if p.EnPassant != NoSquare {
		h ^= zobristEnPassant[p.EnPassant.File()]
	}

	if m.IsEnPassant() {
		h ^= zobristPiece[them][Pawn][to^8]
	} else if captured := p.PieceAt(to); captured != NoPiece && !m.IsCastling() {
		h ^= zobristPiece[them][captured.Type()][to]
	}

	h ^= zobristPiece[us][pt][from]
	if m.IsPromotion() {
		h ^= zobristPiece[us][m.Promotion()][to]
	} else {
		h ^= zobristPiece[us][pt][to]
	}
	if m.IsCastling() {
		rookFrom, rookTo := castlingRookSquares(from, to)
		h ^= zobristPiece[us][Rook][rookFrom] ^ zobristPiece[us][Rook][rookTo]
	}

	h ^= zobristCastling[p.CastlingRights&^(castlingRightsMask[from]|castlingRightsMask[to])]
	if pt == Pawn && (int(to)-int(from) == 16 || int(from)-int(to) == 16) {
		h ^= zobristEnPassant[to.File()]
	}
	return h
}
