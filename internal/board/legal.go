package board

// IsLegal reports whether a pseudo-legal move leaves the mover's king safe.
// It relies on the cached Blockers and Checkers, so it must only be called
// with moves produced by GenerateMoves or accepted by IsPseudoLegal.
func (p *Position) IsLegal(m Move) bool {
	us := p.SideToMove
	them := us.Other()
	from, to := m.From(), m.To()
	ksq := p.KingSquare[us]

	if m.IsEnPassant() {
		captured := to ^ 8
		occ := (p.AllOccupied ^ SquareBB(from) ^ SquareBB(captured)) | SquareBB(to)
		if RookAttacks(ksq, occ)&(p.Pieces[them][Rook]|p.Pieces[them][Queen]) != 0 {
			return false
		}
		if BishopAttacks(ksq, occ)&(p.Pieces[them][Bishop]|p.Pieces[them][Queen]) != 0 {
			return false
		}
		leaping := p.Pieces[them][Knight] | p.Pieces[them][Pawn]
		return p.Checkers&leaping&^SquareBB(captured) == 0
	}

	if from == ksq {
		if m.IsCastling() {
			return p.Checkers == 0
		}
		return p.AttackersByColor(to, them, p.AllOccupied^SquareBB(from)) == 0
	}

	if p.Checkers.MoreThanOne() {
		return false
	}
	if p.Checkers != 0 {
		checker := p.Checkers.LSB()
		if (Between(checker, ksq)|SquareBB(checker))&SquareBB(to) == 0 {
			return false
		}
	}

	return p.Blockers[us]&SquareBB(from) == 0 || Aligned(from, to, ksq)
}

// IsPseudoLegal reports whether an arbitrary move, typically read back from
// the transposition table or a killer slot, could have been generated in this
// position. Special moves fall back to generating the full move list.
func (p *Position) IsPseudoLegal(m Move) bool {
	if m == NoMove {
		return false
	}
	us := p.SideToMove
	from, to := m.From(), m.To()

	pc := p.PieceAt(from)
	if pc == NoPiece || pc.Color() != us {
		return false
	}

	if m.Flag() != FlagNormal {
		return p.GeneratePseudoLegalMoves().Contains(m)
	}
	if m>>12&3 != 0 {
		return false
	}
	if p.Occupied[us]&SquareBB(to) != 0 {
		return false
	}

	pt := pc.Type()
	if pt == Pawn {
		if SquareBB(to)&(Rank1|Rank8) != 0 {
			return false
		}
		if !p.pawnCanReach(from, to) {
			return false
		}
	} else if AttacksFrom(pt, from, p.AllOccupied)&SquareBB(to) == 0 {
		return false
	}

	if p.Checkers != 0 && pt != King {
		if p.Checkers.MoreThanOne() {
			return false
		}
		checker := p.Checkers.LSB()
		if (Between(checker, p.KingSquare[us])|SquareBB(checker))&SquareBB(to) == 0 {
			return false
		}
	}
	return true
}

// pawnCanReach validates a non-special pawn move: a capture, a single push or
// a double push from the starting rank.
func (p *Position) pawnCanReach(from, to Square) bool {
	us := p.SideToMove
	if PawnAttacks(from, us)&p.Occupied[us.Other()]&SquareBB(to) != 0 {
		return true
	}
	if p.AllOccupied&SquareBB(to) != 0 {
		return false
	}
	step := 8
	if us == Black {
		step = -8
	}
	if int(to) == int(from)+step {
		return true
	}
	return int(to) == int(from)+2*step &&
		from.RelativeRank(us) == 1 &&
		p.AllOccupied&SquareBB(Square(int(from)+step)) == 0
}
