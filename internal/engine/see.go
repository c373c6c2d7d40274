package engine

import "github.com/hailam/nnsearch/internal/board"

// seeValue is the piece value table of the exchange evaluator. The king is
// worth nothing: it only ever captures last.
var seeValue = [7]int{100, 300, 300, 500, 900, 0, 0}

// SEEGE reports whether the static exchange on m's destination gains at least
// threshold for the side to move. Castling, en passant and promotions count
// as an even exchange.
func SEEGE(pos *board.Position, m board.Move, threshold int) bool {
	if m.Flag() != board.FlagNormal {
		return threshold <= 0
	}

	from, to := m.From(), m.To()
	swap := seeValue[pos.PieceAt(to).Type()] - threshold
	if swap < 0 {
		return false
	}
	swap = seeValue[pos.PieceAt(from).Type()] - swap
	if swap <= 0 {
		return true
	}

	occupied := pos.AllOccupied ^ board.SquareBB(from) ^ board.SquareBB(to)
	stm := pos.SideToMove
	attackers := pos.AttackersTo(to, occupied)

	bishops := pos.Pieces[board.White][board.Bishop] | pos.Pieces[board.Black][board.Bishop] |
		pos.Pieces[board.White][board.Queen] | pos.Pieces[board.Black][board.Queen]
	rooks := pos.Pieces[board.White][board.Rook] | pos.Pieces[board.Black][board.Rook] |
		pos.Pieces[board.White][board.Queen] | pos.Pieces[board.Black][board.Queen]

	res := 1
	for {
		stm = stm.Other()
		attackers &= occupied

		stmAttackers := attackers & pos.Occupied[stm]
		if stmAttackers == 0 {
			break
		}

		// Pinned pieces may only recapture along the pin line while the
		// pinner is still on the board.
		if pos.Pinners[stm.Other()]&occupied != 0 {
			pinned := stmAttackers & pos.Blockers[stm]
			for pinned != 0 {
				sq := pinned.PopLSB()
				if !board.Aligned(sq, to, pos.KingSquare[stm]) {
					stmAttackers &^= board.SquareBB(sq)
				}
			}
			if stmAttackers == 0 {
				break
			}
		}

		res ^= 1

		var pt board.PieceType
		var bb board.Bitboard
		for pt = board.Pawn; pt < board.King; pt++ {
			if bb = stmAttackers & pos.Pieces[stm][pt]; bb != 0 {
				break
			}
		}
		if pt == board.King {
			// The king can take only when nothing defends the square.
			if attackers&^pos.Occupied[stm] != 0 {
				return res^1 != 0
			}
			return res != 0
		}

		swap = seeValue[pt] - swap
		if swap < res {
			break
		}
		occupied ^= board.SquareBB(bb.LSB())

		switch pt {
		case board.Pawn, board.Bishop:
			attackers |= board.BishopAttacks(to, occupied) & bishops
		case board.Rook:
			attackers |= board.RookAttacks(to, occupied) & rooks
		case board.Queen:
			attackers |= board.BishopAttacks(to, occupied)&bishops | board.RookAttacks(to, occupied)&rooks
		}
	}
	return res != 0
}
