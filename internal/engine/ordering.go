package engine

import (
	"github.com/hailam/nnsearch/internal/board"
)

// History limits. Every table is updated with the gravity formula
// h += b - h*|b|/limit, which keeps entries inside (-limit, limit).
const (
	mainHistoryLimit         = 7183
	captureHistoryLimit      = 10692
	continuationHistoryLimit = 16384
)

// butterflyHistory scores quiet moves by side, origin and destination.
type butterflyHistory [2][64][64]int16

// pieceToHistory scores a move by moved piece and destination.
type pieceToHistory [12][64]int16

// captureHistory scores captures by moving piece, destination and victim.
type captureHistory [12][64][6]int16

// continuationHistory holds one pieceToHistory per previous move. The row
// for board.NoPiece is shared by null moves and plies without a move.
type continuationHistory [13][64]pieceToHistory

func gravity(entry *int16, bonus, limit int) {
	b := max(-limit, min(limit, bonus))
	*entry += int16(b - int(*entry)*abs(b)/limit)
}

// histories groups a worker's move ordering statistics.
type histories struct {
	main         butterflyHistory
	capture      captureHistory
	continuation continuationHistory
}

func (h *histories) clear() {
	h.main = butterflyHistory{}
	h.capture = captureHistory{}
	for i := range h.continuation {
		for j := range h.continuation[i] {
			h.continuation[i][j] = pieceToHistory{}
		}
	}
}

// sentinel is the continuation table used for plies without a real move.
func (h *histories) sentinel() *pieceToHistory {
	return &h.continuation[board.NoPiece][0]
}

// quietScore is the ordering score of a quiet move.
func (h *histories) quietScore(us board.Color, pc board.Piece, m board.Move, cont *[4]*pieceToHistory) int {
	to := m.To()
	return 2*int(h.main[us][m.From()][to]) +
		2*int(cont[0][pc][to]) +
		int(cont[1][pc][to]) +
		int(cont[2][pc][to]) +
		int(cont[3][pc][to])
}

// captureScore orders captures by victim value first, then capture history.
func (h *histories) captureScore(pos *board.Position, m board.Move) int {
	pc := pos.PieceAt(m.From())
	victim := capturedType(pos, m)
	score := 0
	if victim != board.NoPieceType {
		score = 7*seeValue[victim] + int(h.capture[pc][m.To()][victim])
	}
	if m.IsPromotion() {
		score += seeValue[m.Promotion()]
	}
	return score
}

// capturedType returns the type of the piece m captures, or NoPieceType.
func capturedType(pos *board.Position, m board.Move) board.PieceType {
	if m.IsEnPassant() {
		return board.Pawn
	}
	if m.IsCastling() {
		return board.NoPieceType
	}
	return pos.PieceAt(m.To()).Type()
}

// isQuiet reports whether m neither captures nor promotes.
func isQuiet(pos *board.Position, m board.Move) bool {
	return !m.IsPromotion() && capturedType(pos, m) == board.NoPieceType
}

// updateQuietStats rewards the quiet move that caused a cutoff.
func (w *Worker) updateQuietStats(ply int, m board.Move, pc board.Piece, bonus int) {
	ss := w.ss(ply)
	if ss.killers[0] != m {
		ss.killers[1] = ss.killers[0]
		ss.killers[0] = m
	}
	w.hist.updateQuietHistories(w.pos.SideToMove, pc, m, bonus)
	w.updateContinuation(ply, pc, m.To(), bonus)
}

func (h *histories) updateQuietHistories(us board.Color, pc board.Piece, m board.Move, bonus int) {
	gravity(&h.main[us][m.From()][m.To()], bonus, mainHistoryLimit)
}

// updateContinuation updates the continuation tables of the previous moves
// leading to ply.
func (w *Worker) updateContinuation(ply int, pc board.Piece, to board.Square, bonus int) {
	for _, back := range [...]int{1, 2, 4, 6} {
		prev := w.ss(ply - back)
		if back > 2 && w.ss(ply).inCheck {
			break
		}
		if prev.currentMove != board.NoMove && prev.currentMove != nullMove {
			gravity(&prev.contHist[pc][to], bonus, continuationHistoryLimit)
		}
	}
}

// updateAllStats rewards bestMove and punishes the moves tried before it.
func (w *Worker) updateAllStats(ply int, bestMove board.Move, quiets, captures []board.Move, depth int) {
	pos := w.pos
	bonus, malus := statBonus(depth), statMalus(depth)
	us := pos.SideToMove

	if isQuiet(pos, bestMove) {
		w.updateQuietStats(ply, bestMove, pos.PieceAt(bestMove.From()), bonus)
		for _, m := range quiets {
			pc := pos.PieceAt(m.From())
			w.hist.updateQuietHistories(us, pc, m, -malus)
			w.updateContinuation(ply, pc, m.To(), -malus)
		}
	} else if victim := capturedType(pos, bestMove); victim != board.NoPieceType {
		gravity(&w.hist.capture[pos.PieceAt(bestMove.From())][bestMove.To()][victim], bonus, captureHistoryLimit)
	}

	for _, m := range captures {
		if victim := capturedType(pos, m); victim != board.NoPieceType {
			gravity(&w.hist.capture[pos.PieceAt(m.From())][m.To()][victim], -malus, captureHistoryLimit)
		}
	}
}
