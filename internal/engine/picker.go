package engine

import "github.com/hailam/nnsearch/internal/board"

type pickerStage uint8

const (
	stageMainTT pickerStage = iota
	stageCaptureInit
	stageGoodCapture
	stageKillers
	stageQuietInit
	stageQuiet
	stageBadCapture

	stageEvasionTT
	stageEvasionInit
	stageEvasion

	stageProbCutTT
	stageProbCutInit
	stageProbCut

	stageQSearchTT
	stageQCaptureInit
	stageQCapture
	stageQCheckInit
	stageQCheck

	stageDone
)

type scoredMove struct {
	move  board.Move
	score int
}

// MovePicker hands out the moves of one node lazily, best first. Moves are
// pseudo-legal; legality is checked by the caller.
type MovePicker struct {
	pos      *board.Position
	hist     *histories
	cont     [4]*pieceToHistory
	ttMove   board.Move
	killers  [2]board.Move
	stage    pickerStage
	depth    int
	recapSq  board.Square // quiescence: only captures onto this square
	checks   bool         // quiescence: generate quiet checks after captures
	margin   int          // probcut: SEE threshold
	skipQ    bool
	cur, end int
	nKiller  int
	moves    [256]scoredMove
	bad      [256]board.Move
	nBad     int
	badIdx   int
}

func (mp *MovePicker) init(pos *board.Position, hist *histories, ttMove board.Move) {
	mp.pos = pos
	mp.hist = hist
	mp.ttMove = ttMove
	mp.recapSq = board.NoSquare
	if ttMove != board.NoMove && !pos.IsPseudoLegal(ttMove) {
		mp.ttMove = board.NoMove
	}
}

// newMainPicker creates the picker of a main search node.
func newMainPicker(pos *board.Position, hist *histories, ttMove board.Move, killers [2]board.Move,
	cont [4]*pieceToHistory, depth int) MovePicker {
	mp := MovePicker{killers: killers, cont: cont, depth: depth}
	mp.init(pos, hist, ttMove)
	if pos.InCheck() {
		mp.stage = stageEvasionTT
	} else {
		mp.stage = stageMainTT
	}
	if mp.ttMove == board.NoMove {
		mp.stage++
	}
	return mp
}

// newQSearchPicker creates the picker of a quiescence node. recapSq limits
// captures to one square unless it is NoSquare; checks adds quiet checks.
func newQSearchPicker(pos *board.Position, hist *histories, ttMove board.Move,
	cont [4]*pieceToHistory, recapSq board.Square, checks bool) MovePicker {
	mp := MovePicker{cont: cont}
	mp.init(pos, hist, ttMove)
	mp.recapSq = recapSq
	mp.checks = checks
	if pos.InCheck() {
		mp.stage = stageEvasionTT
	} else {
		mp.stage = stageQSearchTT
		if mp.ttMove != board.NoMove && recapSq != board.NoSquare && mp.ttMove.To() != recapSq {
			mp.ttMove = board.NoMove
		}
	}
	if mp.ttMove == board.NoMove {
		mp.stage++
	}
	return mp
}

// newProbCutPicker yields captures whose exchange gains at least margin.
func newProbCutPicker(pos *board.Position, hist *histories, ttMove board.Move, margin int) MovePicker {
	mp := MovePicker{margin: margin}
	mp.init(pos, hist, ttMove)
	mp.stage = stageProbCutTT
	if mp.ttMove == board.NoMove || isQuiet(pos, mp.ttMove) || !SEEGE(pos, mp.ttMove, margin) {
		mp.ttMove = board.NoMove
		mp.stage++
	}
	return mp
}

// SkipQuiets stops the picker from returning further quiet moves.
func (mp *MovePicker) SkipQuiets() {
	mp.skipQ = true
}

func (mp *MovePicker) generate(kind board.GenKind) {
	var ml board.MoveList
	mp.pos.GenerateMoves(&ml, kind)
	mp.cur, mp.end = 0, 0
	for i := 0; i < ml.Len(); i++ {
		mp.moves[mp.end] = scoredMove{move: ml.Get(i)}
		mp.end++
	}
}

func (mp *MovePicker) scoreCaptures() {
	for i := mp.cur; i < mp.end; i++ {
		mp.moves[i].score = mp.hist.captureScore(mp.pos, mp.moves[i].move)
	}
}

func (mp *MovePicker) scoreQuiets() {
	us := mp.pos.SideToMove
	for i := mp.cur; i < mp.end; i++ {
		m := mp.moves[i].move
		mp.moves[i].score = mp.hist.quietScore(us, mp.pos.PieceAt(m.From()), m, &mp.cont)
	}
}

// scoreEvasions puts captures first by victim, then quiets by history.
func (mp *MovePicker) scoreEvasions() {
	us := mp.pos.SideToMove
	for i := mp.cur; i < mp.end; i++ {
		m := mp.moves[i].move
		pc := mp.pos.PieceAt(m.From())
		if victim := capturedType(mp.pos, m); victim != board.NoPieceType || m.IsPromotion() {
			s := 1 << 28
			if victim != board.NoPieceType {
				s += seeValue[victim]*8 - int(pc.Type())
			}
			if m.IsPromotion() {
				s += seeValue[m.Promotion()]
			}
			mp.moves[i].score = s
		} else {
			mp.moves[i].score = int(mp.hist.main[us][m.From()][m.To()]) + int(mp.cont[0][pc][m.To()])
		}
	}
}

// partialInsertionSort sorts moves scoring at least limit to the front in
// descending order; the others keep their place behind them.
func partialInsertionSort(moves []scoredMove, limit int) {
	sortedEnd := 0
	for p := 1; p < len(moves); p++ {
		if moves[p].score < limit {
			continue
		}
		tmp := moves[p]
		sortedEnd++
		moves[p] = moves[sortedEnd]
		q := sortedEnd
		for ; q > 0 && moves[q-1].score < tmp.score; q-- {
			moves[q] = moves[q-1]
		}
		moves[q] = tmp
	}
}

func (mp *MovePicker) isKiller(m board.Move) bool {
	for i := 0; i < mp.nKiller; i++ {
		if mp.killers[i] == m {
			return true
		}
	}
	return false
}

// Next returns the next move, or board.NoMove when the node is exhausted.
func (mp *MovePicker) Next() board.Move {
	for {
		switch mp.stage {
		case stageMainTT, stageEvasionTT, stageProbCutTT, stageQSearchTT:
			mp.stage++
			return mp.ttMove

		case stageCaptureInit, stageProbCutInit, stageQCaptureInit:
			mp.generate(board.GenCaptures)
			mp.scoreCaptures()
			partialInsertionSort(mp.moves[:mp.end], -1<<30)
			mp.stage++

		case stageGoodCapture:
			for mp.cur < mp.end {
				sm := mp.moves[mp.cur]
				mp.cur++
				if sm.move == mp.ttMove {
					continue
				}
				if SEEGE(mp.pos, sm.move, -sm.score/18) {
					return sm.move
				}
				mp.bad[mp.nBad] = sm.move
				mp.nBad++
			}
			mp.stage++
			mp.filterKillers()

		case stageKillers:
			if mp.cur < mp.nKiller {
				mp.cur++
				return mp.killers[mp.cur-1]
			}
			mp.stage++

		case stageQuietInit:
			if !mp.skipQ {
				mp.generate(board.GenQuiets)
				mp.scoreQuiets()
				partialInsertionSort(mp.moves[:mp.end], -3000*mp.depth)
			} else {
				mp.cur, mp.end = 0, 0
			}
			mp.stage++

		case stageQuiet:
			for !mp.skipQ && mp.cur < mp.end {
				m := mp.moves[mp.cur].move
				mp.cur++
				if m != mp.ttMove && !mp.isKiller(m) {
					return m
				}
			}
			mp.stage++

		case stageBadCapture:
			if mp.badIdx < mp.nBad {
				mp.badIdx++
				return mp.bad[mp.badIdx-1]
			}
			mp.stage = stageDone

		case stageEvasionInit:
			mp.generate(board.GenEvasions)
			mp.scoreEvasions()
			partialInsertionSort(mp.moves[:mp.end], -1<<30)
			mp.stage++

		case stageEvasion, stageQCapture:
			for mp.cur < mp.end {
				m := mp.moves[mp.cur].move
				mp.cur++
				if m == mp.ttMove {
					continue
				}
				if mp.stage == stageQCapture && mp.recapSq != board.NoSquare && m.To() != mp.recapSq {
					continue
				}
				return m
			}
			if mp.stage == stageQCapture && mp.checks {
				mp.stage = stageQCheckInit
			} else {
				mp.stage = stageDone
			}

		case stageProbCut:
			for mp.cur < mp.end {
				m := mp.moves[mp.cur].move
				mp.cur++
				if m != mp.ttMove && SEEGE(mp.pos, m, mp.margin) {
					return m
				}
			}
			mp.stage = stageDone

		case stageQCheckInit:
			mp.generate(board.GenQuietChecks)
			mp.stage++

		case stageQCheck:
			for mp.cur < mp.end {
				m := mp.moves[mp.cur].move
				mp.cur++
				if m != mp.ttMove {
					return m
				}
			}
			mp.stage = stageDone

		default:
			return board.NoMove
		}
	}
}

// filterKillers keeps the killers that are pseudo-legal quiet moves other
// than the TT move, and rewinds the cursor for the killer stage.
func (mp *MovePicker) filterKillers() {
	n := 0
	for _, k := range mp.killers {
		if k == board.NoMove || k == mp.ttMove || (n == 1 && k == mp.killers[0]) {
			continue
		}
		if !mp.pos.IsPseudoLegal(k) || !isQuiet(mp.pos, k) {
			continue
		}
		mp.killers[n] = k
		n++
	}
	mp.nKiller = n
	mp.cur = 0
}
