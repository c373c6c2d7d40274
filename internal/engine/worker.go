package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hailam/nnsearch/internal/board"
	"github.com/hailam/nnsearch/internal/nnue"
)

// stackOffset is the number of sentinel entries below ply 0, so that
// continuation history can look six plies back from the root.
const stackOffset = 7

// stackEntry is the per-ply state of one search line. Entries are reused by
// every node at the same ply.
type stackEntry struct {
	currentMove      board.Move
	excludedMove     board.Move
	killers          [2]board.Move
	staticEval       int
	inCheck          bool
	ttPV             bool
	ttHit            bool
	moveCount        int
	cutoffCnt        int
	statScore        int
	doubleExtensions int
	contHist         *pieceToHistory
}

// searchDriver carries what only the main worker needs: the budget, the
// clock and progress reporting.
type searchDriver struct {
	ctx      context.Context
	cfg      SearchConfig
	tm       TimeManager
	interval int
	nodes    func() uint64
	hashfull func() int
	onInfo   func(SearchInfo)
}

// Worker is one search thread. Everything but the transposition table and the
// stop flag is private to it.
type Worker struct {
	id   int
	tt   *TranspositionTable
	stop *atomic.Bool

	pos      *board.Position
	eval     *nnue.Evaluator
	undo     [MaxPly + 1]board.UndoInfo
	nullUndo [MaxPly + 1]board.NullMoveUndo
	keys     []uint64

	stack [MaxPly + stackOffset + 3]stackEntry
	pv    PVTable
	hist  histories
	corr  CorrectionHistory

	rootMoves      rootMoves
	rootDepth      int
	completedDepth int
	selDepth       int
	nmpMinPly      int
	nodes          atomic.Uint64

	driver          *searchDriver
	callsCnt        int
	bestMoveChanges int
}

func newWorker(id int, tt *TranspositionTable, stop *atomic.Bool, net *nnue.Network) *Worker {
	return &Worker{
		id:   id,
		tt:   tt,
		stop: stop,
		eval: nnue.NewEvaluator(net),
	}
}

// ss returns the stack entry of ply. Negative plies down to -stackOffset are
// sentinels.
func (w *Worker) ss(ply int) *stackEntry {
	return &w.stack[ply+stackOffset]
}

// Nodes returns the number of nodes this worker searched.
func (w *Worker) Nodes() uint64 {
	return w.nodes.Load()
}

// prepare loads the root position. history holds the keys of the positions
// played before it, oldest first.
func (w *Worker) prepare(pos *board.Position, history []uint64, rms rootMoves) {
	w.pos = pos.Copy()
	w.keys = append(w.keys[:0], history...)
	w.rootMoves = rms.clone()
	w.nodes.Store(0)
	w.rootDepth, w.completedDepth, w.selDepth = 0, 0, 0
	w.nmpMinPly = 0
	w.bestMoveChanges = 0
	w.callsCnt = 0

	sentinel := w.hist.sentinel()
	for i := range w.stack {
		w.stack[i] = stackEntry{staticEval: noScore, contHist: sentinel}
	}
	w.eval.Refresh(w.pos)
}

// checkBudget stops the search once the node or time budget is spent. Only
// the main worker has a driver.
func (w *Worker) checkBudget() {
	d := w.driver
	if d == nil {
		return
	}
	if w.callsCnt--; w.callsCnt > 0 {
		return
	}
	w.callsCnt = d.interval

	if w.completedDepth == 0 && d.cfg.Nodes == 0 {
		// always finish the first iteration on a clock
		return
	}
	if (d.cfg.Nodes > 0 && d.nodes() >= d.cfg.Nodes) || d.tm.ShouldStop() {
		w.stop.Store(true)
	}
}

// givesCheck reports whether m checks the opponent. Castling and en passant
// are assumed to check.
func givesCheck(pos *board.Position, m board.Move) bool {
	if m.IsCastling() || m.IsEnPassant() {
		return true
	}
	us := pos.SideToMove
	them := us.Other()
	from, to := m.From(), m.To()
	ksq := pos.KingSquare[them]

	pt := pos.PieceAt(from).Type()
	if m.IsPromotion() {
		pt = m.Promotion()
	}
	occ := pos.AllOccupied&^board.SquareBB(from) | board.SquareBB(to)
	var att board.Bitboard
	if pt == board.Pawn {
		att = board.PawnAttacks(to, us)
	} else {
		att = board.AttacksFrom(pt, to, occ)
	}
	if att.IsSet(ksq) {
		return true
	}
	return pos.Blockers[them].IsSet(from) && !board.Aligned(from, to, ksq)
}

// improving reports whether the static eval rose since our previous move.
func (w *Worker) improving(ply int) bool {
	cur := w.ss(ply).staticEval
	if prev := w.ss(ply - 2).staticEval; prev != noScore {
		return cur > prev
	}
	if prev := w.ss(ply - 4).staticEval; prev != noScore {
		return cur > prev
	}
	return true
}

func (w *Worker) contHistories(ply int) [4]*pieceToHistory {
	return [4]*pieceToHistory{
		w.ss(ply - 1).contHist,
		w.ss(ply - 2).contHist,
		w.ss(ply - 4).contHist,
		w.ss(ply - 6).contHist,
	}
}

// boundFor returns the bound a stored score needs to be usable as a cutoff
// or eval refinement against v.
func boundFor(score, v int) Bound {
	if score >= v {
		return BoundLower
	}
	return BoundUpper
}

// search is the alpha-beta negamax of the main tree.
func (w *Worker) search(nt nodeType, alpha, beta, depth int, cutNode bool, ply int) int {
	isPV := nt != nonPVNode
	isRoot := nt == rootNode

	if depth <= 0 {
		return w.qsearch(isPV, alpha, beta, 0, ply)
	}
	depth = min(depth, MaxPly-1)

	pos := w.pos
	us := pos.SideToMove
	ss := w.ss(ply)
	if isPV {
		w.pv.clear(ply)
		w.selDepth = max(w.selDepth, ply+1)
	}
	w.nodes.Add(1)
	w.checkBudget()

	ss.inCheck = pos.InCheck()
	ss.moveCount = 0

	if !isRoot {
		if w.stop.Load() || w.isDraw() {
			return DrawScore
		}
		if ply >= MaxPly {
			if ss.inCheck {
				return DrawScore
			}
			return w.evaluate()
		}

		alpha = max(MatedIn(ply), alpha)
		beta = min(MateIn(ply+1), beta)
		if alpha >= beta {
			return alpha
		}
	}

	w.ss(ply + 1).killers = [2]board.Move{}
	w.ss(ply + 1).excludedMove = board.NoMove
	w.ss(ply + 2).cutoffCnt = 0
	ss.doubleExtensions = w.ss(ply - 1).doubleExtensions
	ss.statScore = 0
	excluded := ss.excludedMove
	key := pos.Hash

	tte, ttHit, writer := w.tt.Lookup(key)
	ss.ttHit = ttHit
	ttScore := AdjustScoreFromTT(tte.Score, ply)
	ttMove := tte.Move
	if isRoot {
		ttMove = w.rootMoves[0].Move
	} else if ttMove != board.NoMove && !pos.IsPseudoLegal(ttMove) {
		ttMove = board.NoMove
	}
	if excluded == board.NoMove {
		ss.ttPV = isPV || (ttHit && tte.PV)
	}
	ttCapture := ttMove != board.NoMove && !isQuiet(pos, ttMove)

	if !isPV && excluded == board.NoMove && ttHit && ttScore != noScore &&
		tte.Depth >= depth && tte.Bound&boundFor(ttScore, beta) != 0 {
		if ttMove != board.NoMove && ttScore >= beta && isQuiet(pos, ttMove) {
			w.updateQuietStats(ply, ttMove, pos.PieceAt(ttMove.From()), statBonus(depth))
		}
		if pos.HalfMoveClock < 90 {
			return ttScore
		}
	}

	rawEval, eval := noScore, noScore
	improving := false

	if ss.inCheck {
		ss.staticEval = noScore
	} else {
		switch {
		case excluded != board.NoMove:
			// the parent node already evaluated this position
			eval = ss.staticEval
			rawEval = eval
		case ttHit:
			rawEval = tte.Eval
			if rawEval == noScore {
				rawEval = w.evaluate()
			}
			ss.staticEval = w.corr.Adjust(pos, rawEval)
			eval = ss.staticEval
			if ttScore != noScore && tte.Bound&boundFor(ttScore, eval+1) != 0 {
				eval = ttScore
			}
		default:
			rawEval = w.evaluate()
			ss.staticEval = w.corr.Adjust(pos, rawEval)
			eval = ss.staticEval
			writer.Write(key, noScore, ss.ttPV, BoundNone, DepthNone, board.NoMove, rawEval)
		}
		improving = w.improving(ply)

		// Reverse futility pruning
		if EnableRFP && !isPV && excluded == board.NoMove && ttMove == board.NoMove &&
			depth < rfpMaxDepth && eval < MateInMaxPly &&
			eval-futilityMargin(depth, improving) >= beta {
			return eval
		}

		// Null move pruning
		prev := w.ss(ply - 1)
		if EnableNMP && !isPV && excluded == board.NoMove && prev.currentMove != nullMove &&
			depth >= nmpMinDepth && eval >= beta && ss.staticEval >= beta-20*depth+200 &&
			pos.NonPawnMaterial(us) > 0 && ply >= w.nmpMinPly && beta > -MateInMaxPly {
			r := min((eval-beta)/170, 6) + depth/3 + 4

			ss.currentMove = nullMove
			ss.contHist = w.hist.sentinel()
			w.makeNullMove(ply)
			v := -w.search(nonPVNode, -beta, -beta+1, depth-r, !cutNode, ply+1)
			w.unmakeNullMove(ply)

			if v >= beta && v < MateInMaxPly {
				if w.nmpMinPly != 0 || depth < nmpVerifyDepth {
					return v
				}
				// Verify at high depth with null moves disabled for part of the tree.
				w.nmpMinPly = ply + 3*(depth-r)/4
				v2 := w.search(nonPVNode, beta-1, beta, depth-r, false, ply)
				w.nmpMinPly = 0
				if v2 >= beta {
					return v
				}
			}
		}

		// ProbCut
		probBeta := beta + probcutMargin - 50*b2i(improving)
		if EnableProbcut && !isPV && excluded == board.NoMove && depth >= probcutMinDepth &&
			abs(beta) < MateInMaxPly &&
			!(ttHit && tte.Depth >= depth-3 && ttScore != noScore && ttScore < probBeta) {
			mp := newProbCutPicker(pos, &w.hist, ttMove, probBeta-ss.staticEval)
			for m := mp.Next(); m != board.NoMove; m = mp.Next() {
				if !pos.IsLegal(m) {
					continue
				}
				ss.currentMove = m
				ss.contHist = &w.hist.continuation[pos.PieceAt(m.From())][m.To()]

				w.makeMove(m, ply)
				v := -w.qsearch(false, -probBeta, -probBeta+1, 0, ply+1)
				if v >= probBeta {
					v = -w.search(nonPVNode, -probBeta, -probBeta+1, depth-probcutReduction, !cutNode, ply+1)
				}
				w.unmakeMove(m, ply)

				if w.stop.Load() {
					return 0
				}
				if v >= probBeta {
					writer.Write(key, AdjustScoreToTT(v, ply), ss.ttPV, BoundLower, depth-3, m, rawEval)
					return v - (probBeta - beta)
				}
			}
		}

		// Internal iterative reduction
		if EnableIIR && cutNode && ttMove == board.NoMove && depth >= iirMinDepth {
			depth--
		}
	}

	cont := w.contHistories(ply)
	mp := newMainPicker(pos, &w.hist, ttMove, ss.killers, cont, depth)

	bestScore := -Infinity
	bestMove := board.NoMove
	moveCount := 0
	var quiets, captures [32]board.Move
	nQuiets, nCaptures := 0, 0

	for m := mp.Next(); m != board.NoMove; m = mp.Next() {
		if m == excluded {
			continue
		}
		if isRoot {
			if w.rootMoves.find(m) == nil {
				continue
			}
		} else if !pos.IsLegal(m) {
			continue
		}

		moveCount++
		ss.moveCount = moveCount

		capture := !isQuiet(pos, m)
		check := givesCheck(pos, m)
		pc := pos.PieceAt(m.From())
		to := m.To()
		newDepth := depth - 1

		// Shallow depth pruning
		if !isRoot && pos.NonPawnMaterial(us) > 0 && bestScore > -MateInMaxPly {
			if EnableLMP && moveCount >= lmpCount(depth, improving) {
				mp.SkipQuiets()
			}
			lmrDepth := newDepth - reduction(depth, moveCount)

			if capture || check {
				if EnableSEEPruning && !check && !SEEGE(pos, m, -seeCaptureMargin*depth) {
					continue
				}
			} else {
				history := 2*int(w.hist.main[us][m.From()][to]) +
					int(cont[0][pc][to]) + int(cont[1][pc][to]) + int(cont[3][pc][to])

				if lmrDepth < historyPruneDepth && history < -historyPruneLimit*depth {
					continue
				}
				lmrDepth += history / 7000

				if EnableFutility && !ss.inCheck && lmrDepth < futilityMaxDepth &&
					ss.staticEval+futilityBase+futilityPerDepth*lmrDepth <= alpha {
					continue
				}
				lmrDepth = max(lmrDepth, 0)
				if EnableSEEPruning && !SEEGE(pos, m, -seeQuietMargin*lmrDepth*lmrDepth) {
					continue
				}
			}
		}

		// Extensions
		extension := 0
		if EnableSingularExt && !isRoot && ply < 2*w.rootDepth && m == ttMove &&
			excluded == board.NoMove && depth >= singularMinDepth &&
			ttScore != noScore && abs(ttScore) < MateInMaxPly &&
			tte.Bound&BoundLower != 0 && tte.Depth >= depth-3 {
			singularBeta := ttScore - (2+b2i(ss.ttPV && !isPV))*depth
			singularDepth := (depth - 1) / 2

			ss.excludedMove = m
			v := w.search(nonPVNode, singularBeta-1, singularBeta, singularDepth, cutNode, ply)
			ss.excludedMove = board.NoMove
			ss.moveCount = moveCount

			if w.stop.Load() {
				return 0
			}
			switch {
			case v < singularBeta:
				extension = 1
				if !isPV && v < singularBeta-doubleExtMargin && ss.doubleExtensions <= maxDoubleExt {
					extension = 2
				}
			case singularBeta >= beta:
				// Multi-cut: several moves beat beta without the TT move.
				return singularBeta
			case ttScore >= beta:
				extension = -2
			case cutNode:
				extension = -1
			}
		}
		newDepth += extension
		ss.doubleExtensions = w.ss(ply-1).doubleExtensions + b2i(extension == 2)

		ss.currentMove = m
		ss.contHist = &w.hist.continuation[pc][to]
		ss.statScore = 2*int(w.hist.main[us][m.From()][to]) +
			int(cont[0][pc][to]) + int(cont[1][pc][to]) + int(cont[3][pc][to]) - 4000
		nodesBefore := w.nodes.Load()

		w.tt.Prefetch(pos.HashAfter(m))
		w.makeMove(m, ply)
		if isPV {
			w.pv.clear(ply + 1)
		}

		var v int
		if EnableLMR && depth >= 2 && moveCount > 1+b2i(isRoot) && (!capture || !ss.ttPV || cutNode) {
			r := reduction(depth, moveCount)
			if ss.ttPV {
				r--
			}
			if !improving {
				r++
			}
			if cutNode {
				r += 2
			}
			if ttCapture {
				r++
			}
			if isPV {
				r--
			}
			if m == ss.killers[0] || m == ss.killers[1] {
				r--
			}
			if pos.InCheck() {
				r--
			}
			if w.ss(ply+1).cutoffCnt > 3 {
				r++
			}
			r -= ss.statScore / 15000

			d := max(1, min(newDepth-r, newDepth+1))
			v = -w.search(nonPVNode, -(alpha + 1), -alpha, d, true, ply+1)
			if v > alpha && d < newDepth {
				v = -w.search(nonPVNode, -(alpha + 1), -alpha, newDepth, !cutNode, ply+1)
			}
		} else if !isPV || moveCount > 1 {
			v = -w.search(nonPVNode, -(alpha + 1), -alpha, newDepth, !cutNode, ply+1)
		}

		if isPV && (moveCount == 1 || (v > alpha && (isRoot || v < beta))) {
			v = -w.search(pvNode, -beta, -alpha, newDepth, false, ply+1)
		}

		w.unmakeMove(m, ply)

		if w.stop.Load() {
			return 0
		}

		if isRoot {
			rm := w.rootMoves.find(m)
			rm.Nodes += w.nodes.Load() - nodesBefore
			if rm.AverageScore == -Infinity {
				rm.AverageScore = v
			} else {
				rm.AverageScore = (2*v + rm.AverageScore) / 3
			}
			if moveCount == 1 || v > alpha {
				rm.Score = v
				rm.SelDepth = w.selDepth
				rm.PV = append(append(rm.PV[:0], m), w.pv.line(ply+1)...)
				if moveCount > 1 {
					w.bestMoveChanges++
				}
			} else {
				rm.Score = -Infinity
			}
		}

		if v > bestScore {
			bestScore = v
			if v > alpha {
				bestMove = m
				if isPV {
					w.pv.update(ply, m)
				}
				if v >= beta {
					ss.cutoffCnt++
					break
				}
				alpha = v
			}
		}

		if m != bestMove {
			if capture && nCaptures < len(captures) {
				captures[nCaptures] = m
				nCaptures++
			} else if !capture && nQuiets < len(quiets) {
				quiets[nQuiets] = m
				nQuiets++
			}
		}
	}

	if moveCount == 0 {
		switch {
		case excluded != board.NoMove:
			return alpha
		case ss.inCheck:
			return MatedIn(ply)
		}
		return DrawScore
	}

	if bestMove != board.NoMove {
		w.updateAllStats(ply, bestMove, quiets[:nQuiets], captures[:nCaptures], depth)
	}

	if excluded == board.NoMove {
		bound := BoundUpper
		switch {
		case bestScore >= beta:
			bound = BoundLower
		case isPV && bestMove != board.NoMove:
			bound = BoundExact
		}
		writer.Write(key, AdjustScoreToTT(bestScore, ply), ss.ttPV, bound, depth, bestMove, rawEval)

		if !ss.inCheck && !IsMateScore(bestScore) &&
			(bestMove == board.NoMove || isQuiet(pos, bestMove)) &&
			!(bound == BoundLower && bestScore <= ss.staticEval) &&
			!(bound == BoundUpper && bestScore >= ss.staticEval) {
			w.corr.Update(pos, bestScore, rawEval, depth)
		}
	}

	return bestScore
}

// qsearch resolves captures, check evasions and, at its first ply, quiet
// checks until the position is quiet.
func (w *Worker) qsearch(isPV bool, alpha, beta, qply, ply int) int {
	pos := w.pos
	ss := w.ss(ply)
	if isPV {
		w.pv.clear(ply)
		w.selDepth = max(w.selDepth, ply+1)
	}
	w.nodes.Add(1)
	w.checkBudget()

	ss.inCheck = pos.InCheck()
	if w.stop.Load() || w.isDraw() {
		return DrawScore
	}
	if ply >= MaxPly {
		if ss.inCheck {
			return DrawScore
		}
		return w.evaluate()
	}

	key := pos.Hash
	tte, ttHit, writer := w.tt.Lookup(key)
	ttScore := AdjustScoreFromTT(tte.Score, ply)
	if !isPV && ttHit && ttScore != noScore && tte.Depth >= DepthQS &&
		tte.Bound&boundFor(ttScore, beta) != 0 {
		return ttScore
	}

	bestScore, futilityBase, rawEval := -Infinity, -Infinity, noScore
	if ss.inCheck {
		ss.staticEval = noScore
	} else {
		if ttHit && tte.Eval != noScore {
			rawEval = tte.Eval
		} else {
			rawEval = w.evaluate()
		}
		ss.staticEval = w.corr.Adjust(pos, rawEval)
		bestScore = ss.staticEval
		if ttHit && ttScore != noScore && tte.Bound&boundFor(ttScore, bestScore+1) != 0 {
			bestScore = ttScore
		}

		// Stand pat
		if bestScore >= beta {
			if !ttHit {
				writer.Write(key, AdjustScoreToTT(bestScore, ply), false, BoundLower, DepthNone, board.NoMove, rawEval)
			}
			return bestScore
		}
		alpha = max(alpha, bestScore)
		futilityBase = ss.staticEval + qsFutilityMargin
	}

	recapSq := board.NoSquare
	if prev := w.ss(ply - 1).currentMove; qply >= qsRecaptureDepth && prev != board.NoMove && prev != nullMove {
		recapSq = prev.To()
	}
	mp := newQSearchPicker(pos, &w.hist, tte.Move, w.contHistories(ply), recapSq, qply == 0)

	bestMove := board.NoMove
	quietEvasions := 0

	for m := mp.Next(); m != board.NoMove; m = mp.Next() {
		if !pos.IsLegal(m) {
			continue
		}
		capture := !isQuiet(pos, m)

		if bestScore > -MateInMaxPly {
			check := givesCheck(pos, m)

			// Futility and delta pruning
			if !check && futilityBase > -Infinity && !m.IsPromotion() {
				if v := futilityBase + seeValue[capturedType(pos, m)]; v <= alpha {
					bestScore = max(bestScore, v)
					continue
				}
				if futilityBase <= alpha && !SEEGE(pos, m, 1) {
					bestScore = max(bestScore, futilityBase)
					continue
				}
			}

			if ss.inCheck && !capture && quietEvasions >= qsEvasionQuiets {
				continue
			}
			if !SEEGE(pos, m, -95) {
				continue
			}
		}
		if ss.inCheck && !capture {
			quietEvasions++
		}

		ss.currentMove = m
		ss.contHist = &w.hist.continuation[pos.PieceAt(m.From())][m.To()]
		w.tt.Prefetch(pos.HashAfter(m))
		w.makeMove(m, ply)
		v := -w.qsearch(isPV, -beta, -alpha, qply+1, ply+1)
		w.unmakeMove(m, ply)

		if w.stop.Load() {
			return 0
		}

		if v > bestScore {
			bestScore = v
			if v > alpha {
				bestMove = m
				if isPV {
					w.pv.update(ply, m)
				}
				if v >= beta {
					break
				}
				alpha = v
			}
		}
	}

	if ss.inCheck && bestScore == -Infinity {
		return MatedIn(ply)
	}

	bound := BoundUpper
	if bestScore >= beta {
		bound = BoundLower
	}
	writer.Write(key, AdjustScoreToTT(bestScore, ply), false, bound, DepthQS, bestMove, rawEval)
	return bestScore
}

// iterate runs iterative deepening from startDepth up to maxDepth or until
// the stop flag is raised.
func (w *Worker) iterate(startDepth, maxDepth int) {
	main := w.driver != nil
	lastBest := board.NoMove
	stability := 0

	for depth := startDepth; depth <= maxDepth && !w.stop.Load(); depth++ {
		w.rootDepth = depth
		w.selDepth = 0
		if main {
			w.bestMoveChanges /= 2
		}
		for i := range w.rootMoves {
			w.rootMoves[i].PreviousScore = w.rootMoves[i].Score
		}

		alpha, beta := -Infinity, Infinity
		delta := aspirationDelta
		if avg := w.rootMoves[0].AverageScore; depth >= aspirationDepth && avg != -Infinity {
			delta = aspirationDelta + avg*avg/12000
			alpha = max(avg-delta, -Infinity)
			beta = min(avg+delta, Infinity)
		}

		for {
			score := w.search(rootNode, alpha, beta, depth, false, 0)
			w.rootMoves.sort()
			if w.stop.Load() || (score > alpha && score < beta) {
				break
			}
			if score <= alpha {
				beta = (alpha + beta) / 2
				alpha = max(score-delta, -Infinity)
			} else {
				beta = min(score+delta, Infinity)
			}
			delta += delta / 3
		}

		if w.stop.Load() {
			break
		}
		w.completedDepth = depth

		if !main {
			continue
		}

		best := &w.rootMoves[0]
		if best.Move == lastBest {
			stability++
		} else {
			stability = 0
			lastBest = best.Move
		}
		w.report(depth, best)

		d := w.driver
		if d.tm.Limited() {
			effort := 0
			if total := w.rootMoves.totalNodes(); total > 0 {
				effort = int(best.Nodes * 1000 / total)
			}
			if len(w.rootMoves) == 1 || d.tm.PastOptimum(stability, w.bestMoveChanges, effort) {
				w.stop.Store(true)
			}
		}
	}

	// An infinite search only ends on request.
	if main && w.driver.cfg.Infinite {
		<-w.driver.ctx.Done()
	}
}

func (w *Worker) report(depth int, best *RootMove) {
	d := w.driver
	elapsed := d.tm.Elapsed()
	nodes := d.nodes()
	info := SearchInfo{
		Depth:    depth,
		SelDepth: best.SelDepth,
		Score:    best.Score,
		Nodes:    nodes,
		Time:     elapsed,
		PV:       append([]board.Move(nil), best.PV...),
		HashFull: d.hashfull(),
	}
	if ms := elapsed.Milliseconds(); ms > 0 {
		info.NPS = nodes * 1000 / uint64(ms)
	}
	log.Debug().
		Int("worker", w.id).
		Int("depth", depth).
		Int("score", best.Score).
		Uint64("nodes", nodes).
		Dur("elapsed", elapsed.Round(time.Millisecond)).
		Str("best", best.Move.String()).
		Msg("iteration complete")
	if d.onInfo != nil {
		d.onInfo(info)
	}
}
