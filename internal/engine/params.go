package engine

import "math"

// Feature flags. Each gate of the search can be switched off to measure it.
const (
	EnableRFP         = true // reverse futility pruning
	EnableNMP         = true // null move pruning
	EnableProbcut     = true
	EnableIIR         = true // internal iterative reduction
	EnableLMP         = true // late move pruning
	EnableSEEPruning  = true
	EnableFutility    = true // futility pruning of quiet moves
	EnableSingularExt = true
	EnableLMR         = true
)

// Pruning and extension margins
const (
	rfpMaxDepth       = 8
	rfpMargin         = 80
	nmpMinDepth       = 3
	nmpVerifyDepth    = 14
	probcutMinDepth   = 4
	probcutMargin     = 180
	probcutReduction  = 4
	iirMinDepth       = 4
	futilityMaxDepth  = 10
	futilityBase      = 120
	futilityPerDepth  = 110
	seeCaptureMargin  = 90 // per depth
	seeQuietMargin    = 25 // per lmr depth squared
	historyPruneDepth = 5
	historyPruneLimit = 4000 // per depth
	singularMinDepth  = 6
	doubleExtMargin   = 20
	maxDoubleExt      = 8
	qsFutilityMargin  = 180
	qsEvasionQuiets   = 2  // quiet check evasions searched once a score is known
	qsRecaptureDepth  = 5  // quiescence plies after which only recaptures are tried
	aspirationDepth   = 4
	aspirationDelta   = 12
	checkInterval     = 1024 // nodes between budget checks of the main worker
)

// lmrReductions[d][m] is the base late move reduction for depth d and move
// number m.
var lmrReductions [64][64]int

func init() {
	for d := 1; d < 64; d++ {
		for m := 1; m < 64; m++ {
			lmrReductions[d][m] = int(0.75 + math.Log(float64(d))*math.Log(float64(m))/2.25)
		}
	}
}

func reduction(depth, moveCount int) int {
	return lmrReductions[min(depth, 63)][min(moveCount, 63)]
}

// lmpCount is the number of moves after which quiets are skipped.
func lmpCount(depth int, improving bool) int {
	if improving {
		return 3 + depth*depth
	}
	return (3 + depth*depth) / 2
}

func futilityMargin(depth int, improving bool) int {
	m := rfpMargin * depth
	if improving {
		m -= rfpMargin / 2
	}
	return m
}

// statBonus is the history bonus for a move that caused a cutoff at depth.
func statBonus(depth int) int {
	return min(170*depth-90, 1700)
}

func statMalus(depth int) int {
	return min(200*depth-60, 1500)
}
