package engine

import (
	"time"

	"github.com/hailam/nnsearch/internal/board"
)

// TimeManager handles time allocation for searches.
type TimeManager struct {
	optimumTime time.Duration // target time for this move
	maximumTime time.Duration // hard limit
	startTime   time.Time
	limited     bool // false for infinite, depth-only and node-only searches
}

// Init prepares the time manager for a new search. ply is the game ply of
// the root position.
func (tm *TimeManager) Init(cfg SearchConfig, us board.Color, ply int, overhead time.Duration) {
	tm.startTime = time.Now()
	tm.limited = false

	if cfg.Infinite {
		return
	}

	if cfg.MoveTime > 0 {
		tm.limited = true
		tm.optimumTime = max(cfg.MoveTime-overhead, time.Millisecond)
		tm.maximumTime = tm.optimumTime
		return
	}

	timeLeft := cfg.Time[us]
	if timeLeft == 0 {
		return
	}
	tm.limited = true
	inc := cfg.Inc[us]
	timeLeft = max(timeLeft-overhead, time.Millisecond)

	// Sudden death: expect fewer remaining moves as the game goes on.
	mtg := cfg.MovesToGo
	if mtg == 0 {
		mtg = max(10, min(50, 50-ply/4))
	}

	base := timeLeft/time.Duration(mtg) + inc*9/10
	tm.optimumTime = base
	if ply < 8 {
		tm.optimumTime = base * 85 / 100
	}

	tm.maximumTime = min(tm.optimumTime*5, timeLeft*8/10)
	tm.optimumTime = min(tm.optimumTime, tm.maximumTime)

	tm.optimumTime = max(tm.optimumTime, 10*time.Millisecond)
	tm.maximumTime = max(tm.maximumTime, 50*time.Millisecond)
	tm.maximumTime = min(tm.maximumTime, timeLeft*95/100)
}

// Limited reports whether the clock bounds this search.
func (tm *TimeManager) Limited() bool {
	return tm.limited
}

// Elapsed returns the time elapsed since the search started.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.startTime)
}

// OptimumTime returns the target time for this move.
func (tm *TimeManager) OptimumTime() time.Duration {
	return tm.optimumTime
}

// MaximumTime returns the hard limit for this move.
func (tm *TimeManager) MaximumTime() time.Duration {
	return tm.maximumTime
}

// ShouldStop reports whether the hard limit has passed.
func (tm *TimeManager) ShouldStop() bool {
	return tm.limited && tm.Elapsed() >= tm.maximumTime
}

// ScaledOptimum returns the optimum time adjusted for how settled the search
// is. stability counts consecutive iterations with the same best move,
// changes counts recent best move changes, and effort is the permille of
// root nodes spent on the best move.
func (tm *TimeManager) ScaledOptimum(stability, changes, effort int) time.Duration {
	t := tm.optimumTime
	switch {
	case stability >= 6:
		t = t * 40 / 100
	case stability >= 4:
		t = t * 60 / 100
	case stability >= 2:
		t = t * 80 / 100
	}

	switch {
	case changes >= 4:
		t = t * 200 / 100
	case changes >= 2:
		t = t * 150 / 100
	}

	if effort >= 900 {
		t = t * 75 / 100
	}
	return min(t, tm.maximumTime)
}

// PastOptimum reports whether the scaled optimum has been used up.
func (tm *TimeManager) PastOptimum(stability, changes, effort int) bool {
	return tm.limited && tm.Elapsed() >= tm.ScaledOptimum(stability, changes, effort)
}
