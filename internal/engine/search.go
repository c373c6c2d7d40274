package engine

import (
	"strconv"

	"github.com/hailam/nnsearch/internal/board"
)

// Search constants
const (
	Infinity     = 32000
	MateScore    = 31000
	MaxPly       = 128
	MateInMaxPly = MateScore - MaxPly
	DrawScore    = 0

	// noScore marks an unknown score or static eval.
	noScore = Infinity + 1
)

// nodeType selects the search variant of a node.
type nodeType uint8

const (
	nonPVNode nodeType = iota
	pvNode
	rootNode
)

// nullMove marks a null move on the search stack. It can never be generated.
const nullMove = board.Move(0x0FFF)

// MateIn returns the score of giving mate at ply.
func MateIn(ply int) int {
	return MateScore - ply
}

// MatedIn returns the score of being mated at ply.
func MatedIn(ply int) int {
	return -MateScore + ply
}

// IsMateScore reports whether score is a forced mate for either side.
func IsMateScore(score int) bool {
	return score >= MateInMaxPly || score <= -MateInMaxPly
}

// PVTable stores the principal variation of every ply.
type PVTable struct {
	length [MaxPly + 1]int
	moves  [MaxPly + 1][MaxPly + 1]board.Move
}

// clear empties the line at ply.
func (pv *PVTable) clear(ply int) {
	pv.length[ply] = 0
}

// update sets the line at ply to m followed by the line at ply+1.
func (pv *PVTable) update(ply int, m board.Move) {
	pv.moves[ply][0] = m
	n := 0
	if ply+1 <= MaxPly {
		n = pv.length[ply+1]
		copy(pv.moves[ply][1:n+1], pv.moves[ply+1][:n])
	}
	pv.length[ply] = n + 1
}

// line returns a copy of the line at ply.
func (pv *PVTable) line(ply int) []board.Move {
	out := make([]board.Move, pv.length[ply])
	copy(out, pv.moves[ply][:pv.length[ply]])
	return out
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if score >= MateInMaxPly {
		return "Mate in " + strconv.Itoa((MateScore-score+1)/2)
	}
	if score <= -MateInMaxPly {
		return "Mated in " + strconv.Itoa((MateScore+score)/2)
	}

	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	return sign + strconv.Itoa(score/100) + "." + strconv.Itoa(score%100/10) + strconv.Itoa(score%10)
}

// UCIScore formats a score for a UCI info line.
func UCIScore(score int) string {
	switch {
	case score >= MateInMaxPly:
		return "mate " + strconv.Itoa((MateScore-score+1)/2)
	case score <= -MateInMaxPly:
		return "mate -" + strconv.Itoa((MateScore+score)/2)
	}
	return "cp " + strconv.Itoa(score)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
