package engine

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/nnsearch/internal/board"
)

// Bound is the kind of score stored in the transposition table.
type Bound uint8

const (
	BoundNone  Bound = 0
	BoundUpper Bound = 1 // failed low
	BoundLower Bound = 2 // failed high
	BoundExact Bound = BoundUpper | BoundLower
)

// Stored depths are offset so that quiescence entries stay positive.
const (
	DepthQS     = 0
	DepthNone   = -6
	depthOffset = -7
)

// Generation bits share a byte with the PV flag and the bound.
const (
	generationBits  = 3
	generationDelta = 1 << generationBits
	generationCycle = 255 + generationDelta
	generationMask  = (0xFF << generationBits) & 0xFF
)

const (
	clusterSize  = 4
	MinHashMB    = 1
	MaxHashMB    = 1 << 16
	clusterBytes = clusterSize * 16
)

// ErrInvalidHashSize is returned for a table size outside [MinHashMB, MaxHashMB].
var ErrInvalidHashSize = errors.New("invalid hash size")

// ttEntry is two words written and read without locks:
//
//	data: move 16 | score 16 | eval 16 | key16 16
//	meta: key16 16 | verify 32 | depth 8 | generation 5, pv 1, bound 2
//
// The 16-bit key is stored in both words so that a read racing with a write
// of a different position shows mismatching halves and is treated as a miss.
type ttEntry struct {
	data atomic.Uint64
	meta atomic.Uint64
}

type ttCluster [clusterSize]ttEntry

// TTData is a decoded entry.
type TTData struct {
	Move  board.Move
	Score int
	Eval  int
	Depth int
	Bound Bound
	PV    bool
}

type unpacked struct {
	TTData
	key16  uint16
	verify uint32
	depth8 uint8
	genB   uint8
}

func (e *ttEntry) load() (u unpacked, consistent bool) {
	d := e.data.Load()
	m := e.meta.Load()
	u.Move = board.Move(d)
	u.Score = int(int16(d >> 16))
	u.Eval = int(int16(d >> 32))
	u.key16 = uint16(m)
	u.verify = uint32(m >> 16)
	u.depth8 = uint8(m >> 48)
	u.genB = uint8(m >> 56)
	u.Depth = int(u.depth8) + depthOffset
	u.Bound = Bound(u.genB & 3)
	u.PV = u.genB&4 != 0
	return u, uint16(d>>48) == u.key16
}

func (e *ttEntry) store(u *unpacked) {
	d := uint64(u.Move) | uint64(uint16(int16(u.Score)))<<16 |
		uint64(uint16(int16(u.Eval)))<<32 | uint64(u.key16)<<48
	m := uint64(u.key16) | uint64(u.verify)<<16 | uint64(u.depth8)<<48 | uint64(u.genB)<<56
	e.data.Store(d)
	e.meta.Store(m)
}

func keyParts(key uint64) (uint16, uint32) {
	return uint16(key >> 48), uint32(key >> 16)
}

// relativeAge is how many searches ago an entry was written, times
// generationDelta.
func (tt *TranspositionTable) relativeAge(genB uint8) int {
	return (generationCycle + int(tt.generation.Load()) - int(genB)) & generationMask
}

// TranspositionTable is a lock-free hash table shared by every worker.
type TranspositionTable struct {
	clusters   []ttCluster
	mask       uint64
	generation atomic.Uint32 // low generationBits are always zero
}

// NewTranspositionTable creates a table of sizeMB megabytes.
func NewTranspositionTable(sizeMB int) (*TranspositionTable, error) {
	tt := &TranspositionTable{}
	if err := tt.Resize(sizeMB); err != nil {
		return nil, err
	}
	return tt, nil
}

// Resize reallocates the table. Its contents are lost.
func (tt *TranspositionTable) Resize(sizeMB int) error {
	if sizeMB < MinHashMB || sizeMB > MaxHashMB {
		return fmt.Errorf("%w: %d MB", ErrInvalidHashSize, sizeMB)
	}
	n := roundDownToPowerOf2(uint64(sizeMB) * 1024 * 1024 / clusterBytes)
	tt.clusters = make([]ttCluster, n)
	tt.mask = n - 1
	tt.generation.Store(0)
	log.Debug().Int("mb", sizeMB).Uint64("clusters", n).Msg("transposition table resized")
	return nil
}

// roundDownToPowerOf2 rounds n down to the nearest power of 2.
func roundDownToPowerOf2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

func (tt *TranspositionTable) cluster(key uint64) *ttCluster {
	return &tt.clusters[key&tt.mask]
}

// Prefetch touches the cluster of key ahead of the lookup.
func (tt *TranspositionTable) Prefetch(key uint64) {
	_ = tt.cluster(key)[0].meta.Load()
}

// TTWriter is the slot a lookup selected for the node's result.
type TTWriter struct {
	tt    *TranspositionTable
	entry *ttEntry
}

// Lookup finds key. It returns the decoded entry and whether it is a hit,
// and a writer for the slot to update: the matching entry on a hit, otherwise
// the least valuable entry of the cluster. A written entry always has a
// nonzero stored depth, so a hit may still carry BoundNone when only the
// static evaluation was cached.
func (tt *TranspositionTable) Lookup(key uint64) (TTData, bool, TTWriter) {
	cl := tt.cluster(key)
	key16, verify := keyParts(key)

	for i := range cl {
		u, ok := cl[i].load()
		if ok && u.depth8 != 0 && u.key16 == key16 && u.verify == verify {
			return u.TTData, true, TTWriter{tt, &cl[i]}
		}
	}

	replace := &cl[0]
	best := 1 << 30
	for i := range cl {
		u, _ := cl[i].load()
		v := int(u.depth8) - tt.relativeAge(u.genB)
		if v < best {
			best = v
			replace = &cl[i]
		}
	}
	return TTData{Move: board.NoMove, Score: noScore, Eval: noScore, Depth: DepthNone}, false, TTWriter{tt, replace}
}

// Write stores a search result for key, keeping a deeper result for the same
// position from the current search unless the new one is exact.
func (w TTWriter) Write(key uint64, score int, pv bool, bound Bound, depth int, move board.Move, eval int) {
	key16, verify := keyParts(key)
	old, _ := w.entry.load()
	sameKey := old.key16 == key16 && old.verify == verify

	if move == board.NoMove && sameKey {
		move = old.Move
	}
	if bound != BoundExact && sameKey &&
		depth-depthOffset+2*b2i(pv) <= int(old.depth8)-4 &&
		w.tt.relativeAge(old.genB) == 0 {
		if move != old.Move {
			old.Move = move
			w.entry.store(&old)
		}
		return
	}

	u := unpacked{key16: key16, verify: verify}
	u.Move = move
	u.Score = score
	u.Eval = eval
	u.depth8 = uint8(depth - depthOffset)
	u.genB = uint8(w.tt.generation.Load()) | uint8(b2i(pv))<<2 | uint8(bound)
	w.entry.store(&u)
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// NewSearch advances the generation so older entries age out.
func (tt *TranspositionTable) NewSearch() {
	tt.generation.Store((tt.generation.Load() + generationDelta) & 0xFF)
}

// Clear zeroes the table using up to threads goroutines.
func (tt *TranspositionTable) Clear(threads int) {
	threads = max(threads, 1)
	chunk := (len(tt.clusters) + threads - 1) / threads
	var g errgroup.Group
	for start := 0; start < len(tt.clusters); start += chunk {
		part := tt.clusters[start:min(start+chunk, len(tt.clusters))]
		g.Go(func() error {
			clear(part)
			return nil
		})
	}
	_ = g.Wait()
	tt.generation.Store(0)
}

// Hashfull returns the permille of entries written by the current search.
func (tt *TranspositionTable) Hashfull() int {
	n := min(1000, len(tt.clusters))
	used := 0
	for i := 0; i < n; i++ {
		for j := range tt.clusters[i] {
			u, _ := tt.clusters[i][j].load()
			if u.depth8 != 0 && tt.relativeAge(u.genB) == 0 {
				used++
			}
		}
	}
	return used * 1000 / (n * clusterSize)
}

// AdjustScoreToTT converts a mate score from distance-to-root to
// distance-to-node before storing it.
func AdjustScoreToTT(score, ply int) int {
	switch {
	case score == noScore:
		return score
	case score >= MateInMaxPly:
		return score + ply
	case score <= -MateInMaxPly:
		return score - ply
	}
	return score
}

// AdjustScoreFromTT converts a stored mate score back to distance-to-root.
func AdjustScoreFromTT(score, ply int) int {
	switch {
	case score == noScore:
		return score
	case score >= MateInMaxPly:
		return score - ply
	case score <= -MateInMaxPly:
		return score + ply
	}
	return score
}
