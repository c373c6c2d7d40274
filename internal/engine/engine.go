package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/nnsearch/internal/board"
	"github.com/hailam/nnsearch/internal/nnue"
)

// MaxThreads bounds the number of search workers.
const MaxThreads = 256

// ErrInvalidThreads is returned for a worker count outside [1, MaxThreads].
var ErrInvalidThreads = errors.New("invalid thread count")

// Options configures an Engine.
type Options struct {
	HashMB       int
	Threads      int
	MoveOverhead time.Duration // subtracted from the clock for communication lag
	EvalFile     string
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		HashMB:       16,
		Threads:      1,
		MoveOverhead: 10 * time.Millisecond,
	}
}

// SearchConfig limits one search. Zero values mean no limit of that kind;
// a config with no limit at all searches to the maximum depth.
type SearchConfig struct {
	Depth     int
	Nodes     uint64
	MoveTime  time.Duration
	Time      [2]time.Duration // remaining clock per color
	Inc       [2]time.Duration
	MovesToGo int
	Infinite  bool
}

// SearchInfo reports a completed iteration of the main worker.
type SearchInfo struct {
	Depth    int
	SelDepth int
	Score    int
	Nodes    uint64
	NPS      uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int // permille
}

// SearchResult is the outcome of a search.
type SearchResult struct {
	BestMove board.Move
	Ponder   board.Move
	Score    int
	Depth    int
	SelDepth int
	Nodes    uint64
	PV       []board.Move
	Time     time.Duration
}

// Engine runs searches over a shared transposition table with one or more
// workers.
type Engine struct {
	mu      sync.Mutex // held for the duration of a search
	opts    Options
	tt      *TranspositionTable
	net     *nnue.Network
	workers []*Worker
	stop    atomic.Bool

	cancelMu sync.Mutex
	cancel   context.CancelFunc

	// OnInfo, when set, is called by the main worker after every iteration.
	OnInfo func(SearchInfo)
}

// New creates an engine evaluating with net.
func New(net *nnue.Network, opts Options) (*Engine, error) {
	tt, err := NewTranspositionTable(opts.HashMB)
	if err != nil {
		return nil, err
	}
	e := &Engine{opts: opts, tt: tt, net: net}
	if err := e.setThreads(opts.Threads); err != nil {
		return nil, err
	}
	return e, nil
}

// Options returns the current configuration.
func (e *Engine) Options() Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts
}

// SetHash resizes the transposition table. Its contents are lost.
func (e *Engine) SetHash(mb int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.tt.Resize(mb); err != nil {
		return err
	}
	e.opts.HashMB = mb
	return nil
}

// SetThreads changes the number of search workers.
func (e *Engine) SetThreads(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setThreads(n)
}

func (e *Engine) setThreads(n int) error {
	if n < 1 || n > MaxThreads {
		return fmt.Errorf("%w: %d", ErrInvalidThreads, n)
	}
	for len(e.workers) > n {
		e.workers = e.workers[:len(e.workers)-1]
	}
	for len(e.workers) < n {
		e.workers = append(e.workers, newWorker(len(e.workers), e.tt, &e.stop, e.net))
	}
	e.opts.Threads = n
	log.Debug().Int("threads", n).Msg("search workers configured")
	return nil
}

// SetMoveOverhead sets the time reserved per move for communication lag.
func (e *Engine) SetMoveOverhead(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.MoveOverhead = max(d, 0)
}

// SetNetwork replaces the evaluation network. Each worker gets a fresh
// evaluator.
func (e *Engine) SetNetwork(net *nnue.Network, path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.net = net
	e.opts.EvalFile = path
	for i, w := range e.workers {
		e.workers[i] = newWorker(w.id, e.tt, &e.stop, net)
	}
}

// NewGame forgets everything learned in previous searches.
func (e *Engine) NewGame() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tt.Clear(len(e.workers))
	for _, w := range e.workers {
		w.hist.clear()
		w.corr.Clear()
		w.eval.ResetCache()
	}
}

// ClearHash empties the transposition table only.
func (e *Engine) ClearHash() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tt.Clear(len(e.workers))
}

// SearchHandle is a search running in the background.
type SearchHandle struct {
	done   chan struct{}
	cancel context.CancelFunc
	result SearchResult
}

// Wait blocks until the search ends and returns its result.
func (h *SearchHandle) Wait() SearchResult {
	<-h.done
	return h.result
}

// Done is closed when the search has ended.
func (h *SearchHandle) Done() <-chan struct{} {
	return h.done
}

// Stop asks the search to end. The best move found so far is kept.
func (h *SearchHandle) Stop() {
	h.cancel()
}

// Stop ends the running search, if any.
func (e *Engine) Stop() {
	e.cancelMu.Lock()
	defer e.cancelMu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// Search runs a search to completion.
func (e *Engine) Search(ctx context.Context, pos *board.Position, history []uint64, cfg SearchConfig) SearchResult {
	return e.StartSearch(ctx, pos, history, cfg).Wait()
}

// StartSearch starts searching pos in the background. history holds the keys
// of the positions played before pos, for repetition detection. The search
// ends when a limit of cfg is reached, ctx is cancelled, or Stop is called.
func (e *Engine) StartSearch(ctx context.Context, pos *board.Position, history []uint64, cfg SearchConfig) *SearchHandle {
	e.mu.Lock()

	ctx, cancel := context.WithCancel(ctx)
	h := &SearchHandle{done: make(chan struct{}), cancel: cancel}
	e.cancelMu.Lock()
	e.cancel = cancel
	e.cancelMu.Unlock()

	e.stop.Store(false)
	e.tt.NewSearch()
	rms := newRootMoves(pos)

	go func() {
		defer e.mu.Unlock()
		defer close(h.done)
		defer cancel()
		h.result = e.run(ctx, pos, history, cfg, rms)
	}()
	return h
}

func (e *Engine) run(ctx context.Context, pos *board.Position, history []uint64, cfg SearchConfig, rms rootMoves) SearchResult {
	start := time.Now()
	if len(rms) == 0 {
		score := DrawScore
		if pos.InCheck() {
			score = MatedIn(0)
		}
		return SearchResult{Score: score}
	}

	d := &searchDriver{
		ctx:      ctx,
		cfg:      cfg,
		interval: checkInterval,
		nodes:    e.nodes,
		hashfull: e.tt.Hashfull,
		onInfo:   e.OnInfo,
	}
	if cfg.Nodes > 0 {
		d.interval = int(max(1, min(uint64(checkInterval), cfg.Nodes/1024)))
	}
	gamePly := 2*(pos.FullMoveNumber-1) + int(pos.SideToMove)
	d.tm.Init(cfg, pos.SideToMove, gamePly, e.opts.MoveOverhead)

	maxDepth := MaxPly - 1
	if cfg.Depth > 0 {
		maxDepth = min(cfg.Depth, maxDepth)
	}

	log.Debug().
		Str("fen", pos.ToFEN()).
		Int("workers", len(e.workers)).
		Int("depth", cfg.Depth).
		Uint64("nodes", cfg.Nodes).
		Dur("optimum", d.tm.OptimumTime()).
		Dur("maximum", d.tm.MaximumTime()).
		Msg("search started")

	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			e.stop.Store(true)
		case <-watchDone:
		}
	}()

	var g errgroup.Group
	for _, w := range e.workers {
		w := w
		w.prepare(pos, history, rms)
		w.driver = nil
		if w.id == 0 {
			w.driver = d
		}
		// Helpers start at staggered depths so their trees diverge.
		startDepth := 1 + w.id%2
		g.Go(func() error {
			w.iterate(startDepth, maxDepth)
			if w.id == 0 {
				e.stop.Store(true)
			}
			return nil
		})
	}
	_ = g.Wait()

	res := e.collect()
	res.Time = time.Since(start)
	log.Debug().
		Str("best", res.BestMove.String()).
		Int("score", res.Score).
		Int("depth", res.Depth).
		Uint64("nodes", res.Nodes).
		Dur("elapsed", res.Time).
		Msg("search finished")
	return res
}

func (e *Engine) nodes() uint64 {
	var n uint64
	for _, w := range e.workers {
		n += w.Nodes()
	}
	return n
}

// collect takes the result of the worker with the deepest completed
// iteration, preferring the main worker on ties.
func (e *Engine) collect() SearchResult {
	best := e.workers[0]
	for _, w := range e.workers[1:] {
		if w.completedDepth > best.completedDepth {
			best = w
		}
	}

	rm := best.rootMoves[0]
	score := rm.Score
	if score == -Infinity {
		score = rm.PreviousScore
	}
	if score == -Infinity {
		score = DrawScore
	}
	res := SearchResult{
		BestMove: rm.Move,
		Score:    score,
		Depth:    best.completedDepth,
		SelDepth: rm.SelDepth,
		Nodes:    e.nodes(),
		PV:       append([]board.Move(nil), rm.PV...),
	}
	if len(rm.PV) > 1 {
		res.Ponder = rm.PV[1]
	}
	return res
}

// Perft counts the leaf nodes of the legal move tree to depth.
func Perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	moves := pos.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}
	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := pos.MakeMove(m)
		nodes += Perft(pos, depth-1)
		pos.UnmakeMove(m, undo)
	}
	return nodes
}
