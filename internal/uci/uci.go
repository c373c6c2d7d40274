// Package uci implements the Universal Chess Interface front-end.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hailam/nnsearch/internal/board"
	"github.com/hailam/nnsearch/internal/engine"
	"github.com/hailam/nnsearch/internal/nnue"
)

const (
	engineName   = "nnsearch"
	engineAuthor = "the nnsearch authors"
)

// NetworkLoader reads a network file. It is nnue.LoadFile outside tests.
type NetworkLoader func(path string) (*nnue.Network, error)

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine   *engine.Engine
	net      *nnue.Network
	loadNet  NetworkLoader
	position *board.Position

	// Keys of the positions before position, for repetition detection.
	history []uint64

	outMu sync.Mutex
	out   io.Writer

	search *engine.SearchHandle
	done   chan struct{} // closed once bestmove has been written
}

// New creates a UCI handler around eng, which evaluates with net.
func New(eng *engine.Engine, net *nnue.Network, out io.Writer) *UCI {
	return &UCI{
		engine:   eng,
		net:      net,
		loadNet:  nnue.LoadFile,
		position: board.NewPosition(),
		out:      out,
	}
}

// SetNetworkLoader replaces the function used by "setoption name EvalFile".
func (u *UCI) SetNetworkLoader(fn NetworkLoader) {
	u.loadNet = fn
}

func (u *UCI) println(format string, args ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintf(u.out, format+"\n", args...)
}

// Run reads commands from in until "quit" or end of input. At end of input a
// running search is allowed to finish.
func (u *UCI) Run(in io.Reader) error {
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]
		log.Debug().Str("cmd", line).Msg("uci command")

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			u.println("readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.handleStop()
		case "quit":
			u.handleStop()
			return nil
		case "setoption":
			u.handleSetOption(args)
		// Debug commands
		case "d":
			u.println("%s", u.position.String())
			u.println("Fen: %s", u.position.ToFEN())
		case "eval":
			u.handleEval()
		case "perft":
			u.handlePerft(args)
		default:
			u.println("info string unknown command: %s", cmd)
		}
	}

	u.waitSearch()
	return scanner.Err()
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	opts := u.engine.Options()
	u.println("id name %s", engineName)
	u.println("id author %s", engineAuthor)
	u.println("")
	u.println("option name Hash type spin default %d min 1 max 65536", opts.HashMB)
	u.println("option name Threads type spin default %d min 1 max %d", opts.Threads, engine.MaxThreads)
	u.println("option name MoveOverhead type spin default %d min 0 max 5000", opts.MoveOverhead.Milliseconds())
	u.println("option name EvalFile type string default %s", orEmpty(opts.EvalFile))
	u.println("option name Clear Hash type button")
	u.println("uciok")
}

func orEmpty(s string) string {
	if s == "" {
		return "<empty>"
	}
	return s
}

// handleNewGame resets the engine for a new game.
func (u *UCI) handleNewGame() {
	u.handleStop()
	u.engine.NewGame()
	u.position = board.NewPosition()
	u.history = nil
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	movesAt := len(args)
	for i, arg := range args {
		if arg == "moves" {
			movesAt = i
			break
		}
	}

	var pos *board.Position
	switch args[0] {
	case "startpos":
		pos = board.NewPosition()
	case "fen":
		var err error
		pos, err = board.ParseFEN(strings.Join(args[1:movesAt], " "))
		if err != nil {
			u.println("info string invalid FEN: %v", err)
			return
		}
	default:
		return
	}

	var history []uint64
	if movesAt < len(args) {
		for _, s := range args[movesAt+1:] {
			m, err := parseLegalMove(pos, s)
			if err != nil {
				u.println("info string %v", err)
				return
			}
			history = append(history, pos.Hash)
			pos.MakeMove(m)
		}
	}

	u.position = pos
	u.history = history
}

// parseLegalMove converts a UCI move string to a legal move of pos.
func parseLegalMove(pos *board.Position, s string) (board.Move, error) {
	m, err := board.ParseMove(s, pos)
	if err != nil {
		return board.NoMove, fmt.Errorf("invalid move %s: %w", s, err)
	}
	if !pos.GenerateLegalMoves().Contains(m) {
		return board.NoMove, fmt.Errorf("illegal move %s", s)
	}
	return m, nil
}

// ParseGo converts "go" command arguments to a search config. Malformed
// values are ignored.
func ParseGo(args []string) engine.SearchConfig {
	var cfg engine.SearchConfig

	next := func(i *int) (int64, bool) {
		if *i+1 >= len(args) {
			return 0, false
		}
		*i++
		v, err := strconv.ParseInt(args[*i], 10, 64)
		return v, err == nil
	}
	ms := func(v int64) time.Duration {
		return time.Duration(max(v, 0)) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "infinite":
			cfg.Infinite = true
		case "depth":
			if v, ok := next(&i); ok {
				cfg.Depth = int(v)
			}
		case "nodes":
			if v, ok := next(&i); ok && v > 0 {
				cfg.Nodes = uint64(v)
			}
		case "movetime":
			if v, ok := next(&i); ok {
				cfg.MoveTime = ms(v)
			}
		case "wtime":
			if v, ok := next(&i); ok {
				cfg.Time[board.White] = ms(v)
			}
		case "btime":
			if v, ok := next(&i); ok {
				cfg.Time[board.Black] = ms(v)
			}
		case "winc":
			if v, ok := next(&i); ok {
				cfg.Inc[board.White] = ms(v)
			}
		case "binc":
			if v, ok := next(&i); ok {
				cfg.Inc[board.Black] = ms(v)
			}
		case "movestogo":
			if v, ok := next(&i); ok {
				cfg.MovesToGo = int(v)
			}
		}
	}
	return cfg
}

// handleGo starts a search in the background. The best move is written when
// it ends.
func (u *UCI) handleGo(args []string) {
	u.handleStop()

	cfg := ParseGo(args)
	root := u.position.Copy()
	u.engine.OnInfo = func(info engine.SearchInfo) {
		u.sendInfo(root, info)
	}

	u.search = u.engine.StartSearch(context.Background(), u.position.Copy(), u.history, cfg)
	u.done = make(chan struct{})

	h, done := u.search, u.done
	go func() {
		defer close(done)
		res := h.Wait()
		if res.BestMove == board.NoMove {
			u.println("bestmove 0000")
			return
		}
		if res.Ponder != board.NoMove {
			u.println("bestmove %s ponder %s", res.BestMove, res.Ponder)
			return
		}
		u.println("bestmove %s", res.BestMove)
	}()
}

// sendInfo outputs search info in UCI format.
func (u *UCI) sendInfo(root *board.Position, info engine.SearchInfo) {
	var b strings.Builder
	fmt.Fprintf(&b, "info depth %d seldepth %d score %s nodes %d nps %d time %d hashfull %d",
		info.Depth, info.SelDepth, engine.UCIScore(info.Score), info.Nodes, info.NPS,
		info.Time.Milliseconds(), info.HashFull)

	if pv := legalPrefix(root, info.PV); len(pv) > 0 {
		b.WriteString(" pv")
		for _, m := range pv {
			b.WriteByte(' ')
			b.WriteString(m.String())
		}
	}
	u.println("%s", b.String())
}

// legalPrefix returns the longest prefix of pv that is playable from root.
// A PV built from hash moves can end in a move a colliding entry supplied.
func legalPrefix(root *board.Position, pv []board.Move) []board.Move {
	pos := root.Copy()
	for i, m := range pv {
		if !pos.GenerateLegalMoves().Contains(m) {
			return pv[:i]
		}
		pos.MakeMove(m)
	}
	return pv
}

// handleStop stops the current search and waits for its best move.
func (u *UCI) handleStop() {
	if u.search == nil {
		return
	}
	u.search.Stop()
	u.waitSearch()
}

func (u *UCI) waitSearch() {
	if u.done != nil {
		<-u.done
	}
	u.search = nil
	u.done = nil
}

// handleSetOption processes "setoption name <name> [value <value>]".
func (u *UCI) handleSetOption(args []string) {
	var name, value []string
	target := &name
	for _, arg := range args {
		switch arg {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			*target = append(*target, arg)
		}
	}
	key := strings.ToLower(strings.Join(name, " "))
	val := strings.Join(value, " ")

	u.handleStop()

	switch key {
	case "hash":
		mb, err := strconv.Atoi(val)
		if err == nil {
			err = u.engine.SetHash(mb)
		}
		if err != nil {
			u.println("info string invalid Hash %q: %v", val, err)
		}
	case "threads":
		n, err := strconv.Atoi(val)
		if err == nil {
			err = u.engine.SetThreads(n)
		}
		if err != nil {
			u.println("info string invalid Threads %q: %v", val, err)
		}
	case "moveoverhead":
		ms, err := strconv.Atoi(val)
		if err != nil {
			u.println("info string invalid MoveOverhead %q", val)
			return
		}
		u.engine.SetMoveOverhead(time.Duration(ms) * time.Millisecond)
	case "evalfile":
		net, err := u.loadNet(val)
		if err != nil {
			u.println("info string failed to load network: %v", err)
			return
		}
		u.net = net
		u.engine.SetNetwork(net, val)
		log.Info().Str("path", val).Msg("network loaded")
		u.println("info string network loaded from %s", val)
	case "clear hash":
		u.engine.ClearHash()
	default:
		u.println("info string unknown option: %s", strings.Join(name, " "))
	}
}

// handleEval prints the static evaluation of the current position from the
// side to move's point of view.
func (u *UCI) handleEval() {
	ev := nnue.NewEvaluator(u.net)
	ev.Refresh(u.position)
	v := ev.Evaluate(u.position)
	u.println("info string eval %s (side to move)", engine.ScoreToString(v))
}

// handlePerft runs a perft test with a per-move breakdown.
func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		if d, err := strconv.Atoi(args[0]); err == nil && d > 0 {
			depth = d
		}
	}

	start := time.Now()
	pos := u.position.Copy()
	var total uint64
	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := pos.MakeMove(m)
		n := engine.Perft(pos, depth-1)
		pos.UnmakeMove(m, undo)
		u.println("%s: %d", m, n)
		total += n
	}
	elapsed := time.Since(start)

	u.println("")
	u.println("Nodes: %d", total)
	u.println("Time: %v", elapsed)
	if elapsed > 0 {
		u.println("NPS: %.0f", float64(total)/elapsed.Seconds())
	}
}
