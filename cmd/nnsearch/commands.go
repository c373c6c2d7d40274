package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/hailam/nnsearch/internal/board"
	"github.com/hailam/nnsearch/internal/engine"
	"github.com/hailam/nnsearch/internal/storage"
)

// benchFENs is the fixed bench suite.
var benchFENs = []string{
	board.StartFEN,
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
	"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	"r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10",
	"r1bqkb1r/pppp1ppp/2n2n2/4p2Q/2B1P3/8/PPPP1PPP/RNB1K1NR w KQkq - 4 4",
	"6k1/5ppp/8/8/8/8/5PPP/3R2K1 w - - 0 1",
	"8/8/4k3/8/2p5/8/B2P2K1/8 w - - 0 1",
	"2r3k1/pp3ppp/4p3/3pP3/3P4/P1R5/1P3PPP/6K1 b - - 0 25",
}

func runBench(args []string) error {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	depth := fs.Int("depth", 10, "search depth per position")
	if err := fs.Parse(args); err != nil {
		return errors.Join(errUsage, err)
	}

	eng, _, err := newEngine(nil)
	if err != nil {
		return err
	}

	log.Info().Int("positions", len(benchFENs)).Int("depth", *depth).Msg("bench started")
	start := time.Now()
	var nodes uint64
	for i, fen := range benchFENs {
		pos, err := board.ParseFEN(fen)
		if err != nil {
			return fmt.Errorf("bench position %d: %w", i+1, err)
		}
		eng.NewGame()
		res := eng.Search(context.Background(), pos, nil, engine.SearchConfig{Depth: *depth})
		nodes += res.Nodes
		fmt.Printf("Position %2d: %-6s %-10s %10d nodes\n", i+1, res.BestMove, engine.UCIScore(res.Score), res.Nodes)
	}
	elapsed := time.Since(start)

	fmt.Println("===========================")
	fmt.Printf("Total time (ms) : %d\n", elapsed.Milliseconds())
	fmt.Printf("Nodes searched  : %d\n", nodes)
	fmt.Printf("Nodes/second    : %d\n", uint64(float64(nodes)/max(elapsed.Seconds(), 1e-9)))
	return nil
}

func runPerft(args []string) error {
	fs := flag.NewFlagSet("perft", flag.ContinueOnError)
	depth := fs.Int("depth", 5, "perft depth")
	if err := fs.Parse(args); err != nil {
		return errors.Join(errUsage, err)
	}

	fen := board.StartFEN
	if fs.NArg() > 0 {
		fen = strings.Join(fs.Args(), " ")
	}
	pos, err := board.ParseFEN(fen)
	if err != nil {
		return err
	}

	start := time.Now()
	nodes := engine.Perft(pos, *depth)
	elapsed := time.Since(start)
	fmt.Printf("Nodes: %d\n", nodes)
	fmt.Printf("Time: %v\n", elapsed)
	if elapsed > 0 {
		fmt.Printf("NPS: %.0f\n", float64(nodes)/elapsed.Seconds())
	}
	return nil
}

// runAnalyze searches one position and prints the result with the principal
// variation in SAN. Results are cached in the analysis database; a cached
// record at least as deep as requested is printed without searching.
func runAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	depth := fs.Int("depth", 16, "search depth")
	moveTime := fs.Duration("movetime", 0, "search time, overrides -depth")
	nodes := fs.Uint64("nodes", 0, "node limit")
	dbDir := fs.String("db", "", "analysis database directory (default: data directory)")
	refresh := fs.Bool("refresh", false, "search even if a cached result exists")
	remember := fs.Bool("remember", false, "store -hash, -threads and -eval as preferences")
	ttl := fs.Duration("ttl", 0, "expire cached results after this long (0 keeps them)")
	pgnFile := fs.String("pgn", "", "analyze the final position of the first game in this PGN file")
	if err := fs.Parse(args); err != nil {
		return errors.Join(errUsage, err)
	}

	var (
		pos     *board.Position
		history []uint64
		err     error
	)
	switch {
	case *pgnFile != "":
		pos, history, err = gameFromPGNFile(*pgnFile)
	case fs.NArg() > 0 && fs.Arg(0) != "startpos":
		pos, err = board.ParseFEN(strings.Join(fs.Args(), " "))
	default:
		pos = board.NewPosition()
	}
	if err != nil {
		return err
	}
	fen := pos.ToFEN()

	store, err := storage.Open(storage.Options{Dir: *dbDir, TTL: *ttl})
	if err != nil {
		return err
	}
	defer store.Close()

	prefs, err := store.LoadPreferences()
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}
	if *remember {
		if *hashMB > 0 {
			prefs.HashMB = *hashMB
		}
		if *threads > 0 {
			prefs.Threads = *threads
		}
		if *evalFile != "" {
			prefs.EvalFile = *evalFile
		}
		if err := store.SavePreferences(prefs); err != nil {
			return fmt.Errorf("save preferences: %w", err)
		}
	}

	cfg := engine.SearchConfig{Depth: *depth, Nodes: *nodes, MoveTime: *moveTime}
	if *moveTime > 0 {
		cfg.Depth = 0
	}

	// Cached results ignore game history, so a game's final position is
	// always searched.
	if !*refresh && cfg.MoveTime == 0 && cfg.Nodes == 0 && len(history) == 0 {
		a, err := store.GetAnalysis(pos.Hash, fen)
		switch {
		case err == nil && a.Depth >= cfg.Depth:
			log.Info().Time("at", a.At).Msg("cached analysis")
			printAnalysis(a)
			return nil
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return err
		}
	}

	eng, _, err := newEngine(prefs)
	if err != nil {
		return err
	}
	eng.OnInfo = func(info engine.SearchInfo) {
		log.Info().
			Int("depth", info.Depth).
			Str("score", engine.UCIScore(info.Score)).
			Uint64("nodes", info.Nodes).
			Uint64("nps", info.NPS).
			Str("pv", joinMoves(info.PV)).
			Msg("iteration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	res := eng.Search(ctx, pos, history, cfg)

	a := &storage.Analysis{
		FEN:      fen,
		BestMove: res.BestMove.String(),
		Score:    res.Score,
		Depth:    res.Depth,
		Nodes:    res.Nodes,
		PV:       strings.Fields(joinMoves(res.PV)),
		SAN:      sanLine(pos, res.PV),
	}
	if res.Ponder != board.NoMove {
		a.Ponder = res.Ponder.String()
	}
	if res.BestMove == board.NoMove {
		a.BestMove = ""
	}
	if _, err := store.PutAnalysis(pos.Hash, a); err != nil {
		return fmt.Errorf("store analysis: %w", err)
	}
	printAnalysis(a)
	return nil
}

func printAnalysis(a *storage.Analysis) {
	fmt.Printf("FEN:   %s\n", a.FEN)
	if a.BestMove == "" {
		fmt.Printf("Score: %s (no legal moves)\n", engine.UCIScore(a.Score))
		return
	}
	fmt.Printf("Best:  %s\n", a.BestMove)
	fmt.Printf("Score: %s (%s)\n", engine.ScoreToString(a.Score), engine.UCIScore(a.Score))
	fmt.Printf("Depth: %d  Nodes: %d\n", a.Depth, a.Nodes)
	if len(a.SAN) > 0 {
		fmt.Printf("PV:    %s\n", strings.Join(a.SAN, " "))
	} else {
		fmt.Printf("PV:    %s\n", strings.Join(a.PV, " "))
	}
}

func joinMoves(pv []board.Move) string {
	return strings.Join(lo.Map(pv, func(m board.Move, _ int) string {
		return m.String()
	}), " ")
}

// sanLine renders pv in SAN with move numbers, stopping at the first move
// that is not legal.
func sanLine(root *board.Position, pv []board.Move) []string {
	pos := root.Copy()
	var out []string
	for i, m := range pv {
		if !pos.GenerateLegalMoves().Contains(m) {
			break
		}
		san := m.ToSAN(pos)
		switch {
		case pos.SideToMove == board.White:
			san = fmt.Sprintf("%d.%s", pos.FullMoveNumber, san)
		case i == 0:
			san = fmt.Sprintf("%d...%s", pos.FullMoveNumber, san)
		}
		out = append(out, san)
		pos.MakeMove(m)
	}
	return out
}
