package uci

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hailam/nnsearch/internal/board"
	"github.com/hailam/nnsearch/internal/engine"
	"github.com/hailam/nnsearch/internal/nnue"
)

func newTestUCI(t *testing.T) (*UCI, *bytes.Buffer) {
	t.Helper()
	net := nnue.NewRandomNetwork(7)
	opts := engine.DefaultOptions()
	opts.HashMB = 4
	eng, err := engine.New(net, opts)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	var out bytes.Buffer
	return New(eng, net, &out), &out
}

func run(t *testing.T, u *UCI, script ...string) {
	t.Helper()
	if err := u.Run(strings.NewReader(strings.Join(script, "\n") + "\n")); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestHandshake(t *testing.T) {
	u, out := newTestUCI(t)
	run(t, u, "uci", "isready")

	got := out.String()
	for _, want := range []string{"id name nnsearch", "option name Hash", "option name Threads", "option name EvalFile", "uciok", "readyok"} {
		if !strings.Contains(got, want) {
			t.Errorf("output lacks %q:\n%s", want, got)
		}
	}
}

func TestPositionWithMoves(t *testing.T) {
	u, _ := newTestUCI(t)
	run(t, u, "position startpos moves e2e4 e7e5 g1f3")

	want := "rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 1 2"
	if got := u.position.ToFEN(); got != want {
		t.Errorf("position %s, want %s", got, want)
	}
	if len(u.history) != 3 || u.history[0] != board.NewPosition().Hash {
		t.Errorf("history %x", u.history)
	}

	run(t, u, "position fen 8/8/8/8/8/8/8/K6k w - - 0 1 moves a1b1")
	if got := u.position.ToFEN(); got != "8/8/8/8/8/8/8/1K5k b - - 1 1" {
		t.Errorf("fen position %s", got)
	}
}

func TestPositionRejectsIllegalMove(t *testing.T) {
	u, out := newTestUCI(t)
	run(t, u, "position startpos moves e2e4", "position startpos moves e2e5")

	if !strings.Contains(out.String(), "illegal move e2e5") {
		t.Errorf("no error for illegal move:\n%s", out.String())
	}
	if u.position.SideToMove != board.Black {
		t.Error("illegal move sequence replaced the previous position")
	}
}

func TestGoDepth(t *testing.T) {
	u, out := newTestUCI(t)
	run(t, u, "position startpos", "go depth 3")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	last := lines[len(lines)-1]
	if !strings.HasPrefix(last, "bestmove ") {
		t.Fatalf("last line %q is not a bestmove", last)
	}
	m, err := parseLegalMove(board.NewPosition(), strings.Fields(last)[1])
	if err != nil {
		t.Errorf("bestmove: %v", err)
	}
	t.Logf("bestmove %v", m)

	infos := 0
	for _, l := range lines {
		if strings.HasPrefix(l, "info depth ") {
			infos++
			if !strings.Contains(l, " pv ") {
				t.Errorf("info without pv: %q", l)
			}
		}
	}
	if infos != 3 {
		t.Errorf("got %d info lines, want 3", infos)
	}
}

func TestGoMatedPosition(t *testing.T) {
	u, out := newTestUCI(t)
	run(t, u, "position fen R5k1/5ppp/8/8/8/8/8/6K1 b - - 0 1", "go depth 2")
	if !strings.Contains(out.String(), "bestmove 0000") {
		t.Errorf("expected null bestmove:\n%s", out.String())
	}
}

func TestStopInfinite(t *testing.T) {
	u, out := newTestUCI(t)
	run(t, u, "position startpos")

	u.handleGo([]string{"infinite"})
	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		u.handleStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("stop did not end the search")
	}

	u.outMu.Lock()
	defer u.outMu.Unlock()
	if !strings.Contains(out.String(), "bestmove ") {
		t.Errorf("no bestmove after stop:\n%s", out.String())
	}
}

func TestParseGo(t *testing.T) {
	cfg := ParseGo(strings.Fields("wtime 60000 btime 30000 winc 1000 binc 500 movestogo 20 depth 9 nodes 5000"))
	if cfg.Time[board.White] != time.Minute || cfg.Time[board.Black] != 30*time.Second {
		t.Errorf("times %v", cfg.Time)
	}
	if cfg.Inc[board.White] != time.Second || cfg.Inc[board.Black] != 500*time.Millisecond {
		t.Errorf("increments %v", cfg.Inc)
	}
	if cfg.MovesToGo != 20 || cfg.Depth != 9 || cfg.Nodes != 5000 {
		t.Errorf("cfg %+v", cfg)
	}

	cfg = ParseGo(strings.Fields("movetime abc infinite depth"))
	if !cfg.Infinite || cfg.MoveTime != 0 || cfg.Depth != 0 {
		t.Errorf("malformed arguments: %+v", cfg)
	}
}

func TestSetOption(t *testing.T) {
	u, out := newTestUCI(t)
	loaded := ""
	u.SetNetworkLoader(func(path string) (*nnue.Network, error) {
		if path == "missing.bin" {
			return nil, errors.New("no such file")
		}
		loaded = path
		return nnue.NewRandomNetwork(3), nil
	})

	run(t, u,
		"setoption name Hash value 8",
		"setoption name Threads value 2",
		"setoption name MoveOverhead value 30",
		"setoption name EvalFile value my net.bin",
		"setoption name EvalFile value missing.bin",
		"setoption name Threads value 0",
		"setoption name Clear Hash",
	)

	opts := u.engine.Options()
	if opts.HashMB != 8 || opts.Threads != 2 || opts.MoveOverhead != 30*time.Millisecond {
		t.Errorf("options %+v", opts)
	}
	if loaded != "my net.bin" || opts.EvalFile != "my net.bin" {
		t.Errorf("loaded %q, EvalFile %q", loaded, opts.EvalFile)
	}
	got := out.String()
	if !strings.Contains(got, "failed to load network") {
		t.Errorf("missing network not reported:\n%s", got)
	}
	if !strings.Contains(got, "invalid Threads") {
		t.Errorf("bad thread count not reported:\n%s", got)
	}
}

func TestPerftCommand(t *testing.T) {
	u, out := newTestUCI(t)
	run(t, u, "perft 2")
	if !strings.Contains(out.String(), "Nodes: 400") {
		t.Errorf("perft 2 output:\n%s", out.String())
	}
}
