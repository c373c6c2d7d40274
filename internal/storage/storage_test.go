package storage

import (
	"errors"
	"os"
	"testing"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func openTemp(t *testing.T) *AnalysisStore {
	t.Helper()
	s, err := Open(Options{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAnalysisRoundTrip(t *testing.T) {
	s := openTemp(t)
	const hash = 0x463b96181691fc9c

	if _, err := s.GetAnalysis(hash, startFEN); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty store: got %v, want ErrNotFound", err)
	}

	a := &Analysis{FEN: startFEN, BestMove: "e2e4", Score: 25, Depth: 12, Nodes: 123456, PV: []string{"e2e4", "e7e5"}}
	if ok, err := s.PutAnalysis(hash, a); err != nil || !ok {
		t.Fatalf("PutAnalysis = %v, %v", ok, err)
	}

	got, err := s.GetAnalysis(hash, startFEN)
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	if got.BestMove != "e2e4" || got.Depth != 12 || got.Nodes != 123456 || len(got.PV) != 2 {
		t.Errorf("got %+v", got)
	}
	if got.At.IsZero() {
		t.Error("timestamp not set")
	}

	if _, err := s.GetAnalysis(hash, "8/8/8/8/8/8/8/K6k w - - 0 1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("different FEN under the same key: got %v", err)
	}
}

func TestAnalysisKeepsDeeperRecord(t *testing.T) {
	s := openTemp(t)
	const hash = 42

	s.PutAnalysis(hash, &Analysis{FEN: startFEN, BestMove: "d2d4", Depth: 20})
	ok, err := s.PutAnalysis(hash, &Analysis{FEN: startFEN, BestMove: "e2e4", Depth: 8})
	if err != nil {
		t.Fatalf("PutAnalysis: %v", err)
	}
	if ok {
		t.Error("shallower record replaced a deeper one")
	}
	got, _ := s.GetAnalysis(hash, startFEN)
	if got.BestMove != "d2d4" {
		t.Errorf("best move %s, want d2d4", got.BestMove)
	}

	if err := s.DeleteAnalysis(hash); err != nil {
		t.Fatalf("DeleteAnalysis: %v", err)
	}
	if _, err := s.GetAnalysis(hash, startFEN); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete: %v", err)
	}
}

func TestForEachAnalysis(t *testing.T) {
	s, err := Open(Options{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	hashes := []uint64{3, 1, 0xffffffffffffffff}
	for _, h := range hashes {
		s.PutAnalysis(h, &Analysis{FEN: startFEN, Depth: int(h % 100)})
	}
	s.SavePreferences(&Preferences{HashMB: 64})

	var seen []uint64
	err = s.ForEachAnalysis(func(hash uint64, a *Analysis) error {
		seen = append(seen, hash)
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachAnalysis: %v", err)
	}
	want := []uint64{1, 3, 0xffffffffffffffff}
	if len(seen) != len(want) {
		t.Fatalf("visited %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("visited %v, want %v", seen, want)
			break
		}
	}
}

func TestPreferences(t *testing.T) {
	s := openTemp(t)

	prefs, err := s.LoadPreferences()
	if err != nil {
		t.Fatalf("LoadPreferences: %v", err)
	}
	if prefs.HashMB != 16 || prefs.Threads != 1 {
		t.Errorf("defaults %+v", prefs)
	}

	if err := s.SavePreferences(&Preferences{HashMB: 256, Threads: 4, EvalFile: "net.bin"}); err != nil {
		t.Fatalf("SavePreferences: %v", err)
	}
	prefs, _ = s.LoadPreferences()
	if prefs.HashMB != 256 || prefs.Threads != 4 || prefs.EvalFile != "net.bin" {
		t.Errorf("loaded %+v", prefs)
	}
}

func TestDataPaths(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	dataDir, err := GetDataDir()
	if err != nil {
		t.Fatalf("GetDataDir failed: %v", err)
	}
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Errorf("data directory was not created: %s", dataDir)
	}

	for _, get := range []func() (string, error){GetNetworkDir, GetDatabaseDir} {
		dir, err := get()
		if err != nil {
			t.Fatalf("%v", err)
		}
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("%s: %v", dir, err)
		}
	}
	t.Logf("data directory: %s", dataDir)
}
