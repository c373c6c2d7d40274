package main

import (
	"strings"
	"testing"
)

const shortGame = `[Event "Test"]
[Site "?"]
[Date "2024.01.01"]
[Round "1"]
[White "A"]
[Black "B"]
[Result "*"]

1. Nf3 Nf6 2. Ng1 Ng8 3. e4 *
`

func TestGameFromPGN(t *testing.T) {
	pos, history, err := gameFromPGN(strings.NewReader(shortGame))
	if err != nil {
		t.Fatalf("gameFromPGN: %v", err)
	}

	// The en passant field depends on how the PGN library writes FEN.
	want := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq"
	if got := pos.ToFEN(); !strings.HasPrefix(got, want) {
		t.Errorf("final position %s, want %s ...", got, want)
	}
	if len(history) != 5 {
		t.Fatalf("history has %d keys, want 5", len(history))
	}
	if history[0] != history[4] {
		t.Error("start position key does not repeat after the knight shuffle")
	}
}

func TestGameFromPGNRejectsGarbage(t *testing.T) {
	if _, _, err := gameFromPGN(strings.NewReader("1. e5 e4 2. Qxh8 *")); err == nil {
		t.Error("illegal game accepted")
	}
}
