package game

import (
	"errors"
	"testing"

	"github.com/pagesmith/chess-egg/internal/engine"
)

func sq(t *testing.T, v string) engine.Square {
	t.Helper()
	s, err := engine.ParseSquare(v)
	if err != nil {
		t.Fatalf("ParseSquare(%q): %v", v, err)
	}
	return s
}

func mustMove(t *testing.T, c *Controller, from, to string) *Result {
	t.Helper()
	res, err := c.PerformMove(sq(t, from), sq(t, to))
	if err != nil {
		t.Fatalf("PerformMove %s-%s: %v", from, to, err)
	}
	return res
}

// custom position helper: tests live in-package, so they may build the
// controller directly.
func controllerWithBoard(b *engine.Board, turn engine.Color) *Controller {
	c := New()
	c.board = b
	c.turn = turn
	return c
}

func TestOpeningPawnMove(t *testing.T) {
	c := New()
	if err := c.Select(sq(t, "e2")); err != nil {
		t.Fatalf("Select e2: %v", err)
	}
	res, err := c.AttemptMove(sq(t, "e2"), sq(t, "e4"))
	if err != nil {
		t.Fatalf("e2-e4: %v", err)
	}
	if res.Status != StatusPlay || res.Turn != engine.Black {
		t.Fatalf("after e4 black must be to move in play, got %s/%s", res.Status, res.Turn)
	}
	if p := c.Board().At(sq(t, "e4")); p == nil || !p.HasMoved {
		t.Fatalf("moved pawn must sit on e4 with hasMoved set, got %+v", p)
	}
	if c.Selection() != nil {
		t.Fatalf("selection must clear after a completed move")
	}
	if h := c.History(); len(h) != 1 || h[0].String() != "e2-e4" {
		t.Fatalf("history should be [e2-e4], got %v", h)
	}
}

func TestSelectRules(t *testing.T) {
	c := New()
	if err := c.Select(sq(t, "e4")); !errors.Is(err, ErrEmptySquare) {
		t.Fatalf("selecting an empty square: got %v", err)
	}
	if err := c.Select(sq(t, "e7")); !errors.Is(err, ErrNotYourPiece) {
		t.Fatalf("selecting a black piece on white's turn: got %v", err)
	}
	if err := c.Select(sq(t, "g1")); err != nil {
		t.Fatalf("Select g1: %v", err)
	}
	// a later select replaces the prior one
	if err := c.Select(sq(t, "b1")); err != nil {
		t.Fatalf("Select b1: %v", err)
	}
	if s := c.Selection(); s == nil || *s != sq(t, "b1") {
		t.Fatalf("selection should be b1, got %v", s)
	}
}

func TestAttemptRequiresMatchingSelection(t *testing.T) {
	c := New()
	if _, err := c.AttemptMove(sq(t, "e2"), sq(t, "e4")); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("move without selection: got %v", err)
	}
	if err := c.Select(sq(t, "d2")); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if _, err := c.AttemptMove(sq(t, "e2"), sq(t, "e4")); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("move from a non-selected square: got %v", err)
	}
}

func TestRejectedMoveLeavesStateAlone(t *testing.T) {
	c := New()
	if err := c.Select(sq(t, "c1")); err != nil {
		t.Fatalf("Select c1: %v", err)
	}
	// bishop over the b2 pawn
	_, err := c.AttemptMove(sq(t, "c1"), sq(t, "a3"))
	var rej *Rejection
	if !errors.As(err, &rej) {
		t.Fatalf("expected a rejection, got %v", err)
	}
	if rej.Reselected != nil {
		t.Fatalf("a3 is empty, selection must clear, got %v", rej.Reselected)
	}
	if c.Turn() != engine.White || len(c.History()) != 0 {
		t.Fatalf("rejected move must not change turn or history")
	}
	if p := c.Board().At(sq(t, "c1")); p == nil || p.Kind != engine.Bishop {
		t.Fatalf("bishop must still be on c1")
	}
}

func TestRejectionOntoOwnPieceReselects(t *testing.T) {
	c := New()
	if err := c.Select(sq(t, "c1")); err != nil {
		t.Fatalf("Select c1: %v", err)
	}
	_, err := c.AttemptMove(sq(t, "c1"), sq(t, "b2"))
	var rej *Rejection
	if !errors.As(err, &rej) {
		t.Fatalf("expected a rejection, got %v", err)
	}
	if rej.Reselected == nil || *rej.Reselected != sq(t, "b2") {
		t.Fatalf("clicking an own piece should move the selection there, got %v", rej.Reselected)
	}
	if s := c.Selection(); s == nil || *s != sq(t, "b2") {
		t.Fatalf("controller selection should be b2, got %v", s)
	}
}

func TestTurnStrictlyAlternates(t *testing.T) {
	c := New()
	mustMove(t, c, "e2", "e4")
	if c.Turn() != engine.Black {
		t.Fatalf("black to move after white's move")
	}
	if _, err := c.PerformMove(sq(t, "d2"), sq(t, "d4")); err == nil {
		t.Fatalf("white moving twice in a row must be rejected")
	}
	mustMove(t, c, "e7", "e5")
	if c.Turn() != engine.White {
		t.Fatalf("white to move after black's move")
	}
}

func TestCaptureBookkeeping(t *testing.T) {
	c := New()
	mustMove(t, c, "e2", "e4")
	mustMove(t, c, "d7", "d5")
	res := mustMove(t, c, "e4", "d5")
	if res.Captured == nil || res.Captured.Kind != engine.Pawn || res.Captured.Color != engine.Black {
		t.Fatalf("exd5 must capture the black pawn, got %+v", res.Captured)
	}
	caps := c.Captured(engine.White)
	if len(caps) != 1 || caps[0].Kind != engine.Pawn {
		t.Fatalf("white capture list should hold one pawn, got %v", caps)
	}
	if got := c.Captured(engine.Black); len(got) != 0 {
		t.Fatalf("black captured nothing, got %v", got)
	}
}

func TestCastlingMovesTheRookToo(t *testing.T) {
	c := New()
	mustMove(t, c, "e2", "e4")
	mustMove(t, c, "e7", "e5")
	mustMove(t, c, "g1", "f3")
	mustMove(t, c, "b8", "c6")
	mustMove(t, c, "f1", "c4")
	mustMove(t, c, "g8", "f6")
	res := mustMove(t, c, "e1", "g1")
	if !res.Castled {
		t.Fatalf("e1-g1 should be flagged as castling")
	}
	b := c.Board()
	if p := b.At(sq(t, "g1")); p == nil || p.Kind != engine.King || !p.HasMoved {
		t.Fatalf("king must be on g1 and marked moved, got %+v", p)
	}
	if p := b.At(sq(t, "f1")); p == nil || p.Kind != engine.Rook || !p.HasMoved {
		t.Fatalf("rook must be on f1 and marked moved, got %+v", p)
	}
	if b.At(sq(t, "h1")) != nil || b.At(sq(t, "e1")) != nil {
		t.Fatalf("e1 and h1 must be empty after castling")
	}
}

func TestFoolsMateFreezesGame(t *testing.T) {
	c := New()
	mustMove(t, c, "f2", "f3")
	mustMove(t, c, "e7", "e5")
	mustMove(t, c, "g2", "g4")
	res := mustMove(t, c, "d8", "h4")
	if res.Status != StatusCheckmate || !res.Check {
		t.Fatalf("Qh4 is checkmate, got status=%s check=%v", res.Status, res.Check)
	}
	if c.Status() != StatusCheckmate {
		t.Fatalf("controller must freeze in checkmate")
	}
	if _, err := c.PerformMove(sq(t, "a2"), sq(t, "a3")); !errors.Is(err, ErrGameOver) {
		t.Fatalf("no further moves after checkmate, got %v", err)
	}
	if err := c.Select(sq(t, "a2")); !errors.Is(err, ErrGameOver) {
		t.Fatalf("no selection after checkmate, got %v", err)
	}
}

func TestStalemateFreezesGame(t *testing.T) {
	b := &engine.Board{}
	b.Set(sq(t, "h8"), &engine.Piece{Color: engine.Black, Kind: engine.King, HasMoved: true})
	b.Set(sq(t, "f7"), &engine.Piece{Color: engine.White, Kind: engine.King, HasMoved: true})
	b.Set(sq(t, "g5"), &engine.Piece{Color: engine.White, Kind: engine.Queen, HasMoved: true})
	c := controllerWithBoard(b, engine.White)

	res := mustMove(t, c, "g5", "g6")
	if res.Status != StatusStalemate || res.Check {
		t.Fatalf("black is stalemated, got status=%s check=%v", res.Status, res.Check)
	}
}

func TestAutoPromotionToQueen(t *testing.T) {
	b := &engine.Board{}
	b.Set(sq(t, "e1"), &engine.Piece{Color: engine.White, Kind: engine.King, HasMoved: true})
	b.Set(sq(t, "a8"), &engine.Piece{Color: engine.Black, Kind: engine.King, HasMoved: true})
	b.Set(sq(t, "h7"), &engine.Piece{Color: engine.White, Kind: engine.Pawn, HasMoved: true})
	c := controllerWithBoard(b, engine.White)

	res := mustMove(t, c, "h7", "h8")
	if !res.Promoted {
		t.Fatalf("pawn reaching the last rank must promote")
	}
	if p := c.Board().At(sq(t, "h8")); p == nil || p.Kind != engine.Queen || p.Color != engine.White {
		t.Fatalf("h8 must hold a white queen, got %+v", p)
	}
}

func TestStaleAgentMoveIsDropped(t *testing.T) {
	c := New()
	gen := c.Generation()
	c.Reset()
	if _, err := c.PerformAgentMove(gen, sq(t, "e7"), sq(t, "e5")); !errors.Is(err, ErrStaleGame) {
		t.Fatalf("agent move for an old generation must be dropped, got %v", err)
	}
	if len(c.History()) != 0 {
		t.Fatalf("stale move must not reach the board")
	}
}

func TestMarkOpponentLost(t *testing.T) {
	c := New()
	if err := c.MarkOpponentLost(c.Generation()); err != nil {
		t.Fatalf("MarkOpponentLost: %v", err)
	}
	if c.Status() != StatusOpponentLost {
		t.Fatalf("status should be opponent_lost, got %s", c.Status())
	}
	if _, err := c.PerformMove(sq(t, "e2"), sq(t, "e4")); !errors.Is(err, ErrGameOver) {
		t.Fatalf("opponent_lost is terminal, got %v", err)
	}
}

func TestParseMove(t *testing.T) {
	m, err := ParseMove("e2-e4")
	if err != nil {
		t.Fatalf("ParseMove: %v", err)
	}
	if m.String() != "e2-e4" {
		t.Fatalf("round trip failed: %s", m.String())
	}
	for _, bad := range []string{"", "e2e4", "e2-z9", "x"} {
		if _, err := ParseMove(bad); err == nil {
			t.Fatalf("ParseMove(%q) should fail", bad)
		}
	}
}
