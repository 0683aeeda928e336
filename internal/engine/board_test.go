package engine

import "testing"

func sq(t *testing.T, v string) Square {
	t.Helper()
	s, err := ParseSquare(v)
	if err != nil {
		t.Fatalf("ParseSquare(%q): %v", v, err)
	}
	return s
}

func TestSquareAlgebraicRoundTrip(t *testing.T) {
	cases := map[string]Square{
		"a8": {Row: 0, Col: 0},
		"h8": {Row: 0, Col: 7},
		"a1": {Row: 7, Col: 0},
		"h1": {Row: 7, Col: 7},
		"e4": {Row: 4, Col: 4},
	}
	for alg, want := range cases {
		got, err := ParseSquare(alg)
		if err != nil {
			t.Fatalf("ParseSquare(%q): %v", alg, err)
		}
		if got != want {
			t.Fatalf("ParseSquare(%q) = %+v, want %+v", alg, got, want)
		}
		if got.Algebraic() != alg {
			t.Fatalf("Algebraic(%+v) = %q, want %q", got, got.Algebraic(), alg)
		}
	}
	for _, bad := range []string{"", "e", "i4", "e9", "e0", "44"} {
		if _, err := ParseSquare(bad); err == nil {
			t.Fatalf("ParseSquare(%q) should fail", bad)
		}
	}
}

func TestNewBoardInitialPosition(t *testing.T) {
	b := NewBoard()
	if p := b.At(sq(t, "e1")); p == nil || p.Kind != King || p.Color != White || p.HasMoved {
		t.Fatalf("e1 should hold an unmoved white king, got %+v", p)
	}
	if p := b.At(sq(t, "d8")); p == nil || p.Kind != Queen || p.Color != Black {
		t.Fatalf("d8 should hold the black queen, got %+v", p)
	}
	for col := 0; col < 8; col++ {
		if p := b.At(Square{Row: 6, Col: col}); p == nil || p.Kind != Pawn || p.Color != White {
			t.Fatalf("rank 2 col %d should hold a white pawn", col)
		}
	}
	if p := b.At(sq(t, "e4")); p != nil {
		t.Fatalf("e4 should be empty, got %+v", p)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	b := NewBoard()
	c := b.Clone()
	c.apply(sq(t, "e2"), sq(t, "e4"))
	c.At(sq(t, "e4")).HasMoved = true

	if b.At(sq(t, "e4")) != nil {
		t.Fatalf("mutating the clone leaked into the original board")
	}
	if p := b.At(sq(t, "e2")); p == nil || p.HasMoved {
		t.Fatalf("original e2 pawn should be untouched, got %+v", p)
	}
}

func TestCodesCoversAllSquares(t *testing.T) {
	codes := NewBoard().Codes()
	if len(codes) != 64 {
		t.Fatalf("expected 64 entries, got %d", len(codes))
	}
	if codes["e1"] != "wK" || codes["e8"] != "bK" || codes["a2"] != "wP" || codes["b8"] != "bN" {
		t.Fatalf("unexpected piece codes: e1=%s e8=%s a2=%s b8=%s",
			codes["e1"], codes["e8"], codes["a2"], codes["b8"])
	}
	if codes["d5"] != "empty" {
		t.Fatalf("empty squares must be marked explicitly, d5=%s", codes["d5"])
	}
}

func TestFindKing(t *testing.T) {
	b := NewBoard()
	if got, ok := b.FindKing(Black); !ok || got != sq(t, "e8") {
		t.Fatalf("black king expected on e8, got %v ok=%v", got, ok)
	}
	empty := &Board{}
	if _, ok := empty.FindKing(White); ok {
		t.Fatalf("empty board must report no king")
	}
}
