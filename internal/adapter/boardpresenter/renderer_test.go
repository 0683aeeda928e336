package boardpresenter

import (
	"bytes"
	"context"
	"image/png"
	"strings"
	"testing"

	"github.com/pagesmith/chess-egg/internal/engine"
	"github.com/pagesmith/chess-egg/internal/game"
	"github.com/pagesmith/chess-egg/internal/msgcat"
)

func TestRenderInitialPosition(t *testing.T) {
	r := NewRenderer(64)
	data, err := r.RenderPNG(context.Background(), engine.NewBoard(), RenderOptions{})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty png")
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	// 8 squares plus a margin of a third of a square on each side
	want := 64*8 + (64/3)*2
	if got := img.Bounds().Dx(); got != want {
		t.Fatalf("width = %d, want %d", got, want)
	}
}

func TestRenderFlippedDiffers(t *testing.T) {
	r := NewRenderer(48)
	b := engine.NewBoard()
	// an asymmetric position so orientation shows
	from, _ := engine.ParseSquare("e2")
	to, _ := engine.ParseSquare("e4")
	b.Set(to, b.At(from))
	b.Set(from, nil)

	normal, err := r.RenderPNG(context.Background(), b, RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	flipped, err := r.RenderPNG(context.Background(), b, RenderOptions{Flipped: true})
	if err != nil {
		t.Fatalf("render flipped: %v", err)
	}
	if bytes.Equal(normal, flipped) {
		t.Fatal("flipped render must differ")
	}
}

func TestRenderOverlaysChangeOutput(t *testing.T) {
	r := NewRenderer(48)
	b := engine.NewBoard()
	sel, _ := engine.ParseSquare("e2")
	tgt, _ := engine.ParseSquare("e4")

	plain, err := r.RenderPNG(context.Background(), b, RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	marked, err := r.RenderPNG(context.Background(), b, RenderOptions{
		Selection: &sel,
		Targets:   []engine.Square{tgt},
	})
	if err != nil {
		t.Fatalf("render with overlays: %v", err)
	}
	if bytes.Equal(plain, marked) {
		t.Fatal("overlays must change the image")
	}
}

func TestRenderCanceledContext(t *testing.T) {
	r := NewRenderer(48)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.RenderPNG(ctx, engine.NewBoard(), RenderOptions{}); err == nil {
		t.Fatal("want context error")
	}
}

func TestTextBoard(t *testing.T) {
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	f := NewFormatter(cat)
	out := f.TextBoard(engine.NewBoard())
	if !strings.Contains(out, "♔") || !strings.Contains(out, "♟") {
		t.Fatalf("missing glyphs:\n%s", out)
	}
	if !strings.Contains(out, "a b c d e f g h") {
		t.Fatalf("missing file labels:\n%s", out)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 9 {
		t.Fatalf("want 9 lines, got %d", len(lines))
	}
}

func TestFormatterMoveAndRejection(t *testing.T) {
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	f := NewFormatter(cat)

	ctrl := game.New()
	from, _ := engine.ParseSquare("e2")
	to, _ := engine.ParseSquare("e4")
	res, err := ctrl.PerformMove(from, to)
	if err != nil {
		t.Fatalf("PerformMove: %v", err)
	}
	text := f.MovePlayed("Alice", res)
	if !strings.Contains(text, "e2-e4") || !strings.Contains(text, "Alice") {
		t.Fatalf("move text = %q", text)
	}

	sq, _ := engine.ParseSquare("d7")
	rej := &game.Rejection{Reselected: &sq}
	if got := f.Rejected(rej); !strings.Contains(got, "d7") {
		t.Fatalf("reselect text = %q", got)
	}
	if got := f.Rejected(&game.Rejection{Reason: "blocked path"}); !strings.Contains(got, "blocked path") {
		t.Fatalf("reject text = %q", got)
	}
}
