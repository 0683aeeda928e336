// Package boardpresenter turns engine board state into PNG images and
// chat text for delivery through the gateway.
package boardpresenter

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/pagesmith/chess-egg/internal/engine"
	"github.com/pagesmith/chess-egg/internal/game"
)

// RenderOptions selects the overlays drawn on top of the position.
type RenderOptions struct {
	// LastMove highlights the from and to squares of the most recent
	// move.
	LastMove *game.Move
	// Selection marks the square the player currently has picked up.
	Selection *engine.Square
	// Targets marks the legal destinations of the selected piece.
	Targets []engine.Square
	// Flipped draws the board from black's side.
	Flipped bool
}

type Renderer struct {
	squareSize int
}

func NewRenderer(squareSize int) *Renderer {
	if squareSize < 24 {
		squareSize = 64
	}
	return &Renderer{squareSize: squareSize}
}

var (
	lightSquare    = color.RGBA{233, 207, 163, 255}
	darkSquare     = color.RGBA{187, 136, 96, 255}
	lastMoveFill   = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	selectionFill  = color.NRGBA{R: 130, G: 200, B: 255, A: 150}
	targetDotColor = color.NRGBA{R: 40, G: 40, B: 40, A: 110}
	marginColor    = color.RGBA{38, 34, 30, 255}
	coordTextColor = color.NRGBA{R: 222, G: 210, B: 190, A: 255}
)

// RenderPNG draws the position with overlays and coordinate labels and
// returns the encoded PNG.
func (r *Renderer) RenderPNG(ctx context.Context, board *engine.Board, opts RenderOptions) ([]byte, error) {
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	sq := r.squareSize
	margin := sq / 3
	boardSize := sq * 8
	total := boardSize + margin*2
	origin := image.Point{X: margin, Y: margin}

	img := image.NewRGBA(image.Rect(0, 0, total, total))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(marginColor), image.Point{}, imagedraw.Src)

	r.drawSquares(img, origin)
	r.drawLastMove(img, origin, opts)
	r.drawSelection(img, origin, opts)
	if err := r.drawPieces(img, board, origin, opts.Flipped); err != nil {
		return nil, err
	}
	r.drawTargets(img, origin, opts)
	r.drawCoordinates(img, origin, margin, opts.Flipped)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// screenCell maps a board square to its drawn cell. Unflipped puts
// white at the bottom.
func screenCell(s engine.Square, flipped bool) (row, col int) {
	if flipped {
		return 7 - s.Row, 7 - s.Col
	}
	return s.Row, s.Col
}

func (r *Renderer) cellRect(s engine.Square, origin image.Point, flipped bool) image.Rectangle {
	row, col := screenCell(s, flipped)
	x := origin.X + col*r.squareSize
	y := origin.Y + row*r.squareSize
	return image.Rect(x, y, x+r.squareSize, y+r.squareSize)
}

func (r *Renderer) drawSquares(img *image.RGBA, origin image.Point) {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			clr := lightSquare
			if (row+col)%2 == 1 {
				clr = darkSquare
			}
			x := origin.X + col*r.squareSize
			y := origin.Y + row*r.squareSize
			rect := image.Rect(x, y, x+r.squareSize, y+r.squareSize)
			imagedraw.Draw(img, rect, image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

func (r *Renderer) drawLastMove(img *image.RGBA, origin image.Point, opts RenderOptions) {
	if opts.LastMove == nil {
		return
	}
	for _, s := range []engine.Square{opts.LastMove.From, opts.LastMove.To} {
		rect := r.cellRect(s, origin, opts.Flipped)
		imagedraw.Draw(img, rect, image.NewUniform(lastMoveFill), image.Point{}, imagedraw.Over)
	}
}

func (r *Renderer) drawSelection(img *image.RGBA, origin image.Point, opts RenderOptions) {
	if opts.Selection == nil {
		return
	}
	rect := r.cellRect(*opts.Selection, origin, opts.Flipped)
	imagedraw.Draw(img, rect, image.NewUniform(selectionFill), image.Point{}, imagedraw.Over)
}

func (r *Renderer) drawTargets(img *image.RGBA, origin image.Point, opts RenderOptions) {
	radius := r.squareSize / 8
	for _, s := range opts.Targets {
		rect := r.cellRect(s, origin, opts.Flipped)
		cx := rect.Min.X + r.squareSize/2
		cy := rect.Min.Y + r.squareSize/2
		drawDisc(img, image.Pt(cx, cy), radius, targetDotColor)
	}
}

func (r *Renderer) drawPieces(img *image.RGBA, board *engine.Board, origin image.Point, flipped bool) error {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			s := engine.Square{Row: row, Col: col}
			p := board.At(s)
			if p == nil {
				continue
			}
			glyph, err := renderPieceImage(p, r.squareSize)
			if err != nil {
				return err
			}
			rect := r.cellRect(s, origin, flipped)
			imagedraw.Draw(img, rect, glyph, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

func (r *Renderer) drawCoordinates(img *image.RGBA, origin image.Point, margin int, flipped bool) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(coordTextColor),
		Face: face,
	}
	ascent := face.Metrics().Ascent.Ceil()
	boardBottom := origin.Y + 8*r.squareSize

	for i := 0; i < 8; i++ {
		// rank labels down the left edge
		rank := 8 - i
		if flipped {
			rank = i + 1
		}
		label := fmt.Sprintf("%d", rank)
		y := origin.Y + i*r.squareSize + r.squareSize/2 + ascent/2
		drawer.Dot = fixed.P(origin.X-margin/2-drawer.MeasureString(label).Round()/2, y)
		drawer.DrawString(label)

		// file labels along the bottom edge
		file := string(rune('a' + i))
		if flipped {
			file = string(rune('a' + (7 - i)))
		}
		x := origin.X + i*r.squareSize + r.squareSize/2
		drawer.Dot = fixed.P(x-drawer.MeasureString(file).Round()/2, boardBottom+margin/2+ascent/2)
		drawer.DrawString(file)
	}
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	if radius <= 0 {
		return
	}
	rSquared := radius * radius
	uniform := image.NewUniform(clr)
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > rSquared {
				continue
			}
			pt := image.Pt(center.X+x, center.Y+y)
			if pt.In(img.Bounds()) {
				imagedraw.Draw(img, image.Rect(pt.X, pt.Y, pt.X+1, pt.Y+1), uniform, image.Point{}, imagedraw.Over)
			}
		}
	}
}
