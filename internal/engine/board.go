// Package engine implements the chess rules: board model, move
// validation, attack scans and terminal-state detection. It is pure
// data plus pure functions; ownership of the single mutable game state
// lives in internal/game.
package engine

import (
	"fmt"
	"strings"
)

// Color identifies a side.
type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// Kind identifies a piece type.
type Kind uint8

const (
	Pawn Kind = iota
	Knight
	Bishop
	Rook
	Queen
	King
)

func (k Kind) String() string {
	switch k {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		return "unknown"
	}
}

func (k Kind) letter() string {
	switch k {
	case Pawn:
		return "P"
	case Knight:
		return "N"
	case Bishop:
		return "B"
	case Rook:
		return "R"
	case Queen:
		return "Q"
	case King:
		return "K"
	default:
		return "?"
	}
}

// Piece is one chessman. HasMoved is set permanently the first time the
// piece moves; it gates pawn double-steps and castling rights.
type Piece struct {
	Color    Color
	Kind     Kind
	HasMoved bool
}

// Code returns the two-character wire code, e.g. "wP" or "bK".
func (p Piece) Code() string {
	if p.Color == White {
		return "w" + p.Kind.letter()
	}
	return "b" + p.Kind.letter()
}

// Square addresses one board cell. Row 0 is black's back rank, row 7 is
// white's back rank.
type Square struct {
	Row int
	Col int
}

func (s Square) InBounds() bool {
	return s.Row >= 0 && s.Row < 8 && s.Col >= 0 && s.Col < 8
}

// Algebraic renders the square in algebraic notation: file 'a'+col,
// rank 8-row.
func (s Square) Algebraic() string {
	return fmt.Sprintf("%c%d", 'a'+rune(s.Col), 8-s.Row)
}

func (s Square) String() string { return s.Algebraic() }

// ParseSquare parses algebraic notation ("e4") back into a Square.
func ParseSquare(v string) (Square, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if len(v) != 2 || v[0] < 'a' || v[0] > 'h' || v[1] < '1' || v[1] > '8' {
		return Square{}, fmt.Errorf("invalid square %q", v)
	}
	return Square{Row: 8 - int(v[1]-'0'), Col: int(v[0] - 'a')}, nil
}

// Board is the 8x8 grid. A nil cell is an empty square.
type Board struct {
	cells [8][8]*Piece
}

var backRank = [8]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// NewBoard returns the standard initial position with all pieces
// unmoved.
func NewBoard() *Board {
	b := &Board{}
	for col := 0; col < 8; col++ {
		b.cells[0][col] = &Piece{Color: Black, Kind: backRank[col]}
		b.cells[1][col] = &Piece{Color: Black, Kind: Pawn}
		b.cells[6][col] = &Piece{Color: White, Kind: Pawn}
		b.cells[7][col] = &Piece{Color: White, Kind: backRank[col]}
	}
	return b
}

// At returns the piece on sq, or nil for an empty or out-of-bounds
// square.
func (b *Board) At(sq Square) *Piece {
	if !sq.InBounds() {
		return nil
	}
	return b.cells[sq.Row][sq.Col]
}

// Set places p on sq, overwriting whatever was there. A nil p clears
// the square.
func (b *Board) Set(sq Square, p *Piece) {
	if !sq.InBounds() {
		return
	}
	b.cells[sq.Row][sq.Col] = p
}

// Clone deep-copies the board so a simulated move never touches the
// authoritative position.
func (b *Board) Clone() *Board {
	c := &Board{}
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			if p := b.cells[r][f]; p != nil {
				cp := *p
				c.cells[r][f] = &cp
			}
		}
	}
	return c
}

// FindKing locates color's king. The second return is false only when
// the one-king-per-color invariant has been violated.
func (b *Board) FindKing(color Color) (Square, bool) {
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			if p := b.cells[r][f]; p != nil && p.Kind == King && p.Color == color {
				return Square{Row: r, Col: f}, true
			}
		}
	}
	return Square{}, false
}

// Squares iterates every square holding a piece of color.
func (b *Board) Squares(color Color) []Square {
	var out []Square
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			if p := b.cells[r][f]; p != nil && p.Color == color {
				out = append(out, Square{Row: r, Col: f})
			}
		}
	}
	return out
}

// Codes serializes all 64 squares into the agent wire format: algebraic
// square to piece code, with empty squares marked explicitly.
func (b *Board) Codes() map[string]string {
	out := make(map[string]string, 64)
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			sq := Square{Row: r, Col: f}
			if p := b.cells[r][f]; p != nil {
				out[sq.Algebraic()] = p.Code()
			} else {
				out[sq.Algebraic()] = "empty"
			}
		}
	}
	return out
}

// apply moves the piece on from to to on this board, overwriting any
// capture. Used by the king-safety simulation; the game controller owns
// the full side effects (castling rook, promotion, bookkeeping).
func (b *Board) apply(from, to Square) {
	p := b.At(from)
	b.Set(to, p)
	b.Set(from, nil)
}
