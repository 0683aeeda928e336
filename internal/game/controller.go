// Package game owns the single authoritative mutable game state: the
// turn-based state machine around the pure rules in internal/engine.
// Validity is always decided on the live position before any write;
// illegal attempts never mutate the board.
package game

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pagesmith/chess-egg/internal/engine"
)

// Status is the controller state machine. play transitions once into
// exactly one of the terminal states and never leaves it.
type Status string

const (
	StatusPlay         Status = "play"
	StatusCheckmate    Status = "checkmate"
	StatusStalemate    Status = "stalemate"
	StatusOpponentLost Status = "opponent_lost"
)

func (s Status) Terminal() bool { return s != StatusPlay }

var (
	ErrGameOver     = errors.New("game already finished")
	ErrEmptySquare  = errors.New("no piece on that square")
	ErrNotYourPiece = errors.New("piece belongs to the other side")
	ErrNoSelection  = errors.New("move origin does not match the current selection")
	ErrStaleGame    = errors.New("game was reset while the move was in flight")
)

// Move is one half-move in from-to form.
type Move struct {
	From engine.Square
	To   engine.Square
}

// String renders the wire form used in history payloads: "e2-e4".
func (m Move) String() string {
	return m.From.Algebraic() + "-" + m.To.Algebraic()
}

// ParseMove parses the "e2-e4" wire form.
func ParseMove(v string) (Move, error) {
	from, to, ok := strings.Cut(strings.TrimSpace(v), "-")
	if !ok {
		return Move{}, fmt.Errorf("invalid move %q", v)
	}
	f, err := engine.ParseSquare(from)
	if err != nil {
		return Move{}, err
	}
	t, err := engine.ParseSquare(to)
	if err != nil {
		return Move{}, err
	}
	return Move{From: f, To: t}, nil
}

// Rejection is the transient signal for an illegal attempt. The board
// is untouched; Reselected is set when the destination held another
// piece of the mover's color and the selection jumped there instead of
// clearing.
type Rejection struct {
	Reason     string
	Reselected *engine.Square
}

func (r *Rejection) Error() string { return r.Reason }

// Result summarizes one executed move.
type Result struct {
	Move     Move
	Piece    engine.Piece
	Captured *engine.Piece
	Castled  bool
	Promoted bool
	Check    bool
	Status   Status
	Turn     engine.Color
}

// Controller is the turn-based game state machine. It is the single
// writer of its board; concurrent readers (agent coordinator, session
// snapshots) go through the mutex.
type Controller struct {
	mu              sync.Mutex
	board           *engine.Board
	turn            engine.Color
	status          Status
	history         []Move
	capturedByWhite []engine.Piece
	capturedByBlack []engine.Piece
	selection       *engine.Square
	generation      uint64
	clock           *Clock
}

// New starts a fresh game from the standard position, white to move,
// match clock running.
func New() *Controller {
	return &Controller{
		board:  engine.NewBoard(),
		turn:   engine.White,
		status: StatusPlay,
		clock:  NewClock(),
	}
}

// Reset discards the current game and bumps the generation so any
// in-flight opponent response is dropped instead of landing on the new
// board.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock.Stop()
	c.board = engine.NewBoard()
	c.turn = engine.White
	c.status = StatusPlay
	c.history = nil
	c.capturedByWhite = nil
	c.capturedByBlack = nil
	c.selection = nil
	c.generation++
	c.clock = NewClock()
}

// Generation identifies the current game instance for async callers.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Controller) Turn() engine.Color {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turn
}

// Board returns a snapshot clone; callers can never mutate the
// authoritative position.
func (c *Controller) Board() *engine.Board {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.board.Clone()
}

func (c *Controller) History() []Move {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Move(nil), c.history...)
}

// Captured lists the pieces captured by color, in capture order.
func (c *Controller) Captured(color engine.Color) []engine.Piece {
	c.mu.Lock()
	defer c.mu.Unlock()
	if color == engine.White {
		return append([]engine.Piece(nil), c.capturedByWhite...)
	}
	return append([]engine.Piece(nil), c.capturedByBlack...)
}

func (c *Controller) Selection() *engine.Square {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selection == nil {
		return nil
	}
	sq := *c.selection
	return &sq
}

// ElapsedSeconds reports the running match clock. Presentation only.
func (c *Controller) ElapsedSeconds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clock.Seconds()
}

// Select picks up a piece of the side to move, replacing any prior
// selection.
func (c *Controller) Select(sq engine.Square) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.Terminal() {
		return ErrGameOver
	}
	p := c.board.At(sq)
	if p == nil {
		return ErrEmptySquare
	}
	if p.Color != c.turn {
		return ErrNotYourPiece
	}
	c.selection = &sq
	return nil
}

// AttemptMove tries the move from the current selection. Illegal
// attempts return a *Rejection and leave the board untouched; when the
// destination holds another own piece the selection moves there, which
// supports change-your-mind clicking.
func (c *Controller) AttemptMove(from, to engine.Square) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.Terminal() {
		return nil, ErrGameOver
	}
	if c.selection == nil || *c.selection != from {
		return nil, ErrNoSelection
	}

	res, err := c.performLocked(from, to)
	if err != nil {
		var rej *Rejection
		if errors.As(err, &rej) {
			if dst := c.board.At(to); dst != nil && dst.Color == c.turn {
				sq := to
				c.selection = &sq
				rej.Reselected = &sq
			} else {
				c.selection = nil
			}
		}
		return nil, err
	}
	c.selection = nil
	return res, nil
}

// PerformMove validates and executes a move without the selection
// protocol. Replay and the opponent coordinator use it; the rules
// applied are identical to AttemptMove.
func (c *Controller) PerformMove(from, to engine.Square) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.Terminal() {
		return nil, ErrGameOver
	}
	return c.performLocked(from, to)
}

// PerformAgentMove executes a validated opponent move, dropping it when
// the game was reset while the proposal round-trip was in flight.
func (c *Controller) PerformAgentMove(generation uint64, from, to engine.Square) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return nil, ErrStaleGame
	}
	if c.status.Terminal() {
		return nil, ErrGameOver
	}
	return c.performLocked(from, to)
}

// MarkOpponentLost freezes the game in the opponent_lost terminal
// state, distinct from checkmate and stalemate.
func (c *Controller) MarkOpponentLost(generation uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return ErrStaleGame
	}
	if c.status.Terminal() {
		return ErrGameOver
	}
	c.status = StatusOpponentLost
	c.selection = nil
	c.clock.Stop()
	return nil
}

func (c *Controller) performLocked(from, to engine.Square) (*Result, error) {
	p := c.board.At(from)
	if p == nil {
		return nil, &Rejection{Reason: "no piece on " + from.Algebraic()}
	}
	if p.Color != c.turn {
		return nil, &Rejection{Reason: "it is " + c.turn.String() + "'s turn"}
	}
	if !engine.IsLegalMove(*p, from, to, c.board, true) {
		return nil, &Rejection{Reason: illegalReason(c.board, *p, from, to)}
	}

	res := &Result{
		Move:  Move{From: from, To: to},
		Piece: *p,
	}

	// capture bookkeeping before the destination is overwritten
	if victim := c.board.At(to); victim != nil {
		v := *victim
		res.Captured = &v
		if p.Color == engine.White {
			c.capturedByWhite = append(c.capturedByWhite, v)
		} else {
			c.capturedByBlack = append(c.capturedByBlack, v)
		}
	}

	// castling relocates the rook in the same turn
	if p.Kind == engine.King && abs(to.Col-from.Col) == 2 {
		res.Castled = true
		rookFrom := engine.Square{Row: from.Row, Col: 7}
		rookTo := engine.Square{Row: from.Row, Col: 5}
		if to.Col < from.Col {
			rookFrom.Col = 0
			rookTo.Col = 3
		}
		rook := c.board.At(rookFrom)
		rook.HasMoved = true
		c.board.Set(rookTo, rook)
		c.board.Set(rookFrom, nil)
	}

	p.HasMoved = true
	c.board.Set(to, p)
	c.board.Set(from, nil)

	// auto-promotion: a pawn on the farthest rank always becomes a queen
	if p.Kind == engine.Pawn && (to.Row == 0 || to.Row == 7) {
		c.board.Set(to, &engine.Piece{Color: p.Color, Kind: engine.Queen, HasMoved: true})
		res.Promoted = true
	}

	c.history = append(c.history, res.Move)

	next := c.turn.Opponent()
	res.Check = engine.IsKingInCheck(c.board, next)
	if !engine.HasAnyLegalMove(c.board, next) {
		if res.Check {
			c.status = StatusCheckmate
		} else {
			c.status = StatusStalemate
		}
		c.clock.Stop()
	} else {
		c.turn = next
	}
	res.Status = c.status
	res.Turn = c.turn
	return res, nil
}

// illegalReason produces the human-readable reason attached to agent
// retry diagnostics.
func illegalReason(board *engine.Board, p engine.Piece, from, to engine.Square) string {
	if dst := board.At(to); dst != nil && dst.Color == p.Color {
		return fmt.Sprintf("%s cannot capture its own piece on %s", p.Kind, to.Algebraic())
	}
	if engine.IsLegalMove(p, from, to, board, false) {
		return fmt.Sprintf("%s %s-%s would leave the %s king in check",
			p.Kind, from.Algebraic(), to.Algebraic(), p.Color)
	}
	return fmt.Sprintf("%s cannot move from %s to %s", p.Kind, from.Algebraic(), to.Algebraic())
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
