package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pagesmith/chess-egg/internal/engine"
	"github.com/pagesmith/chess-egg/internal/game"
	"github.com/pagesmith/chess-egg/internal/obslog"
)

// ErrOpponentUnavailable marks a turn the opponent service never
// answered; the game is frozen in the opponent_lost state, which is
// distinct from checkmate and stalemate.
var ErrOpponentUnavailable = errors.New("opponent agent unavailable")

// Proposer is the one capability the coordinator needs from the
// opponent service.
type Proposer interface {
	ProposeMove(ctx context.Context, req *ProposalRequest) (*ProposalResponse, error)
}

// Coordinator drives the request/validate/retry protocol for the
// externally controlled color. Proposals are renegotiated with
// diagnostic context a bounded number of times; after that the
// coordinator falls back to the first legal move it can find rather
// than looping forever.
type Coordinator struct {
	proposer  Proposer
	color     engine.Color
	moveDelay time.Duration
	maxRounds int
	logger    *zap.Logger
}

type CoordinatorOption func(*Coordinator)

// WithMoveDelay sets the pacing delay inserted before the first request
// and before applying a validated move. Presentation only.
func WithMoveDelay(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) { c.moveDelay = d }
}

// WithMaxRounds bounds how many proposals are solicited before the
// fallback move is played.
func WithMaxRounds(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxRounds = n
		}
	}
}

func WithColor(color engine.Color) CoordinatorOption {
	return func(c *Coordinator) { c.color = color }
}

func NewCoordinator(proposer Proposer, opts ...CoordinatorOption) (*Coordinator, error) {
	if proposer == nil {
		return nil, fmt.Errorf("proposer is required")
	}
	c := &Coordinator{
		proposer:  proposer,
		color:     engine.Black,
		moveDelay: 600 * time.Millisecond,
		maxRounds: 5,
		logger:    obslog.L(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Color is the externally controlled side.
func (c *Coordinator) Color() engine.Color { return c.color }

// Respond plays one opponent turn on ctrl. It must be called when the
// coordinator's color is to move and the game is live. The returned
// result comes through the same execution path as a user move; a game
// reset while the round-trip was in flight surfaces game.ErrStaleGame
// and leaves the new game untouched.
func (c *Coordinator) Respond(ctx context.Context, ctrl *game.Controller) (*game.Result, error) {
	if ctrl.Status().Terminal() {
		return nil, game.ErrGameOver
	}
	if ctrl.Turn() != c.color {
		return nil, fmt.Errorf("not %s's turn", c.color)
	}

	generation := ctrl.Generation()
	board := ctrl.Board()
	req := &ProposalRequest{
		BoardJSON: board.Codes(),
		History:   historyStrings(ctrl.History()),
	}

	// pacing before the first request
	if err := sleepWithContext(ctx, c.moveDelay); err != nil {
		return nil, err
	}

	for round := 1; round <= c.maxRounds; round++ {
		resp, err := c.proposer.ProposeMove(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Error("opponent proposal request failed",
				zap.Int("round", round),
				zap.Error(err),
			)
			if lostErr := ctrl.MarkOpponentLost(generation); lostErr != nil {
				return nil, lostErr
			}
			return nil, ErrOpponentUnavailable
		}

		from, to, parseErr := parseProposal(resp)
		if parseErr == nil {
			if p := board.At(from); p != nil && p.Color == c.color &&
				engine.IsLegalMove(*p, from, to, board, true) {
				if err := sleepWithContext(ctx, c.moveDelay); err != nil {
					return nil, err
				}
				res, err := ctrl.PerformAgentMove(generation, from, to)
				if err != nil {
					return nil, err
				}
				c.logger.Info("opponent move applied",
					zap.String("move", res.Move.String()),
					zap.Int("round", round),
					zap.String("status", string(res.Status)),
				)
				return res, nil
			}
		}

		// renegotiate with diagnostic context
		req.IllegalMoveAttempt = c.diagnose(board, resp, parseErr)
		c.logger.Warn("opponent proposed an illegal move",
			zap.Int("round", round),
			zap.String("from", resp.From),
			zap.String("to", resp.To),
			zap.String("reason", req.IllegalMoveAttempt.Error),
		)
	}

	return c.fallback(ctx, ctrl, generation, board)
}

// fallback plays the first legal move found once the proposal rounds
// are exhausted, so a confused opponent can never stall the game.
func (c *Coordinator) fallback(ctx context.Context, ctrl *game.Controller, generation uint64, board *engine.Board) (*game.Result, error) {
	for _, from := range board.Squares(c.color) {
		dests := engine.LegalDestinations(board, from)
		if len(dests) == 0 {
			continue
		}
		if err := sleepWithContext(ctx, c.moveDelay); err != nil {
			return nil, err
		}
		res, err := ctrl.PerformAgentMove(generation, from, dests[0])
		if err != nil {
			return nil, err
		}
		c.logger.Warn("opponent proposals exhausted, fallback move applied",
			zap.String("move", res.Move.String()),
		)
		return res, nil
	}
	// unreachable while the terminal detector runs after every move
	if err := ctrl.MarkOpponentLost(generation); err != nil {
		return nil, err
	}
	return nil, ErrOpponentUnavailable
}

// diagnose builds the retry payload: the rejected move, a readable
// reason and the legal destinations for whatever piece stands on the
// proposed origin.
func (c *Coordinator) diagnose(board *engine.Board, resp *ProposalResponse, parseErr error) *IllegalAttempt {
	att := &IllegalAttempt{
		From:       resp.From,
		To:         resp.To,
		ValidMoves: []string{},
	}
	if parseErr != nil {
		att.Error = parseErr.Error()
		return att
	}

	from, _ := engine.ParseSquare(resp.From)
	to, _ := engine.ParseSquare(resp.To)
	p := board.At(from)
	switch {
	case p == nil:
		att.Error = fmt.Sprintf("no piece on %s", resp.From)
	case p.Color != c.color:
		att.Error = fmt.Sprintf("the piece on %s belongs to %s", resp.From, p.Color)
	case engine.IsLegalMove(*p, from, to, board, false):
		att.Error = fmt.Sprintf("%s %s-%s would leave the %s king in check", p.Kind, resp.From, resp.To, p.Color)
	default:
		att.Error = fmt.Sprintf("%s cannot move from %s to %s", p.Kind, resp.From, resp.To)
	}

	if p != nil && p.Color == c.color {
		for _, d := range engine.LegalDestinations(board, from) {
			att.ValidMoves = append(att.ValidMoves, d.Algebraic())
		}
	}
	return att
}

func parseProposal(resp *ProposalResponse) (engine.Square, engine.Square, error) {
	from, err := engine.ParseSquare(resp.From)
	if err != nil {
		return engine.Square{}, engine.Square{}, fmt.Errorf("malformed proposal origin: %w", err)
	}
	to, err := engine.ParseSquare(resp.To)
	if err != nil {
		return engine.Square{}, engine.Square{}, fmt.Errorf("malformed proposal destination: %w", err)
	}
	return from, to, nil
}

func historyStrings(moves []game.Move) []string {
	out := make([]string, 0, len(moves))
	for _, m := range moves {
		out = append(out, m.String())
	}
	return out
}
