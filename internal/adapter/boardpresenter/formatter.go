package boardpresenter

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/pagesmith/chess-egg/internal/engine"
	"github.com/pagesmith/chess-egg/internal/game"
	"github.com/pagesmith/chess-egg/internal/msgcat"
	"github.com/pagesmith/chess-egg/internal/obslog"
	"github.com/pagesmith/chess-egg/internal/session"
)

// Formatter renders game events into chat text through the message
// catalog.
type Formatter struct {
	cat *msgcat.Catalog
}

func NewFormatter(cat *msgcat.Catalog) *Formatter {
	return &Formatter{cat: cat}
}

func (f *Formatter) render(key string, data any) string {
	out, err := f.cat.Render(key, data)
	if err != nil {
		obslog.L().Warn("message render failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	return out
}

func (f *Formatter) Started() string {
	return f.render("game.started", nil)
}

func (f *Formatter) Quit() string {
	return f.render("game.quit", nil)
}

// UnknownCommand doubles as the help reply.
func (f *Formatter) UnknownCommand() string {
	return f.render("error.unknown_command", nil)
}

// MovePlayed describes a completed move, appending check and terminal
// lines when they apply.
func (f *Formatter) MovePlayed(mover string, res *game.Result) string {
	if res == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(f.render("move.played", map[string]any{
		"Mover": mover,
		"Move":  res.Move.String(),
	}))
	if res.Check && res.Status == game.StatusPlay {
		sb.WriteString("\n")
		sb.WriteString(f.render("move.check", nil))
	}
	if res.Status.Terminal() {
		sb.WriteString("\n")
		// the turn freezes on the mover at terminal states, so it
		// names the winner on checkmate
		sb.WriteString(f.StatusLine(res.Status, res.Turn.String(), 0, 0))
	}
	return sb.String()
}

// Rejected explains why a move was refused. A reselection gets its own
// line so the player knows which piece they are now holding.
func (f *Formatter) Rejected(rej *game.Rejection) string {
	if rej == nil {
		return ""
	}
	if rej.Reselected != nil {
		return f.render("move.reselected", map[string]any{
			"Square": rej.Reselected.Algebraic(),
		})
	}
	return f.render("move.rejected", map[string]any{
		"Reason": rej.Reason,
	})
}

func (f *Formatter) Picked(p *engine.Piece, s engine.Square) string {
	kind := ""
	if p != nil {
		kind = strings.ToLower(p.Kind.String())
	}
	return f.render("select.picked", map[string]any{
		"Piece":  kind,
		"Square": s.Algebraic(),
	})
}

// StatusLine summarizes a running or finished game.
func (f *Formatter) StatusLine(status game.Status, turn string, moveCount, elapsedSec int) string {
	switch status {
	case game.StatusPlay:
		return f.render("status.play", map[string]any{
			"Turn":      turn,
			"MoveCount": moveCount,
			"Elapsed":   elapsedSec,
		})
	case game.StatusCheckmate:
		// the side that just moved delivered mate, and the turn
		// freezes on them
		return f.render("status.checkmate", map[string]any{"Winner": turn})
	case game.StatusStalemate:
		return f.render("status.stalemate", nil)
	case game.StatusOpponentLost:
		return f.render("status.opponent_lost", nil)
	}
	return ""
}

// ErrorText maps session and game errors to catalog messages.
func (f *Formatter) ErrorText(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, session.ErrNoSession):
		return f.render("error.no_session", nil)
	case errors.Is(err, session.ErrConflict):
		return f.render("error.busy", nil)
	case errors.Is(err, game.ErrGameOver):
		return f.render("game.already_over", nil)
	case errors.Is(err, game.ErrEmptySquare):
		return f.render("select.empty", map[string]any{"Square": ""})
	case errors.Is(err, game.ErrNotYourPiece):
		return f.render("select.not_yours", nil)
	default:
		return err.Error()
	}
}

// Busy is the reply while an opponent round-trip is in flight.
func (f *Formatter) Busy() string {
	return f.render("error.busy", nil)
}

var unicodeGlyphs = map[string]rune{
	"wK": '♔', "wQ": '♕', "wR": '♖', "wB": '♗', "wN": '♘', "wP": '♙',
	"bK": '♚', "bQ": '♛', "bR": '♜', "bB": '♝', "bN": '♞', "bP": '♟',
}

// TextBoard renders the position as a unicode diagram for clients that
// cannot display images.
func (f *Formatter) TextBoard(board *engine.Board) string {
	var sb strings.Builder
	for row := 0; row < 8; row++ {
		sb.WriteString(string(rune('8' - row)))
		sb.WriteString(" ")
		for col := 0; col < 8; col++ {
			p := board.At(engine.Square{Row: row, Col: col})
			if p == nil {
				sb.WriteRune('·')
			} else {
				sb.WriteRune(unicodeGlyphs[p.Code()])
			}
			sb.WriteString(" ")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("  a b c d e f g h")
	return sb.String()
}
