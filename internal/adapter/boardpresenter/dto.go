package boardpresenter

import (
	"time"

	"github.com/pagesmith/chess-egg/internal/game"
	"github.com/pagesmith/chess-egg/internal/session"
	"github.com/pagesmith/chess-egg/pkg/gamedto"
)

// ToDTOState flattens a session and its rebuilt controller into a
// transferable snapshot.
func ToDTOState(s *session.Session, ctrl *game.Controller) *gamedto.GameState {
	if s == nil {
		return nil
	}
	st := &gamedto.GameState{
		SessionID:  s.ID,
		Room:       s.Room,
		PlayerID:   s.PlayerID,
		PlayerName: s.PlayerName,
		Moves:      append([]string(nil), s.Moves...),
		MoveCount:  len(s.Moves),
		Status:     string(s.Status),
		Turn:       s.Turn,
		Selection:  s.Selection,
	}
	// a rebuilt controller's clock starts at the rebuild, so elapsed
	// time comes from the session's own timestamps
	if s.Active() {
		st.ElapsedSec = int(time.Since(s.CreatedAt).Seconds())
	} else {
		st.ElapsedSec = int(s.UpdatedAt.Sub(s.CreatedAt).Seconds())
	}
	if st.ElapsedSec < 0 {
		st.ElapsedSec = 0
	}
	if ctrl != nil {
		st.Board = ctrl.Board().Codes()
	}
	return st
}

// Status renders the status line for a snapshot.
func (f *Formatter) Status(st *gamedto.GameState) string {
	if st == nil {
		return f.render("error.no_session", nil)
	}
	return f.StatusLine(game.Status(st.Status), st.Turn, st.MoveCount, st.ElapsedSec)
}
