package session

import (
	"time"

	"github.com/pagesmith/chess-egg/internal/game"
)

// Session is the persisted state of one easter-egg game: enough to
// rebuild the full Controller by replaying the move list from the
// standard position. The player always holds white; the opponent agent
// holds black.
type Session struct {
	ID         string      `json:"id"`
	Room       string      `json:"room"`
	PlayerID   string      `json:"player_id"`
	PlayerName string      `json:"player_name"`
	Moves      []string    `json:"moves"`
	Selection  string      `json:"selection,omitempty"`
	Status     game.Status `json:"status"`
	Turn       string      `json:"turn"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func (s *Session) Active() bool {
	return s != nil && s.Status == game.StatusPlay
}
