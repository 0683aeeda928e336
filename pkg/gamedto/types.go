// Package gamedto carries game state across layer boundaries without
// exposing engine internals.
package gamedto

// GameState is a snapshot of one session, suitable for formatting or
// serialization.
type GameState struct {
	SessionID  string            `json:"session_id"`
	Room       string            `json:"room"`
	PlayerID   string            `json:"player_id"`
	PlayerName string            `json:"player_name"`
	Moves      []string          `json:"moves"`
	MoveCount  int               `json:"move_count"`
	Status     string            `json:"status"`
	Turn       string            `json:"turn"`
	Selection  string            `json:"selection,omitempty"`
	Board      map[string]string `json:"board,omitempty"`
	ElapsedSec int               `json:"elapsed_sec"`
	BoardImage []byte            `json:"-"`
}
