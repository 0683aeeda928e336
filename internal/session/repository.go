package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/pagesmith/chess-egg/internal/game"
)

// Repository archives finished games in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult upserts a terminal game, keyed by session id so a
// re-delivered archive never duplicates a row.
func (r *Repository) SaveResult(ctx context.Context, s *Session) error {
	if r == nil || r.db == nil || s == nil {
		return nil
	}
	if !s.Status.Terminal() {
		return nil
	}

	movesRaw, _ := json.Marshal(s.Moves)
	duration := s.UpdatedAt.Sub(s.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO egg_games (
	    session_id, room, player_id, player_name,
	    status, winner, moves, transcript,
	    started_at, ended_at, duration_ms
	  ) VALUES (
	    $1,$2,$3,$4,$5,$6,$7::jsonb,$8,$9,$10,$11
	  ) ON CONFLICT (session_id) DO UPDATE SET
	    status=EXCLUDED.status,
	    winner=EXCLUDED.winner,
	    moves=EXCLUDED.moves,
	    transcript=EXCLUDED.transcript,
	    ended_at=EXCLUDED.ended_at,
	    duration_ms=EXCLUDED.duration_ms`

	_, err := r.db.ExecContext(ctx, q,
		s.ID, s.Room, s.PlayerID, s.PlayerName,
		string(s.Status), winnerOf(s), string(movesRaw), buildTranscript(s),
		s.CreatedAt, s.UpdatedAt, duration,
	)
	return err
}

// winnerOf derives the winning side from the terminal status. The
// mover who delivered checkmate is the side that just moved, which
// Turn still points at because the turn freezes on terminal states.
func winnerOf(s *Session) string {
	switch s.Status {
	case game.StatusCheckmate:
		return s.Turn
	case game.StatusStalemate:
		return "draw"
	default:
		return ""
	}
}

// buildTranscript renders a numbered from-to move list for the
// archive row.
func buildTranscript(s *Session) string {
	var b strings.Builder
	for i := 0; i < len(s.Moves); i += 2 {
		turn := (i / 2) + 1
		b.WriteString(fmt.Sprintf("%d. %s", turn, s.Moves[i]))
		if i+1 < len(s.Moves) {
			b.WriteString(" ")
			b.WriteString(s.Moves[i+1])
		}
		b.WriteString(" ")
	}
	switch s.Status {
	case game.StatusCheckmate:
		b.WriteString("# " + winnerOf(s) + " wins")
	case game.StatusStalemate:
		b.WriteString("1/2-1/2")
	case game.StatusOpponentLost:
		b.WriteString("* opponent lost")
	}
	return strings.TrimSpace(b.String())
}
