// Package session keeps one live easter-egg game per player and room
// in Redis and rebuilds the game controller by replaying the stored
// move history. Redis WATCH gives optimistic concurrency: a concurrent
// command or a stale opponent response loses the race instead of
// double-applying.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pagesmith/chess-egg/internal/engine"
	"github.com/pagesmith/chess-egg/internal/game"
	"github.com/pagesmith/chess-egg/internal/obslog"
)

var (
	ErrNoSession = errors.New("no game session in progress")
	ErrConflict  = errors.New("concurrent command detected")
)

type Manager struct {
	rdb  *redis.Client
	ttl  time.Duration
	repo *Repository
}

func NewManager(redisURL string, ttl time.Duration) (*Manager, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for session manager")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Manager{rdb: rdb, ttl: ttl}, nil
}

func (m *Manager) Close() error {
	if m == nil || m.rdb == nil {
		return nil
	}
	return m.rdb.Close()
}

// AttachRepository wires a database repository for archiving finished
// games.
func (m *Manager) AttachRepository(r *Repository) {
	if m != nil {
		m.repo = r
	}
}

// Start creates a fresh game for the player in the room, replacing any
// game already running there. Starting over IS the reset operation:
// the old session id dies with the old game.
func (m *Manager) Start(ctx context.Context, room, playerID, playerName string) (*Session, error) {
	if m == nil || m.rdb == nil {
		return nil, fmt.Errorf("session manager not initialized")
	}
	room = strings.TrimSpace(room)
	playerID = strings.TrimSpace(playerID)
	if room == "" || playerID == "" {
		return nil, fmt.Errorf("room and player are required")
	}

	s := &Session{
		ID:         uuid.NewString(),
		Room:       room,
		PlayerID:   playerID,
		PlayerName: strings.TrimSpace(playerName),
		Moves:      []string{},
		Status:     game.StatusPlay,
		Turn:       engine.White.String(),
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	obslog.L().Info("session started",
		zap.String("session_id", s.ID),
		zap.String("room", s.Room),
		zap.String("player_id", s.PlayerID),
	)
	return s, nil
}

// Get returns the session for the player in the room, or ErrNoSession.
func (m *Manager) Get(ctx context.Context, room, playerID string) (*Session, error) {
	raw, err := m.rdb.Get(ctx, sessionKey(room, playerID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Quit discards the game; an in-flight opponent response then fails
// the optimistic check and is dropped.
func (m *Manager) Quit(ctx context.Context, room, playerID string) error {
	n, err := m.rdb.Del(ctx, sessionKey(room, playerID)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoSession
	}
	return nil
}

// Rebuild replays the session's history through a fresh controller.
// Selection is restored last so the rebuilt machine matches what the
// player saw.
func (m *Manager) Rebuild(s *Session) (*game.Controller, error) {
	ctrl := game.New()
	for _, mv := range s.Moves {
		parsed, err := game.ParseMove(mv)
		if err != nil {
			return nil, fmt.Errorf("corrupt history entry %q: %w", mv, err)
		}
		if _, err := ctrl.PerformMove(parsed.From, parsed.To); err != nil {
			return nil, fmt.Errorf("replay %s: %w", mv, err)
		}
	}
	if s.Status == game.StatusOpponentLost {
		_ = ctrl.MarkOpponentLost(ctrl.Generation())
	}
	if s.Selection != "" && !ctrl.Status().Terminal() {
		if sq, err := engine.ParseSquare(s.Selection); err == nil {
			_ = ctrl.Select(sq)
		}
	}
	return ctrl, nil
}

// Select picks up a piece for the player. Selection errors pass
// through from the controller.
func (m *Manager) Select(ctx context.Context, room, playerID, square string) (*Session, error) {
	sq, err := engine.ParseSquare(square)
	if err != nil {
		return nil, err
	}
	var out *Session
	err = m.watchSession(ctx, room, playerID, func(tx *redis.Tx, s *Session, ctrl *game.Controller) error {
		if ctrl.Turn() != engine.White {
			return game.ErrNotYourPiece
		}
		if err := ctrl.Select(sq); err != nil {
			return err
		}
		s.Selection = sq.Algebraic()
		s.UpdatedAt = time.Now()
		out = s
		return m.persist(ctx, tx, s)
	})
	if errors.Is(err, redis.TxFailedErr) {
		return nil, ErrConflict
	}
	return out, err
}

// MoveOutcome is what a Play call produced: either a result or a
// rejection, never both.
type MoveOutcome struct {
	Session   *Session
	Result    *game.Result
	Rejection *game.Rejection
}

// Play attempts the player's move. A click on the origin square counts
// as the selection when none is stored, mirroring tap-then-tap play.
func (m *Manager) Play(ctx context.Context, room, playerID, from, to string) (*MoveOutcome, error) {
	fromSq, err := engine.ParseSquare(from)
	if err != nil {
		return nil, err
	}
	toSq, err := engine.ParseSquare(to)
	if err != nil {
		return nil, err
	}

	var out MoveOutcome
	err = m.watchSession(ctx, room, playerID, func(tx *redis.Tx, s *Session, ctrl *game.Controller) error {
		if ctrl.Turn() != engine.White {
			return game.ErrNotYourPiece
		}
		if sel := ctrl.Selection(); sel == nil || *sel != fromSq {
			if err := ctrl.Select(fromSq); err != nil {
				return err
			}
		}

		res, err := ctrl.AttemptMove(fromSq, toSq)
		if err != nil {
			var rej *game.Rejection
			if errors.As(err, &rej) {
				// rejection mutates only the selection
				s.Selection = ""
				if rej.Reselected != nil {
					s.Selection = rej.Reselected.Algebraic()
				}
				s.UpdatedAt = time.Now()
				out = MoveOutcome{Session: s, Rejection: rej}
				return m.persist(ctx, tx, s)
			}
			return err
		}

		s.Moves = append(s.Moves, res.Move.String())
		s.Selection = ""
		s.Status = res.Status
		s.Turn = res.Turn.String()
		s.UpdatedAt = time.Now()
		out = MoveOutcome{Session: s, Result: res}
		return m.persist(ctx, tx, s)
	})
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return nil, ErrConflict
		}
		return nil, err
	}

	if out.Result != nil {
		obslog.L().Info("player move",
			zap.String("session_id", out.Session.ID),
			zap.String("move", out.Result.Move.String()),
			zap.String("status", string(out.Result.Status)),
		)
		m.archiveIfFinal(ctx, out.Session)
	}
	return &out, nil
}

// OpponentTurn is invoked after a player move hands the turn to the
// externally controlled color. The proposal round-trip runs on a
// rebuilt controller outside any transaction; the result is persisted
// only if the session is unchanged since, so a reset or quit in the
// meantime silently wins.
func (m *Manager) OpponentTurn(ctx context.Context, room, playerID string, respond func(context.Context, *game.Controller) (*game.Result, error)) (*MoveOutcome, error) {
	s, err := m.Get(ctx, room, playerID)
	if err != nil {
		return nil, err
	}
	ctrl, err := m.Rebuild(s)
	if err != nil {
		return nil, err
	}
	if ctrl.Status().Terminal() || ctrl.Turn() != engine.Black {
		return nil, nil
	}

	oldLen := len(s.Moves)
	res, err := respond(ctx, ctrl)
	if err != nil {
		if ctrl.Status() == game.StatusOpponentLost {
			m.freezeOpponentLost(ctx, room, playerID, oldLen)
		}
		return nil, err
	}

	var out MoveOutcome
	txErr := m.watchSession(ctx, room, playerID, func(tx *redis.Tx, cur *Session, _ *game.Controller) error {
		if len(cur.Moves) != oldLen || cur.ID != s.ID {
			return redis.TxFailedErr
		}
		cur.Moves = append(cur.Moves, res.Move.String())
		cur.Status = res.Status
		cur.Turn = res.Turn.String()
		cur.UpdatedAt = time.Now()
		out = MoveOutcome{Session: cur, Result: res}
		return m.persist(ctx, tx, cur)
	})
	if txErr != nil {
		if errors.Is(txErr, redis.TxFailedErr) || errors.Is(txErr, ErrNoSession) {
			// game was reset or quit while the opponent was thinking
			obslog.L().Info("opponent move dropped, session changed",
				zap.String("session_id", s.ID))
			return nil, game.ErrStaleGame
		}
		return nil, txErr
	}

	obslog.L().Info("opponent move",
		zap.String("session_id", out.Session.ID),
		zap.String("move", out.Result.Move.String()),
		zap.String("status", string(out.Result.Status)),
	)
	m.archiveIfFinal(ctx, out.Session)
	return &out, nil
}

// freezeOpponentLost records the opponent_lost terminal state, keeping
// the optimistic move-count guard.
func (m *Manager) freezeOpponentLost(ctx context.Context, room, playerID string, oldLen int) {
	err := m.watchSession(ctx, room, playerID, func(tx *redis.Tx, cur *Session, _ *game.Controller) error {
		if len(cur.Moves) != oldLen || cur.Status.Terminal() {
			return redis.TxFailedErr
		}
		cur.Status = game.StatusOpponentLost
		cur.Selection = ""
		cur.UpdatedAt = time.Now()
		return m.persist(ctx, tx, cur)
	})
	if err != nil && !errors.Is(err, redis.TxFailedErr) && !errors.Is(err, ErrNoSession) {
		obslog.L().Error("failed to persist opponent_lost", zap.Error(err))
	}
}

// watchSession runs fn under WATCH on the session key with the session
// decoded and its controller rebuilt.
func (m *Manager) watchSession(ctx context.Context, room, playerID string, fn func(tx *redis.Tx, s *Session, ctrl *game.Controller) error) error {
	key := sessionKey(room, playerID)
	return m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNoSession
		}
		if err != nil {
			return err
		}
		var s Session
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		ctrl, err := m.Rebuild(&s)
		if err != nil {
			return err
		}
		return fn(tx, &s, ctrl)
	}, key)
}

func (m *Manager) persist(ctx context.Context, tx *redis.Tx, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	pipe := tx.TxPipeline()
	pipe.Set(ctx, sessionKey(s.Room, s.PlayerID), raw, m.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (m *Manager) save(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return m.rdb.Set(ctx, sessionKey(s.Room, s.PlayerID), raw, m.ttl).Err()
}

func (m *Manager) archiveIfFinal(ctx context.Context, s *Session) {
	if m.repo == nil || s == nil || !s.Status.Terminal() {
		return
	}
	if err := m.repo.SaveResult(ctx, s); err != nil {
		obslog.L().Error("archive failed",
			zap.String("session_id", s.ID),
			zap.Error(err),
		)
		return
	}
	obslog.L().Info("game archived",
		zap.String("session_id", s.ID),
		zap.String("status", string(s.Status)),
	)
}

func sessionKey(room, playerID string) string {
	return "egg:game:" + strings.TrimSpace(room) + ":" + strings.TrimSpace(playerID)
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
