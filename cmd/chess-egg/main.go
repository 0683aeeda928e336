package main

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pagesmith/chess-egg/internal/adapter/boardpresenter"
	"github.com/pagesmith/chess-egg/internal/agent"
	appcfg "github.com/pagesmith/chess-egg/internal/config"
	"github.com/pagesmith/chess-egg/internal/engine"
	"github.com/pagesmith/chess-egg/internal/game"
	"github.com/pagesmith/chess-egg/internal/gateway"
	"github.com/pagesmith/chess-egg/internal/msgcat"
	"github.com/pagesmith/chess-egg/internal/obslog"
	"github.com/pagesmith/chess-egg/internal/session"
)

const commandWord = "chess"

type app struct {
	cfg       *appcfg.AppConfig
	sender    gateway.Sender
	sessions  *session.Manager
	coord     *agent.Coordinator
	renderer  *boardpresenter.Renderer
	formatter *boardpresenter.Formatter

	// one opponent round-trip at a time per player
	busyMu sync.Mutex
	busy   map[string]bool
}

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()

	cat, err := msgcat.New(os.Getenv("MESSAGE_TEMPLATE_DIR"))
	if err != nil {
		obslog.L().Fatal("message catalog init failed", zap.Error(err))
	}

	sessions, err := session.NewManager(cfg.RedisURL, time.Duration(cfg.SessionTTLSec)*time.Second)
	if err != nil {
		obslog.L().Fatal("session manager init failed", zap.Error(err))
	}
	defer sessions.Close()

	var repo *session.Repository
	if cfg.ArchiveFinished && cfg.DatabaseURL != "" {
		repo, err = session.NewRepository(cfg.DatabaseURL)
		if err != nil {
			obslog.L().Fatal("archive repository init failed", zap.Error(err))
		}
		defer repo.Close()
		sessions.AttachRepository(repo)
	}

	agentClient := agent.NewClient(cfg.AgentBaseURL,
		agent.WithTimeout(time.Duration(cfg.AgentTimeoutSec)*time.Second),
		agent.WithRetry(cfg.AgentRetryMax),
	)
	coord, err := agent.NewCoordinator(agentClient,
		agent.WithMoveDelay(time.Duration(cfg.MoveDelayMs)*time.Millisecond),
		agent.WithMaxRounds(cfg.AgentMaxRounds),
	)
	if err != nil {
		obslog.L().Fatal("coordinator init failed", zap.Error(err))
	}

	a := &app{
		cfg:       cfg,
		sender:    gateway.NewClient(cfg.GatewayBaseURL),
		sessions:  sessions,
		coord:     coord,
		renderer:  boardpresenter.NewRenderer(cfg.BoardSquareSize),
		formatter: boardpresenter.NewFormatter(cat),
		busy:      map[string]bool{},
	}

	stream := gateway.NewStream(cfg.GatewayWSURL, 5)
	stream.OnStateChange(func(state gateway.StreamState) {
		obslog.L().Info("gateway stream state", zap.String("state", string(state)))
	})
	stream.OnMessage(func(msg *gateway.Message) {
		if msg == nil || strings.TrimSpace(msg.Content) == "" {
			return
		}
		if len(cfg.AllowedRooms) > 0 && !roomAllowed(cfg.AllowedRooms, msg.Room) {
			return
		}
		fields := strings.Fields(strings.TrimSpace(msg.Content))
		if len(fields) == 0 || strings.ToLower(fields[0]) != commandWord {
			return
		}
		// keep the stream loop free
		go a.handleCommand(msg, fields[1:])
	})

	cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = stream.Connect(cctx)
	cancel()
	if err != nil {
		obslog.L().Fatal("gateway connect failed", zap.Error(err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = stream.Close(shutdownCtx)
}

func roomAllowed(allowed []string, room string) bool {
	for _, r := range allowed {
		if r == room {
			return true
		}
	}
	return false
}

func (a *app) handleCommand(msg *gateway.Message, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cmd := "help"
	if len(args) > 0 {
		cmd = strings.ToLower(args[0])
		args = args[1:]
	}

	switch cmd {
	case "start":
		a.handleStart(ctx, msg)
	case "pick":
		if len(args) != 1 {
			a.reply(ctx, msg.Room, a.formatter.UnknownCommand())
			return
		}
		a.handlePick(ctx, msg, args[0])
	case "move":
		from, to, ok := parseMoveArgs(args)
		if !ok {
			a.reply(ctx, msg.Room, a.formatter.UnknownCommand())
			return
		}
		a.handleMove(ctx, msg, from, to)
	case "board", "status":
		a.handleBoard(ctx, msg)
	case "quit":
		a.handleQuit(ctx, msg)
	default:
		a.reply(ctx, msg.Room, a.formatter.UnknownCommand())
	}
}

// parseMoveArgs accepts "e2 e4", "e2-e4" and "e2e4".
func parseMoveArgs(args []string) (string, string, bool) {
	switch len(args) {
	case 1:
		v := strings.ReplaceAll(args[0], "-", "")
		if len(v) == 4 {
			return v[:2], v[2:], true
		}
	case 2:
		return args[0], args[1], true
	}
	return "", "", false
}

func (a *app) reply(ctx context.Context, room, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if err := a.sender.SendText(ctx, room, text); err != nil {
		obslog.L().Warn("reply failed", zap.String("room", room), zap.Error(err))
	}
}

func (a *app) replyBoard(ctx context.Context, room string, ctrl *game.Controller, opts boardpresenter.RenderOptions) {
	data, err := a.renderer.RenderPNG(ctx, ctrl.Board(), opts)
	if err != nil {
		obslog.L().Warn("board render failed", zap.Error(err))
		a.reply(ctx, room, a.formatter.TextBoard(ctrl.Board()))
		return
	}
	if err := a.sender.SendImage(ctx, room, base64.StdEncoding.EncodeToString(data)); err != nil {
		obslog.L().Warn("board image send failed", zap.String("room", room), zap.Error(err))
		a.reply(ctx, room, a.formatter.TextBoard(ctrl.Board()))
	}
}

func (a *app) handleStart(ctx context.Context, msg *gateway.Message) {
	s, err := a.sessions.Start(ctx, msg.Room, msg.SenderID, msg.SenderName)
	if err != nil {
		a.reply(ctx, msg.Room, a.formatter.ErrorText(err))
		return
	}
	ctrl, err := a.sessions.Rebuild(s)
	if err != nil {
		a.reply(ctx, msg.Room, a.formatter.ErrorText(err))
		return
	}
	a.reply(ctx, msg.Room, a.formatter.Started())
	a.replyBoard(ctx, msg.Room, ctrl, boardpresenter.RenderOptions{})
}

func (a *app) handlePick(ctx context.Context, msg *gateway.Message, square string) {
	s, err := a.sessions.Select(ctx, msg.Room, msg.SenderID, square)
	if err != nil {
		a.reply(ctx, msg.Room, a.formatter.ErrorText(err))
		return
	}
	ctrl, err := a.sessions.Rebuild(s)
	if err != nil {
		a.reply(ctx, msg.Room, a.formatter.ErrorText(err))
		return
	}
	sq, _ := engine.ParseSquare(square)
	a.reply(ctx, msg.Room, a.formatter.Picked(ctrl.Board().At(sq), sq))
	a.replyBoard(ctx, msg.Room, ctrl, boardpresenter.RenderOptions{
		Selection: &sq,
		Targets:   engine.LegalDestinations(ctrl.Board(), sq),
	})
}

func (a *app) handleMove(ctx context.Context, msg *gateway.Message, from, to string) {
	key := msg.Room + ":" + msg.SenderID
	a.busyMu.Lock()
	if a.busy[key] {
		a.busyMu.Unlock()
		a.reply(ctx, msg.Room, a.formatter.Busy())
		return
	}
	a.busy[key] = true
	a.busyMu.Unlock()
	defer func() {
		a.busyMu.Lock()
		delete(a.busy, key)
		a.busyMu.Unlock()
	}()

	out, err := a.sessions.Play(ctx, msg.Room, msg.SenderID, from, to)
	if err != nil {
		a.reply(ctx, msg.Room, a.formatter.ErrorText(err))
		return
	}
	if out.Rejection != nil {
		a.reply(ctx, msg.Room, a.formatter.Rejected(out.Rejection))
		return
	}

	mover := msg.SenderName
	if mover == "" {
		mover = msg.SenderID
	}
	a.reply(ctx, msg.Room, a.formatter.MovePlayed(mover, out.Result))

	if out.Result.Status != game.StatusPlay {
		if ctrl, err := a.sessions.Rebuild(out.Session); err == nil {
			a.replyBoard(ctx, msg.Room, ctrl, boardpresenter.RenderOptions{LastMove: &out.Result.Move})
		}
		return
	}

	oppOut, err := a.sessions.OpponentTurn(ctx, msg.Room, msg.SenderID, a.coord.Respond)
	if err != nil {
		if errors.Is(err, game.ErrStaleGame) {
			return
		}
		if errors.Is(err, agent.ErrOpponentUnavailable) {
			a.reply(ctx, msg.Room, a.formatter.StatusLine(game.StatusOpponentLost, "", 0, 0))
			return
		}
		a.reply(ctx, msg.Room, a.formatter.ErrorText(err))
		return
	}
	if oppOut == nil || oppOut.Result == nil {
		return
	}

	a.reply(ctx, msg.Room, a.formatter.MovePlayed("opponent", oppOut.Result))
	if ctrl, err := a.sessions.Rebuild(oppOut.Session); err == nil {
		a.replyBoard(ctx, msg.Room, ctrl, boardpresenter.RenderOptions{LastMove: &oppOut.Result.Move})
	}
}

func (a *app) handleBoard(ctx context.Context, msg *gateway.Message) {
	s, err := a.sessions.Get(ctx, msg.Room, msg.SenderID)
	if err != nil {
		a.reply(ctx, msg.Room, a.formatter.ErrorText(err))
		return
	}
	ctrl, err := a.sessions.Rebuild(s)
	if err != nil {
		a.reply(ctx, msg.Room, a.formatter.ErrorText(err))
		return
	}

	st := boardpresenter.ToDTOState(s, ctrl)
	a.reply(ctx, msg.Room, a.formatter.Status(st))

	opts := boardpresenter.RenderOptions{}
	if sel := ctrl.Selection(); sel != nil {
		opts.Selection = sel
		opts.Targets = engine.LegalDestinations(ctrl.Board(), *sel)
	}
	a.replyBoard(ctx, msg.Room, ctrl, opts)
}

func (a *app) handleQuit(ctx context.Context, msg *gateway.Message) {
	if err := a.sessions.Quit(ctx, msg.Room, msg.SenderID); err != nil {
		a.reply(ctx, msg.Room, a.formatter.ErrorText(err))
		return
	}
	a.reply(ctx, msg.Room, a.formatter.Quit())
}
