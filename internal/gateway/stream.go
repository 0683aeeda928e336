package gateway

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/pagesmith/chess-egg/internal/obslog"
)

// Stream maintains the WebSocket subscription to the gateway's inbound
// message feed, reconnecting with backoff on failure.
type Stream struct {
	wsURL string

	conn   *websocket.Conn
	state  StreamState
	stateM sync.RWMutex

	msgCbs   []MessageCallback
	stateCbs []StateCallback
	cbM      sync.RWMutex

	maxReconnectAttempts int
	pingInterval         time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func NewStream(wsURL string, maxReconnectAttempts int) *Stream {
	return &Stream{
		wsURL:                wsURL,
		state:                StreamDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
	}
}

func (s *Stream) Connect(ctx context.Context) error {
	s.stateM.Lock()
	if s.state == StreamConnected || s.state == StreamConnecting {
		s.stateM.Unlock()
		return nil
	}
	s.stateM.Unlock()

	s.rootCtx, s.rootCancel = context.WithCancel(context.Background())
	s.setState(StreamConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, s.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.setState(StreamFailed)
		s.scheduleReconnect()
		return err
	}

	s.conn = conn
	s.setState(StreamConnected)

	s.wg.Add(2)
	go s.listen()
	go s.pingLoop()
	return nil
}

func (s *Stream) listen() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		if s.conn == nil {
			return
		}
		var msg Message
		if err := wsjson.Read(s.rootCtx, s.conn, &msg); err != nil {
			if s.isStopping() {
				return
			}
			obslog.L().Warn("gateway stream read failed", zap.Error(err))
			s.setState(StreamDisconnected)
			_ = s.closeConn(websocket.StatusGoingAway, "reconnect")
			s.scheduleReconnect()
			return
		}

		s.cbM.RLock()
		callbacks := make([]MessageCallback, len(s.msgCbs))
		copy(callbacks, s.msgCbs)
		s.cbM.RUnlock()
		for _, cb := range callbacks {
			if cb != nil {
				cb(&msg)
			}
		}
	}
}

func (s *Stream) pingLoop() {
	defer s.wg.Done()
	t := time.NewTicker(s.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-s.stopCh:
			return
		case <-t.C:
			if s.conn == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(s.rootCtx, 3*time.Second)
			err := s.conn.Ping(ctx)
			cancel()
			if err != nil {
				failures++
				if failures >= 2 {
					if s.isStopping() {
						return
					}
					s.setState(StreamDisconnected)
					_ = s.closeConn(websocket.StatusGoingAway, "ping failure")
					s.scheduleReconnect()
					failures = 0
				}
				continue
			}
			failures = 0
		}
	}
}

func (s *Stream) scheduleReconnect() {
	if s.maxReconnectAttempts <= 0 {
		return
	}
	s.setState(StreamReconnecting)

	go func() {
		for attempt := 1; attempt <= s.maxReconnectAttempts; attempt++ {
			select {
			case <-s.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}

			dialCtx, cancel := context.WithTimeout(s.rootCtx, 10*time.Second)
			conn, _, err := websocket.Dial(dialCtx, s.wsURL, &websocket.DialOptions{
				CompressionMode: websocket.CompressionNoContextTakeover,
			})
			cancel()
			if err != nil {
				obslog.L().Warn("gateway reconnect failed",
					zap.Int("attempt", attempt), zap.Error(err))
				continue
			}

			s.conn = conn
			s.setState(StreamConnected)

			s.wg.Add(2)
			go s.listen()
			go s.pingLoop()
			return
		}
		s.setState(StreamFailed)
	}()
}

func (s *Stream) OnMessage(cb MessageCallback) {
	s.cbM.Lock()
	defer s.cbM.Unlock()
	s.msgCbs = append(s.msgCbs, cb)
}

func (s *Stream) OnStateChange(cb StateCallback) {
	s.cbM.Lock()
	defer s.cbM.Unlock()
	s.stateCbs = append(s.stateCbs, cb)
}

func (s *Stream) State() StreamState {
	s.stateM.RLock()
	defer s.stateM.RUnlock()
	return s.state
}

func (s *Stream) setState(state StreamState) {
	s.stateM.Lock()
	s.state = state
	s.stateM.Unlock()

	s.cbM.RLock()
	callbacks := make([]StateCallback, len(s.stateCbs))
	copy(callbacks, s.stateCbs)
	s.cbM.RUnlock()
	for _, cb := range callbacks {
		if cb != nil {
			cb(state)
		}
	}
}

func (s *Stream) Close(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	_ = s.closeConn(websocket.StatusNormalClosure, "close")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		if s.rootCancel != nil {
			s.rootCancel()
		}
		return nil
	}
}

func (s *Stream) closeConn(code websocket.StatusCode, reason string) error {
	if s.conn == nil {
		return nil
	}
	defer func() { s.conn = nil }()
	return s.conn.Close(code, reason)
}

func (s *Stream) isStopping() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}
