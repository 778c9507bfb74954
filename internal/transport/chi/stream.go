package chi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kailas-cloud/xraysearch/internal/domain/search/result"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// streamMessage is one frame of the outcome stream.
type streamMessage struct {
	Type     string         `json:"type"`
	Location string         `json:"location"`
	Outcome  result.Outcome `json:"outcome"`
}

// StreamSession handles GET /sessions/{id}/stream. It upgrades to a websocket
// and pushes every visible outcome, starting with the current one. Slow
// readers skip intermediate outcomes. The stream ends when the session is
// deleted or the client disconnects.
func (s *Server) StreamSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	outcomes, unsubscribe := sess.Orch.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	for {
		select {
		case out, ok := <-outcomes:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			sess.touch(s.sessions.now())
			msg := streamMessage{Type: "outcome", Location: sess.Orch.Location(), Outcome: out}
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Debug("websocket write failed", zap.String("session_id", sess.ID), zap.Error(err))
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
