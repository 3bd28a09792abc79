package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"val8-concierge/internal/engine"
	"val8-concierge/internal/events"
)

const writeTimeout = 10 * time.Second

// streamFrame is what the socket carries: session events, plus a snapshot on
// connect and errors for rejected input.
type streamFrame struct {
	Type     string           `json:"type"`
	Snapshot *engine.Snapshot `json:"snapshot,omitempty"`
	Event    *events.Event    `json:"event,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		// non-browser clients
		return true
	}
	for _, o := range s.cfg.AllowedOrigins {
		if o == origin {
			return true
		}
	}
	return false
}

// stream upgrades to a WebSocket that pushes session events. Text frames of
// the form {"text": "..."} are submitted as user messages.
func (s *Server) stream(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: s.checkOrigin}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("session", session.ID()).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	ch, err := s.deps.Subscriber.Subscribe(ctx, session.ID())
	if err != nil {
		s.log.Error().Err(err).Str("session", session.ID()).Msg("Failed to subscribe")
		return
	}

	var writeMu sync.Mutex
	write := func(f streamFrame) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteJSON(f)
	}

	snap := session.Snapshot()
	if err := write(streamFrame{Type: "snapshot", Snapshot: &snap}); err != nil {
		return
	}

	go func() {
		// unblocks the read loop below
		defer conn.Close()
		for e := range ch {
			if err := write(streamFrame{Type: "event", Event: &e}); err != nil {
				s.log.Debug().Err(err).Str("session", session.ID()).Msg("Stream write failed")
				return
			}
		}
	}()

	for {
		var in messageRequest
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Str("session", session.ID()).Msg("WebSocket closed unexpectedly")
			}
			return
		}
		if err := session.Submit(in.Text); err != nil {
			if werr := write(streamFrame{Type: "error", Error: err.Error()}); werr != nil {
				return
			}
		}
	}
}
