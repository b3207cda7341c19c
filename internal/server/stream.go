package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/rickgao/market-data/internal/stream"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (s *Server) newSession(symbols []string, transport string) *stream.Session {
	return stream.NewSession(stream.Config{
		Symbols:            symbols,
		Channel:            s.cfg.Channel,
		Transport:          transport,
		UnsubscribeTimeout: s.cfg.UnsubscribeTimeout,
	}, s.deps.Quotes, s.deps.Broker, s.deps.Metrics, s.logger)
}

// streamSSE serves GET /market/quote/stream as text/event-stream.
func (s *Server) streamSSE(c *gin.Context) {
	symbols := listParam(c, "securities")
	if len(symbols) == 0 {
		badRequest(c, "securities query parameter is required")
		return
	}

	w, err := stream.NewSSEWriter(c.Writer)
	if err != nil {
		s.writeError(c, err)
		return
	}

	sess := s.newSession(symbols, "sse")
	if err := sess.Run(c.Request.Context(), w); err != nil {
		if !w.Started() {
			s.writeError(c, err)
			return
		}
		s.logger.Warn("sse stream ended", "session", sess.ID(), "err", err)
	}
}

// streamWS serves the same quote frames over a WebSocket. The read loop only
// exists to notice the client going away.
func (s *Server) streamWS(c *gin.Context) {
	symbols := listParam(c, "securities")
	if len(symbols) == 0 {
		badRequest(c, "securities query parameter is required")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written an error response.
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	sess := s.newSession(symbols, "ws")
	runErr := sess.Run(ctx, stream.NewWSWriter(conn, s.cfg.WSWriteTimeout))

	code, text := websocket.CloseNormalClosure, ""
	if runErr != nil {
		s.logger.Warn("websocket stream ended", "session", sess.ID(), "err", runErr)
		code, text = websocket.CloseInternalServerErr, "stream ended"
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text),
		time.Now().Add(time.Second))
}
