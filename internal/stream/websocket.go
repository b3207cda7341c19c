package stream

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/market-data/internal/model"
)

// WSWriter writes quote maps as WebSocket JSON text messages.
type WSWriter struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

// NewWSWriter wraps an upgraded connection.
func NewWSWriter(conn *websocket.Conn, writeTimeout time.Duration) *WSWriter {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &WSWriter{conn: conn, writeTimeout: writeTimeout}
}

// WriteFrame implements FrameWriter.
func (w *WSWriter) WriteFrame(q model.Quotes) error {
	if err := w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout)); err != nil {
		return err
	}
	return w.conn.WriteJSON(q)
}
