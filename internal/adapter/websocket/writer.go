package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dstilesr/mini-chats/internal/adapter/metrics"
	"github.com/dstilesr/mini-chats/internal/dispatch"
	"github.com/dstilesr/mini-chats/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	writeDeadline  = 5 * time.Second
	pingInterval   = 30 * time.Second
	pongDeadline   = 60 * time.Second
	shutdownReason = "Server shutting down"
)

// connWriter is the only goroutine that writes to its connection after the ack.
type connWriter struct {
	conn    *websocket.Conn
	clock   clockwork.Clock
	mailbox *dispatch.Mailbox
	replies <-chan domain.Response
	metrics *metrics.WebSocketMetrics
}

func newConnWriter(conn *websocket.Conn, clock clockwork.Clock, mb *dispatch.Mailbox, replies <-chan domain.Response, m *metrics.WebSocketMetrics) *connWriter {
	cw := &connWriter{
		conn:    conn,
		clock:   clock,
		mailbox: mb,
		replies: replies,
		metrics: m,
	}
	cw.configurePongHandler()
	return cw
}

// run drains replies and the mailbox until ctx ends, a write fails, or the
// mailbox is closed by the dispatcher. A closed mailbox means shutdown: the peer
// gets a close frame and the socket is closed so the reader unblocks.
func (cw *connWriter) run(ctx context.Context) error {
	ticker := cw.clock.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-cw.mailbox.C():
			if !ok {
				cw.close(websocket.CloseGoingAway, shutdownReason)
				return nil
			}
			if err := cw.writeJSON(msg); err != nil {
				return fmt.Errorf("write message: %w", err)
			}

		case resp := <-cw.replies:
			if err := cw.writeJSON(resp); err != nil {
				return fmt.Errorf("write response: %w", err)
			}

		case <-ticker.Chan():
			cw.updateWriteDeadline()
			if err := cw.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cw.metrics.PingFailures.Inc()
				return fmt.Errorf("write ping: %w", err)
			}

		case <-ctx.Done():
			return nil
		}
	}
}

func (cw *connWriter) writeJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	start := cw.clock.Now()
	cw.updateWriteDeadline()
	if err := cw.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return err
	}
	cw.metrics.FrameWriteDuration.Observe(cw.clock.Since(start).Seconds())
	return nil
}

// close sends a close frame with reason and closes the connection.
func (cw *connWriter) close(code int, reason string) {
	cw.updateWriteDeadline()
	_ = cw.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	_ = cw.conn.Close()
}

func (cw *connWriter) configurePongHandler() {
	cw.updateReadDeadline()
	cw.conn.SetPongHandler(func(string) error {
		cw.updateReadDeadline()
		return nil
	})
}

func (cw *connWriter) updateWriteDeadline() {
	_ = cw.conn.SetWriteDeadline(cw.clock.Now().Add(writeDeadline))
}

func (cw *connWriter) updateReadDeadline() {
	_ = cw.conn.SetReadDeadline(cw.clock.Now().Add(pongDeadline))
}
