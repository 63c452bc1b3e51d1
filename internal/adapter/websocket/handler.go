package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/dstilesr/mini-chats/internal/adapter/metrics"
	"github.com/dstilesr/mini-chats/internal/dispatch"
	"github.com/dstilesr/mini-chats/internal/domain"
	"github.com/dstilesr/mini-chats/internal/platform/correlation"
	apperrors "github.com/dstilesr/mini-chats/internal/platform/errors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ClientNameParam is the query parameter a client uses to choose its identity.
const ClientNameParam = "client_name"

var errRateLimited = errors.New("too many requests, slow down")

// Dispatcher is the part of the dispatcher a connection needs.
type Dispatcher interface {
	Connect(ctx context.Context, client string) (*dispatch.Mailbox, error)
	Disconnect(client string)
	Handle(ctx context.Context, client string, req domain.Request) domain.Response
}

// Options tunes per-connection limits.
type Options struct {
	MaxMessageSize int64
	MessageRate    float64
	MessageBurst   int
	CheckOrigin    func(r *http.Request) bool
}

// Handler upgrades HTTP requests and serves one client per socket.
type Handler struct {
	dispatcher Dispatcher
	upgrader   websocket.Upgrader
	clock      clockwork.Clock
	metrics    *metrics.WebSocketMetrics
	opts       Options
}

func NewHandler(d Dispatcher, clock clockwork.Clock, m *metrics.WebSocketMetrics, opts Options) *Handler {
	return &Handler{
		dispatcher: d,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     opts.CheckOrigin,
		},
		clock:   clock,
		metrics: m,
		opts:    opts,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	client := r.URL.Query().Get(ClientNameParam)
	if strings.TrimSpace(client) == "" {
		client = uuid.NewString()
	}

	ctx := correlation.WithClient(correlation.WithID(r.Context(), correlation.NewID()), client)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		h.metrics.ConnectionsTotal.WithLabelValues(metrics.ConnectError).Inc()
		slog.WarnContext(ctx, "Failed to open socket connection", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	mb, err := h.dispatcher.Connect(ctx, client)
	if err != nil {
		h.reject(ctx, conn, client, err)
		return
	}
	defer h.dispatcher.Disconnect(client)

	h.metrics.ConnectionsTotal.WithLabelValues(metrics.ConnectAccepted).Inc()
	h.metrics.ActiveConnections.Inc()
	defer h.metrics.ActiveConnections.Dec()

	slog.InfoContext(ctx, "Client connected", "remote_addr", r.RemoteAddr)
	h.serve(ctx, conn, client, mb)
	slog.InfoContext(ctx, "Client disconnected")
}

// reject tells the peer why registration failed and closes the socket normally.
func (h *Handler) reject(ctx context.Context, conn *websocket.Conn, client string, err error) {
	detail := apperrors.AsStructuredError(err).Message
	if errors.Is(err, domain.ErrDuplicateClient) {
		h.metrics.ConnectionsTotal.WithLabelValues(metrics.ConnectDuplicate).Inc()
		detail = domain.ErrDuplicateClient.Error()
	} else {
		h.metrics.ConnectionsTotal.WithLabelValues(metrics.ConnectRejected).Inc()
	}
	slog.WarnContext(ctx, "Failed to register client", "error", err)

	cw := &connWriter{conn: conn, clock: h.clock, metrics: h.metrics}
	resp := domain.ErrorDetail(fmt.Sprintf("Failed to register client %s: %s", client, detail))
	if err := cw.writeJSON(resp); err != nil {
		slog.DebugContext(ctx, "Failed to write rejection", "error", err)
	}
	cw.close(websocket.CloseNormalClosure, "")
}

// serve sends the ack and runs the reader and writer until either ends.
func (h *Handler) serve(ctx context.Context, conn *websocket.Conn, client string, mb *dispatch.Mailbox) {
	replies := make(chan domain.Response)
	cw := newConnWriter(conn, h.clock, mb, replies, h.metrics)

	if err := cw.writeJSON(domain.Ack(client)); err != nil {
		slog.WarnContext(ctx, "Failed to send ack", "error", err)
		return
	}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(connCtx)
	g.Go(func() error {
		// A blocked ReadMessage only returns once the socket is closed.
		// Cancel first so the reader sees a finished connection, not a failed read.
		defer func() { _ = conn.Close() }()
		defer cancel()
		return cw.run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return h.read(gctx, conn, client, replies)
	})

	if err := g.Wait(); err != nil {
		slog.InfoContext(ctx, "Connection ended with error", "error", err)
	}
}

// read decodes inbound frames, executes them and forwards each reply to the writer.
func (h *Handler) read(ctx context.Context, conn *websocket.Conn, client string, replies chan<- domain.Response) error {
	if h.opts.MaxMessageSize > 0 {
		conn.SetReadLimit(h.opts.MaxMessageSize)
	}
	limit := rate.Limit(h.opts.MessageRate)
	if h.opts.MessageRate <= 0 {
		limit = rate.Inf
	}
	limiter := rate.NewLimiter(limit, h.opts.MessageBurst)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
		_ = conn.SetReadDeadline(h.clock.Now().Add(pongDeadline))

		resp := h.execute(ctx, client, data, limiter)

		select {
		case replies <- resp:
		case <-ctx.Done():
			return nil
		}
	}
}

func (h *Handler) execute(ctx context.Context, client string, data []byte, limiter *rate.Limiter) domain.Response {
	if !limiter.Allow() {
		h.metrics.RateLimited.Inc()
		slog.WarnContext(ctx, "Request rate limit exceeded")
		return domain.ErrorResponse(errRateLimited)
	}

	req, err := DecodeRequest(data)
	if err != nil {
		slog.InfoContext(ctx, "Invalid request frame", "error", err)
		return domain.ErrorResponse(err)
	}

	return h.dispatcher.Handle(ctx, client, req)
}
