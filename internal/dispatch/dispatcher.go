package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dstilesr/mini-chats/internal/adapter/metrics"
	"github.com/dstilesr/mini-chats/internal/domain"
	apperrors "github.com/dstilesr/mini-chats/internal/platform/errors"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	commandBufferSize = 256
	depthInterval     = time.Second
	depthWarnLevel    = 200 // ~80% of commandBufferSize
)

// Stats is a point-in-time view of the registry sizes.
type Stats struct {
	Clients int `json:"clients"`
	Topics  int `json:"topics"`
}

// Dispatcher owns the client/topic registry and every client's Mailbox.
// All state is confined to the run goroutine; exported methods are safe for concurrent use.
type Dispatcher struct {
	cmdCh      chan dispatcherCmd
	clock      clockwork.Clock
	registry   *registry
	mailboxes  map[string]*Mailbox
	bufferSize int
	metrics    *metrics.DispatcherMetrics
	done       chan struct{}
	stopOnce   sync.Once
}

// NewDispatcher starts a dispatcher whose mailboxes hold bufferSize messages.
// m may be nil, in which case metrics are recorded on a private registry.
func NewDispatcher(bufferSize int, clock clockwork.Clock, m *metrics.DispatcherMetrics) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if m == nil {
		m = metrics.NewDispatcherMetrics(prometheus.NewRegistry())
	}

	d := &Dispatcher{
		cmdCh:      make(chan dispatcherCmd, commandBufferSize),
		clock:      clock,
		registry:   newRegistry(),
		mailboxes:  make(map[string]*Mailbox),
		bufferSize: bufferSize,
		metrics:    m,
		done:       make(chan struct{}),
	}
	go d.run()
	return d
}

// QueueDepth reports how many commands are waiting for the run loop.
func (d *Dispatcher) QueueDepth() int {
	return len(d.cmdCh)
}

// Backlogged reports whether the command queue is close to full.
func (d *Dispatcher) Backlogged() bool {
	return d.QueueDepth() > depthWarnLevel
}

// Connect registers client and returns its mailbox.
// Fails with domain.ErrDuplicateClient if the identity is already registered.
func (d *Dispatcher) Connect(ctx context.Context, client string) (*Mailbox, error) {
	res, err := call(ctx, d, func(reply chan<- connectResult) dispatcherCmd {
		return connectCmd{ctx: ctx, client: client, reply: reply}
	})
	if err != nil {
		return nil, err
	}
	return res.mailbox, res.err
}

// Disconnect removes client from every topic and closes its mailbox.
// It is idempotent and returns once the removal has been applied or the dispatcher has stopped.
func (d *Dispatcher) Disconnect(client string) {
	ctx := context.Background()
	_, _ = call(ctx, d, func(reply chan<- struct{}) dispatcherCmd {
		return disconnectCmd{ctx: ctx, client: client, reply: reply}
	})
}

// Subscribe adds client to topic, creating the topic if needed, and returns the
// topic's subscriber count afterwards. Subscribing twice does not change the count.
func (d *Dispatcher) Subscribe(ctx context.Context, client, topic string) (int, error) {
	res, err := call(ctx, d, func(reply chan<- countResult) dispatcherCmd {
		return subscribeCmd{ctx: ctx, client: client, topic: topic, reply: reply}
	})
	if err != nil {
		return 0, err
	}
	return res.count, res.err
}

// Unsubscribe removes client from topic. Leaving a topic the client is not in is a no-op.
func (d *Dispatcher) Unsubscribe(ctx context.Context, client, topic string) error {
	res, err := call(ctx, d, func(reply chan<- error) dispatcherCmd {
		return unsubscribeCmd{ctx: ctx, client: client, topic: topic, reply: reply}
	})
	if err != nil {
		return err
	}
	return res
}

// Publish offers a message from sender to every current subscriber of topic.
// Per-subscriber delivery failures are logged and skipped; the only errors are an
// unknown sender and a topic without subscribers.
func (d *Dispatcher) Publish(ctx context.Context, sender, topic, content string) error {
	res, err := call(ctx, d, func(reply chan<- error) dispatcherCmd {
		return publishCmd{ctx: ctx, sender: sender, topic: topic, content: content, reply: reply}
	})
	if err != nil {
		return err
	}
	return res
}

// Topics returns the topics client is subscribed to, sorted by name.
func (d *Dispatcher) Topics(ctx context.Context, client string) ([]string, error) {
	res, err := call(ctx, d, func(reply chan<- topicsResult) dispatcherCmd {
		return topicsCmd{client: client, reply: reply}
	})
	if err != nil {
		return nil, err
	}
	return res.topics, res.err
}

// Subscribers returns the current subscribers of topic, sorted by name.
func (d *Dispatcher) Subscribers(ctx context.Context, topic string) ([]string, error) {
	return call(ctx, d, func(reply chan<- []string) dispatcherCmd {
		return subscribersCmd{topic: topic, reply: reply}
	})
}

// Stats returns the number of registered clients and live topics.
func (d *Dispatcher) Stats(ctx context.Context) (Stats, error) {
	return call(ctx, d, func(reply chan<- Stats) dispatcherCmd {
		return statsCmd{reply: reply}
	})
}

// Handle executes one client request and builds the reply for that client.
// Errors never escape: they become error responses.
func (d *Dispatcher) Handle(ctx context.Context, client string, req domain.Request) domain.Response {
	resp := d.handle(ctx, client, req)
	d.metrics.Requests.WithLabelValues(req.Action(), resp.Status).Inc()
	return resp
}

func (d *Dispatcher) handle(ctx context.Context, client string, req domain.Request) domain.Response {
	if err := req.Validate(); err != nil {
		return d.errorResponse(ctx, client, apperrors.ValidationError(err.Error()).WithCause(err))
	}

	switch r := req.(type) {
	case domain.SubscribeRequest:
		total, err := d.Subscribe(ctx, client, r.Channel)
		if err != nil {
			return d.errorResponse(ctx, client, err)
		}
		return domain.Subscribed(r.Channel, total)

	case domain.UnsubscribeRequest:
		if err := d.Unsubscribe(ctx, client, r.Channel); err != nil {
			return d.errorResponse(ctx, client, err)
		}
		return domain.OK()

	case domain.PublishRequest:
		if err := d.Publish(ctx, client, r.Channel, r.Content); err != nil {
			return d.errorResponse(ctx, client, err)
		}
		return domain.OK()

	case domain.ListRequest:
		topics, err := d.Topics(ctx, client)
		if err != nil {
			return d.errorResponse(ctx, client, err)
		}
		return domain.Subscriptions(topics)

	default:
		err := fmt.Errorf("%w: unknown action %q", domain.ErrInvalidRequest, req.Action())
		return d.errorResponse(ctx, client, apperrors.ValidationError(err.Error()).WithCause(err))
	}
}

func (d *Dispatcher) errorResponse(ctx context.Context, client string, err error) domain.Response {
	structured := apperrors.AsStructuredError(err)

	attrs := []any{"client", client, "error_type", structured.Type, "message", structured.Message}
	switch structured.Type {
	case apperrors.TypeValidation, apperrors.TypeNotFound:
		slog.InfoContext(ctx, "Request rejected", attrs...)
	case apperrors.TypeUnavailable:
		slog.WarnContext(ctx, "Request rejected", attrs...)
	default:
		slog.ErrorContext(ctx, "Request failed", append(attrs, "cause", structured.Cause)...)
	}

	return domain.ErrorDetail(structured.Message)
}

// Stop closes every mailbox and ends the command loop. Safe to call more than once.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		select {
		case d.cmdCh <- stopCmd{}:
		case <-d.done:
		}
	})
	<-d.done
}

// Done is closed once the command loop has exited.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Dispatcher panic recovered", "panic", r)
			d.closeAll()
		}
	}()

	depthTicker := d.clock.NewTicker(depthInterval)
	defer depthTicker.Stop()

	for {
		select {
		case <-depthTicker.Chan():
			depth := len(d.cmdCh)
			d.metrics.CommandQueueDepth.Set(float64(depth))
			if depth > depthWarnLevel {
				slog.Warn("Command channel near capacity", "depth", depth, "capacity", cap(d.cmdCh))
			}

		case cmd := <-d.cmdCh:
			switch c := cmd.(type) {
			case connectCmd:
				c.reply <- d.handleConnect(c)
			case disconnectCmd:
				d.handleDisconnect(c)
				c.reply <- struct{}{}
			case subscribeCmd:
				c.reply <- d.handleSubscribe(c)
			case unsubscribeCmd:
				c.reply <- d.handleUnsubscribe(c)
			case publishCmd:
				c.reply <- d.handlePublish(c)
			case topicsCmd:
				topics, err := d.registry.topicsOf(c.client)
				if err != nil {
					err = unknownClient(c.client)
				}
				c.reply <- topicsResult{topics: topics, err: err}
			case subscribersCmd:
				subscribers, _ := d.registry.subscribers(c.topic)
				c.reply <- subscribers
			case statsCmd:
				clients, topics := d.registry.counts()
				c.reply <- Stats{Clients: clients, Topics: topics}
			case stopCmd:
				d.handleStop()
				return
			default:
				slog.Warn("Dispatcher received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		}
	}
}

func (d *Dispatcher) handleConnect(c connectCmd) connectResult {
	if err := d.registry.addClient(c.client); err != nil {
		slog.WarnContext(c.ctx, "Rejecting client: identity in use", "client", c.client)
		return connectResult{err: apperrors.ConflictError(fmt.Sprintf("Client %s already exists", c.client)).
			WithCause(err).
			WithContext("client", c.client)}
	}

	mb := newMailbox(c.client, d.bufferSize)
	d.mailboxes[c.client] = mb
	d.updateGauges()

	slog.InfoContext(c.ctx, "Client added", "client", c.client)
	return connectResult{mailbox: mb}
}

func (d *Dispatcher) handleDisconnect(c disconnectCmd) {
	mb, ok := d.mailboxes[c.client]
	if !ok {
		return
	}
	mb.close()
	delete(d.mailboxes, c.client)

	emptied := d.registry.removeClient(c.client)
	d.updateGauges()

	for _, topic := range emptied {
		slog.DebugContext(c.ctx, "Deleting empty channel", "channel", topic)
	}
	slog.InfoContext(c.ctx, "Client removed", "client", c.client)
}

func (d *Dispatcher) handleSubscribe(c subscribeCmd) countResult {
	total, err := d.registry.subscribe(c.client, c.topic)
	if err != nil {
		return countResult{err: unknownClient(c.client)}
	}
	d.updateGauges()

	slog.InfoContext(c.ctx, "Client subscribed", "client", c.client, "channel", c.topic, "total_subscribers", total)
	return countResult{count: total}
}

func (d *Dispatcher) handleUnsubscribe(c unsubscribeCmd) error {
	emptied, err := d.registry.unsubscribe(c.client, c.topic)
	if err != nil {
		return unknownClient(c.client)
	}
	d.updateGauges()

	if emptied {
		slog.DebugContext(c.ctx, "Deleting empty channel", "channel", c.topic)
	}
	slog.InfoContext(c.ctx, "Client unsubscribed", "client", c.client, "channel", c.topic)
	return nil
}

func (d *Dispatcher) handlePublish(c publishCmd) error {
	if !d.registry.hasClient(c.sender) {
		return unknownClient(c.sender)
	}

	msg := domain.NewPublishedMessage(c.sender, c.topic, c.content, d.clock.Now())

	subscribers, ok := d.registry.subscribers(c.topic)
	if !ok {
		return apperrors.NotFoundError(fmt.Sprintf("Channel '%s' not found", c.topic)).
			WithCause(domain.ErrTopicNotFound).
			WithContext("channel", c.topic)
	}
	d.metrics.MessagesPublished.Inc()

	delivered := 0
	for _, subscriber := range subscribers {
		mb, ok := d.mailboxes[subscriber]
		if !ok {
			slog.WarnContext(c.ctx, "Client has no associated mailbox", "subscriber", subscriber)
			d.metrics.Deliveries.WithLabelValues(metrics.DeliveryDropped).Inc()
			continue
		}
		if err := mb.offer(msg); err != nil {
			slog.WarnContext(c.ctx, "Message dropped", "subscriber", subscriber, "channel", c.topic, "error", err)
			d.metrics.Deliveries.WithLabelValues(metrics.DeliveryDropped).Inc()
			continue
		}
		d.metrics.Deliveries.WithLabelValues(metrics.DeliveryDelivered).Inc()
		delivered++
	}

	slog.DebugContext(c.ctx, "Message dispatched", "channel", c.topic, "subscribers", len(subscribers), "delivered", delivered)
	return nil
}

func (d *Dispatcher) handleStop() {
	clients, topics := d.registry.counts()
	slog.Info("Dispatcher shutting down", "clients", clients, "channels", topics)
	d.closeAll()
}

// closeAll closes every mailbox and resets the registry.
// Used during panic recovery and graceful shutdown.
func (d *Dispatcher) closeAll() {
	for client, mb := range d.mailboxes {
		mb.close()
		delete(d.mailboxes, client)
	}
	d.registry = newRegistry()
	d.updateGauges()
}

func (d *Dispatcher) updateGauges() {
	clients, topics := d.registry.counts()
	d.metrics.ConnectedClients.Set(float64(clients))
	d.metrics.ActiveTopics.Set(float64(topics))
}

func unknownClient(client string) *apperrors.Error {
	return apperrors.NotFoundError(fmt.Sprintf("Found no channel set for %s", client)).
		WithCause(domain.ErrUnknownClient).
		WithContext("client", client)
}

func stopped() *apperrors.Error {
	return apperrors.UnavailableError("dispatcher is shutting down").WithCause(domain.ErrDispatcherStopped)
}

// call sends a command built around a fresh reply channel and waits for the answer.
// ctx only bounds the send: once queued, the command is applied, so the caller
// must see its result. Handlers never block, so the reply always arrives unless
// the loop stops.
func call[T any](ctx context.Context, d *Dispatcher, build func(reply chan<- T) dispatcherCmd) (T, error) {
	var zero T
	reply := make(chan T, 1)

	select {
	case d.cmdCh <- build(reply):
	case <-d.done:
		return zero, stopped()
	case <-ctx.Done():
		return zero, fmt.Errorf("dispatcher command: %w", ctx.Err())
	}

	select {
	case v := <-reply:
		return v, nil
	case <-d.done:
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, stopped()
		}
	}
}
