package dispatch

import (
	"fmt"

	"github.com/dstilesr/mini-chats/internal/domain"
)

// Mailbox is a client's bounded outbound queue of published messages.
// The dispatcher is the only producer and the only one that closes it; the client's
// connection handler is the only consumer.
type Mailbox struct {
	client string
	ch     chan domain.PublishedMessage
	closed bool
}

func newMailbox(client string, capacity int) *Mailbox {
	return &Mailbox{
		client: client,
		ch:     make(chan domain.PublishedMessage, capacity),
	}
}

// Client returns the identity the mailbox belongs to.
func (m *Mailbox) Client() string {
	return m.client
}

// C returns the receive side of the queue. It is closed when the client is
// disconnected or the dispatcher stops.
func (m *Mailbox) C() <-chan domain.PublishedMessage {
	return m.ch
}

// Len and Cap report the queue's current depth and fixed capacity.
func (m *Mailbox) Len() int { return len(m.ch) }
func (m *Mailbox) Cap() int { return cap(m.ch) }

// offer enqueues msg without blocking.
func (m *Mailbox) offer(msg domain.PublishedMessage) error {
	if m.closed {
		return fmt.Errorf("%w: mailbox of %s is closed", domain.ErrDeliveryFailure, m.client)
	}
	select {
	case m.ch <- msg:
		return nil
	default:
		return fmt.Errorf("%w: mailbox of %s is full (%d)", domain.ErrDeliveryFailure, m.client, cap(m.ch))
	}
}

func (m *Mailbox) close() {
	if m.closed {
		return
	}
	m.closed = true
	close(m.ch)
}
