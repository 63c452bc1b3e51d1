package domain

import "fmt"

// Action names as they appear on the wire.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	ActionPublish     = "publish"
	ActionList        = "list"
)

// Request is a closed set of client requests. Implementations live in this package only.
type Request interface {
	Action() string
	Validate() error
	isRequest()
}

type baseRequest struct{}

func (baseRequest) isRequest() {}

// SubscribeRequest adds the sender to a topic.
type SubscribeRequest struct {
	baseRequest
	Channel string
}

func (SubscribeRequest) Action() string { return ActionSubscribe }

func (r SubscribeRequest) Validate() error {
	if r.Channel == "" {
		return fmt.Errorf("%w: subscribe requires a channel name", ErrInvalidRequest)
	}
	return nil
}

// UnsubscribeRequest removes the sender from a topic.
type UnsubscribeRequest struct {
	baseRequest
	Channel string
}

func (UnsubscribeRequest) Action() string { return ActionUnsubscribe }

func (r UnsubscribeRequest) Validate() error {
	if r.Channel == "" {
		return fmt.Errorf("%w: unsubscribe requires a channel name", ErrInvalidRequest)
	}
	return nil
}

// PublishRequest broadcasts content to the current subscribers of a topic.
type PublishRequest struct {
	baseRequest
	Channel string
	Content string
}

func (PublishRequest) Action() string { return ActionPublish }

func (r PublishRequest) Validate() error {
	if r.Channel == "" {
		return fmt.Errorf("%w: publish requires a channel name", ErrInvalidRequest)
	}
	if r.Content == "" {
		return fmt.Errorf("%w: publish requires message content", ErrInvalidRequest)
	}
	return nil
}

// ListRequest asks for the topics the sender is subscribed to.
type ListRequest struct {
	baseRequest
}

func (ListRequest) Action() string { return ActionList }

func (ListRequest) Validate() error { return nil }
