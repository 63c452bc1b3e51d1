package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/dstilesr/mini-chats/internal/domain"
)

// requestFrame is the inbound wire shape: {"action": "...", "params": {...}}.
type requestFrame struct {
	Action string       `json:"action"`
	Params requestParam `json:"params"`
}

type requestParam struct {
	ChannelName string `json:"channel_name"`
	Content     string `json:"content"`
}

// DecodeRequest turns one text frame into a typed request.
// Malformed JSON and unknown actions wrap domain.ErrInvalidRequest.
func DecodeRequest(data []byte) (domain.Request, error) {
	var frame requestFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON message", domain.ErrInvalidRequest)
	}

	switch frame.Action {
	case domain.ActionSubscribe:
		return domain.SubscribeRequest{Channel: frame.Params.ChannelName}, nil
	case domain.ActionUnsubscribe:
		return domain.UnsubscribeRequest{Channel: frame.Params.ChannelName}, nil
	case domain.ActionPublish:
		return domain.PublishRequest{Channel: frame.Params.ChannelName, Content: frame.Params.Content}, nil
	case domain.ActionList:
		return domain.ListRequest{}, nil
	case "":
		return nil, fmt.Errorf("%w: missing action", domain.ErrInvalidRequest)
	default:
		return nil, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidRequest, frame.Action)
	}
}
